package auditlog

import (
	"time"

	"github.com/sirupsen/logrus"
)

// Config defines the main configuration options for auditlog.
// Start from DefaultConfig; the zero value turns VerboseDelete off.
type Config struct {
	Localizer Localizer // default templates, null symbol and boolean words (default: English)

	// Message templates. Empty means the localizer's default.
	PropertyChangeTemplate    string // {DisplayName} {Old} {New}
	CollectionAddedTemplate   string // {Title} {EntitySingular} {CollectionDisplay}
	CollectionRemovedTemplate string // {Title} {EntitySingular} {CollectionDisplay}
	DeletedTemplate           string // {Title} {EntitySingular}

	VerboseDelete          bool      // report deleted entities with their own message
	IncludeUnchangedMarked bool      // report unchanged members tagged `audit:",always"`
	Redact                 RedactMap // optional masking of property values

	Actor         Provider
	CorrelationID Provider
	Tenant        Provider

	RootResolver RootResolver     // default: DefaultRootResolver
	Loader       ForeignKeyLoader // optional; Tx supplies its own
	Registry     *Registry        // default: a new empty registry

	Messages MessageSink // receives flat messages before the save
	Events   EventSink   // receives structured events after a successful save

	Logger  logrus.FieldLogger // default: logrus.StandardLogger()
	Metrics *Metrics           // optional
	Now     func() time.Time   // default: time.Now
}

// DefaultConfig returns the settings used when nothing else is configured:
// English messages, verbose deletes and the context-based metadata providers.
func DefaultConfig() Config {
	return Config{
		Localizer:     English,
		VerboseDelete: true,
		Actor:         ActorFromContext,
		CorrelationID: CorrelationIDFromContext,
		Tenant:        TenantFromContext,
	}
}

func (c Config) withDefaults() Config {
	if c.Localizer.NullSymbol == "" && c.Localizer.PropertyChanged == "" {
		c.Localizer = English
	}
	if c.RootResolver == nil {
		c.RootResolver = DefaultRootResolver{}
	}
	if c.Registry == nil {
		c.Registry = NewRegistry()
	}
	if c.Logger == nil {
		c.Logger = logrus.StandardLogger()
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

// Handler is the main entry point that manages auditlog behavior.
type Handler struct {
	cfg     Config
	builder *Builder
}

// New creates a new Handler instance with sensible defaults.
func New(cfg Config) *Handler {
	cfg = cfg.withDefaults()
	return &Handler{cfg: cfg, builder: NewBuilder(cfg)}
}

// Builder returns the handler's event builder.
func (h *Handler) Builder() *Builder {
	return h.builder
}

// Registry returns the display registry in use.
func (h *Handler) Registry() *Registry {
	return h.cfg.Registry
}

// Localizer returns the active localizer.
func (h *Handler) Localizer() Localizer {
	return h.cfg.Localizer
}
