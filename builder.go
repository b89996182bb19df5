package auditlog

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Builder turns change snapshots into flat messages and structured events.
// It holds no per-save state and can be shared.
type Builder struct {
	registry               *Registry
	formatter              Formatter
	keys                   KeyFormatter
	templates              Templates
	verboseDelete          bool
	includeUnchangedMarked bool
	redact                 RedactMap
	resolver               RootResolver
	loader                 ForeignKeyLoader
	actor                  Provider
	correlation            Provider
	tenant                 Provider
	logger                 logrus.FieldLogger
	metrics                *Metrics
	now                    func() time.Time
}

// NewBuilder returns a Builder for cfg after filling defaults.
func NewBuilder(cfg Config) *Builder {
	cfg = cfg.withDefaults()
	f := Formatter{Localizer: cfg.Localizer}
	return &Builder{
		registry:  cfg.Registry,
		formatter: f,
		keys:      KeyFormatter{Formatter: f},
		templates: Templates{
			PropertyChanged:   cfg.PropertyChangeTemplate,
			CollectionAdded:   cfg.CollectionAddedTemplate,
			CollectionRemoved: cfg.CollectionRemovedTemplate,
			Deleted:           cfg.DeletedTemplate,
		}.withDefaults(cfg.Localizer),
		verboseDelete:          cfg.VerboseDelete,
		includeUnchangedMarked: cfg.IncludeUnchangedMarked,
		redact:                 cfg.Redact,
		resolver:               cfg.RootResolver,
		loader:                 cfg.Loader,
		actor:                  cfg.Actor,
		correlation:            cfg.CorrelationID,
		tenant:                 cfg.Tenant,
		logger:                 cfg.Logger,
		metrics:                cfg.Metrics,
		now:                    cfg.Now,
	}
}

// Result is the output of one classification pass.
type Result struct {
	Messages []string
	Event    AuditEvent
}

// BuildEvent returns the structured event for snap.
func (b *Builder) BuildEvent(ctx context.Context, snap Snapshot) AuditEvent {
	return b.Build(ctx, snap, nil).Event
}

// BuildFlatMessages returns one line per change in snap, in classification order.
func (b *Builder) BuildFlatMessages(ctx context.Context, snap Snapshot) []string {
	return b.Build(ctx, snap, nil).Messages
}

// Build classifies every changed record of snap once and returns both output shapes.
// loader overrides the configured ForeignKeyLoader when non-nil.
// Records that fail to classify are logged and skipped.
func (b *Builder) Build(ctx context.Context, snap Snapshot, loader ForeignKeyLoader) Result {
	defer b.metrics.observeBuild(time.Now())
	if loader == nil {
		loader = b.loader
	}
	loc := &locator{b: b, snap: snap, loader: loader}

	res := Result{Event: AuditEvent{
		ID:            uuid.New(),
		Timestamp:     b.now().UTC(),
		Actor:         provide(ctx, b.actor),
		CorrelationID: provide(ctx, b.correlation),
		TenantID:      provide(ctx, b.tenant),
	}}

	for _, rec := range snap.Changed() {
		rc, err := b.classify(ctx, loc, rec)
		if err != nil {
			b.skip(rec, err)
			continue
		}
		if len(rc.changes) == 0 {
			continue
		}
		anchors, err := b.anchors(ctx, loc, rec)
		if err != nil {
			b.skip(rec, err)
			continue
		}
		for _, c := range rc.changes {
			res.Messages = append(res.Messages, c.Message)
			b.metrics.change(c.Kind)
		}
		res.Event.Entries = append(res.Event.Entries, rc.entries(anchors)...)
	}
	return res
}

func (b *Builder) anchors(ctx context.Context, loc *locator, rec *Record) (anchors []AuditAnchor, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("auditlog: failed to resolve anchors for %s: %v", rec.TypeName(), r)
		}
	}()
	anchors = b.resolver.ResolveAnchors(ctx, rec, loc)
	if len(anchors) == 0 {
		anchors = []AuditAnchor{loc.SelfAnchor(rec)}
	}
	return anchors, nil
}

// entries files the changes under each anchor. A change whose parent is one of the
// anchors goes to that anchor only; every other change goes to all anchors.
// Anchors that end up without changes are dropped.
func (rc recordChanges) entries(anchors []AuditAnchor) []AuditEntry {
	out := make([]AuditEntry, 0, len(anchors))
	for _, a := range anchors {
		e := AuditEntry{
			EntityType:  rc.typeName,
			EntityID:    rc.id,
			EntityTitle: rc.title,
			RootType:    a.RootType,
			RootID:      a.RootID,
			RootTitle:   a.RootTitle,
		}
		for _, c := range rc.changes {
			if c.parent != nil && routed(anchors, *c.parent) && !c.parent.same(a) {
				continue
			}
			e.Changes = append(e.Changes, c.AuditChange)
		}
		if len(e.Changes) > 0 {
			out = append(out, e)
		}
	}
	return out
}

func routed(anchors []AuditAnchor, parent AuditAnchor) bool {
	for _, a := range anchors {
		if a.same(parent) {
			return true
		}
	}
	return false
}

func (b *Builder) skip(rec *Record, err error) {
	b.metrics.skipped()
	entry := b.logger.WithError(err)
	if rec != nil {
		entry = entry.WithFields(logrus.Fields{
			"entity_type": rec.TypeName(),
			"state":       rec.State.String(),
		})
	}
	entry.Warn("auditlog: skipped record")
}
