package auditlog

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// EnvConfig is the part of Config that can be set from the environment.
type EnvConfig struct {
	Locale                    string `env:"AUDITLOG_LOCALE" envDefault:"en"`
	PropertyChangeTemplate    string `env:"AUDITLOG_PROPERTY_CHANGE_TEMPLATE"`
	CollectionAddedTemplate   string `env:"AUDITLOG_COLLECTION_ADDED_TEMPLATE"`
	CollectionRemovedTemplate string `env:"AUDITLOG_COLLECTION_REMOVED_TEMPLATE"`
	DeletedTemplate           string `env:"AUDITLOG_DELETED_TEMPLATE"`
	VerboseDelete             bool   `env:"AUDITLOG_VERBOSE_DELETE" envDefault:"true"`
	IncludeUnchangedMarked    bool   `env:"AUDITLOG_INCLUDE_UNCHANGED_MARKED" envDefault:"false"`
}

// LoadConfig reads EnvConfig from the environment and applies it on top of DefaultConfig.
func LoadConfig() (Config, error) {
	var ec EnvConfig
	if err := env.Parse(&ec); err != nil {
		return Config{}, fmt.Errorf("auditlog: failed to parse environment: %w", err)
	}
	return ec.Apply(DefaultConfig()), nil
}

// Apply copies the environment settings onto cfg.
func (ec EnvConfig) Apply(cfg Config) Config {
	cfg.Localizer = LocalizerFor(ec.Locale)
	cfg.PropertyChangeTemplate = ec.PropertyChangeTemplate
	cfg.CollectionAddedTemplate = ec.CollectionAddedTemplate
	cfg.CollectionRemovedTemplate = ec.CollectionRemovedTemplate
	cfg.DeletedTemplate = ec.DeletedTemplate
	cfg.VerboseDelete = ec.VerboseDelete
	cfg.IncludeUnchangedMarked = ec.IncludeUnchangedMarked
	return cfg
}
