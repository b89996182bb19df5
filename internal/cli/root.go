// Package cli implements the auditlog command line tool.
package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mickamy/auditlog"
	"github.com/mickamy/auditlog/store/memory"
	"github.com/mickamy/auditlog/store/redisstore"
	"github.com/mickamy/auditlog/store/sqlstore"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "auditlog",
	Short: "Human-readable audit trails for database changes",
	Long: `auditlog manages the structured audit store: it creates the schema,
prints the history of a root entity, prunes old events and runs a demo.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", ".auditlog.yml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

func loadConfig() (*Config, error) {
	cfg, err := Load(cfgFile)
	if err != nil {
		return nil, err
	}
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}
	if verbose {
		level = logrus.DebugLevel
	}
	logrus.SetLevel(level)
	logrus.SetOutput(os.Stderr)
	return cfg, nil
}

// eventStore is what every store backend offers the CLI.
type eventStore interface {
	auditlog.EventSink
	auditlog.HistoryReader
	Prune(ctx context.Context, before time.Time) (int64, error)
}

type migrator interface {
	Migrate(ctx context.Context) error
}

// openStore opens the configured store. The returned close function is never nil.
func openStore(ctx context.Context, cfg *Config) (eventStore, func() error, error) {
	switch cfg.Store {
	case "memory":
		return memory.NewStore(), func() error { return nil }, nil
	case "sqlite":
		var opts []sqlstore.Option
		if cfg.Prefix != "" {
			opts = append(opts, sqlstore.WithPrefix(cfg.Prefix))
		}
		s, err := sqlstore.OpenSQLite(cfg.DSN, opts...)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case "postgres":
		var opts []sqlstore.Option
		if cfg.Prefix != "" {
			opts = append(opts, sqlstore.WithPrefix(cfg.Prefix))
		}
		s, err := sqlstore.OpenPostgres(ctx, cfg.DSN, opts...)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case "redis":
		var opts []redisstore.Option
		if cfg.Prefix != "" {
			opts = append(opts, redisstore.WithPrefix(cfg.Prefix))
		}
		s, err := redisstore.Open(ctx, cfg.DSN, opts...)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown store %q", cfg.Store)
}

// migrate creates the schema when the store has one.
func migrate(ctx context.Context, s eventStore) error {
	if m, ok := s.(migrator); ok {
		return m.Migrate(ctx)
	}
	return nil
}
