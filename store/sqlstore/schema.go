package sqlstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/mickamy/auditlog/internal/ident"
)

type tables struct {
	events  string // quoted
	entries string
	changes string
	index   string
}

func newTables(prefix string) tables {
	entries := ident.Suffixed(prefix, "_entries")
	return tables{
		events:  ident.QuoteQualified(ident.Suffixed(prefix, "_events")),
		entries: ident.QuoteQualified(entries),
		changes: ident.QuoteQualified(ident.Suffixed(prefix, "_changes")),
		index:   ident.Quote("idx_" + entries[len(entries)-1] + "_root"),
	}
}

func (s *Store) ddl() []string {
	t, d := s.tables, s.dialect
	return []string{
		fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	seq %s,
	id TEXT NOT NULL UNIQUE,
	ts BIGINT NOT NULL,
	actor TEXT NOT NULL DEFAULT '',
	correlation_id TEXT NOT NULL DEFAULT '',
	tenant_id TEXT NOT NULL DEFAULT ''
)`, t.events, d.serial),
		fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	seq %s,
	event_seq BIGINT NOT NULL REFERENCES %s (seq) ON DELETE CASCADE,
	position INTEGER NOT NULL,
	ts BIGINT NOT NULL,
	entity_type TEXT NOT NULL,
	entity_id TEXT NOT NULL,
	entity_title TEXT NOT NULL DEFAULT '',
	root_type TEXT NOT NULL,
	root_id TEXT NOT NULL,
	root_title TEXT NOT NULL DEFAULT ''
)`, t.entries, d.serial, t.events),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (root_type, root_id, ts)`, t.index, t.entries),
		fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	seq %s,
	entry_seq BIGINT NOT NULL REFERENCES %s (seq) ON DELETE CASCADE,
	position INTEGER NOT NULL,
	kind INTEGER NOT NULL,
	property_path TEXT NOT NULL DEFAULT '',
	display_name TEXT NOT NULL DEFAULT '',
	old_value TEXT NOT NULL DEFAULT '',
	new_value TEXT NOT NULL DEFAULT '',
	collection_display TEXT NOT NULL DEFAULT '',
	related_type TEXT NOT NULL DEFAULT '',
	related_id TEXT NOT NULL DEFAULT '',
	related_title TEXT NOT NULL DEFAULT '',
	parent_type TEXT NOT NULL DEFAULT '',
	parent_id TEXT NOT NULL DEFAULT '',
	parent_title TEXT NOT NULL DEFAULT '',
	message TEXT NOT NULL DEFAULT ''
)`, t.changes, d.serial, t.entries),
	}
}

// Migrate creates the audit tables and index if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range s.ddl() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("auditlog: failed to migrate %s store: %w", s.dialect.Name, err)
		}
	}
	s.logger.WithField("tables", strings.Join([]string{s.tables.events, s.tables.entries, s.tables.changes}, ",")).
		Debug("auditlog: audit tables ready")
	return nil
}
