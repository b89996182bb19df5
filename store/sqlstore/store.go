// Package sqlstore persists audit events in SQLite or PostgreSQL.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/mickamy/auditlog"
)

// DefaultPrefix names the tables audit_events, audit_entries and audit_changes.
const DefaultPrefix = "audit"

// Option configures a Store.
type Option func(*Store)

// WithPrefix sets the table prefix, optionally schema-qualified ("ops.audit").
func WithPrefix(prefix string) Option {
	return func(s *Store) { s.tables = newTables(prefix) }
}

// WithLogger sets the logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Store) { s.logger = l }
}

// Store is an auditlog.EventSink and auditlog.HistoryReader backed by database/sql.
type Store struct {
	db      *sql.DB
	dialect Dialect
	tables  tables
	logger  logrus.FieldLogger
}

// New wraps an open database. Call Migrate before first use.
func New(db *sql.DB, d Dialect, opts ...Option) *Store {
	s := &Store{db: db, dialect: d, tables: newTables(DefaultPrefix), logger: logrus.StandardLogger()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OpenSQLite opens (or creates) a SQLite database. ":memory:" opens a private
// in-memory database on a single connection.
func OpenSQLite(path string, opts ...Option) (*Store, error) {
	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	if path == ":memory:" {
		dsn = ":memory:?_pragma=foreign_keys(1)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("auditlog: failed to open sqlite: %w", err)
	}
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("auditlog: failed to ping sqlite: %w", err)
	}
	return New(db, SQLite, opts...), nil
}

// OpenPostgres connects to PostgreSQL through the pgx driver.
func OpenPostgres(ctx context.Context, dsn string, opts ...Option) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("auditlog: failed to open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("auditlog: failed to ping postgres: %w", err)
	}
	return New(db, Postgres, opts...), nil
}

// DB returns the underlying database.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// WriteEvents stores events in a single transaction.
func (s *Store) WriteEvents(ctx context.Context, events []auditlog.AuditEvent) (err error) {
	if len(events) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("auditlog: failed to begin write: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	insertEvent := s.dialect.rebind(fmt.Sprintf(
		`INSERT INTO %s (id, ts, actor, correlation_id, tenant_id) VALUES (?, ?, ?, ?, ?) RETURNING seq`,
		s.tables.events))
	insertEntry := s.dialect.rebind(fmt.Sprintf(
		`INSERT INTO %s (event_seq, position, ts, entity_type, entity_id, entity_title, root_type, root_id, root_title)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING seq`, s.tables.entries))
	insertChange := s.dialect.rebind(fmt.Sprintf(
		`INSERT INTO %s (entry_seq, position, kind, property_path, display_name, old_value, new_value,
collection_display, related_type, related_id, related_title, parent_type, parent_id, parent_title, message)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, s.tables.changes))

	for _, ev := range events {
		id := ev.ID
		if id == uuid.Nil {
			id = uuid.New()
		}
		ts := ev.Timestamp.UTC().UnixNano()
		var eventSeq int64
		if err := tx.QueryRowContext(ctx, insertEvent,
			id.String(), ts, ev.Actor, ev.CorrelationID, ev.TenantID,
		).Scan(&eventSeq); err != nil {
			return fmt.Errorf("auditlog: failed to insert audit event: %w", err)
		}
		for i, en := range ev.Entries {
			var entrySeq int64
			if err := tx.QueryRowContext(ctx, insertEntry,
				eventSeq, i, ts, en.EntityType, en.EntityID, en.EntityTitle, en.RootType, en.RootID, en.RootTitle,
			).Scan(&entrySeq); err != nil {
				return fmt.Errorf("auditlog: failed to insert audit entry: %w", err)
			}
			for j, c := range en.Changes {
				if _, err := tx.ExecContext(ctx, insertChange,
					entrySeq, j, int(c.Kind), c.PropertyPath, c.DisplayName, c.Old, c.New,
					c.CollectionDisplay, c.RelatedType, c.RelatedID, c.RelatedTitle,
					c.ParentType, c.ParentID, c.ParentTitle, c.Message,
				); err != nil {
					return fmt.Errorf("auditlog: failed to insert audit change: %w", err)
				}
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("auditlog: failed to commit audit events: %w", err)
	}
	return nil
}

// History streams the events filed under q's root with a single query; rows are
// grouped back into events as they arrive.
func (s *Store) History(ctx context.Context, q auditlog.HistoryQuery) iter.Seq2[auditlog.AuditEvent, error] {
	return func(yield func(auditlog.AuditEvent, error) bool) {
		if err := q.Validate(); err != nil {
			yield(auditlog.AuditEvent{}, err)
			return
		}
		query, args := s.historyQuery(q)
		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			yield(auditlog.AuditEvent{}, fmt.Errorf("auditlog: failed to query audit history: %w", err))
			return
		}
		defer func(rows *sql.Rows) {
			_ = rows.Close()
		}(rows)

		var (
			cur      *auditlog.AuditEvent
			curSeq   int64
			entrySeq int64
		)
		for rows.Next() {
			r, err := scanRow(rows)
			if err != nil {
				yield(auditlog.AuditEvent{}, fmt.Errorf("auditlog: failed to scan audit history: %w", err))
				return
			}
			if cur == nil || r.eventSeq != curSeq {
				if cur != nil && !yield(*cur, nil) {
					return
				}
				cur, curSeq, entrySeq = &r.event, r.eventSeq, 0
			}
			if r.entrySeq != entrySeq {
				cur.Entries = append(cur.Entries, r.entry)
				entrySeq = r.entrySeq
			}
			if r.change != nil {
				last := &cur.Entries[len(cur.Entries)-1]
				last.Changes = append(last.Changes, *r.change)
			}
		}
		if err := rows.Err(); err != nil {
			yield(auditlog.AuditEvent{}, fmt.Errorf("auditlog: failed to read audit history: %w", err))
			return
		}
		if cur != nil {
			yield(*cur, nil)
		}
	}
}

func (s *Store) historyQuery(q auditlog.HistoryQuery) (string, []any) {
	t := s.tables
	clauses := []string{
		fmt.Sprintf("EXISTS (SELECT 1 FROM %s x WHERE x.event_seq = ev.seq AND x.root_type = ? AND x.root_id = ?)", t.entries),
	}
	args := []any{q.RootType, q.RootID}
	if !q.From.IsZero() {
		clauses = append(clauses, "ev.ts >= ?")
		args = append(args, q.From.UTC().UnixNano())
	}
	if !q.To.IsZero() {
		clauses = append(clauses, "ev.ts < ?")
		args = append(args, q.To.UTC().UnixNano())
	}
	page := fmt.Sprintf("SELECT ev.seq FROM %s ev WHERE %s ORDER BY ev.ts, ev.seq %s",
		t.events, strings.Join(clauses, " AND "), s.dialect.page(q.Skip, q.Take))

	query := fmt.Sprintf(`
SELECT e.seq, e.id, e.ts, e.actor, e.correlation_id, e.tenant_id,
	n.seq, n.entity_type, n.entity_id, n.entity_title, n.root_type, n.root_id, n.root_title,
	c.kind, c.property_path, c.display_name, c.old_value, c.new_value, c.collection_display,
	c.related_type, c.related_id, c.related_title, c.parent_type, c.parent_id, c.parent_title, c.message
FROM %s e
JOIN %s n ON n.event_seq = e.seq
LEFT JOIN %s c ON c.entry_seq = n.seq
WHERE e.seq IN (%s) AND n.root_type = ? AND n.root_id = ?
ORDER BY e.ts, e.seq, n.position, c.position`, t.events, t.entries, t.changes, page)
	args = append(args, q.RootType, q.RootID)
	return s.dialect.rebind(query), args
}

type historyRow struct {
	eventSeq int64
	entrySeq int64
	event    auditlog.AuditEvent
	entry    auditlog.AuditEntry
	change   *auditlog.AuditChange
}

// scanner is implemented by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRow(sc scanner) (historyRow, error) {
	var (
		r     historyRow
		id    string
		ts    int64
		kind  sql.NullInt64
		cols  [12]sql.NullString
		ptrs  = make([]any, 0, len(cols))
		event = &r.event
		entry = &r.entry
	)
	for i := range cols {
		ptrs = append(ptrs, &cols[i])
	}
	dest := []any{
		&r.eventSeq, &id, &ts, &event.Actor, &event.CorrelationID, &event.TenantID,
		&r.entrySeq, &entry.EntityType, &entry.EntityID, &entry.EntityTitle, &entry.RootType, &entry.RootID, &entry.RootTitle,
		&kind,
	}
	if err := sc.Scan(append(dest, ptrs...)...); err != nil {
		return r, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return r, fmt.Errorf("parse event id %q: %w", id, err)
	}
	event.ID = parsed
	event.Timestamp = time.Unix(0, ts).UTC()
	if kind.Valid {
		r.change = &auditlog.AuditChange{
			Kind:              auditlog.ChangeKind(kind.Int64),
			PropertyPath:      cols[0].String,
			DisplayName:       cols[1].String,
			Old:               cols[2].String,
			New:               cols[3].String,
			CollectionDisplay: cols[4].String,
			RelatedType:       cols[5].String,
			RelatedID:         cols[6].String,
			RelatedTitle:      cols[7].String,
			ParentType:        cols[8].String,
			ParentID:          cols[9].String,
			ParentTitle:       cols[10].String,
			Message:           cols[11].String,
		}
	}
	return r, nil
}

// Prune deletes events older than before with their entries and changes, and
// reports how many events were deleted.
func (s *Store) Prune(ctx context.Context, before time.Time) (n int64, err error) {
	t := s.tables
	cutoff := before.UTC().UnixNano()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("auditlog: failed to begin prune: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	stmts := []string{
		fmt.Sprintf(`DELETE FROM %s WHERE entry_seq IN (SELECT n.seq FROM %s n JOIN %s e ON e.seq = n.event_seq WHERE e.ts < ?)`, t.changes, t.entries, t.events),
		fmt.Sprintf(`DELETE FROM %s WHERE event_seq IN (SELECT seq FROM %s WHERE ts < ?)`, t.entries, t.events),
		fmt.Sprintf(`DELETE FROM %s WHERE ts < ?`, t.events),
	}
	var res sql.Result
	for _, stmt := range stmts {
		if res, err = tx.ExecContext(ctx, s.dialect.rebind(stmt), cutoff); err != nil {
			return 0, fmt.Errorf("auditlog: failed to prune audit events: %w", err)
		}
	}
	if n, err = res.RowsAffected(); err != nil {
		return 0, fmt.Errorf("auditlog: failed to count pruned events: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("auditlog: failed to commit prune: %w", err)
	}
	return n, nil
}
