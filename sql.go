package auditlog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/mickamy/auditlog/internal/ident"
)

// Placeholder renders the i-th (1-based) bind parameter of a statement.
type Placeholder func(i int) string

var (
	DollarPlaceholder   Placeholder = func(i int) string { return "$" + strconv.Itoa(i) }
	QuestionPlaceholder Placeholder = func(int) string { return "?" }
)

// DBOption configures a wrapped *sql.DB.
type DBOption func(*DB)

// WithPlaceholder sets the bind parameter style of the database (default: $1, $2, ...).
func WithPlaceholder(p Placeholder) DBOption {
	return func(db *DB) { db.placeholder = p }
}

// DB wraps a *sql.DB instance to audit the saves made in its transactions.
type DB struct {
	*sql.DB
	h           *Handler
	placeholder Placeholder
}

// WrapDB attaches auditlog to a *sql.DB connection.
func (h *Handler) WrapDB(db *sql.DB, opts ...DBOption) *DB {
	d := &DB{DB: db, h: h, placeholder: DollarPlaceholder}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Tx wraps a *sql.Tx. Describe the changes with SavingChanges before writing them;
// Commit flushes the held audit event once the commit succeeded and Rollback drops it.
type Tx struct {
	*sql.Tx
	db      *DB
	session *Session
	ctx     context.Context
}

// BeginTx starts a wrapped transaction with its own audit session.
func (db *DB) BeginTx(ctx context.Context, opts *sql.TxOptions) (*Tx, error) {
	t, err := db.DB.BeginTx(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &Tx{Tx: t, db: db, session: db.h.NewSession(), ctx: ctx}, nil
}

// SavingChanges classifies snap while the transaction is still open, so deleted rows
// can still be read for their foreign keys.
func (t *Tx) SavingChanges(ctx context.Context, snap Snapshot) error {
	return t.session.savingChanges(ctx, snap, t)
}

// Session returns the audit session of the transaction.
func (t *Tx) Session() *Session {
	return t.session
}

// Commit commits the transaction and then writes the held audit event.
// A failed commit discards the event and returns the commit error unchanged.
func (t *Tx) Commit() error {
	if err := t.Tx.Commit(); err != nil {
		t.session.SaveFailed(t.ctx)
		return err
	}
	return t.session.SavedChanges(t.ctx)
}

// Rollback drops the held audit event and rolls back the transaction.
func (t *Tx) Rollback() error {
	t.session.SaveFailed(t.ctx)
	return t.Tx.Rollback()
}

// LoadForeignKey reads the persisted values of fk for rec inside the transaction.
func (t *Tx) LoadForeignKey(ctx context.Context, rec *Record, fk ForeignKey) ([]any, error) {
	if rec.Type == nil || len(rec.Type.Key) == 0 {
		return nil, errors.New("auditlog: record has no key")
	}
	if len(fk.Properties) == 0 {
		return nil, errors.New("auditlog: foreign key has no properties")
	}
	table, err := tableName(rec)
	if err != nil {
		return nil, err
	}
	key := rec.KeyValues()
	if defaulted(key) {
		key = rec.values(rec.Type.Key, true)
	}

	keyCols := columnNames(rec.Entity, rec.Type.Key)
	where := make([]string, len(keyCols))
	for i, c := range keyCols {
		where[i] = ident.Quote(c) + " = " + t.db.placeholder(i+1)
	}
	q := fmt.Sprintf("SELECT %s FROM %s WHERE %s",
		ident.Columns(columnNames(rec.Entity, fk.Properties)),
		ident.Table(table),
		strings.Join(where, " AND "),
	)

	vals := make([]any, len(fk.Properties))
	ptrs := make([]any, len(vals))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	if err := t.Tx.QueryRowContext(ctx, q, key...).Scan(ptrs...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("auditlog: failed to load foreign key of %s: %w", rec.TypeName(), err)
	}
	for i, v := range vals {
		if b, ok := v.([]byte); ok {
			vals[i] = string(b)
		}
	}
	return vals, nil
}
