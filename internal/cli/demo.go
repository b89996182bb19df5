package cli

import (
	"context"
	"database/sql"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"

	"github.com/mickamy/auditlog"
	"github.com/mickamy/auditlog/store/memory"
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run a small audited scenario against an in-memory database",
	Long: `Creates a users/pets database in memory, audits a few saves (adding a pet,
renaming its owner, deleting the pet, a rolled back save) and prints the history
of the owner.`,
	Args: cobra.NoArgs,
	RunE: runDemo,
}

func init() {
	demoCmd.Flags().String("locale", "", "message language (default: config locale)")
	rootCmd.AddCommand(demoCmd)
}

type demoUser struct {
	ID       int64      `db:"id"`
	Name     string     `db:"name" audit:"Name,title"`
	Email    string     `db:"email" audit:"E-mail"`
	Password string     `db:"password" audit:"-"`
	Pets     []*demoPet `db:"-"`
}

func (demoUser) AuditEntityDisplay() (string, string) { return "User", "Users" }
func (demoUser) TableName() string { return "users" }

type demoPet struct {
	ID     int64  `db:"id"`
	Name   string `db:"name" audit:"Name,title"`
	UserID *int64 `db:"user_id"`
}

func (demoPet) AuditEntityDisplay() (string, string) { return "Pet", "Pets" }
func (demoPet) TableName() string { return "pets" }

var (
	demoUserType = &auditlog.EntityType{Name: "User", Key: []string{"ID"}}
	demoPetType  = &auditlog.EntityType{
		Name: "Pet",
		Key:  []string{"ID"},
		ForeignKeys: []auditlog.ForeignKey{{
			Properties:   []string{"UserID"},
			Principal:    "User",
			PrincipalKey: []string{"ID"},
			Inverse:      &auditlog.Navigation{Name: "Pets", Target: "Pet", Collection: true},
		}},
	}
)

const demoSchema = `
CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT NOT NULL, email TEXT NOT NULL, password TEXT NOT NULL);
CREATE TABLE pets (id INTEGER PRIMARY KEY, name TEXT NOT NULL, user_id INTEGER REFERENCES users(id));
INSERT INTO users (id, name, email, password) VALUES (1, 'Max', 'max@example.com', 'secret');
`

func runDemo(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	locale, _ := cmd.Flags().GetString("locale")
	if locale == "" {
		locale = cfg.Locale
	}
	ctx := auditlog.WithActor(context.Background(), "demo")
	return runScenario(ctx, cmd.OutOrStdout(), auditlog.LocalizerFor(locale), logrus.StandardLogger())
}

// runScenario audits four saves against a fresh database and prints the resulting
// history of user 1 to w.
func runScenario(ctx context.Context, w io.Writer, l auditlog.Localizer, logger logrus.FieldLogger) error {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return fmt.Errorf("opening demo database: %w", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, demoSchema); err != nil {
		return fmt.Errorf("creating demo schema: %w", err)
	}

	store := memory.NewStore()
	conf := auditlog.DefaultConfig()
	conf.Localizer = l
	conf.Messages = auditlog.NewLoggerSink(logger)
	conf.Events = store
	conf.Logger = logger
	conf.Metrics = auditlog.NewMetrics(prometheus.NewRegistry())
	h := auditlog.New(conf)
	h.Registry().Register(demoUser{}, demoPet{})
	adb := h.WrapDB(db, auditlog.WithPlaceholder(auditlog.QuestionPlaceholder))

	ownerID := int64(1)
	owner := &demoUser{ID: 1, Name: "Max", Email: "max@example.com", Password: "secret"}
	ownerRec := func(state auditlog.State, props ...auditlog.Property) *auditlog.Record {
		base := []auditlog.Property{
			{Name: "ID", Original: owner.ID, Current: owner.ID},
			{Name: "Email", Original: owner.Email, Current: owner.Email},
		}
		return &auditlog.Record{Type: demoUserType, Entity: owner, State: state, Properties: append(base, props...)}
	}
	petRec := func(p *demoPet, state auditlog.State, original *int64) *auditlog.Record {
		return &auditlog.Record{
			Type:   demoPetType,
			Entity: p,
			State:  state,
			Properties: []auditlog.Property{
				{Name: "ID", Original: p.ID, Current: p.ID},
				{Name: "Name", Original: p.Name, Current: p.Name},
				{Name: "UserID", Original: original, Current: p.UserID},
			},
		}
	}

	steps := []struct {
		name     string
		rollback bool
		snap     func() auditlog.Snapshot
		exec     string
		args     []any
	}{
		{
			name: "add pet",
			snap: func() auditlog.Snapshot {
				pet := &demoPet{ID: 1, Name: "Schnuffi", UserID: &ownerID}
				owner.Pets = append(owner.Pets, pet)
				rec := petRec(pet, auditlog.Added, nil)
				rec.References = []*auditlog.Record{ownerRec(auditlog.Unchanged, auditlog.Property{Name: "Name", Original: owner.Name, Current: owner.Name})}
				return auditlog.Snapshot{Records: []*auditlog.Record{rec, rec.References[0]}}
			},
			exec: "INSERT INTO pets (id, name, user_id) VALUES (?, ?, ?)",
			args: []any{1, "Schnuffi", ownerID},
		},
		{
			name: "rename owner",
			snap: func() auditlog.Snapshot {
				owner.Name = "Maximilian"
				rec := ownerRec(auditlog.Modified, auditlog.Property{Name: "Name", Original: "Max", Current: owner.Name, Modified: true})
				return auditlog.Snapshot{Records: []*auditlog.Record{rec}}
			},
			exec: "UPDATE users SET name = ? WHERE id = ?",
			args: []any{"Maximilian", 1},
		},
		{
			// The tracker already cleared the foreign key; the owner is read back
			// from the row before it is deleted.
			name: "delete pet",
			snap: func() auditlog.Snapshot {
				pet := owner.Pets[0]
				owner.Pets = owner.Pets[1:]
				cleared := &demoPet{ID: pet.ID, Name: pet.Name}
				return auditlog.Snapshot{Records: []*auditlog.Record{
					petRec(cleared, auditlog.Deleted, nil),
					ownerRec(auditlog.Unchanged, auditlog.Property{Name: "Name", Original: owner.Name, Current: owner.Name}),
				}}
			},
			exec: "DELETE FROM pets WHERE id = ?",
			args: []any{1},
		},
		{
			name:     "add pet, rolled back",
			rollback: true,
			snap: func() auditlog.Snapshot {
				pet := &demoPet{ID: 2, Name: "Rocky", UserID: &ownerID}
				rec := petRec(pet, auditlog.Added, nil)
				rec.References = []*auditlog.Record{ownerRec(auditlog.Unchanged, auditlog.Property{Name: "Name", Original: owner.Name, Current: owner.Name})}
				return auditlog.Snapshot{Records: []*auditlog.Record{rec}}
			},
			exec: "INSERT INTO pets (id, name, user_id) VALUES (?, ?, ?)",
			args: []any{2, "Rocky", ownerID},
		},
	}

	for _, step := range steps {
		logger.WithField("step", step.name).Debug("demo: saving")
		tx, err := adb.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		if err := tx.SavingChanges(ctx, step.snap()); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("%s: %w", step.name, err)
		}
		if _, err := tx.ExecContext(ctx, step.exec, step.args...); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("%s: %w", step.name, err)
		}
		if step.rollback {
			if err := tx.Rollback(); err != nil {
				return fmt.Errorf("%s: %w", step.name, err)
			}
			continue
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("%s: %w", step.name, err)
		}
	}

	fmt.Fprintln(w, "History of user 1:")
	return printHistory(ctx, w, store, auditlog.HistoryQuery{RootType: "User", RootID: "1"}, h.Localizer(), false)
}
