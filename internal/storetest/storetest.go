// Package storetest is a conformance suite shared by the audit store backends.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mickamy/auditlog"
)

// Store is what every backend implements.
type Store interface {
	auditlog.EventSink
	auditlog.HistoryReader
	Prune(ctx context.Context, before time.Time) (int64, error)
}

// T0 is the timestamp of the first fixture event.
var T0 = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func petAdded(root auditlog.AuditAnchor, petID, title string) auditlog.AuditEntry {
	return auditlog.AuditEntry{
		EntityType:  "Pet",
		EntityID:    petID,
		EntityTitle: title,
		RootType:    root.RootType,
		RootID:      root.RootID,
		RootTitle:   root.RootTitle,
		Changes: []auditlog.AuditChange{{
			Kind:              auditlog.CollectionAdded,
			CollectionDisplay: "Pets",
			RelatedType:       "Pet",
			RelatedID:         petID,
			RelatedTitle:      title,
			ParentType:        root.RootType,
			ParentID:          root.RootID,
			ParentTitle:       root.RootTitle,
			Message:           title + " (Pet) was added to Pets",
		}},
	}
}

func renamed(root auditlog.AuditAnchor, from, to string) auditlog.AuditEntry {
	return auditlog.AuditEntry{
		EntityType:  root.RootType,
		EntityID:    root.RootID,
		EntityTitle: to,
		RootType:    root.RootType,
		RootID:      root.RootID,
		RootTitle:   to,
		Changes: []auditlog.AuditChange{
			{Kind: auditlog.PropertyChange, PropertyPath: "Name", DisplayName: "Name", Old: from, New: to, Message: "Name: " + from + " -> " + to},
			{Kind: auditlog.PropertyChange, PropertyPath: "Nickname", DisplayName: "Nickname", New: to, Message: "Nickname: ∅ -> " + to},
		},
	}
}

// Fixtures returns four events: three filed under User 1 (at T0, T0+1m and T0+3m)
// and one under User 2 (at T0+2m). The first also carries an entry for another root.
func Fixtures() []auditlog.AuditEvent {
	owner := auditlog.AuditAnchor{RootType: "User", RootID: "1", RootTitle: "Max"}
	erika := auditlog.AuditAnchor{RootType: "User", RootID: "2", RootTitle: "Erika"}
	household := auditlog.AuditAnchor{RootType: "Household", RootID: "9"}
	return []auditlog.AuditEvent{
		{
			ID: uuid.New(), Timestamp: T0, Actor: "alice", CorrelationID: "req-1", TenantID: "acme",
			Entries: []auditlog.AuditEntry{petAdded(owner, "1", "Schnuffi"), petAdded(household, "1", "Schnuffi")},
		},
		{ID: uuid.New(), Timestamp: T0.Add(time.Minute), Entries: []auditlog.AuditEntry{renamed(owner, "Max", "Maximilian")}},
		{ID: uuid.New(), Timestamp: T0.Add(2 * time.Minute), Entries: []auditlog.AuditEntry{petAdded(erika, "2", "Rocky")}},
		{ID: uuid.New(), Timestamp: T0.Add(3 * time.Minute), Entries: []auditlog.AuditEntry{petAdded(owner, "3", "Bello")}},
	}
}

// Run exercises s, which must be empty.
func Run(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	events := Fixtures()
	require.NoError(t, s.WriteEvents(ctx, events[:2]))
	require.NoError(t, s.WriteEvents(ctx, events[2:]))

	user1 := auditlog.HistoryQuery{RootType: "User", RootID: "1"}

	t.Run("round trip", func(t *testing.T) {
		got := collect(t, s, user1)
		AssertEvents(t, []auditlog.AuditEvent{
			events[0].ForRoot("User", "1"),
			events[1],
			events[3],
		}, got)
	})

	t.Run("other root", func(t *testing.T) {
		got := collect(t, s, auditlog.HistoryQuery{RootType: "Household", RootID: "9"})
		AssertEvents(t, []auditlog.AuditEvent{events[0].ForRoot("Household", "9")}, got)
	})

	t.Run("unknown root", func(t *testing.T) {
		assert.Empty(t, collect(t, s, auditlog.HistoryQuery{RootType: "User", RootID: "404"}))
	})

	t.Run("paging", func(t *testing.T) {
		q := user1
		q.Skip, q.Take = 1, 1
		AssertEvents(t, []auditlog.AuditEvent{events[1]}, collect(t, s, q))

		q.Skip, q.Take = 2, 0
		AssertEvents(t, []auditlog.AuditEvent{events[3]}, collect(t, s, q))

		q.Skip, q.Take = 5, 1
		assert.Empty(t, collect(t, s, q))
	})

	t.Run("time range", func(t *testing.T) {
		q := user1
		q.From, q.To = T0.Add(time.Minute), T0.Add(3*time.Minute)
		AssertEvents(t, []auditlog.AuditEvent{events[1]}, collect(t, s, q))
	})

	t.Run("early stop", func(t *testing.T) {
		var n int
		for _, err := range s.History(ctx, user1) {
			require.NoError(t, err)
			n++
			break
		}
		assert.Equal(t, 1, n)
	})

	t.Run("invalid query", func(t *testing.T) {
		var errs int
		for _, err := range s.History(ctx, auditlog.HistoryQuery{RootType: "User"}) {
			if err != nil {
				errs++
			}
		}
		assert.Equal(t, 1, errs)
	})

	t.Run("prune", func(t *testing.T) {
		n, err := s.Prune(ctx, T0.Add(90*time.Second))
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		AssertEvents(t, []auditlog.AuditEvent{events[3]}, collect(t, s, user1))
		assert.Empty(t, collect(t, s, auditlog.HistoryQuery{RootType: "Household", RootID: "9"}))
		AssertEvents(t, []auditlog.AuditEvent{events[2]}, collect(t, s, auditlog.HistoryQuery{RootType: "User", RootID: "2"}))
	})
}

func collect(t *testing.T, s Store, q auditlog.HistoryQuery) []auditlog.AuditEvent {
	t.Helper()
	got, err := auditlog.CollectHistory(context.Background(), s, q)
	require.NoError(t, err)
	return got
}

// AssertEvents compares events field by field, timestamps by instant.
func AssertEvents(t *testing.T, want, got []auditlog.AuditEvent) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].ID, got[i].ID, "event %d id", i)
		assert.True(t, want[i].Timestamp.Equal(got[i].Timestamp), "event %d timestamp: want %s, got %s", i, want[i].Timestamp, got[i].Timestamp)
		assert.Equal(t, want[i].Actor, got[i].Actor, "event %d actor", i)
		assert.Equal(t, want[i].CorrelationID, got[i].CorrelationID, "event %d correlation id", i)
		assert.Equal(t, want[i].TenantID, got[i].TenantID, "event %d tenant", i)
		assert.Equal(t, want[i].Entries, got[i].Entries, "event %d entries", i)
	}
}
