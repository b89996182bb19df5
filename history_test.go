package auditlog_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mickamy/auditlog"
)

func TestFormatChange(t *testing.T) {
	t.Parallel()

	entry := auditlog.AuditEntry{
		EntityType:  "Pet",
		EntityID:    "1",
		EntityTitle: "Schnuffi",
		RootType:    "User",
		RootID:      "1",
		RootTitle:   "Max",
	}
	tests := []struct {
		name   string
		entry  auditlog.AuditEntry
		change auditlog.AuditChange
		l      auditlog.Localizer
		want   string
	}{
		{
			name:  "parent equal to root is collapsed",
			entry: entry,
			change: auditlog.AuditChange{
				Kind: auditlog.CollectionAdded, ParentType: "User", ParentID: "1", ParentTitle: "Max",
				Message: "Schnuffi (Pet) was added to Pets",
			},
			l:    auditlog.English,
			want: "Max (User) -> Schnuffi (Pet) -> Schnuffi (Pet) was added to Pets",
		},
		{
			name:  "distinct parent",
			entry: entry,
			change: auditlog.AuditChange{
				Kind: auditlog.CollectionAdded, ParentType: "Household", ParentID: "9",
				Message: "added",
			},
			l:    auditlog.English,
			want: "Max (User) -> Household -> Schnuffi (Pet) -> added",
		},
		{
			name:  "entry anchored at itself",
			entry: auditlog.AuditEntry{EntityType: "User", EntityID: "1", EntityTitle: "Max", RootType: "User", RootID: "1", RootTitle: "Max"},
			change: auditlog.AuditChange{
				Kind: auditlog.PropertyChange, DisplayName: "Name", Old: "Max", New: "Moritz",
				Message: "Name: Max -> Moritz",
			},
			l:    auditlog.English,
			want: "Max (User) -> Name: Max -> Moritz",
		},
		{
			name:   "property message rebuilt",
			entry:  entry,
			change: auditlog.AuditChange{Kind: auditlog.PropertyChange, DisplayName: "Name", New: "Bello"},
			l:      auditlog.English,
			want:   "Max (User) -> Schnuffi (Pet) -> Name: ∅ -> Bello",
		},
		{
			name:  "collection message rebuilt in german",
			entry: entry,
			change: auditlog.AuditChange{
				Kind: auditlog.CollectionRemoved, CollectionDisplay: "Haustiere",
				RelatedType: "Pet", RelatedTitle: "Schnuffi",
			},
			l:    auditlog.German,
			want: "Max (User) -> Schnuffi (Pet) -> Schnuffi (Pet) wurde von Haustiere entfernt",
		},
		{
			name:   "deletion message rebuilt",
			entry:  auditlog.AuditEntry{EntityType: "Pet", EntityID: "2", EntityTitle: "Rocky", RootType: "Pet", RootID: "2"},
			change: auditlog.AuditChange{Kind: auditlog.EntityDeleted},
			l:      auditlog.English,
			want:   "Pet -> Rocky (Pet) deleted",
		},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := auditlog.FormatChange(tc.entry, tc.change, tc.l); got != tc.want {
				t.Fatalf("FormatChange() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestFormatHistory_FromStore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	hs := newHarness(t, nil)

	owner := track(userType, &User{ID: 1, Name: "Max"}, auditlog.Unchanged)
	s := hs.h.NewSession()
	require.NoError(t, s.SavingChanges(ctx, snapshot(addedPet(owner, "Schnuffi"), owner)))
	require.NoError(t, s.SavedChanges(ctx))

	events, err := auditlog.CollectHistory(ctx, hs.store, auditlog.HistoryQuery{RootType: "User", RootID: "1"})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"Max (User) -> Schnuffi (Pet) -> Schnuffi (Pet) was added to Pets",
	}, auditlog.FormatHistory(events, auditlog.English))
}

func TestHistoryQuery_Validate(t *testing.T) {
	t.Parallel()

	now := time.Now()
	tests := []struct {
		name    string
		q       auditlog.HistoryQuery
		wantErr bool
	}{
		{name: "valid", q: auditlog.HistoryQuery{RootType: "User", RootID: "1"}},
		{name: "range", q: auditlog.HistoryQuery{RootType: "User", RootID: "1", From: now, To: now.Add(time.Hour)}},
		{name: "missing root", q: auditlog.HistoryQuery{RootID: "1"}, wantErr: true},
		{name: "negative skip", q: auditlog.HistoryQuery{RootType: "User", RootID: "1", Skip: -1}, wantErr: true},
		{name: "empty range", q: auditlog.HistoryQuery{RootType: "User", RootID: "1", From: now, To: now}, wantErr: true},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := tc.q.Validate()
			if (err != nil) != tc.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestHistoryQuery_InRange(t *testing.T) {
	t.Parallel()

	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	q := auditlog.HistoryQuery{From: from, To: from.Add(time.Hour)}
	assert.True(t, q.InRange(from))
	assert.True(t, q.InRange(from.Add(59*time.Minute)))
	assert.False(t, q.InRange(from.Add(time.Hour)))
	assert.False(t, q.InRange(from.Add(-time.Second)))
	assert.True(t, auditlog.HistoryQuery{}.InRange(from))
}
