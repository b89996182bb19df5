package auditlog_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mickamy/auditlog"
)

func renameSnapshot() auditlog.Snapshot {
	return snapshot(modify(track(userType, &User{ID: 1, Name: "Moritz"}, auditlog.Unchanged), "Name", "Max"))
}

func TestSession_SavedChanges(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	hs := newHarness(t, nil)
	s := hs.h.NewSession()
	assert.Equal(t, auditlog.SaveIdle, s.State())

	require.NoError(t, s.SavingChanges(ctx, renameSnapshot()))
	assert.Equal(t, []string{"Name: Max -> Moritz"}, hs.messages.all())
	assert.Equal(t, auditlog.SavePending, s.State())
	assert.Empty(t, hs.store.Events(), "events are held until the save succeeds")

	require.NoError(t, s.SavedChanges(ctx))
	assert.Equal(t, auditlog.SaveFlushed, s.State())
	events := hs.store.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "User", events[0].Entries[0].RootType)

	// a flushed session can audit the next save
	require.NoError(t, s.SavingChanges(ctx, renameSnapshot()))
	assert.Equal(t, auditlog.SavePending, s.State())
}

func TestSession_SaveFailed(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	hs := newHarness(t, nil)
	s := hs.h.NewSession()

	require.NoError(t, s.SavingChanges(ctx, renameSnapshot()))
	s.SaveFailed(ctx)
	assert.Equal(t, auditlog.SaveDiscarded, s.State())

	require.NoError(t, s.SavedChanges(ctx))
	assert.Empty(t, hs.store.Events())
	assert.Equal(t, []string{"Name: Max -> Moritz"}, hs.messages.all(), "flat messages are sent before the outcome is known")
}

func TestSession_SavePending(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	hs := newHarness(t, nil)
	s := hs.h.NewSession()

	require.NoError(t, s.SavingChanges(ctx, renameSnapshot()))
	err := s.SavingChanges(ctx, renameSnapshot())
	assert.ErrorIs(t, err, auditlog.ErrSavePending)
	assert.Len(t, hs.messages.all(), 1)
}

func TestSession_WriteErrorKeepsEventPending(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	boom := errors.New("store unavailable")
	var calls int
	var written []auditlog.AuditEvent
	hs := newHarness(t, func(cfg *auditlog.Config) {
		cfg.Events = auditlog.EventSinkFunc(func(_ context.Context, events []auditlog.AuditEvent) error {
			calls++
			if calls == 1 {
				return boom
			}
			written = append(written, events...)
			return nil
		})
	})
	s := hs.h.NewSession()

	require.NoError(t, s.SavingChanges(ctx, renameSnapshot()))
	err := s.SavedChanges(ctx)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, auditlog.SavePending, s.State())

	require.NoError(t, s.SavedChanges(ctx))
	assert.Equal(t, auditlog.SaveFlushed, s.State())
	assert.Len(t, written, 1)
}

func TestSession_Skip(t *testing.T) {
	t.Parallel()

	ctx := auditlog.WithSkip(context.Background())
	hs := newHarness(t, nil)
	s := hs.h.NewSession()

	require.NoError(t, s.SavingChanges(ctx, renameSnapshot()))
	assert.Equal(t, auditlog.SaveIdle, s.State())
	assert.Empty(t, hs.messages.all())
}

func TestSession_NothingToAudit(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	hs := newHarness(t, nil)
	s := hs.h.NewSession()

	require.NoError(t, s.SavingChanges(ctx, snapshot(track(userType, &User{ID: 1}, auditlog.Unchanged))))
	assert.Equal(t, auditlog.SaveIdle, s.State())
	require.NoError(t, s.SavedChanges(ctx))
	assert.Empty(t, hs.store.Events())
	assert.Empty(t, hs.messages.all())
}
