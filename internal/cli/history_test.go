package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mickamy/auditlog"
	"github.com/mickamy/auditlog/internal/storetest"
	"github.com/mickamy/auditlog/store/memory"
)

func seededStore(t *testing.T) *memory.Store {
	t.Helper()
	s := memory.NewStore()
	require.NoError(t, s.WriteEvents(context.Background(), storetest.Fixtures()))
	return s
}

func TestPrintHistory_Text(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	q := auditlog.HistoryQuery{RootType: "User", RootID: "2"}
	require.NoError(t, printHistory(context.Background(), &out, seededStore(t), q, auditlog.English, false))

	assert.Equal(t, "2024-03-01 09:02:00  Erika (User) -> Rocky (Pet) -> Rocky (Pet) was added to Pets\n", out.String())
}

func TestPrintHistory_JSON(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	q := auditlog.HistoryQuery{RootType: "User", RootID: "1"}
	require.NoError(t, printHistory(context.Background(), &out, seededStore(t), q, auditlog.English, true))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	var ev auditlog.AuditEvent
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &ev))
	assert.Equal(t, "alice", ev.Actor)
	require.Len(t, ev.Entries, 1)
	assert.Equal(t, "User", ev.Entries[0].RootType)
}

func TestPrintHistory_InvalidQuery(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	err := printHistory(context.Background(), &out, seededStore(t), auditlog.HistoryQuery{RootType: "User"}, auditlog.English, false)
	assert.Error(t, err)
	assert.Empty(t, out.String())
}

func TestOpenStore_Memory(t *testing.T) {
	t.Parallel()

	s, closeStore, err := openStore(context.Background(), &Config{Store: "memory"})
	require.NoError(t, err)
	defer func() { _ = closeStore() }()
	require.NoError(t, migrate(context.Background(), s))
}

func TestOpenStore_SQLite(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, closeStore, err := openStore(ctx, &Config{Store: "sqlite", DSN: ":memory:", Prefix: "cli"})
	require.NoError(t, err)
	defer func() { _ = closeStore() }()
	require.NoError(t, migrate(ctx, s))
	require.NoError(t, s.WriteEvents(ctx, storetest.Fixtures()))

	var out bytes.Buffer
	require.NoError(t, printHistory(ctx, &out, s, auditlog.HistoryQuery{RootType: "Household", RootID: "9"}, auditlog.English, false))
	assert.Equal(t, "2024-03-01 09:00:00  Household -> Schnuffi (Pet) -> Schnuffi (Pet) was added to Pets\n", out.String())
}
