package sqlstore

import (
	"testing"
)

func TestDialect_Rebind(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		d    Dialect
		in   string
		want string
	}{
		{name: "sqlite keeps markers", d: SQLite, in: "a = ? AND b = ?", want: "a = ? AND b = ?"},
		{name: "postgres numbers markers", d: Postgres, in: "a = ? AND b = ?", want: "a = $1 AND b = $2"},
		{name: "no markers", d: Postgres, in: "SELECT 1", want: "SELECT 1"},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := tc.d.rebind(tc.in); got != tc.want {
				t.Fatalf("rebind(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestDialect_Page(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		d          Dialect
		skip, take int
		want       string
	}{
		{name: "unbounded", d: SQLite, want: ""},
		{name: "take", d: SQLite, take: 5, want: "LIMIT 5"},
		{name: "skip sqlite", d: SQLite, skip: 2, want: "LIMIT -1 OFFSET 2"},
		{name: "skip postgres", d: Postgres, skip: 2, want: "LIMIT ALL OFFSET 2"},
		{name: "skip and take", d: Postgres, skip: 1, take: 1, want: "LIMIT 1 OFFSET 1"},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := tc.d.page(tc.skip, tc.take); got != tc.want {
				t.Fatalf("page(%d, %d) = %q, want %q", tc.skip, tc.take, got, tc.want)
			}
		})
	}
}

func TestNewTables(t *testing.T) {
	t.Parallel()

	tests := []struct {
		prefix string
		want   tables
	}{
		{prefix: "audit", want: tables{
			events:  `"audit_events"`,
			entries: `"audit_entries"`,
			changes: `"audit_changes"`,
			index:   `"idx_audit_entries_root"`,
		}},
		{prefix: "ops.audit", want: tables{
			events:  `"ops"."audit_events"`,
			entries: `"ops"."audit_entries"`,
			changes: `"ops"."audit_changes"`,
			index:   `"idx_audit_entries_root"`,
		}},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.prefix, func(t *testing.T) {
			t.Parallel()
			if got := newTables(tc.prefix); got != tc.want {
				t.Fatalf("newTables(%q) = %#v, want %#v", tc.prefix, got, tc.want)
			}
		})
	}
}
