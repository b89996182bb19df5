package ident_test

import (
	"slices"
	"testing"

	"github.com/mickamy/auditlog/internal/ident"
)

func TestSplitQualified(t *testing.T) {
	t.Parallel()

	tcs := []struct {
		name string
		in   string
		want []string
	}{
		{name: "simple", in: "audit_events", want: []string{"audit_events"}},
		{name: "schema qualified", in: "public.audit_events", want: []string{"public", "audit_events"}},
		{name: "quoted schema and space", in: `"Audit"."Change Log"`, want: []string{"Audit", "Change Log"}},
		{name: "dot inside quotes", in: `"Audit"."Change.Log"`, want: []string{"Audit", "Change.Log"}},
		{name: "escaped quote", in: `"Audit""Log"."Events"`, want: []string{`Audit"Log`, "Events"}},
		{name: "empty", in: "  ", want: nil},
	}

	for _, tc := range tcs {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := ident.SplitQualified(tc.in)
			if !slices.Equal(got, tc.want) {
				t.Fatalf("SplitQualified(%q) = %#v, want %#v", tc.in, got, tc.want)
			}
		})
	}
}

func TestSuffixed(t *testing.T) {
	t.Parallel()

	tcs := []struct {
		name   string
		base   string
		suffix string
		want   []string
	}{
		{name: "schema qualified", base: "public.audit", suffix: "_events", want: []string{"public", "audit_events"}},
		{name: "simple", base: "audit", suffix: "_changes", want: []string{"audit_changes"}},
		{name: "empty base", base: "", suffix: "_events", want: []string{"events"}},
		{name: "quoted", base: `"Ops"."Audit"`, suffix: "_entries", want: []string{"Ops", "Audit_entries"}},
	}

	for _, tc := range tcs {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := ident.Suffixed(tc.base, tc.suffix)
			if !slices.Equal(got, tc.want) {
				t.Fatalf("Suffixed(%q,%q) = %#v, want %#v", tc.base, tc.suffix, got, tc.want)
			}
		})
	}
}

func TestQuoteQualified(t *testing.T) {
	t.Parallel()

	tcs := []struct {
		name string
		in   []string
		want string
	}{
		{name: "simple", in: []string{"audit_events"}, want: `"audit_events"`},
		{name: "schema qualified", in: []string{"public", "audit_events"}, want: `"public"."audit_events"`},
		{name: "needs escaping", in: []string{`Audit"Log`}, want: `"Audit""Log"`},
		{name: "empty", in: nil, want: ""},
	}

	for _, tc := range tcs {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := ident.QuoteQualified(tc.in)
			if got != tc.want {
				t.Fatalf("QuoteQualified(%#v) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestTableAndColumns(t *testing.T) {
	t.Parallel()

	if got, want := ident.Table("public.pets"), `"public"."pets"`; got != want {
		t.Fatalf("Table(%q) = %q, want %q", "public.pets", got, want)
	}
	if got, want := ident.Columns([]string{"user_id", "role_id"}), `"user_id", "role_id"`; got != want {
		t.Fatalf("Columns() = %q, want %q", got, want)
	}
}

func TestBaseTableName(t *testing.T) {
	t.Parallel()

	tcs := []struct {
		name string
		in   string
		want string
	}{
		{name: "simple", in: "audit_entries", want: "audit_entries"},
		{name: "schema qualified", in: "public.audit_entries", want: "audit_entries"},
		{name: "quoted", in: `"Ops"."Entries"`, want: "Entries"},
		{name: "dot in quotes", in: `"Ops"."Audit.Entries"`, want: "Audit.Entries"},
	}

	for _, tc := range tcs {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := ident.BaseTableName(tc.in)
			if got != tc.want {
				t.Fatalf("BaseTableName(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestSnake(t *testing.T) {
	t.Parallel()

	tcs := []struct {
		in   string
		want string
	}{
		{in: "User", want: "user"},
		{in: "UserID", want: "user_id"},
		{in: "UserRole", want: "user_role"},
		{in: "HTTPServer", want: "http_server"},
		{in: "already_snake", want: "already_snake"},
	}

	for _, tc := range tcs {
		tc := tc
		t.Run(tc.in, func(t *testing.T) {
			t.Parallel()
			if got := ident.Snake(tc.in); got != tc.want {
				t.Fatalf("Snake(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}
