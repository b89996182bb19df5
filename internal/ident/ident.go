package ident

import (
	"strings"
	"unicode"
)

// Suffixed returns qualified identifier parts with suffix applied to the base table name,
// e.g. ("audit.log", "_events") -> ["audit", "log_events"].
func Suffixed(base, suffix string) []string {
	parts := SplitQualified(base)
	if len(parts) == 0 {
		if suffix == "" {
			return nil
		}
		return []string{strings.TrimPrefix(suffix, "_")}
	}
	out := make([]string, len(parts))
	copy(out, parts)
	out[len(out)-1] += suffix
	return out
}

// SplitQualified splits a potentially schema-qualified identifier into its parts.
func SplitQualified(ident string) []string {
	ident = strings.TrimSpace(ident)
	if ident == "" {
		return nil
	}
	var parts []string
	var buf strings.Builder
	inQuotes := false
	runes := []rune(ident)
	for i := 0; i < len(runes); i++ {
		switch r := runes[i]; {
		case r == '"' && inQuotes && i+1 < len(runes) && runes[i+1] == '"':
			buf.WriteRune('"')
			i++
		case r == '"':
			inQuotes = !inQuotes
		case r == '.' && !inQuotes:
			parts = append(parts, strings.TrimSpace(buf.String()))
			buf.Reset()
		default:
			buf.WriteRune(r)
		}
	}
	return append(parts, strings.TrimSpace(buf.String()))
}

// Quote safely quotes a single identifier part.
func Quote(part string) string {
	return `"` + strings.ReplaceAll(part, `"`, `""`) + `"`
}

// QuoteQualified renders qualified identifier parts as a SQL identifier.
func QuoteQualified(parts []string) string {
	if len(parts) == 0 {
		return ""
	}
	quoted := make([]string, len(parts))
	for i, p := range parts {
		quoted[i] = Quote(p)
	}
	return strings.Join(quoted, ".")
}

// Table quotes a possibly schema-qualified table name.
func Table(name string) string {
	return QuoteQualified(SplitQualified(name))
}

// Columns quotes and comma-joins column names.
func Columns(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = Quote(n)
	}
	return strings.Join(quoted, ", ")
}

// BaseTableName returns the last segment of a qualified identifier.
func BaseTableName(ident string) string {
	parts := SplitQualified(ident)
	if len(parts) == 0 {
		return strings.TrimSpace(ident)
	}
	return parts[len(parts)-1]
}

// Snake converts a Go identifier to snake_case, keeping acronyms together
// ("UserID" -> "user_id", "HTTPServer" -> "http_server").
func Snake(s string) string {
	runes := []rune(s)
	var b strings.Builder
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 && (unicode.IsLower(runes[i-1]) || (i+1 < len(runes) && unicode.IsLower(runes[i+1]))) {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}
