package sqlstore

import (
	"strconv"
	"strings"

	"github.com/mickamy/auditlog"
)

// Dialect captures the SQL differences between the supported databases.
type Dialect struct {
	Name        string
	Placeholder auditlog.Placeholder
	serial      string // auto-incrementing primary key column type
	limitAll    string // LIMIT clause meaning "no limit", needed before OFFSET
}

var (
	SQLite = Dialect{
		Name:        "sqlite",
		Placeholder: auditlog.QuestionPlaceholder,
		serial:      "INTEGER PRIMARY KEY AUTOINCREMENT",
		limitAll:    "LIMIT -1",
	}
	Postgres = Dialect{
		Name:        "postgres",
		Placeholder: auditlog.DollarPlaceholder,
		serial:      "BIGSERIAL PRIMARY KEY",
		limitAll:    "LIMIT ALL",
	}
)

// rebind rewrites ? markers to the dialect's placeholders. Queries here never
// contain ? inside string literals.
func (d Dialect) rebind(q string) string {
	if d.Placeholder == nil || d.Placeholder(1) == "?" {
		return q
	}
	var b strings.Builder
	b.Grow(len(q) + 8)
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteString(d.Placeholder(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (d Dialect) page(skip, take int) string {
	var parts []string
	switch {
	case take > 0:
		parts = append(parts, "LIMIT "+strconv.Itoa(take))
	case skip > 0:
		parts = append(parts, d.limitAll)
	}
	if skip > 0 {
		parts = append(parts, "OFFSET "+strconv.Itoa(skip))
	}
	return strings.Join(parts, " ")
}
