package auditlog

import (
	"context"
	"errors"
	"iter"
	"strings"
	"time"
)

// HistoryQuery selects the events filed under one root.
// From is inclusive, To exclusive; zero times are unbounded. Take <= 0 is unbounded.
// Skip and Take page over events, not entries.
type HistoryQuery struct {
	RootType string
	RootID   string
	From     time.Time
	To       time.Time
	Skip     int
	Take     int
}

// Validate checks the query.
func (q HistoryQuery) Validate() error {
	if strings.TrimSpace(q.RootType) == "" || strings.TrimSpace(q.RootID) == "" {
		return errors.New("auditlog: history query needs a root type and id")
	}
	if q.Skip < 0 {
		return errors.New("auditlog: history query skip must not be negative")
	}
	if !q.From.IsZero() && !q.To.IsZero() && !q.From.Before(q.To) {
		return errors.New("auditlog: history query range is empty")
	}
	return nil
}

// InRange reports whether ts lies in [From, To).
func (q HistoryQuery) InRange(ts time.Time) bool {
	if !q.From.IsZero() && ts.Before(q.From) {
		return false
	}
	if !q.To.IsZero() && !ts.Before(q.To) {
		return false
	}
	return true
}

// HistoryReader reads structured events back. Events come in ascending timestamp order,
// each holding only the entries filed under the queried root. The sequence is lazy and
// each call starts a fresh read.
type HistoryReader interface {
	History(ctx context.Context, q HistoryQuery) iter.Seq2[AuditEvent, error]
}

// CollectHistory drains a history sequence into a slice.
func CollectHistory(ctx context.Context, r HistoryReader, q HistoryQuery) ([]AuditEvent, error) {
	var out []AuditEvent
	for ev, err := range r.History(ctx, q) {
		if err != nil {
			return out, err
		}
		out = append(out, ev)
	}
	return out, nil
}

// FormatHistory renders one line per change as "Root -> Parent -> Entry -> message".
// Missing levels are left out and a level equal to the one before it is collapsed.
func FormatHistory(events []AuditEvent, l Localizer) []string {
	var out []string
	for _, ev := range events {
		for _, en := range ev.Entries {
			for _, c := range en.Changes {
				out = append(out, FormatChange(en, c, l))
			}
		}
	}
	return out
}

// FormatChange renders one change of an entry with its ancestor context.
func FormatChange(en AuditEntry, c AuditChange, l Localizer) string {
	type level struct{ typ, id, title string }
	levels := []level{
		{en.RootType, en.RootID, en.RootTitle},
		{c.ParentType, c.ParentID, c.ParentTitle},
		{en.EntityType, en.EntityID, en.EntityTitle},
	}

	var b strings.Builder
	var prev *level
	for i := range levels {
		lv := &levels[i]
		label := segment(lv.title, lv.typ)
		if label == "" {
			continue
		}
		if prev != nil && prev.typ == lv.typ && prev.id == lv.id {
			continue
		}
		b.WriteString(label)
		b.WriteString(" -> ")
		prev = lv
	}
	b.WriteString(changeMessage(en, c, l))
	return b.String()
}

func segment(title, typ string) string {
	title, typ = strings.TrimSpace(title), strings.TrimSpace(typ)
	switch {
	case title != "" && typ != "":
		return title + " (" + typ + ")"
	case title != "":
		return title
	default:
		return typ
	}
}

// changeMessage returns the stored message, rebuilding it from the change fields
// when it is empty.
func changeMessage(en AuditEntry, c AuditChange, l Localizer) string {
	if strings.TrimSpace(c.Message) != "" {
		return c.Message
	}
	t := Templates{}.withDefaults(l)
	orNull := func(s string) string {
		if s == "" {
			return l.NullSymbol
		}
		return s
	}
	related := func() (string, string) {
		title := c.RelatedTitle
		if title == "" {
			title = c.RelatedType
		}
		return title, c.RelatedType
	}
	switch c.Kind {
	case PropertyChange:
		return renderPropertyChanged(t, c.DisplayName, orNull(c.Old), orNull(c.New))
	case CollectionAdded:
		title, typ := related()
		return renderCollection(t.CollectionAdded, title, typ, c.CollectionDisplay)
	case CollectionRemoved:
		title, typ := related()
		return renderCollection(t.CollectionRemoved, title, typ, c.CollectionDisplay)
	case EntityDeleted:
		title, typ := related()
		if typ == "" {
			typ = en.EntityType
		}
		if title == "" {
			title = segment(en.EntityTitle, "")
		}
		if title == "" {
			title = typ
		}
		return renderDeleted(t, title, typ)
	}
	return ""
}
