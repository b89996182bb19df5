package auditlog

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// ChangeKind is the kind of a reported change.
type ChangeKind int

const (
	PropertyChange ChangeKind = iota
	CollectionAdded
	CollectionRemoved
	EntityDeleted
)

func (k ChangeKind) String() string {
	switch k {
	case CollectionAdded:
		return "CollectionAdded"
	case CollectionRemoved:
		return "CollectionRemoved"
	case EntityDeleted:
		return "Deleted"
	default:
		return "Property"
	}
}

// AuditChange is one reported change.
type AuditChange struct {
	Kind ChangeKind `json:"kind"`

	// property changes
	PropertyPath string `json:"property_path,omitempty"`
	DisplayName  string `json:"display_name,omitempty"`
	Old          string `json:"old,omitempty"`
	New          string `json:"new,omitempty"`

	// collection changes
	CollectionDisplay string `json:"collection_display,omitempty"`
	RelatedType       string `json:"related_type,omitempty"`
	RelatedID         string `json:"related_id,omitempty"`
	RelatedTitle      string `json:"related_title,omitempty"`
	ParentType        string `json:"parent_type,omitempty"`
	ParentID          string `json:"parent_id,omitempty"`
	ParentTitle       string `json:"parent_title,omitempty"`

	Message string `json:"message"`
}

// AuditAnchor is the root entity a change is filed under.
type AuditAnchor struct {
	RootType  string `json:"root_type"`
	RootID    string `json:"root_id"`
	RootTitle string `json:"root_title,omitempty"`
}

func (a AuditAnchor) same(b AuditAnchor) bool {
	return a.RootType == b.RootType && a.RootID == b.RootID
}

// AuditEntry is the change set of one entity under one anchor.
type AuditEntry struct {
	EntityType  string        `json:"entity_type"`
	EntityID    string        `json:"entity_id"`
	EntityTitle string        `json:"entity_title,omitempty"`
	RootType    string        `json:"root_type"`
	RootID      string        `json:"root_id"`
	RootTitle   string        `json:"root_title,omitempty"`
	Changes     []AuditChange `json:"changes"`
}

// Anchor returns the root anchor of the entry.
func (e AuditEntry) Anchor() AuditAnchor {
	return AuditAnchor{RootType: e.RootType, RootID: e.RootID, RootTitle: e.RootTitle}
}

// AuditEvent is everything one save operation changed.
type AuditEvent struct {
	ID            uuid.UUID    `json:"id"`
	Timestamp     time.Time    `json:"timestamp"`
	Actor         string       `json:"actor,omitempty"`
	CorrelationID string       `json:"correlation_id,omitempty"`
	TenantID      string       `json:"tenant_id,omitempty"`
	Entries       []AuditEntry `json:"entries"`
}

// ForRoot returns a copy of the event holding only the entries filed under the given root.
func (e AuditEvent) ForRoot(rootType, rootID string) AuditEvent {
	out := e
	out.Entries = nil
	for _, en := range e.Entries {
		if en.RootType == rootType && en.RootID == rootID {
			out.Entries = append(out.Entries, en)
		}
	}
	return out
}

// KeyFormatter renders entity identities: key values joined by "|".
type KeyFormatter struct {
	Formatter Formatter
}

// FormatKey renders the given key values. An empty key renders as the null symbol.
func (k KeyFormatter) FormatKey(values []any) string {
	if len(values) == 0 {
		return k.Formatter.Localizer.NullSymbol
	}
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = k.Formatter.Format(v)
	}
	return strings.Join(parts, "|")
}
