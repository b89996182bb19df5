package auditlog

import (
	"reflect"
)

// State is the change-tracking state of a record in a snapshot.
type State int

const (
	Unchanged State = iota
	Added
	Modified
	Deleted
)

func (s State) String() string {
	switch s {
	case Added:
		return "Added"
	case Modified:
		return "Modified"
	case Deleted:
		return "Deleted"
	default:
		return "Unchanged"
	}
}

// Property is one tracked member of a record with its original and current value.
type Property struct {
	Name     string
	Original any
	Current  any
	Modified bool
}

// Navigation is a member on an entity type that points at another entity type.
type Navigation struct {
	Name       string // member name on the declaring type, e.g. "Pets"
	Target     string // target entity type name
	Collection bool
}

// ForeignKey describes a dependent-to-principal relationship.
// Properties and PrincipalKey are positional: Properties[i] references PrincipalKey[i].
type ForeignKey struct {
	Properties   []string
	Principal    string
	PrincipalKey []string
	// Inverse is the navigation declared on the principal pointing back to the dependent
	// (e.g. User.Pets for Pet.UserID). Nil when the principal exposes none.
	Inverse *Navigation
}

// EntityType is the relationship metadata of a tracked type.
type EntityType struct {
	Name  string
	Table string // optional; derived from Name when empty
	Key   []string
	// ForeignKeys are kept in declaration order; anchor resolution depends on it.
	ForeignKeys []ForeignKey
	// SkipNavigations are many-to-many navigations that bypass the join type,
	// e.g. User.Roles for a UserRole join table.
	SkipNavigations []Navigation
}

// SkipNavigationTo returns the many-to-many navigation that targets the given type.
func (t *EntityType) SkipNavigationTo(target string) (Navigation, bool) {
	if t == nil {
		return Navigation{}, false
	}
	for _, n := range t.SkipNavigations {
		if n.Target == target {
			return n, true
		}
	}
	return Navigation{}, false
}

// Record is a read-only view of one tracked entity.
type Record struct {
	Type   *EntityType
	Entity any // runtime instance; join rows are usually map[string]any
	State  State
	// Properties holds every mapped member including keys and foreign keys.
	Properties []Property
	// Join marks a system-generated bridge row of a many-to-many relationship.
	Join bool
	// References are principal records the tracker has linked to this record.
	References []*Record
}

// Property returns the tracked member with the given name.
func (r *Record) Property(name string) (Property, bool) {
	for _, p := range r.Properties {
		if p.Name == name {
			return p, true
		}
	}
	return Property{}, false
}

// TypeName returns the entity type name of the record.
func (r *Record) TypeName() string {
	if r.Type != nil && r.Type.Name != "" {
		return r.Type.Name
	}
	if r.Entity == nil {
		return ""
	}
	t := reflect.TypeOf(r.Entity)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Name()
}

// IsJoin reports whether the record is a pure many-to-many bridge row: exactly two
// foreign keys and either the explicit Join tag or a bare map runtime shape.
func (r *Record) IsJoin() bool {
	if r.Type == nil || len(r.Type.ForeignKeys) != 2 {
		return false
	}
	if r.Join {
		return true
	}
	switch r.Entity.(type) {
	case map[string]any, *map[string]any:
		return true
	}
	return false
}

func (r *Record) values(names []string, original bool) []any {
	out := make([]any, len(names))
	for i, n := range names {
		p, ok := r.Property(n)
		if !ok {
			out[i] = r.fieldValue(n)
			continue
		}
		if original {
			out[i] = p.Original
		} else {
			out[i] = p.Current
		}
	}
	return out
}

// fieldValue reads a member that is not part of Properties from the entity itself.
func (r *Record) fieldValue(name string) any {
	switch m := r.Entity.(type) {
	case map[string]any:
		return m[name]
	case *map[string]any:
		if m == nil {
			return nil
		}
		return (*m)[name]
	}
	v := reflect.ValueOf(r.Entity)
	for v.IsValid() && v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	if !v.IsValid() || v.Kind() != reflect.Struct {
		return nil
	}
	f := v.FieldByName(name)
	if !f.IsValid() || !f.CanInterface() {
		return nil
	}
	return f.Interface()
}

// KeyValues returns the current primary key values.
func (r *Record) KeyValues() []any {
	if r.Type == nil {
		return nil
	}
	return r.values(r.Type.Key, false)
}

// Snapshot is the set of records the persistence layer considers changed for one save,
// plus any unchanged records it tracks (used for principal lookups).
type Snapshot struct {
	Records []*Record
}

// Changed returns the records whose state is Added, Modified or Deleted, in order.
func (s Snapshot) Changed() []*Record {
	out := make([]*Record, 0, len(s.Records))
	for _, r := range s.Records {
		if r == nil {
			continue
		}
		switch r.State {
		case Added, Modified, Deleted:
			out = append(out, r)
		}
	}
	return out
}

// OfType returns every tracked record of the named entity type.
func (s Snapshot) OfType(name string) []*Record {
	var out []*Record
	for _, r := range s.Records {
		if r != nil && r.TypeName() == name {
			out = append(out, r)
		}
	}
	return out
}
