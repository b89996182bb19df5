package auditlog

import (
	"context"
	"reflect"
)

// ForeignKeyLoader reads persisted foreign-key values of a record that is being deleted.
// It is the last step of the principal lookup and runs before the delete is finalized.
type ForeignKeyLoader interface {
	LoadForeignKey(ctx context.Context, rec *Record, fk ForeignKey) ([]any, error)
}

// ForeignKeyLoaderFunc adapts a function to ForeignKeyLoader.
type ForeignKeyLoaderFunc func(ctx context.Context, rec *Record, fk ForeignKey) ([]any, error)

func (f ForeignKeyLoaderFunc) LoadForeignKey(ctx context.Context, rec *Record, fk ForeignKey) ([]any, error) {
	return f(ctx, rec, fk)
}

// PrincipalRef identifies the principal side of a foreign key. Record is nil when
// only the key values are known.
type PrincipalRef struct {
	Type   string
	Key    []any
	Record *Record
}

// locator resolves principals for one save.
type locator struct {
	b      *Builder
	snap   Snapshot
	loader ForeignKeyLoader
}

// Locate finds the principal of fk for rec:
//  0. a principal record linked through rec.References
//  1. a tracked record whose key matches the current foreign-key values
//  2. the original foreign-key values when the current ones are defaulted
//  3. persisted values read by the ForeignKeyLoader, for deletions only
//
// A located key without a tracked record yields a key-only ref.
func (l *locator) Locate(ctx context.Context, rec *Record, fk ForeignKey) (PrincipalRef, bool) {
	current := rec.values(fk.Properties, false)

	var candidates []*Record
	for _, ref := range rec.References {
		if ref != nil && ref.TypeName() == fk.Principal {
			candidates = append(candidates, ref)
		}
	}
	for _, c := range candidates {
		if keysEqual(principalKey(c, fk), current) {
			return l.ref(fk, c), true
		}
	}
	if len(candidates) == 1 && defaulted(current) {
		return l.ref(fk, candidates[0]), true
	}

	key := current
	if defaulted(key) {
		key = rec.values(fk.Properties, true)
	}
	if defaulted(key) && rec.State == Deleted && l.loader != nil {
		loaded, err := l.loader.LoadForeignKey(ctx, rec, fk)
		if err != nil {
			l.b.logger.WithError(err).
				WithField("entity_type", rec.TypeName()).
				WithField("principal", fk.Principal).
				Warn("auditlog: failed to load foreign key")
		} else {
			key = loaded
		}
	}
	if defaulted(key) {
		return PrincipalRef{}, false
	}
	for _, c := range l.snap.OfType(fk.Principal) {
		if keysEqual(principalKey(c, fk), key) {
			return l.ref(fk, c), true
		}
	}
	return PrincipalRef{Type: fk.Principal, Key: key}, true
}

func (l *locator) ref(fk ForeignKey, rec *Record) PrincipalRef {
	return PrincipalRef{Type: fk.Principal, Key: principalKey(rec, fk), Record: rec}
}

// AnchorOf turns a principal ref into an anchor. The title is only known for tracked principals.
func (l *locator) AnchorOf(ref PrincipalRef) AuditAnchor {
	a := AuditAnchor{RootType: ref.Type, RootID: l.b.keys.FormatKey(ref.Key)}
	if ref.Record != nil {
		a.RootTitle = l.b.title(ref.Record)
	}
	return a
}

// SelfAnchor anchors a record at itself.
func (l *locator) SelfAnchor(rec *Record) AuditAnchor {
	return AuditAnchor{
		RootType:  rec.TypeName(),
		RootID:    l.b.keys.FormatKey(rec.KeyValues()),
		RootTitle: l.b.title(rec),
	}
}

func principalKey(rec *Record, fk ForeignKey) []any {
	if len(fk.PrincipalKey) > 0 {
		return rec.values(fk.PrincipalKey, false)
	}
	return rec.KeyValues()
}

// defaulted reports whether every value is nil or the zero value of its type.
func defaulted(values []any) bool {
	for _, v := range values {
		if v == nil {
			continue
		}
		rv := reflect.ValueOf(v)
		if rv.Kind() == reflect.Pointer {
			if rv.IsNil() {
				continue
			}
			rv = rv.Elem()
		}
		if !rv.IsZero() {
			return false
		}
	}
	return true
}

func keysEqual(a, b []any) bool {
	if len(a) != len(b) || len(a) == 0 {
		return false
	}
	for i := range a {
		x, y := normalizeKey(a[i]), normalizeKey(b[i])
		if x == nil || y == nil {
			return false
		}
		if reflect.TypeOf(x).Comparable() && reflect.TypeOf(y).Comparable() {
			if x != y {
				return false
			}
			continue
		}
		if !reflect.DeepEqual(x, y) {
			return false
		}
	}
	return true
}

// normalizeKey maps numeric kinds onto int64/uint64/float64 and dereferences pointers,
// so an int key matches an int64 foreign key.
func normalizeKey(v any) any {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u <= 1<<63-1 {
			return int64(u)
		}
		return u
	case reflect.Float32, reflect.Float64:
		return rv.Float()
	case reflect.String:
		return rv.String()
	}
	if rv.CanInterface() {
		return rv.Interface()
	}
	return nil
}
