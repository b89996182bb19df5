package auditlog

// RedactFunc masks a member value before it is formatted into a message.
type RedactFunc func(member string, v any) any

// RedactMap maps member names to redaction functions. A key is either a bare member
// name ("Password") or qualified by its entity type ("User.Password"); the qualified
// form wins.
type RedactMap map[string]RedactFunc

// Mask replaces any non-nil value with a fixed placeholder.
func Mask(placeholder string) RedactFunc {
	return func(_ string, v any) any {
		if v == nil {
			return nil
		}
		return placeholder
	}
}

// apply returns v redacted for the given member of typeName.
func (m RedactMap) apply(typeName, member string, v any) any {
	if len(m) == 0 {
		return v
	}
	if fn, ok := m[typeName+"."+member]; ok && fn != nil {
		return fn(member, v)
	}
	if fn, ok := m[member]; ok && fn != nil {
		return fn(member, v)
	}
	return v
}
