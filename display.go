package auditlog

import (
	"reflect"
	"strings"
	"sync"
)

// EntityDisplayer lets a type declare its singular and plural label.
// An empty plural defaults to singular + "s".
type EntityDisplayer interface {
	AuditEntityDisplay() (singular, plural string)
}

// TitleTemplater lets a type declare a title template such as "{Name} ({Owner.Name})".
type TitleTemplater interface {
	AuditTitleTemplate() string
}

// MemberDisplay is the audit metadata of one member.
type MemberDisplay struct {
	Label  string
	Ignore bool
	Title  bool
	Always bool // logged even when unchanged, see Config.IncludeUnchangedMarked
}

// TypeDisplay is the audit metadata of one entity type.
type TypeDisplay struct {
	Singular      string
	Plural        string
	TitleTemplate string
	Members       map[string]MemberDisplay
}

type typeInfo struct {
	singular    string
	plural      string
	template    string
	titleMember string
	members     map[string]MemberDisplay
}

func newTypeInfo(d TypeDisplay) *typeInfo {
	info := &typeInfo{
		singular: d.Singular,
		plural:   d.Plural,
		template: d.TitleTemplate,
		members:  make(map[string]MemberDisplay, len(d.Members)),
	}
	if info.singular != "" && info.plural == "" {
		info.plural = info.singular + "s"
	}
	titles := 0
	for name, m := range d.Members {
		info.members[name] = m
		if m.Title {
			titles++
			info.titleMember = name
		}
	}
	if titles != 1 {
		info.titleMember = ""
	}
	return info
}

var (
	displayerType = reflect.TypeOf((*EntityDisplayer)(nil)).Elem()
	templaterType = reflect.TypeOf((*TitleTemplater)(nil)).Elem()
)

// Registry maps entity types and members to human labels. Metadata is resolved once
// per type, either eagerly through Register/Describe or lazily from the first instance seen.
type Registry struct {
	mu    sync.RWMutex
	types map[string]*typeInfo
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{types: map[string]*typeInfo{}}
}

// Register scans the Go types of the given samples. Members are configured with the
// `audit` struct tag: `audit:"Label"`, `audit:"-"`, `audit:"Label,title"`, `audit:",always"`.
func (r *Registry) Register(samples ...any) {
	for _, s := range samples {
		t := indirectType(reflect.TypeOf(s))
		if t == nil || t.Name() == "" {
			continue
		}
		info := scanType(t)
		r.mu.Lock()
		r.types[t.Name()] = info
		r.mu.Unlock()
	}
}

// Describe registers metadata explicitly, e.g. for map-shaped rows.
func (r *Registry) Describe(typeName string, d TypeDisplay) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types[typeName] = newTypeInfo(d)
}

func (r *Registry) lookup(typeName string, sample any) *typeInfo {
	r.mu.RLock()
	info, ok := r.types[typeName]
	r.mu.RUnlock()
	if ok {
		return info
	}
	t := indirectType(reflect.TypeOf(sample))
	if t == nil || t.Kind() != reflect.Struct {
		return &typeInfo{}
	}
	info = scanType(t)
	r.mu.Lock()
	if existing, ok := r.types[typeName]; ok {
		info = existing
	} else {
		r.types[typeName] = info
	}
	r.mu.Unlock()
	return info
}

// Learn makes sure the metadata of typeName is resolved, scanning sample if needed.
func (r *Registry) Learn(typeName string, sample any) {
	r.lookup(typeName, sample)
}

// EntityDisplay returns the singular and plural label of a type, falling back to
// the type name and the type name + "s".
func (r *Registry) EntityDisplay(typeName string) (singular, plural string) {
	info := r.lookup(typeName, nil)
	if info.singular == "" {
		return typeName, typeName + "s"
	}
	return info.singular, info.plural
}

// MemberDisplay returns the label of a member, falling back to its name.
func (r *Registry) MemberDisplay(typeName, member string) string {
	m, ok := r.lookup(typeName, nil).members[member]
	if !ok || m.Label == "" {
		return member
	}
	return m.Label
}

// ShouldIgnore reports whether the member carries the ignore marker.
func (r *Registry) ShouldIgnore(typeName, member string) bool {
	return r.lookup(typeName, nil).members[member].Ignore
}

func (r *Registry) alwaysLogged(typeName, member string) bool {
	return r.lookup(typeName, nil).members[member].Always
}

// Title renders the human title of an entity instance: the type's title template if it
// yields a non-blank string, else the single title member if non-blank, else "".
// It never panics.
func (r *Registry) Title(typeName string, entity any, f Formatter) (title string) {
	defer func() {
		if recover() != nil {
			title = ""
		}
	}()
	if entity == nil {
		return ""
	}
	info := r.lookup(typeName, entity)
	if info.template != "" {
		s := renderTitleTemplate(info.template, entity, f)
		if strings.TrimSpace(s) != "" {
			return s
		}
	}
	if info.titleMember != "" {
		v, ok := resolveMember(reflect.ValueOf(entity), info.titleMember)
		if ok && !isNil(v) {
			s := f.Format(v.Interface())
			if strings.TrimSpace(s) != "" {
				return s
			}
		}
	}
	return ""
}

func scanType(t reflect.Type) *typeInfo {
	d := TypeDisplay{Members: map[string]MemberDisplay{}}
	if t.Kind() == reflect.Struct {
		for _, f := range reflect.VisibleFields(t) {
			if !f.IsExported() || f.Anonymous {
				continue
			}
			tag, ok := f.Tag.Lookup("audit")
			if !ok {
				continue
			}
			d.Members[f.Name] = parseMemberTag(tag)
		}
	}
	if inst, ok := instance(t, displayerType); ok {
		d.Singular, d.Plural = inst.(EntityDisplayer).AuditEntityDisplay()
	}
	if inst, ok := instance(t, templaterType); ok {
		d.TitleTemplate = inst.(TitleTemplater).AuditTitleTemplate()
	}
	return newTypeInfo(d)
}

// instance returns a zero value of t (or *t) implementing iface.
func instance(t reflect.Type, iface reflect.Type) (any, bool) {
	if t.Implements(iface) {
		return reflect.New(t).Elem().Interface(), true
	}
	if reflect.PointerTo(t).Implements(iface) {
		return reflect.New(t).Interface(), true
	}
	return nil, false
}

func parseMemberTag(tag string) MemberDisplay {
	if tag == "-" {
		return MemberDisplay{Ignore: true}
	}
	parts := strings.Split(tag, ",")
	m := MemberDisplay{Label: strings.TrimSpace(parts[0])}
	for _, opt := range parts[1:] {
		switch strings.TrimSpace(opt) {
		case "title":
			m.Title = true
		case "always":
			m.Always = true
		case "ignore":
			m.Ignore = true
		}
	}
	return m
}

func indirectType(t reflect.Type) reflect.Type {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

// renderTitleTemplate substitutes each {path} token. Tokens are scanned left to right
// and substituted values are never rescanned.
func renderTitleTemplate(template string, model any, f Formatter) string {
	var b strings.Builder
	rest := template
	for {
		start := strings.IndexByte(rest, '{')
		if start < 0 {
			break
		}
		end := strings.IndexByte(rest[start+1:], '}')
		if end < 0 {
			break
		}
		end += start + 1
		b.WriteString(rest[:start])
		b.WriteString(resolvePath(model, rest[start+1:end], f))
		rest = rest[end+1:]
	}
	b.WriteString(rest)
	return b.String()
}

// resolvePath walks a dotted member path case-insensitively. A missing segment yields "".
func resolvePath(model any, path string, f Formatter) string {
	cur := reflect.ValueOf(model)
	for _, seg := range strings.Split(path, ".") {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue
		}
		next, ok := resolveMember(cur, seg)
		if !ok {
			return ""
		}
		cur = next
	}
	if !cur.IsValid() {
		return ""
	}
	if isNil(cur) {
		return f.Format(nil)
	}
	return f.Format(cur.Interface())
}

func resolveMember(v reflect.Value, name string) (reflect.Value, bool) {
	for v.IsValid() && (v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface) {
		if v.IsNil() {
			return reflect.Value{}, false
		}
		v = v.Elem()
	}
	if !v.IsValid() {
		return reflect.Value{}, false
	}
	switch v.Kind() {
	case reflect.Struct:
		sf, ok := v.Type().FieldByNameFunc(func(n string) bool { return strings.EqualFold(n, name) })
		if !ok || !sf.IsExported() {
			return reflect.Value{}, false
		}
		fv := v.FieldByIndex(sf.Index)
		return fv, fv.CanInterface()
	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return reflect.Value{}, false
		}
		iter := v.MapRange()
		for iter.Next() {
			if strings.EqualFold(iter.Key().String(), name) {
				return iter.Value(), true
			}
		}
	}
	return reflect.Value{}, false
}

func isNil(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return v.IsNil()
	}
	return false
}
