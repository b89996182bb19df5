package auditlog

import (
	"context"
	"fmt"
)

// routedChange is a change plus the anchor of its parent, when the change belongs
// to one side of a relationship.
type routedChange struct {
	AuditChange
	parent *AuditAnchor
}

// recordChanges is the classification result of one changed record.
type recordChanges struct {
	rec      *Record
	typeName string
	id       string
	title    string
	changes  []routedChange
}

func (rc *recordChanges) add(c AuditChange, parent *AuditAnchor) {
	rc.changes = append(rc.changes, routedChange{AuditChange: c, parent: parent})
}

// classify turns one changed record into its changes. A panic while inspecting the
// record is returned as an error so the caller can skip just this record.
func (b *Builder) classify(ctx context.Context, loc *locator, rec *Record) (rc recordChanges, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("auditlog: failed to classify %s: %v", rec.TypeName(), r)
		}
	}()
	typeName := rec.TypeName()
	b.registry.Learn(typeName, rec.Entity)
	rc = recordChanges{
		rec:      rec,
		typeName: typeName,
		id:       b.keys.FormatKey(rec.KeyValues()),
		title:    b.title(rec),
	}

	if rec.State == Modified {
		b.propertyChanges(&rc)
	}
	if rec.State == Deleted && b.verboseDelete && !rec.IsJoin() {
		b.deletion(&rc)
	}
	if rec.State == Added || rec.State == Deleted {
		if rec.IsJoin() {
			b.joinChanges(ctx, loc, &rc)
		}
		b.collectionChanges(ctx, loc, &rc)
	}
	return rc, nil
}

func (b *Builder) propertyChanges(rc *recordChanges) {
	for _, p := range rc.rec.Properties {
		if b.registry.ShouldIgnore(rc.typeName, p.Name) {
			continue
		}
		if !p.Modified && !(b.includeUnchangedMarked && b.registry.alwaysLogged(rc.typeName, p.Name)) {
			continue
		}
		display := b.registry.MemberDisplay(rc.typeName, p.Name)
		oldValue := b.formatter.Format(b.redact.apply(rc.typeName, p.Name, p.Original))
		newValue := b.formatter.Format(b.redact.apply(rc.typeName, p.Name, p.Current))
		rc.add(AuditChange{
			Kind:         PropertyChange,
			PropertyPath: p.Name,
			DisplayName:  display,
			Old:          oldValue,
			New:          newValue,
			Message:      renderPropertyChanged(b.templates, display, oldValue, newValue),
		}, nil)
	}
}

func (b *Builder) deletion(rc *recordChanges) {
	singular, _ := b.registry.EntityDisplay(rc.typeName)
	title := rc.title
	if title == "" {
		title = singular
	}
	rc.add(AuditChange{
		Kind:         EntityDeleted,
		RelatedType:  rc.typeName,
		RelatedID:    rc.id,
		RelatedTitle: rc.title,
		Message:      renderDeleted(b.templates, title, singular),
	}, nil)
}

// collectionChanges reports one-to-many membership: the record joined or left the
// collection navigation its principal exposes.
func (b *Builder) collectionChanges(ctx context.Context, loc *locator, rc *recordChanges) {
	if rc.rec.Type == nil {
		return
	}
	for _, fk := range rc.rec.Type.ForeignKeys {
		if fk.Inverse == nil || !fk.Inverse.Collection {
			continue
		}
		var parent *AuditAnchor
		if ref, ok := loc.Locate(ctx, rc.rec, fk); ok {
			if ref.Record != nil {
				b.registry.Learn(fk.Principal, ref.Record.Entity)
			}
			a := loc.AnchorOf(ref)
			parent = &a
		}
		collection := b.registry.MemberDisplay(fk.Principal, fk.Inverse.Name)
		singular, _ := b.registry.EntityDisplay(rc.typeName)
		rc.add(b.membership(rc.rec.State, collection, rc.typeName, rc.id, rc.title, singular, parent), parent)
	}
}

// joinChanges reports a many-to-many edge from both sides. For each foreign key the
// principal is the parent and the entity on the other foreign key is the child.
func (b *Builder) joinChanges(ctx context.Context, loc *locator, rc *recordChanges) {
	fks := rc.rec.Type.ForeignKeys
	for i := range 2 {
		this, other := fks[i], fks[1-i]
		principal, ok := loc.Locate(ctx, rc.rec, this)
		if !ok {
			continue
		}
		otherRef, ok := loc.Locate(ctx, rc.rec, other)
		if !ok {
			continue
		}
		nav, ok := loc.entityType(principal).SkipNavigationTo(other.Principal)
		if !ok || !nav.Collection {
			continue
		}
		if principal.Record != nil {
			b.registry.Learn(this.Principal, principal.Record.Entity)
		}
		var childTitle string
		if otherRef.Record != nil {
			childTitle = b.title(otherRef.Record)
		}
		collection := b.registry.MemberDisplay(this.Principal, nav.Name)
		singular, _ := b.registry.EntityDisplay(other.Principal)
		parent := loc.AnchorOf(principal)
		rc.add(b.membership(rc.rec.State, collection, other.Principal, b.keys.FormatKey(otherRef.Key), childTitle, singular, &parent), &parent)
	}
}

func (b *Builder) membership(state State, collection, childType, childID, childTitle, singular string, parent *AuditAnchor) AuditChange {
	kind, template := CollectionAdded, b.templates.CollectionAdded
	if state == Deleted {
		kind, template = CollectionRemoved, b.templates.CollectionRemoved
	}
	title := childTitle
	if title == "" {
		title = singular
	}
	c := AuditChange{
		Kind:              kind,
		CollectionDisplay: collection,
		RelatedType:       childType,
		RelatedID:         childID,
		RelatedTitle:      childTitle,
		Message:           renderCollection(template, title, singular, collection),
	}
	if parent != nil {
		c.ParentType = parent.RootType
		c.ParentID = parent.RootID
		c.ParentTitle = parent.RootTitle
	}
	return c
}

func (b *Builder) title(rec *Record) string {
	if rec == nil {
		return ""
	}
	return b.registry.Title(rec.TypeName(), rec.Entity, b.formatter)
}

// entityType returns the relationship metadata of a principal, from the principal
// record itself or any tracked record of the same type.
func (l *locator) entityType(ref PrincipalRef) *EntityType {
	if ref.Record != nil && ref.Record.Type != nil {
		return ref.Record.Type
	}
	for _, r := range l.snap.OfType(ref.Type) {
		if r.Type != nil {
			return r.Type
		}
	}
	return nil
}
