package auditlog

import (
	"context"
)

// PrincipalLocator is what a RootResolver can ask about the save in progress.
type PrincipalLocator interface {
	Locate(ctx context.Context, rec *Record, fk ForeignKey) (PrincipalRef, bool)
	AnchorOf(ref PrincipalRef) AuditAnchor
	SelfAnchor(rec *Record) AuditAnchor
}

// RootResolver decides which root entities a changed record is filed under.
// Returning no anchors files the record under itself.
type RootResolver interface {
	ResolveAnchors(ctx context.Context, rec *Record, principals PrincipalLocator) []AuditAnchor
}

// RootResolverFunc adapts a function to RootResolver.
type RootResolverFunc func(ctx context.Context, rec *Record, principals PrincipalLocator) []AuditAnchor

func (f RootResolverFunc) ResolveAnchors(ctx context.Context, rec *Record, principals PrincipalLocator) []AuditAnchor {
	return f(ctx, rec, principals)
}

// DefaultRootResolver anchors join rows at both principals, other records at the
// first principal that can be located, and everything else at itself.
// Anchors reach one level up only.
type DefaultRootResolver struct{}

func (DefaultRootResolver) ResolveAnchors(ctx context.Context, rec *Record, principals PrincipalLocator) []AuditAnchor {
	if rec.Type == nil {
		return []AuditAnchor{principals.SelfAnchor(rec)}
	}
	if rec.IsJoin() {
		var anchors []AuditAnchor
		for _, fk := range rec.Type.ForeignKeys {
			ref, ok := principals.Locate(ctx, rec, fk)
			if !ok {
				continue
			}
			anchors = appendAnchor(anchors, principals.AnchorOf(ref))
		}
		if len(anchors) > 0 {
			return anchors
		}
		return []AuditAnchor{principals.SelfAnchor(rec)}
	}
	for _, fk := range rec.Type.ForeignKeys {
		if ref, ok := principals.Locate(ctx, rec, fk); ok {
			return []AuditAnchor{principals.AnchorOf(ref)}
		}
	}
	return []AuditAnchor{principals.SelfAnchor(rec)}
}

func appendAnchor(anchors []AuditAnchor, a AuditAnchor) []AuditAnchor {
	for _, x := range anchors {
		if x.same(a) {
			return anchors
		}
	}
	return append(anchors, a)
}
