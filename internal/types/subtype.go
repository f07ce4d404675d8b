package types

import (
	"github.com/veillang/velc/internal/ast"
	"github.com/veillang/velc/pkg/ident"
)

// IsSubtype implements the structural/nominal subtyping relation used
// by the Expr/Type Pass and exercised by spec §8's "Subtype lattice
// laws" property (reflexivity, transitivity, and the interface/trait
// distinction grounded on ponyc's type_check_subtype.cc: a class
// satisfies an interface purely by having matching methods, with no
// declared provides-list entry required, while satisfying a trait
// requires the trait to be nominally reachable through the entity's
// (Traits-Pass-flattened) provides list).
func IsSubtype(sub, super ast.TypeExpr) Result {
	switch sup := super.(type) {
	case *ast.UnionType:
		rs := make([]Result, len(sup.Members))
		for i, m := range sup.Members {
			rs[i] = IsSubtype(sub, m)
		}
		return Or(rs...)
	case *ast.IntersectionType:
		rs := make([]Result, len(sup.Members))
		for i, m := range sup.Members {
			rs[i] = IsSubtype(sub, m)
		}
		return And(rs...)
	}

	switch s := sub.(type) {
	case *ast.UnionType:
		rs := make([]Result, len(s.Members))
		for i, m := range s.Members {
			rs[i] = IsSubtype(m, super)
		}
		return And(rs...)
	case *ast.IntersectionType:
		rs := make([]Result, len(s.Members))
		for i, m := range s.Members {
			rs[i] = IsSubtype(m, super)
		}
		return Or(rs...)
	}

	subNom, subOK := sub.(*ast.NominalType)
	superNom, superOK := super.(*ast.NominalType)

	if subTup, ok := sub.(*ast.TupleType); ok {
		superTup, ok2 := super.(*ast.TupleType)
		if !ok2 || len(subTup.Elems) != len(superTup.Elems) {
			return Reject
		}
		rs := make([]Result, len(subTup.Elems))
		for i := range subTup.Elems {
			rs[i] = IsSubtype(subTup.Elems[i], superTup.Elems[i])
		}
		return And(rs...)
	}

	if !subOK || !superOK {
		return Deny
	}
	return isSubtypeNominal(subNom, superNom)
}

func isSubtypeNominal(sub, super *ast.NominalType) Result {
	if sub.Resolved == nil || super.Resolved == nil {
		return Deny
	}

	if subParam, ok := sub.Resolved.(*ast.TypeParam); ok {
		if subParam.Bound == nil {
			return Deny
		}
		return IsSubtype(subParam.Bound, super)
	}

	subEntity, subIsEntity := sub.Resolved.(*ast.EntityDecl)
	superEntity, superIsEntity := super.Resolved.(*ast.EntityDecl)
	if !subIsEntity || !superIsEntity {
		return Deny
	}

	if capR := CapSubtype(sub.Cap, super.Cap); capR != Accept && sub.Cap != ast.CapNone && super.Cap != ast.CapNone {
		return capR
	}

	if subEntity == superEntity {
		return Accept
	}

	switch superEntity.EntityKind {
	case ast.EntityInterface:
		return structuralMatch(subEntity, superEntity)
	case ast.EntityTrait:
		if providesReachable(subEntity, superEntity, map[*ast.EntityDecl]bool{}) {
			return Accept
		}
		return Reject
	default:
		// class/actor/primitive/struct targets: nominal identity only
		// (spec §8's IsSubTypeClassClass property: distinct classes with
		// identical method sets are never subtypes of one another).
		return Reject
	}
}

// providesReachable reports whether target is nominally reachable from
// entity's provides list, directly or through a provided trait's own
// provides list (trait composition, spec §4.7).
func providesReachable(entity, target *ast.EntityDecl, seen map[*ast.EntityDecl]bool) bool {
	if seen[entity] {
		return false
	}
	seen[entity] = true
	for _, p := range entity.Provides {
		nom, ok := p.(*ast.NominalType)
		if !ok || nom.Resolved == nil {
			continue
		}
		providedEntity, ok := nom.Resolved.(*ast.EntityDecl)
		if !ok {
			continue
		}
		if providedEntity == target {
			return true
		}
		if providesReachable(providedEntity, target, seen) {
			return true
		}
	}
	return false
}

// structuralMatch implements interface satisfaction: every method the
// interface declares must have a same-named, signature-compatible
// counterpart among entity's own and flattened (trait-inherited)
// methods (spec §4.9, grounded on ponyc's purely-structural interface
// check — no provides-list entry is required).
func structuralMatch(entity, iface *ast.EntityDecl) Result {
	methods := allMethods(entity)
	deny := false
	for _, want := range iface.Methods {
		got, ok := methods[want.Name]
		if !ok {
			return Reject
		}
		switch methodCompatible(got, want) {
		case Reject:
			return Reject
		case Deny:
			deny = true
		}
	}
	if deny {
		return Deny
	}
	return Accept
}

func allMethods(e *ast.EntityDecl) map[ident.ID]*ast.MethodDecl {
	out := make(map[ident.ID]*ast.MethodDecl, len(e.Methods)+len(e.Flattened))
	for _, m := range e.Methods {
		out[m.Name] = m
	}
	for _, m := range e.Flattened {
		if _, exists := out[m.Name]; !exists {
			out[m.Name] = m
		}
	}
	return out
}

// methodCompatible checks name-matched methods for arity and a
// best-effort structural signature match: parameter types contravariant,
// result type covariant. Receiver capability compatibility is left to
// the Expr/Type Pass's fuller call-site check; here we only gate on
// shape, matching the interface-satisfaction property's intent.
func methodCompatible(got, want *ast.MethodDecl) Result {
	if got.Flavor != want.Flavor {
		return Reject
	}
	if len(got.Params) != len(want.Params) {
		return Reject
	}
	deny := false
	for i := range want.Params {
		switch IsSubtype(want.Params[i].Type, got.Params[i].Type) {
		case Reject:
			return Reject
		case Deny:
			deny = true
		}
	}
	if want.Result != nil && got.Result != nil {
		switch IsSubtype(got.Result, want.Result) {
		case Reject:
			return Reject
		case Deny:
			deny = true
		}
	}
	if deny {
		return Deny
	}
	return Accept
}
