package types

import "github.com/veillang/velc/internal/ast"

// subcap is the sub-capability table (spec §8 "Capability lattice"),
// ignoring ephemeral markers: subcap[c1][c2] is true when a bare c1 may
// be used wherever a bare c2 is expected. iso answers only to itself and
// tag, since anything else would let an isolated reference's aliasing
// guarantee leak; trn, ref, and val each additionally answer to box and
// tag (reading through them is always safe); box answers only to itself
// and tag; tag answers only to itself.
var subcap = map[ast.Cap]map[ast.Cap]bool{
	ast.CapIso: {ast.CapIso: true, ast.CapTag: true},
	ast.CapTrn: {ast.CapTrn: true, ast.CapBox: true, ast.CapTag: true},
	ast.CapRef: {ast.CapRef: true, ast.CapBox: true, ast.CapTag: true},
	ast.CapVal: {ast.CapVal: true, ast.CapBox: true, ast.CapTag: true},
	ast.CapBox: {ast.CapBox: true, ast.CapTag: true},
	ast.CapTag: {ast.CapTag: true},
}

// CapSubtype reports whether c1 may be used wherever c2 is expected.
func CapSubtype(c1, c2 ast.Cap) Result {
	if c1 == ast.CapNone || c2 == ast.CapNone {
		return Deny
	}
	if subcap[c1][c2] {
		return Accept
	}
	return Reject
}

// Adapt computes the viewpoint-adapted capability of a field or method
// result accessed through a receiver whose own capability is origin
// (spec §3, Glossary "Viewpoint adaptation": `origin -> field`).
//
//   - Through ref, nothing changes: the receiver adds no restriction.
//   - Through val, everything reads back as val: a deeply immutable
//     view cannot expose a mutable or unique alias to its insides.
//   - Through box, a target keeps its own read-only shape (val stays
//     val) but anything that could grant write or unique access is
//     capped down to box, and iso is capped all the way to tag (a
//     read-only alias of an isolated object must not let its identity
//     escape as anything stronger than an opaque tag).
//   - Through trn, the rule is the same as box except a trn target
//     stays trn: a transition capability can still observe its own kind
//     without losing the write access it's transitioning towards.
//   - Through iso, every target other than iso itself is capped to tag,
//     since nothing may alias through an isolated reference without
//     undermining its exclusivity.
//   - tag has no readable fields; Adapt(tag, _) is not a meaningful
//     query and returns tag defensively.
func Adapt(origin, target ast.Cap) ast.Cap {
	switch origin {
	case ast.CapRef:
		return target
	case ast.CapVal:
		return ast.CapVal
	case ast.CapBox:
		switch target {
		case ast.CapIso:
			return ast.CapTag
		case ast.CapTrn, ast.CapRef:
			return ast.CapBox
		case ast.CapVal:
			return ast.CapVal
		case ast.CapBox:
			return ast.CapBox
		default:
			return ast.CapTag
		}
	case ast.CapTrn:
		switch target {
		case ast.CapIso:
			return ast.CapTag
		case ast.CapTrn:
			return ast.CapTrn
		case ast.CapRef:
			return ast.CapBox
		case ast.CapVal:
			return ast.CapVal
		case ast.CapBox:
			return ast.CapBox
		default:
			return ast.CapTag
		}
	case ast.CapIso:
		if target == ast.CapIso {
			return ast.CapIso
		}
		return ast.CapTag
	default: // tag, or CapNone
		return ast.CapTag
	}
}
