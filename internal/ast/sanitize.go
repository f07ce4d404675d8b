package ast

// SanitizeType returns a deep copy of t fit for reuse in a different
// declaration context (spec §4.7, supplemented from original_source's
// sanitise.c): every *TypeParamRef becomes a bare *NominalType naming
// the same identifier, shedding the original's Resolved binding, and
// every copied node starts with its own Resolved/PassReached state
// instead of sharing the original's. Without this, a method signature
// copied from a trait into an implementing entity (the Traits Pass's
// Flattened field) would have later passes mutate Resolved fields on
// nodes still reachable from the trait's own declaration.
func SanitizeType(t TypeExpr, b *Builder) TypeExpr {
	if t == nil {
		return nil
	}
	switch n := t.(type) {
	case *NominalType:
		return &NominalType{
			Base:      b.Synthetic(n),
			Package:   n.Package,
			Name:      n.Name,
			Args:      sanitizeAll(n.Args, b),
			Cap:       n.Cap,
			CapSet:    n.CapSet,
			Ephemeral: n.Ephemeral,
		}
	case *UnionType:
		return &UnionType{Base: b.Synthetic(n), Members: sanitizeAll(n.Members, b)}
	case *IntersectionType:
		return &IntersectionType{Base: b.Synthetic(n), Members: sanitizeAll(n.Members, b)}
	case *TupleType:
		return &TupleType{Base: b.Synthetic(n), Elems: sanitizeAll(n.Elems, b)}
	case *ArrowType:
		return &ArrowType{Base: b.Synthetic(n), Origin: SanitizeType(n.Origin, b), Target: SanitizeType(n.Target, b)}
	case *TypeParamRef:
		// A type-parameter reference makes no sense detached from the
		// scope that resolved it; flatten it to a plain name and leave it
		// for the new context's Name Pass to re-resolve, mirroring
		// sanitise.c's TK_TYPEPARAMREF -> TK_NOMINAL rewrite.
		return &NominalType{Base: b.Synthetic(n), Name: n.Name}
	case *FunType:
		return &FunType{Base: b.Synthetic(n), Params: sanitizeAll(n.Params, b), Result: SanitizeType(n.Result, b), Cap: n.Cap}
	default:
		return t
	}
}

func sanitizeAll(ts []TypeExpr, b *Builder) []TypeExpr {
	if ts == nil {
		return nil
	}
	out := make([]TypeExpr, len(ts))
	for i, t := range ts {
		out[i] = SanitizeType(t, b)
	}
	return out
}

// SanitizeParam deep-copies p with its Type sanitized (spec §4.7). The
// Default expression, if any, is left shared: it's an ordinary value
// expression, not a type, and carries no cross-context resolution state
// of the kind SanitizeType exists to strip.
func SanitizeParam(p *Param, b *Builder) *Param {
	return &Param{
		Base:    b.Synthetic(p),
		Name:    p.Name,
		Type:    SanitizeType(p.Type, b),
		Default: p.Default,
	}
}

// SanitizeTypeParam deep-copies tp with its Bound and Default sanitized.
func SanitizeTypeParam(tp *TypeParam, b *Builder) *TypeParam {
	return &TypeParam{
		Base:    b.Synthetic(tp),
		Name:    tp.Name,
		Bound:   SanitizeType(tp.Bound, b),
		Default: SanitizeType(tp.Default, b),
	}
}
