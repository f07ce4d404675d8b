package types

import (
	"testing"

	"github.com/veillang/velc/internal/ast"
	"github.com/veillang/velc/pkg/ident"
)

// nominal builds a *ast.NominalType resolved to e, with no cap
// constraint (so CapSubtype is skipped).
func nominal(e *ast.EntityDecl) *ast.NominalType {
	return &ast.NominalType{Resolved: e}
}

func method(in *ident.Interner, name string, flavor ast.MethodFlavor) *ast.MethodDecl {
	return &ast.MethodDecl{Name: in.Intern(name), Flavor: flavor}
}

func entity(name string, kind ast.EntityKind) *ast.EntityDecl {
	return &ast.EntityDecl{EntityKind: kind}
}

// TestIsSubTypeClassTrait mirrors ponyc's type_check_subtype.cc
// IsSubTypeClassTrait: trait composition (T3 is T1 & T2) and explicit
// "is" declarations, not structural matching, govern trait membership.
func TestIsSubTypeClassTrait(t *testing.T) {
	in := ident.New()

	t1 := entity("T1", ast.EntityTrait)
	t1.Methods = []*ast.MethodDecl{method(in, "f", ast.MethodFun)}

	t2 := entity("T2", ast.EntityTrait)
	t2.Methods = []*ast.MethodDecl{method(in, "g", ast.MethodFun)}

	t3 := entity("T3", ast.EntityTrait)
	t3.Provides = []ast.TypeExpr{nominal(t1), nominal(t2)}

	c1 := entity("C1", ast.EntityClass)
	c1.Provides = []ast.TypeExpr{nominal(t1)}
	c1.Methods = []*ast.MethodDecl{method(in, "f", ast.MethodFun)}

	c3 := entity("C3", ast.EntityClass)
	c3.Provides = []ast.TypeExpr{nominal(t3)}
	c3.Methods = []*ast.MethodDecl{method(in, "f", ast.MethodFun), method(in, "g", ast.MethodFun)}

	check := func(sub, super *ast.EntityDecl, want Result) {
		t.Helper()
		got := IsSubtype(nominal(sub), nominal(super))
		if got != want {
			t.Errorf("IsSubtype(%p, %p) = %v, want %v", sub, super, got, want)
		}
	}

	check(c1, t1, Accept)
	check(c1, t2, Reject)
	check(c1, t3, Reject)
	check(c3, t1, Accept)
	check(c3, t2, Accept)
	check(c3, t3, Accept)
}

// TestIsSubTypeClassInterface mirrors ponyc's IsSubTypeClassInterface:
// interfaces are satisfied purely structurally, without any "is"
// declaration.
func TestIsSubTypeClassInterface(t *testing.T) {
	in := ident.New()

	i1 := entity("I1", ast.EntityInterface)
	i1.Methods = []*ast.MethodDecl{method(in, "f", ast.MethodFun)}

	i2 := entity("I2", ast.EntityInterface)
	i2.Methods = []*ast.MethodDecl{method(in, "g", ast.MethodFun)}

	i3 := entity("I3", ast.EntityInterface)
	i3.Methods = []*ast.MethodDecl{method(in, "f", ast.MethodFun), method(in, "g", ast.MethodFun)}

	c1 := entity("C1", ast.EntityClass)
	c1.Methods = []*ast.MethodDecl{method(in, "f", ast.MethodFun)}

	c3 := entity("C3", ast.EntityClass)
	c3.Methods = []*ast.MethodDecl{method(in, "f", ast.MethodFun), method(in, "g", ast.MethodFun)}

	check := func(sub, super *ast.EntityDecl, want Result) {
		t.Helper()
		got := IsSubtype(nominal(sub), nominal(super))
		if got != want {
			t.Errorf("got %v, want %v", got, want)
		}
	}

	check(c1, i1, Accept)
	check(c1, i2, Reject)
	check(c1, i3, Reject)
	check(c3, i1, Accept)
	check(c3, i2, Accept)
	check(c3, i3, Accept)
}

// TestIsSubTypeClassClass mirrors ponyc's IsSubTypeClassClass: distinct
// classes are never subtypes of one another even with identical or
// overlapping method sets, and a class is always a subtype of itself.
func TestIsSubTypeClassClass(t *testing.T) {
	in := ident.New()
	c1 := entity("C1", ast.EntityClass)
	c1.Methods = []*ast.MethodDecl{method(in, "f", ast.MethodFun)}
	c2 := entity("C2", ast.EntityClass)
	c2.Methods = []*ast.MethodDecl{method(in, "f", ast.MethodFun), method(in, "g", ast.MethodFun)}

	if IsSubtype(nominal(c1), nominal(c1)) != Accept {
		t.Error("a class must be a subtype of itself")
	}
	if IsSubtype(nominal(c1), nominal(c2)) != Reject {
		t.Error("C1 should not be a subtype of C2")
	}
	if IsSubtype(nominal(c2), nominal(c1)) != Reject {
		t.Error("C2 should not be a subtype of C1")
	}
}

func TestUnionSubtyping(t *testing.T) {
	in := ident.New()
	iface := entity("I", ast.EntityInterface)
	iface.Methods = []*ast.MethodDecl{method(in, "f", ast.MethodFun)}
	a := entity("A", ast.EntityClass)
	a.Methods = []*ast.MethodDecl{method(in, "f", ast.MethodFun)}
	b := entity("B", ast.EntityClass)
	b.Methods = []*ast.MethodDecl{method(in, "f", ast.MethodFun)}

	union := &ast.UnionType{Members: []ast.TypeExpr{nominal(a), nominal(b)}}

	// Every member of the union satisfies I, so the union is a subtype.
	if IsSubtype(union, nominal(iface)) != Accept {
		t.Error("union of two I-satisfying classes should be a subtype of I")
	}
	// A is a subtype of the union (it is one of its members).
	if IsSubtype(nominal(a), union) != Accept {
		t.Error("A should be a subtype of (A | B)")
	}
	// C (unrelated) is not a subtype of the union.
	c := entity("C", ast.EntityClass)
	if IsSubtype(nominal(c), union) != Reject {
		t.Error("unrelated C should not be a subtype of (A | B)")
	}
}

func TestTupleSubtyping(t *testing.T) {
	a := entity("A", ast.EntityClass)
	b := entity("B", ast.EntityClass)

	t1 := &ast.TupleType{Elems: []ast.TypeExpr{nominal(a), nominal(b)}}
	t2 := &ast.TupleType{Elems: []ast.TypeExpr{nominal(a), nominal(b)}}
	if IsSubtype(t1, t2) != Accept {
		t.Error("identical-shape tuples should be subtypes")
	}

	t3 := &ast.TupleType{Elems: []ast.TypeExpr{nominal(a)}}
	if IsSubtype(t1, t3) != Reject {
		t.Error("different-arity tuples should reject")
	}
}

func TestCapSubtypeLattice(t *testing.T) {
	tests := []struct {
		c1, c2 ast.Cap
		want   Result
	}{
		{ast.CapIso, ast.CapIso, Accept},
		{ast.CapIso, ast.CapTag, Accept},
		{ast.CapIso, ast.CapBox, Reject},
		{ast.CapRef, ast.CapBox, Accept},
		{ast.CapRef, ast.CapVal, Reject},
		{ast.CapVal, ast.CapBox, Accept},
		{ast.CapBox, ast.CapTag, Accept},
		{ast.CapTag, ast.CapBox, Reject},
		{ast.CapTrn, ast.CapBox, Accept},
		{ast.CapTrn, ast.CapRef, Reject},
	}
	for _, tt := range tests {
		if got := CapSubtype(tt.c1, tt.c2); got != tt.want {
			t.Errorf("CapSubtype(%v, %v) = %v, want %v", tt.c1, tt.c2, got, tt.want)
		}
	}
}

func TestAdaptViewpoint(t *testing.T) {
	tests := []struct {
		origin, target, want ast.Cap
	}{
		{ast.CapRef, ast.CapIso, ast.CapIso},
		{ast.CapVal, ast.CapIso, ast.CapVal},
		{ast.CapBox, ast.CapIso, ast.CapTag},
		{ast.CapBox, ast.CapRef, ast.CapBox},
		{ast.CapBox, ast.CapVal, ast.CapVal},
		{ast.CapIso, ast.CapRef, ast.CapTag},
		{ast.CapIso, ast.CapIso, ast.CapIso},
		{ast.CapTrn, ast.CapTrn, ast.CapTrn},
		{ast.CapTrn, ast.CapRef, ast.CapBox},
	}
	for _, tt := range tests {
		if got := Adapt(tt.origin, tt.target); got != tt.want {
			t.Errorf("Adapt(%v, %v) = %v, want %v", tt.origin, tt.target, got, tt.want)
		}
	}
}

func TestResultCombinators(t *testing.T) {
	if And(Accept, Accept) != Accept {
		t.Error("And(accept, accept) should be accept")
	}
	if And(Accept, Reject) != Reject {
		t.Error("And with a reject should be reject")
	}
	if And(Accept, Deny) != Deny {
		t.Error("And with a deny and no reject should be deny")
	}
	if Or(Reject, Reject) != Reject {
		t.Error("Or(reject, reject) should be reject")
	}
	if Or(Reject, Accept) != Accept {
		t.Error("Or with an accept should be accept")
	}
	if Or(Reject, Deny) != Deny {
		t.Error("Or with a deny and no accept should be deny")
	}
}

func TestNominalUnresolvedIsDeny(t *testing.T) {
	unresolved := &ast.NominalType{}
	a := entity("A", ast.EntityClass)
	if IsSubtype(unresolved, nominal(a)) != Deny {
		t.Error("an unresolved nominal type should deny, not reject")
	}
}
