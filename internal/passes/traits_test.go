package passes

import (
	"strings"
	"testing"

	"github.com/veillang/velc/internal/ast"
)

// providesOf builds a *ast.NominalType naming target, already resolved,
// as a provides-list entry would be after the Name Pass runs.
func providesOf(target *ast.EntityDecl) *ast.NominalType {
	return &ast.NominalType{Name: target.Name, Resolved: target}
}

func TestTraitsPass_InheritsAbstractMethodBody(t *testing.T) {
	ctx, in := newTestContext()

	greetBody := &ast.MethodDecl{
		Flavor: ast.MethodFun,
		Name:   in.Intern("greet"),
		Result: &ast.NominalType{Name: in.Intern("String")},
		Body:   &ast.Block{},
	}
	trait := &ast.EntityDecl{
		EntityKind: ast.EntityTrait,
		Name:       in.Intern("Greeter"),
		Methods:    []*ast.MethodDecl{greetBody},
	}
	greetBody.Owner = trait
	cls := &ast.EntityDecl{
		EntityKind: ast.EntityClass,
		Name:       in.Intern("Person"),
		Provides:   []ast.TypeExpr{providesOf(trait)},
	}
	prog := programWith(trait, cls)

	(&TraitsPass{}).Run(prog, ctx)

	if ctx.Reporter.HasErrors() {
		t.Fatalf("unexpected errors: %s", ctx.Reporter.Format(false))
	}
	if len(cls.Flattened) != 1 {
		t.Fatalf("Flattened = %d methods, want 1", len(cls.Flattened))
	}
	if cls.Flattened[0].Name != greetBody.Name {
		t.Errorf("Flattened[0].Name = %q, want %q", ctx.In.Text(cls.Flattened[0].Name), ctx.In.Text(greetBody.Name))
	}
	if cls.Flattened[0].Owner != cls || cls.Flattened[0].Inherited != trait {
		t.Error("Flattened method must record its new Owner and original Inherited source")
	}
}

func TestTraitsPass_OwnMethodSkipsInheritance(t *testing.T) {
	ctx, in := newTestContext()

	name := in.Intern("greet")
	trait := &ast.EntityDecl{
		EntityKind: ast.EntityTrait,
		Name:       in.Intern("Greeter"),
		Methods:    []*ast.MethodDecl{{Flavor: ast.MethodFun, Name: name, Body: &ast.Block{}}},
	}
	own := &ast.MethodDecl{Flavor: ast.MethodFun, Name: name, Body: &ast.Block{}}
	cls := &ast.EntityDecl{
		EntityKind: ast.EntityClass,
		Name:       in.Intern("Person"),
		Provides:   []ast.TypeExpr{providesOf(trait)},
		Methods:    []*ast.MethodDecl{own},
	}
	prog := programWith(trait, cls)

	(&TraitsPass{}).Run(prog, ctx)

	if ctx.Reporter.HasErrors() {
		t.Fatalf("unexpected errors: %s", ctx.Reporter.Format(false))
	}
	if len(cls.Flattened) != 0 {
		t.Errorf("Flattened = %d, want 0 since Person declares greet itself", len(cls.Flattened))
	}
}

func TestTraitsPass_CycleRejected(t *testing.T) {
	ctx, in := newTestContext()

	a := &ast.EntityDecl{EntityKind: ast.EntityTrait, Name: in.Intern("A")}
	b := &ast.EntityDecl{EntityKind: ast.EntityTrait, Name: in.Intern("B")}
	a.Provides = []ast.TypeExpr{providesOf(b)}
	b.Provides = []ast.TypeExpr{providesOf(a)}
	prog := programWith(a, b)

	(&TraitsPass{}).Run(prog, ctx)

	if !ctx.Reporter.HasErrors() {
		t.Fatal("expected a cycle error")
	}
	if !strings.Contains(ctx.Reporter.Format(false), "cycle in provides list") {
		t.Errorf("unexpected diagnostic: %s", ctx.Reporter.Format(false))
	}
}

func TestTraitsPass_ProvidesNonTraitRejected(t *testing.T) {
	ctx, in := newTestContext()

	concrete := &ast.EntityDecl{EntityKind: ast.EntityClass, Name: in.Intern("Concrete")}
	cls := &ast.EntityDecl{
		EntityKind: ast.EntityClass,
		Name:       in.Intern("Bad"),
		Provides:   []ast.TypeExpr{providesOf(concrete)},
	}
	prog := programWith(concrete, cls)

	(&TraitsPass{}).Run(prog, ctx)

	if !strings.Contains(ctx.Reporter.Format(false), "may only name traits, interfaces") {
		t.Errorf("unexpected diagnostic: %s", ctx.Reporter.Format(false))
	}
}

func TestTraitsPass_AmbiguousDefaultBodyRejected(t *testing.T) {
	ctx, in := newTestContext()

	name := in.Intern("greet")

	traitA := &ast.EntityDecl{
		EntityKind: ast.EntityTrait, Name: in.Intern("A"),
		Methods: []*ast.MethodDecl{{
			Flavor: ast.MethodFun, Name: name,
			Result: &ast.NominalType{Name: in.Intern("String")},
			Body:   &ast.Block{},
		}},
	}
	traitB := &ast.EntityDecl{
		EntityKind: ast.EntityTrait, Name: in.Intern("B"),
		Methods: []*ast.MethodDecl{{
			Flavor: ast.MethodFun, Name: name,
			Result: &ast.NominalType{Name: in.Intern("U8")},
			Body:   &ast.Block{},
		}},
	}
	cls := &ast.EntityDecl{
		EntityKind: ast.EntityClass,
		Name:       in.Intern("Both"),
		Provides:   []ast.TypeExpr{providesOf(traitA), providesOf(traitB)},
	}
	prog := programWith(traitA, traitB, cls)

	(&TraitsPass{}).Run(prog, ctx)

	if !strings.Contains(ctx.Reporter.Format(false), "no unambiguous best match") {
		t.Errorf("unexpected diagnostic: %s", ctx.Reporter.Format(false))
	}
}

func TestTraitsPass_DeclaredMethodConflictRejected(t *testing.T) {
	ctx, in := newTestContext()

	name := in.Intern("greet")
	stringEntity := &ast.EntityDecl{EntityKind: ast.EntityPrimitive, Name: in.Intern("String")}
	intEntity := &ast.EntityDecl{EntityKind: ast.EntityPrimitive, Name: in.Intern("U8")}
	stringType := &ast.NominalType{Name: stringEntity.Name, Resolved: stringEntity}
	intType := &ast.NominalType{Name: intEntity.Name, Resolved: intEntity}

	trait := &ast.EntityDecl{
		EntityKind: ast.EntityTrait, Name: in.Intern("Greeter"),
		Methods: []*ast.MethodDecl{{Flavor: ast.MethodFun, Name: name, Result: stringType}},
	}
	declared := &ast.MethodDecl{Flavor: ast.MethodFun, Name: name, Result: intType, Body: &ast.Block{}}
	cls := &ast.EntityDecl{
		EntityKind: ast.EntityClass,
		Name:       in.Intern("Person"),
		Provides:   []ast.TypeExpr{providesOf(trait)},
		Methods:    []*ast.MethodDecl{declared},
	}
	prog := programWith(trait, cls)

	(&TraitsPass{}).Run(prog, ctx)

	if !strings.Contains(ctx.Reporter.Format(false), "conflicts with the signature provided by") {
		t.Errorf("unexpected diagnostic: %s", ctx.Reporter.Format(false))
	}
}

func TestTraitsPass_TransitiveTraitComposition(t *testing.T) {
	ctx, in := newTestContext()

	base := &ast.EntityDecl{
		EntityKind: ast.EntityTrait, Name: in.Intern("Base"),
		Methods: []*ast.MethodDecl{{Flavor: ast.MethodFun, Name: in.Intern("id"), Body: &ast.Block{}}},
	}
	mid := &ast.EntityDecl{
		EntityKind: ast.EntityTrait, Name: in.Intern("Mid"),
		Provides: []ast.TypeExpr{providesOf(base)},
	}
	cls := &ast.EntityDecl{
		EntityKind: ast.EntityClass,
		Name:       in.Intern("Leaf"),
		Provides:   []ast.TypeExpr{providesOf(mid)},
	}
	prog := programWith(base, mid, cls)

	(&TraitsPass{}).Run(prog, ctx)

	if ctx.Reporter.HasErrors() {
		t.Fatalf("unexpected errors: %s", ctx.Reporter.Format(false))
	}
	if len(cls.Flattened) != 1 || ctx.In.Text(cls.Flattened[0].Name) != "id" {
		t.Errorf("Leaf should inherit id transitively through Mid, Flattened = %v", cls.Flattened)
	}
}
