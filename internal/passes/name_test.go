package passes

import (
	"strings"
	"testing"

	"github.com/veillang/velc/internal/ast"
)

// runScopeThenName is the realistic fixture for NamePass: it depends on
// ScopePass having already populated every scope's symbol table.
func runScopeThenName(prog *ast.Program, ctx *Context) {
	(&ScopePass{}).Run(prog, ctx)
	(&NamePass{}).Run(prog, ctx)
}

func TestNamePass_ResolvesFieldTypeToEntity(t *testing.T) {
	ctx, in := newTestContext()
	target := &ast.EntityDecl{EntityKind: ast.EntityClass, Name: in.Intern("Point")}
	fieldType := &ast.NominalType{Name: in.Intern("Point")}
	holder := &ast.EntityDecl{
		EntityKind: ast.EntityClass,
		Name:       in.Intern("Line"),
		Fields:     []*ast.FieldDecl{{FieldKind: ast.FieldVar, Name: in.Intern("start"), Type: fieldType}},
	}
	prog := programWith(target, holder)

	runScopeThenName(prog, ctx)

	if ctx.Reporter.HasErrors() {
		t.Fatalf("unexpected errors: %s", ctx.Reporter.Format(false))
	}
	if fieldType.Resolved != target {
		t.Error("field type NominalType must resolve to the Point entity")
	}
}

func TestNamePass_UnresolvedTypeReportsError(t *testing.T) {
	ctx, in := newTestContext()
	fieldType := &ast.NominalType{Name: in.Intern("Ghost")}
	holder := &ast.EntityDecl{
		EntityKind: ast.EntityClass,
		Name:       in.Intern("Line"),
		Fields:     []*ast.FieldDecl{{FieldKind: ast.FieldVar, Name: in.Intern("start"), Type: fieldType}},
	}
	prog := programWith(holder)

	runScopeThenName(prog, ctx)

	if !strings.Contains(ctx.Reporter.Format(false), "undefined type 'Ghost'") {
		t.Errorf("unexpected diagnostic: %s", ctx.Reporter.Format(false))
	}
}

func TestNamePass_UnresolvedTypeSuggestsNearMatch(t *testing.T) {
	ctx, in := newTestContext()
	target := &ast.EntityDecl{EntityKind: ast.EntityClass, Name: in.Intern("Point")}
	fieldType := &ast.NominalType{Name: in.Intern("Pointt")} // one extra trailing letter
	holder := &ast.EntityDecl{
		EntityKind: ast.EntityClass,
		Name:       in.Intern("Line"),
		Fields:     []*ast.FieldDecl{{FieldKind: ast.FieldVar, Name: in.Intern("start"), Type: fieldType}},
	}
	prog := programWith(target, holder)

	runScopeThenName(prog, ctx)

	if !strings.Contains(ctx.Reporter.Format(false), "did you mean 'Point'?") {
		t.Errorf("unexpected diagnostic: %s", ctx.Reporter.Format(false))
	}
}

func TestNamePass_ResolvesTypeParamRef(t *testing.T) {
	ctx, in := newTestContext()
	tp := &ast.TypeParam{Name: in.Intern("T")}
	ref := &ast.TypeParamRef{Name: in.Intern("T")}
	method := &ast.MethodDecl{
		Flavor:     ast.MethodFun,
		Name:       in.Intern("identity"),
		TypeParams: []*ast.TypeParam{tp},
		Result:     ref,
	}
	cls := &ast.EntityDecl{
		EntityKind: ast.EntityClass,
		Name:       in.Intern("Box"),
		Methods:    []*ast.MethodDecl{method},
	}
	prog := programWith(cls)

	runScopeThenName(prog, ctx)

	if ctx.Reporter.HasErrors() {
		t.Fatalf("unexpected errors: %s", ctx.Reporter.Format(false))
	}
	if ref.Resolved != tp {
		t.Error("TypeParamRef must resolve to the method's own type parameter")
	}
}

func TestNamePass_GenericArgumentsResolved(t *testing.T) {
	ctx, in := newTestContext()
	elem := &ast.EntityDecl{EntityKind: ast.EntityClass, Name: in.Intern("Widget")}
	arg := &ast.NominalType{Name: in.Intern("Widget")}
	listType := &ast.NominalType{Name: in.Intern("List"), Args: []ast.TypeExpr{arg}}
	list := &ast.EntityDecl{EntityKind: ast.EntityClass, Name: in.Intern("List")}
	holder := &ast.EntityDecl{
		EntityKind: ast.EntityClass,
		Name:       in.Intern("Holder"),
		Fields:     []*ast.FieldDecl{{FieldKind: ast.FieldVar, Name: in.Intern("items"), Type: listType}},
	}
	prog := programWith(elem, list, holder)

	runScopeThenName(prog, ctx)

	if ctx.Reporter.HasErrors() {
		t.Fatalf("unexpected errors: %s", ctx.Reporter.Format(false))
	}
	if arg.Resolved != elem {
		t.Error("a generic type argument must itself be resolved")
	}
	if listType.Resolved != list {
		t.Error("the outer nominal type must resolve to its own entity")
	}
}

func TestNamePass_UnionMembersResolved(t *testing.T) {
	ctx, in := newTestContext()
	a := &ast.EntityDecl{EntityKind: ast.EntityClass, Name: in.Intern("A")}
	b := &ast.EntityDecl{EntityKind: ast.EntityClass, Name: in.Intern("B")}
	aRef := &ast.NominalType{Name: in.Intern("A")}
	bRef := &ast.NominalType{Name: in.Intern("B")}
	union := &ast.UnionType{Members: []ast.TypeExpr{aRef, bRef}}
	holder := &ast.EntityDecl{
		EntityKind: ast.EntityClass,
		Name:       in.Intern("Holder"),
		Fields:     []*ast.FieldDecl{{FieldKind: ast.FieldVar, Name: in.Intern("x"), Type: union}},
	}
	prog := programWith(a, b, holder)

	runScopeThenName(prog, ctx)

	if ctx.Reporter.HasErrors() {
		t.Fatalf("unexpected errors: %s", ctx.Reporter.Format(false))
	}
	if aRef.Resolved != a || bRef.Resolved != b {
		t.Error("every member of a union type must be resolved independently")
	}
}

func TestNamePass_VarDeclTypeAnnotationResolved(t *testing.T) {
	ctx, in := newTestContext()
	target := &ast.EntityDecl{EntityKind: ast.EntityPrimitive, Name: in.Intern("U8")}
	varType := &ast.NominalType{Name: in.Intern("U8")}
	method := &ast.MethodDecl{
		Flavor: ast.MethodFun,
		Name:   in.Intern("run"),
		Body:   &ast.Block{Exprs: []ast.Expr{&ast.VarDecl{Name: in.Intern("n"), Type: varType}}},
	}
	cls := &ast.EntityDecl{
		EntityKind: ast.EntityClass,
		Name:       in.Intern("Runner"),
		Methods:    []*ast.MethodDecl{method},
	}
	prog := programWith(target, cls)

	runScopeThenName(prog, ctx)

	if ctx.Reporter.HasErrors() {
		t.Fatalf("unexpected errors: %s", ctx.Reporter.Format(false))
	}
	if varType.Resolved != target {
		t.Error("a var declaration's type annotation must be resolved")
	}
}
