package passes

import (
	"strings"
	"testing"

	"github.com/veillang/velc/internal/ast"
)

func TestScopePass_DeclaresPackageLevelEntities(t *testing.T) {
	ctx, in := newTestContext()
	cls := &ast.EntityDecl{EntityKind: ast.EntityClass, Name: in.Intern("widget")}
	prog := programWith(cls)

	(&ScopePass{}).Run(prog, ctx)

	if ctx.Reporter.HasErrors() {
		t.Fatalf("unexpected errors: %s", ctx.Reporter.Format(false))
	}
	if _, ok := prog.Packages[0].Scope().LookupLocal(cls.Name); !ok {
		t.Error("widget entity was not declared into its package scope")
	}
}

func TestScopePass_DuplicateTopLevelNameRejected(t *testing.T) {
	ctx, in := newTestContext()
	name := in.Intern("Box")
	a := &ast.EntityDecl{EntityKind: ast.EntityClass, Name: name}
	b := &ast.EntityDecl{EntityKind: ast.EntityClass, Name: name}
	prog := programWith(a, b)

	(&ScopePass{}).Run(prog, ctx)

	if !ctx.Reporter.HasErrors() {
		t.Fatal("expected a duplicate-declaration error")
	}
	if !strings.Contains(ctx.Reporter.Format(false), "already declared in this scope") {
		t.Errorf("unexpected diagnostic: %s", ctx.Reporter.Format(false))
	}
}

func TestScopePass_DuplicateFieldRejected(t *testing.T) {
	ctx, in := newTestContext()
	name := in.Intern("x")
	cls := &ast.EntityDecl{
		EntityKind: ast.EntityClass,
		Name:       in.Intern("Point"),
		Fields: []*ast.FieldDecl{
			{FieldKind: ast.FieldVar, Name: name},
			{FieldKind: ast.FieldVar, Name: name},
		},
	}
	prog := programWith(cls)

	(&ScopePass{}).Run(prog, ctx)

	if !ctx.Reporter.HasErrors() {
		t.Fatal("expected a duplicate-field error")
	}
}

func TestScopePass_ValueNameMustStartLowercase(t *testing.T) {
	ctx, in := newTestContext()
	cls := &ast.EntityDecl{
		EntityKind: ast.EntityClass,
		Name:       in.Intern("Widget"),
		Fields:     []*ast.FieldDecl{{FieldKind: ast.FieldVar, Name: in.Intern("Bad")}},
	}
	prog := programWith(cls)

	(&ScopePass{}).Run(prog, ctx)

	if !strings.Contains(ctx.Reporter.Format(false), "must start with a lowercase letter") {
		t.Errorf("unexpected diagnostic: %s", ctx.Reporter.Format(false))
	}
}

func TestScopePass_TypeNameMustStartUppercase(t *testing.T) {
	ctx, in := newTestContext()
	cls := &ast.EntityDecl{
		EntityKind: ast.EntityClass,
		Name:       in.Intern("Widget"),
		TypeParams: []*ast.TypeParam{{Name: in.Intern("bad")}},
	}
	prog := programWith(cls)

	(&ScopePass{}).Run(prog, ctx)

	if !strings.Contains(ctx.Reporter.Format(false), "must start with an uppercase letter") {
		t.Errorf("unexpected diagnostic: %s", ctx.Reporter.Format(false))
	}
}

func TestScopePass_DollarPrefixedNameSkipsCaseCheckAndMarksTestOnly(t *testing.T) {
	ctx, in := newTestContext()
	field := &ast.FieldDecl{FieldKind: ast.FieldVar, Name: in.Intern("$hidden")}
	cls := &ast.EntityDecl{
		EntityKind: ast.EntityClass,
		Name:       in.Intern("Widget"),
		Fields:     []*ast.FieldDecl{field},
	}
	prog := programWith(cls)

	(&ScopePass{}).Run(prog, ctx)

	if ctx.Reporter.HasErrors() {
		t.Fatalf("unexpected errors: %s", ctx.Reporter.Format(false))
	}
	if !field.HasFlag(ast.TestOnly) {
		t.Error("a $-prefixed field must be flagged TestOnly")
	}
}

func TestScopePass_UnderscoreValueNameAllowed(t *testing.T) {
	ctx, in := newTestContext()
	cls := &ast.EntityDecl{
		EntityKind: ast.EntityClass,
		Name:       in.Intern("Widget"),
		Fields:     []*ast.FieldDecl{{FieldKind: ast.FieldVar, Name: in.Intern("_priv")}},
	}
	prog := programWith(cls)

	(&ScopePass{}).Run(prog, ctx)

	if ctx.Reporter.HasErrors() {
		t.Errorf("unexpected errors: %s", ctx.Reporter.Format(false))
	}
}

func TestScopePass_ResolvesUseAndBringsInNames(t *testing.T) {
	ctx, in := newTestContext()

	dep := &ast.EntityDecl{EntityKind: ast.EntityClass, Name: in.Intern("Helper")}
	depPkg := &ast.Package{Path: "dep", Modules: []*ast.Module{{Path: "dep.vel", Decls: []ast.Decl{dep}}}}

	use := &ast.UseDecl{Path: "dep"}
	mainMod := &ast.Module{Path: "main.vel", Uses: []*ast.UseDecl{use}}
	mainPkg := &ast.Package{Path: "main", Modules: []*ast.Module{mainMod}}
	prog := &ast.Program{Packages: []*ast.Package{mainPkg, depPkg}}

	(&ScopePass{}).Run(prog, ctx)

	if ctx.Reporter.HasErrors() {
		t.Fatalf("unexpected errors: %s", ctx.Reporter.Format(false))
	}
	if use.Resolved != depPkg {
		t.Fatal("use directive did not resolve to the dep package")
	}
	if _, ok := mainMod.Scope().LookupLocal(dep.Name); !ok {
		t.Error("unaliased use must bring the used package's top-level names into the module scope")
	}
}

func TestScopePass_AliasedUseOnlyBindsAlias(t *testing.T) {
	ctx, in := newTestContext()

	dep := &ast.EntityDecl{EntityKind: ast.EntityClass, Name: in.Intern("Helper")}
	depPkg := &ast.Package{Path: "dep", Modules: []*ast.Module{{Path: "dep.vel", Decls: []ast.Decl{dep}}}}

	alias := in.Intern("d")
	use := &ast.UseDecl{Path: "dep", Alias: alias}
	mainMod := &ast.Module{Path: "main.vel", Uses: []*ast.UseDecl{use}}
	mainPkg := &ast.Package{Path: "main", Modules: []*ast.Module{mainMod}}
	prog := &ast.Program{Packages: []*ast.Package{mainPkg, depPkg}}

	(&ScopePass{}).Run(prog, ctx)

	if _, ok := mainMod.Scope().LookupLocal(alias); !ok {
		t.Error("aliased use must bind the alias name")
	}
	if _, ok := mainMod.Scope().LookupLocal(dep.Name); ok {
		t.Error("aliased use must not also bind the dep package's own top-level names")
	}
}

func TestScopePass_UnresolvedUseReportsError(t *testing.T) {
	ctx, _ := newTestContext()
	use := &ast.UseDecl{Path: "nonexistent"}
	mod := &ast.Module{Path: "main.vel", Uses: []*ast.UseDecl{use}}
	prog := &ast.Program{Packages: []*ast.Package{{Path: "main", Modules: []*ast.Module{mod}}}}

	(&ScopePass{}).Run(prog, ctx)

	if !strings.Contains(ctx.Reporter.Format(false), `package "nonexistent" not found`) {
		t.Errorf("unexpected diagnostic: %s", ctx.Reporter.Format(false))
	}
}

func TestScopePass_GuardedUseSkippedWhenFalse(t *testing.T) {
	ctx, _ := newTestContext()
	use := &ast.UseDecl{Path: "nonexistent", Guard: "false"}
	mod := &ast.Module{Path: "main.vel", Uses: []*ast.UseDecl{use}}
	prog := &ast.Program{Packages: []*ast.Package{{Path: "main", Modules: []*ast.Module{mod}}}}

	(&ScopePass{}).Run(prog, ctx)

	if ctx.Reporter.HasErrors() {
		t.Errorf("a use gated behind a false guard must not even attempt to resolve: %s", ctx.Reporter.Format(false))
	}
	if use.Resolved != nil {
		t.Error("a use gated behind a false guard must not resolve")
	}
}

func TestScopePass_DeclaresBlockLocals(t *testing.T) {
	ctx, in := newTestContext()
	varDecl := &ast.VarDecl{Name: in.Intern("count")}
	method := &ast.MethodDecl{
		Flavor: ast.MethodFun,
		Name:   in.Intern("run"),
		Body:   &ast.Block{Exprs: []ast.Expr{varDecl}},
	}
	cls := &ast.EntityDecl{
		EntityKind: ast.EntityClass,
		Name:       in.Intern("Runner"),
		Methods:    []*ast.MethodDecl{method},
	}
	prog := programWith(cls)

	(&ScopePass{}).Run(prog, ctx)

	if ctx.Reporter.HasErrors() {
		t.Fatalf("unexpected errors: %s", ctx.Reporter.Format(false))
	}
	if _, ok := method.Body.Scope().LookupLocal(varDecl.Name); !ok {
		t.Error("a var declared directly in a method body must be declared into the body's own scope")
	}
}

func TestScopePass_NestedBlockLocalNotVisibleOutside(t *testing.T) {
	ctx, in := newTestContext()
	inner := &ast.VarDecl{Name: in.Intern("tmp")}
	ifExpr := &ast.IfExpr{
		Cond: &ast.BoolLit{Value: true},
		Then: &ast.Block{Exprs: []ast.Expr{inner}},
	}
	method := &ast.MethodDecl{
		Flavor: ast.MethodFun,
		Name:   in.Intern("run"),
		Body:   &ast.Block{Exprs: []ast.Expr{ifExpr}},
	}
	cls := &ast.EntityDecl{
		EntityKind: ast.EntityClass,
		Name:       in.Intern("Runner"),
		Methods:    []*ast.MethodDecl{method},
	}
	prog := programWith(cls)

	(&ScopePass{}).Run(prog, ctx)

	if ctx.Reporter.HasErrors() {
		t.Fatalf("unexpected errors: %s", ctx.Reporter.Format(false))
	}
	if _, ok := method.Body.Scope().LookupLocal(inner.Name); ok {
		t.Error("a var declared inside the if's Then block must not leak into the method body's own scope")
	}
	if _, ok := ifExpr.Then.Scope().Lookup(inner.Name); !ok {
		t.Error("the var must still be visible within its own block's scope chain")
	}
}

func TestScopePass_BuiltinNamesVisibleInUserModule(t *testing.T) {
	ctx, in := newTestContext()
	u8 := &ast.EntityDecl{EntityKind: ast.EntityPrimitive, Name: in.Intern("U8")}
	builtin := &ast.Package{Path: "builtin", Modules: []*ast.Module{{Path: "builtin.vel", Decls: []ast.Decl{u8}}}}
	mod := &ast.Module{Path: "main.vel"}
	prog := &ast.Program{Builtin: builtin, Packages: []*ast.Package{{Path: "main", Modules: []*ast.Module{mod}}}}

	(&ScopePass{}).Run(prog, ctx)

	if _, ok := mod.Scope().LookupLocal(u8.Name); !ok {
		t.Error("every non-builtin module must implicitly see the builtin package's names")
	}
}
