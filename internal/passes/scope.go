package passes

import (
	"strings"

	"github.com/veillang/velc/internal/ast"
	"github.com/veillang/velc/internal/errors"
	"github.com/veillang/velc/internal/ifdef"
	"github.com/veillang/velc/pkg/ident"
	"github.com/veillang/velc/pkg/token"
)

// ScopePass allocates a symbol table for every scope-introducing node
// and declares the names visible in it, then resolves `use` imports
// (spec §4.5). It folds the spec's separately-named "Import" stage into
// this one pass, since both operate on the same module-level symbol
// table as they walk.
type ScopePass struct{}

func (p *ScopePass) Name() string         { return "scope" }
func (p *ScopePass) TargetReach() ast.Pass { return ast.PassScope }

func (p *ScopePass) Run(prog *ast.Program, ctx *Context) Outcome {
	ctx.Builtin = prog.Builtin

	// A session builds the builtin package's tree once at init and
	// reuses the same *ast.Package across every serial Compile() call
	// (spec §6 "Exit behavior"). Its entities/fields/methods are the
	// same Go nodes on every call, so re-running the declare phases
	// below against it a second time would report every one of its own
	// names as "already declared in this scope". Scoping it is only
	// ever needed once; PassScope already reached is the signal that
	// init's bootstrap pass already did it.
	builtinAlreadyScoped := prog.Builtin != nil && prog.Builtin.PassReached() >= ast.PassScope

	// Phase A: every top-level entity/alias name is declared into its
	// *package's* scope first, since spec §3/§4.5 make the package (not
	// the module) the unit that collides on entity names.
	if prog.Builtin != nil && !builtinAlreadyScoped {
		declarePackageLevelNames(prog.Builtin, ctx)
	}
	for _, pkg := range prog.Packages {
		declarePackageLevelNames(pkg, ctx)
	}

	// Phase B: per module, resolve imports and walk into every entity
	// and method body, declaring nested scopes along the way.
	if prog.Builtin != nil && !builtinAlreadyScoped {
		for _, mod := range prog.Builtin.Modules {
			scopeModule(mod, prog.Builtin, prog, ctx, true)
		}
		prog.Builtin.MarkReached(ast.PassScope)
	}
	for _, pkg := range prog.Packages {
		for _, mod := range pkg.Modules {
			scopeModule(mod, pkg, prog, ctx, pkg == prog.Builtin)
		}
	}
	return Ok
}

func declarePackageLevelNames(pkg *ast.Package, ctx *Context) {
	pkgScope := pkg.Scope()
	for _, mod := range pkg.Modules {
		for _, d := range mod.Decls {
			name := declName(d)
			if name == 0 {
				continue
			}
			declareInto(pkgScope, name, d, ctx)
		}
	}
}

func declName(d ast.Decl) ident.ID {
	switch n := d.(type) {
	case *ast.EntityDecl:
		return n.Name
	case *ast.TypeAliasDecl:
		return n.Name
	default:
		return 0
	}
}

func scopeModule(mod *ast.Module, pkg *ast.Package, prog *ast.Program, ctx *Context, isBuiltin bool) {
	ctx.CurrentModule = mod
	modScope := mod.Scope()
	attachParentScope(modScope, pkg.Scope())

	if !isBuiltin && prog.Builtin != nil {
		for _, e := range prog.Builtin.Scope().Entries() {
			declareInto(modScope, e.Name, e.Def, ctx)
		}
	}

	for _, use := range mod.Uses {
		resolveUse(use, prog, modScope, ctx)
	}

	for _, d := range mod.Decls {
		if e, ok := d.(*ast.EntityDecl); ok {
			scopeEntity(e, modScope, ctx)
		}
	}
	ctx.CurrentModule = nil
}

func resolveUse(use *ast.UseDecl, prog *ast.Program, modScope *ast.Scope, ctx *Context) {
	if use.Guard != "" {
		ok, err := ifdef.Eval(use.Guard, ctx.Target)
		if err != nil {
			ctx.Reporter.Errorf(errors.Semantic, use.Pos(), "invalid guard expression on 'use %q': %v", use.Path, err)
			return
		}
		if !ok {
			return
		}
	}

	var target *ast.Package
	if prog.Builtin != nil && prog.Builtin.Path == use.Path {
		target = prog.Builtin
	}
	for _, pkg := range prog.Packages {
		if pkg.Path == use.Path {
			target = pkg
			break
		}
	}
	if target == nil {
		ctx.Reporter.Errorf(errors.Semantic, use.Pos(), "package %q not found", use.Path)
		return
	}
	use.Resolved = target

	if use.Alias != 0 {
		declareInto(modScope, use.Alias, use, ctx)
		return
	}
	for _, e := range target.Scope().Entries() {
		declareInto(modScope, e.Name, e.Def, ctx)
	}
}

func scopeEntity(e *ast.EntityDecl, modScope *ast.Scope, ctx *Context) {
	entityScope := e.Scope()
	attachParentScope(entityScope, modScope)
	ctx.CurrentEntity = e

	for _, tp := range e.TypeParams {
		checkTypeName(ctx, tp.Name, tp.Pos())
		declareInto(entityScope, tp.Name, tp, ctx)
	}
	for _, f := range e.Fields {
		checkValueName(ctx, f.Name, f.Pos())
		declareInto(entityScope, f.Name, f, ctx)
		applyTestOnly(ctx, f, f.Name)
	}
	for _, m := range e.Methods {
		checkValueName(ctx, m.Name, m.Pos())
		declareInto(entityScope, m.Name, m, ctx)
		applyTestOnly(ctx, m, m.Name)
	}
	for _, m := range e.Methods {
		scopeMethod(m, entityScope, ctx)
	}
	ctx.CurrentEntity = nil
}

func scopeMethod(m *ast.MethodDecl, entityScope *ast.Scope, ctx *Context) {
	methodScope := m.Scope()
	attachParentScope(methodScope, entityScope)
	ctx.CurrentMethod = m

	for _, tp := range m.TypeParams {
		checkTypeName(ctx, tp.Name, tp.Pos())
		declareInto(methodScope, tp.Name, tp, ctx)
	}
	for _, param := range m.Params {
		checkValueName(ctx, param.Name, param.Pos())
		declareInto(methodScope, param.Name, param, ctx)
	}
	if m.Body != nil {
		attachParentScope(m.Body.Scope(), methodScope)
		scopeBlockContents(m.Body, ctx)
	}
	ctx.CurrentMethod = nil
}

// scopeBlockContents declares every direct `var`/`let` of b into b's own
// scope and recurses into every nested scope-introducing construct,
// without re-creating b's own scope (the caller already attached it).
func scopeBlockContents(b *ast.Block, ctx *Context) {
	scope := b.Scope()
	for _, e := range b.Exprs {
		scopeExpr(e, scope, ctx)
	}
}

// scopeExpr recurses through e, declaring locals and wiring up the
// parent link of every nested scope-introducing node it finds.
func scopeExpr(e ast.Expr, scope *ast.Scope, ctx *Context) {
	switch n := e.(type) {
	case *ast.VarDecl:
		checkValueName(ctx, n.Name, n.Pos())
		declareInto(scope, n.Name, n, ctx)
		if n.Init != nil {
			scopeExpr(n.Init, scope, ctx)
		}
	case *ast.AssignExpr:
		scopeExpr(n.LHS, scope, ctx)
		scopeExpr(n.RHS, scope, ctx)
	case *ast.BinaryExpr:
		scopeExpr(n.Left, scope, ctx)
		scopeExpr(n.Right, scope, ctx)
	case *ast.UnaryExpr:
		scopeExpr(n.Operand, scope, ctx)
	case *ast.IsExpr:
		scopeExpr(n.Left, scope, ctx)
		scopeExpr(n.Right, scope, ctx)
	case *ast.AsExpr:
		scopeExpr(n.Value, scope, ctx)
	case *ast.Call:
		scopeExpr(n.Callee, scope, ctx)
		for _, a := range n.Args {
			scopeExpr(a, scope, ctx)
		}
	case *ast.FFICall:
		for _, a := range n.Args {
			scopeExpr(a, scope, ctx)
		}
	case *ast.MemberAccess:
		scopeExpr(n.Receiver, scope, ctx)
	case *ast.IndexExpr:
		scopeExpr(n.Receiver, scope, ctx)
		for _, a := range n.Args {
			scopeExpr(a, scope, ctx)
		}
	case *ast.TupleLit:
		for _, el := range n.Elems {
			scopeExpr(el, scope, ctx)
		}
	case *ast.ArrayLit:
		for _, el := range n.Elems {
			scopeExpr(el, scope, ctx)
		}
	case *ast.ConsumeExpr:
		scopeExpr(n.Expr, scope, ctx)
	case *ast.BreakExpr:
		if n.Value != nil {
			scopeExpr(n.Value, scope, ctx)
		}
	case *ast.ReturnExpr:
		if n.Value != nil {
			scopeExpr(n.Value, scope, ctx)
		}
	case *ast.Block:
		attachParentScope(n.Scope(), scope)
		scopeBlockContents(n, ctx)
	case *ast.IfExpr:
		scopeExpr(n.Cond, scope, ctx)
		attachParentScope(n.Then.Scope(), scope)
		scopeBlockContents(n.Then, ctx)
		if n.Else != nil {
			scopeExpr(n.Else, scope, ctx)
		}
	case *ast.IfDefExpr:
		attachParentScope(n.Then.Scope(), scope)
		scopeBlockContents(n.Then, ctx)
		if n.Else != nil {
			scopeExpr(n.Else, scope, ctx)
		}
	case *ast.IfTypeExpr:
		attachParentScope(n.Then.Scope(), scope)
		scopeBlockContents(n.Then, ctx)
		if n.Else != nil {
			scopeExpr(n.Else, scope, ctx)
		}
	case *ast.WhileExpr:
		attachParentScope(n.Scope(), scope)
		scopeExpr(n.Cond, n.Scope(), ctx)
		attachParentScope(n.Body.Scope(), n.Scope())
		scopeBlockContents(n.Body, ctx)
		if n.Else != nil {
			scopeExpr(n.Else, scope, ctx)
		}
	case *ast.RepeatExpr:
		attachParentScope(n.Body.Scope(), scope)
		scopeBlockContents(n.Body, ctx)
		scopeExpr(n.Until, n.Body.Scope(), ctx)
		if n.Else != nil {
			scopeExpr(n.Else, scope, ctx)
		}
	case *ast.WithExpr:
		attachParentScope(n.Scope(), scope)
		inner := n.Scope()
		for _, bind := range n.Binds {
			scopeExpr(bind.Init, inner, ctx)
			checkValueName(ctx, bind.Name, n.Pos())
			declareInto(inner, bind.Name, n, ctx)
		}
		attachParentScope(n.Body.Scope(), inner)
		scopeBlockContents(n.Body, ctx)
		if n.Else != nil {
			scopeExpr(n.Else, scope, ctx)
		}
	case *ast.TryExpr:
		attachParentScope(n.Body.Scope(), scope)
		scopeBlockContents(n.Body, ctx)
		if n.Else != nil {
			attachParentScope(n.Else.Scope(), scope)
			scopeBlockContents(n.Else, ctx)
		}
		if n.Then != nil {
			attachParentScope(n.Then.Scope(), scope)
			scopeBlockContents(n.Then, ctx)
		}
	case *ast.RecoverExpr:
		attachParentScope(n.Scope(), scope)
		scopeBlockContents(n.Body, ctx)
	case *ast.MatchExpr:
		scopeExpr(n.Subject, scope, ctx)
		for _, c := range n.Cases {
			scopeMatchCase(c, scope, ctx)
		}
		if n.Else != nil {
			scopeExpr(n.Else, scope, ctx)
		}
	case *ast.Lambda:
		attachParentScope(n.Scope(), scope)
		for _, param := range n.Params {
			checkValueName(ctx, param.Name, param.Pos())
			declareInto(n.Scope(), param.Name, param, ctx)
		}
		scopeBlockContents(n.Body, ctx)
	case *ast.ObjectLit:
		for _, m := range n.Methods {
			if m.Body != nil {
				attachParentScope(m.Body.Scope(), scope)
				scopeBlockContents(m.Body, ctx)
			}
		}
	default:
		// Ident, This, DontCare, literals: no nested scope, nothing to declare.
	}
}

func scopeMatchCase(c *ast.MatchCase, outer *ast.Scope, ctx *Context) {
	caseScope := c.Scope()
	attachParentScope(caseScope, outer)
	declarePatternBindings(c.Pattern, caseScope, ctx)
	if c.Guard != nil {
		scopeExpr(c.Guard, caseScope, ctx)
	}
	attachParentScope(c.Body.Scope(), caseScope)
	scopeBlockContents(c.Body, ctx)
}

// declarePatternBindings declares every *ast.Ident appearing in a match
// pattern (scalar bind, or elementwise inside a tuple pattern) into
// caseScope; DontCare contributes no binding (spec §4.4, §4.8).
func declarePatternBindings(pattern ast.Expr, caseScope *ast.Scope, ctx *Context) {
	switch n := pattern.(type) {
	case *ast.Ident:
		checkValueName(ctx, n.Name, n.Pos())
		declareInto(caseScope, n.Name, n, ctx)
	case *ast.TupleLit:
		for _, el := range n.Elems {
			declarePatternBindings(el, caseScope, ctx)
		}
	default:
		// DontCare and literal patterns bind nothing.
	}
}

func attachParentScope(scope, parent *ast.Scope) {
	if scope.Parent == nil && parent != nil {
		scope.Parent = parent
	}
}

// declareInto declares name into scope, reporting a Semantic duplicate
// diagnostic (with a "first declared here" related frame) if it is
// already bound locally (spec §4.5 "Duplicate names in the same scope
// are an error").
func declareInto(scope *ast.Scope, name ident.ID, def ast.Node, ctx *Context) {
	if _, ok := scope.Declare(name, def); !ok {
		existing, _ := scope.LookupLocal(name)
		d := &errors.Diagnostic{
			Kind:    errors.Semantic,
			Pos:     def.Pos(),
			Message: "'" + ctx.In.Text(name) + "' is already declared in this scope",
		}
		if existing != nil {
			d.Related = []errors.Related{{Pos: existing.Def.Pos(), Message: "first declared here"}}
		}
		ctx.Reporter.Report(d)
	}
}

func checkTypeName(ctx *Context, name ident.ID, pos token.Position) {
	text := ctx.In.Text(name)
	if text == "" {
		return
	}
	r := []rune(text)[0]
	if r < 'A' || r > 'Z' {
		ctx.Reporter.Errorf(errors.Semantic, pos, "type name %q must start with an uppercase letter", text)
	}
}

func checkValueName(ctx *Context, name ident.ID, pos token.Position) {
	text := ctx.In.Text(name)
	if text == "" || strings.HasPrefix(text, "$") {
		return
	}
	r := []rune(text)[0]
	if r == '_' {
		return
	}
	if r < 'a' || r > 'z' {
		ctx.Reporter.Errorf(errors.Semantic, pos, "name %q must start with a lowercase letter or '_'", text)
	}
}

func applyTestOnly(ctx *Context, n ast.Node, name ident.ID) {
	if strings.HasPrefix(ctx.In.Text(name), "$") {
		n.SetFlag(ast.TestOnly)
	}
}
