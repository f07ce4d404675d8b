package passes

import (
	"github.com/veillang/velc/internal/ast"
	"github.com/veillang/velc/internal/errors"
	"github.com/veillang/velc/pkg/ident"
	"github.com/veillang/velc/pkg/token"
)

// NamePass resolves every type reference — NominalType and TypeParamRef
// nodes — to the declaration it names (spec §4.6). Value references
// (Ident, MemberAccess) are left for the Refer Pass, per the division
// internal/ast's doc comments already establish: NominalType.Resolved
// and TypeParamRef.Resolved are "filled in by the Name Pass", while
// Ident.Resolved is "filled in by the Refer Pass".
type NamePass struct{}

func (p *NamePass) Name() string         { return "name" }
func (p *NamePass) TargetReach() ast.Pass { return ast.PassName }

func (p *NamePass) Run(prog *ast.Program, ctx *Context) Outcome {
	if prog.Builtin != nil {
		nameModules(prog.Builtin.Modules, ctx)
	}
	for _, pkg := range prog.Packages {
		nameModules(pkg.Modules, ctx)
	}
	return Ok
}

func nameModules(mods []*ast.Module, ctx *Context) {
	for _, mod := range mods {
		ctx.CurrentModule = mod
		for _, d := range mod.Decls {
			switch n := d.(type) {
			case *ast.EntityDecl:
				nameEntity(n, ctx)
			case *ast.TypeAliasDecl:
				nameTypeParams(n.TypeParams, mod.Scope(), ctx)
				nameType(n.Target, mod.Scope(), ctx)
			}
		}
		for _, ffi := range mod.FFI {
			nameType(ffi.Result, mod.Scope(), ctx)
			for _, p := range ffi.Params {
				nameType(p.Type, mod.Scope(), ctx)
			}
		}
	}
	ctx.CurrentModule = nil
}

func nameEntity(e *ast.EntityDecl, ctx *Context) {
	ctx.CurrentEntity = e
	entityScope := e.Scope()
	nameTypeParams(e.TypeParams, entityScope, ctx)
	for _, pr := range e.Provides {
		nameType(pr, entityScope, ctx)
	}
	for _, f := range e.Fields {
		nameType(f.Type, entityScope, ctx)
	}
	for _, m := range e.Methods {
		nameMethod(m, entityScope, ctx)
	}
	ctx.CurrentEntity = nil
}

func nameMethod(m *ast.MethodDecl, entityScope *ast.Scope, ctx *Context) {
	ctx.CurrentMethod = m
	methodScope := m.Scope()
	nameTypeParams(m.TypeParams, methodScope, ctx)
	for _, param := range m.Params {
		nameType(param.Type, methodScope, ctx)
	}
	nameType(m.Result, methodScope, ctx)
	if m.Body != nil {
		nameBlock(m.Body, ctx)
	}
	ctx.CurrentMethod = nil
}

func nameTypeParams(tps []*ast.TypeParam, scope *ast.Scope, ctx *Context) {
	for _, tp := range tps {
		nameType(tp.Bound, scope, ctx)
		nameType(tp.Default, scope, ctx)
	}
}

// nameType resolves t's NominalType/TypeParamRef nodes against scope,
// recursing into every compound type shape (spec §4.6 applies to type
// references exactly as it does to value references: walk outward until
// a symbol table binds the name).
func nameType(t ast.TypeExpr, scope *ast.Scope, ctx *Context) {
	if t == nil {
		return
	}
	switch n := t.(type) {
	case *ast.NominalType:
		for _, a := range n.Args {
			nameType(a, scope, ctx)
		}
		resolveNominal(n, scope, ctx)
	case *ast.TypeParamRef:
		resolveTypeParamRef(n, scope, ctx)
	case *ast.UnionType:
		for _, m := range n.Members {
			nameType(m, scope, ctx)
		}
	case *ast.IntersectionType:
		for _, m := range n.Members {
			nameType(m, scope, ctx)
		}
	case *ast.TupleType:
		for _, el := range n.Elems {
			nameType(el, scope, ctx)
		}
	case *ast.ArrowType:
		nameType(n.Origin, scope, ctx)
		nameType(n.Target, scope, ctx)
	case *ast.FunType:
		for _, p := range n.Params {
			nameType(p, scope, ctx)
		}
		nameType(n.Result, scope, ctx)
	}
}

func resolveNominal(n *ast.NominalType, scope *ast.Scope, ctx *Context) {
	entry, ok := scope.Lookup(n.Name)
	if !ok {
		reportUnresolved(ctx, n.Name, n.Pos(), scope)
		return
	}
	switch def := entry.Def.(type) {
	case *ast.EntityDecl, *ast.TypeAliasDecl:
		n.Resolved = def
	case *ast.TypeParam:
		// A bare type parameter used where a nominal type was written
		// (e.g. a generic constraint reusing a type-param name). Still
		// recorded on Resolved so downstream passes don't need a
		// second lookup.
		n.Resolved = def
	default:
		ctx.Reporter.Errorf(errors.Semantic, n.Pos(), "%q does not name a type", ctx.In.Text(n.Name))
	}
}

func resolveTypeParamRef(n *ast.TypeParamRef, scope *ast.Scope, ctx *Context) {
	entry, ok := scope.Lookup(n.Name)
	if !ok {
		reportUnresolved(ctx, n.Name, n.Pos(), scope)
		return
	}
	tp, ok := entry.Def.(*ast.TypeParam)
	if !ok {
		ctx.Reporter.Errorf(errors.Semantic, n.Pos(), "%q is not a type parameter", ctx.In.Text(n.Name))
		return
	}
	n.Resolved = tp
}

func reportUnresolved(ctx *Context, name ident.ID, pos token.Position, scope *ast.Scope) {
	msg := "undefined type " + "'" + ctx.In.Text(name) + "'"
	if suggestion := suggestNear(ctx, name, scope); suggestion != "" {
		msg += "; did you mean '" + suggestion + "'?"
	}
	ctx.Reporter.Errorf(errors.Semantic, pos, "%s", msg)
}

// suggestNear implements spec §4.6 step 3: when a name fails to
// resolve, search case-folded / underscore-stripped and suggest the
// first near match found walking outward through scope.
func suggestNear(ctx *Context, name ident.ID, scope *ast.Scope) string {
	text := ctx.In.Text(name)
	for sc := scope; sc != nil; sc = sc.Parent {
		for _, e := range sc.Entries() {
			cand := ctx.In.Text(e.Name)
			if cand != text && ident.NearMatch(text, cand) {
				return cand
			}
		}
	}
	return ""
}

func nameBlock(b *ast.Block, ctx *Context) {
	scope := b.Scope()
	for _, e := range b.Exprs {
		nameExpr(e, scope, ctx)
	}
}

// nameExpr walks expression bodies purely to reach nested type
// annotations (var/let/lambda/match-as-patterns, recover caps) — value
// references inside are untouched here (spec §4.6 scopes to type refs
// only in this implementation's pass split). scope is the nearest
// enclosing symbol table, threaded down rather than read off a .Scope()
// accessor, since most expression kinds don't introduce one.
func nameExpr(e ast.Expr, scope *ast.Scope, ctx *Context) {
	switch n := e.(type) {
	case *ast.VarDecl:
		nameType(n.Type, scope, ctx)
		if n.Init != nil {
			nameExpr(n.Init, scope, ctx)
		}
	case *ast.AssignExpr:
		nameExpr(n.LHS, scope, ctx)
		nameExpr(n.RHS, scope, ctx)
	case *ast.BinaryExpr:
		nameExpr(n.Left, scope, ctx)
		nameExpr(n.Right, scope, ctx)
	case *ast.UnaryExpr:
		nameExpr(n.Operand, scope, ctx)
	case *ast.IsExpr:
		nameExpr(n.Left, scope, ctx)
		nameExpr(n.Right, scope, ctx)
	case *ast.AsExpr:
		nameType(n.Type, scope, ctx)
		nameExpr(n.Value, scope, ctx)
	case *ast.Call:
		for _, a := range n.TypeArgs {
			nameType(a, scope, ctx)
		}
		nameExpr(n.Callee, scope, ctx)
		for _, a := range n.Args {
			nameExpr(a, scope, ctx)
		}
	case *ast.FFICall:
		for _, a := range n.Args {
			nameExpr(a, scope, ctx)
		}
	case *ast.MemberAccess:
		nameExpr(n.Receiver, scope, ctx)
	case *ast.IndexExpr:
		nameExpr(n.Receiver, scope, ctx)
		for _, a := range n.Args {
			nameExpr(a, scope, ctx)
		}
	case *ast.TupleLit:
		for _, el := range n.Elems {
			nameExpr(el, scope, ctx)
		}
	case *ast.ArrayLit:
		nameType(n.Elem, scope, ctx)
		for _, el := range n.Elems {
			nameExpr(el, scope, ctx)
		}
	case *ast.ConsumeExpr:
		nameExpr(n.Expr, scope, ctx)
	case *ast.BreakExpr:
		if n.Value != nil {
			nameExpr(n.Value, scope, ctx)
		}
	case *ast.ReturnExpr:
		if n.Value != nil {
			nameExpr(n.Value, scope, ctx)
		}
	case *ast.Block:
		nameBlock(n, ctx)
	case *ast.IfExpr:
		nameExpr(n.Cond, scope, ctx)
		nameBlock(n.Then, ctx)
		if n.Else != nil {
			nameExpr(n.Else, scope, ctx)
		}
	case *ast.IfDefExpr:
		nameBlock(n.Then, ctx)
		if n.Else != nil {
			nameExpr(n.Else, scope, ctx)
		}
	case *ast.IfTypeExpr:
		nameType(n.Bound, scope, ctx)
		nameBlock(n.Then, ctx)
		if n.Else != nil {
			nameExpr(n.Else, scope, ctx)
		}
	case *ast.WhileExpr:
		nameExpr(n.Cond, scope, ctx)
		nameBlock(n.Body, ctx)
		if n.Else != nil {
			nameExpr(n.Else, scope, ctx)
		}
	case *ast.RepeatExpr:
		nameBlock(n.Body, ctx)
		nameExpr(n.Until, n.Body.Scope(), ctx)
		if n.Else != nil {
			nameExpr(n.Else, scope, ctx)
		}
	case *ast.WithExpr:
		for _, bind := range n.Binds {
			nameType(bind.Type, scope, ctx)
			nameExpr(bind.Init, scope, ctx)
		}
		nameBlock(n.Body, ctx)
		if n.Else != nil {
			nameExpr(n.Else, scope, ctx)
		}
	case *ast.TryExpr:
		nameBlock(n.Body, ctx)
		if n.Else != nil {
			nameBlock(n.Else, ctx)
		}
		if n.Then != nil {
			nameBlock(n.Then, ctx)
		}
	case *ast.RecoverExpr:
		nameBlock(n.Body, ctx)
	case *ast.MatchExpr:
		nameExpr(n.Subject, scope, ctx)
		for _, c := range n.Cases {
			nameType(c.AsType, c.Scope(), ctx)
			if c.Guard != nil {
				nameExpr(c.Guard, c.Scope(), ctx)
			}
			nameBlock(c.Body, ctx)
		}
		if n.Else != nil {
			nameExpr(n.Else, scope, ctx)
		}
	case *ast.Lambda:
		for _, param := range n.Params {
			nameType(param.Type, n.Scope(), ctx)
		}
		nameType(n.Result, n.Scope(), ctx)
		nameBlock(n.Body, ctx)
	case *ast.ObjectLit:
		for _, pr := range n.Provides {
			nameType(pr, scope, ctx)
		}
		for _, f := range n.Fields {
			nameType(f.Type, scope, ctx)
		}
		for _, m := range n.Methods {
			for _, param := range m.Params {
				nameType(param.Type, m.Scope(), ctx)
			}
			nameType(m.Result, m.Scope(), ctx)
			if m.Body != nil {
				nameBlock(m.Body, ctx)
			}
		}
	}
}
