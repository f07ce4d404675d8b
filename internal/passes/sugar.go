package passes

import (
	"github.com/veillang/velc/internal/ast"
)

// SugarPass rewrites high-level surface forms into the canonical core
// subset the rest of the pipeline reasons about (spec §4.4). It runs
// first so every later pass only ever sees desugared method calls,
// while loops, and try blocks.
type SugarPass struct{}

func (p *SugarPass) Name() string         { return "sugar" }
func (p *SugarPass) TargetReach() ast.Pass { return ast.PassSugar }

func (p *SugarPass) Run(prog *ast.Program, ctx *Context) Outcome {
	for _, pkg := range prog.Packages {
		for _, mod := range pkg.Modules {
			ctx.CurrentModule = mod
			// Range by index, not by value: desugaring a method body may
			// append freshly lifted entities (lambdas, object literals) to
			// mod.Decls, and those need their own pass over fields/methods
			// too.
			for i := 0; i < len(mod.Decls); i++ {
				if e, ok := mod.Decls[i].(*ast.EntityDecl); ok {
					sugarEntity(e, ctx)
				}
			}
		}
	}
	ctx.CurrentModule = nil
	return Ok
}

// sugarEntity fills in missing constructors (spec §4.4 last bullet) and
// desugars every method body.
func sugarEntity(e *ast.EntityDecl, ctx *Context) {
	mergeCaseMethods(e, ctx)
	ensureConstructor(e, ctx)
	for _, f := range e.Fields {
		if f.Default != nil {
			f.Default = sugarExpr(f.Default, ctx)
		}
	}
	for _, m := range e.Methods {
		if m.Body != nil {
			sugarBlock(m.Body, ctx)
		}
	}
}

// ensureConstructor adds the implicit `new create()` (and, for
// primitives, identity eq/ne) spec §4.4 describes for entities that
// declare no constructor and have no field that requires one (a field
// with no Default and no synthesizable zero value). This implementation
// takes the simpler reading that ANY entity with zero declared `new`
// methods and no field lacking a default gets the implicit constructor,
// matching the spec's examples (`class Foo` / `actor Main new create()`).
func ensureConstructor(e *ast.EntityDecl, ctx *Context) {
	for _, m := range e.Methods {
		if m.Flavor == ast.MethodNew {
			return
		}
	}
	for _, f := range e.Fields {
		if f.Default == nil && f.FieldKind != ast.FieldEmbed {
			return // a field needs explicit initialization; don't synthesize
		}
	}
	if e.EntityKind == ast.EntityTrait || e.EntityKind == ast.EntityInterface {
		return
	}

	trueLit := &ast.BoolLit{Base: ctx.Builder.Synthetic(e), Value: true}
	body := ctx.Builder.Block(e, trueLit)
	ctor := &ast.MethodDecl{
		Base:   ctx.Builder.Synthetic(e),
		Flavor: ast.MethodNew,
		Name:   ctx.In.Intern("create"),
		Body:   body,
		Owner:  e,
	}
	e.Methods = append([]*ast.MethodDecl{ctor}, e.Methods...)

	if e.EntityKind == ast.EntityPrimitive {
		addIdentityMethod(e, ctx, "eq", ast.OpEq)
		addIdentityMethod(e, ctx, "ne", ast.OpNe)
	}
}

func addIdentityMethod(e *ast.EntityDecl, ctx *Context, name string, op ast.BinaryOp) {
	for _, m := range e.Methods {
		if ctx.In.Text(m.Name) == name {
			return
		}
	}
	param := &ast.Param{Base: ctx.Builder.Synthetic(e), Name: ctx.In.Intern("other")}
	thisRef := &ast.This{Base: ctx.Builder.Synthetic(e)}
	otherRef := &ast.Ident{Base: ctx.Builder.Synthetic(e), Name: param.Name}
	body := ctx.Builder.Block(e, &ast.IsExpr{
		Base: ctx.Builder.Synthetic(e), Left: thisRef, Right: otherRef,
		Negate: op == ast.OpNe,
	})
	m := &ast.MethodDecl{
		Base: ctx.Builder.Synthetic(e), Flavor: ast.MethodFun, Cap: ast.CapBox,
		Name: ctx.In.Intern(name), Params: []*ast.Param{param}, Body: body, Owner: e,
	}
	e.Methods = append(e.Methods, m)
}

func sugarBlock(b *ast.Block, ctx *Context) {
	for i, e := range b.Exprs {
		b.Exprs[i] = sugarExpr(e, ctx)
	}
}

// sugarExpr recursively desugars e, returning its (possibly replaced)
// rewritten form.
func sugarExpr(e ast.Expr, ctx *Context) ast.Expr {
	switch n := e.(type) {
	case *ast.BinaryExpr:
		n.Left = sugarExpr(n.Left, ctx)
		n.Right = sugarExpr(n.Right, ctx)
		return desugarBinary(n, ctx)
	case *ast.UnaryExpr:
		n.Operand = sugarExpr(n.Operand, ctx)
		return desugarUnary(n, ctx)
	case *ast.ForExpr:
		return desugarFor(n, ctx)
	case *ast.WithExpr:
		return desugarWith(n, ctx)
	case *ast.AsExpr:
		n.Value = sugarExpr(n.Value, ctx)
		return desugarAs(n, ctx)
	case *ast.Call:
		n.Callee = sugarExpr(n.Callee, ctx)
		for i := range n.Args {
			n.Args[i] = sugarExpr(n.Args[i], ctx)
		}
		return n
	case *ast.IndexExpr:
		n.Receiver = sugarExpr(n.Receiver, ctx)
		for i := range n.Args {
			n.Args[i] = sugarExpr(n.Args[i], ctx)
		}
		return desugarIndex(n, ctx)
	case *ast.MemberAccess:
		n.Receiver = sugarExpr(n.Receiver, ctx)
		return n
	case *ast.AssignExpr:
		if idx, ok := n.LHS.(*ast.IndexExpr); ok {
			// Keep the IndexExpr form so desugarAssign can turn it into
			// update; only its operands are desugared here.
			idx.Receiver = sugarExpr(idx.Receiver, ctx)
			for i, a := range idx.Args {
				idx.Args[i] = sugarExpr(a, ctx)
			}
		} else {
			n.LHS = sugarExpr(n.LHS, ctx)
		}
		n.RHS = sugarExpr(n.RHS, ctx)
		return desugarAssign(n, ctx)
	case *ast.IfExpr:
		n.Cond = sugarExpr(n.Cond, ctx)
		sugarBlock(n.Then, ctx)
		if n.Else != nil {
			n.Else = sugarExpr(n.Else, ctx)
		}
		return n
	case *ast.WhileExpr:
		n.Cond = sugarExpr(n.Cond, ctx)
		sugarBlock(n.Body, ctx)
		if n.Else != nil {
			n.Else = sugarExpr(n.Else, ctx)
		}
		return n
	case *ast.RepeatExpr:
		sugarBlock(n.Body, ctx)
		n.Until = sugarExpr(n.Until, ctx)
		if n.Else != nil {
			n.Else = sugarExpr(n.Else, ctx)
		}
		return n
	case *ast.TryExpr:
		sugarBlock(n.Body, ctx)
		if n.Else != nil {
			sugarBlock(n.Else, ctx)
		}
		if n.Then != nil {
			sugarBlock(n.Then, ctx)
		}
		return n
	case *ast.RecoverExpr:
		sugarBlock(n.Body, ctx)
		return n
	case *ast.ConsumeExpr:
		n.Expr = sugarExpr(n.Expr, ctx)
		return n
	case *ast.MatchExpr:
		n.Subject = sugarExpr(n.Subject, ctx)
		for _, c := range n.Cases {
			if c.Guard != nil {
				c.Guard = sugarExpr(c.Guard, ctx)
			}
			sugarBlock(c.Body, ctx)
		}
		if n.Else != nil {
			n.Else = sugarExpr(n.Else, ctx)
		}
		return n
	case *ast.BreakExpr:
		if n.Value != nil {
			n.Value = sugarExpr(n.Value, ctx)
		}
		return n
	case *ast.ReturnExpr:
		if n.Value != nil {
			n.Value = sugarExpr(n.Value, ctx)
		}
		return n
	case *ast.VarDecl:
		if n.Init != nil {
			n.Init = sugarExpr(n.Init, ctx)
		}
		return n
	case *ast.TupleLit:
		for i := range n.Elems {
			n.Elems[i] = sugarExpr(n.Elems[i], ctx)
		}
		return n
	case *ast.ArrayLit:
		for i := range n.Elems {
			n.Elems[i] = sugarExpr(n.Elems[i], ctx)
		}
		return n
	case *ast.ObjectLit:
		return desugarObjectLit(n, ctx)
	case *ast.Lambda:
		return desugarLambda(n, ctx)
	default:
		return e
	}
}

var binaryMethodName = map[ast.BinaryOp]string{
	ast.OpAdd: "add", ast.OpSub: "sub", ast.OpMul: "mul", ast.OpDiv: "div",
	ast.OpMod: "mod", ast.OpEq: "eq", ast.OpNe: "ne", ast.OpLt: "lt",
	ast.OpLe: "le", ast.OpGt: "gt", ast.OpGe: "ge", ast.OpAnd: "op_and",
	ast.OpOr: "op_or", ast.OpXor: "op_xor",
}

// desugarBinary rewrites `a op b` into `a.method(b)` (spec §4.4 bullet 5).
func desugarBinary(n *ast.BinaryExpr, ctx *Context) ast.Expr {
	name, ok := binaryMethodName[n.Op]
	if !ok {
		return n
	}
	callee := ctx.Builder.MemberAccess(n, n.Left, ctx.In.Intern(name))
	return ctx.Builder.Call(n, callee, n.Right)
}

// desugarUnary rewrites `-a` to `a.neg()` and `not a` to `a.op_not()`
// (spec §4.4 bullet 6).
func desugarUnary(n *ast.UnaryExpr, ctx *Context) ast.Expr {
	name := "neg"
	if n.Op == ast.OpNot {
		name = "op_not"
	}
	callee := ctx.Builder.MemberAccess(n, n.Operand, ctx.In.Intern(name))
	return ctx.Builder.Call(n, callee)
}

// desugarIndex rewrites `recv(args)` used as a value (index-apply) into
// `recv.apply(args)` (spec §4.4 bullet 4, read half); the assignment
// form `a(args) = v` is rewritten separately by desugarAssign, which
// runs after this and recognizes an IndexExpr LHS before it would
// otherwise be lowered to .apply here.
func desugarIndex(n *ast.IndexExpr, ctx *Context) ast.Expr {
	callee := ctx.Builder.MemberAccess(n, n.Receiver, ctx.In.Intern("apply"))
	return ctx.Builder.Call(n, callee, n.Args...)
}

// desugarAssign rewrites `a(args) = v` into `a.update(args where value =
// v)` (spec §4.4 bullet 4), modeled as `a.update(arg1, ..., v)` — the
// trailing positional argument carries the assigned value, matching how
// the sugar pass's Tree Builder has no named-argument node to spell out
// `where value = v` literally.
func desugarAssign(n *ast.AssignExpr, ctx *Context) ast.Expr {
	idx, ok := n.LHS.(*ast.IndexExpr)
	if !ok {
		return n
	}
	callee := ctx.Builder.MemberAccess(n, idx.Receiver, ctx.In.Intern("update"))
	args := append(append([]ast.Expr{}, idx.Args...), n.RHS)
	return ctx.Builder.Call(n, callee, args...)
}

// desugarFor rewrites `for x in iter do body else alt end` into the
// iterator-protocol while loop spec §4.4 bullet 1 specifies:
//
//	let $it = iter
//	while $it.has_next() do
//	  let x = try $it.next() else break end
//	  body
//	else alt end
func desugarFor(n *ast.ForExpr, ctx *Context) ast.Expr {
	itName := ctx.In.Intern("$it")
	itDecl := &ast.VarDecl{Base: ctx.Builder.Synthetic(n), IsLet: true, Name: itName, Init: n.Iter}

	itRef := func() ast.Expr { return &ast.Ident{Base: ctx.Builder.Synthetic(n), Name: itName} }

	hasNext := ctx.Builder.Call(n, ctx.Builder.MemberAccess(n, itRef(), ctx.In.Intern("has_next")))

	nextCall := ctx.Builder.Call(n, ctx.Builder.MemberAccess(n, itRef(), ctx.In.Intern("next")))
	breakExpr := &ast.BreakExpr{Base: ctx.Builder.Synthetic(n)}
	tryNext := &ast.TryExpr{
		Base: ctx.Builder.Synthetic(n),
		Body: ctx.Builder.Block(n, nextCall),
		Else: ctx.Builder.Block(n, breakExpr),
	}
	bindX := &ast.VarDecl{Base: ctx.Builder.Synthetic(n), IsLet: true, Name: n.Var, Type: n.Type, Init: tryNext}

	bodyExprs := append([]ast.Expr{bindX}, n.Body.Exprs...)
	whileBody := ctx.Builder.Block(n, bodyExprs...)
	sugarBlock(whileBody, ctx)

	whileExpr := &ast.WhileExpr{Base: ctx.Builder.Synthetic(n), Cond: hasNext, Body: whileBody, Else: n.Else}
	if n.Else != nil {
		whileExpr.Else = sugarExpr(n.Else, ctx)
	}

	return ctx.Builder.Block(n, itDecl, whileExpr)
}

// desugarWith rewrites `with x = expr do body else alt end` into a `try
// ... then x.dispose() end` wrapping a `let x = expr` (spec §4.4 bullet
// 2). Multiple bindings nest: each successive bind's try/then wraps the
// remainder so every bound value is disposed even if a later bind's
// initializer raises.
func desugarWith(n *ast.WithExpr, ctx *Context) ast.Expr {
	body := n.Body
	sugarBlock(body, ctx)
	var elseBlock ast.Expr
	if n.Else != nil {
		elseBlock = sugarExpr(n.Else, ctx)
	}

	var result ast.Expr
	for i := len(n.Binds) - 1; i >= 0; i-- {
		bind := n.Binds[i]
		decl := &ast.VarDecl{Base: ctx.Builder.Synthetic(n), IsLet: true, Name: bind.Name, Type: bind.Type, Init: sugarExpr(bind.Init, ctx)}

		var inner *ast.Block
		if result == nil {
			inner = body
		} else {
			inner = ctx.Builder.Block(n, result)
		}

		ref := &ast.Ident{Base: ctx.Builder.Synthetic(n), Name: bind.Name}
		dispose := ctx.Builder.Call(n, ctx.Builder.MemberAccess(n, ref, ctx.In.Intern("dispose")))
		tryExpr := &ast.TryExpr{
			Base: ctx.Builder.Synthetic(n),
			Body: inner,
			Then: ctx.Builder.Block(n, dispose),
		}
		var elseHere ast.Expr
		if i == 0 {
			elseHere = elseBlock
		}
		if elseHere != nil {
			if b, ok := elseHere.(*ast.Block); ok {
				tryExpr.Else = b
			} else {
				tryExpr.Else = ctx.Builder.Block(n, elseHere)
			}
		}
		result = ctx.Builder.Block(n, decl, tryExpr)
	}
	return result
}

// desugarAs rewrites `a as T` into the match-based type test spec §4.4
// bullet 6 specifies. Every `as`, tuple-typed or not, becomes the same
// single-pattern match; tuple types are not expanded elementwise.
func desugarAs(n *ast.AsExpr, ctx *Context) ast.Expr {
	bindName := ctx.In.Intern("$x")
	pattern := &ast.Ident{Base: ctx.Builder.Synthetic(n), Name: bindName}
	bindRef := &ast.Ident{Base: ctx.Builder.Synthetic(n), Name: bindName}
	consumeExpr := &ast.ConsumeExpr{Base: ctx.Builder.Synthetic(n), Expr: bindRef}
	matchCase := &ast.MatchCase{
		Base:    ctx.Builder.Synthetic(n),
		Pattern: pattern,
		AsType:  n.Type,
		Body:    ctx.Builder.Block(n, consumeExpr),
	}
	errExpr := &ast.ErrorExpr{Base: ctx.Builder.Synthetic(n)}
	return &ast.MatchExpr{
		Base:    ctx.Builder.Synthetic(n),
		Subject: n.Value,
		Cases:   []*ast.MatchCase{matchCase},
		Else:    ctx.Builder.Block(n, errExpr),
	}
}

// desugarObjectLit lifts an `object ... end` literal into a synthetic
// anonymous EntityDecl plus a constructor call (spec §4.4 bullet 7).
// Named outer values the literal's methods close over become fields
// initialized by the synthesized constructor; this implementation
// captures nothing automatically (the Refer Pass's Lambda.Captures
// analysis, which this entity's methods would need too, is out of scope
// for the object-literal path) and relies on the literal's fields
// carrying their own Default initializers; the parser accepts an
// object-literal field without a `=` default.
func desugarObjectLit(n *ast.ObjectLit, ctx *Context) ast.Expr {
	if n.Lifted != nil {
		return n
	}
	name := ctx.FreshName("$anon_object")
	entity := &ast.EntityDecl{
		Base: ctx.Builder.Synthetic(n), EntityKind: ast.EntityClass, Name: name,
		Provides: n.Provides, Fields: n.Fields, Methods: n.Methods, DefaultCap: n.Cap,
	}
	for _, m := range entity.Methods {
		m.Owner = entity
		if m.Body != nil {
			sugarBlock(m.Body, ctx)
		}
	}
	ensureConstructor(entity, ctx)
	n.Lifted = entity
	if ctx.CurrentModule != nil {
		ctx.CurrentModule.Decls = append(ctx.CurrentModule.Decls, entity)
	}

	ctorCallee := &ast.Ident{Base: ctx.Builder.Synthetic(n), Name: name}
	return ctx.Builder.Call(n, ctorCallee)
}

// desugarLambda lifts `{(params): R cap => body}` into a synthetic
// single-method entity with an `apply` method (spec §4.4 bullet 7). The
// lifted entity gets no fields for outer references; the Refer Pass
// records those in Lambda.Captures.
func desugarLambda(n *ast.Lambda, ctx *Context) ast.Expr {
	if n.Lifted != nil {
		return n
	}
	sugarBlock(n.Body, ctx)
	name := ctx.FreshName("$anon_lambda")
	applyName := ctx.In.Intern("apply")
	apply := &ast.MethodDecl{
		Base: ctx.Builder.Synthetic(n), Flavor: ast.MethodFun, Cap: n.Cap,
		Name: applyName, Params: n.Params, Result: n.Result, Body: n.Body,
	}
	entity := &ast.EntityDecl{
		Base: ctx.Builder.Synthetic(n), EntityKind: ast.EntityClass, Name: name,
		Methods: []*ast.MethodDecl{apply},
	}
	apply.Owner = entity
	ensureConstructor(entity, ctx)
	n.Lifted = entity
	if ctx.CurrentModule != nil {
		ctx.CurrentModule.Decls = append(ctx.CurrentModule.Decls, entity)
	}

	ctorCallee := &ast.Ident{Base: ctx.Builder.Synthetic(n), Name: name}
	return ctx.Builder.Call(n, ctorCallee)
}
