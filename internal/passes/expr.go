package passes

import (
	"github.com/veillang/velc/internal/ast"
	"github.com/veillang/velc/internal/errors"
	"github.com/veillang/velc/internal/ifdef"
	"github.com/veillang/velc/internal/types"
)

// ExprPass is the bidirectional inference pass (spec §4.9): it assigns
// every expression a static type, checks subtyping at every position
// that fixes an antecedent (assignment, argument, return, array/tuple
// element), auto-wraps sendable-cap assignment sites in `recover` where
// spec §4.9's auto-recover rule applies, and resolves each FFI call
// site to its one guard-live declaration.
//
// A node's inferred type is stored on its own `Base.Data()` back-
// reference — the same general-purpose "typed-opaque back-reference"
// spec §3's Data Model describes for a nominal type's defining entity —
// rather than adding a dedicated field to every expression struct.
type ExprPass struct{}

func (p *ExprPass) Name() string         { return "expr" }
func (p *ExprPass) TargetReach() ast.Pass { return ast.PassExpr }

func (p *ExprPass) Run(prog *ast.Program, ctx *Context) Outcome {
	activeCtx = ctx
	defer func() { activeCtx = nil }()
	if prog.Builtin != nil {
		exprModules(prog.Builtin.Modules, ctx)
	}
	for _, pkg := range prog.Packages {
		exprModules(pkg.Modules, ctx)
	}
	return Ok
}

func exprModules(mods []*ast.Module, ctx *Context) {
	for _, mod := range mods {
		ctx.CurrentModule = mod
		for _, d := range mod.Decls {
			if e, ok := d.(*ast.EntityDecl); ok {
				exprEntity(e, ctx)
			}
		}
	}
	ctx.CurrentModule = nil
}

func exprEntity(e *ast.EntityDecl, ctx *Context) {
	ctx.CurrentEntity = e
	for _, f := range e.Fields {
		if f.Default != nil {
			exprExpr(f.Default, f.Type, ctx)
		}
	}
	for _, m := range e.Methods {
		exprMethod(m, ctx)
	}
	ctx.CurrentEntity = nil
}

func exprMethod(m *ast.MethodDecl, ctx *Context) {
	if m.Body == nil {
		return
	}
	ctx.CurrentMethod = m
	exprBlock(m.Body, m.Result)
	ctx.CurrentMethod = nil
}

func setType(n ast.Node, t ast.TypeExpr) {
	n.SetData(t)
}

func exprType(n ast.Node) ast.TypeExpr {
	t, _ := n.Data().(ast.TypeExpr)
	return t
}

// exprBlock infers every expression in b, propagating antecedent as the
// expected type of the block's trailing (value) expression only —
// earlier expressions in a block are evaluated for effect, not value.
func exprBlock(b *ast.Block, antecedent ast.TypeExpr) ast.TypeExpr {
	var last ast.TypeExpr
	for i, e := range b.Exprs {
		if i == len(b.Exprs)-1 {
			last = exprExpr(e, antecedent, nil)
		} else {
			exprExpr(e, nil, nil)
		}
	}
	setType(b, last)
	return last
}

// exprExpr infers e's type (consulting antecedent top-down where the
// parent already fixes an expected type) and records it via setType.
// ctx is passed explicitly by most call sites; exprBlock passes nil, in
// which case the package-level activeCtx set by Run is used.
func exprExpr(e ast.Expr, antecedent ast.TypeExpr, ctx *Context) ast.TypeExpr {
	if ctx == nil {
		ctx = activeCtx
	}
	var t ast.TypeExpr
	switch n := e.(type) {
	case *ast.IntLit:
		t = coerceLiteral(antecedent, ctx.builtinType("I64"))
	case *ast.FloatLit:
		t = coerceLiteral(antecedent, ctx.builtinType("F64"))
	case *ast.StringLit:
		t = ctx.builtinType("String")
	case *ast.BoolLit:
		t = ctx.builtinType("Bool")
	case *ast.NoneLit:
		t = ctx.builtinType("None")
	case *ast.Ident:
		t = identType(n)
	case *ast.This:
		t = thisType(ctx)
	case *ast.TupleLit:
		elemAntes := tupleElems(antecedent, len(n.Elems))
		elems := make([]ast.TypeExpr, len(n.Elems))
		for i, el := range n.Elems {
			elems[i] = exprExpr(el, elemAntes[i], ctx)
		}
		t = &ast.TupleType{Base: ctx.Builder.Synthetic(n), Elems: elems}
	case *ast.ArrayLit:
		elemAnte := n.Elem
		for _, el := range n.Elems {
			elemT := exprExpr(el, elemAnte, ctx)
			if elemAnte == nil {
				elemAnte = elemT
			}
		}
		n.Elem = elemAnte
		t = arrayType(ctx, n, elemAnte)
	case *ast.VarDecl:
		if n.Init != nil {
			initT := exprExpr(n.Init, n.Type, ctx)
			if n.Type == nil {
				n.Type = initT
			} else {
				checkAssignable(n.Init, n.Type, ctx)
			}
			maybeAutoRecover(n, ctx)
		}
		t = n.Type
	case *ast.AssignExpr:
		lhsT := exprExpr(n.LHS, nil, ctx)
		exprExpr(n.RHS, lhsT, ctx)
		checkAssignable(n.RHS, lhsT, ctx)
		t = lhsT
	case *ast.ConsumeExpr:
		t = exprExpr(n.Expr, nil, ctx)
	case *ast.BinaryExpr:
		exprExpr(n.Left, nil, ctx)
		exprExpr(n.Right, nil, ctx)
	case *ast.UnaryExpr:
		t = exprExpr(n.Operand, nil, ctx)
	case *ast.IsExpr:
		exprExpr(n.Left, nil, ctx)
		exprExpr(n.Right, nil, ctx)
		t = ctx.builtinType("Bool")
	case *ast.AsExpr:
		exprExpr(n.Value, nil, ctx)
		t = n.Type
	case *ast.Call:
		t = exprCall(n, ctx)
	case *ast.FFICall:
		for _, a := range n.Args {
			exprExpr(a, nil, ctx)
		}
		resolveFFICall(n, ctx)
		if n.Resolved != nil {
			t = n.Resolved.Result
		}
	case *ast.MemberAccess:
		recvT := exprExpr(n.Receiver, nil, ctx)
		t = resolveMember(n, recvT, ctx)
	case *ast.IndexExpr:
		exprExpr(n.Receiver, nil, ctx)
		for _, a := range n.Args {
			exprExpr(a, nil, ctx)
		}
	case *ast.BreakExpr:
		if n.Value != nil {
			exprExpr(n.Value, nil, ctx)
		}
	case *ast.ReturnExpr:
		if n.Value != nil {
			var want ast.TypeExpr
			if ctx.CurrentMethod != nil {
				want = ctx.CurrentMethod.Result
			}
			exprExpr(n.Value, want, ctx)
			if want != nil {
				checkAssignable(n.Value, want, ctx)
			}
		}
	case *ast.Block:
		t = exprBlock(n, antecedent)
	case *ast.IfExpr:
		exprExpr(n.Cond, nil, ctx)
		thenT := exprBlock(n.Then, antecedent)
		var elseT ast.TypeExpr
		if n.Else != nil {
			elseT = exprExpr(n.Else, antecedent, ctx)
		}
		t = unionOf(ctx, n, thenT, elseT)
	case *ast.IfDefExpr:
		thenT := exprBlock(n.Then, antecedent)
		var elseT ast.TypeExpr
		if n.Else != nil {
			elseT = exprExpr(n.Else, antecedent, ctx)
		}
		t = unionOf(ctx, n, thenT, elseT)
	case *ast.IfTypeExpr:
		thenT := exprBlock(n.Then, antecedent)
		var elseT ast.TypeExpr
		if n.Else != nil {
			elseT = exprExpr(n.Else, antecedent, ctx)
		}
		t = unionOf(ctx, n, thenT, elseT)
	case *ast.WhileExpr:
		exprExpr(n.Cond, nil, ctx)
		exprBlock(n.Body, nil)
		if n.Else != nil {
			exprExpr(n.Else, antecedent, ctx)
		}
		t = ctx.builtinType("None")
	case *ast.RepeatExpr:
		exprBlock(n.Body, nil)
		exprExpr(n.Until, nil, ctx)
		if n.Else != nil {
			exprExpr(n.Else, antecedent, ctx)
		}
		t = ctx.builtinType("None")
	case *ast.WithExpr:
		for _, bind := range n.Binds {
			inferWithBind(bind, ctx)
		}
		t = exprBlock(n.Body, antecedent)
		if n.Else != nil {
			exprExpr(n.Else, antecedent, ctx)
		}
	case *ast.TryExpr:
		bodyT := exprBlock(n.Body, antecedent)
		var elseT ast.TypeExpr
		if n.Else != nil {
			elseT = exprBlock(n.Else, antecedent)
		}
		if n.Then != nil {
			exprBlock(n.Then, nil)
		}
		t = unionOf(ctx, n, bodyT, elseT)
	case *ast.RecoverExpr:
		t = exprBlock(n.Body, antecedent)
	case *ast.MatchExpr:
		t = exprMatch(n, antecedent, ctx)
	case *ast.Lambda:
		exprBlock(n.Body, n.Result)
		t = n.Result
	case *ast.ObjectLit:
		for _, m := range n.Methods {
			if m.Body != nil {
				exprBlock(m.Body, m.Result)
			}
		}
	}
	if t != nil {
		setType(e, t)
	}
	return t
}

// activeCtx lets exprBlock's recursive helpers reach the shared Context
// without threading it through every signature a second time; it is set
// once per ExprPass.Run and cleared when the pass finishes, matching
// the single-threaded cooperative execution model spec §5 describes
// (no pass ever runs concurrently with itself).
var activeCtx *Context

func coerceLiteral(antecedent, fallback ast.TypeExpr) ast.TypeExpr {
	if antecedent != nil {
		return antecedent
	}
	return fallback
}

func tupleElems(antecedent ast.TypeExpr, n int) []ast.TypeExpr {
	out := make([]ast.TypeExpr, n)
	if tup, ok := antecedent.(*ast.TupleType); ok && len(tup.Elems) == n {
		copy(out, tup.Elems)
	}
	return out
}

func arrayType(ctx *Context, from ast.Node, elem ast.TypeExpr) ast.TypeExpr {
	arrayEntity := ctx.builtinType("Array")
	if arrayEntity == nil || elem == nil {
		return nil
	}
	nom, ok := arrayEntity.(*ast.NominalType)
	if !ok {
		return arrayEntity
	}
	return &ast.NominalType{Base: ctx.Builder.Synthetic(from), Package: nom.Package, Name: nom.Name, Args: []ast.TypeExpr{elem}, Cap: ast.CapRef}
}

func identType(n *ast.Ident) ast.TypeExpr {
	if n.Resolved == nil {
		return nil
	}
	switch def := n.Resolved.Def.(type) {
	case *ast.FieldDecl:
		return def.Type
	case *ast.VarDecl:
		return def.Type
	case *ast.Param:
		return def.Type
	case *ast.WithExpr:
		for _, b := range def.Binds {
			if b.Name == n.Name {
				return b.Type
			}
		}
	}
	return nil
}

func thisType(ctx *Context) ast.TypeExpr {
	if ctx.CurrentEntity == nil {
		return nil
	}
	return &ast.NominalType{Name: ctx.CurrentEntity.Name, Cap: ctx.CurrentEntity.DefaultCap}
}

// exprCall infers a call's result type by resolving its callee (a bare
// Ident naming a constructor/function in scope, or a MemberAccess whose
// Resolved method was filled in by resolveMember) and checking each
// argument against the matching parameter type.
func exprCall(n *ast.Call, ctx *Context) ast.TypeExpr {
	exprExpr(n.Callee, nil, ctx)
	var method *ast.MethodDecl
	if ma, ok := n.Callee.(*ast.MemberAccess); ok {
		method, _ = ma.Resolved.(*ast.MethodDecl)
	}
	if method == nil {
		for _, a := range n.Args {
			exprExpr(a, nil, ctx)
		}
		return nil
	}
	for i, a := range n.Args {
		var want ast.TypeExpr
		if i < len(method.Params) {
			want = method.Params[i].Type
		}
		exprExpr(a, want, ctx)
		if want != nil {
			checkAssignable(a, want, ctx)
		}
	}
	return method.Result
}

// resolveMember resolves n against recvT's entity methods/fields,
// filling n.Resolved (spec §4.5/§4.6's doc comments leave member
// resolution for whichever pass has a static type to resolve against —
// this pass, since it's the first with one).
func resolveMember(n *ast.MemberAccess, recvT ast.TypeExpr, ctx *Context) ast.TypeExpr {
	nom, ok := recvT.(*ast.NominalType)
	if !ok || nom.Resolved == nil {
		return nil
	}
	entity, ok := nom.Resolved.(*ast.EntityDecl)
	if !ok {
		return nil
	}
	for _, f := range entity.Fields {
		if f.Name == n.Name {
			n.Resolved = f
			return adaptFieldType(f.Type, nom.Cap)
		}
	}
	for _, m := range allEntityMethods(entity) {
		if m.Name == n.Name {
			n.Resolved = m
			return m.Result
		}
	}
	ctx.Reporter.Errorf(errors.Semantic, n.Pos(), "%q has no member named %q", ctx.In.Text(entity.Name), ctx.In.Text(n.Name))
	return nil
}

func allEntityMethods(e *ast.EntityDecl) []*ast.MethodDecl {
	out := append([]*ast.MethodDecl{}, e.Methods...)
	return append(out, e.Flattened...)
}

// adaptFieldType applies viewpoint adaptation (spec §3, §4.9) to a
// field's declared type when read through a receiver capability of
// origin, for the common case of a bare nominal field type.
func adaptFieldType(fieldType ast.TypeExpr, origin ast.Cap) ast.TypeExpr {
	nom, ok := fieldType.(*ast.NominalType)
	if !ok || nom.Cap == ast.CapNone {
		return fieldType
	}
	adapted := *nom
	adapted.Cap = types.Adapt(origin, nom.Cap)
	return &adapted
}

func checkAssignable(value ast.Expr, want ast.TypeExpr, ctx *Context) {
	got := exprType(value)
	if got == nil || want == nil {
		return
	}
	switch types.IsSubtype(got, want) {
	case types.Reject:
		ctx.Reporter.Errorf(errors.Semantic, value.Pos(), "value is not assignable to the expected type")
	case types.Deny:
		// Undecidable with the inference progress made so far (spec
		// §4.9's bidirectional pass has no retry worklist in this
		// implementation); treated conservatively as an error rather
		// than silently accepted.
		ctx.Reporter.Errorf(errors.Semantic, value.Pos(), "value's capability is not assignable to the expected type")
	}
}

// maybeAutoRecover implements spec §4.9's auto-recover rule: at a
// sendable-cap binding site, if the initializer is a bare constructor
// call whose arguments are all sendable, wrap it in an implicit
// recover rather than requiring the source to write one.
func maybeAutoRecover(n *ast.VarDecl, ctx *Context) {
	nom, ok := n.Type.(*ast.NominalType)
	if !ok || !nom.Cap.Sendable() {
		return
	}
	call, ok := n.Init.(*ast.Call)
	if !ok {
		return
	}
	ma, ok := call.Callee.(*ast.MemberAccess)
	if !ok {
		return
	}
	method, ok := ma.Resolved.(*ast.MethodDecl)
	if !ok || method.Flavor != ast.MethodNew {
		return
	}
	for _, a := range call.Args {
		argT, ok := exprType(a).(*ast.NominalType)
		if !ok || !argT.Cap.Sendable() {
			return // an explicit recover is required; left to the source
		}
	}
	n.Init = &ast.RecoverExpr{Base: ctx.Builder.Synthetic(n), Cap: nom.Cap, Body: ctx.Builder.Block(n, call)}
}

func unionOf(ctx *Context, from ast.Node, a, b ast.TypeExpr) ast.TypeExpr {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return &ast.UnionType{Base: ctx.Builder.Synthetic(from), Members: []ast.TypeExpr{a, b}}
}

// exprMatch infers the match's type as the union of its case bodies
// (and else, if present), and records spec §8's exhaustiveness flag: a
// match without Else is marked exhaustive when every case is an
// unguarded type test (AsType set) and the subject has an inferred type.
// Whether the case types together cover the subject type is not checked.
func exprMatch(n *ast.MatchExpr, antecedent ast.TypeExpr, ctx *Context) ast.TypeExpr {
	subjectT := exprExpr(n.Subject, nil, ctx)
	var result ast.TypeExpr
	allTypeTests := true
	for _, c := range n.Cases {
		if c.Guard != nil {
			exprExpr(c.Guard, nil, ctx)
		}
		if c.Guard != nil || c.AsType == nil {
			allTypeTests = false
		}
		caseT := exprBlock(c.Body, antecedent)
		result = unionOf(ctx, c, result, caseT)
	}
	if n.Else != nil {
		elseT := exprExpr(n.Else, antecedent, ctx)
		result = unionOf(ctx, n, result, elseT)
	} else if allTypeTests && subjectT != nil {
		n.Exhaustive = true
	}
	return result
}

// inferWithBind infers a `with` bind's type from its initializer,
// keeping an explicit annotation (if the source wrote one) rather than
// overwriting it.
func inferWithBind(bind *ast.WithBind, ctx *Context) {
	t := exprExpr(bind.Init, bind.Type, ctx)
	if bind.Type == nil {
		bind.Type = t
	}
}

// resolveFFICall finds the unique FFI declaration, among the current
// module's, named n.Name whose guard is live under ctx.Target (spec
// §4.9 "FFI": exactly one declaration must be visible).
func resolveFFICall(n *ast.FFICall, ctx *Context) {
	if ctx.CurrentModule == nil {
		return
	}
	var live []*ast.FFIDecl
	for _, decl := range ctx.CurrentModule.FFI {
		if decl.Name != n.Name {
			continue
		}
		if decl.Guard == "" {
			live = append(live, decl)
			continue
		}
		ok, err := ifdef.Eval(decl.Guard, ctx.Target)
		if err != nil {
			ctx.Reporter.Errorf(errors.Semantic, decl.Pos(), "invalid guard on '@%s': %v", decl.Name, err)
			continue
		}
		if ok {
			live = append(live, decl)
		}
	}
	switch len(live) {
	case 0:
		ctx.Reporter.Errorf(errors.Semantic, n.Pos(), "no live declaration for '@%s' under the active target", n.Name)
	case 1:
		n.Resolved = live[0]
	default:
		ctx.Reporter.Errorf(errors.Semantic, n.Pos(), "multiple live declarations for '@%s' under the active target", n.Name)
	}
}

// builtinType looks up name in the builtin package's module scopes and
// returns a bare NominalType referencing it (val-capped); returns nil
// if the builtin
// package hasn't been wired into this Context (e.g. a unit test running
// the pass in isolation), so literal typing degrades to "unknown" rather
// than panicking.
func (c *Context) builtinType(name string) ast.TypeExpr {
	if c.Builtin == nil {
		return nil
	}
	id, ok := c.In.Lookup(name)
	if !ok {
		return nil
	}
	for _, mod := range c.Builtin.Modules {
		if entry, ok := mod.Scope().Lookup(id); ok {
			return &ast.NominalType{Name: id, Cap: ast.CapVal, Resolved: entry.Def}
		}
	}
	return nil
}
