package passes

import (
	"github.com/veillang/velc/internal/ast"
	"github.com/veillang/velc/internal/errors"
	"github.com/veillang/velc/pkg/ident"
)

// ReferPass tracks definite-assignment/consumption state for every
// local and field of `this`, and resolves value references (`Ident`)
// against the scope tree the Scope Pass built (spec §4.8). State is a
// four-plus-two-valued lattice per spec.md's §3/§4.8 description
// (`undefined`, `defined`, `consumed`, `consumed-in-try`, plus the
// `ast.StatusFFIDecl`/`ast.StatusError` states `internal/ast` carries
// for FFI declarations and already-diagnosed names — this pass never
// assigns those two itself).
type ReferPass struct{}

func (p *ReferPass) Name() string         { return "refer" }
func (p *ReferPass) TargetReach() ast.Pass { return ast.PassRefer }

func (p *ReferPass) Run(prog *ast.Program, ctx *Context) Outcome {
	if prog.Builtin != nil {
		referModules(prog.Builtin.Modules, ctx)
	}
	for _, pkg := range prog.Packages {
		referModules(pkg.Modules, ctx)
	}
	return Ok
}

func referModules(mods []*ast.Module, ctx *Context) {
	for _, mod := range mods {
		ctx.CurrentModule = mod
		for _, d := range mod.Decls {
			if e, ok := d.(*ast.EntityDecl); ok {
				referEntity(e, ctx)
			}
		}
	}
	ctx.CurrentModule = nil
}

func referEntity(e *ast.EntityDecl, ctx *Context) {
	ctx.CurrentEntity = e
	for _, m := range e.Methods {
		referMethod(m, ctx)
	}
	ctx.CurrentEntity = nil
}

func referMethod(m *ast.MethodDecl, ctx *Context) {
	if m.Body == nil {
		return
	}
	ctx.CurrentMethod = m
	st := newFlowState()
	scope := m.Scope()
	for _, param := range m.Params {
		if entry, ok := scope.LookupLocal(param.Name); ok {
			st.vars[entry] = ast.StatusDefined
		}
	}
	referBlock(m.Body, st, ctx)
	ctx.CurrentMethod = nil
}

// flowState is the per-call-path snapshot of every tracked local's
// status plus `this`'s own consumption status (spec §4.8's "this may be
// consumed once"). Entries not present default to StatusDefined: every
// scope entry starts there (ast.Scope.Declare's default), and this map
// only ever records a departure from that default.
type flowState struct {
	vars map[*ast.SymbolEntry]ast.SymbolStatus
	this ast.SymbolStatus
}

func newFlowState() flowState {
	return flowState{vars: map[*ast.SymbolEntry]ast.SymbolStatus{}, this: ast.StatusDefined}
}

func (s flowState) clone() flowState {
	out := flowState{vars: make(map[*ast.SymbolEntry]ast.SymbolStatus, len(s.vars)), this: s.this}
	for k, v := range s.vars {
		out.vars[k] = v
	}
	return out
}

func (s flowState) get(e *ast.SymbolEntry) ast.SymbolStatus {
	if st, ok := s.vars[e]; ok {
		return st
	}
	return ast.StatusDefined
}

// meetFlow merges two control-flow paths at a join point (spec §4.8
// "merging at joins with a meet"): a name keeps its status only if both
// paths agree; otherwise it becomes the more conservative of the two,
// so a later read is still flagged unless the name is reassigned first.
func meetFlow(a, b flowState) flowState {
	out := flowState{vars: map[*ast.SymbolEntry]ast.SymbolStatus{}, this: meetStatus(a.this, b.this)}
	seen := map[*ast.SymbolEntry]bool{}
	for e := range a.vars {
		seen[e] = true
	}
	for e := range b.vars {
		seen[e] = true
	}
	for e := range seen {
		out.vars[e] = meetStatus(a.get(e), b.get(e))
	}
	return out
}

func meetStatus(a, b ast.SymbolStatus) ast.SymbolStatus {
	if a == b {
		return a
	}
	if a == ast.StatusUndefined || b == ast.StatusUndefined {
		return ast.StatusUndefined
	}
	if a == ast.StatusDefined && b == ast.StatusDefined {
		return ast.StatusDefined
	}
	// one side consumed (or consumed-in-try), the other not: the merged
	// name is only conditionally gone, matching "consumed-in-try"'s
	// "reassign to clear" discipline.
	return ast.StatusConsumedInTry
}

func referBlock(b *ast.Block, st flowState, ctx *Context) flowState {
	scope := b.Scope()
	for _, e := range b.Exprs {
		st = referExpr(e, scope, st, ctx)
	}
	return st
}

// referExpr evaluates e against st under scope and returns the state
// afterward, resolving every Ident it encounters as a value reference
// (spec §4.6's division: type refs are the Name Pass's job, value refs
// are this pass's) and reporting reads of undefined/consumed names
// (spec §4.8). scope is the nearest enclosing symbol table, threaded
// down exactly like the Name Pass's nameExpr, since most expression
// kinds introduce no scope of their own.
func referExpr(e ast.Expr, scope *ast.Scope, st flowState, ctx *Context) flowState {
	switch n := e.(type) {
	case *ast.Ident:
		entry, ok := scope.Lookup(n.Name)
		if !ok {
			return st
		}
		n.Resolved = entry
		checkRead(entry, st, n, ctx)
		return st
	case *ast.This:
		if st.this == ast.StatusConsumed || st.this == ast.StatusConsumedInTry {
			ctx.Reporter.Errorf(errors.Semantic, n.Pos(), "use of 'this' after it has been consumed")
		}
		return st
	case *ast.VarDecl:
		if n.Init != nil {
			st = referExpr(n.Init, scope, st, ctx)
		}
		if entry, ok := scope.LookupLocal(n.Name); ok {
			if n.Init != nil {
				st.vars[entry] = ast.StatusDefined
			} else {
				st.vars[entry] = ast.StatusUndefined
			}
		}
		return st
	case *ast.AssignExpr:
		st = referExpr(n.RHS, scope, st, ctx)
		switch lhs := n.LHS.(type) {
		case *ast.Ident:
			if entry, ok := scope.Lookup(lhs.Name); ok {
				lhs.Resolved = entry
				st.vars[entry] = ast.StatusDefined
			}
			return st
		case *ast.This:
			st.this = ast.StatusDefined
			return st
		default:
			return referExpr(n.LHS, scope, st, ctx)
		}
	case *ast.ConsumeExpr:
		return referConsume(n, scope, st, ctx)
	case *ast.BinaryExpr:
		st = referExpr(n.Left, scope, st, ctx)
		return referExpr(n.Right, scope, st, ctx)
	case *ast.UnaryExpr:
		return referExpr(n.Operand, scope, st, ctx)
	case *ast.IsExpr:
		st = referExpr(n.Left, scope, st, ctx)
		return referExpr(n.Right, scope, st, ctx)
	case *ast.AsExpr:
		return referExpr(n.Value, scope, st, ctx)
	case *ast.Call:
		st = referExpr(n.Callee, scope, st, ctx)
		for _, a := range n.Args {
			st = referExpr(a, scope, st, ctx)
		}
		return st
	case *ast.FFICall:
		for _, a := range n.Args {
			st = referExpr(a, scope, st, ctx)
		}
		return st
	case *ast.MemberAccess:
		return referExpr(n.Receiver, scope, st, ctx)
	case *ast.IndexExpr:
		st = referExpr(n.Receiver, scope, st, ctx)
		for _, a := range n.Args {
			st = referExpr(a, scope, st, ctx)
		}
		return st
	case *ast.TupleLit:
		for _, el := range n.Elems {
			st = referExpr(el, scope, st, ctx)
		}
		return st
	case *ast.ArrayLit:
		for _, el := range n.Elems {
			st = referExpr(el, scope, st, ctx)
		}
		return st
	case *ast.BreakExpr:
		if n.Value != nil {
			st = referExpr(n.Value, scope, st, ctx)
		}
		return st
	case *ast.ReturnExpr:
		if n.Value != nil {
			st = referExpr(n.Value, scope, st, ctx)
		}
		return st
	case *ast.Block:
		return referBlock(n, st, ctx)
	case *ast.IfExpr:
		return referIf(n, scope, st, ctx)
	case *ast.IfDefExpr:
		thenSt := referBlock(n.Then, st.clone(), ctx)
		if n.Else != nil {
			elseSt := referExpr(n.Else, scope, st.clone(), ctx)
			return meetFlow(thenSt, elseSt)
		}
		return meetFlow(thenSt, st)
	case *ast.IfTypeExpr:
		thenSt := referBlock(n.Then, st.clone(), ctx)
		if n.Else != nil {
			elseSt := referExpr(n.Else, scope, st.clone(), ctx)
			return meetFlow(thenSt, elseSt)
		}
		return meetFlow(thenSt, st)
	case *ast.WhileExpr:
		return referWhile(n, scope, st, ctx)
	case *ast.RepeatExpr:
		return referRepeat(n, scope, st, ctx)
	case *ast.WithExpr:
		withScope := n.Scope()
		for _, bind := range n.Binds {
			st = referExpr(bind.Init, scope, st, ctx)
			if entry, ok := withScope.LookupLocal(bind.Name); ok {
				st.vars[entry] = ast.StatusDefined
			}
		}
		st = referBlock(n.Body, st, ctx)
		if n.Else != nil {
			st = meetFlow(st, referExpr(n.Else, scope, st.clone(), ctx))
		}
		return st
	case *ast.TryExpr:
		return referTry(n, st, ctx)
	case *ast.RecoverExpr:
		return referBlock(n.Body, st.clone(), ctx)
	case *ast.MatchExpr:
		return referMatch(n, scope, st, ctx)
	case *ast.Lambda:
		referLambda(n, ctx)
		return st
	case *ast.ObjectLit:
		for _, m := range n.Methods {
			if m.Body != nil {
				referBlock(m.Body, newFlowState(), ctx)
			}
		}
		return st
	default:
		return st
	}
}

func checkRead(entry *ast.SymbolEntry, st flowState, at *ast.Ident, ctx *Context) {
	switch st.get(entry) {
	case ast.StatusUndefined:
		ctx.Reporter.Errorf(errors.Semantic, at.Pos(), "use of '%s' before it is defined", ctx.In.Text(entry.Name))
	case ast.StatusConsumed, ast.StatusConsumedInTry:
		ctx.Reporter.Errorf(errors.Semantic, at.Pos(), "use of '%s' after it has been consumed", ctx.In.Text(entry.Name))
	}
}

func referConsume(n *ast.ConsumeExpr, scope *ast.Scope, st flowState, ctx *Context) flowState {
	st = referExpr(n.Expr, scope, st, ctx)
	switch target := n.Expr.(type) {
	case *ast.Ident:
		if entry, ok := scope.Lookup(target.Name); ok {
			if f, isField := entry.Def.(*ast.FieldDecl); isField && f.FieldKind != ast.FieldVar {
				ctx.Reporter.Errorf(errors.Semantic, n.Pos(), "'%s' may not be consumed: let/embed fields are immutable", ctx.In.Text(entry.Name))
				return st
			}
			st.vars[entry] = ast.StatusConsumed
		}
	case *ast.This:
		st.this = ast.StatusConsumed
	}
	return st
}

func referIf(n *ast.IfExpr, scope *ast.Scope, st flowState, ctx *Context) flowState {
	st = referExpr(n.Cond, scope, st, ctx)
	thenSt := referBlock(n.Then, st.clone(), ctx)
	if n.Else != nil {
		elseSt := referExpr(n.Else, scope, st.clone(), ctx)
		return meetFlow(thenSt, elseSt)
	}
	return meetFlow(thenSt, st)
}

// referWhile implements spec §4.8's loop rule: the condition may not
// consume names from outside the loop, so it runs against a read-only
// snapshot; a name consumed anywhere in the body and not reassigned by
// the body's end is forbidden after the loop (kept at its consumed
// status in the post-loop state rather than reset).
func referWhile(n *ast.WhileExpr, scope *ast.Scope, st flowState, ctx *Context) flowState {
	referExpr(n.Cond, scope, st.clone(), ctx)

	bodySt := referBlock(n.Body, st.clone(), ctx)
	zeroIter := st.clone()
	if n.Else != nil {
		zeroIter = referExpr(n.Else, scope, zeroIter, ctx)
	}
	return meetFlow(bodySt, zeroIter)
}

func referRepeat(n *ast.RepeatExpr, scope *ast.Scope, st flowState, ctx *Context) flowState {
	bodySt := referBlock(n.Body, st.clone(), ctx)
	bodySt = referExpr(n.Until, n.Body.Scope(), bodySt, ctx)
	if n.Else != nil {
		elseSt := referExpr(n.Else, scope, st.clone(), ctx)
		return meetFlow(bodySt, elseSt)
	}
	return bodySt
}

// referTry implements spec §4.8's try/else/then rule: locals consumed
// partway through body before an error might still be gone when else
// runs, so every entry the body consumes is seeded ConsumedInTry going
// into else rather than carried over at its exact post-body status.
func referTry(n *ast.TryExpr, st flowState, ctx *Context) flowState {
	preThis := st.this
	bodySt := referBlock(n.Body, st.clone(), ctx)

	elseStart := st.clone()
	for e, status := range bodySt.vars {
		if status == ast.StatusConsumed || status == ast.StatusConsumedInTry {
			elseStart.vars[e] = ast.StatusConsumedInTry
		}
	}
	if bodySt.this == ast.StatusConsumed || bodySt.this == ast.StatusConsumedInTry {
		elseStart.this = ast.StatusConsumedInTry
	} else {
		elseStart.this = preThis
	}

	merged := bodySt
	if n.Else != nil {
		elseSt := referBlock(n.Else, elseStart, ctx)
		merged = meetFlow(bodySt, elseSt)
	} else {
		merged = meetFlow(bodySt, elseStart)
	}
	if n.Then != nil {
		merged = referBlock(n.Then, merged, ctx)
	}
	return merged
}

func referMatch(n *ast.MatchExpr, scope *ast.Scope, st flowState, ctx *Context) flowState {
	st = referExpr(n.Subject, scope, st, ctx)
	var result flowState
	has := false
	for _, c := range n.Cases {
		caseScope := c.Scope()
		caseSt := st.clone()
		if c.Guard != nil {
			caseSt = referExpr(c.Guard, caseScope, caseSt, ctx)
		}
		caseSt = referBlock(c.Body, caseSt, ctx)
		if !has {
			result, has = caseSt, true
		} else {
			result = meetFlow(result, caseSt)
		}
	}
	if n.Else != nil {
		elseSt := referExpr(n.Else, scope, st.clone(), ctx)
		if has {
			result = meetFlow(result, elseSt)
		} else {
			result, has = elseSt, true
		}
	}
	if !has {
		return st
	}
	return result
}

// referLambda runs the lambda body with a fresh flow state (a closure's
// captured locals keep whatever status they had at the point of
// capture in the surrounding call's value semantics, not a live alias
// into the enclosing flow map) and records every name the body
// resolves to an entry declared outside the lambda's own scope as a
// capture (spec §4.4's lifting needs this to build the synthesized
// entity's fields).
func referLambda(n *ast.Lambda, ctx *Context) {
	inner := newFlowState()
	scope := n.Scope()
	for _, param := range n.Params {
		if entry, ok := scope.LookupLocal(param.Name); ok {
			inner.vars[entry] = ast.StatusDefined
		}
	}
	referBlock(n.Body, inner, ctx)

	seen := map[ident.ID]bool{}
	var captures []ident.ID
	for _, x := range n.Body.Exprs {
		collectCaptures(x, scope, &captures, seen)
	}
	n.Captures = captures
}

// collectCaptures walks e looking for Ident nodes already resolved (by
// this same pass's earlier referBlock(n.Body, ...) call) to an entry
// declared outside lambdaScope — those are the lambda's free variables.
func collectCaptures(e ast.Expr, lambdaScope *ast.Scope, out *[]ident.ID, seen map[ident.ID]bool) {
	switch n := e.(type) {
	case *ast.Ident:
		if n.Resolved == nil || seen[n.Name] {
			return
		}
		if boundWithin(lambdaScope, n.Name) {
			return
		}
		seen[n.Name] = true
		*out = append(*out, n.Name)
	case *ast.Block:
		for _, x := range n.Exprs {
			collectCaptures(x, lambdaScope, out, seen)
		}
	case *ast.BinaryExpr:
		collectCaptures(n.Left, lambdaScope, out, seen)
		collectCaptures(n.Right, lambdaScope, out, seen)
	case *ast.UnaryExpr:
		collectCaptures(n.Operand, lambdaScope, out, seen)
	case *ast.Call:
		collectCaptures(n.Callee, lambdaScope, out, seen)
		for _, a := range n.Args {
			collectCaptures(a, lambdaScope, out, seen)
		}
	case *ast.MemberAccess:
		collectCaptures(n.Receiver, lambdaScope, out, seen)
	case *ast.IndexExpr:
		collectCaptures(n.Receiver, lambdaScope, out, seen)
		for _, a := range n.Args {
			collectCaptures(a, lambdaScope, out, seen)
		}
	case *ast.AssignExpr:
		collectCaptures(n.LHS, lambdaScope, out, seen)
		collectCaptures(n.RHS, lambdaScope, out, seen)
	case *ast.VarDecl:
		if n.Init != nil {
			collectCaptures(n.Init, lambdaScope, out, seen)
		}
	case *ast.IfExpr:
		collectCaptures(n.Cond, lambdaScope, out, seen)
		for _, x := range n.Then.Exprs {
			collectCaptures(x, lambdaScope, out, seen)
		}
		if n.Else != nil {
			collectCaptures(n.Else, lambdaScope, out, seen)
		}
	case *ast.ReturnExpr:
		if n.Value != nil {
			collectCaptures(n.Value, lambdaScope, out, seen)
		}
	}
}

// boundWithin reports whether name resolves inside lambdaScope itself
// rather than in an enclosing scope: it walks outward from lambdaScope
// to the first scope that binds name and reports whether that scope is
// lambdaScope itself.
func boundWithin(lambdaScope *ast.Scope, name ident.ID) bool {
	for sc := lambdaScope; sc != nil; sc = sc.Parent {
		if _, ok := sc.LookupLocal(name); ok {
			return sc == lambdaScope
		}
	}
	return false
}
