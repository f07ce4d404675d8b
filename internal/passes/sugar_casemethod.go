package passes

import (
	"github.com/veillang/velc/internal/ast"
	"github.com/veillang/velc/internal/errors"
	"github.com/veillang/velc/pkg/ident"
)

// mergeCaseMethods groups e's methods by (Name, Flavor) and replaces
// every group of two or more into a dispatching pair: a wrapper method
// that keeps the original name and signature shape (its parameter and
// result types widened to the union of every case's), and a worker
// method holding a match expression with one case per original body
// (spec §4.4 "case methods", supplemented from original_source's
// casemethod.c since the distilled spec doesn't name the feature
// directly).
//
// Unlike Pony, every Vel parameter is `name: Type` — there is no
// literal-valued parameter syntax — so the merge never needs casemethod.c's
// value-pattern machinery: a case method's parameter list already
// resolves to an ordinary type pattern directly.
func mergeCaseMethods(e *ast.EntityDecl, ctx *Context) {
	groups := make(map[caseMethodKey][]*ast.MethodDecl)
	var order []caseMethodKey
	for _, m := range e.Methods {
		key := caseMethodKey{name: m.Name, flavor: m.Flavor}
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], m)
	}

	var rebuilt []*ast.MethodDecl
	handled := make(map[*ast.MethodDecl]bool)
	for _, key := range order {
		members := groups[key]
		if len(members) < 2 {
			continue
		}
		wrapper, worker, ok := buildCaseMethodPair(e, members, ctx)
		if !ok {
			// Leave the originals in place; the error was already
			// reported by buildCaseMethodPair.
			continue
		}
		for _, m := range members {
			handled[m] = true
		}
		rebuilt = append(rebuilt, wrapper, worker)
	}

	if len(rebuilt) == 0 {
		return
	}

	out := make([]*ast.MethodDecl, 0, len(e.Methods))
	for _, m := range e.Methods {
		if handled[m] {
			continue
		}
		out = append(out, m)
	}
	out = append(out, rebuilt...)
	e.Methods = out
}

type caseMethodKey struct {
	name   ident.ID
	flavor ast.MethodFlavor
}

// buildCaseMethodPair merges members (all sharing a name and flavor,
// len >= 2) into a wrapper/worker pair, mirroring casemethod.c's
// sugar_case_method: add_case_method unions each case's parameter and
// result types into the wrapper's, then emits one TK_CASE match arm per
// case; build_params/build_t_params then mint the worker's hygienic
// parameters and the match operand built from them.
func buildCaseMethodPair(e *ast.EntityDecl, members []*ast.MethodDecl, ctx *Context) (wrapper, worker *ast.MethodDecl, ok bool) {
	first := members[0]
	arity := len(first.Params)
	if arity == 0 {
		ctx.Reporter.Errorf(errors.Semantic, first.Pos(),
			"case method %q has no parameters to distinguish its cases on", ctx.In.Text(first.Name))
		return nil, nil, false
	}
	for _, m := range members[1:] {
		if m.Cap != first.Cap {
			ctx.Reporter.Errorf(errors.Semantic, m.Pos(),
				"case method %q must share the same receiver capability across all cases", ctx.In.Text(m.Name))
			return nil, nil, false
		}
		if len(m.Params) != arity {
			ctx.Reporter.Errorf(errors.Semantic, m.Pos(),
				"case method %q must declare the same number of parameters in every case", ctx.In.Text(m.Name))
			return nil, nil, false
		}
		if len(m.TypeParams) != len(first.TypeParams) {
			ctx.Reporter.Errorf(errors.Semantic, m.Pos(),
				"case method %q must declare the same type parameters in every case", ctx.In.Text(m.Name))
			return nil, nil, false
		}
	}

	partial := false
	for _, m := range members {
		if m.Partial {
			partial = true
		}
	}

	// Wrapper parameters: first case's names, each type widened to the
	// union of that position's type across every case.
	wrapperParams := make([]*ast.Param, arity)
	for i := 0; i < arity; i++ {
		wrapperParams[i] = &ast.Param{
			Base: ctx.Builder.Synthetic(first),
			Name: first.Params[i].Name,
			Type: unionAt(members, i, ctx),
		}
	}
	wrapperResult := unionResult(members, ctx)

	wrapper = &ast.MethodDecl{
		Base:       ctx.Builder.Synthetic(first),
		Flavor:     first.Flavor,
		Cap:        first.Cap,
		Name:       first.Name,
		TypeParams: first.TypeParams,
		Params:     wrapperParams,
		Result:     wrapperResult,
		Partial:    partial,
		Owner:      e,
	}

	// Worker: a fresh name, a fresh hygienic parameter per position typed
	// like the wrapper's, and a body that's a single match over those
	// parameters with one case per original method.
	workerCap := first.Cap
	workerFlavor := first.Flavor
	if first.Flavor == ast.MethodBe {
		// casemethod.c: a case behavior's worker runs synchronously as a
		// plain `ref` function; only the wrapper keeps the `be` flavor
		// that makes the call asynchronous.
		workerFlavor = ast.MethodFun
		workerCap = ast.CapRef
	}

	workerParams := make([]*ast.Param, arity)
	workerRefs := make([]ast.Expr, arity)
	for i := 0; i < arity; i++ {
		pname := ctx.FreshName("$case")
		workerParams[i] = &ast.Param{
			Base: ctx.Builder.Synthetic(first),
			Name: pname,
			Type: wrapperParams[i].Type,
		}
		workerRefs[i] = &ast.Ident{Base: ctx.Builder.Synthetic(first), Name: pname}
	}

	var subject ast.Expr
	if arity == 1 {
		subject = workerRefs[0]
	} else if arity > 1 {
		subject = &ast.TupleLit{Base: ctx.Builder.Synthetic(first), Elems: workerRefs}
	}

	cases := make([]*ast.MatchCase, 0, len(members))
	for _, m := range members {
		mc := &ast.MatchCase{
			Base: ctx.Builder.Synthetic(m),
			Body: m.Body,
		}
		if arity == 1 {
			mc.Pattern = &ast.Ident{Base: ctx.Builder.Synthetic(m), Name: m.Params[0].Name}
			mc.AsType = m.Params[0].Type
		} else {
			elems := make([]ast.Expr, arity)
			asTypes := make([]ast.TypeExpr, arity)
			for i, p := range m.Params {
				elems[i] = &ast.Ident{Base: ctx.Builder.Synthetic(m), Name: p.Name}
				asTypes[i] = p.Type
			}
			mc.Pattern = &ast.TupleLit{Base: ctx.Builder.Synthetic(m), Elems: elems}
			mc.AsType = &ast.TupleType{Base: ctx.Builder.Synthetic(m), Elems: asTypes}
		}
		cases = append(cases, mc)
	}

	matchExpr := &ast.MatchExpr{
		Base:    ctx.Builder.Synthetic(first),
		Subject: subject,
		Cases:   cases,
	}

	workerName := ctx.FreshName("$" + ctx.In.Text(first.Name))
	worker = &ast.MethodDecl{
		Base:       ctx.Builder.Synthetic(first),
		Flavor:     workerFlavor,
		Cap:        workerCap,
		Name:       workerName,
		TypeParams: first.TypeParams,
		Params:     workerParams,
		Result:     wrapperResult,
		Partial:    partial,
		Body:       ctx.Builder.Block(first, matchExpr),
		Owner:      e,
	}

	// Wrapper body: forward every (consumed) parameter to the worker.
	wrapperArgs := make([]ast.Expr, arity)
	for i := range wrapperParams {
		ref := &ast.Ident{Base: ctx.Builder.Synthetic(first), Name: wrapperParams[i].Name}
		wrapperArgs[i] = &ast.ConsumeExpr{Base: ctx.Builder.Synthetic(first), Expr: ref}
	}
	workerRef := &ast.Ident{Base: ctx.Builder.Synthetic(first), Name: workerName}
	call := ctx.Builder.Call(first, workerRef, wrapperArgs...)
	wrapper.Body = ctx.Builder.Block(first, call)

	return wrapper, worker, true
}

// unionAt builds the union of every member's i'th parameter type. Every
// member contributes its type, duplicates included; a single-member
// union collapses to that member's type directly.
func unionAt(members []*ast.MethodDecl, i int, ctx *Context) ast.TypeExpr {
	types := make([]ast.TypeExpr, 0, len(members))
	for _, m := range members {
		types = append(types, m.Params[i].Type)
	}
	return collapseUnion(types, members[0], ctx)
}

func unionResult(members []*ast.MethodDecl, ctx *Context) ast.TypeExpr {
	types := make([]ast.TypeExpr, 0, len(members))
	for _, m := range members {
		if m.Result == nil {
			continue
		}
		types = append(types, m.Result)
	}
	if len(types) == 0 {
		return nil
	}
	return collapseUnion(types, members[0], ctx)
}

func collapseUnion(types []ast.TypeExpr, from ast.Node, ctx *Context) ast.TypeExpr {
	if len(types) == 1 {
		return types[0]
	}
	return &ast.UnionType{Base: ctx.Builder.Synthetic(from), Members: types}
}
