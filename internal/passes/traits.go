package passes

import (
	"github.com/veillang/velc/internal/ast"
	"github.com/veillang/velc/internal/errors"
	"github.com/veillang/velc/internal/types"
	"github.com/veillang/velc/pkg/ident"
)

// TraitsPass flattens every entity's provides graph (spec §4.7):
// 1. toposort entities by provides-edges, rejecting cycles;
// 2. for each abstract method an entity doesn't itself declare, inherit
//    the unique compatible body a provided trait/interface supplies;
// 3. reject a declared method that conflicts with a provided one, and
//    reject a provides-list entry that names a concrete entity.
type TraitsPass struct{}

func (p *TraitsPass) Name() string         { return "traits" }
func (p *TraitsPass) TargetReach() ast.Pass { return ast.PassTraits }

func (p *TraitsPass) Run(prog *ast.Program, ctx *Context) Outcome {
	entities := collectEntities(prog)

	order, ok := toposortProvides(entities, ctx)
	if !ok {
		return Ok
	}

	for _, e := range order {
		checkProvidesKinds(e, ctx)
		flattenEntity(e, ctx)
	}
	return Ok
}

func collectEntities(prog *ast.Program) []*ast.EntityDecl {
	var out []*ast.EntityDecl
	collect := func(pkg *ast.Package) {
		for _, mod := range pkg.Modules {
			for _, d := range mod.Decls {
				if e, ok := d.(*ast.EntityDecl); ok {
					out = append(out, e)
				}
			}
		}
	}
	if prog.Builtin != nil {
		collect(prog.Builtin)
	}
	for _, pkg := range prog.Packages {
		collect(pkg)
	}
	return out
}

// toposortProvides orders entities so that every entity appears after
// every entity its provides-list names, and reports a cycle (spec §4.7
// step 1) instead of returning a partial order.
func toposortProvides(entities []*ast.EntityDecl, ctx *Context) ([]*ast.EntityDecl, bool) {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[*ast.EntityDecl]int, len(entities))
	var order []*ast.EntityDecl
	ok := true

	var visit func(e *ast.EntityDecl, path []*ast.EntityDecl)
	visit = func(e *ast.EntityDecl, path []*ast.EntityDecl) {
		switch color[e] {
		case black:
			return
		case gray:
			ctx.Reporter.Errorf(errors.Semantic, e.Pos(), "cycle in provides list involving %q", ctx.In.Text(e.Name))
			ok = false
			return
		}
		color[e] = gray
		for _, pr := range e.Provides {
			nom, isNom := pr.(*ast.NominalType)
			if !isNom || nom.Resolved == nil {
				continue
			}
			target, isEntity := nom.Resolved.(*ast.EntityDecl)
			if !isEntity {
				continue
			}
			visit(target, append(path, e))
		}
		color[e] = black
		order = append(order, e)
	}

	for _, e := range entities {
		visit(e, nil)
	}
	if !ok {
		return nil, false
	}
	return order, true
}

// checkProvidesKinds rejects a provides-list entry naming anything but
// a trait, interface, or intersection thereof (spec §4.7 step 3).
func checkProvidesKinds(e *ast.EntityDecl, ctx *Context) {
	for _, pr := range e.Provides {
		if !isTraitLike(pr) {
			ctx.Reporter.Errorf(errors.Semantic, pr.Pos(), "provides list may only name traits, interfaces, or intersections of them")
		}
	}
}

func isTraitLike(t ast.TypeExpr) bool {
	switch n := t.(type) {
	case *ast.IntersectionType:
		for _, m := range n.Members {
			if !isTraitLike(m) {
				return false
			}
		}
		return true
	case *ast.NominalType:
		if n.Resolved == nil {
			return true // unresolved: already reported by the Name Pass
		}
		entity, ok := n.Resolved.(*ast.EntityDecl)
		if !ok {
			return true // type alias/type-param: not this pass's concern
		}
		return entity.EntityKind == ast.EntityTrait || entity.EntityKind == ast.EntityInterface
	default:
		return false
	}
}

// flattenEntity fills e.Flattened with every method e inherits from its
// provided traits/interfaces (spec §4.7 step 2), and rejects a declared
// method whose signature conflicts with a provided one (step 3).
func flattenEntity(e *ast.EntityDecl, ctx *Context) {
	own := make(map[ident.ID]*ast.MethodDecl, len(e.Methods))
	for _, m := range e.Methods {
		own[m.Name] = m
	}

	providers := collectProviders(e, map[*ast.EntityDecl]bool{})

	// Every method named by any provider, with or without a body, needs
	// exactly one candidate body if the entity itself doesn't declare it.
	seen := map[ident.ID]bool{}
	var flattened []*ast.MethodDecl
	for _, provider := range providers {
		for _, abstract := range provider.Methods {
			if seen[abstract.Name] {
				continue
			}
			seen[abstract.Name] = true

			if declared, ok := own[abstract.Name]; ok {
				checkConflict(e, declared, providers, ctx)
				continue
			}

			body, ambiguous := resolveInheritedBody(abstract.Name, providers)
			if ambiguous {
				ctx.Reporter.Errorf(errors.Semantic, e.Pos(),
					"%q provides conflicting bodies for method %q with no unambiguous best match",
					ctx.In.Text(e.Name), ctx.In.Text(abstract.Name))
				continue
			}
			if body == nil {
				continue // purely abstract: the entity must be a trait/interface itself
			}
			flattened = append(flattened, sanitizeInheritedMethod(body, e, ctx))
		}
	}
	e.Flattened = flattened
}

// sanitizeInheritedMethod copies body onto e's Flattened set. A shallow
// struct copy would leave the copy's Params/Result/TypeParams slices
// aliasing the trait's own nodes, so a later pass resolving the copy's
// types against e's context would mutate state still reachable from the
// trait's declaration; ast.SanitizeType exists to cut that aliasing
// (spec §4.7, supplemented from sanitise.c).
func sanitizeInheritedMethod(body *ast.MethodDecl, e *ast.EntityDecl, ctx *Context) *ast.MethodDecl {
	params := make([]*ast.Param, len(body.Params))
	for i, p := range body.Params {
		params[i] = ast.SanitizeParam(p, ctx.Builder)
	}
	typeParams := make([]*ast.TypeParam, len(body.TypeParams))
	for i, tp := range body.TypeParams {
		typeParams[i] = ast.SanitizeTypeParam(tp, ctx.Builder)
	}
	return &ast.MethodDecl{
		Base:       ctx.Builder.Synthetic(body),
		Flavor:     body.Flavor,
		Cap:        body.Cap,
		Name:       body.Name,
		TypeParams: typeParams,
		Params:     params,
		Result:     ast.SanitizeType(body.Result, ctx.Builder),
		Partial:    body.Partial,
		Body:       body.Body,
		Owner:      e,
		Inherited:  body.Owner,
	}
}

// collectProviders returns every trait/interface e's provides-list
// reaches, transitively through their own provides-lists; callers read
// each provider's own declared Methods, not its Flattened set.
func collectProviders(e *ast.EntityDecl, seen map[*ast.EntityDecl]bool) []*ast.EntityDecl {
	var out []*ast.EntityDecl
	for _, pr := range e.Provides {
		nom, ok := pr.(*ast.NominalType)
		if !ok || nom.Resolved == nil {
			continue
		}
		provider, ok := nom.Resolved.(*ast.EntityDecl)
		if !ok || seen[provider] {
			continue
		}
		seen[provider] = true
		out = append(out, provider)
		out = append(out, collectProviders(provider, seen)...)
	}
	return out
}

// resolveInheritedBody finds the unique provider supplying a concrete
// body for name among providers, requiring a contravariant/covariant
// signature match against every abstract declaration of that name
// across providers (spec §4.7 step 2). ambiguous is true when more than
// one incompatible-with-each-other candidate exists.
func resolveInheritedBody(name ident.ID, providers []*ast.EntityDecl) (body *ast.MethodDecl, ambiguous bool) {
	var candidates []*ast.MethodDecl
	for _, provider := range providers {
		for _, m := range provider.Methods {
			if m.Name == name && m.Body != nil {
				candidates = append(candidates, m)
			}
		}
	}
	if len(candidates) == 0 {
		return nil, false
	}
	if len(candidates) == 1 {
		return candidates[0], false
	}
	// More than one concrete candidate: accept only if they are all
	// signature-compatible with one another (diamond inheritance of the
	// same default), otherwise it's a genuine ambiguity.
	best := candidates[0]
	for _, c := range candidates[1:] {
		if methodSignatureCompatible(best, c) != types.Accept {
			return nil, true
		}
	}
	return best, false
}

// checkConflict rejects declared when its signature is not a subtype
// of any provided abstract method it overrides (spec §4.7 step 3).
func checkConflict(e *ast.EntityDecl, declared *ast.MethodDecl, providers []*ast.EntityDecl, ctx *Context) {
	for _, provider := range providers {
		for _, abstract := range provider.Methods {
			if abstract.Name != declared.Name {
				continue
			}
			if methodSignatureCompatible(declared, abstract) == types.Reject {
				ctx.Reporter.Errorf(errors.Semantic, declared.Pos(),
					"method %q conflicts with the signature provided by %q",
					ctx.In.Text(declared.Name), ctx.In.Text(provider.Name))
			}
		}
	}
}

// methodSignatureCompatible checks a as a valid override/match of want:
// parameters contravariant, result covariant (spec §4.7 step 2's
// requirement, reusing the subtyping relation the Expr/Type Pass is
// built on).
func methodSignatureCompatible(a, want *ast.MethodDecl) types.Result {
	if a.Flavor != want.Flavor || len(a.Params) != len(want.Params) {
		return types.Reject
	}
	results := make([]types.Result, 0, len(a.Params)+1)
	for i := range want.Params {
		results = append(results, types.IsSubtype(want.Params[i].Type, a.Params[i].Type))
	}
	if want.Result != nil && a.Result != nil {
		results = append(results, types.IsSubtype(a.Result, want.Result))
	}
	return types.And(results...)
}
