package passes

import (
	"github.com/veillang/velc/internal/ast"
	"github.com/veillang/velc/internal/errors"
)

// VerifyPass runs the late shape checks spec §4.10 describes: the
// program must contain exactly one Main actor shaped for the runtime
// entry point, primitive lifecycle hooks must match the ABI the
// runtime expects of them, user code may not redefine the names that
// ABI reserves, and annotations must sit only where they're legal.
type VerifyPass struct{}

func (p *VerifyPass) Name() string         { return "verify" }
func (p *VerifyPass) TargetReach() ast.Pass { return ast.PassVerify }

// reservedLifecycle is the set of method names a primitive may supply
// as a compiler-invoked lifecycle hook; a non-primitive entity may not
// declare a method with one of these names (spec §4.10's "internal-ABI
// names").
var reservedLifecycle = []string{"_init", "_final"}

// reservedAnnotations maps an annotation name to the node Kinds it is
// legal on (spec §7 Glossary addendum's "Annotations" entry).
var reservedAnnotations = map[string][]ast.Kind{
	"packed":      {ast.KEntity},
	"likely":      {ast.KIf},
	"unlikely":    {ast.KIf},
	"nosupertype": {ast.KEntity},
	"ponyint":     {ast.KEntity, ast.KField, ast.KMethod},
}

func (p *VerifyPass) Run(prog *ast.Program, ctx *Context) Outcome {
	var mains []*ast.EntityDecl

	walkPackage := func(pkg *ast.Package, isBuiltin bool) {
		for _, mod := range pkg.Modules {
			for _, d := range mod.Decls {
				e, ok := d.(*ast.EntityDecl)
				if !ok {
					continue
				}
				verifyEntity(e, ctx)
				if !isBuiltin && isMainCandidate(e, ctx) {
					mains = append(mains, e)
				}
			}
		}
	}

	if prog.Builtin != nil {
		walkPackage(prog.Builtin, true)
	}
	for _, pkg := range prog.Packages {
		walkPackage(pkg, false)
	}

	switch len(mains) {
	case 0:
		ctx.Reporter.Errorf(errors.Semantic, prog.Pos(), "the Main actor must have a create constructor")
	case 1:
		verifyMainCreate(mains[0], ctx)
	default:
		for _, m := range mains[1:] {
			ctx.Reporter.Errorf(errors.Semantic, m.Pos(), "only one Main actor may be declared")
		}
	}

	walkAnnotations(prog, ctx)
	return Ok
}

func isMainCandidate(e *ast.EntityDecl, ctx *Context) bool {
	return e.EntityKind == ast.EntityActor && ctx.In.Text(e.Name) == "Main"
}

// verifyMainCreate checks the Main actor's create constructor has
// exactly the shape the runtime entry point requires: no type
// parameters, a single `env: Env` parameter, nothing else.
func verifyMainCreate(main *ast.EntityDecl, ctx *Context) {
	var create *ast.MethodDecl
	for _, m := range main.Methods {
		if m.Flavor == ast.MethodNew && ctx.In.Text(m.Name) == "create" {
			create = m
			break
		}
	}
	if create == nil {
		ctx.Reporter.Errorf(errors.Semantic, main.Pos(), "the Main actor must have a create constructor")
		return
	}
	if len(create.TypeParams) != 0 {
		ctx.Reporter.Errorf(errors.Semantic, create.Pos(), "Main.create may not have type parameters")
	}
	if len(create.Params) != 1 {
		ctx.Reporter.Errorf(errors.Semantic, create.Pos(), "Main.create must take exactly one parameter, env: Env")
		return
	}
	param := create.Params[0]
	if ctx.In.Text(param.Name) != "env" {
		ctx.Reporter.Errorf(errors.Semantic, param.Pos(), "Main.create's parameter must be named env")
	}
	nom, ok := param.Type.(*ast.NominalType)
	if !ok || ctx.In.Text(nom.Name) != "Env" {
		ctx.Reporter.Errorf(errors.Semantic, param.Pos(), "Main.create's parameter must have type Env")
	}
}

// verifyEntity runs the per-entity ABI checks: primitive _init/_final
// shape, and reservation of those names outside primitives.
func verifyEntity(e *ast.EntityDecl, ctx *Context) {
	for _, m := range e.Methods {
		name := ctx.In.Text(m.Name)
		if !isReservedLifecycle(name) {
			continue
		}
		if e.EntityKind != ast.EntityPrimitive {
			ctx.Reporter.Errorf(errors.Semantic, m.Pos(), "%q is reserved for primitive lifecycle hooks and may not be declared on a %s", name, e.EntityKind)
			continue
		}
		verifyLifecycleShape(m, name, ctx)
	}
}

func isReservedLifecycle(name string) bool {
	for _, r := range reservedLifecycle {
		if name == r {
			return true
		}
	}
	return false
}

// verifyLifecycleShape checks _init/_final is `box fun`, takes no
// parameters, returns None, is non-partial, and has no type
// parameters (spec §4.10).
func verifyLifecycleShape(m *ast.MethodDecl, name string, ctx *Context) {
	if m.Flavor != ast.MethodFun {
		ctx.Reporter.Errorf(errors.Semantic, m.Pos(), "%s must be a fun", name)
	}
	if m.Cap != ast.CapBox {
		ctx.Reporter.Errorf(errors.Semantic, m.Pos(), "%s must have box receiver capability", name)
	}
	if len(m.Params) != 0 {
		ctx.Reporter.Errorf(errors.Semantic, m.Pos(), "%s must take no parameters", name)
	}
	if len(m.TypeParams) != 0 {
		ctx.Reporter.Errorf(errors.Semantic, m.Pos(), "%s must not have type parameters", name)
	}
	if m.Partial {
		ctx.Reporter.Errorf(errors.Semantic, m.Pos(), "%s must not be partial", name)
	}
	if m.Result != nil {
		if nom, ok := m.Result.(*ast.NominalType); !ok || ctx.In.Text(nom.Name) != "None" {
			ctx.Reporter.Errorf(errors.Semantic, m.Pos(), "%s must return None", name)
		}
	}
}

// walkAnnotations checks every node carrying a recognized reserved
// annotation name sits on a legal Kind (spec §7 Glossary addendum);
// unknown annotation names are left alone as user metadata.
func walkAnnotations(prog *ast.Program, ctx *Context) {
	check := func(n ast.Node) {
		for _, name := range n.Annotations() {
			legal, known := reservedAnnotations[name]
			if !known {
				continue
			}
			if !kindIn(n.Kind(), legal) {
				ctx.Reporter.Errorf(errors.Semantic, n.Pos(), "annotation %q is not legal here", name)
			}
		}
	}

	walkPkg := func(pkg *ast.Package) {
		for _, mod := range pkg.Modules {
			for _, d := range mod.Decls {
				e, ok := d.(*ast.EntityDecl)
				if !ok {
					continue
				}
				check(e)
				for _, f := range e.Fields {
					check(f)
				}
				for _, m := range e.Methods {
					check(m)
					if m.Body != nil {
						walkExprAnnotations(m.Body, check)
					}
				}
			}
		}
	}

	if prog.Builtin != nil {
		walkPkg(prog.Builtin)
	}
	for _, pkg := range prog.Packages {
		walkPkg(pkg)
	}
}

func kindIn(k ast.Kind, ks []ast.Kind) bool {
	for _, want := range ks {
		if k == want {
			return true
		}
	}
	return false
}

// walkExprAnnotations visits a block's expressions looking for `if`
// nodes (the only expression-level annotation target the reserved set
// names), recursing into their arms.
func walkExprAnnotations(b *ast.Block, check func(ast.Node)) {
	for _, e := range b.Exprs {
		walkExprAnnotationsOne(e, check)
	}
}

// walkExprAnnotationsOne recurses into e's sub-blocks/sub-expressions.
// Else/Then arms are typed Expr (a *Block, a nested *IfExpr for an
// "elseif" chain, or nil), so they're dispatched back through this
// function rather than assumed to be blocks.
func walkExprAnnotationsOne(e ast.Expr, check func(ast.Node)) {
	if e == nil {
		return
	}
	switch n := e.(type) {
	case *ast.IfExpr:
		check(n)
		walkExprAnnotations(n.Then, check)
		walkExprAnnotationsOne(n.Else, check)
	case *ast.WhileExpr:
		walkExprAnnotations(n.Body, check)
		walkExprAnnotationsOne(n.Else, check)
	case *ast.RepeatExpr:
		walkExprAnnotations(n.Body, check)
		walkExprAnnotationsOne(n.Else, check)
	case *ast.TryExpr:
		walkExprAnnotations(n.Body, check)
		if n.Else != nil {
			walkExprAnnotations(n.Else, check)
		}
		if n.Then != nil {
			walkExprAnnotations(n.Then, check)
		}
	case *ast.RecoverExpr:
		walkExprAnnotations(n.Body, check)
	case *ast.MatchExpr:
		for _, c := range n.Cases {
			walkExprAnnotations(c.Body, check)
		}
		walkExprAnnotationsOne(n.Else, check)
	case *ast.Block:
		walkExprAnnotations(n, check)
	}
}
