package passes

import (
	"strings"
	"testing"

	"github.com/veillang/velc/internal/ast"
	"github.com/veillang/velc/pkg/ident"
)

// runScopeThenRefer mirrors runScopeThenName: ReferPass resolves value
// references against the scope tree ScopePass built, so the two always
// run in pipeline order in tests.
func runScopeThenRefer(prog *ast.Program, ctx *Context) {
	(&ScopePass{}).Run(prog, ctx)
	(&ReferPass{}).Run(prog, ctx)
}

// runnerWith builds a one-method `Runner` class whose `run` fun has the
// given body, wrapped in the usual single-module/single-package program.
func runnerWith(body *ast.Block, in *ident.Interner) (*ast.Program, *ast.MethodDecl) {
	method := &ast.MethodDecl{Flavor: ast.MethodFun, Name: in.Intern("run"), Body: body}
	cls := &ast.EntityDecl{EntityKind: ast.EntityClass, Name: in.Intern("Runner"), Methods: []*ast.MethodDecl{method}}
	return programWith(cls), method
}

func TestReferPass_ReadBeforeDefinedReported(t *testing.T) {
	ctx, in := newTestContext()
	xName := in.Intern("x")
	decl := &ast.VarDecl{Name: xName}
	use := &ast.Ident{Name: xName}
	body := &ast.Block{Exprs: []ast.Expr{decl, use}}
	prog, _ := runnerWith(body, in)

	runScopeThenRefer(prog, ctx)

	if !strings.Contains(ctx.Reporter.Format(false), "use of 'x' before it is defined") {
		t.Errorf("unexpected diagnostic: %s", ctx.Reporter.Format(false))
	}
}

func TestReferPass_InitializedVarNotFlagged(t *testing.T) {
	ctx, in := newTestContext()
	xName := in.Intern("x")
	decl := &ast.VarDecl{Name: xName, Init: &ast.BoolLit{Value: true}}
	use := &ast.Ident{Name: xName}
	body := &ast.Block{Exprs: []ast.Expr{decl, use}}
	prog, _ := runnerWith(body, in)

	runScopeThenRefer(prog, ctx)

	if ctx.Reporter.HasErrors() {
		t.Errorf("unexpected errors: %s", ctx.Reporter.Format(false))
	}
	if use.Resolved == nil {
		t.Error("a read of a declared local must resolve to its SymbolEntry")
	}
}

func TestReferPass_ReadAfterConsumedReported(t *testing.T) {
	ctx, in := newTestContext()
	xName := in.Intern("x")
	decl := &ast.VarDecl{Name: xName, Init: &ast.BoolLit{Value: true}}
	consume := &ast.ConsumeExpr{Expr: &ast.Ident{Name: xName}}
	use := &ast.Ident{Name: xName}
	body := &ast.Block{Exprs: []ast.Expr{decl, consume, use}}
	prog, _ := runnerWith(body, in)

	runScopeThenRefer(prog, ctx)

	if !strings.Contains(ctx.Reporter.Format(false), "use of 'x' after it has been consumed") {
		t.Errorf("unexpected diagnostic: %s", ctx.Reporter.Format(false))
	}
}

func TestReferPass_ConsumeLetFieldRejected(t *testing.T) {
	ctx, in := newTestContext()
	fieldName := in.Intern("x")
	field := &ast.FieldDecl{FieldKind: ast.FieldLet, Name: fieldName, Default: &ast.BoolLit{Value: true}}
	consume := &ast.ConsumeExpr{Expr: &ast.Ident{Name: fieldName}}
	method := &ast.MethodDecl{Flavor: ast.MethodFun, Name: in.Intern("run"), Body: &ast.Block{Exprs: []ast.Expr{consume}}}
	cls := &ast.EntityDecl{EntityKind: ast.EntityClass, Name: in.Intern("Runner"), Fields: []*ast.FieldDecl{field}, Methods: []*ast.MethodDecl{method}}
	prog := programWith(cls)

	runScopeThenRefer(prog, ctx)

	if !strings.Contains(ctx.Reporter.Format(false), "let/embed fields are immutable") {
		t.Errorf("unexpected diagnostic: %s", ctx.Reporter.Format(false))
	}
}

func TestReferPass_ConsumeVarFieldAllowed(t *testing.T) {
	ctx, in := newTestContext()
	fieldName := in.Intern("x")
	field := &ast.FieldDecl{FieldKind: ast.FieldVar, Name: fieldName, Default: &ast.BoolLit{Value: true}}
	consume := &ast.ConsumeExpr{Expr: &ast.Ident{Name: fieldName}}
	method := &ast.MethodDecl{Flavor: ast.MethodFun, Name: in.Intern("run"), Body: &ast.Block{Exprs: []ast.Expr{consume}}}
	cls := &ast.EntityDecl{EntityKind: ast.EntityClass, Name: in.Intern("Runner"), Fields: []*ast.FieldDecl{field}, Methods: []*ast.MethodDecl{method}}
	prog := programWith(cls)

	runScopeThenRefer(prog, ctx)

	if ctx.Reporter.HasErrors() {
		t.Errorf("consuming a var field must be legal: %s", ctx.Reporter.Format(false))
	}
}

func TestReferPass_IfBranchesMergeConsumedAsConsumedInTry(t *testing.T) {
	ctx, in := newTestContext()
	xName := in.Intern("x")
	decl := &ast.VarDecl{Name: xName, Init: &ast.BoolLit{Value: true}}
	consumeInThen := &ast.ConsumeExpr{Expr: &ast.Ident{Name: xName}}
	ifExpr := &ast.IfExpr{
		Cond: &ast.BoolLit{Value: true},
		Then: &ast.Block{Exprs: []ast.Expr{consumeInThen}},
	}
	use := &ast.Ident{Name: xName}
	body := &ast.Block{Exprs: []ast.Expr{decl, ifExpr, use}}
	prog, _ := runnerWith(body, in)

	runScopeThenRefer(prog, ctx)

	if !strings.Contains(ctx.Reporter.Format(false), "use of 'x' after it has been consumed") {
		t.Errorf("a name consumed only on one branch must read as consumed (conservative merge) afterward: %s", ctx.Reporter.Format(false))
	}
}

func TestReferPass_ReassignAfterIfClearsConsumedInTry(t *testing.T) {
	ctx, in := newTestContext()
	xName := in.Intern("x")
	decl := &ast.VarDecl{Name: xName, Init: &ast.BoolLit{Value: true}}
	consumeInThen := &ast.ConsumeExpr{Expr: &ast.Ident{Name: xName}}
	ifExpr := &ast.IfExpr{
		Cond: &ast.BoolLit{Value: true},
		Then: &ast.Block{Exprs: []ast.Expr{consumeInThen}},
	}
	reassign := &ast.AssignExpr{LHS: &ast.Ident{Name: xName}, RHS: &ast.BoolLit{Value: true}}
	use := &ast.Ident{Name: xName}
	body := &ast.Block{Exprs: []ast.Expr{decl, ifExpr, reassign, use}}
	prog, _ := runnerWith(body, in)

	runScopeThenRefer(prog, ctx)

	if ctx.Reporter.HasErrors() {
		t.Errorf("reassigning after the if must clear the consumed-in-try status: %s", ctx.Reporter.Format(false))
	}
}

func TestReferPass_ThisConsumedThenUsedReported(t *testing.T) {
	ctx, in := newTestContext()
	consume := &ast.ConsumeExpr{Expr: &ast.This{}}
	use := &ast.This{}
	body := &ast.Block{Exprs: []ast.Expr{consume, use}}
	prog, _ := runnerWith(body, in)

	runScopeThenRefer(prog, ctx)

	if !strings.Contains(ctx.Reporter.Format(false), "use of 'this' after it has been consumed") {
		t.Errorf("unexpected diagnostic: %s", ctx.Reporter.Format(false))
	}
}

func TestReferPass_LambdaCapturesOuterLocal(t *testing.T) {
	ctx, in := newTestContext()
	yName := in.Intern("y")
	decl := &ast.VarDecl{Name: yName, Init: &ast.BoolLit{Value: true}}
	capturedRef := &ast.Ident{Name: yName}
	lambda := &ast.Lambda{Body: &ast.Block{Exprs: []ast.Expr{capturedRef}}}
	body := &ast.Block{Exprs: []ast.Expr{decl, lambda}}
	prog, _ := runnerWith(body, in)

	runScopeThenRefer(prog, ctx)

	if ctx.Reporter.HasErrors() {
		t.Fatalf("unexpected errors: %s", ctx.Reporter.Format(false))
	}
	if len(lambda.Captures) != 1 || lambda.Captures[0] != yName {
		t.Errorf("Captures = %v, want [y]", lambda.Captures)
	}
}

func TestReferPass_LambdaParamNotCaptured(t *testing.T) {
	ctx, in := newTestContext()
	pName := in.Intern("p")
	ref := &ast.Ident{Name: pName}
	lambda := &ast.Lambda{
		Params: []*ast.Param{{Name: pName}},
		Body:   &ast.Block{Exprs: []ast.Expr{ref}},
	}
	body := &ast.Block{Exprs: []ast.Expr{lambda}}
	prog, _ := runnerWith(body, in)

	runScopeThenRefer(prog, ctx)

	if ctx.Reporter.HasErrors() {
		t.Fatalf("unexpected errors: %s", ctx.Reporter.Format(false))
	}
	if len(lambda.Captures) != 0 {
		t.Errorf("Captures = %v, want none: a lambda's own parameter is not a free variable", lambda.Captures)
	}
}

func TestReferPass_MatchCaseMergeConservative(t *testing.T) {
	ctx, in := newTestContext()
	xName := in.Intern("x")
	decl := &ast.VarDecl{Name: xName, Init: &ast.BoolLit{Value: true}}
	caseA := &ast.MatchCase{
		Pattern: &ast.DontCare{},
		Body:    &ast.Block{Exprs: []ast.Expr{&ast.ConsumeExpr{Expr: &ast.Ident{Name: xName}}}},
	}
	caseB := &ast.MatchCase{
		Pattern: &ast.DontCare{},
		Body:    &ast.Block{},
	}
	match := &ast.MatchExpr{Subject: &ast.BoolLit{Value: true}, Cases: []*ast.MatchCase{caseA, caseB}}
	use := &ast.Ident{Name: xName}
	body := &ast.Block{Exprs: []ast.Expr{decl, match, use}}
	prog, _ := runnerWith(body, in)

	runScopeThenRefer(prog, ctx)

	if !strings.Contains(ctx.Reporter.Format(false), "use of 'x' after it has been consumed") {
		t.Errorf("a name consumed only in one match case must read as consumed afterward: %s", ctx.Reporter.Format(false))
	}
}
