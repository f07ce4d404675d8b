package passes

import (
	"testing"

	"github.com/veillang/velc/internal/ast"
)

func TestSugarPass_SynthesizesImplicitCreate(t *testing.T) {
	ctx, in := newTestContext()
	cls := &ast.EntityDecl{EntityKind: ast.EntityClass, Name: in.Intern("Widget")}
	prog := programWith(cls)

	(&SugarPass{}).Run(prog, ctx)

	if len(cls.Methods) != 1 {
		t.Fatalf("Methods = %d, want 1 synthesized create", len(cls.Methods))
	}
	if cls.Methods[0].Flavor != ast.MethodNew || ctx.In.Text(cls.Methods[0].Name) != "create" {
		t.Errorf("synthesized method = %+v, want a new create()", cls.Methods[0])
	}
}

func TestSugarPass_FieldWithoutDefaultSuppressesImplicitCreate(t *testing.T) {
	ctx, in := newTestContext()
	cls := &ast.EntityDecl{
		EntityKind: ast.EntityClass,
		Name:       in.Intern("Widget"),
		Fields:     []*ast.FieldDecl{{FieldKind: ast.FieldVar, Name: in.Intern("x")}},
	}
	prog := programWith(cls)

	(&SugarPass{}).Run(prog, ctx)

	if len(cls.Methods) != 0 {
		t.Errorf("Methods = %d, want 0: a field lacking a default must not get a synthesized constructor", len(cls.Methods))
	}
}

func TestSugarPass_DeclaredConstructorSkipsSynthesis(t *testing.T) {
	ctx, in := newTestContext()
	own := &ast.MethodDecl{Flavor: ast.MethodNew, Name: in.Intern("make")}
	cls := &ast.EntityDecl{EntityKind: ast.EntityClass, Name: in.Intern("Widget"), Methods: []*ast.MethodDecl{own}}
	prog := programWith(cls)

	(&SugarPass{}).Run(prog, ctx)

	if len(cls.Methods) != 1 || cls.Methods[0] != own {
		t.Error("an entity with its own `new` must not gain a second synthesized constructor")
	}
}

func TestSugarPass_TraitGetsNoImplicitCreate(t *testing.T) {
	ctx, in := newTestContext()
	trait := &ast.EntityDecl{EntityKind: ast.EntityTrait, Name: in.Intern("Greeter")}
	prog := programWith(trait)

	(&SugarPass{}).Run(prog, ctx)

	if len(trait.Methods) != 0 {
		t.Error("a trait must never receive a synthesized constructor")
	}
}

func TestSugarPass_PrimitiveGetsIdentityMethods(t *testing.T) {
	ctx, in := newTestContext()
	prim := &ast.EntityDecl{EntityKind: ast.EntityPrimitive, Name: in.Intern("U8")}
	prog := programWith(prim)

	(&SugarPass{}).Run(prog, ctx)

	var sawEq, sawNe bool
	for _, m := range prim.Methods {
		switch ctx.In.Text(m.Name) {
		case "eq":
			sawEq = true
		case "ne":
			sawNe = true
		}
	}
	if !sawEq || !sawNe {
		t.Errorf("Methods = %v, want synthesized eq and ne identity methods", prim.Methods)
	}
}

func TestSugarPass_PrimitiveIdentityMethodsNotDuplicated(t *testing.T) {
	ctx, in := newTestContext()
	ownEq := &ast.MethodDecl{Flavor: ast.MethodFun, Name: in.Intern("eq"), Body: &ast.Block{}}
	prim := &ast.EntityDecl{
		EntityKind: ast.EntityPrimitive,
		Name:       in.Intern("U8"),
		Methods:    []*ast.MethodDecl{ownEq},
	}
	prog := programWith(prim)

	(&SugarPass{}).Run(prog, ctx)

	count := 0
	for _, m := range prim.Methods {
		if ctx.In.Text(m.Name) == "eq" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("eq appears %d times, want 1: a hand-written eq must not be duplicated", count)
	}
}

func TestSugarPass_DesugarsBinaryToMethodCall(t *testing.T) {
	ctx, in := newTestContext()
	left := &ast.Ident{Name: in.Intern("a")}
	right := &ast.Ident{Name: in.Intern("b")}
	bin := &ast.BinaryExpr{Op: ast.OpAdd, Left: left, Right: right}
	method := &ast.MethodDecl{
		Flavor: ast.MethodFun,
		Name:   in.Intern("run"),
		Body:   &ast.Block{Exprs: []ast.Expr{bin}},
	}
	cls := &ast.EntityDecl{
		EntityKind: ast.EntityClass,
		Name:       in.Intern("Runner"),
		Methods:    []*ast.MethodDecl{method},
		Fields:     []*ast.FieldDecl{{FieldKind: ast.FieldVar, Name: in.Intern("unused"), Default: &ast.BoolLit{Value: true}}},
	}
	prog := programWith(cls)

	(&SugarPass{}).Run(prog, ctx)

	call, ok := method.Body.Exprs[0].(*ast.Call)
	if !ok {
		t.Fatalf("rewritten expr = %T, want *ast.Call", method.Body.Exprs[0])
	}
	callee, ok := call.Callee.(*ast.MemberAccess)
	if !ok {
		t.Fatalf("call.Callee = %T, want *ast.MemberAccess", call.Callee)
	}
	if callee.Receiver != left {
		t.Error("the binary's left operand must become the method call's receiver")
	}
	if ctx.In.Text(callee.Name) != "add" {
		t.Errorf("method name = %q, want \"add\"", ctx.In.Text(callee.Name))
	}
	if len(call.Args) != 1 || call.Args[0] != right {
		t.Error("the binary's right operand must become the sole call argument")
	}
}

func TestSugarPass_DesugarsUnaryNot(t *testing.T) {
	ctx, in := newTestContext()
	operand := &ast.Ident{Name: in.Intern("flag")}
	un := &ast.UnaryExpr{Op: ast.OpNot, Operand: operand}

	rewritten := sugarExpr(un, ctx)

	call, ok := rewritten.(*ast.Call)
	if !ok {
		t.Fatalf("rewritten expr = %T, want *ast.Call", rewritten)
	}
	callee := call.Callee.(*ast.MemberAccess)
	if ctx.In.Text(callee.Name) != "op_not" {
		t.Errorf("method name = %q, want \"op_not\"", ctx.In.Text(callee.Name))
	}
	if len(call.Args) != 0 {
		t.Error("a unary call takes no arguments")
	}
}

func TestSugarPass_DesugarsIndexApply(t *testing.T) {
	ctx, in := newTestContext()
	recv := &ast.Ident{Name: in.Intern("arr")}
	idxArg := &ast.Ident{Name: in.Intern("i")}
	idx := &ast.IndexExpr{Receiver: recv, Args: []ast.Expr{idxArg}}

	rewritten := sugarExpr(idx, ctx)

	call := rewritten.(*ast.Call)
	callee := call.Callee.(*ast.MemberAccess)
	if ctx.In.Text(callee.Name) != "apply" {
		t.Errorf("method name = %q, want \"apply\"", ctx.In.Text(callee.Name))
	}
	if len(call.Args) != 1 || call.Args[0] != idxArg {
		t.Error("the index argument must carry through to apply")
	}
}

func TestSugarPass_DesugarsIndexAssignToUpdate(t *testing.T) {
	ctx, in := newTestContext()
	recv := &ast.Ident{Name: in.Intern("arr")}
	idxArg := &ast.Ident{Name: in.Intern("i")}
	idx := &ast.IndexExpr{Receiver: recv, Args: []ast.Expr{idxArg}}
	value := &ast.Ident{Name: in.Intern("v")}
	assign := &ast.AssignExpr{LHS: idx, RHS: value}

	rewritten := sugarExpr(assign, ctx)

	call, ok := rewritten.(*ast.Call)
	if !ok {
		t.Fatalf("rewritten expr = %T, want *ast.Call", rewritten)
	}
	callee := call.Callee.(*ast.MemberAccess)
	if ctx.In.Text(callee.Name) != "update" {
		t.Errorf("method name = %q, want \"update\"", ctx.In.Text(callee.Name))
	}
	if len(call.Args) != 2 || call.Args[0] != idxArg || call.Args[1] != value {
		t.Error("update must receive the index arguments followed by the assigned value")
	}
}

func TestSugarPass_PlainAssignUnaffected(t *testing.T) {
	ctx, in := newTestContext()
	lhs := &ast.Ident{Name: in.Intern("x")}
	rhs := &ast.Ident{Name: in.Intern("y")}
	assign := &ast.AssignExpr{LHS: lhs, RHS: rhs}

	rewritten := sugarExpr(assign, ctx)

	if rewritten != assign {
		t.Error("an assignment whose LHS is not an IndexExpr must pass through unchanged")
	}
}

func TestSugarPass_DesugarsForIntoIteratorWhile(t *testing.T) {
	ctx, in := newTestContext()
	iter := &ast.Ident{Name: in.Intern("xs")}
	loopVar := in.Intern("x")
	useVar := &ast.Ident{Name: loopVar}
	forExpr := &ast.ForExpr{
		Var:  loopVar,
		Iter: iter,
		Body: &ast.Block{Exprs: []ast.Expr{useVar}},
	}

	rewritten := sugarExpr(forExpr, ctx)

	block, ok := rewritten.(*ast.Block)
	if !ok || len(block.Exprs) != 2 {
		t.Fatalf("rewritten = %#v, want a 2-expr block (let $it, while)", rewritten)
	}
	itDecl, ok := block.Exprs[0].(*ast.VarDecl)
	if !ok || !itDecl.IsLet || itDecl.Init != iter {
		t.Fatalf("block.Exprs[0] = %#v, want `let $it = xs`", block.Exprs[0])
	}
	if ctx.In.Text(itDecl.Name) != "$it" {
		t.Errorf("iterator binding name = %q, want \"$it\"", ctx.In.Text(itDecl.Name))
	}
	whileExpr, ok := block.Exprs[1].(*ast.WhileExpr)
	if !ok {
		t.Fatalf("block.Exprs[1] = %T, want *ast.WhileExpr", block.Exprs[1])
	}
	condCall, ok := whileExpr.Cond.(*ast.Call)
	if !ok {
		t.Fatalf("while cond = %T, want *ast.Call", whileExpr.Cond)
	}
	if ctx.In.Text(condCall.Callee.(*ast.MemberAccess).Name) != "has_next" {
		t.Error("while condition must call has_next on the iterator")
	}
	if len(whileExpr.Body.Exprs) != 2 {
		t.Fatalf("while body = %d exprs, want 2 (bind x, original body expr)", len(whileExpr.Body.Exprs))
	}
	bindX, ok := whileExpr.Body.Exprs[0].(*ast.VarDecl)
	if !ok || bindX.Name != loopVar {
		t.Fatalf("while body[0] = %#v, want `let x = try $it.next() else break end`", whileExpr.Body.Exprs[0])
	}
	tryNext, ok := bindX.Init.(*ast.TryExpr)
	if !ok {
		t.Fatalf("bindX.Init = %T, want *ast.TryExpr", bindX.Init)
	}
	if _, ok := tryNext.Else.Exprs[0].(*ast.BreakExpr); !ok {
		t.Error("the try-next's else arm must break out of the loop")
	}
	if whileExpr.Body.Exprs[1] != useVar {
		t.Error("the original loop body must follow the synthesized binding")
	}
}

func TestSugarPass_DesugarsWithIntoTryDispose(t *testing.T) {
	ctx, in := newTestContext()
	initExpr := &ast.Ident{Name: in.Intern("openFile")}
	bodyExpr := &ast.Ident{Name: in.Intern("useIt")}
	bindName := in.Intern("f")
	withExpr := &ast.WithExpr{
		Binds: []*ast.WithBind{{Name: bindName, Init: initExpr}},
		Body:  &ast.Block{Exprs: []ast.Expr{bodyExpr}},
	}

	rewritten := sugarExpr(withExpr, ctx)

	block, ok := rewritten.(*ast.Block)
	if !ok || len(block.Exprs) != 2 {
		t.Fatalf("rewritten = %#v, want a 2-expr block (let f, try)", rewritten)
	}
	decl, ok := block.Exprs[0].(*ast.VarDecl)
	if !ok || decl.Name != bindName || decl.Init != initExpr {
		t.Fatalf("block.Exprs[0] = %#v, want `let f = openFile`", block.Exprs[0])
	}
	tryExpr, ok := block.Exprs[1].(*ast.TryExpr)
	if !ok {
		t.Fatalf("block.Exprs[1] = %T, want *ast.TryExpr", block.Exprs[1])
	}
	if tryExpr.Body != withExpr.Body {
		t.Error("the with-body must become the try's protected body")
	}
	disposeCall, ok := tryExpr.Then.Exprs[0].(*ast.Call)
	if !ok {
		t.Fatalf("tryExpr.Then.Exprs[0] = %T, want *ast.Call", tryExpr.Then.Exprs[0])
	}
	if ctx.In.Text(disposeCall.Callee.(*ast.MemberAccess).Name) != "dispose" {
		t.Error("the then-arm must dispose the bound value")
	}
}

func TestSugarPass_DesugarsAsIntoMatch(t *testing.T) {
	ctx, in := newTestContext()
	value := &ast.Ident{Name: in.Intern("v")}
	ty := &ast.NominalType{Name: in.Intern("String")}
	asExpr := &ast.AsExpr{Value: value, Type: ty}

	rewritten := sugarExpr(asExpr, ctx)

	match, ok := rewritten.(*ast.MatchExpr)
	if !ok {
		t.Fatalf("rewritten = %T, want *ast.MatchExpr", rewritten)
	}
	if match.Subject != value {
		t.Error("the match subject must be the original as-expression's value")
	}
	if len(match.Cases) != 1 || match.Cases[0].AsType != ty {
		t.Fatal("expected exactly one case carrying the as-type test")
	}
	if _, ok := match.Cases[0].Body.Exprs[0].(*ast.ConsumeExpr); !ok {
		t.Error("the matched case must consume the bound value")
	}
	if _, ok := match.Else.(*ast.Block); !ok {
		t.Fatal("match.Else must be a block")
	}
	elseBlock := match.Else.(*ast.Block)
	if _, ok := elseBlock.Exprs[0].(*ast.ErrorExpr); !ok {
		t.Error("a failed `as` test must raise an error in the else arm")
	}
}

func TestSugarPass_LiftsObjectLiteralIntoEntity(t *testing.T) {
	ctx, in := newTestContext()
	obj := &ast.ObjectLit{
		Fields: []*ast.FieldDecl{{FieldKind: ast.FieldVar, Name: in.Intern("x"), Default: &ast.IntLit{}}},
	}
	method := &ast.MethodDecl{
		Flavor: ast.MethodFun,
		Name:   in.Intern("run"),
		Body:   &ast.Block{Exprs: []ast.Expr{obj}},
	}
	cls := &ast.EntityDecl{EntityKind: ast.EntityClass, Name: in.Intern("Holder"), Methods: []*ast.MethodDecl{method}}
	mod := &ast.Module{Path: "main.vel", Decls: []ast.Decl{cls}}
	pkg := &ast.Package{Path: "main", Modules: []*ast.Module{mod}}
	prog := &ast.Program{Packages: []*ast.Package{pkg}}

	(&SugarPass{}).Run(prog, ctx)

	if obj.Lifted == nil {
		t.Fatal("ObjectLit.Lifted was never set")
	}
	found := false
	for _, d := range mod.Decls {
		if d == obj.Lifted {
			found = true
		}
	}
	if !found {
		t.Error("the lifted entity must be appended to the current module's Decls")
	}
	rewritten, ok := method.Body.Exprs[0].(*ast.Call)
	if !ok {
		t.Fatalf("rewritten expr = %T, want *ast.Call", method.Body.Exprs[0])
	}
	if ctx.In.Text(rewritten.Callee.(*ast.Ident).Name) != ctx.In.Text(obj.Lifted.Name) {
		t.Error("the call's callee must name the lifted entity's constructor")
	}
}

func TestSugarPass_LiftsLambdaIntoEntityWithApply(t *testing.T) {
	ctx, in := newTestContext()
	lambda := &ast.Lambda{Body: &ast.Block{}}
	method := &ast.MethodDecl{
		Flavor: ast.MethodFun,
		Name:   in.Intern("run"),
		Body:   &ast.Block{Exprs: []ast.Expr{lambda}},
	}
	cls := &ast.EntityDecl{EntityKind: ast.EntityClass, Name: in.Intern("Holder"), Methods: []*ast.MethodDecl{method}}
	mod := &ast.Module{Path: "main.vel", Decls: []ast.Decl{cls}}
	pkg := &ast.Package{Path: "main", Modules: []*ast.Module{mod}}
	prog := &ast.Program{Packages: []*ast.Package{pkg}}

	(&SugarPass{}).Run(prog, ctx)

	if lambda.Lifted == nil {
		t.Fatal("Lambda.Lifted was never set")
	}
	if len(lambda.Lifted.Methods) != 2 {
		t.Fatalf("lifted entity Methods = %d, want 2 (apply, synthesized create)", len(lambda.Lifted.Methods))
	}
	var sawApply bool
	for _, m := range lambda.Lifted.Methods {
		if ctx.In.Text(m.Name) == "apply" {
			sawApply = true
		}
	}
	if !sawApply {
		t.Error("the lifted entity must have an apply method")
	}
}

func TestSugarPass_ObjectLiteralNotRelifted(t *testing.T) {
	ctx, in := newTestContext()
	already := &ast.EntityDecl{EntityKind: ast.EntityClass, Name: in.Intern("$anon_object_0")}
	obj := &ast.ObjectLit{Lifted: already}

	rewritten := sugarExpr(obj, ctx)

	if rewritten != obj {
		t.Error("an ObjectLit already lifted must be returned as-is, not re-lifted")
	}
}
