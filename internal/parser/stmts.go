package parser

import (
	"github.com/veillang/velc/internal/ast"
	"github.com/veillang/velc/pkg/token"
)

// parseBlockUntil parses a sequence of expressions, each optionally
// followed by ';' (the lexer skips newlines as whitespace) until one
// of the stop tokens, EOF, or a recognized block closer is reached. It
// does not consume the stop token.
func (p *Parser) parseBlockUntil(stop ...token.Type) *ast.Block {
	start := p.pos()
	wanted := make(map[token.Type]bool, len(stop))
	for _, t := range stop {
		wanted[t] = true
	}
	blk := &ast.Block{Base: p.builder.At(start, start)}
	for !p.cursor.IsEOF() {
		cur := p.cursor.Current().Type
		if wanted[cur] || isBlockCloser(cur) {
			break
		}
		e := p.parseExpression(LOWEST)
		blk.Exprs = append(blk.Exprs, e)
		for p.cursor.Is(token.SEMI) {
			p.advance()
		}
	}
	blk.Base = p.builder.At(start, p.pos())
	return blk
}

func isBlockCloser(t token.Type) bool {
	for _, c := range blockClosers {
		if t == c {
			return true
		}
	}
	return false
}

// parseControlFlow dispatches on the keyword starting an expression
// that is itself control flow (spec §4.2), used from the Pratt parser's
// primary-expression position.
func (p *Parser) parseControlFlow() ast.Expr {
	switch p.cursor.Current().Type {
	case token.IF:
		return p.parseIf()
	case token.IFDEF:
		return p.parseIfDef()
	case token.IFTYPE:
		return p.parseIfType()
	case token.WHILE:
		return p.parseWhile()
	case token.REPEAT:
		return p.parseRepeat()
	case token.FOR:
		return p.parseFor()
	case token.WITH:
		return p.parseWith()
	case token.TRY:
		return p.parseTry()
	case token.RECOVER:
		return p.parseRecover()
	case token.CONSUME:
		return p.parseConsume()
	case token.MATCH:
		return p.parseMatch()
	case token.BREAK:
		return p.parseBreak()
	case token.CONTINUE:
		start := p.pos()
		p.advance()
		return &ast.ContinueExpr{Base: p.builder.At(start, p.pos())}
	case token.RETURN:
		return p.parseReturn()
	case token.ERROR:
		start := p.pos()
		p.advance()
		return &ast.ErrorExpr{Base: p.builder.At(start, p.pos())}
	case token.VAR, token.LET:
		return p.parseVarDecl()
	default:
		start := p.pos()
		p.addError(ErrUnexpectedToken, "expected an expression, got "+p.cursor.Current().Type.String()+" instead")
		return &ast.ErrorExpr{Base: p.builder.At(start, p.pos())}
	}
}

func (p *Parser) parseOptionalElse(closers ...token.Type) ast.Expr {
	if p.cursor.Is(token.ELSEIF) {
		return p.parseIf()
	}
	if !p.cursor.Is(token.ELSE) {
		return nil
	}
	p.advance()
	return p.parseBlockUntil(closers...)
}

func (p *Parser) parseIf() ast.Expr {
	start := p.pos()
	p.advance() // 'if' or 'elseif'
	annotations := p.parseOptionalAnnotations()
	cond := p.parseExpression(LOWEST)
	p.expect(token.THEN, ErrMissingThen, "'then' after if condition")
	then := p.parseBlockUntil(token.ELSE, token.ELSEIF, token.END)
	els := p.parseOptionalElse(token.END)
	if _, isElseif := els.(*ast.IfExpr); !isElseif {
		p.expect(token.END, ErrMissingEnd, "'end' to close 'if'")
	}
	n := &ast.IfExpr{Base: p.builder.At(start, p.pos()), Cond: cond, Then: then, Else: els}
	if len(annotations) > 0 {
		n.SetAnnotations(annotations)
	}
	return n
}

func (p *Parser) parseIfDef() ast.Expr {
	start := p.pos()
	p.advance() // 'ifdef'
	guard := p.parseOptionalGuard()
	if guard == "" {
		guard = p.collectGuardUntil(token.THEN)
	}
	p.expect(token.THEN, ErrMissingThen, "'then' after ifdef guard")
	then := p.parseBlockUntil(token.ELSE, token.END)
	var els ast.Expr
	if p.cursor.Is(token.ELSE) {
		p.advance()
		els = p.parseBlockUntil(token.END)
	}
	p.expect(token.END, ErrMissingEnd, "'end' to close 'ifdef'")
	return &ast.IfDefExpr{Base: p.builder.At(start, p.pos()), Guard: guard, Then: then, Else: els}
}

// collectGuardUntil collects raw guard tokens up to (not including) one
// of the stop types, for ifdef/iftype forms that aren't introduced by
// `if` and so can't reuse parseOptionalGuard's leading-IF check.
func (p *Parser) collectGuardUntil(stop token.Type) string {
	var sb []byte
	for !p.cursor.IsEOF() && !p.cursor.Is(stop) {
		if len(sb) > 0 {
			sb = append(sb, ' ')
		}
		cur := p.cursor.Current()
		switch cur.Type {
		case token.IDENT:
			sb = append(sb, []byte(p.in.Text(cur.Name))...)
		case token.STRING:
			sb = append(sb, '"')
			sb = append(sb, []byte(p.in.Text(cur.Name))...)
			sb = append(sb, '"')
		default:
			sb = append(sb, []byte(cur.Type.String())...)
		}
		p.advance()
	}
	return string(sb)
}

func (p *Parser) parseIfType() ast.Expr {
	start := p.pos()
	p.advance() // 'iftype'
	param := p.parseType()
	p.expect(token.LT, ErrInvalidSyntax, "'<:' in iftype condition")
	if p.cursor.Is(token.COLON) {
		p.advance()
	}
	bound := p.parseType()
	p.expect(token.THEN, ErrMissingThen, "'then' after iftype condition")
	then := p.parseBlockUntil(token.ELSE, token.END)
	var els ast.Expr
	if p.cursor.Is(token.ELSE) {
		p.advance()
		els = p.parseBlockUntil(token.END)
	}
	p.expect(token.END, ErrMissingEnd, "'end' to close 'iftype'")
	return &ast.IfTypeExpr{Base: p.builder.At(start, p.pos()), Param: param, Bound: bound, Then: then, Else: els}
}

func (p *Parser) parseWhile() ast.Expr {
	start := p.pos()
	p.advance() // 'while'
	cond := p.parseExpression(LOWEST)
	p.expect(token.DO, ErrMissingDo, "'do' after while condition")
	body := p.parseBlockUntil(token.ELSE, token.END)
	var els ast.Expr
	if p.cursor.Is(token.ELSE) {
		p.advance()
		els = p.parseBlockUntil(token.END)
	}
	p.expect(token.END, ErrMissingEnd, "'end' to close 'while'")
	return &ast.WhileExpr{Base: p.builder.At(start, p.pos()), Cond: cond, Body: body, Else: els}
}

func (p *Parser) parseRepeat() ast.Expr {
	start := p.pos()
	p.advance() // 'repeat'
	body := p.parseBlockUntil(token.UNTIL)
	p.expect(token.UNTIL, ErrInvalidSyntax, "'until' after repeat body")
	until := p.parseExpression(LOWEST)
	var els ast.Expr
	if p.cursor.Is(token.ELSE) {
		p.advance()
		els = p.parseBlockUntil(token.END)
	}
	p.expect(token.END, ErrMissingEnd, "'end' to close 'repeat'")
	return &ast.RepeatExpr{Base: p.builder.At(start, p.pos()), Body: body, Until: until, Else: els}
}

func (p *Parser) parseFor() ast.Expr {
	start := p.pos()
	p.advance() // 'for'
	name, _ := p.expectIdent()
	var typ ast.TypeExpr
	if p.cursor.Is(token.COLON) {
		p.advance()
		typ = p.parseType()
	}
	p.expect(token.IN, ErrInvalidSyntax, "'in' after for-loop variable")
	iter := p.parseExpression(LOWEST)
	p.expect(token.DO, ErrMissingDo, "'do' after for-loop iterator")
	body := p.parseBlockUntil(token.ELSE, token.END)
	var els ast.Expr
	if p.cursor.Is(token.ELSE) {
		p.advance()
		els = p.parseBlockUntil(token.END)
	}
	p.expect(token.END, ErrMissingEnd, "'end' to close 'for'")
	return &ast.ForExpr{Base: p.builder.At(start, p.pos()), Var: name, Type: typ, Iter: iter, Body: body, Else: els}
}

func (p *Parser) parseWith() ast.Expr {
	start := p.pos()
	p.advance() // 'with'
	var binds []*ast.WithBind
	for {
		name, _ := p.expectIdent()
		var typ ast.TypeExpr
		if p.cursor.Is(token.COLON) {
			p.advance()
			typ = p.parseType()
		}
		p.expect(token.ASSIGN, ErrMissingAssign, "'=' in with-binding")
		init := p.parseExpression(LOWEST)
		binds = append(binds, &ast.WithBind{Name: name, Type: typ, Init: init})
		if p.cursor.Is(token.COMMA) {
			p.advance()
			continue
		}
		break
	}
	p.expect(token.DO, ErrMissingDo, "'do' after with-bindings")
	body := p.parseBlockUntil(token.ELSE, token.END)
	var els ast.Expr
	if p.cursor.Is(token.ELSE) {
		p.advance()
		els = p.parseBlockUntil(token.END)
	}
	p.expect(token.END, ErrMissingEnd, "'end' to close 'with'")
	return &ast.WithExpr{Base: p.builder.At(start, p.pos()), Binds: binds, Body: body, Else: els}
}

func (p *Parser) parseTry() ast.Expr {
	start := p.pos()
	p.advance() // 'try'
	body := p.parseBlockUntil(token.ELSE, token.THEN, token.END)
	var els, then *ast.Block
	if p.cursor.Is(token.ELSE) {
		p.advance()
		els = p.parseBlockUntil(token.THEN, token.END)
	}
	if p.cursor.Is(token.THEN) {
		p.advance()
		then = p.parseBlockUntil(token.END)
	}
	p.expect(token.END, ErrMissingEnd, "'end' to close 'try'")
	return &ast.TryExpr{Base: p.builder.At(start, p.pos()), Body: body, Else: els, Then: then}
}

func (p *Parser) parseRecover() ast.Expr {
	start := p.pos()
	p.advance() // 'recover'
	cap := p.parseOptionalCap()
	body := p.parseBlockUntil(token.END)
	p.expect(token.END, ErrMissingEnd, "'end' to close 'recover'")
	return &ast.RecoverExpr{Base: p.builder.At(start, p.pos()), Cap: cap, Body: body}
}

func (p *Parser) parseConsume() ast.Expr {
	start := p.pos()
	p.advance() // 'consume'
	cap := p.parseOptionalCapSetAsCap()
	expr := p.parseExpression(UNARY)
	return &ast.ConsumeExpr{Base: p.builder.At(start, p.pos()), Cap: cap, Expr: expr}
}

// parseOptionalCapSetAsCap consumes an optional single reference
// capability written before a consumed expression (`consume iso x`);
// unlike parseOptionalCap it never appears in a type position, but
// shares the same token set.
func (p *Parser) parseOptionalCapSetAsCap() ast.Cap { return p.parseOptionalCap() }

func (p *Parser) parseMatch() ast.Expr {
	start := p.pos()
	p.advance() // 'match'
	subject := p.parseExpression(LOWEST)
	var cases []*ast.MatchCase
	for p.cursor.Is(token.PIPE) {
		cases = append(cases, p.parseMatchCase())
	}
	var els ast.Expr
	if p.cursor.Is(token.ELSE) {
		p.advance()
		els = p.parseBlockUntil(token.END)
	}
	p.expect(token.END, ErrMissingEnd, "'end' to close 'match'")
	return &ast.MatchExpr{Base: p.builder.At(start, p.pos()), Subject: subject, Cases: cases, Else: els}
}

func (p *Parser) parseMatchCase() *ast.MatchCase {
	start := p.pos()
	p.advance() // '|'
	pattern := p.parseExpression(ASOP)
	var asType ast.TypeExpr
	if p.cursor.Is(token.AS) {
		p.advance()
		asType = p.parseType()
	}
	var guard ast.Expr
	if p.cursor.Is(token.IF) {
		p.advance()
		guard = p.parseExpression(LOWEST)
	}
	p.expect(token.FATARROW, ErrMissingFatArrow, "'=>' after match pattern")
	body := p.parseBlockUntil(token.PIPE, token.ELSE, token.END)
	return &ast.MatchCase{Base: p.builder.At(start, p.pos()), Pattern: pattern, AsType: asType, Guard: guard, Body: body}
}

func (p *Parser) parseBreak() ast.Expr {
	start := p.pos()
	p.advance() // 'break'
	var val ast.Expr
	if p.canStartExpression() {
		val = p.parseExpression(LOWEST)
	}
	return &ast.BreakExpr{Base: p.builder.At(start, p.pos()), Value: val}
}

func (p *Parser) parseReturn() ast.Expr {
	start := p.pos()
	p.advance() // 'return'
	var val ast.Expr
	if p.canStartExpression() {
		val = p.parseExpression(LOWEST)
	}
	return &ast.ReturnExpr{Base: p.builder.At(start, p.pos()), Value: val}
}

// canStartExpression reports whether the current token could begin an
// expression, used to decide whether break/return carry a value.
func (p *Parser) canStartExpression() bool {
	for _, t := range exprStarters {
		if p.cursor.Current().Type == t {
			return true
		}
	}
	switch p.cursor.Current().Type {
	case token.TRUE, token.FALSE, token.THIS, token.INT, token.FLOAT,
		token.STRING, token.DONTCARE, token.OBJECT, token.MINUS, token.NOT_KW, token.LOC:
		return true
	default:
		return false
	}
}

func (p *Parser) parseVarDecl() ast.Expr {
	start := p.pos()
	isLet := p.cursor.Is(token.LET)
	p.advance() // 'var' or 'let'
	name, _ := p.expectIdent()
	var typ ast.TypeExpr
	if p.cursor.Is(token.COLON) {
		p.advance()
		typ = p.parseType()
	}
	var init ast.Expr
	if p.cursor.Is(token.ASSIGN) {
		p.advance()
		init = p.parseExpression(LOWEST)
	}
	return &ast.VarDecl{Base: p.builder.At(start, p.pos()), IsLet: isLet, Name: name, Type: typ, Init: init}
}
