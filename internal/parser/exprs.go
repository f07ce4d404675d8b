package parser

import (
	"github.com/veillang/velc/internal/ast"
	"github.com/veillang/velc/pkg/token"
)

// parseExpression implements Pratt/precedence-climbing (spec §4.2): it
// parses one prefix expression, then consumes infix/postfix operators
// whose precedence exceeds minPrec. At the lowest level a trailing `=`
// makes the whole expression an assignment's LHS (right-associative).
func (p *Parser) parseExpression(minPrec int) ast.Expr {
	start := p.pos()
	left := p.parsePrefix()
	for {
		prec, ok := precedences[p.cursor.Current().Type]
		if !ok || prec <= minPrec {
			break
		}
		left = p.parseInfix(left, prec)
	}
	if minPrec == LOWEST && p.cursor.Is(token.ASSIGN) {
		p.advance()
		rhs := p.parseExpression(LOWEST)
		left = &ast.AssignExpr{Base: p.builder.At(start, p.pos()), LHS: left, RHS: rhs}
	}
	return left
}

func (p *Parser) parsePrefix() ast.Expr {
	start := p.pos()
	switch p.cursor.Current().Type {
	case token.INT:
		v := p.cursor.Current().Int
		p.advance()
		return &ast.IntLit{Base: p.builder.At(start, p.pos()), Value: v}
	case token.FLOAT:
		v := p.cursor.Current().Float
		p.advance()
		return &ast.FloatLit{Base: p.builder.At(start, p.pos()), Value: v}
	case token.STRING:
		v := p.cursor.Current().Name
		p.advance()
		return &ast.StringLit{Base: p.builder.At(start, p.pos()), Value: v}
	case token.TRUE:
		p.advance()
		return &ast.BoolLit{Base: p.builder.At(start, p.pos()), Value: true}
	case token.FALSE:
		p.advance()
		return &ast.BoolLit{Base: p.builder.At(start, p.pos()), Value: false}
	case token.THIS:
		p.advance()
		return &ast.This{Base: p.builder.At(start, p.pos())}
	case token.DONTCARE:
		p.advance()
		return &ast.DontCare{Base: p.builder.At(start, p.pos())}
	case token.LOC:
		p.advance()
		return &ast.LocExpr{Base: p.builder.At(start, p.pos())}
	case token.IDENT:
		return p.parseIdentOrNone()
	case token.ADDRESS:
		return p.parseFFICallExpr()
	case token.LPAREN:
		return p.parseParenOrTuple()
	case token.LBRACKET:
		return p.parseArrayLit()
	case token.OBJECT:
		return p.parseObjectLit()
	case token.LBRACE:
		return p.parseLambda()
	case token.MINUS:
		p.advance()
		operand := p.parseExpression(UNARY)
		return &ast.UnaryExpr{Base: p.builder.At(start, p.pos()), Op: ast.OpNeg, Operand: operand}
	case token.NOT_KW:
		p.advance()
		operand := p.parseExpression(UNARY)
		return &ast.UnaryExpr{Base: p.builder.At(start, p.pos()), Op: ast.OpNot, Operand: operand}
	case token.IF, token.IFDEF, token.IFTYPE, token.WHILE, token.REPEAT,
		token.FOR, token.WITH, token.TRY, token.RECOVER, token.CONSUME,
		token.MATCH, token.BREAK, token.CONTINUE, token.RETURN, token.ERROR,
		token.VAR, token.LET:
		return p.parseControlFlow()
	default:
		p.addError(ErrNoPrefixParse, "unexpected "+p.cursor.Current().Type.String()+" in expression")
		p.advance()
		return &ast.ErrorExpr{Base: p.builder.At(start, p.pos())}
	}
}

// parseIdentOrNone treats the bare identifier spelling "None" as the
// None literal (spec §3); Vel, like the language it generalizes, has no
// reserved word for it so the parser recognizes it by spelling.
func (p *Parser) parseIdentOrNone() ast.Expr {
	start := p.pos()
	name := p.cursor.Current().Name
	if p.in.Text(name) == "None" {
		p.advance()
		return &ast.NoneLit{Base: p.builder.At(start, p.pos())}
	}
	p.advance()
	return &ast.Ident{Base: p.builder.At(start, p.pos()), Name: name}
}

func (p *Parser) parseFFICallExpr() ast.Expr {
	start := p.pos()
	p.advance() // '@'
	name := ""
	if p.cursor.Is(token.IDENT) {
		name = p.in.Text(p.cursor.Current().Name)
		p.advance()
	} else {
		p.addError(ErrExpectedIdent, "expected an FFI symbol name after '@'")
	}
	if p.cursor.Is(token.LBRACKET) { // optional explicit result type, discarded at call site
		p.advance()
		p.parseType()
		p.expect(token.RBRACKET, ErrMissingBracket, "']' to close FFI call result type")
	}
	p.expect(token.LPAREN, ErrMissingParen, "'(' after FFI call name")
	var args []ast.Expr
	for !p.cursor.Is(token.RPAREN) && !p.cursor.IsEOF() {
		args = append(args, p.parseExpression(LOWEST))
		if p.cursor.Is(token.COMMA) {
			p.advance()
		} else {
			break
		}
	}
	p.expect(token.RPAREN, ErrMissingParen, "')' to close FFI call arguments")
	return &ast.FFICall{Base: p.builder.At(start, p.pos()), Name: name, Args: args}
}

// parseParenOrTuple disambiguates `(expr)` (a parenthesized expression,
// flagged InParens) from `(e1, e2, ...)` (a TupleLit).
func (p *Parser) parseParenOrTuple() ast.Expr {
	start := p.pos()
	p.advance() // '('
	if p.cursor.Is(token.RPAREN) {
		p.advance()
		return &ast.TupleLit{Base: p.builder.At(start, p.pos())}
	}
	first := p.parseExpression(LOWEST)
	if p.cursor.Is(token.COMMA) {
		elems := []ast.Expr{first}
		for p.cursor.Is(token.COMMA) {
			p.advance()
			elems = append(elems, p.parseExpression(LOWEST))
		}
		p.expect(token.RPAREN, ErrMissingParen, "')' to close tuple literal")
		return &ast.TupleLit{Base: p.builder.At(start, p.pos()), Elems: elems}
	}
	p.expect(token.RPAREN, ErrMissingParen, "')' to close parenthesized expression")
	first.SetFlag(ast.InParens)
	return first
}

func (p *Parser) parseArrayLit() ast.Expr {
	start := p.pos()
	p.advance() // '['
	var elem ast.TypeExpr
	if p.cursor.Is(token.COLON) {
		p.advance()
		elem = p.parseType()
	}
	var elems []ast.Expr
	for !p.cursor.Is(token.RBRACKET) && !p.cursor.IsEOF() {
		elems = append(elems, p.parseExpression(LOWEST))
		if p.cursor.Is(token.SEMI) || p.cursor.Is(token.COMMA) {
			p.advance()
		} else {
			break
		}
	}
	p.expect(token.RBRACKET, ErrMissingBracket, "']' to close array literal")
	return &ast.ArrayLit{Base: p.builder.At(start, p.pos()), Elems: elems, Elem: elem}
}

func (p *Parser) parseObjectLit() ast.Expr {
	start := p.pos()
	p.advance() // 'object'
	cap := p.parseOptionalCap()
	var provides []ast.TypeExpr
	if p.cursor.Is(token.IS) {
		p.advance()
		provides = append(provides, p.parseType())
	}
	lit := &ast.ObjectLit{Base: p.builder.At(start, start), Provides: provides, Cap: cap}
	for !p.cursor.Is(token.END) && !p.cursor.IsEOF() {
		switch p.cursor.Current().Type {
		case token.VAR, token.LET, token.EMBED:
			lit.Fields = append(lit.Fields, p.parseField())
		case token.NEW, token.BE, token.FUN:
			lit.Methods = append(lit.Methods, p.parseMethod())
		default:
			p.addError(ErrUnexpectedToken, "expected a field or method in object literal")
			if !p.synchronize(token.END) {
				break
			}
		}
	}
	p.expect(token.END, ErrMissingEnd, "'end' to close object literal")
	lit.Base = p.builder.At(start, p.pos())
	return lit
}

func (p *Parser) parseLambda() ast.Expr {
	start := p.pos()
	p.advance() // '{'
	p.expect(token.LPAREN, ErrMissingParen, "'(' after '{' in lambda")
	var params []*ast.Param
	for !p.cursor.Is(token.RPAREN) && !p.cursor.IsEOF() {
		params = append(params, p.parseParam())
		if p.cursor.Is(token.COMMA) {
			p.advance()
		} else {
			break
		}
	}
	p.expect(token.RPAREN, ErrMissingParen, "')' to close lambda parameters")
	var result ast.TypeExpr
	if p.cursor.Is(token.COLON) {
		p.advance()
		result = p.parseType()
	}
	cap := p.parseOptionalCap()
	p.expect(token.FATARROW, ErrMissingFatArrow, "'=>' in lambda")
	body := p.parseBlockUntil(token.RBRACE)
	p.expect(token.RBRACE, ErrMissingBracket, "'}' to close lambda")
	return &ast.Lambda{Base: p.builder.At(start, p.pos()), Params: params, Result: result, Cap: cap, Body: body}
}

// parseInfix consumes one infix/postfix operator at precedence prec.
func (p *Parser) parseInfix(left ast.Expr, prec int) ast.Expr {
	start := left.Pos()
	switch p.cursor.Current().Type {
	case token.DOT:
		p.advance()
		name, _ := p.expectIdent()
		return &ast.MemberAccess{Base: p.builder.At(start, p.pos()), Receiver: left, Name: name}
	case token.LPAREN:
		return p.parseCallArgs(left, nil, start)
	case token.LBRACKET:
		typeArgs := p.parseTypeArgsList()
		return p.parseCallArgs(left, typeArgs, start)
	case token.IS:
		p.advance()
		right := p.parseExpression(prec)
		return &ast.IsExpr{Base: p.builder.At(start, p.pos()), Left: left, Right: right}
	case token.ISNT:
		p.advance()
		right := p.parseExpression(prec)
		return &ast.IsExpr{Base: p.builder.At(start, p.pos()), Left: left, Right: right, Negate: true}
	case token.AS:
		p.advance()
		typ := p.parseType()
		return &ast.AsExpr{Base: p.builder.At(start, p.pos()), Value: left, Type: typ}
	default:
		op, ok := binaryOps[p.cursor.Current().Type]
		if !ok {
			p.addError(ErrUnexpectedToken, "unexpected "+p.cursor.Current().Type.String()+" in expression")
			p.advance()
			return left
		}
		p.advance()
		right := p.parseExpression(prec)
		return &ast.BinaryExpr{Base: p.builder.At(start, p.pos()), Op: op, Left: left, Right: right}
	}
}

func (p *Parser) parseTypeArgsList() []ast.TypeExpr {
	p.advance() // '['
	var args []ast.TypeExpr
	for !p.cursor.Is(token.RBRACKET) && !p.cursor.IsEOF() {
		args = append(args, p.parseType())
		if p.cursor.Is(token.COMMA) {
			p.advance()
		} else {
			break
		}
	}
	p.expect(token.RBRACKET, ErrMissingBracket, "']' to close type arguments")
	return args
}

func (p *Parser) parseCallArgs(callee ast.Expr, typeArgs []ast.TypeExpr, start token.Position) ast.Expr {
	p.expect(token.LPAREN, ErrMissingParen, "'(' to start call arguments")
	var args []ast.Expr
	for !p.cursor.Is(token.RPAREN) && !p.cursor.IsEOF() {
		args = append(args, p.parseExpression(LOWEST))
		if p.cursor.Is(token.COMMA) {
			p.advance()
		} else {
			break
		}
	}
	p.expect(token.RPAREN, ErrMissingParen, "')' to close call arguments")
	partial := false
	if p.cursor.Is(token.QUESTION) {
		p.advance()
		partial = true
	}
	return &ast.Call{Base: p.builder.At(start, p.pos()), Callee: callee, TypeArgs: typeArgs, Args: args, Partial: partial}
}
