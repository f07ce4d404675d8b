package parser

import (
	"github.com/veillang/velc/internal/ast"
	"github.com/veillang/velc/pkg/ident"
	"github.com/veillang/velc/pkg/token"
)

// parseType parses a type expression (spec §3/§4.2): a union of
// intersections of "arrow or atomic" types, i.e. `|` binds loosest,
// `&` next, `->` next, then a parenthesized/tuple/nominal/function atom.
func (p *Parser) parseType() ast.TypeExpr {
	start := p.pos()
	first := p.parseIntersectionType()
	if !p.cursor.Is(token.PIPE) {
		return first
	}
	members := []ast.TypeExpr{first}
	for p.cursor.Is(token.PIPE) {
		p.advance()
		members = append(members, p.parseIntersectionType())
	}
	return &ast.UnionType{Base: p.builder.At(start, p.pos()), Members: members}
}

func (p *Parser) parseIntersectionType() ast.TypeExpr {
	start := p.pos()
	first := p.parseArrowType()
	if !p.cursor.Is(token.AMP) {
		return first
	}
	members := []ast.TypeExpr{first}
	for p.cursor.Is(token.AMP) {
		p.advance()
		members = append(members, p.parseArrowType())
	}
	return &ast.IntersectionType{Base: p.builder.At(start, p.pos()), Members: members}
}

func (p *Parser) parseArrowType() ast.TypeExpr {
	start := p.pos()
	left := p.parseAtomicType()
	if !p.cursor.Is(token.ARROW) {
		return left
	}
	p.advance()
	right := p.parseArrowType() // right-associative: a->b->c == a->(b->c)
	return &ast.ArrowType{Base: p.builder.At(start, p.pos()), Origin: left, Target: right}
}

func (p *Parser) parseAtomicType() ast.TypeExpr {
	start := p.pos()
	switch p.cursor.Current().Type {
	case token.LPAREN:
		p.advance()
		first := p.parseType()
		if p.cursor.Is(token.COMMA) {
			elems := []ast.TypeExpr{first}
			for p.cursor.Is(token.COMMA) {
				p.advance()
				elems = append(elems, p.parseType())
			}
			p.expect(token.RPAREN, ErrMissingParen, "')' to close tuple type")
			return &ast.TupleType{Base: p.builder.At(start, p.pos()), Elems: elems}
		}
		p.expect(token.RPAREN, ErrMissingParen, "')' to close parenthesized type")
		return first
	case token.LBRACE:
		return p.parseFunType()
	case token.IDENT, token.THIS:
		return p.parseNominalType()
	default:
		p.addError(ErrExpectedType, "expected a type, got "+p.cursor.Current().Type.String()+" instead")
		return &ast.NominalType{Base: p.builder.At(start, p.pos())}
	}
}

func (p *Parser) parseFunType() *ast.FunType {
	start := p.pos()
	p.advance() // '{'
	p.expect(token.LPAREN, ErrMissingParen, "'(' after '{' in function type")
	var params []ast.TypeExpr
	for !p.cursor.Is(token.RPAREN) && !p.cursor.IsEOF() {
		params = append(params, p.parseType())
		if p.cursor.Is(token.COMMA) {
			p.advance()
		} else {
			break
		}
	}
	p.expect(token.RPAREN, ErrMissingParen, "')' to close function type parameters")
	var result ast.TypeExpr
	if p.cursor.Is(token.COLON) {
		p.advance()
		result = p.parseType()
	}
	cap := p.parseOptionalCap()
	p.expect(token.RBRACE, ErrMissingBracket, "'}' to close function type")
	return &ast.FunType{Base: p.builder.At(start, p.pos()), Params: params, Result: result, Cap: cap}
}

func (p *Parser) parseNominalType() ast.TypeExpr {
	start := p.pos()
	if p.cursor.Is(token.DONTCARE) {
		p.advance()
		return &ast.NominalType{Base: p.builder.At(start, p.pos())}
	}
	name, ok := p.expectIdent()
	if !ok {
		return &ast.NominalType{Base: p.builder.At(start, p.pos())}
	}
	var pkg ident.ID
	typeName := name
	if p.cursor.Is(token.DOT) {
		p.advance()
		pkg = name
		typeName, ok = p.expectIdent()
		if !ok {
			return &ast.NominalType{Base: p.builder.At(start, p.pos())}
		}
	}
	var args []ast.TypeExpr
	if p.cursor.Is(token.LBRACKET) {
		p.advance()
		for !p.cursor.Is(token.RBRACKET) && !p.cursor.IsEOF() {
			args = append(args, p.parseType())
			if p.cursor.Is(token.COMMA) {
				p.advance()
			} else {
				break
			}
		}
		p.expect(token.RBRACKET, ErrMissingBracket, "']' to close type arguments")
	}
	cap := p.parseOptionalCap()
	eph := ast.EphemeralNone
	if p.cursor.Is(token.CARET) {
		p.advance()
		eph = ast.EphemeralCaret
	} else if p.cursor.Is(token.NOT_KW) {
		// `!` is lexed as NOT_KW only in keyword position; a trailing
		// ephemeral bang is distinguished by the lexer's operator table
		// returning a dedicated token in a fuller implementation. Left
		// unconsumed here deliberately: see DESIGN.md open item.
	}
	return &ast.NominalType{
		Base: p.builder.At(start, p.pos()), Package: pkg, Name: typeName,
		Args: args, Cap: cap, Ephemeral: eph,
	}
}

func (p *Parser) parseOptionalCap() ast.Cap {
	switch p.cursor.Current().Type {
	case token.ISO:
		p.advance()
		return ast.CapIso
	case token.TRN:
		p.advance()
		return ast.CapTrn
	case token.REF:
		p.advance()
		return ast.CapRef
	case token.VAL:
		p.advance()
		return ast.CapVal
	case token.BOX:
		p.advance()
		return ast.CapBox
	case token.TAG:
		p.advance()
		return ast.CapTag
	default:
		return ast.CapNone
	}
}

func (p *Parser) parseOptionalCapSet() ast.CapSet {
	switch p.cursor.Current().Type {
	case token.CAP_READ:
		p.advance()
		return ast.CapSetRead
	case token.CAP_SEND:
		p.advance()
		return ast.CapSetSend
	case token.CAP_SHARE:
		p.advance()
		return ast.CapSetShare
	case token.CAP_ANY:
		p.advance()
		return ast.CapSetAny
	default:
		return ast.CapSetNone
	}
}
