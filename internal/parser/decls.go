package parser

import (
	"github.com/veillang/velc/internal/ast"
	"github.com/veillang/velc/pkg/ident"
	"github.com/veillang/velc/pkg/token"
)

// parseUse parses a `use` directive (spec §6): either a package import
// (optionally aliased, optionally guarded) or an FFI declaration
// (`use @name[R](...) ?`). Exactly one of the two return values is
// non-nil.
func (p *Parser) parseUse() (*ast.UseDecl, *ast.FFIDecl) {
	start := p.pos()
	p.advance() // 'use'

	if p.cursor.Is(token.ADDRESS) {
		return nil, p.parseFFIDecl(start)
	}

	var alias ident.ID
	if p.cursor.Is(token.IDENT) && p.cursor.PeekIs(1, token.ASSIGN) {
		alias = p.cursor.Current().Name
		p.advance()
		p.advance() // '='
	}

	if !p.cursor.Is(token.STRING) {
		p.addError(ErrInvalidSyntax, "expected a string literal package path after 'use'")
		return &ast.UseDecl{Base: p.builder.At(start, p.pos())}, nil
	}
	path := p.in.Text(p.cursor.Current().Name)
	p.advance()

	guard := p.parseOptionalGuard()

	return &ast.UseDecl{Base: p.builder.At(start, p.pos()), Alias: alias, Path: path, Guard: guard}, nil
}

func (p *Parser) parseFFIDecl(start token.Position) *ast.FFIDecl {
	p.advance() // '@'
	name := ""
	if p.cursor.Is(token.IDENT) {
		name = p.in.Text(p.cursor.Current().Name)
		p.advance()
	} else {
		p.addError(ErrExpectedIdent, "expected an FFI symbol name after '@'")
	}

	var result ast.TypeExpr
	if p.cursor.Is(token.LBRACKET) {
		p.advance()
		result = p.parseType()
		p.expect(token.RBRACKET, ErrMissingBracket, "']' to close FFI result type")
	}

	p.expect(token.LPAREN, ErrMissingParen, "'(' after FFI declaration name")
	var params []*ast.Param
	variadic := false
	for !p.cursor.Is(token.RPAREN) && !p.cursor.IsEOF() {
		if p.cursor.Is(token.DOTDOT) {
			p.advance()
			variadic = true
			break
		}
		params = append(params, p.parseParam())
		if p.cursor.Is(token.COMMA) {
			p.advance()
		} else {
			break
		}
	}
	p.expect(token.RPAREN, ErrMissingParen, "')' to close FFI parameter list")

	partial := false
	if p.cursor.Is(token.QUESTION) {
		p.advance()
		partial = true
	}

	guard := p.parseOptionalGuard()

	return &ast.FFIDecl{
		Base: p.builder.At(start, p.pos()), Name: name, Result: result,
		Params: params, Variadic: variadic, Partial: partial, Guard: guard,
	}
}

// parseOptionalGuard parses a trailing `if <guard expr tokens...>`
// clause, collecting the raw text for internal/ifdef.Eval to interpret
// later, rather than building an AST for it (spec §6).
func (p *Parser) parseOptionalGuard() string {
	if !p.cursor.Is(token.IF) {
		return ""
	}
	p.advance()
	var sb []byte
	depth := 0
	for !p.cursor.IsEOF() {
		cur := p.cursor.Current()
		if depth == 0 && (cur.Type == token.SEMI || cur.Type == token.USE ||
			cur.Type == token.CLASS || cur.Type == token.ACTOR || cur.Type == token.TRAIT ||
			cur.Type == token.INTERFACE || cur.Type == token.PRIMITIVE || cur.Type == token.STRUCT ||
			cur.Type == token.TYPE || cur.Type == token.EOF) {
			break
		}
		if cur.Type == token.LPAREN {
			depth++
		}
		if cur.Type == token.RPAREN {
			if depth == 0 {
				break
			}
			depth--
		}
		if len(sb) > 0 {
			sb = append(sb, ' ')
		}
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

// parseEntity parses a class/actor/primitive/struct/trait/interface
// declaration (spec §3 "Entity kinds", §4.2).
func (p *Parser) parseEntity() *ast.EntityDecl {
	start := p.pos()
	kind := entityKindOf(p.cursor.Current().Type)
	p.advance()
	annotations := p.parseOptionalAnnotations()

	cap := p.parseOptionalCap()
	name, _ := p.expectIdent()
	typeParams := p.parseOptionalTypeParams()

	var provides []ast.TypeExpr
	if p.cursor.Is(token.IS) {
		p.advance()
		provides = append(provides, p.parseType())
	}

	entity := &ast.EntityDecl{
		Base: p.builder.At(start, start), EntityKind: kind, Name: name,
		TypeParams: typeParams, Provides: provides, DefaultCap: cap,
	}

	for !p.cursor.IsEOF() && !p.isEntityTerminator() {
		switch p.cursor.Current().Type {
		case token.VAR, token.LET, token.EMBED:
			entity.Fields = append(entity.Fields, p.parseField())
		case token.NEW, token.BE, token.FUN:
			m := p.parseMethod()
			m.Owner = entity
			entity.Methods = append(entity.Methods, m)
		default:
			p.addError(ErrUnexpectedToken, "expected a field or method, got "+p.cursor.Current().Type.String()+" instead")
			if !p.synchronize(token.VAR, token.LET, token.EMBED, token.NEW, token.BE, token.FUN) {
				entity.Base = p.builder.At(start, p.pos())
				entity.SetAnnotations(annotations)
				return entity
			}
		}
	}
	entity.Base = p.builder.At(start, p.pos())
	entity.SetAnnotations(annotations)
	return entity
}

// isEntityTerminator reports whether the current token starts a new
// top-level declaration, meaning the current entity's member list ended
// without an explicit closing keyword (Vel entities are delimited by
// the next declaration or EOF, matching an indentation-insensitive,
// keyword-delimited member list).
func (p *Parser) isEntityTerminator() bool {
	switch p.cursor.Current().Type {
	case token.CLASS, token.ACTOR, token.PRIMITIVE, token.STRUCT,
		token.TRAIT, token.INTERFACE, token.TYPE, token.EOF:
		return true
	default:
		return false
	}
}

func entityKindOf(t token.Type) ast.EntityKind {
	switch t {
	case token.CLASS:
		return ast.EntityClass
	case token.ACTOR:
		return ast.EntityActor
	case token.PRIMITIVE:
		return ast.EntityPrimitive
	case token.STRUCT:
		return ast.EntityStruct
	case token.TRAIT:
		return ast.EntityTrait
	case token.INTERFACE:
		return ast.EntityInterface
	default:
		return ast.EntityClass
	}
}

// parseTypeAlias parses `type Name[...] is T` (spec §3).
func (p *Parser) parseTypeAlias() *ast.TypeAliasDecl {
	start := p.pos()
	p.advance() // 'type'
	name, _ := p.expectIdent()
	typeParams := p.parseOptionalTypeParams()
	p.expect(token.IS, ErrInvalidSyntax, "'is' in type alias declaration")
	target := p.parseType()
	return &ast.TypeAliasDecl{Base: p.builder.At(start, p.pos()), Name: name, TypeParams: typeParams, Target: target}
}

func (p *Parser) parseOptionalTypeParams() []*ast.TypeParam {
	if !p.cursor.Is(token.LBRACKET) {
		return nil
	}
	p.advance()
	var params []*ast.TypeParam
	for !p.cursor.Is(token.RBRACKET) && !p.cursor.IsEOF() {
		start := p.pos()
		name, _ := p.expectIdent()
		var bound, def ast.TypeExpr
		if p.cursor.Is(token.COLON) {
			p.advance()
			bound = p.parseType()
		}
		if p.cursor.Is(token.ASSIGN) {
			p.advance()
			def = p.parseType()
		}
		params = append(params, &ast.TypeParam{
			Base: p.builder.At(start, p.pos()), Name: name, Bound: bound, Default: def,
		})
		if p.cursor.Is(token.COMMA) {
			p.advance()
		} else {
			break
		}
	}
	p.expect(token.RBRACKET, ErrMissingBracket, "']' to close type parameter list")
	return params
}

// parseField parses `var|let|embed name: T = default` (spec §3).
func (p *Parser) parseField() *ast.FieldDecl {
	start := p.pos()
	kind := ast.FieldVar
	switch p.cursor.Current().Type {
	case token.LET:
		kind = ast.FieldLet
	case token.EMBED:
		kind = ast.FieldEmbed
	}
	p.advance()
	name, _ := p.expectIdent()
	var typ ast.TypeExpr
	if p.expect(token.COLON, ErrMissingColon, "':' after field name") {
		typ = p.parseType()
	}
	var def ast.Expr
	if p.cursor.Is(token.ASSIGN) {
		p.advance()
		def = p.parseExpression(LOWEST)
	}
	return &ast.FieldDecl{Base: p.builder.At(start, p.pos()), FieldKind: kind, Name: name, Type: typ, Default: def}
}

// parseMethod parses `new|be|fun cap name[T](params): R ? => body`
// (spec §3 "Method").
func (p *Parser) parseMethod() *ast.MethodDecl {
	start := p.pos()
	flavor := ast.MethodFun
	switch p.cursor.Current().Type {
	case token.NEW:
		flavor = ast.MethodNew
	case token.BE:
		flavor = ast.MethodBe
	}
	p.advance()

	cap := p.parseOptionalCap()
	name, _ := p.expectIdent()
	typeParams := p.parseOptionalTypeParams()

	p.expect(token.LPAREN, ErrMissingParen, "'(' after method name")
	var params []*ast.Param
	for !p.cursor.Is(token.RPAREN) && !p.cursor.IsEOF() {
		params = append(params, p.parseParam())
		if p.cursor.Is(token.COMMA) {
			p.advance()
		} else {
			break
		}
	}
	p.expect(token.RPAREN, ErrMissingParen, "')' to close parameter list")

	var result ast.TypeExpr
	if p.cursor.Is(token.COLON) {
		p.advance()
		result = p.parseType()
	}

	partial := false
	if p.cursor.Is(token.QUESTION) {
		p.advance()
		partial = true
	}

	var body *ast.Block
	if p.cursor.Is(token.FATARROW) {
		p.advance()
		body = p.parseBlockUntil(
			token.VAR, token.LET, token.EMBED, token.NEW, token.BE, token.FUN,
			token.CLASS, token.ACTOR, token.PRIMITIVE, token.STRUCT,
			token.TRAIT, token.INTERFACE, token.TYPE, token.EOF,
		)
	}

	return &ast.MethodDecl{
		Base: p.builder.At(start, p.pos()), Flavor: flavor, Cap: cap, Name: name,
		TypeParams: typeParams, Params: params, Result: result, Partial: partial, Body: body,
	}
}

func (p *Parser) parseParam() *ast.Param {
	start := p.pos()
	name, _ := p.expectIdent()
	var typ ast.TypeExpr
	if p.expect(token.COLON, ErrMissingColon, "':' after parameter name") {
		typ = p.parseType()
	}
	var def ast.Expr
	if p.cursor.Is(token.ASSIGN) {
		p.advance()
		def = p.parseExpression(LOWEST)
	}
	return &ast.Param{Base: p.builder.At(start, p.pos()), Name: name, Type: typ, Default: def}
}
