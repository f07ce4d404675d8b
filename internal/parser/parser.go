package parser

import (
	"github.com/veillang/velc/internal/ast"
	"github.com/veillang/velc/internal/lexer"
	"github.com/veillang/velc/pkg/ident"
	"github.com/veillang/velc/pkg/token"
)

// Precedence levels for the Pratt expression parser (spec §4.2).
const (
	LOWEST = iota
	OR_PREC
	AND_PREC
	EQUALITY
	RELATIONAL
	SHIFT
	ADDITIVE
	MULTIPLICATIVE
	ASOP // `is`/`isnt`/`as`
	UNARY
	POSTFIX
)

var precedences = map[token.Type]int{
	token.OR_KW:    OR_PREC,
	token.AND_KW:   AND_PREC,
	token.XOR_KW:   AND_PREC,
	token.EQ:       EQUALITY,
	token.NE:       EQUALITY,
	token.LT:       RELATIONAL,
	token.LE:       RELATIONAL,
	token.GT:       RELATIONAL,
	token.GE:       RELATIONAL,
	token.SHL:      SHIFT,
	token.SHR:      SHIFT,
	token.PLUS:     ADDITIVE,
	token.MINUS:    ADDITIVE,
	token.STAR:     MULTIPLICATIVE,
	token.SLASH:    MULTIPLICATIVE,
	token.PERCENT:  MULTIPLICATIVE,
	token.IS:       ASOP,
	token.ISNT:     ASOP,
	token.AS:       ASOP,
	token.LPAREN:   POSTFIX,
	token.DOT:      POSTFIX,
	token.LBRACKET: POSTFIX,
}

var binaryOps = map[token.Type]ast.BinaryOp{
	token.PLUS: ast.OpAdd, token.MINUS: ast.OpSub, token.STAR: ast.OpMul,
	token.SLASH: ast.OpDiv, token.PERCENT: ast.OpMod,
	token.EQ: ast.OpEq, token.NE: ast.OpNe,
	token.LT: ast.OpLt, token.LE: ast.OpLe, token.GT: ast.OpGt, token.GE: ast.OpGe,
	token.AND_KW: ast.OpAnd, token.OR_KW: ast.OpOr, token.XOR_KW: ast.OpXor,
}

// Parser is the recursive-descent Parser (spec §2). It owns the
// immutable token cursor (reassigned as parsing advances), the Tree
// Builder for NodeID/position allocation, the block-context stack, and
// the furthest-advance error tracker that survives backtracking.
type Parser struct {
	cursor  *TokenCursor
	in      *ident.Interner
	builder *ast.Builder
	ctx     *ParseContext
	errs    *deepestError
	file    string
}

// New creates a Parser reading src as file, interning identifiers
// through in.
func New(in *ident.Interner, builder *ast.Builder, file, src string) *Parser {
	l := lexer.New(in, file, src)
	return &Parser{
		cursor:  NewTokenCursor(l),
		in:      in,
		builder: builder,
		ctx:     NewParseContext(),
		errs:    &deepestError{},
		file:    file,
	}
}

// Errors returns the furthest-advance diagnostics recorded during
// parsing, in no particular order beyond sharing the same position.
func (p *Parser) Errors() []*SyntaxError { return p.errs.errs }

func (p *Parser) advance() { p.cursor = p.cursor.Advance() }

func (p *Parser) pos() token.Position { return p.cursor.Current().Pos }

func (p *Parser) addError(code, msg string) {
	p.errs.add(&SyntaxError{Message: msg, Code: code, Pos: p.pos()})
}

// expect consumes the current token if it has type t, else records a
// syntax error and leaves the cursor in place.
func (p *Parser) expect(t token.Type, code, what string) bool {
	if p.cursor.Is(t) {
		p.advance()
		return true
	}
	p.addError(code, "expected "+what+", got "+p.cursor.Current().Type.String()+" instead")
	return false
}

// expectIdent consumes an IDENT token and returns its interned name.
func (p *Parser) expectIdent() (ident.ID, bool) {
	if !p.cursor.Is(token.IDENT) {
		p.addError(ErrExpectedIdent, "expected identifier, got "+p.cursor.Current().Type.String()+" instead")
		return 0, false
	}
	name := p.cursor.Current().Name
	p.advance()
	return name, true
}

// ParseModule parses one source file into a *ast.Module (spec §3
// "Module"/"Unit"): its `use`/FFI directives followed by entity and
// type-alias declarations.
func (p *Parser) ParseModule() *ast.Module {
	start := p.pos()
	mod := &ast.Module{Base: p.builder.At(start, start), Path: p.file}

	for p.cursor.Is(token.USE) {
		if use, ffi := p.parseUse(); use != nil {
			mod.Uses = append(mod.Uses, use)
		} else if ffi != nil {
			mod.FFI = append(mod.FFI, ffi)
		} else {
			break
		}
	}

	for !p.cursor.IsEOF() {
		switch p.cursor.Current().Type {
		case token.CLASS, token.ACTOR, token.PRIMITIVE, token.STRUCT, token.TRAIT, token.INTERFACE:
			mod.Decls = append(mod.Decls, p.parseEntity())
		case token.TYPE:
			mod.Decls = append(mod.Decls, p.parseTypeAlias())
		default:
			p.addError(ErrUnexpectedToken, "expected a declaration, got "+p.cursor.Current().Type.String()+" instead")
			if !p.synchronize(declStarters...) {
				mod.Base = p.builder.At(start, p.pos())
				return mod
			}
		}
	}
	mod.Base = p.builder.At(start, p.pos())
	return mod
}
