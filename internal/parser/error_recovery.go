package parser

import "github.com/veillang/velc/pkg/token"

// SynchronizationSet names a predefined panic-mode recovery point set
// (spec §7: after a syntax error the parser skips to a synchronization
// point and keeps going, rather than aborting, so later errors in the
// same module are still reported).
type SynchronizationSet int

const (
	SyncDeclStarters SynchronizationSet = iota
	SyncExprStarters
	SyncBlockClosers
)

var declStarters = []token.Type{
	token.CLASS, token.ACTOR, token.PRIMITIVE, token.STRUCT,
	token.TRAIT, token.INTERFACE, token.TYPE, token.USE,
	token.VAR, token.LET, token.NEW, token.BE, token.FUN,
}

var exprStarters = []token.Type{
	token.IF, token.IFDEF, token.IFTYPE, token.WHILE, token.REPEAT,
	token.FOR, token.WITH, token.TRY, token.RECOVER, token.CONSUME,
	token.MATCH, token.BREAK, token.CONTINUE, token.RETURN, token.ERROR,
	token.VAR, token.LET, token.IDENT, token.LPAREN,
}

var blockClosers = []token.Type{
	token.END, token.ELSE, token.ELSEIF, token.THEN, token.UNTIL, token.EOF,
}

func (s SynchronizationSet) tokens() []token.Type {
	switch s {
	case SyncDeclStarters:
		return declStarters
	case SyncExprStarters:
		return exprStarters
	case SyncBlockClosers:
		return blockClosers
	default:
		return nil
	}
}

// synchronize advances the parser's cursor until it reaches one of the
// given token types, a declaration starter, or a block closer (whatever
// comes first), or EOF. It returns true if it stopped on one of the
// requested types rather than just a generic fallback point.
func (p *Parser) synchronize(stop ...token.Type) bool {
	wanted := make(map[token.Type]bool, len(stop))
	for _, t := range stop {
		wanted[t] = true
	}
	for !p.cursor.IsEOF() {
		cur := p.cursor.Current().Type
		if wanted[cur] {
			return true
		}
		for _, t := range declStarters {
			if cur == t {
				return false
			}
		}
		for _, t := range blockClosers {
			if cur == t {
				return false
			}
		}
		p.cursor = p.cursor.Advance()
	}
	return false
}
