package ast

import (
	"github.com/veillang/velc/pkg/ident"
	"github.com/veillang/velc/pkg/token"
)

// Builder is the Tree Builder (spec §2): the single place that mints
// NodeIDs and stamps position metadata, used both by the parser for
// freshly scanned nodes and by later passes (principally Sugar, spec
// §4.4) to synthesize replacement subtrees. Keeping allocation behind
// one type, rather than a package-level counter, is what lets a Session
// run more than one compilation without IDs from an old run leaking
// into a new one (spec §9 Design Notes: no process-wide singletons).
type Builder struct {
	nextID NodeID
}

// NewBuilder returns a Builder with a fresh NodeID sequence.
func NewBuilder() *Builder {
	return &Builder{nextID: 1}
}

func (b *Builder) alloc(pos, end token.Position) Base {
	id := b.nextID
	b.nextID++
	return Base{id: id, pos: pos, end: end}
}

// Synthetic builds a Base for a node with no direct source text, by
// inheriting the position of the node it replaces or elaborates — so
// that diagnostics raised against synthesized code still point
// somewhere meaningful (spec §4.4, §7).
func (b *Builder) Synthetic(from Node) Base {
	return b.alloc(from.Pos(), from.End())
}

// At builds a Base spanning exactly [pos, end), for nodes built directly
// from scanned tokens.
func (b *Builder) At(pos, end token.Position) Base {
	return b.alloc(pos, end)
}

// Block is a convenience constructor used by both the parser and the
// Sugar Pass (e.g. lifting a bare expression into a single-expression
// block for an implicit `else` branch).
func (b *Builder) Block(from Node, exprs ...Expr) *Block {
	return &Block{Base: b.Synthetic(from), Exprs: exprs}
}

// Call builds a desugared method-call node standing in for a binary or
// unary operator (spec §4.4: `a + b` -> `a.add(b)`).
func (b *Builder) Call(from Node, callee Expr, args ...Expr) *Call {
	return &Call{Base: b.Synthetic(from), Callee: callee, Args: args}
}

// MemberAccess builds a synthesized `receiver.name` node standing in
// for a desugared operator or sugared construct (spec §4.4).
func (b *Builder) MemberAccess(from Node, receiver Expr, name ident.ID) *MemberAccess {
	return &MemberAccess{Base: b.Synthetic(from), Receiver: receiver, Name: name}
}
