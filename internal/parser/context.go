package parser

import "github.com/veillang/velc/pkg/token"

// BlockContext records one nested block the parser is currently inside,
// for "expected X to close the <kind> opened at <pos>" diagnostics.
type BlockContext struct {
	Kind     string
	StartPos token.Position
}

// ParseContext tracks the block nesting stack used for error messages;
// kept as its own type (rather than fields directly on Parser) so
// Snapshot/Restore around a speculative parse is one call instead of
// several (spec §4.2 backtracking, grounded on the teacher's
// ParseContext split of context out of the core Parser struct).
type ParseContext struct {
	blockStack []BlockContext
}

// NewParseContext returns an empty context.
func NewParseContext() *ParseContext {
	return &ParseContext{}
}

// PushBlock enters a new block context.
func (ctx *ParseContext) PushBlock(kind string, pos token.Position) {
	ctx.blockStack = append(ctx.blockStack, BlockContext{Kind: kind, StartPos: pos})
}

// PopBlock exits the innermost block context.
func (ctx *ParseContext) PopBlock() {
	if len(ctx.blockStack) > 0 {
		ctx.blockStack = ctx.blockStack[:len(ctx.blockStack)-1]
	}
}

// Current returns the innermost block context, or nil if at top level.
func (ctx *ParseContext) Current() *BlockContext {
	if len(ctx.blockStack) == 0 {
		return nil
	}
	return &ctx.blockStack[len(ctx.blockStack)-1]
}

// Snapshot returns a copy of ctx for restoring after a failed
// speculative parse.
func (ctx *ParseContext) Snapshot() *ParseContext {
	cp := make([]BlockContext, len(ctx.blockStack))
	copy(cp, ctx.blockStack)
	return &ParseContext{blockStack: cp}
}

// Restore replaces ctx's state with a previously taken Snapshot.
func (ctx *ParseContext) Restore(snap *ParseContext) {
	ctx.blockStack = snap.blockStack
}
