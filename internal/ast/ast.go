// Package ast defines the Abstract Syntax Tree shared by every pass of
// the velc pipeline (spec §3 "AST node", §9 Design Notes).
//
// Per the Design Notes' explicit redesign guidance, this is NOT a single
// tagged node type with an opaque `any` kind — each spec §3 node shape is
// its own Go type, implementing the common Node interface. A node still
// carries a Kind() for the schema-driven tree checker (spec §2 "Tree
// Checker") and a side-table-friendly Data any field for typed-opaque
// back-references (a nominal type's defining entity, a `use` node's
// imported package) instead of raw pointers into foreign arenas.
package ast

import "github.com/veillang/velc/pkg/token"

// Pass identifies a pipeline stage (spec §4.3). The zero value, PassNone,
// is what every freshly parsed node starts at; PassReached on a node
// must increase monotonically along the pipeline (spec §3 invariant).
type Pass int

const (
	PassNone Pass = iota
	PassParse
	PassSugar
	PassScope
	PassName
	PassFlatten
	PassTraits
	PassRefer
	PassExpr
	PassVerify
	PassFinal
)

func (p Pass) String() string {
	names := [...]string{"none", "parse", "sugar", "scope", "name", "flatten", "traits", "refer", "expr", "verify", "final"}
	if int(p) < 0 || int(p) >= len(names) {
		return "unknown"
	}
	return names[p]
}

// Flags holds the per-node bit flags spec §3 names.
type Flags uint8

const (
	InParens Flags = 1 << iota
	HadError
	TestOnly
	MissingSemi
)

// Kind tags a node for the tree checker's schema table (spec §2). It
// mirrors, but is independent from, the Go type of the node.
type Kind int

const (
	KProgram Kind = iota
	KPackage
	KModule
	KUse
	KFFIDecl
	KEntity
	KTypeAlias
	KField
	KParam
	KTypeParam
	KMethod

	KBlock
	KIf
	KIfDef
	KIfType
	KWhile
	KRepeat
	KFor
	KWith
	KTry
	KMatch
	KMatchCase
	KBreak
	KContinue
	KReturn
	KErrorStmt
	KVarDecl
	KAssign
	KExprStmt

	KIdent
	KThis
	KDontCare
	KIntLit
	KFloatLit
	KStringLit
	KBoolLit
	KNoneLit
	KTupleLit
	KArrayLit
	KObjectLit
	KLambda
	KCall
	KFFICall
	KMemberAccess
	KIndex
	KBinary
	KUnary
	KIsExpr
	KAsExpr
	KRecover
	KConsume
	KLoc

	KTypeNominal
	KTypeUnion
	KTypeIntersection
	KTypeTuple
	KTypeArrow
	KTypeParamRef
	KTypeFun
)

// Node is the interface every AST node implements (spec §3).
type Node interface {
	Kind() Kind
	Pos() token.Position
	End() token.Position
	HasFlag(f Flags) bool
	SetFlag(f Flags)
	ClearFlag(f Flags)
	Annotations() []string
	PassReached() Pass
	MarkReached(p Pass)
	Data() any
	SetData(d any)
	base() *Base
}

// Decl is a Node that can appear at module or entity-member level.
type Decl interface {
	Node
	declNode()
}

// Stmt is a Node with statement position (spec §3's control-flow forms).
type Stmt interface {
	Node
	stmtNode()
}

// Expr is a Node that yields a value.
type Expr interface {
	Node
	exprNode()
}

// Base carries the fields common to every node: position, flags,
// annotations, the last pass that reached it, and an opaque data
// back-reference (spec §3).
type Base struct {
	id          NodeID
	pos, end    token.Position
	flags       Flags
	annotations []string
	passReached Pass
	data        any
	scope       *Scope // non-nil only for scope-introducing kinds
}

// NodeID is a process-unique identifier assigned by Builder.New, usable
// as a stable side-table key (Design Notes: "stable indices ... rather
// than raw pointers").
type NodeID uint32

func (b *Base) base() *Base            { return b }
func (b *Base) ID() NodeID             { return b.id }
func (b *Base) Pos() token.Position    { return b.pos }
func (b *Base) End() token.Position    { return b.end }
func (b *Base) HasFlag(f Flags) bool   { return b.flags&f != 0 }
func (b *Base) SetFlag(f Flags)        { b.flags |= f }
func (b *Base) ClearFlag(f Flags)      { b.flags &^= f }
func (b *Base) Annotations() []string  { return b.annotations }
func (b *Base) SetAnnotations(a []string) { b.annotations = a }
func (b *Base) PassReached() Pass      { return b.passReached }

// MarkReached advances the node's pass-reached marker. It panics if p
// would move it backwards, enforcing the spec §3 monotonicity invariant.
func (b *Base) MarkReached(p Pass) {
	if p < b.passReached {
		panic("ast: pass-reached must increase monotonically")
	}
	b.passReached = p
}

// Data returns the node's opaque back-reference (e.g. a nominal type's
// defining entity, or a use node's imported package).
func (b *Base) Data() any      { return b.data }
func (b *Base) SetData(d any)  { b.data = d }

// Scope returns the node's symbol table, or nil if this kind does not
// introduce a scope.
func (b *Base) Scope() *Scope { return b.scope }

// HasScope reports whether a scope has actually been attached, without
// the lazy-creation side effect Scope() has through ensureScope. The
// Tree Checker uses this to tell "not a scope-introducing kind" apart
// from "scope-introducing but the Scope Pass hasn't run yet".
func (b *Base) HasScope() bool { return b.scope != nil }

func (b *Base) ensureScope(parent *Scope) *Scope {
	if b.scope == nil {
		b.scope = newScope(parent)
	}
	return b.scope
}

// NodeWithScope is implemented by every scope-introducing kind (spec
// §4.5): program, package, module, entity, method, block, match-case,
// loop body, recover, lambda body.
type NodeWithScope interface {
	Node
	Scope() *Scope
}
