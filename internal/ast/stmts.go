package ast

import "github.com/veillang/velc/pkg/ident"

// Every control-flow form below is an expression, not a bare statement:
// Vel, like the language it is modeled on, gives if/match/while/try a
// value (spec §3, §4.2). A Block's trailing expression is its value.
// Kind still distinguishes them for the Tree Checker's schema table.

// Block is a semicolon- or newline-separated sequence of expressions; it
// introduces a scope and its value is its last expression's value (spec
// §3, §4.5).
type Block struct {
	Base
	Exprs []Expr
}

func (n *Block) Kind() Kind    { return KBlock }
func (n *Block) exprNode()     {}
func (n *Block) Scope() *Scope { return n.ensureScope(nil) }

// IfExpr is `if cond then a else b end` (spec §4.2).
type IfExpr struct {
	Base
	Cond Expr
	Then *Block
	Else Expr // *Block or nested *IfExpr for "elseif"; nil means None
}

func (n *IfExpr) Kind() Kind { return KIf }
func (n *IfExpr) exprNode()  {}

// IfDefExpr is `ifdef guard then a else b end` (spec §6): the guard is
// evaluated at compile time against the active Target by the
// Scope/Import Pass, which replaces the node with whichever branch
// applies (spec §4.5).
type IfDefExpr struct {
	Base
	Guard string
	Then  *Block
	Else  Expr
}

func (n *IfDefExpr) Kind() Kind { return KIfDef }
func (n *IfDefExpr) exprNode()  {}

// IfTypeExpr is a compile-time type-match conditional used in generic
// code: `iftype T <: Bound then a else b end`.
type IfTypeExpr struct {
	Base
	Param TypeExpr
	Bound TypeExpr
	Then  *Block
	Else  Expr
}

func (n *IfTypeExpr) Kind() Kind { return KIfType }
func (n *IfTypeExpr) exprNode()  {}

// WhileExpr is `while cond do body else elseBody end` — the else branch
// runs if the loop body never executes (spec §4.2).
type WhileExpr struct {
	Base
	Cond Expr
	Body *Block
	Else Expr
}

func (n *WhileExpr) Kind() Kind    { return KWhile }
func (n *WhileExpr) exprNode()     {}
func (n *WhileExpr) Scope() *Scope { return n.ensureScope(nil) }

// RepeatExpr is `repeat body until cond else elseBody end`.
//
// Open Question (spec §9, preserved rather than guessed): whether the
// scope a name declared inside body is visible while evaluating cond.
// Decision recorded in DESIGN.md: cond is parsed and resolved against
// body's own Scope (the same *Scope as the loop body, not a sibling),
// matching the reading that `until` is the loop's exit check rather
// than an external clause — so `repeat let x = f(); x > 0 until x`
// resolves `x` in the until-condition.
type RepeatExpr struct {
	Base
	Body  *Block
	Until Expr
	Else  Expr
}

func (n *RepeatExpr) Kind() Kind    { return KRepeat }
func (n *RepeatExpr) exprNode()     {}
func (n *RepeatExpr) Scope() *Scope { return n.Body.Scope() }

// ForExpr is sugar-pass input for `for x in iter do body end`; the
// Sugar Pass rewrites it into a WhileExpr driving an iterator protocol
// (spec §4.4) and this node does not survive past PassSugar.
type ForExpr struct {
	Base
	Var  ident.ID
	Type TypeExpr // nil if elided
	Iter Expr
	Body *Block
	Else Expr
}

func (n *ForExpr) Kind() Kind    { return KFor }
func (n *ForExpr) exprNode()     {}
func (n *ForExpr) Scope() *Scope { return n.ensureScope(nil) }

// WithExpr is sugar-pass input for `with x = e do body end`, rewritten
// by the Sugar Pass into a TryExpr that disposes x (spec §4.4).
type WithExpr struct {
	Base
	Binds []*WithBind
	Body  *Block
	Else  Expr
}

// WithBind is one `name = expr` clause of a WithExpr.
type WithBind struct {
	Name ident.ID
	Type TypeExpr
	Init Expr
}

func (n *WithExpr) Kind() Kind    { return KWith }
func (n *WithExpr) exprNode()     {}
func (n *WithExpr) Scope() *Scope { return n.ensureScope(nil) }

// TryExpr is `try body else elseBody then thenBody end` (spec §4.2):
// elseBody runs if body raises an error, thenBody always runs after.
type TryExpr struct {
	Base
	Body *Block
	Else *Block
	Then *Block
}

func (n *TryExpr) Kind() Kind { return KTry }
func (n *TryExpr) exprNode()  {}

// RecoverExpr is `recover cap body end`: body is checked under the
// "only sendable values may cross in" isolation rule (spec §4.8).
type RecoverExpr struct {
	Base
	Cap  Cap
	Body *Block
}

func (n *RecoverExpr) Kind() Kind    { return KRecover }
func (n *RecoverExpr) exprNode()     {}
func (n *RecoverExpr) Scope() *Scope { return n.Body.Scope() }

// ConsumeExpr is `consume [cap] expr`, moving an iso/trn value out of
// its local (spec §4.8).
type ConsumeExpr struct {
	Base
	Cap  Cap // the capability requested for the consumed alias, CapNone if elided
	Expr Expr
}

func (n *ConsumeExpr) Kind() Kind { return KConsume }
func (n *ConsumeExpr) exprNode()  {}

// MatchExpr is `match subject case pattern [if guard] => body ... end`
// (spec §4.2, §8 "Exhaustive match").
type MatchExpr struct {
	Base
	Subject Expr
	Cases   []*MatchCase
	Else    Expr // implicit or explicit else branch

	// Exhaustive is filled in by the Expr/Type Pass: whether the case
	// patterns cover every member of Subject's static type without
	// needing Else (spec §8).
	Exhaustive bool
}

func (n *MatchExpr) Kind() Kind { return KMatch }
func (n *MatchExpr) exprNode()  {}

// MatchCase is one `case pattern [if guard] => body` arm. Patterns may
// bind names (introducing a scope for Body) or be the all-don't-care
// tuple pattern `(_, _, ...)`.
//
// Open Question (spec §9, preserved): whether an all-don't-care tuple
// pattern `as (_, _)` matching an N-tuple subject should be treated as
// matching any N-tuple regardless of element types, or whether each `_`
// still carries an implicit Any bound that participates in exhaustiveness.
// Decision recorded in DESIGN.md: each `_` keeps an implicit Any bound,
// so an all-don't-care tuple pattern is exhaustive for tuple-typed
// subjects of the same arity but does not, by itself, make a union
// containing non-tuple members exhaustive.
type MatchCase struct {
	Base
	Pattern Expr // DontCareExpr, literal, *Ident bind, or *TupleLit of the above
	AsType  TypeExpr // non-nil for an `as T` type-test pattern
	Guard   Expr     // nil if no `if guard`
	Body    *Block
}

func (n *MatchCase) Kind() Kind    { return KMatchCase }
func (n *MatchCase) exprNode()     {}
func (n *MatchCase) Scope() *Scope { return n.ensureScope(nil) }

// BreakExpr, ContinueExpr exit or restart the nearest enclosing loop
// (spec §4.2); Vel, like Pony, gives both an optional value expression.
type BreakExpr struct {
	Base
	Value Expr // nil means None
}

func (n *BreakExpr) Kind() Kind { return KBreak }
func (n *BreakExpr) exprNode()  {}

type ContinueExpr struct {
	Base
}

func (n *ContinueExpr) Kind() Kind { return KContinue }
func (n *ContinueExpr) exprNode()  {}

// ReturnExpr exits the enclosing method with an optional value.
type ReturnExpr struct {
	Base
	Value Expr
}

func (n *ReturnExpr) Kind() Kind { return KReturn }
func (n *ReturnExpr) exprNode()  {}

// ErrorExpr is the bare `error` expression that raises a partial
// method's error condition (spec §4.2).
type ErrorExpr struct {
	Base
}

func (n *ErrorExpr) Kind() Kind { return KErrorStmt }
func (n *ErrorExpr) exprNode()  {}

// VarDecl is a local `var`/`let name[: T] [= init]` (spec §3). It
// declares into the nearest enclosing Scope, found by walking up from
// wherever the Builder attaches it.
type VarDecl struct {
	Base
	IsLet bool
	Name  ident.ID
	Type  TypeExpr // nil if elided, filled in by the Expr/Type Pass
	Init  Expr     // nil if none
}

func (n *VarDecl) Kind() Kind { return KVarDecl }
func (n *VarDecl) exprNode()  {}

// AssignExpr is `lhs = rhs`, right-associative, yielding the previous
// value of lhs (spec §4.2).
type AssignExpr struct {
	Base
	LHS Expr
	RHS Expr
}

func (n *AssignExpr) Kind() Kind { return KAssign }
func (n *AssignExpr) exprNode()  {}
