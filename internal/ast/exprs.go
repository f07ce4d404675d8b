package ast

import (
	"math/big"

	"github.com/veillang/velc/pkg/ident"
)

// Ident is a bare name reference, resolved by the Refer Pass to a
// SymbolEntry (a local, a field, or a method's receiver `this`) or left
// unresolved for the Name Pass to classify as a package-qualified entity
// reference (spec §4.5, §4.6).
type Ident struct {
	Base
	Name ident.ID

	// Resolved is filled in by the Refer Pass.
	Resolved *SymbolEntry
}

func (n *Ident) Kind() Kind { return KIdent }
func (n *Ident) exprNode()  {}

// This is the receiver reference `this`.
type This struct {
	Base
}

func (n *This) Kind() Kind { return KThis }
func (n *This) exprNode()  {}

// DontCare is the `_` pattern placeholder (spec §3, Glossary
// "Exhaustive match" context): legal only inside a pattern or an
// all-don't-care tuple assignment target.
type DontCare struct {
	Base
}

func (n *DontCare) Kind() Kind { return KDontCare }
func (n *DontCare) exprNode()  {}

// IntLit holds a 128-bit signed literal value (spec §3: "128-bit
// integer literal representation").
type IntLit struct {
	Base
	Value *big.Int
}

func (n *IntLit) Kind() Kind { return KIntLit }
func (n *IntLit) exprNode()  {}

// FloatLit holds a literal floating-point value.
type FloatLit struct {
	Base
	Value float64
}

func (n *FloatLit) Kind() Kind { return KFloatLit }
func (n *FloatLit) exprNode()  {}

// StringLit holds an interned literal string value.
type StringLit struct {
	Base
	Value ident.ID
}

func (n *StringLit) Kind() Kind { return KStringLit }
func (n *StringLit) exprNode()  {}

// BoolLit is `true`/`false`.
type BoolLit struct {
	Base
	Value bool
}

func (n *BoolLit) Kind() Kind { return KBoolLit }
func (n *BoolLit) exprNode()  {}

// NoneLit is the `None` singleton literal.
type NoneLit struct {
	Base
}

func (n *NoneLit) Kind() Kind { return KNoneLit }
func (n *NoneLit) exprNode()  {}

// TupleLit is a `(e1, e2, ...)` tuple construction or pattern (spec
// §3). A parenthesized single expression is not a TupleLit; the parser
// distinguishes the two and sets InParens on the inner expr instead.
type TupleLit struct {
	Base
	Elems []Expr
}

func (n *TupleLit) Kind() Kind { return KTupleLit }
func (n *TupleLit) exprNode()  {}

// ArrayLit is a `[e1; e2; ...]` array literal.
type ArrayLit struct {
	Base
	Elems []Expr
	Elem  TypeExpr // explicit element type annotation, nil if elided
}

func (n *ArrayLit) Kind() Kind { return KArrayLit }
func (n *ArrayLit) exprNode()  {}

// ObjectLit is an anonymous `object ... end` literal providing a
// provides-list inline (spec §4.2); the Sugar Pass lifts it into a
// synthetic EntityDecl plus a constructor Call (spec §4.4).
type ObjectLit struct {
	Base
	Provides []TypeExpr
	Fields   []*FieldDecl
	Methods  []*MethodDecl
	Cap      Cap

	// Lifted is filled in by the Sugar Pass: the synthesized entity.
	Lifted *EntityDecl
}

func (n *ObjectLit) Kind() Kind { return KObjectLit }
func (n *ObjectLit) exprNode()  {}

// Lambda is a `{(params): R ref^ => body}` closure literal (spec
// §4.2); the Sugar Pass lifts it into a synthetic EntityDecl implementing
// a synthesized single-method interface (spec §4.4).
type Lambda struct {
	Base
	Params  []*Param
	Result  TypeExpr
	Cap     Cap
	Captures []ident.ID // names from an enclosing scope the body refers to; filled in by the Refer Pass
	Body    *Block

	Lifted *EntityDecl
}

func (n *Lambda) Kind() Kind    { return KLambda }
func (n *Lambda) exprNode()     {}
func (n *Lambda) Scope() *Scope { return n.Body.Scope() }

// Call is `callee(arg1, arg2 ...)`, also used post-sugar for every
// desugared binary/unary operator (spec §4.4: `a + b` becomes
// `a.add(b)`).
type Call struct {
	Base
	Callee   Expr
	TypeArgs []TypeExpr
	Args     []Expr
	Partial  bool // trailing `?`: caller acknowledges callee may error
}

func (n *Call) Kind() Kind { return KCall }
func (n *Call) exprNode()  {}

// FFICall is `@name[R](arg1, arg2 ...)` (spec §6).
type FFICall struct {
	Base
	Name string
	Args []Expr

	Resolved *FFIDecl
}

func (n *FFICall) Kind() Kind { return KFFICall }
func (n *FFICall) exprNode()  {}

// MemberAccess is `receiver.name`, resolved by the Name/Refer passes to
// a field or method on receiver's static type (spec §4.5, §4.6).
type MemberAccess struct {
	Base
	Receiver Expr
	Name     ident.ID

	Resolved Node // *FieldDecl or *MethodDecl
}

func (n *MemberAccess) Kind() Kind { return KMemberAccess }
func (n *MemberAccess) exprNode()  {}

// IndexExpr is `recv(idx1, idx2...)` used as sugar for `recv.apply(...)`
// / `recv.update(...)`  — kept distinct from Call pre-sugar so the Sugar
// Pass can tell a bare call from an index-call applied to a non-callable
// receiver (spec §4.4).
type IndexExpr struct {
	Base
	Receiver Expr
	Args     []Expr
}

func (n *IndexExpr) Kind() Kind { return KIndex }
func (n *IndexExpr) exprNode()  {}

// BinaryOp names the pre-sugar binary operators (spec §4.2, §4.4).
type BinaryOp int

const (
	OpAdd BinaryOp = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpAnd
	OpOr
	OpXor
)

// BinaryExpr is a pre-sugar binary operator expression; the Sugar Pass
// rewrites it to a Call on the corresponding method name (spec §4.4).
type BinaryExpr struct {
	Base
	Op    BinaryOp
	Left  Expr
	Right Expr
}

func (n *BinaryExpr) Kind() Kind { return KBinary }
func (n *BinaryExpr) exprNode()  {}

// UnaryOp names the pre-sugar unary operators.
type UnaryOp int

const (
	OpNeg UnaryOp = iota
	OpNot
)

// UnaryExpr is a pre-sugar unary operator expression.
type UnaryExpr struct {
	Base
	Op      UnaryOp
	Operand Expr
}

func (n *UnaryExpr) Kind() Kind { return KUnary }
func (n *UnaryExpr) exprNode()  {}

// IsExpr is `a is b` / `a isnt b`, identity comparison (spec §4.2).
type IsExpr struct {
	Base
	Left  Expr
	Right Expr
	Negate bool // true for `isnt`
}

func (n *IsExpr) Kind() Kind { return KIsExpr }
func (n *IsExpr) exprNode()  {}

// AsExpr is `expr as T`, a runtime type-test used outside match
// patterns (spec §4.2).
type AsExpr struct {
	Base
	Value Expr
	Type  TypeExpr
}

func (n *AsExpr) Kind() Kind { return KAsExpr }
func (n *AsExpr) exprNode()  {}

// LocExpr is the `__loc` compile-time source-location literal.
type LocExpr struct {
	Base
}

func (n *LocExpr) Kind() Kind { return KLoc }
func (n *LocExpr) exprNode()  {}
