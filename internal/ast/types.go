package ast

import "github.com/veillang/velc/pkg/ident"

// TypeExpr is the interface every type-AST node implements (spec §3: the
// Nominal/Union/Intersection/Tuple/Arrow/TypeParamRef/FunType family).
type TypeExpr interface {
	Node
	typeExprNode()
}

// NominalType names a declared entity or type parameter applied to zero
// or more type arguments, under an optional capability and ephemeral
// marker: `pkg.Name[T1, T2] iso^` (spec §3, §4.2).
type NominalType struct {
	Base
	Package   ident.ID // 0 if unqualified
	Name      ident.ID
	Args      []TypeExpr
	Cap       Cap
	CapSet    CapSet // set instead of Cap when this came from a generic bound
	Ephemeral Ephemeral

	// Resolved is filled in by the Name Pass: the entity or type
	// parameter this name refers to (spec §4.6). Nil before that pass.
	Resolved Node
}

func (n *NominalType) Kind() Kind      { return KTypeNominal }
func (n *NominalType) typeExprNode()   {}

// UnionType is a `(T1 | T2 | ...)` type (spec §3).
type UnionType struct {
	Base
	Members []TypeExpr
}

func (n *UnionType) Kind() Kind    { return KTypeUnion }
func (n *UnionType) typeExprNode() {}

// IntersectionType is a `(T1 & T2 & ...)` type (spec §3).
type IntersectionType struct {
	Base
	Members []TypeExpr
}

func (n *IntersectionType) Kind() Kind    { return KTypeIntersection }
func (n *IntersectionType) typeExprNode() {}

// TupleType is a `(T1, T2, ...)` type (spec §3). A single-element tuple
// type is distinct from its element; that distinction is preserved here
// rather than collapsed during parsing.
type TupleType struct {
	Base
	Elems []TypeExpr
}

func (n *TupleType) Kind() Kind    { return KTypeTuple }
func (n *TupleType) typeExprNode() {}

// ArrowType is a viewpoint-adapted type `Origin->Target` (spec §3,
// Glossary "Viewpoint adaptation"). Origin is nil for a bare `this->T`
// written without an explicit left side in certain contexts.
type ArrowType struct {
	Base
	Origin TypeExpr
	Target TypeExpr
}

func (n *ArrowType) Kind() Kind    { return KTypeArrow }
func (n *ArrowType) typeExprNode() {}

// TypeParamRef refers to an in-scope type parameter by name (spec §3).
// It is distinguished from NominalType so that later passes don't need
// to re-derive "is this a type parameter" from a resolved pointer.
type TypeParamRef struct {
	Base
	Name     ident.ID
	Resolved *TypeParam
}

func (n *TypeParamRef) Kind() Kind    { return KTypeParamRef }
func (n *TypeParamRef) typeExprNode() {}

// FunType is a first-class function type `{(T1, T2): R ref^}` (spec
// §3), used for lambda parameters and variables holding closures.
type FunType struct {
	Base
	Params []TypeExpr
	Result TypeExpr // nil means None
	Cap    Cap
}

func (n *FunType) Kind() Kind    { return KTypeFun }
func (n *FunType) typeExprNode() {}

// TypeParam is a declared generic parameter: `T: Bound = Default`
// (spec §3).
type TypeParam struct {
	Base
	Name    ident.ID
	Bound   TypeExpr // nil means an implicit `Any` bound
	Default TypeExpr // nil if none
}

func (n *TypeParam) Kind() Kind  { return KTypeParam }
func (n *TypeParam) declNode()   {}
