package ast

import "github.com/veillang/velc/pkg/ident"

// Program is the root node: every package reachable from the compiled
// package, plus the implicit builtin package (spec §3 "Program").
type Program struct {
	Base
	Packages []*Package
	Builtin  *Package
}

func (n *Program) Kind() Kind    { return KProgram }
func (n *Program) Scope() *Scope { return n.ensureScope(nil) }

// Package is a directory's worth of modules compiled as one unit (spec
// §3 "Package"). Its Scope holds every top-level entity name declared
// across its modules — imports collide here, not per-module.
type Package struct {
	Base
	Path    string
	Modules []*Module
}

func (n *Package) Kind() Kind    { return KPackage }
func (n *Package) Scope() *Scope { return n.ensureScope(nil) }

// Module is a single source file's parse tree (spec §3 "Module"/
// "Unit"): its `use` directives followed by entity and alias
// declarations.
type Module struct {
	Base
	Path  string
	Uses  []*UseDecl
	FFI   []*FFIDecl
	Decls []Decl // *EntityDecl, *TypeAliasDecl
}

func (n *Module) Kind() Kind    { return KModule }
func (n *Module) Scope() *Scope { return n.ensureScope(nil) }

// UseDecl is a `use [alias =] "path" [if guard]` directive (spec §6).
type UseDecl struct {
	Base
	Alias ident.ID // 0 if none
	Path  string
	Guard string // raw guard expression text, "" if none

	// Resolved is filled in by the Scope/Import Pass.
	Resolved *Package
}

func (n *UseDecl) Kind() Kind { return KUse }
func (n *UseDecl) declNode()  {}

// FFIDecl is a `use @name[R](P1, P2 ...) ?` foreign-function
// declaration (spec §6).
type FFIDecl struct {
	Base
	Name       string // the @-prefixed symbol, without the @
	Result     TypeExpr
	Params     []*Param
	Variadic   bool
	Partial    bool // trailing `?`: this FFI call site may error
	Guard      string
}

func (n *FFIDecl) Kind() Kind { return KFFIDecl }
func (n *FFIDecl) declNode()  {}

// EntityKind distinguishes the six declarable entity shapes (spec §3).
type EntityKind int

const (
	EntityClass EntityKind = iota
	EntityActor
	EntityPrimitive
	EntityStruct
	EntityTrait
	EntityInterface
)

func (k EntityKind) String() string {
	switch k {
	case EntityClass:
		return "class"
	case EntityActor:
		return "actor"
	case EntityPrimitive:
		return "primitive"
	case EntityStruct:
		return "struct"
	case EntityTrait:
		return "trait"
	case EntityInterface:
		return "interface"
	default:
		return "unknown"
	}
}

// EntityDecl declares a class, actor, primitive, struct, trait, or
// interface (spec §3 "Entity kinds"). All six share one shape; their
// EntityKind governs which members and defaults are legal, checked by
// the Tree Checker (spec §2) rather than encoded as distinct Go types.
type EntityDecl struct {
	Base
	EntityKind EntityKind
	Name       ident.ID
	TypeParams []*TypeParam
	Provides   []TypeExpr // the "provides list" (Glossary): traits/interfaces this entity implements
	Fields     []*FieldDecl
	Methods    []*MethodDecl
	DefaultCap Cap // the cap a bare reference to this entity's name defaults to

	// Flattened is filled in by the Traits Pass: the full set of
	// inherited methods after trait merging (spec §4.7).
	Flattened []*MethodDecl
}

func (n *EntityDecl) Kind() Kind      { return KEntity }
func (n *EntityDecl) declNode()       {}
func (n *EntityDecl) Scope() *Scope   { return n.ensureScope(nil) }

// TypeAliasDecl is a `type Name[...] is T` declaration (spec §3).
type TypeAliasDecl struct {
	Base
	Name       ident.ID
	TypeParams []*TypeParam
	Target     TypeExpr
}

func (n *TypeAliasDecl) Kind() Kind { return KTypeAlias }
func (n *TypeAliasDecl) declNode()  {}

// FieldKind distinguishes a field's mutability/storage discipline.
type FieldKind int

const (
	FieldVar FieldKind = iota
	FieldLet
	FieldEmbed
)

// FieldDecl is an entity member field: `var name: T = default` (spec
// §3).
type FieldDecl struct {
	Base
	FieldKind FieldKind
	Name      ident.ID
	Type      TypeExpr
	Default   Expr // nil if none
}

func (n *FieldDecl) Kind() Kind { return KField }
func (n *FieldDecl) declNode()  {}

// MethodFlavor distinguishes constructors, behaviors, and functions
// (spec §3 "Method").
type MethodFlavor int

const (
	MethodFun MethodFlavor = iota
	MethodNew
	MethodBe
)

func (f MethodFlavor) String() string {
	switch f {
	case MethodNew:
		return "new"
	case MethodBe:
		return "be"
	default:
		return "fun"
	}
}

// Param is a method or FFI-declaration parameter.
type Param struct {
	Base
	Name    ident.ID
	Type    TypeExpr
	Default Expr // nil if none
}

func (n *Param) Kind() Kind { return KParam }
func (n *Param) declNode()  {}

// MethodDecl is a new/be/fun member (spec §3 "Method"): receiver
// capability, name, type parameters, parameters, result type, optional
// guard (`?` partial marker), and body.
type MethodDecl struct {
	Base
	Flavor     MethodFlavor
	Cap        Cap // receiver capability this method requires
	Name       ident.ID
	TypeParams []*TypeParam
	Params     []*Param
	Result     TypeExpr // nil means None
	Partial    bool     // trailing `?`: body may raise an error
	Body       *Block   // nil for a trait/interface member with no default body

	// Owner is filled in when the method is attached to its entity; for
	// methods synthesized by the Traits Pass it points at the trait that
	// contributed the default body (spec §4.7).
	Owner     *EntityDecl
	Inherited *EntityDecl // non-nil if this is a flattened copy from a trait
}

func (n *MethodDecl) Kind() Kind    { return KMethod }
func (n *MethodDecl) declNode()     {}
func (n *MethodDecl) Scope() *Scope { return n.ensureScope(nil) }
