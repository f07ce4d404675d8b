package treecheck

import (
	"fmt"

	"github.com/veillang/velc/internal/ast"
	"github.com/veillang/velc/internal/errors"
)

// Checker walks a tree reporting well-formedness violations to a
// Reporter (spec §7: these surface as Internal diagnostics, never
// Semantic ones — a violation means the compiler built a bad tree, not
// that the user's program is wrong).
type Checker struct {
	Reporter *errors.Reporter
	seen     map[ast.Node]bool
}

// New returns a Checker that reports into r.
func New(r *errors.Reporter) *Checker {
	return &Checker{Reporter: r, seen: make(map[ast.Node]bool)}
}

// Check walks prog, validating every reachable node against schema and
// against the node-specific invariants in checkShape. through is the
// furthest pass the tree has been carried to; checks gated on a later
// pass than that are skipped (spec §2: the schema is pass-relative,
// since e.g. a NominalType's Resolved field is legitimately nil before
// the Name Pass runs).
func (c *Checker) Check(prog *ast.Program, through ast.Pass) {
	c.walk(prog, through)
}

func (c *Checker) walk(n ast.Node, through ast.Pass) {
	if n == nil || isNilNode(n) {
		return
	}
	if c.seen[n] {
		// A shared subtree (e.g. a trait method body shared with an
		// implementing entity's flattened copy) is legal; re-walking it would double-report and
		// loop forever if it were ever cyclic.
		return
	}
	c.seen[n] = true

	c.checkShape(n, through)
	for _, child := range children(n) {
		c.walk(child, through)
	}
}

func (c *Checker) fail(n ast.Node, format string, args ...any) {
	c.Reporter.Errorf(errors.Internal, n.Pos(), "tree checker: "+format, args...)
}

// checkShape applies schema's generic scope-presence rule plus the
// small set of required-field invariants that don't depend on a
// specific pass having run (a Go nil pointer where the grammar requires
// a node is always a builder bug, not a legitimately-absent optional).
func (c *Checker) checkShape(n ast.Node, through ast.Pass) {
	if r, ok := schema[n.Kind()]; ok && r.needsScope && through >= r.sinceScope {
		if ws, ok := n.(ast.NodeWithScope); !ok {
			c.fail(n, "kind %v is scheduled as scope-introducing but its Go type has no Scope()", n.Kind())
		} else if base, ok := ws.(interface{ HasScope() bool }); ok && !base.HasScope() {
			c.fail(n, "kind %v should have a scope attached by pass %v but does not", n.Kind(), r.sinceScope)
		}
	}

	switch v := n.(type) {
	case *ast.EntityDecl:
		if v.Name == 0 {
			c.fail(n, "entity declaration has no name")
		}
	case *ast.MethodDecl:
		if v.Body == nil && through >= ast.PassScope && v.Owner != nil {
			switch v.Owner.EntityKind {
			case ast.EntityTrait, ast.EntityInterface:
				// A bodyless member is legal on a trait/interface until
				// the Traits Pass either inherits a default body or
				// leaves it abstract.
			default:
				if v.Inherited == nil {
					c.fail(n, "method (name ID %d) has no body and is not a trait/interface member", v.Name)
				}
			}
		}
	case *ast.IfExpr:
		if v.Then == nil {
			c.fail(n, "if expression has no then-branch")
		}
	case *ast.WhileExpr:
		if v.Body == nil {
			c.fail(n, "while expression has no body")
		}
	case *ast.TryExpr:
		if v.Body == nil {
			c.fail(n, "try expression has no body")
		}
	case *ast.MatchExpr:
		if len(v.Cases) == 0 && v.Else == nil {
			c.fail(n, "match expression has neither cases nor an else branch")
		}
	case *ast.FFIDecl:
		if v.Name == "" {
			c.fail(n, "FFI declaration has no symbol name")
		}
	case *ast.UseDecl:
		if v.Path == "" {
			c.fail(n, "use declaration has no path")
		}
	}
}

// isNilNode guards against a typed-nil interface value (a *ast.Block(nil)
// stored in an Expr field): a plain `n == nil` check on the interface
// does not catch this, and walking it would panic inside Pos().
func isNilNode(n ast.Node) bool {
	switch v := n.(type) {
	case *ast.Block:
		return v == nil
	}
	return false
}

// children enumerates n's direct child nodes for the walk. It is the
// Go-native replacement for the original's fixed ast_t child array: one
// case per Go type instead of one CHILD(...) list per TK_* rule.
func children(n ast.Node) []ast.Node {
	switch v := n.(type) {
	case *ast.Program:
		out := make([]ast.Node, 0, len(v.Packages)+1)
		if v.Builtin != nil {
			out = append(out, v.Builtin)
		}
		for _, p := range v.Packages {
			out = append(out, p)
		}
		return out
	case *ast.Package:
		out := make([]ast.Node, 0, len(v.Modules))
		for _, m := range v.Modules {
			out = append(out, m)
		}
		return out
	case *ast.Module:
		out := make([]ast.Node, 0, len(v.Uses)+len(v.FFI)+len(v.Decls))
		for _, u := range v.Uses {
			out = append(out, u)
		}
		for _, f := range v.FFI {
			out = append(out, f)
		}
		for _, d := range v.Decls {
			out = append(out, d)
		}
		return out
	case *ast.EntityDecl:
		out := make([]ast.Node, 0, len(v.TypeParams)+len(v.Provides)+len(v.Fields)+len(v.Methods)+len(v.Flattened))
		for _, tp := range v.TypeParams {
			out = append(out, tp)
		}
		for _, p := range v.Provides {
			out = append(out, p)
		}
		for _, f := range v.Fields {
			out = append(out, f)
		}
		for _, m := range v.Methods {
			out = append(out, m)
		}
		// Flattened holds the Traits Pass's copies of inherited methods;
		// each copy shares its Body block with the trait's own method,
		// and the walk's seen-set absorbs that overlap.
		for _, m := range v.Flattened {
			out = append(out, m)
		}
		return out
	case *ast.TypeAliasDecl:
		out := []ast.Node{}
		for _, tp := range v.TypeParams {
			out = append(out, tp)
		}
		return appendNonNil(out, v.Target)
	case *ast.FieldDecl:
		return appendNonNil([]ast.Node{v.Type}, v.Default)
	case *ast.Param:
		return appendNonNil([]ast.Node{v.Type}, v.Default)
	case *ast.MethodDecl:
		out := make([]ast.Node, 0, len(v.TypeParams)+len(v.Params)+2)
		for _, tp := range v.TypeParams {
			out = append(out, tp)
		}
		for _, p := range v.Params {
			out = append(out, p)
		}
		out = appendNonNil(out, v.Result)
		if v.Body != nil {
			out = append(out, v.Body)
		}
		return out
	case *ast.TypeParam:
		return appendNonNil(appendNonNil(nil, v.Bound), v.Default)
	case *ast.UseDecl:
		return nil
	case *ast.FFIDecl:
		out := make([]ast.Node, 0, len(v.Params)+1)
		out = appendNonNil(out, v.Result)
		for _, p := range v.Params {
			out = append(out, p)
		}
		return out

	case *ast.Block:
		out := make([]ast.Node, 0, len(v.Exprs))
		for _, e := range v.Exprs {
			out = append(out, e)
		}
		return out
	case *ast.IfExpr:
		return appendNonNil([]ast.Node{v.Cond, v.Then}, v.Else)
	case *ast.IfDefExpr:
		return appendNonNil([]ast.Node{v.Then}, v.Else)
	case *ast.IfTypeExpr:
		return appendNonNil([]ast.Node{v.Param, v.Bound, v.Then}, v.Else)
	case *ast.WhileExpr:
		return appendNonNil([]ast.Node{v.Cond, v.Body}, v.Else)
	case *ast.RepeatExpr:
		return appendNonNil([]ast.Node{v.Body, v.Until}, v.Else)
	case *ast.ForExpr:
		return appendNonNil([]ast.Node{v.Iter, v.Body}, v.Type, v.Else)
	case *ast.WithExpr:
		out := make([]ast.Node, 0, len(v.Binds)*2+2)
		for _, b := range v.Binds {
			out = appendNonNil(out, b.Type, b.Init)
		}
		out = append(out, v.Body)
		return appendNonNil(out, v.Else)
	case *ast.TryExpr:
		out := []ast.Node{v.Body}
		if v.Else != nil {
			out = append(out, v.Else)
		}
		if v.Then != nil {
			out = append(out, v.Then)
		}
		return out
	case *ast.RecoverExpr:
		return []ast.Node{v.Body}
	case *ast.ConsumeExpr:
		return []ast.Node{v.Expr}
	case *ast.MatchExpr:
		out := make([]ast.Node, 0, len(v.Cases)+2)
		out = append(out, v.Subject)
		for _, cs := range v.Cases {
			out = append(out, cs)
		}
		return appendNonNil(out, v.Else)
	case *ast.MatchCase:
		out := []ast.Node{v.Pattern}
		out = appendNonNil(out, v.AsType, v.Guard)
		out = append(out, v.Body)
		return out
	case *ast.BreakExpr:
		return appendNonNil(nil, v.Value)
	case *ast.ContinueExpr:
		return nil
	case *ast.ReturnExpr:
		return appendNonNil(nil, v.Value)
	case *ast.ErrorExpr:
		return nil
	case *ast.VarDecl:
		return appendNonNil(appendNonNil(nil, v.Type), v.Init)
	case *ast.AssignExpr:
		return []ast.Node{v.LHS, v.RHS}

	case *ast.Ident, *ast.This, *ast.DontCare, *ast.IntLit, *ast.FloatLit,
		*ast.StringLit, *ast.BoolLit, *ast.NoneLit, *ast.LocExpr:
		return nil
	case *ast.TupleLit:
		out := make([]ast.Node, 0, len(v.Elems))
		for _, e := range v.Elems {
			out = append(out, e)
		}
		return out
	case *ast.ArrayLit:
		out := make([]ast.Node, 0, len(v.Elems)+1)
		out = appendNonNil(out, v.Elem)
		for _, e := range v.Elems {
			out = append(out, e)
		}
		return out
	case *ast.ObjectLit:
		out := make([]ast.Node, 0, len(v.Provides)+len(v.Fields)+len(v.Methods))
		for _, p := range v.Provides {
			out = append(out, p)
		}
		for _, f := range v.Fields {
			out = append(out, f)
		}
		for _, m := range v.Methods {
			out = append(out, m)
		}
		return out
	case *ast.Lambda:
		out := make([]ast.Node, 0, len(v.Params)+2)
		for _, p := range v.Params {
			out = append(out, p)
		}
		out = appendNonNil(out, v.Result)
		out = append(out, v.Body)
		return out
	case *ast.Call:
		out := make([]ast.Node, 0, len(v.TypeArgs)+len(v.Args)+1)
		out = append(out, v.Callee)
		for _, ta := range v.TypeArgs {
			out = append(out, ta)
		}
		for _, a := range v.Args {
			out = append(out, a)
		}
		return out
	case *ast.FFICall:
		out := make([]ast.Node, 0, len(v.Args))
		for _, a := range v.Args {
			out = append(out, a)
		}
		return out
	case *ast.MemberAccess:
		return []ast.Node{v.Receiver}
	case *ast.IndexExpr:
		out := make([]ast.Node, 0, len(v.Args)+1)
		out = append(out, v.Receiver)
		for _, a := range v.Args {
			out = append(out, a)
		}
		return out
	case *ast.BinaryExpr:
		return []ast.Node{v.Left, v.Right}
	case *ast.UnaryExpr:
		return []ast.Node{v.Operand}
	case *ast.IsExpr:
		return []ast.Node{v.Left, v.Right}
	case *ast.AsExpr:
		return []ast.Node{v.Value, v.Type}

	case *ast.NominalType:
		out := make([]ast.Node, 0, len(v.Args))
		for _, a := range v.Args {
			out = append(out, a)
		}
		return out
	case *ast.UnionType:
		out := make([]ast.Node, 0, len(v.Members))
		for _, m := range v.Members {
			out = append(out, m)
		}
		return out
	case *ast.IntersectionType:
		out := make([]ast.Node, 0, len(v.Members))
		for _, m := range v.Members {
			out = append(out, m)
		}
		return out
	case *ast.TupleType:
		out := make([]ast.Node, 0, len(v.Elems))
		for _, e := range v.Elems {
			out = append(out, e)
		}
		return out
	case *ast.ArrowType:
		return appendNonNil(appendNonNil(nil, v.Origin), v.Target)
	case *ast.TypeParamRef:
		return nil
	case *ast.FunType:
		out := make([]ast.Node, 0, len(v.Params)+1)
		for _, p := range v.Params {
			out = append(out, p)
		}
		return appendNonNil(out, v.Result)

	default:
		panic(fmt.Sprintf("treecheck: unhandled node type %T", n))
	}
}

// appendNonNil appends each of nodes to out, skipping interface values
// that are nil or wrap a nil pointer (a TypeExpr/Expr field left unset).
func appendNonNil(out []ast.Node, nodes ...ast.Node) []ast.Node {
	for _, n := range nodes {
		if n == nil {
			continue
		}
		out = append(out, n)
	}
	return out
}
