// Package treecheck implements the schema-driven AST well-formedness
// walker described in spec §2 ("Tree Checker") and grounded in the
// original implementation's treecheck.c/treecheckdef.h: each node kind
// has a declared shape (does it introduce a scope, which children are
// required vs optional), and the checker walks a tree reporting any
// node whose shape violates it. Unlike the original's fixed child-slot
// arrays, Vel's tree is one Go struct per node kind, so the schema here
// is a table of per-Kind invariants rather than a child-list grammar;
// the walk still visits every reachable node exactly once, as the
// original's check_tree does.
//
// The checker is diagnostic-only: it never mutates the tree, and a
// caller runs it only in debug builds (spec §12's astbuild.h/treecheck
// entry: "the checker runs between passes only when Session.Debug is
// set"). A violation is an internal-compiler-error, not a user-facing
// diagnostic about their program.
package treecheck

import "github.com/veillang/velc/internal/ast"

// rule is the schema entry for one node Kind.
type rule struct {
	// needsScope is true for the scope-introducing kinds spec §3 lists:
	// program, package, module, entity, method, block, match-case, for,
	// while, and with (repeat/recover/lambda reuse their body's Block
	// scope instead of owning one, so they're absent here).
	needsScope bool

	// sinceScope is the pass by which needsScope must hold. It is
	// PassScope for everything: the Scope/Import Pass is what attaches
	// scopes, so a node it has already walked must have one.
	sinceScope ast.Pass
}

var schema = map[ast.Kind]rule{
	ast.KProgram:   {needsScope: true, sinceScope: ast.PassScope},
	ast.KPackage:   {needsScope: true, sinceScope: ast.PassScope},
	ast.KModule:    {needsScope: true, sinceScope: ast.PassScope},
	ast.KEntity:    {needsScope: true, sinceScope: ast.PassScope},
	ast.KMethod:    {needsScope: true, sinceScope: ast.PassScope},
	ast.KBlock:     {needsScope: true, sinceScope: ast.PassScope},
	ast.KFor:       {needsScope: true, sinceScope: ast.PassScope},
	ast.KWhile:     {needsScope: true, sinceScope: ast.PassScope},
	ast.KWith:      {needsScope: true, sinceScope: ast.PassScope},
	ast.KMatchCase: {needsScope: true, sinceScope: ast.PassScope},
}
