// Package builtin holds the source text of velc's implicit standard
// library (spec §6: "Builtin package source — internal standard types:
// numeric primitives, Bool, None, String, Env, Pointer[A], iteration
// traits") and the loader that turns it into the *ast.Package a
// Session attaches to every Program it builds.
//
// The source is hand-authored Vel, not transliterated from any
// reference implementation — original_source/ carries only the
// ponyc compiler's own C sources, not its .pony standard library, so
// there is nothing to translate from. It is parsed through the real
// internal/parser rather than assembled as Go struct literals, so a
// mistake here surfaces the same way a user's syntax error would.
package builtin

import (
	"fmt"

	"github.com/veillang/velc/internal/ast"
	"github.com/veillang/velc/internal/parser"
	"github.com/veillang/velc/pkg/ident"
)

// sourceFile pairs a synthetic path (used only for diagnostics) with
// the Vel source parsed under it.
type sourceFile struct {
	path string
	src  func() string
}

var sourceFiles = []sourceFile{
	{"builtin/numeric.vel", generateNumeric},
	{"builtin/core.vel", func() string { return coreSource }},
}

// Load parses every builtin source file and assembles them into the
// "builtin" *ast.Package a fresh Session wires into every Program it
// compiles (spec §6). It panics on a parse error: the builtin source is
// fixed at build time, so a failure here is this package's own bug, not
// a condition any caller can recover from — the same posture
// internal/treecheck's unhandled-node-kind panic takes for an internal
// invariant violation.
func Load(in *ident.Interner, b *ast.Builder) *ast.Package {
	pkg := &ast.Package{Path: "builtin"}
	for _, f := range sourceFiles {
		p := parser.New(in, b, f.path, f.src())
		mod := p.ParseModule()
		if errs := p.Errors(); len(errs) != 0 {
			panic(fmt.Sprintf("builtin: %s failed to parse: %v", f.path, errs[0]))
		}
		pkg.Modules = append(pkg.Modules, mod)
	}
	return pkg
}
