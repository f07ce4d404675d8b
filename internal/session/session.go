// Package session owns the state spec §6's "Exit behavior" describes as
// process-wide: the string interner and the node pool (here, the shared
// ast.Builder), created once and reused across every program compiled
// through it. A Session also bootstraps the builtin package exactly
// once, so every Compile call links against the same already-scoped
// *ast.Package instead of re-declaring its names on every run (see
// ScopePass's builtinAlreadyScoped guard in internal/passes/scope.go).
package session

import (
	"fmt"

	"github.com/veillang/velc/internal/ast"
	"github.com/veillang/velc/internal/builtin"
	"github.com/veillang/velc/internal/errors"
	"github.com/veillang/velc/internal/ifdef"
	"github.com/veillang/velc/internal/parser"
	"github.com/veillang/velc/internal/passes"
	"github.com/veillang/velc/internal/treecheck"
	"github.com/veillang/velc/pkg/ident"
)

// File is one source file's text, paired with the path used in
// diagnostics (spec §3 "Source position" names a file handle; loading
// that file off disk is an external collaborator's job, per spec §1).
type File struct {
	Path string
	Text string
}

// Package is a directory's worth of files grouped under one import path
// (spec §6 "one or more source files grouped by directory into
// packages"). On-disk path search is out of scope (spec §1); the caller
// supplies the grouping.
type Package struct {
	Path  string
	Files []File
}

// Session is the explicit, non-singleton object spec §9 Design Notes
// requires: one interner, one node builder, one bootstrapped builtin
// package, reused across every program compiled between New and
// Shutdown (spec §6).
type Session struct {
	in      *ident.Interner
	builder *ast.Builder
	builtin *ast.Package
	driver  *passes.Driver

	// Debug gates the Tree Checker between passes, exactly as the
	// original gates treecheck behind a debug build (SPEC_FULL §12).
	Debug bool
}

// New creates a Session and bootstraps the builtin package (spec §6
// "Builtin package source"): the builtin source is parsed and then run
// through the full pass pipeline once, as though it were an ordinary
// compiled package, so its implicit constructors and identity methods
// (Sugar Pass's ensureConstructor/addIdentityMethod) and its symbol
// table (Scope Pass) already exist before any user program attaches it.
func New() *Session {
	in := ident.New()
	b := ast.NewBuilder()
	driver := passes.NewDriver()

	pkg := builtin.Load(in, b)
	bootstrapCtx := passes.NewContext(in, b, ifdef.Target{})
	bootstrapProg := &ast.Program{Packages: []*ast.Package{pkg}}
	driver.Run(bootstrapProg, bootstrapCtx)
	// Driver.Run only stamps PassVerify (its last pass's target) on the
	// program root, not on pkg itself, since pkg is Packages[0] here and
	// no pass reaches into Program.Builtin when it's unset. Mark it
	// explicitly so a later real Compile recognizes it as already scoped.
	pkg.MarkReached(ast.PassScope)

	return &Session{in: in, builder: b, builtin: pkg, driver: driver}
}

// Interner returns the Session's shared interner, for callers (the
// pkg/compiler facade) that need to resolve identifiers outside the
// pass pipeline, e.g. when computing a program's Signature.
func (s *Session) Interner() *ident.Interner { return s.in }

// Shutdown releases the Session's state (spec §6 "shutdown functions
// that own ... global state"). Go's garbage collector reclaims the
// interner and node pool on its own; Shutdown exists so a caller has an
// explicit symmetric bookend to New, and so a Session used after
// Shutdown fails fast rather than silently compiling against a stale
// builtin package.
func (s *Session) Shutdown() {
	s.in = nil
	s.builder = nil
	s.builtin = nil
	s.driver = nil
}

// Result is what one Compile call produces: the typed program AST and
// its reporter, which carries every diagnostic even when the pipeline
// otherwise completed cleanly (warnings alone don't fail compilation).
type Result struct {
	Program  *ast.Program
	Reporter *errors.Reporter
}

// Compile parses root and every dependency package, links them into one
// Program alongside the Session's builtin package, and runs the pass
// pipeline (spec §2 "Data flow"). Any number of programs may be compiled
// serially between New and Shutdown (spec §6).
func (s *Session) Compile(root Package, deps []Package, target ifdef.Target) (*Result, error) {
	if s.in == nil {
		return nil, fmt.Errorf("session: Compile called after Shutdown")
	}

	reporter := errors.NewReporter()
	ctx := passes.NewContext(s.in, s.builder, target)
	ctx.Reporter = reporter
	ctx.Driver = s.driver

	prog := &ast.Program{Builtin: s.builtin}
	all := append([]Package{root}, deps...)
	for _, pkgSrc := range all {
		pkg := &ast.Package{Path: pkgSrc.Path}
		for _, f := range pkgSrc.Files {
			reporter.SetSource(f.Path, f.Text)
			p := parser.New(s.in, s.builder, f.Path, f.Text)
			mod := p.ParseModule()
			for _, se := range p.Errors() {
				reporter.Errorf(errors.Syntax, se.Pos, "%s", se.Message)
			}
			pkg.Modules = append(pkg.Modules, mod)
		}
		prog.Packages = append(prog.Packages, pkg)
	}

	if reporter.HasErrors() {
		return &Result{Program: prog, Reporter: reporter}, nil
	}

	if s.Debug {
		checker := treecheck.New(reporter)
		s.driver.AfterPass = func(p *ast.Program, pass passes.Pass) {
			checker.Check(p, pass.TargetReach())
		}
		defer func() { s.driver.AfterPass = nil }()
	}
	s.driver.Run(prog, ctx)

	return &Result{Program: prog, Reporter: reporter}, nil
}
