// Package compiler is velc's public facade, the one external code is
// meant to import (spec §6 "External Interfaces"). It mirrors the
// teacher's pkg/dwscript.Engine shape (New() returning a long-lived
// handle, a Compile method returning a structured *CompileError) while
// exposing this compiler's own inputs and outputs: source grouped into
// packages, a typed program AST, and a program Signature.
package compiler

import (
	"fmt"
	"strings"

	"github.com/veillang/velc/internal/ast"
	"github.com/veillang/velc/internal/errors"
	"github.com/veillang/velc/internal/ifdef"
	"github.com/veillang/velc/internal/session"
	"github.com/veillang/velc/internal/signature"
)

// File and Package mirror internal/session's input shapes verbatim;
// re-declared here as aliases so callers never import internal/session
// directly (spec §1 draws the external-collaborator line at this
// package's boundary).
type File = session.File
type Package = session.Package

// Target is the compile-time description spec §6 "Inputs" requires: OS
// flag, CPU architecture, pointer size, and user-defined flags.
type Target = ifdef.Target

// Compiler is the long-lived handle spec §6's "Exit behavior" describes:
// created once via New, holding the interner and builtin package across
// any number of serial Compile calls, released via Shutdown.
type Compiler struct {
	sess  *session.Session
	Debug bool
}

// New creates a Compiler, bootstrapping the builtin package once (spec
// §6 "initialization ... functions that own ... global state").
func New() *Compiler {
	return &Compiler{sess: session.New()}
}

// Shutdown releases the Compiler's global state (spec §6 "shutdown
// functions"). The Compiler must not be used afterward.
func (c *Compiler) Shutdown() {
	c.sess.Shutdown()
}

// CompileResult is a successful compilation's output: the typed program
// AST and its Signature (spec §6 "Outputs").
type CompileResult struct {
	Program   *ast.Program
	Signature signature.Signature
}

// Severity mirrors the teacher's dwscript.Severity for structured
// errors, narrowed to the two kinds a *CompileError ever carries:
// SeverityError for anything that fails compilation, SeverityWarning
// for diagnostics that don't (spec §7's Warning kind).
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

// Diagnostic is one reported issue, translated from the internal
// errors.Diagnostic into a form that doesn't leak internal/errors types
// across the package boundary.
type Diagnostic struct {
	Kind     string
	Message  string
	File     string
	Line     int
	Column   int
	Severity Severity
}

func (d Diagnostic) IsError() bool { return d.Severity == SeverityError }

// CompileError is returned when Compile records at least one error-level
// diagnostic (spec §7 "compilation fails if any error was recorded").
// Stage names which part of the pipeline produced the first error,
// mirroring the teacher's CompileError.Stage ("parsing", "compile").
type CompileError struct {
	Stage  string
	Errors []Diagnostic
}

func (e *CompileError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s failed with %d error(s):\n", e.Stage, len(e.Errors))
	for _, d := range e.Errors {
		fmt.Fprintf(&sb, "  %s:%d:%d: %s: %s\n", d.File, d.Line, d.Column, d.Kind, d.Message)
	}
	return sb.String()
}

func toDiagnostics(r *errors.Reporter) []Diagnostic {
	diags := r.Diagnostics()
	out := make([]Diagnostic, 0, len(diags))
	for _, d := range diags {
		sev := SeverityError
		if d.Kind == errors.Warning {
			sev = SeverityWarning
		}
		out = append(out, Diagnostic{
			Kind:     d.Kind.String(),
			Message:  d.Message,
			File:     d.Pos.File,
			Line:     d.Pos.Line,
			Column:   d.Pos.Column,
			Severity: sev,
		})
	}
	return out
}

// Compile compiles a single source string as a one-file "main" package,
// the common case the teacher's engine.Compile(source string) covers.
func (c *Compiler) Compile(source string) (*CompileResult, error) {
	return c.CompilePackages(Package{
		Path:  "main",
		Files: []File{{Path: "main.vel", Text: source}},
	}, nil, Target{})
}

// CompilePackages compiles root plus every dependency package against
// target (spec §6 "Inputs": source grouped by directory into packages,
// plus the Target description). It returns *CompileError when the
// reporter holds any error-kind diagnostic; warnings alone do not fail
// compilation (spec §7).
func (c *Compiler) CompilePackages(root Package, deps []Package, target Target) (*CompileResult, error) {
	c.sess.Debug = c.Debug
	res, err := c.sess.Compile(root, deps, target)
	if err != nil {
		return nil, err
	}

	diags := toDiagnostics(res.Reporter)
	if res.Reporter.HasErrors() {
		stage := "parsing"
		if res.Program != nil && len(res.Program.Packages) > 0 && hasSemanticStage(diags) {
			stage = "compile"
		}
		return nil, &CompileError{Stage: stage, Errors: diags}
	}

	sig := signature.Compute(res.Program, c.sess.Interner())
	return &CompileResult{Program: res.Program, Signature: sig}, nil
}

func hasSemanticStage(diags []Diagnostic) bool {
	for _, d := range diags {
		if d.Kind != errors.Syntax.String() && d.Kind != errors.Lexical.String() {
			return true
		}
	}
	return false
}
