// Package passes implements the velc Pass Driver and the seven analysis
// passes it coordinates (spec §4.3-§4.10): sugar, scope/import, name,
// traits, refer, expr/type, and verify, run in the fixed order the spec
// names, each reading and mutating the whole program AST in place.
package passes

import (
	"github.com/veillang/velc/internal/ast"
)

// Outcome is a pass's per-node or per-pass result (spec §4.3, §7):
// ok/ignore continue the walk, error records a diagnostic but keeps
// going, fatal aborts the remainder of the current pass only.
type Outcome int

const (
	Ok Outcome = iota
	Ignore
	Error
	Fatal
)

// Pass is one stage of the pipeline (spec §4.3). Run receives the whole
// program and the shared Context; it returns Fatal only for an
// irrecoverable condition inside the pass itself (not an ordinary
// semantic error, which the pass records on ctx.Reporter and returns Ok
// or Error for).
type Pass interface {
	Name() string
	TargetReach() ast.Pass
	Run(prog *ast.Program, ctx *Context) Outcome
}

// Driver runs passes in the declared order (spec §4.3: "parse → sugar →
// scope → import → name → flatten → traits → refer → expr → verify →
// final"; the core covered here stops at verify). It is a Session-scoped
// value, not a package singleton (spec §9 Design Notes).
type Driver struct {
	passes []Pass

	// AfterPass, when set, runs after every pass completes (and after
	// walkReach stamps the program root). A Session wires this to the
	// Tree Checker when Session.Debug is set (spec §12's astbuild.h/
	// treecheck entry: "the checker runs between passes only when
	// Session.Debug is set"); left nil, Run costs nothing extra.
	AfterPass func(prog *ast.Program, p Pass)
}

// NewDriver returns a Driver with the canonical seven-pass pipeline in
// order. Scope and Import are one pass in this implementation (spec
// §4.5 describes them as a single component); Flatten is folded into the
// Traits pass, which performs the toposort-then-inherit in one pass
// (spec §4.7 steps 1-3 are sequential within that one component).
func NewDriver() *Driver {
	return &Driver{passes: []Pass{
		&SugarPass{},
		&ScopePass{},
		&NamePass{},
		&TraitsPass{},
		&ReferPass{},
		&ExprPass{},
		&VerifyPass{},
	}}
}

// Run executes every pass in order, stopping early only when a pass
// returns Fatal (spec §4.3 "Cancellation/early exit") or the Reporter
// already holds an error after a pass whose downstream passes assume a
// clean tree (scope, name, traits: resolving further without a name
// having resolved produces cascades that spec §7 doesn't ask for). The
// expr and verify passes still run with whatever the tree already has,
// matching "other errors continue so a single run reports as many
// issues as safely possible".
func (d *Driver) Run(prog *ast.Program, ctx *Context) {
	for _, p := range d.passes {
		outcome := p.Run(prog, ctx)
		walkReach(prog, p.TargetReach())
		if d.AfterPass != nil {
			d.AfterPass(prog, p)
		}
		if outcome == Fatal {
			return
		}
		if ctx.Reporter.HasErrors() && mustStopOnError(p) {
			return
		}
	}
}

// mustStopOnError names the passes whose output later passes assume is
// structurally sound: scope (symbol tables must exist), name (type
// references must be resolved before traits flattening can reason about
// provides-closures), and traits (flattened method bodies must exist
// before refer/expr can walk them). Sugar, refer, expr, and verify
// accumulate errors but keep walking, per spec §7.
func mustStopOnError(p Pass) bool {
	switch p.(type) {
	case *ScopePass, *NamePass, *TraitsPass:
		return true
	default:
		return false
	}
}

// walkReach stamps the program root with target as its PassReached if
// it has not reached it yet. Packages, modules and every node below them
// are not stamped here; passes call MarkReached on those themselves.
func walkReach(prog *ast.Program, target ast.Pass) {
	if prog.PassReached() < target {
		prog.MarkReached(target)
	}
}

// RunSubtreeThrough brings a freshly synthesized subtree up to the
// current pass before the pass that synthesized it continues (spec
// §4.3's "subtree re-passing", §9 Design Notes' explicit
// run_subtree_through operation). It runs, in order, every pass whose
// TargetReach exceeds root's current PassReached and is itself at most
// through, against the whole program prog (each pass walks all of it,
// not only root's module) — sugar calls this with through = PassExpr when it
// needs a freshly lifted lambda/object-literal entity fully resolved
// before the enclosing expression continues (spec §4.4).
func RunSubtreeThrough(d *Driver, root ast.Node, through ast.Pass, prog *ast.Program, ctx *Context) {
	mark := ctx.Reporter.BeginProbe()
	for _, p := range d.passes {
		if p.TargetReach() <= root.PassReached() {
			continue
		}
		if p.TargetReach() > through {
			break
		}
		p.Run(prog, ctx)
	}
	// Subtree re-passing is speculative only when sugar is probing a
	// rewrite it might discard; ordinary synthesis (e.g. the missing
	// default-constructor sugar rule) always commits.
	ctx.Reporter.EndProbe(mark, true)
	root.MarkReached(through)
}
