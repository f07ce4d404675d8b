package passes

import (
	"strconv"

	"github.com/veillang/velc/internal/ast"
	"github.com/veillang/velc/internal/errors"
	"github.com/veillang/velc/internal/ifdef"
	"github.com/veillang/velc/pkg/ident"
	"github.com/veillang/velc/pkg/token"
)

// Context is the state every pass shares (spec §4.3, generalizing the
// teacher's PassContext registries down to what Vel's node-attached
// scopes don't already carry): the interner, the Tree Builder used to
// synthesize replacement subtrees, the diagnostic Reporter, and the
// compile-time Target guard expressions evaluate against.
type Context struct {
	In      *ident.Interner
	Builder *ast.Builder
	Reporter *errors.Reporter
	Target  ifdef.Target
	Driver  *Driver

	// Builtin is the implicitly-imported builtin package (spec §4.5
	// "Each non-builtin module implicitly imports builtin").
	Builtin *ast.Package

	// CurrentEntity/CurrentMethod track the innermost enclosing
	// declaration during a pass's traversal, read by refer (this-consume
	// tracking), expr (receiver cap checks), and verify (Main/_init
	// shape checks).
	CurrentEntity *ast.EntityDecl
	CurrentMethod *ast.MethodDecl
	CurrentModule *ast.Module

	synthCounter int
}

// FreshName mints a module-unique synthetic identifier with the given
// prefix (e.g. "$anon_lambda") for a sugar-lifted entity (spec §4.4).
func (c *Context) FreshName(prefix string) ident.ID {
	c.synthCounter++
	return c.In.Intern(prefix + "$" + strconv.Itoa(c.synthCounter))
}

// NewContext returns an empty Context wired to in/b/target. Builtin must
// be set by the caller (internal/session) once the builtin package has
// itself been run through scope/name so its symbol table is populated.
func NewContext(in *ident.Interner, b *ast.Builder, target ifdef.Target) *Context {
	return &Context{In: in, Builder: b, Reporter: errors.NewReporter(), Target: target}
}

func (c *Context) errorf(kind errors.Kind, pos token.Position, format string, args ...any) {
	c.Reporter.Errorf(kind, pos, format, args...)
}
