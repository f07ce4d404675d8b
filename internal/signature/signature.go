// Package signature computes the content hash spec §4.11 calls the
// program signature: a canonical byte encoding of the typed program
// AST, with source positions stripped and package references folded
// down to their own signatures, hashed to a fixed-length identity used
// by the build system (cache hits) and the runtime (peer compatibility).
package signature

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash"
	"math"
	"math/big"

	"github.com/veillang/velc/internal/ast"
	"github.com/veillang/velc/pkg/ident"
)

// Signature is a fixed-length program identity (spec §3 "Signature",
// §6 "a program signature (fixed-length byte array)").
type Signature [sha256.Size]byte

func (s Signature) String() string { return hex.EncodeToString(s[:]) }

// Compute returns prog's signature. Two programs that differ only in
// identifier spelling carried through an Interner (same text, different
// IDs across separately-parsed runs) or source position yield the same
// Signature (annotations, known or not, are hashed; see
// writeAnnotations); any
// change to the shape or content of the typed tree flips it (spec §8
// "Signature determinism").
func Compute(prog *ast.Program, in *ident.Interner) Signature {
	e := &encoder{in: in, pkgSigs: make(map[*ast.Package]Signature)}
	h := sha256.New()
	e.h = h

	if prog.Builtin != nil {
		e.writeString("builtin")
		e.writePackage(prog.Builtin)
	}
	for _, pkg := range prog.Packages {
		e.writeString("package")
		e.writeString(pkg.Path)
		sig := e.packageSignature(pkg)
		h.Write(sig[:])
	}

	var out Signature
	copy(out[:], h.Sum(nil))
	return out
}

// encoder streams a canonical byte sequence into a hash.Hash. It never
// writes a token.Position or a raw pointer; every cross-reference
// (resolved entity, resolved package) is rewritten to the referenced
// package's own signature or the referenced entity's qualified name, so
// the output depends only on program content (spec §4.11 "ordering
// hints normalized ... package references replaced by their own
// signatures").
type encoder struct {
	h       hash.Hash
	in      *ident.Interner
	pkgSigs map[*ast.Package]Signature
}

// packageSignature memoizes a package's own signature, computed against
// a fresh hasher so the same package yields the same bytes regardless
// of which importer asks (spec §4.11).
func (e *encoder) packageSignature(pkg *ast.Package) Signature {
	if sig, ok := e.pkgSigs[pkg]; ok {
		return sig
	}
	sub := &encoder{h: sha256.New(), in: e.in, pkgSigs: e.pkgSigs}
	// Guard against a package that (erroneously) reaches itself through
	// a use-cycle: record a zero signature first so a re-entrant lookup
	// terminates instead of recursing forever.
	e.pkgSigs[pkg] = Signature{}
	sub.writePackage(pkg)
	var sig Signature
	copy(sig[:], sub.h.Sum(nil))
	e.pkgSigs[pkg] = sig
	return sig
}

func (e *encoder) writePackage(pkg *ast.Package) {
	e.writeString(pkg.Path)
	e.writeUint(len(pkg.Modules))
	for _, mod := range pkg.Modules {
		e.writeModule(mod)
	}
}

func (e *encoder) writeModule(mod *ast.Module) {
	e.writeString(mod.Path)
	e.writeUint(len(mod.Uses))
	for _, u := range mod.Uses {
		e.writeUse(u)
	}
	e.writeUint(len(mod.FFI))
	for _, f := range mod.FFI {
		e.writeFFI(f)
	}
	e.writeUint(len(mod.Decls))
	for _, d := range mod.Decls {
		e.writeDecl(d)
	}
}

func (e *encoder) writeUse(u *ast.UseDecl) {
	e.writeByte(byte(ast.KUse))
	e.writeString(u.Path)
	e.writeString(u.Guard)
	if u.Resolved != nil {
		sig := e.packageSignature(u.Resolved)
		e.h.Write(sig[:])
	}
}

func (e *encoder) writeFFI(f *ast.FFIDecl) {
	e.writeByte(byte(ast.KFFIDecl))
	e.writeString(f.Name)
	e.writeString(f.Guard)
	e.writeBool(f.Variadic)
	e.writeBool(f.Partial)
	e.writeType(f.Result)
	e.writeUint(len(f.Params))
	for _, p := range f.Params {
		e.writeParam(p)
	}
}

func (e *encoder) writeDecl(d ast.Decl) {
	switch n := d.(type) {
	case *ast.EntityDecl:
		e.writeEntity(n)
	case *ast.TypeAliasDecl:
		e.writeByte(byte(ast.KTypeAlias))
		e.writeIdent(n.Name)
		e.writeTypeParams(n.TypeParams)
		e.writeType(n.Target)
	}
}

func (e *encoder) writeEntity(n *ast.EntityDecl) {
	e.writeByte(byte(ast.KEntity))
	e.writeAnnotations(n)
	e.writeUint(int(n.EntityKind))
	e.writeIdent(n.Name)
	e.writeTypeParams(n.TypeParams)
	e.writeByte(byte(n.DefaultCap))
	e.writeUint(len(n.Provides))
	for _, p := range n.Provides {
		e.writeType(p)
	}
	e.writeUint(len(n.Fields))
	for _, f := range n.Fields {
		e.writeField(f)
	}
	// Flattened methods are a Traits Pass derivation of Methods plus the
	// provides-closure, not independent content; only the entity's own
	// declared Methods are part of the canonical encoding, so a trait
	// adding a default body still changes the signature through the
	// provides list and the trait's own body, without double-counting.
	e.writeUint(len(n.Methods))
	for _, m := range n.Methods {
		e.writeMethod(m)
	}
}

func (e *encoder) writeField(f *ast.FieldDecl) {
	e.writeByte(byte(ast.KField))
	e.writeAnnotations(f)
	e.writeUint(int(f.FieldKind))
	e.writeIdent(f.Name)
	e.writeType(f.Type)
	e.writeExpr(f.Default)
}

func (e *encoder) writeMethod(m *ast.MethodDecl) {
	e.writeByte(byte(ast.KMethod))
	e.writeAnnotations(m)
	e.writeUint(int(m.Flavor))
	e.writeByte(byte(m.Cap))
	e.writeIdent(m.Name)
	e.writeTypeParams(m.TypeParams)
	e.writeUint(len(m.Params))
	for _, p := range m.Params {
		e.writeParam(p)
	}
	e.writeType(m.Result)
	e.writeBool(m.Partial)
	if m.Body != nil {
		e.writeBool(true)
		e.writeBlock(m.Body)
	} else {
		e.writeBool(false)
	}
}

func (e *encoder) writeParam(p *ast.Param) {
	e.writeIdent(p.Name)
	e.writeType(p.Type)
	e.writeExpr(p.Default)
}

func (e *encoder) writeTypeParams(tps []*ast.TypeParam) {
	e.writeUint(len(tps))
	for _, tp := range tps {
		e.writeIdent(tp.Name)
		e.writeType(tp.Bound)
		e.writeType(tp.Default)
	}
}

// writeType encodes a type expression. nil means "elided/None", written
// as a single zero tag distinct from every real Kind byte.
func (e *encoder) writeType(t ast.TypeExpr) {
	if t == nil {
		e.writeByte(0)
		return
	}
	e.writeByte(byte(t.Kind()))
	switch n := t.(type) {
	case *ast.NominalType:
		e.writeIdent(n.Name)
		e.writeByte(byte(n.Cap))
		e.writeByte(byte(n.CapSet))
		e.writeByte(byte(n.Ephemeral))
		e.writeUint(len(n.Args))
		for _, a := range n.Args {
			e.writeType(a)
		}
		if entity, ok := n.Resolved.(*ast.EntityDecl); ok {
			e.writeIdent(entity.Name)
		}
	case *ast.UnionType:
		e.writeUint(len(n.Members))
		for _, m := range n.Members {
			e.writeType(m)
		}
	case *ast.IntersectionType:
		e.writeUint(len(n.Members))
		for _, m := range n.Members {
			e.writeType(m)
		}
	case *ast.TupleType:
		e.writeUint(len(n.Elems))
		for _, m := range n.Elems {
			e.writeType(m)
		}
	case *ast.ArrowType:
		e.writeType(n.Origin)
		e.writeType(n.Target)
	case *ast.TypeParamRef:
		e.writeIdent(n.Name)
	case *ast.FunType:
		e.writeByte(byte(n.Cap))
		e.writeUint(len(n.Params))
		for _, p := range n.Params {
			e.writeType(p)
		}
		e.writeType(n.Result)
	}
}

func (e *encoder) writeBlock(b *ast.Block) {
	e.writeByte(byte(ast.KBlock))
	e.writeUint(len(b.Exprs))
	for _, x := range b.Exprs {
		e.writeExpr(x)
	}
}

// writeExpr encodes an expression. nil means "absent" (an elided else
// branch, a value-less return), written as a single zero tag.
func (e *encoder) writeExpr(x ast.Expr) {
	if x == nil {
		e.writeByte(0)
		return
	}
	e.writeByte(byte(x.Kind()))
	switch n := x.(type) {
	case *ast.Ident:
		e.writeIdent(n.Name)
	case *ast.This, *ast.DontCare, *ast.NoneLit, *ast.LocExpr, *ast.ErrorExpr, *ast.ContinueExpr:
		// no payload beyond the Kind tag
	case *ast.IntLit:
		e.writeBigInt(n.Value)
	case *ast.FloatLit:
		e.writeFloat(n.Value)
	case *ast.StringLit:
		e.writeIdent(n.Value)
	case *ast.BoolLit:
		e.writeBool(n.Value)
	case *ast.TupleLit:
		e.writeUint(len(n.Elems))
		for _, el := range n.Elems {
			e.writeExpr(el)
		}
	case *ast.ArrayLit:
		e.writeUint(len(n.Elems))
		for _, el := range n.Elems {
			e.writeExpr(el)
		}
		e.writeType(n.Elem)
	case *ast.ObjectLit:
		e.writeByte(byte(n.Cap))
		e.writeUint(len(n.Provides))
		for _, p := range n.Provides {
			e.writeType(p)
		}
		e.writeUint(len(n.Fields))
		for _, f := range n.Fields {
			e.writeField(f)
		}
		e.writeUint(len(n.Methods))
		for _, m := range n.Methods {
			e.writeMethod(m)
		}
	case *ast.Lambda:
		e.writeByte(byte(n.Cap))
		e.writeUint(len(n.Params))
		for _, p := range n.Params {
			e.writeParam(p)
		}
		e.writeType(n.Result)
		e.writeBlock(n.Body)
	case *ast.Call:
		e.writeExpr(n.Callee)
		e.writeUint(len(n.TypeArgs))
		for _, a := range n.TypeArgs {
			e.writeType(a)
		}
		e.writeUint(len(n.Args))
		for _, a := range n.Args {
			e.writeExpr(a)
		}
		e.writeBool(n.Partial)
	case *ast.FFICall:
		e.writeString(n.Name)
		e.writeUint(len(n.Args))
		for _, a := range n.Args {
			e.writeExpr(a)
		}
	case *ast.MemberAccess:
		e.writeExpr(n.Receiver)
		e.writeIdent(n.Name)
	case *ast.IndexExpr:
		e.writeExpr(n.Receiver)
		e.writeUint(len(n.Args))
		for _, a := range n.Args {
			e.writeExpr(a)
		}
	case *ast.BinaryExpr:
		e.writeUint(int(n.Op))
		e.writeExpr(n.Left)
		e.writeExpr(n.Right)
	case *ast.UnaryExpr:
		e.writeUint(int(n.Op))
		e.writeExpr(n.Operand)
	case *ast.IsExpr:
		e.writeBool(n.Negate)
		e.writeExpr(n.Left)
		e.writeExpr(n.Right)
	case *ast.AsExpr:
		e.writeExpr(n.Value)
		e.writeType(n.Type)
	case *ast.Block:
		e.writeUint(len(n.Exprs))
		for _, s := range n.Exprs {
			e.writeExpr(s)
		}
	case *ast.IfExpr:
		e.writeAnnotations(n)
		e.writeExpr(n.Cond)
		e.writeBlock(n.Then)
		e.writeExpr(n.Else)
	case *ast.IfDefExpr:
		e.writeString(n.Guard)
		e.writeBlock(n.Then)
		e.writeExpr(n.Else)
	case *ast.IfTypeExpr:
		e.writeType(n.Param)
		e.writeType(n.Bound)
		e.writeBlock(n.Then)
		e.writeExpr(n.Else)
	case *ast.WhileExpr:
		e.writeExpr(n.Cond)
		e.writeBlock(n.Body)
		e.writeExpr(n.Else)
	case *ast.RepeatExpr:
		e.writeBlock(n.Body)
		e.writeExpr(n.Until)
		e.writeExpr(n.Else)
	case *ast.WithExpr:
		e.writeUint(len(n.Binds))
		for _, b := range n.Binds {
			e.writeIdent(b.Name)
			e.writeType(b.Type)
			e.writeExpr(b.Init)
		}
		e.writeBlock(n.Body)
		e.writeExpr(n.Else)
	case *ast.TryExpr:
		e.writeBlock(n.Body)
		if n.Else != nil {
			e.writeBool(true)
			e.writeBlock(n.Else)
		} else {
			e.writeBool(false)
		}
		if n.Then != nil {
			e.writeBool(true)
			e.writeBlock(n.Then)
		} else {
			e.writeBool(false)
		}
	case *ast.RecoverExpr:
		e.writeByte(byte(n.Cap))
		e.writeBlock(n.Body)
	case *ast.ConsumeExpr:
		e.writeByte(byte(n.Cap))
		e.writeExpr(n.Expr)
	case *ast.MatchExpr:
		e.writeExpr(n.Subject)
		e.writeUint(len(n.Cases))
		for _, c := range n.Cases {
			e.writeExpr(c.Pattern)
			e.writeType(c.AsType)
			e.writeExpr(c.Guard)
			e.writeBlock(c.Body)
		}
		e.writeExpr(n.Else)
	case *ast.BreakExpr:
		e.writeExpr(n.Value)
	case *ast.ReturnExpr:
		e.writeExpr(n.Value)
	case *ast.VarDecl:
		e.writeBool(n.IsLet)
		e.writeIdent(n.Name)
		e.writeType(n.Type)
		e.writeExpr(n.Init)
	case *ast.AssignExpr:
		e.writeExpr(n.LHS)
		e.writeExpr(n.RHS)
	}
}

// writeAnnotations folds n's `\name, name\` markers into the hash. An
// annotation like `packed` changes an entity's memory-layout contract,
// so it's hashed content, not stripped metadata the way a docstring is.
func (e *encoder) writeAnnotations(n ast.Node) {
	a := n.Annotations()
	e.writeUint(len(a))
	for _, name := range a {
		e.writeString(name)
	}
}

func (e *encoder) writeIdent(id ident.ID) {
	if id == ident.Invalid {
		e.writeString("")
		return
	}
	e.writeString(e.in.Text(id))
}

func (e *encoder) writeByte(b byte) { e.h.Write([]byte{b}) }

func (e *encoder) writeBool(b bool) {
	if b {
		e.writeByte(1)
	} else {
		e.writeByte(0)
	}
}

func (e *encoder) writeUint(n int) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(n))
	e.h.Write(buf[:])
}

func (e *encoder) writeString(s string) {
	e.writeUint(len(s))
	e.h.Write([]byte(s))
}

func (e *encoder) writeBigInt(v *big.Int) {
	if v == nil {
		e.writeString("")
		return
	}
	e.writeString(v.Text(10))
}

func (e *encoder) writeFloat(f float64) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], math.Float64bits(f))
	e.h.Write(buf[:])
}
