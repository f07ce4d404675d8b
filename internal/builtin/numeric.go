package builtin

import (
	"fmt"
	"strings"
)

// numericKind distinguishes the three families of builtin numeric
// primitive, since each gets a different operator surface (spec §6
// "Builtin package source": numeric primitives).
type numericKind int

const (
	kindSigned numericKind = iota
	kindUnsigned
	kindFloat
)

// numericSpec describes one numeric primitive's name and family. The
// set mirrors the width/signedness matrix every Pony-family standard
// library exposes; rather than hand-writing twelve near-identical
// entity bodies, generateNumeric below stamps this table through one
// template per family, since the declarations are genuinely repetitive
// (same operator names, same shape, only the type name differs).
var numericSpecs = []struct {
	name string
	kind numericKind
}{
	{"I8", kindSigned}, {"I16", kindSigned}, {"I32", kindSigned},
	{"I64", kindSigned}, {"I128", kindSigned},
	{"U8", kindUnsigned}, {"U16", kindUnsigned}, {"U32", kindUnsigned},
	{"U64", kindUnsigned}, {"U128", kindUnsigned},
	{"F32", kindFloat}, {"F64", kindFloat},
}

// integerOps is the operator-method surface every signed and unsigned
// integer primitive declares (spec §4.4's binary/unary desugar targets:
// add, sub, mul, div, mod, lt, le, gt, ge, op_and, op_or, op_xor, neg).
// eq/ne are deliberately absent: SugarPass.ensureConstructor synthesizes
// them for every primitive with no declared constructor (internal/
// passes/sugar.go), and the builtin package goes through that same pass
// during session bootstrap.
const integerOps = `
  fun box add(other: {{T}}): {{T}} => 0
  fun box sub(other: {{T}}): {{T}} => 0
  fun box mul(other: {{T}}): {{T}} => 0
  fun box div(other: {{T}}): {{T}} => 0
  fun box mod(other: {{T}}): {{T}} => 0
  fun box lt(other: {{T}}): Bool => true
  fun box le(other: {{T}}): Bool => true
  fun box gt(other: {{T}}): Bool => true
  fun box ge(other: {{T}}): Bool => true
  fun box op_and(other: {{T}}): {{T}} => 0
  fun box op_or(other: {{T}}): {{T}} => 0
  fun box op_xor(other: {{T}}): {{T}} => 0
  fun box neg(): {{T}} => 0
`

// floatOps omits the bitwise operators integerOps carries: floating
// point primitives have no bitwise-and/or/xor in the surface language.
const floatOps = `
  fun box add(other: {{T}}): {{T}} => 0
  fun box sub(other: {{T}}): {{T}} => 0
  fun box mul(other: {{T}}): {{T}} => 0
  fun box div(other: {{T}}): {{T}} => 0
  fun box mod(other: {{T}}): {{T}} => 0
  fun box lt(other: {{T}}): Bool => true
  fun box le(other: {{T}}): Bool => true
  fun box gt(other: {{T}}): Bool => true
  fun box ge(other: {{T}}): Bool => true
  fun box neg(): {{T}} => 0
`

// generateNumeric renders one `primitive Name\n<ops>` declaration per
// numericSpecs entry into a single module source string.
func generateNumeric() string {
	var sb strings.Builder
	for _, s := range numericSpecs {
		ops := integerOps
		if s.kind == kindFloat {
			ops = floatOps
		}
		fmt.Fprintf(&sb, "primitive %s\n%s\n", s.name, strings.ReplaceAll(ops, "{{T}}", s.name))
	}
	return sb.String()
}
