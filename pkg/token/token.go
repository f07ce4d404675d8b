package token

import (
	"math/big"

	"github.com/veillang/velc/pkg/ident"
)

// Token is one lexical unit: a type tag, a source position, and an
// optional payload (spec §3). Integer literals carry a 128-bit value via
// math/big.Int (no 64-bit truncation during lexing, per spec §4.1);
// float literals carry a float64; identifiers and strings carry an
// interned ident.ID. FirstOnLine records whether this token is the first
// non-comment token on its source line, used to disambiguate unary vs.
// binary minus (spec §4.1).
type Token struct {
	Type        Type
	Pos         Position
	EndPos      Position
	Name        ident.ID // valid for IDENT and STRING
	Int         *big.Int // valid for INT
	Float       float64  // valid for FLOAT
	FirstOnLine bool
}

// String renders the token's canonical text for debugging.
func (t Token) String() string {
	switch t.Type {
	case IDENT:
		return "IDENT"
	case INT:
		if t.Int != nil {
			return t.Int.String()
		}
		return "0"
	case FLOAT:
		return t.Type.String()
	case STRING:
		return "STRING"
	default:
		return t.Type.String()
	}
}

// IsZero reports whether t is the unset Token value.
func (t Token) IsZero() bool {
	return t.Type == ILLEGAL && t.Pos == Position{}
}
