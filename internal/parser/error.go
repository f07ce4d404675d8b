package parser

import (
	"fmt"

	"github.com/veillang/velc/pkg/token"
)

// SyntaxError is one parse failure: what was expected, where, and under
// which code (spec §7 "Syntax" error kind).
type SyntaxError struct {
	Message string
	Code    string
	Pos     token.Position
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s at %d:%d", e.Message, e.Pos.Line, e.Pos.Column)
}

// Error code constants, named after the construct the parser was
// expecting when it gave up (spec §7 groups these as one "Syntax" kind;
// codes are for tooling, not user-facing kind distinctions).
const (
	ErrUnexpectedToken = "E_UNEXPECTED_TOKEN"
	ErrExpectedIdent   = "E_EXPECTED_IDENT"
	ErrExpectedType    = "E_EXPECTED_TYPE"
	ErrMissingColon    = "E_MISSING_COLON"
	ErrMissingParen    = "E_MISSING_PAREN"
	ErrMissingBracket  = "E_MISSING_BRACKET"
	ErrMissingEnd      = "E_MISSING_END"
	ErrMissingThen     = "E_MISSING_THEN"
	ErrMissingDo       = "E_MISSING_DO"
	ErrMissingFatArrow = "E_MISSING_FATARROW"
	ErrMissingAssign   = "E_MISSING_ASSIGN"
	ErrNoPrefixParse   = "E_NO_PREFIX_PARSE"
	ErrInvalidSyntax   = "E_INVALID_SYNTAX"
)

// deepestError is the furthest-advance error tracker spec §7 requires
// for backtracking alternatives: when a rule like "entity member" tries
// class-field, then method, then fails both, the diagnostic surfaced to
// the user should be the one that got furthest into the input, not
// whichever alternative happened to run last. Every parse attempt
// records its errors into one of these; ResetTo-style backtracking
// discards a failed branch's partial AST but never discards an error
// that advanced further than what's currently retained.
type deepestError struct {
	errs []*SyntaxError
	high token.Position
}

func (d *deepestError) add(err *SyntaxError) {
	if len(d.errs) == 0 || posAfter(err.Pos, d.high) {
		d.high = err.Pos
		d.errs = []*SyntaxError{err}
		return
	}
	if err.Pos == d.high {
		d.errs = append(d.errs, err)
	}
	// Strictly earlier than the current high-water mark: superseded by
	// a later alternative that got further; drop it.
}

// merge folds another branch's retained errors into d, keeping only
// whichever of the two got further.
func (d *deepestError) merge(other *deepestError) {
	for _, e := range other.errs {
		d.add(e)
	}
}

func posAfter(a, b token.Position) bool {
	if a.Line != b.Line {
		return a.Line > b.Line
	}
	return a.Column > b.Column
}
