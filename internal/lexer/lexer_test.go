package lexer

import (
	"testing"

	"github.com/veillang/velc/pkg/ident"
	"github.com/veillang/velc/pkg/token"
)

func scanAll(t *testing.T, src string) []token.Token {
	t.Helper()
	in := ident.New()
	l := New(in, "test.vel", src)
	var toks []token.Token
	for {
		tok := l.NextToken()
		toks = append(toks, tok)
		if tok.Type == token.EOF {
			break
		}
	}
	return toks
}

func TestLexerKeywordsAndIdents(t *testing.T) {
	toks := scanAll(t, "actor Main new create(env: Env) => None")
	want := []token.Type{
		token.ACTOR, token.IDENT, token.NEW, token.IDENT, token.LPAREN,
		token.IDENT, token.COLON, token.IDENT, token.RPAREN, token.FATARROW,
		token.IDENT, token.EOF,
	}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d: %+v", len(toks), len(want), toks)
	}
	for i, w := range want {
		if toks[i].Type != w {
			t.Errorf("token %d: got %v, want %v", i, toks[i].Type, w)
		}
	}
}

func TestLexerIntegerLiterals(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"123", "123"},
		{"0xFF", "255"},
		{"0b1010", "10"},
		{"1_000_000", "1000000"},
	}
	for _, tt := range tests {
		toks := scanAll(t, tt.src)
		if toks[0].Type != token.INT {
			t.Fatalf("%q: got %v, want INT", tt.src, toks[0].Type)
		}
		if got := toks[0].Int.String(); got != tt.want {
			t.Errorf("%q: Int = %s, want %s", tt.src, got, tt.want)
		}
	}
}

func TestLexerNoOctal(t *testing.T) {
	// "0123" must lex as decimal 123, not octal — spec explicitly rules
	// out octal literals.
	toks := scanAll(t, "0123")
	if toks[0].Int.String() != "123" {
		t.Errorf("Int = %s, want 123 (no octal support)", toks[0].Int.String())
	}
}

func TestLexerFloatLiterals(t *testing.T) {
	tests := []struct {
		src  string
		want float64
	}{
		{"1.5", 1.5},
		{"1.5e10", 1.5e10},
		{"2E-3", 2e-3},
	}
	for _, tt := range tests {
		toks := scanAll(t, tt.src)
		if toks[0].Type != token.FLOAT {
			t.Fatalf("%q: got %v, want FLOAT", tt.src, toks[0].Type)
		}
		if toks[0].Float != tt.want {
			t.Errorf("%q: Float = %v, want %v", tt.src, toks[0].Float, tt.want)
		}
	}
}

func TestLexerDoubleQuotedStringEscapes(t *testing.T) {
	in := ident.New()
	l := New(in, "t.vel", `"a\nb\tc\"d\\e"`)
	tok := l.NextToken()
	if tok.Type != token.STRING {
		t.Fatalf("got %v, want STRING", tok.Type)
	}
	if got := in.Text(tok.Name); got != "a\nb\tc\"d\\e" {
		t.Errorf("got %q", got)
	}
}

func TestLexerHexUnicodeEscapes(t *testing.T) {
	in := ident.New()
	l := New(in, "t.vel", `"\x41B\U000043"`)
	tok := l.NextToken()
	if got := in.Text(tok.Name); got != "ABC" {
		t.Errorf("got %q, want ABC", got)
	}
}

func TestLexerTripleQuotedDedent(t *testing.T) {
	in := ident.New()
	src := "'''\n    line one\n    line two\n    '''"
	l := New(in, "t.vel", src)
	tok := l.NextToken()
	if tok.Type != token.STRING {
		t.Fatalf("got %v, want STRING", tok.Type)
	}
	got := in.Text(tok.Name)
	want := "line one\nline two"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestLexerLineComment(t *testing.T) {
	toks := scanAll(t, "let x = 1 // comment\nlet y = 2")
	count := 0
	for _, tok := range toks {
		if tok.Type != token.EOF {
			count++
		}
	}
	if count != 8 {
		t.Fatalf("got %d tokens (comment not skipped?): %+v", count, toks)
	}
}

func TestLexerNestedBlockComment(t *testing.T) {
	toks := scanAll(t, "/* outer /* inner */ still outer */ let")
	if toks[0].Type != token.LET {
		t.Fatalf("nested comment not fully skipped: got %v", toks[0].Type)
	}
}

func TestLexerMinusFirstOnLineDisambiguation(t *testing.T) {
	// "a - b" : binary minus, not first on its line.
	toks := scanAll(t, "a - b")
	minus := toks[1]
	if minus.Type != token.MINUS || minus.FirstOnLine {
		t.Errorf("binary minus: FirstOnLine = %v, want false", minus.FirstOnLine)
	}

	// minus starting a new line: unary position.
	toks = scanAll(t, "a\n-b")
	minus = toks[1]
	if minus.Type != token.MINUS || !minus.FirstOnLine {
		t.Errorf("unary minus: FirstOnLine = %v, want true", minus.FirstOnLine)
	}
}

func TestLexerCapabilitySets(t *testing.T) {
	toks := scanAll(t, "#read #send #share #any")
	want := []token.Type{token.CAP_READ, token.CAP_SEND, token.CAP_SHARE, token.CAP_ANY, token.EOF}
	for i, w := range want {
		if toks[i].Type != w {
			t.Errorf("token %d: got %v, want %v", i, toks[i].Type, w)
		}
	}
}

func TestLexerIllegalCharacterRecovers(t *testing.T) {
	toks := scanAll(t, "let x = ` let y = 1")
	if toks[0].Type != token.LET {
		t.Fatal("expected lexer to start with LET")
	}
	foundIllegal := false
	for _, tok := range toks {
		if tok.Type == token.ILLEGAL {
			foundIllegal = true
		}
	}
	if !foundIllegal {
		t.Fatal("expected an ILLEGAL token for the backtick")
	}
	// Lexing continues after the illegal token (spec §4.1 recovery).
	last := toks[len(toks)-1]
	if last.Type != token.EOF {
		t.Fatal("lexer should reach EOF after an illegal character")
	}
}

func TestLexerArrowsAndFatArrows(t *testing.T) {
	toks := scanAll(t, "-> => ..")
	want := []token.Type{token.ARROW, token.FATARROW, token.DOTDOT, token.EOF}
	for i, w := range want {
		if toks[i].Type != w {
			t.Errorf("token %d: got %v, want %v", i, toks[i].Type, w)
		}
	}
}

func TestLexerPositions(t *testing.T) {
	in := ident.New()
	l := New(in, "t.vel", "let\nx = 1")
	tok := l.NextToken()
	if tok.Pos.Line != 1 || tok.Pos.Column != 1 {
		t.Errorf("got %v, want 1:1", tok.Pos)
	}
	_ = l.NextToken() // x
	_ = l.NextToken() // =
	num := l.NextToken()
	if num.Pos.Line != 2 {
		t.Errorf("expected literal on line 2, got line %d", num.Pos.Line)
	}
}

func TestLexerIdempotence(t *testing.T) {
	// Re-lexing the same source twice must produce identical token
	// sequences (spec §8 "Lexer idempotence").
	src := `actor Main new create(env: Env) => let x: U32 = 1 + 2`
	a := scanAll(t, src)
	b := scanAll(t, src)
	if len(a) != len(b) {
		t.Fatalf("lengths differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i].Type != b[i].Type {
			t.Errorf("token %d type differs: %v vs %v", i, a[i].Type, b[i].Type)
		}
	}
}

func TestLexerPeekDoesNotConsume(t *testing.T) {
	in := ident.New()
	l := New(in, "t.vel", "a b c")
	peeked := l.Peek(2)
	if peeked.Name == 0 {
		t.Fatal("peek(2) should be the second identifier")
	}
	first := l.NextToken()
	if in.Text(first.Name) != "a" {
		t.Errorf("NextToken after Peek = %q, want a", in.Text(first.Name))
	}
}
