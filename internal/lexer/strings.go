package lexer

import (
	"strings"

	"github.com/veillang/velc/pkg/token"
)

// scanString reads a double-quoted single-line string with C-style
// escapes (spec §4.1): \n \t \" \\ \xNN \uNNNN \UNNNNNN.
func (l *Lexer) scanString(pos token.Position) token.Token {
	l.readChar() // opening quote
	var sb strings.Builder
	for l.ch != '"' {
		if l.ch == 0 || l.ch == '\n' {
			l.addError("unterminated string literal", pos)
			break
		}
		if l.ch == '\\' {
			l.readChar()
			l.readEscape(&sb, pos)
			continue
		}
		sb.WriteRune(l.ch)
		l.readChar()
	}
	if l.ch == '"' {
		l.readChar() // closing quote
	}
	end := l.curPos()
	return token.Token{Type: token.STRING, Pos: pos, EndPos: end, Name: l.in.Intern(sb.String())}
}

func (l *Lexer) readEscape(sb *strings.Builder, pos token.Position) {
	switch l.ch {
	case 'n':
		sb.WriteByte('\n')
		l.readChar()
	case 't':
		sb.WriteByte('\t')
		l.readChar()
	case '"':
		sb.WriteByte('"')
		l.readChar()
	case '\\':
		sb.WriteByte('\\')
		l.readChar()
	case 'x':
		l.readChar()
		sb.WriteRune(rune(l.readHexDigits(2, pos)))
	case 'u':
		l.readChar()
		sb.WriteRune(rune(l.readHexDigits(4, pos)))
	case 'U':
		l.readChar()
		sb.WriteRune(rune(l.readHexDigits(6, pos)))
	default:
		l.addError("unknown escape sequence: \\"+string(l.ch), pos)
		sb.WriteRune(l.ch)
		l.readChar()
	}
}

func (l *Lexer) readHexDigits(n int, pos token.Position) int64 {
	var v int64
	for i := 0; i < n; i++ {
		d, ok := hexVal(l.ch)
		if !ok {
			l.addError("invalid hex escape", pos)
			break
		}
		v = v*16 + int64(d)
		l.readChar()
	}
	return v
}

func hexVal(r rune) (int64, bool) {
	switch {
	case r >= '0' && r <= '9':
		return int64(r - '0'), true
	case r >= 'a' && r <= 'f':
		return int64(r-'a') + 10, true
	case r >= 'A' && r <= 'F':
		return int64(r-'A') + 10, true
	default:
		return 0, false
	}
}

// scanTripleOrSingleString distinguishes `'''multi\nline'''` from a
// stray `'`: the latter is illegal (Vel has no single-quoted string
// form), the former gets automatic common-leading-whitespace stripping
// and optional leading/trailing empty-line trimming (spec §4.1).
func (l *Lexer) scanTripleOrSingleString(pos token.Position) token.Token {
	if l.peekChar() == '\'' {
		// could be '' (empty triple open with 2 of 3 consumed) - check 3rd
		save := *l
		l.readChar()
		l.readChar()
		if l.ch == '\'' {
			l.readChar()
			return l.scanTripleBody(pos)
		}
		*l = save
	}
	l.addError("illegal character: '", pos)
	tok := token.Token{Type: token.ILLEGAL, Pos: pos, EndPos: l.curPos()}
	l.readChar()
	return tok
}

func (l *Lexer) scanTripleBody(pos token.Position) token.Token {
	var sb strings.Builder
	for {
		if l.ch == 0 {
			l.addError("unterminated triple-quoted string", pos)
			break
		}
		if l.ch == '\'' && l.peekChar() == '\'' {
			save := *l
			l.readChar()
			l.readChar()
			if l.ch == '\'' {
				l.readChar()
				break
			}
			*l = save
			sb.WriteRune(l.ch)
			l.readChar()
			continue
		}
		if l.ch == '\n' {
			l.newline()
		}
		sb.WriteRune(l.ch)
		l.readChar()
	}
	end := l.curPos()
	text := stripCommonIndent(sb.String())
	return token.Token{Type: token.STRING, Pos: pos, EndPos: end, Name: l.in.Intern(text)}
}

// stripCommonIndent implements the triple-quoted string dedent rule
// (spec §4.1): strip the common leading whitespace shared by every
// non-blank line, and drop a wholly-blank first or last line (the
// convention that lets the opening/closing `'''` sit on their own
// lines without indenting the content).
func stripCommonIndent(s string) string {
	lines := strings.Split(s, "\n")
	if len(lines) > 1 && strings.TrimSpace(lines[0]) == "" {
		lines = lines[1:]
	}
	if len(lines) > 1 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	common := -1
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		indent := len(line) - len(strings.TrimLeft(line, " \t"))
		if common == -1 || indent < common {
			common = indent
		}
	}
	if common <= 0 {
		return strings.Join(lines, "\n")
	}
	for i, line := range lines {
		if len(line) >= common {
			lines[i] = line[common:]
		} else {
			lines[i] = strings.TrimLeft(line, " \t")
		}
	}
	return strings.Join(lines, "\n")
}
