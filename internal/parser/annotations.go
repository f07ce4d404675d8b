package parser

import "github.com/veillang/velc/pkg/token"

// parseOptionalAnnotations consumes a `\name, name\` annotation list if
// the current token starts one (spec §3: "annotations in `\name, name\`
// between any keyword and its operand"), returning the annotation names
// in source order. Returns nil if there is no annotation list here.
func (p *Parser) parseOptionalAnnotations() []string {
	if !p.cursor.Is(token.BACKSLASH) {
		return nil
	}
	p.advance()

	var names []string
	for !p.cursor.Is(token.BACKSLASH) && !p.cursor.IsEOF() {
		name, ok := p.expectIdent()
		if !ok {
			break
		}
		names = append(names, p.in.Text(name))
		if p.cursor.Is(token.COMMA) {
			p.advance()
			continue
		}
		break
	}
	p.expect(token.BACKSLASH, ErrInvalidSyntax, "'\\' to close annotation list")
	return names
}
