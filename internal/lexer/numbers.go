package lexer

import "strconv"

// parseFloat parses a float literal's text (underscores already
// stripped) to the nearest float64 via strconv.ParseFloat.
func parseFloat(text string) (float64, error) {
	return strconv.ParseFloat(text, 64)
}
