package gerber

import "strings"

// token is one data block: either a word ending in '*' or the contents
// of a %...% extended block split on '*'.
type token struct {
	text     string
	line     int
	extended bool
}

// lex splits raw Gerber text into tokens, tracking source line numbers.
// Extended %...% blocks become one token per contained statement except
// %AM...%, which stays a single token because its primitive list is only
// meaningful as a unit.
func lex(src string) []token {
	var tokens []token
	line := 1
	i := 0
	n := len(src)
	for i < n {
		c := src[i]
		switch {
		case c == '\n':
			line++
			i++
		case c == '\r' || c == ' ' || c == '\t':
			i++
		case c == '%':
			start := i + 1
			startLine := line
			j := start
			for j < n && src[j] != '%' {
				if src[j] == '\n' {
					line++
				}
				j++
			}
			block := src[start:j]
			if strings.HasPrefix(strings.TrimSpace(block), "AM") {
				tokens = append(tokens, token{text: strings.TrimSpace(block), line: startLine, extended: true})
			} else {
				stmtLine := startLine
				for _, stmt := range strings.Split(block, "*") {
					lineDelta := strings.Count(stmt, "\n")
					stmt = strings.TrimSpace(strings.ReplaceAll(stmt, "\n", ""))
					stmt = strings.ReplaceAll(stmt, "\r", "")
					if stmt != "" {
						tokens = append(tokens, token{text: stmt, line: stmtLine, extended: true})
					}
					stmtLine += lineDelta
				}
			}
			i = j + 1
		default:
			start := i
			startLine := line
			j := i
			for j < n && src[j] != '*' {
				if src[j] == '\n' {
					line++
				}
				j++
			}
			word := strings.TrimSpace(src[start:j])
			word = strings.ReplaceAll(word, "\n", "")
			word = strings.ReplaceAll(word, "\r", "")
			if word != "" {
				tokens = append(tokens, token{text: word, line: startLine})
			}
			i = j + 1
		}
	}
	return tokens
}
