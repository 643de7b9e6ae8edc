package search

import "strings"

type tokenKind int

const (
	tokWord tokenKind = iota
	tokQuoted
	tokRegex
	tokLParen
	tokRParen
	tokEOF
)

type token struct {
	kind tokenKind
	text string
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isBoundary(c byte) bool {
	return isSpace(c) || c == '(' || c == ')'
}

// lex tokenizes a query string per spec §4.5: whitespace separates tokens
// except inside `"..."` or `/.../`; `\"` and `\/` escape their delimiter
// inside those two contexts; `(` and `)` are standalone tokens.
func lex(input string) []token {
	var toks []token
	i, n := 0, len(input)

	for i < n {
		c := input[i]
		switch {
		case isSpace(c):
			i++
		case c == '(':
			toks = append(toks, token{tokLParen, "("})
			i++
		case c == ')':
			toks = append(toks, token{tokRParen, ")"})
			i++
		case c == '"':
			text, next := scanDelimited(input, i+1, '"')
			toks = append(toks, token{tokQuoted, text})
			i = next
		case c == '/':
			text, next := scanDelimited(input, i+1, '/')
			toks = append(toks, token{tokRegex, text})
			i = next
		default:
			j := i
			for j < n && !isBoundary(input[j]) {
				j++
			}
			toks = append(toks, token{tokWord, input[i:j]})
			i = j
		}
	}

	toks = append(toks, token{tokEOF, ""})
	return toks
}

// scanDelimited reads from start until an unescaped delim or end of input,
// unescaping `\<delim>` along the way, and returns the content plus the
// index just past the closing delimiter (or len(input) if unterminated).
func scanDelimited(input string, start int, delim byte) (string, int) {
	var sb strings.Builder
	j, n := start, len(input)
	for j < n && input[j] != delim {
		if input[j] == '\\' && j+1 < n && input[j+1] == delim {
			sb.WriteByte(delim)
			j += 2
			continue
		}
		sb.WriteByte(input[j])
		j++
	}
	if j < n {
		j++ // consume the closing delimiter
	}
	return sb.String(), j
}
