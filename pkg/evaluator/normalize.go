// Package evaluator holds helpers shared by the expression language backends.
package evaluator

import (
	"strings"
	"unicode"
)

var keywords = map[string]string{
	"AND":   "&&",
	"OR":    "||",
	"NOT":   "!",
	"TRUE":  "true",
	"FALSE": "false",
}

// Normalize rewrites spreadsheet-style operators into the C-like forms both
// backends understand: AND, OR and NOT (any case) become &&, || and !,
// TRUE/FALSE become lowercase, <> becomes != and a lone = becomes ==.
// Text inside double-quoted string literals is left untouched.
func Normalize(expr string) string {
	var b strings.Builder
	b.Grow(len(expr) + 8)
	src := []rune(expr)

	for i := 0; i < len(src); i++ {
		r := src[i]
		switch {
		case r == '"':
			j := i + 1
			for j < len(src) && src[j] != '"' {
				if src[j] == '\\' {
					j++
				}
				j++
			}
			if j >= len(src) {
				j = len(src) - 1
			}
			b.WriteString(string(src[i : j+1]))
			i = j
		case isIdentStart(r):
			j := i
			for j < len(src) && isIdentPart(src[j]) {
				j++
			}
			word := string(src[i:j])
			if repl, ok := keywords[strings.ToUpper(word)]; ok && (i == 0 || src[i-1] != '.') {
				b.WriteString(repl)
			} else {
				b.WriteString(word)
			}
			i = j - 1
		case r == '<' && i+1 < len(src) && src[i+1] == '>':
			b.WriteString("!=")
			i++
		case r == '=':
			prev, next := rune(0), rune(0)
			if i > 0 {
				prev = src[i-1]
			}
			if i+1 < len(src) {
				next = src[i+1]
			}
			if strings.ContainsRune("<>!=", prev) || next == '=' || next == '>' {
				b.WriteRune(r)
			} else {
				b.WriteString("==")
			}
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
