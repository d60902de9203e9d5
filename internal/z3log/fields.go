package z3log

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// splitFields breaks the payload of a log line into tokens. Whitespace
// separates tokens except inside |quoted symbols| and (parenthesised groups),
// which are returned whole. A lone ";" is returned as its own token.
func splitFields(s string) []string {
	var out []string
	i := 0
	for i < len(s) {
		c := s[i]
		if c == ' ' || c == '\t' || c == '\r' {
			i++
			continue
		}
		start := i
		switch c {
		case '|':
			end := strings.IndexByte(s[i+1:], '|')
			if end < 0 {
				i = len(s)
			} else {
				i += end + 2
			}
		case '(':
			depth := 0
			for i < len(s) {
				switch s[i] {
				case '(':
					depth++
				case ')':
					depth--
				}
				i++
				if depth == 0 {
					break
				}
			}
		default:
			for i < len(s) && s[i] != ' ' && s[i] != '\t' && s[i] != '\r' {
				i++
			}
		}
		out = append(out, s[start:i])
	}
	return out
}

// splitTag separates "[tag] rest" into tag and rest.
func splitTag(line string) (tag, rest string, ok bool) {
	if !strings.HasPrefix(line, "[") {
		return "", "", false
	}
	end := strings.IndexByte(line, ']')
	if end < 0 {
		return "", "", false
	}
	return line[1:end], strings.TrimSpace(line[end+1:]), true
}

// cutSemicolon splits tokens at the first ";" token.
func cutSemicolon(tokens []string) (before, after []string, found bool) {
	for i, tok := range tokens {
		if tok == ";" {
			return tokens[:i], tokens[i+1:], true
		}
	}
	return tokens, nil, false
}

// unquote strips |...| quoting from a symbol.
func unquote(sym string) string {
	if len(sym) >= 2 && sym[0] == '|' && sym[len(sym)-1] == '|' {
		return sym[1 : len(sym)-1]
	}
	return sym
}

// symbolName unquotes a declared name and brings it to NFC so labels that
// differ only in composition compare equal.
func symbolName(sym string) string {
	return norm.NFC.String(unquote(sym))
}
