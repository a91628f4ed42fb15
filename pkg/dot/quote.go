package dot

import "strings"

var reserved = map[string]bool{
	"strict": true, "graph": true, "digraph": true,
	"node": true, "edge": true, "subgraph": true,
}

// QuoteID returns name in a form the layout engine reads as a single
// identifier: unchanged when it is a plain word or numeral, otherwise
// double-quoted with '"' and '\' escaped. UnquoteID is its inverse.
func QuoteID(name string) string {
	if isEngineID(name) {
		return name
	}
	var sb strings.Builder
	sb.Grow(len(name) + 2)
	sb.WriteByte('"')
	for i := 0; i < len(name); i++ {
		if name[i] == '"' || name[i] == '\\' {
			sb.WriteByte('\\')
		}
		sb.WriteByte(name[i])
	}
	sb.WriteByte('"')
	return sb.String()
}

// UnquoteID reverses QuoteID. Text that is not double-quoted is returned
// unchanged.
func UnquoteID(s string) string {
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return s
	}
	body := s[1 : len(s)-1]
	if !strings.Contains(body, `\`) {
		return body
	}
	var sb strings.Builder
	for i := 0; i < len(body); i++ {
		if body[i] == '\\' && i+1 < len(body) && (body[i+1] == '"' || body[i+1] == '\\') {
			i++
		}
		sb.WriteByte(body[i])
	}
	return sb.String()
}

// isEngineID reports whether the layout engine accepts name unquoted:
// a letter or underscore followed by letters, digits or underscores, or a
// plain numeral.
func isEngineID(name string) bool {
	if name == "" || reserved[strings.ToLower(name)] {
		return false
	}
	if isNumeral(name) {
		return true
	}
	for i := 0; i < len(name); i++ {
		ch := name[i]
		switch {
		case ch == '_', ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z':
		case isDigit(ch) && i > 0:
		default:
			return false
		}
	}
	return true
}

func isNumeral(s string) bool {
	s = strings.TrimPrefix(s, "-")
	if s == "" || s == "." {
		return false
	}
	dot := false
	for i := 0; i < len(s); i++ {
		switch {
		case isDigit(s[i]):
		case s[i] == '.' && !dot:
			dot = true
		default:
			return false
		}
	}
	return true
}

// persistID keeps names bare whenever the lexer reads them back as one
// identifier, so E0(M,K) stays readable in saved files.
func persistID(name string) string {
	if isBareID(name) {
		return name
	}
	return QuoteID(name)
}

func isBareID(name string) bool {
	if name == "" || reserved[strings.ToLower(name)] {
		return false
	}
	toks, err := NewLexer(name).Tokenize()
	return err == nil && len(toks) == 2 && toks[0].Type == TokenID && toks[0].Value == name
}
