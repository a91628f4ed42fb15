package dot

import (
	"fmt"
	"strings"
)

// TokenType classifies a lexical token of graph text.
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenID            // bare word, numeral or name with an argument list
	TokenString        // double-quoted string, already unescaped
	TokenLeftBrace     // {
	TokenRightBrace    // }
	TokenLeftBracket   // [
	TokenRightBracket  // ]
	TokenEquals        // =
	TokenComma         // ,
	TokenSemicolon     // ;
	TokenArrow         // ->
	TokenUndirected    // --
)

func (t TokenType) String() string {
	switch t {
	case TokenEOF:
		return "end of input"
	case TokenID:
		return "identifier"
	case TokenString:
		return "string"
	case TokenLeftBrace:
		return "'{'"
	case TokenRightBrace:
		return "'}'"
	case TokenLeftBracket:
		return "'['"
	case TokenRightBracket:
		return "']'"
	case TokenEquals:
		return "'='"
	case TokenComma:
		return "','"
	case TokenSemicolon:
		return "';'"
	case TokenArrow:
		return "'->'"
	case TokenUndirected:
		return "'--'"
	default:
		return "unknown token"
	}
}

// Token is one lexical token with its source position.
type Token struct {
	Type   TokenType
	Value  string
	Line   int
	Column int
}

// IsID reports whether the token can stand where an identifier is expected.
func (t Token) IsID() bool { return t.Type == TokenID || t.Type == TokenString }

// Lexer tokenizes graph text.
type Lexer struct {
	input  string
	pos    int
	line   int
	column int
	tokens []Token
}

// LexError is a lexical failure at a known position.
type LexError struct {
	Line, Column int
	Msg          string
}

func (e *LexError) Error() string {
	return fmt.Sprintf("line %d, column %d: %s", e.Line, e.Column, e.Msg)
}

// NewLexer creates a lexer over input.
func NewLexer(input string) *Lexer {
	return &Lexer{input: input, line: 1, column: 1}
}

// Tokenize converts the whole input into tokens terminated by TokenEOF.
func (l *Lexer) Tokenize() ([]Token, error) {
	for {
		l.skipSpaceAndComments()
		if l.pos >= len(l.input) {
			break
		}
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		l.tokens = append(l.tokens, tok)
	}
	l.tokens = append(l.tokens, Token{Type: TokenEOF, Line: l.line, Column: l.column})
	return l.tokens, nil
}

func (l *Lexer) next() (Token, error) {
	line, col := l.line, l.column
	mk := func(tt TokenType, v string) Token {
		return Token{Type: tt, Value: v, Line: line, Column: col}
	}

	switch ch := l.peek(); ch {
	case '{':
		l.advance()
		return mk(TokenLeftBrace, "{"), nil
	case '}':
		l.advance()
		return mk(TokenRightBrace, "}"), nil
	case '[':
		l.advance()
		return mk(TokenLeftBracket, "["), nil
	case ']':
		l.advance()
		return mk(TokenRightBracket, "]"), nil
	case '=':
		l.advance()
		return mk(TokenEquals, "="), nil
	case ',':
		l.advance()
		return mk(TokenComma, ","), nil
	case ';':
		l.advance()
		return mk(TokenSemicolon, ";"), nil
	case '"':
		s, err := l.readString()
		if err != nil {
			return Token{}, err
		}
		return mk(TokenString, s), nil
	case '-':
		switch l.peekAhead(1) {
		case '>':
			l.advance()
			l.advance()
			return mk(TokenArrow, "->"), nil
		case '-':
			l.advance()
			l.advance()
			return mk(TokenUndirected, "--"), nil
		}
		if isDigit(l.peekAhead(1)) || l.peekAhead(1) == '.' {
			l.advance()
			id, err := l.readID()
			if err != nil {
				return Token{}, err
			}
			return mk(TokenID, "-"+id), nil
		}
	default:
		if isIDByte(ch) {
			id, err := l.readID()
			if err != nil {
				return Token{}, err
			}
			return mk(TokenID, id), nil
		}
	}
	return Token{}, l.errorf("unexpected character %q", l.peek())
}

// readID reads a bare identifier. A parenthesised argument list directly
// after the word is part of the identifier, so E0(M,K) is one token.
func (l *Lexer) readID() (string, error) {
	start := l.pos
	for l.pos < len(l.input) {
		ch := l.peek()
		switch {
		case isIDByte(ch):
			l.advance()
		case ch == '(':
			if err := l.skipArguments(); err != nil {
				return "", err
			}
		default:
			return l.input[start:l.pos], nil
		}
	}
	return l.input[start:l.pos], nil
}

func (l *Lexer) skipArguments() error {
	line, col := l.line, l.column
	depth := 0
	for l.pos < len(l.input) {
		switch l.advance() {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return nil
			}
		case '\n':
			return &LexError{Line: line, Column: col, Msg: "unbalanced '(' in identifier"}
		}
	}
	return &LexError{Line: line, Column: col, Msg: "unbalanced '(' in identifier"}
}

func (l *Lexer) readString() (string, error) {
	line, col := l.line, l.column
	l.advance() // opening quote

	var sb strings.Builder
	for l.pos < len(l.input) {
		ch := l.advance()
		switch ch {
		case '"':
			return sb.String(), nil
		case '\\':
			if l.pos >= len(l.input) {
				break
			}
			esc := l.advance()
			switch esc {
			case '\n':
				// line continuation
			case '\r':
				if l.peek() == '\n' {
					l.advance()
				}
			case '"', '\\':
				sb.WriteByte(esc)
			default:
				sb.WriteByte('\\')
				sb.WriteByte(esc)
			}
		default:
			sb.WriteByte(ch)
		}
	}
	return "", &LexError{Line: line, Column: col, Msg: "unterminated string"}
}

func (l *Lexer) skipSpaceAndComments() {
	for l.pos < len(l.input) {
		ch := l.peek()
		switch {
		case ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r':
			l.advance()
		case ch == '/' && l.peekAhead(1) == '/':
			l.skipLine()
		case ch == '#' && l.atLineStart():
			l.skipLine()
		case ch == '/' && l.peekAhead(1) == '*':
			l.advance()
			l.advance()
			for l.pos < len(l.input) && !(l.peek() == '*' && l.peekAhead(1) == '/') {
				l.advance()
			}
			l.advance()
			l.advance()
		default:
			return
		}
	}
}

func (l *Lexer) atLineStart() bool {
	for i := l.pos - 1; i >= 0; i-- {
		switch l.input[i] {
		case '\n':
			return true
		case ' ', '\t', '\r':
		default:
			return false
		}
	}
	return true
}

func (l *Lexer) skipLine() {
	for l.pos < len(l.input) && l.peek() != '\n' {
		l.advance()
	}
}

func (l *Lexer) errorf(format string, args ...any) error {
	return &LexError{Line: l.line, Column: l.column, Msg: fmt.Sprintf(format, args...)}
}

func (l *Lexer) peek() byte {
	if l.pos >= len(l.input) {
		return 0
	}
	return l.input[l.pos]
}

func (l *Lexer) peekAhead(n int) byte {
	if l.pos+n >= len(l.input) {
		return 0
	}
	return l.input[l.pos+n]
}

func (l *Lexer) advance() byte {
	if l.pos >= len(l.input) {
		return 0
	}
	ch := l.input[l.pos]
	l.pos++
	l.column++
	if ch == '\n' {
		l.line++
		l.column = 1
	}
	return ch
}

func isDigit(ch byte) bool { return ch >= '0' && ch <= '9' }

// isIDByte accepts the characters of a bare identifier. Bytes >= 0x80 let
// UTF-8 labels through unchanged.
func isIDByte(ch byte) bool {
	return ch == '_' || ch == '.' || ch == '\'' || isDigit(ch) ||
		(ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch >= 0x80
}
