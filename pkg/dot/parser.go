package dot

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dd0wney/cluso-cag/pkg/attackgraph"
	"github.com/dd0wney/cluso-cag/pkg/faults"
)

// ParseOption configures parsing.
type ParseOption func(*parseConfig)

type parseConfig struct {
	defaultEntropy int
}

// WithDefaultEntropy sets the entropy of nodes that carry no bit attribute.
func WithDefaultEntropy(bits int) ParseOption {
	return func(c *parseConfig) { c.defaultEntropy = bits }
}

// Parse reads graph text and returns a sealed graph.
func Parse(r io.Reader, opts ...ParseOption) (*attackgraph.Graph, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, faults.InputAccess("read", "", err)
	}
	return ParseString(string(data), opts...)
}

// ParseString parses graph text held in memory.
func ParseString(text string, opts ...ParseOption) (*attackgraph.Graph, error) {
	cfg := parseConfig{defaultEntropy: attackgraph.DefaultEntropy}
	for _, opt := range opts {
		opt(&cfg)
	}

	tokens, err := NewLexer(text).Tokenize()
	if err != nil {
		var le *LexError
		if errors.As(err, &le) {
			return nil, faults.GraphFormat(le.Line, "%s", le.Msg)
		}
		return nil, faults.GraphFormat(0, "%v", err)
	}

	p := &Parser{tokens: tokens, cfg: cfg}
	g, err := p.parseGraph()
	if err != nil {
		return nil, err
	}
	g.Seal()
	return g, nil
}

// Parser builds an attack graph from tokens.
type Parser struct {
	tokens []Token
	pos    int
	cfg    parseConfig
	g      *attackgraph.Graph
}

type attr struct {
	key, value string
	line       int
}

func (p *Parser) parseGraph() (*attackgraph.Graph, error) {
	if p.keyword("strict") {
		p.advance()
	}
	switch {
	case p.keyword("digraph"):
		p.advance()
	case p.keyword("graph"):
		return nil, p.errorf("undirected graphs are not supported")
	default:
		return nil, p.errorf("expected 'digraph', found %s", p.describe())
	}

	name := ""
	if p.peek().IsID() {
		name = p.advance().Value
	}
	p.g = attackgraph.NewGraph(name, attackgraph.WithDefaultEntropy(p.cfg.defaultEntropy))

	if _, err := p.expect(TokenLeftBrace); err != nil {
		return nil, err
	}
	if err := p.parseStatements(); err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenRightBrace); err != nil {
		return nil, err
	}
	if p.peek().Type != TokenEOF {
		return nil, p.errorf("unexpected %s after closing '}'", p.describe())
	}
	return p.g, nil
}

func (p *Parser) parseStatements() error {
	for {
		switch p.peek().Type {
		case TokenRightBrace, TokenEOF:
			return nil
		case TokenSemicolon:
			p.advance()
			continue
		}
		if err := p.parseStatement(); err != nil {
			return err
		}
	}
}

func (p *Parser) parseStatement() error {
	tok := p.peek()

	// graph/node/edge defaults carry nothing the model keeps.
	if tok.Type == TokenID && p.peekAt(1).Type == TokenLeftBracket {
		switch strings.ToLower(tok.Value) {
		case "graph", "node", "edge":
			p.advance()
			_, err := p.parseAttrLists()
			return err
		}
	}
	if tok.IsID() && p.peekAt(1).Type == TokenEquals {
		p.advance()
		p.advance()
		if !p.peek().IsID() {
			return p.errorf("expected value after '=', found %s", p.describe())
		}
		p.advance()
		return nil
	}
	if p.keyword("subgraph") {
		return p.errorf("subgraphs are not supported")
	}

	operands := [][]string{}
	first, err := p.parseOperand()
	if err != nil {
		return err
	}
	operands = append(operands, first)
	for p.peek().Type == TokenArrow || p.peek().Type == TokenUndirected {
		if p.peek().Type == TokenUndirected {
			return p.errorf("undirected edge '--' in digraph")
		}
		p.advance()
		next, err := p.parseOperand()
		if err != nil {
			return err
		}
		operands = append(operands, next)
	}

	attrs, err := p.parseAttrLists()
	if err != nil {
		return err
	}

	if len(operands) == 1 {
		for _, name := range operands[0] {
			n, err := p.g.EnsureNode(name)
			if err != nil {
				return p.errorf("%v", err)
			}
			if err := p.applyNodeAttrs(n, attrs); err != nil {
				return err
			}
		}
		return nil
	}

	for _, names := range operands {
		for _, name := range names {
			if _, err := p.g.EnsureNode(name); err != nil {
				return p.errorf("%v", err)
			}
		}
	}
	for i := 0; i+1 < len(operands); i++ {
		for _, from := range operands[i] {
			for _, to := range operands[i+1] {
				e, err := p.g.AddEdge(from, to)
				if err != nil {
					return p.errorf("%v", err)
				}
				if err := p.applyEdgeAttrs(e, attrs); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// parseOperand reads an identifier or a brace group of identifiers.
func (p *Parser) parseOperand() ([]string, error) {
	if p.peek().IsID() {
		return []string{p.advance().Value}, nil
	}
	if p.peek().Type != TokenLeftBrace {
		return nil, p.errorf("expected node name, found %s", p.describe())
	}
	p.advance()

	var names []string
	for p.peek().Type != TokenRightBrace {
		switch {
		case p.peek().Type == TokenComma || p.peek().Type == TokenSemicolon:
			p.advance()
		case p.peek().IsID():
			names = append(names, p.advance().Value)
		default:
			return nil, p.errorf("expected node name in group, found %s", p.describe())
		}
	}
	p.advance()
	return names, nil
}

func (p *Parser) parseAttrLists() ([]attr, error) {
	var attrs []attr
	for p.peek().Type == TokenLeftBracket {
		p.advance()
		for p.peek().Type != TokenRightBracket {
			switch p.peek().Type {
			case TokenComma, TokenSemicolon:
				p.advance()
				continue
			case TokenEOF:
				return nil, p.errorf("unterminated attribute list")
			}
			key, err := p.expectID("attribute name")
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(TokenEquals); err != nil {
				return nil, err
			}
			val, err := p.expectID("attribute value")
			if err != nil {
				return nil, err
			}
			attrs = append(attrs, attr{key: strings.ToLower(key.Value), value: val.Value, line: key.Line})
		}
		p.advance()
	}
	return attrs, nil
}

func (p *Parser) applyNodeAttrs(n *attackgraph.Node, attrs []attr) error {
	for _, a := range attrs {
		switch a.key {
		case "color":
			if level, ok := attackgraph.ParseColor(a.value); ok {
				p.g.SetCompromise(n, level)
			}
		case "type":
			if err := p.g.SetRole(n, a.value); err != nil {
				return faults.GraphFormat(a.line, "%v", err)
			}
		case "bit":
			bits, err := strconv.Atoi(strings.TrimSpace(a.value))
			if err != nil || bits < 0 {
				return faults.GraphFormat(a.line, "bit of %q must be a non-negative integer, got %q", n.Name(), a.value)
			}
			n.Entropy = bits
		case "set":
			m, err := attackgraph.ParseMembership(a.value)
			if err != nil {
				return faults.GraphFormat(a.line, "set of %q: %v", n.Name(), err)
			}
			p.g.SetMembership(n, m)
		case "pos":
			pt, err := parsePoint(strings.TrimSuffix(strings.TrimSpace(a.value), "!"))
			if err != nil {
				return faults.GraphFormat(a.line, "pos of %q: %v", n.Name(), err)
			}
			n.Layout.Pos = pt
			n.Layout.HasPos = true
		case "width", "height":
			v, err := parseFloat(a.value)
			if err != nil {
				return faults.GraphFormat(a.line, "%s of %q: %v", a.key, n.Name(), err)
			}
			if a.key == "width" {
				n.Layout.Width = v
			} else {
				n.Layout.Height = v
			}
			n.Layout.HasSize = true
		}
	}
	return nil
}

func (p *Parser) applyEdgeAttrs(e *attackgraph.Edge, attrs []attr) error {
	for _, a := range attrs {
		if a.key != "pos" {
			continue
		}
		line, hasStart, hasEnd, err := parseRoute(a.value)
		if err != nil {
			return faults.GraphFormat(a.line, "edge pos: %v", err)
		}
		e.Polyline, e.HasStart, e.HasEnd = line, hasStart, hasEnd
	}
	return nil
}

// ParsePolyline decodes an edge pos value. The engine writes an optional
// "s,x,y" start point and an optional "e,x,y" end point ahead of the
// control points; the result is start point, control points, end point.
func ParsePolyline(value string) ([]attackgraph.Point, error) {
	line, _, _, err := parseRoute(value)
	return line, err
}

func parseRoute(value string) ([]attackgraph.Point, bool, bool, error) {
	var start, end *attackgraph.Point
	var controls []attackgraph.Point

	for _, field := range strings.Fields(value) {
		switch {
		case strings.HasPrefix(field, "s,"), strings.HasPrefix(field, "e,"):
			pt, err := parsePoint(field[2:])
			if err != nil {
				return nil, false, false, err
			}
			if field[0] == 's' {
				start = &pt
			} else {
				end = &pt
			}
		default:
			pt, err := parsePoint(field)
			if err != nil {
				return nil, false, false, err
			}
			controls = append(controls, pt)
		}
	}

	out := make([]attackgraph.Point, 0, len(controls)+2)
	if start != nil {
		out = append(out, *start)
	}
	out = append(out, controls...)
	if end != nil {
		out = append(out, *end)
	}
	return out, start != nil, end != nil, nil
}

func parsePoint(s string) (attackgraph.Point, error) {
	parts := strings.Split(strings.TrimSpace(s), ",")
	if len(parts) < 2 {
		return attackgraph.Point{}, fmt.Errorf("malformed point %q", s)
	}
	x, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return attackgraph.Point{}, fmt.Errorf("malformed point %q", s)
	}
	y, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return attackgraph.Point{}, fmt.Errorf("malformed point %q", s)
	}
	return attackgraph.Point{X: x, Y: y}, nil
}

// parseFloat accepts either ',' or '.' as the decimal mark.
func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(s), ",", "."), 64)
}

func (p *Parser) keyword(word string) bool {
	tok := p.peek()
	return tok.Type == TokenID && strings.EqualFold(tok.Value, word)
}

func (p *Parser) peek() Token { return p.peekAt(0) }

func (p *Parser) peekAt(n int) Token {
	if p.pos+n >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[p.pos+n]
}

func (p *Parser) advance() Token {
	tok := p.peek()
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return tok
}

func (p *Parser) expect(tt TokenType) (Token, error) {
	if p.peek().Type != tt {
		return Token{}, p.errorf("expected %s, found %s", tt, p.describe())
	}
	return p.advance(), nil
}

func (p *Parser) expectID(what string) (Token, error) {
	if !p.peek().IsID() {
		return Token{}, p.errorf("expected %s, found %s", what, p.describe())
	}
	return p.advance(), nil
}

func (p *Parser) describe() string {
	tok := p.peek()
	if tok.IsID() {
		return strconv.Quote(tok.Value)
	}
	return tok.Type.String()
}

func (p *Parser) errorf(format string, args ...any) error {
	return faults.GraphFormat(p.peek().Line, format, args...)
}
