package dot

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dd0wney/cluso-cag/pkg/attackgraph"
)

// Mode selects the serialization flavour.
type Mode int

const (
	// Persist is the human-editable round-trip form. It keeps any layout the
	// graph carries.
	Persist Mode = iota
	// Render is the input handed to the layout engine. Names the engine
	// cannot read bare are quoted and no previous layout is sent.
	Render
)

func (m Mode) String() string {
	if m == Render {
		return "render"
	}
	return "persist"
}

// WriteOption configures serialization.
type WriteOption func(*writeConfig)

type writeConfig struct {
	highlight map[string]bool
}

// Highlight draws the named nodes in bold. Solution documents use it to
// mark the chosen input nodes.
func Highlight(names ...string) WriteOption {
	return func(c *writeConfig) {
		for _, n := range names {
			c.highlight[n] = true
		}
	}
}

// Write serializes g in the given mode.
func Write(w io.Writer, g *attackgraph.Graph, mode Mode, opts ...WriteOption) error {
	cfg := writeConfig{highlight: make(map[string]bool)}
	for _, opt := range opts {
		opt(&cfg)
	}

	id := persistID
	if mode == Render {
		id = QuoteID
	}

	bw := bufio.NewWriter(w)
	name := g.Name
	if name == "" {
		name = "G"
	}
	fmt.Fprintf(bw, "digraph %s {\n", QuoteID(name))

	for _, n := range g.Nodes() {
		attrs := nodeAttrs(n, mode, cfg.highlight[n.Name()])
		fmt.Fprintf(bw, "\t%s[%s];\n", id(n.Name()), strings.Join(attrs, ","))
	}
	for _, e := range g.Edges() {
		from, to := g.EdgeEnds(e)
		fmt.Fprintf(bw, "\t%s -> %s", id(from.Name()), id(to.Name()))
		if mode == Persist && len(e.Polyline) > 0 {
			fmt.Fprintf(bw, "[pos=%q]", formatPolyline(e))
		}
		bw.WriteString(";\n")
	}
	bw.WriteString("}\n")
	return bw.Flush()
}

// Marshal returns the serialized form of g.
func Marshal(g *attackgraph.Graph, mode Mode, opts ...WriteOption) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, g, mode, opts...); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func nodeAttrs(n *attackgraph.Node, mode Mode, bold bool) []string {
	attrs := []string{
		"color=" + n.Level().Color(),
		"bit=" + strconv.Itoa(n.Entropy),
	}
	if code := n.Membership().Code(); code != "" {
		attrs = append(attrs, "set="+code)
	}
	if n.Role() != "" {
		attrs = append(attrs, "type="+QuoteID(n.Role()))
	}
	if bold {
		attrs = append(attrs, "style=bold")
	}
	if mode == Persist {
		if n.Layout.HasPos {
			attrs = append(attrs, fmt.Sprintf("pos=%q", formatPoint(n.Layout.Pos)))
		}
		if n.Layout.HasSize {
			attrs = append(attrs,
				"width="+formatFloat(n.Layout.Width),
				"height="+formatFloat(n.Layout.Height))
		}
	}
	return attrs
}

// formatPolyline writes the arrow points the edge was read with ahead of
// the control points, the way the layout engine does.
func formatPolyline(e *attackgraph.Edge) string {
	line := e.Polyline
	parts := make([]string, 0, len(line))
	if e.HasStart && len(line) > 0 {
		parts = append(parts, "s,"+formatPoint(line[0]))
		line = line[1:]
	}
	if e.HasEnd && len(line) > 0 {
		parts = append(parts, "e,"+formatPoint(line[len(line)-1]))
		line = line[:len(line)-1]
	}
	for _, pt := range line {
		parts = append(parts, formatPoint(pt))
	}
	return strings.Join(parts, " ")
}

func formatPoint(pt attackgraph.Point) string {
	return formatFloat(pt.X) + "," + formatFloat(pt.Y)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
