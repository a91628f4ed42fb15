package visualization

import (
	"context"
	"time"

	"github.com/dd0wney/cluso-cag/pkg/attackgraph"
	"github.com/dd0wney/cluso-cag/pkg/dot"
	"github.com/dd0wney/cluso-cag/pkg/logging"
)

// HierarchicalEngine arranges nodes in levels without an external process.
// Nodes without parents form the top level; every other node sits one level
// below the first node that reaches it.
type HierarchicalEngine struct {
	config LayoutConfig
	opts   options
}

// NewHierarchicalEngine creates a built-in engine. Zero config fields take
// Graphviz's defaults.
func NewHierarchicalEngine(config LayoutConfig, opts ...Option) *HierarchicalEngine {
	if config.RankSep == 0 {
		config.RankSep = 108
	}
	if config.NodeSep == 0 {
		config.NodeSep = 108
	}
	if config.NodeWidth == 0 {
		config.NodeWidth = 0.75
	}
	if config.NodeHeight == 0 {
		config.NodeHeight = 0.5
	}
	return &HierarchicalEngine{config: config, opts: newOptions(opts)}
}

// Layout implements Engine.
func (h *HierarchicalEngine) Layout(ctx context.Context, text []byte) (out []byte, err error) {
	start := time.Now()
	defer func() { h.opts.metrics.RecordLayout("builtin", status(err), time.Since(start)) }()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	g, err := dot.ParseString(string(text))
	if err != nil {
		return nil, err
	}
	h.Place(g)
	h.opts.logger.Debug("built-in layout placed graph",
		logging.Graph(g.Name),
		logging.Count(len(g.Nodes())))
	return dot.Marshal(g, dot.Persist)
}

// Place assigns positions and sizes to every node of g and a straight
// two-point polyline to every edge.
func (h *HierarchicalEngine) Place(g *attackgraph.Graph) {
	levels := Levels(g)
	if len(levels) == 0 {
		return
	}

	widest := 0
	for _, level := range levels {
		widest = max(widest, len(level))
	}

	halfW := h.config.NodeWidth * pointsPerInch / 2
	halfH := h.config.NodeHeight * pointsPerInch / 2
	for levelIdx, level := range levels {
		// Graphviz puts the origin bottom-left, so the top level gets the largest y.
		y := float64(len(levels)-1-levelIdx)*h.config.RankSep + halfH
		offset := float64(widest-len(level)) * h.config.NodeSep / 2
		for nodeIdx, n := range level {
			n.Layout = attackgraph.Layout{
				Pos:     attackgraph.Point{X: offset + float64(nodeIdx)*h.config.NodeSep + halfW, Y: y},
				HasPos:  true,
				Width:   h.config.NodeWidth,
				Height:  h.config.NodeHeight,
				HasSize: true,
			}
		}
	}

	for _, e := range g.Edges() {
		from, to := g.EdgeEnds(e)
		e.Polyline = []attackgraph.Point{from.Layout.Pos, to.Layout.Pos}
		e.HasStart, e.HasEnd = false, true
	}
}

// Levels groups the nodes of g by breadth-first depth from the nodes that
// have no parents. Nodes unreachable from those roots join the last level.
func Levels(g *attackgraph.Graph) [][]*attackgraph.Node {
	nodes := g.Nodes()
	if len(nodes) == 0 {
		return nil
	}

	// Find root nodes (nodes with no incoming edges)
	roots := make([]*attackgraph.Node, 0)
	for _, n := range nodes {
		if len(g.Parents(n)) == 0 {
			roots = append(roots, n)
		}
	}
	if len(roots) == 0 {
		// No clear root, use first node
		roots = []*attackgraph.Node{nodes[0]}
	}

	levels := make([][]*attackgraph.Node, 0)
	visited := make(map[*attackgraph.Node]bool)
	for _, r := range roots {
		visited[r] = true
	}
	currentLevel := roots

	for len(currentLevel) > 0 {
		levels = append(levels, currentLevel)
		nextLevel := make([]*attackgraph.Node, 0)

		for _, n := range currentLevel {
			for _, child := range g.Children(n) {
				if !visited[child] {
					nextLevel = append(nextLevel, child)
					visited[child] = true
				}
			}
		}

		currentLevel = nextLevel
	}

	// Add unvisited nodes to last level
	for _, n := range nodes {
		if !visited[n] {
			levels[len(levels)-1] = append(levels[len(levels)-1], n)
		}
	}
	return levels
}
