package visualization

import (
	"context"

	"github.com/dd0wney/cluso-cag/pkg/attackgraph"
	"github.com/dd0wney/cluso-cag/pkg/dot"
	"github.com/dd0wney/cluso-cag/pkg/faults"
)

// Relayout sends g through engine and copies the returned node placement
// and edge polylines back onto g. Names are matched exactly; anything the
// engine output lacks keeps its previous layout.
func Relayout(ctx context.Context, engine Engine, g *attackgraph.Graph) error {
	text, err := dot.Marshal(g, dot.Render)
	if err != nil {
		return err
	}
	out, err := engine.Layout(ctx, text)
	if err != nil {
		return err
	}
	laid, err := dot.ParseString(string(out))
	if err != nil {
		return faults.LayoutFailure("relayout", err)
	}

	for _, n := range g.Nodes() {
		if m, ok := laid.Node(n.Name()); ok && !m.Layout.IsZero() {
			n.Layout = m.Layout
		}
	}
	for _, e := range g.Edges() {
		from, to := g.EdgeEnds(e)
		if le, ok := laid.Edge(from.Name(), to.Name()); ok && len(le.Polyline) > 0 {
			e.Polyline, e.HasStart, e.HasEnd = le.Polyline, le.HasStart, le.HasEnd
		}
	}
	return nil
}
