package attackset

import (
	"sync"

	"github.com/dd0wney/cluso-cag/pkg/attackgraph"
	"github.com/dd0wney/cluso-cag/pkg/dot"
	"github.com/dd0wney/cluso-cag/pkg/outfile"
)

// Sink receives solutions during a search. The graph passed to Accept
// still carries the trial's fixpoint; Accept may change levels freely,
// the searcher restores them afterwards.
type Sink interface {
	Accept(g *attackgraph.Graph, sol Solution) error
}

// MemorySink keeps every accepted solution.
type MemorySink struct {
	mu        sync.Mutex
	solutions []Solution
}

func (m *MemorySink) Accept(_ *attackgraph.Graph, sol Solution) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.solutions = append(m.solutions, sol)
	return nil
}

// Solutions returns a copy of the accepted solutions.
func (m *MemorySink) Solutions() []Solution {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Solution, len(m.solutions))
	copy(out, m.solutions)
	return out
}

// FileSink writes one persisted document per solution to Path with the
// solution's ordinal inserted before the extension. In each document the
// chosen nodes and the attack nodes are Easy, every other node is
// Impossible, and the chosen nodes are drawn bold.
type FileSink struct {
	Path string

	files outfile.Set
}

// NewFileSink creates a sink writing numbered copies of path.
func NewFileSink(path string) *FileSink {
	return &FileSink{Path: path}
}

func (f *FileSink) Accept(g *attackgraph.Graph, sol Solution) error {
	g.UncompromiseAll()
	for _, name := range sol.Nodes {
		if n, ok := g.Node(name); ok {
			g.SetCompromise(n, attackgraph.Easy)
		}
	}
	for _, n := range g.AttackSet() {
		g.SetCompromise(n, attackgraph.Easy)
	}

	data, err := dot.Marshal(g, dot.Persist, dot.Highlight(sol.Nodes...))
	if err != nil {
		return err
	}
	return f.files.Write(outfile.Numbered(f.Path, sol.Ordinal), data)
}

// Paths lists the files written so far.
func (f *FileSink) Paths() []string { return f.files.Paths() }

// Discard removes every file the sink wrote.
func (f *FileSink) Discard() error { return f.files.Discard() }
