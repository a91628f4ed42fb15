// Package attackset finds the smallest subsets of a graph's input nodes
// whose compromise forces every attack node to be compromised.
//
// The search enumerates k-combinations of the input set for k = 1, 2, ...
// in index order. Each combination is marked Easy, propagated to a fixpoint
// and checked against the attack set. Every combination of the first size
// that succeeds is reported; larger sizes are never tried.
package attackset

import (
	"time"

	"github.com/dd0wney/cluso-cag/pkg/analysis"
	"github.com/dd0wney/cluso-cag/pkg/attackgraph"
	"github.com/dd0wney/cluso-cag/pkg/faults"
	"github.com/dd0wney/cluso-cag/pkg/logging"
	"github.com/dd0wney/cluso-cag/pkg/metrics"
)

// Options selects the candidate pool.
type Options struct {
	// AllNodes makes every non-function node without a membership an
	// input for the duration of the search.
	AllNodes bool
}

// Solution is one minimal attack set.
type Solution struct {
	// Ordinal numbers solutions from 1 in discovery order.
	Ordinal int
	// Nodes are the chosen inputs, in index order.
	Nodes []string
	// Compromised lists every node compromised at the trial's fixpoint.
	Compromised []string
}

// Result is the outcome of a search.
type Result struct {
	Size      int
	Solutions []Solution
	Trials    int
	Inputs    int
	Attacks   int
}

// Found reports whether at least one minimal set exists.
func (r *Result) Found() bool { return len(r.Solutions) > 0 }

// Err returns a no-solution error when nothing was found, nil otherwise.
func (r *Result) Err() error {
	if r.Found() {
		return nil
	}
	return faults.New("minset").NoSolution().
		Context("%d inputs, %d attack nodes, %d trials", r.Inputs, r.Attacks, r.Trials).
		Err()
}

// Searcher runs minimal attack-set searches with a propagation engine.
type Searcher struct {
	engine  *analysis.Engine
	sink    Sink
	logger  logging.Logger
	metrics *metrics.Registry
}

// Option configures a Searcher.
type Option func(*Searcher)

// WithSink receives every solution while the trial's state is still on
// the graph.
func WithSink(s Sink) Option {
	return func(se *Searcher) { se.sink = s }
}

func WithLogger(l logging.Logger) Option {
	return func(se *Searcher) { se.logger = l }
}

func WithMetrics(m *metrics.Registry) Option {
	return func(se *Searcher) { se.metrics = m }
}

// NewSearcher creates a searcher. A nil engine uses analysis defaults.
func NewSearcher(engine *analysis.Engine, opts ...Option) *Searcher {
	if engine == nil {
		engine = analysis.NewEngine()
	}
	s := &Searcher{
		engine: engine,
		logger: logging.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Find searches g for minimal attack sets. The graph's levels and
// memberships are restored before Find returns, whatever the outcome.
// An empty input or attack set yields a Result with no solutions.
func (s *Searcher) Find(g *attackgraph.Graph, opts Options) (res *Result, err error) {
	g.Seal()
	saved := g.Snapshot()
	defer func() {
		if rerr := g.Restore(saved); rerr != nil && err == nil {
			err = rerr
		}
	}()

	g.UncompromiseAll()
	if opts.AllNodes {
		for _, n := range g.Nodes() {
			if !n.IsFunction() && n.Membership() == attackgraph.None {
				g.SetMembership(n, attackgraph.Input)
			}
		}
	}

	t := &trial{
		searcher: s,
		g:        g,
		inputs:   g.InputSet(),
		attacks:  g.AttackSet(),
		base:     g.Snapshot(),
	}
	res = &Result{Inputs: len(t.inputs), Attacks: len(t.attacks)}
	t.res = res

	timer := logging.StartTimer(s.logger, "minimal set search",
		logging.Graph(g.Name),
		logging.Int("inputs", res.Inputs),
		logging.Int("attacks", res.Attacks),
		logging.Bool("all_nodes", opts.AllNodes))
	start := time.Now()

	if res.Inputs == 0 || res.Attacks == 0 {
		timer.End(logging.Bool("found", false))
		return res, nil
	}

	for k := 1; k <= len(t.inputs); k++ {
		t.k = k
		t.chosen = make([]*attackgraph.Node, k)
		if err := t.combine(0, 0); err != nil {
			timer.EndError(err, logging.Size(k))
			return res, err
		}
		if res.Found() {
			res.Size = k
			break
		}
	}

	timer.End(logging.Size(res.Size),
		logging.Count(len(res.Solutions)),
		logging.Int("trials", res.Trials),
		logging.Bool("found", res.Found()))
	s.metrics.RecordSearch(res.Size, time.Since(start))
	return res, nil
}

// trial holds the state of one search.
type trial struct {
	searcher *Searcher
	g        *attackgraph.Graph
	inputs   []*attackgraph.Node
	attacks  []*attackgraph.Node
	base     attackgraph.State
	res      *Result

	k      int
	chosen []*attackgraph.Node
}

// combine fills chosen[depth:] with inputs from start on. A position is
// only tried while enough inputs remain to complete the combination.
func (t *trial) combine(start, depth int) error {
	if depth == t.k {
		return t.evaluate()
	}
	n := len(t.inputs)
	for i := start; i < n && n-i >= t.k-depth; i++ {
		t.chosen[depth] = t.inputs[i]
		if err := t.combine(i+1, depth+1); err != nil {
			return err
		}
	}
	return nil
}

// evaluate runs one combination against the base state and restores the
// base state afterwards.
func (t *trial) evaluate() (err error) {
	defer func() {
		if rerr := t.g.Restore(t.base); rerr != nil && err == nil {
			err = rerr
		}
	}()

	t.res.Trials++
	for _, n := range t.chosen {
		t.g.SetCompromise(n, attackgraph.Easy)
	}
	t.searcher.engine.Propagate(t.g)

	ok := t.covered()
	t.searcher.metrics.RecordSearchTrial(ok)
	if !ok {
		return nil
	}

	sol := Solution{
		Ordinal:     len(t.res.Solutions) + 1,
		Nodes:       names(t.chosen),
		Compromised: names(t.g.Compromised()),
	}
	t.res.Solutions = append(t.res.Solutions, sol)
	t.searcher.logger.Info("minimal set found",
		logging.Ordinal(sol.Ordinal),
		logging.Size(t.k),
		logging.Strings("nodes", sol.Nodes))

	if t.searcher.sink == nil {
		return nil
	}
	return t.searcher.sink.Accept(t.g, sol)
}

func (t *trial) covered() bool {
	for _, a := range t.attacks {
		if !t.g.IsCompromised(a) {
			return false
		}
	}
	return true
}

func names(nodes []*attackgraph.Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.Name()
	}
	return out
}
