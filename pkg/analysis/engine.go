// Package analysis runs compromise propagation over an attack graph to a
// fixpoint.
//
// Each function node is evaluated against its neighbours. The summed entropy
// of a function's not-yet-compromised parents decides whether those parents
// and the function's children become Easy (sum below the easy threshold),
// Hard (sum within [easy, hard]) or stay put. Encryption functions add a
// bidirectional rule that recovers the plaintext from a compromised
// ciphertext and key. Function nodes themselves are never recoloured.
package analysis

import (
	"strings"

	"github.com/dd0wney/cluso-cag/pkg/attackgraph"
	"github.com/dd0wney/cluso-cag/pkg/logging"
	"github.com/dd0wney/cluso-cag/pkg/metrics"
)

// Default entropy thresholds in bits.
const (
	DefaultEasyThreshold = 60
	DefaultHardThreshold = 80
)

// Engine evaluates propagation rules. An Engine holds no graph state and
// may be reused across graphs, but a single graph must not be propagated
// concurrently.
type Engine struct {
	easyBelow int
	hardUpTo  int
	logger    logging.Logger
	metrics   *metrics.Registry
}

// Option configures an Engine.
type Option func(*Engine)

// WithThresholds sets the entropy thresholds. Sums strictly below easy
// yield Easy; sums from easy to hard inclusive yield Hard.
func WithThresholds(easy, hard int) Option {
	return func(e *Engine) {
		e.easyBelow = easy
		e.hardUpTo = hard
	}
}

func WithLogger(l logging.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

func WithMetrics(m *metrics.Registry) Option {
	return func(e *Engine) { e.metrics = m }
}

// NewEngine creates an engine with the default 60/80-bit thresholds.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		easyBelow: DefaultEasyThreshold,
		hardUpTo:  DefaultHardThreshold,
		logger:    logging.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Thresholds returns the easy and hard thresholds.
func (e *Engine) Thresholds() (easy, hard int) { return e.easyBelow, e.hardUpTo }

// Result summarizes one propagation run.
type Result struct {
	// Passes counts full passes over the function nodes, including the
	// final pass that changed nothing.
	Passes int
	// Raised counts level changes made by the rules.
	Raised int
	// Reset counts Hard nodes returned to Impossible before the loop.
	Reset int
}

// Propagate resets every Hard node to Impossible and then repeats Step
// until a pass makes no change. Easy nodes are never downgraded.
func (e *Engine) Propagate(g *attackgraph.Graph) Result {
	g.Seal()

	var res Result
	for _, n := range g.Nodes() {
		if n.Level() == attackgraph.Hard {
			g.Uncompromise(n)
			res.Reset++
		}
	}

	for {
		res.Passes++
		raised := e.pass(g)
		res.Raised += raised
		if raised == 0 {
			break
		}
	}

	e.logger.Debug("propagation reached fixpoint",
		logging.Graph(g.Name),
		logging.Int("passes", res.Passes),
		logging.Int("raised", res.Raised),
		logging.Int("reset", res.Reset),
		logging.Int("compromised", g.CompromisedCount()))
	e.metrics.RecordPropagation(res.Passes, res.Raised, res.Reset)
	return res
}

// Step makes one pass over the function nodes in insertion order and
// reports whether anything changed.
func (e *Engine) Step(g *attackgraph.Graph) bool {
	g.Seal()
	return e.pass(g) > 0
}

func (e *Engine) pass(g *attackgraph.Graph) int {
	raised := 0
	for _, idx := range g.FunctionIndexes() {
		fn := g.NodeAt(idx)
		if fn.Kind() == attackgraph.EncryptFunction {
			raised += e.evaluateEncrypt(g, fn)
		} else {
			raised += e.evaluateOneWay(g, fn)
		}
	}
	return raised
}

// Level maps an entropy sum to the level it grants. ok is false when the
// sum is above the hard threshold.
func (e *Engine) Level(bits int) (level attackgraph.Compromise, ok bool) {
	switch {
	case bits < e.easyBelow:
		return attackgraph.Easy, true
	case bits <= e.hardUpTo:
		return attackgraph.Hard, true
	default:
		return attackgraph.Impossible, false
	}
}

// evaluateOneWay handles hash, hmac, prf, converse, decrypt and any other
// function that is not an encryption.
func (e *Engine) evaluateOneWay(g *attackgraph.Graph, fn *attackgraph.Node) int {
	bits := 0
	for _, pi := range fn.ParentIndexes() {
		if p := g.NodeAt(pi); p.Level() == attackgraph.Impossible {
			bits = e.add(bits, p.Entropy)
		}
	}
	return e.colour(g, fn, bits)
}

// evaluateEncrypt applies the entropy rule to every parent except the
// function's own ciphertext, then tries to recover the plaintext.
//
// The plaintext candidate is the last parent still Impossible. It becomes
// Easy when the ciphertext is both output and input of the function and is
// compromised, the candidate is also a child of the function, and every
// other non-ciphertext parent is compromised. With a Hard candidate one
// more parent slot is discounted.
func (e *Engine) evaluateEncrypt(g *attackgraph.Graph, fn *attackgraph.Node) int {
	match := cipherMatcher(fn.Name())

	bits, compromised := 0, 0
	cipher, plain := -1, -1
	for _, pi := range fn.ParentIndexes() {
		p := g.NodeAt(pi)
		if match(p.Name()) {
			cipher = pi
			continue
		}
		if p.Level() == attackgraph.Impossible {
			bits = e.add(bits, p.Entropy)
			plain = pi
		} else {
			compromised++
		}
	}

	raised := e.colour(g, fn, bits)
	if cipher < 0 || plain < 0 {
		return raised
	}

	pn := g.NodeAt(plain)
	offset := 2
	if pn.Level() == attackgraph.Hard {
		offset = 3
	}
	if g.HasEdge(fn.Index(), cipher) &&
		g.NodeAt(cipher).Level() != attackgraph.Impossible &&
		compromised == len(fn.ParentIndexes())-offset &&
		g.HasEdge(fn.Index(), plain) {
		if g.Raise(pn, attackgraph.Easy) {
			raised++
		}
	}
	return raised
}

// add accumulates entropy, saturating one bit past the hard threshold so
// that large bit values cannot wrap into the Easy band.
func (e *Engine) add(sum, bits int) int {
	if bits > e.hardUpTo-sum {
		return e.hardUpTo + 1
	}
	return sum + bits
}

// colour raises the Impossible parents and children of fn to the level
// the entropy sum grants.
func (e *Engine) colour(g *attackgraph.Graph, fn *attackgraph.Node, bits int) int {
	level, ok := e.Level(bits)
	if !ok {
		return 0
	}
	raised := 0
	for _, group := range [][]int{fn.ParentIndexes(), fn.ChildIndexes()} {
		for _, idx := range group {
			n := g.NodeAt(idx)
			if n.Level() == attackgraph.Impossible && g.Raise(n, level) {
				raised++
			}
		}
	}
	return raised
}

// cipherMatcher recognizes the ciphertext produced by an encryption
// function: encryptN pairs with a node whose first letter matches the
// function's (ignoring case) followed by exactly N, so encrypt1 matches
// E1(M,K) but not E10(M,K).
func cipherMatcher(fnName string) func(string) bool {
	lower := strings.ToLower(fnName)
	suffix := ""
	if i := strings.Index(lower, "encrypt"); i >= 0 {
		suffix = fnName[i+len("encrypt"):]
	}
	first := strings.ToUpper(fnName[:1])

	return func(name string) bool {
		if len(name) <= len(suffix) || strings.ToUpper(name[:1]) != first {
			return false
		}
		rest := name[1:]
		if !strings.HasPrefix(rest, suffix) {
			return false
		}
		if len(rest) == len(suffix) {
			return true
		}
		next := rest[len(suffix)]
		return next < '0' || next > '9'
	}
}
