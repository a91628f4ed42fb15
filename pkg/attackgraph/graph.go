// Package attackgraph is the in-memory attack-graph model: an arena of
// index-addressed nodes with parent/child adjacency, a set of directed edges,
// the derived function-node list and the compromised-node set.
//
// A Graph is populated while unsealed, then sealed. Sealing classifies every
// node once and freezes topology and roles; afterwards only compromise
// levels, memberships, entropy and layout change.
package attackgraph

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

var (
	ErrNodeNotFound  = errors.New("node not found")
	ErrSealed        = errors.New("graph topology is sealed")
	ErrStateMismatch = errors.New("state does not belong to this graph")
)

type edgeKey struct{ from, to int }

// Graph is a single attack graph. It is not safe for concurrent use.
type Graph struct {
	// Name is the digraph identifier used when the graph is written out.
	Name string

	defaultEntropy int
	nodes          []*Node
	byName         map[string]int
	edges          []*Edge
	edgeIndex      map[edgeKey]int
	functions      []int
	compromised    map[int]struct{}
	sealed         bool
}

// Option configures a new Graph.
type Option func(*Graph)

// WithDefaultEntropy sets the entropy given to nodes created without an
// explicit bit attribute.
func WithDefaultEntropy(bits int) Option {
	return func(g *Graph) {
		if bits >= 0 {
			g.defaultEntropy = bits
		}
	}
}

// NewGraph returns an empty, unsealed graph.
func NewGraph(name string, opts ...Option) *Graph {
	g := &Graph{
		Name:           name,
		defaultEntropy: DefaultEntropy,
		byName:         make(map[string]int),
		edgeIndex:      make(map[edgeKey]int),
		compromised:    make(map[int]struct{}),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// EnsureNode returns the node with the given label, creating it if needed.
func (g *Graph) EnsureNode(name string) (*Node, error) {
	if idx, ok := g.byName[name]; ok {
		return g.nodes[idx], nil
	}
	if g.sealed {
		return nil, fmt.Errorf("add node %q: %w", name, ErrSealed)
	}
	n := &Node{
		name:    name,
		index:   len(g.nodes),
		Entropy: g.defaultEntropy,
	}
	g.nodes = append(g.nodes, n)
	g.byName[name] = n.index
	return n, nil
}

// AddEdge links two existing nodes. Adding an edge that already exists
// returns the existing edge.
func (g *Graph) AddEdge(from, to string) (*Edge, error) {
	fi, ok := g.byName[from]
	if !ok {
		return nil, fmt.Errorf("add edge %q -> %q: %w: %q", from, to, ErrNodeNotFound, from)
	}
	ti, ok := g.byName[to]
	if !ok {
		return nil, fmt.Errorf("add edge %q -> %q: %w: %q", from, to, ErrNodeNotFound, to)
	}
	key := edgeKey{fi, ti}
	if idx, ok := g.edgeIndex[key]; ok {
		return g.edges[idx], nil
	}
	if g.sealed {
		return nil, fmt.Errorf("add edge %q -> %q: %w", from, to, ErrSealed)
	}
	e := &Edge{From: fi, To: ti}
	g.edgeIndex[key] = len(g.edges)
	g.edges = append(g.edges, e)
	g.nodes[fi].children = append(g.nodes[fi].children, ti)
	g.nodes[ti].parents = append(g.nodes[ti].parents, fi)
	return e, nil
}

// SetRole records the type attribute of a node.
func (g *Graph) SetRole(n *Node, role string) error {
	if g.sealed {
		return fmt.Errorf("set role of %q: %w", n.name, ErrSealed)
	}
	n.role = strings.TrimSpace(role)
	return nil
}

// Seal classifies every node and freezes the topology. Sealing twice is a no-op.
func (g *Graph) Seal() {
	if g.sealed {
		return
	}
	g.functions = g.functions[:0]
	for _, n := range g.nodes {
		n.kind = Classify(n.name, n.role)
		if n.kind.IsFunction() {
			g.functions = append(g.functions, n.index)
		}
	}
	g.sealed = true
}

func (g *Graph) Sealed() bool { return g.sealed }

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.nodes) }

// Node looks a node up by label.
func (g *Graph) Node(name string) (*Node, bool) {
	idx, ok := g.byName[name]
	if !ok {
		return nil, false
	}
	return g.nodes[idx], true
}

// NodeAt returns the node at the given arena index.
func (g *Graph) NodeAt(idx int) *Node { return g.nodes[idx] }

// Nodes returns the nodes in insertion order. The slice must not be modified.
func (g *Graph) Nodes() []*Node { return g.nodes }

// Edges returns the edges in insertion order. The slice must not be modified.
func (g *Graph) Edges() []*Edge { return g.edges }

// Edge looks up the edge between two labels.
func (g *Graph) Edge(from, to string) (*Edge, bool) {
	fi, ok := g.byName[from]
	if !ok {
		return nil, false
	}
	ti, ok := g.byName[to]
	if !ok {
		return nil, false
	}
	idx, ok := g.edgeIndex[edgeKey{fi, ti}]
	if !ok {
		return nil, false
	}
	return g.edges[idx], true
}

// HasEdge reports whether from -> to exists, by index.
func (g *Graph) HasEdge(from, to int) bool {
	_, ok := g.edgeIndex[edgeKey{from, to}]
	return ok
}

// EdgeEnds returns the endpoint nodes of e.
func (g *Graph) EdgeEnds(e *Edge) (*Node, *Node) {
	return g.nodes[e.From], g.nodes[e.To]
}

// Functions returns the function nodes in insertion order. Empty until sealed.
func (g *Graph) Functions() []*Node {
	out := make([]*Node, len(g.functions))
	for i, idx := range g.functions {
		out[i] = g.nodes[idx]
	}
	return out
}

// FunctionIndexes returns the arena indexes of the function nodes.
func (g *Graph) FunctionIndexes() []int { return g.functions }

// Parents returns the direct predecessors of n.
func (g *Graph) Parents(n *Node) []*Node { return g.resolve(n.parents) }

// Children returns the direct successors of n.
func (g *Graph) Children(n *Node) []*Node { return g.resolve(n.children) }

func (g *Graph) resolve(idxs []int) []*Node {
	out := make([]*Node, len(idxs))
	for i, idx := range idxs {
		out[i] = g.nodes[idx]
	}
	return out
}

func (g *Graph) owns(n *Node) bool {
	return n != nil && n.index < len(g.nodes) && g.nodes[n.index] == n
}

func (g *Graph) mustOwn(n *Node) {
	if !g.owns(n) {
		panic(fmt.Sprintf("attackgraph: node %v does not belong to graph %q", n, g.Name))
	}
}

// SetCompromise sets the level of n and keeps the compromised set in step.
func (g *Graph) SetCompromise(n *Node, level Compromise) {
	g.mustOwn(n)
	n.level = level
	if level == Impossible {
		delete(g.compromised, n.index)
	} else {
		g.compromised[n.index] = struct{}{}
	}
}

// Raise moves a non-function node forward to level. Function nodes and
// nodes already at or above level are left alone. Reports whether n changed.
func (g *Graph) Raise(n *Node, level Compromise) bool {
	if n.IsFunction() || level <= n.level {
		return false
	}
	g.SetCompromise(n, level)
	return true
}

// Uncompromise resets n to Impossible.
func (g *Graph) Uncompromise(n *Node) {
	g.SetCompromise(n, Impossible)
}

// UncompromiseAll resets every node to Impossible.
func (g *Graph) UncompromiseAll() {
	for _, n := range g.nodes {
		n.level = Impossible
	}
	clear(g.compromised)
}

// MarkAll sets every non-function node to level.
func (g *Graph) MarkAll(level Compromise) {
	for _, n := range g.nodes {
		if !n.IsFunction() {
			g.SetCompromise(n, level)
		}
	}
}

// IsCompromised reports whether n is in the compromised set.
func (g *Graph) IsCompromised(n *Node) bool {
	_, ok := g.compromised[n.index]
	return ok && g.owns(n)
}

// CompromisedCount returns the size of the compromised set.
func (g *Graph) CompromisedCount() int { return len(g.compromised) }

// Compromised returns the compromised nodes in insertion order.
func (g *Graph) Compromised() []*Node {
	idxs := make([]int, 0, len(g.compromised))
	for idx := range g.compromised {
		idxs = append(idxs, idx)
	}
	slices.Sort(idxs)
	return g.resolve(idxs)
}

// SetMembership places n in the input and/or attack sets.
func (g *Graph) SetMembership(n *Node, m Membership) {
	g.mustOwn(n)
	n.membership = m
}

// InputSet returns the nodes eligible as attacker footholds, in insertion order.
func (g *Graph) InputSet() []*Node {
	return g.filter(func(n *Node) bool { return n.membership.IsInput() })
}

// AttackSet returns the attacker targets, in insertion order.
func (g *Graph) AttackSet() []*Node {
	return g.filter(func(n *Node) bool { return n.membership.IsAttack() })
}

func (g *Graph) filter(keep func(*Node) bool) []*Node {
	var out []*Node
	for _, n := range g.nodes {
		if keep(n) {
			out = append(out, n)
		}
	}
	return out
}

// Equal compares labels, roles, topology, levels, memberships and entropy.
// Layout, insertion order and the digraph name are ignored.
func (g *Graph) Equal(o *Graph) bool {
	if len(g.nodes) != len(o.nodes) || len(g.edges) != len(o.edges) {
		return false
	}
	for _, n := range g.nodes {
		m, ok := o.Node(n.name)
		if !ok || n.role != m.role || n.level != m.level ||
			n.membership != m.membership || n.Entropy != m.Entropy {
			return false
		}
	}
	for _, e := range g.edges {
		from, to := g.EdgeEnds(e)
		if _, ok := o.Edge(from.name, to.name); !ok {
			return false
		}
	}
	return true
}
