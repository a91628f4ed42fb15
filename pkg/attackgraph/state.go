package attackgraph

// State is the mutable part of a graph: per-node compromise levels and
// memberships. Topology is sealed, so a State captured from a graph can
// always be restored onto it.
type State struct {
	levels     []Compromise
	membership []Membership
}

// Snapshot captures the current levels and memberships.
func (g *Graph) Snapshot() State {
	s := State{
		levels:     make([]Compromise, len(g.nodes)),
		membership: make([]Membership, len(g.nodes)),
	}
	for i, n := range g.nodes {
		s.levels[i] = n.level
		s.membership[i] = n.membership
	}
	return s
}

// Restore puts the graph back into a previously captured state and rebuilds
// the compromised set.
func (g *Graph) Restore(s State) error {
	if len(s.levels) != len(g.nodes) || len(s.membership) != len(g.nodes) {
		return ErrStateMismatch
	}
	clear(g.compromised)
	for i, n := range g.nodes {
		n.level = s.levels[i]
		n.membership = s.membership[i]
		if n.level != Impossible {
			g.compromised[i] = struct{}{}
		}
	}
	return nil
}

// Len returns the number of nodes the state covers.
func (s State) Len() int { return len(s.levels) }

// Level returns the captured level of the node at idx.
func (s State) Level(idx int) Compromise { return s.levels[idx] }

// Membership returns the captured membership of the node at idx.
func (s State) Membership(idx int) Membership { return s.membership[idx] }

// Diff returns the indexes whose level differs between two states of the
// same graph.
func (s State) Diff(o State) []int {
	var out []int
	for i := range s.levels {
		if i >= len(o.levels) || s.levels[i] != o.levels[i] {
			out = append(out, i)
		}
	}
	return out
}
