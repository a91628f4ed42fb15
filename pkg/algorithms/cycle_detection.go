// Package algorithms inspects the shape of attack graphs.
package algorithms

import (
	"github.com/dd0wney/cluso-cag/pkg/attackgraph"
)

// Cycle is a detected cycle as node names in edge order. The closing edge
// runs from the last name back to the first.
type Cycle []string

// BackEdge returns the edge that closed the cycle during the search.
func (c Cycle) BackEdge() (from, to string) {
	return c[len(c)-1], c[0]
}

const (
	white = iota // unvisited
	gray         // in the recursion stack
	black        // all descendants explored
)

// DetectCycles finds cycles using depth-first search with three-colour
// marking. Every back edge, an edge into a node still on the recursion
// stack, yields one cycle. Compiled protocols produce them for symmetric
// encryption (plaintext and ciphertext wired back to the encrypt node) and
// for converse functions.
//
// Roots are visited in node order and children in edge order, so the
// result is deterministic for a given graph.
func DetectCycles(g *attackgraph.Graph) []Cycle {
	n := g.Len()
	color := make([]int, n)
	parent := make([]int, n)
	cycles := make([]Cycle, 0)

	// DFS from each unvisited node to cover disconnected components
	for idx := 0; idx < n; idx++ {
		if color[idx] == white {
			parent[idx] = -1
			dfsDetectCycle(g, idx, color, parent, &cycles)
		}
	}
	return cycles
}

func dfsDetectCycle(g *attackgraph.Graph, idx int, color, parent []int, cycles *[]Cycle) {
	color[idx] = gray

	for _, child := range g.NodeAt(idx).ChildIndexes() {
		switch color[child] {
		case white:
			parent[child] = idx
			dfsDetectCycle(g, child, color, parent, cycles)
		case gray:
			*cycles = append(*cycles, extractCycle(g, child, idx, parent))
		}
		// black: forward or cross edge, no cycle through it
	}

	color[idx] = black
}

// extractCycle walks parent pointers from end back to start, the target of
// the back edge end -> start, and returns the path in forward order.
func extractCycle(g *attackgraph.Graph, start, end int, parent []int) Cycle {
	var rev []int
	for current := end; current != start && current >= 0; current = parent[current] {
		rev = append(rev, current)
	}
	rev = append(rev, start)

	cycle := make(Cycle, len(rev))
	for i, idx := range rev {
		cycle[len(rev)-1-i] = g.NodeAt(idx).Name()
	}
	return cycle
}

// CycleDetectionOptions configures cycle detection behavior
type CycleDetectionOptions struct {
	MinCycleLength int                          // Minimum cycle length to report (0 = all)
	MaxCycleLength int                          // Maximum cycle length to report (0 = unlimited)
	NodePredicate  func(*attackgraph.Node) bool // Only include cycles with nodes matching predicate
}

// DetectCyclesWithOptions finds cycles matching the given criteria
func DetectCyclesWithOptions(g *attackgraph.Graph, opts CycleDetectionOptions) []Cycle {
	filtered := make([]Cycle, 0)
	for _, cycle := range DetectCycles(g) {
		if opts.MinCycleLength > 0 && len(cycle) < opts.MinCycleLength {
			continue
		}
		if opts.MaxCycleLength > 0 && len(cycle) > opts.MaxCycleLength {
			continue
		}

		if opts.NodePredicate != nil {
			allMatch := true
			for _, name := range cycle {
				node, ok := g.Node(name)
				if !ok || !opts.NodePredicate(node) {
					allMatch = false
					break
				}
			}
			if !allMatch {
				continue
			}
		}

		filtered = append(filtered, cycle)
	}
	return filtered
}

// CycleStats provides statistics about detected cycles
type CycleStats struct {
	TotalCycles   int
	ShortestCycle int
	LongestCycle  int
	AverageLength float64
	SelfLoops     int // Number of self-referencing nodes
}

// AnalyzeCycles computes statistics about detected cycles
func AnalyzeCycles(cycles []Cycle) CycleStats {
	if len(cycles) == 0 {
		return CycleStats{}
	}

	stats := CycleStats{
		TotalCycles:   len(cycles),
		ShortestCycle: len(cycles[0]),
		LongestCycle:  len(cycles[0]),
	}

	totalLength := 0
	for _, cycle := range cycles {
		length := len(cycle)
		totalLength += length

		if length == 1 {
			stats.SelfLoops++
		}
		stats.ShortestCycle = min(stats.ShortestCycle, length)
		stats.LongestCycle = max(stats.LongestCycle, length)
	}

	stats.AverageLength = float64(totalLength) / float64(len(cycles))
	return stats
}

// HasCycle reports whether g contains any cycle, stopping at the first.
func HasCycle(g *attackgraph.Graph) bool {
	color := make([]int, g.Len())
	for idx := range color {
		if color[idx] == white && hasCycleDFS(g, idx, color) {
			return true
		}
	}
	return false
}

func hasCycleDFS(g *attackgraph.Graph, idx int, color []int) bool {
	color[idx] = gray
	for _, child := range g.NodeAt(idx).ChildIndexes() {
		switch color[child] {
		case white:
			if hasCycleDFS(g, child, color) {
				return true
			}
		case gray:
			return true
		}
	}
	color[idx] = black
	return false
}
