package algorithms

import (
	"reflect"
	"testing"

	"github.com/dd0wney/cluso-cag/pkg/attackgraph"
	"github.com/dd0wney/cluso-cag/pkg/dot"
)

func setupTestGraph(t *testing.T, text string) *attackgraph.Graph {
	t.Helper()
	g, err := dot.ParseString(text)
	if err != nil {
		t.Fatalf("ParseString failed: %v", err)
	}
	return g
}

// TestDetectCycles_NoCycles tests a graph with no cycles (linear path)
func TestDetectCycles_NoCycles(t *testing.T) {
	g := setupTestGraph(t, `digraph t { A -> hash1 -> B; }`)

	if cycles := DetectCycles(g); len(cycles) != 0 {
		t.Errorf("Expected no cycles, got %v", cycles)
	}
	if HasCycle(g) {
		t.Error("HasCycle reported a cycle in a chain")
	}
}

// TestDetectCycles_SymmetricEncryption tests the back-edges a compiled
// symmetric encryption produces.
func TestDetectCycles_SymmetricEncryption(t *testing.T) {
	g := setupTestGraph(t, `digraph t {
	{M K} -> encrypt0 -> E0;
	encrypt0 -> M;
	E0 -> encrypt0;
}`)

	cycles := DetectCycles(g)
	want := []Cycle{{"encrypt0", "E0"}, {"M", "encrypt0"}}
	if !reflect.DeepEqual(cycles, want) {
		t.Fatalf("DetectCycles = %v, want %v", cycles, want)
	}

	from, to := cycles[0].BackEdge()
	if from != "E0" || to != "encrypt0" {
		t.Errorf("BackEdge = %s -> %s, want E0 -> encrypt0", from, to)
	}
	if !HasCycle(g) {
		t.Error("HasCycle missed the back edges")
	}
}

// TestDetectCycles_Converse tests a longer cycle through a converse function
func TestDetectCycles_Converse(t *testing.T) {
	g := setupTestGraph(t, `digraph t {
	X -> hash1 -> Y;
	Y -> converse1 -> X;
}`)

	cycles := DetectCycles(g)
	want := []Cycle{{"X", "hash1", "Y", "converse1"}}
	if !reflect.DeepEqual(cycles, want) {
		t.Errorf("DetectCycles = %v, want %v", cycles, want)
	}
}

// TestDetectCycles_SelfLoop tests self-referencing nodes
func TestDetectCycles_SelfLoop(t *testing.T) {
	g := setupTestGraph(t, `digraph t { A -> A; A -> B; }`)

	cycles := DetectCycles(g)
	if len(cycles) != 1 || !reflect.DeepEqual(cycles[0], Cycle{"A"}) {
		t.Fatalf("Expected one self-loop on A, got %v", cycles)
	}
	if stats := AnalyzeCycles(cycles); stats.SelfLoops != 1 {
		t.Errorf("Expected 1 self-loop, got %d", stats.SelfLoops)
	}
}

// TestDetectCycles_Disconnected tests cycles in separate components
func TestDetectCycles_Disconnected(t *testing.T) {
	g := setupTestGraph(t, `digraph t {
	A -> B -> A;
	C -> D -> E -> C;
}`)

	cycles := DetectCycles(g)
	if len(cycles) != 2 {
		t.Fatalf("Expected 2 cycles, got %v", cycles)
	}
	if len(cycles[0]) != 2 || len(cycles[1]) != 3 {
		t.Errorf("Expected lengths 2 and 3, got %v", cycles)
	}
}

func TestDetectCyclesWithOptions(t *testing.T) {
	g := setupTestGraph(t, `digraph t {
	A -> B -> A;
	C -> D -> E -> C;
	F -> F;
}`)

	tests := []struct {
		name string
		opts CycleDetectionOptions
		want int
	}{
		{"all", CycleDetectionOptions{}, 3},
		{"min length", CycleDetectionOptions{MinCycleLength: 2}, 2},
		{"max length", CycleDetectionOptions{MaxCycleLength: 2}, 2},
		{"predicate", CycleDetectionOptions{NodePredicate: func(n *attackgraph.Node) bool {
			return n.Name() != "D"
		}}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectCyclesWithOptions(g, tt.opts); len(got) != tt.want {
				t.Errorf("got %d cycles %v, want %d", len(got), got, tt.want)
			}
		})
	}
}

func TestAnalyzeCycles(t *testing.T) {
	stats := AnalyzeCycles([]Cycle{{"A"}, {"A", "B"}, {"A", "B", "C"}})
	if stats.TotalCycles != 3 || stats.ShortestCycle != 1 || stats.LongestCycle != 3 {
		t.Errorf("unexpected stats %+v", stats)
	}
	if stats.AverageLength != 2 {
		t.Errorf("AverageLength = %v, want 2", stats.AverageLength)
	}
	if (AnalyzeCycles(nil) != CycleStats{}) {
		t.Error("Expected zero stats for no cycles")
	}
}

func TestHasCycle_EmptyGraph(t *testing.T) {
	if HasCycle(attackgraph.NewGraph("empty")) {
		t.Error("Empty graph has no cycles")
	}
	if len(DetectCycles(attackgraph.NewGraph("empty"))) != 0 {
		t.Error("Empty graph has no cycles")
	}
}
