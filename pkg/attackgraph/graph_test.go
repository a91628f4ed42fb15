package attackgraph

import (
	"errors"
	"testing"
)

// setupTestGraph builds hash1 over two nonces with one output:
//
//	Na -> hash1 -> H(Na,Nb)
//	Nb -> hash1
func setupTestGraph(t *testing.T) *Graph {
	t.Helper()

	g := NewGraph("test")
	for _, name := range []string{"Na", "Nb", "hash1", "H(Na,Nb)"} {
		if _, err := g.EnsureNode(name); err != nil {
			t.Fatalf("EnsureNode(%q) failed: %v", name, err)
		}
	}
	for _, e := range [][2]string{{"Na", "hash1"}, {"Nb", "hash1"}, {"hash1", "H(Na,Nb)"}} {
		if _, err := g.AddEdge(e[0], e[1]); err != nil {
			t.Fatalf("AddEdge(%q, %q) failed: %v", e[0], e[1], err)
		}
	}
	g.Seal()
	return g
}

func mustNode(t *testing.T, g *Graph, name string) *Node {
	t.Helper()
	n, ok := g.Node(name)
	if !ok {
		t.Fatalf("node %q not found", name)
	}
	return n
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		role string
		want Kind
	}{
		{"hash1", "", OneWayFunction},
		{"Hash", "", OneWayFunction},
		{"hash(Na)", "", PlainNode},
		{"HMAC2", "", OneWayFunction},
		{"hmac(K,M)", "", OneWayFunction},
		{"encrypt0", "", EncryptFunction},
		{"Encrypt12", "", EncryptFunction},
		{"decrypt0", "", PlainNode},
		{"decrypt0", RoleFunction, OneWayFunction},
		{"converse1", RoleFunction, ConverseFunction},
		{"prf1", RoleFunction, OneWayFunction},
		{"hash1", RoleData, PlainNode},
		{"encrypt3", RoleFunction, EncryptFunction},
		{"E0(M,K)", RoleData, PlainNode},
		{"Na", "", PlainNode},
	}

	for _, tt := range tests {
		t.Run(tt.name+"/"+tt.role, func(t *testing.T) {
			if got := Classify(tt.name, tt.role); got != tt.want {
				t.Errorf("Classify(%q, %q) = %v, want %v", tt.name, tt.role, got, tt.want)
			}
		})
	}
}

func TestEnsureNodeIsIdempotent(t *testing.T) {
	g := NewGraph("g")
	a, err := g.EnsureNode("A")
	if err != nil {
		t.Fatalf("EnsureNode failed: %v", err)
	}
	again, err := g.EnsureNode("A")
	if err != nil {
		t.Fatalf("EnsureNode failed: %v", err)
	}
	if a != again {
		t.Error("EnsureNode returned a different node for the same label")
	}
	if g.Len() != 1 {
		t.Errorf("Len() = %d, want 1", g.Len())
	}
	if a.Entropy != DefaultEntropy {
		t.Errorf("Entropy = %d, want %d", a.Entropy, DefaultEntropy)
	}
}

func TestDefaultEntropyOption(t *testing.T) {
	g := NewGraph("g", WithDefaultEntropy(64))
	n, _ := g.EnsureNode("K")
	if n.Entropy != 64 {
		t.Errorf("Entropy = %d, want 64", n.Entropy)
	}
}

func TestAddEdge(t *testing.T) {
	g := setupTestGraph(t)

	t.Run("adjacency", func(t *testing.T) {
		hash := mustNode(t, g, "hash1")
		if got := len(g.Parents(hash)); got != 2 {
			t.Errorf("len(Parents(hash1)) = %d, want 2", got)
		}
		children := g.Children(hash)
		if len(children) != 1 || children[0].Name() != "H(Na,Nb)" {
			t.Errorf("Children(hash1) = %v, want [H(Na,Nb)]", children)
		}
	})

	t.Run("duplicate returns existing edge", func(t *testing.T) {
		before := len(g.Edges())
		e1, _ := g.Edge("Na", "hash1")
		e2, err := g.AddEdge("Na", "hash1")
		if err != nil {
			t.Fatalf("AddEdge duplicate failed: %v", err)
		}
		if e1 != e2 {
			t.Error("duplicate AddEdge returned a new edge")
		}
		if len(g.Edges()) != before {
			t.Errorf("edge count changed from %d to %d", before, len(g.Edges()))
		}
	})

	t.Run("missing endpoint", func(t *testing.T) {
		ng := NewGraph("g")
		ng.EnsureNode("A")
		_, err := ng.AddEdge("A", "B")
		if !errors.Is(err, ErrNodeNotFound) {
			t.Errorf("AddEdge to missing node error = %v, want ErrNodeNotFound", err)
		}
	})
}

func TestSealFreezesTopology(t *testing.T) {
	g := setupTestGraph(t)

	if _, err := g.EnsureNode("new"); !errors.Is(err, ErrSealed) {
		t.Errorf("EnsureNode after Seal error = %v, want ErrSealed", err)
	}
	if _, err := g.AddEdge("Na", "Nb"); !errors.Is(err, ErrSealed) {
		t.Errorf("AddEdge after Seal error = %v, want ErrSealed", err)
	}
	if err := g.SetRole(mustNode(t, g, "Na"), RoleFunction); !errors.Is(err, ErrSealed) {
		t.Errorf("SetRole after Seal error = %v, want ErrSealed", err)
	}

	funcs := g.Functions()
	if len(funcs) != 1 || funcs[0].Name() != "hash1" {
		t.Errorf("Functions() = %v, want [hash1]", funcs)
	}
}

func TestCompromisedSetTracksLevels(t *testing.T) {
	g := setupTestGraph(t)
	na := mustNode(t, g, "Na")
	nb := mustNode(t, g, "Nb")

	g.SetCompromise(na, Easy)
	g.SetCompromise(nb, Hard)
	if g.CompromisedCount() != 2 {
		t.Errorf("CompromisedCount() = %d, want 2", g.CompromisedCount())
	}
	if !g.IsCompromised(na) || !g.IsCompromised(nb) {
		t.Error("expected Na and Nb to be compromised")
	}

	g.Uncompromise(nb)
	if g.IsCompromised(nb) {
		t.Error("Nb still compromised after Uncompromise")
	}

	got := g.Compromised()
	if len(got) != 1 || got[0] != na {
		t.Errorf("Compromised() = %v, want [Na]", got)
	}

	g.UncompromiseAll()
	if g.CompromisedCount() != 0 || na.Level() != Impossible {
		t.Error("UncompromiseAll left compromised nodes behind")
	}
}

func TestRaise(t *testing.T) {
	g := setupTestGraph(t)
	na := mustNode(t, g, "Na")
	hash := mustNode(t, g, "hash1")

	if !g.Raise(na, Hard) {
		t.Error("Raise(Impossible -> Hard) reported no change")
	}
	if g.Raise(na, Hard) {
		t.Error("Raise(Hard -> Hard) reported a change")
	}
	if !g.Raise(na, Easy) {
		t.Error("Raise(Hard -> Easy) reported no change")
	}
	if g.Raise(na, Hard) || na.Level() != Easy {
		t.Error("Raise must never move a node backwards")
	}
	if g.Raise(hash, Easy) || hash.Level() != Impossible {
		t.Error("Raise must leave function nodes alone")
	}
}

func TestMarkAllSkipsFunctions(t *testing.T) {
	g := setupTestGraph(t)
	g.MarkAll(Easy)

	if mustNode(t, g, "hash1").Level() != Impossible {
		t.Error("MarkAll recoloured a function node")
	}
	if g.CompromisedCount() != 3 {
		t.Errorf("CompromisedCount() = %d, want 3", g.CompromisedCount())
	}
}

func TestMembershipSets(t *testing.T) {
	g := setupTestGraph(t)
	g.SetMembership(mustNode(t, g, "Na"), Input)
	g.SetMembership(mustNode(t, g, "Nb"), Both)
	g.SetMembership(mustNode(t, g, "H(Na,Nb)"), Attack)

	if got := len(g.InputSet()); got != 2 {
		t.Errorf("len(InputSet()) = %d, want 2", got)
	}
	attack := g.AttackSet()
	if len(attack) != 2 || attack[0].Name() != "Nb" || attack[1].Name() != "H(Na,Nb)" {
		t.Errorf("AttackSet() = %v, want [Nb H(Na,Nb)]", attack)
	}
}

func TestParseMembership(t *testing.T) {
	tests := []struct {
		code    string
		want    Membership
		wantErr bool
	}{
		{"", None, false},
		{"D", Input, false},
		{"A", Attack, false},
		{"AD", Both, false},
		{"DA", Both, false},
		{"ad", Both, false},
		{"X", None, true},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			got, err := ParseMembership(tt.code)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseMembership(%q) error = %v, wantErr %v", tt.code, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseMembership(%q) = %v, want %v", tt.code, got, tt.want)
			}
		})
	}
}

func TestColorEncoding(t *testing.T) {
	for _, level := range []Compromise{Easy, Hard, Impossible} {
		got, ok := ParseColor(level.Color())
		if !ok || got != level {
			t.Errorf("ParseColor(%q) = %v, %v, want %v", level.Color(), got, ok, level)
		}
	}
	if _, ok := ParseColor("brown"); ok {
		t.Error("ParseColor(brown) should not decode")
	}
}

func TestEqualIgnoresLayout(t *testing.T) {
	a := setupTestGraph(t)
	b := setupTestGraph(t)
	mustNode(t, b, "Na").Layout = Layout{Pos: Point{X: 10, Y: 20}, HasPos: true}

	if !a.Equal(b) {
		t.Error("graphs differing only in layout should be equal")
	}

	b.SetCompromise(mustNode(t, b, "Nb"), Hard)
	if a.Equal(b) {
		t.Error("graphs differing in compromise should not be equal")
	}
}
