package visualization

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-cag/pkg/attackgraph"
	"github.com/dd0wney/cluso-cag/pkg/dot"
	"github.com/dd0wney/cluso-cag/pkg/faults"
	"github.com/dd0wney/cluso-cag/pkg/metrics"
)

func mustParse(t *testing.T, text string) *attackgraph.Graph {
	t.Helper()
	g, err := dot.ParseString(text)
	require.NoError(t, err)
	return g
}

func names(level []*attackgraph.Node) []string {
	out := make([]string, len(level))
	for i, n := range level {
		out[i] = n.Name()
	}
	return out
}

func TestLevels(t *testing.T) {
	g := mustParse(t, `digraph t { A -> hash1 -> B; C -> hash1; D; }`)

	levels := Levels(g)
	require.Len(t, levels, 3)
	assert.Equal(t, []string{"A", "C", "D"}, names(levels[0]))
	assert.Equal(t, []string{"hash1"}, names(levels[1]))
	assert.Equal(t, []string{"B"}, names(levels[2]))
}

func TestLevelsWithoutRoots(t *testing.T) {
	g := mustParse(t, `digraph t { A -> hash1 -> A; }`)

	levels := Levels(g)
	require.Len(t, levels, 2)
	assert.Equal(t, []string{"A"}, names(levels[0]))
	assert.Equal(t, []string{"hash1"}, names(levels[1]))
}

func TestLevelsUnreachableJoinLastLevel(t *testing.T) {
	g := mustParse(t, `digraph t { R -> hash1 -> S; X -> hash2 -> X; }`)

	levels := Levels(g)
	require.Len(t, levels, 3)
	assert.Equal(t, []string{"S", "X", "hash2"}, names(levels[2]))
}

func TestLevelsEmptyGraph(t *testing.T) {
	assert.Nil(t, Levels(attackgraph.NewGraph("empty")))
}

func TestHierarchicalPlace(t *testing.T) {
	g := mustParse(t, `digraph t { A -> hash1 -> B; C -> hash1; D; }`)
	NewHierarchicalEngine(LayoutConfig{}).Place(g)

	pos := func(name string) attackgraph.Point {
		n, ok := g.Node(name)
		require.True(t, ok)
		require.True(t, n.Layout.HasPos)
		require.True(t, n.Layout.HasSize)
		return n.Layout.Pos
	}

	// Three levels 108pt apart, half a 0.5in node above the baseline.
	assert.Equal(t, attackgraph.Point{X: 27, Y: 234}, pos("A"))
	assert.Equal(t, attackgraph.Point{X: 135, Y: 234}, pos("C"))
	assert.Equal(t, attackgraph.Point{X: 243, Y: 234}, pos("D"))
	assert.Equal(t, attackgraph.Point{X: 135, Y: 126}, pos("hash1"))
	assert.Equal(t, attackgraph.Point{X: 135, Y: 18}, pos("B"))

	e, ok := g.Edge("A", "hash1")
	require.True(t, ok)
	assert.Equal(t, []attackgraph.Point{pos("A"), pos("hash1")}, e.Polyline)
}

func TestHierarchicalLayoutRecordsMetrics(t *testing.T) {
	reg := metrics.NewRegistry()
	engine := NewHierarchicalEngine(LayoutConfig{}, WithMetrics(reg))

	out, err := engine.Layout(context.Background(), []byte(`digraph t { A -> hash1 -> B; }`))
	require.NoError(t, err)
	assert.Contains(t, string(out), "pos=")

	_, err = engine.Layout(context.Background(), []byte(`digraph t { A -> `))
	require.Error(t, err)

	for status, want := range map[string]float64{"ok": 1, "error": 1} {
		c, err := reg.LayoutInvocationsTotal.GetMetricWithLabelValues("builtin", status)
		require.NoError(t, err)
		var m dto.Metric
		require.NoError(t, c.Write(&m))
		assert.Equal(t, want, m.GetCounter().GetValue(), status)
	}
}

func TestHierarchicalLayoutHonoursCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewHierarchicalEngine(LayoutConfig{}).Layout(ctx, []byte(`digraph t { A; }`))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRelayoutBuiltin(t *testing.T) {
	g := mustParse(t, `digraph t {
	K[color=red,set=D];
	{M K} -> encrypt0 -> E0(M,K);
	E0(M,K)[set=A];
}`)

	require.NoError(t, Relayout(context.Background(), NewHierarchicalEngine(LayoutConfig{}), g))

	for _, n := range g.Nodes() {
		assert.True(t, n.Layout.HasPos, n.Name())
	}
	for _, e := range g.Edges() {
		assert.Len(t, e.Polyline, 2)
	}

	k, _ := g.Node("K")
	assert.Equal(t, attackgraph.Easy, k.Level())
	cipher, ok := g.Node("E0(M,K)")
	require.True(t, ok)
	assert.Equal(t, attackgraph.Attack, cipher.Membership())
}

// script writes an executable shell script standing in for Graphviz.
func script(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts need a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "fake-dot")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755))
	return path
}

const laidOut = `cat >/dev/null
cat <<'OUT'
digraph t {
	graph [bb="0,0,100,100"];
	node [label="\N"];
	A [pos="10,20", width=1, height=0.5];
	B [pos="30,40", width=1, height=0.5];
	A -> B [pos="e,30,36 10,24 20,30\
 25,33"];
}
OUT
`

func TestGraphvizRelayout(t *testing.T) {
	g := mustParse(t, `digraph t { A -> B; C; }`)
	engine := NewGraphvizEngine(script(t, laidOut), WithTimeout(10*time.Second))

	require.NoError(t, Relayout(context.Background(), engine, g))

	a, _ := g.Node("A")
	assert.Equal(t, attackgraph.Layout{Pos: attackgraph.Point{X: 10, Y: 20}, HasPos: true, Width: 1, Height: 0.5, HasSize: true}, a.Layout)

	c, _ := g.Node("C")
	assert.True(t, c.Layout.IsZero(), "nodes absent from the output keep their layout")

	e, _ := g.Edge("A", "B")
	assert.Equal(t, []attackgraph.Point{{X: 10, Y: 24}, {X: 20, Y: 30}, {X: 25, Y: 33}, {X: 30, Y: 36}}, e.Polyline)
}

func TestGraphvizFailures(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"exit status", "cat >/dev/null\necho 'syntax error' >&2\nexit 3\n"},
		{"empty output", "cat >/dev/null\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := NewGraphvizEngine(script(t, tt.body))
			_, err := engine.Layout(context.Background(), []byte("digraph t { A; }"))
			require.Error(t, err)
			assert.ErrorIs(t, err, faults.ErrLayoutEngine)
			assert.True(t, faults.IsRecoverable(err))
			assert.Equal(t, faults.ExitMalformedGraph, faults.ExitCode(err))
		})
	}
}

func TestGraphvizMissingCommand(t *testing.T) {
	engine := NewGraphvizEngine(filepath.Join(t.TempDir(), "no-such-dot"))
	_, err := engine.Layout(context.Background(), []byte("digraph t { A; }"))
	assert.True(t, errors.Is(err, faults.ErrLayoutEngine))
}

func TestExport(t *testing.T) {
	// Arguments are -T<format> -o <path>.
	cmd := script(t, "cat > \"$3\"\n")
	out := filepath.Join(t.TempDir(), "graph.png")
	reg := metrics.NewRegistry()

	x := NewExporter(cmd, WithPolling(time.Millisecond, 3), WithMetrics(reg))
	require.NoError(t, x.Export(context.Background(), []byte("digraph t { A; }"), "png", out))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "digraph t { A; }", string(data))

	var m dto.Metric
	require.NoError(t, reg.LayoutPollRetries.Write(&m))
	assert.Equal(t, uint64(1), m.GetHistogram().GetSampleCount())
}

func TestExportGivesUpAfterRetries(t *testing.T) {
	cmd := script(t, "cat >/dev/null\n")
	out := filepath.Join(t.TempDir(), "graph.png")

	x := NewExporter(cmd, WithPolling(time.Millisecond, 3))
	err := x.Export(context.Background(), []byte("digraph t { A; }"), "png", out)
	require.Error(t, err)
	assert.ErrorIs(t, err, faults.ErrLayoutEngine)
	assert.True(t, faults.IsRecoverable(err))
	assert.Contains(t, err.Error(), "3 checks")
}

func TestPollingZeroIntervalKeepsDefault(t *testing.T) {
	o := newOptions([]Option{WithPolling(0, 5)})
	assert.Equal(t, 200*time.Millisecond, o.pollInterval)
	assert.Equal(t, 5, o.pollRetries)

	o = newOptions([]Option{WithPolling(time.Second, 0)})
	assert.Equal(t, time.Second, o.pollInterval)
	assert.Equal(t, 0, o.pollRetries)
}
