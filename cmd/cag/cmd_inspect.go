package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dd0wney/cluso-cag/pkg/algorithms"
	"github.com/dd0wney/cluso-cag/pkg/attackgraph"
)

func newInspectCmd(a *app) *cobra.Command {
	var (
		protocol      bool
		cycleOpts     algorithms.CycleDetectionOptions
		uncompromised bool
	)
	cmd := &cobra.Command{
		Use:   "inspect INPUT",
		Short: "Summarize a graph: nodes, functions, compromise, sets and cycles",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			targets, err := a.load(args[0], protocol)
			if err != nil {
				return err
			}
			if uncompromised {
				cycleOpts.NodePredicate = func(n *attackgraph.Node) bool {
					return n.Level() == attackgraph.Impossible
				}
			}
			for _, t := range targets {
				printInspection(a, t, cycleOpts)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&protocol, "protocol", false, "INPUT is a CAS+ protocol")
	cmd.Flags().IntVar(&cycleOpts.MinCycleLength, "min-cycle", 0, "only report cycles with at least this many nodes")
	cmd.Flags().IntVar(&cycleOpts.MaxCycleLength, "max-cycle", 0, "only report cycles with at most this many nodes (0: no limit)")
	cmd.Flags().BoolVar(&uncompromised, "uncompromised-cycles", false, "only report cycles whose nodes are all impossible")
	return cmd
}

func printInspection(a *app, t target, opts algorithms.CycleDetectionOptions) {
	g := t.graph
	g.Seal()

	kinds := map[attackgraph.Kind]int{}
	for _, fn := range g.Functions() {
		kinds[fn.Kind()]++
	}
	var cycles []algorithms.Cycle
	if algorithms.HasCycle(g) {
		cycles = algorithms.DetectCyclesWithOptions(g, opts)
	}
	stats := algorithms.AnalyzeCycles(cycles)

	rows := [][]string{
		{"nodes", strconv.Itoa(g.Len())},
		{"edges", strconv.Itoa(len(g.Edges()))},
		{"functions", strconv.Itoa(len(g.Functions()))},
		{"  one-way", strconv.Itoa(kinds[attackgraph.OneWayFunction])},
		{"  encrypt", strconv.Itoa(kinds[attackgraph.EncryptFunction])},
		{"  converse", strconv.Itoa(kinds[attackgraph.ConverseFunction])},
		{"easy", strconv.Itoa(countLevel(g, attackgraph.Easy))},
		{"hard", strconv.Itoa(countLevel(g, attackgraph.Hard))},
		{"inputs", joinNames(nodeNames(g.InputSet()))},
		{"attacks", joinNames(nodeNames(g.AttackSet()))},
		{"cycles", strconv.Itoa(stats.TotalCycles)},
	}
	if stats.TotalCycles > 0 {
		rows = append(rows,
			[]string{"  shortest", strconv.Itoa(stats.ShortestCycle)},
			[]string{"  longest", strconv.Itoa(stats.LongestCycle)},
			[]string{"  average", strconv.FormatFloat(stats.AverageLength, 'f', 1, 64)},
			[]string{"  self loops", strconv.Itoa(stats.SelfLoops)},
		)
	}
	printTable(a.stdout, t.label(), []string{"property", "value"}, rows)

	for _, c := range cycles {
		fmt.Fprintf(a.stdout, "  cycle: %s -> %s\n", strings.Join(c, " -> "), c[0])
	}
}

func nodeNames(nodes []*attackgraph.Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.Name()
	}
	return out
}
