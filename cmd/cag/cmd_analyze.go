package main

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/dd0wney/cluso-cag/pkg/attackgraph"
	"github.com/dd0wney/cluso-cag/pkg/faults"
	"github.com/dd0wney/cluso-cag/pkg/logging"
	"github.com/dd0wney/cluso-cag/pkg/visualization"
)

func newAnalyzeCmd(a *app) *cobra.Command {
	var (
		out      string
		protocol bool
		layout   bool
	)
	cmd := &cobra.Command{
		Use:   "analyze INPUT -o OUT.dot",
		Short: "Propagate compromise to a fixpoint and save the result",
		Long: `Propagate the compromised nodes of INPUT through its cryptographic
functions until nothing changes, then save the coloured graph.

With --protocol, INPUT is a CAS+ description: it is compiled first and
every session is analysed and saved as OUT1.dot, OUT2.dot and so on.
With --layout, the configured layout engine places the result before it
is saved; a failing engine only costs the placement.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			targets, err := a.load(args[0], protocol)
			if err != nil {
				return err
			}

			engine := a.engine()
			rows := make([][]string, 0, len(targets))
			for _, t := range targets {
				res := engine.Propagate(t.graph)
				if layout {
					if err := visualization.Relayout(cmd.Context(), a.layoutEngine(), t.graph); err != nil {
						if !faults.IsRecoverable(err) {
							return err
						}
						a.logger.Warn("layout failed, saving without placement",
							logging.Graph(t.graph.Name), logging.Error(err))
					}
				}
				rows = append(rows, []string{
					t.label(),
					strconv.Itoa(res.Passes),
					strconv.Itoa(res.Raised),
					strconv.Itoa(countLevel(t.graph, attackgraph.Easy)),
					strconv.Itoa(countLevel(t.graph, attackgraph.Hard)),
				})
			}

			paths, err := a.writeAll(targets, out)
			if err != nil {
				return err
			}
			printTable(a.stdout, "propagation",
				[]string{"graph", "passes", "raised", "easy", "hard"}, rows)
			printPaths(a.stdout, "wrote", paths)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "output graph path")
	cmd.Flags().BoolVar(&protocol, "protocol", false, "INPUT is a CAS+ protocol")
	cmd.Flags().BoolVar(&layout, "layout", false, "place the result with the layout engine")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}

func countLevel(g *attackgraph.Graph, level attackgraph.Compromise) int {
	n := 0
	for _, node := range g.Compromised() {
		if node.Level() == level {
			n++
		}
	}
	return n
}
