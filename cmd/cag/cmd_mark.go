package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dd0wney/cluso-cag/pkg/attackgraph"
	"github.com/dd0wney/cluso-cag/pkg/dot"
)

func newMarkCmd(a *app) *cobra.Command {
	var (
		out   string
		level string
		nodes []string
	)
	cmd := &cobra.Command{
		Use:   "mark INPUT --level easy|hard|impossible -o OUT.dot",
		Short: "Set the compromise level of every node, or of the named ones",
		Long: `Set the compromise level of every non-function node of INPUT, or only
of the nodes named with --node, and save the graph. Level impossible
clears compromise.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lvl, err := attackgraph.ParseCompromise(level)
			if err != nil {
				return fmt.Errorf("--level: %w", err)
			}
			g, err := dot.ReadFile(args[0], dot.WithDefaultEntropy(a.cfg.Analysis.DefaultEntropyBits))
			if err != nil {
				return err
			}

			switch {
			case len(nodes) > 0:
				for _, name := range nodes {
					n, ok := g.Node(name)
					if !ok {
						return fmt.Errorf("--node: no node %q in %s", name, args[0])
					}
					g.SetCompromise(n, lvl)
				}
			case lvl == attackgraph.Impossible:
				g.UncompromiseAll()
			default:
				g.MarkAll(lvl)
			}

			if err := dot.WriteFile(out, g, dot.Persist); err != nil {
				return err
			}
			printPaths(a.stdout, "wrote", []string{out})
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "output graph path")
	cmd.Flags().StringVar(&level, "level", "", "easy, hard or impossible")
	cmd.Flags().StringArrayVar(&nodes, "node", nil, "mark only this node (repeatable)")
	_ = cmd.MarkFlagRequired("output")
	_ = cmd.MarkFlagRequired("level")
	return cmd
}
