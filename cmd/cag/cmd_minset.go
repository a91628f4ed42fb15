package main

import (
	"errors"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/dd0wney/cluso-cag/pkg/attackset"
	"github.com/dd0wney/cluso-cag/pkg/logging"
)

func newMinsetCmd(a *app) *cobra.Command {
	var (
		out      string
		protocol bool
		all      bool
	)
	cmd := &cobra.Command{
		Use:   "minset INPUT [-o OUT.dot]",
		Short: "Find the smallest input sets that compromise every attack node",
		Long: `Search INPUT for the smallest sets of input nodes (set=D) whose
compromise reaches every attack node (set=A). All sets of that size are
reported. With -o, each solution is saved as OUT1.dot, OUT2.dot and so on,
with the chosen inputs drawn bold.

With --all, every non-function node counts as an input. With --protocol,
INPUT is compiled first and each session is searched; solutions of
session 2 are saved as OUT-s2-1.dot, OUT-s2-2.dot and so on.

Exits with code 4 when some graph has no solution.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			targets, err := a.load(args[0], protocol)
			if err != nil {
				return err
			}

			engine := a.engine()
			var failed []error
			for _, t := range targets {
				opts := []attackset.Option{
					attackset.WithLogger(a.logger.With(logging.Session(t.session))),
					attackset.WithMetrics(a.metrics),
				}
				var files *attackset.FileSink
				if out != "" {
					files = attackset.NewFileSink(sessionBase(out, t.session))
					opts = append(opts, attackset.WithSink(files))
				}

				res, err := attackset.NewSearcher(engine, opts...).Find(t.graph, attackset.Options{AllNodes: all})
				if err != nil {
					if files != nil {
						if derr := files.Discard(); derr != nil {
							a.logger.Warn("could not remove partial output", logging.Error(derr))
						}
					}
					return err
				}
				printSolutions(a, t, res, files)
				if err := res.Err(); err != nil {
					failed = append(failed, err)
				}
			}
			return errors.Join(failed...)
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "save each solution as a numbered graph")
	cmd.Flags().BoolVar(&protocol, "protocol", false, "INPUT is a CAS+ protocol")
	cmd.Flags().BoolVar(&all, "all", false, "treat every non-function node as an input")
	return cmd
}

func printSolutions(a *app, t target, res *attackset.Result, files *attackset.FileSink) {
	title := t.label() + ": " + strconv.Itoa(res.Inputs) + " inputs, " +
		strconv.Itoa(res.Attacks) + " attack nodes, " + strconv.Itoa(res.Trials) + " trials"
	if !res.Found() {
		printTable(a.stdout, title, []string{"result"}, [][]string{{"no minimal set"}})
		return
	}

	var paths []string
	if files != nil {
		paths = files.Paths()
	}
	rows := make([][]string, 0, len(res.Solutions))
	for i, sol := range res.Solutions {
		row := []string{strconv.Itoa(sol.Ordinal), joinNames(sol.Nodes), strconv.Itoa(len(sol.Compromised))}
		if i < len(paths) {
			row = append(row, paths[i])
		} else {
			row = append(row, "-")
		}
		rows = append(rows, row)
	}
	printTable(a.stdout, title+", size "+strconv.Itoa(res.Size),
		[]string{"#", "inputs", "compromised", "file"}, rows)
}
