package main

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/dd0wney/cluso-cag/pkg/casplus"
)

func newCompileCmd(a *app) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "compile PROTOCOL -o OUT.dot",
		Short: "Compile a CAS+ protocol into one graph per session",
		Long: `Compile a CAS+ protocol description. Each session instance becomes a
graph document named after OUT with the session number before the
extension: OUT1.dot, OUT2.dot and so on. Nothing is left behind when any
session fails to compile or write.

Intruder knowledge is marked compromised (color=red). Goals are not
coloured: each "secrecy_of X" marks X as an attack target (set=A), or
set=AD when X is also annotated as an input.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			comp, paths, err := a.compiler().CompileFile(args[0], out)
			if err != nil {
				return err
			}
			printSessions(a, comp, paths)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "output graph path")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}

func printSessions(a *app, comp *casplus.Compilation, paths []string) {
	rows := make([][]string, 0, len(comp.Sessions))
	for i, s := range comp.Sessions {
		bindings := make([]string, len(s.Bindings))
		for j, b := range s.Bindings {
			bindings[j] = b.Placeholder + ":" + b.Value
		}
		rows = append(rows, []string{
			strconv.Itoa(s.Ordinal),
			joinNames(bindings),
			strconv.Itoa(s.Graph.Len()),
			strconv.Itoa(len(s.Graph.Edges())),
			paths[i],
		})
	}
	printTable(a.stdout, "protocol "+comp.Name,
		[]string{"session", "bindings", "nodes", "edges", "file"}, rows)
	if len(comp.Secrets) > 0 {
		printTable(a.stdout, "goals",
			[]string{"secrets", "intruder knowledge"},
			[][]string{{joinNames(comp.Secrets), joinNames(comp.Intruder)}})
	}
}
