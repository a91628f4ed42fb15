package main

import (
	"github.com/spf13/cobra"

	"github.com/dd0wney/cluso-cag/pkg/config"
	"github.com/dd0wney/cluso-cag/pkg/dot"
	"github.com/dd0wney/cluso-cag/pkg/outfile"
	"github.com/dd0wney/cluso-cag/pkg/visualization"
)

func newRenderCmd(a *app) *cobra.Command {
	var (
		out      string
		format   string
		protocol bool
	)
	cmd := &cobra.Command{
		Use:   "render INPUT [-o OUT.png]",
		Short: "Draw a graph with the layout engine",
		Long: `Draw INPUT with the configured layout engine.

With the Graphviz engine (layout.engine: dot) the image is produced by
"<layout.command> -T<format>"; --format overrides layout.format. The
built-in engine draws no images: it saves the graph with node positions
and edge routes added, whatever the format.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			targets, err := a.load(args[0], protocol)
			if err != nil {
				return err
			}
			if format == "" {
				format = a.cfg.Layout.Format
			}
			builtin := a.cfg.Layout.Engine == config.EngineBuiltin
			if out == "" {
				out = defaultOutput(args[0], format, builtin)
			}

			var paths []string
			for _, t := range targets {
				path := t.output(out)
				if builtin {
					if err := visualization.Relayout(cmd.Context(), a.layoutEngine(), t.graph); err != nil {
						return err
					}
					if err := dot.WriteFile(path, t.graph, dot.Persist); err != nil {
						return err
					}
				} else {
					text, err := dot.Marshal(t.graph, dot.Render)
					if err != nil {
						return err
					}
					x := visualization.NewExporter(a.cfg.Layout.Command, a.layoutOptions()...)
					if err := x.Export(cmd.Context(), text, format, path); err != nil {
						return err
					}
				}
				paths = append(paths, path)
			}
			printPaths(a.stdout, "rendered", paths)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "output image path")
	cmd.Flags().StringVar(&format, "format", "", "image format passed to the layout engine")
	cmd.Flags().BoolVar(&protocol, "protocol", false, "INPUT is a CAS+ protocol")
	return cmd
}

// defaultOutput derives the output path from the input: graph.dot renders
// to graph.png, or to graph.layout.dot with the built-in engine.
func defaultOutput(in, format string, builtin bool) string {
	if builtin {
		return outfile.WithExt(in, ".layout.dot")
	}
	return outfile.WithExt(in, "."+format)
}
