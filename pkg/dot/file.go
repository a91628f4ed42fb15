// Package dot reads and writes the digraph text form of attack graphs.
//
// The accepted language is the subset of the Graphviz DOT language that the
// protocol compiler and the layout engine produce: node and edge statements
// with attribute lists, brace groups as edge operands, and ignored
// graph/node/edge defaults. Node attributes color, type, bit, set, pos,
// width and height map onto the model; everything else is ignored.
package dot

import (
	"os"

	"github.com/dd0wney/cluso-cag/pkg/attackgraph"
	"github.com/dd0wney/cluso-cag/pkg/faults"
	"github.com/dd0wney/cluso-cag/pkg/outfile"
)

// ReadFile parses the graph stored at path.
func ReadFile(path string, opts ...ParseOption) (*attackgraph.Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, faults.InputAccess("read", path, err)
	}
	g, err := ParseString(string(data), opts...)
	if err != nil {
		return nil, faults.WithPath(err, path)
	}
	return g, nil
}

// WriteFile atomically replaces path with the serialized graph.
func WriteFile(path string, g *attackgraph.Graph, mode Mode, opts ...WriteOption) error {
	data, err := Marshal(g, mode, opts...)
	if err != nil {
		return err
	}
	return outfile.WriteAtomic(path, data)
}
