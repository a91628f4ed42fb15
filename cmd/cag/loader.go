package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dd0wney/cluso-cag/pkg/attackgraph"
	"github.com/dd0wney/cluso-cag/pkg/dot"
	"github.com/dd0wney/cluso-cag/pkg/faults"
	"github.com/dd0wney/cluso-cag/pkg/logging"
	"github.com/dd0wney/cluso-cag/pkg/outfile"
)

// target is one graph a command works on. Graph files give one target;
// a protocol gives one per session.
type target struct {
	graph   *attackgraph.Graph
	session int // 0 for a graph file
}

// output returns the path a target's result is written to: out itself for
// a graph file, out numbered by session for a protocol.
func (t target) output(out string) string {
	if t.session == 0 {
		return out
	}
	return outfile.Numbered(out, t.session)
}

// label names the target in reports.
func (t target) label() string {
	if t.session == 0 {
		return t.graph.Name
	}
	return t.graph.Name + " #" + strconv.Itoa(t.session)
}

// load reads path as graph text, or compiles it first when protocol is set.
func (a *app) load(path string, protocol bool) ([]target, error) {
	if !protocol {
		g, err := dot.ReadFile(path, dot.WithDefaultEntropy(a.cfg.Analysis.DefaultEntropyBits))
		if err != nil {
			return nil, err
		}
		return []target{{graph: g}}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, faults.InputAccess("compile", path, err)
	}
	comp, err := a.compiler().Compile(bytes.NewReader(data), outfile.Base(path))
	if err != nil {
		return nil, faults.WithPath(err, path)
	}
	if len(comp.Sessions) == 0 {
		a.logger.Warn("protocol declares no session instances", logging.Path(path))
	}
	targets := make([]target, len(comp.Sessions))
	for i, s := range comp.Sessions {
		targets[i] = target{graph: s.Graph, session: s.Ordinal}
	}
	return targets, nil
}

// sessionBase turns out into a prefix for per-session solution files:
// "min.dot" becomes "min-s2-.dot" so solutions number as min-s2-1.dot.
func sessionBase(out string, session int) string {
	if session == 0 {
		return out
	}
	ext := filepath.Ext(out)
	return strings.TrimSuffix(out, ext) + "-s" + strconv.Itoa(session) + "-" + ext
}

// writeAll persists every target, removing all of them if one write fails.
func (a *app) writeAll(targets []target, out string) ([]string, error) {
	var files outfile.Set
	for _, t := range targets {
		data, err := dot.Marshal(t.graph, dot.Persist)
		if err == nil {
			err = files.Write(t.output(out), data)
		}
		if err != nil {
			if derr := files.Discard(); derr != nil {
				a.logger.Warn("could not remove partial output", logging.Error(derr))
			}
			return nil, err
		}
	}
	return files.Paths(), nil
}
