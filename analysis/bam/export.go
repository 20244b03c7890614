// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package bam

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/awslabs/argot-bam/analysis/arg"
	"github.com/awslabs/argot-bam/analysis/config"
	"github.com/awslabs/argot-bam/internal/graphutil"
)

// Exporter writes reached sets in the DOT format. The super-graph of several reached sets connects the node at which
// a block is entered to the root of the reached set of the block, and each reduced exit of the block to the nodes it
// has been expanded into.
type Exporter struct {
	config *config.Config
	data   *DataManager
	logger *config.LogGroup
}

// NewExporter returns an exporter for the reached sets registered in data
func NewExporter(cfg *config.Config, data *DataManager, logger *config.LogGroup) *Exporter {
	return &Exporter{config: cfg, data: data, logger: logger}
}

// Export writes the files requested by the export options of the configuration: the super-graph of the main reached
// set and all the cached reached sets, the super-graph of the reached sets used from the main one, and one file per
// reached set.
func (e *Exporter) Export(main *arg.ReachedSet) error {
	opts := e.config.BAM.Export
	if opts.ArgFile != "" {
		if err := e.write(opts.ArgFile, "arg", e.SuperGraph(main, e.AllReachedSets(main))); err != nil {
			return err
		}
	}
	if opts.SimplifiedArgFile != "" {
		if err := e.write(opts.SimplifiedArgFile, "used", e.SuperGraph(main, e.UsedReachedSets(main))); err != nil {
			return err
		}
	}
	if opts.IndexedArgFile != "" {
		for i, r := range e.AllReachedSets(main) {
			g := graphutil.NewDotGraph()
			e.addReachedSet(g, r, r == main)
			if err := e.write(fmt.Sprintf(opts.IndexedArgFile, i), fmt.Sprintf("reached%d", i), g); err != nil {
				return err
			}
		}
	}
	return nil
}

func (e *Exporter) write(filename string, name string, g *graphutil.DotGraph) error {
	b, err := g.Marshal(name)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", name, err)
	}
	p := e.config.ReportPath(filename)
	if dir := filepath.Dir(p); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory for %s: %w", p, err)
		}
	}
	if err := os.WriteFile(p, b, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", p, err)
	}
	e.logger.Infof("wrote %s (%d nodes)", p, g.Len())
	return nil
}

// AllReachedSets returns the main reached set followed by the cached reached sets that are not destroyed
func (e *Exporter) AllReachedSets(main *arg.ReachedSet) []*arg.ReachedSet {
	res := []*arg.ReachedSet{main}
	for _, entry := range e.data.Cache().Entries() {
		if entry.Reached != nil && entry.Reached != main && !entry.Reached.IsDestroyed() {
			res = append(res, entry.Reached)
		}
	}
	return res
}

// UsedReachedSets returns the reached sets reachable from main through block entries and expanded exits, main first
func (e *Exporter) UsedReachedSets(main *arg.ReachedSet) []*arg.ReachedSet {
	seen := map[*arg.ReachedSet]bool{main: true}
	res := []*arg.ReachedSet{main}
	for i := 0; i < len(res); i++ {
		for _, n := range res[i].Nodes() {
			for _, inner := range e.innerReachedSets(n) {
				if !seen[inner] && !inner.IsDestroyed() {
					seen[inner] = true
					res = append(res, inner)
				}
			}
		}
	}
	return res
}

func (e *Exporter) innerReachedSets(n *arg.Node) []*arg.ReachedSet {
	var res []*arg.ReachedSet
	if e.data.HasInitialState(n) {
		if r := e.data.ReachedSetForInitialState(n, nil); r != nil {
			res = append(res, r)
		}
	}
	for _, c := range n.Children() {
		if p := c.Producer(); p != nil {
			res = append(res, p)
		}
	}
	return res
}

// SuperGraph returns the graph of the given reached sets, with dashed edges between the reached sets
func (e *Exporter) SuperGraph(main *arg.ReachedSet, sets []*arg.ReachedSet) *graphutil.DotGraph {
	g := graphutil.NewDotGraph()
	for _, r := range sets {
		e.addReachedSet(g, r, r == main)
	}
	for _, r := range sets {
		for _, n := range r.Nodes() {
			if n.IsDestroyed() {
				continue
			}
			e.addConnections(g, n)
		}
	}
	return g
}

func (e *Exporter) addReachedSet(g *graphutil.DotGraph, r *arg.ReachedSet, isMain bool) {
	nodes := r.Nodes()
	for _, n := range nodes {
		if !n.IsDestroyed() {
			g.AddNode(int64(n.ID()), nodeAttrs(n, isMain && n == r.First()))
		}
	}
	for _, n := range nodes {
		for _, c := range n.Children() {
			if !n.IsDestroyed() && !c.IsDestroyed() && r.Contains(c) {
				e.addEdge(g, n, c, nil)
			}
		}
	}
}

// addConnections adds the edges from n to the roots of the blocks entered at n, and from the reduced exits to the
// children of n they have been expanded into
func (e *Exporter) addConnections(g *graphutil.DotGraph, n *arg.Node) {
	dashed := graphutil.Attrs{"style": "dashed"}
	if e.data.HasInitialState(n) {
		if r := e.data.ReachedSetForInitialState(n, nil); r != nil {
			if root := r.First(); root != nil && g.HasNode(int64(root.ID())) {
				e.addEdge(g, n, root, dashed)
			}
		}
	}
	for _, c := range n.Children() {
		exit := e.data.ReducedStateForExpandedState(c)
		if exit == nil || exit.IsDestroyed() {
			continue
		}
		if g.HasNode(int64(exit.ID())) && g.HasNode(int64(c.ID())) {
			e.addEdge(g, exit, c, dashed)
		}
	}
}

// addEdge adds the edge from -> to to g. An edge with an end missing from g is dropped from the export and logged.
func (e *Exporter) addEdge(g *graphutil.DotGraph, from, to *arg.Node, attrs graphutil.Attrs) {
	if err := g.AddEdge(int64(from.ID()), int64(to.ID()), attrs); err != nil {
		e.logger.Debugf("skipping edge %d -> %d in export: %v", from.ID(), to.ID(), err)
	}
}

func nodeAttrs(n *arg.Node, isRoot bool) graphutil.Attrs {
	label := fmt.Sprintf("%d", n.ID())
	if loc := n.Location(); loc != nil {
		label += " @ " + loc.String()
	}
	attrs := graphutil.Attrs{"label": strings.ReplaceAll(fmt.Sprintf("%q", label), `\"`, `'`)}
	switch n.Kind() {
	case arg.BlockEntryReduced:
		attrs["shape"] = "box"
	case arg.BlockExitExpanded:
		attrs["shape"] = "diamond"
	}
	switch {
	case n.IsTarget():
		attrs["style"] = "filled"
		attrs["fillcolor"] = "red"
	case isRoot:
		attrs["style"] = "filled"
		attrs["fillcolor"] = "lightblue"
	}
	return attrs
}
