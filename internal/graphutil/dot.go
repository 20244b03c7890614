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

package graphutil

import (
	"fmt"

	"golang.org/x/exp/slices"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/encoding"
	"gonum.org/v1/gonum/graph/encoding/dot"
	"gonum.org/v1/gonum/graph/simple"
)

// Attrs is a set of DOT attributes, e.g. {"style": "dashed"}
type Attrs map[string]string

func (a Attrs) encode() []encoding.Attribute {
	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	res := make([]encoding.Attribute, 0, len(keys))
	for _, k := range keys {
		res = append(res, encoding.Attribute{Key: k, Value: a[k]})
	}
	return res
}

// DotNode implements the graph.Node interface and carries DOT attributes
type DotNode struct {
	id    int64
	attrs Attrs
}

// ID returns the id of the node
func (n *DotNode) ID() int64 { return n.id }

// Attributes implements the encoding.Attributer interface
func (n *DotNode) Attributes() []encoding.Attribute { return n.attrs.encode() }

// DotEdge implements the graph.Edge interface and carries DOT attributes
type DotEdge struct {
	from  *DotNode
	to    *DotNode
	attrs Attrs
}

// From returns the origin of the edge
func (e DotEdge) From() graph.Node { return e.from }

// To returns the destination of the edge
func (e DotEdge) To() graph.Node { return e.to }

// ReversedEdge returns a new value representing the reversed edge
func (e DotEdge) ReversedEdge() graph.Edge { return DotEdge{from: e.to, to: e.from, attrs: e.attrs} }

// Attributes implements the encoding.Attributer interface
func (e DotEdge) Attributes() []encoding.Attribute { return e.attrs.encode() }

// DotGraph is a directed graph with attributed nodes and edges that can be marshalled in the DOT format.
type DotGraph struct {
	g     *simple.DirectedGraph
	nodes map[int64]*DotNode
}

// NewDotGraph returns an empty graph
func NewDotGraph() *DotGraph {
	return &DotGraph{g: simple.NewDirectedGraph(), nodes: map[int64]*DotNode{}}
}

// AddNode adds a node, or replaces the attributes of an existing node
func (d *DotGraph) AddNode(id int64, attrs Attrs) {
	if n, ok := d.nodes[id]; ok {
		n.attrs = attrs
		return
	}
	n := &DotNode{id: id, attrs: attrs}
	d.g.AddNode(n)
	d.nodes[id] = n
}

// HasNode returns true if the node is in the graph
func (d *DotGraph) HasNode(id int64) bool {
	_, ok := d.nodes[id]
	return ok
}

// AddEdge adds an edge between two nodes already in the graph. Self-loops are ignored.
func (d *DotGraph) AddEdge(from, to int64, attrs Attrs) error {
	f, okf := d.nodes[from]
	t, okt := d.nodes[to]
	if !okf || !okt {
		return fmt.Errorf("edge %d -> %d between unknown nodes", from, to)
	}
	if from == to {
		return nil
	}
	d.g.SetEdge(DotEdge{from: f, to: t, attrs: attrs})
	return nil
}

// Len returns the number of nodes
func (d *DotGraph) Len() int {
	return len(d.nodes)
}

// Marshal returns the DOT representation of the graph
func (d *DotGraph) Marshal(name string) ([]byte, error) {
	return dot.Marshal(d.g, name, "", "  ")
}
