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

// Package graphutil contains graph algorithms (strongly connected components, elementary cycles) and a DOT builder
// used to render search graphs.
package graphutil

import (
	"golang.org/x/exp/slices"
)

// Digraph is a directed graph over the vertices 0..n-1 that works with existing graph libraries. It implements the
// methods to satisfy the graph.Iterator interface of github.com/yourbasic/graph.
type Digraph struct {
	// The order of the graph
	order int

	// Keys are all the vertex ids of the graph, sorted
	Keys []int64

	// Edges is an adjacency matrix: Edges[x][y] means there is a directed edge between x and y
	Edges map[int64]map[int64]bool
}

// NewDigraph returns a graph with vertices 0..n-1 and no edges
func NewDigraph(n int) Digraph {
	keys := make([]int64, n)
	edges := make(map[int64]map[int64]bool, n)
	for i := 0; i < n; i++ {
		keys[i] = int64(i)
		edges[int64(i)] = map[int64]bool{}
	}
	return Digraph{order: n, Keys: keys, Edges: edges}
}

// AddEdge adds the edge from -> to
func (g Digraph) AddEdge(from, to int64) {
	g.Edges[from][to] = true
}

// HasEdge returns true if the edge from -> to exists
func (g Digraph) HasEdge(from, to int64) bool {
	return g.Edges[from][to]
}

// Successors returns the sorted successors of v
func (g Digraph) Successors(v int64) []int64 {
	succs := make([]int64, 0, len(g.Edges[v]))
	for w := range g.Edges[v] {
		succs = append(succs, w)
	}
	slices.Sort(succs)
	return succs
}

// Subgraph returns a new graph that is the original graph with only the vertices in include. Only the edges that have
// both the origin and destination in the include vertices are kept in the resulting graph.
// The subgraph's order is the same as in origin, meaning that vertex indices will stay consistent across subgraphs.
func Subgraph(original Digraph, include []int64) Digraph {
	kept := make(map[int64]bool, len(include))
	keys := make([]int64, len(include))
	for j, i := range include {
		keys[j] = i
		kept[i] = true
	}

	edges := make(map[int64]map[int64]bool, len(include))
	for _, i := range include {
		edges[i] = map[int64]bool{}
		for e := range original.Edges[i] {
			if kept[e] {
				edges[i][e] = true
			}
		}
	}

	return Digraph{
		order: original.Order(),
		Edges: edges,
		Keys:  keys,
	}
}

// Order implements the order of the graph.Iterator interface for the Digraph
func (g Digraph) Order() int {
	return g.order
}

// Visit implements the graph.Iterator interface for the Digraph
func (g Digraph) Visit(v int, do func(w int, c int64) (skip bool)) (aborted bool) {
	succs, ok := g.Edges[int64(v)]
	if !ok {
		return false
	}
	for w := range succs {
		if do(int(w), 1) {
			return true
		}
	}
	return false
}
