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
	"github.com/yourbasic/graph"
	"golang.org/x/exp/slices"
)

// FindAllElementaryCycles finds all elementary cycles in the graph g. Each cycle starts and ends with its smallest
// vertex, e.g. [2 4 2]. Self-loops are reported as [v v].
// This uses Donald B. Johnson's algorithm presented in
// "Finding All The Elementary Circuits of a Directed Graph", 1975
//
//gocyclo:ignore
func FindAllElementaryCycles(g Digraph) [][]int64 {
	s := &cycleSearch{
		blocked: map[int64]bool{},
		blist:   map[int64]map[int64]bool{},
		stack:   []int64{},
		cycles:  [][]int64{},
	}
	for _, v := range g.Keys {
		if g.HasEdge(v, v) {
			s.cycles = append(s.cycles, []int64{v, v})
		}
	}
	start := 0
	for start < len(g.Keys) {
		sub := Subgraph(g, g.Keys[start:])
		// the smallest vertex of a non-trivial strongly connected component is the start of the next search
		next := int64(-1)
		for _, component := range graph.StrongComponents(sub) {
			if len(component) < 2 {
				continue
			}
			least := int64(component[0])
			for _, v := range component[1:] {
				if int64(v) < least {
					least = int64(v)
				}
			}
			if _, inSub := sub.Edges[least]; !inSub {
				continue
			}
			if next < 0 || least < next {
				next = least
			}
		}
		if next < 0 {
			return s.cycles
		}
		s.stack = []int64{}
		s.blocked = map[int64]bool{}
		s.blist = map[int64]map[int64]bool{}
		s.circuit(next, next, sub)
		start = slices.Index(g.Keys, next) + 1
	}
	return s.cycles
}

type cycleSearch struct {
	blocked map[int64]bool
	blist   map[int64]map[int64]bool
	stack   []int64
	cycles  [][]int64
}

func (s *cycleSearch) unblock(u int64) {
	s.blocked[u] = false
	for w := range s.blist[u] {
		delete(s.blist[u], w)
		if s.blocked[w] {
			s.unblock(w)
		}
	}
}

func (s *cycleSearch) circuit(v int64, start int64, g Digraph) bool {
	found := false
	s.stack = append(s.stack, v)
	s.blocked[v] = true
	for _, w := range g.Successors(v) {
		if w == start {
			if v != start {
				cycle := make([]int64, len(s.stack), len(s.stack)+1)
				copy(cycle, s.stack)
				s.cycles = append(s.cycles, append(cycle, w))
			}
			found = true
		} else if w > start && !s.blocked[w] {
			if s.circuit(w, start, g) {
				found = true
			}
		}
	}

	if found {
		s.unblock(v)
	} else {
		for _, w := range g.Successors(v) {
			if s.blist[w] == nil {
				s.blist[w] = map[int64]bool{}
			}
			s.blist[w][v] = true
		}
	}
	s.stack = s.stack[:len(s.stack)-1]
	return found
}
