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

package graphutil_test

import (
	"sort"
	"strconv"
	"strings"
	"testing"

	"github.com/awslabs/argot-bam/internal/funcutil"
	"github.com/awslabs/argot-bam/internal/graphutil"
	"github.com/google/go-cmp/cmp"
	"github.com/yourbasic/graph"
)

func cycleStrings(cycles [][]int64) []string {
	results := funcutil.Map(cycles, func(cycle []int64) string {
		return strings.Join(funcutil.Map(cycle, func(x int64) string { return strconv.Itoa(int(x)) }), "")
	})
	sort.Strings(results)
	return results
}

func TestFindAllElementaryCycles(t *testing.T) {
	g := graphutil.NewDigraph(6)
	g.AddEdge(0, 1)
	g.AddEdge(1, 2)
	g.AddEdge(2, 1)
	g.AddEdge(2, 3)
	g.AddEdge(3, 1)
	g.AddEdge(3, 4)
	g.AddEdge(4, 4)
	g.AddEdge(4, 5)

	stats := graph.Check(g)
	t.Logf("Stats:\n\tsize: %d\n\tmulti: %d\n\tloops: %d\n\tisolated: %d",
		stats.Size, stats.Multi, stats.Loops, stats.Isolated)
	if stats.Loops != 1 {
		t.Errorf("expected one self-loop, got %d", stats.Loops)
	}

	got := cycleStrings(graphutil.FindAllElementaryCycles(g))
	expected := []string{"121", "1231", "44"}
	if diff := cmp.Diff(expected, got); diff != "" {
		t.Errorf("unexpected cycles (-want +got):\n%s", diff)
	}
}

func TestFindAllElementaryCyclesAcyclic(t *testing.T) {
	g := graphutil.NewDigraph(4)
	g.AddEdge(0, 1)
	g.AddEdge(0, 2)
	g.AddEdge(1, 3)
	g.AddEdge(2, 3)
	if cycles := graphutil.FindAllElementaryCycles(g); len(cycles) != 0 {
		t.Errorf("expected no cycles, got %v", cycles)
	}
}

func TestSubgraphKeepsOrder(t *testing.T) {
	g := graphutil.NewDigraph(4)
	g.AddEdge(0, 1)
	g.AddEdge(1, 2)
	g.AddEdge(2, 3)
	sub := graphutil.Subgraph(g, []int64{1, 2})
	if sub.Order() != 4 {
		t.Errorf("subgraph should keep the order of the original graph")
	}
	if !sub.HasEdge(1, 2) || sub.HasEdge(2, 3) {
		t.Errorf("subgraph should only keep edges between included vertices")
	}
}
