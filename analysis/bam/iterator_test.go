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
	"context"
	"testing"

	"github.com/awslabs/argot-bam/analysis/arg"
	"github.com/awslabs/argot-bam/analysis/config"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sharedBlock builds a search graph in which the reached set rooted at R, with target T, is entered from C1 and C2,
// two children of M0:
//
//	M0(1) -> C1(2), C2(3)
//	R(4) -> T(5)
func sharedBlock(t *testing.T) (*SubgraphComputer, map[string]*arg.Node) {
	arena := arg.NewArena()
	m0 := arena.NewNode(key("M0"))
	c1 := arena.NewNode(key("C1"), m0)
	c2 := arena.NewNode(key("C2"), m0)
	r := arena.NewReducedRoot(key("R"), nil)
	target := arena.NewNode(targetState("T"), r)

	reached := arg.NewReachedSet(false)
	reached.Add(r, key("p"))
	reached.Add(target, key("p"))

	data := NewDataManager(NewResultCache(4, false), 4)
	data.RegisterInitialState(c1, reached, []*arg.Node{target})
	data.RegisterInitialState(c2, reached, []*arg.Node{target})
	require.Equal(t, []*arg.Node{c1, c2}, data.NonReducedInitialStates(r))

	return NewSubgraphComputer(nil, nil, data, config.NewDiscardLogGroup()),
		map[string]*arg.Node{"M0": m0, "C1": c1, "C2": c2, "R": r, "T": target}
}

func TestComputePath(t *testing.T) {
	s, nodes := sharedBlock(t)
	p := s.ComputePath(nodes["T"])
	require.NotNil(t, p)
	if diff := cmp.Diff([]arg.ID{1, 2, 5}, p.IDs()); diff != "" {
		t.Errorf("path mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, nodes["T"], p.Last())
}

func TestPathIterator(t *testing.T) {
	s, nodes := sharedBlock(t)
	it := s.NewPathIterator(nodes["T"])

	var paths [][]arg.ID
	for p := it.NextPath(nil); p != nil; p = it.NextPath(nil) {
		paths = append(paths, p.IDs())
		require.Less(t, len(paths), 10, "the iterator does not terminate")
	}
	want := [][]arg.ID{{1, 2, 5}, {1, 3, 5}}
	if diff := cmp.Diff(want, paths); diff != "" {
		t.Errorf("paths mismatch (-want +got):\n%s", diff)
	}
}

func TestPathIteratorSeen(t *testing.T) {
	s, nodes := sharedBlock(t)
	it := s.NewPathIterator(nodes["T"])
	seen := [][]arg.ID{{3}}
	p := it.NextPath(seen)
	require.NotNil(t, p)
	assert.Equal(t, []arg.ID{1, 2, 5}, p.IDs())
	assert.Nil(t, it.NextPath(seen), "the only other path goes through node 3")

	s, nodes = sharedBlock(t)
	assert.Nil(t, s.RestorePathFrom(newBackwardNode(nodes["T"]), [][]arg.ID{{1, 5}}))
}

func TestPathDestroyedBlock(t *testing.T) {
	s, nodes := sharedBlock(t)
	nodes["C1"].Destroy()
	assert.Nil(t, s.ComputePath(nodes["T"]))
}

func TestWitnessMatchesPath(t *testing.T) {
	b, _ := newBAM(t, partial, nil)
	res, err := b.Run(context.Background())
	require.NoError(t, err)
	require.False(t, res.Safe())
	p := b.NewSubgraphComputer().ComputePath(res.Target)
	require.NotNil(t, p)
	assert.Equal(t, res.Witness(), p.Nodes)
	assert.Equal(t, len(p.Nodes), res.Counterexample.Size())
}
