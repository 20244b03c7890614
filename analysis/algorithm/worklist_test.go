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

package algorithm

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/awslabs/argot-bam/analysis/arg"
	"github.com/awslabs/argot-bam/analysis/config"
	"github.com/awslabs/argot-bam/analysis/cpa"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// state is a node of a small explicit graph; names starting with "err" are targets
type state string

func (s state) Key() string    { return string(s) }
func (s state) IsTarget() bool { return strings.HasPrefix(string(s), "err") }

type graphStepper struct {
	arena *arg.Arena
	succ  map[state][]state
	fail  state
	calls int
}

func (g *graphStepper) Successors(_ context.Context, n *arg.Node, _ cpa.Precision) ([]Successor, error) {
	g.calls++
	s := n.State().(state)
	if s == g.fail {
		return nil, errors.New("step failed")
	}
	var res []Successor
	for _, x := range g.succ[s] {
		res = append(res, Successor{Node: g.arena.NewNode(x, n)})
	}
	return res, nil
}

func run(t *testing.T, g *graphStepper, bfs bool) (*arg.ReachedSet, error) {
	r := arg.NewReachedSet(bfs)
	r.Add(g.arena.NewNode(state("a")), prec("p"))
	err := NewWorklist(g, config.NewDiscardLogGroup()).Run(context.Background(), r)
	return r, err
}

type prec string

func (p prec) Key() string { return string(p) }

func keys(r *arg.ReachedSet) []string {
	var res []string
	for _, n := range r.Nodes() {
		res = append(res, n.State().Key())
	}
	return res
}

func TestWorklistExploresAll(t *testing.T) {
	g := &graphStepper{arena: arg.NewArena(), succ: map[state][]state{
		"a": {"b", "c"},
		"b": {"d"},
		"c": {"d"},
		"d": {"a"},
	}}
	r, err := run(t, g, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "d"}, keys(r))
	assert.False(t, r.HasWaiting())
	assert.Equal(t, 4, g.calls)
	for _, n := range r.Nodes() {
		assert.Equal(t, "p", r.Precision(n).Key())
	}
}

func TestWorklistStopsAtTarget(t *testing.T) {
	g := &graphStepper{arena: arg.NewArena(), succ: map[state][]state{
		"a": {"b", "err1", "c"},
		"b": {"err2"},
	}}
	r, err := run(t, g, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "err1"}, keys(r))
	assert.True(t, r.Last().IsTarget())
	// a is waiting again because c has been dropped
	assert.Equal(t, 2, r.WaitlistSize())

	// resuming computes the dropped successor
	w := NewWorklist(g, config.NewDiscardLogGroup())
	require.NoError(t, w.Run(context.Background(), r))
	assert.Equal(t, "err2", r.Last().State().Key())
}

func TestWorklistError(t *testing.T) {
	g := &graphStepper{arena: arg.NewArena(), succ: map[state][]state{"a": {"b"}, "b": {"c"}}, fail: "b"}
	r, err := run(t, g, false)
	require.Error(t, err)
	assert.Equal(t, 1, r.WaitlistSize(), "the failed node is waiting again")
	assert.Equal(t, "b", r.Last().State().Key())

	g.fail = ""
	require.NoError(t, NewWorklist(g, config.NewDiscardLogGroup()).Run(context.Background(), r))
	assert.Equal(t, []string{"a", "b", "c"}, keys(r))
}

func TestWorklistInterrupted(t *testing.T) {
	g := &graphStepper{arena: arg.NewArena(), succ: map[state][]state{"a": {"b"}}}
	r := arg.NewReachedSet(false)
	r.Add(g.arena.NewNode(state("a")), prec("p"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := NewWorklist(g, config.NewDiscardLogGroup()).Run(ctx, r)
	assert.True(t, errors.Is(err, ErrInterrupted))
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 0, g.calls)
}

func TestWorklistFactory(t *testing.T) {
	g := &graphStepper{arena: arg.NewArena(), succ: map[state][]state{"a": {"b"}}}
	e := WorklistFactory(config.NewDiscardLogGroup())(g)
	r := arg.NewReachedSet(false)
	r.Add(g.arena.NewNode(state("a")), prec("p"))
	require.NoError(t, e.Run(context.Background(), r))
	assert.Equal(t, 2, e.(*Worklist).Steps())
}
