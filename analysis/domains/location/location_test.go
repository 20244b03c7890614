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

package location

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/awslabs/argot-bam/analysis/cfa"
	"github.com/awslabs/argot-bam/analysis/cpa"
	"github.com/awslabs/argot-bam/analysis/domains/callstack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// twoCalls builds main calling f twice, then reaching an error location
func twoCalls() (*cfa.CFA, []*cfa.Node) {
	c := cfa.New()
	c.Main = "main"
	main := c.AddFunction("main", nil)
	f := c.AddFunction("f", nil)
	c.AddEdge(cfa.BlankEdge, f.Entry, f.Exit, "", nil)
	rs1 := c.NewNode(main, "after first call")
	rs2 := c.NewNode(main, "after second call")
	errNode := c.NewNode(main, "error")
	errNode.IsError = true
	c.AddCallEdge(main.Entry, rs1, f, "f()", nil)
	c.AddCallEdge(rs1, rs2, f, "f()", nil)
	c.AddEdge(cfa.BlankEdge, rs2, errNode, "", nil)
	return c, []*cfa.Node{rs1, rs2, errNode}
}

func successors(t *testing.T, tr cpa.TransferRelation, s cpa.AbstractState) []State {
	res, err := tr.AbstractSuccessors(context.Background(), s, Precision{})
	require.NoError(t, err)
	states := make([]State, len(res))
	for i, r := range res {
		states[i] = r.(State)
	}
	return states
}

func TestReturnToCallSite(t *testing.T) {
	c, nodes := twoCalls()
	f := c.Function("f")
	tr := Analysis{}.NewTransferRelation()

	s := Initial(c.Function("main").Entry)
	succ := successors(t, tr, s)
	require.Len(t, succ, 1)
	assert.Equal(t, f.Entry, succ[0].Location())
	assert.Equal(t, 2, succ[0].Stack().Depth())

	succ = successors(t, tr, succ[0])
	require.Len(t, succ, 1)
	assert.Equal(t, f.Exit, succ[0].Location())

	// two return edges leave the exit of f, only the one to the first call site is taken
	succ = successors(t, tr, succ[0])
	require.Len(t, succ, 1)
	assert.Equal(t, nodes[0], succ[0].Location())
	assert.Equal(t, "main", succ[0].Stack().Key())
	assert.False(t, succ[0].IsTarget())
}

func TestErrorLocationIsTarget(t *testing.T) {
	_, nodes := twoCalls()
	s := NewState(nodes[2], callstack.New("main"))
	assert.True(t, s.IsTarget())
	assert.True(t, cpa.IsTarget(s))
}

func TestRecursiveCallNeedsContext(t *testing.T) {
	c := cfa.New()
	f := c.AddFunction("f", nil)
	rs := c.NewNode(f, "after call")
	c.AddCallEdge(f.Entry, rs, f, "f()", nil)
	c.AddEdge(cfa.BlankEdge, rs, f.Exit, "", nil)

	tr := Analysis{}.NewTransferRelation().(*TransferRelation)
	_, err := tr.AbstractSuccessors(context.Background(), Initial(f.Entry), Precision{})
	assert.True(t, errors.Is(err, callstack.ErrRecursion))

	tr.EnableRecursiveContext()
	succ := successors(t, tr, Initial(f.Entry))
	tr.DisableRecursiveContext()
	require.Len(t, succ, 1)
	assert.Equal(t, "f>f@"+strconv.Itoa(rs.ID), succ[0].Stack().Key())
}

func TestReducer(t *testing.T) {
	c, nodes := twoCalls()
	f := c.Function("f")
	p, err := cfa.PartitionByFunction(c, "main")
	require.NoError(t, err)
	block := p.BlockForFunction("f")
	r := Analysis{}.Reducer()

	caller := NewState(f.Entry, callstack.Stack{{Function: "main"}, {Function: "f", ReturnSite: nodes[1]}})
	reduced := r.ReducedState(caller, block, f.Entry).(State)
	assert.Equal(t, "f", reduced.Stack().Key())

	other := NewState(f.Entry, callstack.Stack{{Function: "main"}, {Function: "f", ReturnSite: nodes[0]}})
	assert.Equal(t, reduced.Key(), r.ReducedState(other, block, f.Entry).Key(),
		"both call sites share the reduced state")

	exit := NewState(f.Exit, reduced.Stack())
	expanded := r.ExpandedState(caller, block, exit).(State)
	assert.Equal(t, f.Exit, expanded.Location())
	assert.Equal(t, caller.Stack().Key(), expanded.Stack().Key())
	assert.True(t, r.CanBeUsedInCache(caller))
}
