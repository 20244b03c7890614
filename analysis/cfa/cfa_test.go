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

package cfa

import (
	"go/types"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// calls builds main -> f, f -> g, g -> f and h -> h
func calls(t *testing.T) *CFA {
	c := New()
	fns := map[string]*Function{}
	for _, name := range []string{"main", "f", "g", "h"} {
		fns[name] = c.AddFunction(name, nil)
	}
	call := func(from, to string) {
		caller := fns[from]
		rs := c.NewNode(caller, "return from "+to)
		c.AddCallEdge(caller.Entry, rs, fns[to], to+"()", &Call{Callee: to})
		c.AddEdge(BlankEdge, rs, caller.Exit, "", nil)
	}
	call("main", "f")
	call("f", "g")
	call("g", "f")
	call("h", "h")
	return c
}

func names(blocks []*Block) []string {
	res := make([]string, len(blocks))
	for i, b := range blocks {
		res[i] = b.Name()
	}
	return res
}

func TestAutomaton(t *testing.T) {
	c := calls(t)
	main := c.Function("main")
	require.NotNil(t, main)
	assert.Nil(t, c.Function("missing"))
	assert.Equal(t, []string{"main", "f", "g", "h"}, func() []string {
		var res []string
		for _, f := range c.Functions() {
			res = append(res, f.Name)
		}
		return res
	}())
	assert.Same(t, main.Entry, c.Node(main.Entry.ID))
	assert.Nil(t, c.Node(len(c.Nodes())))
	assert.Equal(t, []string{"f"}, c.Callees(main))

	f := c.Function("f")
	require.Len(t, main.Entry.Leaving, 1)
	callEdge := main.Entry.Leaving[0]
	assert.Equal(t, CallEdge, callEdge.Kind)
	assert.True(t, main.Entry.HasCallEdgeTo(f.Entry))
	assert.Equal(t, []*Node{f.Entry}, main.Entry.CallTargets())
	// f returns to main and to g
	assert.Len(t, f.Exit.Leaving, 2)
	assert.Equal(t, ReturnEdge, f.Exit.Leaving[0].Kind)
	assert.Same(t, callEdge.ReturnSite, f.Exit.Leaving[0].Succ)
	assert.Panics(t, func() { c.AddFunction("f", nil) })
}

func TestPartitionByFunction(t *testing.T) {
	c := calls(t)
	p, err := PartitionByFunction(c, "main")
	require.NoError(t, err)
	assert.Equal(t, []string{"main", "f", "g", "h"}, names(p.Blocks()))

	main, f := p.MainBlock(), p.BlockForFunction("f")
	assert.Equal(t, "main", main.Name())
	assert.Equal(t, []string{"f", "g", "main"}, main.Functions())
	assert.Equal(t, []string{"f", "g"}, f.Functions())
	assert.True(t, f.IsFunctionBlock())
	assert.True(t, f.Contains(c.Function("g").Entry))
	assert.False(t, f.Contains(c.Function("main").Entry))

	fn := c.Function("f")
	assert.True(t, p.IsCallNode(fn.Entry))
	assert.Same(t, f, p.BlockForCallNode(fn.Entry))
	assert.True(t, p.IsReturnNode(fn.Exit))
	assert.Equal(t, []*Block{f}, p.BlocksForReturnNode(fn.Exit))
	assert.True(t, f.IsReturnNode(fn.Exit))
	assert.False(t, p.IsCallNode(fn.Exit))
	assert.Equal(t, fn.Entry, f.CallNode())
	assert.NotEqual(t, f.Key(), main.Key())

	_, err = PartitionByFunction(c, "start")
	assert.Error(t, err)
}

func TestRecursion(t *testing.T) {
	p, err := PartitionByFunction(calls(t), "main")
	require.NoError(t, err)
	recursive := names(p.RecursiveBlocks())
	assert.ElementsMatch(t, []string{"f", "g", "h"}, recursive)

	var cycles []string
	for _, cycle := range p.RecursionCycles() {
		cycles = append(cycles, strings.Join(names(cycle), ">"))
	}
	assert.ElementsMatch(t, []string{"f>g>f", "h>h"}, cycles)
}

func TestNewPartitioning(t *testing.T) {
	c := calls(t)
	f := c.Function("f")
	g := c.Function("g")
	b1 := NewBlock("f", []*Node{f.Entry}, []*Node{f.Exit}, f.Nodes, true)
	b2 := NewBlock("loop", []*Node{f.Entry}, []*Node{f.Exit}, f.Nodes, false)
	_, err := NewPartitioning([]*Block{b1, b2}, b1)
	assert.Error(t, err, "two blocks share a call node")

	b3 := NewBlock("g", []*Node{g.Entry}, []*Node{g.Exit}, g.Nodes, true)
	_, err = NewPartitioning([]*Block{b1}, b3)
	assert.Error(t, err, "the main block is not a block of the partitioning")

	assert.Panics(t, func() { NewBlock("empty", nil, nil, nil, false) })
	assert.Panics(t, func() { NewBlock("outside", []*Node{g.Entry}, nil, f.Nodes, false) })
}

func TestOps(t *testing.T) {
	assert.Equal(t, "-3", types.ExprString(Int(-3)))
	assert.Equal(t, "42", types.ExprString(Int(42)))
	assert.True(t, IsNondet(Nondet()))
	assert.False(t, IsNondet(Int(1)))
	assert.Equal(t, "call", CallEdge.String())
}
