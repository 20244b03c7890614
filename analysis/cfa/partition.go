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
	"fmt"

	"github.com/awslabs/argot-bam/internal/graphutil"
)

// Partitioning maps locations to blocks. A location is the call node of at most one block, and can be a return node
// of several blocks.
type Partitioning struct {
	main         *Block
	blocks       []*Block
	byCallNode   map[*Node]*Block
	byReturnNode map[*Node][]*Block
	byFunction   map[string]*Block
}

// NewPartitioning builds a partitioning from its blocks. The main block must be one of the blocks.
func NewPartitioning(blocks []*Block, main *Block) (*Partitioning, error) {
	p := &Partitioning{
		main:         main,
		blocks:       blocks,
		byCallNode:   map[*Node]*Block{},
		byReturnNode: map[*Node][]*Block{},
		byFunction:   map[string]*Block{},
	}
	foundMain := false
	for _, b := range blocks {
		if b == main {
			foundMain = true
		}
		for _, n := range b.CallNodes() {
			if other, ok := p.byCallNode[n]; ok {
				return nil, fmt.Errorf("location %s is the call node of both %s and %s", n, other.Name(), b.Name())
			}
			p.byCallNode[n] = b
		}
		for _, n := range b.ReturnNodes() {
			p.byReturnNode[n] = append(p.byReturnNode[n], b)
		}
		if b.IsFunctionBlock() {
			p.byFunction[b.CallNode().Function] = b
		}
	}
	if !foundMain {
		return nil, fmt.Errorf("main block %v is not part of the partitioning", main)
	}
	return p, nil
}

// PartitionByFunction returns the partitioning with one block per function. The block of a function contains the
// nodes of the function and of all the functions it calls transitively. Its call node is the function entry and its
// return node the function exit.
func PartitionByFunction(c *CFA, mainFunction string) (*Partitioning, error) {
	if c.Function(mainFunction) == nil {
		return nil, fmt.Errorf("main function %q not found", mainFunction)
	}
	var blocks []*Block
	var main *Block
	for _, f := range c.Functions() {
		var nodes []*Node
		for _, name := range reachableFunctions(c, f) {
			nodes = append(nodes, c.Function(name).Nodes...)
		}
		b := NewBlock(f.Name, []*Node{f.Entry}, []*Node{f.Exit}, nodes, true)
		if f.Name == mainFunction {
			main = b
		}
		blocks = append(blocks, b)
	}
	return NewPartitioning(blocks, main)
}

func reachableFunctions(c *CFA, f *Function) []string {
	seen := map[string]bool{f.Name: true}
	order := []string{f.Name}
	for i := 0; i < len(order); i++ {
		for _, callee := range c.Callees(c.Function(order[i])) {
			if !seen[callee] {
				seen[callee] = true
				order = append(order, callee)
			}
		}
	}
	return order
}

// IsCallNode returns true if n is the call node of some block
func (p *Partitioning) IsCallNode(n *Node) bool {
	_, ok := p.byCallNode[n]
	return ok
}

// IsReturnNode returns true if n is a return node of some block
func (p *Partitioning) IsReturnNode(n *Node) bool {
	return len(p.byReturnNode[n]) > 0
}

// BlockForCallNode returns the block whose call node is n, or nil
func (p *Partitioning) BlockForCallNode(n *Node) *Block {
	return p.byCallNode[n]
}

// BlocksForReturnNode returns the blocks that have n as return node
func (p *Partitioning) BlocksForReturnNode(n *Node) []*Block {
	return p.byReturnNode[n]
}

// MainBlock returns the block where the analysis starts
func (p *Partitioning) MainBlock() *Block {
	return p.main
}

// Blocks returns all the blocks
func (p *Partitioning) Blocks() []*Block {
	return p.blocks
}

// BlockForFunction returns the function block of the function name, or nil
func (p *Partitioning) BlockForFunction(name string) *Block {
	return p.byFunction[name]
}

// blockCallGraph returns the graph where block i has an edge to block j if a node of block i that is not inside a
// nested block calls the call node of block j.
func (p *Partitioning) blockCallGraph() graphutil.Digraph {
	index := make(map[*Block]int64, len(p.blocks))
	for i, b := range p.blocks {
		index[b] = int64(i)
	}
	g := graphutil.NewDigraph(len(p.blocks))
	for i, b := range p.blocks {
		for _, n := range p.ownNodes(b) {
			for _, target := range n.CallTargets() {
				if callee := p.byCallNode[target]; callee != nil {
					g.AddEdge(int64(i), index[callee])
				}
			}
		}
	}
	return g
}

func (p *Partitioning) ownNodes(b *Block) []*Node {
	var nodes []*Node
	if b.IsFunctionBlock() {
		fn := b.CallNode().Function
		for n := range b.nodes {
			if n.Function == fn {
				nodes = append(nodes, n)
			}
		}
		return nodes
	}
	for n := range b.nodes {
		nodes = append(nodes, n)
	}
	return nodes
}

// RecursiveBlocks returns the blocks that can be re-entered while they are active, i.e. the blocks on a cycle of the
// block call graph.
func (p *Partitioning) RecursiveBlocks() []*Block {
	g := p.blockCallGraph()
	var res []*Block
	for _, scc := range graphutil.StronglyConnectedComponents(g.Keys, g.Successors) {
		if len(scc) > 1 || g.HasEdge(scc[0], scc[0]) {
			for _, i := range scc {
				res = append(res, p.blocks[i])
			}
		}
	}
	return res
}

// RecursionCycles returns all the elementary cycles of the block call graph
func (p *Partitioning) RecursionCycles() [][]*Block {
	g := p.blockCallGraph()
	var res [][]*Block
	for _, cycle := range graphutil.FindAllElementaryCycles(g) {
		blocks := make([]*Block, len(cycle))
		for i, id := range cycle {
			blocks[i] = p.blocks[id]
		}
		res = append(res, blocks)
	}
	return res
}
