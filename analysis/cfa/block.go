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
	"sort"
	"strconv"
	"strings"

	"github.com/awslabs/argot-bam/internal/funcutil"
)

// Block is a sub-region of the automaton with one or more call (entry) nodes and a set of return (exit) nodes.
// Blocks are immutable once built. Two blocks with the same call nodes are the same block; Key reflects that.
type Block struct {
	name        string
	key         string
	callNodes   []*Node
	returnNodes []*Node
	isReturn    map[*Node]bool
	nodes       map[*Node]bool
	functions   []string
	function    bool
}

// NewBlock returns a block. The nodes must contain the call and return nodes. If isFunction is set, the block is the
// body of a function and may be re-entered by recursive calls.
func NewBlock(name string, callNodes, returnNodes, nodes []*Node, isFunction bool) *Block {
	if len(callNodes) == 0 {
		panic(fmt.Sprintf("block %s has no call node", name))
	}
	b := &Block{
		name:     name,
		isReturn: make(map[*Node]bool, len(returnNodes)),
		nodes:    make(map[*Node]bool, len(nodes)),
		function: isFunction,
	}
	b.callNodes = sortedNodes(callNodes)
	b.returnNodes = sortedNodes(returnNodes)
	for _, n := range returnNodes {
		b.isReturn[n] = true
	}
	fnames := map[string]bool{}
	for _, n := range nodes {
		b.nodes[n] = true
		fnames[n.Function] = true
	}
	for _, n := range append(b.callNodes, b.returnNodes...) {
		if !b.nodes[n] {
			panic(fmt.Sprintf("block %s does not contain its boundary node %s", name, n))
		}
	}
	b.functions = funcutil.SetToOrderedSlice(fnames)
	ids := funcutil.Map(b.callNodes, func(n *Node) string { return strconv.Itoa(n.ID) })
	b.key = strings.Join(ids, ",")
	return b
}

func sortedNodes(nodes []*Node) []*Node {
	res := make([]*Node, len(nodes))
	copy(res, nodes)
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res
}

// Name returns the name of the block
func (b *Block) Name() string { return b.name }

// Key identifies the block by its call nodes
func (b *Block) Key() string { return b.key }

// CallNodes returns the call nodes, ordered by id
func (b *Block) CallNodes() []*Node { return b.callNodes }

// CallNode returns the call node with the smallest id
func (b *Block) CallNode() *Node { return b.callNodes[0] }

// ReturnNodes returns the return nodes, ordered by id
func (b *Block) ReturnNodes() []*Node { return b.returnNodes }

// IsReturnNode returns true if n is a return node of the block
func (b *Block) IsReturnNode(n *Node) bool { return b.isReturn[n] }

// Contains returns true if n belongs to the block
func (b *Block) Contains(n *Node) bool { return b.nodes[n] }

// Size returns the number of nodes in the block
func (b *Block) Size() int { return len(b.nodes) }

// Functions returns the sorted names of the functions with nodes in the block
func (b *Block) Functions() []string { return b.functions }

// IsFunctionBlock returns true if the block is the body of a function
func (b *Block) IsFunctionBlock() bool { return b.function }

func (b *Block) String() string {
	return fmt.Sprintf("block %s [%s]", b.name, b.key)
}
