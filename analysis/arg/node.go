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

// Package arg implements the abstract reachability graph: search nodes wrapping abstract states, stored in an arena
// and addressed by monotonically increasing ids, and reached sets grouping the nodes explored for one block
// invocation.
package arg

import (
	"fmt"
	"sort"
	"sync"

	"github.com/awslabs/argot-bam/analysis/cfa"
	"github.com/awslabs/argot-bam/analysis/cpa"
)

// ID identifies a node in its arena. A node's id is always strictly greater than the ids of its parents.
type ID int64

// Kind distinguishes the nodes created at block boundaries from ordinary nodes
type Kind int

const (
	// Ordinary nodes are created by the transfer relation of the analysis
	Ordinary Kind = iota
	// BlockEntryReduced nodes are the roots of the reached sets of blocks, holding reduced states
	BlockEntryReduced
	// BlockExitExpanded nodes hold the expansion of a reduced block exit into the caller's context
	BlockExitExpanded
)

func (k Kind) String() string {
	switch k {
	case Ordinary:
		return "ordinary"
	case BlockEntryReduced:
		return "reduced-entry"
	case BlockExitExpanded:
		return "expanded-exit"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Node is a node of the search graph.
type Node struct {
	id    ID
	state cpa.AbstractState
	kind  Kind
	arena *Arena

	// block is the entered block for BlockEntryReduced nodes, and the inner block for BlockExitExpanded nodes
	block *cfa.Block
	// producer is the reached set containing the reduced exit of a BlockExitExpanded node
	producer *ReachedSet
	// reduced is the reduced exit of a BlockExitExpanded node
	reduced *Node

	// fields below are guarded by arena.mu
	parents   []*Node
	children  []*Node
	destroyed bool
}

// Arena owns the nodes of the search graph and assigns their ids. It is safe for concurrent use.
type Arena struct {
	mu    sync.RWMutex
	nodes []*Node
}

// NewArena returns an empty arena
func NewArena() *Arena {
	return &Arena{}
}

func (a *Arena) add(n *Node, parents []*Node) *Node {
	a.mu.Lock()
	defer a.mu.Unlock()
	n.id = ID(len(a.nodes) + 1)
	n.arena = a
	a.nodes = append(a.nodes, n)
	for _, p := range parents {
		link(p, n)
	}
	return n
}

// NewNode creates an ordinary node with the given parents
func (a *Arena) NewNode(state cpa.AbstractState, parents ...*Node) *Node {
	return a.add(&Node{state: state, kind: Ordinary}, parents)
}

// NewReducedRoot creates the root of the reached set of block, holding the reduced entry state
func (a *Arena) NewReducedRoot(state cpa.AbstractState, block *cfa.Block) *Node {
	return a.add(&Node{state: state, kind: BlockEntryReduced, block: block}, nil)
}

// NewExpandedNode creates the expansion of reduced, an exit of inner found in producer, as a child of caller
func (a *Arena) NewExpandedNode(state cpa.AbstractState, caller *Node, inner *cfa.Block, producer *ReachedSet,
	reduced *Node) *Node {
	return a.add(&Node{state: state, kind: BlockExitExpanded, block: inner, producer: producer, reduced: reduced},
		[]*Node{caller})
}

// Node returns the node with the given id, or nil
func (a *Arena) Node(id ID) *Node {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if id <= 0 || int(id) > len(a.nodes) {
		return nil
	}
	return a.nodes[id-1]
}

// Len returns the number of nodes ever created in the arena, including destroyed ones
func (a *Arena) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.nodes)
}

// link must be called with the arena lock held
func link(parent, child *Node) {
	if parent.arena != child.arena {
		panic(fmt.Sprintf("cannot link nodes %d and %d of different arenas", parent.id, child.id))
	}
	if parent.id >= child.id {
		panic(fmt.Sprintf("parent %d must be created before child %d", parent.id, child.id))
	}
	for _, c := range parent.children {
		if c == child {
			return
		}
	}
	parent.children = append(parent.children, child)
	child.parents = append(child.parents, parent)
}

// ID returns the id of the node
func (n *Node) ID() ID { return n.id }

// State returns the wrapped abstract state
func (n *Node) State() cpa.AbstractState { return n.state }

// Kind returns the kind of the node
func (n *Node) Kind() Kind { return n.kind }

// Block returns the block entered at a reduced root, or the inner block of an expanded node. It is nil for ordinary
// nodes.
func (n *Node) Block() *cfa.Block { return n.block }

// Producer returns the reached set that produced the reduced exit of an expanded node
func (n *Node) Producer() *ReachedSet { return n.producer }

// ReducedExit returns the reduced exit state an expanded node was produced from
func (n *Node) ReducedExit() *Node { return n.reduced }

// IsTarget returns true if the wrapped state is a target state
func (n *Node) IsTarget() bool { return cpa.IsTarget(n.state) }

// Location returns the location of the wrapped state
func (n *Node) Location() *cfa.Node { return cpa.LocationOf(n.state) }

// AddParent adds parent as a parent of n
func (n *Node) AddParent(parent *Node) {
	n.arena.mu.Lock()
	defer n.arena.mu.Unlock()
	link(parent, n)
}

// Parents returns the parents of the node, in the order they were added
func (n *Node) Parents() []*Node {
	n.arena.mu.RLock()
	defer n.arena.mu.RUnlock()
	return append([]*Node(nil), n.parents...)
}

// Children returns the children of the node, in the order they were added
func (n *Node) Children() []*Node {
	n.arena.mu.RLock()
	defer n.arena.mu.RUnlock()
	return append([]*Node(nil), n.children...)
}

// HasChildren returns true if the node has at least one child
func (n *Node) HasChildren() bool {
	n.arena.mu.RLock()
	defer n.arena.mu.RUnlock()
	return len(n.children) > 0
}

// HasParents returns true if the node has at least one parent
func (n *Node) HasParents() bool {
	n.arena.mu.RLock()
	defer n.arena.mu.RUnlock()
	return len(n.parents) > 0
}

// IsDestroyed returns true if the node has been removed from the search graph
func (n *Node) IsDestroyed() bool {
	n.arena.mu.RLock()
	defer n.arena.mu.RUnlock()
	return n.destroyed
}

// Destroy marks the node as destroyed without unlinking it. The node is kept so that stale references to it can be
// detected.
func (n *Node) Destroy() {
	n.arena.mu.Lock()
	defer n.arena.mu.Unlock()
	n.destroyed = true
}

// RemoveFromARG unlinks the node from its parents and children and marks it destroyed.
func (n *Node) RemoveFromARG() {
	n.arena.mu.Lock()
	defer n.arena.mu.Unlock()
	for _, p := range n.parents {
		p.children = without(p.children, n)
	}
	for _, c := range n.children {
		c.parents = without(c.parents, n)
	}
	n.parents = nil
	n.children = nil
	n.destroyed = true
}

func without(nodes []*Node, x *Node) []*Node {
	res := nodes[:0]
	for _, n := range nodes {
		if n != x {
			res = append(res, n)
		}
	}
	return res
}

// Subtree returns n and all its descendants, ordered by id
func (n *Node) Subtree() []*Node {
	n.arena.mu.RLock()
	defer n.arena.mu.RUnlock()
	seen := map[*Node]bool{n: true}
	res := []*Node{n}
	for i := 0; i < len(res); i++ {
		for _, c := range res[i].children {
			if !seen[c] {
				seen[c] = true
				res = append(res, c)
			}
		}
	}
	SortByID(res)
	return res
}

func (n *Node) String() string {
	return fmt.Sprintf("ARG node %d (%s) %s", n.id, n.kind, n.state.Key())
}

// SortByID sorts nodes by increasing id
func SortByID(nodes []*Node) {
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].id < nodes[j].id })
}

// CopySubtree returns a detached copy of the subtree rooted at root, in a fresh arena. Node kinds and states are
// preserved; the copy does not reference the original reached sets.
func CopySubtree(root *Node) *Node {
	a := NewArena()
	copies := map[*Node]*Node{}
	for _, n := range root.Subtree() {
		var parents []*Node
		for _, p := range n.Parents() {
			if c, ok := copies[p]; ok {
				parents = append(parents, c)
			}
		}
		copies[n] = a.add(&Node{state: n.state, kind: n.kind, block: n.block}, parents)
	}
	return copies[root]
}
