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
	"container/heap"
	"errors"
	"fmt"

	"github.com/awslabs/argot-bam/analysis/arg"
	"github.com/awslabs/argot-bam/analysis/cfa"
	"github.com/awslabs/argot-bam/analysis/config"
	"github.com/awslabs/argot-bam/analysis/cpa"
)

// BackwardNode is a node of a reconstructed subgraph. It wraps a node of the search graph, but has its own parents
// and children: the same search node can appear several times in a subgraph when a cached block is used at several
// points of a path.
type BackwardNode struct {
	node     *arg.Node
	parents  []*BackwardNode
	children []*BackwardNode
}

func newBackwardNode(n *arg.Node) *BackwardNode {
	return &BackwardNode{node: n}
}

// Node returns the wrapped search node
func (b *BackwardNode) Node() *arg.Node { return b.node }

// Parents returns the parents of the node in the subgraph
func (b *BackwardNode) Parents() []*BackwardNode { return b.parents }

// Children returns the children of the node in the subgraph
func (b *BackwardNode) Children() []*BackwardNode { return b.children }

func (b *BackwardNode) addParent(p *BackwardNode) {
	for _, x := range b.parents {
		if x == p {
			return
		}
	}
	b.parents = append(b.parents, p)
	p.children = append(p.children, b)
}

// detach removes the node from the subgraph
func (b *BackwardNode) detach() {
	for _, p := range b.parents {
		p.children = withoutBackward(p.children, b)
	}
	for _, c := range b.children {
		c.parents = withoutBackward(c.parents, b)
	}
	b.parents = nil
	b.children = nil
}

func (b *BackwardNode) copy() *BackwardNode {
	return newBackwardNode(b.node)
}

func (b *BackwardNode) String() string {
	return fmt.Sprintf("backward(%d)", b.node.ID())
}

func withoutBackward(nodes []*BackwardNode, x *BackwardNode) []*BackwardNode {
	res := nodes[:0]
	for _, n := range nodes {
		if n != x {
			res = append(res, n)
		}
	}
	return res
}

// Subgraph is a reconstructed subgraph from the root of the outermost reached set to targets, in which the paths
// through cached blocks have been spliced in.
type Subgraph struct {
	Root    *BackwardNode
	Targets []*BackwardNode
}

// PathTo returns the search nodes on a path from the root to target, following the first parent of each node
func (s *Subgraph) PathTo(target *BackwardNode) []*arg.Node {
	var rev []*arg.Node
	seen := map[*BackwardNode]bool{}
	for cur := target; cur != nil && !seen[cur]; {
		seen[cur] = true
		rev = append(rev, cur.node)
		if len(cur.parents) == 0 {
			break
		}
		cur = cur.parents[0]
	}
	res := make([]*arg.Node, len(rev))
	for i, n := range rev {
		res[len(rev)-1-i] = n
	}
	return res
}

// Size returns the number of nodes reachable from the root
func (s *Subgraph) Size() int {
	seen := map[*BackwardNode]bool{s.Root: true}
	queue := []*BackwardNode{s.Root}
	for i := 0; i < len(queue); i++ {
		for _, c := range queue[i].children {
			if !seen[c] {
				seen[c] = true
				queue = append(queue, c)
			}
		}
	}
	return len(queue)
}

// nodeQueue is a max-heap of search nodes by id, without duplicates
type nodeQueue struct {
	nodes    []*arg.Node
	enqueued map[*arg.Node]bool
}

func newNodeQueue() *nodeQueue {
	return &nodeQueue{enqueued: map[*arg.Node]bool{}}
}

func (q *nodeQueue) Len() int           { return len(q.nodes) }
func (q *nodeQueue) Less(i, j int) bool { return q.nodes[i].ID() > q.nodes[j].ID() }
func (q *nodeQueue) Swap(i, j int)      { q.nodes[i], q.nodes[j] = q.nodes[j], q.nodes[i] }
func (q *nodeQueue) Push(x any)         { q.nodes = append(q.nodes, x.(*arg.Node)) }
func (q *nodeQueue) Pop() any {
	n := q.nodes[len(q.nodes)-1]
	q.nodes = q.nodes[:len(q.nodes)-1]
	return n
}

func (q *nodeQueue) add(nodes ...*arg.Node) {
	for _, n := range nodes {
		if !q.enqueued[n] {
			q.enqueued[n] = true
			heap.Push(q, n)
		}
	}
}

// popMax removes and returns the node with the largest id
func (q *nodeQueue) popMax() *arg.Node {
	n := heap.Pop(q).(*arg.Node)
	delete(q.enqueued, n)
	return n
}

// SubgraphComputer reconstructs counterexamples backwards from target nodes, entering the reached sets of the blocks
// crossed by the paths.
type SubgraphComputer struct {
	partitioning *cfa.Partitioning
	reducer      cpa.Reducer
	data         *DataManager
	logger       *config.LogGroup
}

// NewSubgraphComputer returns a computer reading the registrations of data
func NewSubgraphComputer(partitioning *cfa.Partitioning, reducer cpa.Reducer, data *DataManager,
	logger *config.LogGroup) *SubgraphComputer {
	return &SubgraphComputer{partitioning: partitioning, reducer: reducer, data: data, logger: logger}
}

// ComputeCounterexampleSubgraph returns the subgraph of all the paths from the root of reached to the targets.
//
// If a path goes through a reached set that has been destroyed, an error matching ErrMissingBlock is returned: the
// stale cache entries on the way have been removed, and the block entry in reached has been removed with its subtree
// and its parents put back into the waitlist, so that running the engine on reached again recomputes the block.
func (s *SubgraphComputer) ComputeCounterexampleSubgraph(reached *arg.ReachedSet,
	targets []*arg.Node) (*Subgraph, error) {
	if len(targets) == 0 {
		panic("cannot compute a subgraph without targets")
	}
	newTargets := make([]*BackwardNode, len(targets))
	for i, t := range targets {
		if !reached.Contains(t) {
			panic(fmt.Sprintf("target %v is not in %v", t, reached))
		}
		newTargets[i] = newBackwardNode(t)
	}
	root, err := s.computeSubgraph(reached, newTargets)
	if err != nil {
		return nil, err
	}
	if root.node != reached.First() {
		panic(fmt.Sprintf("reconstruction ended at %v instead of the root of %v", root.node, reached))
	}
	return &Subgraph{Root: root, Targets: newTargets}, nil
}

// computeSubgraph builds the subgraph backwards from the targets to the root of reached, and returns its root.
// Nodes are processed by decreasing id, so all the children of a node in the subgraph are processed before it.
func (s *SubgraphComputer) computeSubgraph(reached *arg.ReachedSet, newTargets []*BackwardNode) (*BackwardNode,
	error) {
	finished := map[*arg.Node]*BackwardNode{}
	queue := newNodeQueue()
	var root *BackwardNode
	for _, t := range newTargets {
		finished[t.node] = t
		queue.add(t.node.Parents()...)
		if !t.node.HasParents() {
			root = t
		}
	}

	for queue.Len() > 0 {
		cur := queue.popMax()
		if _, done := finished[cur]; done {
			continue
		}
		newCur := newBackwardNode(cur)
		finished[cur] = newCur
		queue.add(cur.Parents()...)

		children := subgraphChildren(cur, finished)
		if s.data.HasInitialState(cur) {
			// the children are expanded exits of the block entered at cur: enter the block backwards
			if err := s.computeSubgraphForBlock(newCur, children); err != nil {
				if errors.Is(err, ErrMissingBlock) {
					reached.RemoveSubtree(cur)
				}
				return nil, err
			}
		} else {
			for _, c := range children {
				c.addParent(newCur)
			}
		}

		if !cur.HasParents() {
			if root != nil {
				panic(fmt.Sprintf("two roots found in %v: %v and %v", reached, root.node, cur))
			}
			root = newCur
		}
	}
	if root == nil {
		panic(fmt.Sprintf("no root found in %v", reached))
	}
	return root, nil
}

// subgraphChildren returns the wrappers of the children of n that are in the subgraph, by increasing id
func subgraphChildren(n *arg.Node, finished map[*arg.Node]*BackwardNode) []*BackwardNode {
	children := n.Children()
	arg.SortByID(children)
	var res []*BackwardNode
	for _, c := range children {
		if b, ok := finished[c]; ok {
			res = append(res, b)
		}
	}
	return res
}

// computeSubgraphForBlock inserts between expandedRoot, the node at which a block has been entered, and the
// expandedTargets, the expanded exits of the block, the paths through the reached sets of the block.
func (s *SubgraphComputer) computeSubgraphForBlock(expandedRoot *BackwardNode,
	expandedTargets []*BackwardNode) error {
	root := expandedRoot.node

	type group struct {
		reached *arg.ReachedSet
		targets []*BackwardNode
	}
	var groups []*group
	byReached := map[*arg.ReachedSet]*group{}
	innerTargets := map[*BackwardNode]*BackwardNode{}

	for _, et := range expandedTargets {
		if !s.data.HasExpandedState(et.node) {
			s.logger.Debugf("node %d refers to a missing block exit, the cached block was deleted", et.node.ID())
			return &MissingBlockError{Node: et.node}
		}
		inner := s.data.InnerBlock(et.node)
		reduced := s.data.ReducedStateForExpandedState(et.node)
		if reduced.IsDestroyed() {
			s.logger.Debugf("node %d refers to destroyed node %d, the cached block is outdated", et.node.ID(),
				reduced.ID())
			return &MissingBlockError{Block: inner, Node: et.node}
		}
		reached := s.data.ReachedSetForInitialState(root, reduced)
		if reached == nil {
			reached = et.node.Producer()
		}
		if reached == nil || reached.IsDestroyed() || !reached.Contains(reduced) {
			return &MissingBlockError{Block: inner, Node: et.node}
		}
		it := newBackwardNode(reduced)
		innerTargets[et] = it
		g, ok := byReached[reached]
		if !ok {
			g = &group{reached: reached}
			byReached[reached] = g
			groups = append(groups, g)
		}
		g.targets = append(g.targets, it)
	}

	for _, g := range groups {
		rootPrecision := g.reached.Precision(g.reached.First())
		innerRoot, err := s.computeSubgraph(g.reached, g.targets)
		if err != nil {
			if errors.Is(err, ErrMissingBlock) {
				s.removeStaleEntry(root, g.reached, rootPrecision)
			}
			return err
		}
		// the root of the inner reached set is replaced by the node of the outer reached set
		for _, c := range append([]*BackwardNode(nil), innerRoot.children...) {
			c.addParent(expandedRoot)
		}
		innerRoot.detach()
		for _, it := range g.targets {
			if it == innerRoot {
				// the block returned at its entry
				for et, x := range innerTargets {
					if x == it {
						et.addParent(expandedRoot)
					}
				}
			}
		}
	}

	// the inner targets are replaced by the expanded exits of the outer reached set
	for _, et := range expandedTargets {
		it := innerTargets[et]
		for _, p := range append([]*BackwardNode(nil), it.parents...) {
			et.addParent(p)
		}
		it.detach()
	}
	return nil
}

// removeStaleEntry removes the cache entry of the block entered at expandedRoot, if it refers to reached
func (s *SubgraphComputer) removeStaleEntry(expandedRoot *arg.Node, reached *arg.ReachedSet,
	rootPrecision cpa.Precision) {
	loc := expandedRoot.Location()
	block := s.partitioning.BlockForCallNode(loc)
	if block == nil || rootPrecision == nil {
		return
	}
	reducedRoot := s.reducer.ReducedState(expandedRoot.State(), block, loc)
	cache := s.data.Cache()
	if e, ok := cache.Entry(reducedRoot, rootPrecision, block); !ok || e.Reached != reached {
		return
	}
	s.logger.Warnf("removing stale cache entry of %s entered at node %d", block.Name(), expandedRoot.ID())
	cache.Remove(reducedRoot, rootPrecision, block)
}
