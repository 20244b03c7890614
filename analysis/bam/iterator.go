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
	"github.com/awslabs/argot-bam/analysis/arg"
)

// Path is a path of search nodes from the root of the outermost reached set to a target. Consecutive nodes may belong
// to different reached sets.
type Path struct {
	Nodes []*arg.Node
	root  *BackwardNode
}

// IDs returns the ids of the nodes of the path
func (p *Path) IDs() []arg.ID {
	ids := make([]arg.ID, len(p.Nodes))
	for i, n := range p.Nodes {
		ids[i] = n.ID()
	}
	return ids
}

// Last returns the last node of the path
func (p *Path) Last() *arg.Node {
	return p.Nodes[len(p.Nodes)-1]
}

// ComputePath returns one path to target, or nil if none can be restored. The target may be in any reached set: at
// the root of a block reached set, the path continues in the first caller of the block.
func (s *SubgraphComputer) ComputePath(target *arg.Node) *Path {
	return s.RestorePathFrom(newBackwardNode(target), nil)
}

// RestorePathFrom completes the path ending with last backwards, and returns it. It returns nil if a block on the
// way is missing, or if the path contains all the ids of one of the seen sequences.
func (s *SubgraphComputer) RestorePathFrom(last *BackwardNode, seen [][]arg.ID) *Path {
	root, repeated, err := s.findPath(last, seen)
	if err != nil || repeated || root == nil {
		if err != nil {
			s.logger.Debugf("cannot restore path from node %d: %v", last.node.ID(), err)
		}
		return nil
	}
	path := pathFrom(root)
	if containsSeenSequence(path, seen) {
		return nil
	}
	return path
}

// pathFrom follows the first child of each node from root
func pathFrom(root *BackwardNode) *Path {
	p := &Path{root: root}
	visited := map[*BackwardNode]bool{}
	for cur := root; cur != nil && !visited[cur]; {
		visited[cur] = true
		p.Nodes = append(p.Nodes, cur.node)
		if len(cur.children) == 0 {
			break
		}
		cur = cur.children[0]
	}
	return p
}

func containsSeenSequence(p *Path, seen [][]arg.ID) bool {
	ids := map[arg.ID]bool{}
	for _, n := range p.Nodes {
		ids[n.ID()] = true
	}
	for _, sequence := range seen {
		if len(sequence) == 0 {
			continue
		}
		all := true
		for _, id := range sequence {
			if !ids[id] {
				all = false
				break
			}
		}
		if all {
			return true
		}
	}
	return false
}

// repetitionCheck consumes the seen sequences from their end while the path is built backwards
type repetitionCheck struct {
	remaining [][]arg.ID
}

func newRepetitionCheck(seen [][]arg.ID) *repetitionCheck {
	r := &repetitionCheck{}
	for _, sequence := range seen {
		if len(sequence) > 0 {
			r.remaining = append(r.remaining, append([]arg.ID(nil), sequence...))
		}
	}
	return r
}

// repeated returns true if n completes one of the seen sequences
func (r *repetitionCheck) repeated(n *arg.Node) bool {
	for i, rest := range r.remaining {
		if len(rest) == 0 {
			continue
		}
		if rest[len(rest)-1] == n.ID() {
			r.remaining[i] = rest[:len(rest)-1]
			if len(r.remaining[i]) == 0 {
				return true
			}
		}
	}
	return false
}

// findPath builds a single path backwards from last. Blocks entered on the way are entered backwards; at the root of
// a block reached set, the path continues in the first node the block has been entered from.
func (s *SubgraphComputer) findPath(last *BackwardNode, seen [][]arg.ID) (*BackwardNode, bool, error) {
	check := newRepetitionCheck(seen)
	elements := map[*arg.Node]*BackwardNode{last.node: last}
	queue := newNodeQueue()
	if !last.node.HasParents() {
		return last, false, nil
	}
	queue.add(last.node.Parents()...)

	for queue.Len() > 0 {
		cur := queue.popMax()
		if _, done := elements[cur]; done {
			continue
		}
		newCur := newBackwardNode(cur)
		elements[cur] = newCur

		children := subgraphChildren(cur, elements)
		if len(children) == 0 {
			continue
		}

		inCaller := false
		if !cur.HasParents() {
			callers := s.data.NonReducedInitialStates(cur)
			if len(callers) == 0 {
				for _, c := range children {
					c.addParent(newCur)
					if check.repeated(c.node) {
						return nil, true, nil
					}
				}
				return newCur, false, nil
			}
			// the reduced root is replaced by the node the block has been entered from
			cur = callers[0]
			newCur = newBackwardNode(cur)
			elements[cur] = newCur
			inCaller = true
		}

		queue.add(cur.Parents()...)

		if s.data.HasInitialState(cur) && !inCaller {
			if err := s.computeSubgraphForBlock(newCur, children); err != nil {
				return nil, false, err
			}
			for tmp := children[0]; tmp != newCur; tmp = tmp.parents[0] {
				if check.repeated(tmp.node) {
					return nil, true, nil
				}
				if len(tmp.parents) == 0 {
					break
				}
			}
		} else {
			for _, c := range children {
				c.addParent(newCur)
				if check.repeated(c.node) {
					return nil, true, nil
				}
			}
			if !cur.HasParents() {
				return newCur, false, nil
			}
		}
		if cur.IsDestroyed() {
			return nil, false, &MissingBlockError{Node: cur}
		}
	}
	return nil, false, nil
}

// PathIterator enumerates the paths to a target that differ in the nodes blocks have been entered from. A block
// reached set that has been entered from several nodes is a branching point of the paths going through it.
type PathIterator struct {
	computer *SubgraphComputer
	target   *arg.Node
	// first is the first node of the last path returned
	first *BackwardNode
	// callers of the branching points, keyed by the id of the child of the reduced root on the path
	callers map[arg.ID]*callerIterator
}

type callerIterator struct {
	nodes []*arg.Node
	next  int
}

// NewPathIterator returns an iterator over the paths to target
func (s *SubgraphComputer) NewPathIterator(target *arg.Node) *PathIterator {
	return &PathIterator{computer: s, target: target, callers: map[arg.ID]*callerIterator{}}
}

// NextPath returns a path to the target that does not contain any of the seen id sequences, or nil if there are no
// more paths. The first call returns the path through the first callers; each following call forks the previous path
// at its deepest branching point that still has unexplored callers.
func (it *PathIterator) NextPath(seen [][]arg.ID) *Path {
	var path *Path
	if it.first == nil {
		path = it.computer.RestorePathFrom(newBackwardNode(it.target), seen)
	} else {
		path = it.computeNextPath(it.first, seen)
	}
	if path != nil {
		it.first = path.root
	}
	return path
}

func (it *PathIterator) computeNextPath(first *BackwardNode, seen [][]arg.ID) *Path {
	forks := it.findBranchingStatesAfter(first)
	for i := len(forks) - 1; i >= 0; i-- {
		forkChild := forks[i]
		for {
			caller := it.nextCaller(forkChild)
			if caller == nil {
				break
			}
			// the part of the path after the fork is kept, the part before is recomputed from the new caller
			rest := cloneTheRestOfPath(forkChild)
			newCaller := newBackwardNode(caller)
			rest.addParent(newCaller)
			if path := it.computer.RestorePathFrom(newCaller, seen); path != nil {
				return path
			}
		}
	}
	return nil
}

// nextCaller returns the next node the block of the fork has been entered from, skipping the first one which is
// used by the first path
func (it *PathIterator) nextCaller(forkChild *BackwardNode) *arg.Node {
	id := forkChild.node.ID()
	callers, ok := it.callers[id]
	if !ok {
		parents := forkChild.node.Parents()
		callers = &callerIterator{next: 1}
		if len(parents) > 0 {
			callers.nodes = it.computer.data.NonReducedInitialStates(parents[0])
		}
		it.callers[id] = callers
	}
	if callers.next >= len(callers.nodes) {
		return nil
	}
	n := callers.nodes[callers.next]
	callers.next++
	return n
}

// findBranchingStatesAfter returns the nodes of the path after start whose parent in the search graph is a reduced
// root entered from several nodes, and whose block does not return later on the path.
func (it *PathIterator) findBranchingStatesAfter(start *BackwardNode) []*BackwardNode {
	var forks []*BackwardNode
	mapToPath := map[*arg.Node]*BackwardNode{}
	cur := start
	for len(cur.children) > 0 {
		cur = cur.children[0]
		parents := cur.node.Parents()
		if len(parents) == 0 {
			continue
		}
		parent := parents[0]
		if len(it.computer.data.NonReducedInitialStates(parent)) > 1 && len(cur.parents) > 0 {
			// the previous node on the path is the node the block has been entered from
			mapToPath[cur.parents[0].node] = cur
			forks = append(forks, cur)
		}
		// the block returns on the path: changing its caller would not give a path
		for _, pp := range parent.Parents() {
			if f, ok := mapToPath[pp]; ok {
				forks = withoutBackward(forks, f)
			}
		}
	}
	return forks
}

// cloneTheRestOfPath copies the path from start to its end, and returns the copy of start
func cloneTheRestOfPath(start *BackwardNode) *BackwardNode {
	root := start.copy()
	clone := root
	for cur := start; len(cur.children) > 0; {
		cur = cur.children[0]
		c := cur.copy()
		c.addParent(clone)
		clone = c
	}
	return root
}
