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

package arg

import (
	"fmt"
	"sync"

	"github.com/awslabs/argot-bam/analysis/cpa"
)

// ReachedSet is the set of nodes explored for one block invocation (or for the whole program): an ordered collection
// with a first node, a waitlist of nodes whose successors still have to be computed, and a precision per node.
//
// A reached set is explored by at most one top-level run at a time; the run holding it is its owner. All methods are
// safe for concurrent use.
type ReachedSet struct {
	mu        sync.Mutex
	first     *Node
	last      *Node
	nodes     []*Node
	members   map[*Node]bool
	byKey     map[string]*Node
	precision map[*Node]cpa.Precision
	waitlist  []*Node
	waiting   map[*Node]bool
	bfs       bool
	owner     any
	destroyed bool
}

// NewReachedSet returns an empty reached set. If bfs is true, the waitlist is processed in insertion order, otherwise
// the most recently added node is processed first.
func NewReachedSet(bfs bool) *ReachedSet {
	return &ReachedSet{
		members:   map[*Node]bool{},
		byKey:     map[string]*Node{},
		precision: map[*Node]cpa.Precision{},
		waiting:   map[*Node]bool{},
		bfs:       bfs,
	}
}

// Add adds the node to the reached set and to the waitlist, with its precision. The first node added is the root.
func (r *ReachedSet) Add(n *Node, prec cpa.Precision) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.members[n] {
		panic(fmt.Sprintf("%v added twice to a reached set", n))
	}
	if r.first == nil {
		r.first = n
	}
	r.last = n
	r.nodes = append(r.nodes, n)
	r.members[n] = true
	r.byKey[n.state.Key()] = n
	r.precision[n] = prec
	r.pushWaiting(n)
}

func (r *ReachedSet) pushWaiting(n *Node) {
	if !r.waiting[n] {
		r.waiting[n] = true
		r.waitlist = append(r.waitlist, n)
	}
}

// Lookup returns the node of the reached set whose state has the given key, or nil
func (r *ReachedSet) Lookup(key string) *Node {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byKey[key]
}

// Contains returns true if the node is in the reached set
func (r *ReachedSet) Contains(n *Node) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.members[n]
}

// Precision returns the precision of a node of the reached set
func (r *ReachedSet) Precision(n *Node) cpa.Precision {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.precision[n]
}

// First returns the root of the reached set
func (r *ReachedSet) First() *Node {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.first
}

// Last returns the node added last
func (r *ReachedSet) Last() *Node {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

// Nodes returns the nodes in the order they were added
func (r *ReachedSet) Nodes() []*Node {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*Node(nil), r.nodes...)
}

// Size returns the number of nodes
func (r *ReachedSet) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.nodes)
}

// HasWaiting returns true if the waitlist is not empty
func (r *ReachedSet) HasWaiting() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.waitlist) > 0
}

// WaitlistSize returns the number of nodes in the waitlist
func (r *ReachedSet) WaitlistSize() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.waitlist)
}

// PopFromWaitlist removes and returns the next node to process, or nil if the waitlist is empty
func (r *ReachedSet) PopFromWaitlist() *Node {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.waitlist) == 0 {
		return nil
	}
	var n *Node
	if r.bfs {
		n = r.waitlist[0]
		r.waitlist = r.waitlist[1:]
	} else {
		n = r.waitlist[len(r.waitlist)-1]
		r.waitlist = r.waitlist[:len(r.waitlist)-1]
	}
	delete(r.waiting, n)
	return n
}

// Reopen puts a node of the reached set back into the waitlist, so that its successors are computed again
func (r *ReachedSet) Reopen(n *Node) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.members[n] {
		r.pushWaiting(n)
	}
}

// RemoveSubtree removes n and its descendants from the reached set and from the search graph. The parents of n are
// put back into the waitlist so that the removed part can be explored again.
func (r *ReachedSet) RemoveSubtree(n *Node) {
	parents := n.Parents()
	subtree := n.Subtree()
	r.mu.Lock()
	removed := map[*Node]bool{}
	for _, x := range subtree {
		if r.members[x] {
			removed[x] = true
			r.removeLocked(x)
		}
	}
	r.nodes = filterNodes(r.nodes, removed)
	r.waitlist = filterNodes(r.waitlist, removed)
	if r.last != nil && removed[r.last] {
		r.last = nil
		if len(r.nodes) > 0 {
			r.last = r.nodes[len(r.nodes)-1]
		}
	}
	if r.first != nil && removed[r.first] {
		r.first = nil
	}
	for _, p := range parents {
		if r.members[p] {
			r.pushWaiting(p)
		}
	}
	r.mu.Unlock()
	for _, x := range subtree {
		x.RemoveFromARG()
	}
}

func (r *ReachedSet) removeLocked(n *Node) {
	delete(r.members, n)
	delete(r.precision, n)
	delete(r.waiting, n)
	if r.byKey[n.state.Key()] == n {
		delete(r.byKey, n.state.Key())
	}
}

func filterNodes(nodes []*Node, removed map[*Node]bool) []*Node {
	res := make([]*Node, 0, len(nodes))
	for _, n := range nodes {
		if !removed[n] {
			res = append(res, n)
		}
	}
	return res
}

// TryAcquire makes owner the owner of the reached set if it has no owner. It returns true if owner holds the reached
// set after the call.
func (r *ReachedSet) TryAcquire(owner any) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.owner == nil {
		r.owner = owner
	}
	return r.owner == owner
}

// Release releases the reached set if it is held by owner
func (r *ReachedSet) Release(owner any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.owner == owner {
		r.owner = nil
	}
}

// IsOwned returns true if some run holds the reached set
func (r *ReachedSet) IsOwned() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.owner != nil
}

// Destroy marks all the nodes of the reached set destroyed. It does nothing and returns false if the reached set is
// currently explored by some run.
func (r *ReachedSet) Destroy() bool {
	r.mu.Lock()
	if r.owner != nil {
		r.mu.Unlock()
		return false
	}
	r.destroyed = true
	nodes := append([]*Node(nil), r.nodes...)
	r.mu.Unlock()
	for _, n := range nodes {
		n.Destroy()
	}
	return true
}

// IsDestroyed returns true if the reached set has been destroyed
func (r *ReachedSet) IsDestroyed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.destroyed
}

func (r *ReachedSet) String() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	root := "<empty>"
	if r.first != nil {
		root = fmt.Sprintf("%d", r.first.id)
	}
	return fmt.Sprintf("reached set rooted at %s (%d nodes, %d waiting)", root, len(r.nodes), len(r.waitlist))
}
