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
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type state string

func (s state) Key() string { return string(s) }

type target string

func (t target) Key() string    { return string(t) }
func (t target) IsTarget() bool { return true }

func ids(nodes []*Node) []ID {
	res := make([]ID, len(nodes))
	for i, n := range nodes {
		res[i] = n.ID()
	}
	return res
}

func TestArena(t *testing.T) {
	a := NewArena()
	root := a.NewNode(state("root"))
	left := a.NewNode(state("left"), root)
	right := a.NewNode(state("right"), root)
	join := a.NewNode(state("join"), left, right)

	assert.Equal(t, ID(1), root.ID())
	assert.Equal(t, 4, a.Len())
	assert.Same(t, join, a.Node(4))
	assert.Nil(t, a.Node(0))
	assert.Nil(t, a.Node(5))

	assert.Equal(t, []ID{2, 3}, ids(root.Children()))
	assert.Equal(t, []ID{2, 3}, ids(join.Parents()))
	assert.Equal(t, []ID{1, 2, 3, 4}, ids(root.Subtree()))
	assert.False(t, root.HasParents())
	assert.True(t, root.HasChildren())
	assert.Equal(t, Ordinary, join.Kind())
	assert.Nil(t, join.Location())
	assert.False(t, join.IsTarget())
	assert.True(t, a.NewNode(target("t"), join).IsTarget())

	// linking twice is a no-op
	join.AddParent(left)
	assert.Len(t, join.Parents(), 2)
}

func TestLinkOrder(t *testing.T) {
	a := NewArena()
	first := a.NewNode(state("first"))
	second := a.NewNode(state("second"))
	assert.Panics(t, func() { first.AddParent(second) })
	assert.Panics(t, func() { second.AddParent(NewArena().NewNode(state("other"))) })
	second.AddParent(first)
	assert.Equal(t, []ID{1}, ids(second.Parents()))
}

func TestRemoveFromARG(t *testing.T) {
	a := NewArena()
	root := a.NewNode(state("root"))
	mid := a.NewNode(state("mid"), root)
	leaf := a.NewNode(state("leaf"), mid)

	mid.RemoveFromARG()
	assert.True(t, mid.IsDestroyed())
	assert.Empty(t, root.Children())
	assert.Empty(t, leaf.Parents())
	assert.False(t, leaf.IsDestroyed())
	assert.Same(t, mid, a.Node(mid.ID()), "removed nodes keep their id")
}

func TestReachedSetOrder(t *testing.T) {
	for _, bfs := range []bool{false, true} {
		a := NewArena()
		r := NewReachedSet(bfs)
		root := a.NewNode(state("root"))
		r.Add(root, state("p"))
		require.Same(t, root, r.PopFromWaitlist())
		x := a.NewNode(state("x"), root)
		y := a.NewNode(state("y"), root)
		r.Add(x, state("p"))
		r.Add(y, state("q"))

		assert.Same(t, root, r.First())
		assert.Same(t, y, r.Last())
		assert.Same(t, x, r.Lookup("x"))
		assert.Nil(t, r.Lookup("z"))
		assert.Equal(t, "q", r.Precision(y).Key())
		assert.Equal(t, 3, r.Size())
		assert.Equal(t, 2, r.WaitlistSize())

		next := r.PopFromWaitlist()
		if bfs {
			assert.Same(t, x, next)
		} else {
			assert.Same(t, y, next)
		}
		r.Reopen(next)
		r.Reopen(next)
		assert.Equal(t, 2, r.WaitlistSize(), "a node is waiting at most once")
	}
}

func TestReachedSetAddTwice(t *testing.T) {
	a := NewArena()
	r := NewReachedSet(false)
	n := a.NewNode(state("n"))
	r.Add(n, state("p"))
	assert.Panics(t, func() { r.Add(n, state("p")) })
}

func TestRemoveSubtree(t *testing.T) {
	a := NewArena()
	r := NewReachedSet(false)
	root := a.NewNode(state("root"))
	mid := a.NewNode(state("mid"), root)
	leaf := a.NewNode(state("leaf"), mid)
	other := a.NewNode(state("other"), root)
	for _, n := range []*Node{root, mid, leaf, other} {
		r.Add(n, state("p"))
	}
	for r.PopFromWaitlist() != nil {
	}

	r.RemoveSubtree(mid)
	assert.Equal(t, []ID{1, 4}, ids(r.Nodes()))
	assert.False(t, r.Contains(leaf))
	assert.Nil(t, r.Lookup("mid"))
	assert.True(t, leaf.IsDestroyed())
	assert.Same(t, other, r.Last())
	assert.Same(t, root, r.PopFromWaitlist(), "the parents of the removed node are waiting again")
	assert.Nil(t, r.PopFromWaitlist())
	assert.Equal(t, []ID{4}, ids(root.Children()))
}

func TestOwnership(t *testing.T) {
	a := NewArena()
	r := NewReachedSet(false)
	n := a.NewNode(state("n"))
	r.Add(n, state("p"))

	assert.True(t, r.TryAcquire("a"))
	assert.True(t, r.TryAcquire("a"))
	assert.False(t, r.TryAcquire("b"))
	assert.True(t, r.IsOwned())
	assert.False(t, r.Destroy(), "an owned reached set is not destroyed")
	assert.False(t, n.IsDestroyed())

	r.Release("b")
	assert.True(t, r.IsOwned())
	r.Release("a")
	assert.False(t, r.IsOwned())
	assert.True(t, r.Destroy())
	assert.True(t, r.IsDestroyed())
	assert.True(t, n.IsDestroyed())
}

func TestConcurrentAcquire(t *testing.T) {
	defer goleak.VerifyNone(t)
	r := NewReachedSet(false)
	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if r.TryAcquire(i) {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 1, winners)
}

func TestCopySubtree(t *testing.T) {
	a := NewArena()
	root := a.NewNode(state("root"))
	left := a.NewNode(state("left"), root)
	right := a.NewNode(state("right"), root)
	a.NewNode(target("join"), left, right)
	a.NewNode(state("unrelated"))

	c := CopySubtree(root)
	assert.NotSame(t, root, c)
	assert.Equal(t, ID(1), c.ID())
	sub := c.Subtree()
	require.Len(t, sub, 4)
	assert.Equal(t, "join", sub[3].State().Key())
	assert.True(t, sub[3].IsTarget())
	assert.Len(t, sub[3].Parents(), 2)
	assert.Equal(t, 5, a.Len(), "the original arena is unchanged")
}
