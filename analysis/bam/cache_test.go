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
	"sync"
	"sync/atomic"
	"testing"

	"github.com/awslabs/argot-bam/analysis/arg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// key is a state and precision identified by its string
type key string

func (k key) Key() string { return string(k) }

func TestCachePutGet(t *testing.T) {
	_, p := load(t, twoCalls)
	block := p.BlockForFunction("f")
	arena := arg.NewArena()
	c := NewResultCache(4, false)

	reached, states := c.Get(key("s"), key("p"), block)
	assert.Nil(t, reached)
	assert.Nil(t, states)

	r := arg.NewReachedSet(false)
	root := arena.NewReducedRoot(key("s"), block)
	r.Add(root, key("p"))
	exit := arena.NewNode(key("exit"), root)
	r.Add(exit, key("p"))
	_ = r.PopFromWaitlist()
	_ = r.PopFromWaitlist()

	c.Put(key("s"), key("p"), block, r, []*arg.Node{exit}, nil)
	entry, ok := c.Entry(key("s"), key("p"), block)
	require.True(t, ok)
	assert.Equal(t, CacheKey(key("s"), key("p"), block), entry.Key)

	// putting the same result again keeps the entry
	c.Put(key("s"), key("p"), block, r, []*arg.Node{exit}, nil)
	again, _ := c.Entry(key("s"), key("p"), block)
	assert.Same(t, entry, again)

	reached, states = c.Get(key("s"), key("p"), block)
	assert.Same(t, r, reached)
	assert.Equal(t, []*arg.Node{exit}, states)
	assert.True(t, IsCacheHit(reached, states))

	// other precisions are other entries
	reached, _ = c.Get(key("s"), key("q"), block)
	assert.Nil(t, reached)

	// a nil result is an empty final result
	c.Put(key("t"), key("p"), block, arg.NewReachedSet(false), nil, nil)
	e, ok := c.Entry(key("t"), key("p"), block)
	require.True(t, ok)
	assert.False(t, e.IsPartial())
	assert.Empty(t, e.ReturnStates)

	entries := c.Entries()
	require.Len(t, entries, 2)
	assert.Less(t, entries[0].Key, entries[1].Key)

	c.Remove(key("s"), key("p"), block)
	assert.True(t, r.IsDestroyed())
	assert.True(t, exit.IsDestroyed())
	assert.Equal(t, 1, c.Len())
	c.Clear()
	assert.Equal(t, 0, c.Len())
}

func TestCacheRemoveOwned(t *testing.T) {
	_, p := load(t, twoCalls)
	block := p.BlockForFunction("f")
	c := NewResultCache(4, false)
	r, created := c.CreateAndRegisterNewReachedSet(key("s"), key("p"), block, func(r *arg.ReachedSet) {
		r.TryAcquire("run")
	})
	require.True(t, created)
	c.Remove(key("s"), key("p"), block)
	assert.Equal(t, 0, c.Len())
	assert.False(t, r.IsDestroyed(), "a reached set being explored is not destroyed")
}

func TestIsCacheHit(t *testing.T) {
	_, p := load(t, partial)
	block := p.BlockForFunction("g")
	arena := arg.NewArena()
	r := arg.NewReachedSet(false)
	root := arena.NewReducedRoot(key("root"), block)
	r.Add(root, key("p"))
	other := arena.NewNode(key("other"), root)
	r.Add(other, key("p"))

	assert.False(t, IsCacheHit(nil, nil))
	assert.False(t, IsCacheHit(r, nil), "partial entry")
	assert.False(t, IsCacheHit(r, []*arg.Node{other}), "waiting nodes and no target")

	target := arena.NewNode(targetState("error"), root)
	r.Add(target, key("p"))
	assert.True(t, IsCacheHit(r, []*arg.Node{target}))
	assert.False(t, IsCacheHit(r, []*arg.Node{other, target}))

	for r.PopFromWaitlist() != nil {
	}
	assert.True(t, IsCacheHit(r, []*arg.Node{other}))
	assert.True(t, IsCacheHit(r, []*arg.Node{}))
}

type targetState string

func (s targetState) Key() string    { return string(s) }
func (s targetState) IsTarget() bool { return true }

func TestCreateAndRegisterConcurrently(t *testing.T) {
	defer goleak.VerifyNone(t)
	_, p := load(t, twoCalls)
	block := p.BlockForFunction("f")
	arena := arg.NewArena()
	c := NewResultCache(8, false)

	const workers = 16
	var created atomic.Int32
	results := make([]*arg.ReachedSet, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r, ok := c.CreateAndRegisterNewReachedSet(key("s"), key("p"), block, func(r *arg.ReachedSet) {
				r.Add(arena.NewReducedRoot(key("s"), block), key("p"))
			})
			if ok {
				created.Add(1)
			}
			results[i] = r
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), created.Load())
	for _, r := range results {
		assert.Same(t, results[0], r)
		require.NotNil(t, r.First(), "the reached set is initialized before it is shared")
	}
	assert.Equal(t, 1, arena.Len())
	entry, ok := c.Entry(key("s"), key("p"), block)
	require.True(t, ok)
	assert.True(t, entry.IsPartial())
}
