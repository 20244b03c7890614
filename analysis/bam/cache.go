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
	"github.com/awslabs/argot-bam/analysis/cfa"
	"github.com/awslabs/argot-bam/analysis/cpa"
	"github.com/awslabs/argot-bam/internal/shardmap"
	"golang.org/x/exp/slices"
)

// CacheKey returns the key of the cache entry for a reduced state, a reduced precision and a block
func CacheKey(state cpa.AbstractState, prec cpa.Precision, block *cfa.Block) string {
	return state.Key() + "!" + prec.Key() + "!" + block.Key()
}

// CacheEntry is the memoized result of a block invocation.
type CacheEntry struct {
	// Key is the CacheKey of the entry
	Key string

	// Block is the block the entry has been computed for
	Block *cfa.Block

	// Reached is the reached set explored for the block invocation
	Reached *arg.ReachedSet

	// ReturnStates is nil while the exploration is unfinished (partial entry), and holds the reduced block exits
	// (or a single target) once the result is final.
	ReturnStates []*arg.Node

	// Proof is an optional detached copy of the search tree of the block
	Proof *arg.Node
}

// IsPartial returns true if the entry has no final result
func (e *CacheEntry) IsPartial() bool {
	return e.ReturnStates == nil
}

// ResultCache maps (reduced state, reduced precision, block) to the reached set explored for it and its return
// states. It is safe for concurrent use; each operation locks only the shard of its key.
type ResultCache struct {
	entries *shardmap.Map[string, *CacheEntry]
	bfs     bool
}

// NewResultCache returns an empty cache with the given number of shards. The reached sets it creates use a BFS
// waitlist if bfs is set.
func NewResultCache(shards int, bfs bool) *ResultCache {
	return &ResultCache{entries: shardmap.NewString[*CacheEntry](shards), bfs: bfs}
}

// Get returns the reached set and the return states stored for the key. It returns (nil, nil) on a miss, and
// (reached, nil) for a partial entry.
func (c *ResultCache) Get(state cpa.AbstractState, prec cpa.Precision, block *cfa.Block) (*arg.ReachedSet,
	[]*arg.Node) {
	e, ok := c.entries.Load(CacheKey(state, prec, block))
	if !ok {
		return nil, nil
	}
	return e.Reached, e.ReturnStates
}

// Put stores the final result of the key. Putting the same result twice leaves the cache unchanged.
// A nil returnStates is stored as an empty, final result.
func (c *ResultCache) Put(state cpa.AbstractState, prec cpa.Precision, block *cfa.Block, reached *arg.ReachedSet,
	returnStates []*arg.Node, proof *arg.Node) {
	if returnStates == nil {
		returnStates = []*arg.Node{}
	}
	key := CacheKey(state, prec, block)
	c.entries.Update(key, func(old *CacheEntry, ok bool) *CacheEntry {
		if ok && old.Reached == reached && slices.Equal(old.ReturnStates, returnStates) && old.Proof == proof {
			return old
		}
		return &CacheEntry{
			Key:          key,
			Block:        block,
			Reached:      reached,
			ReturnStates: append([]*arg.Node(nil), returnStates...),
			Proof:        proof,
		}
	})
}

// Remove invalidates the entry of the key. Its reached set is destroyed unless a run is exploring it, so that stale
// references to its nodes are detected during reconstruction.
func (c *ResultCache) Remove(state cpa.AbstractState, prec cpa.Precision, block *cfa.Block) {
	key := CacheKey(state, prec, block)
	var removed *CacheEntry
	c.entries.DeleteIf(key, func(e *CacheEntry) bool {
		removed = e
		return true
	})
	if removed != nil && removed.Reached != nil {
		removed.Reached.Destroy()
	}
}

// forget removes the entry of key if it still refers to reached, without destroying the reached set.
func (c *ResultCache) forget(key string, reached *arg.ReachedSet) {
	c.entries.DeleteIf(key, func(e *CacheEntry) bool { return e.Reached == reached })
}

// CreateAndRegisterNewReachedSet registers a fresh reached set as a partial entry for the key, unless an entry
// already exists. init is called on the new reached set before any other caller can observe it. It returns the
// reached set registered for the key and whether this call created it.
func (c *ResultCache) CreateAndRegisterNewReachedSet(state cpa.AbstractState, prec cpa.Precision, block *cfa.Block,
	init func(*arg.ReachedSet)) (*arg.ReachedSet, bool) {
	key := CacheKey(state, prec, block)
	e, loaded := c.entries.LoadOrCreate(key, func() *CacheEntry {
		reached := arg.NewReachedSet(c.bfs)
		if init != nil {
			init(reached)
		}
		return &CacheEntry{Key: key, Block: block, Reached: reached}
	})
	return e.Reached, !loaded
}

// Entry returns the entry of the key
func (c *ResultCache) Entry(state cpa.AbstractState, prec cpa.Precision, block *cfa.Block) (*CacheEntry, bool) {
	return c.entries.Load(CacheKey(state, prec, block))
}

// Entries returns all the entries, sorted by key
func (c *ResultCache) Entries() []*CacheEntry {
	var res []*CacheEntry
	c.entries.Range(func(_ string, e *CacheEntry) bool {
		res = append(res, e)
		return true
	})
	slices.SortFunc(res, func(a, b *CacheEntry) int {
		switch {
		case a.Key < b.Key:
			return -1
		case a.Key > b.Key:
			return 1
		}
		return 0
	})
	return res
}

// Len returns the number of entries, partial ones included
func (c *ResultCache) Len() int {
	return c.entries.Len()
}

// Clear removes all the entries. The reached sets are not destroyed: nodes of other reached sets may still refer to
// them.
func (c *ResultCache) Clear() {
	c.entries.Clear()
}

// IsCacheHit returns true if a stored result can be used without exploring its reached set further: either the
// exploration is finished, or it stopped at a target that is the only return state and the last node added.
func IsCacheHit(reached *arg.ReachedSet, returnStates []*arg.Node) bool {
	if reached == nil || returnStates == nil {
		return false
	}
	if !reached.HasWaiting() {
		return true
	}
	return len(returnStates) == 1 && returnStates[0] == reached.Last() && returnStates[0].IsTarget()
}
