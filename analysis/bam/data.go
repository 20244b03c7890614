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
)

// expansion records how an expanded node was produced
type expansion struct {
	reduced   *arg.Node
	precision cpa.Precision
	block     *cfa.Block
}

// DataManager relates the nodes of different reached sets: the node at which a block is entered (initial state) to
// the reached set explored for it, expanded block exits to the reduced exits they were produced from, and reduced
// roots to the nodes they were entered from. All lookups are map accesses; it is safe for concurrent use.
type DataManager struct {
	cache *ResultCache

	// initial node -> reduced exit node -> reached set
	initialToReached *shardmap.Map[arg.ID, map[arg.ID]*arg.ReachedSet]
	// initial node -> reached set explored for it
	initialToBlock *shardmap.Map[arg.ID, *arg.ReachedSet]
	// reduced root -> initial nodes, in registration order
	rootToInitial *shardmap.Map[arg.ID, []*arg.Node]
	// expanded node -> expansion
	expanded *shardmap.Map[arg.ID, expansion]
	// locations where blocks must not be entered
	uncached *shardmap.Map[int, bool]
}

// NewDataManager returns an empty manager for the reached sets of cache
func NewDataManager(cache *ResultCache, shards int) *DataManager {
	return &DataManager{
		cache:            cache,
		initialToReached: shardmap.NewInt[arg.ID, map[arg.ID]*arg.ReachedSet](shards),
		initialToBlock:   shardmap.NewInt[arg.ID, *arg.ReachedSet](shards),
		rootToInitial:    shardmap.NewInt[arg.ID, []*arg.Node](shards),
		expanded:         shardmap.NewInt[arg.ID, expansion](shards),
		uncached:         shardmap.NewInt[int, bool](shards),
	}
}

// Cache returns the result cache
func (d *DataManager) Cache() *ResultCache {
	return d.cache
}

// RegisterInitialState records that the block entered at initial has been explored in reached, with the given
// reduced exits.
func (d *DataManager) RegisterInitialState(initial *arg.Node, reached *arg.ReachedSet, exits []*arg.Node) {
	d.initialToBlock.Store(initial.ID(), reached)
	d.initialToReached.Update(initial.ID(), func(old map[arg.ID]*arg.ReachedSet, _ bool) map[arg.ID]*arg.ReachedSet {
		m := make(map[arg.ID]*arg.ReachedSet, len(old)+len(exits))
		for k, v := range old {
			m[k] = v
		}
		for _, exit := range exits {
			m[exit.ID()] = reached
		}
		return m
	})
	root := reached.First()
	if root == nil {
		return
	}
	d.rootToInitial.Update(root.ID(), func(old []*arg.Node, _ bool) []*arg.Node {
		for _, n := range old {
			if n == initial {
				return old
			}
		}
		res := make([]*arg.Node, len(old), len(old)+1)
		copy(res, old)
		return append(res, initial)
	})
}

// RegisterExpandedState records that expanded has been produced from the reduced exit of inner
func (d *DataManager) RegisterExpandedState(expanded *arg.Node, prec cpa.Precision, reduced *arg.Node,
	inner *cfa.Block) {
	d.expanded.Store(expanded.ID(), expansion{reduced: reduced, precision: prec, block: inner})
}

// HasInitialState returns true if a block has been entered at n
func (d *DataManager) HasInitialState(n *arg.Node) bool {
	_, ok := d.initialToBlock.Load(n.ID())
	return ok
}

// HasExpandedState returns true if n is a registered expanded block exit
func (d *DataManager) HasExpandedState(n *arg.Node) bool {
	_, ok := d.expanded.Load(n.ID())
	return ok
}

// ReducedStateForExpandedState returns the reduced exit an expanded node has been produced from, or nil
func (d *DataManager) ReducedStateForExpandedState(n *arg.Node) *arg.Node {
	e, ok := d.expanded.Load(n.ID())
	if !ok {
		return nil
	}
	return e.reduced
}

// ExpandedPrecision returns the precision an expanded node has been added with, or nil
func (d *DataManager) ExpandedPrecision(n *arg.Node) cpa.Precision {
	e, ok := d.expanded.Load(n.ID())
	if !ok {
		return nil
	}
	return e.precision
}

// InnerBlock returns the block whose exit has been expanded into n, or nil
func (d *DataManager) InnerBlock(n *arg.Node) *cfa.Block {
	e, ok := d.expanded.Load(n.ID())
	if !ok {
		return nil
	}
	return e.block
}

// ReachedSetForInitialState returns the reached set that produced the reduced exit when the block was entered at
// initial. If exit is nil, the reached set explored for initial is returned.
func (d *DataManager) ReachedSetForInitialState(initial *arg.Node, exit *arg.Node) *arg.ReachedSet {
	if exit == nil {
		r, _ := d.initialToBlock.Load(initial.ID())
		return r
	}
	m, ok := d.initialToReached.Load(initial.ID())
	if !ok {
		return nil
	}
	return m[exit.ID()]
}

// NonReducedInitialStates returns the nodes at which the reached set rooted at root has been entered, in the order
// they have been registered.
func (d *DataManager) NonReducedInitialStates(root *arg.Node) []*arg.Node {
	nodes, _ := d.rootToInitial.Load(root.ID())
	return nodes
}

// AddUncachedBlockEntry marks locations at which blocks must not be entered anymore
func (d *DataManager) AddUncachedBlockEntry(locations ...*cfa.Node) {
	for _, l := range locations {
		d.uncached.Store(l.ID, true)
	}
}

// IsUncachedBlockEntry returns true if blocks must not be entered at the location
func (d *DataManager) IsUncachedBlockEntry(location *cfa.Node) bool {
	_, ok := d.uncached.Load(location.ID)
	return ok
}

// Clear forgets all the registrations and clears the cache
func (d *DataManager) Clear() {
	d.cache.Clear()
	d.initialToReached.Clear()
	d.initialToBlock.Clear()
	d.rootToInitial.Clear()
	d.expanded.Clear()
	d.uncached.Clear()
}
