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
	"context"
	"fmt"

	"github.com/awslabs/argot-bam/analysis/algorithm"
	"github.com/awslabs/argot-bam/analysis/arg"
	"github.com/awslabs/argot-bam/analysis/cfa"
	"github.com/awslabs/argot-bam/analysis/cpa"
	"golang.org/x/exp/slices"
)

// TransferRelation computes successors for one top-level run: it enters blocks at their call nodes, answering them
// from the cache or by exploring them with a nested engine run, stops at the return nodes of the block being
// explored, and delegates every other step to the transfer relation of the wrapped analysis.
//
// A TransferRelation must be the outermost transfer relation of the run, and is not safe for concurrent use. Several
// transfer relations of the same BAM can run concurrently.
type TransferRelation struct {
	bam     *BAM
	wrapped cpa.TransferRelation
	// entry is the block the run has been started on
	entry *cfa.Block
	stack CallStack
	// maxDepth is the maximal depth of the stack in this run
	maxDepth int
}

// Stack returns the block call stack of the run
func (t *TransferRelation) Stack() *CallStack {
	return &t.stack
}

// MaxDepth returns the maximal depth reached by the call stack of the run
func (t *TransferRelation) MaxDepth() int {
	return t.maxDepth
}

// current returns the block being explored
func (t *TransferRelation) current() *cfa.Block {
	if f := t.stack.top(); f != nil {
		return f.Block
	}
	return t.entry
}

// Successors implements algorithm.Stepper
func (t *TransferRelation) Successors(ctx context.Context, n *arg.Node, prec cpa.Precision) ([]algorithm.Successor,
	error) {
	if ctx.Err() != nil {
		return nil, algorithm.Interrupted(ctx)
	}
	loc := n.Location()
	if loc == nil {
		panic(fmt.Sprintf("state of %v has no location", n))
	}
	if t.exitBlockAnalysis(n, loc) {
		// the exploration of the block does not go beyond its return nodes
		return nil, nil
	}
	if t.startNewBlockAnalysis(n, loc) {
		return t.doRecursiveAnalysis(ctx, n, prec, loc)
	}
	return t.wrappedSuccessors(ctx, n, prec, loc)
}

// SuccessorsForEdge always fails: block entries need all the edges leaving a location at once.
func (t *TransferRelation) SuccessorsForEdge(_ context.Context, _ *arg.Node, _ cpa.Precision,
	_ *cfa.Edge) ([]algorithm.Successor, error) {
	return nil, ErrNotOutermost
}

// Strengthen delegates to the wrapped transfer relation
func (t *TransferRelation) Strengthen(ctx context.Context, state cpa.AbstractState, others []cpa.AbstractState,
	edge *cfa.Edge, prec cpa.Precision) ([]cpa.AbstractState, error) {
	if ctx.Err() != nil {
		return nil, algorithm.Interrupted(ctx)
	}
	return t.wrapped.Strengthen(ctx, state, others, edge, prec)
}

// exitBlockAnalysis returns true if loc is a return node of the block being explored. Exits of nested invocations of
// the same block, expanded into their caller, are not exits of the current invocation.
func (t *TransferRelation) exitBlockAnalysis(n *arg.Node, loc *cfa.Node) bool {
	p := t.bam.partitioning
	cur := t.current()
	if !p.IsReturnNode(loc) || !slices.Contains(p.BlocksForReturnNode(loc), cur) {
		return false
	}
	return !(n.Kind() == arg.BlockExitExpanded && n.Block() == cur)
}

// startNewBlockAnalysis returns true if a block must be entered at n: loc is a call node, n is not the root of the
// reached set, and the block is not the current one unless it is re-entered by a recursive call.
func (t *TransferRelation) startNewBlockAnalysis(n *arg.Node, loc *cfa.Node) bool {
	p := t.bam.partitioning
	if !p.IsCallNode(loc) || !n.HasParents() {
		return false
	}
	inner := p.BlockForCallNode(loc)
	if inner == t.current() && !isCallReentry(n, inner, loc) {
		return false
	}
	if t.bam.config.BAM.DynamicAdjustment && t.bam.data.IsUncachedBlockEntry(loc) {
		return false
	}
	return true
}

// isCallReentry returns true if the function block inner is entered at n through a call edge
func isCallReentry(n *arg.Node, inner *cfa.Block, loc *cfa.Node) bool {
	if !inner.IsFunctionBlock() {
		return false
	}
	for _, parent := range n.Parents() {
		if pl := parent.Location(); pl != nil && pl.HasCallEdgeTo(loc) {
			return true
		}
	}
	return false
}

// isRecursiveCall returns true if a call edge leaving loc enters a block that is active
func (t *TransferRelation) isRecursiveCall(loc *cfa.Node) bool {
	p := t.bam.partitioning
	for _, target := range loc.CallTargets() {
		b := p.BlockForCallNode(target)
		if b != nil && (b == t.current() || t.stack.containsBlock(b)) {
			return true
		}
	}
	return false
}

func (t *TransferRelation) wrappedSuccessors(ctx context.Context, n *arg.Node, prec cpa.Precision,
	loc *cfa.Node) ([]algorithm.Successor, error) {
	if t.isRecursiveCall(loc) {
		if ra, ok := t.wrapped.(cpa.RecursionAware); ok {
			ra.EnableRecursiveContext()
			defer ra.DisableRecursiveContext()
		}
	}
	states, err := t.wrapped.AbstractSuccessors(ctx, n.State(), prec)
	if err != nil {
		return nil, err
	}
	res := make([]algorithm.Successor, len(states))
	for i, s := range states {
		res[i] = algorithm.Successor{Node: t.bam.arena.NewNode(s, n)}
	}
	return res, nil
}

// doRecursiveAnalysis enters the block whose call node is loc, and returns the expansions of its results
func (t *TransferRelation) doRecursiveAnalysis(ctx context.Context, n *arg.Node, prec cpa.Precision,
	loc *cfa.Node) ([]algorithm.Successor, error) {
	b := t.bam
	inner := b.partitioning.BlockForCallNode(loc)
	outer := t.entry
	if top := t.stack.top(); top != nil {
		outer = top.Block
	}
	b.stats.BlockEntries.Inc()

	reducedState := b.reducer.ReducedState(n.State(), inner, loc)
	reducedPrec := b.reducer.ReducedPrecision(prec, inner)
	key := CacheKey(reducedState, reducedPrec, inner)

	recursive := inner == t.entry || t.stack.containsBlock(inner)
	if recursive {
		b.stats.RecursiveEntries.Inc()
		if i := t.stack.indexOfKey(key); i >= 0 {
			return t.approximate(i, n, prec, inner, outer), nil
		}
	}
	if maxDepth := b.config.BAM.MaxRecursionDepth; maxDepth > 0 && t.stack.Depth() >= maxDepth {
		return nil, fmt.Errorf("%w: depth %d reached when entering %s", ErrRecursionLimit, maxDepth, inner.Name())
	}

	f := &frame{
		Frame:     Frame{State: reducedState, Precision: reducedPrec, Block: inner},
		key:       key,
		entry:     n,
		recursive: recursive,
		handedOut: map[arg.ID]bool{},
	}
	t.stack.push(f)
	defer t.stack.pop(f)
	if d := t.stack.Depth(); d > t.maxDepth {
		t.maxDepth = d
		b.stats.observeDepth(d)
	}
	b.logger.Debugf("entering %s at node %d (depth %d, recursive: %t)", inner.Name(), n.ID(), t.stack.Depth(),
		recursive)

	returnStates, err := t.getReducedResult(ctx, f)
	if err != nil {
		return nil, wrapRecursiveFailure(inner, err)
	}
	b.data.RegisterInitialState(n, f.reached, returnStates)
	b.logger.Tracef("leaving %s with %d return states", inner.Name(), len(returnStates))
	return t.expandResultStates(returnStates, f.reached, inner, outer, n, prec), nil
}

// approximate answers a recursive re-entry of the frame at index i with the return states that frame has found so
// far. The frame will be explored again until its return states do not change anymore.
func (t *TransferRelation) approximate(i int, n *arg.Node, prec cpa.Precision, inner,
	outer *cfa.Block) []algorithm.Successor {
	owner := t.stack.frames[i]
	owner.needsIteration = true
	consumer := n
	if top := len(t.stack.frames) - 1; i < top {
		consumer = t.stack.frames[i+1].entry
		for _, f := range t.stack.frames[i+1:] {
			f.dependent = true
		}
	}
	owner.consumers = append(owner.consumers, consumer)
	returnStates := t.collectReturnStates(owner)
	for _, r := range returnStates {
		owner.handedOut[r.ID()] = true
	}
	t.bam.logger.Tracef("approximating recursive entry of %s at node %d with %d return states", inner.Name(),
		n.ID(), len(returnStates))
	t.bam.data.RegisterInitialState(n, owner.reached, returnStates)
	return t.expandResultStates(returnStates, owner.reached, inner, outer, n, prec)
}

// getReducedResult sets the reached set of the frame and returns its return states, exploring it if the cache has
// no usable result.
func (t *TransferRelation) getReducedResult(ctx context.Context, f *frame) ([]*arg.Node, error) {
	b := t.bam
	if f.recursive || !b.reducer.CanBeUsedInCache(f.entry.State()) {
		b.stats.CacheMisses.Inc()
		t.usePrivateReachedSet(f)
		return t.runBlock(ctx, f)
	}

	for f.reached == nil {
		reached, returnStates := b.cache.Get(f.State, f.Precision, f.Block)
		switch {
		case reached == nil:
			r, created := b.cache.CreateAndRegisterNewReachedSet(f.State, f.Precision, f.Block,
				func(r *arg.ReachedSet) {
					r.TryAcquire(t)
					r.Add(b.arena.NewReducedRoot(f.State, f.Block), f.Precision)
				})
			if created {
				b.stats.CacheMisses.Inc()
				b.logger.Tracef("cache miss for %s", f.Block.Name())
				f.reached = r
			}
			// otherwise another run registered the key first: look it up again
		case IsCacheHit(reached, returnStates):
			b.stats.CacheHits.Inc()
			b.logger.Tracef("cache hit for %s", f.Block.Name())
			f.reached = reached
			return returnStates, nil
		default:
			b.stats.PartialHits.Inc()
			if reached.TryAcquire(t) {
				b.logger.Tracef("resuming partial result for %s", f.Block.Name())
				f.reached = reached
			} else {
				b.logger.Debugf("partial result for %s is explored by another run", f.Block.Name())
				t.usePrivateReachedSet(f)
			}
		}
	}
	if !f.private {
		defer f.reached.Release(t)
	}

	returnStates, err := t.runBlock(ctx, f)
	if err != nil {
		// the entry stays partial
		return nil, err
	}
	switch {
	case f.private:
	case f.dependent:
		b.cache.forget(f.key, f.reached)
	default:
		var proof *arg.Node
		if b.config.BAM.ProofArtifacts {
			proof = arg.CopySubtree(f.reached.First())
		}
		b.cache.Put(f.State, f.Precision, f.Block, f.reached, returnStates, proof)
	}
	return returnStates, nil
}

// usePrivateReachedSet gives the frame a reached set that is not registered in the cache
func (t *TransferRelation) usePrivateReachedSet(f *frame) {
	f.private = true
	f.reached = arg.NewReachedSet(t.bam.config.UseBFS())
	f.reached.Add(t.bam.arena.NewReducedRoot(f.State, f.Block), f.Precision)
}

// runBlock explores the reached set of the frame with a fresh engine. If the frame has been re-entered recursively,
// the exploration is repeated until the return states handed out to the recursive entries are stable.
func (t *TransferRelation) runBlock(ctx context.Context, f *frame) ([]*arg.Node, error) {
	engine := t.bam.factory(t)
	maxIterations := t.bam.config.BAM.MaxFixpointIterations
	for iteration := 1; ; iteration++ {
		if err := engine.Run(ctx, f.reached); err != nil {
			return nil, err
		}
		if last := f.reached.Last(); last != nil && last.IsTarget() {
			// stop after the first target: it is the only result of the block
			return []*arg.Node{last}, nil
		}
		if f.reached.HasWaiting() {
			panic(fmt.Sprintf("exploration of %s stopped with a non-empty waitlist and no target", f.Block.Name()))
		}
		returnStates := t.collectReturnStates(f)
		if !f.needsIteration || f.isStable(returnStates) {
			return returnStates, nil
		}
		if maxIterations > 0 && iteration >= maxIterations {
			return nil, fmt.Errorf("%w: no fixpoint for %s after %d iterations", ErrRecursionLimit, f.Block.Name(),
				iteration)
		}
		t.bam.logger.Debugf("iterating %s: %d return states, %d recursive entries to update", f.Block.Name(),
			len(returnStates), len(f.consumers))
		consumers := f.consumers
		f.consumers = nil
		for _, c := range consumers {
			f.reached.Reopen(c)
		}
	}
}

// collectReturnStates returns the nodes of the reached set of f located at a return node of its block, excluding the
// expanded exits of nested invocations of the same block
func (t *TransferRelation) collectReturnStates(f *frame) []*arg.Node {
	var res []*arg.Node
	for _, n := range f.reached.Nodes() {
		loc := n.Location()
		if loc == nil || !f.Block.IsReturnNode(loc) || n.IsDestroyed() {
			continue
		}
		if n.Kind() == arg.BlockExitExpanded && n.Block() == f.Block {
			continue
		}
		res = append(res, n)
	}
	return res
}

// expandResultStates lifts the reduced exits of inner into the context of n, the node at which inner was entered.
// outer is the block containing n: the entry block of the run at the top level.
func (t *TransferRelation) expandResultStates(returnStates []*arg.Node, reached *arg.ReachedSet, inner,
	outer *cfa.Block, n *arg.Node, prec cpa.Precision) []algorithm.Successor {
	b := t.bam
	res := make([]algorithm.Successor, 0, len(returnStates))
	for _, r := range returnStates {
		reducedPrec := reached.Precision(r)
		if reducedPrec == nil {
			reducedPrec = reached.Precision(reached.First())
		}
		state := b.reducer.ExpandedState(n.State(), inner, r.State())
		expandedPrec := b.reducer.ExpandedPrecision(prec, outer, reducedPrec)
		expanded := b.arena.NewExpandedNode(state, n, inner, reached, r)
		b.data.RegisterExpandedState(expanded, expandedPrec, r, inner)
		if b.config.BAM.DynamicAdjustment && expanded.IsTarget() && b.reducer.CanBeUsedInCache(n.State()) {
			b.data.AddUncachedBlockEntry(inner.CallNodes()...)
		}
		res = append(res, algorithm.Successor{Node: expanded, Precision: expandedPrec})
	}
	return res
}
