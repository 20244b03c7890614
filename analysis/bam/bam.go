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
	"errors"
	"fmt"

	"github.com/awslabs/argot-bam/analysis/algorithm"
	"github.com/awslabs/argot-bam/analysis/arg"
	"github.com/awslabs/argot-bam/analysis/cfa"
	"github.com/awslabs/argot-bam/analysis/config"
	"github.com/awslabs/argot-bam/analysis/cpa"
	"golang.org/x/sync/errgroup"
)

// BAM holds the state shared by all the runs of the block-abstraction memoization engine on one program: the search
// graph arena, the result cache, the data manager and the statistics.
type BAM struct {
	config       *config.Config
	logger       *config.LogGroup
	partitioning *cfa.Partitioning
	analysis     cpa.Analysis
	reducer      cpa.Reducer
	factory      algorithm.Factory

	arena *arg.Arena
	cache *ResultCache
	data  *DataManager
	stats *Statistics
}

// Option configures a BAM
type Option func(*BAM)

// WithEngineFactory sets the factory of the fixpoint engines used for the top-level and the nested runs. The default
// is the worklist engine.
func WithEngineFactory(f algorithm.Factory) Option {
	return func(b *BAM) { b.factory = f }
}

// WithStatistics sets the statistics updated by the engine
func WithStatistics(s *Statistics) Option {
	return func(b *BAM) { b.stats = s }
}

// New returns an engine analyzing the blocks of partitioning with analysis
func New(cfg *config.Config, logger *config.LogGroup, partitioning *cfa.Partitioning, analysis cpa.Analysis,
	opts ...Option) *BAM {
	cache := NewResultCache(cfg.BAM.CacheShards, cfg.UseBFS())
	b := &BAM{
		config:       cfg,
		logger:       logger,
		partitioning: partitioning,
		analysis:     analysis,
		reducer:      analysis.Reducer(),
		factory:      algorithm.WorklistFactory(logger),
		arena:        arg.NewArena(),
		cache:        cache,
		data:         NewDataManager(cache, cfg.BAM.CacheShards),
		stats:        NewStatistics(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Cache returns the result cache
func (b *BAM) Cache() *ResultCache { return b.cache }

// Data returns the data manager
func (b *BAM) Data() *DataManager { return b.data }

// Arena returns the arena of all the search nodes
func (b *BAM) Arena() *arg.Arena { return b.arena }

// Statistics returns the statistics
func (b *BAM) Statistics() *Statistics { return b.stats }

// Partitioning returns the block partitioning
func (b *BAM) Partitioning() *cfa.Partitioning { return b.partitioning }

// NewTransferRelation returns the transfer relation of a new top-level run starting in entry
func (b *BAM) NewTransferRelation(entry *cfa.Block) *TransferRelation {
	return &TransferRelation{bam: b, wrapped: b.analysis.NewTransferRelation(), entry: entry}
}

// NewSubgraphComputer returns a counterexample reconstructor for the reached sets of the engine
func (b *BAM) NewSubgraphComputer() *SubgraphComputer {
	return NewSubgraphComputer(b.partitioning, b.reducer, b.data, b.logger)
}

// NewExporter returns an exporter for the reached sets of the engine
func (b *BAM) NewExporter() *Exporter {
	return NewExporter(b.config, b.data, b.logger)
}

// CleanCaches discards all the memoized results
func (b *BAM) CleanCaches() {
	b.data.Clear()
}

// Result is the outcome of a top-level run
type Result struct {
	// Entry is the block the run started in
	Entry *cfa.Block

	// Reached is the top-level reached set
	Reached *arg.ReachedSet

	// Target is the target found by the run, nil if the entry block is safe
	Target *arg.Node

	// Counterexample is the subgraph from the root of Reached to Target, nil if the entry block is safe
	Counterexample *Subgraph

	// MaxDepth is the maximal depth of the block call stack during the run
	MaxDepth int
}

// Safe returns true if no target has been found
func (r *Result) Safe() bool {
	return r.Target == nil
}

// Witness returns the nodes of the counterexample path, or nil if the run found no target
func (r *Result) Witness() []*arg.Node {
	if r.Counterexample == nil || len(r.Counterexample.Targets) == 0 {
		return nil
	}
	return r.Counterexample.PathTo(r.Counterexample.Targets[0])
}

// Run analyzes the program from the main block
func (b *BAM) Run(ctx context.Context) (*Result, error) {
	return b.RunFrom(ctx, b.partitioning.MainBlock())
}

// RunFrom analyzes the program from the call node of entry, until the exploration is complete or a target is found.
// When a target is found, its counterexample is reconstructed; if a block on the counterexample is missing from the
// cache, the exploration is resumed to recompute it.
func (b *BAM) RunFrom(ctx context.Context, entry *cfa.Block) (*Result, error) {
	t := b.NewTransferRelation(entry)
	loc := entry.CallNode()
	reached := arg.NewReachedSet(b.config.UseBFS())
	reached.Add(b.arena.NewNode(b.analysis.InitialState(loc)), b.analysis.InitialPrecision(loc))
	engine := b.factory(t)
	computer := b.NewSubgraphComputer()

	b.logger.Debugf("starting analysis of %s", entry.Name())
	for retries := 0; ; retries++ {
		if err := engine.Run(ctx, reached); err != nil {
			return nil, fmt.Errorf("analysis of %s failed: %w", entry.Name(), err)
		}
		res := &Result{Entry: entry, Reached: reached, MaxDepth: t.MaxDepth()}
		last := reached.Last()
		if last == nil || !last.IsTarget() {
			b.logger.Debugf("%s is safe (%d nodes)", entry.Name(), reached.Size())
			return res, nil
		}
		subgraph, err := computer.ComputeCounterexampleSubgraph(reached, []*arg.Node{last})
		if err == nil {
			res.Target = last
			res.Counterexample = subgraph
			return res, nil
		}
		if !errors.Is(err, ErrMissingBlock) {
			return nil, err
		}
		if retries >= b.config.BAM.MaxMissingBlockRetries {
			return nil, fmt.Errorf("counterexample of %s still refers to missing blocks after %d retries: %w",
				entry.Name(), retries, err)
		}
		b.stats.MissingBlockRetries.Inc()
		b.logger.Infof("%v, recomputing (retry %d)", err, retries+1)
	}
}

// RunPortfolio runs the analysis from each entry block concurrently. The runs share the cache, so a block explored
// by one run is reused by the others. The first error cancels the other runs.
func (b *BAM) RunPortfolio(ctx context.Context, entries []*cfa.Block) ([]*Result, error) {
	results := make([]*Result, len(entries))
	g, ctx := errgroup.WithContext(ctx)
	for i, entry := range entries {
		i, entry := i, entry
		g.Go(func() error {
			r, err := b.RunFrom(ctx, entry)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
