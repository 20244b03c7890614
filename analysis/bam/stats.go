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
	"fmt"
	"io"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Statistics counts the decisions taken at block entries. The metrics are registered on a private registry, so that
// several engines can live in one process.
type Statistics struct {
	registry *prometheus.Registry

	BlockEntries        prometheus.Counter
	CacheHits           prometheus.Counter
	PartialHits         prometheus.Counter
	CacheMisses         prometheus.Counter
	RecursiveEntries    prometheus.Counter
	MissingBlockRetries prometheus.Counter
	MaxRecursionDepth   prometheus.Gauge

	mu       sync.Mutex
	maxDepth int
}

// NewStatistics returns zeroed statistics
func NewStatistics() *Statistics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	counter := func(name, help string) prometheus.Counter {
		return factory.NewCounter(prometheus.CounterOpts{Namespace: "bam", Name: name, Help: help})
	}
	return &Statistics{
		registry:            reg,
		BlockEntries:        counter("block_entries_total", "Number of block entries."),
		CacheHits:           counter("cache_hits_total", "Number of block entries answered from the cache."),
		PartialHits:         counter("cache_partial_hits_total", "Number of block entries resuming a partial result."),
		CacheMisses:         counter("cache_misses_total", "Number of block entries explored from scratch."),
		RecursiveEntries:    counter("recursive_entries_total", "Number of entries of blocks already active."),
		MissingBlockRetries: counter("missing_block_retries_total", "Number of re-runs after a missing block."),
		MaxRecursionDepth: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "bam",
			Name:      "max_recursion_depth",
			Help:      "Maximal depth of the block call stack.",
		}),
	}
}

// Registry returns the registry holding the metrics
func (s *Statistics) Registry() *prometheus.Registry {
	return s.registry
}

func (s *Statistics) observeDepth(depth int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if depth > s.maxDepth {
		s.maxDepth = depth
		s.MaxRecursionDepth.Set(float64(depth))
	}
}

// MaxDepth returns the maximal call stack depth observed
func (s *Statistics) MaxDepth() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxDepth
}

// Print writes a summary of the statistics
func (s *Statistics) Print(w io.Writer) error {
	families, err := s.registry.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather statistics: %w", err)
	}
	for _, f := range families {
		for _, m := range f.GetMetric() {
			var v float64
			switch {
			case m.GetCounter() != nil:
				v = m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				v = m.GetGauge().GetValue()
			}
			if _, err := fmt.Fprintf(w, "%-40s %g\n", f.GetName(), v); err != nil {
				return err
			}
		}
	}
	return nil
}
