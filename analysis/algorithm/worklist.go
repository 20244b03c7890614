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

// Package algorithm contains the generic fixpoint engine that explores a reached set until its waitlist is empty or a
// target state is found.
package algorithm

import (
	"context"
	"errors"
	"fmt"

	"github.com/awslabs/argot-bam/analysis/arg"
	"github.com/awslabs/argot-bam/analysis/config"
	"github.com/awslabs/argot-bam/analysis/cpa"
)

// ErrInterrupted is returned when a run is cancelled through its context
var ErrInterrupted = errors.New("analysis interrupted")

// Interrupted returns an error matching both ErrInterrupted and the error of the context
func Interrupted(ctx context.Context) error {
	return fmt.Errorf("%w: %w", ErrInterrupted, ctx.Err())
}

// Successor is a new node computed by a Stepper. A nil Precision means that the node inherits the precision of the
// node it was computed from.
type Successor struct {
	Node      *arg.Node
	Precision cpa.Precision
}

// Stepper computes the successors of a node. The successors must be fresh nodes already linked to their parent.
type Stepper interface {
	Successors(ctx context.Context, node *arg.Node, prec cpa.Precision) ([]Successor, error)
}

// Engine explores a reached set in place
type Engine interface {
	Run(ctx context.Context, reached *arg.ReachedSet) error
}

// Factory returns a new engine using step to compute successors. Engines are not re-entrant, so nested explorations
// use a fresh engine obtained from the factory.
type Factory func(step Stepper) Engine

// Worklist is the standard engine: it pops nodes from the waitlist, computes their successors, drops the successors
// whose state is already in the reached set, and stops as soon as a target state is added.
type Worklist struct {
	step   Stepper
	logger *config.LogGroup
	steps  int
}

// NewWorklist returns a worklist engine
func NewWorklist(step Stepper, logger *config.LogGroup) *Worklist {
	return &Worklist{step: step, logger: logger}
}

// WorklistFactory returns a Factory creating worklist engines that log to logger
func WorklistFactory(logger *config.LogGroup) Factory {
	return func(step Stepper) Engine { return NewWorklist(step, logger) }
}

// Steps returns the number of nodes whose successors have been computed
func (w *Worklist) Steps() int {
	return w.steps
}

// Run explores reached until its waitlist is empty or a target is found. When a target is found, it is the last node
// of the reached set and the waitlist may still contain nodes.
func (w *Worklist) Run(ctx context.Context, reached *arg.ReachedSet) error {
	for {
		if ctx.Err() != nil {
			return Interrupted(ctx)
		}
		n := reached.PopFromWaitlist()
		if n == nil {
			return nil
		}
		if n.IsDestroyed() {
			continue
		}
		w.steps++
		prec := reached.Precision(n)
		successors, err := w.step.Successors(ctx, n, prec)
		if err != nil {
			// n is processed again if the exploration is resumed
			reached.Reopen(n)
			return err
		}
		w.logger.Tracef("%d successors for node %d", len(successors), n.ID())
		for i, s := range successors {
			if existing := reached.Lookup(s.Node.State().Key()); existing != nil {
				s.Node.RemoveFromARG()
				continue
			}
			p := s.Precision
			if p == nil {
				p = prec
			}
			reached.Add(s.Node, p)
			if s.Node.IsTarget() {
				w.logger.Debugf("target state found at node %d", s.Node.ID())
				for _, dropped := range successors[i+1:] {
					dropped.Node.RemoveFromARG()
				}
				// the dropped successors are computed again if the exploration is resumed
				if i+1 < len(successors) {
					reached.Reopen(n)
				}
				return nil
			}
		}
	}
}
