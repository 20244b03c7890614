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
	"errors"
	"fmt"

	"github.com/awslabs/argot-bam/analysis/algorithm"
	"github.com/awslabs/argot-bam/analysis/arg"
	"github.com/awslabs/argot-bam/analysis/cfa"
)

var (
	// ErrMissingBlock is matched by the errors signalling that a cached reached set, or one of its nodes, has been
	// destroyed while it was still referenced.
	ErrMissingBlock = errors.New("missing block")

	// ErrInterrupted is matched by the errors of cancelled runs
	ErrInterrupted = algorithm.ErrInterrupted

	// ErrNotOutermost is returned when successors are requested for a single edge: the block-abstraction transfer
	// relation must be the outermost one.
	ErrNotOutermost = errors.New("block-abstraction memoization must be used as the outermost analysis")

	// ErrRecursionLimit is matched by the errors raised when the recursion depth or the number of fixpoint
	// iterations of a recursive block exceed their configured bound.
	ErrRecursionLimit = errors.New("recursion limit exceeded")
)

// MissingBlockError is raised when reconstruction reaches a reduced state that is destroyed or not registered
type MissingBlockError struct {
	Block *cfa.Block
	Node  *arg.Node
}

func (e *MissingBlockError) Error() string {
	if e.Block == nil {
		return fmt.Sprintf("missing block for node %d", e.Node.ID())
	}
	return fmt.Sprintf("missing block %s for node %d", e.Block.Name(), e.Node.ID())
}

// Is makes MissingBlockError match ErrMissingBlock
func (e *MissingBlockError) Is(target error) bool {
	return target == ErrMissingBlock
}

// RecursiveAnalysisFailedError wraps the errors raised while analyzing a nested block
type RecursiveAnalysisFailedError struct {
	Block *cfa.Block
	Err   error
}

func (e *RecursiveAnalysisFailedError) Error() string {
	if e.Block == nil {
		return fmt.Sprintf("recursive analysis failed: %v", e.Err)
	}
	return fmt.Sprintf("recursive analysis of %s failed: %v", e.Block.Name(), e.Err)
}

func (e *RecursiveAnalysisFailedError) Unwrap() error {
	return e.Err
}

// wrapRecursiveFailure wraps err unless it is a cancellation, a missing block, or already wrapped
func wrapRecursiveFailure(block *cfa.Block, err error) error {
	if err == nil {
		return nil
	}
	var raf *RecursiveAnalysisFailedError
	if errors.Is(err, ErrInterrupted) || errors.Is(err, ErrMissingBlock) || errors.As(err, &raf) {
		return err
	}
	return &RecursiveAnalysisFailedError{Block: block, Err: err}
}
