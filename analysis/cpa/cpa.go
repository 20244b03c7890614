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

// Package cpa defines the contracts between the exploration engine and the analysis domains plugged into it: abstract
// states, precisions, the transfer relation computing successors, and the reducer that abstracts states at block
// boundaries.
package cpa

import (
	"context"

	"github.com/awslabs/argot-bam/analysis/cfa"
)

// AbstractState is a value produced by an analysis domain. The engine never looks inside a state: it only compares
// keys and wraps states in search nodes.
type AbstractState interface {
	// Key identifies the state. Two states are equal if and only if their keys are equal.
	Key() string
}

// Precision is a value that controls how precisely the analysis computes successors.
type Precision interface {
	// Key identifies the precision. Two precisions are equal if and only if their keys are equal.
	Key() string
}

// Targetable is implemented by states that may represent a violation of the property being checked.
type Targetable interface {
	IsTarget() bool
}

// Locatable is implemented by states that know their program location. The block-abstraction engine requires its
// states to be Locatable.
type Locatable interface {
	Location() *cfa.Node
}

// IsTarget returns true if the state is a target state
func IsTarget(s AbstractState) bool {
	t, ok := s.(Targetable)
	return ok && t.IsTarget()
}

// LocationOf returns the location of a state, or nil if the state is not Locatable.
func LocationOf(s AbstractState) *cfa.Node {
	if l, ok := s.(Locatable); ok {
		return l.Location()
	}
	return nil
}

// TransferRelation computes the abstract successors of states
type TransferRelation interface {
	// AbstractSuccessors returns the successors of state along all the edges leaving its location.
	AbstractSuccessors(ctx context.Context, state AbstractState, prec Precision) ([]AbstractState, error)

	// Strengthen refines state using the states of other analyses at the same point. Domains that do not need it
	// return the state unchanged.
	Strengthen(ctx context.Context, state AbstractState, others []AbstractState, edge *cfa.Edge,
		prec Precision) ([]AbstractState, error)
}

// RecursionAware is implemented by transfer relations that need to know when successors are computed for a call
// into a block that is already active.
type RecursionAware interface {
	EnableRecursiveContext()
	DisableRecursiveContext()
}

// Reducer abstracts states at the entry of a block and expands block results back into the caller's context.
//
// ReducedState and ReducedPrecision must be pure functions of their inputs: the keys of their results are used as
// cache keys.
type Reducer interface {
	// ReducedState returns the block-local abstraction of state at the call node entry of block.
	ReducedState(state AbstractState, block *cfa.Block, entry *cfa.Node) AbstractState

	// ReducedPrecision returns the block-local precision
	ReducedPrecision(prec Precision, block *cfa.Block) Precision

	// ExpandedState lifts the reduced exit state of the inner block back into the context of caller, the state at
	// which the block was entered.
	ExpandedState(caller AbstractState, inner *cfa.Block, exit AbstractState) AbstractState

	// ExpandedPrecision lifts the precision of a reduced exit state into the precision of the outer block.
	ExpandedPrecision(caller Precision, outer *cfa.Block, exit Precision) Precision

	// CanBeUsedInCache returns false for states whose reduction would be unsound to memoize.
	CanBeUsedInCache(state AbstractState) bool
}

// Analysis is an analysis domain that can be run by the engine. Each top-level run gets its own transfer relation;
// the reducer is shared and must be safe for concurrent use.
type Analysis interface {
	InitialState(entry *cfa.Node) AbstractState
	InitialPrecision(entry *cfa.Node) Precision
	NewTransferRelation() TransferRelation
	Reducer() Reducer
}
