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

// Package location implements the reachability analysis of program locations with their call stack. It is the
// coarsest analysis that the block-abstraction engine can run, and the location component of the other domains.
package location

import (
	"context"
	"fmt"

	"github.com/awslabs/argot-bam/analysis/cfa"
	"github.com/awslabs/argot-bam/analysis/cpa"
	"github.com/awslabs/argot-bam/analysis/domains/callstack"
)

// State is a location with the call stack that led to it. Error locations are targets.
type State struct {
	node  *cfa.Node
	stack callstack.Stack
}

// NewState returns the state at node with stack
func NewState(node *cfa.Node, stack callstack.Stack) State {
	return State{node: node, stack: stack}
}

// Initial returns the state at the entry node of a function, with a single frame
func Initial(entry *cfa.Node) State {
	return State{node: entry, stack: callstack.New(entry.Function)}
}

// Key implements cpa.AbstractState
func (s State) Key() string {
	return fmt.Sprintf("N%d|%s", s.node.ID, s.stack.Key())
}

// Location implements cpa.Locatable
func (s State) Location() *cfa.Node { return s.node }

// Stack returns the call stack
func (s State) Stack() callstack.Stack { return s.stack }

// IsTarget implements cpa.Targetable
func (s State) IsTarget() bool { return s.node.IsError }

func (s State) String() string {
	return fmt.Sprintf("%s [%s]", s.node, s.stack)
}

// Step returns the state after edge, and false if the edge cannot be taken from s. A return edge can only be taken
// to the return site of the top frame. Calls to functions already on the stack fail unless recursive is set.
func Step(s State, edge *cfa.Edge, recursive bool) (State, bool, error) {
	switch edge.Kind {
	case cfa.CallEdge:
		stack, err := s.stack.Push(edge.Succ.Function, edge.ReturnSite, recursive)
		if err != nil {
			return State{}, false, err
		}
		return State{node: edge.Succ, stack: stack}, true, nil
	case cfa.ReturnEdge:
		if s.stack.Depth() < 2 || s.stack.Top().ReturnSite != edge.Succ {
			return State{}, false, nil
		}
		return State{node: edge.Succ, stack: s.stack.Pop()}, true, nil
	default:
		return State{node: edge.Succ, stack: s.stack}, true, nil
	}
}

// Precision is the only precision of the analysis
type Precision struct{}

// Key implements cpa.Precision
func (Precision) Key() string { return "location" }

// TransferRelation follows all the edges leaving a location
type TransferRelation struct {
	recursive bool
}

// Recursive returns true while the successors of a recursive call are computed
func (t *TransferRelation) Recursive() bool { return t.recursive }

// EnableRecursiveContext implements cpa.RecursionAware
func (t *TransferRelation) EnableRecursiveContext() { t.recursive = true }

// DisableRecursiveContext implements cpa.RecursionAware
func (t *TransferRelation) DisableRecursiveContext() { t.recursive = false }

// AbstractSuccessors implements cpa.TransferRelation
func (t *TransferRelation) AbstractSuccessors(_ context.Context, state cpa.AbstractState,
	_ cpa.Precision) ([]cpa.AbstractState, error) {
	s := state.(State)
	var res []cpa.AbstractState
	for _, e := range s.node.Leaving {
		next, ok, err := Step(s, e, t.recursive)
		if err != nil {
			return nil, err
		}
		if ok {
			res = append(res, next)
		}
	}
	return res, nil
}

// Strengthen implements cpa.TransferRelation
func (t *TransferRelation) Strengthen(_ context.Context, state cpa.AbstractState, _ []cpa.AbstractState,
	_ *cfa.Edge, _ cpa.Precision) ([]cpa.AbstractState, error) {
	return []cpa.AbstractState{state}, nil
}

// Reducer reduces the call stack to the frame of the entered block
type Reducer struct{}

// ReducedState implements cpa.Reducer
func (Reducer) ReducedState(state cpa.AbstractState, _ *cfa.Block, _ *cfa.Node) cpa.AbstractState {
	s := state.(State)
	return State{node: s.node, stack: s.stack.Reduce()}
}

// ReducedPrecision implements cpa.Reducer
func (Reducer) ReducedPrecision(prec cpa.Precision, _ *cfa.Block) cpa.Precision { return prec }

// ExpandedState implements cpa.Reducer
func (Reducer) ExpandedState(caller cpa.AbstractState, _ *cfa.Block, exit cpa.AbstractState) cpa.AbstractState {
	c := caller.(State)
	e := exit.(State)
	return State{node: e.node, stack: c.stack.Expand(e.stack)}
}

// ExpandedPrecision implements cpa.Reducer
func (Reducer) ExpandedPrecision(caller cpa.Precision, _ *cfa.Block, _ cpa.Precision) cpa.Precision {
	return caller
}

// CanBeUsedInCache implements cpa.Reducer
func (Reducer) CanBeUsedInCache(cpa.AbstractState) bool { return true }

// Analysis is the location analysis
type Analysis struct{}

// InitialState implements cpa.Analysis
func (Analysis) InitialState(entry *cfa.Node) cpa.AbstractState { return Initial(entry) }

// InitialPrecision implements cpa.Analysis
func (Analysis) InitialPrecision(*cfa.Node) cpa.Precision { return Precision{} }

// NewTransferRelation implements cpa.Analysis
func (Analysis) NewTransferRelation() cpa.TransferRelation { return &TransferRelation{} }

// Reducer implements cpa.Analysis
func (Analysis) Reducer() cpa.Reducer { return Reducer{} }
