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

package explicit

import (
	"github.com/awslabs/argot-bam/analysis/cfa"
	"github.com/awslabs/argot-bam/analysis/cpa"
	"github.com/awslabs/argot-bam/analysis/domains/location"
	"github.com/awslabs/argot-bam/internal/funcutil"
)

// Reducer keeps, at the entry of a block, the globals and the local variables of the functions of the block. The
// other variables cannot be read nor written inside the block, and are restored from the caller on expansion.
type Reducer struct {
	analysis *Analysis
	location location.Reducer
}

// visible returns a predicate on variable names, true for the globals and the locals of the functions of block
func (r *Reducer) visible(block *cfa.Block) func(string) bool {
	functions := block.Functions()
	return func(v string) bool {
		if r.analysis.globals[v] {
			return true
		}
		fn := owner(v)
		return fn != "" && funcutil.Contains(functions, fn)
	}
}

// ReducedState implements cpa.Reducer
func (r *Reducer) ReducedState(state cpa.AbstractState, block *cfa.Block, entry *cfa.Node) cpa.AbstractState {
	s := state.(State)
	keep := r.visible(block)
	vars := map[string]int64{}
	for k, v := range s.vars {
		if keep(k) {
			vars[k] = v
		}
	}
	loc := r.location.ReducedState(s.loc, block, entry).(location.State)
	return State{loc: loc, vars: vars}
}

// ReducedPrecision implements cpa.Reducer
func (r *Reducer) ReducedPrecision(prec cpa.Precision, block *cfa.Block) cpa.Precision {
	return prec.(Precision).restrict(r.visible(block))
}

// ExpandedState implements cpa.Reducer. The variables visible in the block take their value in the exit state; the
// others keep their value in the caller.
func (r *Reducer) ExpandedState(caller cpa.AbstractState, inner *cfa.Block, exit cpa.AbstractState) cpa.AbstractState {
	c := caller.(State)
	e := exit.(State)
	visible := r.visible(inner)
	vars := make(map[string]int64, len(c.vars)+len(e.vars))
	for k, v := range c.vars {
		if !visible(k) {
			vars[k] = v
		}
	}
	for k, v := range e.vars {
		vars[k] = v
	}
	loc := r.location.ExpandedState(c.loc, inner, e.loc).(location.State)
	return State{loc: loc, vars: vars}
}

// ExpandedPrecision implements cpa.Reducer
func (r *Reducer) ExpandedPrecision(caller cpa.Precision, _ *cfa.Block, exit cpa.Precision) cpa.Precision {
	return caller.(Precision).union(exit.(Precision))
}

// CanBeUsedInCache implements cpa.Reducer
func (r *Reducer) CanBeUsedInCache(cpa.AbstractState) bool { return true }
