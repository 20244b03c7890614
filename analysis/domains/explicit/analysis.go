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
	"context"
	"fmt"
	"go/ast"
	"strings"

	"github.com/awslabs/argot-bam/analysis/cfa"
	"github.com/awslabs/argot-bam/analysis/cpa"
	"github.com/awslabs/argot-bam/analysis/domains/location"
)

// Analysis is the explicit-value analysis of a control-flow automaton
type Analysis struct {
	cfa       *cfa.CFA
	globals   map[string]bool
	precision Precision
}

// NewAnalysis returns the analysis of c tracking all variables
func NewAnalysis(c *cfa.CFA) *Analysis {
	a := &Analysis{cfa: c, globals: map[string]bool{}, precision: AllVariables()}
	for _, g := range c.Globals {
		a.globals[g] = true
	}
	return a
}

// WithPrecision sets the initial precision
func (a *Analysis) WithPrecision(p Precision) *Analysis {
	a.precision = p
	return a
}

// InitialState implements cpa.Analysis. Globals are initialized to zero.
func (a *Analysis) InitialState(entry *cfa.Node) cpa.AbstractState {
	vars := map[string]int64{}
	for g := range a.globals {
		if a.precision.Tracks(g) {
			vars[g] = 0
		}
	}
	return NewState(location.Initial(entry), vars)
}

// InitialPrecision implements cpa.Analysis
func (a *Analysis) InitialPrecision(*cfa.Node) cpa.Precision { return a.precision }

// NewTransferRelation implements cpa.Analysis
func (a *Analysis) NewTransferRelation() cpa.TransferRelation { return &TransferRelation{analysis: a} }

// Reducer implements cpa.Analysis
func (a *Analysis) Reducer() cpa.Reducer { return &Reducer{analysis: a} }

func (a *Analysis) env(function string, vars map[string]int64) env {
	return env{function: function, globals: a.globals, vars: vars}
}

// TransferRelation computes the successors of explicit states along the edges leaving their location
type TransferRelation struct {
	analysis  *Analysis
	recursive bool
}

// EnableRecursiveContext implements cpa.RecursionAware
func (t *TransferRelation) EnableRecursiveContext() { t.recursive = true }

// DisableRecursiveContext implements cpa.RecursionAware
func (t *TransferRelation) DisableRecursiveContext() { t.recursive = false }

// AbstractSuccessors implements cpa.TransferRelation
func (t *TransferRelation) AbstractSuccessors(ctx context.Context, state cpa.AbstractState,
	prec cpa.Precision) ([]cpa.AbstractState, error) {
	s := state.(State)
	p, ok := prec.(Precision)
	if !ok {
		return nil, fmt.Errorf("unexpected precision %T for explicit state", prec)
	}
	var res []cpa.AbstractState
	for _, e := range s.Location().Leaving {
		next, ok, err := t.successor(s, e, p)
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

// successor returns the state after edge, and false if the edge is infeasible from s
func (t *TransferRelation) successor(s State, edge *cfa.Edge, prec Precision) (State, bool, error) {
	loc, ok, err := location.Step(s.loc, edge, t.recursive)
	if err != nil || !ok {
		return State{}, false, err
	}
	vars, feasible, err := t.apply(s, edge, prec)
	if err != nil || !feasible {
		return State{}, false, err
	}
	return State{loc: loc, vars: vars}, true, nil
}

func (t *TransferRelation) apply(s State, edge *cfa.Edge, prec Precision) (map[string]int64, bool, error) {
	fn := edge.Pred.Function
	switch op := edge.Payload.(type) {
	case nil:
		return s.vars, true, nil

	case *cfa.Assign:
		e := t.analysis.env(fn, s.vars)
		vars := s.copyVars()
		assign(vars, e.name(op.Target), op.Expr, e, prec)
		return vars, true, nil

	case *cfa.Return:
		vars := s.copyVars()
		if op.Expr == nil {
			delete(vars, ReturnVariable)
		} else {
			assign(vars, ReturnVariable, op.Expr, t.analysis.env(fn, s.vars), prec)
		}
		return vars, true, nil

	case *cfa.Assume:
		e := t.analysis.env(fn, s.vars)
		v, known := e.eval(op.Cond)
		if known {
			return s.vars, (v != 0) != op.Negate, nil
		}
		if name, value, ok := e.refine(op.Cond, op.Negate); ok && prec.Tracks(name) {
			vars := s.copyVars()
			vars[name] = value
			return vars, true, nil
		}
		return s.vars, true, nil

	case *cfa.Call:
		switch edge.Kind {
		case cfa.CallEdge:
			return t.call(s, edge, op, prec)
		case cfa.ReturnEdge:
			return t.ret(s, edge, op, prec), true, nil
		}
	}
	return nil, false, fmt.Errorf("unsupported operation %T on %s edge %s", edge.Payload, edge.Kind, edge.Code)
}

func assign(vars map[string]int64, target string, x ast.Expr, e env, prec Precision) {
	if v, ok := e.eval(x); ok && prec.Tracks(target) {
		vars[target] = v
	} else {
		delete(vars, target)
	}
}

// call binds the arguments, evaluated in the caller, to the parameters of a fresh frame of the callee
func (t *TransferRelation) call(s State, edge *cfa.Edge, op *cfa.Call, prec Precision) (map[string]int64, bool,
	error) {
	callee := t.analysis.cfa.Function(edge.Succ.Function)
	if callee == nil {
		return nil, false, fmt.Errorf("call to unknown function %s", edge.Succ.Function)
	}
	if len(op.Args) != len(callee.Params) {
		return nil, false, fmt.Errorf("%s expects %d arguments, got %d at %s", callee.Name, len(callee.Params),
			len(op.Args), edge.Code)
	}
	e := t.analysis.env(edge.Pred.Function, s.vars)
	vars := withoutLocals(s.vars, callee.Name)
	for i, param := range callee.Params {
		assign(vars, Qualified(callee.Name, param), op.Args[i], e, prec)
	}
	return vars, true, nil
}

// ret discards the frame of the callee and assigns the returned value in the caller
func (t *TransferRelation) ret(s State, edge *cfa.Edge, op *cfa.Call, prec Precision) map[string]int64 {
	vars := withoutLocals(s.vars, edge.Pred.Function)
	delete(vars, ReturnVariable)
	if op.Result != "" {
		target := t.analysis.env(edge.Succ.Function, vars).name(op.Result)
		if v, ok := s.vars[ReturnVariable]; ok && prec.Tracks(target) {
			vars[target] = v
		} else {
			delete(vars, target)
		}
	}
	return vars
}

func withoutLocals(vars map[string]int64, function string) map[string]int64 {
	prefix := Qualified(function, "")
	res := make(map[string]int64, len(vars))
	for k, v := range vars {
		if !strings.HasPrefix(k, prefix) {
			res[k] = v
		}
	}
	return res
}
