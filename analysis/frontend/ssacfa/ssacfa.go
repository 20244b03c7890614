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

// Package ssacfa translates Go functions in SSA form into a control-flow automaton. Panics are error locations, so
// that checking the automaton answers whether a panic is reachable from the main function.
//
// The translation keeps the integer and boolean computations on local values: the other values (memory, strings,
// interfaces, calls to functions without a body in the translated packages) are unknown.
package ssacfa

import (
	"fmt"
	"go/ast"
	"go/constant"
	"go/token"
	"go/types"
	"sort"

	"github.com/awslabs/argot-bam/analysis/cfa"
	"golang.org/x/tools/go/ssa"
)

// Build returns the automaton of the functions with a body that are members of the packages. Functions are named
// by their name when a single package is translated, and by their package path and name otherwise.
func Build(pkgs []*ssa.Package, main string) (*cfa.CFA, error) {
	t := &translator{
		cfa:       cfa.New(),
		functions: map[*ssa.Function]*cfa.Function{},
	}
	t.cfa.Main = main
	var fns []*ssa.Function
	for _, pkg := range pkgs {
		for _, m := range pkg.Members {
			if fn, ok := m.(*ssa.Function); ok && len(fn.Blocks) > 0 {
				fns = append(fns, fn)
			}
		}
	}
	sort.Slice(fns, func(i, j int) bool { return fns[i].Pos() < fns[j].Pos() })
	for _, fn := range fns {
		name := fn.Name()
		if len(pkgs) > 1 {
			name = fn.Pkg.Pkg.Path() + "." + fn.Name()
		}
		params := make([]string, len(fn.Params))
		for i, p := range fn.Params {
			params[i] = p.Name()
		}
		t.functions[fn] = t.cfa.AddFunction(name, params)
	}
	if t.cfa.Function(main) == nil {
		return nil, fmt.Errorf("main function %q not found", main)
	}
	for _, fn := range fns {
		t.function(fn)
	}
	return t.cfa, nil
}

type translator struct {
	cfa       *cfa.CFA
	functions map[*ssa.Function]*cfa.Function
}

// function adds the nodes and edges of fn. Each instruction gets the node before it; phi instructions are assigned
// on the edges entering their block.
func (t *translator) function(fn *ssa.Function) {
	f := t.functions[fn]
	starts := make([]*cfa.Node, len(fn.Blocks))
	for i, b := range fn.Blocks {
		starts[i] = t.cfa.NewNode(f, fmt.Sprintf("%s block %d", fn.Name(), b.Index))
	}
	t.cfa.AddEdge(cfa.BlankEdge, f.Entry, starts[0], "", nil)

	for i, b := range fn.Blocks {
		cur := starts[i]
		for _, instr := range b.Instrs {
			if _, isPhi := instr.(*ssa.Phi); isPhi {
				continue
			}
			cur = t.instruction(f, fn, b, cur, instr, starts)
		}
	}
}

func (t *translator) instruction(f *cfa.Function, fn *ssa.Function, b *ssa.BasicBlock, cur *cfa.Node,
	instr ssa.Instruction, starts []*cfa.Node) *cfa.Node {
	code := instr.String()
	if v, ok := instr.(ssa.Value); ok {
		code = v.Name() + " = " + code
	}
	switch instr := instr.(type) {
	case *ssa.If:
		cond := operand(instr.Cond)
		t.jump(f, b, cur, b.Succs[0], starts, &cfa.Assume{Cond: cond}, "["+code+"]")
		t.jump(f, b, cur, b.Succs[1], starts, &cfa.Assume{Cond: cond, Negate: true}, "[!"+code+"]")
		return cur
	case *ssa.Jump:
		t.jump(f, b, cur, b.Succs[0], starts, nil, code)
		return cur
	case *ssa.Return:
		op := &cfa.Return{}
		if len(instr.Results) == 1 {
			op.Expr = operand(instr.Results[0])
		}
		t.cfa.AddEdge(cfa.StatementEdge, cur, f.Exit, code, op)
		return cur
	case *ssa.Panic:
		errNode := t.cfa.NewNode(f, "panic at "+fn.Prog.Fset.Position(instr.Pos()).String())
		errNode.IsError = true
		t.cfa.AddEdge(cfa.BlankEdge, cur, errNode, code, nil)
		return cur
	}

	next := t.cfa.NewNode(f, "")
	switch instr := instr.(type) {
	case *ssa.Call:
		callee := instr.Call.StaticCallee()
		if target, ok := t.functions[callee]; ok && !instr.Call.IsInvoke() {
			op := &cfa.Call{Callee: target.Name}
			for _, arg := range instr.Call.Args {
				op.Args = append(op.Args, operand(arg))
			}
			if instr.Call.Signature().Results().Len() == 1 {
				op.Result = instr.Name()
			}
			t.cfa.AddCallEdge(cur, next, target, code, op)
			return next
		}
		t.cfa.AddEdge(cfa.StatementEdge, cur, next, code, &cfa.Assign{Target: instr.Name(), Expr: cfa.Nondet()})
	case ssa.Value:
		t.cfa.AddEdge(cfa.StatementEdge, cur, next, code, &cfa.Assign{Target: instr.Name(), Expr: valueExpr(instr)})
	default:
		t.cfa.AddEdge(cfa.BlankEdge, cur, next, code, nil)
	}
	return next
}

// jump adds the edge from cur to the start of succ, with the assignments of the phi instructions of succ
func (t *translator) jump(f *cfa.Function, b *ssa.BasicBlock, cur *cfa.Node, succ *ssa.BasicBlock,
	starts []*cfa.Node, assume *cfa.Assume, code string) {
	var phis []*ssa.Phi
	for _, instr := range succ.Instrs {
		if phi, ok := instr.(*ssa.Phi); ok {
			phis = append(phis, phi)
		}
	}
	target := starts[succ.Index]
	if len(phis) == 0 {
		t.edge(cur, target, assume, code)
		return
	}
	pred := -1
	for i, p := range succ.Preds {
		if p == b {
			pred = i
			break
		}
	}
	next := t.cfa.NewNode(f, "")
	t.edge(cur, next, assume, code)
	cur = next
	// phis are assigned in parallel: through temporaries when there are several
	var assigns []*cfa.Assign
	if len(phis) == 1 {
		assigns = []*cfa.Assign{{Target: phis[0].Name(), Expr: operand(phis[0].Edges[pred])}}
	} else {
		for _, phi := range phis {
			assigns = append(assigns, &cfa.Assign{Target: "phi$" + phi.Name(), Expr: operand(phi.Edges[pred])})
		}
		for _, phi := range phis {
			assigns = append(assigns, &cfa.Assign{Target: phi.Name(), Expr: ast.NewIdent("phi$" + phi.Name())})
		}
	}
	for i, a := range assigns {
		to := target
		if i < len(assigns)-1 {
			to = t.cfa.NewNode(f, "")
		}
		t.cfa.AddEdge(cfa.StatementEdge, cur, to, a.Target+" = "+types.ExprString(a.Expr), a)
		cur = to
	}
}

func (t *translator) edge(from, to *cfa.Node, assume *cfa.Assume, code string) {
	if assume == nil {
		t.cfa.AddEdge(cfa.BlankEdge, from, to, code, nil)
	} else {
		t.cfa.AddEdge(cfa.AssumeEdge, from, to, code, assume)
	}
}

// valueExpr returns the expression computing the value of an instruction
func valueExpr(v ssa.Value) ast.Expr {
	if !tracked(v.Type()) {
		return cfa.Nondet()
	}
	switch v := v.(type) {
	case *ssa.BinOp:
		return &ast.BinaryExpr{X: operand(v.X), Op: v.Op, Y: operand(v.Y)}
	case *ssa.UnOp:
		switch v.Op {
		case token.SUB, token.NOT, token.XOR:
			return &ast.UnaryExpr{Op: v.Op, X: operand(v.X)}
		}
	case *ssa.Convert:
		if tracked(v.X.Type()) {
			return operand(v.X)
		}
	case *ssa.ChangeType:
		return operand(v.X)
	}
	return cfa.Nondet()
}

// operand returns the expression of a value used by an instruction
func operand(v ssa.Value) ast.Expr {
	if !tracked(v.Type()) {
		return cfa.Nondet()
	}
	switch v := v.(type) {
	case *ssa.Const:
		if v.Value == nil {
			return cfa.Int(0)
		}
		switch v.Value.Kind() {
		case constant.Bool:
			if constant.BoolVal(v.Value) {
				return ast.NewIdent("true")
			}
			return ast.NewIdent("false")
		case constant.Int:
			if i, exact := constant.Int64Val(v.Value); exact {
				return cfa.Int(i)
			}
		}
		return cfa.Nondet()
	case *ssa.Parameter, ssa.Instruction:
		return ast.NewIdent(v.Name())
	}
	return cfa.Nondet()
}

// tracked returns true for the integer and boolean types
func tracked(t types.Type) bool {
	b, ok := t.Underlying().(*types.Basic)
	return ok && b.Info()&(types.IsInteger|types.IsBoolean) != 0
}
