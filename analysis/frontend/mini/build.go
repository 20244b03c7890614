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

package mini

import (
	"fmt"
	"go/ast"
	"go/types"

	"github.com/awslabs/argot-bam/analysis/cfa"
)

// Build returns the control-flow automaton of the program. Each function has its own entry and exit nodes; falling
// off the end of a function returns without a value.
func Build(p *Program) (*cfa.CFA, error) {
	c := cfa.New()
	c.Main = p.Main
	c.Globals = append([]string(nil), p.Globals...)
	for _, f := range p.Functions {
		if c.Function(f.Name) != nil {
			return nil, fmt.Errorf("function %s defined twice", f.Name)
		}
		c.AddFunction(f.Name, f.Params)
	}
	if c.Function(p.Main) == nil {
		return nil, fmt.Errorf("main function %q not defined", p.Main)
	}
	for _, f := range p.Functions {
		b := &builder{cfa: c, function: c.Function(f.Name)}
		end, err := b.statements(b.function.Entry, f.Body)
		if err != nil {
			return nil, fmt.Errorf("in %s: %w", f.Name, err)
		}
		c.AddEdge(cfa.BlankEdge, end, b.function.Exit, "", nil)
	}
	return c, nil
}

// Load parses the program in the file and builds its automaton
func Load(filename string) (*cfa.CFA, error) {
	p, err := ParseFile(filename)
	if err != nil {
		return nil, err
	}
	return Build(p)
}

type builder struct {
	cfa      *cfa.CFA
	function *cfa.Function
}

func (b *builder) node(label string) *cfa.Node {
	return b.cfa.NewNode(b.function, label)
}

// statements adds the edges of the statements starting at cur, and returns the node where they end
func (b *builder) statements(cur *cfa.Node, stmts []Statement) (*cfa.Node, error) {
	for _, s := range stmts {
		var err error
		if cur, err = b.statement(cur, s); err != nil {
			return nil, err
		}
	}
	return cur, nil
}

func (b *builder) statement(cur *cfa.Node, s Statement) (*cfa.Node, error) {
	switch s.Kind {
	case Skip:
		next := b.node("")
		b.cfa.AddEdge(cfa.BlankEdge, cur, next, s.Text, nil)
		return next, nil

	case Assign, Call:
		if call, callee := b.callee(s.Expr); callee != nil {
			return b.call(cur, s, call, callee)
		}
		if s.Kind == Call {
			return nil, fmt.Errorf("call to unknown function in %q", s.Text)
		}
		next := b.node("")
		b.cfa.AddEdge(cfa.StatementEdge, cur, next, s.Text, &cfa.Assign{Target: s.Target, Expr: s.Expr})
		return next, nil

	case Return:
		b.cfa.AddEdge(cfa.StatementEdge, cur, b.function.Exit, s.Text, &cfa.Return{Expr: s.Expr})
		return b.node("after " + s.Text), nil

	case Assume:
		next := b.node("")
		b.cfa.AddEdge(cfa.AssumeEdge, cur, next, "["+types.ExprString(s.Cond)+"]", &cfa.Assume{Cond: s.Cond})
		return next, nil

	case Error:
		errNode := b.node("error in " + b.function.Name)
		errNode.IsError = true
		b.cfa.AddEdge(cfa.BlankEdge, cur, errNode, s.Text, nil)
		return b.node("after error"), nil

	case If:
		thenStart, elseStart := b.node(""), b.node("")
		b.assume(cur, thenStart, s.Cond, false)
		b.assume(cur, elseStart, s.Cond, true)
		thenEnd, err := b.statements(thenStart, s.Then)
		if err != nil {
			return nil, err
		}
		elseEnd, err := b.statements(elseStart, s.Else)
		if err != nil {
			return nil, err
		}
		join := b.node("")
		b.cfa.AddEdge(cfa.BlankEdge, thenEnd, join, "", nil)
		b.cfa.AddEdge(cfa.BlankEdge, elseEnd, join, "", nil)
		return join, nil

	case While:
		head := b.node("loop head")
		b.cfa.AddEdge(cfa.BlankEdge, cur, head, "", nil)
		body, exit := b.node(""), b.node("")
		b.assume(head, body, s.Cond, false)
		b.assume(head, exit, s.Cond, true)
		bodyEnd, err := b.statements(body, s.Then)
		if err != nil {
			return nil, err
		}
		b.cfa.AddEdge(cfa.BlankEdge, bodyEnd, head, "", nil)
		return exit, nil
	}
	return nil, fmt.Errorf("unknown statement %q", s.Text)
}

func (b *builder) assume(from, to *cfa.Node, cond ast.Expr, negate bool) {
	code := "[" + types.ExprString(cond) + "]"
	if negate {
		code = "[!(" + types.ExprString(cond) + ")]"
	}
	b.cfa.AddEdge(cfa.AssumeEdge, from, to, code, &cfa.Assume{Cond: cond, Negate: negate})
}

// callee returns the call expression and the called function if x is a call to a function of the program
func (b *builder) callee(x ast.Expr) (*ast.CallExpr, *cfa.Function) {
	call, ok := x.(*ast.CallExpr)
	if !ok {
		return nil, nil
	}
	id, ok := call.Fun.(*ast.Ident)
	if !ok {
		return nil, nil
	}
	return call, b.cfa.Function(id.Name)
}

func (b *builder) call(cur *cfa.Node, s Statement, call *ast.CallExpr, callee *cfa.Function) (*cfa.Node, error) {
	if len(call.Args) != len(callee.Params) {
		return nil, fmt.Errorf("%q: %s expects %d arguments", s.Text, callee.Name, len(callee.Params))
	}
	returnSite := b.node("return from " + callee.Name)
	op := &cfa.Call{Callee: callee.Name, Args: call.Args, Result: s.Target}
	b.cfa.AddCallEdge(cur, returnSite, callee, s.Text, op)
	return returnSite, nil
}
