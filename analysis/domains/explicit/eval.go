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
	"go/ast"
	"go/token"
	"strconv"
)

// env resolves the identifiers of the expressions of one function
type env struct {
	function string
	globals  map[string]bool
	vars     map[string]int64
}

func (e env) name(ident string) string {
	if e.globals[ident] {
		return ident
	}
	return Qualified(e.function, ident)
}

func boolValue(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// eval returns the value of x, and false if it is unknown. Booleans are 0 and 1.
func (e env) eval(x ast.Expr) (int64, bool) {
	switch x := x.(type) {
	case *ast.ParenExpr:
		return e.eval(x.X)
	case *ast.BasicLit:
		if x.Kind != token.INT {
			return 0, false
		}
		v, err := strconv.ParseInt(x.Value, 0, 64)
		return v, err == nil
	case *ast.Ident:
		switch x.Name {
		case "true":
			return 1, true
		case "false":
			return 0, true
		}
		v, ok := e.vars[e.name(x.Name)]
		return v, ok
	case *ast.UnaryExpr:
		v, ok := e.eval(x.X)
		if !ok {
			return 0, false
		}
		switch x.Op {
		case token.SUB:
			return -v, true
		case token.ADD:
			return v, true
		case token.NOT:
			return boolValue(v == 0), true
		case token.XOR:
			return ^v, true
		}
		return 0, false
	case *ast.BinaryExpr:
		return e.evalBinary(x)
	}
	// calls, including nondet(), have unknown values
	return 0, false
}

func (e env) evalBinary(x *ast.BinaryExpr) (int64, bool) {
	l, lok := e.eval(x.X)
	switch x.Op {
	case token.LAND:
		if lok && l == 0 {
			return 0, true
		}
		r, rok := e.eval(x.Y)
		if rok && r == 0 {
			return 0, true
		}
		if lok && rok {
			return 1, true
		}
		return 0, false
	case token.LOR:
		if lok && l != 0 {
			return 1, true
		}
		r, rok := e.eval(x.Y)
		if rok && r != 0 {
			return 1, true
		}
		if lok && rok {
			return 0, true
		}
		return 0, false
	}
	r, rok := e.eval(x.Y)
	if !lok || !rok {
		return 0, false
	}
	switch x.Op {
	case token.ADD:
		return l + r, true
	case token.SUB:
		return l - r, true
	case token.MUL:
		return l * r, true
	case token.QUO:
		if r == 0 {
			return 0, false
		}
		return l / r, true
	case token.REM:
		if r == 0 {
			return 0, false
		}
		return l % r, true
	case token.AND:
		return l & r, true
	case token.OR:
		return l | r, true
	case token.XOR:
		return l ^ r, true
	case token.AND_NOT:
		return l &^ r, true
	case token.SHL:
		if r < 0 || r > 63 {
			return 0, false
		}
		return l << uint(r), true
	case token.SHR:
		if r < 0 || r > 63 {
			return 0, false
		}
		return l >> uint(r), true
	case token.EQL:
		return boolValue(l == r), true
	case token.NEQ:
		return boolValue(l != r), true
	case token.LSS:
		return boolValue(l < r), true
	case token.LEQ:
		return boolValue(l <= r), true
	case token.GTR:
		return boolValue(l > r), true
	case token.GEQ:
		return boolValue(l >= r), true
	}
	return 0, false
}

// refine returns the variable and the value it must have for cond to evaluate to !negate, when cond compares an
// unknown variable with a known value.
func (e env) refine(cond ast.Expr, negate bool) (string, int64, bool) {
	switch c := cond.(type) {
	case *ast.ParenExpr:
		return e.refine(c.X, negate)
	case *ast.UnaryExpr:
		if c.Op == token.NOT {
			return e.refine(c.X, !negate)
		}
	case *ast.BinaryExpr:
		if (c.Op == token.EQL && !negate) || (c.Op == token.NEQ && negate) {
			if name, ok := e.unknownIdent(c.X); ok {
				v, known := e.eval(c.Y)
				return name, v, known
			}
			if name, ok := e.unknownIdent(c.Y); ok {
				v, known := e.eval(c.X)
				return name, v, known
			}
		}
	}
	return "", 0, false
}

func (e env) unknownIdent(x ast.Expr) (string, bool) {
	for {
		p, ok := x.(*ast.ParenExpr)
		if !ok {
			break
		}
		x = p.X
	}
	id, ok := x.(*ast.Ident)
	if !ok || id.Name == "true" || id.Name == "false" {
		return "", false
	}
	name := e.name(id.Name)
	_, known := e.vars[name]
	return name, !known
}
