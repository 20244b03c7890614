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

package cfa

import (
	"go/ast"
	"go/token"
	"strconv"
)

// The operations below are the payloads of the edges built by the front-ends. Expressions are Go expressions over
// the variables of the function and the globals; the call nondet() denotes an unknown value.

// Assign is the payload of a statement edge assigning Expr to Target
type Assign struct {
	Target string
	Expr   ast.Expr
}

// Assume is the payload of an assume edge. The edge is taken if Cond holds, or if it does not hold when Negate is
// set.
type Assume struct {
	Cond   ast.Expr
	Negate bool
}

// Call is the payload of the call edge and of the return edge of a call. Args are evaluated in the caller and bound
// to the parameters of the callee; the returned value is assigned to Result in the caller, if Result is not empty.
type Call struct {
	Callee string
	Args   []ast.Expr
	Result string
}

// Return is the payload of the statement edge of a return statement. Expr may be nil.
type Return struct {
	Expr ast.Expr
}

// NondetName is the name of the function returning an unknown value
const NondetName = "nondet"

// Nondet returns the expression of an unknown value
func Nondet() ast.Expr {
	return &ast.CallExpr{Fun: ast.NewIdent(NondetName)}
}

// IsNondet returns true if e is a call to nondet
func IsNondet(e ast.Expr) bool {
	c, ok := e.(*ast.CallExpr)
	if !ok {
		return false
	}
	id, ok := c.Fun.(*ast.Ident)
	return ok && id.Name == NondetName
}

// Int returns the expression of an integer constant
func Int(v int64) ast.Expr {
	if v < 0 {
		return &ast.UnaryExpr{Op: token.SUB, X: Int(-v)}
	}
	return &ast.BasicLit{Kind: token.INT, Value: strconv.FormatInt(v, 10)}
}
