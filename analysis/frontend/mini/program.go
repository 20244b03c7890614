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

// Package mini reads programs written in a small imperative language embedded in YAML, and builds their control-flow
// automata. A program looks like:
//
//	globals: [g]
//	main: main
//	functions:
//	  main:
//	    body:
//	      - x = f(1)
//	      - if: x != 2
//	        then: [error]
//	  f:
//	    params: [a]
//	    body:
//	      - g = g + 1
//	      - return a + 1
//
// Simple statements are strings: "x = e", "x = f(e, ...)", "f(e, ...)", "return", "return e", "assume e", "error"
// and "skip". Expressions are Go expressions over integers and booleans; nondet() is an unknown value. Compound
// statements are maps with the keys if/then/else or while/do.
package mini

import (
	"fmt"
	"go/ast"
	"go/parser"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Program is a parsed mini program
type Program struct {
	Globals   []string  `yaml:"globals"`
	Main      string    `yaml:"main"`
	Functions Functions `yaml:"functions"`
}

// Function is a function of a mini program
type Function struct {
	Name   string      `yaml:"-"`
	Params []string    `yaml:"params"`
	Body   []Statement `yaml:"body"`
}

// Functions are the functions of a program, in the order of the source
type Functions []*Function

// UnmarshalYAML reads the mapping from function names to functions, keeping their order
func (fs *Functions) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: functions must be a mapping from names to functions", value.Line)
	}
	for i := 0; i+1 < len(value.Content); i += 2 {
		f := &Function{}
		if err := value.Content[i+1].Decode(f); err != nil {
			return err
		}
		f.Name = value.Content[i].Value
		*fs = append(*fs, f)
	}
	return nil
}

// StatementKind is the kind of a statement
type StatementKind int

const (
	// Skip does nothing
	Skip StatementKind = iota
	// Assign assigns an expression to a variable
	Assign
	// Call calls a function, and assigns its result to Target if it is not empty
	Call
	// Return leaves the function
	Return
	// Assume blocks the paths where the condition does not hold
	Assume
	// Error is the violation of the property
	Error
	// If is a conditional
	If
	// While is a loop
	While
)

// Statement is a statement of a mini program. Call statements are parsed as assignments of call expressions, and
// resolved when the automaton is built.
type Statement struct {
	Kind   StatementKind
	Text   string
	Target string
	Expr   ast.Expr
	Cond   ast.Expr
	Then   []Statement
	Else   []Statement
}

var assignment = regexp.MustCompile(`^\s*([A-Za-z_]\w*)\s*=([^=].*)$`)

// compound is the YAML form of compound statements
type compound struct {
	If    string      `yaml:"if"`
	Then  []Statement `yaml:"then"`
	Else  []Statement `yaml:"else"`
	While string      `yaml:"while"`
	Do    []Statement `yaml:"do"`
}

// UnmarshalYAML reads a simple statement from a string, or a compound statement from a mapping
func (s *Statement) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		st, err := ParseStatement(value.Value)
		if err != nil {
			return fmt.Errorf("line %d: %w", value.Line, err)
		}
		*s = st
		return nil
	case yaml.MappingNode:
		var c compound
		if err := value.Decode(&c); err != nil {
			return err
		}
		var err error
		switch {
		case c.If != "" && c.While != "":
			return fmt.Errorf("line %d: statement is both an if and a while", value.Line)
		case c.If != "":
			*s = Statement{Kind: If, Text: "if " + c.If, Then: c.Then, Else: c.Else}
			s.Cond, err = parseExpr(c.If)
		case c.While != "":
			*s = Statement{Kind: While, Text: "while " + c.While, Then: c.Do}
			s.Cond, err = parseExpr(c.While)
		default:
			return fmt.Errorf("line %d: compound statement needs an if or a while", value.Line)
		}
		if err != nil {
			return fmt.Errorf("line %d: %w", value.Line, err)
		}
		return nil
	default:
		return fmt.Errorf("line %d: a statement is a string or a mapping", value.Line)
	}
}

// ParseStatement parses a simple statement
func ParseStatement(text string) (Statement, error) {
	text = strings.TrimSpace(text)
	s := Statement{Text: text}
	var err error
	switch {
	case text == "skip" || text == "":
		s.Kind = Skip
	case text == "error":
		s.Kind = Error
	case text == "return":
		s.Kind = Return
	case strings.HasPrefix(text, "return "):
		s.Kind = Return
		s.Expr, err = parseExpr(strings.TrimPrefix(text, "return "))
	case strings.HasPrefix(text, "assume "):
		s.Kind = Assume
		s.Cond, err = parseExpr(strings.TrimPrefix(text, "assume "))
	default:
		if m := assignment.FindStringSubmatch(text); m != nil {
			s.Kind = Assign
			s.Target = m[1]
			s.Expr, err = parseExpr(m[2])
			break
		}
		s.Kind = Call
		s.Expr, err = parseExpr(text)
		if _, isCall := s.Expr.(*ast.CallExpr); err == nil && !isCall {
			err = fmt.Errorf("%q is not a statement", text)
		}
	}
	return s, err
}

func parseExpr(text string) (ast.Expr, error) {
	x, err := parser.ParseExpr(strings.TrimSpace(text))
	if err != nil {
		return nil, fmt.Errorf("invalid expression %q: %w", text, err)
	}
	return x, nil
}

// Parse reads a program from YAML
func Parse(data []byte) (*Program, error) {
	p := &Program{}
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("failed to parse program: %w", err)
	}
	if p.Main == "" {
		p.Main = "main"
	}
	return p, nil
}

// ParseFile reads a program from a YAML file
func ParseFile(filename string) (*Program, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("could not read program: %w", err)
	}
	return Parse(data)
}
