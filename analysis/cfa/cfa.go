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

// Package cfa contains the control-flow automaton analyzed by the engine: locations (nodes), edges labelled with
// operations, functions, and the partition of the automaton into blocks.
package cfa

import (
	"fmt"
	"sort"
)

// EdgeKind is the kind of operation on an edge
type EdgeKind int

const (
	// BlankEdge does not change the program state
	BlankEdge EdgeKind = iota
	// StatementEdge executes a statement
	StatementEdge
	// AssumeEdge is taken only if its condition holds
	AssumeEdge
	// CallEdge goes from a call site to the entry of the callee
	CallEdge
	// ReturnEdge goes from the exit of a callee to the node following the call site
	ReturnEdge
)

func (k EdgeKind) String() string {
	switch k {
	case BlankEdge:
		return "blank"
	case StatementEdge:
		return "statement"
	case AssumeEdge:
		return "assume"
	case CallEdge:
		return "call"
	case ReturnEdge:
		return "return"
	default:
		return fmt.Sprintf("edge-kind(%d)", int(k))
	}
}

// Node is a program location
type Node struct {
	// ID is unique in the automaton
	ID int

	// Function is the name of the function containing the node
	Function string

	// Label is a human-readable description of the location
	Label string

	// IsError marks the locations that violate the property being checked
	IsError bool

	// Leaving are the edges leaving the node, in insertion order
	Leaving []*Edge

	// Entering are the edges entering the node, in insertion order
	Entering []*Edge
}

func (n *Node) String() string {
	if n.Label == "" {
		return fmt.Sprintf("N%d", n.ID)
	}
	return fmt.Sprintf("N%d (%s)", n.ID, n.Label)
}

// CallTargets returns the callee entry nodes of the call edges leaving n
func (n *Node) CallTargets() []*Node {
	var targets []*Node
	for _, e := range n.Leaving {
		if e.Kind == CallEdge {
			targets = append(targets, e.Succ)
		}
	}
	return targets
}

// HasCallEdgeTo returns true if a call edge goes from n to target
func (n *Node) HasCallEdgeTo(target *Node) bool {
	for _, e := range n.Leaving {
		if e.Kind == CallEdge && e.Succ == target {
			return true
		}
	}
	return false
}

// Edge is a transition between two locations
type Edge struct {
	Kind EdgeKind
	Pred *Node
	Succ *Node

	// Code is a human-readable representation of the operation
	Code string

	// Payload is the operation interpreted by the analysis domains. Its type depends on the front-end that built the
	// automaton.
	Payload any

	// ReturnSite is the node following the call site, for call edges
	ReturnSite *Node
}

func (e *Edge) String() string {
	return fmt.Sprintf("%s -[%s %s]-> %s", e.Pred, e.Kind, e.Code, e.Succ)
}

// Function is a function of the program, with a unique entry and a unique exit location
type Function struct {
	Name   string
	Params []string
	Entry  *Node
	Exit   *Node
	Nodes  []*Node
}

// CFA is a control-flow automaton: the union of the automata of all functions, connected by call and return edges.
type CFA struct {
	nodes     []*Node
	functions map[string]*Function
	order     []string

	// Main is the name of the function where the analysis starts
	Main string

	// Globals are the names of the global variables, visible in every function
	Globals []string
}

// New returns an empty automaton
func New() *CFA {
	return &CFA{functions: map[string]*Function{}}
}

// AddFunction adds a function with its entry and exit nodes. It panics if the function already exists.
func (c *CFA) AddFunction(name string, params []string) *Function {
	if _, ok := c.functions[name]; ok {
		panic(fmt.Sprintf("function %s defined twice", name))
	}
	f := &Function{Name: name, Params: params}
	c.functions[name] = f
	c.order = append(c.order, name)
	f.Entry = c.NewNode(f, "entry of "+name)
	f.Exit = c.NewNode(f, "exit of "+name)
	return f
}

// NewNode creates a new location in function f
func (c *CFA) NewNode(f *Function, label string) *Node {
	n := &Node{ID: len(c.nodes), Function: f.Name, Label: label}
	c.nodes = append(c.nodes, n)
	f.Nodes = append(f.Nodes, n)
	return n
}

// AddEdge adds an edge between two locations and returns it
func (c *CFA) AddEdge(kind EdgeKind, from, to *Node, code string, payload any) *Edge {
	e := &Edge{Kind: kind, Pred: from, Succ: to, Code: code, Payload: payload}
	from.Leaving = append(from.Leaving, e)
	to.Entering = append(to.Entering, e)
	return e
}

// AddCallEdge adds the call edge from the call site from to the entry of callee, and the return edge from the exit of
// callee to returnSite. It returns the call edge.
func (c *CFA) AddCallEdge(from, returnSite *Node, callee *Function, code string, payload any) *Edge {
	e := c.AddEdge(CallEdge, from, callee.Entry, code, payload)
	e.ReturnSite = returnSite
	c.AddEdge(ReturnEdge, callee.Exit, returnSite, "return from "+callee.Name, payload)
	return e
}

// Function returns the function with the given name, or nil
func (c *CFA) Function(name string) *Function {
	return c.functions[name]
}

// Functions returns the functions in the order they have been added
func (c *CFA) Functions() []*Function {
	fs := make([]*Function, 0, len(c.order))
	for _, name := range c.order {
		fs = append(fs, c.functions[name])
	}
	return fs
}

// Nodes returns all the locations, ordered by id
func (c *CFA) Nodes() []*Node {
	return c.nodes
}

// Node returns the location with the given id, or nil
func (c *CFA) Node(id int) *Node {
	if id < 0 || id >= len(c.nodes) {
		return nil
	}
	return c.nodes[id]
}

// Callees returns the names of the functions called from f, sorted
func (c *CFA) Callees(f *Function) []string {
	seen := map[string]bool{}
	for _, n := range f.Nodes {
		for _, t := range n.CallTargets() {
			seen[t.Function] = true
		}
	}
	res := make([]string, 0, len(seen))
	for name := range seen {
		res = append(res, name)
	}
	sort.Strings(res)
	return res
}
