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

// Package explicit implements an explicit-value analysis: each state maps the variables whose value is known to
// an integer, on top of the location and call stack. Variables whose value is unknown are absent.
//
// Local variables are named function::name and globals by their name. The value returned by a function is held by
// the variable ReturnVariable between the return statement and the return edge.
package explicit

import (
	"fmt"
	"strings"

	"github.com/awslabs/argot-bam/analysis/cfa"
	"github.com/awslabs/argot-bam/analysis/domains/callstack"
	"github.com/awslabs/argot-bam/analysis/domains/location"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// ReturnVariable holds the value returned by the function being left
const ReturnVariable = "$ret"

// Qualified returns the name of the local variable name of function
func Qualified(function, name string) string {
	return function + "::" + name
}

// owner returns the function of a local variable, or "" for other variables
func owner(variable string) string {
	if i := strings.Index(variable, "::"); i >= 0 {
		return variable[:i]
	}
	return ""
}

// State is a location state with the known values of the variables. States are immutable.
type State struct {
	loc  location.State
	vars map[string]int64
}

// NewState returns the state at loc with the given values. The map is not copied.
func NewState(loc location.State, vars map[string]int64) State {
	if vars == nil {
		vars = map[string]int64{}
	}
	return State{loc: loc, vars: vars}
}

// Key implements cpa.AbstractState
func (s State) Key() string {
	var b strings.Builder
	b.WriteString(s.loc.Key())
	b.WriteString("|")
	for i, name := range s.Variables() {
		if i > 0 {
			b.WriteString(",")
		}
		fmt.Fprintf(&b, "%s=%d", name, s.vars[name])
	}
	return b.String()
}

// Location implements cpa.Locatable
func (s State) Location() *cfa.Node { return s.loc.Location() }

// IsTarget implements cpa.Targetable
func (s State) IsTarget() bool { return s.loc.IsTarget() }

// Stack returns the call stack
func (s State) Stack() callstack.Stack { return s.loc.Stack() }

// LocationState returns the location component of the state
func (s State) LocationState() location.State { return s.loc }

// Value returns the value of a variable, and false if it is unknown
func (s State) Value(variable string) (int64, bool) {
	v, ok := s.vars[variable]
	return v, ok
}

// Variables returns the sorted names of the variables with a known value
func (s State) Variables() []string {
	names := maps.Keys(s.vars)
	slices.Sort(names)
	return names
}

func (s State) String() string {
	parts := make([]string, 0, len(s.vars))
	for _, name := range s.Variables() {
		parts = append(parts, fmt.Sprintf("%s=%d", name, s.vars[name]))
	}
	return fmt.Sprintf("%s {%s}", s.loc, strings.Join(parts, ", "))
}

func (s State) copyVars() map[string]int64 {
	res := make(map[string]int64, len(s.vars))
	for k, v := range s.vars {
		res[k] = v
	}
	return res
}

// Precision is the set of tracked variables. Assignments to other variables make them unknown.
type Precision struct {
	all     bool
	tracked map[string]bool
}

// AllVariables returns the precision tracking every variable
func AllVariables() Precision {
	return Precision{all: true}
}

// Tracking returns the precision tracking the given variables
func Tracking(variables ...string) Precision {
	p := Precision{tracked: map[string]bool{}}
	for _, v := range variables {
		p.tracked[v] = true
	}
	return p
}

// Tracks returns true if the value of variable is tracked. The return variable is always tracked.
func (p Precision) Tracks(variable string) bool {
	return p.all || variable == ReturnVariable || p.tracked[variable]
}

// Key implements cpa.Precision. The key of the precision tracking all variables is "*".
func (p Precision) Key() string {
	if p.all {
		return "*"
	}
	names := maps.Keys(p.tracked)
	slices.Sort(names)
	return strings.Join(names, ",")
}

func (p Precision) restrict(keep func(string) bool) Precision {
	if p.all {
		return p
	}
	res := Tracking()
	for v := range p.tracked {
		if keep(v) {
			res.tracked[v] = true
		}
	}
	return res
}

func (p Precision) union(other Precision) Precision {
	if p.all || other.all {
		return AllVariables()
	}
	res := Tracking()
	for v := range p.tracked {
		res.tracked[v] = true
	}
	for v := range other.tracked {
		res.tracked[v] = true
	}
	return res
}
