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

// Package callstack implements the stack of active function calls tracked by the analysis domains, with the
// reduction and expansion of stacks at block boundaries.
package callstack

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/awslabs/argot-bam/analysis/cfa"
)

// ErrRecursion is returned when a function already on the stack is called outside of a recursive context
var ErrRecursion = errors.New("recursive call")

// Frame is an active call: the function and the node where execution continues when it returns. The bottom frame
// and the frames of reduced stacks have no return site.
type Frame struct {
	Function   string
	ReturnSite *cfa.Node
}

func (f Frame) String() string {
	if f.ReturnSite == nil {
		return f.Function
	}
	return f.Function + "@" + strconv.Itoa(f.ReturnSite.ID)
}

// Stack is an immutable call stack, bottom first. Operations return new stacks.
type Stack []Frame

// New returns the stack with the single frame of the entry function
func New(function string) Stack {
	return Stack{{Function: function}}
}

// Top returns the top frame. It panics on an empty stack.
func (s Stack) Top() Frame {
	return s[len(s)-1]
}

// Depth returns the number of frames
func (s Stack) Depth() int {
	return len(s)
}

// Contains returns true if function has a frame on the stack
func (s Stack) Contains(function string) bool {
	for _, f := range s {
		if f.Function == function {
			return true
		}
	}
	return false
}

// Push returns the stack with a new frame for a call to function returning to returnSite. Calling a function that is
// already on the stack fails with ErrRecursion unless recursive is set.
func (s Stack) Push(function string, returnSite *cfa.Node, recursive bool) (Stack, error) {
	if !recursive && s.Contains(function) {
		return nil, fmt.Errorf("%w to %s with stack %s", ErrRecursion, function, s)
	}
	res := make(Stack, len(s), len(s)+1)
	copy(res, s)
	return append(res, Frame{Function: function, ReturnSite: returnSite}), nil
}

// Pop returns the stack without its top frame
func (s Stack) Pop() Stack {
	return s[:len(s)-1:len(s)-1]
}

// Reduce returns the stack seen from inside a block entered at the top frame: the top frame without its return site
func (s Stack) Reduce() Stack {
	return New(s.Top().Function)
}

// Expand returns the stack of the caller after the block entered at its top frame ends with the reduced stack exit:
// the frames of the caller below its top, the top frame of the caller, and the frames pushed in the block.
func (s Stack) Expand(exit Stack) Stack {
	res := make(Stack, 0, len(s)+len(exit)-1)
	res = append(res, s[:len(s)-1]...)
	top := s.Top()
	if len(exit) > 0 {
		top.Function = exit[0].Function
	}
	res = append(res, top)
	if len(exit) > 1 {
		res = append(res, exit[1:]...)
	}
	return res
}

func (s Stack) String() string {
	parts := make([]string, len(s))
	for i, f := range s {
		parts[i] = f.String()
	}
	return strings.Join(parts, ">")
}

// Key identifies the stack
func (s Stack) Key() string {
	return s.String()
}
