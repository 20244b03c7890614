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

package bam

import (
	"fmt"

	"github.com/awslabs/argot-bam/analysis/arg"
	"github.com/awslabs/argot-bam/analysis/cfa"
	"github.com/awslabs/argot-bam/analysis/cpa"
)

// Frame is a block invocation in progress
type Frame struct {
	State     cpa.AbstractState
	Precision cpa.Precision
	Block     *cfa.Block
}

// frame is the bookkeeping of a block invocation
type frame struct {
	Frame
	key string

	// entry is the node at which the block has been entered
	entry *arg.Node
	// reached is the reached set explored for the invocation
	reached *arg.ReachedSet

	// recursive is set if the block was already active when it was entered
	recursive bool
	// private is set if reached is not registered in the cache
	private bool
	// dependent is set if the result depends on the approximated result of a frame lower in the stack
	dependent bool

	// needsIteration is set when a recursive re-entry with the same key consumed the current return states
	needsIteration bool
	// consumers are the nodes of reached whose successors depend on the return states handed out
	consumers []*arg.Node
	// handedOut are the ids of the return states already handed out to consumers
	handedOut map[arg.ID]bool
}

// isStable returns true if all the return states have already been handed out
func (f *frame) isStable(returnStates []*arg.Node) bool {
	for _, r := range returnStates {
		if !f.handedOut[r.ID()] {
			return false
		}
	}
	return true
}

// CallStack is the stack of the block invocations of one run. Its depth is the recursion depth of the run.
type CallStack struct {
	frames []*frame
}

func (s *CallStack) push(f *frame) {
	s.frames = append(s.frames, f)
}

// pop removes f, which must be the top frame
func (s *CallStack) pop(f *frame) {
	if len(s.frames) == 0 || s.frames[len(s.frames)-1] != f {
		panic(fmt.Sprintf("call stack corrupted: popping %s which is not the top frame", f.Block.Name()))
	}
	s.frames = s.frames[:len(s.frames)-1]
}

func (s *CallStack) top() *frame {
	if len(s.frames) == 0 {
		return nil
	}
	return s.frames[len(s.frames)-1]
}

// containsBlock returns true if an invocation of b is in progress
func (s *CallStack) containsBlock(b *cfa.Block) bool {
	for _, f := range s.frames {
		if f.Block == b {
			return true
		}
	}
	return false
}

// indexOfKey returns the index of the deepest frame with the given key, or -1
func (s *CallStack) indexOfKey(key string) int {
	for i := len(s.frames) - 1; i >= 0; i-- {
		if s.frames[i].key == key {
			return i
		}
	}
	return -1
}

// Depth returns the number of invocations in progress
func (s *CallStack) Depth() int {
	return len(s.frames)
}

// Frames returns the invocations in progress, bottom first
func (s *CallStack) Frames() []Frame {
	res := make([]Frame, len(s.frames))
	for i, f := range s.frames {
		res[i] = f.Frame
	}
	return res
}
