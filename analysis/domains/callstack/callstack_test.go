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

package callstack

import (
	"errors"
	"testing"

	"github.com/awslabs/argot-bam/analysis/cfa"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPushPop(t *testing.T) {
	rs := &cfa.Node{ID: 7}
	s := New("main")
	s2, err := s.Push("f", rs, false)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Depth(), "push does not modify the receiver")
	assert.Equal(t, "main>f@7", s2.Key())
	assert.Equal(t, rs, s2.Top().ReturnSite)
	assert.True(t, s2.Contains("main"))
	assert.Equal(t, s.Key(), s2.Pop().Key())

	_, err = s2.Push("f", rs, false)
	assert.True(t, errors.Is(err, ErrRecursion))
	s3, err := s2.Push("f", rs, true)
	require.NoError(t, err)
	assert.Equal(t, "main>f@7>f@7", s3.Key())
}

func TestPopDoesNotAlias(t *testing.T) {
	s, _ := New("main").Push("f", &cfa.Node{ID: 1}, false)
	popped := s.Pop()
	pushed, _ := popped.Push("g", &cfa.Node{ID: 2}, false)
	assert.Equal(t, "main>f@1", s.Key())
	assert.Equal(t, "main>g@2", pushed.Key())
}

func TestReduceExpand(t *testing.T) {
	rs1 := &cfa.Node{ID: 1}
	rs2 := &cfa.Node{ID: 2}
	caller := Stack{{Function: "main"}, {Function: "f", ReturnSite: rs1}}

	reduced := caller.Reduce()
	assert.Equal(t, "f", reduced.Key())

	// returning normally: the stack of the caller is restored
	if diff := cmp.Diff(caller, caller.Expand(reduced)); diff != "" {
		t.Errorf("unexpected expansion (-want +got):\n%s", diff)
	}

	// ending inside a nested call, e.g. at an error location
	exit := Stack{{Function: "f"}, {Function: "g", ReturnSite: rs2}}
	want := Stack{{Function: "main"}, {Function: "f", ReturnSite: rs1}, {Function: "g", ReturnSite: rs2}}
	if diff := cmp.Diff(want, caller.Expand(exit)); diff != "" {
		t.Errorf("unexpected expansion (-want +got):\n%s", diff)
	}
}
