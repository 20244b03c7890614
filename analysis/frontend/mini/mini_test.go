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
	"go/types"
	"path/filepath"
	"testing"

	"github.com/awslabs/argot-bam/analysis/cfa"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
globals: [g]
functions:
  main:
    body:
      - x = f(1)
      - if: x != 2
        then: [error]
        else:
          - skip
  f:
    params: [a]
    body:
      - g = g + 1
      - while: a > 10
        do: ["a = a - 1"]
      - return a + 1
`

func TestParse(t *testing.T) {
	p, err := Parse([]byte(sample))
	require.NoError(t, err)
	assert.Equal(t, "main", p.Main)
	assert.Equal(t, []string{"g"}, p.Globals)
	require.Len(t, p.Functions, 2)
	assert.Equal(t, "main", p.Functions[0].Name)
	assert.Equal(t, "f", p.Functions[1].Name)
	assert.Equal(t, []string{"a"}, p.Functions[1].Params)

	body := p.Functions[0].Body
	require.Len(t, body, 2)
	assert.Equal(t, Assign, body[0].Kind)
	assert.Equal(t, "x", body[0].Target)
	assert.Equal(t, "f(1)", types.ExprString(body[0].Expr))
	assert.Equal(t, If, body[1].Kind)
	assert.Equal(t, "x != 2", types.ExprString(body[1].Cond))
	require.Len(t, body[1].Then, 1)
	assert.Equal(t, Error, body[1].Then[0].Kind)
	assert.Equal(t, While, p.Functions[1].Body[1].Kind)
}

func TestParseStatement(t *testing.T) {
	tests := []struct {
		text   string
		kind   StatementKind
		target string
		expr   string
	}{
		{"skip", Skip, "", ""},
		{"error", Error, "", ""},
		{"return", Return, "", ""},
		{"return x * 2", Return, "", "x * 2"},
		{"assume x == 1", Assume, "", ""},
		{"y = nondet()", Assign, "y", "nondet()"},
		{"y=x+1", Assign, "y", "x + 1"},
		{"f(1, 2)", Call, "", "f(1, 2)"},
	}
	for _, test := range tests {
		t.Run(test.text, func(t *testing.T) {
			s, err := ParseStatement(test.text)
			require.NoError(t, err)
			assert.Equal(t, test.kind, s.Kind)
			assert.Equal(t, test.target, s.Target)
			if test.expr != "" {
				assert.Equal(t, test.expr, types.ExprString(s.Expr))
			}
		})
	}

	for _, bad := range []string{"x == 1", "y = (", "assume"} {
		_, err := ParseStatement(bad)
		assert.Error(t, err, bad)
	}
}

func TestBuild(t *testing.T) {
	p, err := Parse([]byte(sample))
	require.NoError(t, err)
	c, err := Build(p)
	require.NoError(t, err)
	assert.Equal(t, "main", c.Main)
	assert.Equal(t, []string{"g"}, c.Globals)

	main := c.Function("main")
	f := c.Function("f")
	require.Len(t, main.Entry.Leaving, 1)
	call := main.Entry.Leaving[0]
	assert.Equal(t, cfa.CallEdge, call.Kind)
	assert.Equal(t, f.Entry, call.Succ)
	require.NotNil(t, call.ReturnSite)
	op, ok := call.Payload.(*cfa.Call)
	require.True(t, ok)
	assert.Equal(t, "x", op.Result)
	assert.Equal(t, "f", op.Callee)

	// the return edge goes from the exit of f to the return site
	require.Len(t, f.Exit.Leaving, 1)
	assert.Equal(t, cfa.ReturnEdge, f.Exit.Leaving[0].Kind)
	assert.Equal(t, call.ReturnSite, f.Exit.Leaving[0].Succ)

	// the if has one assume edge per branch
	assumes := call.ReturnSite.Leaving
	require.Len(t, assumes, 2)
	assert.False(t, assumes[0].Payload.(*cfa.Assume).Negate)
	assert.True(t, assumes[1].Payload.(*cfa.Assume).Negate)

	errors := 0
	for _, n := range main.Nodes {
		if n.IsError {
			errors++
		}
	}
	assert.Equal(t, 1, errors)
	assert.Equal(t, []string{"f"}, c.Callees(main))
}

func TestBuildErrors(t *testing.T) {
	tests := map[string]string{
		"unknown callee": `
functions:
  main:
    body: ["g(1)"]
`,
		"arity": `
functions:
  main:
    body: ["x = f()"]
  f:
    params: [a]
    body: []
`,
		"no main": `
main: start
functions:
  main:
    body: []
`,
		"duplicate": `
functions:
  main:
    body: []
  main:
    body: []
`,
	}
	for name, src := range tests {
		t.Run(name, func(t *testing.T) {
			p, err := Parse([]byte(src))
			if err != nil {
				return
			}
			_, err = Build(p)
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	c, err := Load(filepath.Join("testdata", "calls.yaml"))
	require.NoError(t, err)
	assert.NotNil(t, c.Function("main"))
	assert.NotNil(t, c.Function("inc"))

	_, err = Load(filepath.Join("testdata", "missing.yaml"))
	assert.Error(t, err)
}
