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

package paths

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaths(t *testing.T) {
	flags, err := NewFlags([]string{"-max", "1", filepath.Join("testdata", "two.yaml")})
	require.NoError(t, err)
	var out bytes.Buffer
	require.NoError(t, run(context.Background(), flags, &out))
	assert.Contains(t, out.String(), "path 1")
	assert.NotContains(t, out.String(), "path 2")
	assert.Contains(t, out.String(), "1 path(s)")
}

func TestPathsSafe(t *testing.T) {
	flags, err := NewFlags([]string{"-main", "id", filepath.Join("testdata", "two.yaml")})
	require.NoError(t, err)
	var out bytes.Buffer
	require.NoError(t, run(context.Background(), flags, &out))
	assert.Contains(t, out.String(), "id: SAFE")
}
