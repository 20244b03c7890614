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

package check

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheck(t *testing.T) {
	flags, err := NewFlags([]string{"-entry", "main", "-entry", "inc", "-stats", filepath.Join("testdata", "inc.yaml")})
	require.NoError(t, err)
	var out bytes.Buffer
	require.NoError(t, run(context.Background(), flags, &out))
	s := out.String()
	assert.Contains(t, s, "main: UNSAFE")
	assert.Contains(t, s, "inc: SAFE")
	assert.Contains(t, s, "bam_block_entries_total")
	assert.Contains(t, s, "return from inc", "the path goes through the return edge of inc")
}

func TestCheckUnknownEntry(t *testing.T) {
	flags, err := NewFlags([]string{"-entry", "nope", filepath.Join("testdata", "inc.yaml")})
	require.NoError(t, err)
	assert.Error(t, run(context.Background(), flags, &bytes.Buffer{}))
}
