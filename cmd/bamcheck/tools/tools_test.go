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

package tools

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validateHint(t *testing.T, errorMsg string, containedHint string) {
	hint := HintForErrorMessage(errorMsg)
	if !strings.Contains(hint, containedHint) {
		t.Fatalf("incorrect hint; check and update error message if necessary")
	}
}

func TestHintForFlagAfterFiles(t *testing.T) {
	errorMsg := "error: could not load program:\n -: named files must be .go files: -v"
	containedHint := "all command line flags should be before the path"
	validateHint(t, errorMsg, containedHint)
}

func TestHintForFailedLoadProgram(t *testing.T) {
	errorMsg := "error: could not load program:\n errors found while loading [./...]\n"
	containedHint := "a single .yaml file, or Go package patterns"
	validateHint(t, errorMsg, containedHint)
}

func TestHintForMissingMain(t *testing.T) {
	errorMsg := `error: could not translate program: main function "main" not found`
	validateHint(t, errorMsg, "-main flag")
}

func TestHintForRecursionLimit(t *testing.T) {
	errorMsg := "error: analysis of main failed: recursion limit exceeded: depth 4 reached when entering f"
	validateHint(t, errorMsg, "max-recursion-depth")
	assert.Empty(t, HintForErrorMessage("something else"))
}

func TestCommonFlags(t *testing.T) {
	flags, err := NewCommonFlags("check", []string{"-main", "start", "-verbose", "prog.yaml"}, "usage")
	require.NoError(t, err)
	assert.Equal(t, "start", flags.Main)
	assert.True(t, flags.Verbose)
	assert.Equal(t, []string{"prog.yaml"}, flags.FlagSet.Args())
}

func TestIsMiniProgram(t *testing.T) {
	assert.True(t, IsMiniProgram([]string{"a/prog.yaml"}))
	assert.True(t, IsMiniProgram([]string{"prog.YML"}))
	assert.False(t, IsMiniProgram([]string{"./..."}))
	assert.False(t, IsMiniProgram([]string{"a.yaml", "b.yaml"}))
}

func TestNewEngine(t *testing.T) {
	prog := filepath.Join("testdata", "start.yaml")
	flags, err := NewCommonFlags("check", []string{"-main", "start", prog}, "usage")
	require.NoError(t, err)
	e, err := NewEngine(flags)
	require.NoError(t, err)
	assert.Equal(t, "start", e.CFA.Main)
	assert.Equal(t, "start", e.BAM.Partitioning().MainBlock().Name())

	blocks, err := e.EntryBlocks(nil)
	require.NoError(t, err)
	assert.Equal(t, e.BAM.Partitioning().MainBlock(), blocks[0])
	blocks, err = e.EntryBlocks([]string{"twice"})
	require.NoError(t, err)
	assert.Equal(t, "twice", blocks[0].Name())
	_, err = e.EntryBlocks([]string{"missing"})
	assert.Error(t, err)

	flags, err = NewCommonFlags("check", []string{prog}, "usage")
	require.NoError(t, err)
	_, err = NewEngine(flags)
	assert.Error(t, err, "the program has no main function")
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.False(t, cfg.UseBFS())
	_, err = LoadConfig(filepath.Join("testdata", "missing.yaml"))
	assert.Error(t, err)
}
