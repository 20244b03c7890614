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

package config

import (
	"bytes"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

//go:embed testdata
var testfsys embed.FS

func loadFromTestDir(filename string) (string, *Config, error) {
	filename = filepath.Join("testdata", filename)
	b, err := testfsys.ReadFile(filename)
	if err != nil {
		return "", nil, fmt.Errorf("failed to read file %v: %v", filename, err)
	}
	config, err := Load(filename, b)
	if err != nil {
		return filename, nil, fmt.Errorf("failed to load file %v: %v", filename, err)
	}
	return filename, config, err
}

func testLoadOneFile(t *testing.T, filename string, expected Config) {
	configFileName, config, err := loadFromTestDir(filename)
	if err != nil {
		t.Fatalf("Error loading %q: %v", configFileName, err)
	}
	c1, err1 := yaml.Marshal(config)
	c2, err2 := yaml.Marshal(expected)
	if err1 != nil {
		t.Errorf("Error marshalling %v", config)
	}
	if err2 != nil {
		t.Errorf("Error marshalling %v", expected)
	}
	if string(c1) != string(c2) {
		t.Errorf("Error in %q:\n%q is not\n%q\n", filename, c1, c2)
	}
}

func TestNewDefault(t *testing.T) {
	c := NewDefault()
	if c.LogLevel != int(InfoLevel) {
		t.Errorf("Default log level should be info")
	}
	if c.BAM.Traversal != TraversalDFS || c.UseBFS() {
		t.Errorf("Default traversal should be depth-first")
	}
	if c.BAM.CacheShards != DefaultCacheShards {
		t.Errorf("Default cache shards should be %d", DefaultCacheShards)
	}
	if c.ReportPath("x.dot") != "x.dot" {
		t.Errorf("Report path without reports dir should be unchanged")
	}
}

func TestLoadEmptyFileGivesDefaults(t *testing.T) {
	testLoadOneFile(t, "empty.yaml", *NewDefault())
}

func TestLoadBAMOptions(t *testing.T) {
	c := NewDefault()
	c.LogLevel = int(DebugLevel)
	c.MaxAlarms = 3
	c.BAM.DynamicAdjustment = true
	c.BAM.MaxRecursionDepth = 12
	c.BAM.MaxFixpointIterations = 8
	c.BAM.ProofArtifacts = true
	c.BAM.CacheShards = 4
	c.BAM.Traversal = TraversalBFS
	testLoadOneFile(t, "config_bam.yaml", *c)
}

func TestLoadWithExport(t *testing.T) {
	_, config, err := loadFromTestDir("config_with_export.yaml")
	if err != nil {
		t.Fatalf("could not load config: %v", err)
	}
	defer os.Remove("example-report")
	if config.ReportsDir != "example-report" {
		t.Errorf("Expected reports dir to be example-report, got %q", config.ReportsDir)
	}
	if p := config.ReportPath(config.BAM.Export.ArgFile); p != filepath.Join("example-report", "BlockedARG.dot") {
		t.Errorf("Unexpected report path %q", p)
	}
	if config.RelPath("x") != filepath.Join("testdata", "x") {
		t.Errorf("RelPath should be relative to the config file")
	}
}

func TestLoadInvalidFilesReturnError(t *testing.T) {
	for _, name := range []string{"bad_format.yaml", "config_bad_pattern.yaml", "config_bad_traversal.yaml"} {
		t.Run(name, func(t *testing.T) {
			_, config, err := loadFromTestDir(name)
			if config != nil || err == nil {
				t.Errorf("Expected error and nil value when trying to load %s", name)
			}
		})
	}
}

func TestLoadNonExistentFileReturnsError(t *testing.T) {
	c, err := LoadFile(filepath.Join("testdata", "does-not-exist.yaml"))
	if c != nil || err == nil {
		t.Errorf("Expected error and nil value when trying to load non existent file.")
	}
	if _, err := LoadFile(""); err == nil {
		t.Errorf("Expected error when no file is specified")
	}
}

func TestLogGroupLevels(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogGroupWithOutput(WarnLevel, &buf)
	l.SetAllFlags(0)
	l.Debugf("hidden %d", 1)
	l.Infof("hidden %d", 2)
	l.Warnf("shown %d", 3)
	l.Errorf("shown %d", 4)
	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("messages below the level should be dropped: %q", out)
	}
	if !strings.Contains(out, "[WARN] shown 3") || !strings.Contains(out, "[ERROR] shown 4") {
		t.Errorf("expected warning and error messages, got %q", out)
	}
	if l.LogsDebug() {
		t.Errorf("warn level should not log debug")
	}
}
