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
	"fmt"
	"os"
	"path"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config contains the options of the block-abstraction memoization engine and of the tools running it.
// If some field is not defined in the config file, it will be set to its default value by Load.
// private fields are not populated from a yaml file, but computed after initialization
type Config struct {
	Options `yaml:",inline"`

	sourceFile string

	// BAM contains the options of the block-abstraction memoization engine
	BAM BAMOptions `yaml:"bam"`
}

// Options are the general options of the tools.
type Options struct {
	// ReportsDir is the directory where all the reports (exported graphs, paths) will be stored. If the config
	// does not specify a ReportsDir but requests some export, then ReportsDir will be created next to the config file.
	ReportsDir string `yaml:"reports-dir"`

	// Loglevel controls the verbosity of the tool
	LogLevel int `yaml:"log-level"`

	// MaxAlarms sets a limit for the number of counterexample paths reported by the tools. If MaxAlarms > 0, then at
	// most MaxAlarms paths will be reported. Otherwise, if MaxAlarms <= 0, it is ignored.
	MaxAlarms int `yaml:"max-alarms"`
}

// BAMOptions are the options of the block-abstraction memoization engine.
type BAMOptions struct {
	// DynamicAdjustment enables the "uncached block entry" heuristic: once a target state is found inside an expanded
	// block result, later entries of that block are explored inline instead of being cached.
	DynamicAdjustment bool `yaml:"dynamic-adjustment"`

	// MaxRecursionDepth bounds the depth of the block call stack. If MaxRecursionDepth <= 0, it is ignored.
	MaxRecursionDepth int `yaml:"max-recursion-depth"`

	// MaxFixpointIterations bounds the number of iterations used to stabilize the return states of a recursive block.
	MaxFixpointIterations int `yaml:"max-fixpoint-iterations"`

	// MaxMissingBlockRetries bounds the number of times a top-level run is resumed after a stale cache entry has been
	// found during counterexample reconstruction.
	MaxMissingBlockRetries int `yaml:"max-missing-block-retries"`

	// ProofArtifacts requests that a detached copy of each block's search tree is stored with its cache entry.
	ProofArtifacts bool `yaml:"proof-artifacts"`

	// CacheShards is the number of shards of the result cache and of the data manager tables.
	CacheShards int `yaml:"cache-shards"`

	// Traversal is the waitlist order of the fixpoint engine, either "dfs" or "bfs"
	Traversal string `yaml:"traversal"`

	// Export contains the file names used by the reached set exporter. Empty names disable the corresponding export.
	Export ExportOptions `yaml:"export"`
}

// ExportOptions contains the output files of the reached set exporter
type ExportOptions struct {
	// ArgFile receives the super-graph of all cached reached sets
	ArgFile string `yaml:"arg-file"`

	// IndexedArgFile is a pattern containing %d; one file per cached reached set is written
	IndexedArgFile string `yaml:"indexed-arg-file"`

	// SimplifiedArgFile receives the super-graph of the reached sets used from the main reached set
	SimplifiedArgFile string `yaml:"simplified-arg-file"`
}

// NewDefault returns a default config.
func NewDefault() *Config {
	return &Config{
		sourceFile: "",
		Options: Options{
			ReportsDir: "",
			LogLevel:   int(InfoLevel),
			MaxAlarms:  0,
		},
		BAM: BAMOptions{
			DynamicAdjustment:      false,
			MaxRecursionDepth:      0,
			MaxFixpointIterations:  DefaultMaxFixpointIterations,
			MaxMissingBlockRetries: DefaultMaxMissingBlockRetries,
			ProofArtifacts:         false,
			CacheShards:            DefaultCacheShards,
			Traversal:              TraversalDFS,
		},
	}
}

// LoadFile reads a configuration from a file
func LoadFile(filename string) (*Config, error) {
	if filename == "" {
		return nil, fmt.Errorf("file not specified")
	}
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("could not read config file: %w", err)
	}
	return Load(filename, b)
}

// Load reads a configuration from the contents of a file. The filename is used to resolve relative paths.
func Load(filename string, contents []byte) (*Config, error) {
	cfg := NewDefault()
	if err := yaml.Unmarshal(contents, cfg); err != nil {
		return nil, fmt.Errorf("could not unmarshal config file %s: %w", filename, err)
	}

	cfg.sourceFile = filename

	// If logLevel has not been specified (i.e. it is 0) set the default to Info
	if cfg.LogLevel == 0 {
		cfg.LogLevel = int(InfoLevel)
	}
	if cfg.BAM.MaxFixpointIterations <= 0 {
		cfg.BAM.MaxFixpointIterations = DefaultMaxFixpointIterations
	}
	if cfg.BAM.MaxMissingBlockRetries < 0 {
		cfg.BAM.MaxMissingBlockRetries = DefaultMaxMissingBlockRetries
	}
	if cfg.BAM.CacheShards <= 0 {
		cfg.BAM.CacheShards = DefaultCacheShards
	}

	switch t := strings.ToLower(cfg.BAM.Traversal); t {
	case "":
		cfg.BAM.Traversal = TraversalDFS
	case TraversalDFS, TraversalBFS:
		cfg.BAM.Traversal = t
	default:
		return nil, fmt.Errorf("unknown traversal %q in %s, expected %q or %q", t, filename, TraversalDFS, TraversalBFS)
	}

	if cfg.BAM.Export.IndexedArgFile != "" && !strings.Contains(cfg.BAM.Export.IndexedArgFile, "%d") {
		return nil, fmt.Errorf("indexed-arg-file %q must contain %%d", cfg.BAM.Export.IndexedArgFile)
	}

	if cfg.BAM.Export != (ExportOptions{}) {
		if err := setReportsDir(cfg, filename); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

func setReportsDir(c *Config, filename string) error {
	if c.ReportsDir == "" {
		tmpdir, err := os.MkdirTemp(path.Dir(filename), "*-report")
		if err != nil {
			return fmt.Errorf("could not create temp dir for reports")
		}
		c.ReportsDir = tmpdir
	} else {
		err := os.Mkdir(c.ReportsDir, 0750)
		if err != nil {
			if !os.IsExist(err) {
				return fmt.Errorf("could not create directory %s", c.ReportsDir)
			}
		}
	}
	return nil
}

// RelPath returns filename path relative to the config source file
func (c Config) RelPath(filename string) string {
	return path.Join(path.Dir(c.sourceFile), filename)
}

// ReportPath returns the path of a report file inside the reports directory. If no reports directory is set, the
// filename is returned unchanged.
func (c Config) ReportPath(filename string) string {
	if c.ReportsDir == "" || path.IsAbs(filename) {
		return filename
	}
	return path.Join(c.ReportsDir, filename)
}

// UseBFS returns true when the fixpoint engine should process its waitlist in breadth-first order
func (c Config) UseBFS() bool {
	return c.BAM.Traversal == TraversalBFS
}
