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

// Package tools contains utility types and functions for the bamcheck sub-commands.
package tools

import (
	"flag"
	"fmt"
	"go/build"
	"os"
	"path/filepath"
	"strings"

	"github.com/awslabs/argot-bam/analysis/bam"
	"github.com/awslabs/argot-bam/analysis/cfa"
	"github.com/awslabs/argot-bam/analysis/config"
	"github.com/awslabs/argot-bam/analysis/domains/explicit"
	"github.com/awslabs/argot-bam/analysis/frontend/mini"
	"github.com/awslabs/argot-bam/analysis/frontend/ssacfa"
	"golang.org/x/tools/go/buildutil"
)

// CommonFlags represents the parsed flags shared by all the sub-commands.
// E.g., for the command `bamcheck check ...`, "check" is the sub-command.
type CommonFlags struct {
	FlagSet    *flag.FlagSet
	ConfigPath string
	Verbose    bool
	// Main is the function the analysis starts in
	Main string
	// Platform is the GOOS used to load Go packages
	Platform string
}

// NewUnparsedCommonFlags returns an unparsed flag set with a given name, with the flags -config, -verbose, -main,
// -platform and -build-tags. Sub-commands add their own flags before parsing.
func NewUnparsedCommonFlags(name string) (*flag.FlagSet, *CommonFlags) {
	cmd := flag.NewFlagSet(name, flag.ExitOnError)
	flags := &CommonFlags{FlagSet: cmd}
	cmd.StringVar(&flags.ConfigPath, "config", "", "config file path for analysis")
	cmd.BoolVar(&flags.Verbose, "verbose", false, "verbose printing on standard output")
	cmd.StringVar(&flags.Main, "main", "", "name of the function the analysis starts in (default: main)")
	cmd.StringVar(&flags.Platform, "platform", "", "GOOS used to load Go packages")
	cmd.Var((*buildutil.TagsFlag)(&build.Default.BuildTags), "build-tags", buildutil.TagsFlagDoc)
	return cmd, flags
}

// NewCommonFlags returns a parsed flag set with a given name.
// Returns an error if args are invalid.
// Prints cmdUsage along with flag docs as the --help message.
func NewCommonFlags(name string, args []string, cmdUsage string) (CommonFlags, error) {
	cmd, flags := NewUnparsedCommonFlags(name)
	if err := Parse(cmd, name, args, cmdUsage); err != nil {
		return CommonFlags{}, err
	}
	return *flags, nil
}

// Parse sets the usage of cmd and parses args
func Parse(cmd *flag.FlagSet, name string, args []string, cmdUsage string) error {
	SetUsage(cmd, cmdUsage)
	if err := cmd.Parse(args); err != nil {
		return fmt.Errorf("failed to parse command %s with args %v: %v", name, args, err)
	}
	return nil
}

// SetUsage sets cmd's usage (for --help flag) to output the string cmdUsage
// followed by each flag's documentation.
func SetUsage(cmd *flag.FlagSet, cmdUsage string) {
	cmd.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s\n", cmdUsage)
		fmt.Fprintf(os.Stderr, "Options:\n")
		cmd.VisitAll(func(f *flag.Flag) {
			fmt.Fprintf(os.Stderr, "  %s: %s (default: %q)\n", f.Name, f.Usage, f.DefValue)
		})
	}
}

// LoadConfig loads the config file from configPath. An empty path gives the default configuration.
func LoadConfig(configPath string) (*config.Config, error) {
	if configPath == "" {
		return config.NewDefault(), nil
	}
	cfg, err := config.LoadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file %s: %v", configPath, err)
	}
	return cfg, nil
}

// IsMiniProgram returns true if the arguments name a single program in the YAML format
func IsMiniProgram(args []string) bool {
	if len(args) != 1 {
		return false
	}
	ext := strings.ToLower(filepath.Ext(args[0]))
	return ext == ".yaml" || ext == ".yml"
}

// LoadProgram returns the automaton of the program named by args: a single YAML program, or Go packages
func LoadProgram(flags CommonFlags, args []string) (*cfa.CFA, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("could not load program: no program given")
	}
	if IsMiniProgram(args) {
		p, err := mini.ParseFile(args[0])
		if err != nil {
			return nil, fmt.Errorf("could not load program: %w", err)
		}
		if flags.Main != "" {
			p.Main = flags.Main
		}
		c, err := mini.Build(p)
		if err != nil {
			return nil, fmt.Errorf("could not translate program: %w", err)
		}
		return c, nil
	}
	pkgs, err := ssacfa.LoadPackages(nil, flags.Platform, args)
	if err != nil {
		return nil, fmt.Errorf("could not load program:\n %w", err)
	}
	main := flags.Main
	if main == "" {
		main = "main"
	}
	c, err := ssacfa.Build(pkgs, main)
	if err != nil {
		return nil, fmt.Errorf("could not translate program: %w", err)
	}
	return c, nil
}

// Engine is a loaded program with the engine analyzing it
type Engine struct {
	Config *config.Config
	Logger *config.LogGroup
	CFA    *cfa.CFA
	BAM    *bam.BAM
}

// NewEngine loads the configuration and the program, and returns an engine analyzing the program with the explicit
// value analysis, one block per function.
func NewEngine(flags CommonFlags) (*Engine, error) {
	cfg, err := LoadConfig(flags.ConfigPath)
	if err != nil {
		return nil, err
	}
	if flags.Verbose {
		cfg.LogLevel = int(config.DebugLevel)
	}
	logger := config.NewLogGroup(cfg)
	c, err := LoadProgram(flags, flags.FlagSet.Args())
	if err != nil {
		return nil, err
	}
	p, err := cfa.PartitionByFunction(c, c.Main)
	if err != nil {
		return nil, err
	}
	if logger.LogsDebug() {
		logger.Debugf("%d functions, %d locations, %d blocks", len(c.Functions()), len(c.Nodes()), len(p.Blocks()))
	}
	return &Engine{
		Config: cfg,
		Logger: logger,
		CFA:    c,
		BAM:    bam.New(cfg, logger, p, explicit.NewAnalysis(c)),
	}, nil
}

// EntryBlocks returns the blocks of the named functions, or the main block if names is empty
func (e *Engine) EntryBlocks(names []string) ([]*cfa.Block, error) {
	p := e.BAM.Partitioning()
	if len(names) == 0 {
		return []*cfa.Block{p.MainBlock()}, nil
	}
	var blocks []*cfa.Block
	for _, name := range names {
		b := p.BlockForFunction(name)
		if b == nil {
			return nil, fmt.Errorf("no function named %q", name)
		}
		blocks = append(blocks, b)
	}
	return blocks, nil
}

// StringList is a flag that can be repeated
type StringList []string

func (s *StringList) String() string {
	if s == nil {
		return "[]"
	}
	return fmt.Sprintf("%v", []string(*s))
}

// Set adds value to s.
// This method satisfies the flag.Value interface.
func (s *StringList) Set(value string) error {
	*s = append(*s, value)
	return nil
}
