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

// Package export writes the reached sets built by the analysis of a program as dot graphs.
package export

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/awslabs/argot-bam/analysis/config"
	"github.com/awslabs/argot-bam/cmd/bamcheck/tools"
)

// Usage for CLI
const Usage = `Export the reached sets of the analysis as dot graphs.

Usage:
  bamcheck export [options] program

The files are written in the reports directory. The options override the export section of the configuration.

Examples:
% bamcheck export -reports-dir out -arg arg.dot -indexed 'reached/%d.dot' prog.yaml
`

// Flags represents the parsed export sub-command flags.
type Flags struct {
	tools.CommonFlags
	reportsDir string
	argFile    string
	indexed    string
	simplified string
}

// NewFlags returns the parsed export flags from args.
func NewFlags(args []string) (Flags, error) {
	cmd, common := tools.NewUnparsedCommonFlags("export")
	reportsDir := cmd.String("reports-dir", "", "directory receiving the graphs")
	argFile := cmd.String("arg", "", "file receiving the graph of all reached sets")
	indexed := cmd.String("indexed", "", "pattern with %d of the files receiving one reached set each")
	simplified := cmd.String("simplified", "", "file receiving the graph of the reached sets used by the main one")
	if err := tools.Parse(cmd, "export", args, Usage); err != nil {
		return Flags{}, err
	}
	if *indexed != "" && !strings.Contains(*indexed, "%d") {
		return Flags{}, fmt.Errorf("-indexed %q must contain %%d", *indexed)
	}
	return Flags{
		CommonFlags: *common,
		reportsDir:  *reportsDir,
		argFile:     *argFile,
		indexed:     *indexed,
		simplified:  *simplified,
	}, nil
}

// Run analyzes the program from its main function and writes the requested graphs.
func Run(flags Flags) error {
	return run(context.Background(), flags, os.Stdout)
}

func run(ctx context.Context, flags Flags, w io.Writer) error {
	e, err := tools.NewEngine(flags.CommonFlags)
	if err != nil {
		return err
	}
	opts := &e.Config.BAM.Export
	if flags.argFile != "" {
		opts.ArgFile = flags.argFile
	}
	if flags.indexed != "" {
		opts.IndexedArgFile = flags.indexed
	}
	if flags.simplified != "" {
		opts.SimplifiedArgFile = flags.simplified
	}
	if flags.reportsDir != "" {
		e.Config.ReportsDir = flags.reportsDir
	}
	if *opts == (config.ExportOptions{}) {
		return fmt.Errorf("nothing to export: set -arg, -indexed or -simplified")
	}

	res, err := e.BAM.Run(ctx)
	if err != nil {
		return err
	}
	exporter := e.BAM.NewExporter()
	if err := exporter.Export(res.Reached); err != nil {
		return err
	}
	dir := e.Config.ReportsDir
	if dir == "" {
		dir = "."
	}
	fmt.Fprintf(w, "exported %d reached set(s) to %s\n", len(exporter.AllReachedSets(res.Reached)), dir)
	return nil
}
