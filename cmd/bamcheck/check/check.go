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

// Package check implements the front-end to the block-abstraction memoization analysis: it reports, for each entry
// function, whether an error location is reachable, with a counterexample path.
package check

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/awslabs/argot-bam/analysis/bam"
	"github.com/awslabs/argot-bam/cmd/bamcheck/tools"
	"github.com/awslabs/argot-bam/internal/formatutil"
)

// Usage for CLI
const Usage = `Check whether error locations are reachable.

Usage:
  bamcheck check [options] program.yaml
  bamcheck check [options] package...

Use the -help flag to display the options.

Examples:
% bamcheck check -entry f -entry g prog.yaml
% bamcheck check -stats ./cmd/server
`

// Flags represents the parsed check sub-command flags.
type Flags struct {
	tools.CommonFlags
	entries []string
	stats   bool
}

// NewFlags returns the parsed check flags from args.
func NewFlags(args []string) (Flags, error) {
	cmd, common := tools.NewUnparsedCommonFlags("check")
	var entries tools.StringList
	cmd.Var(&entries, "entry", "function to start an analysis from (repeatable, default: the main function)")
	stats := cmd.Bool("stats", false, "print the statistics of the engine")
	if err := tools.Parse(cmd, "check", args, Usage); err != nil {
		return Flags{}, err
	}
	return Flags{CommonFlags: *common, entries: entries, stats: *stats}, nil
}

// Run runs the analysis with flags. It returns an error if the program could not be analyzed; finding a reachable
// error location is not an error.
func Run(flags Flags) error {
	return run(context.Background(), flags, os.Stdout)
}

func run(ctx context.Context, flags Flags, w io.Writer) error {
	fmt.Fprintln(os.Stderr, formatutil.Faint("Reading sources"))
	e, err := tools.NewEngine(flags.CommonFlags)
	if err != nil {
		return err
	}
	entries, err := e.EntryBlocks(flags.entries)
	if err != nil {
		return err
	}

	fmt.Fprintln(os.Stderr, formatutil.Faint("Analyzing"))
	results, err := e.BAM.RunPortfolio(ctx, entries)
	if err != nil {
		return err
	}
	for _, res := range results {
		Report(w, res)
	}
	if flags.stats {
		return e.BAM.Statistics().Print(w)
	}
	return nil
}

// Report writes the verdict of a run, and its counterexample if an error location is reachable
func Report(w io.Writer, res *bam.Result) {
	if res.Safe() {
		fmt.Fprintf(w, "%s: %s (%d states, depth %d)\n", res.Entry.Name(), formatutil.Green("SAFE"),
			res.Reached.Size(), res.MaxDepth)
		return
	}
	fmt.Fprintf(w, "%s: %s, error location %s reachable\n", res.Entry.Name(), formatutil.Red("UNSAFE"),
		res.Target.Location())
	tools.PrintPath(w, res.Witness())
}
