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

// Package paths prints the distinct paths from the entry of a program to the error location found by the analysis.
package paths

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/awslabs/argot-bam/cmd/bamcheck/tools"
	"github.com/awslabs/argot-bam/internal/formatutil"
)

// Usage for CLI
const Usage = `Print the paths to the error location reached by the analysis.

Usage:
  bamcheck paths [options] program

Paths that go through the same blocks along different calls are printed once per call.

Examples:
% bamcheck paths -max 5 prog.yaml
`

// Flags represents the parsed paths sub-command flags.
type Flags struct {
	tools.CommonFlags
	maxPaths int
}

// NewFlags returns the parsed paths flags from args.
func NewFlags(args []string) (Flags, error) {
	cmd, common := tools.NewUnparsedCommonFlags("paths")
	maxPaths := cmd.Int("max", -1, "maximum number of paths printed, 0 for all (default: max-alarms of the config)")
	if err := tools.Parse(cmd, "paths", args, Usage); err != nil {
		return Flags{}, err
	}
	return Flags{CommonFlags: *common, maxPaths: *maxPaths}, nil
}

// Run prints the paths to the first error location found from the main function.
func Run(flags Flags) error {
	return run(context.Background(), flags, os.Stdout)
}

func run(ctx context.Context, flags Flags, w io.Writer) error {
	e, err := tools.NewEngine(flags.CommonFlags)
	if err != nil {
		return err
	}
	res, err := e.BAM.Run(ctx)
	if err != nil {
		return err
	}
	if res.Safe() {
		fmt.Fprintf(w, "%s: %s, no path to print\n", res.Entry.Name(), formatutil.Green("SAFE"))
		return nil
	}

	limit := flags.maxPaths
	if limit < 0 {
		limit = e.Config.MaxAlarms
	}
	it := e.BAM.NewSubgraphComputer().NewPathIterator(res.Target)
	count := 0
	for limit <= 0 || count < limit {
		path := it.NextPath(nil)
		if path == nil {
			break
		}
		count++
		fmt.Fprintf(w, "%s\n", formatutil.Bold(fmt.Sprintf("path %d (%d nodes):", count, len(path.Nodes))))
		tools.PrintPath(w, path.Nodes)
	}
	fmt.Fprintf(w, "%d path(s) to %s\n", count, res.Target.Location())
	return nil
}
