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

// Package blocks prints the block partitioning of a program: the blocks, the functions they contain, and the blocks
// that are recursive.
package blocks

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/awslabs/argot-bam/analysis/cfa"
	"github.com/awslabs/argot-bam/cmd/bamcheck/tools"
	"github.com/awslabs/argot-bam/internal/formatutil"
)

// Usage for CLI
const Usage = `Print the blocks of a program.

Usage:
  bamcheck blocks [options] program

Examples:
% bamcheck blocks prog.yaml
`

// Run prints the blocks of the program loaded with flags
func Run(flags tools.CommonFlags) error {
	return run(flags, os.Stdout)
}

func run(flags tools.CommonFlags, w io.Writer) error {
	e, err := tools.NewEngine(flags)
	if err != nil {
		return err
	}
	p := e.BAM.Partitioning()
	recursive := map[*cfa.Block]bool{}
	for _, b := range p.RecursiveBlocks() {
		recursive[b] = true
	}
	for _, b := range p.Blocks() {
		line := fmt.Sprintf("%s: %d locations, functions %s", b.Name(), b.Size(), strings.Join(b.Functions(), ", "))
		switch {
		case b == p.MainBlock():
			line = formatutil.Bold(line + " (main)")
		case recursive[b]:
			line += " " + formatutil.Yellow("(recursive)")
		}
		fmt.Fprintln(w, line)
	}
	cycles := p.RecursionCycles()
	if len(cycles) == 0 {
		return nil
	}
	fmt.Fprintf(w, "%d recursion cycle(s):\n", len(cycles))
	for _, cycle := range cycles {
		names := make([]string, 0, len(cycle)+1)
		for _, b := range cycle {
			names = append(names, b.Name())
		}
		names = append(names, cycle[0].Name())
		fmt.Fprintf(w, "  %s\n", strings.Join(names, " -> "))
	}
	return nil
}
