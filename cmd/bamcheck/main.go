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

package main

import (
	"fmt"
	"os"

	"github.com/awslabs/argot-bam/cmd/bamcheck/blocks"
	"github.com/awslabs/argot-bam/cmd/bamcheck/check"
	"github.com/awslabs/argot-bam/cmd/bamcheck/export"
	"github.com/awslabs/argot-bam/cmd/bamcheck/paths"
	"github.com/awslabs/argot-bam/cmd/bamcheck/tools"
)

// version of the tool
const version = "v0.1.0"

const usage = `bamcheck: reachability of error locations with block-abstraction memoization
Usage:
  bamcheck [tool] [options] <program.yaml | Go package(s)>
Tools:
  - check: analyzes the program and reports whether an error location (a panic in Go programs) is reachable
  - paths: prints the distinct paths to the error location found by the analysis
  - export: writes the reached sets of the analysis as dot graphs
  - blocks: prints the blocks of the program and the recursive ones
Examples:
  Check a program from two entry functions: bamcheck check -entry f -entry g prog.yaml
  Export the graphs: bamcheck export -config config.yaml -arg arg.dot ./cmd/server`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "error: expected subcommand\n%s\n", usage)
		os.Exit(2)
	}

	// hardcode help flag
	if snd := os.Args[1]; snd == "-help" || snd == "--help" {
		fmt.Println(usage)
		return
	}

	// hardcode version flag
	if snd := os.Args[1]; snd == "-version" || snd == "--version" {
		fmt.Println(version)
		return
	}

	args := os.Args[2:]
	switch cmd := os.Args[1]; cmd {
	case "check":
		flags, err := check.NewFlags(args)
		if err != nil {
			errExit(err)
		}
		if err := check.Run(flags); err != nil {
			errExit(err)
		}
	case "paths":
		flags, err := paths.NewFlags(args)
		if err != nil {
			errExit(err)
		}
		if err := paths.Run(flags); err != nil {
			errExit(err)
		}
	case "export":
		flags, err := export.NewFlags(args)
		if err != nil {
			errExit(err)
		}
		if err := export.Run(flags); err != nil {
			errExit(err)
		}
	case "blocks":
		flags, err := tools.NewCommonFlags("blocks", args, blocks.Usage)
		if err != nil {
			errExit(err)
		}
		if err := blocks.Run(flags); err != nil {
			errExit(err)
		}
	default:
		fmt.Fprintf(os.Stderr, "error: unexpected command: %v\n", cmd)
		fmt.Fprintf(os.Stderr, "usage:\n%s\n", usage)
		os.Exit(2)
	}
}

func errExit(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	hint := tools.HintForErrorMessage(err.Error())
	if hint != "" {
		fmt.Fprintf(os.Stderr, "Hint: %s\n", hint)
	}
	os.Exit(2)
}
