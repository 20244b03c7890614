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
	"fmt"
	"io"

	"github.com/awslabs/argot-bam/analysis/arg"
	"github.com/awslabs/argot-bam/analysis/cfa"
	"github.com/awslabs/argot-bam/internal/formatutil"
)

// edgeBetween returns the code of the first edge from a to b, or the empty string
func edgeBetween(a, b *cfa.Node) string {
	if a == nil || b == nil {
		return ""
	}
	for _, e := range a.Leaving {
		if e.Succ == b {
			return e.Code
		}
	}
	return ""
}

// PrintPath writes the nodes of a path, one per line, with the code of the edges between consecutive locations
func PrintPath(w io.Writer, nodes []*arg.Node) {
	var prev *cfa.Node
	for _, n := range nodes {
		loc := n.Location()
		if code := edgeBetween(prev, loc); code != "" {
			fmt.Fprintf(w, "      %s\n", formatutil.Faint(formatutil.Sanitize(code)))
		}
		where := "?"
		if loc != nil {
			where = fmt.Sprintf("%s in %s", loc, loc.Function)
		}
		line := fmt.Sprintf("  [%d] %s", n.ID(), where)
		switch {
		case n.IsTarget():
			fmt.Fprintln(w, formatutil.Red(line))
		case n.Kind() != arg.Ordinary:
			fmt.Fprintf(w, "%s %s\n", line, formatutil.Italic("("+n.Kind().String()+")"))
		default:
			fmt.Fprintln(w, line)
		}
		prev = loc
	}
}
