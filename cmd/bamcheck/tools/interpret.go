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

import "regexp"

// Captures errors happening before any analysis starts (program could not load)
var regexCouldNotLoad = regexp.MustCompile("could not load program")

// Captures the kind of error that happen when you put a flag at the end instead of the program
var namedFilesMustBeGoFiles = regexp.MustCompile("-: named files must be .go files: -(\\w)")

// Captures the errors of the translation when the start function does not exist
var missingMainFunction = regexp.MustCompile(`main function "[^"]*" not (found|defined)`)

// Captures the errors raised when the recursion bounds are exceeded
var recursionLimit = regexp.MustCompile("recursion limit exceeded")

// HintForErrorMessage looks for specific error message and returns some other message that might help the user
// resolve the problem.
func HintForErrorMessage(errMsg string) string {
	if regexCouldNotLoad.MatchString(errMsg) {
		if namedFilesMustBeGoFiles.MatchString(errMsg) {
			return "all command line flags should be before the path to the program to analyze"
		}
		return "the program should be a single .yaml file, or Go package patterns"
	}
	if missingMainFunction.MatchString(errMsg) {
		return "use the -main flag to name the function the analysis starts in"
	}
	if recursionLimit.MatchString(errMsg) {
		return "increase max-recursion-depth or max-fixpoint-iterations in the bam section of the config file"
	}
	return ""
}
