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

/*
Package bam implements block-abstraction memoization: blocks of the program (typically function bodies) are analyzed
once per reduced entry state, and their results are reused at every entry with the same reduced state.

The TransferRelation is the outermost transfer relation of a run. At the call node of a block, it reduces the state
with the Reducer of the analysis, and looks up the ResultCache:
  - on a hit, the stored return states are used directly;
  - on a partial hit, the exploration of the stored reached set is resumed;
  - on a miss, a new reached set is registered and explored with a nested run of the fixpoint engine.

The return states are then expanded into the context of the caller. The DataManager records the relations between
the nodes of the different reached sets, which the SubgraphComputer follows backwards to rebuild counterexamples
crossing block boundaries.

Recursion is handled with the CallStack of the run: a block entered while it is active is explored in a reached set
that is not cached, and a re-entry with the same reduced state as an active invocation is answered with the return
states found so far, the active invocation being explored again until these return states are stable.

Cached reached sets can be invalidated. When a counterexample goes through an invalidated reached set, reconstruction
fails with an error matching ErrMissingBlock, and the driver (BAM.RunFrom) resumes the exploration so that the block
is recomputed.
*/
package bam
