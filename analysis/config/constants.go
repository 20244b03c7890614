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

const (
	// DefaultMaxFixpointIterations is the default bound on the iterations that stabilize a recursive block
	DefaultMaxFixpointIterations = 64
	// DefaultMaxMissingBlockRetries is the default bound on the resumptions of a run after a stale cache entry
	DefaultMaxMissingBlockRetries = 16
	// DefaultCacheShards is the default number of shards of the concurrent tables
	DefaultCacheShards = 32
	// TraversalDFS processes the most recently added state first
	TraversalDFS = "dfs"
	// TraversalBFS processes the least recently added state first
	TraversalBFS = "bfs"
)
