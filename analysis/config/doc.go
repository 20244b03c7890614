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
Package config provides a simple way to manage configuration files.

Use [LoadFile](filename) to load a configuration from a specific filename, or [Load](filename, contents) when the
contents have already been read (e.g. from an embedded file system).

A config file is in yaml format. The top-level fields are the fields of [Options] and the `bam` section, whose fields
are defined by [BAMOptions]. For example, a valid config file is as follows:

	log-level: 4
	reports-dir: reports
	bam:
	  dynamic-adjustment: true
	  max-recursion-depth: 32
	  traversal: bfs
	  export:
	    arg-file: BlockedARG.dot
	    indexed-arg-file: ARGs/ARG_%d.dot

# Logging

A [LogGroup] is built from a config with [NewLogGroup] and passed to every component of the analysis.
*/
package config
