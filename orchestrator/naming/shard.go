// Copyright 2026 The LUCI Authors.
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

package naming

// Shards maps a worker job name to packages it builds.
type Shards map[string][]string

// Shard distributes packages over jobs round robin: the package at position
// i goes to jobs[i % len(jobs)]. Packages keep their relative order within
// a shard.
//
// Every job gets an entry, possibly empty, so the set of jobs does not depend
// on the number of packages. Returns an empty map if jobs is empty.
func Shard(packages, jobs []string) Shards {
	shards := make(Shards, len(jobs))
	if len(jobs) == 0 {
		return shards
	}
	for _, job := range jobs {
		shards[job] = nil
	}
	for i, pkg := range packages {
		job := jobs[i%len(jobs)]
		shards[job] = append(shards[job], pkg)
	}
	return shards
}

// NonEmpty returns jobs that have at least one package, in the given order.
func (s Shards) NonEmpty(jobs []string) []string {
	var out []string
	for _, job := range jobs {
		if len(s[job]) != 0 {
			out = append(out, job)
		}
	}
	return out
}
