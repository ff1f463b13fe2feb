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

// Package fanout extracts child builds from a trigger job's console log.
//
// A pipeline `build job:` step prints lines like
//
//	Starting building: release_tools » update_20230101 » aarch64 » job_1 #7
//
// Only the textual order of these lines links them to the jobs a trigger
// started.
package fanout

import (
	"strconv"
	"strings"
)

// Marker precedes each child build in the console log.
const Marker = "Starting building:"

// Child is a build started by a trigger job.
type Child struct {
	Job    string
	Number int64
}

// Parse returns children in the order they appear in the console log.
//
// Lines that do not match the expected layout are skipped. No matching lines
// yield a nil slice.
func Parse(console string) []Child {
	var out []Child
	for _, line := range strings.Split(console, "\n") {
		idx := strings.Index(line, Marker)
		if idx == -1 {
			continue
		}
		rest := line[idx+len(Marker):]
		rest = strings.ReplaceAll(rest, " » ", "/")
		rest = strings.ReplaceAll(rest, "»", "/")
		fields := strings.Fields(rest)
		if len(fields) < 2 || !strings.HasPrefix(fields[1], "#") {
			continue
		}
		num, err := strconv.ParseInt(fields[1][1:], 10, 64)
		if err != nil || num <= 0 {
			continue
		}
		out = append(out, Child{Job: fields[0], Number: num})
	}
	return out
}
