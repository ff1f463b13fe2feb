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

package jenkins

// Job results reported by Jenkins in Build.Result.
const (
	ResultSuccess  = "SUCCESS"
	ResultUnstable = "UNSTABLE"
	ResultFailure  = "FAILURE"
	ResultNotBuilt = "NOT_BUILT"
	ResultAborted  = "ABORTED"
)

// QueueItem is a build request that may not have a build number yet.
type QueueItem struct {
	ID int64 `json:"id"`
	// Why is the reason the item is still waiting, e.g.
	// "Waiting for next available executor". Empty once it left the queue.
	Why       string `json:"why"`
	Cancelled bool   `json:"cancelled"`
	Task      *Task  `json:"task"`
	// Executable is set once the item has been assigned a build.
	Executable *Executable `json:"executable"`
}

// Waiting is true while the item has neither started nor been cancelled.
func (q *QueueItem) Waiting() bool {
	return !q.Cancelled && q.Executable == nil
}

// Task identifies the job a queue item belongs to.
type Task struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Executable is the build a queue item turned into.
type Executable struct {
	Number int64  `json:"number"`
	URL    string `json:"url"`
}

// Build is a single run of a job.
type Build struct {
	Number          int64  `json:"number"`
	URL             string `json:"url"`
	FullDisplayName string `json:"fullDisplayName"`
	Building        bool   `json:"building"`
	// Result is empty while the build is running.
	Result    string `json:"result"`
	Timestamp int64  `json:"timestamp"` // ms since epoch
	Duration  int64  `json:"duration"`  // ms
}

// Done is true once the build has a terminal result.
func (b *Build) Done() bool {
	return !b.Building && b.Result != ""
}
