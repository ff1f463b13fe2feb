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

package orchestrator

import (
	"fmt"
	"strings"

	"gitee.com/openeuler/release-assistant/jenkins"
)

// Status is the terminal state of a build as reported to release managers.
type Status string

const (
	StatusSuccess Status = "SUCCESS"
	StatusFailure Status = "FAILURE"
	StatusAborted Status = "ABORTED"
	StatusUnknown Status = "UNKNOWN"
)

// statusOf maps a Jenkins build result.
//
// UNSTABLE builds had failing tests and count as failures. NOT_BUILT and
// anything unrecognized are UNKNOWN.
func statusOf(result string) Status {
	switch result {
	case jenkins.ResultSuccess:
		return StatusSuccess
	case jenkins.ResultFailure, jenkins.ResultUnstable:
		return StatusFailure
	case jenkins.ResultAborted:
		return StatusAborted
	default:
		return StatusUnknown
	}
}

// BuildRecord is the outcome of one build.
type BuildRecord struct {
	Name   string `json:"name"`
	Status Status `json:"status"`
	// Output is a markdown link to the console log, empty if the build never
	// started.
	Output string `json:"output,omitempty"`
	Number int64  `json:"number,omitempty"`
}

// OutputLink formats a markdown link to the console of build number, given
// the URL of any build of the same job.
//
// The last path segment of buildURL is replaced with number.
func OutputLink(buildURL string, number int64) string {
	base := strings.TrimSuffix(buildURL, "/")
	idx := strings.LastIndex(base, "/")
	if idx == -1 {
		return ""
	}
	return fmt.Sprintf("[#%d](%s/%d/console)", number, base[:idx], number)
}

// AllSucceeded is true if there is at least one record and every record is
// SUCCESS.
//
// An empty list carries no information and is not a success.
func AllSucceeded(records []BuildRecord) bool {
	if len(records) == 0 {
		return false
	}
	for _, r := range records {
		if r.Status != StatusSuccess {
			return false
		}
	}
	return true
}
