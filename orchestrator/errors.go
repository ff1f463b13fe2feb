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

// Package orchestrator creates per-release Jenkins jobs from templates, runs
// them and collects their results.
//
// A self-build run for a release computes worker job names for every
// architecture, shards packages over them, renders job configs from template
// jobs, creates the jobs concurrently and finally builds a trigger job that
// starts all workers. Results are reported per worker job as BuildRecords.
package orchestrator

import (
	"go.chromium.org/luci/common/errors"

	"gitee.com/openeuler/release-assistant/orchestrator/jobtmpl"
	"gitee.com/openeuler/release-assistant/orchestrator/naming"
)

var (
	// ErrConfiguration is returned when required configuration is missing.
	ErrConfiguration = naming.ErrConfiguration

	// ErrTemplate is returned when a template job does not have the layout
	// configs are rendered from.
	ErrTemplate = jobtmpl.ErrTemplate

	// ErrDispatch is returned when some jobs could not be created after all
	// retries.
	ErrDispatch = errors.New("failed to create jobs")

	// ErrWaitTimeout is returned when a build did not finish in time.
	ErrWaitTimeout = errors.New("timed out waiting for the build")
)
