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
	"context"
	"time"

	"github.com/dustin/go-humanize"

	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/logging"
	"go.chromium.org/luci/common/retry"
	"go.chromium.org/luci/common/retry/transient"
	"go.chromium.org/luci/common/sync/parallel"

	"gitee.com/openeuler/release-assistant/orchestrator/fanout"
)

// DefaultPollWorkers is how many child builds are polled at the same time.
const DefaultPollWorkers = 8

// Aggregator turns finished builds into BuildRecords.
type Aggregator struct {
	Driver *Driver
	// PollWorkers bounds concurrent polling of child builds,
	// DefaultPollWorkers if 0.
	PollWorkers int
}

// Single returns the record of a build run on its own.
func (a *Aggregator) Single(res *BuildResult) []BuildRecord {
	return []BuildRecord{res.Record()}
}

// FanOut returns records of the builds started by a finished trigger build,
// in the order the trigger started them.
//
// Children are discovered from the trigger's console log. If there are none,
// the result is empty, unless the trigger itself did not succeed, in which
// case its own record is returned so the failure is not lost.
//
// Children that cannot be polled are reported as UNKNOWN.
func (a *Aggregator) FanOut(ctx context.Context, trigger *BuildResult) ([]BuildRecord, error) {
	if trigger.Build == nil {
		return a.Single(trigger), nil
	}

	var console string
	err := retry.Retry(ctx, transient.Only(retry.Default), func() (err error) {
		console, err = a.Driver.Server.GetConsoleText(ctx, trigger.Job, trigger.Build.Number)
		return err
	}, func(err error, wait time.Duration) {
		logging.Warningf(ctx, "Failed to fetch console of %s #%d, will retry in %s: %s", trigger.Job, trigger.Build.Number, wait, err)
	})
	if err != nil {
		return nil, errors.Annotate(err, "fetching console of %s #%d", trigger.Job, trigger.Build.Number).Err()
	}

	children := fanout.Parse(console)
	logging.Infof(ctx, "%s #%d started %d builds (console log %s)",
		trigger.Job, trigger.Build.Number, len(children), humanize.Bytes(uint64(len(console))))
	if len(children) == 0 {
		if trigger.Status() != StatusSuccess {
			return a.Single(trigger), nil
		}
		return nil, nil
	}

	workers := a.PollWorkers
	if workers <= 0 {
		workers = DefaultPollWorkers
	}
	records := make([]BuildRecord, len(children))
	// Polling failures become UNKNOWN records, tasks never return errors.
	parallel.WorkPool(workers, func(work chan<- func() error) {
		for i, child := range children {
			work <- func() error {
				records[i] = a.child(ctx, child)
				return nil
			}
		}
	})
	return records, nil
}

func (a *Aggregator) child(ctx context.Context, child fanout.Child) BuildRecord {
	ctx = logging.SetField(ctx, "job", child.Job)
	b, err := a.Driver.WaitBuild(ctx, child.Job, child.Number, time.Time{})
	if err != nil {
		logging.Errorf(ctx, "Failed to get result of %s #%d: %s", child.Job, child.Number, err)
		return BuildRecord{Name: child.Job, Status: StatusUnknown, Number: child.Number}
	}
	return BuildRecord{
		Name:   child.Job,
		Status: statusOf(b.Result),
		Output: OutputLink(b.URL, child.Number),
		Number: child.Number,
	}
}
