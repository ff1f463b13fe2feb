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

	"go.chromium.org/luci/common/clock"
	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/logging"
	"go.chromium.org/luci/common/retry"
	"go.chromium.org/luci/common/retry/transient"

	"gitee.com/openeuler/release-assistant/jenkins"
)

const (
	// DefaultQueuePollInterval is how often a queue item is polled.
	DefaultQueuePollInterval = time.Second
	// DefaultBuildPollInterval is how often a running build is polled.
	DefaultBuildPollInterval = 5 * time.Second

	// maxPollErrors is how many consecutive transient errors stop polling.
	maxPollErrors = 10
)

var errNoQueueItem = errors.New("jenkins did not return a queue item")

// BuildResult is what Driver.Run observed.
type BuildResult struct {
	Job string
	// Found is false if the job does not exist.
	Found bool
	// Cancelled is true if the queue item was cancelled before it started.
	Cancelled bool
	// Build is the finished build, nil if it never started or did not finish
	// in time.
	Build *jenkins.Build
}

// Status is the terminal status of the build.
func (r *BuildResult) Status() Status {
	switch {
	case r.Cancelled:
		return StatusAborted
	case r.Build == nil:
		return StatusUnknown
	}
	return statusOf(r.Build.Result)
}

// Record converts the result to a BuildRecord.
func (r *BuildResult) Record() BuildRecord {
	rec := BuildRecord{Name: r.Job, Status: r.Status()}
	if r.Build != nil {
		rec.Number = r.Build.Number
		rec.Output = OutputLink(r.Build.URL, r.Build.Number)
	}
	return rec
}

// Driver triggers builds and waits for them to finish.
type Driver struct {
	Server Server
	// Retry is how many times a build request is repeated when Jenkins does
	// not return a queue item, DefaultRetry if 0.
	Retry int

	QueuePollInterval time.Duration
	BuildPollInterval time.Duration
}

func (d *Driver) queuePollInterval() time.Duration {
	if d.QueuePollInterval > 0 {
		return d.QueuePollInterval
	}
	return DefaultQueuePollInterval
}

func (d *Driver) buildPollInterval() time.Duration {
	if d.BuildPollInterval > 0 {
		return d.BuildPollInterval
	}
	return DefaultBuildPollInterval
}

// Trigger requests a build and returns its queue item ID.
//
// Returns found=false if the job does not exist.
func (d *Driver) Trigger(ctx context.Context, job string, params map[string]string) (id int64, found bool, err error) {
	policy := func() retry.Iterator {
		return &retry.Limited{Delay: d.queuePollInterval(), Retries: retries(d.Retry)}
	}
	err = retry.Retry(ctx, transient.Only(policy), func() (err error) {
		id, err = d.Server.BuildJob(ctx, job, params)
		if err == nil && id == 0 {
			return transient.Tag.Apply(errNoQueueItem)
		}
		return err
	}, func(err error, wait time.Duration) {
		logging.Warningf(ctx, "Failed to build %q, will retry in %s: %s", job, wait, err)
	})
	switch {
	case errors.Is(err, jenkins.ErrNotFound):
		logging.Warningf(ctx, "Job %q does not exist", job)
		return 0, false, nil
	case err != nil:
		return 0, true, errors.Annotate(err, "triggering %q", job).Err()
	}
	logging.Infof(ctx, "Triggered %q, queue item %d", job, id)
	return id, true, nil
}

// WaitQueue polls a queue item until it is cancelled or gets a build.
//
// A zero deadline means no deadline.
func (d *Driver) WaitQueue(ctx context.Context, id int64, deadline time.Time) (item *jenkins.QueueItem, err error) {
	err = d.poll(ctx, d.queuePollInterval(), deadline, func() (bool, error) {
		item, err = d.Server.GetQueueItem(ctx, id)
		if err != nil {
			return false, err
		}
		if item.Waiting() {
			logging.Debugf(ctx, "Queue item %d is waiting: %s", id, item.Why)
			return false, nil
		}
		return true, nil
	})
	if err != nil {
		return nil, errors.Annotate(err, "waiting for queue item %d", id).Err()
	}
	return item, nil
}

// WaitBuild polls a build until it has a result.
//
// A zero deadline means no deadline.
func (d *Driver) WaitBuild(ctx context.Context, job string, number int64, deadline time.Time) (build *jenkins.Build, err error) {
	err = d.poll(ctx, d.buildPollInterval(), deadline, func() (bool, error) {
		build, err = d.Server.GetBuild(ctx, job, number)
		if err != nil {
			return false, err
		}
		return build.Done(), nil
	})
	if err != nil {
		return nil, errors.Annotate(err, "waiting for %s #%d", job, number).Err()
	}
	return build, nil
}

// poll calls check every interval until it is done, returns a fatal error or
// the deadline passes.
func (d *Driver) poll(ctx context.Context, interval time.Duration, deadline time.Time, check func() (bool, error)) error {
	errCount := 0
	for {
		done, err := check()
		switch {
		case err == nil && done:
			return nil
		case err == nil:
			errCount = 0
		case !transient.Tag.In(err):
			return err
		default:
			errCount++
			if errCount >= maxPollErrors {
				return errors.Annotate(err, "giving up after %d errors", errCount).Err()
			}
			logging.Warningf(ctx, "Transient error while polling: %s", err)
		}

		if !deadline.IsZero() && !clock.Now(ctx).Add(interval).Before(deadline) {
			return ErrWaitTimeout
		}
		if r := clock.Sleep(ctx, interval); r.Err != nil {
			return r.Err
		}
	}
}

// Run triggers a build and waits for it to finish.
//
// maxWait bounds the total wait, zero means no bound. Exceeding it returns
// ErrWaitTimeout along with what was observed so far.
func (d *Driver) Run(ctx context.Context, job string, params map[string]string, maxWait time.Duration) (*BuildResult, error) {
	var deadline time.Time
	if maxWait > 0 {
		deadline = clock.Now(ctx).Add(maxWait)
	}

	ctx = logging.SetField(ctx, "job", job)
	res := &BuildResult{Job: job}
	id, found, err := d.Trigger(ctx, job, params)
	if err != nil || !found {
		return res, err
	}
	res.Found = true

	item, err := d.WaitQueue(ctx, id, deadline)
	if err != nil {
		return res, err
	}
	if item.Cancelled {
		logging.Warningf(ctx, "Queue item %d of %q was cancelled", id, job)
		res.Cancelled = true
		return res, nil
	}

	res.Build, err = d.WaitBuild(ctx, job, item.Executable.Number, deadline)
	if err != nil {
		return res, err
	}
	logging.Infof(ctx, "%s #%d finished: %s", job, res.Build.Number, res.Build.Result)
	return res, nil
}
