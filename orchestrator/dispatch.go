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

	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/logging"
	"go.chromium.org/luci/common/sync/parallel"
)

// DefaultConcurrency is how many jobs are created at the same time.
const DefaultConcurrency = 75

// JobSpec is a job to create.
type JobSpec struct {
	Path string
	// Render returns the job config. Its errors are permanent: the job is not
	// retried.
	Render func() (string, error)
}

// DispatchOutcome is the result of one attempt to create a job.
type DispatchOutcome struct {
	Job     string
	Created bool
	// Err is set if the config could not be rendered.
	Err error
}

// DispatchReport summarizes a dispatch.
type DispatchReport struct {
	// Created lists created jobs in the order they were requested.
	Created []string
	// Failed lists jobs that were not created after all sweeps, in the order
	// they were requested.
	Failed []string
	// Sweeps is the number of sweeps performed.
	Sweeps int
	// Errs are render errors of failed jobs.
	Errs errors.MultiError
}

// Err returns nil if every job was created.
func (r *DispatchReport) Err() error {
	if len(r.Failed) == 0 {
		return nil
	}
	if first := r.Errs.First(); first != nil {
		return errors.Annotate(first, "%d of %d jobs were not created", len(r.Failed), len(r.Failed)+len(r.Created)).Err()
	}
	return errors.Annotate(ErrDispatch, "%d of %d jobs were not created after %d sweeps: %q",
		len(r.Failed), len(r.Failed)+len(r.Created), r.Sweeps, r.Failed).Err()
}

// Dispatcher creates many jobs concurrently.
//
// Jobs are created in batches of at most Concurrency jobs; a batch starts
// when the previous one is finished. After a sweep over all jobs, jobs that
// failed are swept again, at most Retry more times.
type Dispatcher struct {
	Registry *Registry
	// Concurrency is the batch size, DefaultConcurrency if 0.
	Concurrency int
	// Retry is the number of additional sweeps, DefaultRetry if 0. Negative
	// disables retries.
	Retry int
}

// Dispatch creates jobs. It never fails as a whole: per-job failures are
// reported in DispatchReport.
func (d *Dispatcher) Dispatch(ctx context.Context, jobs []JobSpec) *DispatchReport {
	report := &DispatchReport{}
	created := make(map[string]bool, len(jobs))
	failed := map[string]error{}

	pending := jobs
	for sweep := 0; sweep <= retries(d.Retry) && len(pending) > 0; sweep++ {
		if sweep > 0 {
			logging.Warningf(ctx, "Retrying %d jobs that were not created, sweep %d", len(pending), sweep+1)
		}
		report.Sweeps++

		var retry []JobSpec
		for _, out := range d.sweep(ctx, pending) {
			switch {
			case out.Created:
				created[out.Job] = true
				delete(failed, out.Job)
			case out.Err != nil:
				failed[out.Job] = out.Err
			default:
				failed[out.Job] = nil
			}
		}
		for _, spec := range pending {
			if err, ok := failed[spec.Path]; ok && err == nil {
				retry = append(retry, spec)
			}
		}
		pending = retry
	}

	for _, spec := range jobs {
		switch err, ok := failed[spec.Path]; {
		case created[spec.Path]:
			report.Created = append(report.Created, spec.Path)
		case ok:
			report.Failed = append(report.Failed, spec.Path)
			if err != nil {
				report.Errs = append(report.Errs, err)
			}
		}
	}
	return report
}

// sweep tries to create each job once. Outcomes are in the order of jobs.
func (d *Dispatcher) sweep(ctx context.Context, jobs []JobSpec) []DispatchOutcome {
	size := d.Concurrency
	if size <= 0 {
		size = DefaultConcurrency
	}
	outcomes := make([]DispatchOutcome, len(jobs))
	for start := 0; start < len(jobs); start += size {
		end := min(start+size, len(jobs))
		// Tasks report through outcomes and never return errors.
		parallel.FanOutIn(func(work chan<- func() error) {
			for i := start; i < end; i++ {
				work <- func() error {
					outcomes[i] = d.create(ctx, jobs[i])
					return nil
				}
			}
		})
	}
	return outcomes
}

func (d *Dispatcher) create(ctx context.Context, spec JobSpec) (out DispatchOutcome) {
	ctx = logging.SetField(ctx, "job", spec.Path)
	out.Job = spec.Path
	defer func() {
		if p := recover(); p != nil {
			logging.Errorf(ctx, "Panic while creating %q: %v", spec.Path, p)
			out.Created = false
			out.Err = errors.Reason("creating %q: panic: %v", spec.Path, p).Err()
		}
	}()
	config, err := spec.Render()
	if err != nil {
		logging.Errorf(ctx, "Failed to render config of %q: %s", spec.Path, err)
		out.Err = errors.Annotate(err, "rendering %q", spec.Path).Err()
		return out
	}
	out.Created = d.Registry.CreateJob(ctx, spec.Path, config)
	return out
}
