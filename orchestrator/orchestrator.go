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

	"github.com/google/uuid"

	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/logging"

	"gitee.com/openeuler/release-assistant/orchestrator/jobtmpl"
	"gitee.com/openeuler/release-assistant/orchestrator/naming"
)

// Templates are paths of template jobs configs are rendered from.
type Templates struct {
	Trigger string
	AArch64 string
	X86_64  string
}

func (t Templates) worker(arch naming.Arch) string {
	if arch == naming.AArch64 {
		return t.AArch64
	}
	return t.X86_64
}

// Orchestrator runs release jobs on a Jenkins server.
type Orchestrator struct {
	Server    Server
	Resolver  naming.Resolver
	Templates Templates
	Pools     jobtmpl.ExecutorPools

	// Concurrency bounds concurrent job creation, DefaultConcurrency if 0.
	Concurrency int
	// Retry is how many times failed operations are repeated, DefaultRetry
	// if 0.
	Retry int

	QueuePollInterval time.Duration
	BuildPollInterval time.Duration
}

func (o *Orchestrator) registry() *Registry {
	return &Registry{Server: o.Server, Retry: o.Retry}
}

func (o *Orchestrator) driver() *Driver {
	return &Driver{
		Server:            o.Server,
		Retry:             o.Retry,
		QueuePollInterval: o.QueuePollInterval,
		BuildPollInterval: o.BuildPollInterval,
	}
}

// Plan is the set of jobs of one self-build run.
type Plan struct {
	Release naming.ReleaseContext
	Folders []string
	Trigger string
	// Workers are worker jobs per architecture.
	Workers map[naming.Arch][]string
	Shards  naming.Shards
}

// Active returns worker jobs with packages to build, in naming.Arches order.
func (p *Plan) Active() []string {
	var out []string
	for _, arch := range naming.Arches {
		out = append(out, p.Shards.NonEmpty(p.Workers[arch])...)
	}
	return out
}

// All returns every job of the plan, trigger first.
func (p *Plan) All() []string {
	out := []string{p.Trigger}
	for _, arch := range naming.Arches {
		out = append(out, p.Workers[arch]...)
	}
	return out
}

// Plan computes job names and package shards without touching the server.
//
// Packages are sharded over the workers of every architecture independently,
// so each architecture builds every package.
func (o *Orchestrator) Plan(rc naming.ReleaseContext, packages []string) (*Plan, error) {
	if err := rc.Validate(); err != nil {
		return nil, err
	}
	p := &Plan{
		Release: rc,
		Workers: make(map[naming.Arch][]string, len(naming.Arches)),
		Shards:  naming.Shards{},
	}
	var err error
	if p.Folders, err = o.Resolver.Folders(rc); err != nil {
		return nil, err
	}
	if p.Trigger, err = o.Resolver.TriggerJobName(rc); err != nil {
		return nil, err
	}
	for _, arch := range naming.Arches {
		jobs, err := o.Resolver.WorkerJobNames(rc, arch)
		if err != nil {
			return nil, err
		}
		p.Workers[arch] = jobs
		for job, pkgs := range naming.Shard(packages, jobs) {
			p.Shards[job] = pkgs
		}
	}
	return p, nil
}

// SelfBuild creates the jobs of a release, builds packages on them and
// returns one record per worker build.
//
// Jobs left over from a previous run of the same release are replaced.
// Configuration and template errors are returned as errors. Build failures
// are reported in the records.
func (o *Orchestrator) SelfBuild(ctx context.Context, rc naming.ReleaseContext, packages []string) ([]BuildRecord, error) {
	ctx = logging.SetField(ctx, "run", uuid.NewString())

	plan, err := o.Plan(rc, packages)
	if err != nil {
		return nil, err
	}
	for _, arch := range naming.Arches {
		if _, err := o.Pools.Node(rc.Branch, arch); err != nil {
			return nil, err
		}
	}
	active := plan.Active()
	if len(active) == 0 {
		logging.Warningf(ctx, "No packages to build for %s", rc.Branch)
		return nil, nil
	}
	logging.Infof(ctx, "Building %d packages on %d jobs for %s", len(packages), len(active), rc.Branch)

	reg := o.registry()
	for _, folder := range plan.Folders {
		if err := reg.EnsureFolder(ctx, folder); err != nil {
			return nil, err
		}
	}
	for _, job := range plan.All() {
		if _, err := reg.DeleteJob(ctx, job); err != nil {
			return nil, err
		}
	}

	specs, err := o.jobSpecs(ctx, reg, plan, active)
	if err != nil {
		return nil, err
	}
	d := &Dispatcher{Registry: reg, Concurrency: o.Concurrency, Retry: o.Retry}
	report := d.Dispatch(ctx, specs)
	if err := report.Err(); err != nil {
		return nil, err
	}
	logging.Infof(ctx, "Created %d jobs in %d sweeps", len(report.Created), report.Sweeps)

	drv := o.driver()
	res, err := drv.Run(ctx, plan.Trigger, nil, 0)
	if err != nil {
		return nil, err
	}
	agg := &Aggregator{Driver: drv}
	return agg.FanOut(ctx, res)
}

// jobSpecs fetches templates and prepares configs of the trigger and active
// workers.
func (o *Orchestrator) jobSpecs(ctx context.Context, reg *Registry, plan *Plan, active []string) ([]JobSpec, error) {
	triggerTmpl, err := reg.TemplateConfig(ctx, o.Templates.Trigger)
	if err != nil {
		return nil, err
	}
	specs := []JobSpec{{
		Path:   plan.Trigger,
		Render: func() (string, error) { return jobtmpl.RenderTrigger(triggerTmpl, active) },
	}}

	for _, arch := range naming.Arches {
		jobs := plan.Shards.NonEmpty(plan.Workers[arch])
		if len(jobs) == 0 {
			continue
		}
		tmpl, err := reg.TemplateConfig(ctx, o.Templates.worker(arch))
		if err != nil {
			return nil, err
		}
		for _, job := range jobs {
			w := jobtmpl.Worker{
				JobPath: job,
				Arch:    arch,
				Release: plan.Release,
				Shards:  plan.Shards,
				Pools:   o.Pools,
			}
			specs = append(specs, JobSpec{
				Path:   job,
				Render: func() (string, error) { return jobtmpl.RenderWorker(tmpl, w) },
			})
		}
	}
	return specs, nil
}

// RunJob builds a single job and waits for it.
//
// A job that does not exist yields an UNKNOWN record. If maxWait passes
// before the build finishes, the record is FAILURE.
func (o *Orchestrator) RunJob(ctx context.Context, job string, params map[string]string, maxWait time.Duration) ([]BuildRecord, error) {
	ctx = logging.SetField(ctx, "run", uuid.NewString())

	drv := o.driver()
	res, err := drv.Run(ctx, job, params, maxWait)
	switch {
	case errors.Is(err, ErrWaitTimeout):
		logging.Errorf(ctx, "%q did not finish within %s", job, maxWait)
		rec := res.Record()
		rec.Status = StatusFailure
		return []BuildRecord{rec}, nil
	case err != nil:
		return nil, err
	}
	return (&Aggregator{Driver: drv}).Single(res), nil
}

// Cleanup deletes all jobs of a release and returns the deleted ones.
func (o *Orchestrator) Cleanup(ctx context.Context, rc naming.ReleaseContext) ([]string, error) {
	plan, err := o.Plan(rc, nil)
	if err != nil {
		return nil, err
	}
	reg := o.registry()
	var deleted []string
	for _, job := range plan.All() {
		ok, err := reg.DeleteJob(ctx, job)
		if err != nil {
			return deleted, err
		}
		if ok {
			deleted = append(deleted, job)
		}
	}
	return deleted, nil
}
