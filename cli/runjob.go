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

package cli

import (
	"time"

	"github.com/maruel/subcommands"

	"go.chromium.org/luci/common/data/text"
	"go.chromium.org/luci/common/flag/stringmapflag"
)

func cmdRunJob(p Params) *subcommands.Command {
	return &subcommands.Command{
		UsageLine: "run-job -job JOB [-p KEY=VALUE]... [flags]",
		ShortDesc: "builds a single job and waits for it",
		LongDesc: text.Doc(`
			Builds a single job, e.g. an install test or an ISO build, and waits
			for the result.

			A job that does not exist is reported as UNKNOWN. A build that does
			not finish within -max-wait is reported as FAILURE.
		`),
		CommandRun: func() subcommands.CommandRun {
			r := &runJobRun{}
			r.registerBaseFlags(p)
			r.Flags.StringVar(&r.job, "job", "", "Full path of the job, e.g. obs/update_release_pkg_rpm. Required.")
			r.Flags.Var(&r.params, "p", "(repeatable) A build parameter as `KEY=VALUE`.")
			r.Flags.DurationVar(&r.maxWait, "max-wait", 0, "Give up waiting for the build after this long. No limit if 0.")
			r.Flags.BoolVar(&r.iso, "iso", false, "Wait at most iso_build_max_wait of the config, unless -max-wait is set.")
			return r
		},
	}
}

type runJobRun struct {
	baseCommandRun
	job     string
	params  stringmapflag.Value
	maxWait time.Duration
	iso     bool
}

func (r *runJobRun) Run(a subcommands.Application, args []string, env subcommands.Env) int {
	ctx, err := r.init(a, r, env)
	if err != nil {
		return r.done(ctx, err)
	}
	switch {
	case r.job == "":
		return r.done(ctx, usageErr("-job is required"))
	case len(args) != 0:
		return r.done(ctx, usageErr("unexpected arguments %q", args))
	}

	maxWait := r.maxWait
	if maxWait == 0 && r.iso {
		maxWait = r.cfg.ISOBuildMaxWait
	}
	records, err := r.orchestrator().RunJob(ctx, r.job, r.params, maxWait)
	if err != nil {
		return r.done(ctx, err)
	}
	return r.report(ctx, records)
}
