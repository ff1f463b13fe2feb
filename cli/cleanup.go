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
	"fmt"

	"github.com/maruel/subcommands"
)

func cmdCleanup(p Params) *subcommands.Command {
	return &subcommands.Command{
		UsageLine: "cleanup -branch BRANCH -date YYYYMMDD [flags]",
		ShortDesc: "deletes jobs of a release",
		LongDesc: `Deletes the trigger and worker jobs of a release.

Unless -parallel is set, worker jobs up to max_parallel of the config are
deleted. Jobs that do not exist are skipped.`,
		CommandRun: func() subcommands.CommandRun {
			r := &cleanupRun{}
			r.registerBaseFlags(p)
			r.release.register(&r.baseCommandRun)
			return r
		},
	}
}

type cleanupRun struct {
	baseCommandRun
	release releaseFlags
}

func (r *cleanupRun) Run(a subcommands.Application, args []string, env subcommands.Env) int {
	ctx, err := r.init(a, r, env)
	if err != nil {
		return r.done(ctx, err)
	}
	rc, err := r.release.release(r.cfg, r.cfg.MaxParallel)
	if err != nil {
		return r.done(ctx, err)
	}
	deleted, err := r.orchestrator().Cleanup(ctx, rc)
	if err == nil {
		if r.json {
			err = printJSON(r.p.stdout(), deleted)
		} else {
			for _, job := range deleted {
				if _, err = fmt.Fprintln(r.p.stdout(), job); err != nil {
					break
				}
			}
		}
	}
	return r.done(ctx, err)
}
