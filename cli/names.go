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
	"strings"

	"github.com/maruel/subcommands"

	"go.chromium.org/luci/common/data/text"

	"gitee.com/openeuler/release-assistant/orchestrator/naming"
)

func cmdNames(p Params) *subcommands.Command {
	return &subcommands.Command{
		UsageLine: "names -branch BRANCH -date YYYYMMDD [flags] [PACKAGE...]",
		ShortDesc: "prints jobs a self-build would create",
		LongDesc: text.Doc(`
			Prints the jobs of a release and the packages each worker job would
			build, without talking to Jenkins.
		`),
		CommandRun: func() subcommands.CommandRun {
			r := &namesRun{}
			r.registerBaseFlags(p)
			r.release.register(&r.baseCommandRun)
			return r
		},
	}
}

type namesRun struct {
	baseCommandRun
	release releaseFlags
}

type planJSON struct {
	Trigger string              `json:"trigger"`
	Workers map[string][]string `json:"workers"`
}

func (r *namesRun) Run(a subcommands.Application, args []string, env subcommands.Env) int {
	ctx, err := r.init(a, r, env)
	if err != nil {
		return r.done(ctx, err)
	}
	packages := uniquePackages(args)
	rc, err := r.release.release(r.cfg, len(packages))
	if err != nil {
		return r.done(ctx, err)
	}
	plan, err := r.orchestrator().Plan(rc, packages)
	if err != nil {
		return r.done(ctx, err)
	}

	if r.json {
		out := planJSON{Trigger: plan.Trigger, Workers: map[string][]string{}}
		for job, pkgs := range plan.Shards {
			out.Workers[job] = append([]string{}, pkgs...)
		}
		return r.done(ctx, printJSON(r.p.stdout(), out))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", plan.Trigger)
	for _, arch := range naming.Arches {
		for _, job := range plan.Workers[arch] {
			fmt.Fprintf(&b, "%s\t%s\n", job, strings.Join(plan.Shards[job], ","))
		}
	}
	_, err = fmt.Fprint(r.p.stdout(), b.String())
	return r.done(ctx, err)
}
