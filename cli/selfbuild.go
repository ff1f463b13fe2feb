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
	"strings"

	"github.com/maruel/subcommands"

	"go.chromium.org/luci/common/data/stringset"
	"go.chromium.org/luci/common/data/text"
	"go.chromium.org/luci/common/logging"
)

func cmdSelfBuild(p Params) *subcommands.Command {
	return &subcommands.Command{
		UsageLine: "selfbuild -branch BRANCH -date YYYYMMDD [flags] [PACKAGE...]",
		ShortDesc: "builds release packages on per-release jobs",
		LongDesc: text.Doc(`
			Builds release packages on both architectures.

			Creates worker jobs for the release from template jobs, spreads the
			packages over them and builds them all through a trigger job.
			Jobs left over by a previous run for the same release are replaced.

			Prints one line per worker build. Exits with 2 if any build did not
			succeed.
		`),
		CommandRun: func() subcommands.CommandRun {
			r := &selfBuildRun{}
			r.registerBaseFlags(p)
			r.release.register(&r.baseCommandRun)
			r.Flags.StringVar(&r.pkgs, "pkgs", "", "Comma-separated packages, in addition to positional arguments.")
			return r
		},
	}
}

type selfBuildRun struct {
	baseCommandRun
	release releaseFlags
	pkgs    string
}

func (r *selfBuildRun) Run(a subcommands.Application, args []string, env subcommands.Env) int {
	ctx, err := r.init(a, r, env)
	if err != nil {
		return r.done(ctx, err)
	}

	packages := uniquePackages(append(strings.Split(r.pkgs, ","), args...))
	if len(packages) == 0 {
		return r.done(ctx, usageErr("no packages"))
	}
	rc, err := r.release.release(r.cfg, len(packages))
	if err != nil {
		return r.done(ctx, err)
	}
	logging.Infof(ctx, "Building %d packages for %s on %d jobs per architecture", len(packages), rc.Branch, rc.Parallelism)

	records, err := r.orchestrator().SelfBuild(ctx, rc, packages)
	if err != nil {
		return r.done(ctx, err)
	}
	return r.report(ctx, records)
}

// uniquePackages drops empty and repeated names, keeping the first
// occurrence.
func uniquePackages(names []string) []string {
	seen := stringset.New(len(names))
	var out []string
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" && seen.Add(n) {
			out = append(out, n)
		}
	}
	return out
}
