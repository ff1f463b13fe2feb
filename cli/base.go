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
	"context"
	"fmt"
	"strings"

	"github.com/maruel/subcommands"

	"go.chromium.org/luci/common/cli"
	"go.chromium.org/luci/common/data/text"
	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/logging"

	"gitee.com/openeuler/release-assistant/orchestrator"
	"gitee.com/openeuler/release-assistant/orchestrator/naming"
	"gitee.com/openeuler/release-assistant/releasecfg"
)

// Exit codes.
const (
	exitOK = 0
	// exitError is returned when the command could not do its job.
	exitError = 1
	// exitUnsuccessful is returned when builds did not all succeed, or there
	// is nothing to report.
	exitUnsuccessful = 2
)

// baseCommandRun has flags and helpers shared by all subcommands.
type baseCommandRun struct {
	subcommands.CommandRunBase

	p         Params
	logConfig logging.Config

	configPath string
	jenkinsURL string
	user       string
	token      string
	json       bool

	cfg *releasecfg.Config
}

func (r *baseCommandRun) registerBaseFlags(p Params) {
	r.p = p
	r.logConfig.Level = logging.Info
	r.logConfig.AddFlags(&r.Flags)
	r.Flags.StringVar(&r.configPath, "config", "", text.Doc(`
		Path to a YAML config file. Built-in defaults for the openEuler Jenkins
		are used if not set.
	`))
	r.Flags.StringVar(&r.jenkinsURL, "jenkins", "", "Jenkins URL, overrides jenkins.url of the config.")
	r.Flags.StringVar(&r.user, "user", "", text.Doc(`
		Jenkins user. Defaults to jenkins.user of the config or $JENKINS_USER.
	`))
	r.Flags.StringVar(&r.token, "token", "", text.Doc(`
		Jenkins API token. Defaults to jenkins.token of the config or
		$JENKINS_TOKEN.
	`))
	r.Flags.BoolVar(&r.json, "json", false, "Print results as JSON.")
}

// init sets up logging and loads the configuration.
func (r *baseCommandRun) init(a subcommands.Application, cmd subcommands.CommandRun, env subcommands.Env) (context.Context, error) {
	ctx := r.logConfig.Set(cli.GetContext(a, cmd, env))

	cfg, err := releasecfg.Load(r.configPath)
	if err != nil {
		return ctx, err
	}
	if r.jenkinsURL != "" {
		cfg.Jenkins.URL = r.jenkinsURL
	}
	if r.user != "" {
		cfg.Jenkins.User = r.user
	}
	if r.token != "" {
		cfg.Jenkins.Token = r.token
	}
	cfg.ApplyEnv(r.p.getenv)
	if err := cfg.Validate(); err != nil {
		return ctx, err
	}
	r.cfg = cfg
	return ctx, nil
}

func (r *baseCommandRun) orchestrator() *orchestrator.Orchestrator {
	return r.cfg.Orchestrator(r.cfg.Client())
}

// done logs err and returns the exit code.
func (r *baseCommandRun) done(ctx context.Context, err error) int {
	if err != nil {
		logging.Errorf(ctx, "%s", err)
		return exitError
	}
	return exitOK
}

// report prints records and returns the exit code.
func (r *baseCommandRun) report(ctx context.Context, records []orchestrator.BuildRecord) int {
	var err error
	if r.json {
		err = printJSON(r.p.stdout(), records)
	} else {
		err = printTable(r.p.stdout(), records)
	}
	if err != nil {
		return r.done(ctx, err)
	}
	switch {
	case len(records) == 0:
		logging.Warningf(ctx, "No build results")
		return exitUnsuccessful
	case !orchestrator.AllSucceeded(records):
		logging.Errorf(ctx, "Some builds did not succeed")
		return exitUnsuccessful
	}
	return exitOK
}

// releaseFlags identify a release.
type releaseFlags struct {
	branch   string
	date     string
	parallel int
}

func (f *releaseFlags) register(r *baseCommandRun) {
	r.Flags.StringVar(&f.branch, "branch", "", "Release branch, e.g. openEuler-22.03-LTS. Required.")
	r.Flags.StringVar(&f.date, "date", "", "Release date, YYYYMMDD. Required.")
	r.Flags.IntVar(&f.parallel, "parallel", 0, text.Doc(`
		Number of worker jobs per architecture. Derived from the number of
		packages and max_parallel of the config if not set.
	`))
}

// release returns the release context, deriving the parallelism from the
// number of packages if needed.
func (f *releaseFlags) release(cfg *releasecfg.Config, packages int) (naming.ReleaseContext, error) {
	rc := naming.ReleaseContext{
		Branch:      strings.TrimSpace(f.branch),
		ReleaseDate: strings.TrimSpace(f.date),
		Parallelism: f.parallel,
	}
	if rc.Parallelism == 0 {
		rc.Parallelism = cfg.Parallelism(packages)
	}
	if err := rc.Validate(); err != nil {
		return rc, errors.Annotate(err, "bad flags").Err()
	}
	return rc, nil
}

func usageErr(format string, args ...any) error {
	return errors.Reason("bad usage: %s", fmt.Sprintf(format, args...)).Err()
}
