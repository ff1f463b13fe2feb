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

// Package cli implements release-jobs, a command line tool that builds
// release packages on Jenkins.
package cli

import (
	"context"
	"io"
	"os"

	"github.com/maruel/subcommands"

	"go.chromium.org/luci/common/cli"
	"go.chromium.org/luci/common/flag/fixflagpos"
	"go.chromium.org/luci/common/logging/gologger"
)

// Params are the external dependencies of the tool.
type Params struct {
	// Stdout receives results, os.Stdout if nil.
	Stdout io.Writer
	// Getenv reads the environment, os.Getenv if nil.
	Getenv func(string) string
}

func (p Params) stdout() io.Writer {
	if p.Stdout != nil {
		return p.Stdout
	}
	return os.Stdout
}

func (p Params) getenv(key string) string {
	if p.Getenv != nil {
		return p.Getenv(key)
	}
	return os.Getenv(key)
}

var logCfg = gologger.LoggerConfig{
	Out: os.Stderr,
}

// application creates the application and configures its subcommands.
func application(p Params) *cli.Application {
	return &cli.Application{
		Name:  "release-jobs",
		Title: "Builds release packages on Jenkins.",
		Context: func(ctx context.Context) context.Context {
			return logCfg.Use(ctx)
		},
		Commands: []*subcommands.Command{
			cmdSelfBuild(p),
			cmdRunJob(p),
			cmdCleanup(p),
			cmdNames(p),

			{}, // a separator
			subcommands.CmdHelp,
		},
	}
}

// Main is the main function of the release-jobs application.
func Main(p Params, args []string) int {
	return subcommands.Run(application(p), fixflagpos.FixSubcommands(args))
}
