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

// Package releasecfg loads configuration of the release job orchestrator.
package releasecfg

import (
	"os"
	"strings"
	"time"

	"golang.org/x/time/rate"
	"gopkg.in/yaml.v2"

	"go.chromium.org/luci/common/errors"

	"gitee.com/openeuler/release-assistant/jenkins"
	"gitee.com/openeuler/release-assistant/orchestrator"
	"gitee.com/openeuler/release-assistant/orchestrator/jobtmpl"
	"gitee.com/openeuler/release-assistant/orchestrator/naming"
)

// Environment variables with Jenkins credentials, used when the config file
// and the command line do not set them.
const (
	EnvUser  = "JENKINS_USER"
	EnvToken = "JENKINS_TOKEN"
)

// Config is the orchestrator configuration file.
type Config struct {
	Jenkins Jenkins `yaml:"jenkins"`

	// PathPrefix is the Jenkins folder release jobs are created in.
	PathPrefix string `yaml:"path_prefix"`
	// MaxParallel caps the number of worker jobs per architecture.
	MaxParallel int `yaml:"max_parallel"`
	// Concurrency bounds concurrent job creation.
	Concurrency int `yaml:"concurrency"`
	// Retry is how many times failed remote operations are repeated.
	Retry int `yaml:"retry"`

	Templates Templates `yaml:"templates"`

	// ExecutorPools maps a release branch to the pool of its executors.
	ExecutorPools map[string]string `yaml:"executor_pools"`
	// ArchPoolPrefix maps an architecture to the label prefix of its
	// executors.
	ArchPoolPrefix map[string]string `yaml:"arch_pool_prefix"`

	// ISOBuildMaxWait bounds the wait for an ISO build.
	ISOBuildMaxWait   time.Duration `yaml:"iso_build_max_wait"`
	QueuePollInterval time.Duration `yaml:"queue_poll_interval"`
	BuildPollInterval time.Duration `yaml:"build_poll_interval"`
}

// Jenkins is how to reach the Jenkins server.
type Jenkins struct {
	URL   string `yaml:"url"`
	User  string `yaml:"user"`
	Token string `yaml:"token"`
	// QPS limits requests per second, unlimited if 0.
	QPS float64 `yaml:"qps"`
}

// Templates are the template jobs per job family.
type Templates struct {
	Trigger string `yaml:"trigger"`
	AArch64 string `yaml:"aarch64"`
	X86_64  string `yaml:"x86_64"`
}

// Default returns the configuration of the openEuler Jenkins.
func Default() *Config {
	return &Config{
		Jenkins: Jenkins{
			URL: "https://openeulerjenkins.osinfra.cn",
			QPS: 20,
		},
		PathPrefix:  "function-item/release-manager/release_tools",
		MaxParallel: 5,
		Concurrency: orchestrator.DefaultConcurrency,
		Retry:       orchestrator.DefaultRetry,
		Templates: Templates{
			Trigger: "function-item/release-manager/update_template_jobs/trigger",
			AArch64: "function-item/release-manager/update_template_jobs/aarch64/test_build",
			X86_64:  "function-item/release-manager/update_template_jobs/x86-64/test_build",
		},
		ExecutorPools: map[string]string{
			"openEuler-20.03-LTS":     "openeuler-20.03-lts",
			"openEuler-20.03-LTS-SP1": "openeuler-20.03-lts-sp1",
			"openEuler-20.03-LTS-SP2": "openeuler-20.03-lts-sp2",
			"openEuler-20.03-LTS-SP3": "openeuler-20.03-lts-sp3",
			"openEuler-22.03-LTS":     "openeuler-22.03-lts",
			"openEuler-22.03-LTS-SP1": "openeuler-22.03-lts-sp1",
		},
		ArchPoolPrefix: map[string]string{
			string(naming.AArch64): "k8s-aarch64-",
			string(naming.X86_64):  "k8s-x86-",
		},
		ISOBuildMaxWait:   20 * time.Minute,
		QueuePollInterval: orchestrator.DefaultQueuePollInterval,
		BuildPollInterval: orchestrator.DefaultBuildPollInterval,
	}
}

// Load reads a config file. An empty path yields Default.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Annotate(err, "reading config").Err()
	}
	cfg, err := Parse(blob)
	if err != nil {
		return nil, errors.Annotate(err, "in %s", path).Err()
	}
	return cfg, nil
}

// Parse parses a YAML config on top of Default.
//
// Maps in the file extend the default maps.
func Parse(blob []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.UnmarshalStrict(blob, cfg); err != nil {
		return nil, errors.Annotate(err, "bad config").Err()
	}
	return cfg, nil
}

// ApplyEnv fills in missing credentials from the environment.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if c.Jenkins.User == "" {
		c.Jenkins.User = getenv(EnvUser)
	}
	if c.Jenkins.Token == "" {
		c.Jenkins.Token = getenv(EnvToken)
	}
}

// Validate checks required values are set.
//
// Returns an error matching naming.ErrConfiguration.
func (c *Config) Validate() error {
	var missing []string
	check := func(name, val string) {
		if strings.TrimSpace(val) == "" {
			missing = append(missing, name)
		}
	}
	check("jenkins.url", c.Jenkins.URL)
	check("path_prefix", strings.Trim(c.PathPrefix, "/"))
	check("templates.trigger", c.Templates.Trigger)
	check("templates.aarch64", c.Templates.AArch64)
	check("templates.x86_64", c.Templates.X86_64)
	for _, arch := range naming.Arches {
		if _, ok := c.ArchPoolPrefix[string(arch)]; !ok {
			missing = append(missing, "arch_pool_prefix."+string(arch))
		}
	}
	if len(missing) != 0 {
		return errors.Annotate(naming.ErrConfiguration, "not set: %s", strings.Join(missing, ", ")).Err()
	}
	if c.MaxParallel < 1 {
		return errors.Annotate(naming.ErrConfiguration, "max_parallel must be positive, got %d", c.MaxParallel).Err()
	}
	if c.Jenkins.QPS < 0 {
		return errors.Annotate(naming.ErrConfiguration, "jenkins.qps must not be negative").Err()
	}
	// A bare YAML integer decodes as nanoseconds.
	durations := []struct {
		name string
		val  time.Duration
	}{
		{"iso_build_max_wait", c.ISOBuildMaxWait},
		{"queue_poll_interval", c.QueuePollInterval},
		{"build_poll_interval", c.BuildPollInterval},
	}
	for _, d := range durations {
		if d.val < 0 || (d.val > 0 && d.val < time.Second) {
			return errors.Annotate(naming.ErrConfiguration,
				"%s must be 0 or at least 1s, got %s (use a unit, e.g. \"1200s\")", d.name, d.val).Err()
		}
	}
	return nil
}

// Pools returns the executor pool lookup.
func (c *Config) Pools() jobtmpl.ExecutorPools {
	p := jobtmpl.ExecutorPools{
		Pools:      c.ExecutorPools,
		ArchPrefix: make(map[naming.Arch]string, len(c.ArchPoolPrefix)),
	}
	for arch, prefix := range c.ArchPoolPrefix {
		p.ArchPrefix[naming.Arch(arch)] = prefix
	}
	return p
}

// Parallelism is the number of worker jobs per architecture for a number of
// packages: at most MaxParallel and at least 1.
func (c *Config) Parallelism(packages int) int {
	return max(1, min(c.MaxParallel, packages))
}

// Client returns a Jenkins client, throttled to Jenkins.QPS.
func (c *Config) Client() *jenkins.Client {
	cl := &jenkins.Client{
		BaseURL: c.Jenkins.URL,
		User:    c.Jenkins.User,
		Token:   c.Jenkins.Token,
	}
	if c.Jenkins.QPS > 0 {
		cl.Limiter = rate.NewLimiter(rate.Limit(c.Jenkins.QPS), max(1, int(c.Jenkins.QPS)))
	}
	return cl
}

// Orchestrator returns an orchestrator talking to srv.
func (c *Config) Orchestrator(srv orchestrator.Server) *orchestrator.Orchestrator {
	return &orchestrator.Orchestrator{
		Server:   srv,
		Resolver: naming.Resolver{PathPrefix: c.PathPrefix},
		Templates: orchestrator.Templates{
			Trigger: c.Templates.Trigger,
			AArch64: c.Templates.AArch64,
			X86_64:  c.Templates.X86_64,
		},
		Pools:             c.Pools(),
		Concurrency:       c.Concurrency,
		Retry:             c.Retry,
		QueuePollInterval: c.QueuePollInterval,
		BuildPollInterval: c.BuildPollInterval,
	}
}
