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

// Package naming derives Jenkins job names for a release and distributes
// packages across them.
//
// Names depend only on the release branch, the release date and the
// parallelism, so every invocation for the same release addresses the same
// jobs without keeping any state between runs.
package naming

import (
	"fmt"
	"strings"

	"go.chromium.org/luci/common/errors"
)

// ErrConfiguration is returned when a required configuration value is
// missing. It is fatal: retrying does not help.
var ErrConfiguration = errors.New("missing required configuration")

// Arch is a CPU architecture with its own pool of worker jobs.
type Arch string

const (
	AArch64 Arch = "aarch64"
	X86_64  Arch = "x86_64"
)

// Arches lists all architectures in the order their jobs are created.
var Arches = []Arch{AArch64, X86_64}

// ReleaseContext identifies one orchestration run.
type ReleaseContext struct {
	// Branch is the release branch, e.g. "openEuler-22.03-LTS".
	Branch string
	// ReleaseDate is YYYYMMDD. It is used verbatim.
	ReleaseDate string
	// Parallelism is the number of worker jobs per architecture.
	Parallelism int
}

// Validate checks the context can produce job names.
func (rc ReleaseContext) Validate() error {
	switch {
	case rc.Branch == "":
		return errors.Reason("release branch is required").Err()
	case rc.ReleaseDate == "":
		return errors.Reason("release date is required").Err()
	case rc.Parallelism < 1:
		return errors.Reason("parallelism must be at least 1, got %d", rc.Parallelism).Err()
	}
	return nil
}

// Resolver builds job paths under a fixed prefix.
type Resolver struct {
	// PathPrefix is the Jenkins folder all release jobs live in.
	PathPrefix string
}

func (r Resolver) prefix() (string, error) {
	p := strings.Trim(r.PathPrefix, "/")
	if p == "" {
		return "", errors.Annotate(ErrConfiguration, "jenkins path prefix is not set").Err()
	}
	return p, nil
}

// BasePath returns "<prefix>/update_<releaseDate>".
func (r Resolver) BasePath(rc ReleaseContext) (string, error) {
	p, err := r.prefix()
	if err != nil {
		return "", err
	}
	return basePath(p, rc), nil
}

func basePath(prefix string, rc ReleaseContext) string {
	return prefix + "/update_" + rc.ReleaseDate
}

// TriggerJobName returns the job that fans out to all workers.
func (r Resolver) TriggerJobName(rc ReleaseContext) (string, error) {
	base, err := r.BasePath(rc)
	if err != nil {
		return "", err
	}
	return base + "/trigger", nil
}

// WorkerJobNames returns rc.Parallelism worker jobs for arch, numbered from
// 1.
func (r Resolver) WorkerJobNames(rc ReleaseContext, arch Arch) ([]string, error) {
	base, err := r.BasePath(rc)
	if err != nil {
		return nil, err
	}
	names := make([]string, rc.Parallelism)
	for i := range names {
		names[i] = fmt.Sprintf("%s/%s/%s_%d", base, arch, rc.Branch, i+1)
	}
	return names, nil
}

// AllWorkerJobNames returns worker jobs of all architectures, in Arches
// order.
func (r Resolver) AllWorkerJobNames(rc ReleaseContext) ([]string, error) {
	var all []string
	for _, arch := range Arches {
		names, err := r.WorkerJobNames(rc, arch)
		if err != nil {
			return nil, err
		}
		all = append(all, names...)
	}
	return all, nil
}

// Folders returns folders that must exist before any job is created,
// parents first.
func (r Resolver) Folders(rc ReleaseContext) ([]string, error) {
	p, err := r.prefix()
	if err != nil {
		return nil, err
	}
	base := basePath(p, rc)
	folders := []string{p, base}
	for _, arch := range Arches {
		folders = append(folders, base+"/"+string(arch))
	}
	return folders, nil
}
