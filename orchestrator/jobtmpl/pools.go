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

package jobtmpl

import (
	"go.chromium.org/luci/common/errors"

	"gitee.com/openeuler/release-assistant/orchestrator/naming"
)

// ExecutorPools picks the Jenkins node label worker jobs run on.
//
// The label is the architecture prefix followed by the branch pool, e.g.
// "k8s-aarch64-" + "openeuler-22.03-lts".
type ExecutorPools struct {
	// Pools maps a release branch to its executor pool.
	Pools map[string]string
	// ArchPrefix maps an architecture to the label prefix of its executors.
	ArchPrefix map[naming.Arch]string
}

// Node returns the label for a branch and an architecture.
func (p ExecutorPools) Node(branch string, arch naming.Arch) (string, error) {
	pool, ok := p.Pools[branch]
	if !ok || pool == "" {
		return "", errors.Annotate(naming.ErrConfiguration, "no executor pool for branch %q", branch).Err()
	}
	prefix, ok := p.ArchPrefix[arch]
	if !ok {
		return "", errors.Annotate(naming.ErrConfiguration, "no executor prefix for %s", arch).Err()
	}
	return prefix + pool, nil
}
