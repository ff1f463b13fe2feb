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

package naming

import (
	"fmt"
	"math/rand"
	"testing"

	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/testing/ftt"
	"go.chromium.org/luci/common/testing/truth/assert"
	"go.chromium.org/luci/common/testing/truth/should"
)

const prefix = "function-item/release-manager/release_tools"

func TestResolver(t *testing.T) {
	t.Parallel()

	ftt.Run("Resolver", t, func(t *ftt.Test) {
		r := Resolver{PathPrefix: prefix}
		rc := ReleaseContext{
			Branch:      "openEuler-22.03-LTS",
			ReleaseDate: "20230101",
			Parallelism: 2,
		}

		t.Run("BasePath", func(t *ftt.Test) {
			base, err := r.BasePath(rc)
			assert.Loosely(t, err, should.BeNil)
			assert.Loosely(t, base, should.Equal(prefix+"/update_20230101"))
		})

		t.Run("TriggerJobName", func(t *ftt.Test) {
			name, err := r.TriggerJobName(rc)
			assert.Loosely(t, err, should.BeNil)
			assert.Loosely(t, name, should.Equal(prefix+"/update_20230101/trigger"))
		})

		t.Run("WorkerJobNames", func(t *ftt.Test) {
			names, err := r.WorkerJobNames(rc, AArch64)
			assert.Loosely(t, err, should.BeNil)
			assert.Loosely(t, names, should.Match([]string{
				prefix + "/update_20230101/aarch64/openEuler-22.03-LTS_1",
				prefix + "/update_20230101/aarch64/openEuler-22.03-LTS_2",
			}))

			again, err := r.WorkerJobNames(rc, AArch64)
			assert.Loosely(t, err, should.BeNil)
			assert.Loosely(t, again, should.Match(names))

			x86, err := r.WorkerJobNames(rc, X86_64)
			assert.Loosely(t, err, should.BeNil)
			assert.Loosely(t, x86[1], should.Equal(prefix+"/update_20230101/x86_64/openEuler-22.03-LTS_2"))
		})

		t.Run("AllWorkerJobNames", func(t *ftt.Test) {
			all, err := r.AllWorkerJobNames(rc)
			assert.Loosely(t, err, should.BeNil)
			assert.Loosely(t, all, should.HaveLength(4))
			assert.Loosely(t, all[0], should.ContainSubstring("/aarch64/"))
			assert.Loosely(t, all[3], should.ContainSubstring("/x86_64/"))
		})

		t.Run("Folders", func(t *ftt.Test) {
			folders, err := r.Folders(rc)
			assert.Loosely(t, err, should.BeNil)
			assert.Loosely(t, folders, should.Match([]string{
				prefix,
				prefix + "/update_20230101",
				prefix + "/update_20230101/aarch64",
				prefix + "/update_20230101/x86_64",
			}))
			base, err := r.BasePath(rc)
			assert.Loosely(t, err, should.BeNil)
			assert.Loosely(t, folders[1], should.Equal(base))
		})

		t.Run("Trailing slashes in prefix", func(t *ftt.Test) {
			r := Resolver{PathPrefix: "/" + prefix + "/"}
			base, err := r.BasePath(rc)
			assert.Loosely(t, err, should.BeNil)
			assert.Loosely(t, base, should.Equal(prefix+"/update_20230101"))
		})

		t.Run("No prefix", func(t *ftt.Test) {
			r := Resolver{}
			_, err := r.BasePath(rc)
			assert.Loosely(t, errors.Is(err, ErrConfiguration), should.BeTrue)
			_, err = r.TriggerJobName(rc)
			assert.Loosely(t, errors.Is(err, ErrConfiguration), should.BeTrue)
			_, err = r.WorkerJobNames(rc, X86_64)
			assert.Loosely(t, errors.Is(err, ErrConfiguration), should.BeTrue)
			_, err = r.Folders(rc)
			assert.Loosely(t, errors.Is(err, ErrConfiguration), should.BeTrue)
		})

		t.Run("Validate", func(t *ftt.Test) {
			assert.Loosely(t, rc.Validate(), should.BeNil)
			rc.Parallelism = 0
			assert.Loosely(t, rc.Validate(), should.ErrLike("parallelism must be at least 1"))
		})
	})
}

func TestShard(t *testing.T) {
	t.Parallel()

	ftt.Run("Shard", t, func(t *ftt.Test) {
		t.Run("Round robin", func(t *ftt.Test) {
			r := Resolver{PathPrefix: prefix}
			jobs, err := r.WorkerJobNames(ReleaseContext{
				Branch:      "openEuler-22.03-LTS",
				ReleaseDate: "20230101",
				Parallelism: 2,
			}, AArch64)
			assert.Loosely(t, err, should.BeNil)

			shards := Shard([]string{"a", "b", "c"}, jobs)
			assert.Loosely(t, shards, should.Match(Shards{
				jobs[0]: {"a", "c"},
				jobs[1]: {"b"},
			}))
		})

		t.Run("No packages", func(t *ftt.Test) {
			shards := Shard(nil, []string{"j1", "j2"})
			assert.Loosely(t, shards, should.HaveLength(2))
			for _, job := range []string{"j1", "j2"} {
				pkgs, ok := shards[job]
				assert.Loosely(t, ok, should.BeTrue)
				assert.Loosely(t, pkgs, should.BeEmpty)
			}
			assert.Loosely(t, shards.NonEmpty([]string{"j1", "j2"}), should.BeEmpty)
		})

		t.Run("More jobs than packages", func(t *ftt.Test) {
			jobs := []string{"j1", "j2", "j3"}
			shards := Shard([]string{"a"}, jobs)
			assert.Loosely(t, shards["j1"], should.Match([]string{"a"}))
			assert.Loosely(t, shards["j2"], should.BeEmpty)
			assert.Loosely(t, shards["j3"], should.BeEmpty)
			assert.Loosely(t, shards.NonEmpty(jobs), should.Match([]string{"j1"}))
		})

		t.Run("No jobs", func(t *ftt.Test) {
			assert.Loosely(t, Shard([]string{"a"}, nil), should.BeEmpty)
		})

		t.Run("Complete, ordered and deterministic", func(t *ftt.Test) {
			rnd := rand.New(rand.NewSource(42))
			for iter := 0; iter < 200; iter++ {
				pkgs := make([]string, rnd.Intn(50))
				for i := range pkgs {
					pkgs[i] = fmt.Sprintf("pkg-%d", i)
				}
				jobs := make([]string, 1+rnd.Intn(10))
				for i := range jobs {
					jobs[i] = fmt.Sprintf("job_%d", i+1)
				}

				shards := Shard(pkgs, jobs)
				assert.Loosely(t, Shard(pkgs, jobs), should.Match(shards))

				// Every package is in exactly one shard and shards keep the
				// input order.
				pos := map[string]int{}
				for i, p := range pkgs {
					pos[p] = i
				}
				seen := map[string]bool{}
				for _, job := range jobs {
					last := -1
					for _, p := range shards[job] {
						assert.Loosely(t, seen[p], should.BeFalse)
						seen[p] = true
						assert.Loosely(t, pos[p], should.BeGreaterThan(last))
						last = pos[p]
					}
				}
				assert.Loosely(t, seen, should.HaveLength(len(pkgs)))
			}
		})
	})
}
