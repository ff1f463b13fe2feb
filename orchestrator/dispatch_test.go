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

package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"go.chromium.org/luci/common/logging"
	"go.chromium.org/luci/common/logging/memlogger"
	"go.chromium.org/luci/common/testing/ftt"
	"go.chromium.org/luci/common/testing/truth/assert"
	"go.chromium.org/luci/common/testing/truth/should"

	"gitee.com/openeuler/release-assistant/orchestrator/jobtmpl"
)

func specs(jobs ...string) []JobSpec {
	out := make([]JobSpec, len(jobs))
	for i, job := range jobs {
		out[i] = JobSpec{
			Path:   job,
			Render: func() (string, error) { return "<project>" + job + "</project>", nil },
		}
	}
	return out
}

func TestDispatch(t *testing.T) {
	t.Parallel()

	ftt.Run("Dispatcher", t, func(t *ftt.Test) {
		ctx := memlogger.Use(context.Background())
		logs := logging.Get(ctx).(*memlogger.MemLogger)

		srv := newMemServer()
		d := &Dispatcher{Registry: &Registry{Server: srv}}

		t.Run("All created in one sweep", func(t *ftt.Test) {
			report := d.Dispatch(ctx, specs("j1", "j2", "j3"))
			assert.Loosely(t, report.Err(), should.BeNil)
			assert.Loosely(t, report.Sweeps, should.Equal(1))
			assert.Loosely(t, report.Created, should.Match([]string{"j1", "j2", "j3"}))
			assert.Loosely(t, report.Failed, should.BeEmpty)
			assert.Loosely(t, srv.configs["j2"], should.Equal("<project>j2</project>"))
		})

		t.Run("Converges when failures go away", func(t *ftt.Test) {
			srv.failCreate = map[string]int{"j1": 1, "j2": 1, "j3": 1}
			report := d.Dispatch(ctx, specs("j1", "j2", "j3"))
			assert.Loosely(t, report.Err(), should.BeNil)
			assert.Loosely(t, report.Failed, should.HaveLength(0))
			assert.Loosely(t, report.Sweeps, should.Equal(2))
			assert.Loosely(t, srv.attempts, should.Match(map[string]int{"j1": 2, "j2": 2, "j3": 2}))
			assert.Loosely(t, logs.HasFunc(func(e *memlogger.LogEntry) bool {
				return e.Level == logging.Error && strings.HasPrefix(e.Msg, `Failed to create job "j1"`)
			}), should.BeTrue)
		})

		t.Run("Converges on the last sweep", func(t *ftt.Test) {
			srv.failCreate = map[string]int{"j2": 3}
			report := d.Dispatch(ctx, specs("j1", "j2"))
			assert.Loosely(t, report.Err(), should.BeNil)
			assert.Loosely(t, report.Sweeps, should.Equal(4))
			assert.Loosely(t, srv.attempts, should.Match(map[string]int{"j1": 1, "j2": 4}))
		})

		t.Run("Gives up after retry+1 sweeps", func(t *ftt.Test) {
			srv.failCreate = map[string]int{"j2": -1}
			report := d.Dispatch(ctx, specs("j1", "j2", "j3"))
			assert.Loosely(t, report.Sweeps, should.Equal(DefaultRetry+1))
			assert.Loosely(t, report.Created, should.Match([]string{"j1", "j3"}))
			assert.Loosely(t, report.Failed, should.Match([]string{"j2"}))
			assert.Loosely(t, srv.attempts["j2"], should.Equal(DefaultRetry+1))
			assert.Loosely(t, srv.attempts["j1"], should.Equal(1))
			assert.Loosely(t, report.Err(), should.ErrLike(ErrDispatch))
			assert.Loosely(t, report.Err(), should.ErrLike("1 of 3 jobs were not created"))
		})

		t.Run("Custom retry", func(t *ftt.Test) {
			srv.failCreate = map[string]int{"j1": -1}
			d.Retry = 1
			report := d.Dispatch(ctx, specs("j1"))
			assert.Loosely(t, report.Sweeps, should.Equal(2))
			assert.Loosely(t, srv.attempts["j1"], should.Equal(2))
		})

		t.Run("No retry", func(t *ftt.Test) {
			srv.failCreate = map[string]int{"j1": 1}
			d.Retry = -1
			report := d.Dispatch(ctx, specs("j1"))
			assert.Loosely(t, report.Sweeps, should.Equal(1))
			assert.Loosely(t, report.Failed, should.Match([]string{"j1"}))
		})

		t.Run("Render errors are not retried", func(t *ftt.Test) {
			jobs := specs("j1", "j2")
			jobs[1].Render = func() (string, error) {
				return jobtmpl.RenderTrigger("<script/>", []string{"j1"})
			}
			report := d.Dispatch(ctx, jobs)
			assert.Loosely(t, report.Sweeps, should.Equal(1))
			assert.Loosely(t, report.Created, should.Match([]string{"j1"}))
			assert.Loosely(t, report.Failed, should.Match([]string{"j2"}))
			assert.Loosely(t, report.Errs, should.HaveLength(1))
			assert.Loosely(t, srv.attempts["j2"], should.BeZero)
			assert.Loosely(t, report.Err(), should.ErrLike(ErrTemplate))
		})

		t.Run("Panics stay within one job", func(t *ftt.Test) {
			jobs := specs("j1", "j2")
			jobs[0].Render = func() (string, error) { panic("boom") }
			report := d.Dispatch(ctx, jobs)
			assert.Loosely(t, report.Sweeps, should.Equal(1))
			assert.Loosely(t, report.Created, should.Match([]string{"j2"}))
			assert.Loosely(t, report.Failed, should.Match([]string{"j1"}))
			assert.Loosely(t, report.Err(), should.ErrLike("panic: boom"))
			assert.Loosely(t, logs.HasFunc(func(e *memlogger.LogEntry) bool {
				return e.Level == logging.Error && strings.HasPrefix(e.Msg, `Panic while creating "j1"`)
			}), should.BeTrue)
		})

		t.Run("Batches are bounded", func(t *ftt.Test) {
			var jobs []string
			for i := range 20 {
				jobs = append(jobs, fmt.Sprintf("j%d", i))
			}
			d.Concurrency = 3
			report := d.Dispatch(ctx, specs(jobs...))
			assert.Loosely(t, report.Err(), should.BeNil)
			assert.Loosely(t, report.Created, should.Match(jobs))
			assert.Loosely(t, srv.maxFlight > 0 && srv.maxFlight <= 3, should.BeTrue)
		})

		t.Run("Nothing to do", func(t *ftt.Test) {
			report := d.Dispatch(ctx, nil)
			assert.Loosely(t, report.Err(), should.BeNil)
			assert.Loosely(t, report.Sweeps, should.BeZero)
		})
	})
}
