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

package jenkins

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/retry/transient"
	"go.chromium.org/luci/common/testing/ftt"
	"go.chromium.org/luci/common/testing/truth/assert"
	"go.chromium.org/luci/common/testing/truth/should"

	"gitee.com/openeuler/release-assistant/jenkins/jenkinstest"
)

func TestClient(t *testing.T) {
	t.Parallel()

	ftt.Run("With fake jenkins", t, func(t *ftt.Test) {
		ctx := context.Background()
		fake := &jenkinstest.Fake{}
		fake.Start()
		defer fake.Stop()

		c := &Client{BaseURL: fake.URL(), User: "bot", Token: "secret"}

		t.Run("JobURL", func(t *ftt.Test) {
			c := &Client{BaseURL: "https://jenkins.example.com/"}
			assert.Loosely(t, c.JobURL("a/b c/d"), should.Equal("https://jenkins.example.com/job/a/job/b%20c/job/d"))
			assert.Loosely(t, c.JobURL(""), should.Equal("https://jenkins.example.com"))
		})

		t.Run("Folders", func(t *ftt.Test) {
			assert.Loosely(t, c.CreateFolder(ctx, "prefix"), should.BeNil)
			assert.Loosely(t, c.CreateFolder(ctx, "prefix/update_20230101"), should.BeNil)
			assert.Loosely(t, fake.Folders(), should.Match([]string{"prefix", "prefix/update_20230101"}))

			err := c.CreateFolder(ctx, "prefix")
			assert.Loosely(t, errors.Is(err, ErrAlreadyExists), should.BeTrue)
			assert.Loosely(t, transient.Tag.In(err), should.BeFalse)

			exists, err := c.JobExists(ctx, "prefix/update_20230101")
			assert.Loosely(t, err, should.BeNil)
			assert.Loosely(t, exists, should.BeTrue)

			exists, err = c.JobExists(ctx, "prefix/missing")
			assert.Loosely(t, err, should.BeNil)
			assert.Loosely(t, exists, should.BeFalse)
		})

		t.Run("Jobs", func(t *ftt.Test) {
			fake.AddFolder("prefix")
			assert.Loosely(t, c.CreateJob(ctx, "prefix/job", "<project/>"), should.BeNil)

			cfg, err := c.GetJobConfig(ctx, "prefix/job")
			assert.Loosely(t, err, should.BeNil)
			assert.Loosely(t, cfg, should.Equal("<project/>"))

			t.Run("Duplicate", func(t *ftt.Test) {
				err := c.CreateJob(ctx, "prefix/job", "<project/>")
				assert.Loosely(t, errors.Is(err, ErrAlreadyExists), should.BeTrue)
			})

			t.Run("Missing parent", func(t *ftt.Test) {
				err := c.CreateJob(ctx, "nowhere/job", "<project/>")
				assert.Loosely(t, errors.Is(err, ErrNotFound), should.BeTrue)
			})

			t.Run("Delete", func(t *ftt.Test) {
				assert.Loosely(t, c.DeleteJob(ctx, "prefix/job"), should.BeNil)
				assert.Loosely(t, fake.Jobs(), should.BeEmpty)
				err := c.DeleteJob(ctx, "prefix/job")
				assert.Loosely(t, errors.Is(err, ErrNotFound), should.BeTrue)
			})

			t.Run("Missing config", func(t *ftt.Test) {
				_, err := c.GetJobConfig(ctx, "prefix/other")
				assert.Loosely(t, errors.Is(err, ErrNotFound), should.BeTrue)
			})
		})

		t.Run("Builds", func(t *ftt.Test) {
			fake.AddJob("install", "<project/>")

			id, err := c.BuildJob(ctx, "install", map[string]string{"BRANCH": "openEuler-22.03-LTS"})
			assert.Loosely(t, err, should.BeNil)
			assert.Loosely(t, id, should.Equal(int64(1)))

			item, err := c.GetQueueItem(ctx, id)
			assert.Loosely(t, err, should.BeNil)
			assert.Loosely(t, item.Waiting(), should.BeFalse)
			assert.Loosely(t, item.Executable.Number, should.Equal(int64(1)))

			b, err := c.GetBuild(ctx, "install", 1)
			assert.Loosely(t, err, should.BeNil)
			assert.Loosely(t, b.Done(), should.BeTrue)
			assert.Loosely(t, b.Result, should.Equal(ResultSuccess))
			assert.Loosely(t, b.URL, should.Equal(fake.URL()+"/job/install/1/"))
			assert.Loosely(t, fake.BuildParams("install", 1), should.Match(map[string]string{"BRANCH": "openEuler-22.03-LTS"}))

			console, err := c.GetConsoleText(ctx, "install", 1)
			assert.Loosely(t, err, should.BeNil)
			assert.Loosely(t, console, should.ContainSubstring("Finished: SUCCESS"))

			_, err = c.GetBuild(ctx, "install", 2)
			assert.Loosely(t, errors.Is(err, ErrNotFound), should.BeTrue)

			_, err = c.BuildJob(ctx, "missing", nil)
			assert.Loosely(t, errors.Is(err, ErrNotFound), should.BeTrue)
		})

		t.Run("Queue without location", func(t *ftt.Test) {
			fake.AddJob("job", "<project/>")
			fake.BuildHook = func(string) (bool, error) { return true, nil }
			id, err := c.BuildJob(ctx, "job", nil)
			assert.Loosely(t, err, should.BeNil)
			assert.Loosely(t, id, should.BeZero)
		})
	})
}

func TestHTTPErrors(t *testing.T) {
	t.Parallel()

	ftt.Run("Classifies HTTP errors", t, func(t *ftt.Test) {
		ctx := context.Background()
		code := http.StatusOK
		body := "{}"
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(code)
			w.Write([]byte(body))
		}))
		defer srv.Close()
		c := &Client{BaseURL: srv.URL}

		t.Run("5xx is transient", func(t *ftt.Test) {
			code = http.StatusBadGateway
			_, err := c.GetBuild(ctx, "job", 1)
			assert.Loosely(t, err, should.ErrLike("HTTP 502"))
			assert.Loosely(t, transient.Tag.In(err), should.BeTrue)
		})

		t.Run("429 is transient", func(t *ftt.Test) {
			code = http.StatusTooManyRequests
			_, err := c.GetBuild(ctx, "job", 1)
			assert.Loosely(t, transient.Tag.In(err), should.BeTrue)
		})

		t.Run("403 is fatal", func(t *ftt.Test) {
			code = http.StatusForbidden
			body = "go away"
			_, err := c.GetJobConfig(ctx, "job")
			assert.Loosely(t, err, should.ErrLike("HTTP 403: go away"))
			assert.Loosely(t, transient.Tag.In(err), should.BeFalse)
			assert.Loosely(t, errors.Is(err, ErrNotFound), should.BeFalse)
		})

		t.Run("Garbage JSON is transient", func(t *ftt.Test) {
			body = "<html>restarting</html>"
			_, err := c.GetQueueItem(ctx, 1)
			assert.Loosely(t, err, should.ErrLike("can't deserialize JSON"))
			assert.Loosely(t, transient.Tag.In(err), should.BeTrue)
		})

		t.Run("Connection errors are transient", func(t *ftt.Test) {
			c := &Client{BaseURL: "http://localhost:12345678"}
			_, err := c.GetBuild(ctx, "job", 1)
			assert.Loosely(t, err, should.NotBeNil)
			assert.Loosely(t, transient.Tag.In(err), should.BeTrue)
		})
	})
}

func TestQueueIDFromLocation(t *testing.T) {
	t.Parallel()

	ftt.Run("queueIDFromLocation", t, func(t *ftt.Test) {
		assert.Loosely(t, queueIDFromLocation("https://j/queue/item/42/"), should.Equal(int64(42)))
		assert.Loosely(t, queueIDFromLocation("https://j/queue/item/42"), should.Equal(int64(42)))
		assert.Loosely(t, queueIDFromLocation(""), should.BeZero)
		assert.Loosely(t, queueIDFromLocation("https://j/queue/item/abc/"), should.BeZero)
	})
}
