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
	"time"

	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/logging"
	"go.chromium.org/luci/common/retry"
	"go.chromium.org/luci/common/retry/transient"

	"gitee.com/openeuler/release-assistant/jenkins"
)

// DefaultRetry is how many times a failed remote operation is repeated.
const DefaultRetry = 3

// Registry creates and deletes jobs and folders.
//
// All operations are idempotent, so a run can be repeated for the same
// release.
type Registry struct {
	Server Server
	// Retry is how many times a failed request is repeated, DefaultRetry if 0.
	// Negative disables retries.
	Retry int
	// RetryDelay is the delay between attempts, one second if 0.
	RetryDelay time.Duration
}

func (r *Registry) retryPolicy() retry.Iterator {
	it := &retry.Limited{Delay: r.RetryDelay, Retries: retries(r.Retry)}
	if it.Delay == 0 {
		it.Delay = time.Second
	}
	return it
}

// retries resolves a configured retry count: 0 is DefaultRetry, negative is
// none.
func retries(n int) int {
	switch {
	case n == 0:
		return DefaultRetry
	case n < 0:
		return 0
	}
	return n
}

// EnsureFolder creates a folder unless it exists.
//
// Any failure other than the folder already existing is retried.
func (r *Registry) EnsureFolder(ctx context.Context, path string) error {
	err := retry.Retry(ctx, r.retryPolicy, func() error {
		err := r.Server.CreateFolder(ctx, path)
		if errors.Is(err, jenkins.ErrAlreadyExists) {
			logging.Debugf(ctx, "Folder %q already exists", path)
			return nil
		}
		return err
	}, func(err error, wait time.Duration) {
		logging.Warningf(ctx, "Failed to create folder %q, will retry in %s: %s", path, wait, err)
	})
	if err != nil {
		return errors.Annotate(err, "creating folder %q", path).Err()
	}
	return nil
}

// CreateJob creates a job and reports whether it succeeded.
//
// Failures are logged, not returned: the caller decides whether to try again.
func (r *Registry) CreateJob(ctx context.Context, path, config string) bool {
	if err := r.Server.CreateJob(ctx, path, config); err != nil {
		logging.Errorf(ctx, "Failed to create job %q: %s", path, err)
		return false
	}
	logging.Debugf(ctx, "Created job %q", path)
	return true
}

// DeleteJob deletes a job if it exists.
//
// Returns false if there was nothing to delete.
func (r *Registry) DeleteJob(ctx context.Context, path string) (deleted bool, err error) {
	exists, err := r.Server.JobExists(ctx, path)
	switch {
	case err != nil:
		return false, errors.Annotate(err, "checking job %q", path).Err()
	case !exists:
		logging.Infof(ctx, "Job %q does not exist, nothing to delete", path)
		return false, nil
	}
	switch err := r.Server.DeleteJob(ctx, path); {
	case errors.Is(err, jenkins.ErrNotFound):
		return false, nil
	case err != nil:
		return false, errors.Annotate(err, "deleting job %q", path).Err()
	}
	logging.Infof(ctx, "Deleted job %q", path)
	return true, nil
}

// TemplateConfig fetches config.xml of a template job, retrying transient
// errors.
func (r *Registry) TemplateConfig(ctx context.Context, path string) (config string, err error) {
	err = retry.Retry(ctx, transient.Only(r.retryPolicy), func() (err error) {
		config, err = r.Server.GetJobConfig(ctx, path)
		return err
	}, func(err error, wait time.Duration) {
		logging.Warningf(ctx, "Failed to fetch template %q, will retry in %s: %s", path, wait, err)
	})
	if err != nil {
		return "", errors.Annotate(err, "fetching template job %q", path).Err()
	}
	return config, nil
}
