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

	"gitee.com/openeuler/release-assistant/jenkins"
)

// Server is the subset of the Jenkins API used by the orchestrator.
//
// It is implemented by *jenkins.Client. Implementations must be safe for
// concurrent use.
type Server interface {
	JobURL(job string) string

	CreateFolder(ctx context.Context, folder string) error
	CreateJob(ctx context.Context, job, config string) error
	GetJobConfig(ctx context.Context, job string) (string, error)
	JobExists(ctx context.Context, job string) (bool, error)
	DeleteJob(ctx context.Context, job string) error

	BuildJob(ctx context.Context, job string, params map[string]string) (int64, error)
	GetQueueItem(ctx context.Context, id int64) (*jenkins.QueueItem, error)
	GetBuild(ctx context.Context, job string, number int64) (*jenkins.Build, error)
	GetConsoleText(ctx context.Context, job string, number int64) (string, error)
}

var _ Server = (*jenkins.Client)(nil)
