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
	"strconv"
	"sync"
	"time"

	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/retry/transient"

	"gitee.com/openeuler/release-assistant/jenkins"
)

// memServer is an in-memory Server for tests that need exact control over
// failures. Methods it does not implement panic via the nil Server.
type memServer struct {
	Server

	m sync.Mutex
	// failCreate is how many times creating a job fails before it succeeds,
	// negative to fail forever.
	failCreate map[string]int
	attempts   map[string]int
	configs    map[string]string
	inFlight   int
	maxFlight  int

	// builds are returned by GetBuild in order, then the last one forever.
	builds map[string][]*jenkins.Build
	// buildErrs are returned by GetBuild before builds.
	buildErrs map[string][]error
	consoles  map[string]string
}

func newMemServer() *memServer {
	return &memServer{
		failCreate: map[string]int{},
		attempts:   map[string]int{},
		configs:    map[string]string{},
		builds:     map[string][]*jenkins.Build{},
		buildErrs:  map[string][]error{},
		consoles:   map[string]string{},
	}
}

func (s *memServer) JobURL(job string) string {
	return "https://jenkins.example.com/job/" + job
}

func (s *memServer) CreateJob(ctx context.Context, job, config string) error {
	s.m.Lock()
	s.attempts[job]++
	attempt := s.attempts[job]
	fail := s.failCreate[job]
	s.inFlight++
	s.maxFlight = max(s.maxFlight, s.inFlight)
	s.m.Unlock()

	time.Sleep(time.Millisecond)

	s.m.Lock()
	defer s.m.Unlock()
	s.inFlight--
	if fail < 0 || attempt <= fail {
		return transient.Tag.Apply(errors.Reason("POST %s: HTTP 500", job).Err())
	}
	s.configs[job] = config
	return nil
}

func (s *memServer) GetBuild(ctx context.Context, job string, number int64) (*jenkins.Build, error) {
	s.m.Lock()
	defer s.m.Unlock()
	if errs := s.buildErrs[job]; len(errs) > 0 {
		s.buildErrs[job] = errs[1:]
		return nil, errs[0]
	}
	builds := s.builds[job]
	if len(builds) == 0 {
		return nil, &jenkins.HTTPError{Method: "GET", URL: job, Code: 404}
	}
	b := builds[0]
	if len(builds) > 1 {
		s.builds[job] = builds[1:]
	}
	return b, nil
}

func (s *memServer) GetConsoleText(ctx context.Context, job string, number int64) (string, error) {
	s.m.Lock()
	defer s.m.Unlock()
	return s.consoles[job], nil
}

func running(job string, n int64) *jenkins.Build {
	return &jenkins.Build{Number: n, URL: buildURL(job, n), Building: true}
}

func finished(job string, n int64, result string) *jenkins.Build {
	return &jenkins.Build{Number: n, URL: buildURL(job, n), Result: result}
}

func buildURL(job string, n int64) string {
	return "https://jenkins.example.com/job/" + job + "/" + strconv.FormatInt(n, 10) + "/"
}
