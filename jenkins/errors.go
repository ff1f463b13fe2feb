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
	"fmt"
	"net/http"
	"strings"

	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/retry/transient"
)

var (
	// ErrNotFound is returned when the job, build or queue item is unknown to
	// the server.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists is returned when creating a job or a folder whose name
	// is already taken.
	ErrAlreadyExists = errors.New("already exists")
)

// HTTPError is a non-2xx response from the Jenkins server.
type HTTPError struct {
	Method string
	URL    string
	Code   int
	// Reason is the X-Error header Jenkins sets on rejected requests, or the
	// start of the response body otherwise.
	Reason string
}

func (e *HTTPError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%s %s: HTTP %d", e.Method, e.URL, e.Code)
	}
	return fmt.Sprintf("%s %s: HTTP %d: %s", e.Method, e.URL, e.Code, e.Reason)
}

// Is makes errors.Is(err, ErrNotFound) and errors.Is(err, ErrAlreadyExists)
// work on HTTP errors.
func (e *HTTPError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Code == http.StatusNotFound
	case ErrAlreadyExists:
		return e.Code == http.StatusBadRequest && strings.Contains(e.Reason, "already exists")
	}
	return false
}

// IsTransientHTTPError returns true if err indicates a failure that can go
// away on its own: connectivity errors, 5xx and 429.
func IsTransientHTTPError(err error) bool {
	if err == nil {
		return false
	}
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		return true // no HTTP code => connectivity error => transient
	}
	return httpErr.Code >= 500 || httpErr.Code == http.StatusTooManyRequests
}

// wrapHTTPError tags err as transient if necessary.
func wrapHTTPError(err error) error {
	if IsTransientHTTPError(err) {
		return transient.Tag.Apply(err)
	}
	return err
}
