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

// Package jenkins is a client for the subset of the Jenkins REST API used to
// create, trigger and watch release jobs.
//
// Jobs are addressed by their full name, a slash-separated path through
// folders, e.g. "release_tools/update_20230101/aarch64/openEuler-22.03-LTS_1".
package jenkins

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"

	"golang.org/x/time/rate"

	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/logging"
	"go.chromium.org/luci/common/retry/transient"
)

const folderMode = "com.cloudbees.hudson.plugins.folder.Folder"

// Client talks to a Jenkins server.
//
// It is safe for concurrent use.
type Client struct {
	// BaseURL is the root of the Jenkins instance, e.g.
	// "https://jenkins.example.com".
	BaseURL string
	// User and Token are used for basic auth if User is not empty.
	User  string
	Token string
	// HTTP is used to send requests, http.DefaultClient if nil.
	HTTP *http.Client
	// Limiter throttles outgoing requests if not nil.
	Limiter *rate.Limiter
}

// JobURL returns the URL of the job page, without the trailing slash.
func (c *Client) JobURL(job string) string {
	base := strings.TrimSuffix(c.BaseURL, "/")
	if job = strings.Trim(job, "/"); job == "" {
		return base
	}
	segs := strings.Split(job, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return base + "/job/" + strings.Join(segs, "/job/")
}

// parentURL returns the URL of the folder containing the job and the job's
// short name.
func (c *Client) parentURL(job string) (string, string) {
	job = strings.Trim(job, "/")
	parent, name := path.Split(job)
	return c.JobURL(parent), name
}

// CreateFolder creates a folder. Returns an error that matches
// ErrAlreadyExists if something with this name is already there.
func (c *Client) CreateFolder(ctx context.Context, folder string) error {
	parent, name := c.parentURL(folder)
	form := url.Values{
		"name": {name},
		"mode": {folderMode},
		"from": {""},
	}
	blob, _ := json.Marshal(map[string]string{"name": name, "mode": folderMode})
	form.Set("json", string(blob))
	_, _, err := c.do(ctx, "POST", parent+"/createItem", nil, "application/x-www-form-urlencoded", []byte(form.Encode()))
	return err
}

// CreateJob creates a job from its config.xml. Returns an error that matches
// ErrAlreadyExists if the job is already there.
func (c *Client) CreateJob(ctx context.Context, job, config string) error {
	parent, name := c.parentURL(job)
	_, _, err := c.do(ctx, "POST", parent+"/createItem", url.Values{"name": {name}}, "application/xml", []byte(config))
	return err
}

// GetJobConfig returns the config.xml of a job.
func (c *Client) GetJobConfig(ctx context.Context, job string) (string, error) {
	_, body, err := c.do(ctx, "GET", c.JobURL(job)+"/config.xml", nil, "", nil)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// JobExists checks whether a job or a folder exists.
func (c *Client) JobExists(ctx context.Context, job string) (bool, error) {
	_, _, err := c.do(ctx, "GET", c.JobURL(job)+"/api/json", url.Values{"tree": {"name"}}, "", nil)
	switch {
	case errors.Is(err, ErrNotFound):
		return false, nil
	case err != nil:
		return false, err
	}
	return true, nil
}

// DeleteJob deletes a job or a folder with everything inside it.
func (c *Client) DeleteJob(ctx context.Context, job string) error {
	_, _, err := c.do(ctx, "POST", c.JobURL(job)+"/doDelete", nil, "", nil)
	return err
}

// BuildJob schedules a build and returns the id of the queue item.
//
// Returns 0 if the server accepted the request but did not say where the
// item was queued.
func (c *Client) BuildJob(ctx context.Context, job string, params map[string]string) (int64, error) {
	var resp *http.Response
	var err error
	if len(params) == 0 {
		resp, _, err = c.do(ctx, "POST", c.JobURL(job)+"/build", nil, "", nil)
	} else {
		form := url.Values{}
		for k, v := range params {
			form.Set(k, v)
		}
		resp, _, err = c.do(ctx, "POST", c.JobURL(job)+"/buildWithParameters", nil,
			"application/x-www-form-urlencoded", []byte(form.Encode()))
	}
	if err != nil {
		return 0, err
	}
	return queueIDFromLocation(resp.Header.Get("Location")), nil
}

// queueIDFromLocation extracts 42 from ".../queue/item/42/".
func queueIDFromLocation(loc string) int64 {
	const marker = "/queue/item/"
	idx := strings.LastIndex(loc, marker)
	if idx == -1 {
		return 0
	}
	id, err := strconv.ParseInt(strings.Trim(loc[idx+len(marker):], "/"), 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// GetQueueItem fetches the state of a queue item.
func (c *Client) GetQueueItem(ctx context.Context, id int64) (*QueueItem, error) {
	u := fmt.Sprintf("%s/queue/item/%d/api/json", strings.TrimSuffix(c.BaseURL, "/"), id)
	item := &QueueItem{}
	if err := c.getJSON(ctx, u, item); err != nil {
		return nil, err
	}
	return item, nil
}

// GetBuild fetches the state of a build.
func (c *Client) GetBuild(ctx context.Context, job string, number int64) (*Build, error) {
	build := &Build{}
	if err := c.getJSON(ctx, fmt.Sprintf("%s/%d/api/json", c.JobURL(job), number), build); err != nil {
		return nil, err
	}
	return build, nil
}

// GetConsoleText fetches the full console log of a build.
func (c *Client) GetConsoleText(ctx context.Context, job string, number int64) (string, error) {
	_, body, err := c.do(ctx, "GET", fmt.Sprintf("%s/%d/consoleText", c.JobURL(job), number), nil, "", nil)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

func (c *Client) getJSON(ctx context.Context, u string, out any) error {
	_, body, err := c.do(ctx, "GET", u, nil, "", nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		// Jenkins sometimes serves an HTML error page with 200 while restarting.
		return transient.Tag.Apply(errors.Annotate(err, "can't deserialize JSON from %s", u).Err())
	}
	return nil
}

// do sends a request and reads the whole response.
//
// Non-2xx responses are returned as *HTTPError, tagged as transient if
// retrying may help.
func (c *Client) do(ctx context.Context, method, u string, query url.Values, contentType string, body []byte) (*http.Response, []byte, error) {
	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			return nil, nil, err
		}
	}
	if len(query) != 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, bytes.NewReader(body))
	if err != nil {
		return nil, nil, errors.Annotate(err, "bad request").Err()
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.User != "" {
		req.SetBasicAuth(c.User, c.Token)
	}

	client := c.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	logging.Debugf(ctx, "jenkins: %s %s", method, u)
	resp, err := client.Do(req)
	if err != nil {
		return nil, nil, wrapHTTPError(errors.Annotate(err, "%s %s", method, u).Err())
	}
	defer resp.Body.Close()
	blob, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, transient.Tag.Apply(errors.Annotate(err, "reading response of %s %s", method, u).Err())
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		reason := resp.Header.Get("X-Error")
		if reason == "" {
			reason = abbreviate(string(blob), 200)
		}
		return nil, nil, wrapHTTPError(&HTTPError{
			Method: method,
			URL:    u,
			Code:   resp.StatusCode,
			Reason: reason,
		})
	}
	return resp, blob, nil
}

func abbreviate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
