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

// Package jenkinstest implements an in-memory Jenkins server for tests.
//
// It understands the part of the REST API used by package jenkins: folders,
// jobs with config.xml, parameterized builds going through the queue, build
// polling and console logs. Jobs whose config contains pipeline
// `build job: '<name>'` steps fan out: building them builds every listed job
// and logs a "Starting building:" line per child, as Jenkins does.
package jenkinstest

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"go.chromium.org/luci/common/data/stringset"
	"go.chromium.org/luci/server/router"
)

// WaitingReason is reported by queue items that have not started yet.
const WaitingReason = "Waiting for next available executor"

var childJobRe = regexp.MustCompile(`build job: '([^']+)'`)

// Fake is a fake Jenkins server.
//
// Hooks must be set before Start and must not call back into the Fake.
type Fake struct {
	// CreateHook is called before a job or a folder is created. A non-nil
	// error is reported to the client as HTTP 500.
	CreateHook func(path string) error
	// BuildHook is called when a build is scheduled. A non-nil error is
	// reported to the client as HTTP 500. If it returns handled=true the
	// request is accepted without a Location header, as Jenkins does when a
	// build request is folded into an existing queue item.
	BuildHook func(path string) (handled bool, err error)
	// Result decides the result of a build, SUCCESS if nil.
	Result func(path string, number int64, params map[string]string) string
	// QueuePolls is how many times a queue item reports WaitingReason before
	// it gets a build number.
	QueuePolls int
	// BuildPolls is how many times a build reports building=true before it
	// reports its result.
	BuildPolls int

	m      sync.Mutex
	srv    *httptest.Server
	items  map[string]*item
	queue  map[int64]*queueItem
	nextID int64
	calls  map[string]int
}

type item struct {
	folder bool
	config string
	next   int64
	builds map[int64]*build
}

type build struct {
	number  int64
	params  map[string]string
	result  string
	console string
	polls   int
}

type queueItem struct {
	id     int64
	job    string
	build  *build
	polls  int
	cancel bool
}

// Start launches the HTTP server.
func (f *Fake) Start() {
	f.m.Lock()
	f.initLocked()
	f.m.Unlock()

	r := router.New()
	mc := router.MiddlewareChain{}
	r.POST("/createItem", mc, func(c *router.Context) { f.createItem(c, "") })
	r.GET("/queue/item/:ID/api/json", mc, f.getQueueItem)
	r.GET("/job/*rest", mc, f.handleGet)
	r.POST("/job/*rest", mc, f.handlePost)
	f.srv = httptest.NewServer(r)
}

// Stop shuts down the HTTP server.
func (f *Fake) Stop() {
	f.srv.Close()
}

// URL is the root URL of the fake server.
func (f *Fake) URL() string {
	return f.srv.URL
}

// AddFolder adds a folder, along with its missing parents.
func (f *Fake) AddFolder(path string) {
	f.m.Lock()
	defer f.m.Unlock()
	f.addLocked(path, &item{folder: true})
}

// AddJob adds a job with the given config.xml, along with missing parent
// folders.
func (f *Fake) AddJob(path, config string) {
	f.m.Lock()
	defer f.m.Unlock()
	f.addLocked(path, &item{config: config, builds: map[int64]*build{}})
}

func (f *Fake) initLocked() {
	if f.items == nil {
		f.items = map[string]*item{}
		f.queue = map[int64]*queueItem{}
		f.calls = map[string]int{}
	}
}

func (f *Fake) addLocked(path string, it *item) {
	f.initLocked()
	segs := strings.Split(path, "/")
	for i := 1; i < len(segs); i++ {
		parent := strings.Join(segs[:i], "/")
		if _, ok := f.items[parent]; !ok {
			f.items[parent] = &item{folder: true}
		}
	}
	f.items[path] = it
}

// Folders returns sorted paths of all folders.
func (f *Fake) Folders() []string {
	return f.list(true)
}

// Jobs returns sorted paths of all jobs.
func (f *Fake) Jobs() []string {
	return f.list(false)
}

func (f *Fake) list(folders bool) []string {
	f.m.Lock()
	defer f.m.Unlock()
	var out []string
	for p, it := range f.items {
		if it.folder == folders {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}

// Config returns config.xml of a job.
func (f *Fake) Config(path string) (string, bool) {
	f.m.Lock()
	defer f.m.Unlock()
	it, ok := f.items[path]
	if !ok || it.folder {
		return "", false
	}
	return it.config, true
}

// BuildParams returns parameters a build was started with.
func (f *Fake) BuildParams(path string, number int64) map[string]string {
	f.m.Lock()
	defer f.m.Unlock()
	if it, ok := f.items[path]; ok && !it.folder {
		if b := it.builds[number]; b != nil {
			return b.params
		}
	}
	return nil
}

// Calls returns how many requests of the given kind were served, e.g.
// "createItem", "doDelete", "build", "queue", "api/json".
func (f *Fake) Calls(kind string) int {
	f.m.Lock()
	defer f.m.Unlock()
	return f.calls[kind]
}

// CancelQueueItem marks a queue item as cancelled.
func (f *Fake) CancelQueueItem(id int64) {
	f.m.Lock()
	defer f.m.Unlock()
	if q := f.queue[id]; q != nil {
		q.cancel = true
	}
}

// splitJobPath parses "/a/job/b/job/c/<tail...>" into "a/b/c" and the tail.
func splitJobPath(rest string) (string, []string) {
	segs := strings.Split(strings.Trim(rest, "/"), "/")
	if len(segs) == 0 || segs[0] == "" {
		return "", nil
	}
	job := []string{segs[0]}
	i := 1
	for ; i+1 < len(segs) && segs[i] == "job"; i += 2 {
		job = append(job, segs[i+1])
	}
	return strings.Join(job, "/"), segs[i:]
}

func (f *Fake) handleGet(c *router.Context) {
	job, tail := splitJobPath(c.Params.ByName("rest"))
	f.m.Lock()
	defer f.m.Unlock()

	it, ok := f.items[job]
	if !ok {
		http.Error(c.Writer, "no such job", http.StatusNotFound)
		return
	}
	switch {
	case len(tail) == 1 && tail[0] == "config.xml" && !it.folder:
		c.Writer.Header().Set("Content-Type", "application/xml")
		io.WriteString(c.Writer, it.config)
	case len(tail) == 2 && tail[0] == "api" && tail[1] == "json":
		f.calls["api/json"]++
		writeJSON(c.Writer, map[string]any{"name": job})
	case len(tail) == 3 && tail[1] == "api" && tail[2] == "json" && !it.folder:
		f.calls["build/api/json"]++
		b := f.buildLocked(it, tail[0])
		if b == nil {
			http.Error(c.Writer, "no such build", http.StatusNotFound)
			return
		}
		building := b.polls < f.BuildPolls
		b.polls++
		resp := map[string]any{
			"number":          b.number,
			"url":             fmt.Sprintf("%s/%d/", f.jobURL(job), b.number),
			"fullDisplayName": fmt.Sprintf("%s #%d", strings.ReplaceAll(job, "/", " » "), b.number),
			"building":        building,
			"result":          nil,
		}
		if !building {
			resp["result"] = b.result
		}
		writeJSON(c.Writer, resp)
	case len(tail) == 2 && tail[1] == "consoleText" && !it.folder:
		b := f.buildLocked(it, tail[0])
		if b == nil {
			http.Error(c.Writer, "no such build", http.StatusNotFound)
			return
		}
		io.WriteString(c.Writer, b.console)
	default:
		http.Error(c.Writer, "unsupported", http.StatusNotFound)
	}
}

func (f *Fake) buildLocked(it *item, num string) *build {
	n, err := strconv.ParseInt(num, 10, 64)
	if err != nil {
		return nil
	}
	return it.builds[n]
}

func (f *Fake) handlePost(c *router.Context) {
	job, tail := splitJobPath(c.Params.ByName("rest"))
	if len(tail) != 1 {
		http.Error(c.Writer, "unsupported", http.StatusNotFound)
		return
	}
	switch tail[0] {
	case "createItem":
		f.createItem(c, job)
	case "doDelete":
		f.deleteItem(c, job)
	case "build", "buildWithParameters":
		f.scheduleBuild(c, job)
	default:
		http.Error(c.Writer, "unsupported", http.StatusNotFound)
	}
}

func (f *Fake) createItem(c *router.Context, parent string) {
	if err := c.Request.ParseForm(); err != nil {
		http.Error(c.Writer, err.Error(), http.StatusBadRequest)
		return
	}
	name := c.Request.Form.Get("name")
	if name == "" {
		http.Error(c.Writer, "no name", http.StatusBadRequest)
		return
	}
	path := name
	if parent != "" {
		path = parent + "/" + name
	}
	folder := c.Request.Form.Get("mode") != ""
	var config string
	if !folder {
		blob, err := io.ReadAll(c.Request.Body)
		if err != nil {
			http.Error(c.Writer, err.Error(), http.StatusBadRequest)
			return
		}
		config = string(blob)
	}

	if f.CreateHook != nil {
		if err := f.CreateHook(path); err != nil {
			http.Error(c.Writer, err.Error(), http.StatusInternalServerError)
			return
		}
	}

	f.m.Lock()
	defer f.m.Unlock()
	f.calls["createItem"]++
	if parent != "" {
		if p, ok := f.items[parent]; !ok || !p.folder {
			http.Error(c.Writer, "no such folder", http.StatusNotFound)
			return
		}
	}
	if _, ok := f.items[path]; ok {
		c.Writer.Header().Set("X-Error", fmt.Sprintf("A job already exists with the name ‘%s’", name))
		http.Error(c.Writer, "exists", http.StatusBadRequest)
		return
	}
	if folder {
		f.items[path] = &item{folder: true}
	} else {
		f.items[path] = &item{config: config, builds: map[int64]*build{}}
	}
}

func (f *Fake) deleteItem(c *router.Context, path string) {
	f.m.Lock()
	defer f.m.Unlock()
	f.calls["doDelete"]++
	if _, ok := f.items[path]; !ok {
		http.Error(c.Writer, "no such job", http.StatusNotFound)
		return
	}
	for p := range f.items {
		if p == path || strings.HasPrefix(p, path+"/") {
			delete(f.items, p)
		}
	}
}

func (f *Fake) scheduleBuild(c *router.Context, job string) {
	if err := c.Request.ParseForm(); err != nil {
		http.Error(c.Writer, err.Error(), http.StatusBadRequest)
		return
	}
	params := map[string]string{}
	for k := range c.Request.PostForm {
		params[k] = c.Request.PostForm.Get(k)
	}

	if f.BuildHook != nil {
		switch handled, err := f.BuildHook(job); {
		case err != nil:
			http.Error(c.Writer, err.Error(), http.StatusInternalServerError)
			return
		case handled:
			c.Writer.WriteHeader(http.StatusCreated)
			return
		}
	}

	f.m.Lock()
	defer f.m.Unlock()
	f.calls["build"]++
	it, ok := f.items[job]
	if !ok || it.folder {
		http.Error(c.Writer, "no such job", http.StatusNotFound)
		return
	}
	b := f.startBuildLocked(job, it, params, stringset.New(0))
	f.nextID++
	f.queue[f.nextID] = &queueItem{id: f.nextID, job: job, build: b}
	c.Writer.Header().Set("Location", fmt.Sprintf("%s/queue/item/%d/", f.srv.URL, f.nextID))
	c.Writer.WriteHeader(http.StatusCreated)
}

// startBuildLocked allocates a build, decides its result and, for pipeline
// jobs listing children, builds the children first.
func (f *Fake) startBuildLocked(job string, it *item, params map[string]string, visiting stringset.Set) *build {
	it.next++
	b := &build{number: it.next, params: params, result: "SUCCESS"}
	it.builds[b.number] = b
	if f.Result != nil {
		b.result = f.Result(job, b.number, params)
	}

	var console strings.Builder
	fmt.Fprintf(&console, "Started by user release-bot\n")
	if visiting.Add(job) {
		for _, m := range childJobRe.FindAllStringSubmatch(it.config, -1) {
			child := m[1]
			fmt.Fprintf(&console, "[Pipeline] build (Building %s)\n", strings.ReplaceAll(child, "/", " » "))
			cit, ok := f.items[child]
			if !ok || cit.folder {
				fmt.Fprintf(&console, "ERROR: No item named %s found\n", child)
				continue
			}
			cb := f.startBuildLocked(child, cit, nil, visiting)
			fmt.Fprintf(&console, "Scheduling project: %s\n", strings.ReplaceAll(child, "/", " » "))
			fmt.Fprintf(&console, "Starting building: %s #%d\n", strings.ReplaceAll(child, "/", " » "), cb.number)
		}
		visiting.Del(job)
	}
	fmt.Fprintf(&console, "Finished: %s\n", b.result)
	b.console = console.String()
	return b
}

func (f *Fake) getQueueItem(c *router.Context) {
	id, err := strconv.ParseInt(c.Params.ByName("ID"), 10, 64)
	if err != nil {
		http.Error(c.Writer, err.Error(), http.StatusBadRequest)
		return
	}
	f.m.Lock()
	defer f.m.Unlock()
	f.calls["queue"]++
	q := f.queue[id]
	if q == nil {
		http.Error(c.Writer, "no such queue item", http.StatusNotFound)
		return
	}
	resp := map[string]any{
		"id":        q.id,
		"cancelled": q.cancel,
		"why":       nil,
		"task":      map[string]any{"name": q.job, "url": f.jobURL(q.job) + "/"},
	}
	switch {
	case q.cancel:
	case q.polls < f.QueuePolls:
		resp["why"] = WaitingReason
	default:
		resp["executable"] = map[string]any{
			"number": q.build.number,
			"url":    fmt.Sprintf("%s/%d/", f.jobURL(q.job), q.build.number),
		}
	}
	q.polls++
	writeJSON(c.Writer, resp)
}

func (f *Fake) jobURL(job string) string {
	segs := strings.Split(job, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return f.srv.URL + "/job/" + strings.Join(segs, "/job/")
}
