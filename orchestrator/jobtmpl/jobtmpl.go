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

// Package jobtmpl renders Jenkins job configs from template jobs.
//
// Templates are config.xml documents of existing jobs. They are treated as a
// versioned contract: the pieces rewritten here must be present, otherwise
// rendering fails with ErrTemplate and the template is left untouched.
//
// The trigger template is a pipeline whose script contains a `parallel(...)`
// step. The worker templates are freestyle jobs with string parameters
// PKGLIST, UPDATE_TIME and BRANCH and an <assignedNode> label.
package jobtmpl

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"regexp"
	"strings"

	"go.chromium.org/luci/common/data/stringset"
	"go.chromium.org/luci/common/errors"

	"gitee.com/openeuler/release-assistant/orchestrator/naming"
)

// ErrTemplate is returned when a template does not have the expected layout.
var ErrTemplate = errors.New("job template does not match the expected layout")

// Markers delimiting the body of the parallel step in the trigger script.
const (
	ParallelStart = "parallel("
	ParallelEnd   = ")"
)

// Names of worker job parameters.
const (
	ParamPackages    = "PKGLIST"
	ParamReleaseDate = "UPDATE_TIME"
	ParamBranch      = "BRANCH"
)

var (
	paramBlockRe   = regexp.MustCompile(`(?s)<parameterDefinitions>(.*?)</parameterDefinitions>`)
	paramNameRe    = regexp.MustCompile(`<name>([^<]*)</name>`)
	defaultValueRe = regexp.MustCompile(`(?s)<defaultValue>.*?</defaultValue>|<defaultValue\s*/>`)
	assignedNodeRe = regexp.MustCompile(`(?s)<assignedNode>.*?</assignedNode>|<assignedNode\s*/>`)
)

// RenderTrigger replaces the body of the parallel step with one build step
// per job, in the given order:
//
//	'self_build_1': { build job: '<job 1>', propagate: false},
//	'self_build_2': { build job: '<job 2>', propagate: false}
//
// The body is everything between ParallelStart and the first ParallelEnd
// after it.
func RenderTrigger(template string, jobs []string) (string, error) {
	start := strings.Index(template, ParallelStart)
	if start == -1 {
		return "", errors.Annotate(ErrTemplate, "trigger template has no %q", ParallelStart).Err()
	}
	start += len(ParallelStart)
	end := strings.Index(template[start:], ParallelEnd)
	if end == -1 {
		return "", errors.Annotate(ErrTemplate, "trigger template has no %q after %q", ParallelEnd, ParallelStart).Err()
	}
	end += start

	entries := make([]string, len(jobs))
	for i, job := range jobs {
		entries[i] = fmt.Sprintf("'self_build_%d': { build job: '%s', propagate: false}", i+1, escapeText(job))
	}
	return template[:start] + "\n" + strings.Join(entries, ",\n") + "\n" + template[end:], nil
}

// Worker describes a worker job to render.
type Worker struct {
	// JobPath is the job being created. Its packages are Shards[JobPath].
	JobPath string
	Arch    naming.Arch
	Release naming.ReleaseContext
	Shards  naming.Shards
	Pools   ExecutorPools
}

// RenderWorker sets the default values of the worker parameters and the
// executor label.
//
// Fails with ErrTemplate if the template lacks any of the parameters or the
// <assignedNode> element, or if the job has no packages to build.
func RenderWorker(template string, w Worker) (string, error) {
	pkgs := w.Shards[w.JobPath]
	if len(pkgs) == 0 {
		return "", errors.Annotate(ErrTemplate, "no packages assigned to %q", w.JobPath).Err()
	}
	node, err := w.Pools.Node(w.Release.Branch, w.Arch)
	if err != nil {
		return "", err
	}

	loc := paramBlockRe.FindStringSubmatchIndex(template)
	if loc == nil {
		return "", errors.Annotate(ErrTemplate, "worker template has no <parameterDefinitions>").Err()
	}
	block, err := setDefaults(template[loc[2]:loc[3]], map[string]string{
		ParamPackages:    strings.Join(pkgs, ","),
		ParamReleaseDate: w.Release.ReleaseDate,
		ParamBranch:      w.Release.Branch,
	})
	if err != nil {
		return "", err
	}
	out := template[:loc[2]] + block + template[loc[3]:]

	nodeLoc := assignedNodeRe.FindStringIndex(out)
	if nodeLoc == nil {
		return "", errors.Annotate(ErrTemplate, "worker template has no <assignedNode>").Err()
	}
	return out[:nodeLoc[0]] + "<assignedNode>" + escapeText(node) + "</assignedNode>" + out[nodeLoc[1]:], nil
}

// setDefaults rewrites <defaultValue> of the named parameter definitions.
//
// A definition spans from its <name> to the next <name> in the block.
func setDefaults(block string, values map[string]string) (string, error) {
	names := paramNameRe.FindAllStringSubmatchIndex(block, -1)
	done := stringset.New(len(values))

	var b strings.Builder
	prev := 0
	for i, loc := range names {
		end := len(block)
		if i+1 < len(names) {
			end = names[i+1][0]
		}
		name := block[loc[2]:loc[3]]
		value, ok := values[name]
		if !ok {
			continue
		}
		def := block[loc[0]:end]
		dv := defaultValueRe.FindStringIndex(def)
		if dv == nil {
			return "", errors.Annotate(ErrTemplate, "parameter %q has no <defaultValue>", name).Err()
		}
		b.WriteString(block[prev:loc[0]])
		b.WriteString(def[:dv[0]])
		b.WriteString("<defaultValue>" + escapeText(value) + "</defaultValue>")
		b.WriteString(def[dv[1]:])
		prev = end
		done.Add(name)
	}
	b.WriteString(block[prev:])

	for name := range values {
		if !done.Has(name) {
			return "", errors.Annotate(ErrTemplate, "worker template has no parameter %q", name).Err()
		}
	}
	return b.String(), nil
}

func escapeText(s string) string {
	var buf bytes.Buffer
	xml.EscapeText(&buf, []byte(s))
	return buf.String()
}
