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

package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gitee.com/openeuler/release-assistant/orchestrator"
)

// printTable prints records as a markdown table, ready to be pasted into a
// release issue.
func printTable(w io.Writer, records []orchestrator.BuildRecord) error {
	var b strings.Builder
	b.WriteString("| name | status | output |\n")
	b.WriteString("| --- | --- | --- |\n")
	for _, r := range records {
		fmt.Fprintf(&b, "| %s | %s | %s |\n", cell(r.Name), r.Status, cell(r.Output))
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func cell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
