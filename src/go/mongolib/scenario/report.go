package scenario

import (
	"encoding/json"
	"io"
	"text/template"

	"github.com/pkg/errors"

	"github.com/percona/mongodb-profile-check/src/go/mongolib/indexes"
	"github.com/percona/mongodb-profile-check/src/go/mongolib/stats"
)

// Report is the outcome of a run.
type Report struct {
	Server   string             `json:"server"`
	Database string             `json:"database"`
	Results  []Result           `json:"results"`
	Stats    []stats.QueryStats `json:"stats,omitempty"`
	Indexes  []indexes.Usage    `json:"indexes,omitempty"`
	// Failure is the error that stopped the run, if any.
	Failure string `json:"failure,omitempty"`
}

// Passed reports whether no scenario failed.
func (r *Report) Passed() bool {
	for _, res := range r.Results {
		if res.Status == StatusFail {
			return false
		}
	}
	return true
}

// Count returns the number of results with status.
func (r *Report) Count(status string) int {
	n := 0
	for _, res := range r.Results {
		if res.Status == status {
			n++
		}
	}
	return n
}

const textTemplate = `# Profiler check on {{.Database}} (server {{.Server}})
{{range .Results}}
{{printf "%-5s" (upper .Status)}} {{.Scenario}}{{if .Description}} - {{.Description}}{{end}}
{{- if eq .Status "pass"}} ({{.Checks}} checks, {{.Duration}}){{end}}
{{- if eq .Status "skip"}}
      {{.Reason}}{{end}}
{{- if eq .Status "fail"}}
      step: {{.Step}}
      {{.Reason}}
{{- if .Explain}}
      explain: {{.Explain}}{{end}}
{{- end}}
{{- end}}
{{if .Stats}}
# Profile entries
{{range .Stats}}{{.Fingerprint}}
      count: {{.Count}}  docsExamined: {{.DocsExamined.Total}}  keysExamined: {{.KeysExamined.Total}}  millis: {{printf "%.0f" .QueryTime.Total}}  bytes: {{printf "%.0f" .ResponseLength.Total}}{{if .MultiPlanner}}  fromMultiPlanner: {{.MultiPlanner}}{{end}}
{{end}}{{end}}
{{- if .Indexes}}
# Index usage
{{range .Indexes}}{{.Collection}}.{{.Name}} ({{.Key}}) ops: {{.Ops}}
{{end}}{{end}}
{{.Count "pass"}} passed, {{.Count "fail"}} failed, {{.Count "skip"}} skipped
`

var reportTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"upper": func(s string) string {
		switch s {
		case StatusPass:
			return "PASS"
		case StatusFail:
			return "FAIL"
		case StatusSkip:
			return "SKIP"
		}
		return s
	},
}).Parse(textTemplate))

// WriteText writes a human readable report to w.
func (r *Report) WriteText(w io.Writer) error {
	return errors.Wrap(reportTemplate.Execute(w, r), "cannot render report")
}

// WriteJSON writes the report as indented JSON to w.
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	return errors.Wrap(enc.Encode(r), "cannot encode report")
}
