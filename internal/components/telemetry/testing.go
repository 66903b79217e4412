package telemetry

import (
	"fmt"
	"strings"
	"sync"
)

// Report is a single report captured by TestAPI.
type Report struct {
	Kind   string
	ID     string
	Params []any
}

// TestAPI records every report it receives so that tests can assert on which
// components reported breakage. It is safe for concurrent use.
type TestAPI struct {
	mutex   sync.Mutex
	reports []Report
}

func NewTestAPI() *TestAPI {
	return &TestAPI{}
}

func (t *TestAPI) record(kind, id string, params []any) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.reports = append(t.reports, Report{Kind: kind, ID: id, Params: params})
}

func (t *TestAPI) ReportBroken(id string, params ...any) {
	t.record("broken", id, params)
}

func (t *TestAPI) ReportWarning(id string, params ...any) {
	t.record("warning", id, params)
}

func (t *TestAPI) ReportDebug(msg string, params ...any) {
	t.record("debug", msg, params)
}

func (t *TestAPI) ReportCount(id string, count int64) {
	t.record("count", id, []any{count})
}

// Reports returns a copy of all the reports with the given kind,
// an empty kind returns everything.
func (t *TestAPI) Reports(kind string) []Report {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	var out []Report
	for _, r := range t.reports {
		if kind == "" || r.Kind == kind {
			out = append(out, r)
		}
	}
	return out
}

// Has returns true if a report of the given kind has an id containing idPart.
func (t *TestAPI) Has(kind, idPart string) bool {
	for _, r := range t.Reports(kind) {
		if strings.Contains(r.ID, idPart) {
			return true
		}
	}
	return false
}

func (t *TestAPI) String() string {
	var sb strings.Builder
	for _, r := range t.Reports("") {
		sb.WriteString(fmt.Sprintf("[%s] %s %v\n", r.Kind, r.ID, r.Params))
	}
	return sb.String()
}
