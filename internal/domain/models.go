package domain

import (
	"strconv"
	"time"
)

// Target is one monitored URL. The target list is fixed at startup.
type Target string

// Severity selects how loudly a notification is rendered.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// ProbeOutcome is the result of one probe attempt against one target.
//
// StatusCode and DurationMS are nil when the attempt never got a response
// (timeout, DNS or connection error).
type ProbeOutcome struct {
	Success    bool      `json:"success"`
	StatusCode *int      `json:"statusCode"`
	DurationMS *int64    `json:"duration"`
	Timestamp  time.Time `json:"timestamp"`
	Error      string    `json:"error,omitempty"`
}

// IsSuccessStatus reports whether code is a 2xx status.
func IsSuccessStatus(code int) bool {
	return code >= 200 && code < 300
}

// NewOutcome builds an outcome for an attempt that got a response.
func NewOutcome(code int, d time.Duration, at time.Time) ProbeOutcome {
	c := code
	ms := d.Milliseconds()
	out := ProbeOutcome{
		Success:    IsSuccessStatus(code),
		StatusCode: &c,
		DurationMS: &ms,
		Timestamp:  at.UTC(),
	}
	if !out.Success {
		out.Error = "HTTP " + strconv.Itoa(code)
	}
	return out
}

// FailedOutcome builds an outcome for an attempt that never got a response.
func FailedOutcome(reason string, at time.Time) ProbeOutcome {
	return ProbeOutcome{Success: false, Timestamp: at.UTC(), Error: reason}
}

// StatusText renders the status code or "N/A".
func (o ProbeOutcome) StatusText() string {
	if o.StatusCode == nil {
		return "N/A"
	}
	return strconv.Itoa(*o.StatusCode)
}

// CycleResult combines every phase outcome for one target in one cycle.
// A phase that is disabled leaves its pointer nil.
type CycleResult struct {
	URL     Target        `json:"url"`
	HTTP    *ProbeOutcome `json:"http,omitempty"`
	Browser *ProbeOutcome `json:"browser,omitempty"`
}

// Failed reports whether any enabled phase failed.
func (r CycleResult) Failed() bool {
	return (r.HTTP != nil && !r.HTTP.Success) || (r.Browser != nil && !r.Browser.Success)
}

// CycleSummary is the process-wide view of the last cycle.
type CycleSummary struct {
	CycleID    string        `json:"cycleId,omitempty"`
	LastRun    *time.Time    `json:"lastRun"`
	LastStatus string        `json:"lastStatus"`
	Results    []CycleResult `json:"results"`
}

// NotStarted is the summary before the first cycle.
func NotStarted() CycleSummary {
	return CycleSummary{LastStatus: "Not started yet", Results: []CycleResult{}}
}

// Started returns a copy of s with the start of a new cycle recorded.
// Results and status of the previous cycle are kept until the new one commits.
func (s CycleSummary) Started(id string, at time.Time) CycleSummary {
	t := at.UTC()
	out := s
	out.CycleID = id
	out.LastRun = &t
	return out
}
