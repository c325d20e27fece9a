package cycle

import (
	"fmt"
	"strings"
	"time"

	"github.com/hamed0406/pagekeeper/internal/domain"
	"github.com/hamed0406/pagekeeper/internal/notify"
)

const (
	warningTitle  = "⚠️ Page Keeper Alert"
	criticalTitle = "🚨 Critical Ping Cycle Failure"
)

// statusLine renders per-phase success counts, e.g.
// "HTTP: 1/2, Browser: 2/2 successful".
func statusLine(results []domain.CycleResult, httpOn, browserOn bool) string {
	var httpOK, browserOK int
	for _, r := range results {
		if r.HTTP != nil && r.HTTP.Success {
			httpOK++
		}
		if r.Browser != nil && r.Browser.Success {
			browserOK++
		}
	}
	n := len(results)
	var parts []string
	if httpOn {
		parts = append(parts, fmt.Sprintf("HTTP: %d/%d", httpOK, n))
	}
	if browserOn {
		parts = append(parts, fmt.Sprintf("Browser: %d/%d", browserOK, n))
	}
	return strings.Join(parts, ", ") + " successful"
}

// failureAlert builds the warning report, one field per failing target.
// ok is false when nothing failed.
func failureAlert(sum domain.CycleSummary) (notify.Alert, bool) {
	var fields []notify.Field
	for _, r := range sum.Results {
		if r.Failed() {
			fields = append(fields, notify.Field{Name: string(r.URL), Value: fieldValue(r)})
		}
	}
	if len(fields) == 0 {
		return notify.Alert{}, false
	}
	return notify.Alert{
		Title:       warningTitle,
		Description: fmt.Sprintf("**%d app(s) had failures**\n\nStatus: %s", len(fields), sum.LastStatus),
		Fields:      fields,
		Severity:    domain.SeverityWarning,
		Timestamp:   time.Now(),
	}, true
}

func criticalAlert(reason string) notify.Alert {
	return notify.Alert{
		Title:       criticalTitle,
		Description: "**The entire ping cycle failed**\n\nError: " + reason,
		Severity:    domain.SeverityCritical,
		Timestamp:   time.Now(),
	}
}

func fieldValue(r domain.CycleResult) string {
	var lines, errs []string
	if r.HTTP != nil {
		lines = append(lines, "HTTP: "+mark(*r.HTTP))
		if !r.HTTP.Success && r.HTTP.Error != "" {
			errs = append(errs, r.HTTP.Error)
		}
	}
	if r.Browser != nil {
		lines = append(lines, "Browser: "+mark(*r.Browser))
		if !r.Browser.Success && r.Browser.Error != "" {
			errs = append(errs, r.Browser.Error)
		}
	}
	if len(errs) > 0 {
		lines = append(lines, "Error: "+strings.Join(errs, "; "))
	}
	return strings.Join(lines, "\n")
}

func mark(o domain.ProbeOutcome) string {
	if o.Success {
		return "✅ (" + o.StatusText() + ")"
	}
	return "❌ (" + o.StatusText() + ")"
}
