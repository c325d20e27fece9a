package probe

import (
	"context"

	"github.com/hamed0406/pagekeeper/internal/domain"
)

// Checker performs one bounded attempt against a target URL. Failures are
// reported in the outcome, never as a panic or error return.
type Checker interface {
	Check(ctx context.Context, target string) domain.ProbeOutcome
}
