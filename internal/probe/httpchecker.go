package probe

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/hamed0406/pagekeeper/internal/domain"
)

// HTTPChecker is the lightweight request probe: one GET, no retries.
type HTTPChecker struct {
	Client    *http.Client
	UserAgent string
}

func NewHTTPChecker(timeout time.Duration, userAgent string) *HTTPChecker {
	return &HTTPChecker{
		Client:    &http.Client{Timeout: timeout},
		UserAgent: userAgent,
	}
}

func (h *HTTPChecker) Check(ctx context.Context, target string) domain.ProbeOutcome {
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return domain.FailedOutcome(err.Error(), time.Now())
	}
	if h.UserAgent != "" {
		req.Header.Set("User-Agent", h.UserAgent)
	}

	resp, err := h.Client.Do(req)
	if err != nil {
		return domain.FailedOutcome(transportReason(err), time.Now())
	}
	end := time.Now()
	defer resp.Body.Close()
	// drain a little so keep-alive connections can be reused
	_, _ = io.CopyN(io.Discard, resp.Body, 64<<10)

	return domain.NewOutcome(resp.StatusCode, end.Sub(start), end)
}

func transportReason(err error) string {
	var ue *url.Error
	if errors.As(err, &ue) {
		if ue.Timeout() {
			return "request timed out"
		}
		return ue.Err.Error()
	}
	return err.Error()
}
