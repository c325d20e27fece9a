package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

type Slack struct {
	Webhook string
	Client  *http.Client
}

func NewSlack(webhook string, timeout time.Duration) *Slack {
	if webhook == "" {
		return nil
	}
	return &Slack{
		Webhook: webhook,
		Client:  &http.Client{Timeout: timeout},
	}
}

type slackPayload struct {
	Text string `json:"text"`
}

func (s *Slack) Send(ctx context.Context, a Alert) error {
	if s == nil || s.Webhook == "" {
		return nil
	}
	var b strings.Builder
	b.WriteString("*" + a.Title + "*\n")
	b.WriteString(a.Description)
	for _, f := range a.Fields {
		fmt.Fprintf(&b, "\n• *%s*\n%s", f.Name, f.Value)
	}
	body, err := json.Marshal(slackPayload{Text: b.String()})
	if err != nil {
		return fmt.Errorf("slack: encode: %w", err)
	}
	return postJSON(ctx, s.Client, s.Webhook, body, "slack")
}

func postJSON(ctx context.Context, c *http.Client, url string, body []byte, name string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%s: build request: %w", name, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("%s: non-2xx status %d", name, resp.StatusCode)
	}
	return nil
}
