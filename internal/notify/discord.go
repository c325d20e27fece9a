package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/hamed0406/pagekeeper/internal/domain"
)

const (
	colorRed   = 15548997
	colorGreen = 5763719
)

type Discord struct {
	Webhook string
	Client  *http.Client
}

func NewDiscord(webhook string, timeout time.Duration) *Discord {
	if webhook == "" {
		return nil
	}
	return &Discord{
		Webhook: webhook,
		Client:  &http.Client{Timeout: timeout},
	}
}

type discordEmbed struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Color       int     `json:"color"`
	Fields      []Field `json:"fields"`
	Timestamp   string  `json:"timestamp"`
}

type discordPayload struct {
	Embeds []discordEmbed `json:"embeds"`
}

func (d *Discord) Send(ctx context.Context, a Alert) error {
	if d == nil || d.Webhook == "" {
		return nil
	}
	ts := a.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	fields := a.Fields
	if fields == nil {
		fields = []Field{}
	}
	body, err := json.Marshal(discordPayload{Embeds: []discordEmbed{{
		Title:       a.Title,
		Description: a.Description,
		Color:       severityColor(a.Severity),
		Fields:      fields,
		Timestamp:   ts.UTC().Format(time.RFC3339Nano),
	}}})
	if err != nil {
		return fmt.Errorf("discord: encode: %w", err)
	}
	return postJSON(ctx, d.Client, d.Webhook, body, "discord")
}

func severityColor(s domain.Severity) int {
	if s == domain.SeverityInfo {
		return colorGreen
	}
	return colorRed
}
