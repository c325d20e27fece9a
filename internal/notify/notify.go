package notify

import (
	"context"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/hamed0406/pagekeeper/internal/config"
	"github.com/hamed0406/pagekeeper/internal/domain"
)

// Field is one name/value line of an alert, e.g. one failing target.
type Field struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type Alert struct {
	Title       string
	Description string
	Fields      []Field
	Severity    domain.Severity
	Timestamp   time.Time
}

// Notifier delivers an alert to an operator channel. Implementations bound
// the call with their own transport timeout.
type Notifier interface {
	Send(ctx context.Context, a Alert) error
}

// Nop is the notifier used when no channel is configured.
type Nop struct{}

func (Nop) Send(context.Context, Alert) error { return nil }

// Multi fans out to every channel and reports all failures together.
type Multi []Notifier

func (m Multi) Send(ctx context.Context, a Alert) error {
	var err error
	for _, n := range m {
		if n == nil {
			continue
		}
		err = multierr.Append(err, n.Send(ctx, a))
	}
	return err
}

// FromConfig selects the configured channels once at startup.
func FromConfig(cfg config.Config, log *zap.Logger) Notifier {
	var out Multi
	if cfg.DiscordWebhook != "" {
		out = append(out, NewDiscord(cfg.DiscordWebhook, cfg.NotifyTimeout))
		log.Info("notify_enabled", zap.String("channel", "discord"))
	}
	if cfg.SlackWebhook != "" {
		out = append(out, NewSlack(cfg.SlackWebhook, cfg.NotifyTimeout))
		log.Info("notify_enabled", zap.String("channel", "slack"))
	}
	if cfg.SMTP.Enabled() {
		out = append(out, NewEmail(cfg.SMTP, cfg.NotifyTimeout))
		log.Info("notify_enabled", zap.String("channel", "email"), zap.Strings("to", cfg.SMTP.To))
	}

	switch len(out) {
	case 0:
		log.Info("notify_disabled", zap.String("reason", "no webhook or smtp settings"))
		return Nop{}
	case 1:
		return out[0]
	default:
		return out
	}
}
