package notify

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/wneessen/go-mail"

	"github.com/hamed0406/pagekeeper/internal/config"
)

type Email struct {
	cfg     config.SMTPConfig
	timeout time.Duration
}

func NewEmail(cfg config.SMTPConfig, timeout time.Duration) *Email {
	return &Email{cfg: cfg, timeout: timeout}
}

func (e *Email) Send(ctx context.Context, a Alert) error {
	msg := mail.NewMsg()
	if err := msg.From(e.cfg.From); err != nil {
		return fmt.Errorf("email: from: %w", err)
	}
	if err := msg.To(e.cfg.To...); err != nil {
		return fmt.Errorf("email: to: %w", err)
	}
	msg.Subject(a.Title)
	msg.SetDate()
	msg.SetBodyString(mail.TypeTextHTML, renderHTML(a))

	opts := []mail.Option{
		mail.WithPort(e.cfg.Port),
		mail.WithTimeout(e.timeout),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if e.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(e.cfg.Username),
			mail.WithPassword(e.cfg.Password),
		)
	}
	client, err := mail.NewClient(e.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("email: client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("email: send: %w", err)
	}
	return nil
}

func renderHTML(a Alert) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<h2>%s</h2>\n", html.EscapeString(a.Title))
	desc := html.EscapeString(strings.ReplaceAll(a.Description, "**", ""))
	fmt.Fprintf(&b, "<p>%s</p>\n", strings.ReplaceAll(desc, "\n", "<br>"))
	if len(a.Fields) > 0 {
		b.WriteString("<ul>\n")
		for _, f := range a.Fields {
			value := strings.ReplaceAll(html.EscapeString(f.Value), "\n", "<br>")
			fmt.Fprintf(&b, "<li><b>%s</b><br>%s</li>\n", html.EscapeString(f.Name), value)
		}
		b.WriteString("</ul>\n")
	}
	if !a.Timestamp.IsZero() {
		fmt.Fprintf(&b, "<p><small>%s</small></p>\n", a.Timestamp.UTC().Format(time.RFC3339))
	}
	return b.String()
}
