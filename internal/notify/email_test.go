package notify

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/hamed0406/pagekeeper/internal/config"
)

func TestRenderHTML_ListsFailingTargets(t *testing.T) {
	body := renderHTML(Alert{
		Title:       "⚠️ Page Keeper Alert",
		Description: "**2 app(s) had failures**\n\nStatus: HTTP: 0/2",
		Fields: []Field{
			{Name: "https://a.example.com", Value: "HTTP: ❌ (N/A)\nHTTP error: connection refused"},
			{Name: "https://b.example.com/<x>", Value: "Browser: ❌ (500)"},
		},
		Timestamp: time.Date(2025, 8, 18, 12, 0, 0, 0, time.UTC),
	})

	for _, want := range []string{
		"<h2>⚠️ Page Keeper Alert</h2>",
		"2 app(s) had failures<br><br>Status",
		"<li><b>https://a.example.com</b>",
		"connection refused",
		"https://b.example.com/&lt;x&gt;",
		"2025-08-18T12:00:00Z",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("body missing %q:\n%s", want, body)
		}
	}
	if strings.Contains(body, "**") {
		t.Fatalf("markdown emphasis should be stripped:\n%s", body)
	}
}

func TestEmail_UnreachableServerReturnsError(t *testing.T) {
	e := NewEmail(config.SMTPConfig{
		Host: "127.0.0.1",
		Port: 1,
		From: "keeper@example.com",
		To:   []string{"ops@example.com"},
	}, 500*time.Millisecond)

	if err := e.Send(context.Background(), Alert{Title: "t"}); err == nil {
		t.Fatal("expected dial error")
	}
}

func TestEmail_BadSender(t *testing.T) {
	e := NewEmail(config.SMTPConfig{Host: "127.0.0.1", Port: 1, From: "not an address", To: []string{"ops@example.com"}}, time.Second)
	if err := e.Send(context.Background(), Alert{Title: "t"}); err == nil || !strings.Contains(err.Error(), "from") {
		t.Fatalf("expected from error, got %v", err)
	}
}
