package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestSlack_OK(t *testing.T) {
	var got string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]string
		_ = json.NewDecoder(r.Body).Decode(&payload)
		got = payload["text"]
		w.WriteHeader(200)
	}))
	defer ts.Close()

	s := NewSlack(ts.URL, time.Second)
	if s == nil {
		t.Fatal("expected slack client")
	}
	err := s.Send(context.Background(), Alert{
		Title:       "Title",
		Description: "Hello",
		Fields:      []Field{{Name: "https://down.example.com", Value: "HTTP: ❌ (N/A)"}},
	})
	if err != nil {
		t.Fatalf("send err: %v", err)
	}
	if !strings.HasPrefix(got, "*Title*") || !strings.Contains(got, "https://down.example.com") {
		t.Fatalf("payload not as expected: %q", got)
	}
}

func TestSlack_Non2xx(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(500)
	}))
	defer ts.Close()

	s := NewSlack(ts.URL, time.Second)
	if err := s.Send(context.Background(), Alert{Title: "X", Description: "Y"}); err == nil {
		t.Fatalf("expected error on non-2xx")
	}
}

func TestSlack_EmptyWebhookIsNil(t *testing.T) {
	if NewSlack("", time.Second) != nil {
		t.Fatal("empty webhook should disable slack")
	}
}
