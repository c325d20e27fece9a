package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/pagekeeper/internal/domain"
	"github.com/hamed0406/pagekeeper/internal/repo/memory"
)

// ---- test helpers ----

type fakeTrigger struct {
	mu sync.Mutex
	n  int
}

func (f *fakeTrigger) Trigger() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.n++
	return f.n == 1
}

func setupServer(t *testing.T, state *memory.Store, trig Triggerer, rpm int) *httptest.Server {
	t.Helper()
	targets := []domain.Target{"https://a.example.com", "https://b.example.com"}
	srv := NewServer(zap.NewNop(), state, trig, targets, 10*time.Minute)
	ts := httptest.NewServer(srv.Router([]string{"*"}, rpm, 1))
	t.Cleanup(ts.Close)
	return ts
}

func getJSON(t *testing.T, url string) map[string]any {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET %s: status %d", url, resp.StatusCode)
	}
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return body
}

// ---- tests ----

func TestStatus_BeforeFirstRun(t *testing.T) {
	ts := setupServer(t, memory.New(), &fakeTrigger{}, 0)

	body := getJSON(t, ts.URL+"/")
	if body["status"] != "alive" || body["lastStatus"] != "Not started yet" {
		t.Fatalf("unexpected body: %v", body)
	}
	if body["lastRun"] != nil {
		t.Fatalf("lastRun should be null, got %v", body["lastRun"])
	}
	if body["nextRun"] != "Soon" {
		t.Fatalf("nextRun should be Soon, got %v", body["nextRun"])
	}
	targets, _ := body["targets"].([]any)
	apps, _ := body["apps"].([]any)
	if len(targets) != 2 || len(apps) != 2 {
		t.Fatalf("targets/apps should list the configured URLs: %v", body)
	}
	if res, ok := body["results"].([]any); !ok || len(res) != 0 {
		t.Fatalf("results should be an empty list, got %v", body["results"])
	}
}

func TestStatus_AfterCycle(t *testing.T) {
	state := memory.New()
	at := time.Date(2025, 8, 18, 12, 0, 0, 0, time.UTC)
	ok := domain.NewOutcome(200, 42*time.Millisecond, at)
	bad := domain.FailedOutcome("request timed out", at)
	state.Put(domain.CycleSummary{
		CycleID:    "c1",
		LastRun:    &at,
		LastStatus: "HTTP: 1/2, Browser: 2/2 successful",
		Results: []domain.CycleResult{
			{URL: "https://a.example.com", HTTP: &ok, Browser: &ok},
			{URL: "https://b.example.com", HTTP: &bad, Browser: &ok},
		},
	})
	ts := setupServer(t, state, &fakeTrigger{}, 0)

	body := getJSON(t, ts.URL+"/")
	if body["nextRun"] != "2025-08-18T12:10:00Z" {
		t.Fatalf("nextRun should be lastRun + interval, got %v", body["nextRun"])
	}
	if body["lastRun"] != "2025-08-18T12:00:00Z" {
		t.Fatalf("lastRun wrong: %v", body["lastRun"])
	}
	results := body["results"].([]any)
	if len(results) != 2 {
		t.Fatalf("want 2 results, got %d", len(results))
	}
	second := results[1].(map[string]any)
	h := second["http"].(map[string]any)
	if h["success"] != false || h["statusCode"] != nil || h["error"] != "request timed out" {
		t.Fatalf("failed outcome rendered wrong: %v", h)
	}
	first := results[0].(map[string]any)["browser"].(map[string]any)
	if first["statusCode"] != float64(200) || first["duration"] != float64(42) {
		t.Fatalf("successful outcome rendered wrong: %v", first)
	}
}

func TestTrigger_AcceptsAndQueues(t *testing.T) {
	trig := &fakeTrigger{}
	ts := setupServer(t, memory.New(), trig, 0)

	for i := 0; i < 2; i++ {
		resp, err := http.Get(ts.URL + "/ping-now")
		if err != nil {
			t.Fatalf("GET /ping-now: %v", err)
		}
		b, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		if resp.StatusCode != http.StatusAccepted || string(b) != "Triggering ping cycle..." {
			t.Fatalf("want 202 ack, got %d %q", resp.StatusCode, b)
		}
	}
	trig.mu.Lock()
	defer trig.mu.Unlock()
	if trig.n != 2 {
		t.Fatalf("trigger should be called per request, got %d", trig.n)
	}
}

func TestTrigger_RateLimited(t *testing.T) {
	ts := setupServer(t, memory.New(), &fakeTrigger{}, 1)

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		resp, err := http.Post(ts.URL+"/ping-now", "text/plain", nil)
		if err != nil {
			t.Fatalf("POST /ping-now: %v", err)
		}
		resp.Body.Close()
		codes = append(codes, resp.StatusCode)
	}
	if codes[0] != http.StatusAccepted || codes[1] != http.StatusTooManyRequests {
		t.Fatalf("want 202 then 429, got %v", codes)
	}

	// status stays reachable while the trigger is limited
	getJSON(t, ts.URL+"/")
}

func TestHealthz(t *testing.T) {
	ts := setupServer(t, memory.New(), &fakeTrigger{}, 0)
	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz status %d", resp.StatusCode)
	}
}
