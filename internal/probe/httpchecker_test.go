package probe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hamed0406/pagekeeper/internal/domain"
)

func TestHTTPChecker_StatusOK(t *testing.T) {
	var gotUA string
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		if r.Method != http.MethodGet {
			t.Errorf("want GET, got %s", r.Method)
		}
		w.WriteHeader(200)
		w.Write([]byte("ok"))
	}))
	defer s.Close()

	chk := NewHTTPChecker(2*time.Second, "keeper-test/1.0")
	out := chk.Check(context.Background(), s.URL)
	if !out.Success {
		t.Fatalf("want success, got %+v", out)
	}
	if out.StatusCode == nil || *out.StatusCode != 200 {
		t.Fatalf("want status 200, got %v", out.StatusCode)
	}
	if out.DurationMS == nil || *out.DurationMS < 0 {
		t.Fatalf("duration should be set, got %v", out.DurationMS)
	}
	if out.Error != "" {
		t.Fatalf("successful outcome should carry no error, got %q", out.Error)
	}
	if gotUA != "keeper-test/1.0" {
		t.Fatalf("user agent not sent, got %q", gotUA)
	}
}

func TestHTTPChecker_RedirectStatusIsFailure(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotModified)
	}))
	defer s.Close()

	out := NewHTTPChecker(2*time.Second, "").Check(context.Background(), s.URL)
	if out.Success {
		t.Fatalf("304 is outside [200,300), got %+v", out)
	}
	if out.Error != "HTTP 304" {
		t.Fatalf("want HTTP 304 error, got %q", out.Error)
	}
}

func TestHTTPChecker_Status500(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", 500)
	}))
	defer s.Close()

	out := NewHTTPChecker(2*time.Second, "").Check(context.Background(), s.URL)
	if out.Success {
		t.Fatalf("want failure, got %+v", out)
	}
	if out.StatusCode == nil || *out.StatusCode != 500 {
		t.Fatalf("want status 500, got %v", out.StatusCode)
	}
}

func TestHTTPChecker_TimeoutHasNoStatus(t *testing.T) {
	// Server sleeps longer than client timeout
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(200)
	}))
	defer s.Close()

	out := NewHTTPChecker(50*time.Millisecond, "").Check(context.Background(), s.URL)
	if out.Success {
		t.Fatalf("want failure due to timeout, got %+v", out)
	}
	if out.StatusCode != nil || out.DurationMS != nil {
		t.Fatalf("want no status/duration on transport error, got %+v", out)
	}
	if !strings.Contains(out.Error, "timed out") {
		t.Fatalf("want timeout message, got %q", out.Error)
	}
}

type stubChecker struct {
	out domain.ProbeOutcome
}

func (s stubChecker) Check(context.Context, string) domain.ProbeOutcome { return s.out }

func TestDNSDiagnosis_LeavesResponsesAlone(t *testing.T) {
	resp := domain.NewOutcome(503, time.Millisecond, time.Now())
	d := NewDNSDiagnosis(stubChecker{out: resp})

	out := d.Check(context.Background(), "https://example.invalid")
	if out.Error != "HTTP 503" {
		t.Fatalf("outcomes with a status must not be annotated, got %q", out.Error)
	}
}

func TestDNSDiagnosis_AnnotatesInvalidHost(t *testing.T) {
	d := NewDNSDiagnosis(stubChecker{out: domain.FailedOutcome("dial failed", time.Now())})

	out := d.Check(context.Background(), "")
	if out.Error != "dial failed (dns=INVALID_NAME)" {
		t.Fatalf("unexpected annotation: %q", out.Error)
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		in   DNSStatus
		want string
	}{
		{DNSStatus{HasAOrAAAA: true}, ClassResolves},
		{DNSStatus{Nameservers: []string{"ns1"}, Class: ClassNXDomain}, ClassNoARecord},
		{DNSStatus{Class: ClassNXDomain, ResolverError: "no such host"}, ClassNXDomain},
		{DNSStatus{ResolverError: "i/o timeout"}, ClassServFail},
		{DNSStatus{}, ClassNXDomain},
	}
	for _, c := range cases {
		if got := classify(c.in); got != c.want {
			t.Fatalf("classify(%+v)=%s want %s", c.in, got, c.want)
		}
	}
}
