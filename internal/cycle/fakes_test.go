package cycle

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/hamed0406/pagekeeper/internal/browser"
	"github.com/hamed0406/pagekeeper/internal/domain"
	"github.com/hamed0406/pagekeeper/internal/notify"
)

// --- request probe ---

type fakeChecker struct {
	codes map[string]int           // url -> status; missing means connection error
	delay map[string]time.Duration // optional per-url latency
}

func (f *fakeChecker) Check(ctx context.Context, target string) domain.ProbeOutcome {
	start := time.Now()
	if d := f.delay[target]; d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return domain.FailedOutcome("request timed out", time.Now())
		}
	}
	code, ok := f.codes[target]
	if !ok {
		return domain.FailedOutcome("connect: connection refused", time.Now())
	}
	return domain.NewOutcome(code, time.Since(start), time.Now())
}

// blockingChecker parks every call until release is closed.
type blockingChecker struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (b *blockingChecker) Check(ctx context.Context, target string) domain.ProbeOutcome {
	b.once.Do(func() { close(b.entered) })
	<-b.release
	return domain.NewOutcome(200, time.Millisecond, time.Now())
}

// panickingChecker panics for the listed urls and succeeds otherwise.
type panickingChecker map[string]bool

func (p panickingChecker) Check(_ context.Context, target string) domain.ProbeOutcome {
	if p[target] {
		panic("checker blew up")
	}
	return domain.NewOutcome(200, time.Millisecond, time.Now())
}

// --- browser ---

type fakeLauncher struct {
	err      error
	sess     *fakeSession
	launches int
}

func (l *fakeLauncher) Launch(context.Context) (browser.Session, error) {
	l.launches++
	if l.err != nil {
		return nil, l.err
	}
	return l.sess, nil
}

type fakeSession struct {
	mu       sync.Mutex
	codes    map[string]int
	navErr   map[string]error
	navDelay time.Duration
	navPanic map[string]bool

	opens      []time.Time
	tabsClosed int
	closed     int
	inFlight   int
	maxFlight  int
}

func newSession() *fakeSession {
	return &fakeSession{codes: map[string]int{}, navErr: map[string]error{}, navPanic: map[string]bool{}}
}

func (s *fakeSession) NewTab(context.Context) (browser.Tab, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opens = append(s.opens, time.Now())
	return &fakeTab{s: s}, nil
}

func (s *fakeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
	return errors.New("close is noisy")
}

type fakeTab struct{ s *fakeSession }

func (t *fakeTab) Navigate(ctx context.Context, url string) (int, error) {
	s := t.s
	s.mu.Lock()
	s.inFlight++
	if s.inFlight > s.maxFlight {
		s.maxFlight = s.inFlight
	}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.inFlight--
		s.mu.Unlock()
	}()

	if s.navDelay > 0 {
		select {
		case <-time.After(s.navDelay):
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.navPanic[url] {
		panic("nav blew up")
	}
	if err := s.navErr[url]; err != nil {
		return 0, err
	}
	if code, ok := s.codes[url]; ok {
		return code, nil
	}
	return 200, nil
}

func (t *fakeTab) Close() error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	t.s.tabsClosed++
	return nil
}

// --- notifier ---

type recordingNotifier struct {
	mu     sync.Mutex
	alerts []notify.Alert
	err    error
}

func (r *recordingNotifier) Send(_ context.Context, a notify.Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, a)
	return r.err
}

func (r *recordingNotifier) sent() []notify.Alert {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notify.Alert(nil), r.alerts...)
}
