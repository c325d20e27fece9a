// Package cycle runs one keep-alive pass over the configured targets: a
// concurrent request phase, a throttled browser phase, then aggregation,
// publication of the summary and the notification decision.
package cycle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/hamed0406/pagekeeper/internal/browser"
	"github.com/hamed0406/pagekeeper/internal/domain"
	"github.com/hamed0406/pagekeeper/internal/notify"
	"github.com/hamed0406/pagekeeper/internal/probe"
	"github.com/hamed0406/pagekeeper/internal/repo"
	"github.com/hamed0406/pagekeeper/internal/repo/memory"
)

// ErrCycleInProgress is returned by Run when another cycle holds the runner.
var ErrCycleInProgress = errors.New("cycle: another cycle is in progress")

// Settings holds the timing and throttling knobs of a cycle.
type Settings struct {
	HTTPTimeout    time.Duration
	PhaseDelay     time.Duration
	PageTimeout    time.Duration
	TabStagger     time.Duration
	TabConcurrency int
	SettleDuration time.Duration
}

// Runner runs cycles one at a time and publishes each summary to State.
type Runner struct {
	Logger   *zap.Logger
	Checker  probe.Checker    // nil disables the request phase
	Browser  browser.Launcher // nil disables the browser phase
	Notifier notify.Notifier
	State    *memory.Store
	Mirror   repo.SnapshotStore // optional durable copy of the last summary
	Settings Settings

	mu sync.Mutex
}

// NewRunner fills defaults: a tab limit of at least one and Nop for a nil notifier.
func NewRunner(
	logger *zap.Logger,
	checker probe.Checker,
	launcher browser.Launcher,
	notifier notify.Notifier,
	state *memory.Store,
	settings Settings,
) *Runner {
	if settings.TabConcurrency < 1 {
		settings.TabConcurrency = 1
	}
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &Runner{
		Logger:   logger,
		Checker:  checker,
		Browser:  launcher,
		Notifier: notifier,
		State:    state,
		Settings: settings,
	}
}

// Run executes one cycle over targets and returns the summary it published.
// Per-target failures are part of the summary; the returned error is set only
// when the cycle as a whole failed or was cancelled.
func (r *Runner) Run(ctx context.Context, targets []domain.Target) (sum domain.CycleSummary, err error) {
	if !r.mu.TryLock() {
		return domain.CycleSummary{}, ErrCycleInProgress
	}
	defer r.mu.Unlock()

	id := uuid.NewString()
	start := time.Now()
	log := r.Logger.With(zap.String("cycle_id", id))
	r.State.Put(r.State.Current().Started(id, start))
	log.Info("cycle_started", zap.Int("targets", len(targets)))

	results := make([]domain.CycleResult, len(targets))
	for i, t := range targets {
		results[i].URL = t
	}
	startedAt := start.UTC()
	base := domain.CycleSummary{CycleID: id, LastRun: &startedAt}

	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("cycle panic: %v", p)
			sum = r.fail(ctx, log, base, results, err)
		}
	}()

	if len(targets) == 0 {
		base.LastStatus = statusLine(results, r.Checker != nil, r.Browser != nil)
		base.Results = results
		r.commit(ctx, log, base)
		log.Info("cycle_finished", zap.String("status", base.LastStatus), zap.Int("targets", 0))
		return base, nil
	}

	if r.Checker != nil {
		for i, out := range r.requestPhase(ctx, log, targets) {
			out := out
			results[i].HTTP = &out
		}
		if r.Browser != nil {
			if err := sleep(ctx, r.Settings.PhaseDelay); err != nil {
				return r.cancelled(ctx, log, base, results, err)
			}
		}
	}

	if r.Browser != nil {
		outs, launchErr := r.browserPhase(ctx, log, targets)
		if launchErr != nil {
			at := time.Now()
			for i := range results {
				o := domain.FailedOutcome(launchErr.Error(), at)
				results[i].Browser = &o
			}
			if ctx.Err() != nil {
				return r.cancelled(ctx, log, base, results, launchErr)
			}
			return r.fail(ctx, log, base, results, launchErr), launchErr
		}
		for i, out := range outs {
			out := out
			results[i].Browser = &out
		}
	}

	if ctx.Err() != nil {
		return r.cancelled(ctx, log, base, results, ctx.Err())
	}

	base.LastStatus = statusLine(results, r.Checker != nil, r.Browser != nil)
	base.Results = results
	r.commit(ctx, log, base)
	log.Info("cycle_finished",
		zap.String("status", base.LastStatus),
		zap.Duration("took", time.Since(start)),
	)

	if alert, ok := failureAlert(base); ok {
		r.send(ctx, log, alert)
	}
	return base, nil
}

// requestPhase probes every target concurrently. Each probe has its own
// timeout and never cancels its siblings.
func (r *Runner) requestPhase(ctx context.Context, log *zap.Logger, targets []domain.Target) []domain.ProbeOutcome {
	out := make([]domain.ProbeOutcome, len(targets))
	var g errgroup.Group
	for i, t := range targets {
		i, t := i, t
		g.Go(func() error {
			defer recovered(log, t, &out[i])
			pctx, cancel := withTimeout(ctx, r.Settings.HTTPTimeout)
			defer cancel()
			out[i] = r.Checker.Check(pctx, string(t))
			if !out[i].Success {
				log.Warn("http_probe_failed",
					zap.String("url", string(t)),
					zap.String("status", out[i].StatusText()),
					zap.String("error", out[i].Error),
				)
			}
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// browserPhase opens one tab per target under the concurrency limit, pausing
// TabStagger before every opening after the first. Tabs stay open for
// SettleDuration after the last navigation. The session is always closed.
func (r *Runner) browserPhase(ctx context.Context, log *zap.Logger, targets []domain.Target) ([]domain.ProbeOutcome, error) {
	sess, err := r.Browser.Launch(ctx)
	if err != nil {
		return nil, fmt.Errorf("browser launch: %w", err)
	}
	defer func() {
		if err := sess.Close(); err != nil {
			log.Warn("browser_close_error", zap.Error(err))
		}
	}()

	out := make([]domain.ProbeOutcome, len(targets))
	tabs := make([]browser.Tab, len(targets))
	sem := semaphore.NewWeighted(int64(r.Settings.TabConcurrency))
	var wg sync.WaitGroup

	for i, t := range targets {
		if err := r.waitTurn(ctx, sem, i); err != nil {
			at := time.Now()
			for j := i; j < len(targets); j++ {
				out[j] = domain.FailedOutcome(err.Error(), at)
			}
			break
		}
		i, t := i, t
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)
			out[i], tabs[i] = r.visit(ctx, log, sess, t)
		}()
	}
	wg.Wait()

	if err := sleep(ctx, r.Settings.SettleDuration); err != nil {
		log.Info("browser_settle_cut_short", zap.Error(err))
	}
	for _, tab := range tabs {
		if tab == nil {
			continue
		}
		if err := tab.Close(); err != nil {
			log.Debug("browser_tab_close_error", zap.Error(err))
		}
	}
	return out, nil
}

func (r *Runner) waitTurn(ctx context.Context, sem *semaphore.Weighted, i int) error {
	if err := sem.Acquire(ctx, 1); err != nil {
		return err
	}
	if i == 0 {
		return nil
	}
	if err := sleep(ctx, r.Settings.TabStagger); err != nil {
		sem.Release(1)
		return err
	}
	return nil
}

func (r *Runner) visit(ctx context.Context, log *zap.Logger, sess browser.Session, t domain.Target) (out domain.ProbeOutcome, tab browser.Tab) {
	defer recovered(log, t, &out)

	tab, err := sess.NewTab(ctx)
	if err != nil {
		log.Warn("browser_tab_failed", zap.String("url", string(t)), zap.Error(err))
		return domain.FailedOutcome("open tab: "+err.Error(), time.Now()), nil
	}

	nctx, cancel := withTimeout(ctx, r.Settings.PageTimeout)
	defer cancel()
	start := time.Now()
	code, err := tab.Navigate(nctx, string(t))
	if err != nil {
		reason := err.Error()
		if errors.Is(err, context.DeadlineExceeded) {
			reason = "navigation timed out"
		}
		log.Warn("browser_visit_failed", zap.String("url", string(t)), zap.String("error", reason))
		return domain.FailedOutcome(reason, time.Now()), tab
	}
	end := time.Now()
	log.Info("browser_tab_loaded",
		zap.String("url", string(t)),
		zap.Int("status", code),
		zap.Duration("took", end.Sub(start)),
	)
	return domain.NewOutcome(code, end.Sub(start), end), tab
}

// fail publishes a cycle-level failure and sends the critical alert.
func (r *Runner) fail(ctx context.Context, log *zap.Logger, base domain.CycleSummary, results []domain.CycleResult, err error) domain.CycleSummary {
	base.LastStatus = "Failed: " + err.Error()
	base.Results = results
	r.commit(ctx, log, base)
	log.Error("cycle_failed", zap.Error(err))
	r.send(ctx, log, criticalAlert(err.Error()))
	return base
}

// cancelled publishes what was gathered when ctx ended mid-cycle. Nobody is
// notified; the process is going away.
func (r *Runner) cancelled(ctx context.Context, log *zap.Logger, base domain.CycleSummary, results []domain.CycleResult, err error) (domain.CycleSummary, error) {
	base.LastStatus = "Failed: " + err.Error()
	base.Results = results
	r.commit(ctx, log, base)
	log.Warn("cycle_cancelled", zap.Error(err))
	return base, err
}

func (r *Runner) commit(ctx context.Context, log *zap.Logger, sum domain.CycleSummary) {
	r.State.Put(sum)
	if r.Mirror == nil {
		return
	}
	mctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := r.Mirror.Save(mctx, sum); err != nil {
		log.Warn("snapshot_mirror_failed", zap.Error(err))
	}
}

// send never lets a transport failure reach the caller.
func (r *Runner) send(ctx context.Context, log *zap.Logger, a notify.Alert) {
	if err := r.Notifier.Send(context.WithoutCancel(ctx), a); err != nil {
		log.Warn("notify_failed", zap.String("title", a.Title), zap.Error(err))
		return
	}
	log.Info("notify_sent", zap.String("severity", string(a.Severity)), zap.Int("fields", len(a.Fields)))
}

// recovered turns a panic while probing one target into a failed outcome
// for that target. It must be deferred directly.
func recovered(log *zap.Logger, t domain.Target, out *domain.ProbeOutcome) {
	p := recover()
	if p == nil {
		return
	}
	*out = domain.FailedOutcome(fmt.Sprintf("panic: %v", p), time.Now())
	log.Error("probe_panic", zap.String("url", string(t)), zap.Any("panic", p))
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
