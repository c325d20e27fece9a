package browser

import (
	"context"
	"fmt"
	"sync"

	"github.com/chromedp/chromedp"
)

// Chrome launches headless Chrome through chromedp.
type Chrome struct {
	ExecPath  string
	UserAgent string
}

func NewChrome(execPath, userAgent string) *Chrome {
	return &Chrome{ExecPath: execPath, UserAgent: userAgent}
}

func (c *Chrome) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if c.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(c.ExecPath))
	}
	if c.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(c.UserAgent))
	}
	return opts
}

// Launch starts the browser process eagerly so that a missing binary or a
// crash on start surfaces here rather than on the first tab.
func (c *Chrome) Launch(ctx context.Context) (Session, error) {
	// the session outlives the launch call; only the start itself is bounded by ctx
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.WithoutCancel(ctx), c.allocatorOptions()...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	started := make(chan error, 1)
	go func() { started <- chromedp.Run(browserCtx) }()

	select {
	case err := <-started:
		if err != nil {
			browserCancel()
			allocCancel()
			return nil, fmt.Errorf("launch browser: %w", err)
		}
	case <-ctx.Done():
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("launch browser: %w", ctx.Err())
	}

	return &chromeSession{
		ctx:           browserCtx,
		browserCancel: browserCancel,
		allocCancel:   allocCancel,
	}, nil
}

type chromeSession struct {
	ctx           context.Context
	browserCancel context.CancelFunc
	allocCancel   context.CancelFunc
	closeOnce     sync.Once
	closeErr      error
}

func (s *chromeSession) NewTab(ctx context.Context) (Tab, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tabCtx, cancel := chromedp.NewContext(s.ctx)
	// an empty Run creates the target so the tab exists before navigation
	if err := chromedp.Run(tabCtx); err != nil {
		cancel()
		return nil, fmt.Errorf("open tab: %w", err)
	}
	return &chromeTab{ctx: tabCtx, cancel: cancel}, nil
}

func (s *chromeSession) Close() error {
	s.closeOnce.Do(func() {
		// Cancel on the browser context waits for chrome to exit gracefully.
		s.closeErr = chromedp.Cancel(s.ctx)
		s.browserCancel()
		s.allocCancel()
	})
	return s.closeErr
}

type chromeTab struct {
	ctx    context.Context
	cancel context.CancelFunc
}

func (t *chromeTab) Navigate(ctx context.Context, url string) (int, error) {
	navCtx, cancel := context.WithCancel(t.ctx)
	defer cancel()
	if deadline, ok := ctx.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		navCtx, cancelDeadline = context.WithDeadline(navCtx, deadline)
		defer cancelDeadline()
	}
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	resp, err := chromedp.RunResponse(navCtx, chromedp.Navigate(url))
	if err != nil {
		if ctx.Err() != nil {
			return 0, fmt.Errorf("navigation timed out: %w", ctx.Err())
		}
		return 0, err
	}
	if resp == nil {
		return 0, ErrNoResponse
	}
	return int(resp.Status), nil
}

func (t *chromeTab) Close() error {
	t.cancel()
	return nil
}
