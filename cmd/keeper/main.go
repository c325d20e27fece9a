package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hamed0406/pagekeeper/internal/browser"
	"github.com/hamed0406/pagekeeper/internal/config"
	"github.com/hamed0406/pagekeeper/internal/cycle"
	"github.com/hamed0406/pagekeeper/internal/httpapi"
	"github.com/hamed0406/pagekeeper/internal/logging"
	"github.com/hamed0406/pagekeeper/internal/notify"
	"github.com/hamed0406/pagekeeper/internal/probe"
	"github.com/hamed0406/pagekeeper/internal/repo"
	"github.com/hamed0406/pagekeeper/internal/repo/memory"
	"github.com/hamed0406/pagekeeper/internal/repo/postgres"
	"github.com/hamed0406/pagekeeper/internal/repo/sqlite"
	"github.com/hamed0406/pagekeeper/internal/scheduler"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	logger, err := logging.NewLogger(cfg.LogDir, cfg.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Error("keeper_exit", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	state := memory.New()
	mirror, closeMirror, err := openMirror(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeMirror()
	if mirror != nil {
		restore(ctx, mirror, state, logger)
	}

	var checker probe.Checker
	if cfg.HTTPPhase {
		checker = probe.NewHTTPChecker(cfg.HTTPTimeout, cfg.UserAgent)
		if cfg.DNSDiagnose {
			checker = probe.NewDNSDiagnosis(checker)
		}
	}
	var launcher browser.Launcher
	if cfg.BrowserPhase {
		launcher = browser.NewChrome(cfg.ChromePath, cfg.UserAgent)
	}

	runner := cycle.NewRunner(logger, checker, launcher, notify.FromConfig(cfg, logger), state, cycle.Settings{
		HTTPTimeout:    cfg.HTTPTimeout,
		PhaseDelay:     cfg.PhaseDelay,
		PageTimeout:    cfg.PageTimeout,
		TabStagger:     cfg.TabStagger,
		TabConcurrency: cfg.TabConcurrency,
		SettleDuration: cfg.SettleDuration,
	})
	runner.Mirror = mirror

	sched := scheduler.New(logger, runner, cfg.Targets, cfg.Interval, cfg.StartupDelay)
	api := httpapi.NewServer(logger, state, sched, cfg.Targets, cfg.Interval)
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Router(cfg.AllowedOrigins, cfg.TriggerRPM, cfg.TriggerBurst),
		ReadHeaderTimeout: 10 * time.Second,
	}

	urls := make([]string, len(cfg.Targets))
	for i, t := range cfg.Targets {
		urls[i] = string(t)
	}
	logger.Info("keeper_starting",
		zap.String("addr", cfg.Addr),
		zap.Strings("targets", urls),
		zap.Duration("interval", cfg.Interval),
		zap.Bool("http_phase", cfg.HTTPPhase),
		zap.Bool("browser_phase", cfg.BrowserPhase),
		zap.Int("tab_concurrency", cfg.TabConcurrency),
	)

	grp, groupCtx := errgroup.WithContext(ctx)

	grp.Go(func() error {
		return sched.Run(groupCtx)
	})

	grp.Go(func() error {
		errCh := make(chan error, 1)
		go func() {
			logger.Info("api_listen", zap.String("addr", cfg.Addr))
			errCh <- srv.ListenAndServe()
		}()

		select {
		case <-groupCtx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		case err := <-errCh:
			if err == nil || errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		}
	})

	if err := grp.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("keeper_stopped")
	return nil
}

// openMirror picks the durable copy of the last summary: Postgres when
// DATABASE_URL is set, else SQLite when SNAPSHOT_SQLITE is set.
func openMirror(ctx context.Context, cfg config.Config, logger *zap.Logger) (repo.SnapshotStore, func(), error) {
	switch {
	case cfg.DatabaseURL != "":
		pg, err := postgres.New(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("snapshot_mirror", zap.String("kind", "postgres"))
		return pg, pg.Close, nil
	case cfg.SnapshotSQLite != "":
		lite, err := sqlite.Open(cfg.SnapshotSQLite)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("snapshot_mirror", zap.String("kind", "sqlite"), zap.String("path", cfg.SnapshotSQLite))
		return lite, func() { _ = lite.Close() }, nil
	default:
		return nil, func() {}, nil
	}
}

func restore(ctx context.Context, from repo.SnapshotStore, into *memory.Store, logger *zap.Logger) {
	sum, err := from.Latest(ctx)
	switch {
	case errors.Is(err, repo.ErrNoSnapshot):
		return
	case err != nil:
		logger.Warn("snapshot_restore_failed", zap.Error(err))
		return
	}
	into.Put(sum)
	logger.Info("snapshot_restored", zap.String("cycle_id", sum.CycleID), zap.String("status", sum.LastStatus))
}
