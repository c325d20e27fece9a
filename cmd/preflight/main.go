// cmd/preflight/main.go
package main

import (
	"fmt"
	"net/url"
	"os"

	"github.com/hamed0406/pagekeeper/internal/config"
)

func main() {
	fail := func(msg string) {
		fmt.Fprintln(os.Stderr, "✖", msg)
		os.Exit(1)
	}
	warn := func(msg string) { fmt.Fprintln(os.Stderr, "⚠", msg) }
	ok := func(msg string) { fmt.Println("✔", msg) }

	cfg, err := config.Load()
	if err != nil {
		fail(err.Error())
	}

	if os.Getenv("PING_URLS") == "" && os.Getenv("KEEPER_CONFIG") == "" {
		warn("PING_URLS empty; falling back to " + string(cfg.Targets[0]))
	}
	for _, t := range cfg.Targets {
		u, err := url.ParseRequestURI(string(t))
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			fail("invalid target URL: " + string(t))
		}
	}
	ok(fmt.Sprintf("%d target(s), every %s (first after %s)", len(cfg.Targets), cfg.Interval, cfg.StartupDelay))

	if cfg.HTTPPhase {
		ok(fmt.Sprintf("HTTP phase on (timeout %s)", cfg.HTTPTimeout))
	} else {
		warn("HTTP phase off")
	}
	if cfg.BrowserPhase {
		ok(fmt.Sprintf("Browser phase on (tabs=%d, stagger %s, settle %s)", cfg.TabConcurrency, cfg.TabStagger, cfg.SettleDuration))
		if cfg.ChromePath != "" {
			if _, err := os.Stat(cfg.ChromePath); err != nil {
				fail("CHROME_PATH not found: " + cfg.ChromePath)
			}
		}
	} else {
		warn("Browser phase off")
	}

	channels := 0
	if cfg.DiscordWebhook != "" {
		ok("Discord notifications enabled")
		channels++
	}
	if cfg.SlackWebhook != "" {
		ok("Slack notifications enabled")
		channels++
	}
	if cfg.SMTP.Enabled() {
		ok(fmt.Sprintf("Email notifications enabled (%s:%d)", cfg.SMTP.Host, cfg.SMTP.Port))
		channels++
	} else if cfg.SMTP.Host != "" {
		warn("SMTP_HOST set but ALERT_EMAIL_TO empty; email disabled")
	}
	if channels == 0 {
		warn("no notifier configured; failures will only be logged")
	}

	switch {
	case cfg.DatabaseURL != "":
		ok("DATABASE_URL present; last snapshot mirrored to Postgres")
	case cfg.SnapshotSQLite != "":
		ok("SNAPSHOT_SQLITE=" + cfg.SnapshotSQLite)
	default:
		warn("no snapshot mirror; status resets on restart")
	}

	ok("ADDR=" + cfg.Addr)
	ok("preflight passed")
}
