package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hamed0406/pagekeeper/internal/domain"
)

const (
	envConfigFile    = "KEEPER_CONFIG"
	defaultTarget    = "http://localhost:3000"
	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
)

type Config struct {
	Addr     string // API bind address, e.g. ":3000"
	LogDir   string // rotated log directory; empty disables the file sink
	LogLevel string

	Targets      []domain.Target
	Interval     time.Duration // between cycle starts
	StartupDelay time.Duration // grace before the first cycle

	HTTPPhase      bool
	HTTPTimeout    time.Duration // per request probe
	DNSDiagnose    bool
	BrowserPhase   bool
	PageTimeout    time.Duration // per navigation
	TabStagger     time.Duration // pause before each tab after the first
	TabConcurrency int           // in-flight navigations
	SettleDuration time.Duration // tabs stay open this long after the last load
	PhaseDelay     time.Duration // between phase 1 and phase 2
	UserAgent      string
	ChromePath     string

	DiscordWebhook string
	SlackWebhook   string
	SMTP           SMTPConfig
	NotifyTimeout  time.Duration

	TriggerRPM     int // manual trigger requests per minute per client, 0 disables
	TriggerBurst   int
	AllowedOrigins []string

	DatabaseURL    string // postgres mirror of the last snapshot
	SnapshotSQLite string // sqlite mirror, used when DatabaseURL is empty
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       []string
}

// Enabled reports whether enough is set to send mail.
func (s SMTPConfig) Enabled() bool {
	return s.Host != "" && len(s.To) > 0
}

// FromEnv builds the config from the process environment only.
func FromEnv() Config {
	return build(source{})
}

// Load reads the optional YAML file named by KEEPER_CONFIG and overlays the
// environment on top of it.
func Load() (Config, error) {
	src := source{}
	if path := os.Getenv(envConfigFile); path != "" {
		file, err := readFile(path)
		if err != nil {
			return Config{}, err
		}
		src.file = file
	}
	cfg := build(src)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if !c.HTTPPhase && !c.BrowserPhase {
		return errors.New("config: at least one of HTTP_PHASE and BROWSER_PHASE must be enabled")
	}
	if c.Interval <= 0 {
		return errors.New("config: PING_INTERVAL_MIN must be positive")
	}
	if c.TabConcurrency < 1 {
		return errors.New("config: TAB_CONCURRENCY must be at least 1")
	}
	return nil
}

func build(src source) Config {
	addr := src.str("API_ADDR", "")
	if addr == "" {
		addr = ":" + src.str("PORT", "3000")
	}

	targets := ParseTargets(src.str("PING_URLS", ""))
	if len(targets) == 0 {
		targets = []domain.Target{domain.Target(src.str("RENDER_EXTERNAL_URL", defaultTarget))}
	}

	smtpFrom := src.str("ALERT_EMAIL_FROM", "")
	smtpUser := src.str("SMTP_USER", "")
	if smtpFrom == "" {
		smtpFrom = smtpUser
	}

	return Config{
		Addr:     addr,
		LogDir:   src.str("LOG_DIR", "logs"),
		LogLevel: src.str("LOG_LEVEL", "info"),

		Targets:      targets,
		Interval:     time.Duration(src.num("PING_INTERVAL_MIN", 10)) * time.Minute,
		StartupDelay: time.Duration(src.num("STARTUP_DELAY_SEC", 30)) * time.Second,

		HTTPPhase:      src.flag("HTTP_PHASE", true),
		HTTPTimeout:    time.Duration(src.num("HTTP_TIMEOUT_SEC", 30)) * time.Second,
		DNSDiagnose:    src.flag("DNS_DIAGNOSE", true),
		BrowserPhase:   src.flag("BROWSER_PHASE", true),
		PageTimeout:    time.Duration(src.num("PAGE_TIMEOUT_SEC", 120)) * time.Second,
		TabStagger:     time.Duration(src.num("TAB_STAGGER_MS", 2000)) * time.Millisecond,
		TabConcurrency: src.num("TAB_CONCURRENCY", 1),
		SettleDuration: time.Duration(src.num("PAGE_WAIT_SEC", 180)) * time.Second,
		PhaseDelay:     time.Duration(src.num("HTTP_TO_BROWSER_DELAY_SEC", 10)) * time.Second,
		UserAgent:      src.str("USER_AGENT", defaultUserAgent),
		ChromePath:     src.str("CHROME_PATH", ""),

		DiscordWebhook: src.str("DISCORD_WEBHOOK", ""),
		SlackWebhook:   src.str("SLACK_WEBHOOK", ""),
		SMTP: SMTPConfig{
			Host:     src.str("SMTP_HOST", ""),
			Port:     src.num("SMTP_PORT", 587),
			Username: smtpUser,
			Password: src.str("SMTP_PASS", ""),
			From:     smtpFrom,
			To:       splitList(src.str("ALERT_EMAIL_TO", "")),
		},
		NotifyTimeout: time.Duration(src.num("NOTIFY_TIMEOUT_SEC", 10)) * time.Second,

		TriggerRPM:     src.num("TRIGGER_RPM", 6),
		TriggerBurst:   src.num("TRIGGER_BURST", 2),
		AllowedOrigins: splitList(src.str("ALLOWED_ORIGINS", "*")),

		DatabaseURL:    src.str("DATABASE_URL", ""),
		SnapshotSQLite: src.str("SNAPSHOT_SQLITE", ""),
	}
}

// ParseTargets splits a comma separated URL list. Entries are trimmed and
// empty entries dropped; duplicates are kept.
func ParseTargets(raw string) []domain.Target {
	parts := splitList(raw)
	out := make([]domain.Target, 0, len(parts))
	for _, p := range parts {
		out = append(out, domain.Target(p))
	}
	return out
}

func splitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// source resolves a key from the environment first, then the YAML file.
type source struct {
	file map[string]string
}

func (s source) lookup(key string) (string, bool) {
	if v, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(v), true
	}
	v, ok := s.file[strings.ToLower(key)]
	return v, ok
}

func (s source) str(key, def string) string {
	if v, ok := s.lookup(key); ok {
		return v
	}
	return def
}

// num ignores malformed or negative values.
func (s source) num(key string, def int) int {
	if v, ok := s.lookup(key); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return def
}

func (s source) flag(key string, def bool) bool {
	if v, ok := s.lookup(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func readFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %q: %w", path, err)
	}
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse config %q: %w", path, err)
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case nil:
			out[strings.ToLower(k)] = ""
		case []any:
			items := make([]string, 0, len(val))
			for _, item := range val {
				items = append(items, fmt.Sprint(item))
			}
			out[strings.ToLower(k)] = strings.Join(items, ",")
		default:
			out[strings.ToLower(k)] = fmt.Sprint(val)
		}
	}
	return out, nil
}
