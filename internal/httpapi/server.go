package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/hamed0406/pagekeeper/internal/domain"
	apimw "github.com/hamed0406/pagekeeper/internal/httpapi/middleware"
	"github.com/hamed0406/pagekeeper/internal/repo/memory"
)

// Triggerer queues a manual cycle without waiting for it.
type Triggerer interface {
	Trigger() bool
}

type Server struct {
	Logger   *zap.Logger
	State    *memory.Store
	Trigger  Triggerer
	Targets  []domain.Target
	Interval time.Duration
}

func NewServer(l *zap.Logger, state *memory.Store, trig Triggerer, targets []domain.Target, interval time.Duration) *Server {
	return &Server{Logger: l, State: state, Trigger: trig, Targets: targets, Interval: interval}
}

// Router wires the status, trigger and liveness routes. triggerRPM <= 0
// disables the trigger rate limit.
func (s *Server) Router(allowedOrigins []string, triggerRPM, triggerBurst int) http.Handler {
	r := chi.NewRouter()
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/", s.handleStatus)

	r.Group(func(r chi.Router) {
		r.Use(apimw.RateLimit(triggerRPM, triggerBurst))
		r.Get("/ping-now", s.handleTrigger)
		r.Post("/ping-now", s.handleTrigger)
	})

	return r
}

type statusResponse struct {
	Status     string               `json:"status"`
	LastRun    *time.Time           `json:"lastRun"`
	LastStatus string               `json:"lastStatus"`
	NextRun    any                  `json:"nextRun"` // time, or "Soon" before the first cycle
	CycleID    string               `json:"cycleId,omitempty"`
	Targets    []domain.Target      `json:"targets"`
	Apps       []domain.Target      `json:"apps"`
	Results    []domain.CycleResult `json:"results"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	sum := s.State.Current()

	var next any = "Soon"
	if sum.LastRun != nil {
		next = sum.LastRun.Add(s.Interval).UTC()
	}
	targets := s.Targets
	if targets == nil {
		targets = []domain.Target{}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(statusResponse{
		Status:     "alive",
		LastRun:    sum.LastRun,
		LastStatus: sum.LastStatus,
		NextRun:    next,
		CycleID:    sum.CycleID,
		Targets:    targets,
		Apps:       targets,
		Results:    sum.Results,
	})
}

func (s *Server) handleTrigger(w http.ResponseWriter, r *http.Request) {
	queued := s.Trigger.Trigger()
	s.Logger.Info("manual_trigger",
		zap.Bool("queued", queued),
		zap.String("remote", r.RemoteAddr),
	)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusAccepted)
	w.Write([]byte("Triggering ping cycle..."))
}
