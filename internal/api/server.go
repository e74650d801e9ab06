// Package api serves evaluations over HTTP: uploads, stored runs, exports
// and a websocket progress stream.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"trade-outcome-lab/internal/config"
	"trade-outcome-lab/internal/evaluator"
	"trade-outcome-lab/internal/observability"
	"trade-outcome-lab/internal/orchestrator"
	"trade-outcome-lab/internal/reporting"
)

// Default limits.
const (
	DefaultMaxUploadBytes = 32 << 20
	DefaultWriteTimeout   = 10 * time.Second
	DefaultPingInterval   = 30 * time.Second
	DefaultRunListLimit   = 20
)

// Options for creating Server.
type Options struct {
	// Required
	Orchestrator *orchestrator.Orchestrator
	Generator    *reporting.Generator
	Broadcaster  *evaluator.Broadcaster

	// Parameter defaults used when a request omits target_pct or sl_pct
	TargetPct float64
	SLPct     float64

	MaxUploadBytes int64
	PingInterval   time.Duration
	Logger         zerolog.Logger
	Now            func() time.Time
}

// Server holds the HTTP handlers.
type Server struct {
	orch        *orchestrator.Orchestrator
	gen         *reporting.Generator
	broadcaster *evaluator.Broadcaster

	targetPct float64
	slPct     float64

	maxUploadBytes int64
	pingInterval   time.Duration
	upgrader       websocket.Upgrader
	logger         zerolog.Logger
	now            func() time.Time
}

// New creates a Server.
func New(opts Options) *Server {
	s := &Server{
		orch:           opts.Orchestrator,
		gen:            opts.Generator,
		broadcaster:    opts.Broadcaster,
		targetPct:      opts.TargetPct,
		slPct:          opts.SLPct,
		maxUploadBytes: opts.MaxUploadBytes,
		pingInterval:   opts.PingInterval,
		logger:         opts.Logger,
		now:            opts.Now,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
	if s.targetPct == 0 {
		s.targetPct = config.Default().TargetPct
	}
	if s.slPct == 0 {
		s.slPct = config.Default().SLPct
	}
	if s.maxUploadBytes <= 0 {
		s.maxUploadBytes = DefaultMaxUploadBytes
	}
	if s.pingInterval <= 0 {
		s.pingInterval = DefaultPingInterval
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	return s
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Prometheus metrics
	mux.Handle("GET /metrics", observability.Handler())

	mux.HandleFunc("POST /evaluate", s.handleEvaluate)
	mux.HandleFunc("GET /runs", s.handleListRuns)
	mux.HandleFunc("GET /runs/{id}", s.handleGetRun)
	mux.HandleFunc("GET /runs/{id}/export.csv", s.handleExportCSV)
	mux.HandleFunc("GET /runs/{id}/export.xlsx", s.handleExportXLSX)
	mux.HandleFunc("GET /runs/{id}/report.md", s.handleReport)
	mux.HandleFunc("GET /ws/progress", s.handleProgress)

	return mux
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error().Err(err).Msg("could not encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.logger.Error().Err(err).Int("status", status).Msg("request failed")
	}
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}

// statusFor maps sentinel errors to HTTP status codes.
func statusFor(err error, fallback int) int {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	default:
		return fallback
	}
}
