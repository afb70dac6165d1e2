package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"clinicbot/internal/chat"
	"clinicbot/internal/config"
	"clinicbot/internal/domain"
	"clinicbot/internal/metrics"
	"clinicbot/internal/models"
)

// Server exposes the chat endpoint and the staff dashboard API.
type Server struct {
	cfg      config.Config
	store    domain.Repository
	engine   *chat.Engine
	sessions domain.StateManager
	bus      domain.EventPublisher
	auth     *StaffAuth
	logger   *zerolog.Logger

	server   *http.Server
	limiters sync.Map
}

func NewServer(
	cfg config.Config,
	store domain.Repository,
	engine *chat.Engine,
	sessions domain.StateManager,
	bus domain.EventPublisher,
	logger *zerolog.Logger,
) *Server {
	srv := &Server{
		cfg:      cfg,
		store:    store,
		engine:   engine,
		sessions: sessions,
		bus:      bus,
		auth:     NewStaffAuth(cfg.Dashboard),
		logger:   logger,
	}

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	return srv
}

// Handler builds the route table. Exposed for httptest.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/api/v1/chat", s.handleChat)
	mux.HandleFunc("/api/v1/bookings", s.auth.Require(s.handleBookings, models.RoleReceptionist, models.RoleAdmin))
	mux.HandleFunc("/api/v1/bookings/", s.auth.Require(s.handleBookingByID, models.RoleReceptionist, models.RoleAdmin))
	mux.HandleFunc("/api/v1/audit", s.auth.Require(s.handleAudit, models.RoleAdmin))
	mux.HandleFunc("/api/v1/stats", s.auth.Require(s.handleStats, models.RoleAdmin))
	mux.HandleFunc("/api/v1/export", s.auth.Require(s.handleExport, models.RoleAdmin))

	if s.cfg.Monitoring.PrometheusEnabled {
		mux.Handle("/metrics", promhttp.Handler())
	}

	return s.loggingMiddleware(mux)
}

func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP server listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)

		metrics.IncHTTP(r.URL.Path)
		s.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("duration", time.Since(start)).
			Msg("HTTP request")
	})
}

// clientLimiter returns the per-client token bucket for the chat endpoint.
func (s *Server) clientLimiter(r *http.Request) *rate.Limiter {
	key := r.RemoteAddr
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		key = host
	}

	if v, ok := s.limiters.Load(key); ok {
		return v.(*rate.Limiter)
	}

	rps := s.cfg.Chat.RateLimitRPS
	if rps <= 0 {
		rps = 5
	}
	burst := s.cfg.Chat.RateLimitBurst
	if burst <= 0 {
		burst = 10
	}

	lim := rate.NewLimiter(rate.Limit(rps), burst)
	if actual, loaded := s.limiters.LoadOrStore(key, lim); loaded {
		return actual.(*rate.Limiter)
	}
	return lim
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}
