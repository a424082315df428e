// File: internal/infra/api/server.go
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"telegram-content-relay/internal/application"
)

// Server is the operator-facing HTTP surface: health, metrics and a small
// read/cancel view over active jobs.
type Server struct {
	httpServer *http.Server
	facade     *application.RelayFacade
	log        *zerolog.Logger
}

func NewServer(port int, jwtSecret string, facade *application.RelayFacade, logger *zerolog.Logger) *Server {
	l := logger.With().Str("component", "AdminAPI").Logger()
	s := &Server{facade: facade, log: &l}

	r := chi.NewRouter()
	r.Use(TraceID)
	r.Use(Recover(&l))
	r.Use(RequestLog(&l))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(BearerAuth(jwtSecret))
		r.Get("/jobs", s.listJobs)
		r.Post("/jobs/{userID}/cancel", s.cancelJob)
	})

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) listJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := s.facade.ActiveJobs(r.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("list jobs failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"jobs": jobs})
}

func (s *Server) cancelJob(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		http.Error(w, "bad user id", http.StatusBadRequest)
		return
	}
	ok, err := s.facade.RequestCancelJob(r.Context(), userID)
	if err != nil {
		s.log.Error().Err(err).Int64("user_id", userID).Msg("cancel failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, "no active job", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.httpServer.Addr).Msg("admin api listening")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
