// Package server exposes the qualification engine over a JSON HTTP API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/fulqrun/meddpicc-cli/internal/config"
	"github.com/fulqrun/meddpicc-cli/internal/qualify"
	"github.com/fulqrun/meddpicc-cli/internal/session"
	"github.com/fulqrun/meddpicc-cli/internal/store"
)

const shutdownTimeout = 10 * time.Second

// Server serves the qualification API.
type Server struct {
	svc      *session.Service
	cfg      config.ServerConfig
	validate *validator.Validate
}

// New creates a Server.
func New(svc *session.Service, cfg config.ServerConfig) *Server {
	return &Server{svc: svc, cfg: cfg, validate: validator.New()}
}

// Handler returns the API router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/pillars", s.handlePillars)
		r.Get("/litmus", s.handleLitmus)
		r.Get("/stage-gates", s.handleStageGates)

		r.Get("/opportunities", s.handleListOpportunities)
		r.Route("/opportunities/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetOpportunity)
			r.Put("/", s.handlePutOpportunity)
			r.Get("/responses", s.handleGetResponses)
			r.Put("/responses", s.handlePutResponses)
			r.Get("/assessment", s.handleGetAssessment)
			r.Post("/assessment", s.handleSnapshot)
			r.Get("/progress", s.handleProgress)
			r.Post("/validate", s.handleValidate)
			r.Get("/gates", s.handleGates)
			r.Get("/gates/{target}", s.handleGate)
			r.Post("/advance", s.handleAdvance)
			r.Get("/summary", s.handleSummary)
		})
	})
	return r
}

// ListenAndServe serves on the configured port until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, port int) error {
	if port == 0 {
		port = s.cfg.Port
	}
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		zap.L().Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			zap.L().Warn("server shutdown", zap.Error(err))
		}
	}()

	zap.L().Info("starting server", zap.Int("port", port))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return eris.Wrap(err, "server: listen")
	}
	return nil
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		zap.L().Warn("server: encode response", zap.Error(err))
	}
}

func errorResponse(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"error": message})
}

// writeError maps domain errors onto HTTP statuses.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case eris.Is(err, store.ErrNotFound):
		errorResponse(w, http.StatusNotFound, "opportunity not found")
	case eris.Is(err, qualify.ErrUnknownQuestion), eris.Is(err, qualify.ErrUnknownPillar):
		errorResponse(w, http.StatusUnprocessableEntity, err.Error())
	case eris.Is(err, session.ErrGateNotReady):
		errorResponse(w, http.StatusConflict, err.Error())
	default:
		zap.L().Error("server: request failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err),
		)
		errorResponse(w, http.StatusInternalServerError, "internal error")
	}
}

// decode reads a JSON body into v and validates it.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		errorResponse(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := s.validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			errorResponse(w, http.StatusBadRequest, fmt.Sprintf("%s failed %s validation", fe.Namespace(), fe.Tag()))
			return false
		}
		errorResponse(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}
