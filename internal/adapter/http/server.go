package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/trafficlens/congestion-predictor/internal/domain"
	"github.com/trafficlens/congestion-predictor/internal/observability"
)

const maxBodyBytes = 1 << 20

// Predictor classifies a single prediction request.
type Predictor interface {
	Predict(ctx context.Context, req domain.PredictionRequest) (domain.PredictionResult, error)
}

// Server exposes the prediction API together with health, readiness, and
// metrics endpoints.
type Server struct {
	httpServer *http.Server
	predictor  Predictor
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewServer creates an HTTP server with /predict, /, /healthz, /readyz, and
// /metrics routes. Browser requests are accepted from allowedOrigins.
func NewServer(addr string, predictor Predictor, ready sharedobs.ReadinessChecker, allowedOrigins []string, logger *slog.Logger, metrics *observability.Metrics) *Server {
	mux := http.NewServeMux()

	s := &Server{
		predictor: predictor,
		logger:    logger,
		metrics:   metrics,
	}

	mux.HandleFunc("POST /predict", s.handlePredict)
	mux.HandleFunc("GET /{$}", handleRoot)
	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	c := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      c.Handler(s.instrument(s.recoverPanics(mux))),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Traffic Prediction API"})
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	var req domain.PredictionRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		s.metrics.PredictionErrors.WithLabelValues("bad_request").Inc()
		writeDetail(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	res, err := s.predictor.Predict(r.Context(), req)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, res)
	case errors.Is(err, domain.ErrUnknownWeather):
		writeDetail(w, http.StatusBadRequest, "Invalid weather condition")
	case errors.Is(err, domain.ErrInvalidTimestamp):
		// Unparseable timestamps surface as server errors, matching the
		// long-standing API contract clients already handle.
		writeDetail(w, http.StatusInternalServerError, err.Error())
	default:
		s.metrics.PredictionErrors.WithLabelValues("internal").Inc()
		s.logger.Error("prediction failed", "error", err)
		writeDetail(w, http.StatusInternalServerError, "internal server error")
	}
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // client may have gone away
}
