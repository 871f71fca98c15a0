// Package server exposes the predictor over HTTP. The API is
// deliberately thin: all prediction semantics live in the ml package.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"footypredict/internal/metrics"
	"footypredict/internal/ml"

	"github.com/rs/zerolog/log"
)

// Server serves prediction requests over HTTP.
type Server struct {
	predictor *ml.Predictor
	metrics   *metrics.Metrics
	server    *http.Server
}

// batchRequest wraps the batch endpoint payload.
type batchRequest struct {
	Matches []ml.PredictionRequest `json:"matches"`
}

type batchResponse struct {
	Results []ml.Prediction `json:"results"`
}

// New builds the HTTP server on the given port.
func New(predictor *ml.Predictor, m *metrics.Metrics, port int) *Server {
	s := &Server{predictor: predictor, metrics: m}

	mux := http.NewServeMux()
	mux.HandleFunc("/predict", s.handlePredict)
	mux.HandleFunc("/predict/batch", s.handlePredictBatch)
	mux.HandleFunc("/model/info", s.handleModelInfo)
	mux.HandleFunc("/health", s.handleHealth)

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return s
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	log.Info().Str("addr", s.server.Addr).Msg("starting prediction server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req ml.PredictionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request: %v", err), http.StatusBadRequest)
		return
	}

	pred, err := s.predictor.PredictSingle(req)
	if err != nil {
		log.Error().Err(err).Str("home", req.HomeTeam).Str("away", req.AwayTeam).Msg("prediction failed")
		http.Error(w, fmt.Sprintf("prediction failed: %v", err), http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusOK, pred)
}

func (s *Server) handlePredictBatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request: %v", err), http.StatusBadRequest)
		return
	}
	if len(req.Matches) == 0 {
		http.Error(w, "matches cannot be empty", http.StatusBadRequest)
		return
	}

	if s.metrics != nil {
		s.metrics.BatchSize.Observe(float64(len(req.Matches)))
	}

	writeJSON(w, http.StatusOK, batchResponse{Results: s.predictor.PredictBatch(req.Matches)})
}

func (s *Server) handleModelInfo(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.predictor.ModelInfo())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	info := s.predictor.ModelInfo()

	status := http.StatusOK
	if !info.IsLoaded {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]any{
		"healthy":       info.IsLoaded,
		"model_type":    info.ModelType,
		"model_version": info.ModelVersion,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("response encode failed")
	}
}
