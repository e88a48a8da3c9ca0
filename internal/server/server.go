// Package server exposes the harness's read-only status surface: Prometheus
// metrics, a health check, and the recorded verification runs.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gramverify/internal/history"
)

// RunSource is the slice of the history store the server reads from.
type RunSource interface {
	LoadRuns(grammar string, since time.Time, limit int) ([]history.Run, error)
}

type StatusServer struct {
	addr         string
	source       RunSource
	grammarCount int
	spec         *openapi3.T
	server       *http.Server
}

type healthPayload struct {
	Status   string `json:"status"`
	Grammars int    `json:"grammars"`
}

type runPayload struct {
	RunID      string  `json:"run_id"`
	Grammar    string  `json:"grammar"`
	OK         bool    `json:"ok"`
	ABIVersion int     `json:"abi_version"`
	DurationMS float64 `json:"duration_ms"`
	Message    string  `json:"message,omitempty"`
	CheckedAt  string  `json:"checked_at"`
}

func NewStatusServer(ctx context.Context, addr string, source RunSource, grammarCount int) (*StatusServer, error) {
	spec, err := loadAPISpec(ctx)
	if err != nil {
		return nil, err
	}
	return &StatusServer{
		addr:         addr,
		source:       source,
		grammarCount: grammarCount,
		spec:         spec,
	}, nil
}

// Spec returns the validated OpenAPI document describing this server.
func (s *StatusServer) Spec() *openapi3.T {
	return s.spec
}

func (s *StatusServer) Handler() http.Handler {
	mux := http.NewServeMux()

	// Prometheus metrics
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(healthPayload{
			Status:   "up",
			Grammars: s.grammarCount,
		})
	})

	mux.HandleFunc("/api/v1/runs", s.handleRuns)

	return mux
}

func (s *StatusServer) handleRuns(w http.ResponseWriter, r *http.Request) {
	grammar := strings.TrimSpace(r.URL.Query().Get("grammar"))

	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	runs, err := s.source.LoadRuns(grammar, time.Time{}, limit)
	if err != nil {
		slog.Error("failed to load runs", "error", err)
		http.Error(w, "failed to load runs", http.StatusInternalServerError)
		return
	}

	payload := make([]runPayload, 0, len(runs))
	for _, run := range runs {
		payload = append(payload, runPayload{
			RunID:      run.RunID,
			Grammar:    run.Grammar,
			OK:         run.OK,
			ABIVersion: run.ABIVersion,
			DurationMS: float64(run.Duration) / float64(time.Millisecond),
			Message:    run.Message,
			CheckedAt:  run.Timestamp.UTC().Format(time.RFC3339Nano),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}

func (s *StatusServer) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:    s.addr,
		Handler: s.Handler(),
	}

	slog.Info("status server starting", "addr", s.addr)

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("status server failed", "error", err)
		}
	}()

	return nil
}

func (s *StatusServer) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
