package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"gramverify/internal/history"
)

type fakeSource struct {
	runs []history.Run
	err  error

	lastGrammar string
	lastLimit   int
}

func (f *fakeSource) LoadRuns(grammar string, since time.Time, limit int) ([]history.Run, error) {
	f.lastGrammar = grammar
	f.lastLimit = limit
	return f.runs, f.err
}

func newTestServer(t *testing.T, source RunSource) *StatusServer {
	t.Helper()
	s, err := NewStatusServer(context.Background(), "127.0.0.1:0", source, 9)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestNewStatusServer_ValidatesEmbeddedSpec(t *testing.T) {
	s := newTestServer(t, &fakeSource{})
	if s.Spec() == nil {
		t.Fatal("expected a validated openapi document")
	}
	if s.Spec().Paths.Find("/api/v1/runs") == nil {
		t.Error("expected /api/v1/runs to be documented")
	}
	if s.Spec().Paths.Find("/health") == nil {
		t.Error("expected /health to be documented")
	}
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t, &fakeSource{})
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var payload struct {
		Status   string `json:"status"`
		Grammars int    `json:"grammars"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatal(err)
	}
	if payload.Status != "up" || payload.Grammars != 9 {
		t.Errorf("unexpected health payload %+v", payload)
	}
}

func TestRunsEndpoint(t *testing.T) {
	source := &fakeSource{
		runs: []history.Run{
			{
				RunID:     "r1",
				Timestamp: time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC),
				Grammar:   "tardi",
				OK:        false,
				Message:   "Error loading Tardi grammar",
			},
		},
	}
	s := newTestServer(t, source)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/v1/runs?grammar=tardi&limit=5")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if source.lastGrammar != "tardi" || source.lastLimit != 5 {
		t.Errorf("query parameters not forwarded: grammar=%q limit=%d", source.lastGrammar, source.lastLimit)
	}

	var payload []struct {
		RunID   string `json:"run_id"`
		Grammar string `json:"grammar"`
		OK      bool   `json:"ok"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatal(err)
	}
	if len(payload) != 1 {
		t.Fatalf("expected 1 run, got %d", len(payload))
	}
	if payload[0].Message != "Error loading Tardi grammar" {
		t.Errorf("unexpected message %q", payload[0].Message)
	}
}

func TestRunsEndpoint_RejectsBadLimit(t *testing.T) {
	s := newTestServer(t, &fakeSource{})
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/v1/runs?limit=zero")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}
