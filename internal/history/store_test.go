package history

import (
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStore_SaveAndLoadRuns(t *testing.T) {
	store := openTestStore(t)
	base := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)

	runs := []Run{
		{RunID: "a", Timestamp: base, Grammar: "tardi", OK: false, Message: "Error loading Tardi grammar"},
		{RunID: "b", Timestamp: base.Add(time.Minute), Grammar: "go", OK: true, ABIVersion: 14, Duration: 3 * time.Millisecond},
	}
	for _, run := range runs {
		if err := store.SaveRun(run); err != nil {
			t.Fatal(err)
		}
	}

	loaded, err := store.LoadRuns("", time.Time{}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(loaded) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(loaded))
	}
	if loaded[0].RunID != "a" || loaded[1].RunID != "b" {
		t.Errorf("unexpected order: %s, %s", loaded[0].RunID, loaded[1].RunID)
	}
	if loaded[0].OK || loaded[0].Message != "Error loading Tardi grammar" {
		t.Errorf("unexpected failed run: %+v", loaded[0])
	}
	if !loaded[1].OK || loaded[1].ABIVersion != 14 || loaded[1].Duration != 3*time.Millisecond {
		t.Errorf("unexpected passing run: %+v", loaded[1])
	}
}

func TestStore_LoadRunsFilters(t *testing.T) {
	store := openTestStore(t)
	base := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)

	for i, grammar := range []string{"go", "tardi", "go"} {
		run := Run{
			RunID:     string(rune('a' + i)),
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Grammar:   grammar,
			OK:        true,
		}
		if err := store.SaveRun(run); err != nil {
			t.Fatal(err)
		}
	}

	byGrammar, err := store.LoadRuns("go", time.Time{}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(byGrammar) != 2 {
		t.Fatalf("expected 2 go runs, got %d", len(byGrammar))
	}

	since, err := store.LoadRuns("", base.Add(90*time.Second), 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(since) != 1 || since[0].RunID != "c" {
		t.Fatalf("expected only run c, got %+v", since)
	}

	limited, err := store.LoadRuns("", time.Time{}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 1 {
		t.Fatalf("expected 1 run with limit, got %d", len(limited))
	}
}

func TestStore_LatestRuns(t *testing.T) {
	store := openTestStore(t)
	base := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)

	seed := []Run{
		{RunID: "a", Timestamp: base, Grammar: "tardi", OK: false, Message: "Error loading Tardi grammar"},
		{RunID: "b", Timestamp: base.Add(time.Hour), Grammar: "tardi", OK: true, ABIVersion: 15},
		{RunID: "c", Timestamp: base, Grammar: "go", OK: true, ABIVersion: 14},
	}
	for _, run := range seed {
		if err := store.SaveRun(run); err != nil {
			t.Fatal(err)
		}
	}

	latest, err := store.LatestRuns()
	if err != nil {
		t.Fatal(err)
	}
	if len(latest) != 2 {
		t.Fatalf("expected 2 grammars, got %d", len(latest))
	}
	if !latest["tardi"].OK || latest["tardi"].RunID != "b" {
		t.Errorf("expected latest tardi run b, got %+v", latest["tardi"])
	}
}

func TestStore_SaveRunValidation(t *testing.T) {
	store := openTestStore(t)

	if err := store.SaveRun(Run{Grammar: "go"}); err == nil {
		t.Error("expected error for missing run id")
	}
	if err := store.SaveRun(Run{RunID: "x"}); err == nil {
		t.Error("expected error for missing grammar")
	}
}

func TestOpen_RejectsDirectory(t *testing.T) {
	if _, err := Open(t.TempDir()); err == nil {
		t.Fatal("expected error for directory path")
	}
}
