// # cmd/gramverify/app.go
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"gramverify/internal/config"
	"gramverify/internal/grammar"
	"gramverify/internal/history"
	"gramverify/internal/observability"
	"gramverify/internal/server"
	"gramverify/internal/util"
	"gramverify/internal/verify"
	"gramverify/internal/watcher"
)

// Update is pushed to the UI (and any other subscriber) after each
// verification sweep.
type Update struct {
	Results   []verify.Result
	CheckedAt time.Time
}

type App struct {
	Config   *config.Config
	verifier *verify.Verifier
	store    *history.Store
	limiter  *util.Limiter
	watcher  *watcher.Watcher
	server   *server.StatusServer

	patterns []string

	updateMu      sync.Mutex
	lastUpdate    Update
	updateHandler func(Update)
}

func NewApp(cfg *config.Config) (*App, error) {
	overrides := make(map[string]grammar.Override, len(cfg.Grammars))
	for name, o := range cfg.Grammars {
		overrides[name] = grammar.Override{
			Enabled:      o.Enabled,
			SharedObject: o.SharedObject,
			Sample:       o.Sample,
		}
	}

	registry, err := grammar.BuildRegistry(overrides)
	if err != nil {
		return nil, fmt.Errorf("build grammar registry: %w", err)
	}

	opts := verify.Options{
		MinABIVersion: cfg.Verification.MinABIVersion,
		MaxABIVersion: cfg.Verification.MaxABIVersion,
		ProbeParse:    cfg.Verification.ProbeParse,
	}

	if cfg.Verification.VerifyArtifacts {
		if info, statErr := os.Stat(cfg.GrammarsPath); statErr == nil && info.IsDir() {
			issues, verifyErr := grammar.VerifyRegistryArtifacts(cfg.GrammarsPath, registry)
			if verifyErr != nil {
				return nil, fmt.Errorf("verify grammar artifacts: %w", verifyErr)
			}
			if len(issues) > 0 {
				byGrammar := make(map[string][]grammar.Issue)
				for _, issue := range issues {
					byGrammar[issue.Grammar] = append(byGrammar[issue.Grammar], issue)
					slog.Warn("grammar artifact issue",
						"grammar", issue.Grammar,
						"kind", issue.ArtifactKind,
						"path", issue.ArtifactPath,
						"reason", issue.Reason,
					)
				}
				observability.ArtifactIssuesTotal.Add(float64(len(issues)))
				opts.ArtifactIssues = byGrammar
			}
		}
	}

	store, err := history.Open(cfg.HistoryPath)
	if err != nil {
		return nil, fmt.Errorf("open run history: %w", err)
	}

	return &App{
		Config:   cfg,
		verifier: verify.New(cfg.GrammarsPath, registry, opts),
		store:    store,
		limiter:  util.NewLimiter(cfg.Watch.Rate, cfg.Watch.Burst),
	}, nil
}

// VerifyAll runs one verification sweep over the grammars matching the app's
// patterns, records each run, and notifies subscribers.
func (a *App) VerifyAll(ctx context.Context) ([]verify.Result, error) {
	results, err := a.verifier.VerifyMatching(ctx, a.patterns)
	if err != nil {
		return nil, err
	}

	for _, result := range results {
		run := history.Run{
			RunID:      result.RunID,
			Timestamp:  result.CheckedAt,
			Grammar:    result.Grammar,
			OK:         result.OK,
			ABIVersion: result.ABIVersion,
			Duration:   result.Duration,
			Message:    result.Message,
		}
		if err := a.store.SaveRun(run); err != nil {
			slog.Warn("failed to record run", "grammar", result.Grammar, "error", err)
			continue
		}
		observability.RunsRecordedTotal.Inc()
	}

	update := Update{Results: results, CheckedAt: time.Now().UTC()}
	a.updateMu.Lock()
	a.lastUpdate = update
	handler := a.updateHandler
	a.updateMu.Unlock()
	if handler != nil {
		handler(update)
	}

	return results, nil
}

func (a *App) SetPatterns(patterns []string) {
	a.patterns = append([]string(nil), patterns...)
}

func (a *App) SetUpdateHandler(handler func(Update)) {
	a.updateMu.Lock()
	defer a.updateMu.Unlock()
	a.updateHandler = handler
}

func (a *App) CurrentUpdate() Update {
	a.updateMu.Lock()
	defer a.updateMu.Unlock()
	return a.lastUpdate
}

// GrammarCount reports how many grammars are enabled for verification.
func (a *App) GrammarCount() int {
	count := 0
	for _, spec := range a.verifier.Registry() {
		if spec.Enabled {
			count++
		}
	}
	return count
}

// StartWatcher re-verifies when grammar artifacts change on disk. Sweeps are
// rate limited so a build dropping many artifacts triggers one pass, not one
// per file.
func (a *App) StartWatcher(ctx context.Context) error {
	if info, err := os.Stat(a.Config.GrammarsPath); err != nil || !info.IsDir() {
		return fmt.Errorf("grammars path %q is not a watchable directory", a.Config.GrammarsPath)
	}

	w, err := watcher.NewWatcher(
		a.Config.Watch.Debounce,
		a.Config.Exclude.Dirs,
		a.Config.Exclude.Files,
		func(paths []string) {
			if !a.limiter.Allow(1) {
				slog.Debug("re-verification throttled", "changed", len(paths))
				return
			}
			slog.Info("grammar artifacts changed, re-verifying", "changed", len(paths))
			if _, err := a.VerifyAll(ctx); err != nil {
				slog.Error("re-verification failed", "error", err)
			}
		},
	)
	if err != nil {
		return err
	}
	a.watcher = w

	return w.Watch(a.Config.GrammarsPath)
}

func (a *App) StartServer(ctx context.Context) error {
	s, err := server.NewStatusServer(ctx, a.Config.Server.Addr, a.store, a.GrammarCount())
	if err != nil {
		return err
	}
	a.server = s
	return s.Start(ctx)
}

func (a *App) Close(ctx context.Context) error {
	if a.watcher != nil {
		if err := a.watcher.Close(); err != nil {
			slog.Warn("failed to close watcher", "error", err)
		}
	}
	if a.server != nil {
		if err := a.server.Stop(ctx); err != nil {
			slog.Warn("failed to stop status server", "error", err)
		}
	}
	return a.store.Close()
}
