// # cmd/gramverify/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"gramverify/internal/config"
	"gramverify/internal/observability"
	"gramverify/internal/verify"
)

var (
	configPath = flag.String("config", "./gramverify.toml", "Path to config file")
	watch      = flag.Bool("watch", false, "Keep running and re-verify on artifact changes")
	ui         = flag.Bool("ui", false, "Enable terminal UI mode (implies -watch)")
	serve      = flag.Bool("serve", false, "Expose the status HTTP server")
	verbose    = flag.Bool("verbose", false, "Enable verbose logging")
	version    = flag.Bool("version", false, "Print version and exit")
)

const VERSION = "1.0.0"

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("gramverify v%s\n", VERSION)
		os.Exit(0)
	}

	// Setup logging
	logLevel := slog.LevelInfo
	if *verbose {
		logLevel = slog.LevelDebug
	}

	output := os.Stdout
	if *ui {
		// In UI mode, avoid stdout logs corrupting the TUI.
		logPath := resolveLogPath()
		if err := os.MkdirAll(filepath.Dir(logPath), 0700); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to create log dir for %s: %v\n", logPath, err)
		} else {
			f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
			if err == nil {
				output = f
			} else {
				fmt.Fprintf(os.Stderr, "warning: failed to open log file %s: %v\n", logPath, err)
			}
		}
	}

	logger := slog.New(slog.NewTextHandler(output, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		if *configPath == "./gramverify.toml" && os.IsNotExist(err) {
			cfg = config.Default()
		} else {
			slog.Error("failed to load config", "error", err)
			os.Exit(1)
		}
	}

	// Make grammar path absolute relative to the current working directory if it's relative
	if !filepath.IsAbs(cfg.GrammarsPath) {
		cwd, _ := os.Getwd()
		cfg.GrammarsPath = filepath.Join(cwd, cfg.GrammarsPath)
	}

	ctx := context.Background()

	if cfg.Tracing.Enabled {
		shutdown, err := observability.SetupTracing(ctx, cfg.Tracing.Endpoint)
		if err != nil {
			slog.Error("failed to set up tracing", "error", err)
			os.Exit(1)
		}
		defer func() {
			if err := shutdown(ctx); err != nil {
				slog.Warn("failed to flush traces", "error", err)
			}
		}()
	}

	app, err := NewApp(cfg)
	if err != nil {
		slog.Error("failed to initialize app", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := app.Close(ctx); err != nil {
			slog.Warn("failed to close app", "error", err)
		}
	}()

	app.SetPatterns(flag.Args())

	if *serve {
		if err := app.StartServer(ctx); err != nil {
			slog.Error("failed to start status server", "error", err)
			os.Exit(1)
		}
	}

	results, err := app.VerifyAll(ctx)
	if err != nil {
		slog.Error("verification failed", "error", err)
		os.Exit(1)
	}

	failures := printSummary(results)

	if !*watch && !*ui {
		if failures > 0 {
			os.Exit(1)
		}
		os.Exit(0)
	}

	// Watch mode
	if err := app.StartWatcher(ctx); err != nil {
		slog.Error("failed to start watcher", "error", err)
		os.Exit(1)
	}

	if *ui {
		if err := runUI(app); err != nil {
			slog.Error("failed to run UI", "error", err)
			os.Exit(1)
		}
	} else {
		// Block forever
		select {}
	}
}

func printSummary(results []verify.Result) int {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "GRAMMAR\tSTATUS\tABI\tDURATION\tDIAGNOSTIC")

	failures := 0
	for _, result := range results {
		status := "pass"
		if !result.OK {
			status = "FAIL"
			failures++
		}
		abi := ""
		if result.ABIVersion > 0 {
			abi = fmt.Sprintf("%d", result.ABIVersion)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			result.Grammar, status, abi, result.Duration.Round(10*time.Microsecond), result.Message)
	}
	w.Flush()

	fmt.Printf("\n%d grammars checked, %d failed\n", len(results), failures)
	return failures
}

func resolveLogPath() string {
	if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
		return filepath.Join(xdg, "gramverify", "gramverify.log")
	}

	home, err := os.UserHomeDir()
	if err == nil && home != "" {
		return filepath.Join(home, ".local", "state", "gramverify", "gramverify.log")
	}

	return "gramverify.log"
}
