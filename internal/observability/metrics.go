package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	LoadDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gramverify_load_seconds",
		Help:    "Time spent constructing a language handle for a grammar.",
		Buckets: prometheus.DefBuckets,
	}, []string{"grammar", "outcome"})

	VerificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gramverify_verifications_total",
		Help: "Total number of grammar verification attempts.",
	}, []string{"outcome"})

	ArtifactIssuesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gramverify_artifact_issues_total",
		Help: "Total number of manifest artifact issues found.",
	})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gramverify_watcher_events_total",
		Help: "Total number of file system events received by the watcher.",
	})

	RunsRecordedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gramverify_runs_recorded_total",
		Help: "Total number of verification runs persisted to history.",
	})
)
