package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CyclesTotal compte les cycles de polling par issue (ok, no_tracking, fetch_failed, skipped).
	CyclesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "awn_cycles_total",
		Help: "Total number of poll cycles by outcome",
	}, []string{"outcome"})

	FetchFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "awn_fetch_failures_total",
		Help: "Total number of failed source fetches",
	}, []string{"source"})

	NewEpisodes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "awn_new_episodes_total",
		Help: "Total number of new episodes detected for tracked titles",
	}, []string{"source"})

	NotifyFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "awn_notify_failures_total",
		Help: "Total number of notification delivery failures",
	}, []string{"transport"})

	CycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "awn_cycle_duration_seconds",
		Help:    "Duration of poll cycles",
		Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
	})

	LastSuccess = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "awn_last_success_timestamp_seconds",
		Help: "Unix time of the last cycle that fetched every source",
	})

	TrackedTitles = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "awn_tracked_titles",
		Help: "Number of titles currently tracked",
	})

	SnapshotTitles = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "awn_snapshot_titles",
		Help: "Number of titles in the latest persisted snapshot",
	})
)

func RecordCycle(outcome string, took time.Duration) {
	CyclesTotal.WithLabelValues(outcome).Inc()
	if outcome != "skipped" {
		CycleDuration.Observe(took.Seconds())
	}
}

func RecordFetchFailure(source string) {
	FetchFailures.WithLabelValues(source).Inc()
}

func RecordNewEpisodes(source string, n int) {
	NewEpisodes.WithLabelValues(source).Add(float64(n))
}

func RecordNotifyFailure(transport string) {
	NotifyFailures.WithLabelValues(transport).Inc()
}

func MarkSuccess(at time.Time) {
	LastSuccess.Set(float64(at.Unix()))
}
