package ingest

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	buildsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "routegraph_builds_total",
		Help: "Graph builds by chain and result (ok, partial, failed).",
	}, []string{"chain", "result"})

	buildDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "routegraph_build_duration_seconds",
		Help:    "Duration of one chain's graph build.",
		Buckets: prometheus.DefBuckets,
	}, []string{"chain"})

	ticksSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "routegraph_updater_ticks_skipped_total",
		Help: "Scheduler ticks skipped because an update was still in flight.",
	})
)
