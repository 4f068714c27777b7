package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	ParsingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "semgraph_parsing_seconds",
		Help:    "Time spent parsing a source file.",
		Buckets: prometheus.DefBuckets,
	}, []string{"cache"})

	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "semgraph_stage_seconds",
		Help:    "Time spent in each build pipeline stage.",
		Buckets: prometheus.DefBuckets,
	}, []string{"stage"})

	BuildsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "semgraph_builds_total",
		Help: "Total number of graph builds by outcome.",
	}, []string{"outcome"})

	GraphDeclarations = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "semgraph_graph_declarations",
		Help: "Number of declarations in the latest graph.",
	})

	GraphEdges = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "semgraph_graph_edges",
		Help: "Number of edges in the latest graph by kind.",
	}, []string{"kind"})

	DiagnosticsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "semgraph_diagnostics_total",
		Help: "Total number of diagnostics reported by code.",
	}, []string{"code"})

	ParseCacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "semgraph_parse_cache_hits_total",
		Help: "Total number of source files served from the parse cache.",
	})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "semgraph_watcher_events_total",
		Help: "Total number of file system events received by the watcher.",
	})

	RebuildsThrottledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "semgraph_rebuilds_throttled_total",
		Help: "Total number of watch rebuilds delayed by the rate limiter.",
	})

	SnapshotWriteSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "semgraph_snapshot_write_seconds",
		Help:    "Latency for persisting a graph snapshot.",
		Buckets: prometheus.DefBuckets,
	})
)
