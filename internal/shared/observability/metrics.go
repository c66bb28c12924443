package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	ParsingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "snakr_parsing_seconds",
		Help:    "Time spent parsing a source unit.",
		Buckets: prometheus.DefBuckets,
	}, []string{"language"})

	UnitsParsedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "snakr_units_parsed_total",
		Help: "Total number of source units handed to the parser.",
	})

	ParseErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "snakr_parse_errors_total",
		Help: "Total number of source units skipped because they failed to parse.",
	})

	UnresolvedImportsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "snakr_unresolved_imports_total",
		Help: "Total number of imports that could not be mapped to a module.",
	})

	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "snakr_cache_hits_total",
		Help: "Total number of parse results served from the cache.",
	})

	GraphNodes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "snakr_graph_nodes_total",
		Help: "Total number of nodes in the dependency graph.",
	})

	GraphEdges = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "snakr_graph_edges_total",
		Help: "Total number of edges in the dependency graph.",
	})

	AnalysisDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "snakr_analysis_seconds",
		Help:    "Time spent on graph analysis tasks.",
		Buckets: prometheus.DefBuckets,
	}, []string{"task"})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "snakr_watcher_events_total",
		Help: "Total number of file system events received by the watcher.",
	})

	WriteQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "snakr_write_queue_depth",
		Help: "Current number of unit updates waiting for the graph writer.",
	})

	WriteQueueProcessedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "snakr_write_queue_processed_total",
		Help: "Total number of unit updates applied to the graph.",
	})

	WriteQueueApplyErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "snakr_write_queue_apply_errors_total",
		Help: "Total number of write batches that contained invalid updates.",
	})

	WriteQueueFlushLatencySeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "snakr_write_queue_flush_seconds",
		Help:    "Latency for applying a write batch.",
		Buckets: prometheus.DefBuckets,
	})
)
