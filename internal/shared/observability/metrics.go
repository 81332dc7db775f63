package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	ModuleOpenDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "surface_module_open_seconds",
		Help:    "Time spent opening a module file through a metadata provider.",
		Buckets: prometheus.DefBuckets,
	}, []string{"provider"})

	ModuleCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "surface_module_cache_hits_total",
		Help: "Total number of metadata cache hits.",
	})

	ModuleCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "surface_module_cache_misses_total",
		Help: "Total number of metadata cache misses.",
	})

	ModuleCacheEvictions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "surface_module_cache_evictions_total",
		Help: "Total number of least-recently-used cache evictions.",
	})

	OpenModuleHandles = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "surface_open_module_handles",
		Help: "Current number of provider handles held by the metadata cache.",
	})

	DependencyIndexBuildDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "surface_dependency_index_build_seconds",
		Help:    "Time spent scanning the package cache root for the shared dependency index.",
		Buckets: prometheus.DefBuckets,
	})

	DependencyIndexModules = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "surface_dependency_index_modules",
		Help: "Number of modules recorded in the shared dependency index.",
	})

	ExtractionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "surface_extraction_seconds",
		Help:    "Time spent extracting type models from an open module.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	CompareDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "surface_compare_seconds",
		Help:    "Time spent on a full API surface comparison.",
		Buckets: prometheus.DefBuckets,
	})

	ToolRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "surface_tool_requests_total",
		Help: "Total number of tool operations handled, by operation and outcome.",
	}, []string{"operation", "outcome"})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "surface_watcher_events_total",
		Help: "Total number of filesystem events observed under the package cache root.",
	})

	WatcherInvalidationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "surface_watcher_invalidations_total",
		Help: "Total number of debounced invalidation flushes triggered by the watcher.",
	})
)
