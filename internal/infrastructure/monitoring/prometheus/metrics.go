package prometheus

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/turtacn/molgrid/internal/domain/molecule"
)

// GridMetrics holds the data-layer metrics.
type GridMetrics struct {
	CacheLookupsTotal   CounterVec
	ParsesTotal         CounterVec
	ParseDuration       HistogramVec
	ParsedAtoms         HistogramVec
	BatchesTotal        CounterVec
	BatchDuration       HistogramVec
	ExamplesTotal       CounterVec
	ForwardDuration     HistogramVec
	AtomBufferCapacity  GaugeVec
	AtomBufferAllocs    CounterVec
	PrefetchQueueDepth  GaugeVec
	HTTPRequestsTotal   CounterVec
	HTTPRequestDuration HistogramVec
}

var (
	DefaultParseDurationBuckets = []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, 1}
	DefaultBatchDurationBuckets = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30}
	DefaultAtomCountBuckets     = []float64{10, 25, 50, 100, 250, 1000, 2500, 5000, 10000}
)

var _ molecule.CacheObserver = (*GridMetrics)(nil)

// NewGridMetrics registers all data-layer metrics on c.
func NewGridMetrics(c MetricsCollector) *GridMetrics {
	return &GridMetrics{
		CacheLookupsTotal: c.RegisterCounter("cache_lookups_total",
			"Geometry cache lookups by tier and result.", "tier", "result"),
		ParsesTotal: c.RegisterCounter("structure_parses_total",
			"Structures loaded from source and built into grid geometry.", "role", "status"),
		ParseDuration: c.RegisterHistogram("structure_parse_duration_seconds",
			"Time to load and build one structure.", DefaultParseDurationBuckets, "role"),
		ParsedAtoms: c.RegisterHistogram("structure_atoms",
			"Stored atoms per built structure.", DefaultAtomCountBuckets, "role"),
		BatchesTotal: c.RegisterCounter("batches_total",
			"Assembled batches by mode and status.", "mode", "status"),
		BatchDuration: c.RegisterHistogram("batch_duration_seconds",
			"Time to assemble one batch.", DefaultBatchDurationBuckets, "mode"),
		ExamplesTotal: c.RegisterCounter("examples_total",
			"Examples placed into batches by class.", "class"),
		ForwardDuration: c.RegisterHistogram("grid_forward_duration_seconds",
			"Time to rasterize one example.", nil, "backend"),
		AtomBufferCapacity: c.RegisterGauge("atom_buffer_capacity",
			"Atoms the accelerator buffer can hold without reallocation."),
		AtomBufferAllocs: c.RegisterCounter("atom_buffer_allocations_total",
			"Accelerator buffer reallocations."),
		PrefetchQueueDepth: c.RegisterGauge("prefetch_queue_depth",
			"Batches waiting in the prefetch queue."),
		HTTPRequestsTotal: c.RegisterCounter("http_requests_total",
			"HTTP requests by method, route and status.", "method", "route", "status"),
		HTTPRequestDuration: c.RegisterHistogram("http_request_duration_seconds",
			"HTTP request latency.", nil, "method", "route"),
	}
}

func (m *GridMetrics) ObserveCacheLookup(tier, result string) {
	m.CacheLookupsTotal.WithLabelValues(tier, result).Inc()
}

func (m *GridMetrics) ObserveParse(role string, atoms int, elapsed time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.ParsesTotal.WithLabelValues(role, status).Inc()
	m.ParseDuration.WithLabelValues(role).Observe(elapsed.Seconds())
	if err == nil {
		m.ParsedAtoms.WithLabelValues(role).Observe(float64(atoms))
	}
}

// ObserveBatch records one assembled batch and its class mix.
func (m *GridMetrics) ObserveBatch(mode string, actives, decoys int, elapsed time.Duration, err error) {
	if err != nil {
		m.BatchesTotal.WithLabelValues(mode, "error").Inc()
		return
	}
	m.BatchesTotal.WithLabelValues(mode, "ok").Inc()
	m.BatchDuration.WithLabelValues(mode).Observe(elapsed.Seconds())
	m.ExamplesTotal.WithLabelValues("active").Add(float64(actives))
	m.ExamplesTotal.WithLabelValues("decoy").Add(float64(decoys))
}

func (m *GridMetrics) ObserveForward(backend string, elapsed time.Duration) {
	m.ForwardDuration.WithLabelValues(backend).Observe(elapsed.Seconds())
}

// ObserveAtomBuffer publishes the accelerator buffer capacity and adds
// newAllocs reallocations.
func (m *GridMetrics) ObserveAtomBuffer(capacity int, newAllocs int) {
	m.AtomBufferCapacity.WithLabelValues().Set(float64(capacity))
	if newAllocs > 0 {
		m.AtomBufferAllocs.WithLabelValues().Add(float64(newAllocs))
	}
}

func (m *GridMetrics) SetPrefetchDepth(n int) {
	m.PrefetchQueueDepth.WithLabelValues().Set(float64(n))
}

func (m *GridMetrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// NewNoopCollector returns a collector whose metrics discard observations.
// It serves an empty exposition.
func NewNoopCollector() MetricsCollector { return noopCollector{} }

type noopCollector struct{}

func (noopCollector) RegisterCounter(string, string, ...string) CounterVec { return noopCounterVec{} }
func (noopCollector) RegisterGauge(string, string, ...string) GaugeVec     { return noopGaugeVec{} }
func (noopCollector) RegisterHistogram(string, string, []float64, ...string) HistogramVec {
	return noopHistogramVec{}
}
func (noopCollector) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}
func (noopCollector) Gatherer() prometheus.Gatherer { return prometheus.NewRegistry() }

//Personal.AI order the ending
