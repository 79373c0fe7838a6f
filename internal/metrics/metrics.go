// Package metrics holds the Prometheus collectors for the import pipeline.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tally"

// Registry owns a private Prometheus registry and every collector the
// service reports.
type Registry struct {
	reg *prometheus.Registry

	// HTTP
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Import pipeline
	ImportsTotal     *prometheus.CounterVec
	ImportDuration   *prometheus.HistogramVec
	RowsTotal        *prometheus.CounterVec
	DuplicateRows    *prometheus.CounterVec
	MappingDecisions *prometheus.CounterVec
	ProfilesAdopted  *prometheus.CounterVec

	// Mapping assistant
	AssistCallsTotal *prometheus.CounterVec
	AssistDuration   prometheus.Histogram
}

// New creates a Registry with Go runtime and process collectors attached.
func New() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	f := promauto.With(reg)

	return &Registry{
		reg: reg,

		HTTPRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests by route pattern, method, and status code",
			},
			[]string{"pattern", "method", "status_code"},
		),
		HTTPRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency in seconds",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"pattern", "method"},
		),

		ImportsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "imports_total",
				Help:      "Import phases run by entity, phase, and outcome",
			},
			[]string{"entity", "phase", "outcome"},
		),
		ImportDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "import_duration_seconds",
				Help:      "Import phase duration in seconds",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"phase"},
		),
		RowsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "import_rows_total",
				Help:      "Committed rows by entity and result",
			},
			[]string{"entity", "result"},
		),
		DuplicateRows: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "duplicate_rows_total",
				Help:      "Inspected rows by duplicate bucket",
			},
			[]string{"entity", "bucket"},
		),
		MappingDecisions: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "mapping_headers_total",
				Help:      "Inspected headers by mapping result",
			},
			[]string{"entity", "result"},
		),
		ProfilesAdopted: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "profiles_adopted_total",
				Help:      "Schema profile versions adopted by entity",
			},
			[]string{"entity"},
		),

		AssistCallsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "assist_calls_total",
				Help:      "Mapping assistant calls by outcome",
			},
			[]string{"outcome"},
		),
		AssistDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "assist_duration_seconds",
				Help:      "Mapping assistant round-trip time in seconds",
				Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 30},
			},
		),
	}
}

// Handler exposes the registry in the Prometheus text format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}

// Gatherer returns the underlying registry for inspection.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

// Middleware records request counts and latency keyed by the ServeMux
// pattern that matched, so path parameters do not explode cardinality.
func (r *Registry) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, req)

			pattern := req.Pattern
			if pattern == "" {
				pattern = "unmatched"
			}

			r.HTTPRequestsTotal.WithLabelValues(pattern, req.Method, strconv.Itoa(rec.status)).Inc()
			r.HTTPRequestDuration.WithLabelValues(pattern, req.Method).Observe(time.Since(start).Seconds())
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}
