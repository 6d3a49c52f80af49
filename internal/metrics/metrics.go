package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated Prometheus registry for the service.
	Registry = prometheus.NewRegistry()

	// HTTPRequests counts requests by method, path, and status.
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "path", "status"},
	)
	// HTTPDuration records request durations in seconds.
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "path", "status"},
	)

	// RunsTotal counts solver runs by outcome (done, failed, no_solution).
	RunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "carp_runs_total", Help: "Solver runs by outcome."},
		[]string{"outcome"},
	)
	// TrialsTotal counts multi-start trials by result (improved, kept, disqualified).
	TrialsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "carp_trials_total", Help: "Multi-start trials by result."},
		[]string{"result"},
	)
	// SolveDuration tracks wall-clock seconds per instance solve.
	SolveDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "carp_solve_seconds", Help: "Instance solve duration in seconds.", Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300}},
	)
	// PoolBusy gauges workers currently solving.
	PoolBusy = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "carp_pool_busy_workers", Help: "Workers currently solving an instance."},
	)

	// WebhookDeliveries counts webhook delivery outcomes by event type and status.
	WebhookDeliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "webhook_deliveries_total", Help: "Webhook deliveries by event type and status."},
		[]string{"event_type", "status"},
	)
	// WebhookLatency tracks webhook delivery latencies in milliseconds.
	WebhookLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "webhook_delivery_latency_ms", Help: "Webhook delivery latency in ms.", Buckets: []float64{10, 50, 100, 200, 500, 1000, 2000, 5000}},
		[]string{"event_type", "status"},
	)
)

// RegisterDefault registers all collectors on the dedicated registry.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(HTTPRequests)
		Registry.MustRegister(HTTPDuration)
		Registry.MustRegister(RunsTotal)
		Registry.MustRegister(TrialsTotal)
		Registry.MustRegister(SolveDuration)
		Registry.MustRegister(PoolBusy)
		Registry.MustRegister(WebhookDeliveries)
		Registry.MustRegister(WebhookLatency)
		// Go/process collectors on our registry
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

var regOnce sync.Once
