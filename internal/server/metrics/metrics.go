package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/revendaauto/backoffice/internal/server/uploads"
)

const namespace = "backoffice"

// Metrics holds the collectors of one server instance on its own registry.
type Metrics struct {
	registry          *prometheus.Registry
	negotiations      *prometheus.CounterVec
	directBytes       prometheus.Counter
	directDuration    prometheus.Histogram
	signatureAttempts *prometheus.CounterVec
	signatureIssued   prometheus.Counter
}

func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		negotiations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "uploads",
			Name:      "negotiations_total",
			Help:      "Upload negotiations by plan kind and outcome.",
		}, []string{"mode", "outcome"}),
		directBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "uploads",
			Name:      "direct_bytes_total",
			Help:      "Bytes received through the direct upload endpoint.",
		}),
		directDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "uploads",
			Name:      "direct_duration_seconds",
			Help:      "Time spent receiving and storing a direct upload.",
			Buckets:   prometheus.DefBuckets,
		}),
		signatureAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "signature",
			Name:      "attempts_total",
			Help:      "Signing link validations by outcome.",
		}, []string{"outcome"}),
		signatureIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "signature",
			Name:      "links_issued_total",
			Help:      "Signing links issued.",
		}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.negotiations,
		m.directBytes,
		m.directDuration,
		m.signatureAttempts,
		m.signatureIssued,
	)
	return m
}

func (m *Metrics) ObserveNegotiation(kind uploads.Kind, outcome string) {
	m.negotiations.WithLabelValues(string(kind), outcome).Inc()
}

func (m *Metrics) ObserveDirectUpload(size uint64, took time.Duration) {
	m.directBytes.Add(float64(size))
	m.directDuration.Observe(took.Seconds())
}

func (m *Metrics) ObserveSignatureAttempt(outcome string) {
	m.signatureAttempts.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveSignatureIssued() {
	m.signatureIssued.Inc()
}

// Handler serves this instance's registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
