package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/nerrad567/gray-logic-fingerprint/internal/fingerprint"
	"github.com/nerrad567/gray-logic-fingerprint/internal/template"
)

const namespace = "fingerprint"

// Collector holds the node's Prometheus metrics and implements
// fingerprint.EventSink so it can be fed straight from the service.
type Collector struct {
	registry *prometheus.Registry

	scans         *prometheus.CounterVec
	confidence    prometheus.Histogram
	admin         *prometheus.CounterVec
	adminDuration *prometheus.HistogramVec
	templates     prometheus.Gauge
	capacity      prometheus.Gauge
	mode          *prometheus.GaugeVec
}

// New creates a Collector on its own registry, together with the Go
// runtime and process collectors.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		scans: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "scans_total",
				Help:      "Scan decisions by result.",
			},
			[]string{"result"},
		),
		confidence: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "match_confidence",
				Help:      "Confidence score of successful matches.",
				Buckets:   []float64{25, 50, 75, 100, 150, 200, 300},
			},
		),
		admin: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "admin_operations_total",
				Help:      "Enroll, delete and empty operations by outcome.",
			},
			[]string{"op", "result"},
		),
		adminDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "admin_operation_duration_seconds",
				Help:      "Duration of admin operations in seconds.",
				Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 20, 30},
			},
			[]string{"op"},
		),
		templates: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "templates_stored",
			Help:      "Templates currently stored on the sensor.",
		}),
		capacity: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "library_capacity",
			Help:      "Template slots available on the sensor.",
		}),
		mode: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "mode",
				Help:      "1 for the active operating mode, 0 otherwise.",
			},
			[]string{"mode"},
		),
	}

	c.registry.MustRegister(
		c.scans, c.confidence, c.admin, c.adminDuration,
		c.templates, c.capacity, c.mode,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// Registry returns the registry backing the /metrics endpoint.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// SetCapacity records the sensor's library size.
func (c *Collector) SetCapacity(n int) {
	c.capacity.Set(float64(n))
}

func (c *Collector) ModeChanged(mode fingerprint.Mode) {
	for _, m := range []fingerprint.Mode{fingerprint.ModeScan, fingerprint.ModeEnroll, fingerprint.ModeDelete, fingerprint.ModeEmpty} {
		v := 0.0
		if m == mode {
			v = 1
		}
		c.mode.WithLabelValues(m.String()).Set(v)
	}
}

func (c *Collector) ScanMatched(ev fingerprint.ScanEvent) {
	c.scans.WithLabelValues(string(ev.Action)).Inc()
	c.confidence.Observe(float64(ev.Confidence))
}

func (c *Collector) ScanRejected(ev fingerprint.ScanEvent) {
	c.scans.WithLabelValues(string(template.ActionUnauthorized)).Inc()
}

func (c *Collector) TemplatesUpdated(records []template.Record) {
	c.templates.Set(float64(len(records)))
}

func (c *Collector) AdminCompleted(ev fingerprint.AdminEvent) {
	c.admin.WithLabelValues(ev.Op.String(), ev.Result()).Inc()
	c.adminDuration.WithLabelValues(ev.Op.String()).Observe(ev.Duration.Seconds())
}
