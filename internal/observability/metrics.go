package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "alert_card"

// Metrics holds the Prometheus counters, histograms, and gauges for the card service.
type Metrics struct {
	StatePushes      prometheus.Counter
	AlertsNormalized prometheus.Counter
	AlertsDropped    prometheus.Counter
	AlertsVisible    prometheus.Gauge
	PipelineRunning  prometheus.Gauge

	// Render metrics.
	Renders        prometheus.Counter
	RendersSkipped prometheus.Counter
	RenderDuration prometheus.Histogram

	SourceErrors *prometheus.CounterVec // labels: source={websocket,rest,mqtt,file}

	// Interaction metrics.
	Gestures    *prometheus.CounterVec // labels: kind={tap,double_tap,hold}
	Toggles     prometheus.Counter
	Signals     *prometheus.CounterVec // labels: kind={more-info,navigate,url,call-service}, sink, outcome={success,error}
	LiveClients prometheus.Gauge
}

// NewMetrics creates and registers all service metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	m := newMetrics()
	prometheus.NewRegistry().MustRegister(m.collectors()...)
	return m
}

func newMetrics() *Metrics {
	return &Metrics{
		StatePushes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "state_pushes_total",
			Help:      "Total host state snapshots received from the source.",
		}),
		AlertsNormalized: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_normalized_total",
			Help:      "Total alert records kept after normalization.",
		}),
		AlertsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_dropped_total",
			Help:      "Total raw alert records dropped as empty or malformed.",
		}),
		AlertsVisible: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "alerts_visible",
			Help:      "Alerts shown after filtering and the item cap.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 when the pipeline is active, 0 when shut down.",
		}),
		Renders: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "renders_total",
			Help:      "Total card renders published to live clients.",
		}),
		RendersSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "renders_skipped_total",
			Help:      "State pushes whose alert fingerprint was unchanged.",
		}),
		RenderDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "render_duration_seconds",
			Help:      "Duration of normalize, select, group and render for one push.",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}),
		SourceErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_errors_total",
			Help:      "State source failures by source.",
		}, []string{"source"}),
		Gestures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gestures_total",
			Help:      "Recognised row gestures by kind.",
		}, []string{"kind"}),
		Toggles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "detail_toggles_total",
			Help:      "Total expand/collapse toggles.",
		}),
		Signals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "signals_total",
			Help:      "Outbound action signals by kind, sink and outcome.",
		}, []string{"kind", "sink", "outcome"}),
		LiveClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "live_clients",
			Help:      "Connected dashboard browsers.",
		}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.StatePushes,
		m.AlertsNormalized,
		m.AlertsDropped,
		m.AlertsVisible,
		m.PipelineRunning,
		m.Renders,
		m.RendersSkipped,
		m.RenderDuration,
		m.SourceErrors,
		m.Gestures,
		m.Toggles,
		m.Signals,
		m.LiveClients,
	}
}
