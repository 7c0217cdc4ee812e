package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service.
type Metrics struct {
	Turns           *prometheus.CounterVec
	TurnErrors      *prometheus.CounterVec
	TokenRejections prometheus.Counter
	ExternalErrors  *prometheus.CounterVec
	TurnLatency     prometheus.Histogram
	DiagnosesSaved  prometheus.Counter
	WSConnections   prometheus.Gauge
	WSMessages      *prometheus.CounterVec
	profiler        *turnProfiler
}

// NewMetrics registers instruments on the default Prometheus registry.
func NewMetrics(namespace string) *Metrics {
	return NewMetricsWith(namespace, prometheus.DefaultRegisterer)
}

// NewMetricsWith registers instruments on reg. Tests pass a fresh registry.
func NewMetricsWith(namespace string, reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Turns: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "interview_turns_total",
			Help:      "Completed interview turns by policy decision.",
		}, []string{"decision"}),
		TurnErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "interview_turn_errors_total",
			Help:      "Failed interview turns by error class.",
		}, []string{"class"}),
		TokenRejections: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "continuation_token_rejections_total",
			Help:      "Continuation tokens that failed to decode and restarted the interview.",
		}),
		ExternalErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "external_errors_total",
			Help:      "External collaborator failures by service and operation.",
		}, []string{"service", "op"}),
		TurnLatency: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "interview_turn_latency_ms",
			Help:      "End-to-end latency of one interview turn in milliseconds.",
			Buckets:   []float64{5, 50, 250, 500, 1000, 2000, 5000, 10000, 30000},
		}),
		DiagnosesSaved: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "diagnosis_records_saved_total",
			Help:      "Diagnosis history records persisted.",
		}),
		WSConnections: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ws_connections",
			Help:      "Open interview websocket connections.",
		}),
		WSMessages: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ws_messages_total",
			Help:      "WebSocket messages by direction and type.",
		}, []string{"direction", "type"}),
		profiler: newTurnProfiler(256),
	}
}

// ObserveTurn records a completed turn. Safe on a nil receiver.
func (m *Metrics) ObserveTurn(decision string, d time.Duration) {
	if m == nil {
		return
	}
	m.Turns.WithLabelValues(decision).Inc()
	m.TurnLatency.Observe(float64(d.Milliseconds()))
	m.profiler.record("turn_total", durationMS(d))
	m.profiler.count(decision)
}

// ObserveStage records the latency of one step inside a turn.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.profiler.record(stage, durationMS(d))
}

func (m *Metrics) ObserveTurnError(class string) {
	if m == nil {
		return
	}
	m.TurnErrors.WithLabelValues(class).Inc()
}

func (m *Metrics) ObserveTokenRejected() {
	if m == nil {
		return
	}
	m.TokenRejections.Inc()
	m.profiler.count("token_rejected")
}

func (m *Metrics) ObserveExternalError(service, op string) {
	if m == nil {
		return
	}
	m.ExternalErrors.WithLabelValues(service, op).Inc()
}

func (m *Metrics) ObserveDiagnosisSaved() {
	if m == nil {
		return
	}
	m.DiagnosesSaved.Inc()
}

// TurnProfile returns rolling latency percentiles for recent turns.
func (m *Metrics) TurnProfile() TurnProfile {
	if m == nil {
		return TurnProfile{GeneratedAt: time.Now().UTC(), Stages: []StageLatency{}}
	}
	return m.profiler.profile()
}

func durationMS(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
