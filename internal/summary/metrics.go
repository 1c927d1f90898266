package summary

import "github.com/prometheus/client_golang/prometheus"

// Outcome labels for the generation counter.
const (
	outcomeCacheHit     = "cache_hit"
	outcomeDeduplicated = "deduplicated"
	outcomeSuccess      = "success"
	outcomeFailure      = "failure"
	outcomeCancelled    = "cancelled"
	outcomeRejected     = "rejected"
)

// Metrics holds the prometheus collectors of the summary core. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	generations   *prometheus.CounterVec
	inFlight      prometheus.Gauge
	notifications *prometheus.CounterVec
}

// NewMetrics creates the summary collectors and registers them with
// registry. It returns nil when registry is nil.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		return nil
	}

	m := &Metrics{
		generations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lexdesk_summary_generations_total",
				Help: "Summary generation calls by outcome",
			},
			[]string{"outcome"},
		),
		inFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "lexdesk_summary_requests_in_flight",
				Help: "Backend summary requests currently registered",
			},
		),
		notifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lexdesk_summary_notifications_total",
				Help: "Completion notifications by delivery result",
			},
			[]string{"result"},
		),
	}

	registry.MustRegister(m.generations, m.inFlight, m.notifications)

	return m
}

func (m *Metrics) observeOutcome(outcome string) {
	if m != nil {
		m.generations.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) requestStarted() {
	if m != nil {
		m.inFlight.Inc()
	}
}

func (m *Metrics) requestFinished() {
	if m != nil {
		m.inFlight.Dec()
	}
}

func (m *Metrics) notificationDelivered() {
	if m != nil {
		m.notifications.WithLabelValues("delivered").Inc()
	}
}

func (m *Metrics) notificationDropped() {
	if m != nil {
		m.notifications.WithLabelValues("dropped").Inc()
	}
}
