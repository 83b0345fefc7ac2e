package webhook

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the delivery engine's Prometheus collectors. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	TriggersTotal   *prometheus.CounterVec
	AttemptsTotal   *prometheus.CounterVec
	AttemptDuration *prometheus.HistogramVec
	ExhaustedTotal  *prometheus.CounterVec
	InFlight        prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		TriggersTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webhook_triggers_total",
				Help: "Total number of trigger calls by event type",
			},
			[]string{"event"},
		),
		AttemptsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webhook_delivery_attempts_total",
				Help: "Total number of HTTP delivery attempts by event type and result",
			},
			[]string{"event", "result"},
		),
		AttemptDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "webhook_delivery_attempt_duration_seconds",
				Help:    "Wall-clock duration of a single delivery attempt",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"event"},
		),
		ExhaustedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webhook_deliveries_exhausted_total",
				Help: "Delivery sequences that failed on every attempt",
			},
			[]string{"event"},
		),
		InFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "webhook_deliveries_in_flight",
				Help: "Delivery sequences currently running",
			},
		),
	}
	if reg != nil {
		reg.MustRegister(m.TriggersTotal, m.AttemptsTotal, m.AttemptDuration, m.ExhaustedTotal, m.InFlight)
	}
	return m
}

func (m *Metrics) trigger(e EventType) {
	if m == nil {
		return
	}
	m.TriggersTotal.WithLabelValues(e.String()).Inc()
}

func (m *Metrics) attempt(e EventType, o AttemptOutcome) {
	if m == nil {
		return
	}
	result := "failure"
	switch {
	case o.Success:
		result = "success"
	case o.StatusCode == nil:
		result = "transport_error"
	}
	m.AttemptsTotal.WithLabelValues(e.String(), result).Inc()
	m.AttemptDuration.WithLabelValues(e.String()).Observe(o.Duration.Seconds())
}

func (m *Metrics) exhausted(e EventType) {
	if m == nil {
		return
	}
	m.ExhaustedTotal.WithLabelValues(e.String()).Inc()
}

func (m *Metrics) sequenceStarted() {
	if m == nil {
		return
	}
	m.InFlight.Inc()
}

func (m *Metrics) sequenceDone() {
	if m == nil {
		return
	}
	m.InFlight.Dec()
}
