package metrics

import "github.com/prometheus/client_golang/prometheus"

// FlowMetrics exposes counters/histograms for conversation flows and the
// collaborator API.
type FlowMetrics struct {
	eventsTotal         *prometheus.CounterVec
	outcomesTotal       *prometheus.CounterVec
	busyTotal           *prometheus.CounterVec
	voiceTimeoutsTotal  *prometheus.CounterVec
	collaboratorLatency *prometheus.HistogramVec
	activeSessions      prometheus.Gauge
}

func NewFlowMetrics(reg prometheus.Registerer) *FlowMetrics {
	m := &FlowMetrics{
		eventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hospital",
			Subsystem: "conversation",
			Name:      "events_total",
			Help:      "Inbound conversation events by channel, flow and type",
		}, []string{"channel", "flow", "event_type"}),
		outcomesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hospital",
			Subsystem: "conversation",
			Name:      "flow_outcomes_total",
			Help:      "Finished flow runs by outcome",
		}, []string{"channel", "flow", "outcome"}),
		busyTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hospital",
			Subsystem: "conversation",
			Name:      "busy_refusals_total",
			Help:      "Events refused because the session was still processing",
		}, []string{"channel"}),
		voiceTimeoutsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hospital",
			Subsystem: "voice",
			Name:      "timeouts_total",
			Help:      "Voice response windows that expired, by result",
		}, []string{"result"}),
		collaboratorLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "hospital",
			Subsystem: "collaborator",
			Name:      "request_duration_seconds",
			Help:      "Latency of hospital API calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation", "status"}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "hospital",
			Subsystem: "conversation",
			Name:      "active_sessions",
			Help:      "Sessions with in-memory runtime state",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.eventsTotal, m.outcomesTotal, m.busyTotal, m.voiceTimeoutsTotal, m.collaboratorLatency, m.activeSessions)
	return m
}

func (m *FlowMetrics) ObserveEvent(channel, flow, eventType string) {
	if m == nil {
		return
	}
	if flow == "" {
		flow = "menu"
	}
	m.eventsTotal.WithLabelValues(channel, flow, eventType).Inc()
}

func (m *FlowMetrics) ObserveOutcome(channel, flow, outcome string) {
	if m == nil {
		return
	}
	m.outcomesTotal.WithLabelValues(channel, flow, outcome).Inc()
}

func (m *FlowMetrics) ObserveBusy(channel string) {
	if m == nil {
		return
	}
	m.busyTotal.WithLabelValues(channel).Inc()
}

// ObserveVoiceTimeout records an expired window; autoStopped marks the one
// that ended the session.
func (m *FlowMetrics) ObserveVoiceTimeout(autoStopped bool) {
	if m == nil {
		return
	}
	result := "retry"
	if autoStopped {
		result = "auto_stop"
	}
	m.voiceTimeoutsTotal.WithLabelValues(result).Inc()
}

// ObserveCollaborator implements hospital.Observer.
func (m *FlowMetrics) ObserveCollaborator(operation, status string, seconds float64) {
	if m == nil {
		return
	}
	m.collaboratorLatency.WithLabelValues(operation, status).Observe(seconds)
}

func (m *FlowMetrics) SetActiveSessions(n int) {
	if m == nil {
		return
	}
	m.activeSessions.Set(float64(n))
}
