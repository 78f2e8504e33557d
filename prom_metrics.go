package reqsched

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PromMetrics exports scheduler activity as Prometheus collectors.
type PromMetrics struct {
	submitted prometheus.Counter
	promoted  prometheus.Counter
	resolved  *prometheus.CounterVec
	pending   prometheus.Gauge
	active    prometheus.Gauge
}

// NewPromMetrics creates the collectors under namespace and registers them
// on reg. A nil reg uses prometheus.DefaultRegisterer.
func NewPromMetrics(namespace string, reg prometheus.Registerer) (*PromMetrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &PromMetrics{
		submitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_submitted_total",
			Help:      "Requests accepted by the scheduler.",
		}),
		promoted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_promoted_total",
			Help:      "Priority promotions of pending requests.",
		}),
		resolved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_resolved_total",
			Help:      "Fulfilled requests by outcome.",
		}, []string{"outcome"}),
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "requests_pending",
			Help:      "Requests waiting in the pending queue.",
		}),
		active: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "requests_active",
			Help:      "Requests currently executing.",
		}),
	}
	for _, c := range []prometheus.Collector{m.submitted, m.promoted, m.resolved, m.pending, m.active} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *PromMetrics) IncSubmitted() { m.submitted.Inc() }
func (m *PromMetrics) IncPromoted()  { m.promoted.Inc() }

func (m *PromMetrics) IncResolved(outcome string) {
	m.resolved.WithLabelValues(outcome).Inc()
}

func (m *PromMetrics) SetPending(n int) { m.pending.Set(float64(n)) }
func (m *PromMetrics) SetActive(n int)  { m.active.Set(float64(n)) }
