package batch

import "github.com/prometheus/client_golang/prometheus"

// PollerHooks are optional callbacks fired by the poller. Any field may
// be nil.
type PollerHooks struct {
	// OnPoll fires once per completed poll batch.
	OnPoll func(s *Stats)
}

func (h PollerHooks) onPoll(s *Stats) {
	if h.OnPoll != nil {
		h.OnPoll(s)
	}
}

// Metrics holds Prometheus metrics for the batch subsystem.
type Metrics struct {
	PollsTotal    prometheus.Counter
	MessagesTotal *prometheus.CounterVec
}

// NewMetrics registers and returns batch metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		PollsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "frontdesk_polls_total",
			Help: "Total poll batches executed.",
		}),
		MessagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "frontdesk_poll_messages_total",
			Help: "Total polled messages by outcome.",
		}, []string{"outcome"}),
	}

	reg.MustRegister(m.PollsTotal, m.MessagesTotal)
	return m
}

// Hooks returns a PollerHooks that increments the corresponding metrics.
func (m *Metrics) Hooks() PollerHooks {
	return PollerHooks{
		OnPoll: func(s *Stats) {
			m.PollsTotal.Inc()
			m.MessagesTotal.WithLabelValues("auto_sent").Add(float64(s.AutoSent))
			m.MessagesTotal.WithLabelValues("requiring_review").Add(float64(s.RequiringReview))
			m.MessagesTotal.WithLabelValues("errored").Add(float64(s.Errored))
			m.MessagesTotal.WithLabelValues("skipped_self").Add(float64(s.SkippedSelf))
		},
	}
}
