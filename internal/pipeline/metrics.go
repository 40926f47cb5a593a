package pipeline

import "github.com/prometheus/client_golang/prometheus"

// CompleteEvent summarizes one finished run for the OnComplete hook.
type CompleteEvent struct {
	Escalated bool
	Sent      bool
	Urgency   string
	Category  string
	Duration  float64
}

// EngineHooks are optional callbacks the engine fires at observation
// points. Any field may be nil.
type EngineHooks struct {
	// OnLLMCall fires after each completion request, successful or not.
	OnLLMCall func(step string, duration float64, isError bool)

	// OnStepError fires when a step records a tagged error, absorbed or not.
	OnStepError func(kind ErrorKind)

	// OnDispatch fires with the outcome of the sender-facing send.
	OnDispatch func(ok bool)

	// OnReviewerNotify fires with the outcome of the reviewer notification.
	OnReviewerNotify func(ok bool)

	// OnComplete fires once per run, after dispatch.
	OnComplete func(e *CompleteEvent)
}

func (h EngineHooks) onLLMCall(step string, duration float64, isError bool) {
	if h.OnLLMCall != nil {
		h.OnLLMCall(step, duration, isError)
	}
}

func (h EngineHooks) onStepError(kind ErrorKind) {
	if h.OnStepError != nil {
		h.OnStepError(kind)
	}
}

func (h EngineHooks) onDispatch(ok bool) {
	if h.OnDispatch != nil {
		h.OnDispatch(ok)
	}
}

func (h EngineHooks) onReviewerNotify(ok bool) {
	if h.OnReviewerNotify != nil {
		h.OnReviewerNotify(ok)
	}
}

func (h EngineHooks) onComplete(e *CompleteEvent) {
	if h.OnComplete != nil {
		h.OnComplete(e)
	}
}

// Metrics holds Prometheus metrics for the pipeline subsystem.
type Metrics struct {
	RunsTotal        *prometheus.CounterVec
	RunDuration      *prometheus.HistogramVec
	StepErrorsTotal  *prometheus.CounterVec
	LLMCallsTotal    *prometheus.CounterVec
	LLMDuration      *prometheus.HistogramVec
	DispatchesTotal  *prometheus.CounterVec
	ReviewerNotifies *prometheus.CounterVec
}

// NewMetrics registers and returns pipeline metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "frontdesk_runs_total",
			Help: "Total pipeline runs by outcome, urgency, and category.",
		}, []string{"outcome", "urgency", "category"}),
		RunDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "frontdesk_run_duration_seconds",
			Help:    "Duration of pipeline runs in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10), // 0.5s .. ~256s
		}, []string{"outcome"}),
		StepErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "frontdesk_step_errors_total",
			Help: "Total step errors by kind, absorbed failures included.",
		}, []string{"kind"}),
		LLMCallsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "frontdesk_llm_calls_total",
			Help: "Total completion provider calls by pipeline step and status.",
		}, []string{"step", "status"}),
		LLMDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "frontdesk_llm_call_duration_seconds",
			Help:    "Duration of individual completion calls in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 8), // 0.5s .. ~64s
		}, []string{"step"}),
		DispatchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "frontdesk_dispatches_total",
			Help: "Total sender-facing reply sends by result.",
		}, []string{"result"}),
		ReviewerNotifies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "frontdesk_reviewer_notifications_total",
			Help: "Total reviewer escalation notifications by result.",
		}, []string{"result"}),
	}

	reg.MustRegister(
		m.RunsTotal,
		m.RunDuration,
		m.StepErrorsTotal,
		m.LLMCallsTotal,
		m.LLMDuration,
		m.DispatchesTotal,
		m.ReviewerNotifies,
	)

	return m
}

// Hooks returns an EngineHooks that increments the corresponding metrics.
func (m *Metrics) Hooks() EngineHooks {
	return EngineHooks{
		OnLLMCall: func(step string, duration float64, isError bool) {
			status := "success"
			if isError {
				status = "error"
			}
			m.LLMCallsTotal.WithLabelValues(step, status).Inc()
			m.LLMDuration.WithLabelValues(step).Observe(duration)
		},
		OnStepError: func(kind ErrorKind) {
			m.StepErrorsTotal.WithLabelValues(string(kind)).Inc()
		},
		OnDispatch: func(ok bool) {
			result := "sent"
			if !ok {
				result = "error"
			}
			m.DispatchesTotal.WithLabelValues(result).Inc()
		},
		OnReviewerNotify: func(ok bool) {
			result := "sent"
			if !ok {
				result = "error"
			}
			m.ReviewerNotifies.WithLabelValues(result).Inc()
		},
		OnComplete: func(e *CompleteEvent) {
			outcome := "auto_sent"
			switch {
			case !e.Sent:
				outcome = "dispatch_failed"
			case e.Escalated:
				outcome = "escalated"
			}
			m.RunsTotal.WithLabelValues(outcome, e.Urgency, e.Category).Inc()
			m.RunDuration.WithLabelValues(outcome).Observe(e.Duration)
		},
	}
}
