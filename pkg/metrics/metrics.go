package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CheckoutMetrics counts session lifecycle events.
type CheckoutMetrics struct {
	created   prometheus.Counter
	completed prometheus.Counter
}

// NewCheckoutMetrics registers the checkout metrics on the provided registerer.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	created := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "checkout_sessions_created_total",
		Help: "Checkout sessions created.",
	})
	completed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "checkout_sessions_completed_total",
		Help: "Checkout sessions completed with a confirmed payment.",
	})
	reg.MustRegister(created, completed)
	return &CheckoutMetrics{created: created, completed: completed}
}

func (c *CheckoutMetrics) IncCreated() {
	if c == nil || c.created == nil {
		return
	}
	c.created.Inc()
}

func (c *CheckoutMetrics) IncCompleted() {
	if c == nil || c.completed == nil {
		return
	}
	c.completed.Inc()
}

// AgentMetrics records the tool-calling loop's behavior.
type AgentMetrics struct {
	modelCalls    *prometheus.CounterVec
	toolDispatch  *prometheus.CounterVec
	loopTurns     prometheus.Histogram
	loopFailures  *prometheus.CounterVec
	modelDuration prometheus.Histogram
}

// NewAgentMetrics registers the agent loop metrics on the provided registerer.
func NewAgentMetrics(reg prometheus.Registerer) *AgentMetrics {
	if reg == nil {
		return &AgentMetrics{}
	}
	modelCalls := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "agent_model_calls_total",
		Help: "Language model calls by outcome.",
	}, []string{"outcome"})
	toolDispatch := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "agent_tool_dispatches_total",
		Help: "Tool dispatches by tool name and outcome.",
	}, []string{"tool", "outcome"})
	loopTurns := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "agent_loop_turns",
		Help:    "Model turns consumed per conversation run.",
		Buckets: []float64{1, 2, 3, 4, 5, 7, 10},
	})
	loopFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "agent_loop_failures_total",
		Help: "Loop runs that ended in a fatal error, by reason.",
	}, []string{"reason"})
	modelDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "agent_model_call_duration_seconds",
		Help:    "Duration of language model calls.",
		Buckets: prometheus.DefBuckets,
	})
	reg.MustRegister(modelCalls, toolDispatch, loopTurns, loopFailures, modelDuration)
	return &AgentMetrics{
		modelCalls:    modelCalls,
		toolDispatch:  toolDispatch,
		loopTurns:     loopTurns,
		loopFailures:  loopFailures,
		modelDuration: modelDuration,
	}
}

func (a *AgentMetrics) IncModelCall(outcome string) {
	if a == nil || a.modelCalls == nil {
		return
	}
	a.modelCalls.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func (a *AgentMetrics) IncToolDispatch(tool, outcome string) {
	if a == nil || a.toolDispatch == nil {
		return
	}
	a.toolDispatch.WithLabelValues(normalizeLabel(tool), normalizeLabel(outcome)).Inc()
}

func (a *AgentMetrics) ObserveLoopTurns(turns int) {
	if a == nil || a.loopTurns == nil {
		return
	}
	a.loopTurns.Observe(float64(turns))
}

func (a *AgentMetrics) IncLoopFailure(reason string) {
	if a == nil || a.loopFailures == nil {
		return
	}
	a.loopFailures.WithLabelValues(normalizeLabel(reason)).Inc()
}

func (a *AgentMetrics) ObserveModelDuration(d time.Duration) {
	if a == nil || a.modelDuration == nil {
		return
	}
	a.modelDuration.Observe(d.Seconds())
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
