package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments for the intake core.
type Metrics struct {
	ApplicationsCreated  prometheus.Counter
	ApplicationsArchived prometheus.Counter
	Transitions          *prometheus.CounterVec
	TransitionBypasses   prometheus.Counter
	EvaluationCacheHits  prometheus.Counter
	EvaluationCalls      prometheus.Counter
	EvaluationFailures   prometheus.Counter
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		ApplicationsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "leaselab_applications_created_total",
			Help: "Total number of rental applications created.",
		}),
		ApplicationsArchived: promauto.NewCounter(prometheus.CounterOpts{
			Name: "leaselab_applications_archived_total",
			Help: "Total number of rental applications archived.",
		}),
		Transitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "leaselab_stage_transitions_total",
			Help: "Total number of stage transitions by transition type.",
		}, []string{"transition_type"}),
		TransitionBypasses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "leaselab_stage_transition_bypasses_total",
			Help: "Total number of stage transitions recorded with a checklist bypass.",
		}),
		EvaluationCacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "leaselab_ai_evaluation_cache_hits_total",
			Help: "Total number of AI evaluation requests served from the cached result.",
		}),
		EvaluationCalls: promauto.NewCounter(prometheus.CounterOpts{
			Name: "leaselab_ai_evaluation_calls_total",
			Help: "Total number of calls issued to the external scoring service.",
		}),
		EvaluationFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "leaselab_ai_evaluation_failures_total",
			Help: "Total number of failed external scoring calls.",
		}),
	}
}
