package service

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Shivanand-hulikatti/conference-lifecycle/internal/lifecycle"
)

// Outcomes recorded for every state-changing call.
const (
	outcomeApplied  = "applied"
	outcomeNoop     = "noop"
	outcomeRejected = "rejected"
	outcomeConflict = "conflict"
	outcomeFailed   = "failed"
)

// Metrics exposes Prometheus collectors for lifecycle activity.
type Metrics struct {
	transitions *prometheus.CounterVec
}

// NewMetrics registers the service collectors with reg. A collector that is
// already registered is reused, so several services may share one registry.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	transitions := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "conference",
			Name:      "transitions_total",
			Help:      "Lifecycle operations by entity, action and outcome.",
		},
		[]string{"entity", "action", "outcome"},
	)
	if err := reg.Register(transitions); err != nil {
		var already prometheus.AlreadyRegisteredError
		if !errors.As(err, &already) {
			return nil, err
		}
		transitions = already.ExistingCollector.(*prometheus.CounterVec)
	}
	return &Metrics{transitions: transitions}, nil
}

func (m *Metrics) observe(entity, action string, noop bool, err error) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(entity, action, outcomeOf(noop, err)).Inc()
}

func outcomeOf(noop bool, err error) string {
	var (
		validation *lifecycle.ValidationError
		illegal    *lifecycle.IllegalTransitionError
		capacity   *lifecycle.CapacityConflictError
	)
	switch {
	case err == nil && noop:
		return outcomeNoop
	case err == nil:
		return outcomeApplied
	case errors.As(err, &capacity):
		return outcomeConflict
	case errors.As(err, &validation), errors.As(err, &illegal):
		return outcomeRejected
	default:
		return outcomeFailed
	}
}
