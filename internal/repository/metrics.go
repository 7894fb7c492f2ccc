package repository

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/songzhibin97/portfolio/pkg/portfolio"
)

// Operation outcomes
const (
	OutcomeSuccess     = "success"
	OutcomeClientError = "client_error"
	OutcomeNotFound    = "not_found"
	OutcomeServerError = "server_error"
)

// Metrics counts repository operations per collection, operation and outcome
type Metrics struct {
	operations *prometheus.CounterVec
}

// NewMetrics creates the repository metrics and registers them with reg.
// A counter already registered under the same name is reused, so every
// repository of a process shares one series family.
func NewMetrics(namespace string, reg prometheus.Registerer) (*Metrics, error) {
	operations := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "repository",
			Name:      "operations_total",
			Help:      "Total number of repository operations",
		},
		[]string{"collection", "operation", "outcome"},
	)

	if reg != nil {
		if err := reg.Register(operations); err != nil {
			var are prometheus.AlreadyRegisteredError
			if !errors.As(err, &are) {
				return nil, err
			}
			existing, ok := are.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				return nil, err
			}
			operations = existing
		}
	}

	return &Metrics{operations: operations}, nil
}

// Operations returns the underlying counter
func (m *Metrics) Operations() *prometheus.CounterVec {
	return m.operations
}

func (m *Metrics) observe(collection, operation string, err error) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(collection, operation, outcome(err)).Inc()
}

func outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case portfolio.IsValidationError(err):
		return OutcomeClientError
	case portfolio.IsNotFoundError(err):
		return OutcomeNotFound
	default:
		return OutcomeServerError
	}
}
