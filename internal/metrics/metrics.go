package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	OutcomeOK         = "ok"
	OutcomeValidation = "validation"
	OutcomePermission = "permission"
	OutcomeState      = "state"
	OutcomeNotFound   = "not_found"
	OutcomeConflict   = "conflict"
	OutcomeError      = "error"
)

// Ledger holds the service counters. A nil *Ledger records nothing.
type Ledger struct {
	operations *prometheus.CounterVec
	retries    *prometheus.CounterVec
}

func NewLedger(reg prometheus.Registerer) *Ledger {
	m := &Ledger{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "contract_ledger_operations_total",
			Help: "Ledger operations by outcome.",
		}, []string{"operation", "outcome"}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "contract_ledger_retries_total",
			Help: "Operations re-run after a concurrent update.",
		}, []string{"operation"}),
	}
	reg.MustRegister(m.operations, m.retries)
	return m
}

func (m *Ledger) Observe(operation, outcome string) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(operation, outcome).Inc()
}

func (m *Ledger) Retry(operation string) {
	if m == nil {
		return
	}
	m.retries.WithLabelValues(operation).Inc()
}
