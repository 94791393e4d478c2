// Package metrics exposes Prometheus counters for ledger activity.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"          // Metric types
	"github.com/prometheus/client_golang/prometheus/promauto" // Auto-registration
)

// Outcome labels
const (
	OutcomeOK       = "ok"
	OutcomeDenied   = "denied"
	OutcomeInvalid  = "invalid"
	OutcomeNotFound = "not_found"
	OutcomeError    = "error"
)

var (
	// LedgerOperations counts ledger operations by name and outcome
	LedgerOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "group_savings",
		Name:      "ledger_operations_total",
		Help:      "Ledger operations by operation and outcome.",
	}, []string{"operation", "outcome"})

	// LedgerMovedMinor sums absolute balance movements in minor units by history type
	LedgerMovedMinor = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "group_savings",
		Name:      "ledger_moved_minor_units_total",
		Help:      "Absolute balance changes in minor units by direction.",
	}, []string{"type"})

	// OTPIssued counts password reset codes sent
	OTPIssued = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "group_savings",
		Name:      "otp_issued_total",
		Help:      "Password reset codes issued.",
	})
)
