package client

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker/v2"
)

// Submission outcomes
const (
	OutcomeAccepted    = "accepted"
	OutcomeRejected    = "rejected"
	OutcomeUnavailable = "unavailable"
)

var (
	breakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "storefront_circuit_breaker_state",
			Help: "Current state of the storefront API circuit breaker (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	submissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_submissions_total",
			Help: "Order and service request submissions by outcome",
		},
		[]string{"kind", "outcome"},
	)
)

func init() {
	prometheus.MustRegister(breakerState)
	prometheus.MustRegister(submissionsTotal)
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return OutcomeAccepted
	case isRejected(err):
		return OutcomeRejected
	default:
		return OutcomeUnavailable
	}
}
