package auth

import "github.com/prometheus/client_golang/prometheus"

var (
	// DecisionsTotal counts authentication decisions by outcome. The detail
	// label carries the scheme on allow and the reject reason on reject.
	DecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gatekit_auth_decisions_total",
			Help: "Authentication decisions",
		},
		[]string{"outcome", "detail"},
	)

	// VerificationFailuresTotal counts verifier failures by failure kind.
	VerificationFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gatekit_auth_verification_failures_total",
			Help: "Token verification failures",
		},
		[]string{"provider", "kind"},
	)
)

func init() {
	prometheus.MustRegister(
		DecisionsTotal,
		VerificationFailuresTotal,
	)
}

func recordDecision(outcome, detail string) {
	DecisionsTotal.WithLabelValues(outcome, detail).Inc()
}

func recordVerificationFailure(provider string, kind FailureKind) {
	VerificationFailuresTotal.WithLabelValues(provider, string(kind)).Inc()
}
