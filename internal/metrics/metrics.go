package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LoginAttempts counts /auth/login outcomes: success, rejected, error, throttled.
	LoginAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "maratonas_login_attempts_total",
		Help: "Login attempts by outcome",
	}, []string{"outcome"})

	// AuthorizationDenials counts mutations refused by the permission predicates.
	AuthorizationDenials = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "maratonas_authorization_denials_total",
		Help: "Privileged actions denied, by permission and role",
	}, []string{"permission", "role"})

	// TokenRevocations counts logouts that revoked a bearer token.
	TokenRevocations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "maratonas_token_revocations_total",
		Help: "Bearer tokens revoked through /auth/logout",
	})
)

const (
	OutcomeSuccess   = "success"
	OutcomeRejected  = "rejected"
	OutcomeError     = "error"
	OutcomeThrottled = "throttled"
)
