package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// codeEvents cuenta transiciones del ciclo de vida de codigos.
	codeEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_code_events_total",
		Help: "Total number of verification and reset code lifecycle events",
	}, []string{"purpose", "event"})

	loginAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_login_attempts_total",
		Help: "Total number of login attempts by result",
	}, []string{"result"})
)

const (
	eventIssued   = "issued"
	eventReissued = "reissued"
	eventVerified = "verified"
	eventExpired  = "expired"
	eventMismatch = "mismatch"
)
