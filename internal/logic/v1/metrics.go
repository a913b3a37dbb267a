package v1

import "github.com/prometheus/client_golang/prometheus"

// Outcome label values.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultError   = "error"
)

// Signups counts signup attempts by result ("success", "duplicate", "invalid", "error").
var Signups = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "authweb_signups_total",
		Help: "Total number of signup attempts",
	},
	[]string{"result"},
)

// Logins counts login attempts by result.
var Logins = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "authweb_logins_total",
		Help: "Total number of login attempts",
	},
	[]string{"result"},
)

// SessionsIssued counts sessions created.
var SessionsIssued = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "authweb_sessions_issued_total",
		Help: "Total number of sessions issued",
	},
)

// GuardDecisions counts route guard outcomes: "allow", a deny reason, or "error".
var GuardDecisions = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "authweb_guard_decisions_total",
		Help: "Total number of route guard decisions",
	},
	[]string{"decision"},
)

// RegisterMetrics registers logic package metrics with the given Prometheus registry.
// Panics if registration fails (following prometheus convention).
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(Signups)
	reg.MustRegister(Logins)
	reg.MustRegister(SessionsIssued)
	reg.MustRegister(GuardDecisions)
}
