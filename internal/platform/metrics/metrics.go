package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics for the disclosure flow.
type Metrics struct {
	LookupsStarted    prometheus.Counter
	LookupsFailed     prometheus.Counter
	Verifications     *prometheus.CounterVec
	ResendsRequested  prometheus.Counter
	ResendsThrottled  prometheus.Counter
	ChallengesLive    prometheus.Gauge
	CasesDisclosed    prometheus.Counter
}

// New creates and registers all Prometheus metrics with the default registry.
func New() *Metrics {
	return &Metrics{
		LookupsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pakngate_lookups_started_total",
			Help: "Total case lookups that triggered OTP issuance",
		}),
		LookupsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pakngate_lookups_failed_total",
			Help: "Total case lookups rejected upstream or failed in transport",
		}),
		Verifications: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "pakngate_verifications_total",
			Help: "OTP verification attempts by outcome",
		}, []string{"outcome"}),
		ResendsRequested: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pakngate_resends_total",
			Help: "Total OTP resend requests forwarded upstream",
		}),
		ResendsThrottled: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pakngate_resends_throttled_total",
			Help: "Resend requests rejected by the cooldown guard",
		}),
		ChallengesLive: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "pakngate_challenges_live",
			Help: "Currently open OTP challenges",
		}),
		CasesDisclosed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pakngate_cases_disclosed_total",
			Help: "Case records disclosed after successful verification",
		}),
	}
}
