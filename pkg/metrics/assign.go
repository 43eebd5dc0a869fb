package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// AssignMetrics records the auto-assignment engine's operational counters.
type AssignMetrics struct {
	duration     *prometheus.HistogramVec
	runs         *prometheus.CounterVec
	claimsWon    prometheus.Counter
	racesLost    prometheus.Counter
	syncFailures prometheus.Counter
}

// NewAssignMetrics registers the engine metrics on the provided registerer.
func NewAssignMetrics(reg prometheus.Registerer) *AssignMetrics {
	if reg == nil {
		return &AssignMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "assign_run_duration_seconds",
		Help:    "Duration of assignment engine runs in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "assign_runs_total",
		Help: "Assignment engine runs by outcome.",
	}, []string{"outcome"})
	claimsWon := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "assign_claims_won_total",
		Help: "Claims successfully inserted and remotely synced.",
	})
	racesLost := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "assign_claim_races_lost_total",
		Help: "Claim inserts lost to a concurrent run (duplicate key).",
	})
	syncFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "assign_remote_sync_failures_total",
		Help: "Remote status updates that failed and triggered compensation.",
	})
	reg.MustRegister(duration, runs, claimsWon, racesLost, syncFailures)
	return &AssignMetrics{
		duration:     duration,
		runs:         runs,
		claimsWon:    claimsWon,
		racesLost:    racesLost,
		syncFailures: syncFailures,
	}
}

// ObserveRun records one engine run with its outcome label.
func (m *AssignMetrics) ObserveRun(outcome string, duration time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	label := normalizeLabel(outcome)
	m.duration.WithLabelValues(label).Observe(duration.Seconds())
	m.runs.WithLabelValues(label).Inc()
}

// IncClaimWon increments the successful-claim counter.
func (m *AssignMetrics) IncClaimWon() {
	if m == nil || m.claimsWon == nil {
		return
	}
	m.claimsWon.Inc()
}

// IncRaceLost increments the lost-race counter.
func (m *AssignMetrics) IncRaceLost() {
	if m == nil || m.racesLost == nil {
		return
	}
	m.racesLost.Inc()
}

// IncSyncFailure increments the remote-sync failure counter.
func (m *AssignMetrics) IncSyncFailure() {
	if m == nil || m.syncFailures == nil {
		return
	}
	m.syncFailures.Inc()
}

func normalizeLabel(outcome string) string {
	if outcome == "" {
		return "unknown"
	}
	return outcome
}
