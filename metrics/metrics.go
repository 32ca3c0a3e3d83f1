package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "art_contest"

const (
	TriggerLogin     = "login"
	TriggerWatermark = "watermark"
	TriggerSweep     = "sweep"
	TriggerManual    = "manual"
)

// Metrics is safe to use as a nil pointer; every method is then a no-op.
type Metrics struct {
	VotesCast      prometheus.Counter
	RefreshesUsed  prometheus.Counter
	QuotaResets    *prometheus.CounterVec
	SweepRuns      *prometheus.CounterVec
	PairsExhausted prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		VotesCast: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "votes_cast_total",
			Help:      "Votes recorded against submissions.",
		}),
		RefreshesUsed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refreshes_used_total",
			Help:      "Pair refreshes consumed by voters.",
		}),
		QuotaResets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quota_resets_total",
			Help:      "User quota resets by trigger.",
		}, []string{"trigger"}),
		SweepRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweep_runs_total",
			Help:      "Daily sweep executions by outcome.",
		}, []string{"outcome"}),
		PairsExhausted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pairs_exhausted_total",
			Help:      "Pair requests that found no pair left to show.",
		}),
	}
	reg.MustRegister(m.VotesCast, m.RefreshesUsed, m.QuotaResets, m.SweepRuns, m.PairsExhausted)
	return m
}

func (m *Metrics) VoteCast() {
	if m != nil {
		m.VotesCast.Inc()
	}
}

func (m *Metrics) RefreshUsed() {
	if m != nil {
		m.RefreshesUsed.Inc()
	}
}

func (m *Metrics) Reset(trigger string, users int) {
	if m != nil {
		m.QuotaResets.WithLabelValues(trigger).Add(float64(users))
	}
}

func (m *Metrics) Sweep(err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.SweepRuns.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Exhausted() {
	if m != nil {
		m.PairsExhausted.Inc()
	}
}
