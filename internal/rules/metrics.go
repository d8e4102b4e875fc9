package rules

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	decisionsChecked = promauto.NewCounter(prometheus.CounterOpts{
		Name: "translate_decisions_checked_total",
		Help: "Transcript updates evaluated by the rules engine.",
	})

	decisionsApproved = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "translate_decisions_approved_total",
		Help: "Approved translation decisions by reason.",
	}, []string{"reason"})

	decisionsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "translate_decisions_rejected_total",
		Help: "Rejected translation decisions by reason.",
	}, []string{"reason"})

	approvalGap = promauto.NewSummary(prometheus.SummaryOpts{
		Name: "translate_approval_gap_seconds",
		Help: "Time between consecutive approved decisions.",
	})
)
