package admintool

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	invocationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "merge_rpd_admin_tool_invocations_total",
			Help: "Counter of administration tool invocations by script and outcome",
		},
		[]string{"script", "outcome"},
	)

	invocationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "merge_rpd_admin_tool_duration_seconds",
			Help:    "Time spent running administration tool scripts",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		},
		[]string{"script"},
	)
)
