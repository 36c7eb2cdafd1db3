package registry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	transitionsCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rental",
			Name:      "transitions_total",
			Help:      "Total number of rental status transitions out of the waiting state.",
		},
		[]string{"from", "to"},
	)

	persistFailuresCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "rental",
			Name:      "persist_failures_total",
			Help:      "Total number of rental snapshot writes that failed and were absorbed.",
		},
	)
)
