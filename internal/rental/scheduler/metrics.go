package scheduler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ticksCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "poller",
			Name:      "ticks_total",
			Help:      "Total number of polling ticks that found pending rentals.",
		},
	)

	fetchCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "poller",
			Name:      "status_fetches_total",
			Help:      "Total number of session status fetches.",
		},
		[]string{"outcome"},
	)

	tickDurationHist = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "poller",
			Name:      "tick_duration_seconds",
			Help:      "Duration of one polling tick including all status fetches.",
			Buckets:   prometheus.DefBuckets,
		},
	)
)
