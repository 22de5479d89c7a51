package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ridebid", Name: "requests_created_total",
		Help: "Total ride requests created",
	})
	BidsSubmitted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ridebid", Name: "bids_submitted_total",
		Help: "Total bids admitted to the ledger",
	})
	StatusTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ridebid", Name: "status_transitions_total",
			Help: "Lifecycle transitions by resulting status",
		},
		[]string{"status"},
	)
	PublishFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ridebid", Name: "publish_failures_total",
			Help: "Event publications that failed after the mutation committed",
		},
		[]string{"event"},
	)
	DriversDiscovered = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "ridebid", Name: "drivers_discovered",
		Help:    "Driver sessions found per discovery query",
		Buckets: []float64{0, 1, 2, 5, 10, 20},
	})
)
