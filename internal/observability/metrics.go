package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TripsCreatedTotal    = promauto.NewCounter(prometheus.CounterOpts{Namespace: "fletea", Name: "trips_created_total", Help: "Total number of trips created"})
	TripsAcceptedTotal   = promauto.NewCounter(prometheus.CounterOpts{Namespace: "fletea", Name: "trips_accepted_total", Help: "Total number of trips accepted by drivers"})
	TripsCompletedTotal  = promauto.NewCounter(prometheus.CounterOpts{Namespace: "fletea", Name: "trips_completed_total", Help: "Total number of trips completed"})
	AcceptConflictsTotal = promauto.NewCounter(prometheus.CounterOpts{Namespace: "fletea", Name: "accept_conflicts_total", Help: "Accept attempts lost to another driver"})
	FeedClientsConnected = promauto.NewGaugeVec(
		prometheus.GaugeOpts{Namespace: "fletea", Name: "feed_clients_connected", Help: "Currently connected feed WebSocket clients"},
		[]string{"role"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "fletea", Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fletea",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
