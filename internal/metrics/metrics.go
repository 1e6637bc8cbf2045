package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	availabilityQueries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "villabook",
			Name:      "availability_queries_total",
			Help:      "Count of availability queries by outcome.",
		},
		[]string{"outcome"},
	)

	sourceFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "villabook",
			Name:      "busy_source_failures_total",
			Help:      "Count of busy-interval source fetch failures by room.",
		},
		[]string{"room"},
	)

	quotes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "villabook",
			Name:      "quotes_total",
			Help:      "Count of price quotes by result.",
		},
		[]string{"result"},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "villabook",
			Name:      "http_requests_total",
			Help:      "Count of HTTP requests by handler.",
		},
		[]string{"handler"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(availabilityQueries, sourceFailures, quotes, httpRequests)
	})
}

func IncAvailability(outcome string) {
	availabilityQueries.WithLabelValues(outcome).Inc()
}

func IncSourceFailure(room string) {
	sourceFailures.WithLabelValues(room).Inc()
}

func IncQuote(result string) {
	quotes.WithLabelValues(result).Inc()
}

func IncHTTP(handler string) {
	httpRequests.WithLabelValues(handler).Inc()
}
