package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "courtbook"

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint and status class.",
		},
		[]string{"endpoint", "status"},
	)

	transitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reservation_transitions_total",
			Help:      "Committed reservation state transitions.",
		},
		[]string{"from", "to"},
	)

	holdsExpired = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "holds_expired_total",
			Help:      "Holds moved to expired by the sweeper or on demand.",
		},
	)

	slotConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "slot_conflicts_total",
			Help:      "Requests rejected because the slot overlapped an active reservation.",
		},
	)

	tariffCache = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tariff_cache_lookups_total",
			Help:      "Tariff cache lookups by result (hit, miss, error).",
		},
		[]string{"result"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, transitions, holdsExpired, slotConflicts, tariffCache)
	})
}

// IncHTTP counts a served request.
func IncHTTP(endpoint, status string) {
	httpRequests.WithLabelValues(endpoint, status).Inc()
}

// IncTransition counts a committed state change. from is empty on creation.
func IncTransition(from, to string) {
	if from == "" {
		from = "none"
	}
	transitions.WithLabelValues(from, to).Inc()
}

func AddHoldsExpired(n int) {
	if n > 0 {
		holdsExpired.Add(float64(n))
	}
}

func IncSlotConflict() {
	slotConflicts.Inc()
}

func IncTariffCache(result string) {
	tariffCache.WithLabelValues(result).Inc()
}
