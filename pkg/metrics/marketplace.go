package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

// Marketplace records counters for the transaction core.
type Marketplace struct {
	checkouts          *prometheus.CounterVec
	exchanges          *prometheus.CounterVec
	transitionFailures prometheus.Counter
}

// NewMarketplace registers the marketplace metrics on the provided registerer.
func NewMarketplace(reg prometheus.Registerer) *Marketplace {
	if reg == nil {
		return &Marketplace{}
	}
	checkouts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_total",
		Help: "Checkout attempts partitioned by result.",
	}, []string{"result"})
	exchanges := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "exchange_total",
		Help: "Exchange lifecycle events.",
	}, []string{"event"})
	transitionFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "product_transition_failures_total",
		Help: "Per-product status transitions that failed inside a settlement loop.",
	})
	reg.MustRegister(checkouts, exchanges, transitionFailures)
	return &Marketplace{
		checkouts:          checkouts,
		exchanges:          exchanges,
		transitionFailures: transitionFailures,
	}
}

// IncCheckout increments the checkout counter for the given result.
func (m *Marketplace) IncCheckout(result string) {
	if m == nil || m.checkouts == nil {
		return
	}
	m.checkouts.WithLabelValues(normalizeLabel(result)).Inc()
}

// IncExchange increments the exchange counter for the named event.
func (m *Marketplace) IncExchange(event string) {
	if m == nil || m.exchanges == nil {
		return
	}
	m.exchanges.WithLabelValues(normalizeLabel(event)).Inc()
}

// AddTransitionFailures records n failed per-product transitions.
func (m *Marketplace) AddTransitionFailures(n int) {
	if m == nil || m.transitionFailures == nil || n <= 0 {
		return
	}
	m.transitionFailures.Add(float64(n))
}

func normalizeLabel(value string) string {
	value = strings.TrimSpace(strings.ToLower(value))
	if value == "" {
		return "unknown"
	}
	return value
}
