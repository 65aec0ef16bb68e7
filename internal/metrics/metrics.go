package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records ledger, inventory and order activity.
type Metrics struct {
	transitions   *prometheus.CounterVec
	ledgerEntries *prometheus.CounterVec
	rejections    *prometheus.CounterVec
	stockChanges  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
}

// New registers the collectors on reg. A nil reg yields a no-op Metrics.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		return &Metrics{}
	}
	m := &Metrics{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "order_transitions_total",
			Help: "Order actions by outcome.",
		}, []string{"action", "result"}),
		ledgerEntries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_entries_total",
			Help: "Committed wallet ledger entries.",
		}, []string{"currency", "reason", "direction"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_rejections_total",
			Help: "Requests rejected by ledger or policy checks.",
		}, []string{"kind"}),
		stockChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stock_movements_total",
			Help: "Committed stock movements.",
		}, []string{"reason"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
	reg.MustRegister(m.transitions, m.ledgerEntries, m.rejections, m.stockChanges, m.httpDuration)
	return m
}

// ObserveTransition counts an order action and whether it succeeded.
func (m *Metrics) ObserveTransition(action string, err error) {
	if m == nil || m.transitions == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.transitions.WithLabelValues(action, result).Inc()
}

// IncLedgerEntry counts a committed ledger entry.
func (m *Metrics) IncLedgerEntry(currency, reason string, credit bool) {
	if m == nil || m.ledgerEntries == nil {
		return
	}
	direction := "debit"
	if credit {
		direction = "credit"
	}
	m.ledgerEntries.WithLabelValues(currency, reason, direction).Inc()
}

// IncRejection counts a rejected request, e.g. "insufficient_funds".
func (m *Metrics) IncRejection(kind string) {
	if m == nil || m.rejections == nil {
		return
	}
	m.rejections.WithLabelValues(kind).Inc()
}

// IncStockMovement counts a committed stock movement.
func (m *Metrics) IncStockMovement(reason string) {
	if m == nil || m.stockChanges == nil {
		return
	}
	m.stockChanges.WithLabelValues(reason).Inc()
}

// ObserveHTTP records one request's latency.
func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	if m == nil || m.httpDuration == nil {
		return
	}
	m.httpDuration.WithLabelValues(method, route, statusLabel(status)).Observe(d.Seconds())
}

func statusLabel(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
