package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveTransition("approve", nil)
	m.ObserveTransition("approve", nil)
	m.ObserveTransition("mark_purchased", errors.New("out of stock"))
	m.IncLedgerEntry("points", "order_purchase", false)
	m.IncRejection("insufficient_funds")
	m.IncStockMovement("order_purchase")
	m.ObserveHTTP("GET", "/v1/orders/:id", 200, 5*time.Millisecond)

	if got := testutil.ToFloat64(m.transitions.WithLabelValues("approve", "ok")); got != 2 {
		t.Fatalf("approve ok = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.transitions.WithLabelValues("mark_purchased", "error")); got != 1 {
		t.Fatalf("mark_purchased error = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.ledgerEntries.WithLabelValues("points", "order_purchase", "debit")); got != 1 {
		t.Fatalf("ledger debit = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.rejections.WithLabelValues("insufficient_funds")); got != 1 {
		t.Fatalf("rejections = %v, want 1", got)
	}
	if n := testutil.CollectAndCount(m.httpDuration); n != 1 {
		t.Fatalf("http series = %d, want 1", n)
	}
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.ObserveTransition("approve", nil)
	m.IncLedgerEntry("points", "trip_award", true)
	m.IncRejection("x")
	m.IncStockMovement("restock")
	m.ObserveHTTP("GET", "/", 200, time.Second)

	New(nil).IncRejection("x")
}
