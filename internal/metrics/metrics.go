// Package metrics exposes checkout outcome counters on a dedicated
// prometheus registry.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Checkout struct {
	registry  *prometheus.Registry
	committed prometheus.Counter
	failed    *prometheus.CounterVec
	retried   prometheus.Counter
	saleCents prometheus.Counter
}

func NewCheckout() *Checkout {
	m := &Checkout{
		registry: prometheus.NewRegistry(),
		committed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "kamepos",
			Subsystem: "checkout",
			Name:      "commits_total",
			Help:      "Sales committed to the ledger.",
		}),
		failed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kamepos",
			Subsystem: "checkout",
			Name:      "failures_total",
			Help:      "Checkout attempts that ended in a terminal failure, by reason.",
		}, []string{"reason"}),
		retried: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "kamepos",
			Subsystem: "checkout",
			Name:      "retries_total",
			Help:      "Fresh-read retries caused by stale catalog snapshots.",
		}),
		saleCents: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "kamepos",
			Subsystem: "checkout",
			Name:      "sale_cents_total",
			Help:      "Sum of committed sale totals in minor currency units.",
		}),
	}

	m.registry.MustRegister(
		m.committed,
		m.failed,
		m.retried,
		m.saleCents,
		collectors.NewGoCollector(),
	)

	return m
}

func (m *Checkout) SaleCommitted(totalCents int64) {
	m.committed.Inc()
	m.saleCents.Add(float64(totalCents))
}

func (m *Checkout) SaleFailed(reason string) {
	m.failed.WithLabelValues(reason).Inc()
}

func (m *Checkout) SaleRetried() {
	m.retried.Inc()
}

func (m *Checkout) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
