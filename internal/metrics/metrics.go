package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Observer is the process wide metrics sink.
var Observer = &Metrics{
	mutex:      new(sync.RWMutex),
	prometheus: NewPrometheusMetrics(),
}

func init() {
	prometheus.MustRegister(
		Observer.prometheus.Decisions,
		Observer.prometheus.Orders,
		Observer.prometheus.Commands,
		Observer.prometheus.Reconciled,
		Observer.prometheus.Errors,
		Observer.prometheus.Equity,
	)
}

type Metrics struct {
	mutex      *sync.RWMutex
	prometheus Prometheus
}

// IncDecision counts a synthesized decision per account and action.
func (m *Metrics) IncDecision(account, action string) {
	m.prometheus.Decisions.WithLabelValues(account, action).Inc()
}

// IncOrder counts a placed order.
func (m *Metrics) IncOrder(account, action string) {
	m.prometheus.Orders.WithLabelValues(account, action).Inc()
}

// IncCommand counts an executed risk command.
func (m *Metrics) IncCommand(account, rule string) {
	m.prometheus.Commands.WithLabelValues(account, rule).Inc()
}

// IncReconciled counts reconciled ledger records.
func (m *Metrics) IncReconciled(account, outcome string) {
	m.prometheus.Reconciled.WithLabelValues(account, outcome).Inc()
}

// IncError counts a collaborator failure.
func (m *Metrics) IncError(account, source string) {
	m.prometheus.Errors.WithLabelValues(account, source).Inc()
}

// SetEquity tracks the live account equity.
func (m *Metrics) SetEquity(account string, equity float64) {
	m.prometheus.Equity.WithLabelValues(account).Set(equity)
}
