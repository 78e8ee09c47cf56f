package metrics

import "github.com/prometheus/client_golang/prometheus"

type Prometheus struct {
	Decisions  *prometheus.CounterVec
	Orders     *prometheus.CounterVec
	Commands   *prometheus.CounterVec
	Reconciled *prometheus.CounterVec
	Errors     *prometheus.CounterVec
	Equity     *prometheus.GaugeVec
}

func NewPrometheusMetrics() Prometheus {
	return Prometheus{
		Decisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "goldmind",
				Name:      "decisions",
			}, []string{"account", "action"}),
		Orders: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "goldmind",
				Name:      "orders",
			}, []string{"account", "action"}),
		Commands: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "goldmind",
				Name:      "risk_commands",
			}, []string{"account", "rule"}),
		Reconciled: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "goldmind",
				Name:      "reconciled_trades",
			}, []string{"account", "outcome"}),
		Errors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "goldmind",
				Name:      "collaborator_errors",
			}, []string{"account", "source"}),
		Equity: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "goldmind",
				Name:      "equity",
			}, []string{"account"}),
	}
}
