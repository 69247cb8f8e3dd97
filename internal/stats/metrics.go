package stats

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	queries    prometheus.Counter
	cost       prometheus.Counter
	processing prometheus.Counter
	reports    *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		queries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "reportbot_queries_total",
			Help: "Completed report queries.",
		}),
		cost: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "reportbot_cost_total",
			Help: "Cumulative research engine cost as reported by the engine.",
		}),
		processing: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "reportbot_processing_seconds_total",
			Help: "Cumulative research processing time.",
		}),
		reports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reportbot_reports_total",
			Help: "Completed reports by report type.",
		}, []string{"report_type"}),
	}
	reg.MustRegister(m.queries, m.cost, m.processing, m.reports)
	return m
}

func (m *metrics) observe(reportType string, cost float64, elapsed time.Duration) {
	m.queries.Inc()
	if cost > 0 {
		m.cost.Add(cost)
	}
	m.processing.Add(elapsed.Seconds())
	m.reports.WithLabelValues(reportType).Inc()
}
