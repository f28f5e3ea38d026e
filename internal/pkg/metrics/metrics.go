package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "intranet"

// Metrics holds the domain counters. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry       *prometheus.Registry
	logins         *prometheus.CounterVec
	stockMutations *prometheus.CounterVec
	notifications  *prometheus.CounterVec
	reminders      prometheus.Counter
}

func New() *Metrics {
	r := prometheus.NewRegistry()
	r.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	r.MustRegister(collectors.NewGoCollector())

	logins := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "logins_total"}, []string{"result"})
	stock := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "stock_mutations_total"}, []string{"reason"})
	notif := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "notifications_total"}, []string{"kind", "result"})
	reminders := prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "overdue_reminders_sent_total"})
	r.MustRegister(logins, stock, notif, reminders)

	return &Metrics{
		registry:       r,
		logins:         logins,
		stockMutations: stock,
		notifications:  notif,
		reminders:      reminders,
	}
}

func (m *Metrics) Login(result string) {
	if m == nil {
		return
	}
	m.logins.WithLabelValues(result).Inc()
}

func (m *Metrics) StockMutation(reason string) {
	if m == nil {
		return
	}
	m.stockMutations.WithLabelValues(reason).Inc()
}

func (m *Metrics) Notification(kind string, ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "failed"
	}
	m.notifications.WithLabelValues(kind, result).Inc()
}

func (m *Metrics) ReminderSent() {
	if m == nil {
		return
	}
	m.reminders.Inc()
}

// Handler exposes the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
