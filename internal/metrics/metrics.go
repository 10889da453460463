package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics holds the service's collectors on its own registry so tests can
// create as many instances as they like.
type Metrics struct {
	Registry *prometheus.Registry

	commands    *prometheus.CounterVec
	connections prometheus.Gauge
	accepted    prometheus.Counter
	shortages   prometheus.Counter
	throttled   prometheus.Counter
}

// New creates and registers every collector.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		Registry: reg,
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cybermarket",
			Name:      "commands_total",
			Help:      "Commands dispatched, by verb and reply status.",
		}, []string{"verb", "status"}),
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "cybermarket",
			Name:      "connections_active",
			Help:      "Currently open protocol connections.",
		}),
		accepted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cybermarket",
			Name:      "connections_accepted_total",
			Help:      "Protocol connections accepted since start.",
		}),
		shortages: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cybermarket",
			Name:      "checkout_shortages_total",
			Help:      "Checkouts stopped by insufficient stock.",
		}),
		throttled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cybermarket",
			Name:      "frames_throttled_total",
			Help:      "Inbound frames delayed by the per-connection rate limit.",
		}),
	}

	reg.MustRegister(
		m.commands,
		m.connections,
		m.accepted,
		m.shortages,
		m.throttled,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveCommand counts one dispatched command.
func (m *Metrics) ObserveCommand(verb string, status int) {
	if m == nil {
		return
	}
	m.commands.WithLabelValues(verb, strconv.Itoa(status)).Inc()
}

// ConnectionOpened records an accepted connection.
func (m *Metrics) ConnectionOpened() {
	if m == nil {
		return
	}
	m.accepted.Inc()
	m.connections.Inc()
}

// ConnectionClosed records a finished connection.
func (m *Metrics) ConnectionClosed() {
	if m == nil {
		return
	}
	m.connections.Dec()
}

// CheckoutShortage records a checkout that stopped on a shortage.
func (m *Metrics) CheckoutShortage() {
	if m == nil {
		return
	}
	m.shortages.Inc()
}

// FrameThrottled records a frame that had to wait for the rate limiter.
func (m *Metrics) FrameThrottled() {
	if m == nil {
		return
	}
	m.throttled.Inc()
}
