package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// value gathers the registry and returns the sample of name whose labels
// include every pair in labels.
func value(t *testing.T, m *Metrics, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := m.Registry.Gather()
	require.NoError(t, err)

	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	metrics:
		for _, metric := range mf.GetMetric() {
			for _, lp := range metric.GetLabel() {
				if want, ok := labels[lp.GetName()]; ok && want != lp.GetValue() {
					continue metrics
				}
			}
			switch {
			case metric.GetCounter() != nil:
				return metric.GetCounter().GetValue()
			case metric.GetGauge() != nil:
				return metric.GetGauge().GetValue()
			}
		}
	}
	t.Fatalf("metric %s %v not found", name, labels)
	return 0
}

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.ObserveCommand("CLIENT_LOGIN", 200)
	m.ObserveCommand("CLIENT_LOGIN", 200)
	m.ObserveCommand("CLIENT_LOGIN", 403)
	assert.Equal(t, 2.0, value(t, m, "cybermarket_commands_total", map[string]string{"verb": "CLIENT_LOGIN", "status": "200"}))
	assert.Equal(t, 1.0, value(t, m, "cybermarket_commands_total", map[string]string{"verb": "CLIENT_LOGIN", "status": "403"}))

	m.ConnectionOpened()
	m.ConnectionOpened()
	m.ConnectionClosed()
	assert.Equal(t, 1.0, value(t, m, "cybermarket_connections_active", nil))
	assert.Equal(t, 2.0, value(t, m, "cybermarket_connections_accepted_total", nil))

	m.CheckoutShortage()
	assert.Equal(t, 1.0, value(t, m, "cybermarket_checkout_shortages_total", nil))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.ObserveCommand("X", 200)
	m.ConnectionOpened()
	m.ConnectionClosed()
	m.CheckoutShortage()
	m.FrameThrottled()
}
