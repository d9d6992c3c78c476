package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gathered returns the value of a metric, summing over label values that
// match want (an empty want matches all).
func gathered(t *testing.T, reg *prometheus.Registry, name, want string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)

	var total float64
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.GetMetric() {
			if want != "" {
				matched := false
				for _, lp := range metric.GetLabel() {
					if lp.GetValue() == want {
						matched = true
					}
				}
				if !matched {
					continue
				}
			}
			if c := metric.GetCounter(); c != nil {
				total += c.GetValue()
			}
			if g := metric.GetGauge(); g != nil {
				total += g.GetValue()
			}
		}
	}
	return total
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.CommandExecuted("fill")
		m.CommandSkipped("fill")
		m.SnapshotStored()
		m.Undo()
		m.Redo()
		m.ReadbackCompleted("sync")
		m.SetPending(3)
		m.SetTargets(1)
		m.Tick()
	})
}

func TestCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.CommandExecuted("fill")
	m.CommandExecuted("fill")
	m.CommandExecuted("sphere")
	m.SnapshotStored()
	m.SetPending(7)
	m.ReadbackCompleted("async")

	assert.Equal(t, 2.0, gathered(t, reg, "paintcore_commands_executed_total", "fill"))
	assert.Equal(t, 1.0, gathered(t, reg, "paintcore_commands_executed_total", "sphere"))
	assert.Equal(t, 1.0, gathered(t, reg, "paintcore_states_stored_total", ""))
	assert.Equal(t, 7.0, gathered(t, reg, "paintcore_pending_commands", ""))
	assert.Equal(t, 1.0, gathered(t, reg, "paintcore_readbacks_completed_total", "async"))
}

func TestUnregistered(t *testing.T) {
	m := New(nil)
	assert.NotPanics(t, func() { m.Tick() })
}

func TestDoubleRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	assert.Panics(t, func() { New(reg) })
}
