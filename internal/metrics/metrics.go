// Package metrics exposes paint engine counters to Prometheus. A nil
// *Metrics is valid and records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "paintcore"

// Metrics holds the engine collectors.
type Metrics struct {
	commands  *prometheus.CounterVec
	skipped   *prometheus.CounterVec
	snapshots prometheus.Counter
	undos     prometheus.Counter
	redos     prometheus.Counter
	readbacks *prometheus.CounterVec
	pending   prometheus.Gauge
	targets   prometheus.Gauge
	ticks     prometheus.Counter
}

// New creates the collectors and registers them with reg. A nil reg leaves
// them unregistered, which suits tests.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_executed_total",
			Help:      "Paint commands applied to a texture, by kind.",
		}, []string{"kind"}),
		skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_skipped_total",
			Help:      "Paint commands skipped because a referenced texture was missing.",
		}, []string{"kind"}),
		snapshots: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "states_stored_total",
			Help:      "Undo states captured.",
		}),
		undos: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "undo_total",
			Help:      "Undo steps applied.",
		}),
		redos: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "redo_total",
			Help:      "Redo steps applied.",
		}),
		readbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "readbacks_completed_total",
			Help:      "Pixel readbacks completed, by mode.",
		}, []string{"mode"}),
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pending_commands",
			Help:      "Commands queued for the current frame.",
		}),
		targets: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_targets",
			Help:      "Active paintable textures.",
		}),
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_total",
			Help:      "Frames processed by the scheduler.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.collectors()...)
	}
	return m
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.commands, m.skipped, m.snapshots, m.undos, m.redos,
		m.readbacks, m.pending, m.targets, m.ticks,
	}
}

// CommandExecuted counts an applied command.
func (m *Metrics) CommandExecuted(kind string) {
	if m != nil {
		m.commands.WithLabelValues(kind).Inc()
	}
}

// CommandSkipped counts a command dropped for a missing resource.
func (m *Metrics) CommandSkipped(kind string) {
	if m != nil {
		m.skipped.WithLabelValues(kind).Inc()
	}
}

// SnapshotStored counts an undo state.
func (m *Metrics) SnapshotStored() {
	if m != nil {
		m.snapshots.Inc()
	}
}

// Undo counts an undo step.
func (m *Metrics) Undo() {
	if m != nil {
		m.undos.Inc()
	}
}

// Redo counts a redo step.
func (m *Metrics) Redo() {
	if m != nil {
		m.redos.Inc()
	}
}

// ReadbackCompleted counts a finished pixel read.
func (m *Metrics) ReadbackCompleted(mode string) {
	if m != nil {
		m.readbacks.WithLabelValues(mode).Inc()
	}
}

// SetPending records the queued command count.
func (m *Metrics) SetPending(n int) {
	if m != nil {
		m.pending.Set(float64(n))
	}
}

// SetTargets records the active target count.
func (m *Metrics) SetTargets(n int) {
	if m != nil {
		m.targets.Set(float64(n))
	}
}

// Tick counts a scheduler frame.
func (m *Metrics) Tick() {
	if m != nil {
		m.ticks.Inc()
	}
}
