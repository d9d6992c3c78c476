package paint

import (
	"go.uber.org/zap"

	pmath "github.com/Faultbox/paintcore/pkg/math"
)

// DefaultReadPixelsBudget is how many pixels synchronous readers may copy
// per tick.
const DefaultReadPixelsBudget = 4096

// Selection picks the targets SubmitAll paints.
type Selection struct {
	// Target, when set, is the only target painted.
	Target *PaintableTexture
	// Group filters active targets by group tag.
	Group int
	// Position and Radius limit painting to targets whose surface comes
	// within Radius of Position. A Radius of zero or less disables the test.
	Position pmath.Vec3
	Radius   float32
}

// Manager is the per-frame scheduler. Paint is submitted during a frame and
// applied by Tick, which the host calls once per frame.
type Manager struct {
	ctx *Context
	log *zap.Logger

	budget int
	frame  uint64

	painted    bool
	paintFrame uint64

	potentiallyStoreStates bool
	allStatesStored        bool
}

// NewManager creates a scheduler over ctx. budget limits synchronous pixel
// reads per tick; zero or less uses DefaultReadPixelsBudget.
func NewManager(ctx *Context, budget int) *Manager {
	if budget <= 0 {
		budget = DefaultReadPixelsBudget
	}
	return &Manager{
		ctx:    ctx,
		log:    ctx.log.Named("manager"),
		budget: budget,
	}
}

// Context returns the paint context.
func (m *Manager) Context() *Context { return m.ctx }

// Frame returns the number of completed ticks.
func (m *Manager) Frame() uint64 { return m.frame }

// ReadPixelsBudget returns the per-tick synchronous read budget.
func (m *Manager) ReadPixelsBudget() int { return m.budget }

// SetReadPixelsBudget changes the per-tick synchronous read budget.
func (m *Manager) SetReadPixelsBudget(budget int) {
	if budget > 0 {
		m.budget = budget
	}
}

// MarkActivelyPainting flags that paint input happened this frame. The flag
// holds through the following frame.
func (m *Manager) MarkActivelyPainting() {
	m.painted = true
	m.paintFrame = m.frame
}

// IsActivelyPainting reports whether paint input happened this frame or the
// previous one.
func (m *Manager) IsActivelyPainting() bool {
	return m.painted && m.frame-m.paintFrame <= 1
}

// PotentiallyStoreAllStates announces that paint may be submitted soon. The
// first non-preview submission afterwards stores one state on every target.
// Once states are stored it does nothing until the next Tick.
func (m *Manager) PotentiallyStoreAllStates() {
	if m.allStatesStored {
		return
	}
	m.potentiallyStoreStates = true
}

// StoreAllStates stores a state on every active target.
func (m *Manager) StoreAllStates() {
	m.allStatesStored = true
	m.potentiallyStoreStates = false
	for _, t := range m.ctx.active {
		t.StoreState()
	}
}

// UndoAll undoes one step on every active target.
func (m *Manager) UndoAll() {
	for _, t := range m.ctx.Targets() {
		t.Undo()
	}
}

// RedoAll redoes one step on every active target.
func (m *Manager) RedoAll() {
	for _, t := range m.ctx.Targets() {
		t.Redo()
	}
}

// CanUndo reports whether any target can undo.
func (m *Manager) CanUndo() bool {
	for _, t := range m.ctx.active {
		if t.CanUndo() {
			return true
		}
	}
	return false
}

// CanRedo reports whether any target can redo.
func (m *Manager) CanRedo() bool {
	for _, t := range m.ctx.active {
		if t.CanRedo() {
			return true
		}
	}
	return false
}

// ClearAllStates empties the history of every active target.
func (m *Manager) ClearAllStates() {
	for _, t := range m.ctx.active {
		t.ClearStates()
	}
}

// Submit queues a bound copy of cmd on target and returns the copy. cmd
// itself stays owned by the caller and can be reused as a template.
func (m *Manager) Submit(cmd Command, target *PaintableTexture) Command {
	if target == nil || !target.Active() {
		m.log.Debug("submit to inactive target ignored", zap.Stringer("kind", cmd.Kind()))
		return nil
	}
	if !cmd.Head().Preview && m.potentiallyStoreStates {
		m.StoreAllStates()
	}
	cp := cmd.SpawnCopy()
	cp.Bind(target)
	target.AddCommand(cp)
	return cp
}

// SubmitAll queues cmd on every selected target, then once more for every
// clone transform produced by the registered cloners.
func (m *Manager) SubmitAll(cmd Command, sel Selection) {
	e := newExpansion(m.ctx.cloners)
	m.submitSelected(cmd, sel)

	for c := 0; c < len(e.cloners); c++ {
		for i := 0; i < e.matrixCount; i++ {
			cp := cmd.SpawnCopy()
			e.clone(cp, c, i)
			m.submitSelected(cp, sel)
			cp.Pool()
		}
	}
}

func (m *Manager) submitSelected(cmd Command, sel Selection) {
	if sel.Target != nil {
		m.Submit(cmd, sel.Target)
		return
	}
	for _, t := range m.ctx.Targets() {
		if t.Group() != sel.Group {
			continue
		}
		if sel.Radius > 0 && !overlapsSphere(t.Surface(), sel.Position, sel.Radius) {
			continue
		}
		m.Submit(cmd, t)
	}
}

// Tick ends a frame: it stores states if paint is pending and nothing was
// stored yet, executes every target's queue, ages the painting flag and
// advances pixel readers by the budget.
func (m *Manager) Tick() {
	pending, mutating := m.ctx.pendingCommands()
	m.ctx.metrics.SetPending(pending)
	if m.potentiallyStoreStates && mutating && !m.allStatesStored {
		m.StoreAllStates()
	}

	for _, t := range m.ctx.Targets() {
		t.ExecuteCommands(true, true)
	}

	m.frame++
	m.ctx.readers.UpdateAll(m.budget)

	m.allStatesStored = false
	m.ctx.metrics.SetPending(0)
	m.ctx.metrics.Tick()
}
