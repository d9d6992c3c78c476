package paint

import (
	"go.uber.org/zap"

	"github.com/Faultbox/paintcore/internal/blend"
	"github.com/Faultbox/paintcore/internal/texture"
)

// StateMode selects how undo states are captured.
type StateMode int

const (
	// FullTextureCopy stores a copy of the whole image per state.
	FullTextureCopy StateMode = iota
	// LocalCommandCopy stores the commands executed between states and
	// rebuilds the image from a base on undo and redo.
	LocalCommandCopy
)

// ParseStateMode maps "full" and "local" to a StateMode.
func ParseStateMode(s string) (StateMode, bool) {
	switch s {
	case "full", "full_texture_copy", "":
		return FullTextureCopy, true
	case "local", "local_command_copy":
		return LocalCommandCopy, true
	}
	return FullTextureCopy, false
}

const (
	// DefaultStateLimit is how many undo states a target keeps.
	DefaultStateLimit = 10
	// DefaultSize is used when neither a size nor a texture is given.
	DefaultSize = 512

	// bakeThreshold bounds the commands a local base replays before they
	// are folded into its image.
	bakeThreshold = 32
)

// Options describes a paintable texture.
type Options struct {
	// Hash registers the target for lookups and replay. Zero skips it.
	Hash  Hash
	Group int
	// Width and Height default to the texture size, then DefaultSize.
	Width, Height int
	// Texture is the starting image. When nil the target starts as Color.
	Texture *texture.Image
	Color   texture.Color
	// Surface places texels in world space. Defaults to UnitPlane.
	Surface   Surface
	StateMode StateMode
	// StateLimit caps the undo stack. Zero means DefaultStateLimit and a
	// negative value keeps every state.
	StateLimit int
}

// PaintableTexture is one paintable image with its pending commands and
// undo history.
type PaintableTexture struct {
	ctx  *Context
	opts Options

	active   bool
	current  *texture.Image
	original *texture.Image
	previous *texture.Image
	preview  *texture.Image
	previewd bool

	commands []Command
	undo     []*State
	redo     []*State

	// Local mode: base rebuild point and commands since the last state.
	base  *State
	local []Command

	onModified []func(t *PaintableTexture, preview bool)
}

// NewPaintableTexture creates an inactive target.
func (c *Context) NewPaintableTexture(opts Options) *PaintableTexture {
	if opts.StateLimit == 0 {
		opts.StateLimit = DefaultStateLimit
	}
	if opts.Surface == nil {
		opts.Surface = UnitPlane()
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		if opts.Texture != nil {
			opts.Width, opts.Height = opts.Texture.Width(), opts.Texture.Height()
		} else {
			opts.Width, opts.Height = DefaultSize, DefaultSize
		}
	}
	return &PaintableTexture{ctx: c, opts: opts}
}

// Activate allocates the current image and starts accepting commands.
func (t *PaintableTexture) Activate() {
	if t.active {
		return
	}
	w, h := t.opts.Width, t.opts.Height
	t.current = t.ctx.images.Get(w, h)
	t.previous = t.ctx.images.Get(w, h)
	if t.opts.Texture != nil {
		t.original = t.ctx.images.Get(w, h)
		t.original.CopyFrom(t.opts.Texture)
		t.current.CopyFrom(t.original)
	} else {
		t.current.Fill(t.opts.Color)
	}
	if t.opts.StateMode == LocalCommandCopy {
		t.base = t.ctx.popState()
		t.base.WriteImage(t.current)
	}
	t.active = true
	t.ctx.activate(t)
	t.ctx.log.Debug("paintable texture activated",
		zap.Stringer("hash", t.opts.Hash),
		zap.Int("width", w),
		zap.Int("height", h))
}

// Deactivate drops pending commands, history and images.
func (t *PaintableTexture) Deactivate() {
	if !t.active {
		return
	}
	t.ClearStates()
	t.poolCommands()
	if t.base != nil {
		t.base.Pool()
		t.base = nil
	}
	for _, img := range []*texture.Image{t.current, t.original, t.previous, t.preview} {
		t.ctx.images.Put(img)
	}
	t.current, t.original, t.previous, t.preview = nil, nil, nil, nil
	t.previewd = false
	t.active = false
	t.ctx.deactivate(t)
}

// Active reports whether the target accepts commands.
func (t *PaintableTexture) Active() bool { return t.active }

// Hash returns the registered hash, or zero.
func (t *PaintableTexture) Hash() Hash { return t.opts.Hash }

// Group returns the group tag.
func (t *PaintableTexture) Group() int { return t.opts.Group }

// Surface returns the world mapping.
func (t *PaintableTexture) Surface() Surface { return t.opts.Surface }

// Current returns the painted image. It is nil while inactive.
func (t *PaintableTexture) Current() *texture.Image { return t.current }

// Output returns the image to display: the preview when preview commands
// ran in the last batch, otherwise the current image.
func (t *PaintableTexture) Output() *texture.Image {
	if t.previewd {
		return t.preview
	}
	return t.current
}

// Pending returns the number of queued commands.
func (t *PaintableTexture) Pending() int { return len(t.commands) }

// UndoCount and RedoCount return the stack depths.
func (t *PaintableTexture) UndoCount() int { return len(t.undo) }

func (t *PaintableTexture) RedoCount() int { return len(t.redo) }

// OnModified registers fn to run after the image changes. preview is set
// when only the preview output changed.
func (t *PaintableTexture) OnModified(fn func(t *PaintableTexture, preview bool)) {
	t.onModified = append(t.onModified, fn)
}

func (t *PaintableTexture) notify(preview bool) {
	for _, fn := range t.onModified {
		fn(t, preview)
	}
}

// AddCommand queues cmd, taking ownership of it. A non-preview command
// invalidates the redo stack.
func (t *PaintableTexture) AddCommand(cmd Command) {
	if !t.active {
		cmd.Pool()
		return
	}
	h := cmd.Head()
	h.order = t.ctx.nextOrder()
	h.Target = t.opts.Hash
	if !h.Preview {
		t.clearRedo()
	}
	t.commands = append(t.commands, cmd)
	for _, fn := range t.ctx.observers {
		fn(t, cmd)
	}
}

// ExecuteCommands runs the queue in priority order when applyNow is set,
// then pools the commands when clearAfter is set.
func (t *PaintableTexture) ExecuteCommands(applyNow, clearAfter bool) {
	if !t.active {
		return
	}
	t.previewd = false
	if applyNow && len(t.commands) > 0 {
		sortCommands(t.commands)

		modified := false
		for _, cmd := range t.commands {
			if cmd.Head().Preview {
				continue
			}
			if t.run(cmd, t.current) {
				modified = true
				if t.opts.StateMode == LocalCommandCopy {
					t.local = append(t.local, cmd.SpawnCopy())
				}
			}
		}

		for _, cmd := range t.commands {
			if !cmd.Head().Preview {
				continue
			}
			if !t.previewd {
				if t.preview == nil {
					t.preview = t.ctx.images.Get(t.current.Width(), t.current.Height())
				}
				t.preview.CopyFrom(t.current)
				t.previewd = true
			}
			t.run(cmd, t.preview)
		}

		if modified {
			t.notify(false)
		} else if t.previewd {
			t.notify(true)
		}
	}
	if clearAfter {
		t.poolCommands()
	}
}

func (t *PaintableTexture) run(cmd Command, img *texture.Image) bool {
	if !t.apply(cmd, img) {
		return false
	}
	t.ctx.metrics.CommandExecuted(cmd.Kind().String())
	return true
}

// apply paints cmd onto img without counting it. History replays use it
// directly.
func (t *PaintableTexture) apply(cmd Command, img *texture.Image) bool {
	t.previous.CopyFrom(img)
	canvas := Canvas{
		ctx:           t.ctx,
		Image:         img,
		Previous:      t.previous,
		Original:      t.original,
		OriginalColor: t.originalColor(),
		Surface:       t.opts.Surface,
	}
	return cmd.Apply(&canvas)
}

func (t *PaintableTexture) originalColor() texture.Color {
	if t.original != nil {
		return texture.White
	}
	return t.opts.Color
}

func (t *PaintableTexture) poolCommands() {
	for i, cmd := range t.commands {
		cmd.Pool()
		t.commands[i] = nil
	}
	t.commands = t.commands[:0]
}

// StoreState pushes the current state onto the undo stack and clears the
// redo stack.
func (t *PaintableTexture) StoreState() {
	if !t.active {
		return
	}
	t.clearRedo()

	s := t.ctx.popState()
	if t.opts.StateMode == LocalCommandCopy {
		s.adopt(t.local)
		t.local = nil
	} else {
		s.WriteImage(t.current)
	}
	t.undo = append(t.undo, s)
	t.trim()
	t.ctx.metrics.SnapshotStored()
}

// trim drops the oldest states beyond the limit. In local mode they are
// folded into the base so the history still rebuilds.
func (t *PaintableTexture) trim() {
	if t.opts.StateLimit < 0 {
		return
	}
	for len(t.undo) > t.opts.StateLimit {
		oldest := t.undo[0]
		t.undo[0] = nil
		t.undo = t.undo[1:]
		if t.opts.StateMode == LocalCommandCopy {
			t.base.Commands = append(t.base.Commands, oldest.release()...)
			t.bake()
		}
		oldest.Pool()
	}
}

// bake folds a long base command list into the base image.
func (t *PaintableTexture) bake() {
	if len(t.base.Commands) <= bakeThreshold {
		return
	}
	img := t.base.Image
	t.base.Image = nil
	for _, cmd := range t.base.Commands {
		t.apply(cmd, img)
	}
	t.base.Clear()
	t.base.Image = img
}

// CanUndo reports whether Undo would do anything.
func (t *PaintableTexture) CanUndo() bool { return t.active && len(t.undo) > 0 }

// CanRedo reports whether Redo would do anything.
func (t *PaintableTexture) CanRedo() bool { return t.active && len(t.redo) > 0 }

// Undo restores the most recent state and moves the current one onto the
// redo stack.
func (t *PaintableTexture) Undo() {
	if !t.CanUndo() {
		return
	}
	s := t.undo[len(t.undo)-1]
	t.undo = t.undo[:len(t.undo)-1]
	t.redo = append(t.redo, t.swap(s))
	if t.opts.StateMode == LocalCommandCopy {
		t.rebuild()
	}
	t.ctx.metrics.Undo()
	t.notify(false)
}

// Redo reapplies the most recently undone state.
func (t *PaintableTexture) Redo() {
	if !t.CanRedo() {
		return
	}
	s := t.redo[len(t.redo)-1]
	t.redo = t.redo[:len(t.redo)-1]
	t.undo = append(t.undo, t.swap(s))
	if t.opts.StateMode == LocalCommandCopy {
		t.rebuild()
	}
	t.ctx.metrics.Redo()
	t.notify(false)
}

// swap makes s current and returns a state holding what was current. In
// local mode the image is stale until the caller has pushed the result and
// called rebuild.
func (t *PaintableTexture) swap(s *State) *State {
	out := t.ctx.popState()
	if t.opts.StateMode == LocalCommandCopy {
		out.adopt(t.local)
		t.local = s.release()
		s.Pool()
		return out
	}
	out.WriteImage(t.current)
	t.current.CopyFrom(s.Image)
	s.Pool()
	return out
}

// rebuild replays the base and every undo delta onto the current image.
func (t *PaintableTexture) rebuild() {
	t.current.CopyFrom(t.base.Image)
	for _, cmd := range t.base.Commands {
		t.apply(cmd, t.current)
	}
	for _, s := range t.undo {
		for _, cmd := range s.Commands {
			t.apply(cmd, t.current)
		}
	}
	for _, cmd := range t.local {
		t.apply(cmd, t.current)
	}
}

// ClearStates empties both stacks.
func (t *PaintableTexture) ClearStates() {
	for i, s := range t.undo {
		s.Pool()
		t.undo[i] = nil
	}
	t.undo = t.undo[:0]
	t.clearRedo()

	if t.active && t.opts.StateMode == LocalCommandCopy {
		t.base.WriteImage(t.current)
		for _, cmd := range t.local {
			cmd.Pool()
		}
		t.local = nil
	}
}

func (t *PaintableTexture) clearRedo() {
	for i, s := range t.redo {
		s.Pool()
		t.redo[i] = nil
	}
	t.redo = t.redo[:0]
}

// Clear queues a full replacement with the starting texture or color.
func (t *PaintableTexture) Clear() {
	if !t.active {
		return
	}
	fill := t.ctx.NewFill(texture.White)
	fill.Blend = NewBlendMode(blend.ReplaceOriginal)
	cmd := fill.SpawnCopy()
	cmd.Bind(t)
	t.AddCommand(cmd)
}
