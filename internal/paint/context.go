// Package paint batches paint commands per frame, applies them to paintable
// textures and keeps their undo and redo history.
package paint

import (
	"go.uber.org/zap"

	"github.com/Faultbox/paintcore/internal/metrics"
	"github.com/Faultbox/paintcore/internal/readback"
	"github.com/Faultbox/paintcore/internal/texture"
)

// Context owns everything paint code shares: command and state pools, the
// resource registries, active targets, cloners and pixel readers. Nothing
// in it is safe for concurrent use.
type Context struct {
	log     *zap.Logger
	metrics *metrics.Metrics

	pools  [kindCount]freeList
	states Pool[State]
	images *texture.Pool

	textures *Registry[*texture.Image]
	targets  *Registry[*PaintableTexture]
	active   []*PaintableTexture
	cloners  []Cloner
	readers  *readback.Registry

	observers []func(t *PaintableTexture, cmd Command)
	order     uint64
}

// Option configures a Context.
type Option func(*Context)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(c *Context) {
		if l != nil {
			c.log = l
		}
	}
}

// WithMetrics records activity into m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Context) {
		c.metrics = m
	}
}

// WithReaders uses an existing reader registry.
func WithReaders(r *readback.Registry) Option {
	return func(c *Context) {
		c.readers = r
	}
}

// NewContext creates an empty context.
func NewContext(opts ...Option) *Context {
	c := &Context{
		log:      zap.NewNop(),
		images:   texture.NewPool(),
		textures: NewRegistry[*texture.Image](),
		targets:  NewRegistry[*PaintableTexture](),
	}
	c.pools[KindFill] = &Pool[FillCommand]{}
	c.pools[KindReplace] = &Pool[ReplaceCommand]{}
	c.pools[KindReplaceChannels] = &Pool[ReplaceChannelsCommand]{}
	c.pools[KindSphere] = &Pool[SphereCommand]{}
	c.pools[KindDecal] = &Pool[DecalCommand]{}

	for _, opt := range opts {
		opt(c)
	}
	if c.readers == nil {
		c.readers = readback.NewRegistry(
			readback.WithLogger(c.log),
			readback.WithMetrics(c.metrics),
			readback.WithImages(c.images),
		)
	}
	return c
}

// Logger returns the context logger.
func (c *Context) Logger() *zap.Logger {
	return c.log
}

// Images returns the shared temporary image pool.
func (c *Context) Images() *texture.Pool {
	return c.images
}

// Readers returns the pixel reader registry driven by the Manager.
func (c *Context) Readers() *readback.Registry {
	return c.readers
}

// RegisterTexture makes img resolvable by hash. A zero hash unregisters.
func (c *Context) RegisterTexture(img *texture.Image, hash Hash) {
	c.textures.Register(img, hash)
}

// UnregisterTexture removes img from the registry.
func (c *Context) UnregisterTexture(img *texture.Image) {
	c.textures.Unregister(img)
}

// Texture resolves a registered texture.
func (c *Context) Texture(hash Hash) (*texture.Image, bool) {
	return c.textures.Lookup(hash)
}

// Target resolves an active target by hash.
func (c *Context) Target(hash Hash) (*PaintableTexture, bool) {
	return c.targets.Lookup(hash)
}

// Targets returns the active targets in activation order.
func (c *Context) Targets() []*PaintableTexture {
	out := make([]*PaintableTexture, len(c.active))
	copy(out, c.active)
	return out
}

// SpawnCopy returns a pooled copy of cmd.
func (c *Context) SpawnCopy(cmd Command) Command {
	return cmd.SpawnCopy()
}

// PoolStats reports idle and total allocated commands for kind k.
func (c *Context) PoolStats(k Kind) (idle, allocated int) {
	p := c.pools[k]
	return p.Len(), p.Allocated()
}

// OnAddCommand registers fn to observe every command queued on any target.
func (c *Context) OnAddCommand(fn func(t *PaintableTexture, cmd Command)) {
	c.observers = append(c.observers, fn)
}

// AddCloner registers a cloner. It affects submissions that start after
// the call.
func (c *Context) AddCloner(cl Cloner) {
	c.cloners = append(c.cloners, cl)
}

// RemoveCloner unregisters a cloner.
func (c *Context) RemoveCloner(cl Cloner) {
	for i, existing := range c.cloners {
		if existing == cl {
			c.cloners = append(c.cloners[:i], c.cloners[i+1:]...)
			return
		}
	}
}

func (c *Context) nextOrder() uint64 {
	c.order++
	return c.order
}

func (c *Context) activate(t *PaintableTexture) {
	c.active = append(c.active, t)
	if t.opts.Hash != 0 {
		c.targets.Register(t, t.opts.Hash)
	}
	c.metrics.SetTargets(len(c.active))
}

func (c *Context) deactivate(t *PaintableTexture) {
	for i, existing := range c.active {
		if existing == t {
			c.active = append(c.active[:i], c.active[i+1:]...)
			break
		}
	}
	c.targets.Unregister(t)
	c.metrics.SetTargets(len(c.active))
}

func (c *Context) pendingCommands() (total int, mutating bool) {
	for _, t := range c.active {
		for _, cmd := range t.commands {
			total++
			if !cmd.Head().Preview {
				mutating = true
			}
		}
	}
	return total, mutating
}
