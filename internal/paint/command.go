package paint

import (
	"sort"

	"github.com/Faultbox/paintcore/internal/blend"
	"github.com/Faultbox/paintcore/internal/texture"
	pmath "github.com/Faultbox/paintcore/pkg/math"
)

// Kind tags each command variant. Pools are keyed by it.
type Kind int

const (
	KindFill Kind = iota
	KindReplace
	KindReplaceChannels
	KindSphere
	KindDecal

	kindCount
)

var kindNames = [kindCount]string{"fill", "replace", "replace_channels", "sphere", "decal"}

func (k Kind) String() string {
	if k < 0 || k >= kindCount {
		return "unknown"
	}
	return kindNames[k]
}

// ParseKind resolves a kind name.
func ParseKind(s string) (Kind, bool) {
	for i, n := range kindNames {
		if n == s {
			return Kind(i), true
		}
	}
	return 0, false
}

// Header holds the fields every command shares.
type Header struct {
	// Preview commands are drawn for one frame only and never recorded.
	Preview bool `json:"preview,omitempty"`
	// Priority orders execution within a target's batch, lowest first.
	Priority int `json:"priority,omitempty"`
	// Target is the hash of the texture the command was bound to.
	Target Hash `json:"target,omitempty"`

	order uint64
}

// Command is one queued paint operation.
type Command interface {
	Kind() Kind
	Head() *Header
	// SpawnCopy returns a pooled copy of the command.
	SpawnCopy() Command
	// Bind fills in target specific state before the command is queued.
	Bind(t *PaintableTexture)
	// Apply draws the command. It returns false when a referenced resource
	// could not be resolved and nothing was drawn.
	Apply(c *Canvas) bool
	// Transform rewrites world space fields for a cloned submission.
	Transform(posMatrix, rotMatrix, rotMatrix2 pmath.Mat4)
	// Pool returns the command to its pool. It must not be used afterwards.
	Pool()
}

// sortCommands orders by ascending priority, keeping submission order for
// equal priorities.
func sortCommands(cmds []Command) {
	sort.SliceStable(cmds, func(i, j int) bool {
		return cmds[i].Head().Priority < cmds[j].Head().Priority
	})
}

// Canvas is what a command draws into.
type Canvas struct {
	ctx *Context

	// Image receives the paint.
	Image *texture.Image
	// Previous is a copy of Image taken before the command started.
	Previous *texture.Image
	// Original is the target's starting texture, nil when it started from a color.
	Original      *texture.Image
	OriginalColor texture.Color
	Surface       Surface
}

// resolve looks up a texture reference, logging when a hash is missing.
func (c *Canvas) resolve(kind Kind, ref HashedTexture) (*texture.Image, bool) {
	img, ok := ref.Resolve(c.ctx)
	if !ok {
		c.ctx.log.Debug("skipping command with unresolved texture")
		c.ctx.metrics.CommandSkipped(kind.String())
	}
	return img, ok
}

// pixelFunc computes the source color and strength for one texel.
// Returning a strength of 0 leaves the texel untouched.
type pixelFunc func(x, y int, u, v float32) (src texture.Color, strength float32)

// paint runs fn over every texel and blends the result with bm.
func (c *Canvas) paint(bm *BlendMode, custom *texture.Image, fn pixelFunc) {
	c.paintAdjusted(bm, custom, fn, nil)
}

// paintAdjusted is paint with a hook that may rewrite each blended texel
// before the channel mask and quantization.
func (c *Canvas) paintAdjusted(bm *BlendMode, custom *texture.Image, fn pixelFunc, adjust func(dst, out texture.Color) texture.Color) {
	s := pixelSampler{canvas: c, custom: custom, customColor: bm.Color}
	w, h := c.Image.Width(), c.Image.Height()
	channels := bm.channels()

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			u, v := c.Image.UV(x, y)
			src, strength := fn(x, y, u, v)
			if strength <= 0 {
				continue
			}
			s.u, s.v = u, v
			dst := c.Image.Pixel(x, y)
			out := blend.Apply(bm.Mode, dst, src, strength, bm.Kernel, &s)
			if adjust != nil {
				out = adjust(dst, out)
			}
			c.Image.SetPixel(x, y, blend.Mask(dst, out, channels))
		}
	}
}

// pixelSampler serves the extra blend inputs for the texel at (u, v).
type pixelSampler struct {
	canvas      *Canvas
	custom      *texture.Image
	customColor texture.Color
	u, v        float32
}

func (s *pixelSampler) Original() texture.Color {
	col := s.canvas.OriginalColor
	if s.canvas.Original != nil {
		col = col.Mul(s.canvas.Original.Sample(s.u, s.v))
	}
	return col
}

func (s *pixelSampler) Custom() texture.Color {
	col := s.customColor
	if s.custom != nil {
		col = col.Mul(s.custom.Sample(s.u, s.v))
	}
	return col
}

func (s *pixelSampler) Offset(dx, dy float32) texture.Color {
	prev := s.canvas.Previous
	return prev.Sample(s.u+dx/float32(prev.Width()), s.v+dy/float32(prev.Height()))
}

// sampleOr samples img, or returns white when img is nil.
func sampleOr(img *texture.Image, u, v float32) texture.Color {
	if img == nil {
		return texture.White
	}
	return img.Sample(u, v)
}
