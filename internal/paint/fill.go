package paint

import (
	"github.com/chewxy/math32"

	"github.com/Faultbox/paintcore/internal/blend"
	"github.com/Faultbox/paintcore/internal/texture"
	pmath "github.com/Faultbox/paintcore/pkg/math"
)

// FillCommand paints the whole texture with a color, optionally multiplied
// by a texture.
type FillCommand struct {
	Header
	Blend   BlendMode     `json:"blend"`
	Texture HashedTexture `json:"texture"`
	Color   texture.Color `json:"color"`
	Opacity float32       `json:"opacity"`
	// Minimum is the smallest per-channel step a partial fill may take, so
	// repeated low opacity fills still converge.
	Minimum float32 `json:"minimum,omitempty"`

	ctx *Context
}

// NewFill returns a fill template with alpha blending at full opacity.
func (c *Context) NewFill(color texture.Color) *FillCommand {
	return &FillCommand{
		Blend:   NewBlendMode(blend.AlphaBlend),
		Color:   color,
		Opacity: 1,
		ctx:     c,
	}
}

func (f *FillCommand) Kind() Kind    { return KindFill }
func (f *FillCommand) Head() *Header { return &f.Header }

func (f *FillCommand) SpawnCopy() Command {
	cp := poolOf[FillCommand](f.ctx, KindFill).Get()
	*cp = *f
	return cp
}

func (f *FillCommand) Pool() {
	poolOf[FillCommand](f.ctx, KindFill).Put(f)
}

func (f *FillCommand) Bind(t *PaintableTexture) {
	f.Blend.bind(t)
}

// Transform is a no-op: a fill has no world space fields.
func (f *FillCommand) Transform(_, _, _ pmath.Mat4) {}

func (f *FillCommand) Apply(c *Canvas) bool {
	tex, ok := c.resolve(KindFill, f.Texture)
	if !ok {
		return false
	}
	custom, ok := f.Blend.custom(c, KindFill)
	if !ok {
		return false
	}
	if f.Opacity <= 0 {
		return true
	}

	src := func(_, _ int, u, v float32) (texture.Color, float32) {
		return f.Color.Mul(sampleOr(tex, u, v)), f.Opacity
	}
	if f.Minimum <= 0 {
		c.paint(&f.Blend, custom, src)
		return true
	}
	c.paintAdjusted(&f.Blend, custom, src, func(dst, out texture.Color) texture.Color {
		return widen(dst, out, f.Minimum)
	})
	return true
}

// widen pushes every channel that moved by less than step out to step.
func widen(before, after texture.Color, step float32) texture.Color {
	for i := 0; i < 4; i++ {
		b, a := before.Get(i), after.Get(i)
		d := a - b
		if d == 0 || math32.Abs(d) >= step {
			continue
		}
		after = after.With(i, pmath.Clamp01(b+math32.Copysign(step, d)))
	}
	return after
}
