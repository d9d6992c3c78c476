package paint

import (
	"github.com/Faultbox/paintcore/internal/blend"
	"github.com/Faultbox/paintcore/internal/texture"
	pmath "github.com/Faultbox/paintcore/pkg/math"
)

// ReplaceCommand overwrites the target with a texture scaled to fit,
// tinted by Color.
type ReplaceCommand struct {
	Header
	Blend   BlendMode     `json:"blend"`
	Texture HashedTexture `json:"texture"`
	Color   texture.Color `json:"color"`

	ctx *Context
}

// NewReplace returns a replace template.
func (c *Context) NewReplace(tex HashedTexture, color texture.Color) *ReplaceCommand {
	return &ReplaceCommand{
		Blend:   NewBlendMode(blend.Replace),
		Texture: tex,
		Color:   color,
		ctx:     c,
	}
}

func (r *ReplaceCommand) Kind() Kind    { return KindReplace }
func (r *ReplaceCommand) Head() *Header { return &r.Header }

func (r *ReplaceCommand) SpawnCopy() Command {
	cp := poolOf[ReplaceCommand](r.ctx, KindReplace).Get()
	*cp = *r
	return cp
}

func (r *ReplaceCommand) Pool() {
	poolOf[ReplaceCommand](r.ctx, KindReplace).Put(r)
}

func (r *ReplaceCommand) Bind(t *PaintableTexture) {
	r.Blend.bind(t)
}

// Transform is a no-op: a replace has no world space fields.
func (r *ReplaceCommand) Transform(_, _, _ pmath.Mat4) {}

func (r *ReplaceCommand) Apply(c *Canvas) bool {
	src, ok := c.resolve(KindReplace, r.Texture)
	if !ok {
		return false
	}
	custom, ok := r.Blend.custom(c, KindReplace)
	if !ok {
		return false
	}

	var scaled *texture.Image
	if src != nil {
		scaled = c.ctx.images.Get(c.Image.Width(), c.Image.Height())
		scaled.CopyFrom(src)
		defer c.ctx.images.Put(scaled)
	}

	c.paint(&r.Blend, custom, func(x, y int, _, _ float32) (texture.Color, float32) {
		col := r.Color
		if scaled != nil {
			col = col.Mul(scaled.Pixel(x, y))
		}
		return col, 1
	})
	return true
}
