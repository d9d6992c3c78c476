package paint

import (
	"github.com/Faultbox/paintcore/internal/blend"
	"github.com/Faultbox/paintcore/internal/texture"
	pmath "github.com/Faultbox/paintcore/pkg/math"
)

// ReplaceChannelsCommand builds each output channel from its own texture.
// Each source texel is reduced to one value with the matching channel
// selector, so (0,0,0,1) picks alpha and (0.33,0.33,0.33,0) a gray level.
type ReplaceChannelsCommand struct {
	Header
	Blend    BlendMode        `json:"blend"`
	Textures [4]HashedTexture `json:"textures"`
	Channels [4]pmath.Vec4    `json:"channels"`
	Color    texture.Color    `json:"color"`

	ctx *Context
}

// NewReplaceChannels returns a template that copies the red channel of
// texR, the green of texG and so on.
func (c *Context) NewReplaceChannels(texR, texG, texB, texA HashedTexture) *ReplaceChannelsCommand {
	return &ReplaceChannelsCommand{
		Blend:    NewBlendMode(blend.Replace),
		Textures: [4]HashedTexture{texR, texG, texB, texA},
		Channels: [4]pmath.Vec4{{X: 1}, {Y: 1}, {Z: 1}, {W: 1}},
		Color:    texture.White,
		ctx:      c,
	}
}

func (r *ReplaceChannelsCommand) Kind() Kind    { return KindReplaceChannels }
func (r *ReplaceChannelsCommand) Head() *Header { return &r.Header }

func (r *ReplaceChannelsCommand) SpawnCopy() Command {
	cp := poolOf[ReplaceChannelsCommand](r.ctx, KindReplaceChannels).Get()
	*cp = *r
	return cp
}

func (r *ReplaceChannelsCommand) Pool() {
	poolOf[ReplaceChannelsCommand](r.ctx, KindReplaceChannels).Put(r)
}

func (r *ReplaceChannelsCommand) Bind(t *PaintableTexture) {
	r.Blend.bind(t)
}

// Transform is a no-op: channel replacement has no world space fields.
func (r *ReplaceChannelsCommand) Transform(_, _, _ pmath.Mat4) {}

func (r *ReplaceChannelsCommand) Apply(c *Canvas) bool {
	var srcs [4]*texture.Image
	for i, ref := range r.Textures {
		img, ok := c.resolve(KindReplaceChannels, ref)
		if !ok {
			return false
		}
		srcs[i] = img
	}
	custom, ok := r.Blend.custom(c, KindReplaceChannels)
	if !ok {
		return false
	}

	c.paint(&r.Blend, custom, func(_, _ int, u, v float32) (texture.Color, float32) {
		var col texture.Color
		for i := 0; i < 4; i++ {
			s := sampleOr(srcs[i], u, v)
			col = col.With(i, pmath.V4(s.R, s.G, s.B, s.A).Dot(r.Channels[i]))
		}
		return col.Mul(r.Color), 1
	})
	return true
}
