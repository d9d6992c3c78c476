package paint

import (
	"github.com/Faultbox/paintcore/internal/blend"
	"github.com/Faultbox/paintcore/internal/texture"
	pmath "github.com/Faultbox/paintcore/pkg/math"
)

// BlendMode configures how a command's color combines with the target.
type BlendMode struct {
	Mode blend.Mode `json:"mode"`
	// Color and Texture supply the replacement for the Replace Custom
	// modes. The Replace Original modes copy them from the target on Bind.
	Color   texture.Color `json:"color"`
	Texture HashedTexture `json:"texture"`
	// Kernel is the sample distance in pixels for Blur and Flow.
	Kernel float32 `json:"kernel,omitempty"`
	// Channels weights which RGBA channels may change. The zero value means all.
	Channels pmath.Vec4 `json:"channels"`
}

// NewBlendMode returns mode with its usual defaults.
func NewBlendMode(mode blend.Mode) BlendMode {
	bm := BlendMode{
		Mode:     mode,
		Color:    texture.White,
		Kernel:   1,
		Channels: pmath.One4(),
	}
	if mode == blend.Flow {
		bm.Color = texture.Gray
	}
	return bm
}

// ReplaceCustomBlend replaces with color multiplied by tex.
func ReplaceCustomBlend(color texture.Color, tex HashedTexture) BlendMode {
	bm := NewBlendMode(blend.ReplaceCustom)
	bm.Color = color
	bm.Texture = tex
	return bm
}

func (bm *BlendMode) channels() pmath.Vec4 {
	if bm.Channels == (pmath.Vec4{}) {
		return pmath.One4()
	}
	return bm.Channels
}

func (bm *BlendMode) bind(t *PaintableTexture) {
	if bm.Mode == blend.ReplaceOriginal || bm.Mode == blend.NormalReplaceOriginal {
		bm.Color = t.opts.Color
		bm.Texture = t.ctx.TextureRef(t.opts.Texture)
	}
}

// custom resolves the replacement texture for the custom modes.
func (bm *BlendMode) custom(c *Canvas, kind Kind) (*texture.Image, bool) {
	if bm.Mode != blend.ReplaceCustom && bm.Mode != blend.NormalReplaceCustom {
		return nil, true
	}
	return c.resolve(kind, bm.Texture)
}
