package blend

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Faultbox/paintcore/internal/texture"
	pmath "github.com/Faultbox/paintcore/pkg/math"
)

type fakeSampler struct {
	original, custom texture.Color
	offset           func(dx, dy float32) texture.Color
}

func (f fakeSampler) Original() texture.Color { return f.original }
func (f fakeSampler) Custom() texture.Color   { return f.custom }
func (f fakeSampler) Offset(dx, dy float32) texture.Color {
	if f.offset == nil {
		return texture.Black
	}
	return f.offset(dx, dy)
}

func assertColor(t *testing.T, want, got texture.Color) {
	t.Helper()
	assert.InDelta(t, want.R, got.R, 1e-4, "R")
	assert.InDelta(t, want.G, got.G, 1e-4, "G")
	assert.InDelta(t, want.B, got.B, 1e-4, "B")
	assert.InDelta(t, want.A, got.A, 1e-4, "A")
}

func TestNames(t *testing.T) {
	assert.Equal(t, "Alpha Blend", Name(AlphaBlend))
	assert.Equal(t, "Max", Name(Max))
	assert.Equal(t, "", Name(Count))
	assert.Equal(t, "", Name(-1))
	assert.Equal(t, 19, int(Count))

	m, ok := Parse("replace_original")
	assert.True(t, ok)
	assert.Equal(t, ReplaceOriginal, m)

	_, ok = Parse("nope")
	assert.False(t, ok)
}

func TestApply(t *testing.T) {
	gray := texture.Gray
	s := fakeSampler{original: texture.RGBA(0, 0, 1, 1), custom: texture.RGBA(0, 1, 0, 1)}

	tests := []struct {
		name string
		mode Mode
		dst  texture.Color
		src  texture.Color
		want texture.Color
	}{
		{"alpha full", AlphaBlend, texture.Black, texture.White, texture.White},
		{"alpha half", AlphaBlend, texture.Black, texture.RGBA(1, 1, 1, 0.5), texture.RGBA(0.5, 0.5, 0.5, 1)},
		{"alpha zero", AlphaBlend, gray, texture.RGBA(1, 0, 0, 0), gray},
		{"additive", Additive, gray, texture.RGBA(0.25, 0.25, 0.25, 1), texture.RGBA(0.75, 0.75, 0.75, 1)},
		{"additive clamps", Additive, texture.White, texture.White, texture.White},
		{"subtractive", Subtractive, gray, texture.RGBA(0.25, 0.5, 1, 1), texture.RGBA(0.25, 0, 0, 0)},
		{"replace", Replace, texture.Black, texture.RGBA(1, 0, 0, 1), texture.RGBA(1, 0, 0, 1)},
		{"replace keeps alpha", Replace, texture.Black, texture.RGBA(1, 1, 1, 0.25), texture.RGBA(1, 1, 1, 0.25)},
		{"replace original", ReplaceOriginal, texture.White, texture.RGBA(1, 1, 1, 1), texture.RGBA(0, 0, 1, 1)},
		{"replace custom", ReplaceCustom, texture.White, texture.RGBA(1, 1, 1, 1), texture.RGBA(0, 1, 0, 1)},
		{"min", Min, gray, texture.RGBA(1, 0, 1, 1), texture.RGBA(0.5, 0, 0.5, 1)},
		{"max", Max, gray, texture.RGBA(1, 0, 1, 1), texture.RGBA(1, 0.5, 1, 1)},
		{"multiply inverse", MultiplyInverseRGB, texture.White, texture.RGBA(0.5, 0, 1, 1), texture.RGBA(0.5, 1, 0, 1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertColor(t, tt.want, Apply(tt.mode, tt.dst, tt.src, 1, 1, s))
		})
	}
}

func TestApplyNilSamplerUsesWhite(t *testing.T) {
	assertColor(t, texture.White, Apply(ReplaceOriginal, texture.Black, texture.White, 1, 1, nil))
	assertColor(t, texture.Black, Apply(Blur, texture.Black, texture.White, 1, 1, nil))
}

func TestBlurAveragesNeighbours(t *testing.T) {
	s := fakeSampler{offset: func(dx, dy float32) texture.Color { return texture.White }}
	got := Apply(Blur, texture.Black, texture.White, 1, 1, s)
	assert.InDelta(t, 8.0/9.0, got.R, 1e-4)
}

func TestFlowSamplesAlongDirection(t *testing.T) {
	var gotDX, gotDY float32
	s := fakeSampler{offset: func(dx, dy float32) texture.Color {
		gotDX, gotDY = dx, dy
		return texture.White
	}}
	out := Apply(Flow, texture.Black, texture.RGBA(1, 0.5, 0, 1), 1, 4, s)
	assert.InDelta(t, -4, gotDX, 1e-4)
	assert.InDelta(t, 0, gotDY, 1e-4)
	assertColor(t, texture.White, out)
}

func TestNormalReplaceStaysUnit(t *testing.T) {
	flat := texture.RGBA(0.5, 0.5, 1, 1)
	tilted := texture.RGBA(1, 0.5, 0.5, 1)
	out := Apply(NormalReplace, flat, tilted, 1, 1, nil)
	assertColor(t, tilted, out)

	half := Apply(NormalReplace, flat, tilted, 0.5, 1, nil)
	n := pmath.V3(half.R*2-1, half.G*2-1, half.B*2-1)
	assert.InDelta(t, 1, n.Length(), 0.01)
}

func TestMask(t *testing.T) {
	before := texture.Black
	after := texture.White
	got := Mask(before, after, pmath.V4(1, 0, 0, 1))
	assertColor(t, texture.RGBA(1, 0, 0, 1), got)
	assertColor(t, after, Mask(before, after, AllChannels))
}
