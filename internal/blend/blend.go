// Package blend implements the per-pixel blending modes used by paint
// commands.
package blend

import (
	"github.com/chewxy/math32"

	"github.com/Faultbox/paintcore/internal/texture"
	pmath "github.com/Faultbox/paintcore/pkg/math"
)

// Mode selects a blending function.
type Mode int

const (
	AlphaBlend Mode = iota
	AlphaBlendInverse
	Premultiplied
	Additive
	AdditiveSoft
	Subtractive
	SubtractiveSoft
	Replace
	ReplaceOriginal
	ReplaceCustom
	MultiplyInverseRGB
	Blur
	NormalBlend
	NormalReplace
	Flow
	NormalReplaceOriginal
	NormalReplaceCustom
	Min
	Max

	// Count is the number of modes.
	Count
)

var names = [Count]string{
	"Alpha Blend",
	"Alpha Blend Inverse",
	"Premultiplied",
	"Additive",
	"Additive Soft",
	"Subtractive",
	"Subtractive Soft",
	"Replace",
	"Replace Original",
	"Replace Custom",
	"Multiply RGB Inverse",
	"Blur",
	"Normal Blend",
	"Normal Replace",
	"Flow",
	"Normal Replace Original",
	"Normal Replace Custom",
	"Min",
	"Max",
}

// Name returns the display name of m, or "" when m is out of range.
func Name(m Mode) string {
	if m < 0 || m >= Count {
		return ""
	}
	return names[m]
}

// Parse finds a mode by display name, ignoring case and spaces.
func Parse(name string) (Mode, bool) {
	key := normalize(name)
	for i, n := range names {
		if normalize(n) == key {
			return Mode(i), true
		}
	}
	return AlphaBlend, false
}

func (m Mode) String() string {
	return Name(m)
}

// UsesReplacement reports whether m reads the original or custom
// replacement pixel.
func (m Mode) UsesReplacement() bool {
	switch m {
	case ReplaceOriginal, ReplaceCustom, NormalReplaceOriginal, NormalReplaceCustom:
		return true
	}
	return false
}

// UsesKernel reports whether m samples neighbouring pixels.
func (m Mode) UsesKernel() bool {
	return m == Blur || m == Flow
}

// Sampler supplies the extra inputs some modes need for the pixel being
// blended.
type Sampler interface {
	// Original returns the target's original pixel.
	Original() texture.Color
	// Custom returns the custom replacement pixel.
	Custom() texture.Color
	// Offset reads the pre-command image at a pixel offset.
	Offset(dx, dy float32) texture.Color
}

// AllChannels lets a blend modify every channel.
var AllChannels = pmath.One4()

// Apply blends src into dst. strength is the paint coverage (opacity times
// brush falloff); the alpha of src scales it further for the blending modes
// and is written through by the replacing modes. kernel is the sample
// distance in pixels for Blur and Flow. s may be nil for the other modes.
func Apply(m Mode, dst, src texture.Color, strength, kernel float32, s Sampler) texture.Color {
	a := src.A * strength
	switch m {
	case AlphaBlend:
		out := dst.Lerp(src, a)
		out.A = dst.A + a*(1-dst.A)
		return out.Clamp()
	case AlphaBlendInverse:
		out := src.Lerp(dst, dst.A)
		out = dst.Lerp(out, strength)
		out.A = dst.A + a*(1-dst.A)
		return out.Clamp()
	case Premultiplied:
		out := dst.Scale(1 - a).Add(texture.Color{R: src.R * strength, G: src.G * strength, B: src.B * strength, A: a})
		return out.Clamp()
	case Additive:
		return dst.Add(src.Scale(a)).Clamp()
	case AdditiveSoft:
		return dst.Add(src.Scale(a).Mul(inverse(dst))).Clamp()
	case Subtractive:
		return dst.Add(src.Scale(-a)).Clamp()
	case SubtractiveSoft:
		return dst.Add(src.Scale(-a).Mul(dst)).Clamp()
	case Replace:
		return dst.Lerp(src, strength).Clamp()
	case ReplaceOriginal:
		return dst.Lerp(sampleOriginal(s), strength).Clamp()
	case ReplaceCustom:
		return dst.Lerp(sampleCustom(s), strength).Clamp()
	case MultiplyInverseRGB:
		out := dst
		out.R *= 1 - src.R*a
		out.G *= 1 - src.G*a
		out.B *= 1 - src.B*a
		return out.Clamp()
	case Blur:
		return dst.Lerp(blur(dst, kernel, s), a).Clamp()
	case NormalBlend:
		return normalLerp(dst, src, a, true)
	case NormalReplace:
		return normalLerp(dst, src, strength, false)
	case Flow:
		return dst.Lerp(flow(dst, src, kernel, s), a).Clamp()
	case NormalReplaceOriginal:
		return normalLerp(dst, sampleOriginal(s), strength, false)
	case NormalReplaceCustom:
		return normalLerp(dst, sampleCustom(s), strength, false)
	case Min:
		return dst.Lerp(minColor(dst, src), strength).Clamp()
	case Max:
		return dst.Lerp(maxColor(dst, src), strength).Clamp()
	default:
		return Apply(AlphaBlend, dst, src, strength, kernel, s)
	}
}

// Mask keeps the channels of before where the matching channel weight is 0
// and takes after where it is 1.
func Mask(before, after texture.Color, channels pmath.Vec4) texture.Color {
	return texture.Color{
		R: before.R + (after.R-before.R)*channels.X,
		G: before.G + (after.G-before.G)*channels.Y,
		B: before.B + (after.B-before.B)*channels.Z,
		A: before.A + (after.A-before.A)*channels.W,
	}
}

func inverse(c texture.Color) texture.Color {
	return texture.Color{R: 1 - c.R, G: 1 - c.G, B: 1 - c.B, A: 1 - c.A}
}

func minColor(a, b texture.Color) texture.Color {
	return texture.Color{R: math32.Min(a.R, b.R), G: math32.Min(a.G, b.G), B: math32.Min(a.B, b.B), A: math32.Min(a.A, b.A)}
}

func maxColor(a, b texture.Color) texture.Color {
	return texture.Color{R: math32.Max(a.R, b.R), G: math32.Max(a.G, b.G), B: math32.Max(a.B, b.B), A: math32.Max(a.A, b.A)}
}

func sampleOriginal(s Sampler) texture.Color {
	if s == nil {
		return texture.White
	}
	return s.Original()
}

func sampleCustom(s Sampler) texture.Color {
	if s == nil {
		return texture.White
	}
	return s.Custom()
}

// blur averages the centre and its eight neighbours at kernel distance.
func blur(center texture.Color, kernel float32, s Sampler) texture.Color {
	if s == nil || kernel <= 0 {
		return center
	}
	sum := center
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			sum = sum.Add(s.Offset(float32(dx)*kernel, float32(dy)*kernel))
		}
	}
	return sum.Scale(1.0 / 9)
}

// flow drags pixels along the direction encoded in the source red and green
// channels, where 0.5 means no movement.
func flow(center, src texture.Color, kernel float32, s Sampler) texture.Color {
	if s == nil || kernel <= 0 {
		return center
	}
	dx := (src.R*2 - 1) * kernel
	dy := (src.G*2 - 1) * kernel
	return s.Offset(-dx, -dy)
}

// normalLerp blends tangent space normals stored as rgb in [0,1]. When
// detail is set the source normal is layered on top of the destination
// instead of replacing it.
func normalLerp(dst, src texture.Color, a float32, detail bool) texture.Color {
	d := decodeNormal(dst)
	n := decodeNormal(src)
	if detail {
		n = pmath.Vec3{X: d.X + n.X, Y: d.Y + n.Y, Z: d.Z * n.Z}
	}
	out := d.Lerp(n, a).Normalize()
	if out.Length() == 0 {
		out = pmath.Vec3{Z: 1}
	}
	return texture.Color{
		R: out.X*0.5 + 0.5,
		G: out.Y*0.5 + 0.5,
		B: out.Z*0.5 + 0.5,
		A: dst.A + (src.A-dst.A)*a,
	}.Clamp()
}

func decodeNormal(c texture.Color) pmath.Vec3 {
	return pmath.Vec3{X: c.R*2 - 1, Y: c.G*2 - 1, Z: c.B*2 - 1}
}

func normalize(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == ' ' || c == '_' || c == '-':
			continue
		case c >= 'A' && c <= 'Z':
			c += 'a' - 'A'
		}
		out = append(out, c)
	}
	return string(out)
}
