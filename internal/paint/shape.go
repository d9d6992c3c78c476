package paint

import (
	"github.com/chewxy/math32"

	"github.com/Faultbox/paintcore/internal/texture"
	pmath "github.com/Faultbox/paintcore/pkg/math"
)

// Location is where a world space brush is applied: a point, a line, a
// triangle or a quad. Extrusions counts the extra dimensions (0, 1 or 2).
type Location struct {
	In3D         bool       `json:"in3d"`
	Extrusions   int        `json:"extrusions,omitempty"`
	Clip         bool       `json:"clip,omitempty"`
	Position     pmath.Vec3 `json:"position"`
	EndPosition  pmath.Vec3 `json:"end_position"`
	Position2    pmath.Vec3 `json:"position2"`
	EndPosition2 pmath.Vec3 `json:"end_position2"`
}

// SetPoint places the brush at a single point.
func (l *Location) SetPoint(position pmath.Vec3, in3D bool) {
	*l = Location{In3D: in3D, Position: position}
}

// SetLine sweeps the brush from position to end. With clip set the start
// cap is left out so consecutive segments do not paint their joint twice.
func (l *Location) SetLine(position, end pmath.Vec3, in3D, clip bool) {
	*l = Location{In3D: in3D, Extrusions: 1, Clip: clip, Position: position, EndPosition: end}
}

// SetTriangle fills the triangle abc.
func (l *Location) SetTriangle(a, b, c pmath.Vec3, in3D bool) {
	*l = Location{In3D: in3D, Extrusions: 2, Position: a, EndPosition: b, Position2: c, EndPosition2: a}
}

// SetQuad fills the quad with corners in the given order. With clip set the
// edge position-end is left out.
func (l *Location) SetQuad(position, end, position2, end2 pmath.Vec3, in3D, clip bool) {
	*l = Location{
		In3D: in3D, Extrusions: 2, Clip: clip,
		Position: position, EndPosition: end, Position2: position2, EndPosition2: end2,
	}
}

func (l *Location) transform(posMatrix pmath.Mat4) {
	l.Position = posMatrix.MultiplyPoint(l.Position)
	l.EndPosition = posMatrix.MultiplyPoint(l.EndPosition)
	l.Position2 = posMatrix.MultiplyPoint(l.Position2)
	l.EndPosition2 = posMatrix.MultiplyPoint(l.EndPosition2)
}

// localShape is a Location moved into brush space.
type localShape struct {
	in3D       bool
	extrusions int
	clip       bool
	a, b, c, d pmath.Vec3
}

func (l *Location) local(inv pmath.Mat4) localShape {
	s := localShape{
		in3D:       l.In3D,
		extrusions: l.Extrusions,
		clip:       l.Clip,
		a:          inv.MultiplyPoint(l.Position),
		b:          inv.MultiplyPoint(l.EndPosition),
		c:          inv.MultiplyPoint(l.Position2),
		d:          inv.MultiplyPoint(l.EndPosition2),
	}
	if !s.in3D {
		s.a.Z, s.b.Z, s.c.Z, s.d.Z = 0, 0, 0, 0
	}
	return s
}

// offset returns p relative to the nearest point of the shape, or false when
// p falls in a clipped region.
func (s *localShape) offset(p pmath.Vec3) (pmath.Vec3, bool) {
	if !s.in3D {
		p.Z = 0
	}
	switch s.extrusions {
	case 0:
		return p.Sub(s.a), true
	case 1:
		t, raw := segmentParam(p, s.a, s.b)
		if s.clip && raw < 0 {
			return pmath.Vec3{}, false
		}
		return p.Sub(s.a.Lerp(s.b, t)), true
	default:
		if s.clip {
			// The sweep runs from edge ab to edge cd.
			if _, raw := segmentParam(p, s.a.Lerp(s.b, 0.5), s.c.Lerp(s.d, 0.5)); raw < 0 {
				return pmath.Vec3{}, false
			}
		}
		q1 := closestOnTriangle(p, s.a, s.b, s.c)
		q2 := closestOnTriangle(p, s.a, s.c, s.d)
		if p.Distance(q2) < p.Distance(q1) {
			q1 = q2
		}
		return p.Sub(q1), true
	}
}

// segmentParam projects p onto ab, returning the clamped and raw parameters.
func segmentParam(p, a, b pmath.Vec3) (t, raw float32) {
	ab := b.Sub(a)
	l2 := ab.Dot(ab)
	if l2 == 0 {
		return 0, 0
	}
	raw = p.Sub(a).Dot(ab) / l2
	return pmath.Clamp01(raw), raw
}

func closestOnTriangle(p, a, b, c pmath.Vec3) pmath.Vec3 {
	ab := b.Sub(a)
	ac := c.Sub(a)
	ap := p.Sub(a)
	d1, d2 := ab.Dot(ap), ac.Dot(ap)
	if d1 <= 0 && d2 <= 0 {
		return a
	}

	bp := p.Sub(b)
	d3, d4 := ab.Dot(bp), ac.Dot(bp)
	if d3 >= 0 && d4 <= d3 {
		return b
	}

	vc := d1*d4 - d3*d2
	if vc <= 0 && d1 >= 0 && d3 <= 0 {
		return a.Add(ab.Scale(d1 / (d1 - d3)))
	}

	cp := p.Sub(c)
	d5, d6 := ab.Dot(cp), ac.Dot(cp)
	if d6 >= 0 && d5 <= d6 {
		return c
	}

	vb := d5*d2 - d1*d6
	if vb <= 0 && d2 >= 0 && d6 <= 0 {
		return a.Add(ac.Scale(d2 / (d2 - d6)))
	}

	va := d3*d6 - d5*d4
	if va <= 0 && d4-d3 >= 0 && d5-d6 >= 0 {
		w := (d4 - d3) / ((d4 - d3) + (d5 - d6))
		return b.Add(c.Sub(b).Scale(w))
	}

	denom := va + vb + vc
	if denom == 0 {
		return a
	}
	v := vb / denom
	w := vc / denom
	return a.Add(ab.Scale(v)).Add(ac.Scale(w))
}

// Tile multiplies the brush color by a repeating texture laid out in world
// space by Matrix.
type Tile struct {
	Texture HashedTexture `json:"texture"`
	Matrix  pmath.Mat4    `json:"matrix"`
	Opacity float32       `json:"opacity,omitempty"`
}

func (t *Tile) apply(img *texture.Image, world pmath.Vec3, col texture.Color) texture.Color {
	if img == nil || t.Opacity <= 0 {
		return col
	}
	p := t.Matrix.OrIdentity().MultiplyPoint(world)
	s := img.Sample(fract(p.X), fract(p.Y))
	return col.Lerp(col.Mul(s), t.Opacity)
}

// Mask limits painting to a texture projected in world space. Matrix maps
// world space into the mask's [-1, 1] box.
type Mask struct {
	Texture HashedTexture `json:"texture"`
	Matrix  pmath.Mat4    `json:"matrix"`
	Channel pmath.Vec4    `json:"channel"`
	Invert  bool          `json:"invert,omitempty"`
}

// SetMask projects shape through matrix, reading the given channel.
func (m *Mask) SetMask(matrix pmath.Mat4, shape HashedTexture, channel int, invert bool) {
	*m = Mask{Texture: shape, Matrix: matrix, Channel: channelVector(channel), Invert: invert}
}

// Clear removes the mask.
func (m *Mask) Clear() {
	*m = Mask{}
}

func (m *Mask) weight(img *texture.Image, world pmath.Vec3) float32 {
	if img == nil {
		return 1
	}
	p := m.Matrix.OrIdentity().MultiplyPoint(world)
	var w float32
	if math32.Abs(p.X) <= 1 && math32.Abs(p.Y) <= 1 {
		s := img.Sample(p.X*0.5+0.5, p.Y*0.5+0.5)
		w = pmath.V4(s.R, s.G, s.B, s.A).Dot(m.Channel)
	}
	if m.Invert {
		w = 1 - w
	}
	return pmath.Clamp01(w)
}

// channelVector selects one of R, G, B, A by index.
func channelVector(i int) pmath.Vec4 {
	switch i {
	case 0:
		return pmath.V4(1, 0, 0, 0)
	case 1:
		return pmath.V4(0, 1, 0, 0)
	case 2:
		return pmath.V4(0, 0, 1, 0)
	default:
		return pmath.V4(0, 0, 0, 1)
	}
}

func fract(v float32) float32 {
	return v - math32.Floor(v)
}

// resolveExtras looks up the tile and mask textures of a brush.
func resolveExtras(c *Canvas, kind Kind, tile *Tile, mask *Mask) (tileImg, maskImg *texture.Image, ok bool) {
	if tileImg, ok = c.resolve(kind, tile.Texture); !ok {
		return nil, nil, false
	}
	if maskImg, ok = c.resolve(kind, mask.Texture); !ok {
		return nil, nil, false
	}
	return tileImg, maskImg, true
}
