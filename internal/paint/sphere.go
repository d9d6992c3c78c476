package paint

import (
	"github.com/Faultbox/paintcore/internal/blend"
	"github.com/Faultbox/paintcore/internal/texture"
	pmath "github.com/Faultbox/paintcore/pkg/math"
)

// SphereCommand paints a soft sphere (or a stretched ellipsoid) in world
// space, swept along its Location.
type SphereCommand struct {
	Header
	Location
	Blend BlendMode `json:"blend"`
	// Matrix holds the brush rotation and size, without translation.
	Matrix   pmath.Mat4    `json:"matrix"`
	Color    texture.Color `json:"color"`
	Opacity  float32       `json:"opacity"`
	Hardness float32       `json:"hardness"`
	Tile     Tile          `json:"tile"`
	Mask     Mask          `json:"mask"`

	ctx *Context
}

// NewSphere returns a sphere template of the given radius.
func (c *Context) NewSphere(color texture.Color, radius float32) *SphereCommand {
	s := &SphereCommand{
		Blend:    NewBlendMode(blend.AlphaBlend),
		Color:    color,
		Opacity:  1,
		Hardness: 1,
		ctx:      c,
	}
	s.In3D = true
	s.SetRadius(radius)
	return s
}

// SetRadius makes the brush a sphere.
func (s *SphereCommand) SetRadius(radius float32) {
	s.Matrix = pmath.Scale(radius, radius, radius)
}

// SetShape sets an oriented ellipsoid. angle (degrees) spins it around its
// facing axis; rotation is ignored for 2D brushes.
func (s *SphereCommand) SetShape(rotation pmath.Quat, size pmath.Vec3, angle float32) {
	spin := pmath.QuatFromEuler(0, 0, angle)
	if s.In3D {
		spin = rotation.OrIdentity().Mul(spin)
	}
	s.Matrix = pmath.TRS(pmath.Vec3{}, spin, size)
}

func (s *SphereCommand) Kind() Kind    { return KindSphere }
func (s *SphereCommand) Head() *Header { return &s.Header }

func (s *SphereCommand) SpawnCopy() Command {
	cp := poolOf[SphereCommand](s.ctx, KindSphere).Get()
	*cp = *s
	return cp
}

func (s *SphereCommand) Pool() {
	poolOf[SphereCommand](s.ctx, KindSphere).Put(s)
}

func (s *SphereCommand) Bind(t *PaintableTexture) {
	s.Blend.bind(t)
}

func (s *SphereCommand) Transform(posMatrix, rotMatrix, rotMatrix2 pmath.Mat4) {
	s.Location.transform(posMatrix)
	s.Matrix = rotMatrix.Mul(s.Matrix.OrIdentity()).Mul(rotMatrix2)
}

func (s *SphereCommand) Apply(c *Canvas) bool {
	tileImg, maskImg, ok := resolveExtras(c, KindSphere, &s.Tile, &s.Mask)
	if !ok {
		return false
	}
	custom, ok := s.Blend.custom(c, KindSphere)
	if !ok {
		return false
	}

	inv := s.Matrix.OrIdentity().Inverse()
	shape := s.Location.local(inv)

	c.paint(&s.Blend, custom, func(_, _ int, u, v float32) (texture.Color, float32) {
		world := c.Surface.World(u, v)
		d, ok := shape.offset(inv.MultiplyPoint(world))
		if !ok {
			return texture.Color{}, 0
		}
		dist := d.Length()
		if dist >= 1 {
			return texture.Color{}, 0
		}
		strength := pmath.Clamp01((1-dist)*s.Hardness) * s.Opacity
		strength *= s.Mask.weight(maskImg, world)
		return s.Tile.apply(tileImg, world, s.Color), strength
	})
	return true
}
