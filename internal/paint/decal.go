package paint

import (
	"github.com/chewxy/math32"

	"github.com/Faultbox/paintcore/internal/blend"
	"github.com/Faultbox/paintcore/internal/texture"
	pmath "github.com/Faultbox/paintcore/pkg/math"
)

// DecalCommand projects a texture through a box onto the surface.
type DecalCommand struct {
	Header
	Location
	Blend BlendMode `json:"blend"`
	// Matrix holds the box rotation and size, without translation.
	Matrix pmath.Mat4 `json:"matrix"`
	// Direction is the projection direction in world space.
	Direction    pmath.Vec3    `json:"direction"`
	Color        texture.Color `json:"color"`
	Opacity      float32       `json:"opacity"`
	Hardness     float32       `json:"hardness"`
	Texture      HashedTexture `json:"texture"`
	Shape        HashedTexture `json:"shape"`
	ShapeChannel pmath.Vec4    `json:"shape_channel"`
	// NormalFront and NormalBack are (start, 1/fade) ramps over how
	// directly a texel faces the projector. See SetNormalRange.
	NormalFront pmath.Vec2 `json:"normal_front"`
	NormalBack  pmath.Vec2 `json:"normal_back"`
	Tile        Tile       `json:"tile"`
	Mask        Mask       `json:"mask"`

	ctx *Context
}

// NewDecal returns a decal template that stamps tex within a box of the
// given size, painting surfaces that face it.
func (c *Context) NewDecal(tex HashedTexture, color texture.Color, size pmath.Vec3) *DecalCommand {
	d := &DecalCommand{
		Blend:        NewBlendMode(blend.AlphaBlend),
		Color:        color,
		Opacity:      1,
		Hardness:     1,
		Texture:      tex,
		ShapeChannel: channelVector(3),
		ctx:          c,
	}
	d.In3D = true
	d.SetShape(pmath.QuatIdentity(), size, 0)
	d.SetNormalRange(1, 0, 0.1)
	return d
}

// SetShape orients the projection box. rotation faces the projection along
// +Z; angle (degrees) spins the decal around that axis.
func (d *DecalCommand) SetShape(rotation pmath.Quat, size pmath.Vec3, angle float32) {
	rotation = rotation.OrIdentity()
	spin := pmath.QuatFromEuler(0, 0, angle)
	if d.In3D {
		spin = rotation.Mul(spin)
	}
	d.Matrix = pmath.TRS(pmath.Vec3{}, spin, size)
	d.Direction = rotation.Rotate(pmath.V3(0, 0, 1))
}

// SetNormalRange controls which texels receive paint by facing. front in
// [0, 2] widens coverage from head-on (0) through the front hemisphere (1)
// to everything (2); back in [0, 2] does the same from behind. fade
// softens both edges.
func (d *DecalCommand) SetNormalRange(front, back, fade float32) {
	fade = math32.Max(fade, 1e-4)
	d.NormalFront = pmath.Vec2{X: 1 - front, Y: 1 / fade}
	d.NormalBack = pmath.Vec2{X: back - 1, Y: 1 / fade}
}

func (d *DecalCommand) Kind() Kind    { return KindDecal }
func (d *DecalCommand) Head() *Header { return &d.Header }

func (d *DecalCommand) SpawnCopy() Command {
	cp := poolOf[DecalCommand](d.ctx, KindDecal).Get()
	*cp = *d
	return cp
}

func (d *DecalCommand) Pool() {
	poolOf[DecalCommand](d.ctx, KindDecal).Put(d)
}

func (d *DecalCommand) Bind(t *PaintableTexture) {
	d.Blend.bind(t)
}

func (d *DecalCommand) Transform(posMatrix, rotMatrix, rotMatrix2 pmath.Mat4) {
	d.Location.transform(posMatrix)
	d.Matrix = rotMatrix.Mul(d.Matrix.OrIdentity()).Mul(rotMatrix2)
	d.Direction = d.Matrix.MultiplyVector(pmath.V3(0, 0, 1)).Normalize()
}

func (d *DecalCommand) Apply(c *Canvas) bool {
	tex, ok := c.resolve(KindDecal, d.Texture)
	if !ok {
		return false
	}
	shapeImg, ok := c.resolve(KindDecal, d.Shape)
	if !ok {
		return false
	}
	tileImg, maskImg, ok := resolveExtras(c, KindDecal, &d.Tile, &d.Mask)
	if !ok {
		return false
	}
	custom, ok := d.Blend.custom(c, KindDecal)
	if !ok {
		return false
	}

	inv := d.Matrix.OrIdentity().Inverse()
	loc := d.Location.local(inv)
	dir := d.Direction.Normalize()
	if dir == (pmath.Vec3{}) {
		dir = d.Matrix.OrIdentity().MultiplyVector(pmath.V3(0, 0, 1)).Normalize()
	}

	c.paint(&d.Blend, custom, func(_, _ int, u, v float32) (texture.Color, float32) {
		world := c.Surface.World(u, v)
		p, ok := loc.offset(inv.MultiplyPoint(world))
		if !ok || math32.Abs(p.X) > 1 || math32.Abs(p.Y) > 1 {
			return texture.Color{}, 0
		}

		strength := d.Opacity
		if d.In3D {
			depth := math32.Abs(p.Z)
			if depth > 1 {
				return texture.Color{}, 0
			}
			strength *= pmath.Clamp01((1 - depth) * d.Hardness)
			strength *= d.facing(c.Surface.Normal(u, v), dir)
		}

		du, dv := p.X*0.5+0.5, p.Y*0.5+0.5
		if shapeImg != nil {
			s := shapeImg.Sample(du, dv)
			strength *= pmath.V4(s.R, s.G, s.B, s.A).Dot(d.ShapeChannel)
		}
		strength *= d.Mask.weight(maskImg, world)

		col := d.Color.Mul(sampleOr(tex, du, dv))
		return d.Tile.apply(tileImg, world, col), strength
	})
	return true
}

// facing weights a texel by how its normal faces the projector.
func (d *DecalCommand) facing(normal, dir pmath.Vec3) float32 {
	if d.NormalFront == (pmath.Vec2{}) && d.NormalBack == (pmath.Vec2{}) {
		return 1
	}
	f := -normal.Dot(dir)
	front := pmath.Clamp01((f - d.NormalFront.X) * d.NormalFront.Y)
	back := pmath.Clamp01((d.NormalBack.X - f) * d.NormalBack.Y)
	return math32.Max(front, back)
}
