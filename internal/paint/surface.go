package paint

import (
	"github.com/chewxy/math32"

	pmath "github.com/Faultbox/paintcore/pkg/math"
)

// Surface maps texture coordinates to world space. World space brushes
// (spheres, decals) are evaluated per texel through it.
type Surface interface {
	World(u, v float32) pmath.Vec3
	Normal(u, v float32) pmath.Vec3
	Bounds() (min, max pmath.Vec3)
}

// PlaneSurface is a flat rectangle: texel (u, v) sits at
// Origin + Right*u + Up*v.
type PlaneSurface struct {
	Origin pmath.Vec3
	Right  pmath.Vec3
	Up     pmath.Vec3
}

// UnitPlane maps (u, v) to (u, v, 0), facing -Z.
func UnitPlane() PlaneSurface {
	return PlaneSurface{Right: pmath.V3(1, 0, 0), Up: pmath.V3(0, 1, 0)}
}

// NewPlaneSurface builds a plane of the given world size centered on center,
// lying in the XY plane.
func NewPlaneSurface(center pmath.Vec3, width, height float32) PlaneSurface {
	return PlaneSurface{
		Origin: center.Sub(pmath.V3(width/2, height/2, 0)),
		Right:  pmath.V3(width, 0, 0),
		Up:     pmath.V3(0, height, 0),
	}
}

func (p PlaneSurface) World(u, v float32) pmath.Vec3 {
	return p.Origin.Add(p.Right.Scale(u)).Add(p.Up.Scale(v))
}

// Normal points toward the side a viewer looking along +Z sees for the
// default axes.
func (p PlaneSurface) Normal(_, _ float32) pmath.Vec3 {
	return p.Up.Cross(p.Right).Normalize()
}

func (p PlaneSurface) Bounds() (min, max pmath.Vec3) {
	corners := [4]pmath.Vec3{
		p.Origin,
		p.Origin.Add(p.Right),
		p.Origin.Add(p.Up),
		p.Origin.Add(p.Right).Add(p.Up),
	}
	min, max = corners[0], corners[0]
	for _, c := range corners[1:] {
		min = pmath.V3(math32.Min(min.X, c.X), math32.Min(min.Y, c.Y), math32.Min(min.Z, c.Z))
		max = pmath.V3(math32.Max(max.X, c.X), math32.Max(max.Y, c.Y), math32.Max(max.Z, c.Z))
	}
	return min, max
}

// overlapsSphere reports whether s's bounds come within radius of center.
func overlapsSphere(s Surface, center pmath.Vec3, radius float32) bool {
	min, max := s.Bounds()
	closest := pmath.V3(
		clampf(center.X, min.X, max.X),
		clampf(center.Y, min.Y, max.Y),
		clampf(center.Z, min.Z, max.Z),
	)
	return closest.Distance(center) <= radius
}

func clampf(v, lo, hi float32) float32 {
	return math32.Max(lo, math32.Min(hi, v))
}
