package paint

import (
	"github.com/chewxy/math32"

	pmath "github.com/Faultbox/paintcore/pkg/math"
)

// Cloner repeats paint with a modified transform, e.g. mirroring. It
// composes its own transform onto the three matrices it is given.
type Cloner interface {
	Transform(posMatrix, rotMatrix, rotMatrix2 *pmath.Mat4)
}

// Mirror reflects paint across the plane through Position whose normal is
// Rotation applied to +Z.
type Mirror struct {
	Position pmath.Vec3
	Rotation pmath.Quat
	// Flip turns mirrored decals back around so they do not read backwards.
	Flip bool
}

// NewMirror builds a mirror through position with the given plane normal.
func NewMirror(position, normal pmath.Vec3, flip bool) *Mirror {
	return &Mirror{Position: position, Rotation: rotationTo(normal), Flip: flip}
}

func (m *Mirror) Transform(posMatrix, rotMatrix, rotMatrix2 *pmath.Mat4) {
	one := pmath.V3(1, 1, 1)
	tr := pmath.TRS(m.Position, m.Rotation, one)
	r := pmath.TRS(pmath.Vec3{}, m.Rotation, one)
	z := pmath.Scale(1, 1, -1)

	*posMatrix = tr.Mul(z).Mul(tr.Inverse()).Mul(*posMatrix)
	*rotMatrix = r.Mul(z).Mul(r.Inverse()).Mul(*rotMatrix)
	if m.Flip {
		*rotMatrix2 = rotMatrix2.NegateColumn(0)
	}
}

// rotationTo returns the rotation taking +Z onto dir.
func rotationTo(dir pmath.Vec3) pmath.Quat {
	dir = dir.Normalize()
	forward := pmath.V3(0, 0, 1)
	if dir == (pmath.Vec3{}) {
		return pmath.QuatIdentity()
	}
	d := forward.Dot(dir)
	if d > 0.9999 {
		return pmath.QuatIdentity()
	}
	if d < -0.9999 {
		return pmath.QuatFromAxisAngle(pmath.V3(1, 0, 0), math32.Pi)
	}
	axis := forward.Cross(dir).Normalize()
	return pmath.QuatFromAxisAngle(axis, math32.Acos(d))
}

// expansion enumerates clone transforms for one top-level submission. The
// cloner list is captured up front so cloners added during the expansion
// do not feed back into it. Each cloner composes onto every matrix
// produced so far, so n mirrors yield 2^n applications in total.
type expansion struct {
	cloners     []Cloner
	pos         []pmath.Mat4
	rot         []pmath.Mat4
	rot2        []pmath.Mat4
	matrixCount int
}

func newExpansion(cloners []Cloner) *expansion {
	e := &expansion{
		cloners:     append([]Cloner(nil), cloners...),
		pos:         []pmath.Mat4{pmath.Identity()},
		rot:         []pmath.Mat4{pmath.Identity()},
		rot2:        []pmath.Mat4{pmath.Identity()},
		matrixCount: 1,
	}
	return e
}

// clone transforms cmd by cloner ci applied to matrix mi. matrixCount is
// refreshed at the start of each cloner pass.
func (e *expansion) clone(cmd Command, ci, mi int) {
	if mi == 0 {
		e.matrixCount = len(e.pos)
	}
	pos, rot, rot2 := e.pos[mi], e.rot[mi], e.rot2[mi]
	e.cloners[ci].Transform(&pos, &rot, &rot2)
	e.pos = append(e.pos, pos)
	e.rot = append(e.rot, rot)
	e.rot2 = append(e.rot2, rot2)
	cmd.Transform(pos, rot, rot2)
}
