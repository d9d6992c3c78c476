package paint

import (
	"github.com/Faultbox/paintcore/internal/texture"
	pmath "github.com/Faultbox/paintcore/pkg/math"
)

// HitKind is the shape of a paint hit.
type HitKind int

const (
	HitPoint HitKind = iota
	HitLine
	HitTriangle
	HitQuad
	// HitCoord is a hit in texture space on Hit.Target.
	HitCoord
)

// Hit is one paint input event.
type Hit struct {
	Kind     HitKind
	Preview  bool
	Priority int
	// Pressure scales opacity. Zero counts as full pressure.
	Pressure float32

	Position     pmath.Vec3
	EndPosition  pmath.Vec3
	Position2    pmath.Vec3
	EndPosition2 pmath.Vec3
	Rotation     pmath.Quat
	Clip         bool

	// Coord is the texture coordinate of a HitCoord.
	Coord pmath.Vec2
	// Target limits the hit to one texture. Required for HitCoord.
	Target *PaintableTexture
}

func (h *Hit) pressure() float32 {
	if h.Pressure <= 0 {
		return 1
	}
	return h.Pressure
}

// location converts the hit into a brush location, resolving texture
// coordinates through the target surface.
func (h *Hit) location(in3D bool) (Location, bool) {
	var l Location
	switch h.Kind {
	case HitPoint:
		l.SetPoint(h.Position, in3D)
	case HitLine:
		l.SetLine(h.Position, h.EndPosition, in3D, h.Clip)
	case HitTriangle:
		l.SetTriangle(h.Position, h.EndPosition, h.Position2, in3D)
	case HitQuad:
		l.SetQuad(h.Position, h.EndPosition, h.Position2, h.EndPosition2, in3D, h.Clip)
	case HitCoord:
		if h.Target == nil {
			return l, false
		}
		l.SetPoint(h.Target.Surface().World(h.Coord.X, h.Coord.Y), in3D)
	default:
		return l, false
	}
	return l, true
}

// Painter turns hits into commands.
type Painter interface {
	Paint(m *Manager, hit Hit)
}

// Hit dispatches a paint event to painters. Non-preview hits announce a
// possible state store and mark active painting first.
func (m *Manager) Hit(hit Hit, painters ...Painter) {
	if !hit.Preview {
		m.PotentiallyStoreAllStates()
		m.MarkActivelyPainting()
	}
	for _, p := range painters {
		p.Paint(m, hit)
	}
}

func applyHeader(h *Header, hit *Hit) {
	h.Preview = hit.Preview
	h.Priority = hit.Priority
}

// SpherePainter paints a soft sphere at each hit.
type SpherePainter struct {
	Blend    BlendMode
	Color    texture.Color
	Radius   float32
	Opacity  float32
	Hardness float32
	Group    int
	// In2D ignores depth, painting a cylinder through the surface.
	In2D bool
}

func (p *SpherePainter) Paint(m *Manager, hit Hit) {
	loc, ok := hit.location(!p.In2D)
	if !ok {
		return
	}
	cmd := m.ctx.NewSphere(p.Color, p.Radius)
	if p.Blend != (BlendMode{}) {
		cmd.Blend = p.Blend
	}
	cmd.Location = loc
	cmd.Opacity = p.Opacity * hit.pressure()
	if p.Hardness > 0 {
		cmd.Hardness = p.Hardness
	}
	applyHeader(&cmd.Header, &hit)
	m.SubmitAll(cmd, Selection{Target: hit.Target, Group: p.Group, Position: loc.Position, Radius: p.Radius + hitExtent(&hit)})
}

// DecalPainter stamps a texture at each hit, facing along the hit rotation.
type DecalPainter struct {
	Blend    BlendMode
	Texture  HashedTexture
	Shape    HashedTexture
	Color    texture.Color
	Size     pmath.Vec3
	Angle    float32
	Opacity  float32
	Hardness float32
	Group    int
	In2D     bool
}

func (p *DecalPainter) Paint(m *Manager, hit Hit) {
	loc, ok := hit.location(!p.In2D)
	if !ok {
		return
	}
	cmd := m.ctx.NewDecal(p.Texture, p.Color, p.Size)
	if p.Blend != (BlendMode{}) {
		cmd.Blend = p.Blend
	}
	cmd.Location = loc
	cmd.SetShape(hit.Rotation, p.Size, p.Angle)
	cmd.Shape = p.Shape
	cmd.Opacity = p.Opacity * hit.pressure()
	if p.Hardness > 0 {
		cmd.Hardness = p.Hardness
	}
	applyHeader(&cmd.Header, &hit)
	m.SubmitAll(cmd, Selection{Target: hit.Target, Group: p.Group, Position: loc.Position, Radius: p.Size.MaxComponent() + hitExtent(&hit)})
}

// FillPainter fills every target a hit touches.
type FillPainter struct {
	Blend   BlendMode
	Texture HashedTexture
	Color   texture.Color
	Opacity float32
	Minimum float32
	Group   int
}

func (p *FillPainter) Paint(m *Manager, hit Hit) {
	cmd := m.ctx.NewFill(p.Color)
	if p.Blend != (BlendMode{}) {
		cmd.Blend = p.Blend
	}
	cmd.Texture = p.Texture
	cmd.Opacity = p.Opacity * hit.pressure()
	cmd.Minimum = p.Minimum
	applyHeader(&cmd.Header, &hit)
	m.SubmitAll(cmd, Selection{Target: hit.Target, Group: p.Group})
}

// ReplacePainter replaces every target a hit touches with a texture.
type ReplacePainter struct {
	Texture HashedTexture
	Color   texture.Color
	Group   int
}

func (p *ReplacePainter) Paint(m *Manager, hit Hit) {
	cmd := m.ctx.NewReplace(p.Texture, p.Color)
	applyHeader(&cmd.Header, &hit)
	m.SubmitAll(cmd, Selection{Target: hit.Target, Group: p.Group})
}

// hitExtent is how far a shaped hit reaches from its first position.
func hitExtent(h *Hit) float32 {
	var d float32
	switch h.Kind {
	case HitLine:
		d = h.Position.Distance(h.EndPosition)
	case HitTriangle, HitQuad:
		for _, p := range []pmath.Vec3{h.EndPosition, h.Position2, h.EndPosition2} {
			if dist := h.Position.Distance(p); dist > d {
				d = dist
			}
		}
	}
	return d
}
