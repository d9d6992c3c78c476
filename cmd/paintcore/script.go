package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/Faultbox/paintcore/internal/blend"
	"github.com/Faultbox/paintcore/internal/config"
	"github.com/Faultbox/paintcore/internal/counter"
	"github.com/Faultbox/paintcore/internal/journal"
	"github.com/Faultbox/paintcore/internal/paint"
	"github.com/Faultbox/paintcore/internal/readback"
	"github.com/Faultbox/paintcore/internal/texture"
	pmath "github.com/Faultbox/paintcore/pkg/math"
)

// maxCountFrames bounds how long a count step waits for its readback.
const maxCountFrames = 10000

// Script is a YAML paint session: textures to register, targets to paint
// and the steps to run on them.
type Script struct {
	Textures []TextureSpec `yaml:"textures"`
	Targets  []TargetSpec  `yaml:"targets"`
	Steps    []Step        `yaml:"steps"`
}

// TextureSpec registers an image file under a name commands can use.
type TextureSpec struct {
	Name string `yaml:"name"`
	Path string `yaml:"path"`
}

// TargetSpec describes one paintable texture.
type TargetSpec struct {
	Name    string `yaml:"name"`
	Group   int    `yaml:"group"`
	Width   int    `yaml:"width"`
	Height  int    `yaml:"height"`
	Color   rgba   `yaml:"color"`
	Texture string `yaml:"texture"` // starting image file
	Output  string `yaml:"output"`  // PNG written after the last step
}

// Step is one script instruction. Exactly one field is set.
type Step struct {
	Fill    *FillStep    `yaml:"fill"`
	Sphere  *SphereStep  `yaml:"sphere"`
	Decal   *DecalStep   `yaml:"decal"`
	Replace *ReplaceStep `yaml:"replace"`
	Mirror  *MirrorStep  `yaml:"mirror"`
	Tick    int          `yaml:"tick"`
	Undo    int          `yaml:"undo"`
	Redo    int          `yaml:"redo"`
	Clear   string       `yaml:"clear"`
	Count   *CountStep   `yaml:"count"`
	Save    *SaveStep    `yaml:"save"`
	Replay  string       `yaml:"replay"` // session id or "latest"
}

// Brush fields shared by the painting steps.
type Brush struct {
	Target   string   `yaml:"target"`
	Group    int      `yaml:"group"`
	Color    rgba     `yaml:"color"`
	Blend    string   `yaml:"blend"`
	Opacity  *float32 `yaml:"opacity"`
	Pressure float32  `yaml:"pressure"`
	Priority int      `yaml:"priority"`
	Preview  bool     `yaml:"preview"`
}

type FillStep struct {
	Brush   `yaml:",inline"`
	Texture string  `yaml:"texture"`
	Minimum float32 `yaml:"minimum"`
}

type SphereStep struct {
	Brush    `yaml:",inline"`
	Position vec3    `yaml:"position"`
	End      vec3    `yaml:"end"` // paints a line when set
	Radius   float32 `yaml:"radius"`
	Hardness float32 `yaml:"hardness"`
	In2D     bool    `yaml:"in_2d"`
}

type DecalStep struct {
	Brush    `yaml:",inline"`
	Texture  string  `yaml:"texture"`
	Shape    string  `yaml:"shape"`
	Position vec3    `yaml:"position"`
	Rotation vec3    `yaml:"rotation"` // Euler degrees
	Size     vec3    `yaml:"size"`
	Angle    float32 `yaml:"angle"`
	Hardness float32 `yaml:"hardness"`
}

type ReplaceStep struct {
	Target  string `yaml:"target"`
	Group   int    `yaml:"group"`
	Texture string `yaml:"texture"`
	Color   rgba   `yaml:"color"`
}

type MirrorStep struct {
	Position vec3 `yaml:"position"`
	Normal   vec3 `yaml:"normal"`
	Flip     bool `yaml:"flip"`
}

type CountStep struct {
	Target    string       `yaml:"target"`
	Palette   []SwatchSpec `yaml:"palette"`
	Threshold *float32     `yaml:"threshold"`
	Channels  bool         `yaml:"channels"`
	Mask      string       `yaml:"mask"`
	MaskChan  int          `yaml:"mask_channel"`
}

type SwatchSpec struct {
	Name  string `yaml:"name"`
	Color rgba   `yaml:"color"`
}

type SaveStep struct {
	Target string `yaml:"target"`
	Path   string `yaml:"path"`
}

// CountResult is what a count step measured.
type CountResult struct {
	Target string
	Total  int64
	Counts map[string]int64
}

// rgba is a color written as [r, g, b] or [r, g, b, a].
type rgba []float32

func (c rgba) color(def texture.Color) (texture.Color, error) {
	switch len(c) {
	case 0:
		return def, nil
	case 3:
		return texture.RGBA(c[0], c[1], c[2], 1), nil
	case 4:
		return texture.RGBA(c[0], c[1], c[2], c[3]), nil
	}
	return def, fmt.Errorf("color needs 3 or 4 components, got %d", len(c))
}

// vec3 is a vector written as [x, y, z].
type vec3 []float32

func (v vec3) vec() (pmath.Vec3, error) {
	switch len(v) {
	case 0:
		return pmath.Vec3{}, nil
	case 3:
		return pmath.V3(v[0], v[1], v[2]), nil
	}
	return pmath.Vec3{}, fmt.Errorf("vector needs 3 components, got %d", len(v))
}

// LoadScript reads a YAML script.
func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading script: %w", err)
	}
	var s Script
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing script %s: %w", path, err)
	}
	return &s, nil
}

// Runner executes scripts against one paint context.
type Runner struct {
	cfg     *config.Config
	log     *zap.Logger
	ctx     *paint.Context
	manager *paint.Manager
	journal *journal.Journal
	dir     string

	targets map[string]*paint.PaintableTexture
	order   []string
	outputs map[string]string
	results []CountResult
}

// NewRunner prepares a runner. Relative paths in scripts resolve against
// dir. j may be nil.
func NewRunner(cfg *config.Config, pc *paint.Context, j *journal.Journal, dir string) *Runner {
	return &Runner{
		cfg:     cfg,
		log:     pc.Logger().Named("script"),
		ctx:     pc,
		manager: paint.NewManager(pc, cfg.Paint.ReadPixelsBudget),
		journal: j,
		dir:     dir,
		targets: make(map[string]*paint.PaintableTexture),
		outputs: make(map[string]string),
	}
}

// Manager returns the scheduler driving the script.
func (r *Runner) Manager() *paint.Manager { return r.manager }

// Target returns a target created by the script.
func (r *Runner) Target(name string) (*paint.PaintableTexture, bool) {
	t, ok := r.targets[name]
	return t, ok
}

// Results returns the count step results in order.
func (r *Runner) Results() []CountResult { return r.results }

func (r *Runner) path(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(r.dir, p)
}

// Run sets up the script's textures and targets, runs every step, ticks
// once more to flush pending commands and writes the outputs.
func (r *Runner) Run(ctx context.Context, s *Script) error {
	for _, ts := range s.Textures {
		img, err := texture.Load(r.path(ts.Path))
		if err != nil {
			return fmt.Errorf("texture %s: %w", ts.Name, err)
		}
		r.ctx.RegisterTexture(img, paint.StableStringHash(ts.Name))
	}
	for _, spec := range s.Targets {
		if err := r.addTarget(spec); err != nil {
			return fmt.Errorf("target %s: %w", spec.Name, err)
		}
	}

	for i, step := range s.Steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.step(ctx, step); err != nil {
			return fmt.Errorf("step %d: %w", i+1, err)
		}
	}
	r.frame()

	for _, name := range r.order {
		if out := r.outputs[name]; out != "" {
			if err := r.save(name, out); err != nil {
				return err
			}
		}
	}
	return nil
}

// Close deactivates the targets.
func (r *Runner) Close() {
	for _, name := range r.order {
		r.targets[name].Deactivate()
	}
}

func (r *Runner) addTarget(spec TargetSpec) error {
	if spec.Name == "" {
		return fmt.Errorf("missing name")
	}
	if _, dup := r.targets[spec.Name]; dup {
		return fmt.Errorf("duplicate target")
	}
	col, err := spec.Color.color(texture.White)
	if err != nil {
		return err
	}
	opts := paint.Options{
		Hash:       paint.StableStringHash(spec.Name),
		Group:      spec.Group,
		Width:      spec.Width,
		Height:     spec.Height,
		Color:      col,
		StateMode:  r.cfg.StateMode(),
		StateLimit: r.cfg.Paint.StateLimit,
	}
	if spec.Texture != "" {
		if opts.Texture, err = texture.Load(r.path(spec.Texture)); err != nil {
			return err
		}
	}
	t := r.ctx.NewPaintableTexture(opts)
	t.Activate()
	r.targets[spec.Name] = t
	r.order = append(r.order, spec.Name)
	r.outputs[spec.Name] = r.path(spec.Output)
	return nil
}

func (r *Runner) target(name string) (*paint.PaintableTexture, error) {
	if name == "" {
		return nil, nil
	}
	t, ok := r.targets[name]
	if !ok {
		return nil, fmt.Errorf("unknown target %q", name)
	}
	return t, nil
}

func (r *Runner) textureRef(name string) paint.HashedTexture {
	if name == "" {
		return paint.HashedTexture{}
	}
	return paint.TextureByHash(paint.StableStringHash(name))
}

func (r *Runner) frame() {
	r.manager.Tick()
}

func (r *Runner) step(ctx context.Context, s Step) error {
	switch {
	case s.Fill != nil:
		return r.fill(s.Fill)
	case s.Sphere != nil:
		return r.sphere(s.Sphere)
	case s.Decal != nil:
		return r.decal(s.Decal)
	case s.Replace != nil:
		return r.replace(s.Replace)
	case s.Mirror != nil:
		return r.mirror(s.Mirror)
	case s.Tick > 0:
		for i := 0; i < s.Tick; i++ {
			r.frame()
		}
	case s.Undo > 0:
		r.frame()
		for i := 0; i < s.Undo; i++ {
			r.manager.UndoAll()
		}
	case s.Redo > 0:
		r.frame()
		for i := 0; i < s.Redo; i++ {
			r.manager.RedoAll()
		}
	case s.Clear != "":
		t, err := r.target(s.Clear)
		if err != nil {
			return err
		}
		r.manager.PotentiallyStoreAllStates()
		t.Clear()
	case s.Count != nil:
		return r.count(s.Count)
	case s.Save != nil:
		r.frame()
		return r.save(s.Save.Target, r.path(s.Save.Path))
	case s.Replay != "":
		return r.replay(ctx, s.Replay)
	default:
		return fmt.Errorf("empty step")
	}
	return nil
}

// brushHit builds the hit for a brush. Painting steps store a state first
// unless they are previews.
func (r *Runner) brushHit(b *Brush) (paint.Hit, *paint.BlendMode, error) {
	t, err := r.target(b.Target)
	if err != nil {
		return paint.Hit{}, nil, err
	}
	hit := paint.Hit{
		Preview:  b.Preview,
		Priority: b.Priority,
		Pressure: b.Pressure,
		Target:   t,
	}
	if b.Blend == "" {
		return hit, nil, nil
	}
	mode, ok := blend.Parse(b.Blend)
	if !ok {
		return hit, nil, fmt.Errorf("unknown blend mode %q", b.Blend)
	}
	bm := paint.NewBlendMode(mode)
	return hit, &bm, nil
}

func opacity(v *float32) float32 {
	if v == nil {
		return 1
	}
	return *v
}

func (r *Runner) fill(s *FillStep) error {
	hit, bm, err := r.brushHit(&s.Brush)
	if err != nil {
		return err
	}
	col, err := s.Color.color(texture.White)
	if err != nil {
		return err
	}
	p := &paint.FillPainter{
		Texture: r.textureRef(s.Texture),
		Color:   col,
		Opacity: opacity(s.Opacity),
		Minimum: s.Minimum,
		Group:   s.Group,
	}
	if bm != nil {
		p.Blend = *bm
	}
	r.manager.Hit(hit, p)
	return nil
}

func (r *Runner) sphere(s *SphereStep) error {
	hit, bm, err := r.brushHit(&s.Brush)
	if err != nil {
		return err
	}
	col, err := s.Color.color(texture.White)
	if err != nil {
		return err
	}
	if hit.Position, err = s.Position.vec(); err != nil {
		return err
	}
	if len(s.End) > 0 {
		hit.Kind = paint.HitLine
		if hit.EndPosition, err = s.End.vec(); err != nil {
			return err
		}
	}
	p := &paint.SpherePainter{
		Color:    col,
		Radius:   s.Radius,
		Opacity:  opacity(s.Opacity),
		Hardness: s.Hardness,
		Group:    s.Group,
		In2D:     s.In2D,
	}
	if bm != nil {
		p.Blend = *bm
	}
	r.manager.Hit(hit, p)
	return nil
}

func (r *Runner) decal(s *DecalStep) error {
	hit, bm, err := r.brushHit(&s.Brush)
	if err != nil {
		return err
	}
	col, err := s.Color.color(texture.White)
	if err != nil {
		return err
	}
	if hit.Position, err = s.Position.vec(); err != nil {
		return err
	}
	rot, err := s.Rotation.vec()
	if err != nil {
		return err
	}
	hit.Rotation = pmath.QuatFromEuler(rot.X, rot.Y, rot.Z)
	size, err := s.Size.vec()
	if err != nil {
		return err
	}
	p := &paint.DecalPainter{
		Texture:  r.textureRef(s.Texture),
		Shape:    r.textureRef(s.Shape),
		Color:    col,
		Size:     size,
		Angle:    s.Angle,
		Opacity:  opacity(s.Opacity),
		Hardness: s.Hardness,
		Group:    s.Group,
	}
	if bm != nil {
		p.Blend = *bm
	}
	r.manager.Hit(hit, p)
	return nil
}

func (r *Runner) replace(s *ReplaceStep) error {
	t, err := r.target(s.Target)
	if err != nil {
		return err
	}
	col, err := s.Color.color(texture.White)
	if err != nil {
		return err
	}
	r.manager.Hit(paint.Hit{Target: t}, &paint.ReplacePainter{
		Texture: r.textureRef(s.Texture),
		Color:   col,
		Group:   s.Group,
	})
	return nil
}

func (r *Runner) mirror(s *MirrorStep) error {
	pos, err := s.Position.vec()
	if err != nil {
		return err
	}
	normal, err := s.Normal.vec()
	if err != nil {
		return err
	}
	if normal == (pmath.Vec3{}) {
		normal = pmath.V3(1, 0, 0)
	}
	r.ctx.AddCloner(paint.NewMirror(pos, normal, s.Flip))
	return nil
}

// count reads a target back and tallies it, ticking until the read lands.
func (r *Runner) count(s *CountStep) error {
	t, err := r.target(s.Target)
	if err != nil {
		return err
	}
	if t == nil {
		return fmt.Errorf("count needs a target")
	}
	opts := counter.Options{
		DownsampleSteps: r.cfg.Paint.DownsampleSteps,
		Sync:            !r.cfg.Paint.AsyncReadback,
		MaskChannel:     s.MaskChan,
	}
	if opts.DownsampleSteps == 0 {
		opts.DownsampleSteps = -1
	}
	if s.Mask != "" {
		if opts.Mask, err = texture.Load(r.path(s.Mask)); err != nil {
			return err
		}
	}

	result := CountResult{Target: s.Target, Counts: make(map[string]int64)}
	var mon *counter.Monitor
	var collect func()
	if s.Channels {
		cc := counter.NewChannelCounter(r.manager, t, opts)
		mon = cc.Monitor
		collect = func() {
			result.Total = cc.Total()
			for ch, name := range []string{"r", "g", "b", "a"} {
				result.Counts[name] = cc.Count(ch)
			}
		}
	} else {
		palette := make([]counter.Swatch, 0, len(s.Palette))
		for _, sw := range s.Palette {
			col, err := sw.Color.color(texture.White)
			if err != nil {
				return fmt.Errorf("swatch %s: %w", sw.Name, err)
			}
			palette = append(palette, counter.Swatch{Name: sw.Name, Color: col})
		}
		cc := counter.NewColorCounter(r.manager, t, opts, palette...)
		if s.Threshold != nil {
			cc.SetThreshold(*s.Threshold)
		}
		mon = cc.Monitor
		collect = func() {
			result.Total = cc.Total()
			for _, sw := range palette {
				result.Counts[sw.Name] = cc.Count(sw.Name)
			}
		}
	}
	defer mon.Close()

	done := false
	mon.OnUpdated(func() { done = true })
	// Flush pending paint so the read sees it.
	r.frame()
	for i := 0; !done && i < maxCountFrames; i++ {
		mon.Update()
		r.frame()
		if !done && mon.Reader().Mode() == readback.ModeAsync {
			time.Sleep(time.Millisecond)
		}
	}
	if !done {
		return fmt.Errorf("readback of %s did not finish", s.Target)
	}

	collect()
	r.results = append(r.results, result)
	fields := []zap.Field{zap.String("target", s.Target), zap.Int64("total", result.Total)}
	for name, n := range result.Counts {
		fields = append(fields, zap.Int64(name, n))
	}
	r.log.Info("count", fields...)
	return nil
}

func (r *Runner) save(name, path string) error {
	t, err := r.target(name)
	if err != nil {
		return err
	}
	if t == nil || path == "" {
		return fmt.Errorf("save needs a target and a path")
	}
	if err := texture.SavePNG(t.Current(), path); err != nil {
		return fmt.Errorf("saving %s: %w", name, err)
	}
	r.log.Info("saved", zap.String("target", name), zap.String("path", path))
	return nil
}

func (r *Runner) replay(ctx context.Context, which string) error {
	if r.journal == nil {
		return fmt.Errorf("replay needs a journal")
	}
	var session uuid.UUID
	if which == "latest" {
		sessions, err := r.journal.Sessions(ctx)
		if err != nil {
			return err
		}
		for i := len(sessions) - 1; i >= 0; i-- {
			if sessions[i] != r.journal.Session() {
				session = sessions[i]
				break
			}
		}
		if session == uuid.Nil {
			return fmt.Errorf("no earlier session to replay")
		}
	} else {
		var err error
		if session, err = uuid.Parse(which); err != nil {
			return fmt.Errorf("replay session: %w", err)
		}
	}

	r.manager.PotentiallyStoreAllStates()
	if _, err := r.journal.Replay(ctx, r.ctx, session); err != nil {
		return err
	}
	r.frame()
	return nil
}
