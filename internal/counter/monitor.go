// Package counter measures what has been painted on a texture by reading its
// pixels back and tallying them against a palette or per channel.
package counter

import (
	"image/color"

	"go.uber.org/zap"

	"github.com/Faultbox/paintcore/internal/paint"
	"github.com/Faultbox/paintcore/internal/readback"
	"github.com/Faultbox/paintcore/internal/texture"
)

// DefaultDownsampleSteps halves the texture three times before reading it.
const DefaultDownsampleSteps = 3

// Options tunes how often and how precisely a Monitor reads.
type Options struct {
	// Interval is the minimum number of frames between two reads.
	Interval uint64
	// WaitUntilNotPainting holds reads back while paint input is active.
	WaitUntilNotPainting bool
	// DownsampleSteps is how many times width and height are halved before
	// reading. Counts are scaled back up by the reader's boost. Negative
	// values read at full size; zero selects DefaultDownsampleSteps.
	DownsampleSteps int
	// Sync disables asynchronous readback.
	Sync bool
	// SkipInitialRead waits for the first modification before reading.
	SkipInitialRead bool

	// Mask restricts counting to texels where MaskChannel is above half.
	// Without a mask every texel counts.
	Mask        *texture.Image
	MaskChannel int
}

// Monitor keeps a downsampled copy of a target's pixels, refreshed after
// every non-preview modification. Call Update once per frame.
type Monitor struct {
	opts    Options
	manager *paint.Manager
	target  *paint.PaintableTexture
	reader  *readback.Reader
	log     *zap.Logger

	pixels    []color.NRGBA
	mask      []uint8
	nextFrame uint64
	closed    bool

	handle    func(pixels []color.NRGBA, mask []uint8, boost float32)
	onUpdated []func()
}

// NewMonitor watches target. The reader it needs is registered with the
// manager's context so Tick advances it.
func NewMonitor(m *paint.Manager, target *paint.PaintableTexture, opts Options) *Monitor {
	switch {
	case opts.DownsampleSteps == 0:
		opts.DownsampleSteps = DefaultDownsampleSteps
	case opts.DownsampleSteps < 0:
		opts.DownsampleSteps = 0
	}
	mon := &Monitor{
		opts:    opts,
		manager: m,
		target:  target,
		log:     m.Context().Logger().Named("counter"),
	}
	mon.reader = m.Context().Readers().NewReader(mon.complete)
	target.OnModified(func(_ *paint.PaintableTexture, preview bool) {
		if !preview && !mon.closed {
			mon.reader.MarkDirty()
		}
	})
	if !opts.SkipInitialRead {
		mon.reader.MarkDirty()
	}
	return mon
}

// Target returns the watched texture.
func (m *Monitor) Target() *paint.PaintableTexture { return m.target }

// Pixels returns the last read, downsampled pixels. The slice is reused by
// later reads.
func (m *Monitor) Pixels() []color.NRGBA { return m.pixels }

// Reader exposes the underlying pixel reader.
func (m *Monitor) Reader() *readback.Reader { return m.reader }

// OnUpdated registers fn to run after every completed count.
func (m *Monitor) OnUpdated(fn func()) {
	m.onUpdated = append(m.onUpdated, fn)
}

// MarkDirty forces a read on the next eligible Update.
func (m *Monitor) MarkDirty() {
	m.reader.MarkDirty()
}

// SetMask replaces the counting mask and schedules a fresh read.
func (m *Monitor) SetMask(mask *texture.Image, channel int) {
	m.opts.Mask = mask
	m.opts.MaskChannel = channel
	m.mask = nil
	m.reader.MarkDirty()
}

// Update starts a read when the target changed, the interval has passed
// and, if requested, painting has stopped.
func (m *Monitor) Update() {
	if m.closed || !m.reader.Dirty() || m.reader.Requested() || !m.target.Active() {
		return
	}
	frame := m.manager.Frame()
	if frame < m.nextFrame {
		return
	}
	if m.opts.WaitUntilNotPainting && m.manager.IsActivelyPainting() {
		return
	}
	current := m.target.Current()
	if !m.reader.NeedsUpdating(current, m.opts.DownsampleSteps, len(m.pixels)) {
		return
	}
	m.nextFrame = frame + m.opts.Interval
	if m.reader.Request(current, m.opts.DownsampleSteps, !m.opts.Sync) {
		m.log.Debug("pixel read requested",
			zap.Stringer("target", m.target.Hash()),
			zap.Stringer("mode", m.reader.Mode()))
	}
}

// Close stops watching and releases the reader.
func (m *Monitor) Close() {
	if m.closed {
		return
	}
	m.closed = true
	m.reader.Release()
}

func (m *Monitor) complete(pixels []color.NRGBA) {
	if m.closed {
		return
	}
	if len(m.pixels) != len(pixels) {
		m.pixels = make([]color.NRGBA, len(pixels))
	}
	copy(m.pixels, pixels)

	m.mask = m.maskPixels(m.reader.Size().X, m.reader.Size().Y)
	if m.handle != nil {
		m.handle(m.pixels, m.mask, m.reader.DownsampleBoost())
	}
	for _, fn := range m.onUpdated {
		fn()
	}
}

// maskPixels resamples the mask to the read size and extracts its channel.
func (m *Monitor) maskPixels(w, h int) []uint8 {
	if m.opts.Mask == nil {
		return nil
	}
	if len(m.mask) == w*h {
		return m.mask
	}
	img := m.opts.Mask
	if img.Width() != w || img.Height() != h {
		img = img.Resized(w, h)
	}
	out := make([]uint8, 0, w*h)
	for _, p := range img.Pixels() {
		out = append(out, channel(p, m.opts.MaskChannel))
	}
	return out
}

func channel(p color.NRGBA, i int) uint8 {
	switch i {
	case 0:
		return p.R
	case 1:
		return p.G
	case 2:
		return p.B
	default:
		return p.A
	}
}

// counted reports whether texel i lies inside the mask.
func counted(mask []uint8, i int) bool {
	return mask == nil || mask[i] > 127
}

func scale(n int64, boost float32) int64 {
	return int64(float32(n)*boost + 0.5)
}
