package counter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/paintcore/internal/paint"
	"github.com/Faultbox/paintcore/internal/texture"
)

var (
	white = Swatch{Name: "white", Color: texture.White}
	black = Swatch{Name: "black", Color: texture.Black}
)

// split returns an image whose left half is left and right half is right.
func split(w, h int, left, right texture.Color) *texture.Image {
	img := texture.NewFilled(w, h, right)
	for y := 0; y < h; y++ {
		for x := 0; x < w/2; x++ {
			img.SetPixel(x, y, left)
		}
	}
	return img
}

func setup(t *testing.T, start *texture.Image) (*paint.Manager, *paint.PaintableTexture) {
	t.Helper()
	ctx := paint.NewContext()
	m := paint.NewManager(ctx, 0)
	target := ctx.NewPaintableTexture(paint.Options{Texture: start})
	target.Activate()
	return m, target
}

// frame runs one monitor update followed by a scheduler tick.
func frame(m *paint.Manager, mons ...*Monitor) {
	for _, mon := range mons {
		mon.Update()
	}
	m.Tick()
}

func TestColorCounterFullResolution(t *testing.T) {
	m, target := setup(t, split(8, 4, texture.White, texture.Black))
	c := NewColorCounter(m, target, Options{DownsampleSteps: -1, Sync: true}, white, black)

	updated := 0
	c.OnUpdated(func() { updated++ })
	frame(m, c.Monitor)

	assert.Equal(t, 1, updated)
	assert.Equal(t, int64(32), c.Total())
	assert.Equal(t, int64(16), c.Count("white"))
	assert.Equal(t, int64(16), c.Count("black"))
	assert.InDelta(t, 0.5, c.Ratio("white"), 1e-6)
	assert.Len(t, c.Contributions(), 2)
}

func TestColorCounterDownsampleBoost(t *testing.T) {
	m, target := setup(t, texture.NewFilled(64, 64, texture.White))
	c := NewColorCounter(m, target, Options{DownsampleSteps: 2, Sync: true}, white, black)
	frame(m, c.Monitor)

	assert.Len(t, c.Pixels(), 16*16)
	assert.Equal(t, float32(16), c.Reader().DownsampleBoost())
	assert.Equal(t, int64(4096), c.Total())
	assert.Equal(t, int64(4096), c.Count("white"))
	assert.Equal(t, int64(0), c.Count("black"))
	assert.Len(t, c.Contributions(), 1, "empty swatches are dropped")
}

func TestColorCounterThreshold(t *testing.T) {
	m, target := setup(t, texture.NewFilled(4, 4, texture.RGBA(0.95, 0.95, 0.95, 1)))
	c := NewColorCounter(m, target, Options{DownsampleSteps: -1, Sync: true}, white)

	c.SetThreshold(0.01)
	frame(m, c.Monitor)
	assert.Equal(t, int64(0), c.Count("white"))
	assert.Equal(t, int64(16), c.Total())

	c.SetThreshold(0.5)
	frame(m, c.Monitor)
	assert.Equal(t, int64(16), c.Count("white"))
}

func TestColorCounterMask(t *testing.T) {
	m, target := setup(t, texture.NewFilled(8, 8, texture.White))
	mask := split(8, 8, texture.White, texture.Black)
	c := NewColorCounter(m, target, Options{DownsampleSteps: -1, Sync: true, Mask: mask, MaskChannel: 0}, white)
	frame(m, c.Monitor)

	assert.Equal(t, int64(32), c.Total())
	assert.Equal(t, int64(32), c.Count("white"))
}

func TestCountersAggregate(t *testing.T) {
	m, a := setup(t, texture.NewFilled(4, 4, texture.White))
	b := m.Context().NewPaintableTexture(paint.Options{Width: 4, Height: 4, Color: texture.Black})
	b.Activate()

	opts := Options{DownsampleSteps: -1, Sync: true}
	ca := NewColorCounter(m, a, opts, white, black)
	cb := NewColorCounter(m, b, opts, white, black)
	frame(m, ca.Monitor, cb.Monitor)

	assert.Equal(t, int64(32), TotalOf(ca, cb))
	assert.Equal(t, int64(16), CountOf("white", ca, cb))
	assert.InDelta(t, 0.5, RatioOf("black", ca, cb, nil), 1e-6)
	assert.Equal(t, float32(0), RatioOf("white"))
}

func TestChannelCounter(t *testing.T) {
	m, target := setup(t, split(4, 4, texture.RGBA(1, 0, 0, 1), texture.RGBA(0, 0, 1, 1)))
	c := NewChannelCounter(m, target, Options{DownsampleSteps: -1, Sync: true})
	frame(m, c.Monitor)

	tests := []struct {
		ch   int
		want int64
	}{
		{0, 8},
		{1, 0},
		{2, 8},
		{3, 16},
		{4, 0},
	}
	for _, tt := range tests {
		if got := c.Count(tt.ch); got != tt.want {
			t.Errorf("channel %d: expected %d, got %d", tt.ch, tt.want, got)
		}
	}
	assert.Equal(t, int64(16), c.Total())
	assert.InDelta(t, 0.5, c.Ratio(0), 1e-6)
}

func TestMonitorRereadsAfterPaint(t *testing.T) {
	m, target := setup(t, texture.NewFilled(4, 4, texture.Black))
	c := NewColorCounter(m, target, Options{DownsampleSteps: -1, Sync: true}, white, black)
	frame(m, c.Monitor)
	require.Equal(t, int64(16), c.Count("black"))

	m.Submit(m.Context().NewFill(texture.White), target)
	frame(m, c.Monitor)
	assert.True(t, c.Reader().Dirty(), "paint lands after this frame's update")

	frame(m, c.Monitor)
	assert.Equal(t, int64(16), c.Count("white"))
	assert.False(t, c.Reader().Dirty())
}

func TestMonitorIgnoresPreview(t *testing.T) {
	m, target := setup(t, texture.NewFilled(4, 4, texture.Black))
	c := NewChannelCounter(m, target, Options{DownsampleSteps: -1, Sync: true})
	frame(m, c.Monitor)

	preview := m.Context().NewFill(texture.White)
	preview.Preview = true
	m.Submit(preview, target)
	m.Tick()

	assert.False(t, c.Reader().Dirty())
}

func TestMonitorWaitsUntilNotPainting(t *testing.T) {
	m, target := setup(t, texture.NewFilled(4, 4, texture.Black))
	c := NewChannelCounter(m, target, Options{DownsampleSteps: -1, Sync: true, WaitUntilNotPainting: true})

	m.MarkActivelyPainting()
	c.Update()
	assert.False(t, c.Reader().Requested())

	m.Tick()
	c.Update()
	assert.False(t, c.Reader().Requested(), "grace frame")

	m.Tick()
	c.Update()
	assert.True(t, c.Reader().Requested())
}

func TestMonitorInterval(t *testing.T) {
	m, target := setup(t, texture.NewFilled(4, 4, texture.Black))
	c := NewChannelCounter(m, target, Options{DownsampleSteps: -1, Sync: true, Interval: 3})
	frame(m, c.Monitor)
	require.False(t, c.Reader().Requested())

	c.MarkDirty()
	c.Update()
	assert.False(t, c.Reader().Requested(), "frame 1 is inside the interval")
	m.Tick()
	m.Tick()

	c.Update()
	assert.True(t, c.Reader().Requested(), "frame 3 is past it")
}

func TestMonitorSkipInitialRead(t *testing.T) {
	m, target := setup(t, texture.NewFilled(4, 4, texture.Black))
	c := NewChannelCounter(m, target, Options{Sync: true, SkipInitialRead: true})
	c.Update()
	assert.False(t, c.Reader().Requested())
}

func TestMonitorAsync(t *testing.T) {
	m, target := setup(t, texture.NewFilled(16, 16, texture.White))
	c := NewColorCounter(m, target, Options{DownsampleSteps: 1}, white)
	c.Update()
	require.True(t, c.Reader().Requested())

	require.Eventually(t, func() bool {
		m.Tick()
		return !c.Reader().Requested()
	}, time.Second, time.Millisecond)
	assert.Equal(t, int64(256), c.Count("white"))
}

func TestMonitorClose(t *testing.T) {
	m, target := setup(t, texture.NewFilled(4, 4, texture.Black))
	c := NewChannelCounter(m, target, Options{Sync: true})
	require.Equal(t, 1, m.Context().Readers().Len())

	c.Close()
	c.Close()
	assert.Equal(t, 0, m.Context().Readers().Len())

	c.Update()
	assert.False(t, c.Reader().Requested())
}
