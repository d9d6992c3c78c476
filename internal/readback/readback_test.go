package readback

import (
	"errors"
	"image"
	"image/color"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/paintcore/internal/texture"
)

func syncRegistry() *Registry {
	return NewRegistry(WithDevice(SoftwareDevice{DisableAsync: true}))
}

func TestDownsampledSize(t *testing.T) {
	tests := []struct {
		size  image.Point
		steps int
		want  image.Point
	}{
		{image.Pt(64, 64), 0, image.Pt(64, 64)},
		{image.Pt(64, 64), 2, image.Pt(16, 16)},
		{image.Pt(64, 8), 3, image.Pt(8, 2)},
		{image.Pt(5, 3), 1, image.Pt(2, 2)},
		{image.Pt(3, 3), 3, image.Pt(2, 2)},
		{image.Pt(2, 2), 4, image.Pt(2, 2)},
	}
	for _, tt := range tests {
		got := DownsampledSize(tt.size, tt.steps)
		if got != tt.want {
			t.Errorf("DownsampledSize(%v, %d): expected %v, got %v", tt.size, tt.steps, tt.want, got)
		}
	}
}

func TestDownsampleBoost(t *testing.T) {
	reg := syncRegistry()
	var got []color.NRGBA
	rd := reg.NewReader(func(p []color.NRGBA) { got = p })

	img := texture.NewFilled(64, 64, texture.RGBA(1, 0, 0, 1))
	require.True(t, rd.Request(img, 2, false))

	assert.Equal(t, image.Pt(64, 64), rd.OriginalSize())
	assert.Equal(t, image.Pt(16, 16), rd.Size())
	assert.Equal(t, float32(16), rd.DownsampleBoost())

	reg.UpdateAll(1 << 20)
	require.Len(t, got, 16*16)
	assert.Equal(t, color.NRGBA{R: 255, A: 255}, got[0])
}

func TestDownsampleBoostOddSize(t *testing.T) {
	rd := syncRegistry().NewReader(nil)
	require.True(t, rd.Request(texture.NewFilled(3, 3, texture.White), 1, false))
	assert.Equal(t, image.Pt(2, 2), rd.Size())
	assert.Equal(t, float32(2.25), rd.DownsampleBoost())
}

func TestSyncBudgetPacing(t *testing.T) {
	tests := []struct {
		name          string
		width, height int
		budget        int
		ticks         int
	}{
		{"one row per tick", 32, 10, 32, 10},
		{"budget below width", 32, 10, 5, 10},
		{"three rows per tick", 10, 10, 30, 4},
		{"whole image", 16, 16, 4096, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := syncRegistry()
			completed := 0
			rd := reg.NewReader(func([]color.NRGBA) { completed++ })
			require.True(t, rd.Request(texture.New(tt.width, tt.height), 0, true))
			assert.Equal(t, ModeSync, rd.Mode())

			ticks := 0
			for rd.Requested() && ticks < 1000 {
				reg.UpdateAll(tt.budget)
				ticks++
			}
			assert.Equal(t, tt.ticks, ticks)
			assert.Equal(t, 1, completed)
		})
	}
}

func TestSharedBudget(t *testing.T) {
	reg := syncRegistry()
	a := reg.NewReader(nil)
	b := reg.NewReader(nil)
	require.True(t, a.Request(texture.New(10, 4), 0, false))
	require.True(t, b.Request(texture.New(10, 4), 0, false))

	// 40 pixels finish a, leaving nothing for b.
	left := reg.UpdateAll(40)
	assert.Equal(t, 0, left)
	assert.False(t, a.Requested())
	assert.True(t, b.Requested())
	assert.Equal(t, 1, reg.Pending())
}

func TestRequestUsageErrors(t *testing.T) {
	reg := syncRegistry()
	rd := reg.NewReader(nil)

	assert.False(t, rd.Request(nil, 0, false))
	assert.False(t, rd.Requested())

	img := texture.New(4, 4)
	require.True(t, rd.Request(img, 0, false))
	assert.False(t, rd.Request(img, 0, false), "second request while busy")

	rd.Release()
	assert.False(t, rd.Requested())
	assert.Equal(t, 0, reg.Len())
	assert.False(t, rd.Request(img, 0, false), "request after release")
}

func TestAsyncReadback(t *testing.T) {
	reg := NewRegistry()
	var got []color.NRGBA
	rd := reg.NewReader(func(p []color.NRGBA) { got = p })

	img := texture.NewFilled(8, 8, texture.RGBA(0, 1, 0, 1))
	require.True(t, rd.Request(img, 0, true))
	assert.Equal(t, ModeAsync, rd.Mode())

	require.Eventually(t, func() bool {
		reg.UpdateAll(0)
		return !rd.Requested()
	}, time.Second, time.Millisecond)
	require.Len(t, got, 64)
	assert.Equal(t, color.NRGBA{G: 255, A: 255}, got[63])
}

type failingFuture struct{}

func (failingFuture) Poll(*int) (bool, error) { return false, errors.New("device lost") }
func (failingFuture) Ready() bool             { return true }
func (failingFuture) Pixels() []color.NRGBA   { return nil }
func (failingFuture) Release()                {}

type failingDevice struct{}

func (failingDevice) SupportsAsync() bool { return true }

func (failingDevice) ReadAsync(*texture.Image) (Future, error) {
	return failingFuture{}, nil
}

func TestAsyncErrorFallsBackToSync(t *testing.T) {
	reg := NewRegistry(WithDevice(failingDevice{}))
	var got []color.NRGBA
	rd := reg.NewReader(func(p []color.NRGBA) { got = p })

	require.True(t, rd.Request(texture.NewFilled(4, 4, texture.White), 0, true))
	assert.Equal(t, ModeAsync, rd.Mode())

	reg.UpdateAll(8)
	assert.Equal(t, ModeSync, rd.Mode())
	assert.Nil(t, got)

	reg.UpdateAll(8)
	require.Len(t, got, 16)
	assert.Equal(t, color.NRGBA{R: 255, G: 255, B: 255, A: 255}, got[15])
}

func TestCallbackMayReleaseReaders(t *testing.T) {
	reg := syncRegistry()
	var second *Reader
	first := reg.NewReader(func([]color.NRGBA) { second.Release() })
	second = reg.NewReader(nil)

	require.True(t, first.Request(texture.New(2, 2), 0, false))
	require.True(t, second.Request(texture.New(2, 2), 0, false))

	reg.UpdateAll(100)
	assert.Equal(t, 1, reg.Len())
	assert.Equal(t, 0, reg.Pending())
}

func TestNeedsUpdating(t *testing.T) {
	reg := syncRegistry()
	rd := reg.NewReader(nil)
	img := texture.New(8, 8)

	assert.True(t, rd.NeedsUpdating(img, 1, 0))
	require.True(t, rd.Request(img, 1, false))
	reg.UpdateAll(1000)

	assert.False(t, rd.NeedsUpdating(img, 1, 16))
	assert.True(t, rd.NeedsUpdating(img, 1, 64), "length mismatch")
	assert.True(t, rd.NeedsUpdating(img, 2, 16), "different steps")

	rd.MarkDirty()
	assert.True(t, rd.NeedsUpdating(img, 1, 16))
}
