package readback

import (
	"image"
	"image/color"

	"go.uber.org/zap"

	"github.com/Faultbox/paintcore/internal/texture"
)

// Mode is the kind of transfer a reader is waiting on.
type Mode int

const (
	ModeNone Mode = iota
	ModeAsync
	ModeSync
)

func (m Mode) String() string {
	switch m {
	case ModeAsync:
		return "async"
	case ModeSync:
		return "sync"
	default:
		return "none"
	}
}

// Reader holds at most one outstanding readback. Create readers with
// Registry.NewReader so the scheduler can advance them every tick.
type Reader struct {
	reg        *Registry
	onComplete func(pixels []color.NRGBA)

	mode   Mode
	future Future
	buffer *texture.Image

	original    image.Point
	downsampled image.Point
	steps       int
	dirty       bool
}

// DownsampledSize halves each dimension of size up to steps times, never
// going below 2 pixels.
func DownsampledSize(size image.Point, steps int) image.Point {
	for i := 0; i < steps; i++ {
		if size.X > 2 {
			size.X = max(size.X/2, 2)
		}
		if size.Y > 2 {
			size.Y = max(size.Y/2, 2)
		}
	}
	return size
}

// Requested reports whether a transfer is in flight.
func (r *Reader) Requested() bool {
	return r.mode != ModeNone
}

func (r *Reader) Mode() Mode {
	return r.mode
}

// OriginalSize is the size of the last requested image.
func (r *Reader) OriginalSize() image.Point {
	return r.original
}

// Size is the size of the pixel buffer delivered to the callback.
func (r *Reader) Size() image.Point {
	return r.downsampled
}

func (r *Reader) DownsampleSteps() int {
	return r.steps
}

// DownsampleBoost is the factor that scales a count taken on the
// downsampled pixels back to the original resolution.
func (r *Reader) DownsampleBoost() float32 {
	area := r.downsampled.X * r.downsampled.Y
	if area == 0 {
		return 1
	}
	return float32(r.original.X*r.original.Y) / float32(area)
}

// Dirty reports whether the source changed since the last request.
func (r *Reader) Dirty() bool {
	return r.dirty
}

func (r *Reader) MarkDirty() {
	r.dirty = true
}

// NeedsUpdating reports whether a cached buffer of length n no longer
// matches what a request for img with steps would deliver.
func (r *Reader) NeedsUpdating(img *texture.Image, steps, n int) bool {
	if n == 0 || r.dirty || r.downsampled.X*r.downsampled.Y != n {
		return true
	}
	if img == nil {
		return false
	}
	return r.original != img.Size() || r.downsampled != DownsampledSize(img.Size(), steps)
}

// Request starts reading img, downsampled by steps. Async transfers are
// used when preferAsync is set and the device supports them. Returns false
// if the reader is busy or img is nil.
func (r *Reader) Request(img *texture.Image, steps int, preferAsync bool) bool {
	if img == nil {
		r.reg.log.Error("readback requested with nil image")
		return false
	}
	if r.mode != ModeNone {
		r.reg.log.Error("readback already requested", zap.Stringer("mode", r.mode))
		return false
	}
	if r.reg.closed(r) {
		r.reg.log.Error("readback requested on released reader")
		return false
	}

	r.original = img.Size()
	r.downsampled = DownsampledSize(r.original, steps)
	r.steps = steps

	r.buffer = r.reg.images.Get(r.downsampled.X, r.downsampled.Y)
	r.buffer.CopyFrom(img)

	r.mode = ModeSync
	r.future = newSyncFuture(r.buffer)
	if preferAsync && r.reg.device.SupportsAsync() {
		f, err := r.reg.device.ReadAsync(r.buffer)
		if err == nil {
			r.mode = ModeAsync
			r.future = f
		} else {
			r.reg.log.Debug("async readback unavailable, reading synchronously", zap.Error(err))
		}
	}
	r.dirty = false
	r.reg.pending++
	return true
}

// UpdateRequest advances the transfer, spending from *budget when reading
// synchronously. The completion callback runs on the call that finishes.
func (r *Reader) UpdateRequest(budget *int) {
	if r.mode == ModeAsync {
		done, err := r.future.Poll(budget)
		switch {
		case err != nil:
			r.reg.log.Debug("async readback failed, reading synchronously", zap.Error(err))
			r.future.Release()
			r.mode = ModeSync
			r.future = newSyncFuture(r.buffer)
		case done:
			r.finish()
			return
		}
	}
	if r.mode == ModeSync && *budget > 0 {
		done, err := r.future.Poll(budget)
		if err != nil {
			r.reg.log.Error("sync readback failed", zap.Error(err))
			r.reset(false)
			return
		}
		if done {
			r.finish()
		}
	}
}

func (r *Reader) finish() {
	mode := r.mode
	pixels := r.future.Pixels()
	r.reset(true)

	r.reg.metrics.ReadbackCompleted(mode.String())
	if r.onComplete != nil {
		r.onComplete(pixels)
	}
}

// reset drops the current transfer. The staging buffer goes back to the
// pool only when no goroutine can still be reading it.
func (r *Reader) reset(recycle bool) {
	if r.mode == ModeNone {
		return
	}
	if r.future != nil {
		if recycle || r.mode == ModeSync || r.future.Ready() {
			r.reg.images.Put(r.buffer)
		}
		r.future.Release()
	}
	r.future = nil
	r.buffer = nil
	r.mode = ModeNone
	r.reg.pending--
}

// Release discards any in-flight transfer and removes the reader from its
// registry. Call it only when the owner is going away.
func (r *Reader) Release() {
	r.reset(false)
	r.reg.remove(r)
}
