// Package readback copies image contents back to the host, either in one
// asynchronous transfer or a few rows at a time under a per-frame pixel
// budget.
package readback

import (
	"errors"
	"image/color"

	"github.com/Faultbox/paintcore/internal/texture"
)

// ErrAsyncUnsupported is returned by devices that cannot read asynchronously.
var ErrAsyncUnsupported = errors.New("async readback not supported")

// Future is an in-flight readback.
type Future interface {
	// Poll advances the transfer. Implementations that read synchronously
	// consume pixels from *budget and may do nothing when it is exhausted.
	Poll(budget *int) (done bool, err error)
	// Ready reports whether the result is available without polling.
	Ready() bool
	// Pixels returns the row-major result once Poll reported done.
	Pixels() []color.NRGBA
	// Release drops any resources held by the future.
	Release()
}

// Device starts asynchronous transfers.
type Device interface {
	SupportsAsync() bool
	ReadAsync(img *texture.Image) (Future, error)
}

// SoftwareDevice reads images on a background goroutine.
type SoftwareDevice struct {
	// DisableAsync makes the device report no async support so every
	// request falls back to budgeted synchronous reads.
	DisableAsync bool
}

func (d SoftwareDevice) SupportsAsync() bool {
	return !d.DisableAsync
}

func (d SoftwareDevice) ReadAsync(img *texture.Image) (Future, error) {
	if d.DisableAsync {
		return nil, ErrAsyncUnsupported
	}
	f := &asyncFuture{done: make(chan struct{})}
	go func() {
		f.pixels = img.Pixels()
		close(f.done)
	}()
	return f, nil
}
