package readback

import (
	"image/color"

	"github.com/Faultbox/paintcore/internal/texture"
)

type asyncFuture struct {
	done   chan struct{}
	pixels []color.NRGBA
}

func (f *asyncFuture) Poll(_ *int) (bool, error) {
	select {
	case <-f.done:
		return true, nil
	default:
		return false, nil
	}
}

func (f *asyncFuture) Ready() bool {
	done, _ := f.Poll(nil)
	return done
}

func (f *asyncFuture) Pixels() []color.NRGBA {
	return f.pixels
}

func (f *asyncFuture) Release() {
	f.pixels = nil
}

// syncFuture copies whole rows while budget remains. At least one row is
// read per poll so wide images still make progress.
type syncFuture struct {
	img    *texture.Image
	line   int
	pixels []color.NRGBA
}

func newSyncFuture(img *texture.Image) *syncFuture {
	return &syncFuture{img: img}
}

func (f *syncFuture) Poll(budget *int) (bool, error) {
	if f.line >= f.img.Height() {
		return true, nil
	}
	if *budget <= 0 {
		return false, nil
	}
	w := f.img.Width()
	if f.pixels == nil {
		f.pixels = make([]color.NRGBA, w*f.img.Height())
	}

	rows := max(*budget/w, 1)
	rows = min(rows, f.img.Height()-f.line)

	f.line += f.img.ReadRows(f.line, rows, f.pixels)
	*budget -= rows * w

	return f.line >= f.img.Height(), nil
}

func (f *syncFuture) Ready() bool {
	return f.img == nil || f.line >= f.img.Height()
}

func (f *syncFuture) Pixels() []color.NRGBA {
	return f.pixels
}

func (f *syncFuture) Release() {
	f.pixels = nil
	f.img = nil
}
