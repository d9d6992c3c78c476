package texture

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

// Image is a paintable RGBA8 image. It plays the role of a GPU render
// target: commands mutate it in place and readers copy rows out of it.
type Image struct {
	nrgba *image.NRGBA
}

// New creates a transparent image. Sizes below 1 are clamped to 1.
func New(width, height int) *Image {
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	return &Image{nrgba: image.NewNRGBA(image.Rect(0, 0, width, height))}
}

// NewFilled creates an image filled with c.
func NewFilled(width, height int, c Color) *Image {
	img := New(width, height)
	img.Fill(c)
	return img
}

// FromImage copies any image.Image into a new Image.
func FromImage(src image.Image) *Image {
	b := src.Bounds()
	img := New(b.Dx(), b.Dy())
	draw.Copy(img.nrgba, image.Point{}, src, b, draw.Src, nil)
	return img
}

// Width returns the image width in pixels.
func (m *Image) Width() int {
	return m.nrgba.Rect.Dx()
}

// Height returns the image height in pixels.
func (m *Image) Height() int {
	return m.nrgba.Rect.Dy()
}

// Size returns the image dimensions.
func (m *Image) Size() image.Point {
	return m.nrgba.Rect.Size()
}

// NRGBA exposes the backing image.
func (m *Image) NRGBA() *image.NRGBA {
	return m.nrgba
}

// Pixel returns the color at (x, y), clamping coordinates to the edge.
func (m *Image) Pixel(x, y int) Color {
	x = clampInt(x, 0, m.Width()-1)
	y = clampInt(y, 0, m.Height()-1)
	i := m.nrgba.PixOffset(x, y)
	p := m.nrgba.Pix[i : i+4 : i+4]
	return Color{
		R: float32(p[0]) / 255,
		G: float32(p[1]) / 255,
		B: float32(p[2]) / 255,
		A: float32(p[3]) / 255,
	}
}

// SetPixel writes c at (x, y). Out of range writes are ignored.
func (m *Image) SetPixel(x, y int, c Color) {
	if x < 0 || y < 0 || x >= m.Width() || y >= m.Height() {
		return
	}
	i := m.nrgba.PixOffset(x, y)
	p := m.nrgba.Pix[i : i+4 : i+4]
	p[0] = to8(c.R)
	p[1] = to8(c.G)
	p[2] = to8(c.B)
	p[3] = to8(c.A)
}

// UV returns the normalized coordinate of the center of pixel (x, y).
func (m *Image) UV(x, y int) (u, v float32) {
	return (float32(x) + 0.5) / float32(m.Width()), (float32(y) + 0.5) / float32(m.Height())
}

// Sample reads the image at normalized (u, v) with bilinear filtering and
// clamp-to-edge addressing.
func (m *Image) Sample(u, v float32) Color {
	fx := u*float32(m.Width()) - 0.5
	fy := v*float32(m.Height()) - 0.5
	x0 := floor(fx)
	y0 := floor(fy)
	tx := fx - float32(x0)
	ty := fy - float32(y0)

	top := m.Pixel(x0, y0).Lerp(m.Pixel(x0+1, y0), tx)
	bottom := m.Pixel(x0, y0+1).Lerp(m.Pixel(x0+1, y0+1), tx)
	return top.Lerp(bottom, ty)
}

// Fill sets every pixel to c.
func (m *Image) Fill(c Color) {
	n := c.NRGBA()
	pix := m.nrgba.Pix
	for i := 0; i+3 < len(pix); i += 4 {
		pix[i] = n.R
		pix[i+1] = n.G
		pix[i+2] = n.B
		pix[i+3] = n.A
	}
}

// Clone returns a deep copy.
func (m *Image) Clone() *Image {
	c := New(m.Width(), m.Height())
	copy(c.nrgba.Pix, m.nrgba.Pix)
	return c
}

// CopyFrom copies src into m. Different sizes are resampled.
func (m *Image) CopyFrom(src *Image) {
	if src.Size() == m.Size() {
		copy(m.nrgba.Pix, src.nrgba.Pix)
		return
	}
	m.ResampleFrom(src)
}

// ResampleFrom scales src to fill m using bilinear filtering.
func (m *Image) ResampleFrom(src image.Image) {
	draw.BiLinear.Scale(m.nrgba, m.nrgba.Rect, src, src.Bounds(), draw.Src, nil)
}

// Resized returns a new image of the given size holding a bilinear copy of m.
func (m *Image) Resized(width, height int) *Image {
	out := New(width, height)
	out.CopyFrom(m)
	return out
}

// Equal reports whether both images have identical size and bytes.
func (m *Image) Equal(o *Image) bool {
	if m == nil || o == nil {
		return m == o
	}
	if m.Size() != o.Size() {
		return false
	}
	a, b := m.nrgba.Pix, o.nrgba.Pix
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Pixels returns a copy of every pixel in row-major order.
func (m *Image) Pixels() []color.NRGBA {
	out := make([]color.NRGBA, m.Width()*m.Height())
	m.ReadRows(0, m.Height(), out)
	return out
}

// ReadRows copies rows [y, y+count) into dst, which is indexed as a full
// row-major image. Returns the number of rows copied.
func (m *Image) ReadRows(y, count int, dst []color.NRGBA) int {
	w := m.Width()
	if y < 0 {
		y = 0
	}
	if y+count > m.Height() {
		count = m.Height() - y
	}
	for row := y; row < y+count; row++ {
		src := m.nrgba.Pix[row*m.nrgba.Stride:]
		base := row * w
		for x := 0; x < w && base+x < len(dst); x++ {
			dst[base+x] = color.NRGBA{R: src[x*4], G: src[x*4+1], B: src[x*4+2], A: src[x*4+3]}
		}
	}
	if count < 0 {
		return 0
	}
	return count
}

// Bounds, ColorModel and At let an Image be used as an image.Image.
func (m *Image) Bounds() image.Rectangle { return m.nrgba.Rect }

func (m *Image) ColorModel() color.Model { return color.NRGBAModel }

func (m *Image) At(x, y int) color.Color { return m.nrgba.At(x, y) }

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func floor(v float32) int {
	i := int(v)
	if float32(i) > v {
		i--
	}
	return i
}
