package texture

import (
	"fmt"
)

// TGA image type constants.
const (
	TGATypeUncompressed = 2  // Uncompressed true-color
	TGATypeRLE          = 10 // RLE compressed true-color
)

// DecodeTGA decodes a TGA file into an Image.
// Supports uncompressed true-color (type 2) and RLE compressed (type 10)
// files with 24 or 32 bits per pixel, which covers brush and mask exports
// from most paint tools.
func DecodeTGA(data []byte) (*Image, error) {
	if len(data) < 18 {
		return nil, fmt.Errorf("TGA data too short")
	}

	idLength := int(data[0])
	colorMapType := data[1]
	imageType := data[2]
	width := int(data[12]) | int(data[13])<<8
	height := int(data[14]) | int(data[15])<<8
	bpp := int(data[16])
	descriptor := data[17]

	if colorMapType != 0 {
		return nil, fmt.Errorf("color-mapped TGA not supported")
	}
	if imageType != TGATypeUncompressed && imageType != TGATypeRLE {
		return nil, fmt.Errorf("unsupported TGA type %d (only uncompressed/RLE true-color supported)", imageType)
	}
	if bpp != 24 && bpp != 32 {
		return nil, fmt.Errorf("unsupported TGA bit depth %d (only 24/32 supported)", bpp)
	}
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("TGA has empty dimensions %dx%d", width, height)
	}

	offset := 18 + idLength
	if offset > len(data) {
		return nil, fmt.Errorf("TGA data truncated")
	}

	dec := tgaDecoder{
		img:           New(width, height),
		src:           data[offset:],
		width:         width,
		height:        height,
		bytesPerPixel: bpp / 8,
		// Bit 5 of the descriptor marks top-to-bottom row order.
		topToBottom: descriptor&0x20 != 0,
	}

	if imageType == TGATypeUncompressed {
		if err := dec.raw(); err != nil {
			return nil, err
		}
	} else {
		dec.rle()
	}
	return dec.img, nil
}

type tgaDecoder struct {
	img           *Image
	src           []byte
	pos           int
	pixel         int
	width, height int
	bytesPerPixel int
	topToBottom   bool
}

func (d *tgaDecoder) raw() error {
	if len(d.src) < d.width*d.height*d.bytesPerPixel {
		return fmt.Errorf("TGA pixel data truncated")
	}
	for d.pixel < d.width*d.height {
		d.put(d.read())
	}
	return nil
}

// rle decodes packets until the image is full or the data runs out. A short
// stream leaves the remaining pixels transparent.
func (d *tgaDecoder) rle() {
	total := d.width * d.height
	for d.pixel < total && d.pos < len(d.src) {
		packet := d.src[d.pos]
		d.pos++
		count := int(packet&0x7F) + 1

		if packet&0x80 != 0 {
			if d.pos+d.bytesPerPixel > len(d.src) {
				return
			}
			p := d.read()
			for i := 0; i < count && d.pixel < total; i++ {
				d.put(p)
			}
			continue
		}
		for i := 0; i < count && d.pixel < total; i++ {
			if d.pos+d.bytesPerPixel > len(d.src) {
				return
			}
			d.put(d.read())
		}
	}
}

// read consumes one BGR(A) pixel.
func (d *tgaDecoder) read() [4]uint8 {
	s := d.src[d.pos:]
	p := [4]uint8{s[2], s[1], s[0], 255}
	if d.bytesPerPixel == 4 {
		p[3] = s[3]
	}
	d.pos += d.bytesPerPixel
	return p
}

func (d *tgaDecoder) put(p [4]uint8) {
	x := d.pixel % d.width
	y := d.pixel / d.width
	if !d.topToBottom {
		y = d.height - 1 - y
	}
	i := d.img.nrgba.PixOffset(x, y)
	copy(d.img.nrgba.Pix[i:i+4], p[:])
	d.pixel++
}
