package texture

import (
	"image"
	"sync"
)

// Pool recycles images by size. It stands in for the temporary render
// texture pool a GPU backend would provide.
type Pool struct {
	mu   sync.Mutex
	free map[image.Point][]*Image
}

// NewPool creates an empty pool.
func NewPool() *Pool {
	return &Pool{free: make(map[image.Point][]*Image)}
}

// Get returns an image of the given size. Reused images keep their old
// contents; callers overwrite them.
func (p *Pool) Get(width, height int) *Image {
	key := image.Point{X: max(width, 1), Y: max(height, 1)}

	p.mu.Lock()
	defer p.mu.Unlock()

	if list := p.free[key]; len(list) > 0 {
		img := list[len(list)-1]
		p.free[key] = list[:len(list)-1]
		return img
	}
	return New(key.X, key.Y)
}

// GetCopy returns a pooled image holding a copy of src.
func (p *Pool) GetCopy(src *Image) *Image {
	img := p.Get(src.Width(), src.Height())
	img.CopyFrom(src)
	return img
}

// Put returns img to the pool. Nil is ignored.
func (p *Pool) Put(img *Image) {
	if img == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	key := img.Size()
	p.free[key] = append(p.free[key], img)
}

// Len returns the number of idle images.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, list := range p.free {
		n += len(list)
	}
	return n
}
