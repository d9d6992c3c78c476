package readback

import (
	"image/color"
	"slices"

	"go.uber.org/zap"

	"github.com/Faultbox/paintcore/internal/metrics"
	"github.com/Faultbox/paintcore/internal/texture"
)

// Registry tracks every live reader and shares the device, staging image
// pool, logger and metrics between them.
type Registry struct {
	log     *zap.Logger
	metrics *metrics.Metrics
	device  Device
	images  *texture.Pool

	readers []*Reader
	pending int
	scratch []*Reader
}

// Option configures a Registry.
type Option func(*Registry)

func WithLogger(l *zap.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.log = l
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Registry) {
		r.metrics = m
	}
}

// WithDevice replaces the default SoftwareDevice.
func WithDevice(d Device) Option {
	return func(r *Registry) {
		if d != nil {
			r.device = d
		}
	}
}

// WithImages shares a staging image pool.
func WithImages(p *texture.Pool) Option {
	return func(r *Registry) {
		if p != nil {
			r.images = p
		}
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		log:    zap.NewNop(),
		device: SoftwareDevice{},
		images: texture.NewPool(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NewReader registers a reader. onComplete receives the pixels of every
// finished request; the slice belongs to the callback.
func (r *Registry) NewReader(onComplete func(pixels []color.NRGBA)) *Reader {
	rd := &Reader{reg: r, onComplete: onComplete}
	r.readers = append(r.readers, rd)
	return rd
}

// Len returns the number of registered readers.
func (r *Registry) Len() int {
	return len(r.readers)
}

// Pending returns the number of readers with a transfer in flight.
func (r *Registry) Pending() int {
	return r.pending
}

// UpdateAll advances every reader with a shared pixel budget and returns
// what is left of it. Readers are visited in registration order over a
// snapshot, so callbacks may add or release readers safely.
func (r *Registry) UpdateAll(budget int) int {
	r.scratch = append(r.scratch[:0], r.readers...)
	for _, rd := range r.scratch {
		if rd.Requested() {
			rd.UpdateRequest(&budget)
		}
	}
	clear(r.scratch)
	return budget
}

func (r *Registry) remove(rd *Reader) {
	if i := slices.Index(r.readers, rd); i >= 0 {
		r.readers = slices.Delete(r.readers, i, i+1)
	}
}

func (r *Registry) closed(rd *Reader) bool {
	return !slices.Contains(r.readers, rd)
}
