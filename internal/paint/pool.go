package paint

// Pool is a free list that recycles values instead of allocating them.
type Pool[T any] struct {
	free  []*T
	count int
}

// Get pops a recycled value or allocates a new one. Recycled values keep
// their previous contents.
func (p *Pool[T]) Get() *T {
	if n := len(p.free); n > 0 {
		v := p.free[n-1]
		p.free[n-1] = nil
		p.free = p.free[:n-1]
		return v
	}
	p.count++
	return new(T)
}

// Put pushes v back onto the free list.
func (p *Pool[T]) Put(v *T) {
	if v != nil {
		p.free = append(p.free, v)
	}
}

// Len returns the number of idle values.
func (p *Pool[T]) Len() int {
	return len(p.free)
}

// Allocated returns how many values the pool has ever created.
func (p *Pool[T]) Allocated() int {
	return p.count
}

type freeList interface {
	Len() int
	Allocated() int
}

// poolOf returns the pool registered for kind k.
func poolOf[T any](c *Context, k Kind) *Pool[T] {
	return c.pools[k].(*Pool[T])
}
