package buffer

import "fmt"

// Ring is a fixed-capacity circular buffer. Once full, each Push overwrites
// the oldest value. Snapshot always yields values oldest-first, independent
// of where the write position currently is.
type Ring[T any] struct {
	data     []T
	writePos int
	size     int
	total    uint64
}

// NewRing returns an empty ring with the given capacity.
func NewRing[T any](capacity int) (*Ring[T], error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("ring capacity must be > 0: %d", capacity)
	}
	return &Ring[T]{data: make([]T, capacity)}, nil
}

// Push appends v, overwriting the oldest value when the ring is full.
func (r *Ring[T]) Push(v T) {
	r.data[r.writePos] = v
	r.writePos++
	if r.writePos >= len(r.data) {
		r.writePos = 0
	}
	if r.size < len(r.data) {
		r.size++
	}
	r.total++
}

// Len returns the current occupancy.
func (r *Ring[T]) Len() int {
	return r.size
}

// Cap returns the fixed capacity.
func (r *Ring[T]) Cap() int {
	return len(r.data)
}

// Total returns the number of values pushed since creation or the last Clear.
// It is independent of occupancy and is not reduced by DropOldest.
func (r *Ring[T]) Total() uint64 {
	return r.total
}

// Snapshot returns a copy of the current contents, oldest first.
func (r *Ring[T]) Snapshot() []T {
	return r.AppendTo(make([]T, 0, r.size))
}

// AppendTo appends the current contents, oldest first, to dst.
func (r *Ring[T]) AppendTo(dst []T) []T {
	start := r.oldest()
	for i := 0; i < r.size; i++ {
		dst = append(dst, r.data[(start+i)%len(r.data)])
	}
	return dst
}

// Each calls fn for every value, oldest first.
func (r *Ring[T]) Each(fn func(T)) {
	start := r.oldest()
	for i := 0; i < r.size; i++ {
		fn(r.data[(start+i)%len(r.data)])
	}
}

// DropOldest discards the n oldest values. n larger than the occupancy empties
// the ring. Total is left unchanged.
func (r *Ring[T]) DropOldest(n int) {
	if n <= 0 {
		return
	}
	if n >= r.size {
		r.reset()
		return
	}
	var zero T
	start := r.oldest()
	for i := 0; i < n; i++ {
		r.data[(start+i)%len(r.data)] = zero
	}
	r.size -= n
}

// Clear empties the ring and resets Total. Capacity is unchanged.
func (r *Ring[T]) Clear() {
	r.reset()
	r.total = 0
}

func (r *Ring[T]) reset() {
	var zero T
	for i := range r.data {
		r.data[i] = zero
	}
	r.writePos = 0
	r.size = 0
}

func (r *Ring[T]) oldest() int {
	return (r.writePos - r.size + len(r.data)) % len(r.data)
}
