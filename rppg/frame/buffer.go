package frame

import (
	"fmt"

	"github.com/cwbudde/algo-rppg/dsp/buffer"
	"github.com/cwbudde/algo-rppg/dsp/core"
)

// Defaults for a 30 fps stream: a little over three seconds of signal.
const (
	DefaultCapacity = 100
	DefaultMinReady = 100
)

// Stats is a point-in-time view of a Buffer.
type Stats struct {
	Occupancy     int    `json:"occupancy"`
	Capacity      int    `json:"capacity"`
	TotalAccepted uint64 `json:"totalAccepted"`
	IsReady       bool   `json:"isReady"`
}

// BufferOption configures a Buffer.
type BufferOption func(*bufferConfig)

type bufferConfig struct {
	minReady int
}

// WithMinReady sets the occupancy at which the buffer reports ready.
func WithMinReady(n int) BufferOption {
	return func(c *bufferConfig) {
		c.minReady = n
	}
}

// Buffer is a fixed-capacity rolling window of valid samples. It is not safe
// for concurrent use; the owning processor serialises access.
type Buffer struct {
	ring     *buffer.Ring[Sample]
	minReady int
}

// NewBuffer returns an empty buffer. The readiness threshold defaults to
// min(DefaultMinReady, capacity) and must lie in [1, capacity].
func NewBuffer(capacity int, opts ...BufferOption) (*Buffer, error) {
	ring, err := buffer.NewRing[Sample](capacity)
	if err != nil {
		return nil, err
	}
	cfg := bufferConfig{minReady: min(DefaultMinReady, capacity)}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.minReady <= 0 || cfg.minReady > capacity {
		return nil, fmt.Errorf("frame buffer min ready must be in [1, %d]: %d", capacity, cfg.minReady)
	}
	return &Buffer{ring: ring, minReady: cfg.minReady}, nil
}

// Push appends s if it is valid. Invalid samples leave the buffer untouched
// and are not counted.
func (b *Buffer) Push(s Sample) bool {
	if s.Validate() != nil {
		return false
	}
	b.ring.Push(s)
	return true
}

// Snapshot returns the buffered samples, oldest first.
func (b *Buffer) Snapshot() []Sample {
	return b.ring.Snapshot()
}

// Green writes the green channel of the buffered samples, oldest first, into
// dst (grown if needed) and returns it resized to the occupancy.
func (b *Buffer) Green(dst []float64) []float64 {
	dst = core.EnsureLen(dst, b.ring.Len())
	i := 0
	b.ring.Each(func(s Sample) {
		dst[i] = s.G
		i++
	})
	return dst
}

// Len returns the current occupancy.
func (b *Buffer) Len() int {
	return b.ring.Len()
}

// MinReady returns the readiness threshold.
func (b *Buffer) MinReady() int {
	return b.minReady
}

// IsReady reports whether occupancy has reached the readiness threshold.
func (b *Buffer) IsReady() bool {
	return b.ring.Len() >= b.minReady
}

// Clear empties the buffer and resets the accepted counter.
func (b *Buffer) Clear() {
	b.ring.Clear()
}

// RetainNewest keeps only the n most recent samples.
func (b *Buffer) RetainNewest(n int) {
	b.ring.DropOldest(b.ring.Len() - max(n, 0))
}

// Stats returns occupancy, capacity, accepted count and readiness.
func (b *Buffer) Stats() Stats {
	return Stats{
		Occupancy:     b.ring.Len(),
		Capacity:      b.ring.Cap(),
		TotalAccepted: b.ring.Total(),
		IsReady:       b.IsReady(),
	}
}
