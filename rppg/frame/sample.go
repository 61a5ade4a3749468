package frame

import (
	"errors"
	"fmt"

	"github.com/cwbudde/algo-rppg/dsp/core"
)

// Channel bounds for 8-bit colour averages.
const (
	MinChannel = 0.0
	MaxChannel = 255.0
)

// ErrInvalidFrame marks a sample rejected by validation.
var ErrInvalidFrame = errors.New("frame: invalid frame")

// Sample is one averaged colour observation.
type Sample struct {
	R float64 `json:"r"`
	G float64 `json:"g"`
	B float64 `json:"b"`
}

// Validate reports whether every channel is finite and within [0, 255].
func (s Sample) Validate() error {
	for _, ch := range [...]struct {
		name string
		v    float64
	}{{"r", s.R}, {"g", s.G}, {"b", s.B}} {
		if !core.IsFinite(ch.v) {
			return fmt.Errorf("%w: %s is not finite", ErrInvalidFrame, ch.name)
		}
		if !core.InRange(ch.v, MinChannel, MaxChannel) {
			return fmt.Errorf("%w: %s=%g outside [0, 255]", ErrInvalidFrame, ch.name, ch.v)
		}
	}
	return nil
}
