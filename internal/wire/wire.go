// Package wire decodes sample payloads arriving over the network.
//
// Two encodings are accepted: JSON (one {"r","g","b"} object or an array of
// them) and packed little-endian float32 r,g,b triplets.
package wire

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/cwbudde/algo-rppg/rppg/frame"
)

// TripletSize is the byte length of one packed float32 sample.
const TripletSize = 12

var (
	// ErrEmptyPayload is returned for a blank payload.
	ErrEmptyPayload = errors.New("wire: empty payload")
	// ErrTruncated is returned when a packed payload is not a whole number
	// of triplets.
	ErrTruncated = errors.New("wire: truncated float32 payload")
)

// jsonSample distinguishes absent or null channels from zero.
type jsonSample struct {
	R *float64 `json:"r"`
	G *float64 `json:"g"`
	B *float64 `json:"b"`
}

func channel(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}

func (j jsonSample) sample() frame.Sample {
	return frame.Sample{R: channel(j.R), G: channel(j.G), B: channel(j.B)}
}

// DecodeJSON parses a single sample object or an array of samples. A
// missing or null channel decodes as NaN so the sample fails validation and
// is counted as rejected by the processor.
func DecodeJSON(data []byte) ([]frame.Sample, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, ErrEmptyPayload
	}
	if data[0] == '[' {
		var raw []jsonSample
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("decode samples: %w", err)
		}
		out := make([]frame.Sample, len(raw))
		for i, j := range raw {
			out[i] = j.sample()
		}
		return out, nil
	}
	var one jsonSample
	if err := json.Unmarshal(data, &one); err != nil {
		return nil, fmt.Errorf("decode sample: %w", err)
	}
	return []frame.Sample{one.sample()}, nil
}

// DecodeFloat32LE unpacks r,g,b float32 triplets.
func DecodeFloat32LE(data []byte) ([]frame.Sample, error) {
	if len(data) == 0 {
		return nil, ErrEmptyPayload
	}
	if len(data)%TripletSize != 0 {
		return nil, fmt.Errorf("%w: %d bytes", ErrTruncated, len(data))
	}
	out := make([]frame.Sample, len(data)/TripletSize)
	for i := range out {
		b := data[i*TripletSize:]
		out[i] = frame.Sample{
			R: float64(math.Float32frombits(binary.LittleEndian.Uint32(b[0:4]))),
			G: float64(math.Float32frombits(binary.LittleEndian.Uint32(b[4:8]))),
			B: float64(math.Float32frombits(binary.LittleEndian.Uint32(b[8:12]))),
		}
	}
	return out, nil
}

// EncodeFloat32LE packs samples as r,g,b float32 triplets.
func EncodeFloat32LE(samples []frame.Sample) []byte {
	out := make([]byte, 0, len(samples)*TripletSize)
	for _, s := range samples {
		out = binary.LittleEndian.AppendUint32(out, math.Float32bits(float32(s.R)))
		out = binary.LittleEndian.AppendUint32(out, math.Float32bits(float32(s.G)))
		out = binary.LittleEndian.AppendUint32(out, math.Float32bits(float32(s.B)))
	}
	return out
}
