package processor

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/cwbudde/algo-rppg/dsp/condition"
	"github.com/cwbudde/algo-rppg/dsp/core"
	"github.com/cwbudde/algo-rppg/dsp/peak"
	"github.com/cwbudde/algo-rppg/measure/heartrate"
	"github.com/cwbudde/algo-rppg/rppg/frame"
)

// DefaultProcessingInterval throttles how often a computation may start.
const DefaultProcessingInterval = time.Second

// Dispatcher schedules a deferred computation. It must not run task on the
// calling goroutine unless the caller tolerates ProcessFrame blocking for the
// duration of the computation.
type Dispatcher func(task func())

// GoDispatcher runs each task on a new goroutine.
func GoDispatcher(task func()) {
	go task()
}

// SyncDispatcher runs each task inline. Intended for tests and offline tools.
func SyncDispatcher(task func()) {
	task()
}

// Config holds processor parameters.
type Config struct {
	BufferSize         int
	MinReady           int
	ProcessingInterval time.Duration
	SampleRate         float64
	MinPeakDistance    int
	LowHz              float64
	HighHz             float64
	MinBPM             int
	MaxBPM             int
	MinimumFilterSize  int
	Detrend            bool
	DetrendWindow      int

	clock      Clock
	logger     *slog.Logger
	dispatcher Dispatcher
	observer   Observer
}

// Option mutates a Config.
type Option func(*Config)

// DefaultConfig returns defaults for a 30 fps webcam stream.
func DefaultConfig() Config {
	return Config{
		BufferSize:         frame.DefaultCapacity,
		ProcessingInterval: DefaultProcessingInterval,
		SampleRate:         core.DefaultSampleRate,
		MinPeakDistance:    peak.DefaultMinDistance,
		LowHz:              condition.DefaultLowHz,
		HighHz:             condition.DefaultHighHz,
		MinBPM:             heartrate.DefaultMinBPM,
		MaxBPM:             heartrate.DefaultMaxBPM,
		MinimumFilterSize:  condition.DefaultMinimumLength,
		DetrendWindow:      condition.DefaultDetrendWindow,
	}
}

// WithBufferSize sets the ring buffer capacity.
func WithBufferSize(n int) Option {
	return func(c *Config) { c.BufferSize = n }
}

// WithMinReady sets the occupancy required before a computation may start.
// Zero selects min(MinimumFilterSize, BufferSize).
func WithMinReady(n int) Option {
	return func(c *Config) { c.MinReady = n }
}

// WithProcessingInterval sets the minimum gap between computation starts.
func WithProcessingInterval(d time.Duration) Option {
	return func(c *Config) { c.ProcessingInterval = d }
}

// WithSampleRate sets the assumed frame rate.
func WithSampleRate(fps float64) Option {
	return func(c *Config) { c.SampleRate = fps }
}

// WithMinPeakDistance sets the minimum spacing between detected peaks.
func WithMinPeakDistance(n int) Option {
	return func(c *Config) { c.MinPeakDistance = n }
}

// WithBand sets the nominal pulse band in Hz.
func WithBand(lowHz, highHz float64) Option {
	return func(c *Config) {
		c.LowHz = lowHz
		c.HighHz = highHz
	}
}

// WithHeartRateRange sets the accepted BPM range.
func WithHeartRateRange(minBPM, maxBPM int) Option {
	return func(c *Config) {
		c.MinBPM = minBPM
		c.MaxBPM = maxBPM
	}
}

// WithMinimumFilterSize sets the shortest window the smoothing stage accepts.
func WithMinimumFilterSize(n int) Option {
	return func(c *Config) { c.MinimumFilterSize = n }
}

// WithDetrend enables moving-average detrending before smoothing. A
// non-positive window selects the default of 15 samples.
func WithDetrend(window int) Option {
	return func(c *Config) {
		c.Detrend = true
		if window > 0 {
			c.DetrendWindow = window
		}
	}
}

// WithClock replaces the wall clock.
func WithClock(clock Clock) Option {
	return func(c *Config) { c.clock = clock }
}

// WithLogger sets the logger used for rejected frames and failures.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) { c.logger = l }
}

// WithDispatcher sets how deferred computations are scheduled.
func WithDispatcher(d Dispatcher) Option {
	return func(c *Config) { c.dispatcher = d }
}

// WithObserver installs instrumentation hooks.
func WithObserver(o Observer) Option {
	return func(c *Config) { c.observer = o }
}

// ApplyOptions applies opts to the default config and fills dependent
// defaults.
func ApplyOptions(opts ...Option) Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.MinReady == 0 {
		cfg.MinReady = min(cfg.MinimumFilterSize, cfg.BufferSize)
	}
	if cfg.clock == nil {
		cfg.clock = RealClock{}
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	if cfg.dispatcher == nil {
		cfg.dispatcher = GoDispatcher
	}
	if cfg.observer == nil {
		cfg.observer = NopObserver{}
	}
	return cfg
}

// Validate reports the first invalid parameter.
func (c Config) Validate() error {
	switch {
	case c.BufferSize <= 0:
		return fmt.Errorf("processor buffer size must be > 0: %d", c.BufferSize)
	case c.MinReady <= 0 || c.MinReady > c.BufferSize:
		return fmt.Errorf("processor min ready must be in [1, %d]: %d", c.BufferSize, c.MinReady)
	case c.ProcessingInterval < 0:
		return fmt.Errorf("processor interval must be >= 0: %s", c.ProcessingInterval)
	case !core.IsFinite(c.SampleRate) || c.SampleRate <= 0:
		return fmt.Errorf("processor sample rate must be > 0: %f", c.SampleRate)
	case c.MinPeakDistance <= 0:
		return fmt.Errorf("processor min peak distance must be > 0: %d", c.MinPeakDistance)
	case !(c.LowHz > 0 && c.HighHz > c.LowHz):
		return fmt.Errorf("processor band must satisfy 0 < low < high: %f, %f", c.LowHz, c.HighHz)
	case c.MinimumFilterSize <= 0:
		return fmt.Errorf("processor minimum filter size must be > 0: %d", c.MinimumFilterSize)
	}
	return nil
}
