package core

// Defaults shared by the rPPG pipeline. The capture collaborator is assumed to
// deliver one averaged face-region sample per video frame at a stable rate.
const (
	DefaultSampleRate = 30.0
	DefaultWindowSize = 100
)

// ProcessorConfig defines common processing settings.
type ProcessorConfig struct {
	// SampleRate is the assumed (not measured) frame rate in samples per second.
	SampleRate float64
	// WindowSize is the number of samples analysed per computation.
	WindowSize int
}

// ProcessorOption mutates a ProcessorConfig.
type ProcessorOption func(*ProcessorConfig)

// DefaultProcessorConfig returns defaults for a 30 fps webcam stream.
func DefaultProcessorConfig() ProcessorConfig {
	return ProcessorConfig{
		SampleRate: DefaultSampleRate,
		WindowSize: DefaultWindowSize,
	}
}

// WithSampleRate sets the processing sample rate.
func WithSampleRate(sampleRate float64) ProcessorOption {
	return func(cfg *ProcessorConfig) {
		if IsFinite(sampleRate) && sampleRate > 0 {
			cfg.SampleRate = sampleRate
		}
	}
}

// WithWindowSize sets the analysis window size.
func WithWindowSize(windowSize int) ProcessorOption {
	return func(cfg *ProcessorConfig) {
		if windowSize > 0 {
			cfg.WindowSize = windowSize
		}
	}
}

// ApplyProcessorOptions applies zero or more options to the default config.
func ApplyProcessorOptions(opts ...ProcessorOption) ProcessorConfig {
	cfg := DefaultProcessorConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}
