// Package config loads the daemon's JSON configuration and maps it onto
// processor options.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cwbudde/algo-rppg/rppg/processor"
)

// Daemon defaults. Pipeline defaults come from the processor package.
const (
	DefaultListenAddr  = ":8080"
	DefaultLogLevel    = "info"
	DefaultLogFormat   = "text"
	DefaultNATSPrefix  = "rppg"
	DefaultIdleTimeout = "2m"
)

const maxFileSize = 1 * 1024 * 1024 // 1MB

// Config is the root daemon configuration. Every field is optional; nil
// fields fall back to defaults through the Get* methods, so partial files
// are safe.
type Config struct {
	// Daemon
	ListenAddr  *string `json:"listen_addr,omitempty"`
	LogLevel    *string `json:"log_level,omitempty"`
	LogFormat   *string `json:"log_format,omitempty"`
	NATSURL     *string `json:"nats_url,omitempty"`
	NATSPrefix  *string `json:"nats_prefix,omitempty"`
	IdleTimeout *string `json:"idle_timeout,omitempty"` // duration string like "2m"

	// Pipeline
	BufferSize         *int     `json:"buffer_size,omitempty"`
	MinReady           *int     `json:"min_ready,omitempty"`
	ProcessingInterval *string  `json:"processing_interval,omitempty"` // duration string like "1s"
	SampleRate         *float64 `json:"sample_rate,omitempty"`
	MinPeakDistance    *int     `json:"min_peak_distance,omitempty"`
	BandLowHz          *float64 `json:"band_low_hz,omitempty"`
	BandHighHz         *float64 `json:"band_high_hz,omitempty"`
	MinBPM             *int     `json:"min_bpm,omitempty"`
	MaxBPM             *int     `json:"max_bpm,omitempty"`
	MinimumFilterSize  *int     `json:"minimum_filter_size,omitempty"`
	Detrend            *bool    `json:"detrend,omitempty"`
	DetrendWindow      *int     `json:"detrend_window,omitempty"`
}

// Empty returns a Config with every field unset.
func Empty() *Config {
	return &Config{}
}

// Load reads a Config from a .json file no larger than 1MB.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg := Empty()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks field formats. Cross-field pipeline constraints are
// enforced by processor.New.
func (c *Config) Validate() error {
	for name, v := range map[string]*string{
		"processing_interval": c.ProcessingInterval,
		"idle_timeout":        c.IdleTimeout,
	} {
		if v == nil || *v == "" {
			continue
		}
		d, err := time.ParseDuration(*v)
		if err != nil {
			return fmt.Errorf("invalid %s '%s': %w", name, *v, err)
		}
		if d < 0 {
			return fmt.Errorf("%s must be >= 0, got %s", name, d)
		}
	}
	if c.LogFormat != nil {
		switch strings.ToLower(*c.LogFormat) {
		case "text", "json":
		default:
			return fmt.Errorf("log_format must be text or json, got %q", *c.LogFormat)
		}
	}
	if c.LogLevel != nil {
		if _, err := parseLevel(*c.LogLevel); err != nil {
			return err
		}
	}
	if c.BufferSize != nil && *c.BufferSize <= 0 {
		return fmt.Errorf("buffer_size must be > 0, got %d", *c.BufferSize)
	}
	if c.SampleRate != nil && *c.SampleRate <= 0 {
		return fmt.Errorf("sample_rate must be > 0, got %f", *c.SampleRate)
	}
	return nil
}

// GetListenAddr returns the HTTP listen address.
func (c *Config) GetListenAddr() string {
	if c.ListenAddr == nil {
		return DefaultListenAddr
	}
	return *c.ListenAddr
}

// GetLogFormat returns "text" or "json".
func (c *Config) GetLogFormat() string {
	if c.LogFormat == nil {
		return DefaultLogFormat
	}
	return strings.ToLower(*c.LogFormat)
}

// GetNATSURL returns the NATS server URL, or "" when the bridge is disabled.
func (c *Config) GetNATSURL() string {
	if c.NATSURL == nil {
		return ""
	}
	return *c.NATSURL
}

// GetNATSPrefix returns the subject prefix for the NATS bridge.
func (c *Config) GetNATSPrefix() string {
	if c.NATSPrefix == nil || *c.NATSPrefix == "" {
		return DefaultNATSPrefix
	}
	return *c.NATSPrefix
}

// GetIdleTimeout returns how long a session may go without samples before
// it is closed. Zero disables the sweep.
func (c *Config) GetIdleTimeout() time.Duration {
	s := DefaultIdleTimeout
	if c.IdleTimeout != nil {
		s = *c.IdleTimeout
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0
	}
	return d
}

// GetProcessingInterval returns the processing interval.
func (c *Config) GetProcessingInterval() time.Duration {
	if c.ProcessingInterval == nil || *c.ProcessingInterval == "" {
		return processor.DefaultProcessingInterval
	}
	d, err := time.ParseDuration(*c.ProcessingInterval)
	if err != nil {
		return processor.DefaultProcessingInterval
	}
	return d
}

// ProcessorOptions maps the set pipeline fields onto processor options.
func (c *Config) ProcessorOptions() []processor.Option {
	var opts []processor.Option
	if c.BufferSize != nil {
		opts = append(opts, processor.WithBufferSize(*c.BufferSize))
	}
	if c.MinReady != nil {
		opts = append(opts, processor.WithMinReady(*c.MinReady))
	}
	if c.ProcessingInterval != nil {
		opts = append(opts, processor.WithProcessingInterval(c.GetProcessingInterval()))
	}
	if c.SampleRate != nil {
		opts = append(opts, processor.WithSampleRate(*c.SampleRate))
	}
	if c.MinPeakDistance != nil {
		opts = append(opts, processor.WithMinPeakDistance(*c.MinPeakDistance))
	}
	if c.BandLowHz != nil || c.BandHighHz != nil {
		def := processor.DefaultConfig()
		lo, hi := def.LowHz, def.HighHz
		if c.BandLowHz != nil {
			lo = *c.BandLowHz
		}
		if c.BandHighHz != nil {
			hi = *c.BandHighHz
		}
		opts = append(opts, processor.WithBand(lo, hi))
	}
	if c.MinBPM != nil || c.MaxBPM != nil {
		def := processor.DefaultConfig()
		lo, hi := def.MinBPM, def.MaxBPM
		if c.MinBPM != nil {
			lo = *c.MinBPM
		}
		if c.MaxBPM != nil {
			hi = *c.MaxBPM
		}
		opts = append(opts, processor.WithHeartRateRange(lo, hi))
	}
	if c.MinimumFilterSize != nil {
		opts = append(opts, processor.WithMinimumFilterSize(*c.MinimumFilterSize))
	}
	if c.Detrend != nil && *c.Detrend {
		w := 0
		if c.DetrendWindow != nil {
			w = *c.DetrendWindow
		}
		opts = append(opts, processor.WithDetrend(w))
	}
	return opts
}
