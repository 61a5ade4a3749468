package processor

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cwbudde/algo-rppg/dsp/buffer"
	"github.com/cwbudde/algo-rppg/dsp/condition"
	"github.com/cwbudde/algo-rppg/dsp/peak"
	"github.com/cwbudde/algo-rppg/measure/heartrate"
	"github.com/cwbudde/algo-rppg/rppg/frame"
)

// Stats merges buffer statistics with processor state.
type Stats struct {
	frame.Stats
	LastProcessedAt time.Time `json:"lastProcessedAt"`
	IsProcessing    bool      `json:"isProcessing"`
	Computations    uint64    `json:"computations"`
	Failures        uint64    `json:"failures"`
	Generation      uint64    `json:"generation"`
}

// Processor turns a stream of colour samples into heart-rate callbacks.
// ProcessFrame, Reset and Stats are safe for concurrent use.
type Processor struct {
	cfg            Config
	onNewHeartRate func(bpm int)
	estimator      *heartrate.Estimator
	scratch        *buffer.Pool
	log            *slog.Logger
	wg             sync.WaitGroup

	mu              sync.Mutex
	buf             *frame.Buffer
	processing      bool
	generation      uint64
	lastProcessedAt time.Time
	computations    uint64
	failures        uint64
}

// New validates the configuration and returns an idle processor. A nil
// callback is allowed; results are then only visible through the observer.
func New(onNewHeartRate func(bpm int), opts ...Option) (*Processor, error) {
	cfg := ApplyOptions(opts...)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	buf, err := frame.NewBuffer(cfg.BufferSize, frame.WithMinReady(cfg.MinReady))
	if err != nil {
		return nil, err
	}
	est, err := heartrate.NewEstimator(
		heartrate.WithSampleRate(cfg.SampleRate),
		heartrate.WithRange(cfg.MinBPM, cfg.MaxBPM),
	)
	if err != nil {
		return nil, fmt.Errorf("processor estimator: %w", err)
	}
	if onNewHeartRate == nil {
		onNewHeartRate = func(int) {}
	}
	return &Processor{
		cfg:            cfg,
		onNewHeartRate: onNewHeartRate,
		estimator:      est,
		scratch:        buffer.NewPool(),
		log:            cfg.logger,
		buf:            buf,
	}, nil
}

// Config returns the effective configuration.
func (p *Processor) Config() Config {
	return p.cfg
}

// ProcessFrame buffers s and, if the trigger conditions hold, dispatches a
// computation. It reports whether s was accepted. Samples keep being
// accepted while a computation is in flight.
func (p *Processor) ProcessFrame(s frame.Sample) bool {
	if err := s.Validate(); err != nil {
		p.log.Debug("frame rejected", slog.String("kind", KindInvalidFrame), slog.Any("error", err))
		p.cfg.observer.FrameRejected()
		return false
	}

	p.mu.Lock()
	p.buf.Push(s)
	now := p.cfg.clock.Now()
	if !p.buf.IsReady() || p.processing || now.Sub(p.lastProcessedAt) < p.cfg.ProcessingInterval {
		p.mu.Unlock()
		return true
	}
	p.processing = true
	gen := p.generation
	scratch := p.scratch.Get(p.buf.Len())
	green := p.buf.Green(scratch.Samples())
	p.wg.Add(1)
	p.mu.Unlock()

	p.cfg.observer.ComputationStarted()
	p.cfg.dispatcher(func() {
		defer p.wg.Done()
		defer p.scratch.Put(scratch)
		p.run(gen, green)
	})
	return true
}

func (p *Processor) run(gen uint64, green []float64) {
	start := p.cfg.clock.Now()
	bpm, err := p.estimate(green)
	now := p.cfg.clock.Now()

	// The generation check and the bookkeeping share one critical section;
	// a Reset after it leaves this result attributed to the old window.
	p.mu.Lock()
	if gen != p.generation {
		p.mu.Unlock()
		p.log.Debug("stale result discarded", slog.Uint64("generation", gen))
		p.cfg.observer.ResultDiscarded()
		return
	}
	p.lastProcessedAt = now
	p.processing = false
	p.computations++
	if err != nil {
		p.failures++
	} else {
		p.buf.RetainNewest((p.buf.Len() + 1) / 2)
	}
	p.mu.Unlock()

	if err == nil {
		p.onNewHeartRate(bpm)
	} else {
		p.log.Warn("heart rate computation failed",
			slog.String("kind", Kind(err)),
			slog.Int("samples", len(green)),
			slog.Any("error", err))
	}
	p.cfg.observer.ComputationFinished(bpm, err, now.Sub(start))
}

// estimate runs the conditioning, detection and estimation chain on a
// chronological green-channel window.
func (p *Processor) estimate(green []float64) (int, error) {
	sig, err := condition.Normalize(green)
	if err != nil {
		return 0, err
	}
	if p.cfg.Detrend {
		sig = condition.Detrend(sig, p.cfg.DetrendWindow)
	}
	filtered, err := condition.Bandpass(sig, p.cfg.LowHz, p.cfg.HighHz, p.cfg.SampleRate,
		condition.WithMinimumLength(p.cfg.MinimumFilterSize))
	if err != nil {
		return 0, err
	}
	peaks := peak.Find(filtered, peak.WithMinDistance(p.cfg.MinPeakDistance))
	return p.estimator.Estimate(peaks)
}

// Reset clears the buffer, the in-flight guard and the last-processed
// timestamp. A computation already running is not interrupted; its result
// is discarded when it completes.
func (p *Processor) Reset() {
	p.mu.Lock()
	p.buf.Clear()
	p.processing = false
	p.lastProcessedAt = time.Time{}
	p.generation++
	p.mu.Unlock()
}

// Stats returns a consistent snapshot of buffer and processor state.
func (p *Processor) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{
		Stats:           p.buf.Stats(),
		LastProcessedAt: p.lastProcessedAt,
		IsProcessing:    p.processing,
		Computations:    p.computations,
		Failures:        p.failures,
		Generation:      p.generation,
	}
}

// Wait blocks until every dispatched computation has returned.
func (p *Processor) Wait() {
	p.wg.Wait()
}
