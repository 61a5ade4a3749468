package processor

import (
	"bytes"
	"io"
	"log/slog"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cwbudde/algo-rppg/internal/testutil"
	"github.com/cwbudde/algo-rppg/rppg/frame"
)

const frameStep = time.Second / 30

var epoch = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

type recorder struct {
	mu   sync.Mutex
	bpms []int
}

func (r *recorder) record(bpm int) {
	r.mu.Lock()
	r.bpms = append(r.bpms, bpm)
	r.mu.Unlock()
}

func (r *recorder) values() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.bpms...)
}

// queue is a dispatcher that holds tasks until the test runs them.
type queue struct {
	mu    sync.Mutex
	tasks []func()
}

func (q *queue) dispatch(task func()) {
	q.mu.Lock()
	q.tasks = append(q.tasks, task)
	q.mu.Unlock()
}

func (q *queue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

func (q *queue) runNext(t *testing.T) {
	t.Helper()
	q.mu.Lock()
	if len(q.tasks) == 0 {
		q.mu.Unlock()
		t.Fatal("no queued task")
	}
	task := q.tasks[0]
	q.tasks = q.tasks[1:]
	q.mu.Unlock()
	task()
}

type countingObserver struct {
	rejected, started, finished, failed, discarded atomic.Int64
}

func (o *countingObserver) FrameRejected()      { o.rejected.Add(1) }
func (o *countingObserver) ComputationStarted() { o.started.Add(1) }
func (o *countingObserver) ResultDiscarded()    { o.discarded.Add(1) }
func (o *countingObserver) ComputationFinished(_ int, err error, _ time.Duration) {
	o.finished.Add(1)
	if err != nil {
		o.failed.Add(1)
	}
}

// pulseFrames encodes a freqHz oscillation in the green channel on top of a
// typical skin tone.
func pulseFrames(freqHz float64, n int, seed int64) []frame.Sample {
	pulse := testutil.DeterministicSine(freqHz, 30, 2, n)
	noise := testutil.DeterministicNoise(seed, 0.1, n)
	out := make([]frame.Sample, n)
	for i := range out {
		out[i] = frame.Sample{R: 182, G: 128 + pulse[i] + noise[i], B: 104}
	}
	return out
}

func constantFrames(n int) []frame.Sample {
	out := make([]frame.Sample, n)
	for i := range out {
		out[i] = frame.Sample{R: 180, G: 120, B: 100}
	}
	return out
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestProcessor(t *testing.T, cb func(int), opts ...Option) (*Processor, *testutil.MockClock) {
	t.Helper()
	clock := testutil.NewMockClock(epoch)
	base := []Option{WithClock(clock), WithLogger(quietLogger()), WithDispatcher(SyncDispatcher)}
	p, err := New(cb, append(base, opts...)...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p, clock
}

func feed(p *Processor, clock *testutil.MockClock, frames []frame.Sample) {
	for _, s := range frames {
		clock.Advance(frameStep)
		p.ProcessFrame(s)
	}
}

// A 150-sample buffer that must be full makes one window yield exactly one
// estimate. Under the defaults the half eviction refills the buffer within
// the same 150 samples; see TestDefaultsRefireAfterEviction.
func TestEndToEndSyntheticPulse(t *testing.T) {
	var rec recorder
	p, clock := newTestProcessor(t, rec.record, WithBufferSize(150), WithMinReady(150))
	feed(p, clock, pulseFrames(1.2, 150, 7))

	got := rec.values()
	if len(got) != 1 {
		t.Fatalf("callbacks = %v, want exactly one", got)
	}
	testutil.RequireIntWithin(t, "bpm", got[0], 68, 76)
}

func TestDefaultsRefireAfterEviction(t *testing.T) {
	var rec recorder
	p, clock := newTestProcessor(t, rec.record)
	feed(p, clock, pulseFrames(1.2, 150, 7))

	got := rec.values()
	if len(got) != 2 {
		t.Fatalf("callbacks = %v, want two (frames 100 and 150)", got)
	}
	for _, bpm := range got {
		testutil.RequireIntWithin(t, "bpm", bpm, 68, 76)
	}
}

func TestEndToEndDefaults(t *testing.T) {
	for _, tt := range []struct {
		freq float64
		want int
	}{
		{freq: 1.0, want: 60},
		{freq: 1.2, want: 72},
		{freq: 1.5, want: 90},
	} {
		var rec recorder
		p, clock := newTestProcessor(t, rec.record)
		feed(p, clock, pulseFrames(tt.freq, 100, 3))

		got := rec.values()
		if len(got) != 1 {
			t.Fatalf("f=%v: callbacks = %v, want one", tt.freq, got)
		}
		testutil.RequireIntWithin(t, "bpm", got[0], tt.want-3, tt.want+3)
	}
}

func TestEndToEndWithDetrend(t *testing.T) {
	var rec recorder
	p, clock := newTestProcessor(t, rec.record, WithDetrend(0), WithBufferSize(150), WithMinReady(150))
	frames := pulseFrames(1.2, 150, 5)
	for i := range frames {
		frames[i].G += 0.02 * float64(i) // slow illumination drift
	}
	feed(p, clock, frames)

	got := rec.values()
	if len(got) != 1 {
		t.Fatalf("callbacks = %v, want one", got)
	}
	testutil.RequireIntWithin(t, "bpm", got[0], 68, 76)
	if p.Config().DetrendWindow != 15 {
		t.Fatalf("DetrendWindow = %d, want 15", p.Config().DetrendWindow)
	}
}

func TestSuccessEvictsOldestHalf(t *testing.T) {
	var rec recorder
	p, clock := newTestProcessor(t, rec.record)
	feed(p, clock, pulseFrames(1.2, 100, 1))

	if len(rec.values()) != 1 {
		t.Fatalf("callbacks = %v, want one", rec.values())
	}
	st := p.Stats()
	if st.Occupancy != 50 {
		t.Fatalf("Occupancy = %d, want 50", st.Occupancy)
	}
	if st.TotalAccepted != 100 {
		t.Fatalf("TotalAccepted = %d, want 100", st.TotalAccepted)
	}
	if st.IsReady || st.IsProcessing {
		t.Fatalf("stats = %+v, want not ready and idle", st)
	}
	if !st.LastProcessedAt.Equal(epoch.Add(100 * frameStep)) {
		t.Fatalf("LastProcessedAt = %v, want %v", st.LastProcessedAt, epoch.Add(100*frameStep))
	}
}

func TestFailureReportsNoCallback(t *testing.T) {
	var logs bytes.Buffer
	obs := &countingObserver{}
	var rec recorder
	p, clock := newTestProcessor(t, rec.record,
		WithLogger(slog.New(slog.NewTextHandler(&logs, nil))),
		WithObserver(obs))
	feed(p, clock, constantFrames(100))

	if got := rec.values(); len(got) != 0 {
		t.Fatalf("callbacks = %v, want none", got)
	}
	st := p.Stats()
	if st.Failures != 1 || st.Computations != 1 {
		t.Fatalf("stats = %+v, want one failed computation", st)
	}
	if st.Occupancy != 100 {
		t.Fatalf("Occupancy = %d, want 100 (no eviction on failure)", st.Occupancy)
	}
	if st.IsProcessing {
		t.Fatal("guard still set after failure")
	}
	if !st.LastProcessedAt.Equal(clock.Now()) {
		t.Fatalf("LastProcessedAt = %v, want %v", st.LastProcessedAt, clock.Now())
	}
	if !strings.Contains(logs.String(), "kind="+KindConstantSignal) {
		t.Fatalf("log does not name the failure kind:\n%s", logs.String())
	}
	if obs.failed.Load() != 1 || obs.finished.Load() != 1 {
		t.Fatalf("observer failed=%d finished=%d, want 1/1", obs.failed.Load(), obs.finished.Load())
	}
}

func TestFailureDoesNotRetryBeforeInterval(t *testing.T) {
	p, clock := newTestProcessor(t, nil)
	feed(p, clock, constantFrames(100))
	feed(p, clock, constantFrames(20)) // ~0.67 s later
	if got := p.Stats().Computations; got != 1 {
		t.Fatalf("Computations = %d, want 1", got)
	}
	feed(p, clock, constantFrames(15)) // crosses 1 s
	if got := p.Stats().Computations; got != 2 {
		t.Fatalf("Computations = %d, want 2", got)
	}
}

func TestSignalTooShort(t *testing.T) {
	var logs bytes.Buffer
	var rec recorder
	p, clock := newTestProcessor(t, rec.record,
		WithMinReady(60),
		WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))
	feed(p, clock, pulseFrames(1.2, 60, 2))

	if len(rec.values()) != 0 {
		t.Fatalf("callbacks = %v, want none", rec.values())
	}
	if !strings.Contains(logs.String(), "kind="+KindSignalTooShort) {
		t.Fatalf("log does not name SignalTooShort:\n%s", logs.String())
	}
}

func TestProcessingIntervalGate(t *testing.T) {
	var rec recorder
	p, clock := newTestProcessor(t, rec.record, WithProcessingInterval(10*time.Second))
	feed(p, clock, pulseFrames(1.2, 300, 4))
	if got := len(rec.values()); got != 1 {
		t.Fatalf("callbacks = %d, want 1 before the interval elapses", got)
	}

	clock.Advance(4 * time.Second)
	p.ProcessFrame(frame.Sample{R: 182, G: 128, B: 104})
	if got := len(rec.values()); got != 2 {
		t.Fatalf("callbacks = %d, want 2 after the interval", got)
	}
}

func TestGuardBlocksSecondComputation(t *testing.T) {
	q := &queue{}
	var rec recorder
	p, clock := newTestProcessor(t, rec.record, WithDispatcher(q.dispatch))
	feed(p, clock, pulseFrames(1.2, 100, 6))
	if q.len() != 1 {
		t.Fatalf("queued = %d, want 1", q.len())
	}
	if !p.Stats().IsProcessing {
		t.Fatal("IsProcessing = false while a computation is queued")
	}

	// Frames keep arriving and the interval elapses, but the guard holds.
	for range 5 {
		clock.Advance(2 * time.Second)
		if !p.ProcessFrame(frame.Sample{R: 182, G: 128, B: 104}) {
			t.Fatal("frame rejected while computation in flight")
		}
	}
	if q.len() != 1 {
		t.Fatalf("queued = %d, want 1", q.len())
	}

	q.runNext(t)
	if got := rec.values(); len(got) != 1 {
		t.Fatalf("callbacks = %v, want one", got)
	}
	if p.Stats().IsProcessing {
		t.Fatal("guard still set after completion")
	}
}

func TestConcurrentIngestionClaimsGuardOnce(t *testing.T) {
	q := &queue{}
	p, err := New(nil,
		WithDispatcher(q.dispatch),
		WithLogger(quietLogger()),
		WithProcessingInterval(0))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	frames := pulseFrames(1.2, 400, 8)
	var wg sync.WaitGroup
	for w := range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := w; i < len(frames); i += 4 {
				p.ProcessFrame(frames[i])
			}
		}()
	}
	wg.Wait()

	if q.len() != 1 {
		t.Fatalf("queued = %d, want exactly 1", q.len())
	}
}

func TestResetDiscardsInFlightResult(t *testing.T) {
	q := &queue{}
	obs := &countingObserver{}
	var rec recorder
	p, clock := newTestProcessor(t, rec.record, WithDispatcher(q.dispatch), WithObserver(obs))
	feed(p, clock, pulseFrames(1.2, 100, 9))

	p.Reset()
	st := p.Stats()
	if st.IsReady || st.Occupancy != 0 || st.TotalAccepted != 0 {
		t.Fatalf("stats after Reset = %+v, want empty", st)
	}
	if st.IsProcessing || !st.LastProcessedAt.IsZero() || st.Generation != 1 {
		t.Fatalf("stats after Reset = %+v, want idle generation 1", st)
	}

	// A fresh window starts a new computation while the stale one is pending.
	feed(p, clock, pulseFrames(1.2, 100, 10))
	if q.len() != 2 {
		t.Fatalf("queued = %d, want 2", q.len())
	}

	q.runNext(t)
	if got := rec.values(); len(got) != 0 {
		t.Fatalf("stale computation delivered %v", got)
	}
	if obs.discarded.Load() != 1 {
		t.Fatalf("discarded = %d, want 1", obs.discarded.Load())
	}
	st = p.Stats()
	if !st.IsProcessing || st.Occupancy != 100 || st.Computations != 0 {
		t.Fatalf("stale result changed state: %+v", st)
	}

	q.runNext(t)
	got := rec.values()
	if len(got) != 1 {
		t.Fatalf("callbacks = %v, want one", got)
	}
	testutil.RequireIntWithin(t, "bpm", got[0], 68, 76)
}

// startHook runs onStart when a computation is dispatched.
type startHook struct {
	countingObserver
	onStart func()
}

func (o *startHook) ComputationStarted() {
	o.countingObserver.ComputationStarted()
	o.onStart()
}

// completionClock calls onComplete from the second Now after it is armed,
// which is the completion timestamp of the dispatched computation.
type completionClock struct {
	*testutil.MockClock
	armed      bool
	calls      int
	onComplete func()
}

func (c *completionClock) Now() time.Time {
	if c.armed {
		c.calls++
		if c.calls == 2 {
			c.onComplete()
		}
	}
	return c.MockClock.Now()
}

func TestResetAtCompletionDiscardsResult(t *testing.T) {
	var rec recorder
	clock := &completionClock{MockClock: testutil.NewMockClock(epoch)}
	obs := &startHook{onStart: func() { clock.armed = true }}
	p, err := New(rec.record,
		WithClock(clock),
		WithLogger(quietLogger()),
		WithDispatcher(SyncDispatcher),
		WithObserver(obs))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	clock.onComplete = p.Reset

	feed(p, clock.MockClock, pulseFrames(1.2, 100, 9))

	if got := rec.values(); len(got) != 0 {
		t.Fatalf("result delivered after Reset: %v", got)
	}
	if obs.discarded.Load() != 1 || obs.finished.Load() != 0 {
		t.Fatalf("discarded=%d finished=%d, want 1/0", obs.discarded.Load(), obs.finished.Load())
	}
	st := p.Stats()
	if st.Computations != 0 || st.Occupancy != 0 || st.IsProcessing || st.Generation != 1 {
		t.Fatalf("stats = %+v, want reset state", st)
	}
}

func TestCallbackSeesCompletedState(t *testing.T) {
	var (
		p  *Processor
		st Stats
	)
	var rec recorder
	p, clock := newTestProcessor(t, func(bpm int) {
		rec.record(bpm)
		st = p.Stats()
	})
	feed(p, clock, pulseFrames(1.2, 100, 3))

	if len(rec.values()) != 1 {
		t.Fatalf("callbacks = %v, want one", rec.values())
	}
	if st.IsProcessing || st.Computations != 1 || st.Occupancy != 50 {
		t.Fatalf("stats inside callback = %+v, want idle, 1 computation, 50 buffered", st)
	}
}

func TestRejectedFrames(t *testing.T) {
	obs := &countingObserver{}
	p, _ := newTestProcessor(t, nil, WithObserver(obs))
	p.ProcessFrame(frame.Sample{R: 180, G: 120, B: 100})
	before := p.Stats()
	for _, s := range []frame.Sample{
		{R: -1, G: 120, B: 100},
		{R: 180, G: math.NaN(), B: 100},
		{R: 180, G: 120, B: 300},
	} {
		if p.ProcessFrame(s) {
			t.Fatalf("ProcessFrame(%v) accepted", s)
		}
	}
	if after := p.Stats(); after != before {
		t.Fatalf("stats changed: %+v -> %+v", before, after)
	}
	if obs.rejected.Load() != 3 {
		t.Fatalf("rejected = %d, want 3", obs.rejected.Load())
	}
}

func TestWaitForGoroutineDispatch(t *testing.T) {
	var rec recorder
	clock := testutil.NewMockClock(epoch)
	p, err := New(rec.record, WithClock(clock), WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	feed(p, clock, pulseFrames(1.2, 100, 11))
	p.Wait()
	if got := rec.values(); len(got) != 1 {
		t.Fatalf("callbacks = %v, want one", got)
	}
}

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name string
		opt  Option
	}{
		{name: "zero buffer", opt: WithBufferSize(0)},
		{name: "min ready above capacity", opt: WithMinReady(101)},
		{name: "negative interval", opt: WithProcessingInterval(-time.Second)},
		{name: "zero rate", opt: WithSampleRate(0)},
		{name: "zero peak distance", opt: WithMinPeakDistance(0)},
		{name: "inverted band", opt: WithBand(4, 0.75)},
		{name: "inverted range", opt: WithHeartRateRange(220, 40)},
		{name: "zero filter size", opt: WithMinimumFilterSize(0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(nil, tt.opt); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestMinReadyDefaultsToFilterSize(t *testing.T) {
	p, err := New(nil, WithBufferSize(200), WithMinimumFilterSize(120))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := p.Config().MinReady; got != 120 {
		t.Fatalf("MinReady = %d, want 120", got)
	}
	p, err = New(nil, WithBufferSize(80))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := p.Config().MinReady; got != 80 {
		t.Fatalf("MinReady = %d, want 80", got)
	}
}
