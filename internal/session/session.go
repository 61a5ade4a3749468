// Package session keeps one heart-rate processor per monitoring session and
// fans its results out to subscribers.
package session

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cwbudde/algo-rppg/rppg/frame"
	"github.com/cwbudde/algo-rppg/rppg/processor"
)

// ErrNotFound is returned for unknown session IDs.
var ErrNotFound = errors.New("session: not found")

// Result is one heart-rate estimate emitted by a session.
type Result struct {
	Session string    `json:"session"`
	BPM     int       `json:"bpm"`
	At      time.Time `json:"at"`
}

// Info is the JSON view of a session.
type Info struct {
	ID        string          `json:"id"`
	CreatedAt time.Time       `json:"createdAt"`
	LastSeen  time.Time       `json:"lastSeen"`
	LastBPM   int             `json:"lastBpm,omitempty"`
	Stats     processor.Stats `json:"stats"`
}

// Clock supplies time for session bookkeeping.
type Clock interface {
	Now() time.Time
}

// Session wraps a processor with subscribers and activity timestamps.
type Session struct {
	id        string
	createdAt time.Time
	clock     Clock
	proc      *processor.Processor

	mu       sync.Mutex
	lastSeen time.Time
	lastBPM  int
	nextSub  int
	subs     map[int]func(Result)
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Push forwards a sample to the processor and records activity.
func (s *Session) Push(sample frame.Sample) bool {
	s.mu.Lock()
	s.lastSeen = s.clock.Now()
	s.mu.Unlock()
	return s.proc.ProcessFrame(sample)
}

// Subscribe registers fn for every future result and returns a function
// that removes it.
func (s *Session) Subscribe(fn func(Result)) (cancel func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// Reset clears the processor state.
func (s *Session) Reset() {
	s.proc.Reset()
}

// Info returns a snapshot for the stats API.
func (s *Session) Info() Info {
	stats := s.proc.Stats()
	s.mu.Lock()
	defer s.mu.Unlock()
	return Info{
		ID:        s.id,
		CreatedAt: s.createdAt,
		LastSeen:  s.lastSeen,
		LastBPM:   s.lastBPM,
		Stats:     stats,
	}
}

func (s *Session) publish(bpm int) {
	res := Result{Session: s.id, BPM: bpm, At: s.clock.Now()}
	s.mu.Lock()
	s.lastBPM = bpm
	subs := make([]func(Result), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()
	for _, fn := range subs {
		fn(res)
	}
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// Manager owns the session registry.
type Manager struct {
	opts  []processor.Option
	clock Clock
	log   *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithProcessorOptions sets the options every new processor is built with.
func WithProcessorOptions(opts ...processor.Option) ManagerOption {
	return func(m *Manager) { m.opts = append(m.opts, opts...) }
}

// WithClock replaces the wall clock for both sessions and processors.
func WithClock(c Clock) ManagerOption {
	return func(m *Manager) { m.clock = c }
}

// WithLogger sets the manager and processor logger.
func WithLogger(l *slog.Logger) ManagerOption {
	return func(m *Manager) { m.log = l }
}

// NewManager returns an empty registry.
func NewManager(opts ...ManagerOption) *Manager {
	m := &Manager{
		clock:    processor.RealClock{},
		log:      slog.Default(),
		sessions: make(map[string]*Session),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

// Create starts a session. An empty id is replaced by a random UUID.
func (m *Manager) Create(id string) (*Session, error) {
	if id == "" {
		id = uuid.NewString()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; ok {
		return nil, fmt.Errorf("session %q already exists", id)
	}
	return m.createLocked(id)
}

// GetOrCreate returns the session for id, creating it on first use.
func (m *Manager) GetOrCreate(id string) (*Session, error) {
	if s, err := m.Get(id); err == nil {
		return s, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[id]; ok {
		return s, nil
	}
	return m.createLocked(id)
}

func (m *Manager) createLocked(id string) (*Session, error) {
	now := m.clock.Now()
	s := &Session{
		id:        id,
		createdAt: now,
		lastSeen:  now,
		clock:     m.clock,
		subs:      make(map[int]func(Result)),
	}
	opts := append([]processor.Option{
		processor.WithClock(m.clock),
		processor.WithLogger(m.log.With(slog.String("session", id))),
	}, m.opts...)
	proc, err := processor.New(s.publish, opts...)
	if err != nil {
		return nil, fmt.Errorf("session %q: %w", id, err)
	}
	s.proc = proc
	m.sessions[id] = s
	m.log.Info("session opened", slog.String("session", id))
	return s, nil
}

// Get returns the session for id.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s, nil
}

// List returns all sessions ordered by creation time.
func (m *Manager) List() []Info {
	m.mu.RLock()
	out := make([]Info, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s.Info())
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Len returns the number of open sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Close removes a session and waits for its in-flight computation.
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	s.proc.Reset()
	s.proc.Wait()
	m.log.Info("session closed", slog.String("session", id))
	return nil
}

// CloseIdle closes sessions that have received no samples for longer than
// timeout and returns their IDs.
func (m *Manager) CloseIdle(timeout time.Duration) []string {
	now := m.clock.Now()
	m.mu.RLock()
	var idle []string
	for id, s := range m.sessions {
		if now.Sub(s.idleSince()) > timeout {
			idle = append(idle, id)
		}
	}
	m.mu.RUnlock()
	sort.Strings(idle)
	for _, id := range idle {
		_ = m.Close(id)
	}
	return idle
}

// CloseAll closes every session.
func (m *Manager) CloseAll() {
	m.mu.RLock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.RUnlock()
	for _, id := range ids {
		_ = m.Close(id)
	}
}
