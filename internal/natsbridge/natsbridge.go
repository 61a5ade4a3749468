// Package natsbridge feeds monitoring sessions from NATS subjects and
// publishes their heart rates back.
//
// Subjects, for a prefix p and session key k:
//
//	p.samples.k    JSON sample or sample array (inbound)
//	p.raw.k        packed float32 r,g,b triplets (inbound)
//	p.heartrate.k  JSON Result (outbound)
package natsbridge

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/cwbudde/algo-rppg/internal/session"
	"github.com/cwbudde/algo-rppg/internal/wire"
	"github.com/cwbudde/algo-rppg/rppg/frame"
)

// DefaultPrefix is the subject root used when none is configured.
const DefaultPrefix = "rppg"

// ErrBadSubject is returned for subjects outside the bridge's namespace.
var ErrBadSubject = errors.New("natsbridge: unexpected subject")

// Connect dials NATS with reconnects enabled indefinitely.
func Connect(url, name string, log *slog.Logger) (*nats.Conn, error) {
	return nats.Connect(
		url,
		nats.Name(name),
		nats.Timeout(3*time.Second),
		nats.ReconnectWait(500*time.Millisecond),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn("nats disconnected", slog.Any("error", err))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("nats reconnected", slog.String("url", nc.ConnectedUrl()))
		}),
	)
}

// Conn is the subset of *nats.Conn the bridge uses.
type Conn interface {
	Publish(subject string, data []byte) error
	Subscribe(subject string, cb nats.MsgHandler) (*nats.Subscription, error)
}

// Bridge routes NATS messages to sessions.
type Bridge struct {
	conn     Conn
	sessions *session.Manager
	prefix   string
	log      *slog.Logger

	mu     sync.Mutex
	subs   []*nats.Subscription
	routed map[string]*route
}

type route struct {
	sess   *session.Session
	cancel func()
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithPrefix sets the subject root.
func WithPrefix(p string) Option {
	return func(b *Bridge) {
		if p != "" {
			b.prefix = p
		}
	}
}

// WithLogger sets the bridge logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Bridge) { b.log = l }
}

// New returns a Bridge. Call Start to subscribe.
func New(conn Conn, mgr *session.Manager, opts ...Option) *Bridge {
	b := &Bridge{
		conn:     conn,
		sessions: mgr,
		prefix:   DefaultPrefix,
		log:      slog.Default(),
		routed:   make(map[string]*route),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

// Start subscribes to the inbound subjects.
func (b *Bridge) Start() error {
	for _, kind := range []string{"samples", "raw"} {
		subject := b.prefix + "." + kind + ".*"
		sub, err := b.conn.Subscribe(subject, func(msg *nats.Msg) {
			b.Handle(msg.Subject, msg.Data)
		})
		if err != nil {
			return fmt.Errorf("subscribe %s: %w", subject, err)
		}
		b.mu.Lock()
		b.subs = append(b.subs, sub)
		b.mu.Unlock()
		b.log.Info("nats subscribed", slog.String("subject", subject))
	}
	return nil
}

// Stop unsubscribes and detaches from every session.
func (b *Bridge) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, sub := range b.subs {
		if sub == nil {
			continue
		}
		if err := sub.Unsubscribe(); err != nil {
			b.log.Warn("nats unsubscribe failed", slog.Any("error", err))
		}
	}
	b.subs = nil
	for key, r := range b.routed {
		r.cancel()
		delete(b.routed, key)
	}
}

// ParseSubject splits an inbound subject into its kind and session key.
func (b *Bridge) ParseSubject(subject string) (kind, key string, err error) {
	rest, ok := strings.CutPrefix(subject, b.prefix+".")
	if !ok {
		return "", "", fmt.Errorf("%w: %s", ErrBadSubject, subject)
	}
	kind, key, ok = strings.Cut(rest, ".")
	if !ok || key == "" || strings.Contains(key, ".") {
		return "", "", fmt.Errorf("%w: %s", ErrBadSubject, subject)
	}
	switch kind {
	case "samples", "raw":
		return kind, key, nil
	default:
		return "", "", fmt.Errorf("%w: %s", ErrBadSubject, subject)
	}
}

// ResultSubject returns the outbound subject for key.
func (b *Bridge) ResultSubject(key string) string {
	return b.prefix + ".heartrate." + key
}

// Handle decodes one inbound message and pushes its samples.
func (b *Bridge) Handle(subject string, data []byte) {
	kind, key, err := b.ParseSubject(subject)
	if err != nil {
		b.log.Warn("nats message dropped", slog.Any("error", err))
		return
	}
	var samples []frame.Sample
	if kind == "raw" {
		samples, err = wire.DecodeFloat32LE(data)
	} else {
		samples, err = wire.DecodeJSON(data)
	}
	if err != nil {
		b.log.Warn("nats payload rejected", slog.String("subject", subject), slog.Any("error", err))
		return
	}
	sess, err := b.attach(key)
	if err != nil {
		b.log.Error("nats session unavailable", slog.String("session", key), slog.Any("error", err))
		return
	}
	rejected := 0
	for _, s := range samples {
		if !sess.Push(s) {
			rejected++
		}
	}
	if rejected > 0 {
		b.log.Debug("nats samples rejected", slog.String("session", key), slog.Int("count", rejected))
	}
}

// attach returns the session for key, subscribing the publisher whenever
// the manager hands out a new session (first use or after an idle close).
func (b *Bridge) attach(key string) (*session.Session, error) {
	sess, err := b.sessions.GetOrCreate(key)
	if err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if r, ok := b.routed[key]; ok {
		if r.sess == sess {
			return sess, nil
		}
		r.cancel()
	}
	subject := b.ResultSubject(key)
	cancel := sess.Subscribe(func(res session.Result) {
		data, err := json.Marshal(res)
		if err != nil {
			b.log.Error("encode heart rate", slog.Any("error", err))
			return
		}
		if err := b.conn.Publish(subject, data); err != nil {
			b.log.Warn("nats publish failed", slog.String("subject", subject), slog.Any("error", err))
		}
	})
	b.routed[key] = &route{sess: sess, cancel: cancel}
	return sess, nil
}
