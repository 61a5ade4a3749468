// Package server exposes monitoring sessions over HTTP and WebSocket.
//
// Routes:
//
//	GET    /ws                          stream samples in, heart rates out
//	GET    /api/version
//	GET    /api/sessions
//	GET    /api/sessions/{id}
//	POST   /api/sessions/{id}/samples   batch ingestion (JSON or float32)
//	POST   /api/sessions/{id}/reset
//	DELETE /api/sessions/{id}
//	GET    /metrics
package server

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/cwbudde/algo-rppg/internal/metrics"
	"github.com/cwbudde/algo-rppg/internal/session"
	"github.com/cwbudde/algo-rppg/internal/wire"
	"github.com/cwbudde/algo-rppg/rppg/frame"
)

// Version is reported by /api/version. Overridden at link time.
var Version = "dev"

// maxBatchBytes bounds a single ingestion payload.
const maxBatchBytes = 1 << 20

// Server routes API and WebSocket traffic to the session manager.
type Server struct {
	sessions *session.Manager
	metrics  *metrics.Metrics
	log      *slog.Logger
	upgrader websocket.Upgrader
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.log = l }
}

// WithCheckOrigin replaces the WebSocket origin policy. The default accepts
// every origin.
func WithCheckOrigin(fn func(r *http.Request) bool) Option {
	return func(s *Server) { s.upgrader.CheckOrigin = fn }
}

// New returns a Server over mgr. m may be nil to disable /metrics.
func New(mgr *session.Manager, m *metrics.Metrics, opts ...Option) *Server {
	s := &Server{
		sessions: mgr,
		metrics:  m,
		log:      slog.Default(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Router builds the HTTP handler.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	}
	r.HandleFunc("/ws", s.handleWebsocket)

	api := r.PathPrefix("/api").Subrouter()
	if s.metrics != nil {
		api.Use(s.metrics.Middleware)
	}
	api.HandleFunc("/version", s.handleVersion).Methods(http.MethodGet)
	api.HandleFunc("/sessions", s.handleListSessions).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{id}", s.handleGetSession).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{id}", s.handleDeleteSession).Methods(http.MethodDelete)
	api.HandleFunc("/sessions/{id}/reset", s.handleResetSession).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/samples", s.handleSamples).Methods(http.MethodPost)
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, err := s.sessions.Get(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return nil, false
	}
	return sess, true
}

func (s *Server) handleVersion(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": Version})
}

func (s *Server) handleListSessions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.sessions.List())
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	if sess, ok := s.lookup(w, r); ok {
		writeJSON(w, http.StatusOK, sess.Info())
	}
}

func (s *Server) handleResetSession(w http.ResponseWriter, r *http.Request) {
	if sess, ok := s.lookup(w, r); ok {
		sess.Reset()
		writeJSON(w, http.StatusOK, sess.Info())
	}
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Close(mux.Vars(r)["id"]); err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	s.updateSessionGauge()
	w.WriteHeader(http.StatusNoContent)
}

// ingestResult acknowledges a batch.
type ingestResult struct {
	Accepted int `json:"accepted"`
	Rejected int `json:"rejected"`
}

func (s *Server) handleSamples(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	sess, err := s.sessions.GetOrCreate(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.updateSessionGauge()
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBatchBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if len(data) > maxBatchBytes {
		writeError(w, http.StatusRequestEntityTooLarge, fmt.Errorf("payload exceeds %d bytes", maxBatchBytes))
		return
	}
	decode := wire.DecodeJSON
	if r.Header.Get("Content-Type") == "application/octet-stream" {
		decode = wire.DecodeFloat32LE
	}
	samples, err := decode(data)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, push(sess, samples))
}

func push(sess *session.Session, samples []frame.Sample) ingestResult {
	var res ingestResult
	for _, smp := range samples {
		if sess.Push(smp) {
			res.Accepted++
		} else {
			res.Rejected++
		}
	}
	return res
}

func (s *Server) updateSessionGauge() {
	if s.metrics != nil {
		s.metrics.SetSessions(s.sessions.Len())
	}
}
