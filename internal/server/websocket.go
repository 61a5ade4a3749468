package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/cwbudde/algo-rppg/internal/session"
	"github.com/cwbudde/algo-rppg/internal/wire"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingPeriod   = (pongWait * 9) / 10
	outboxLength = 16
)

// Message is the envelope pushed to WebSocket clients.
type Message struct {
	Type     string     `json:"type"`
	Session  string     `json:"session,omitempty"`
	BPM      int        `json:"bpm,omitempty"`
	At       *time.Time `json:"at,omitempty"`
	Accepted int        `json:"accepted,omitempty"`
	Rejected int        `json:"rejected,omitempty"`
	Error    string     `json:"error,omitempty"`
}

// Message types.
const (
	TypeSession   = "session"
	TypeHeartRate = "heart_rate"
	TypeAck       = "ack"
	TypeError     = "error"
)

// handleWebsocket opens a session for the lifetime of the connection. The
// optional ?session= query names it; otherwise a UUID is assigned. Text
// frames carry JSON samples, binary frames packed float32 triplets.
func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", slog.Any("error", err))
		return
	}
	defer conn.Close()

	sess, err := s.sessions.Create(r.URL.Query().Get("session"))
	if err != nil {
		_ = conn.WriteJSON(Message{Type: TypeError, Error: err.Error()})
		return
	}
	s.updateSessionGauge()
	id := sess.ID()
	log := s.log.With(slog.String("session", id))
	defer func() {
		if err := s.sessions.Close(id); err != nil {
			log.Debug("session already closed", slog.Any("error", err))
		}
		s.updateSessionGauge()
	}()

	outbox := make(chan Message, outboxLength)
	cancel := sess.Subscribe(func(res session.Result) {
		at := res.At
		select {
		case outbox <- Message{Type: TypeHeartRate, Session: res.Session, BPM: res.BPM, At: &at}:
		default:
			log.Warn("websocket outbox full, dropping heart rate", slog.Int("bpm", res.BPM))
		}
	})
	defer cancel()

	done := make(chan struct{})
	writerDone := make(chan struct{})
	go s.writeLoop(conn, outbox, done, writerDone)
	defer func() {
		close(done)
		<-writerDone
	}()

	outbox <- Message{Type: TypeSession, Session: id}

	conn.SetReadLimit(maxBatchBytes)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		typ, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn("websocket read failed", slog.Any("error", err))
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))

		decode := wire.DecodeJSON
		if typ == websocket.BinaryMessage {
			decode = wire.DecodeFloat32LE
		}
		samples, err := decode(data)
		if err != nil {
			s.enqueue(outbox, Message{Type: TypeError, Session: id, Error: err.Error()}, log)
			continue
		}
		res := push(sess, samples)
		s.enqueue(outbox, Message{Type: TypeAck, Session: id, Accepted: res.Accepted, Rejected: res.Rejected}, log)
	}
}

func (s *Server) enqueue(outbox chan<- Message, m Message, log *slog.Logger) {
	select {
	case outbox <- m:
	default:
		log.Debug("websocket outbox full, dropping message", slog.String("type", m.Type))
	}
}

// writeLoop is the only goroutine that writes to conn.
func (s *Server) writeLoop(conn *websocket.Conn, outbox <-chan Message, done <-chan struct{}, finished chan<- struct{}) {
	defer close(finished)
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case m := <-outbox:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(m); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		}
	}
}
