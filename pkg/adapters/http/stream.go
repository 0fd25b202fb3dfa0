package http

import (
	"net/http"

	"github.com/aretw0/ivy/pkg/domain"
	"github.com/aretw0/ivy/pkg/reactive"
	"github.com/aretw0/ivy/pkg/watch"
	"github.com/gorilla/websocket"
)

// FieldMessage is streamed to record watchers.
type FieldMessage struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

// EventMessage is streamed to sequence watchers.
type EventMessage struct {
	Kind   domain.EventKind `json:"kind"`
	Offset int              `json:"offset"`
	Value  any              `json:"value,omitempty"`
}

// WatchRecord handles GET /records/{id}/watch. Every current key is sent first,
// then one message per write.
func (s *Server) WatchRecord(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.record(w, r)
	if !ok {
		return
	}
	s.stream(w, r, rec.ID(), func(send func(any)) (watch.Disposer, error) {
		return rec.WatchAll(func(key string, value any) {
			send(FieldMessage{Key: key, Value: value})
		})
	})
}

// WatchSequence handles GET /sequences/{id}/watch. One inserted event per element is
// sent first, then one message per positional event.
func (s *Server) WatchSequence(w http.ResponseWriter, r *http.Request) {
	seq, ok := s.sequence(w, r)
	if !ok {
		return
	}
	s.stream(w, r, seq.ID(), func(send func(any)) (watch.Disposer, error) {
		return seq.WatchArray(reactive.OnEvent(func(ev reactive.SeqEvent) {
			send(EventMessage{Kind: ev.Kind, Offset: ev.Offset, Value: ev.Value})
		}))
	})
}

// stream bridges synchronous watch callbacks to a websocket. Callbacks run under the
// engine lock and never block: a client lagging by more than the buffer loses its
// connection rather than stalling writers.
func (s *Server) stream(w http.ResponseWriter, r *http.Request, target string, register func(send func(any)) (watch.Disposer, error)) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "target", target, "err", err)
		return
	}
	defer func() { _ = conn.Close() }()

	out := make(chan any, s.buffer)
	overflow := make(chan struct{})
	overflowed := false
	send := func(msg any) {
		if overflowed {
			return
		}
		select {
		case out <- msg:
		default:
			overflowed = true
			close(overflow)
			s.logger.Warn("websocket client buffer full, closing stream", "target", target)
		}
	}

	var dispose watch.Disposer
	err = s.Engine.View(func() error {
		var err error
		dispose, err = register(send)
		return err
	})
	// Registration can fail after the watch is in place; the disposer is live either way.
	defer func() {
		if dispose == nil {
			return
		}
		_ = s.Engine.View(func() error {
			dispose()
			return nil
		})
	}()
	if err != nil {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseInternalServerErr, err.Error()))
		return
	}

	// The reader only detects the client going away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case msg := <-out:
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
		case <-overflow:
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "buffer overflow"))
			return
		case <-closed:
			return
		case <-r.Context().Done():
			return
		}
	}
}
