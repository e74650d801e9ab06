package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// handleProgress streams evaluator progress events as JSON text frames until
// the client disconnects or the broadcaster closes.
func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied with an HTTP error.
		s.logger.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	events, unsubscribe := s.broadcaster.Subscribe()
	defer unsubscribe()

	// Reader detects client close; inbound messages are discarded.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(s.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-gone:
			return
		case p, ok := <-events:
			conn.SetWriteDeadline(time.Now().Add(DefaultWriteTimeout))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
				return
			}
			if err := conn.WriteJSON(p); err != nil {
				s.logger.Debug().Err(err).Msg("progress write failed")
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(DefaultWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
