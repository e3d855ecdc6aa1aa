package api

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/mynenikoteshwarrao/ssh-organizer-desktop/internal/events"
)

const eventWriteTimeout = 10 * time.Second

// Events streams bus events as JSON text frames. With ?replay=<terminalId>
// the scrollback of that terminal is sent first as one sessionData event.
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"localhost:*", "127.0.0.1:*"},
	})
	if err != nil {
		log.Printf("[API] Failed to accept event websocket: %v", err)
		return
	}
	defer conn.CloseNow()

	sub := h.mgr.Subscribe()
	defer sub.Unsubscribe()

	// Only control frames are expected from the client.
	ctx := conn.CloseRead(r.Context())

	if id := r.URL.Query().Get("replay"); id != "" {
		if data, err := h.mgr.Scrollback(id); err == nil && len(data) > 0 {
			ev := events.Event{Type: events.SessionData, SessionID: id, Data: string(data), Time: time.Now()}
			if err := writeEvent(ctx, conn, ev); err != nil {
				return
			}
		}
	}

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case ev, ok := <-sub.C():
			if !ok {
				conn.Close(websocket.StatusGoingAway, "shutting down")
				return
			}
			if err := writeEvent(ctx, conn, ev); err != nil {
				log.Printf("[API] Event stream closed: %v", err)
				return
			}
		}
	}
}

func writeEvent(ctx context.Context, conn *websocket.Conn, ev events.Event) error {
	ctx, cancel := context.WithTimeout(ctx, eventWriteTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, ev)
}
