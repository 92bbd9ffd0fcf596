package session

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// The world is reached by whatever front-end the deployment puts in
	// front of it; origin checking is its job, not this process's.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeHTTP upgrades the request to a WebSocket connection and hands it to
// Serve. Mount this at the listen port's single route.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("session: upgrade failed", "error", err)

		return
	}

	h.Serve(r.Context(), conn)
}
