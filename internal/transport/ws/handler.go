package ws

import (
	"net/http"
	"slices"

	"github.com/vedran77/devaura/internal/transport/http/middleware"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
)

// ServeWS returns an HTTP handler that upgrades to WebSocket.
// Auth is done via ?token=xxx query param (WebSocket can't send headers).
func ServeWS(hub *Hub, services Services, jwtSecret string, opts Options, log *zap.Logger) http.HandlerFunc {
	opts = opts.withDefaults()
	accept := &websocket.AcceptOptions{}
	if len(opts.AllowedOrigins) == 0 || slices.Contains(opts.AllowedOrigins, "*") {
		accept.InsecureSkipVerify = true
	} else {
		accept.OriginPatterns = opts.AllowedOrigins
	}

	return func(w http.ResponseWriter, r *http.Request) {
		tokenStr := r.URL.Query().Get("token")
		if tokenStr == "" {
			http.Error(w, "missing token", http.StatusUnauthorized)
			return
		}

		userID, err := middleware.ParseToken(tokenStr, jwtSecret)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		conn, err := websocket.Accept(w, r, accept)
		if err != nil {
			log.Warn("ws accept error", zap.Error(err))
			return
		}
		conn.SetReadLimit(opts.MaxMessageSize)

		client := NewClient(hub, conn, userID, services, opts, log)
		hub.Register(client)

		go client.WritePump()
		go client.ReadPump()
	}
}
