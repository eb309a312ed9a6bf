package handlers

import (
	"net/http"

	"ripple-social/internal/middleware"
	"ripple-social/internal/realtime"

	"github.com/google/uuid"
	ws "github.com/gorilla/websocket"
)

var upgrader = ws.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Origin checking happens in the CORS layer for REST; browsers
		// cannot set Origin-forging headers for websockets either, and the
		// token requirement below gates the connection.
		return true
	},
}

// HandleWebSocket upgrades the connection and hands it to the realtime hub.
// The token travels as a query parameter because browsers cannot set headers
// on websocket requests; the client must still send a join signal naming the
// same user before it receives any room events.
func (s *Server) HandleWebSocket() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tokenString := r.URL.Query().Get("token")
		if tokenString == "" {
			http.Error(w, "Missing authentication token", http.StatusUnauthorized)
			return
		}

		claims, err := middleware.ValidateToken(tokenString)
		if err != nil {
			s.Log.Warn("websocket auth failed", "error", err)
			http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
			return
		}
		if claims.UserID == uuid.Nil {
			http.Error(w, "Invalid user ID in token", http.StatusUnauthorized)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade already wrote the HTTP error.
			s.Log.Warn("websocket upgrade failed", "user", claims.UserID, "error", err)
			return
		}

		client := realtime.NewClient(s.Hub, conn, claims.UserID, s.Log)
		client.Start()
		s.Log.Debug("websocket connection established", "user", claims.UserID)
	}
}
