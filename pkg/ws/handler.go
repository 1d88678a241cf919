package ws

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"coordinador/pkg/coordinator"
)

// Handler returns the gin handler for GET /ws. Each upgraded connection gets
// a server-assigned handle, is attached to the coordinator and served by its
// own read/write pumps until it drops.
func Handler(coord *coordinator.Coordinator, allowedOrigins []string, log *zap.Logger) gin.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     originChecker(allowedOrigins),
	}

	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			// Upgrade already wrote the HTTP error response.
			log.Warn("fallo el upgrade websocket", zap.Error(err))
			return
		}

		client := newClient(conn, coord, log)
		coord.Attach(client.id, client)
		go client.writePump()
		go client.readPump()
	}
}

// originChecker mirrors the CORS policy for websocket upgrades. Browser
// terminals always send Origin; requests without one (native clients, tests)
// are allowed.
func originChecker(allowed []string) func(*http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || set[origin]
	}
}
