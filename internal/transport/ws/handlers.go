package ws

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/omochice/toy-socket-relay/internal/chat"
)

// ClientInfo is the JSON view of a registered client.
type ClientInfo struct {
	ID         uint64 `json:"id"`
	Transport  string `json:"transport"`
	Name       string `json:"name"`
	Channel    string `json:"channel"`
	Session    string `json:"session"`
	RemoteAddr string `json:"remote_addr"`
}

// ClientsResponse is returned by GET /clients.
type ClientsResponse struct {
	Count   int          `json:"count"`
	Clients []ClientInfo `json:"clients"`
}

func healthHandler(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

func clientsHandler(registry *chat.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		snapshot := registry.Snapshot()
		resp := ClientsResponse{
			Count:   len(snapshot),
			Clients: make([]ClientInfo, 0, len(snapshot)),
		}
		for _, client := range snapshot {
			resp.Clients = append(resp.Clients, ClientInfo{
				ID:         client.ID,
				Transport:  client.Transport().String(),
				Name:       client.Name(),
				Channel:    client.Channel,
				Session:    client.Session,
				RemoteAddr: client.Conn.RemoteAddr(),
			})
		}
		c.JSON(http.StatusOK, resp)
	}
}

// requestLogger logs each HTTP request once it has been handled. Upgraded
// requests are logged when the handshake completes.
func requestLogger(logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("took", time.Since(start)).
			Msg("http request")
	}
}
