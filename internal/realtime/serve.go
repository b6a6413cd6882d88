package realtime

import (
	"context"
	"log"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stash-it/backend/internal/service"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ServeWS authenticates the handshake, upgrades the connection and starts
// the client's pumps. Browsers cannot set headers on websocket requests,
// so the token may also arrive as a query parameter.
func ServeWS(hub *Hub, auth service.AuthService, chat service.ChatService) echo.HandlerFunc {
	return func(c echo.Context) error {
		token := c.QueryParam("token")
		if token == "" {
			authz := c.Request().Header.Get("Authorization")
			token = strings.TrimPrefix(authz, "Bearer ")
		}
		ident, err := auth.Verify(c.Request().Context(), token)
		if err != nil {
			// One generic rejection for missing, malformed, expired and
			// denylisted credentials alike.
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "authentication failed"})
		}

		conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
		if err != nil {
			log.Printf("websocket upgrade failed: %v", err)
			return nil
		}

		client := newClient(hub, conn, chat, ident.UserID, ident.Name)
		hub.Register(client)
		go client.writePump()
		// The request context dies once this handler returns; the pumps
		// outlive it.
		go client.readPump(context.Background())
		return nil
	}
}
