package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"card-trader/middleware"
	"card-trader/websocket"
)

// WebSocketHandler opens an event stream for the user named by the token
// query parameter; browsers cannot set headers on websocket requests.
func WebSocketHandler(hub *websocket.Hub, authn middleware.Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _, err := authn.Authenticate(c.Query("token"))
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		if err := websocket.ServeWs(hub, c.Writer, c.Request, userID); err != nil {
			_ = c.Error(err)
		}
	}
}
