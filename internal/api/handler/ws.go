package handler

import (
	"net/http"
	"strings"

	"gramseva/backend/internal/models"
	"gramseva/backend/internal/realtime"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Allows connections from any origin. Tighten in production.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWebSocket upgrades the connection and subscribes the caller to the
// grievance event stream. The token may come from the Authorization header
// or a ?token= query parameter (browser websockets cannot set headers).
func (h *Handler) ServeWebSocket(c *gin.Context) {
	tokenString := c.Query("token")
	if tokenString == "" {
		auth := c.GetHeader("Authorization")
		if strings.HasPrefix(auth, "Bearer ") {
			tokenString = strings.TrimPrefix(auth, "Bearer ")
		}
	}
	userID, _, err := parseToken(tokenString)
	if err != nil || userID == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token or expired"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to upgrade connection"})
		return
	}

	client := &realtime.Client{
		UserID: userID,
		Conn:   conn,
		Hub:    h.Hub,
		Send:   make(chan models.GrievanceEvent, 256),
	}

	h.Hub.RegisterCh <- client
	client.Run()
}
