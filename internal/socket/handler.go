// internal/socket/handler.go
package socket

import (
	"context"
	"net/http"
	"strings"

	"github.com/Marga-Ghale/teamhub-backend/internal/repository"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Origin is enforced by the CORS layer in front of the API.
		return true
	},
}

// TokenVerifier resolves an access token to a user id.
type TokenVerifier interface {
	UserID(ctx context.Context, token string) (string, error)
}

// RoomAuthorizer reports whether userID may subscribe to room.
type RoomAuthorizer func(ctx context.Context, userID, room string) bool

// MembershipLookup lists the teams a user belongs to.
type MembershipLookup interface {
	FindMemberships(ctx context.Context, userID string) ([]*repository.Membership, error)
}

// MemberRooms allows a user's own room and the rooms of teams they belong to.
func MemberRooms(lookup MembershipLookup) RoomAuthorizer {
	return func(ctx context.Context, userID, room string) bool {
		if room == UserRoom(userID) {
			return true
		}
		teamID, ok := strings.CutPrefix(room, "team:")
		if !ok || teamID == "" {
			return false
		}
		memberships, err := lookup.FindMemberships(ctx, userID)
		if err != nil {
			return false
		}
		for _, m := range memberships {
			if m.TeamID == teamID {
				return true
			}
		}
		return false
	}
}

// Handler handles WebSocket connections
type Handler struct {
	Hub       *Hub
	Verifier  TokenVerifier
	Authorize RoomAuthorizer
}

// NewHandler creates a new WebSocket handler
func NewHandler(hub *Hub, verifier TokenVerifier, authorize RoomAuthorizer) *Handler {
	return &Handler{
		Hub:       hub,
		Verifier:  verifier,
		Authorize: authorize,
	}
}

// HandleWebSocket upgrades an authenticated request. Browsers cannot set
// headers on WebSocket requests, so the token may come as a query parameter.
func (h *Handler) HandleWebSocket(c *gin.Context) {
	tokenString := c.Query("token")
	if tokenString == "" {
		if authHeader := c.GetHeader("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
			tokenString = strings.TrimPrefix(authHeader, "Bearer ")
		}
	}
	if tokenString == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": gin.H{"code": "Unauthorized", "message": "no token provided"}})
		return
	}

	userID, err := h.Verifier.UserID(c.Request.Context(), tokenString)
	if err != nil || userID == "" {
		h.Hub.log.Debugw("WebSocket token rejected", "error", err)
		c.JSON(http.StatusUnauthorized, gin.H{"error": gin.H{"code": "Unauthorized", "message": "invalid or expired token"}})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.Hub.log.Warnw("WebSocket upgrade failed", "user_id", userID, "error", err)
		return
	}

	client := NewClient(h.Hub, userID, conn)
	h.Hub.register <- client

	// Every client receives its own invitations.
	h.Hub.JoinRoom(client, UserRoom(userID))

	go client.WritePump()
	go client.ReadPump(h.Authorize)
}
