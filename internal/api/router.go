package api

import (
	"github.com/Marga-Ghale/teamhub-backend/internal/api/handlers"
	"github.com/Marga-Ghale/teamhub-backend/internal/api/middleware"
	"github.com/Marga-Ghale/teamhub-backend/internal/metrics"
	"github.com/Marga-Ghale/teamhub-backend/internal/service"
	"github.com/Marga-Ghale/teamhub-backend/internal/socket"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RouterDeps is everything the public API needs.
type RouterDeps struct {
	Services    *service.Services
	Verifier    *middleware.JWTVerifier
	Sessions    middleware.SessionChecker
	InviteLimit *middleware.RateLimiter
	WebSocket   *socket.Handler
	Metrics     *metrics.Metrics
	FrontendURL string
	Log         *zap.SugaredLogger
}

// NewRouter builds the gin engine with every /api route mounted.
func NewRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if deps.Metrics != nil {
		r.Use(deps.Metrics.GinMiddleware())
	}
	r.Use(middleware.RequestLogger(deps.Log))
	if deps.FrontendURL != "" {
		r.Use(middleware.CORS(deps.FrontendURL))
	}

	h := handlers.NewHandlers(deps.Services)

	api := r.Group("/api")
	{
		// WebSocket authenticates itself from the query token.
		if deps.WebSocket != nil {
			api.GET("/ws", deps.WebSocket.HandleWebSocket)
		}

		protected := api.Group("")
		protected.Use(middleware.AuthMiddleware(deps.Verifier, deps.Sessions, deps.Services.Accounts, deps.Log))
		{
			teams := protected.Group("/teams")
			{
				teams.GET("/current", h.Team.GetCurrentTeam)
				teams.GET("/current/activity", h.Team.GetActivity)
				teams.POST("/current/leave", h.Team.LeaveTeam)
				if deps.InviteLimit != nil {
					teams.POST("/current/invitations", deps.InviteLimit.Handler(), h.Team.InviteMember)
				} else {
					teams.POST("/current/invitations", h.Team.InviteMember)
				}
				teams.DELETE("/members/:memberId", h.Team.RemoveMember)
				teams.PATCH("/members/:memberId/role", h.Team.UpdateMemberRole)
			}

			invitations := protected.Group("/invitations")
			{
				invitations.GET("/pending", h.Invitation.GetPending)
				invitations.POST("/accept", h.Invitation.Accept)
				invitations.POST("/:id/reject", h.Invitation.Reject)
			}

			protected.DELETE("/account", h.Account.DeleteAccount)
			protected.GET("/billing/history", h.Account.GetBillingHistory)
		}
	}

	return r
}
