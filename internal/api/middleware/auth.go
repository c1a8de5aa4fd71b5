package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/Marga-Ghale/teamhub-backend/internal/repository"
	"github.com/Marga-Ghale/teamhub-backend/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const identityKey = "identity"

// SessionChecker reports whether a session issued by the auth service is still live.
type SessionChecker interface {
	Active(ctx context.Context, sessionID, userID string) (bool, error)
}

// AccountBootstrapper makes sure the caller has a user row and a team.
type AccountBootstrapper interface {
	Bootstrap(ctx context.Context, id service.Identity) (*repository.User, error)
}

// AuthMiddleware validates the bearer token, checks the session when a
// session store is configured, and stores the caller's Identity in the context.
func AuthMiddleware(verifier *JWTVerifier, sessions SessionChecker, accounts AccountBootstrapper, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			log.Debugw("Missing Authorization header", "path", c.Request.URL.Path)
			abortUnauthorized(c, "authorization header required")
			return
		}

		// Extract token from "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			abortUnauthorized(c, "invalid authorization header format")
			return
		}

		claims, err := verifier.Parse(parts[1])
		if err != nil {
			log.Debugw("Token rejected", "path", c.Request.URL.Path, "error", err)
			abortUnauthorized(c, "invalid or expired token")
			return
		}

		ctx := c.Request.Context()
		if sessions != nil {
			if claims.SessionID == "" {
				log.Debugw("Token without session rejected", "user_id", claims.Subject)
				abortUnauthorized(c, "token is not bound to a session")
				return
			}
			active, err := sessions.Active(ctx, claims.SessionID, claims.Subject)
			if err != nil {
				log.Errorw("Session lookup failed", "user_id", claims.Subject, "error", err)
				AbortWithError(c, err)
				return
			}
			if !active {
				abortUnauthorized(c, "session has ended, please sign in again")
				return
			}
		}

		id := service.Identity{
			UserID:        claims.Subject,
			Name:          claims.Name,
			Email:         claims.Email,
			WalletAddress: claims.WalletAddress,
			SessionID:     claims.SessionID,
			IP:            c.ClientIP(),
		}
		if accounts != nil {
			if _, err := accounts.Bootstrap(ctx, id); err != nil {
				log.Warnw("Account bootstrap failed", "user_id", id.UserID, "error", err)
				AbortWithError(c, err)
				return
			}
		}

		c.Set(identityKey, id)
		c.Next()
	}
}

// GetIdentity returns the caller set by AuthMiddleware.
func GetIdentity(c *gin.Context) (service.Identity, bool) {
	v, exists := c.Get(identityKey)
	if !exists {
		return service.Identity{}, false
	}
	id, ok := v.(service.Identity)
	return id, ok && id.UserID != ""
}

// GetUserID extracts user ID from gin context
func GetUserID(c *gin.Context) string {
	id, _ := GetIdentity(c)
	return id.UserID
}

// RequireIdentity writes a 401 when the request is unauthenticated.
func RequireIdentity(c *gin.Context) (service.Identity, bool) {
	id, ok := GetIdentity(c)
	if !ok {
		abortUnauthorized(c, "user not authenticated")
		return service.Identity{}, false
	}
	return id, true
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": gin.H{"code": "Unauthorized", "message": message},
	})
}
