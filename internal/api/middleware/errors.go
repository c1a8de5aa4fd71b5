package middleware

import (
	"net/http"

	"github.com/Marga-Ghale/teamhub-backend/internal/service"
	"github.com/gin-gonic/gin"
)

// StatusFor maps an error code to its HTTP status.
func StatusFor(code service.Code) int {
	switch code {
	case service.CodeValidation, service.CodeMismatch:
		return http.StatusBadRequest
	case service.CodeForbidden:
		return http.StatusForbidden
	case service.CodeNotFound:
		return http.StatusNotFound
	case service.CodeConflict:
		return http.StatusConflict
	case service.CodeExpired:
		return http.StatusGone
	case service.CodeLimitExceeded:
		return http.StatusPaymentRequired
	case service.CodeExternalService:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// AbortWithError writes err as {"error":{"code","message"}} and stops the chain.
func AbortWithError(c *gin.Context, err error) {
	e := service.AsError(err)
	c.AbortWithStatusJSON(StatusFor(e.Code), gin.H{
		"error": gin.H{"code": e.Code, "message": e.Message},
	})
}
