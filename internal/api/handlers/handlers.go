package handlers

import (
	"errors"
	"io"

	"github.com/Marga-Ghale/teamhub-backend/internal/api/middleware"
	"github.com/Marga-Ghale/teamhub-backend/internal/models"
	"github.com/Marga-Ghale/teamhub-backend/internal/repository"
	"github.com/Marga-Ghale/teamhub-backend/internal/service"
	"github.com/gin-gonic/gin"
)

// Handlers contains all HTTP handlers
type Handlers struct {
	Team       *TeamHandler
	Invitation *InvitationHandler
	Account    *AccountHandler
}

// NewHandlers creates all handlers
func NewHandlers(services *service.Services) *Handlers {
	return &Handlers{
		Team:       NewTeamHandler(services.Actions, services.Queries),
		Invitation: NewInvitationHandler(services.Actions, services.Queries),
		Account:    NewAccountHandler(services.Actions, services.Queries),
	}
}

// ============================================
// Responses
// ============================================

// handleServiceError writes err as a typed error body. The cause is attached
// to the gin context so the request logger records it.
func handleServiceError(c *gin.Context, err error) {
	_ = c.Error(err)
	e := service.AsError(err)
	c.JSON(middleware.StatusFor(e.Code), models.ErrorResponse{
		Error: models.ErrorBody{Code: string(e.Code), Message: e.Message},
	})
}

// respond writes the outcome of a mutating action.
func respond(c *gin.Context, status int, res *service.Result, err error) {
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(status, models.SuccessResponse{Success: true, Message: res.Message})
}

// bindJSON decodes an optional JSON body. Field validation happens in the
// action pipeline, so only malformed JSON is rejected here.
func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil && !errors.Is(err, io.EOF) {
		handleServiceError(c, &service.Error{Code: service.CodeValidation, Message: "request body must be valid JSON"})
		return false
	}
	return true
}

func requireIdentity(c *gin.Context) (service.Identity, bool) {
	return middleware.RequireIdentity(c)
}

// ============================================
// Response Mappers
// ============================================

func toUserResponse(u *repository.User) *models.UserResponse {
	if u == nil {
		return nil
	}
	return &models.UserResponse{
		ID:            u.ID,
		Name:          u.Name,
		Email:         u.Email,
		WalletAddress: u.WalletAddress,
	}
}

func toTeamResponse(t *repository.Team) models.TeamResponse {
	members := make([]models.TeamMemberResponse, len(t.Members))
	for i, m := range t.Members {
		members[i] = models.TeamMemberResponse{
			ID:       m.ID,
			UserID:   m.UserID,
			Role:     m.Role,
			JoinedAt: m.JoinedAt,
			User:     toUserResponse(m.User),
		}
	}
	return models.TeamResponse{
		ID:                    t.ID,
		Name:                  t.Name,
		PlanID:                t.PlanID,
		IsTeamPlan:            t.IsTeamPlan,
		TeamOwnerID:           t.TeamOwnerID,
		SubscriptionExpiresAt: t.SubscriptionExpiresAt,
		MemberCount:           len(members),
		Members:               members,
		CreatedAt:             t.CreatedAt,
	}
}

func toInvitationResponse(i *repository.Invitation) models.InvitationResponse {
	return models.InvitationResponse{
		ID:        i.ID,
		TeamID:    i.TeamID,
		Email:     i.Email,
		Role:      i.Role,
		Status:    i.Status,
		ExpiresAt: i.ExpiresAt,
		CreatedAt: i.CreatedAt,
	}
}

func toActivityResponse(a *repository.ActivityLog) models.ActivityResponse {
	return models.ActivityResponse{
		ID:        a.ID,
		TeamID:    a.TeamID,
		UserID:    a.UserID,
		Action:    string(a.Action),
		Timestamp: a.Timestamp,
	}
}

func toPaymentResponse(p *repository.PaymentHistory) models.PaymentResponse {
	return models.PaymentResponse{
		ID:        p.ID,
		TeamID:    p.TeamID,
		PlanID:    p.PlanID,
		Status:    p.Status,
		Amount:    p.Amount,
		Currency:  p.Currency,
		CreatedAt: p.CreatedAt,
	}
}
