package handlers

import (
	"net/http"

	"github.com/Marga-Ghale/teamhub-backend/internal/models"
	"github.com/Marga-Ghale/teamhub-backend/internal/service"
	"github.com/gin-gonic/gin"
)

// InvitationHandler exposes the invitee side of invitation flows.
type InvitationHandler struct {
	actions *service.Actions
	queries service.QueryService
}

func NewInvitationHandler(actions *service.Actions, queries service.QueryService) *InvitationHandler {
	return &InvitationHandler{actions: actions, queries: queries}
}

// GET /api/invitations/pending
func (h *InvitationHandler) GetPending(c *gin.Context) {
	id, ok := requireIdentity(c)
	if !ok {
		return
	}

	invitations, err := h.queries.PendingInvitations(c.Request.Context(), id)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response := make([]models.InvitationResponse, len(invitations))
	for i, inv := range invitations {
		response[i] = toInvitationResponse(inv)
	}
	c.JSON(http.StatusOK, response)
}

// POST /api/invitations/accept
// Body carries either the e-mailed token or the id of an invitation listed as pending.
func (h *InvitationHandler) Accept(c *gin.Context) {
	id, ok := requireIdentity(c)
	if !ok {
		return
	}

	var req models.AcceptInvitationRequest
	if !bindJSON(c, &req) {
		return
	}

	res, err := h.actions.AcceptInvitation.Execute(c.Request.Context(), service.AcceptInvitationCommand{
		Token:        req.Token,
		InvitationID: req.InvitationID,
	}, id)
	respond(c, http.StatusOK, res, err)
}

// POST /api/invitations/:id/reject
func (h *InvitationHandler) Reject(c *gin.Context) {
	id, ok := requireIdentity(c)
	if !ok {
		return
	}

	res, err := h.actions.RejectInvitation.Execute(c.Request.Context(), service.RejectInvitationCommand{
		InvitationID: c.Param("id"),
	}, id)
	respond(c, http.StatusOK, res, err)
}
