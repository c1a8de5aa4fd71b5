package handlers

import (
	"net/http"
	"strconv"

	"github.com/Marga-Ghale/teamhub-backend/internal/models"
	"github.com/Marga-Ghale/teamhub-backend/internal/service"
	"github.com/gin-gonic/gin"
)

// TeamHandler handles team membership requests for the caller's current team
type TeamHandler struct {
	actions *service.Actions
	queries service.QueryService
}

// NewTeamHandler creates a new team handler
func NewTeamHandler(actions *service.Actions, queries service.QueryService) *TeamHandler {
	return &TeamHandler{actions: actions, queries: queries}
}

// GET /api/teams/current
func (h *TeamHandler) GetCurrentTeam(c *gin.Context) {
	id, ok := requireIdentity(c)
	if !ok {
		return
	}

	team, err := h.queries.CurrentTeam(c.Request.Context(), id)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, toTeamResponse(team))
}

// POST /api/teams/current/invitations
func (h *TeamHandler) InviteMember(c *gin.Context) {
	id, ok := requireIdentity(c)
	if !ok {
		return
	}

	var req models.InviteMemberRequest
	if !bindJSON(c, &req) {
		return
	}

	res, err := h.actions.InviteMember.Execute(c.Request.Context(), service.InviteMemberCommand{
		Email: req.Email,
		Role:  req.Role,
	}, id)
	respond(c, http.StatusCreated, res, err)
}

// DELETE /api/teams/members/:memberId
func (h *TeamHandler) RemoveMember(c *gin.Context) {
	id, ok := requireIdentity(c)
	if !ok {
		return
	}

	res, err := h.actions.RemoveMember.Execute(c.Request.Context(), service.RemoveMemberCommand{
		MemberID: c.Param("memberId"),
	}, id)
	respond(c, http.StatusOK, res, err)
}

// PATCH /api/teams/members/:memberId/role
func (h *TeamHandler) UpdateMemberRole(c *gin.Context) {
	id, ok := requireIdentity(c)
	if !ok {
		return
	}

	var req models.UpdateMemberRoleRequest
	if !bindJSON(c, &req) {
		return
	}

	res, err := h.actions.UpdateMemberRole.Execute(c.Request.Context(), service.UpdateMemberRoleCommand{
		MemberID: c.Param("memberId"),
		Role:     req.Role,
	}, id)
	respond(c, http.StatusOK, res, err)
}

// POST /api/teams/current/leave
func (h *TeamHandler) LeaveTeam(c *gin.Context) {
	id, ok := requireIdentity(c)
	if !ok {
		return
	}

	res, err := h.actions.LeaveTeam.Execute(c.Request.Context(), service.LeaveTeamCommand{}, id)
	respond(c, http.StatusOK, res, err)
}

// GET /api/teams/current/activity?limit=20
func (h *TeamHandler) GetActivity(c *gin.Context) {
	id, ok := requireIdentity(c)
	if !ok {
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			handleServiceError(c, &service.Error{Code: service.CodeValidation, Message: "limit must be a positive integer"})
			return
		}
		limit = n
	}

	activities, err := h.queries.TeamActivity(c.Request.Context(), id, limit)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response := make([]models.ActivityResponse, len(activities))
	for i, a := range activities {
		response[i] = toActivityResponse(a)
	}
	c.JSON(http.StatusOK, response)
}
