package handlers

import (
	"net/http"

	"github.com/Marga-Ghale/teamhub-backend/internal/models"
	"github.com/Marga-Ghale/teamhub-backend/internal/service"
	"github.com/gin-gonic/gin"
)

// AccountHandler serves the caller's own account.
type AccountHandler struct {
	actions *service.Actions
	queries service.QueryService
}

func NewAccountHandler(actions *service.Actions, queries service.QueryService) *AccountHandler {
	return &AccountHandler{actions: actions, queries: queries}
}

// DELETE /api/account
func (h *AccountHandler) DeleteAccount(c *gin.Context) {
	id, ok := requireIdentity(c)
	if !ok {
		return
	}

	var req models.DeleteAccountRequest
	if !bindJSON(c, &req) {
		return
	}

	res, err := h.actions.DeleteAccount.Execute(c.Request.Context(), service.DeleteAccountCommand{
		Confirmation: service.ConfirmationPhrase(req.Confirmation),
	}, id)
	respond(c, http.StatusOK, res, err)
}

// GET /api/billing/history
func (h *AccountHandler) GetBillingHistory(c *gin.Context) {
	id, ok := requireIdentity(c)
	if !ok {
		return
	}

	payments, err := h.queries.BillingHistory(c.Request.Context(), id)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response := make([]models.PaymentResponse, len(payments))
	for i, p := range payments {
		response[i] = toPaymentResponse(p)
	}
	c.JSON(http.StatusOK, response)
}
