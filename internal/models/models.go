package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ============================================
// Common Responses
// ============================================

type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ============================================
// Member Management DTOs
// ============================================

type InviteMemberRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

type UpdateMemberRoleRequest struct {
	Role string `json:"role"`
}

type AcceptInvitationRequest struct {
	Token        string `json:"token,omitempty"`
	InvitationID string `json:"invitationId,omitempty"`
}

type DeleteAccountRequest struct {
	Confirmation string `json:"confirmation"`
}

// ============================================
// Team DTOs
// ============================================

type UserResponse struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Email         *string `json:"email,omitempty"`
	WalletAddress *string `json:"walletAddress,omitempty"`
}

type TeamMemberResponse struct {
	ID       string        `json:"id"`
	UserID   string        `json:"userId"`
	Role     string        `json:"role"`
	JoinedAt time.Time     `json:"joinedAt"`
	User     *UserResponse `json:"user,omitempty"`
}

type TeamResponse struct {
	ID                    string               `json:"id"`
	Name                  string               `json:"name"`
	PlanID                string               `json:"planId"`
	IsTeamPlan            bool                 `json:"isTeamPlan"`
	TeamOwnerID           *string              `json:"teamOwnerId,omitempty"`
	SubscriptionExpiresAt *time.Time           `json:"subscriptionExpiresAt,omitempty"`
	MemberCount           int                  `json:"memberCount"`
	Members               []TeamMemberResponse `json:"members"`
	CreatedAt             time.Time            `json:"createdAt"`
}

// ============================================
// Invitation DTOs
// ============================================

type InvitationResponse struct {
	ID        string    `json:"id"`
	TeamID    string    `json:"teamId"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Status    string    `json:"status"`
	ExpiresAt time.Time `json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
}

// ============================================
// Activity & Billing DTOs
// ============================================

type ActivityResponse struct {
	ID        string    `json:"id"`
	TeamID    *string   `json:"teamId,omitempty"`
	UserID    *string   `json:"userId,omitempty"`
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
}

type PaymentResponse struct {
	ID        string          `json:"id"`
	TeamID    string          `json:"teamId"`
	PlanID    string          `json:"planId"`
	Status    string          `json:"status"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	CreatedAt time.Time       `json:"createdAt"`
}
