package repository

import (
	"time"

	"github.com/Marga-Ghale/teamhub-backend/internal/types"
	"github.com/shopspring/decimal"
)

// ============================================
// Entities
// ============================================

// User is an account. Wallet-based accounts may have no email.
type User struct {
	ID            string    `db:"id"`
	Name          string    `db:"name"`
	Email         *string   `db:"email"`
	EmailVerified bool      `db:"email_verified"`
	WalletAddress *string   `db:"wallet_address"`
	Role          string    `db:"role"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

// Team holds members and the plan applied to all of them.
// TeamOwnerID points at the user whose subscription funds a team plan.
type Team struct {
	ID                    string        `db:"id"`
	Name                  string        `db:"name"`
	PlanID                string        `db:"plan_id"`
	IsTeamPlan            bool          `db:"is_team_plan"`
	TeamOwnerID           *string       `db:"team_owner_id"`
	SubscriptionExpiresAt *time.Time    `db:"subscription_expires_at"`
	CreatedAt             time.Time     `db:"created_at"`
	UpdatedAt             time.Time     `db:"updated_at"`
	Members               []*TeamMember `db:"-"`
}

// FundedBy reports whether userID pays for this team's plan.
func (t *Team) FundedBy(userID string) bool {
	return t.IsTeamPlan && t.TeamOwnerID != nil && *t.TeamOwnerID == userID
}

// Downgrade drops the team back to the free plan.
func (t *Team) Downgrade() {
	t.PlanID = types.PlanFree
	t.IsTeamPlan = false
	t.TeamOwnerID = nil
	t.SubscriptionExpiresAt = nil
}

// TeamMember joins a user to a team.
type TeamMember struct {
	ID       string    `db:"id"`
	TeamID   string    `db:"team_id"`
	UserID   string    `db:"user_id"`
	Role     string    `db:"role"`
	JoinedAt time.Time `db:"joined_at"`
	User     *User     `db:"-"`
}

// Membership is a TeamMember row together with the size of its team.
type Membership struct {
	TeamMember
	MemberCount int `db:"member_count"`
}

// Shared reports whether the team has more than one member.
func (m *Membership) Shared() bool {
	return m.MemberCount > 1
}

// Invitation offers a role in a team to an email address.
// Only TokenHash is persisted; Token is populated once at creation.
type Invitation struct {
	ID              string     `db:"id"`
	TeamID          string     `db:"team_id"`
	InvitedByUserID string     `db:"invited_by_user_id"`
	Email           string     `db:"email"`
	Role            string     `db:"role"`
	TokenHash       string     `db:"token_hash"`
	Status          string     `db:"status"`
	ExpiresAt       time.Time  `db:"expires_at"`
	AcceptedAt      *time.Time `db:"accepted_at"`
	CreatedAt       time.Time  `db:"created_at"`
	Token           string     `db:"-"`
}

// ExpiredAt reports whether the invitation can no longer be used at t.
func (i *Invitation) ExpiredAt(t time.Time) bool {
	return i.Status == types.InvitationExpired || !t.Before(i.ExpiresAt)
}

// ActivityLog is an append-only audit entry.
type ActivityLog struct {
	ID        string             `db:"id"`
	TeamID    *string            `db:"team_id"`
	UserID    *string            `db:"user_id"`
	Action    types.ActivityType `db:"action"`
	IPAddress *string            `db:"ip_address"`
	Timestamp time.Time          `db:"timestamp"`
}

// PaymentHistory records a charge for a plan.
type PaymentHistory struct {
	ID        string          `db:"id"`
	UserID    string          `db:"user_id"`
	TeamID    string          `db:"team_id"`
	PlanID    string          `db:"plan_id"`
	Status    string          `db:"status"`
	Amount    decimal.Decimal `db:"amount"`
	Currency  string          `db:"currency"`
	CreatedAt time.Time       `db:"created_at"`
}

// InGoodStanding reports whether the payment still backs a subscription.
func (p *PaymentHistory) InGoodStanding() bool {
	return p.Status != types.PaymentFailed && p.Status != types.PaymentRefunded
}
