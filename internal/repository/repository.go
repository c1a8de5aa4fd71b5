// internal/repository/repository.go
package repository

import (
	"context"
	"time"
)

// ============================================
// Unit of work
// ============================================

// Store runs a unit of work atomically. Either every write made through the
// Repos handed to fn becomes visible, or none does.
type Store interface {
	WithinTx(ctx context.Context, fn func(r *Repos) error) error
}

// Repos groups the repositories bound to one transaction.
type Repos struct {
	Users       UserRepository
	Teams       TeamRepository
	Invitations InvitationRepository
	Activities  ActivityRepository
	Payments    PaymentRepository
}

// ============================================
// Repository Interfaces
// ============================================

// UserRepository defines user data operations.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	FindByID(ctx context.Context, id string) (*User, error)
	FindByWalletAddress(ctx context.Context, address string) (*User, error)
	// FindByEmail matches case-insensitively.
	FindByEmail(ctx context.Context, email string) (*User, error)
	UpdateEmail(ctx context.Context, id, email string, verified bool) error
	Delete(ctx context.Context, id string) error
}

// TeamRepository defines team and team member data operations.
type TeamRepository interface {
	Create(ctx context.Context, team *Team) error
	FindByID(ctx context.Context, id string) (*Team, error)
	// FindByIDForUpdate locks the team row until the transaction ends.
	FindByIDForUpdate(ctx context.Context, id string) (*Team, error)
	FindTeamPlansFundedBy(ctx context.Context, userID string) ([]*Team, error)
	UpdatePlan(ctx context.Context, team *Team) error
	Delete(ctx context.Context, id string) error

	// Member operations
	AddMember(ctx context.Context, member *TeamMember) error
	FindMemberByID(ctx context.Context, id string) (*TeamMember, error)
	FindMember(ctx context.Context, teamID, userID string) (*TeamMember, error)
	// FindMembers returns members ordered by join time, oldest first.
	FindMembers(ctx context.Context, teamID string) ([]*TeamMember, error)
	// FindMemberships returns every membership of a user, oldest first.
	FindMemberships(ctx context.Context, userID string) ([]*Membership, error)
	CountMembers(ctx context.Context, teamID string) (int, error)
	UpdateMemberRole(ctx context.Context, memberID, role string) error
	RemoveMember(ctx context.Context, memberID string) error
	RemoveMembersByTeam(ctx context.Context, teamID string) error
}

// InvitationRepository defines invitation data operations.
type InvitationRepository interface {
	Create(ctx context.Context, invitation *Invitation) error
	FindByID(ctx context.Context, id string) (*Invitation, error)
	FindByTokenHash(ctx context.Context, tokenHash string) (*Invitation, error)
	// FindPending returns the pending invitation for (team, email) if one exists.
	FindPending(ctx context.Context, teamID, email string) (*Invitation, error)
	UpdateStatus(ctx context.Context, id, status string, acceptedAt *time.Time) error
	// DeletePending removes the invitation only while it is still pending and
	// reports whether a row was removed.
	DeletePending(ctx context.Context, id string) (bool, error)
	DeleteByTeam(ctx context.Context, teamID string) error
	DeleteByInviter(ctx context.Context, userID string) error
	DeleteByEmail(ctx context.Context, email string) error
	// ExpirePending flips pending invitations past their expiry to expired.
	ExpirePending(ctx context.Context, now time.Time) (int, error)
}

// ActivityRepository defines activity log operations.
type ActivityRepository interface {
	Create(ctx context.Context, activity *ActivityLog) error
	DeleteByTeam(ctx context.Context, teamID string) error
	DeleteByUser(ctx context.Context, userID string) error
}

// PaymentRepository defines payment history operations.
type PaymentRepository interface {
	Create(ctx context.Context, payment *PaymentHistory) error
	// FindLatest returns the most recent payment a user made for a team.
	FindLatest(ctx context.Context, userID, teamID string) (*PaymentHistory, error)
	DeleteByTeam(ctx context.Context, teamID string) error
	DeleteByUser(ctx context.Context, userID string) error
}

// ============================================
// Read model
// ============================================

// QueryRepository serves read-only views outside of transactions.
type QueryRepository interface {
	FindUser(ctx context.Context, id string) (*User, error)
	FindTeamWithMembers(ctx context.Context, teamID string) (*Team, error)
	FindMemberships(ctx context.Context, userID string) ([]*Membership, error)
	FindPendingInvitationsByEmail(ctx context.Context, email string, now time.Time) ([]*Invitation, error)
	FindActivityByTeam(ctx context.Context, teamID string, limit int) ([]*ActivityLog, error)
	FindPaymentsByUser(ctx context.Context, userID string) ([]*PaymentHistory, error)
}
