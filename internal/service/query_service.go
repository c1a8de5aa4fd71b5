package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Marga-Ghale/teamhub-backend/internal/repository"
)

const (
	defaultActivityLimit = 20
	maxActivityLimit     = 100
)

// QueryService serves read-only views of the caller's team state.
type QueryService interface {
	CurrentTeam(ctx context.Context, id Identity) (*repository.Team, error)
	PendingInvitations(ctx context.Context, id Identity) ([]*repository.Invitation, error)
	TeamActivity(ctx context.Context, id Identity, limit int) ([]*repository.ActivityLog, error)
	BillingHistory(ctx context.Context, id Identity) ([]*repository.PaymentHistory, error)
}

type queryService struct {
	repo repository.QueryRepository
	now  func() time.Time
}

func NewQueryService(repo repository.QueryRepository, clock func() time.Time) QueryService {
	if clock == nil {
		clock = time.Now
	}
	return &queryService{repo: repo, now: clock}
}

func (s *queryService) CurrentTeam(ctx context.Context, id Identity) (*repository.Team, error) {
	memberships, err := s.repo.FindMemberships(ctx, id.UserID)
	if err != nil {
		return nil, fmt.Errorf("find memberships: %w", err)
	}
	current := pickCurrent(memberships)
	if current == nil {
		return nil, notFound("you do not belong to a team")
	}
	team, err := s.repo.FindTeamWithMembers(ctx, current.TeamID)
	if err != nil {
		return nil, fmt.Errorf("find team: %w", err)
	}
	if team == nil {
		return nil, notFound("team not found")
	}
	return team, nil
}

func (s *queryService) PendingInvitations(ctx context.Context, id Identity) ([]*repository.Invitation, error) {
	user, err := s.repo.FindUser(ctx, id.UserID)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		return nil, notFound("user not found")
	}
	if user.Email == nil || *user.Email == "" {
		return []*repository.Invitation{}, nil
	}
	return s.repo.FindPendingInvitationsByEmail(ctx, *user.Email, s.now())
}

func (s *queryService) TeamActivity(ctx context.Context, id Identity, limit int) ([]*repository.ActivityLog, error) {
	if limit <= 0 {
		limit = defaultActivityLimit
	}
	if limit > maxActivityLimit {
		limit = maxActivityLimit
	}
	team, err := s.CurrentTeam(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.repo.FindActivityByTeam(ctx, team.ID, limit)
}

func (s *queryService) BillingHistory(ctx context.Context, id Identity) ([]*repository.PaymentHistory, error) {
	return s.repo.FindPaymentsByUser(ctx, id.UserID)
}
