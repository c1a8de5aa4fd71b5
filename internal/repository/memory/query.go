package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/Marga-Ghale/teamhub-backend/internal/repository"
	"github.com/Marga-Ghale/teamhub-backend/internal/types"
)

// ============================================
// Read model
// ============================================

func (s *Store) FindUser(_ context.Context, id string) (*repository.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.state.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (s *Store) FindTeamWithMembers(_ context.Context, teamID string) (*repository.Team, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.state.teams[teamID]
	if !ok {
		return nil, nil
	}
	for _, m := range s.state.members {
		if m.TeamID != teamID {
			continue
		}
		member := m
		if u, ok := s.state.users[m.UserID]; ok {
			member.User = &u
		}
		t.Members = append(t.Members, &member)
	}
	s.state.sortMembers(t.Members)
	return &t, nil
}

func (s *Store) FindMemberships(_ context.Context, userID string) ([]*repository.Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state.memberships(userID), nil
}

func (s *Store) FindPendingInvitationsByEmail(_ context.Context, email string, now time.Time) ([]*repository.Invitation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var invitations []*repository.Invitation
	for _, inv := range s.state.invitations {
		inv := inv
		if inv.Status == types.InvitationPending && strings.EqualFold(inv.Email, email) && now.Before(inv.ExpiresAt) {
			invitations = append(invitations, &inv)
		}
	}
	sort.Slice(invitations, func(i, j int) bool {
		return s.state.order[invitations[i].ID] > s.state.order[invitations[j].ID]
	})
	return invitations, nil
}

func (s *Store) FindActivityByTeam(_ context.Context, teamID string, limit int) ([]*repository.ActivityLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var logs []*repository.ActivityLog
	for i := len(s.state.activities) - 1; i >= 0 && len(logs) < limit; i-- {
		a := s.state.activities[i]
		if a.TeamID != nil && *a.TeamID == teamID {
			logs = append(logs, &a)
		}
	}
	return logs, nil
}

func (s *Store) FindPaymentsByUser(_ context.Context, userID string) ([]*repository.PaymentHistory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var payments []*repository.PaymentHistory
	for _, p := range s.state.payments {
		p := p
		if p.UserID == userID {
			payments = append(payments, &p)
		}
	}
	sort.Slice(payments, func(i, j int) bool {
		return payments[i].CreatedAt.After(payments[j].CreatedAt)
	})
	return payments, nil
}

// Activities returns every log entry in insertion order. Used by tests.
func (s *Store) Activities() []repository.ActivityLog {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]repository.ActivityLog(nil), s.state.activities...)
}
