package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Marga-Ghale/teamhub-backend/internal/repository"
	"github.com/Marga-Ghale/teamhub-backend/internal/types"
)

type AccountService interface {
	// Bootstrap returns the caller's account, creating it together with a
	// personal team the first time a new identity is seen.
	Bootstrap(ctx context.Context, id Identity) (*repository.User, error)
	DeleteAccount(ctx context.Context, id Identity, phrase ConfirmationPhrase) error
}

type accountService struct {
	*engine
	sessions SessionRevoker
}

func NewAccountService(e *engine, sessions SessionRevoker) AccountService {
	return &accountService{engine: e, sessions: sessions}
}

// ============================================
// Sign-up bootstrap
// ============================================

func (s *accountService) Bootstrap(ctx context.Context, id Identity) (*repository.User, error) {
	var user *repository.User
	err := s.within(ctx, func(r *repository.Repos, hooks *afterCommit) error {
		var err error
		user, err = r.Users.FindByID(ctx, id.UserID)
		if err != nil {
			return fmt.Errorf("find user: %w", err)
		}
		if user != nil {
			return nil
		}

		user = &repository.User{
			ID:            id.UserID,
			Name:          strings.TrimSpace(id.Name),
			WalletAddress: id.WalletAddress,
			Role:          types.UserRoleUser,
		}
		if id.Email != nil && normalizeEmail(*id.Email) != "" {
			email := normalizeEmail(*id.Email)
			user.Email = &email
		}
		if err := r.Users.Create(ctx, user); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return conflict("an account with this email or wallet already exists")
			}
			return fmt.Errorf("create user: %w", err)
		}
		if err := s.audit(ctx, r, "", user.ID, types.ActivitySignUp, id.ipAddress()); err != nil {
			return err
		}
		_, err = s.bootstrapTeam(ctx, r, hooks, user, nil, id.ipAddress())
		return err
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// ============================================
// Deletion cascade
// ============================================

func (s *accountService) DeleteAccount(ctx context.Context, id Identity, phrase ConfirmationPhrase) error {
	if !phrase.Confirms() {
		return validationError("type %q to confirm account deletion", DeleteConfirmation)
	}

	err := s.within(ctx, func(r *repository.Repos, hooks *afterCommit) error {
		user, err := r.Users.FindByID(ctx, id.UserID)
		if err != nil {
			return fmt.Errorf("find user: %w", err)
		}
		if user == nil {
			return notFound("user not found")
		}

		memberships, err := r.Teams.FindMemberships(ctx, user.ID)
		if err != nil {
			return fmt.Errorf("find memberships: %w", err)
		}
		for _, m := range memberships {
			if err := s.detachForDeletion(ctx, r, hooks, user.ID, &m.TeamMember, id.ipAddress()); err != nil {
				return err
			}
		}

		// Plans the user still funds on teams they already left.
		funded, err := r.Teams.FindTeamPlansFundedBy(ctx, user.ID)
		if err != nil {
			return fmt.Errorf("find funded teams: %w", err)
		}
		for _, t := range funded {
			team, err := lockTeam(ctx, r, t.ID)
			if err != nil {
				return err
			}
			members, err := findMembers(ctx, r, team.ID)
			if err != nil {
				return err
			}
			if err := s.resolvePlanInheritance(ctx, r, hooks, team, members, nil); err != nil {
				return err
			}
		}

		if err := r.Invitations.DeleteByInviter(ctx, user.ID); err != nil {
			return fmt.Errorf("delete sent invitations: %w", err)
		}
		if user.Email != nil {
			if err := r.Invitations.DeleteByEmail(ctx, *user.Email); err != nil {
				return fmt.Errorf("delete received invitations: %w", err)
			}
		}
		if err := r.Payments.DeleteByUser(ctx, user.ID); err != nil {
			return fmt.Errorf("delete payments: %w", err)
		}
		if err := r.Activities.DeleteByUser(ctx, user.ID); err != nil {
			return fmt.Errorf("delete activity: %w", err)
		}
		if err := r.Users.Delete(ctx, user.ID); err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
		return nil
	})
	if repository.IsConstraintViolation(err) || repository.IsUniqueViolation(err) {
		// Cascade failures roll back whole and are reported as internal.
		s.log.Errorw("Account deletion rolled back by store constraint", "user_id", id.UserID, "error", err)
		return &Error{Code: CodeInternal, Message: internalMessage}
	}
	if err != nil {
		return err
	}

	if s.sessions != nil {
		if err := s.sessions.DeleteUserSessions(ctx, id.UserID); err != nil {
			s.log.Errorw("Failed to clear sessions of deleted account", "user_id", id.UserID, "error", err)
		}
	}
	s.log.Infow("Account deleted", "user_id", id.UserID)
	return nil
}

// detachForDeletion takes the user out of one team. A team the user is alone
// in is deleted outright; a shared team gets a new owner and plan first.
func (s *accountService) detachForDeletion(
	ctx context.Context,
	r *repository.Repos,
	hooks *afterCommit,
	userID string,
	membership *repository.TeamMember,
	ip *string,
) error {
	team, err := lockTeam(ctx, r, membership.TeamID)
	if err != nil {
		return err
	}
	members, err := findMembers(ctx, r, team.ID)
	if err != nil {
		return err
	}
	self := memberOf(members, userID)
	if self == nil {
		return nil
	}

	if len(members) == 1 {
		if err := s.deleteTeam(ctx, r, team.ID); err != nil {
			return err
		}
		s.log.Infow("Deleted orphaned team", "team_id", team.ID, "user_id", userID)
		return nil
	}

	err = s.handOverOwnership(ctx, r, hooks, team, members, self, ip)
	if errors.Is(err, errNoHeir) {
		return conflict("no member can take over ownership of %s; promote another member first", team.Name)
	}
	if err != nil {
		return err
	}
	if err := r.Teams.RemoveMember(ctx, self.ID); err != nil {
		return fmt.Errorf("remove member: %w", err)
	}
	hooks.add(func() { s.events.MemberRemoved(team.ID, userID) })

	if team.FundedBy(userID) {
		if err := s.resolvePlanInheritance(ctx, r, hooks, team, withoutUser(members, userID), ip); err != nil {
			return err
		}
	}
	return s.audit(ctx, r, team.ID, "", types.ActivityDeleteAccount, ip)
}
