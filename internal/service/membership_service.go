package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Marga-Ghale/teamhub-backend/internal/repository"
	"github.com/Marga-Ghale/teamhub-backend/internal/types"
)

type MembershipService interface {
	RemoveMember(ctx context.Context, id Identity, memberID string) error
	UpdateRole(ctx context.Context, id Identity, memberID, role string) error
	Leave(ctx context.Context, id Identity) error
}

type membershipService struct {
	*engine
}

func NewMembershipService(e *engine) MembershipService {
	return &membershipService{engine: e}
}

var errNoHeir = errors.New("no member can take over ownership")

// ============================================
// Remove
// ============================================

func (s *membershipService) RemoveMember(ctx context.Context, id Identity, memberID string) error {
	return s.within(ctx, func(r *repository.Repos, hooks *afterCommit) error {
		team, members, target, err := s.loadMemberTeam(ctx, r, memberID)
		if err != nil {
			return err
		}
		if err := requireOwner(members, id.UserID, "only team owners can remove members"); err != nil {
			return err
		}
		if target.UserID == id.UserID {
			return forbidden("you cannot remove yourself; leave the team instead")
		}
		if target.Role == types.RoleOwner && countOwners(members) == 1 {
			return conflict("cannot remove the only owner of the team")
		}

		err = s.depart(ctx, r, hooks, team, members, target, id.ipAddress())
		if errors.Is(err, errNoHeir) {
			return conflict("cannot remove the only owner of the team")
		}
		if err != nil {
			return err
		}
		if err := s.audit(ctx, r, team.ID, id.UserID, types.ActivityRemoveTeamMember, id.ipAddress()); err != nil {
			return err
		}

		s.log.Infow("Member removed", "team_id", team.ID, "member_id", target.ID, "user_id", target.UserID, "actor_id", id.UserID)
		return nil
	})
}

// ============================================
// Role change
// ============================================

func (s *membershipService) UpdateRole(ctx context.Context, id Identity, memberID, role string) error {
	if !types.IsValidMemberRole(role) {
		return validationError("role must be owner or member")
	}
	return s.within(ctx, func(r *repository.Repos, hooks *afterCommit) error {
		team, members, target, err := s.loadMemberTeam(ctx, r, memberID)
		if err != nil {
			return err
		}
		if err := requireOwner(members, id.UserID, "only team owners can change roles"); err != nil {
			return err
		}
		if target.Role == role {
			return conflict("member already has the %s role", role)
		}
		if target.Role == types.RoleOwner && countOwners(members) == 1 {
			return conflict("cannot demote the only owner; promote another member first")
		}

		if err := r.Teams.UpdateMemberRole(ctx, target.ID, role); err != nil {
			return fmt.Errorf("update member role: %w", err)
		}
		if err := s.audit(ctx, r, team.ID, id.UserID, types.ActivityUpdateMemberRole, id.ipAddress()); err != nil {
			return err
		}

		hooks.add(func() { s.events.MemberRoleUpdated(team.ID, target.UserID, role) })
		s.log.Infow("Member role updated", "team_id", team.ID, "member_id", target.ID, "role", role, "actor_id", id.UserID)
		return nil
	})
}

// ============================================
// Leave
// ============================================

func (s *membershipService) Leave(ctx context.Context, id Identity) error {
	return s.within(ctx, func(r *repository.Repos, hooks *afterCommit) error {
		current, err := s.currentMembership(ctx, r, id.UserID)
		if err != nil {
			return err
		}
		if current == nil {
			return notFound("you do not belong to a team")
		}
		team, err := lockTeam(ctx, r, current.TeamID)
		if err != nil {
			return err
		}
		members, err := findMembers(ctx, r, team.ID)
		if err != nil {
			return err
		}
		self := memberOf(members, id.UserID)
		if self == nil {
			return notFound("you do not belong to this team")
		}
		if len(members) == 1 {
			return conflict("cannot leave your personal team; you are its only owner")
		}

		err = s.depart(ctx, r, hooks, team, members, self, id.ipAddress())
		if errors.Is(err, errNoHeir) {
			return conflict("you are the only owner and no member can take over; promote another member or dissolve the team first")
		}
		if err != nil {
			return err
		}
		if err := s.audit(ctx, r, team.ID, id.UserID, types.ActivityLeaveTeam, id.ipAddress()); err != nil {
			return err
		}

		s.log.Infow("Member left team", "team_id", team.ID, "user_id", id.UserID)
		return nil
	})
}

// ============================================
// Shared steps
// ============================================

// loadMemberTeam locks the team of memberID and returns it with its members.
func (s *membershipService) loadMemberTeam(
	ctx context.Context,
	r *repository.Repos,
	memberID string,
) (*repository.Team, []*repository.TeamMember, *repository.TeamMember, error) {
	target, err := r.Teams.FindMemberByID(ctx, memberID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("find member: %w", err)
	}
	if target == nil {
		return nil, nil, nil, notFound("member not found")
	}
	team, err := lockTeam(ctx, r, target.TeamID)
	if err != nil {
		return nil, nil, nil, err
	}
	members, err := findMembers(ctx, r, team.ID)
	if err != nil {
		return nil, nil, nil, err
	}
	// Re-read under the lock; the row may have changed since the first lookup.
	for _, m := range members {
		if m.ID == memberID {
			return team, members, m, nil
		}
	}
	return nil, nil, nil, notFound("member not found")
}

func requireOwner(members []*repository.TeamMember, userID, message string) error {
	actor := memberOf(members, userID)
	if actor == nil || actor.Role != types.RoleOwner {
		return forbidden("%s", message)
	}
	return nil
}

// depart takes leaving out of team: ownership passes on if they were the only
// owner, the team plan is re-homed if they funded it, and the user is placed
// back into a personal team when they have nowhere else to be.
func (e *engine) depart(
	ctx context.Context,
	r *repository.Repos,
	hooks *afterCommit,
	team *repository.Team,
	members []*repository.TeamMember,
	leaving *repository.TeamMember,
	ip *string,
) error {
	if err := e.handOverOwnership(ctx, r, hooks, team, members, leaving, ip); err != nil {
		return err
	}

	if err := r.Teams.RemoveMember(ctx, leaving.ID); err != nil {
		return fmt.Errorf("remove member: %w", err)
	}
	hooks.add(func() { e.events.MemberRemoved(team.ID, leaving.UserID) })

	var grant *planGrant
	if team.FundedBy(leaving.UserID) {
		grant = grantFrom(team)
		if err := e.resolvePlanInheritance(ctx, r, hooks, team, withoutUser(members, leaving.UserID), ip); err != nil {
			return err
		}
	}
	return e.rehome(ctx, r, hooks, leaving.UserID, grant, ip)
}

// handOverOwnership promotes the heir when leaving is the team's only owner.
func (e *engine) handOverOwnership(
	ctx context.Context,
	r *repository.Repos,
	hooks *afterCommit,
	team *repository.Team,
	members []*repository.TeamMember,
	leaving *repository.TeamMember,
	ip *string,
) error {
	if !soleOwner(members, leaving.UserID) {
		return nil
	}
	heir := ResolveNewOwner(members, leaving.UserID)
	if heir == nil {
		return errNoHeir
	}
	if err := r.Teams.UpdateMemberRole(ctx, heir.ID, types.RoleOwner); err != nil {
		return fmt.Errorf("promote heir: %w", err)
	}
	if err := e.audit(ctx, r, team.ID, heir.UserID, types.ActivityTransferOwnership, ip); err != nil {
		return err
	}

	hooks.add(func() { e.events.OwnershipTransferred(team.ID, leaving.UserID, heir.UserID) })
	e.log.Infow("Ownership transferred", "team_id", team.ID, "from_user_id", leaving.UserID, "to_user_id", heir.UserID)
	return nil
}
