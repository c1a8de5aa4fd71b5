package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/Marga-Ghale/teamhub-backend/internal/repository"
	"github.com/Marga-Ghale/teamhub-backend/internal/types"
)

// pickCurrent returns the team a user acts in: their shared team if they have
// one, else their oldest personal team. memberships are ordered by join time.
func pickCurrent(memberships []*repository.Membership) *repository.Membership {
	for _, m := range memberships {
		if m.Shared() {
			return m
		}
	}
	if len(memberships) > 0 {
		return memberships[0]
	}
	return nil
}

func (e *engine) currentMembership(ctx context.Context, r *repository.Repos, userID string) (*repository.Membership, error) {
	memberships, err := r.Teams.FindMemberships(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("find memberships: %w", err)
	}
	return pickCurrent(memberships), nil
}

func personalTeamName(user *repository.User) string {
	name := strings.TrimSpace(user.Name)
	if name == "" {
		return "Personal Team"
	}
	return name + "'s Team"
}

// bootstrapTeam creates a personal team with user as its only owner.
func (e *engine) bootstrapTeam(
	ctx context.Context,
	r *repository.Repos,
	hooks *afterCommit,
	user *repository.User,
	grant *planGrant,
	ip *string,
) (*repository.Team, error) {
	team := &repository.Team{Name: personalTeamName(user), PlanID: types.PlanFree}
	if grant != nil {
		grant.applyTo(team, user.ID)
	}
	if err := r.Teams.Create(ctx, team); err != nil {
		return nil, fmt.Errorf("create team: %w", err)
	}
	member := &repository.TeamMember{TeamID: team.ID, UserID: user.ID, Role: types.RoleOwner}
	if err := r.Teams.AddMember(ctx, member); err != nil {
		return nil, fmt.Errorf("add owner: %w", err)
	}
	if err := e.audit(ctx, r, team.ID, user.ID, types.ActivityCreateTeam, ip); err != nil {
		return nil, err
	}

	hooks.add(func() { e.events.MemberAdded(team.ID, user.ID, types.RoleOwner) })
	e.log.Infow("Personal team created", "team_id", team.ID, "user_id", user.ID, "plan_id", team.PlanID)
	return team, nil
}

// rehome runs after userID lost a membership. It guarantees the user still
// belongs to a team and that a plan they paid for lands on one of their
// personal teams.
func (e *engine) rehome(
	ctx context.Context,
	r *repository.Repos,
	hooks *afterCommit,
	userID string,
	grant *planGrant,
	ip *string,
) error {
	user, err := r.Users.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		return nil
	}

	memberships, err := r.Teams.FindMemberships(ctx, userID)
	if err != nil {
		return fmt.Errorf("find memberships: %w", err)
	}
	if len(memberships) == 0 {
		_, err := e.bootstrapTeam(ctx, r, hooks, user, grant, ip)
		return err
	}
	if grant == nil {
		return nil
	}

	for _, m := range memberships {
		if m.Shared() {
			continue
		}
		team, err := r.Teams.FindByIDForUpdate(ctx, m.TeamID)
		if err != nil {
			return fmt.Errorf("lock team: %w", err)
		}
		if team == nil || types.IsPaidPlan(team.PlanID) {
			continue
		}
		grant.applyTo(team, userID)
		if err := r.Teams.UpdatePlan(ctx, team); err != nil {
			return fmt.Errorf("update team plan: %w", err)
		}
		snapshot := *team
		hooks.add(func() {
			e.events.PlanChanged(snapshot.ID, snapshot.PlanID, snapshot.IsTeamPlan, snapshot.TeamOwnerID)
		})
		return nil
	}

	// Every personal team already carries a paid plan; keep this one separate.
	_, err = e.bootstrapTeam(ctx, r, hooks, user, grant, ip)
	return err
}

// deleteTeam removes a team and every row scoped to it.
func (e *engine) deleteTeam(ctx context.Context, r *repository.Repos, teamID string) error {
	if err := r.Teams.RemoveMembersByTeam(ctx, teamID); err != nil {
		return fmt.Errorf("delete team members: %w", err)
	}
	if err := r.Activities.DeleteByTeam(ctx, teamID); err != nil {
		return fmt.Errorf("delete team activity: %w", err)
	}
	if err := r.Invitations.DeleteByTeam(ctx, teamID); err != nil {
		return fmt.Errorf("delete team invitations: %w", err)
	}
	if err := r.Payments.DeleteByTeam(ctx, teamID); err != nil {
		return fmt.Errorf("delete team payments: %w", err)
	}
	if err := r.Teams.Delete(ctx, teamID); err != nil {
		return fmt.Errorf("delete team: %w", err)
	}
	return nil
}

// lockTeam loads and locks a team, failing NotFound when it is gone.
func lockTeam(ctx context.Context, r *repository.Repos, teamID string) (*repository.Team, error) {
	team, err := r.Teams.FindByIDForUpdate(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("lock team: %w", err)
	}
	if team == nil {
		return nil, notFound("team not found")
	}
	return team, nil
}

func findMembers(ctx context.Context, r *repository.Repos, teamID string) ([]*repository.TeamMember, error) {
	members, err := r.Teams.FindMembers(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("find members: %w", err)
	}
	return members, nil
}

func memberOf(members []*repository.TeamMember, userID string) *repository.TeamMember {
	for _, m := range members {
		if m.UserID == userID {
			return m
		}
	}
	return nil
}
