package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Marga-Ghale/teamhub-backend/internal/repository"
	"github.com/Marga-Ghale/teamhub-backend/internal/types"
)

// planGrant is a paid entitlement that follows the member who pays for it.
type planGrant struct {
	PlanID    string
	ExpiresAt *time.Time
}

func grantFrom(team *repository.Team) *planGrant {
	g := &planGrant{PlanID: team.PlanID}
	if team.SubscriptionExpiresAt != nil {
		t := *team.SubscriptionExpiresAt
		g.ExpiresAt = &t
	}
	return g
}

func (g *planGrant) applyTo(team *repository.Team, userID string) {
	owner := userID
	team.PlanID = g.PlanID
	team.IsTeamPlan = true
	team.TeamOwnerID = &owner
	team.SubscriptionExpiresAt = g.ExpiresAt
}

// checkCapacity fails when a team already holds as many members as its plan allows.
func (e *engine) checkCapacity(team *repository.Team, count int) error {
	limit, capped := e.plans.MemberCap(team.PlanID)
	if capped && count >= limit {
		return newError(CodeLimitExceeded, "the %s plan allows at most %d members", team.PlanID, limit)
	}
	return nil
}

// resolvePlanInheritance repoints a team plan whose funder has left to another
// remaining member who pays for a team plan of their own, or downgrades the
// team to free when there is no such member.
func (e *engine) resolvePlanInheritance(
	ctx context.Context,
	r *repository.Repos,
	hooks *afterCommit,
	team *repository.Team,
	remaining []*repository.TeamMember,
	ip *string,
) error {
	heir, err := e.findPayingMember(ctx, r, team.ID, remaining)
	if err != nil {
		return err
	}

	action := types.ActivityDowngradeTeamPlan
	actorID := ""
	if heir != nil {
		owner := heir.UserID
		team.TeamOwnerID = &owner
		action = types.ActivityTransferTeamPlan
		actorID = heir.UserID
	} else {
		team.Downgrade()
	}

	if err := r.Teams.UpdatePlan(ctx, team); err != nil {
		return fmt.Errorf("update team plan: %w", err)
	}
	if err := e.audit(ctx, r, team.ID, actorID, action, ip); err != nil {
		return err
	}

	snapshot := *team
	hooks.add(func() {
		e.events.PlanChanged(snapshot.ID, snapshot.PlanID, snapshot.IsTeamPlan, snapshot.TeamOwnerID)
	})
	e.log.Infow("Team plan re-homed", "team_id", team.ID, "action", action, "team_owner_id", actorID)
	return nil
}

// findPayingMember returns the earliest-joined member who funds a team plan on
// another team whose latest payment is in good standing. A funded team with no
// payment rows yet counts as paid.
func (e *engine) findPayingMember(
	ctx context.Context,
	r *repository.Repos,
	teamID string,
	members []*repository.TeamMember,
) (*repository.TeamMember, error) {
	var heir *repository.TeamMember
	for _, m := range members {
		if heir != nil && !m.JoinedAt.Before(heir.JoinedAt) {
			continue
		}
		pays, err := e.paysForTeamPlan(ctx, r, m.UserID, teamID)
		if err != nil {
			return nil, err
		}
		if pays {
			heir = m
		}
	}
	return heir, nil
}

func (e *engine) paysForTeamPlan(ctx context.Context, r *repository.Repos, userID, excludeTeamID string) (bool, error) {
	funded, err := r.Teams.FindTeamPlansFundedBy(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("find funded teams: %w", err)
	}
	for _, t := range funded {
		if t.ID == excludeTeamID {
			continue
		}
		latest, err := r.Payments.FindLatest(ctx, userID, t.ID)
		if err != nil {
			return false, fmt.Errorf("find latest payment: %w", err)
		}
		if latest == nil || latest.InGoodStanding() {
			return true, nil
		}
	}
	return false, nil
}
