package service

import (
	"context"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/Marga-Ghale/teamhub-backend/internal/types"
	"github.com/stretchr/testify/require"
)

// checkInvariants asserts the membership rules over every live user:
// each belongs to a team, each reachable team has an owner, and nobody sits
// in two shared teams.
func checkInvariants(t *testing.T, env *testEnv, users []Identity, step string) {
	t.Helper()
	ctx := context.Background()

	teams := map[string]bool{}
	for _, u := range users {
		memberships := env.memberships(t, u.UserID)
		require.NotEmpty(t, memberships, "%s: %s has no team", step, u.Name)

		shared := 0
		for _, m := range memberships {
			teams[m.TeamID] = true
			if m.Shared() {
				shared++
			}
		}
		require.LessOrEqual(t, shared, 1, "%s: %s is in %d shared teams", step, u.Name, shared)
	}

	for teamID := range teams {
		team, err := env.store.FindTeamWithMembers(ctx, teamID)
		require.NoError(t, err)
		require.NotNil(t, team)
		owners := 0
		for _, m := range team.Members {
			if m.Role == types.RoleOwner {
				owners++
			}
		}
		require.GreaterOrEqual(t, owners, 1, "%s: team %s has no owner", step, teamID)
	}
}

func TestMembershipInvariantsHoldUnderRandomOperations(t *testing.T) {
	for seed := int64(1); seed <= 20; seed++ {
		seed := seed
		t.Run(fmt.Sprintf("seed=%d", seed), func(t *testing.T) {
			rng := rand.New(rand.NewSource(seed))
			env := newTestEnv(t)
			ctx := context.Background()

			var users []Identity
			for i := 0; i < 6; i++ {
				name := fmt.Sprintf("user%d-%d", seed, i)
				users = append(users, env.signUp(t, name, name+"@example.com"))
			}
			checkInvariants(t, env, users, "signup")

			pick := func() Identity { return users[rng.Intn(len(users))] }

			for step := 0; step < 60 && len(users) > 1; step++ {
				env.clock.Advance(time.Duration(1+rng.Intn(60)) * time.Minute)
				actor := pick()
				var (
					op  string
					err error
				)

				switch rng.Intn(6) {
				case 0, 1:
					op = "invite+accept"
					invitee := pick()
					role := types.ValidMemberRoles[rng.Intn(2)]
					if _, err = env.svc.Invitations.Invite(ctx, actor, *invitee.Email, role); err == nil {
						err = env.svc.Invitations.Accept(ctx, invitee, env.notifier.lastToken(t), "")
					}
				case 2:
					op = "leave"
					err = env.svc.Membership.Leave(ctx, actor)
				case 3:
					op = "remove"
					team, qerr := env.svc.Queries.CurrentTeam(ctx, actor)
					require.NoError(t, qerr)
					target := team.Members[rng.Intn(len(team.Members))]
					err = env.svc.Membership.RemoveMember(ctx, actor, target.ID)
				case 4:
					op = "role"
					team, qerr := env.svc.Queries.CurrentTeam(ctx, actor)
					require.NoError(t, qerr)
					target := team.Members[rng.Intn(len(team.Members))]
					role := types.ValidMemberRoles[rng.Intn(2)]
					err = env.svc.Membership.UpdateRole(ctx, actor, target.ID, role)
				case 5:
					if rng.Intn(4) != 0 {
						continue
					}
					op = "delete"
					err = env.svc.Accounts.DeleteAccount(ctx, actor, DeleteConfirmation)
					if err == nil {
						for i, u := range users {
							if u.UserID == actor.UserID {
								users = append(users[:i], users[i+1:]...)
								break
							}
						}
					}
				}

				if err != nil {
					// Rejections are expected; unexpected failures are not.
					require.NotEqual(t, CodeInternal, CodeOf(err), "step %d %s by %s: %v", step, op, actor.Name, err)
				}
				checkInvariants(t, env, users, fmt.Sprintf("step %d %s by %s", step, op, actor.Name))
			}
		})
	}
}

func TestLeaveAndRemoveNeverStrandTeams(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice := env.signUp(t, "alice", "alice@example.com")
	bob := env.signUp(t, "bob", "bob@example.com")
	team := env.currentTeam(t, alice)
	env.join(t, alice, bob, types.RoleOwner)

	bobMember := env.member(t, team.ID, bob.UserID)
	aliceMember := env.member(t, team.ID, alice.UserID)

	// Each owner demotes the other in turn; the second must fail.
	require.NoError(t, env.svc.Membership.UpdateRole(ctx, alice, bobMember.ID, types.RoleMember))
	err := env.svc.Membership.UpdateRole(ctx, alice, aliceMember.ID, types.RoleMember)
	require.ErrorIs(t, err, ErrConflict)

	err = env.svc.Membership.RemoveMember(ctx, bob, aliceMember.ID)
	require.ErrorIs(t, err, ErrForbidden)

	checkInvariants(t, env, []Identity{alice, bob}, "after contested changes")
}
