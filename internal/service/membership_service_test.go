package service

import (
	"context"
	"testing"

	"github.com/Marga-Ghale/teamhub-backend/internal/repository"
	"github.com/Marga-Ghale/teamhub-backend/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLeaveTransfersOwnershipToEarliestMember(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice := env.signUp(t, "alice", "alice@example.com")
	bob := env.signUp(t, "bob", "bob@example.com")
	carol := env.signUp(t, "carol", "carol@example.com")
	team := env.currentTeam(t, alice)

	env.join(t, alice, bob, types.RoleMember)
	env.join(t, alice, carol, types.RoleMember)

	require.NoError(t, env.svc.Membership.Leave(ctx, alice))

	heir := env.member(t, team.ID, bob.UserID)
	require.NotNil(t, heir)
	assert.Equal(t, types.RoleOwner, heir.Role)
	assert.Equal(t, types.RoleMember, env.member(t, team.ID, carol.UserID).Role)
	assert.Nil(t, env.member(t, team.ID, alice.UserID))

	memberships := env.memberships(t, alice.UserID)
	require.Len(t, memberships, 1)
	assert.Equal(t, types.RoleOwner, memberships[0].Role)
	assert.Equal(t, 1, memberships[0].MemberCount)
	assert.NotEqual(t, team.ID, memberships[0].TeamID)

	actions := env.activityActions(team.ID)
	assert.Contains(t, actions, types.ActivityTransferOwnership)
	assert.Contains(t, actions, types.ActivityLeaveTeam)
	assert.Contains(t, env.events.snapshot(), "ownership_transferred "+team.ID+" "+alice.UserID+" "+bob.UserID)
}

func TestLeaveKeepsExistingPersonalTeam(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice := env.signUp(t, "alice", "alice@example.com")
	bob := env.signUp(t, "bob", "bob@example.com")
	personal := env.currentTeam(t, bob)
	env.join(t, alice, bob, types.RoleMember)

	require.NoError(t, env.svc.Membership.Leave(ctx, bob))

	memberships := env.memberships(t, bob.UserID)
	require.Len(t, memberships, 1)
	assert.Equal(t, personal.ID, memberships[0].TeamID)
}

func TestLeavePersonalTeamConflicts(t *testing.T) {
	env := newTestEnv(t)

	alice := env.signUp(t, "alice", "alice@example.com")

	err := env.svc.Membership.Leave(context.Background(), alice)
	require.ErrorIs(t, err, ErrConflict)
	assert.Contains(t, err.Error(), "only owner")
	assert.Len(t, env.memberships(t, alice.UserID), 1)
}

func TestLeaveByCoOwnerSkipsTransfer(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice := env.signUp(t, "alice", "alice@example.com")
	bob := env.signUp(t, "bob", "bob@example.com")
	carol := env.signUp(t, "carol", "carol@example.com")
	team := env.currentTeam(t, alice)
	env.join(t, alice, bob, types.RoleMember)
	env.join(t, alice, carol, types.RoleOwner)

	require.NoError(t, env.svc.Membership.Leave(ctx, alice))

	assert.Equal(t, types.RoleMember, env.member(t, team.ID, bob.UserID).Role)
	assert.Equal(t, types.RoleOwner, env.member(t, team.ID, carol.UserID).Role)
	assert.NotContains(t, env.activityActions(team.ID), types.ActivityTransferOwnership)

	// carol is the only owner left.
	carolMember := env.member(t, team.ID, carol.UserID)
	err := env.svc.Membership.UpdateRole(ctx, carol, carolMember.ID, types.RoleMember)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestRemoveMemberBootstrapsPersonalTeam(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice := env.signUp(t, "alice", "alice@example.com")
	team := env.currentTeam(t, alice)

	// bob joined directly and has no team of his own.
	bobID := uuidFor("bob")
	var memberID string
	err := env.store.WithinTx(ctx, func(r *repository.Repos) error {
		email := "bob@example.com"
		if err := r.Users.Create(ctx, &repository.User{ID: bobID, Name: "bob", Email: &email, Role: types.UserRoleUser}); err != nil {
			return err
		}
		m := &repository.TeamMember{TeamID: team.ID, UserID: bobID, Role: types.RoleMember}
		if err := r.Teams.AddMember(ctx, m); err != nil {
			return err
		}
		memberID = m.ID
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, env.svc.Membership.RemoveMember(ctx, alice, memberID))

	assert.Nil(t, env.member(t, team.ID, bobID))
	memberships := env.memberships(t, bobID)
	require.Len(t, memberships, 1)
	assert.Equal(t, types.RoleOwner, memberships[0].Role)
	assert.NotEqual(t, team.ID, memberships[0].TeamID)
	assert.Contains(t, env.activityActions(team.ID), types.ActivityRemoveTeamMember)
	assert.Contains(t, env.activityActions(memberships[0].TeamID), types.ActivityCreateTeam)
}

func TestRemoveMemberRules(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice := env.signUp(t, "alice", "alice@example.com")
	bob := env.signUp(t, "bob", "bob@example.com")
	carol := env.signUp(t, "carol", "carol@example.com")
	team := env.currentTeam(t, alice)
	env.join(t, alice, bob, types.RoleMember)
	env.join(t, alice, carol, types.RoleMember)

	aliceMember := env.member(t, team.ID, alice.UserID)
	carolMember := env.member(t, team.ID, carol.UserID)

	t.Run("member cannot remove", func(t *testing.T) {
		err := env.svc.Membership.RemoveMember(ctx, bob, carolMember.ID)
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("owner cannot remove self", func(t *testing.T) {
		err := env.svc.Membership.RemoveMember(ctx, alice, aliceMember.ID)
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("unknown member", func(t *testing.T) {
		err := env.svc.Membership.RemoveMember(ctx, alice, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("owner removes member", func(t *testing.T) {
		require.NoError(t, env.svc.Membership.RemoveMember(ctx, alice, carolMember.ID))
		assert.Nil(t, env.member(t, team.ID, carol.UserID))
		assert.Len(t, env.memberships(t, carol.UserID), 1)
	})
}

func TestUpdateRole(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice := env.signUp(t, "alice", "alice@example.com")
	bob := env.signUp(t, "bob", "bob@example.com")
	team := env.currentTeam(t, alice)
	env.join(t, alice, bob, types.RoleMember)

	aliceMember := env.member(t, team.ID, alice.UserID)
	bobMember := env.member(t, team.ID, bob.UserID)

	t.Run("sole owner cannot be demoted", func(t *testing.T) {
		err := env.svc.Membership.UpdateRole(ctx, alice, aliceMember.ID, types.RoleMember)
		assert.ErrorIs(t, err, ErrConflict)
		assert.Equal(t, types.RoleOwner, env.member(t, team.ID, alice.UserID).Role)
	})

	t.Run("unchanged role", func(t *testing.T) {
		err := env.svc.Membership.UpdateRole(ctx, alice, bobMember.ID, types.RoleMember)
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("invalid role", func(t *testing.T) {
		err := env.svc.Membership.UpdateRole(ctx, alice, bobMember.ID, "admin")
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("member cannot change roles", func(t *testing.T) {
		err := env.svc.Membership.UpdateRole(ctx, bob, bobMember.ID, types.RoleOwner)
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("promote then demote", func(t *testing.T) {
		require.NoError(t, env.svc.Membership.UpdateRole(ctx, alice, bobMember.ID, types.RoleOwner))
		require.NoError(t, env.svc.Membership.UpdateRole(ctx, bob, aliceMember.ID, types.RoleMember))

		assert.Equal(t, types.RoleOwner, env.member(t, team.ID, bob.UserID).Role)
		assert.Equal(t, types.RoleMember, env.member(t, team.ID, alice.UserID).Role)
		assert.Contains(t, env.activityActions(team.ID), types.ActivityUpdateMemberRole)
		assert.Contains(t, env.events.snapshot(), "role_updated "+team.ID+" "+alice.UserID+" member")
	})
}

func TestResolveNewOwner(t *testing.T) {
	clock := newFakeClock()
	day := clock.Now()
	members := []*repository.TeamMember{
		{ID: "m1", UserID: "a", Role: types.RoleOwner, JoinedAt: day},
		{ID: "m2", UserID: "c", Role: types.RoleMember, JoinedAt: day.AddDate(0, 0, 2)},
		{ID: "m3", UserID: "b", Role: types.RoleMember, JoinedAt: day.AddDate(0, 0, 1)},
		{ID: "m4", UserID: "d", Role: types.RoleMember, JoinedAt: day.AddDate(0, 0, 1)},
	}

	heir := ResolveNewOwner(members, "a")
	require.NotNil(t, heir)
	assert.Equal(t, "b", heir.UserID)

	assert.Equal(t, "d", ResolveNewOwner(members, "b").UserID)
	assert.Nil(t, ResolveNewOwner(members[:1], "a"))
}
