package seed

import (
	"context"
	"testing"

	"github.com/Marga-Ghale/teamhub-backend/internal/repository/memory"
	"github.com/Marga-Ghale/teamhub-backend/internal/service"
	"github.com/Marga-Ghale/teamhub-backend/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSeedData(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	log := zap.NewNop().Sugar()
	services := service.NewServices(&service.ServiceDeps{Store: store, Queries: store, Log: log})

	require.NoError(t, SeedData(ctx, store, services, log))

	team, err := services.Queries.CurrentTeam(ctx, Owner.identity())
	require.NoError(t, err)
	assert.Equal(t, types.PlanPro, team.PlanID)
	assert.True(t, team.FundedBy(Owner.ID))
	require.Len(t, team.Members, 2)
	assert.Equal(t, Owner.ID, team.Members[0].UserID)
	assert.Equal(t, Member.ID, team.Members[1].UserID)

	pending, err := services.Queries.PendingInvitations(ctx, Invitee.identity())
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, team.ID, pending[0].TeamID)

	payments, err := services.Queries.BillingHistory(ctx, Owner.identity())
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, "29", payments[0].Amount.String())

	// A second run leaves the data alone.
	require.NoError(t, SeedData(ctx, store, services, log))
	team, err = services.Queries.CurrentTeam(ctx, Owner.identity())
	require.NoError(t, err)
	assert.Len(t, team.Members, 2)
}
