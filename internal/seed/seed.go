// Package seed fills an empty development store with a small team so the API
// can be exercised locally.
package seed

import (
	"context"
	"fmt"
	"time"

	"github.com/Marga-Ghale/teamhub-backend/internal/repository"
	"github.com/Marga-Ghale/teamhub-backend/internal/service"
	"github.com/Marga-Ghale/teamhub-backend/internal/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DemoUser is a seeded account. ID is the JWT subject to sign tokens with.
type DemoUser struct {
	ID    string
	Name  string
	Email string
}

var (
	Owner   = DemoUser{ID: "00000000-0000-4000-8000-000000000001", Name: "Marga Ghale", Email: "marga@teamhub.dev"}
	Member  = DemoUser{ID: "00000000-0000-4000-8000-000000000002", Name: "Bipin Dhimal", Email: "bipin@teamhub.dev"}
	Invitee = DemoUser{ID: "00000000-0000-4000-8000-000000000003", Name: "Kritim Kafle", Email: "kritim@teamhub.dev"}
)

func (u DemoUser) identity() service.Identity {
	email := u.Email
	return service.Identity{UserID: u.ID, Name: u.Name, Email: &email}
}

// SeedData creates three accounts: an owner funding a pro team plan, a member
// of that team and a user with a pending invitation to it. It does nothing
// when the owner already exists.
func SeedData(ctx context.Context, store repository.Store, services *service.Services, log *zap.SugaredLogger) error {
	exists := false
	if err := store.WithinTx(ctx, func(r *repository.Repos) error {
		u, err := r.Users.FindByID(ctx, Owner.ID)
		exists = u != nil
		return err
	}); err != nil {
		return fmt.Errorf("seed: check owner: %w", err)
	}
	if exists {
		log.Info("Seed data already exists, skipping")
		return nil
	}

	// ============================================
	// Accounts
	// ============================================
	for _, u := range []DemoUser{Owner, Member, Invitee} {
		if _, err := services.Accounts.Bootstrap(ctx, u.identity()); err != nil {
			return fmt.Errorf("seed: bootstrap %s: %w", u.Name, err)
		}
	}

	team, err := services.Queries.CurrentTeam(ctx, Owner.identity())
	if err != nil {
		return fmt.Errorf("seed: owner team: %w", err)
	}

	// ============================================
	// Pro plan funded by the owner
	// ============================================
	if err := store.WithinTx(ctx, func(r *repository.Repos) error {
		t, err := r.Teams.FindByIDForUpdate(ctx, team.ID)
		if err != nil {
			return err
		}
		ownerID := Owner.ID
		expires := time.Now().AddDate(0, 1, 0)
		t.PlanID = types.PlanPro
		t.IsTeamPlan = true
		t.TeamOwnerID = &ownerID
		t.SubscriptionExpiresAt = &expires
		if err := r.Teams.UpdatePlan(ctx, t); err != nil {
			return err
		}
		return r.Payments.Create(ctx, &repository.PaymentHistory{
			UserID:   Owner.ID,
			TeamID:   t.ID,
			PlanID:   types.PlanPro,
			Status:   types.PaymentSucceeded,
			Amount:   decimal.RequireFromString("29.00"),
			Currency: "USD",
		})
	}); err != nil {
		return fmt.Errorf("seed: fund team: %w", err)
	}

	// ============================================
	// Membership and a pending invitation
	// ============================================
	inv, err := services.Invitations.Invite(ctx, Owner.identity(), Member.Email, types.RoleMember)
	if err != nil {
		return fmt.Errorf("seed: invite member: %w", err)
	}
	if err := services.Invitations.Accept(ctx, Member.identity(), inv.Token, ""); err != nil {
		return fmt.Errorf("seed: accept invitation: %w", err)
	}
	if _, err := services.Invitations.Invite(ctx, Owner.identity(), Invitee.Email, types.RoleMember); err != nil {
		return fmt.Errorf("seed: invite %s: %w", Invitee.Name, err)
	}

	log.Infow("Seeded development data",
		"team_id", team.ID,
		"owner_id", Owner.ID,
		"member_id", Member.ID,
		"invitee_id", Invitee.ID,
	)
	return nil
}
