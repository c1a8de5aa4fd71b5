package service

import (
	"context"
	"fmt"

	"github.com/Marga-Ghale/teamhub-backend/internal/repository"
	"github.com/Marga-Ghale/teamhub-backend/internal/types"
)

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// audit appends an activity entry in the caller's transaction.
func (e *engine) audit(ctx context.Context, r *repository.Repos, teamID, userID string, action types.ActivityType, ip *string) error {
	entry := &repository.ActivityLog{
		TeamID:    optional(teamID),
		UserID:    optional(userID),
		Action:    action,
		IPAddress: ip,
	}
	if err := r.Activities.Create(ctx, entry); err != nil {
		return fmt.Errorf("log %s: %w", action, err)
	}
	return nil
}
