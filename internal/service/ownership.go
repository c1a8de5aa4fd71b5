package service

import (
	"github.com/Marga-Ghale/teamhub-backend/internal/repository"
	"github.com/Marga-Ghale/teamhub-backend/internal/types"
)

// ResolveNewOwner picks who inherits ownership when excludeUserID departs:
// the member with role member who joined earliest. Equal join times keep the
// order of members. It returns nil when nobody is eligible.
func ResolveNewOwner(members []*repository.TeamMember, excludeUserID string) *repository.TeamMember {
	var heir *repository.TeamMember
	for _, m := range members {
		if m.UserID == excludeUserID || m.Role != types.RoleMember {
			continue
		}
		if heir == nil || m.JoinedAt.Before(heir.JoinedAt) {
			heir = m
		}
	}
	return heir
}

func countOwners(members []*repository.TeamMember) int {
	n := 0
	for _, m := range members {
		if m.Role == types.RoleOwner {
			n++
		}
	}
	return n
}

// soleOwner reports whether userID is the only owner among members.
func soleOwner(members []*repository.TeamMember, userID string) bool {
	for _, m := range members {
		if m.Role == types.RoleOwner && m.UserID != userID {
			return false
		}
	}
	for _, m := range members {
		if m.UserID == userID {
			return m.Role == types.RoleOwner
		}
	}
	return false
}

func withoutUser(members []*repository.TeamMember, userID string) []*repository.TeamMember {
	out := make([]*repository.TeamMember, 0, len(members))
	for _, m := range members {
		if m.UserID != userID {
			out = append(out, m)
		}
	}
	return out
}
