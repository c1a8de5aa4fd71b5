package socket

import (
	"fmt"

	"github.com/Marga-Ghale/teamhub-backend/internal/service"
)

// Broadcaster turns committed team transitions into WebSocket messages.
type Broadcaster struct {
	hub *Hub
}

var _ service.TeamEvents = (*Broadcaster)(nil)

// NewBroadcaster creates a new Broadcaster
func NewBroadcaster(hub *Hub) *Broadcaster {
	return &Broadcaster{hub: hub}
}

func TeamRoom(teamID string) string {
	return fmt.Sprintf("team:%s", teamID)
}

func UserRoom(userID string) string {
	return fmt.Sprintf("user:%s", userID)
}

// ============================================
// Team Broadcasting
// ============================================

func (b *Broadcaster) MemberAdded(teamID, userID, role string) {
	b.hub.SendToRoom(TeamRoom(teamID), MessageTeamMemberAdded, map[string]interface{}{
		"teamId": teamID,
		"userId": userID,
		"role":   role,
	})
}

// MemberRemoved notifies the team and unsubscribes the removed user from it.
func (b *Broadcaster) MemberRemoved(teamID, userID string) {
	payload := map[string]interface{}{
		"teamId": teamID,
		"userId": userID,
	}
	b.hub.SendToRoom(TeamRoom(teamID), MessageTeamMemberRemoved, payload)
	b.hub.SendToRoom(UserRoom(userID), MessageTeamMemberRemoved, payload)
	b.hub.LeaveRoomForUser(userID, TeamRoom(teamID))
}

func (b *Broadcaster) MemberRoleUpdated(teamID, userID, role string) {
	b.hub.SendToRoom(TeamRoom(teamID), MessageTeamMemberRoleUpdated, map[string]interface{}{
		"teamId": teamID,
		"userId": userID,
		"role":   role,
	})
}

func (b *Broadcaster) OwnershipTransferred(teamID, fromUserID, toUserID string) {
	b.hub.SendToRoom(TeamRoom(teamID), MessageTeamOwnershipTransferred, map[string]interface{}{
		"teamId":     teamID,
		"fromUserId": fromUserID,
		"toUserId":   toUserID,
	})
}

func (b *Broadcaster) PlanChanged(teamID, planID string, isTeamPlan bool, teamOwnerID *string) {
	payload := map[string]interface{}{
		"teamId":     teamID,
		"planId":     planID,
		"isTeamPlan": isTeamPlan,
	}
	if teamOwnerID != nil {
		payload["teamOwnerId"] = *teamOwnerID
	}
	b.hub.SendToRoom(TeamRoom(teamID), MessageTeamPlanChanged, payload)
}

// ============================================
// Invitation Broadcasting
// ============================================

func (b *Broadcaster) InvitationReceived(userID, invitationID, teamName, role string) {
	b.hub.SendToRoom(UserRoom(userID), MessageInvitationReceived, map[string]interface{}{
		"invitationId": invitationID,
		"teamName":     teamName,
		"role":         role,
	})
}
