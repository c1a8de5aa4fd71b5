package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/Marga-Ghale/teamhub-backend/internal/repository"
	"github.com/Marga-Ghale/teamhub-backend/internal/types"
	"github.com/google/uuid"
)

func sameEmail(a *string, b string) bool {
	return a != nil && strings.EqualFold(*a, b)
}

// ============================================
// Users
// ============================================

type userRepo struct {
	st    *state
	clock func() time.Time
}

func (r *userRepo) Create(_ context.Context, user *repository.User) error {
	for _, u := range r.st.users {
		if user.Email != nil && sameEmail(u.Email, *user.Email) {
			return repository.ErrDuplicate
		}
		if user.WalletAddress != nil && u.WalletAddress != nil && strings.EqualFold(*u.WalletAddress, *user.WalletAddress) {
			return repository.ErrDuplicate
		}
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := r.clock()
	user.CreatedAt, user.UpdatedAt = now, now
	r.st.users[user.ID] = *user
	r.st.track(user.ID)
	return nil
}

func (r *userRepo) FindByID(_ context.Context, id string) (*repository.User, error) {
	u, ok := r.st.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (r *userRepo) FindByWalletAddress(_ context.Context, address string) (*repository.User, error) {
	for _, u := range r.st.users {
		if u.WalletAddress != nil && strings.EqualFold(*u.WalletAddress, address) {
			return &u, nil
		}
	}
	return nil, nil
}

func (r *userRepo) FindByEmail(_ context.Context, email string) (*repository.User, error) {
	for _, u := range r.st.users {
		if sameEmail(u.Email, email) {
			return &u, nil
		}
	}
	return nil, nil
}

func (r *userRepo) UpdateEmail(_ context.Context, id, email string, verified bool) error {
	for _, u := range r.st.users {
		if u.ID != id && sameEmail(u.Email, email) {
			return repository.ErrDuplicate
		}
	}
	u, ok := r.st.users[id]
	if !ok {
		return nil
	}
	u.Email = &email
	u.EmailVerified = verified
	u.UpdatedAt = r.clock()
	r.st.users[id] = u
	return nil
}

func (r *userRepo) Delete(_ context.Context, id string) error {
	delete(r.st.users, id)
	return nil
}

// ============================================
// Teams and members
// ============================================

type teamRepo struct {
	st    *state
	clock func() time.Time
}

func (r *teamRepo) Create(_ context.Context, team *repository.Team) error {
	if team.ID == "" {
		team.ID = uuid.NewString()
	}
	now := r.clock()
	team.CreatedAt, team.UpdatedAt = now, now
	stored := *team
	stored.Members = nil
	r.st.teams[team.ID] = stored
	r.st.track(team.ID)
	return nil
}

func (r *teamRepo) FindByID(_ context.Context, id string) (*repository.Team, error) {
	t, ok := r.st.teams[id]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

// FindByIDForUpdate needs no lock: the whole transaction holds the store mutex.
func (r *teamRepo) FindByIDForUpdate(ctx context.Context, id string) (*repository.Team, error) {
	return r.FindByID(ctx, id)
}

func (r *teamRepo) FindTeamPlansFundedBy(_ context.Context, userID string) ([]*repository.Team, error) {
	var teams []*repository.Team
	for _, t := range r.st.teams {
		t := t
		if t.FundedBy(userID) {
			teams = append(teams, &t)
		}
	}
	sort.Slice(teams, func(i, j int) bool {
		return r.st.order[teams[i].ID] < r.st.order[teams[j].ID]
	})
	return teams, nil
}

func (r *teamRepo) UpdatePlan(_ context.Context, team *repository.Team) error {
	t, ok := r.st.teams[team.ID]
	if !ok {
		return nil
	}
	t.PlanID = team.PlanID
	t.IsTeamPlan = team.IsTeamPlan
	t.TeamOwnerID = team.TeamOwnerID
	t.SubscriptionExpiresAt = team.SubscriptionExpiresAt
	t.UpdatedAt = r.clock()
	r.st.teams[team.ID] = t
	return nil
}

func (r *teamRepo) Delete(_ context.Context, id string) error {
	delete(r.st.teams, id)
	return nil
}

func (r *teamRepo) AddMember(_ context.Context, member *repository.TeamMember) error {
	for _, m := range r.st.members {
		if m.TeamID == member.TeamID && m.UserID == member.UserID {
			return repository.ErrDuplicate
		}
	}
	if member.ID == "" {
		member.ID = uuid.NewString()
	}
	if member.JoinedAt.IsZero() {
		member.JoinedAt = r.clock()
	}
	stored := *member
	stored.User = nil
	r.st.members[member.ID] = stored
	r.st.track(member.ID)
	return nil
}

func (r *teamRepo) FindMemberByID(_ context.Context, id string) (*repository.TeamMember, error) {
	m, ok := r.st.members[id]
	if !ok {
		return nil, nil
	}
	return &m, nil
}

func (r *teamRepo) FindMember(_ context.Context, teamID, userID string) (*repository.TeamMember, error) {
	for _, m := range r.st.members {
		if m.TeamID == teamID && m.UserID == userID {
			return &m, nil
		}
	}
	return nil, nil
}

func (r *teamRepo) FindMembers(_ context.Context, teamID string) ([]*repository.TeamMember, error) {
	var members []*repository.TeamMember
	for _, m := range r.st.members {
		m := m
		if m.TeamID == teamID {
			members = append(members, &m)
		}
	}
	r.st.sortMembers(members)
	return members, nil
}

func (r *teamRepo) FindMemberships(_ context.Context, userID string) ([]*repository.Membership, error) {
	return r.st.memberships(userID), nil
}

func (r *teamRepo) CountMembers(_ context.Context, teamID string) (int, error) {
	return r.st.memberCount(teamID), nil
}

func (r *teamRepo) UpdateMemberRole(_ context.Context, memberID, role string) error {
	m, ok := r.st.members[memberID]
	if !ok {
		return nil
	}
	m.Role = role
	r.st.members[memberID] = m
	return nil
}

func (r *teamRepo) RemoveMember(_ context.Context, memberID string) error {
	delete(r.st.members, memberID)
	return nil
}

func (r *teamRepo) RemoveMembersByTeam(_ context.Context, teamID string) error {
	for id, m := range r.st.members {
		if m.TeamID == teamID {
			delete(r.st.members, id)
		}
	}
	return nil
}

func (st *state) sortMembers(members []*repository.TeamMember) {
	sort.Slice(members, func(i, j int) bool {
		if !members[i].JoinedAt.Equal(members[j].JoinedAt) {
			return members[i].JoinedAt.Before(members[j].JoinedAt)
		}
		return st.order[members[i].ID] < st.order[members[j].ID]
	})
}

func (st *state) memberships(userID string) []*repository.Membership {
	var rows []*repository.TeamMember
	for _, m := range st.members {
		m := m
		if m.UserID == userID {
			rows = append(rows, &m)
		}
	}
	st.sortMembers(rows)

	memberships := make([]*repository.Membership, 0, len(rows))
	for _, m := range rows {
		memberships = append(memberships, &repository.Membership{
			TeamMember:  *m,
			MemberCount: st.memberCount(m.TeamID),
		})
	}
	return memberships
}

// ============================================
// Invitations
// ============================================

type invitationRepo struct {
	st    *state
	clock func() time.Time
}

func (r *invitationRepo) Create(_ context.Context, invitation *repository.Invitation) error {
	for _, inv := range r.st.invitations {
		if inv.TokenHash == invitation.TokenHash {
			return repository.ErrDuplicate
		}
		if invitation.Status == types.InvitationPending && inv.Status == types.InvitationPending &&
			inv.TeamID == invitation.TeamID && strings.EqualFold(inv.Email, invitation.Email) {
			return repository.ErrDuplicate
		}
	}
	if invitation.ID == "" {
		invitation.ID = uuid.NewString()
	}
	invitation.CreatedAt = r.clock()
	stored := *invitation
	stored.Token = ""
	r.st.invitations[invitation.ID] = stored
	r.st.track(invitation.ID)
	return nil
}

func (r *invitationRepo) FindByID(_ context.Context, id string) (*repository.Invitation, error) {
	inv, ok := r.st.invitations[id]
	if !ok {
		return nil, nil
	}
	return &inv, nil
}

func (r *invitationRepo) FindByTokenHash(_ context.Context, tokenHash string) (*repository.Invitation, error) {
	for _, inv := range r.st.invitations {
		if inv.TokenHash == tokenHash {
			return &inv, nil
		}
	}
	return nil, nil
}

func (r *invitationRepo) FindPending(_ context.Context, teamID, email string) (*repository.Invitation, error) {
	for _, inv := range r.st.invitations {
		if inv.TeamID == teamID && inv.Status == types.InvitationPending && strings.EqualFold(inv.Email, email) {
			return &inv, nil
		}
	}
	return nil, nil
}

func (r *invitationRepo) UpdateStatus(_ context.Context, id, status string, acceptedAt *time.Time) error {
	inv, ok := r.st.invitations[id]
	if !ok {
		return nil
	}
	inv.Status = status
	inv.AcceptedAt = acceptedAt
	r.st.invitations[id] = inv
	return nil
}

func (r *invitationRepo) DeletePending(_ context.Context, id string) (bool, error) {
	inv, ok := r.st.invitations[id]
	if !ok || inv.Status != types.InvitationPending {
		return false, nil
	}
	delete(r.st.invitations, id)
	return true, nil
}

func (r *invitationRepo) deleteWhere(match func(repository.Invitation) bool) {
	for id, inv := range r.st.invitations {
		if match(inv) {
			delete(r.st.invitations, id)
		}
	}
}

func (r *invitationRepo) DeleteByTeam(_ context.Context, teamID string) error {
	r.deleteWhere(func(inv repository.Invitation) bool { return inv.TeamID == teamID })
	return nil
}

func (r *invitationRepo) DeleteByInviter(_ context.Context, userID string) error {
	r.deleteWhere(func(inv repository.Invitation) bool { return inv.InvitedByUserID == userID })
	return nil
}

func (r *invitationRepo) DeleteByEmail(_ context.Context, email string) error {
	r.deleteWhere(func(inv repository.Invitation) bool { return strings.EqualFold(inv.Email, email) })
	return nil
}

func (r *invitationRepo) ExpirePending(_ context.Context, now time.Time) (int, error) {
	n := 0
	for id, inv := range r.st.invitations {
		if inv.Status == types.InvitationPending && !now.Before(inv.ExpiresAt) {
			inv.Status = types.InvitationExpired
			r.st.invitations[id] = inv
			n++
		}
	}
	return n, nil
}

// ============================================
// Activity and payments
// ============================================

type activityRepo struct {
	st    *state
	clock func() time.Time
}

func (r *activityRepo) Create(_ context.Context, activity *repository.ActivityLog) error {
	if activity.ID == "" {
		activity.ID = uuid.NewString()
	}
	activity.Timestamp = r.clock()
	r.st.activities = append(r.st.activities, *activity)
	return nil
}

func (r *activityRepo) deleteWhere(match func(repository.ActivityLog) bool) {
	kept := r.st.activities[:0:0]
	for _, a := range r.st.activities {
		if !match(a) {
			kept = append(kept, a)
		}
	}
	r.st.activities = kept
}

func (r *activityRepo) DeleteByTeam(_ context.Context, teamID string) error {
	r.deleteWhere(func(a repository.ActivityLog) bool { return a.TeamID != nil && *a.TeamID == teamID })
	return nil
}

func (r *activityRepo) DeleteByUser(_ context.Context, userID string) error {
	r.deleteWhere(func(a repository.ActivityLog) bool { return a.UserID != nil && *a.UserID == userID })
	return nil
}

type paymentRepo struct {
	st    *state
	clock func() time.Time
}

func (r *paymentRepo) Create(_ context.Context, payment *repository.PaymentHistory) error {
	if payment.ID == "" {
		payment.ID = uuid.NewString()
	}
	if payment.CreatedAt.IsZero() {
		payment.CreatedAt = r.clock()
	}
	r.st.payments[payment.ID] = *payment
	r.st.track(payment.ID)
	return nil
}

func (r *paymentRepo) FindLatest(_ context.Context, userID, teamID string) (*repository.PaymentHistory, error) {
	var latest *repository.PaymentHistory
	for _, p := range r.st.payments {
		p := p
		if p.UserID != userID || p.TeamID != teamID {
			continue
		}
		if latest == nil || p.CreatedAt.After(latest.CreatedAt) ||
			(p.CreatedAt.Equal(latest.CreatedAt) && r.st.order[p.ID] > r.st.order[latest.ID]) {
			latest = &p
		}
	}
	return latest, nil
}

func (r *paymentRepo) DeleteByTeam(_ context.Context, teamID string) error {
	for id, p := range r.st.payments {
		if p.TeamID == teamID {
			delete(r.st.payments, id)
		}
	}
	return nil
}

func (r *paymentRepo) DeleteByUser(_ context.Context, userID string) error {
	for id, p := range r.st.payments {
		if p.UserID == userID {
			delete(r.st.payments, id)
		}
	}
	return nil
}
