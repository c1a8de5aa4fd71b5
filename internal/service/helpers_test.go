package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Marga-Ghale/teamhub-backend/internal/repository"
	"github.com/Marga-Ghale/teamhub-backend/internal/repository/memory"
	"github.com/Marga-Ghale/teamhub-backend/internal/types"
	"github.com/stretchr/testify/require"
)

// ============================================
// Fakes
// ============================================

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fakeNotifier struct {
	mu            sync.Mutex
	invitations   []InvitationEmail
	verifications []VerificationEmail
	failInvites   error
	// beforeSend runs ahead of delivery, outside the lock.
	beforeSend func(InvitationEmail)
}

func (n *fakeNotifier) SendInvitationEmail(_ context.Context, msg InvitationEmail) error {
	if n.beforeSend != nil {
		n.beforeSend(msg)
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.failInvites != nil {
		return n.failInvites
	}
	n.invitations = append(n.invitations, msg)
	return nil
}

func (n *fakeNotifier) SendVerificationEmail(_ context.Context, msg VerificationEmail) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.verifications = append(n.verifications, msg)
	return nil
}

func (n *fakeNotifier) lastToken(t *testing.T) string {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	require.NotEmpty(t, n.invitations, "no invitation email sent")
	return n.invitations[len(n.invitations)-1].Token
}

type recordedEvents struct {
	mu     sync.Mutex
	events []string
}

func (e *recordedEvents) add(format string, args ...interface{}) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, fmt.Sprintf(format, args...))
}

func (e *recordedEvents) MemberAdded(teamID, userID, role string) {
	e.add("member_added %s %s %s", teamID, userID, role)
}

func (e *recordedEvents) MemberRemoved(teamID, userID string) {
	e.add("member_removed %s %s", teamID, userID)
}

func (e *recordedEvents) MemberRoleUpdated(teamID, userID, role string) {
	e.add("role_updated %s %s %s", teamID, userID, role)
}

func (e *recordedEvents) OwnershipTransferred(teamID, fromUserID, toUserID string) {
	e.add("ownership_transferred %s %s %s", teamID, fromUserID, toUserID)
}

func (e *recordedEvents) PlanChanged(teamID, planID string, isTeamPlan bool, _ *string) {
	e.add("plan_changed %s %s %t", teamID, planID, isTeamPlan)
}

func (e *recordedEvents) InvitationReceived(userID, invitationID, _, role string) {
	e.add("invitation_received %s %s %s", userID, invitationID, role)
}

func (e *recordedEvents) snapshot() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.events...)
}

type fakeSessions struct {
	mu      sync.Mutex
	cleared []string
	err     error
}

func (s *fakeSessions) DeleteUserSessions(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleared = append(s.cleared, userID)
	return s.err
}

type countingRecorder struct {
	mu     sync.Mutex
	counts map[string]int
}

func (r *countingRecorder) ObserveTransition(operation, code string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.counts == nil {
		r.counts = map[string]int{}
	}
	r.counts[operation+"/"+code]++
}

func (r *countingRecorder) count(key string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[key]
}

// ============================================
// Environment
// ============================================

type testEnv struct {
	store    *memory.Store
	svc      *Services
	clock    *fakeClock
	notifier *fakeNotifier
	events   *recordedEvents
	sessions *fakeSessions
	recorder *countingRecorder
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	clock := newFakeClock()
	store := memory.New(memory.WithClock(clock.Now))
	env := &testEnv{
		store:    store,
		clock:    clock,
		notifier: &fakeNotifier{},
		events:   &recordedEvents{},
		sessions: &fakeSessions{},
		recorder: &countingRecorder{},
	}
	env.svc = NewServices(&ServiceDeps{
		Store:         store,
		Queries:       store,
		InvitationTTL: 7 * 24 * time.Hour,
		Notifier:      env.notifier,
		Events:        env.events,
		Sessions:      env.sessions,
		Recorder:      env.recorder,
		Clock:         clock.Now,
	})
	return env
}

// signUp creates a user with a personal team. An empty email makes a
// wallet-only account.
func (env *testEnv) signUp(t *testing.T, name, email string) Identity {
	t.Helper()
	id := Identity{UserID: uuidFor(name), Name: name, IP: "10.0.0.1"}
	if email != "" {
		id.Email = &email
	} else {
		wallet := "0x" + name
		id.WalletAddress = &wallet
	}
	_, err := env.svc.Accounts.Bootstrap(context.Background(), id)
	require.NoError(t, err)
	env.clock.Advance(time.Minute)
	return id
}

// join has owner invite the invitee's address and the invitee accept by token.
func (env *testEnv) join(t *testing.T, owner, invitee Identity, role string) {
	t.Helper()
	ctx := context.Background()
	require.NotNil(t, invitee.Email)
	_, err := env.svc.Invitations.Invite(ctx, owner, *invitee.Email, role)
	require.NoError(t, err)
	require.NoError(t, env.svc.Invitations.Accept(ctx, invitee, env.notifier.lastToken(t), ""))
	env.clock.Advance(24 * time.Hour)
}

func (env *testEnv) currentTeam(t *testing.T, id Identity) *repository.Team {
	t.Helper()
	team, err := env.svc.Queries.CurrentTeam(context.Background(), id)
	require.NoError(t, err)
	return team
}

func (env *testEnv) memberships(t *testing.T, userID string) []*repository.Membership {
	t.Helper()
	memberships, err := env.store.FindMemberships(context.Background(), userID)
	require.NoError(t, err)
	return memberships
}

func (env *testEnv) member(t *testing.T, teamID, userID string) *repository.TeamMember {
	t.Helper()
	team, err := env.store.FindTeamWithMembers(context.Background(), teamID)
	require.NoError(t, err)
	require.NotNil(t, team)
	for _, m := range team.Members {
		if m.UserID == userID {
			return m
		}
	}
	return nil
}

func (env *testEnv) invitation(t *testing.T, id string) *repository.Invitation {
	t.Helper()
	var inv *repository.Invitation
	err := env.store.WithinTx(context.Background(), func(r *repository.Repos) error {
		var err error
		inv, err = r.Invitations.FindByID(context.Background(), id)
		return err
	})
	require.NoError(t, err)
	return inv
}

// fundTeam attaches a paid team plan paid for by userID.
func (env *testEnv) fundTeam(t *testing.T, teamID, userID, planID string) {
	t.Helper()
	ctx := context.Background()
	err := env.store.WithinTx(ctx, func(r *repository.Repos) error {
		team, err := r.Teams.FindByID(ctx, teamID)
		if err != nil {
			return err
		}
		if team == nil {
			return errors.New("team not found")
		}
		grant := &planGrant{PlanID: planID}
		grant.applyTo(team, userID)
		return r.Teams.UpdatePlan(ctx, team)
	})
	require.NoError(t, err)
}

func (env *testEnv) addPayment(t *testing.T, userID, teamID, status string) {
	t.Helper()
	ctx := context.Background()
	err := env.store.WithinTx(ctx, func(r *repository.Repos) error {
		return r.Payments.Create(ctx, &repository.PaymentHistory{
			UserID:   userID,
			TeamID:   teamID,
			PlanID:   types.PlanPro,
			Status:   status,
			Currency: "USD",
		})
	})
	require.NoError(t, err)
}

func (env *testEnv) activityActions(teamID string) []types.ActivityType {
	var actions []types.ActivityType
	for _, a := range env.store.Activities() {
		if a.TeamID != nil && *a.TeamID == teamID {
			actions = append(actions, a.Action)
		}
	}
	return actions
}

func uuidFor(name string) string {
	return fmt.Sprintf("00000000-0000-4000-8000-%012x", hashName(name))
}

func hashName(name string) uint64 {
	var h uint64 = 1469598103934665603
	for i := 0; i < len(name); i++ {
		h ^= uint64(name[i])
		h *= 1099511628211
	}
	return h & 0xffffffffffff
}

func ptr(s string) *string {
	return &s
}
