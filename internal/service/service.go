package service

import (
	"context"
	"time"

	"github.com/Marga-Ghale/teamhub-backend/internal/config"
	"github.com/Marga-Ghale/teamhub-backend/internal/repository"
	"go.uber.org/zap"
)

// ============================================
// Collaborators
// ============================================

// InvitationEmail is everything the Notifier needs to deliver an invitation.
type InvitationEmail struct {
	To             string
	InviterName    string
	TeamName       string
	Role           string
	Token          string
	IsExistingUser bool
}

// VerificationEmail asks a user to confirm an address adopted from an invitation.
type VerificationEmail struct {
	To   string
	Name string
}

// Notifier delivers e-mail. A returned error means the message was not sent.
type Notifier interface {
	SendInvitationEmail(ctx context.Context, msg InvitationEmail) error
	SendVerificationEmail(ctx context.Context, msg VerificationEmail) error
}

// TeamEvents publishes committed membership changes to connected clients.
// Delivery is best effort.
type TeamEvents interface {
	MemberAdded(teamID, userID, role string)
	MemberRemoved(teamID, userID string)
	MemberRoleUpdated(teamID, userID, role string)
	OwnershipTransferred(teamID, fromUserID, toUserID string)
	PlanChanged(teamID, planID string, isTeamPlan bool, teamOwnerID *string)
	InvitationReceived(userID, invitationID, teamName, role string)
}

// SessionRevoker ends every session of a user.
type SessionRevoker interface {
	DeleteUserSessions(ctx context.Context, userID string) error
}

// Recorder counts action outcomes.
type Recorder interface {
	ObserveTransition(operation, code string)
}

// ============================================
// Services Container
// ============================================

type Services struct {
	Invitations InvitationService
	Membership  MembershipService
	Accounts    AccountService
	Queries     QueryService
	Actions     *Actions
}

// ServiceDeps contains all dependencies needed to create services
type ServiceDeps struct {
	Store         repository.Store
	Queries       repository.QueryRepository
	Plans         config.PlanCatalog
	InvitationTTL time.Duration
	Notifier      Notifier
	Events        TeamEvents
	Sessions      SessionRevoker
	Recorder      Recorder
	Log           *zap.SugaredLogger
	Clock         func() time.Time
}

func NewServices(deps *ServiceDeps) *Services {
	e := newEngine(deps)

	invitations := NewInvitationService(e, deps.Notifier, deps.InvitationTTL)
	membership := NewMembershipService(e)
	accounts := NewAccountService(e, deps.Sessions)

	return &Services{
		Invitations: invitations,
		Membership:  membership,
		Accounts:    accounts,
		Queries:     NewQueryService(deps.Queries, deps.Clock),
		Actions:     NewActions(invitations, membership, accounts, deps.Recorder, deps.Log),
	}
}

// ============================================
// Shared transition machinery
// ============================================

// engine holds what every transition needs: the store, the plan catalog, the
// event sink and a clock.
type engine struct {
	store  repository.Store
	plans  config.PlanCatalog
	events TeamEvents
	log    *zap.SugaredLogger
	now    func() time.Time
}

func newEngine(deps *ServiceDeps) *engine {
	e := &engine{
		store:  deps.Store,
		plans:  deps.Plans,
		events: deps.Events,
		log:    deps.Log,
		now:    deps.Clock,
	}
	if e.plans == nil {
		e.plans = config.DefaultPlans()
	}
	if e.events == nil {
		e.events = nopEvents{}
	}
	if e.log == nil {
		e.log = zap.NewNop().Sugar()
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e
}

// afterCommit collects side effects that may only run once the transaction
// has committed.
type afterCommit []func()

func (a *afterCommit) add(fn func()) {
	*a = append(*a, fn)
}

// within runs fn in one transaction. Hooks registered by an attempt that is
// rolled back or retried are discarded.
func (e *engine) within(ctx context.Context, fn func(r *repository.Repos, hooks *afterCommit) error) error {
	var hooks afterCommit
	err := e.store.WithinTx(ctx, func(r *repository.Repos) error {
		hooks = nil
		return fn(r, &hooks)
	})
	if err != nil {
		return err
	}
	for _, hook := range hooks {
		hook()
	}
	return nil
}

type nopEvents struct{}

func (nopEvents) MemberAdded(string, string, string) {}
func (nopEvents) MemberRemoved(string, string) {}
func (nopEvents) MemberRoleUpdated(string, string, string) {}
func (nopEvents) OwnershipTransferred(string, string, string) {}
func (nopEvents) PlanChanged(string, string, bool, *string) {}
func (nopEvents) InvitationReceived(string, string, string, string) {}
