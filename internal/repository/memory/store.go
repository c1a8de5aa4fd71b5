// Package memory provides an in-process Store with copy-on-write transactions.
// It enforces the same unique keys and membership constraints as the
// PostgreSQL schema, checked when a unit of work commits.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/Marga-Ghale/teamhub-backend/internal/repository"
	"github.com/Marga-Ghale/teamhub-backend/internal/types"
)

// Store keeps all rows in memory. Transactions are serialized by a mutex and
// applied only if fn succeeds and the resulting state passes the constraints.
type Store struct {
	mu    sync.Mutex
	state *state
	clock func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for generated timestamps.
func WithClock(clock func() time.Time) Option {
	return func(s *Store) { s.clock = clock }
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{state: newState(), clock: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var (
	_ repository.Store           = (*Store)(nil)
	_ repository.QueryRepository = (*Store)(nil)
)

// WithinTx runs fn against a private copy of the state and swaps it in on success.
func (s *Store) WithinTx(ctx context.Context, fn func(r *repository.Repos) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	working := s.state.clone()
	if err := fn(working.repos(s.clock)); err != nil {
		return err
	}
	if err := working.checkConstraints(); err != nil {
		return err
	}
	s.state = working
	return nil
}

// ============================================
// State
// ============================================

type state struct {
	users       map[string]repository.User
	teams       map[string]repository.Team
	members     map[string]repository.TeamMember
	invitations map[string]repository.Invitation
	activities  []repository.ActivityLog
	payments    map[string]repository.PaymentHistory

	// insertion order, used to break timestamp ties
	order map[string]int64
	seq   int64
}

func newState() *state {
	return &state{
		users:       map[string]repository.User{},
		teams:       map[string]repository.Team{},
		members:     map[string]repository.TeamMember{},
		invitations: map[string]repository.Invitation{},
		payments:    map[string]repository.PaymentHistory{},
		order:       map[string]int64{},
	}
}

func (st *state) clone() *state {
	c := &state{
		users:       make(map[string]repository.User, len(st.users)),
		teams:       make(map[string]repository.Team, len(st.teams)),
		members:     make(map[string]repository.TeamMember, len(st.members)),
		invitations: make(map[string]repository.Invitation, len(st.invitations)),
		activities:  append([]repository.ActivityLog(nil), st.activities...),
		payments:    make(map[string]repository.PaymentHistory, len(st.payments)),
		order:       make(map[string]int64, len(st.order)),
		seq:         st.seq,
	}
	for k, v := range st.users {
		c.users[k] = v
	}
	for k, v := range st.teams {
		c.teams[k] = v
	}
	for k, v := range st.members {
		c.members[k] = v
	}
	for k, v := range st.invitations {
		c.invitations[k] = v
	}
	for k, v := range st.payments {
		c.payments[k] = v
	}
	for k, v := range st.order {
		c.order[k] = v
	}
	return c
}

func (st *state) track(id string) {
	st.seq++
	st.order[id] = st.seq
}

func (st *state) repos(clock func() time.Time) *repository.Repos {
	return &repository.Repos{
		Users:       &userRepo{st: st, clock: clock},
		Teams:       &teamRepo{st: st, clock: clock},
		Invitations: &invitationRepo{st: st, clock: clock},
		Activities:  &activityRepo{st: st, clock: clock},
		Payments:    &paymentRepo{st: st, clock: clock},
	}
}

// checkConstraints mirrors the deferred membership triggers of the schema.
func (st *state) checkConstraints() error {
	counts := map[string]int{}
	owners := map[string]int{}
	for _, m := range st.members {
		counts[m.TeamID]++
		if m.Role == types.RoleOwner {
			owners[m.TeamID]++
		}
	}
	for teamID := range counts {
		if owners[teamID] == 0 {
			return repository.ErrMembershipConstraint
		}
	}

	shared := map[string]int{}
	for _, m := range st.members {
		if counts[m.TeamID] > 1 {
			shared[m.UserID]++
			if shared[m.UserID] > 1 {
				return repository.ErrMembershipConstraint
			}
		}
	}
	return nil
}

func (st *state) memberCount(teamID string) int {
	n := 0
	for _, m := range st.members {
		if m.TeamID == teamID {
			n++
		}
	}
	return n
}
