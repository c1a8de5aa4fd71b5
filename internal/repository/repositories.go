package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

const (
	// SQLSTATE codes after which a transaction is safe to replay.
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"

	defaultTxAttempts = 3
)

// SQLStore runs units of work in SERIALIZABLE PostgreSQL transactions.
type SQLStore struct {
	db       *sqlx.DB
	log      *zap.SugaredLogger
	attempts int
}

// NewSQLStore creates a transactional store on top of db.
func NewSQLStore(db *sqlx.DB, log *zap.SugaredLogger) *SQLStore {
	return &SQLStore{db: db, log: log, attempts: defaultTxAttempts}
}

// newRepos binds every repository to the same transaction.
func newRepos(q sqlx.ExtContext) *Repos {
	return &Repos{
		Users:       &sqlUserRepository{q: q},
		Teams:       &sqlTeamRepository{q: q},
		Invitations: &sqlInvitationRepository{q: q},
		Activities:  &sqlActivityRepository{q: q},
		Payments:    &sqlPaymentRepository{q: q},
	}
}

// WithinTx runs fn in a transaction, replaying it when PostgreSQL aborts the
// transaction because of a serialization conflict or deadlock.
func (s *SQLStore) WithinTx(ctx context.Context, fn func(r *Repos) error) error {
	var err error
	for attempt := 1; attempt <= s.attempts; attempt++ {
		err = s.runTx(ctx, fn)
		if !isRetryable(err) {
			return err
		}
		s.log.Warnw("Retrying conflicted transaction", "attempt", attempt, "error", err)
	}
	return err
}

func (s *SQLStore) runTx(ctx context.Context, fn func(r *Repos) error) (err error) {
	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(newRepos(tx)); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == pgSerializationFailure || pgErr.Code == pgDeadlockDetected
}

var (
	// ErrDuplicate is returned when a write collides with a unique key.
	ErrDuplicate = errors.New("repository: duplicate record")
	// ErrMembershipConstraint is returned when a commit would leave a user in
	// two shared teams or a populated team without an owner.
	ErrMembershipConstraint = errors.New("repository: membership constraint violated")
)

// IsUniqueViolation reports whether err came from a unique constraint.
func IsUniqueViolation(err error) bool {
	if errors.Is(err, ErrDuplicate) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// IsConstraintViolation reports whether err came from the membership
// constraint triggers (raised with SQLSTATE 23514).
func IsConstraintViolation(err error) bool {
	if errors.Is(err, ErrMembershipConstraint) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23514"
}

func notFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
