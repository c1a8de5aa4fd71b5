package repository

import (
	"context"

	"github.com/jmoiron/sqlx"
)

const userColumns = `id, name, email, email_verified, wallet_address, role, created_at, updated_at`

type sqlUserRepository struct {
	q sqlx.ExtContext
}

func (r *sqlUserRepository) Create(ctx context.Context, user *User) error {
	query := `
		INSERT INTO users (id, name, email, email_verified, wallet_address, role)
		VALUES (COALESCE(NULLIF($1, '')::uuid, gen_random_uuid()), $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`
	row := r.q.QueryRowxContext(ctx, query,
		user.ID, user.Name, user.Email, user.EmailVerified, user.WalletAddress, user.Role,
	)
	err := row.Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if IsUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (r *sqlUserRepository) FindByID(ctx context.Context, id string) (*User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *sqlUserRepository) FindByWalletAddress(ctx context.Context, address string) (*User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE lower(wallet_address) = lower($1)`, address)
}

func (r *sqlUserRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email)
}

func (r *sqlUserRepository) findOne(ctx context.Context, query string, arg string) (*User, error) {
	user := &User{}
	err := sqlx.GetContext(ctx, r.q, user, query, arg)
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *sqlUserRepository) UpdateEmail(ctx context.Context, id, email string, verified bool) error {
	query := `UPDATE users SET email = $2, email_verified = $3, updated_at = NOW() WHERE id = $1`
	_, err := r.q.ExecContext(ctx, query, id, email, verified)
	if IsUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (r *sqlUserRepository) Delete(ctx context.Context, id string) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	return err
}
