package repository

import (
	"context"
	"time"

	"github.com/Marga-Ghale/teamhub-backend/internal/types"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// ============================================
// PostgreSQL Read Model
// ============================================

type pgQueryRepository struct {
	pool *pgxpool.Pool
}

// NewQueryRepository creates the pgxpool-backed read model.
func NewQueryRepository(pool *pgxpool.Pool) QueryRepository {
	return &pgQueryRepository{pool: pool}
}

func (r *pgQueryRepository) FindUser(ctx context.Context, id string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	user := &User{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&user.ID, &user.Name, &user.Email, &user.EmailVerified, &user.WalletAddress,
		&user.Role, &user.CreatedAt, &user.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *pgQueryRepository) FindTeamWithMembers(ctx context.Context, teamID string) (*Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams WHERE id = $1`
	team := &Team{}
	err := r.pool.QueryRow(ctx, query, teamID).Scan(
		&team.ID, &team.Name, &team.PlanID, &team.IsTeamPlan, &team.TeamOwnerID,
		&team.SubscriptionExpiresAt, &team.CreatedAt, &team.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	membersQuery := `
		SELECT tm.id, tm.team_id, tm.user_id, tm.role, tm.joined_at,
		       u.id, u.name, u.email, u.email_verified, u.wallet_address, u.role
		FROM team_members tm
		INNER JOIN users u ON tm.user_id = u.id
		WHERE tm.team_id = $1
		ORDER BY tm.joined_at, tm.id
	`
	rows, err := r.pool.Query(ctx, membersQuery, teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		member := &TeamMember{User: &User{}}
		if err := rows.Scan(
			&member.ID, &member.TeamID, &member.UserID, &member.Role, &member.JoinedAt,
			&member.User.ID, &member.User.Name, &member.User.Email, &member.User.EmailVerified,
			&member.User.WalletAddress, &member.User.Role,
		); err != nil {
			return nil, err
		}
		team.Members = append(team.Members, member)
	}
	return team, rows.Err()
}

func (r *pgQueryRepository) FindMemberships(ctx context.Context, userID string) ([]*Membership, error) {
	rows, err := r.pool.Query(ctx, membershipsQuery, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var memberships []*Membership
	for rows.Next() {
		m := &Membership{}
		if err := rows.Scan(&m.ID, &m.TeamID, &m.UserID, &m.Role, &m.JoinedAt, &m.MemberCount); err != nil {
			return nil, err
		}
		memberships = append(memberships, m)
	}
	return memberships, rows.Err()
}

func (r *pgQueryRepository) FindPendingInvitationsByEmail(ctx context.Context, email string, now time.Time) ([]*Invitation, error) {
	query := `
		SELECT ` + invitationColumns + `
		FROM team_invitations
		WHERE lower(email) = lower($1) AND status = 'pending' AND expires_at > $2
		ORDER BY created_at DESC
	`
	rows, err := r.pool.Query(ctx, query, email, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invitations []*Invitation
	for rows.Next() {
		inv := &Invitation{}
		if err := rows.Scan(
			&inv.ID, &inv.TeamID, &inv.InvitedByUserID, &inv.Email, &inv.Role, &inv.TokenHash,
			&inv.Status, &inv.ExpiresAt, &inv.AcceptedAt, &inv.CreatedAt,
		); err != nil {
			return nil, err
		}
		invitations = append(invitations, inv)
	}
	return invitations, rows.Err()
}

func (r *pgQueryRepository) FindActivityByTeam(ctx context.Context, teamID string, limit int) ([]*ActivityLog, error) {
	query := `
		SELECT id, team_id, user_id, action, ip_address, timestamp
		FROM activity_logs
		WHERE team_id = $1
		ORDER BY timestamp DESC
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, teamID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []*ActivityLog
	for rows.Next() {
		a := &ActivityLog{}
		var action string
		if err := rows.Scan(&a.ID, &a.TeamID, &a.UserID, &action, &a.IPAddress, &a.Timestamp); err != nil {
			return nil, err
		}
		a.Action = types.ActivityType(action)
		logs = append(logs, a)
	}
	return logs, rows.Err()
}

func (r *pgQueryRepository) FindPaymentsByUser(ctx context.Context, userID string) ([]*PaymentHistory, error) {
	query := `
		SELECT id, user_id, team_id, plan_id, status, amount::text, currency, created_at
		FROM payment_history
		WHERE user_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []*PaymentHistory
	for rows.Next() {
		p := &PaymentHistory{}
		var amount string
		if err := rows.Scan(&p.ID, &p.UserID, &p.TeamID, &p.PlanID, &p.Status, &amount, &p.Currency, &p.CreatedAt); err != nil {
			return nil, err
		}
		if p.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}
