package repository

import (
	"context"

	"github.com/jmoiron/sqlx"
)

type sqlActivityRepository struct {
	q sqlx.ExtContext
}

func (r *sqlActivityRepository) Create(ctx context.Context, activity *ActivityLog) error {
	query := `
		INSERT INTO activity_logs (team_id, user_id, action, ip_address)
		VALUES ($1, $2, $3, $4)
		RETURNING id, timestamp
	`
	return r.q.QueryRowxContext(ctx, query,
		activity.TeamID, activity.UserID, string(activity.Action), activity.IPAddress,
	).Scan(&activity.ID, &activity.Timestamp)
}

// DeleteByTeam removes the team's history. Used when the team itself is deleted.
func (r *sqlActivityRepository) DeleteByTeam(ctx context.Context, teamID string) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM activity_logs WHERE team_id = $1`, teamID)
	return err
}

func (r *sqlActivityRepository) DeleteByUser(ctx context.Context, userID string) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM activity_logs WHERE user_id = $1`, userID)
	return err
}

// ============================================
// Payment history
// ============================================

const paymentColumns = `id, user_id, team_id, plan_id, status, amount, currency, created_at`

type sqlPaymentRepository struct {
	q sqlx.ExtContext
}

func (r *sqlPaymentRepository) Create(ctx context.Context, payment *PaymentHistory) error {
	query := `
		INSERT INTO payment_history (user_id, team_id, plan_id, status, amount, currency)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`
	return r.q.QueryRowxContext(ctx, query,
		payment.UserID, payment.TeamID, payment.PlanID, payment.Status, payment.Amount, payment.Currency,
	).Scan(&payment.ID, &payment.CreatedAt)
}

func (r *sqlPaymentRepository) FindLatest(ctx context.Context, userID, teamID string) (*PaymentHistory, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payment_history
		WHERE user_id = $1 AND team_id = $2
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`
	payment := &PaymentHistory{}
	err := sqlx.GetContext(ctx, r.q, payment, query, userID, teamID)
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return payment, nil
}

func (r *sqlPaymentRepository) DeleteByTeam(ctx context.Context, teamID string) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM payment_history WHERE team_id = $1`, teamID)
	return err
}

func (r *sqlPaymentRepository) DeleteByUser(ctx context.Context, userID string) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM payment_history WHERE user_id = $1`, userID)
	return err
}
