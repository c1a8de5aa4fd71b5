package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

const invitationColumns = `id, team_id, invited_by_user_id, email, role, token_hash, status, expires_at, accepted_at, created_at`

type sqlInvitationRepository struct {
	q sqlx.ExtContext
}

func (r *sqlInvitationRepository) Create(ctx context.Context, invitation *Invitation) error {
	query := `
		INSERT INTO team_invitations (team_id, invited_by_user_id, email, role, token_hash, status, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`
	err := r.q.QueryRowxContext(ctx, query,
		invitation.TeamID, invitation.InvitedByUserID, invitation.Email, invitation.Role,
		invitation.TokenHash, invitation.Status, invitation.ExpiresAt,
	).Scan(&invitation.ID, &invitation.CreatedAt)
	if IsUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (r *sqlInvitationRepository) FindByID(ctx context.Context, id string) (*Invitation, error) {
	return r.findOne(ctx, `SELECT `+invitationColumns+` FROM team_invitations WHERE id = $1`, id)
}

func (r *sqlInvitationRepository) FindByTokenHash(ctx context.Context, tokenHash string) (*Invitation, error) {
	return r.findOne(ctx, `SELECT `+invitationColumns+` FROM team_invitations WHERE token_hash = $1`, tokenHash)
}

func (r *sqlInvitationRepository) FindPending(ctx context.Context, teamID, email string) (*Invitation, error) {
	query := `
		SELECT ` + invitationColumns + `
		FROM team_invitations
		WHERE team_id = $1 AND lower(email) = lower($2) AND status = 'pending'
	`
	return r.findOne(ctx, query, teamID, email)
}

func (r *sqlInvitationRepository) findOne(ctx context.Context, query string, args ...interface{}) (*Invitation, error) {
	invitation := &Invitation{}
	err := sqlx.GetContext(ctx, r.q, invitation, query, args...)
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return invitation, nil
}

func (r *sqlInvitationRepository) UpdateStatus(ctx context.Context, id, status string, acceptedAt *time.Time) error {
	query := `UPDATE team_invitations SET status = $2, accepted_at = $3 WHERE id = $1`
	_, err := r.q.ExecContext(ctx, query, id, status, acceptedAt)
	return err
}

func (r *sqlInvitationRepository) DeletePending(ctx context.Context, id string) (bool, error) {
	result, err := r.q.ExecContext(ctx, `DELETE FROM team_invitations WHERE id = $1 AND status = 'pending'`, id)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	return affected > 0, err
}

func (r *sqlInvitationRepository) DeleteByTeam(ctx context.Context, teamID string) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM team_invitations WHERE team_id = $1`, teamID)
	return err
}

func (r *sqlInvitationRepository) DeleteByInviter(ctx context.Context, userID string) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM team_invitations WHERE invited_by_user_id = $1`, userID)
	return err
}

func (r *sqlInvitationRepository) DeleteByEmail(ctx context.Context, email string) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM team_invitations WHERE lower(email) = lower($1)`, email)
	return err
}

func (r *sqlInvitationRepository) ExpirePending(ctx context.Context, now time.Time) (int, error) {
	query := `UPDATE team_invitations SET status = 'expired' WHERE status = 'pending' AND expires_at <= $1`
	result, err := r.q.ExecContext(ctx, query, now)
	if err != nil {
		return 0, err
	}
	affected, err := result.RowsAffected()
	return int(affected), err
}
