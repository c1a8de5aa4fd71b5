package repository

import (
	"context"

	"github.com/jmoiron/sqlx"
)

const teamColumns = `id, name, plan_id, is_team_plan, team_owner_id, subscription_expires_at, created_at, updated_at`

const memberColumns = `id, team_id, user_id, role, joined_at`

// ============================================
// PostgreSQL Team Repository Implementation
// ============================================

type sqlTeamRepository struct {
	q sqlx.ExtContext
}

func (r *sqlTeamRepository) Create(ctx context.Context, team *Team) error {
	query := `
		INSERT INTO teams (name, plan_id, is_team_plan, team_owner_id, subscription_expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`
	return r.q.QueryRowxContext(ctx, query,
		team.Name, team.PlanID, team.IsTeamPlan, team.TeamOwnerID, team.SubscriptionExpiresAt,
	).Scan(&team.ID, &team.CreatedAt, &team.UpdatedAt)
}

func (r *sqlTeamRepository) FindByID(ctx context.Context, id string) (*Team, error) {
	return r.findOne(ctx, `SELECT `+teamColumns+` FROM teams WHERE id = $1`, id)
}

func (r *sqlTeamRepository) FindByIDForUpdate(ctx context.Context, id string) (*Team, error) {
	return r.findOne(ctx, `SELECT `+teamColumns+` FROM teams WHERE id = $1 FOR UPDATE`, id)
}

func (r *sqlTeamRepository) findOne(ctx context.Context, query, id string) (*Team, error) {
	team := &Team{}
	err := sqlx.GetContext(ctx, r.q, team, query, id)
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return team, nil
}

func (r *sqlTeamRepository) FindTeamPlansFundedBy(ctx context.Context, userID string) ([]*Team, error) {
	query := `
		SELECT ` + teamColumns + `
		FROM teams
		WHERE is_team_plan AND team_owner_id = $1
		ORDER BY created_at, id
	`
	var teams []*Team
	if err := sqlx.SelectContext(ctx, r.q, &teams, query, userID); err != nil {
		return nil, err
	}
	return teams, nil
}

func (r *sqlTeamRepository) UpdatePlan(ctx context.Context, team *Team) error {
	query := `
		UPDATE teams
		SET plan_id = $2, is_team_plan = $3, team_owner_id = $4, subscription_expires_at = $5, updated_at = NOW()
		WHERE id = $1
	`
	_, err := r.q.ExecContext(ctx, query,
		team.ID, team.PlanID, team.IsTeamPlan, team.TeamOwnerID, team.SubscriptionExpiresAt,
	)
	return err
}

func (r *sqlTeamRepository) Delete(ctx context.Context, id string) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM teams WHERE id = $1`, id)
	return err
}

// ============================================
// Member operations
// ============================================

func (r *sqlTeamRepository) AddMember(ctx context.Context, member *TeamMember) error {
	query := `
		INSERT INTO team_members (team_id, user_id, role)
		VALUES ($1, $2, $3)
		RETURNING id, joined_at
	`
	err := r.q.QueryRowxContext(ctx, query, member.TeamID, member.UserID, member.Role).
		Scan(&member.ID, &member.JoinedAt)
	if IsUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (r *sqlTeamRepository) FindMemberByID(ctx context.Context, id string) (*TeamMember, error) {
	return r.findMember(ctx, `SELECT `+memberColumns+` FROM team_members WHERE id = $1`, id)
}

func (r *sqlTeamRepository) FindMember(ctx context.Context, teamID, userID string) (*TeamMember, error) {
	return r.findMember(ctx, `SELECT `+memberColumns+` FROM team_members WHERE team_id = $1 AND user_id = $2`, teamID, userID)
}

func (r *sqlTeamRepository) findMember(ctx context.Context, query string, args ...interface{}) (*TeamMember, error) {
	member := &TeamMember{}
	err := sqlx.GetContext(ctx, r.q, member, query, args...)
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return member, nil
}

func (r *sqlTeamRepository) FindMembers(ctx context.Context, teamID string) ([]*TeamMember, error) {
	query := `
		SELECT ` + memberColumns + `
		FROM team_members
		WHERE team_id = $1
		ORDER BY joined_at, id
	`
	var members []*TeamMember
	if err := sqlx.SelectContext(ctx, r.q, &members, query, teamID); err != nil {
		return nil, err
	}
	return members, nil
}

func (r *sqlTeamRepository) FindMemberships(ctx context.Context, userID string) ([]*Membership, error) {
	var memberships []*Membership
	if err := sqlx.SelectContext(ctx, r.q, &memberships, membershipsQuery, userID); err != nil {
		return nil, err
	}
	return memberships, nil
}

const membershipsQuery = `
	SELECT tm.id, tm.team_id, tm.user_id, tm.role, tm.joined_at,
	       (SELECT COUNT(*) FROM team_members c WHERE c.team_id = tm.team_id) AS member_count
	FROM team_members tm
	WHERE tm.user_id = $1
	ORDER BY tm.joined_at, tm.id
`

func (r *sqlTeamRepository) CountMembers(ctx context.Context, teamID string) (int, error) {
	var count int
	err := sqlx.GetContext(ctx, r.q, &count, `SELECT COUNT(*) FROM team_members WHERE team_id = $1`, teamID)
	return count, err
}

func (r *sqlTeamRepository) UpdateMemberRole(ctx context.Context, memberID, role string) error {
	_, err := r.q.ExecContext(ctx, `UPDATE team_members SET role = $2 WHERE id = $1`, memberID, role)
	return err
}

func (r *sqlTeamRepository) RemoveMember(ctx context.Context, memberID string) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM team_members WHERE id = $1`, memberID)
	return err
}

func (r *sqlTeamRepository) RemoveMembersByTeam(ctx context.Context, teamID string) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM team_members WHERE team_id = $1`, teamID)
	return err
}
