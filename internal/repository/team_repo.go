package repository

import (
	"context"
	"database/sql"
	"fmt"

	"deepfocus/internal/database"
	"deepfocus/internal/models"
)

// TeamRepository handles database operations for teams and memberships
type TeamRepository struct {
	db database.Querier
}

// NewTeamRepository creates a new team repository
func NewTeamRepository(db database.Querier) *TeamRepository {
	return &TeamRepository{db: db}
}

// WithTx returns a copy of the repository bound to tx
func (r *TeamRepository) WithTx(tx database.Querier) *TeamRepository {
	return &TeamRepository{db: tx}
}

// Create inserts a team and fills in its ID
func (r *TeamRepository) Create(ctx context.Context, team *models.Team) error {
	createdAt, err := stamp(team.CreatedAt)
	if err != nil {
		return err
	}
	team.UpdatedAt = createdAt

	id, err := r.db.ExecReturningID(ctx,
		"INSERT INTO teams (name, created_at, updated_at) VALUES (?, ?, ?)", team.Name, createdAt, createdAt)
	if err != nil {
		return fmt.Errorf("failed to create team: %w", err)
	}
	team.ID = id
	return nil
}

// GetByID retrieves a team by ID
func (r *TeamRepository) GetByID(ctx context.Context, id int64) (*models.Team, error) {
	team := &models.Team{}
	err := r.db.QueryRowContext(ctx, "SELECT id, name, created_at, updated_at FROM teams WHERE id = ?", id).Scan(
		&team.ID,
		&team.Name,
		&team.CreatedAt,
		&team.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get team: %w", err)
	}
	return team, nil
}

// ListForUser retrieves all teams a user belongs to
func (r *TeamRepository) ListForUser(ctx context.Context, userID int64) ([]models.Team, error) {
	query := `
		SELECT t.id, t.name, t.created_at, t.updated_at
		FROM teams t
		INNER JOIN team_members tm ON tm.team_id = t.id
		WHERE tm.user_id = ?
		ORDER BY t.name
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	defer rows.Close()

	teams := []models.Team{}
	for rows.Next() {
		var team models.Team
		if err := rows.Scan(&team.ID, &team.Name, &team.CreatedAt, &team.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan team: %w", err)
		}
		teams = append(teams, team)
	}
	return teams, rows.Err()
}

// AddMember inserts a membership and fills in its ID. A duplicate membership
// violates the unique constraint.
func (r *TeamRepository) AddMember(ctx context.Context, m *models.TeamMember) error {
	joinedAt, err := stamp(m.JoinedAt)
	if err != nil {
		return err
	}
	id, err := r.db.ExecReturningID(ctx,
		"INSERT INTO team_members (team_id, user_id, role, joined_at) VALUES (?, ?, ?, ?)",
		m.TeamID, m.UserID, m.Role, joinedAt)
	if err != nil {
		return fmt.Errorf("failed to add team member: %w", err)
	}
	m.ID = id
	return nil
}

// GetMember returns the user's membership in a team, or nil
func (r *TeamRepository) GetMember(ctx context.Context, teamID, userID int64) (*models.TeamMember, error) {
	m := &models.TeamMember{}
	err := r.db.QueryRowContext(ctx,
		"SELECT id, team_id, user_id, role, joined_at FROM team_members WHERE team_id = ? AND user_id = ?",
		teamID, userID).Scan(&m.ID, &m.TeamID, &m.UserID, &m.Role, &m.JoinedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get team member: %w", err)
	}
	return m, nil
}

// ListMembers returns all members of a team, oldest first
func (r *TeamRepository) ListMembers(ctx context.Context, teamID int64) ([]models.TeamMember, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, team_id, user_id, role, joined_at FROM team_members WHERE team_id = ? ORDER BY joined_at, id", teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to list team members: %w", err)
	}
	defer rows.Close()

	members := []models.TeamMember{}
	for rows.Next() {
		var m models.TeamMember
		if err := rows.Scan(&m.ID, &m.TeamID, &m.UserID, &m.Role, &m.JoinedAt); err != nil {
			return nil, fmt.Errorf("failed to scan team member: %w", err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// RemoveMember deletes a membership
func (r *TeamRepository) RemoveMember(ctx context.Context, teamID, userID int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM team_members WHERE team_id = ? AND user_id = ?", teamID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to remove team member: %w", err)
	}
	return rowsAffected(res)
}
