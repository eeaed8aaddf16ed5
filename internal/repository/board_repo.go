package repository

import (
	"context"
	"database/sql"
	"fmt"

	"deepfocus/internal/database"
	"deepfocus/internal/models"
)

// BoardRepository handles database operations for boards and their groups
type BoardRepository struct {
	db database.Querier
}

// NewBoardRepository creates a new board repository
func NewBoardRepository(db database.Querier) *BoardRepository {
	return &BoardRepository{db: db}
}

// WithTx returns a copy of the repository bound to tx
func (r *BoardRepository) WithTx(tx database.Querier) *BoardRepository {
	return &BoardRepository{db: tx}
}

const boardColumns = `id, name, COALESCE(description, ''), user_id, team_id, created_at, updated_at`

func scanBoard(row interface{ Scan(...interface{}) error }) (*models.Board, error) {
	b := &models.Board{}
	err := row.Scan(&b.ID, &b.Name, &b.Description, &b.UserID, &b.TeamID, &b.CreatedAt, &b.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan board: %w", err)
	}
	return b, nil
}

// Create inserts a board and fills in its ID
func (r *BoardRepository) Create(ctx context.Context, b *models.Board) error {
	createdAt, err := stamp(b.CreatedAt)
	if err != nil {
		return err
	}
	b.UpdatedAt = createdAt

	query := `INSERT INTO boards (name, description, user_id, team_id, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`
	id, err := r.db.ExecReturningID(ctx, query, b.Name, b.Description, b.UserID, b.TeamID, createdAt, createdAt)
	if err != nil {
		return fmt.Errorf("failed to create board: %w", err)
	}
	b.ID = id
	return nil
}

// GetByID retrieves a board without any access check
func (r *BoardRepository) GetByID(ctx context.Context, id int64) (*models.Board, error) {
	return scanBoard(r.db.QueryRowContext(ctx, "SELECT "+boardColumns+" FROM boards WHERE id = ?", id))
}

// ListAccessible returns boards the user owns or that belong to one of the user's teams
func (r *BoardRepository) ListAccessible(ctx context.Context, userID int64, limit, offset int) ([]models.Board, error) {
	query := "SELECT " + boardColumns + ` FROM boards
		WHERE user_id = ? OR team_id IN (SELECT team_id FROM team_members WHERE user_id = ?)
		ORDER BY id
		LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, query, userID, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list boards: %w", err)
	}
	defer rows.Close()

	boards := []models.Board{}
	for rows.Next() {
		b, err := scanBoard(rows)
		if err != nil {
			return nil, err
		}
		boards = append(boards, *b)
	}
	return boards, rows.Err()
}

// CountOwned counts the boards a user created
func (r *BoardRepository) CountOwned(ctx context.Context, userID int64) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM boards WHERE user_id = ?", userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count boards: %w", err)
	}
	return count, nil
}

// Update writes the mutable fields of a board
func (r *BoardRepository) Update(ctx context.Context, b *models.Board) error {
	query := `UPDATE boards SET name = ?, description = ?, team_id = ?, updated_at = ? WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, query, b.Name, b.Description, b.TeamID, b.UpdatedAt, b.ID); err != nil {
		return fmt.Errorf("failed to update board: %w", err)
	}
	return nil
}

// Delete removes a board. Groups and their tasks cascade.
func (r *BoardRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM boards WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete board: %w", err)
	}
	return nil
}

const groupColumns = `id, name, color, sort_order, board_id, created_at, updated_at`

func scanGroup(row interface{ Scan(...interface{}) error }) (*models.Group, error) {
	g := &models.Group{}
	err := row.Scan(&g.ID, &g.Name, &g.Color, &g.SortOrder, &g.BoardID, &g.CreatedAt, &g.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan group: %w", err)
	}
	return g, nil
}

// CreateGroup inserts a group and fills in its ID
func (r *BoardRepository) CreateGroup(ctx context.Context, g *models.Group) error {
	createdAt, err := stamp(g.CreatedAt)
	if err != nil {
		return err
	}
	g.UpdatedAt = createdAt

	query := `INSERT INTO board_groups (name, color, sort_order, board_id, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`
	id, err := r.db.ExecReturningID(ctx, query, g.Name, g.Color, g.SortOrder, g.BoardID, createdAt, createdAt)
	if err != nil {
		return fmt.Errorf("failed to create group: %w", err)
	}
	g.ID = id
	return nil
}

// GetGroup retrieves a group by ID
func (r *BoardRepository) GetGroup(ctx context.Context, id int64) (*models.Group, error) {
	return scanGroup(r.db.QueryRowContext(ctx, "SELECT "+groupColumns+" FROM board_groups WHERE id = ?", id))
}

// ListGroups returns a board's groups in display order
func (r *BoardRepository) ListGroups(ctx context.Context, boardID int64) ([]models.Group, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+groupColumns+" FROM board_groups WHERE board_id = ? ORDER BY sort_order, id", boardID)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	defer rows.Close()

	groups := []models.Group{}
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, err
		}
		groups = append(groups, *g)
	}
	return groups, rows.Err()
}

// UpdateGroup writes the mutable fields of a group
func (r *BoardRepository) UpdateGroup(ctx context.Context, g *models.Group) error {
	query := `UPDATE board_groups SET name = ?, color = ?, sort_order = ?, updated_at = ? WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, query, g.Name, g.Color, g.SortOrder, g.UpdatedAt, g.ID); err != nil {
		return fmt.Errorf("failed to update group: %w", err)
	}
	return nil
}

// DeleteGroup removes a group. Its tasks cascade.
func (r *BoardRepository) DeleteGroup(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM board_groups WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete group: %w", err)
	}
	return nil
}
