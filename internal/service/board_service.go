package service

import (
	"context"
	"fmt"
	"strings"

	"deepfocus/internal/clock"
	"deepfocus/internal/database"
	"deepfocus/internal/models"
	"deepfocus/internal/repository"
	"deepfocus/internal/validation"
)

// BoardService handles kanban boards and their groups
type BoardService struct {
	db      *database.DB
	boards  *repository.BoardRepository
	teams   *repository.TeamRepository
	billing *BillingService
	audit   *AuditService
	clock   clock.Clock
}

// NewBoardService creates a new board service
func NewBoardService(db *database.DB, billing *BillingService, audit *AuditService, c clock.Clock) *BoardService {
	return &BoardService{
		db:      db,
		boards:  repository.NewBoardRepository(db),
		teams:   repository.NewTeamRepository(db),
		billing: billing,
		audit:   audit,
		clock:   c,
	}
}

// BoardInput is the create payload
type BoardInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	TeamID      *int64 `json:"team_id"`
}

// BoardUpdate is a partial update; nil fields are left alone
type BoardUpdate struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

// GroupInput is the create payload for a group
type GroupInput struct {
	Name      string `json:"name"`
	Color     string `json:"color"`
	SortOrder int    `json:"sort_order"`
}

// GroupUpdate is a partial update; nil fields are left alone
type GroupUpdate struct {
	Name      *string `json:"name"`
	Color     *string `json:"color"`
	SortOrder *int    `json:"sort_order"`
}

type boardAccess struct {
	read, write, admin bool
}

// access resolves what userID may do on b: the owner may do anything, team
// members may read, non-viewers may write and team owners and admins manage.
func (s *BoardService) access(ctx context.Context, userID int64, b *models.Board) (boardAccess, error) {
	if b.UserID == userID {
		return boardAccess{true, true, true}, nil
	}
	if b.TeamID == nil {
		return boardAccess{}, nil
	}
	m, err := s.teams.GetMember(ctx, *b.TeamID, userID)
	if err != nil || m == nil {
		return boardAccess{}, err
	}
	return boardAccess{
		read:  true,
		write: m.Role != models.RoleViewer,
		admin: m.Role == models.RoleOwner || m.Role == models.RoleAdmin,
	}, nil
}

// board loads a board and checks access. Boards the user cannot read are
// reported as not found.
func (s *BoardService) board(ctx context.Context, userID, boardID int64, need func(boardAccess) bool) (*models.Board, error) {
	b, err := s.boards.GetByID(ctx, boardID)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, ErrNotFound
	}
	acc, err := s.access(ctx, userID, b)
	if err != nil {
		return nil, err
	}
	if !acc.read {
		return nil, ErrNotFound
	}
	if !need(acc) {
		return nil, ErrForbidden
	}
	return b, nil
}

func canRead(a boardAccess) bool   { return a.read }
func canWrite(a boardAccess) bool  { return a.write }
func canManage(a boardAccess) bool { return a.admin }

// Create makes a board owned by userID, subject to the plan's board quota
func (s *BoardService) Create(ctx context.Context, userID int64, in BoardInput) (*models.Board, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := validation.ValidateTitle("name", in.Name, validation.MaxBoardNameLength); err != nil {
		return nil, err
	}
	if in.TeamID != nil {
		m, err := s.teams.GetMember(ctx, *in.TeamID, userID)
		if err != nil {
			return nil, err
		}
		if m == nil || m.Role == models.RoleViewer {
			return nil, ErrForbidden
		}
	}

	board := &models.Board{
		Name:        in.Name,
		Description: in.Description,
		UserID:      userID,
		TeamID:      in.TeamID,
		CreatedAt:   s.clock.Now(),
	}
	err := s.db.InTx(ctx, func(tx *database.Tx) error {
		boards := s.boards.WithTx(tx)
		owned, err := boards.CountOwned(ctx, userID)
		if err != nil {
			return err
		}
		if err := s.billing.CheckBoardQuota(ctx, userID, owned); err != nil {
			return err
		}
		return boards.Create(ctx, board)
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, userID, "board.create", "board", &board.ID, map[string]interface{}{"name": board.Name})
	return board, nil
}

// Get returns a board with its groups
func (s *BoardService) Get(ctx context.Context, userID, boardID int64) (*models.BoardWithGroups, error) {
	b, err := s.board(ctx, userID, boardID, canRead)
	if err != nil {
		return nil, err
	}
	groups, err := s.boards.ListGroups(ctx, b.ID)
	if err != nil {
		return nil, err
	}
	return &models.BoardWithGroups{Board: *b, Groups: groups}, nil
}

// List returns the boards the user owns or shares through a team
func (s *BoardService) List(ctx context.Context, userID int64, limit, offset int) ([]models.Board, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return s.boards.ListAccessible(ctx, userID, limit, offset)
}

// Update applies a partial update to a board
func (s *BoardService) Update(ctx context.Context, userID, boardID int64, in BoardUpdate) (*models.Board, error) {
	b, err := s.board(ctx, userID, boardID, canManage)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if err := validation.ValidateTitle("name", name, validation.MaxBoardNameLength); err != nil {
			return nil, err
		}
		b.Name = name
	}
	if in.Description != nil {
		b.Description = *in.Description
	}
	b.UpdatedAt = s.clock.Now()
	if err := s.boards.Update(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// Delete removes a board. Only its owner may do so.
func (s *BoardService) Delete(ctx context.Context, userID, boardID int64) error {
	b, err := s.board(ctx, userID, boardID, canRead)
	if err != nil {
		return err
	}
	if b.UserID != userID {
		return ErrForbidden
	}
	if err := s.boards.Delete(ctx, b.ID); err != nil {
		return err
	}
	s.audit.Record(ctx, userID, "board.delete", "board", &b.ID, map[string]interface{}{"name": b.Name})
	return nil
}

// CreateGroup adds a column to a board
func (s *BoardService) CreateGroup(ctx context.Context, userID, boardID int64, in GroupInput) (*models.Group, error) {
	b, err := s.board(ctx, userID, boardID, canWrite)
	if err != nil {
		return nil, err
	}
	in.Name = strings.TrimSpace(in.Name)
	if err := validation.ValidateTitle("name", in.Name, validation.MaxGroupNameLength); err != nil {
		return nil, err
	}
	if in.Color == "" {
		in.Color = "#6366f1"
	}
	if err := validation.ValidateColor(in.Color); err != nil {
		return nil, err
	}

	g := &models.Group{
		Name:      in.Name,
		Color:     in.Color,
		SortOrder: in.SortOrder,
		BoardID:   b.ID,
		CreatedAt: s.clock.Now(),
	}
	if err := s.boards.CreateGroup(ctx, g); err != nil {
		return nil, err
	}
	return g, nil
}

// group loads a group and checks access through its board
func (s *BoardService) group(ctx context.Context, userID, groupID int64, need func(boardAccess) bool) (*models.Group, error) {
	g, err := s.boards.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, ErrNotFound
	}
	if _, err := s.board(ctx, userID, g.BoardID, need); err != nil {
		return nil, err
	}
	return g, nil
}

// UpdateGroup applies a partial update to a group
func (s *BoardService) UpdateGroup(ctx context.Context, userID, groupID int64, in GroupUpdate) (*models.Group, error) {
	g, err := s.group(ctx, userID, groupID, canWrite)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if err := validation.ValidateTitle("name", name, validation.MaxGroupNameLength); err != nil {
			return nil, err
		}
		g.Name = name
	}
	if in.Color != nil {
		if err := validation.ValidateColor(*in.Color); err != nil {
			return nil, err
		}
		g.Color = *in.Color
	}
	if in.SortOrder != nil {
		g.SortOrder = *in.SortOrder
	}
	g.UpdatedAt = s.clock.Now()
	if err := s.boards.UpdateGroup(ctx, g); err != nil {
		return nil, err
	}
	return g, nil
}

// DeleteGroup removes a group and, by cascade, its tasks
func (s *BoardService) DeleteGroup(ctx context.Context, userID, groupID int64) error {
	g, err := s.group(ctx, userID, groupID, canWrite)
	if err != nil {
		return err
	}
	if err := s.boards.DeleteGroup(ctx, g.ID); err != nil {
		return fmt.Errorf("failed to delete group %d: %w", g.ID, err)
	}
	return nil
}

// AuthorizeGroup checks that userID may file tasks under groupID
func (s *BoardService) AuthorizeGroup(ctx context.Context, userID, groupID int64) error {
	_, err := s.group(ctx, userID, groupID, canWrite)
	return err
}
