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

// TeamService handles teams and their membership
type TeamService struct {
	db    *database.DB
	teams *repository.TeamRepository
	users *repository.UserRepository
	audit *AuditService
	clock clock.Clock
}

// NewTeamService creates a new team service
func NewTeamService(db *database.DB, audit *AuditService, c clock.Clock) *TeamService {
	return &TeamService{
		db:    db,
		teams: repository.NewTeamRepository(db),
		users: repository.NewUserRepository(db),
		audit: audit,
		clock: c,
	}
}

// AddMemberInput names the user to add by email or by ID
type AddMemberInput struct {
	Email  string `json:"email"`
	UserID int64  `json:"user_id"`
	Role   string `json:"role"`
}

// Create makes a team with userID as its owner
func (s *TeamService) Create(ctx context.Context, userID int64, name string) (*models.TeamWithMembers, error) {
	name = strings.TrimSpace(name)
	if err := validation.ValidateTitle("name", name, validation.MaxTeamNameLength); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	team := &models.Team{Name: name, CreatedAt: now}
	owner := models.TeamMember{UserID: userID, Role: models.RoleOwner, JoinedAt: now}
	err := s.db.InTx(ctx, func(tx *database.Tx) error {
		teams := s.teams.WithTx(tx)
		if err := teams.Create(ctx, team); err != nil {
			return err
		}
		owner.TeamID = team.ID
		return teams.AddMember(ctx, &owner)
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, userID, "team.create", "team", &team.ID, map[string]interface{}{"name": name})
	return &models.TeamWithMembers{Team: *team, Members: []models.TeamMember{owner}}, nil
}

// List returns the teams userID belongs to
func (s *TeamService) List(ctx context.Context, userID int64) ([]models.Team, error) {
	return s.teams.ListForUser(ctx, userID)
}

// membership returns the caller's membership. Teams the caller is not in
// are reported as not found.
func (s *TeamService) membership(ctx context.Context, userID, teamID int64) (*models.TeamMember, error) {
	m, err := s.teams.GetMember(ctx, teamID, userID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, ErrNotFound
	}
	return m, nil
}

// Get returns a team with its members. Only members may see it.
func (s *TeamService) Get(ctx context.Context, userID, teamID int64) (*models.TeamWithMembers, error) {
	if _, err := s.membership(ctx, userID, teamID); err != nil {
		return nil, err
	}
	team, err := s.teams.GetByID(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if team == nil {
		return nil, ErrNotFound
	}
	members, err := s.teams.ListMembers(ctx, teamID)
	if err != nil {
		return nil, err
	}
	return &models.TeamWithMembers{Team: *team, Members: members}, nil
}

// AddMember adds a user to the team. Only the team owner may add members.
func (s *TeamService) AddMember(ctx context.Context, actorID, teamID int64, in AddMemberInput) (*models.TeamMember, error) {
	actor, err := s.membership(ctx, actorID, teamID)
	if err != nil {
		return nil, err
	}
	if actor.Role != models.RoleOwner {
		return nil, ErrForbidden
	}

	role := models.RoleMember
	if in.Role != "" {
		role = models.TeamRole(in.Role)
		if err := validation.ValidateRole(role); err != nil {
			return nil, err
		}
	}

	var user *models.User
	switch {
	case in.UserID != 0:
		user, err = s.users.GetByID(ctx, in.UserID)
	case in.Email != "":
		user, err = s.users.GetByEmail(ctx, normalizeEmail(in.Email))
	default:
		return nil, validation.ValidationError{Field: "email", Message: "email or user_id is required"}
	}
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("%w: user", ErrNotFound)
	}

	existing, err := s.teams.GetMember(ctx, teamID, user.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: user is already a member", ErrConflict)
	}

	member := &models.TeamMember{TeamID: teamID, UserID: user.ID, Role: role, JoinedAt: s.clock.Now()}
	if err := s.teams.AddMember(ctx, member); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, fmt.Errorf("%w: user is already a member", ErrConflict)
		}
		return nil, err
	}

	s.audit.Record(ctx, actorID, "team.add_member", "team", &teamID, map[string]interface{}{
		"user_id": user.ID,
		"role":    role,
	})
	return member, nil
}

// RemoveMember removes userID from the team. Owners may remove anyone and
// members may remove themselves; the last owner cannot leave.
func (s *TeamService) RemoveMember(ctx context.Context, actorID, teamID, userID int64) error {
	actor, err := s.membership(ctx, actorID, teamID)
	if err != nil {
		return err
	}
	if actor.Role != models.RoleOwner && actorID != userID {
		return ErrForbidden
	}

	err = s.db.InTx(ctx, func(tx *database.Tx) error {
		teams := s.teams.WithTx(tx)
		target, err := teams.GetMember(ctx, teamID, userID)
		if err != nil {
			return err
		}
		if target == nil {
			return ErrNotFound
		}
		if target.Role == models.RoleOwner {
			members, err := teams.ListMembers(ctx, teamID)
			if err != nil {
				return err
			}
			owners := 0
			for _, m := range members {
				if m.Role == models.RoleOwner {
					owners++
				}
			}
			if owners <= 1 {
				return fmt.Errorf("%w: a team needs at least one owner", ErrConflict)
			}
		}
		_, err = teams.RemoveMember(ctx, teamID, userID)
		return err
	})
	if err != nil {
		return err
	}
	s.audit.Record(ctx, actorID, "team.remove_member", "team", &teamID, map[string]interface{}{"user_id": userID})
	return nil
}
