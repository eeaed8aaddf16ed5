package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"deepfocus/internal/database"
	"deepfocus/internal/models"
)

// UserRepository handles database operations for users
type UserRepository struct {
	db database.Querier
}

// NewUserRepository creates a new user repository
func NewUserRepository(db database.Querier) *UserRepository {
	return &UserRepository{db: db}
}

// WithTx returns a copy of the repository bound to tx
func (r *UserRepository) WithTx(tx database.Querier) *UserRepository {
	return &UserRepository{db: tx}
}

const userColumns = `id, email, password_hash, full_name, is_active, is_superuser, email_verified,
	COALESCE(verification_token, ''), verification_expires_at, COALESCE(reset_token, ''), reset_expires_at,
	COALESCE(oauth_provider, ''), COALESCE(oauth_subject, ''), created_at, updated_at`

func scanUser(row interface{ Scan(...interface{}) error }) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.FullName,
		&user.IsActive,
		&user.IsSuperuser,
		&user.EmailVerified,
		&user.VerificationToken,
		&user.VerificationExpiresAt,
		&user.ResetToken,
		&user.ResetExpiresAt,
		&user.OAuthProvider,
		&user.OAuthSubject,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// Create inserts a new user and fills in its ID
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	createdAt, err := stamp(user.CreatedAt)
	if err != nil {
		return err
	}
	user.UpdatedAt = createdAt

	query := `
		INSERT INTO users (email, password_hash, full_name, is_active, is_superuser, email_verified,
			verification_token, verification_expires_at, oauth_provider, oauth_subject, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(ctx, query,
		user.Email,
		user.PasswordHash,
		user.FullName,
		user.IsActive,
		user.IsSuperuser,
		user.EmailVerified,
		nullString(user.VerificationToken),
		user.VerificationExpiresAt,
		nullString(user.OAuthProvider),
		nullString(user.OAuthSubject),
		createdAt,
		createdAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	user.ID = id
	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return scanUser(r.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id))
}

// GetByEmail retrieves a user by email address
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return scanUser(r.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE email = ?", email))
}

// GetByOAuth retrieves a user by federated identity
func (r *UserRepository) GetByOAuth(ctx context.Context, provider, subject string) (*models.User, error) {
	return scanUser(r.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE oauth_provider = ? AND oauth_subject = ?", provider, subject))
}

// GetByVerificationToken retrieves the user holding an email verification token
func (r *UserRepository) GetByVerificationToken(ctx context.Context, token string) (*models.User, error) {
	return scanUser(r.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE verification_token = ?", token))
}

// GetByResetToken retrieves the user holding a password reset token
func (r *UserRepository) GetByResetToken(ctx context.Context, token string) (*models.User, error) {
	return scanUser(r.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE reset_token = ?", token))
}

// List returns every user, oldest first
func (r *UserRepository) List(ctx context.Context) ([]models.User, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+userColumns+" FROM users ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}
	return users, rows.Err()
}

// LinkOAuth binds a federated identity to an existing user
func (r *UserRepository) LinkOAuth(ctx context.Context, userID int64, provider, subject string, at time.Time) error {
	query := `UPDATE users SET oauth_provider = ?, oauth_subject = ?, email_verified = ?, updated_at = ? WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, query, provider, subject, true, at, userID); err != nil {
		return fmt.Errorf("failed to link oauth identity: %w", err)
	}
	return nil
}

// SetVerificationToken stores a fresh email verification token
func (r *UserRepository) SetVerificationToken(ctx context.Context, userID int64, token string, expiresAt, at time.Time) error {
	query := `UPDATE users SET verification_token = ?, verification_expires_at = ?, updated_at = ? WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, query, token, expiresAt, at, userID); err != nil {
		return fmt.Errorf("failed to set verification token: %w", err)
	}
	return nil
}

// MarkEmailVerified flags the email as verified and clears the token
func (r *UserRepository) MarkEmailVerified(ctx context.Context, userID int64, at time.Time) error {
	query := `
		UPDATE users
		SET email_verified = ?, verification_token = NULL, verification_expires_at = NULL, updated_at = ?
		WHERE id = ?
	`
	if _, err := r.db.ExecContext(ctx, query, true, at, userID); err != nil {
		return fmt.Errorf("failed to verify email: %w", err)
	}
	return nil
}

// SetResetToken stores a password reset token
func (r *UserRepository) SetResetToken(ctx context.Context, userID int64, token string, expiresAt, at time.Time) error {
	query := `UPDATE users SET reset_token = ?, reset_expires_at = ?, updated_at = ? WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, query, token, expiresAt, at, userID); err != nil {
		return fmt.Errorf("failed to set reset token: %w", err)
	}
	return nil
}

// UpdatePassword replaces the password hash and consumes any reset token
func (r *UserRepository) UpdatePassword(ctx context.Context, userID int64, passwordHash string, at time.Time) error {
	query := `
		UPDATE users
		SET password_hash = ?, reset_token = NULL, reset_expires_at = NULL, updated_at = ?
		WHERE id = ?
	`
	if _, err := r.db.ExecContext(ctx, query, passwordHash, at, userID); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}

// UpdateProfile changes the display name
func (r *UserRepository) UpdateProfile(ctx context.Context, userID int64, fullName string, at time.Time) error {
	query := `UPDATE users SET full_name = ?, updated_at = ? WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, query, fullName, at, userID); err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	return nil
}
