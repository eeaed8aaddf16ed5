package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"deepfocus/internal/clock"
	"deepfocus/internal/database"
	"deepfocus/internal/models"
	"deepfocus/internal/repository"
	"deepfocus/internal/security"
	"deepfocus/internal/validation"
)

// AuthService handles accounts, credentials and bearer tokens
type AuthService struct {
	userRepo        *repository.UserRepository
	tokens          *security.TokenIssuer
	mailer          Mailer
	audit           *AuditService
	clock           clock.Clock
	verificationTTL time.Duration
	resetTTL        time.Duration
}

// AuthConfig carries the token lifetimes
type AuthConfig struct {
	VerificationTTL time.Duration
	ResetTTL        time.Duration
}

// NewAuthService creates a new auth service. mailer may be nil.
func NewAuthService(userRepo *repository.UserRepository, tokens *security.TokenIssuer, mailer Mailer, audit *AuditService, c clock.Clock, cfg AuthConfig) *AuthService {
	return &AuthService{
		userRepo:        userRepo,
		tokens:          tokens,
		mailer:          mailer,
		audit:           audit,
		clock:           c,
		verificationTTL: cfg.VerificationTTL,
		resetTTL:        cfg.ResetTTL,
	}
}

// LoginResult is a freshly issued access token
type LoginResult struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresAt   time.Time    `json:"expires_at"`
	User        *models.User `json:"user"`
}

// SignupInput is the registration payload
type SignupInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Signup creates a new unverified account and sends the verification email
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*models.User, error) {
	email := normalizeEmail(in.Email)
	if err := validation.ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, err
	}
	fullName := strings.TrimSpace(in.FullName)
	if fullName != "" {
		if err := validation.ValidateName(fullName); err != nil {
			return nil, err
		}
	}

	existing, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	passwordHash, err := security.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.clock.Now()
	expiresAt := now.Add(s.verificationTTL)
	user := &models.User{
		Email:                 email,
		PasswordHash:          passwordHash,
		FullName:              fullName,
		IsActive:              true,
		VerificationToken:     security.NewOpaqueToken(),
		VerificationExpiresAt: &expiresAt,
		CreatedAt:             now,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.sendVerification(user.Email, user.FullName, user.VerificationToken)
	s.audit.Record(ctx, user.ID, "user.signup", "user", &user.ID, nil)
	return user, nil
}

// Login checks credentials and issues an access token
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.userRepo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil || !user.HasPassword() || !security.CheckPassword(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrInactiveUser
	}
	return s.issue(user)
}

func (s *AuthService) issue(user *models.User) (*LoginResult, error) {
	token, expiresAt, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, err
	}
	return &LoginResult{AccessToken: token, TokenType: "bearer", ExpiresAt: expiresAt, User: user}, nil
}

// Authenticate resolves a bearer token to its active user
func (s *AuthService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	userID, err := s.tokens.Verify(token)
	if err != nil {
		return nil, ErrInvalidToken
	}
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, ErrInvalidToken
	}
	if !user.IsActive {
		return nil, ErrInactiveUser
	}
	return user, nil
}

// UpdateProfile changes the caller's display name
func (s *AuthService) UpdateProfile(ctx context.Context, userID int64, fullName string) (*models.User, error) {
	fullName = strings.TrimSpace(fullName)
	if err := validation.ValidateName(fullName); err != nil {
		return nil, err
	}
	if err := s.userRepo.UpdateProfile(ctx, userID, fullName, s.clock.Now()); err != nil {
		return nil, err
	}
	return s.userRepo.GetByID(ctx, userID)
}

// VerifyEmail consumes a verification token
func (s *AuthService) VerifyEmail(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	user, err := s.userRepo.GetByVerificationToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil || user.VerificationExpired(s.clock.Now()) {
		return nil, ErrInvalidToken
	}
	if err := s.userRepo.MarkEmailVerified(ctx, user.ID, s.clock.Now()); err != nil {
		return nil, err
	}
	user.EmailVerified = true
	user.VerificationToken = ""
	user.VerificationExpiresAt = nil
	return user, nil
}

// ResendVerification issues a new verification token. Unknown addresses
// succeed silently so the endpoint cannot be used to discover which accounts exist.
func (s *AuthService) ResendVerification(ctx context.Context, email string) error {
	user, err := s.userRepo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil
	}
	if user.EmailVerified {
		return ErrAlreadyVerified
	}

	token := security.NewOpaqueToken()
	now := s.clock.Now()
	if err := s.userRepo.SetVerificationToken(ctx, user.ID, token, now.Add(s.verificationTTL), now); err != nil {
		return err
	}
	s.sendVerification(user.Email, user.FullName, token)
	return nil
}

// ForgotPassword issues a reset token. Unknown addresses and accounts without
// a password succeed silently.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.userRepo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil || !user.HasPassword() || !user.IsActive {
		return nil
	}

	token := security.NewOpaqueToken()
	now := s.clock.Now()
	if err := s.userRepo.SetResetToken(ctx, user.ID, token, now.Add(s.resetTTL), now); err != nil {
		return err
	}
	s.deliver("password reset", user.Email, func(ctx context.Context) error {
		return s.mailer.SendPasswordResetEmail(ctx, user.Email, user.FullName, token, s.resetTTL)
	})
	return nil
}

// ResetPassword consumes a reset token and sets a new password
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if token == "" {
		return ErrInvalidToken
	}
	user, err := s.userRepo.GetByResetToken(ctx, token)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil || user.ResetExpired(s.clock.Now()) {
		return ErrInvalidToken
	}
	if err := validation.ValidatePassword(newPassword); err != nil {
		return err
	}

	passwordHash, err := security.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.userRepo.UpdatePassword(ctx, user.ID, passwordHash, s.clock.Now()); err != nil {
		return err
	}
	s.audit.Record(ctx, user.ID, "user.password_reset", "user", &user.ID, nil)
	return nil
}

// OAuthIdentity is what a federated provider tells us about the user
type OAuthIdentity struct {
	Provider string
	Subject  string
	Email    string
	Name     string
}

// OAuthLogin signs in with a federated identity, linking it to an existing
// account with the same email or creating a new password-less account.
func (s *AuthService) OAuthLogin(ctx context.Context, id OAuthIdentity) (*LoginResult, error) {
	if id.Provider == "" || id.Subject == "" {
		return nil, errors.New("missing oauth provider information")
	}
	email := normalizeEmail(id.Email)
	if err := validation.ValidateEmail(email); err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByOAuth(ctx, id.Provider, id.Subject)
	if err != nil {
		return nil, fmt.Errorf("failed to lookup oauth user: %w", err)
	}

	now := s.clock.Now()
	if user == nil {
		existing, err := s.userRepo.GetByEmail(ctx, email)
		if err != nil {
			return nil, fmt.Errorf("failed to check existing user: %w", err)
		}
		if existing != nil {
			if existing.OAuthProvider != "" && existing.OAuthProvider != id.Provider {
				return nil, ErrEmailTaken
			}
			user = existing
		} else {
			name := strings.TrimSpace(id.Name)
			if name == "" {
				name = strings.Split(email, "@")[0]
			}
			user = &models.User{Email: email, FullName: name, IsActive: true, CreatedAt: now}
			if err := s.userRepo.Create(ctx, user); err != nil {
				if database.IsUniqueViolation(err) {
					return nil, ErrEmailTaken
				}
				return nil, fmt.Errorf("failed to create oauth user: %w", err)
			}
			s.audit.Record(ctx, user.ID, "user.signup", "user", &user.ID, map[string]interface{}{"provider": id.Provider})
		}
		if err := s.userRepo.LinkOAuth(ctx, user.ID, id.Provider, id.Subject, now); err != nil {
			return nil, err
		}
		user.OAuthProvider = id.Provider
		user.OAuthSubject = id.Subject
		user.EmailVerified = true
	}

	if !user.IsActive {
		return nil, ErrInactiveUser
	}
	return s.issue(user)
}

func (s *AuthService) sendVerification(email, name, token string) {
	s.deliver("verification", email, func(ctx context.Context) error {
		return s.mailer.SendVerificationEmail(ctx, email, name, token, s.verificationTTL)
	})
}

// deliver sends an email in the background. Failures are logged only.
func (s *AuthService) deliver(kind, to string, send func(ctx context.Context) error) {
	if s.mailer == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := send(ctx); err != nil {
			log.Printf("Error sending %s email to %s: %v", kind, to, err)
		}
	}()
}
