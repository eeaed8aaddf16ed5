package models

import "time"

// User represents an account in the planner
type User struct {
	ID                    int64      `json:"id"`
	Email                 string     `json:"email"`
	PasswordHash          string     `json:"-"`
	FullName              string     `json:"full_name"`
	IsActive              bool       `json:"is_active"`
	IsSuperuser           bool       `json:"is_superuser"`
	EmailVerified         bool       `json:"email_verified"`
	VerificationToken     string     `json:"-"`
	VerificationExpiresAt *time.Time `json:"-"`
	ResetToken            string     `json:"-"`
	ResetExpiresAt        *time.Time `json:"-"`
	OAuthProvider         string     `json:"oauth_provider,omitempty"`
	OAuthSubject          string     `json:"-"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

// HasPassword reports whether the account can log in with a password.
// Accounts created through Google sign-in have none.
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}

// VerificationExpired checks the email verification token expiry against now
func (u *User) VerificationExpired(now time.Time) bool {
	return u.VerificationExpiresAt == nil || now.After(*u.VerificationExpiresAt)
}

// ResetExpired checks the password reset token expiry against now
func (u *User) ResetExpired(now time.Time) bool {
	return u.ResetExpiresAt == nil || now.After(*u.ResetExpiresAt)
}
