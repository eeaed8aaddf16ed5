package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"deepfocus/internal/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthSignupAndLogin(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	mailer := newFakeMailer()
	auth := newTestAuthService(t, env, mailer)

	user, err := auth.Signup(ctx, SignupInput{Email: "  Ada@Example.com ", Password: "correct-horse", FullName: "Ada"})
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", user.Email)
	assert.False(t, user.EmailVerified)

	require.Eventually(t, func() bool {
		return mailer.verificationToken("ada@example.com") != ""
	}, 2*time.Second, 10*time.Millisecond)

	t.Run("duplicate email", func(t *testing.T) {
		_, err := auth.Signup(ctx, SignupInput{Email: "ada@example.com", Password: "another-pass"})
		assert.ErrorIs(t, err, ErrEmailTaken)
	})

	t.Run("weak password", func(t *testing.T) {
		_, err := auth.Signup(ctx, SignupInput{Email: "weak@example.com", Password: "short"})
		var verr validation.ValidationError
		assert.True(t, errors.As(err, &verr))
	})

	t.Run("login", func(t *testing.T) {
		_, err := auth.Login(ctx, "ada@example.com", "wrong-password")
		assert.ErrorIs(t, err, ErrInvalidCredentials)

		_, err = auth.Login(ctx, "nobody@example.com", "correct-horse")
		assert.ErrorIs(t, err, ErrInvalidCredentials)

		result, err := auth.Login(ctx, "ADA@example.com", "correct-horse")
		require.NoError(t, err)
		assert.Equal(t, "bearer", result.TokenType)
		assert.True(t, result.ExpiresAt.Equal(env.clock.Now().Add(time.Hour)))

		me, err := auth.Authenticate(ctx, result.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, user.ID, me.ID)
	})

	t.Run("bad token", func(t *testing.T) {
		_, err := auth.Authenticate(ctx, "not-a-token")
		assert.Error(t, err)
	})
}

func TestAuthEmailVerification(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	mailer := newFakeMailer()
	auth := newTestAuthService(t, env, mailer)

	_, err := auth.Signup(ctx, SignupInput{Email: "grace@example.com", Password: "correct-horse"})
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return mailer.verificationToken("grace@example.com") != ""
	}, 2*time.Second, 10*time.Millisecond)
	token := mailer.verificationToken("grace@example.com")

	_, err = auth.VerifyEmail(ctx, "bogus")
	assert.ErrorIs(t, err, ErrInvalidToken)

	verified, err := auth.VerifyEmail(ctx, token)
	require.NoError(t, err)
	assert.True(t, verified.EmailVerified)

	_, err = auth.VerifyEmail(ctx, token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	assert.ErrorIs(t, auth.ResendVerification(ctx, "grace@example.com"), ErrAlreadyVerified)
	assert.NoError(t, auth.ResendVerification(ctx, "unknown@example.com"))
}

func TestAuthVerificationExpires(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	mailer := newFakeMailer()
	auth := newTestAuthService(t, env, mailer)

	_, err := auth.Signup(ctx, SignupInput{Email: "late@example.com", Password: "correct-horse"})
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return mailer.verificationToken("late@example.com") != ""
	}, 2*time.Second, 10*time.Millisecond)

	env.advanceDays(2)
	_, err = auth.VerifyEmail(ctx, mailer.verificationToken("late@example.com"))
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAuthPasswordReset(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	mailer := newFakeMailer()
	auth := newTestAuthService(t, env, mailer)

	_, err := auth.Signup(ctx, SignupInput{Email: "reset@example.com", Password: "old-password"})
	require.NoError(t, err)

	require.NoError(t, auth.ForgotPassword(ctx, "nobody@example.com"))
	require.NoError(t, auth.ForgotPassword(ctx, "reset@example.com"))
	require.Eventually(t, func() bool {
		return mailer.resetToken("reset@example.com") != ""
	}, 2*time.Second, 10*time.Millisecond)
	token := mailer.resetToken("reset@example.com")

	var verr validation.ValidationError
	assert.True(t, errors.As(auth.ResetPassword(ctx, token, "short"), &verr))

	require.NoError(t, auth.ResetPassword(ctx, token, "new-password"))
	assert.ErrorIs(t, auth.ResetPassword(ctx, token, "another-password"), ErrInvalidToken)

	_, err = auth.Login(ctx, "reset@example.com", "old-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = auth.Login(ctx, "reset@example.com", "new-password")
	require.NoError(t, err)
}

func TestAuthOAuthLogin(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	auth := newTestAuthService(t, env, nil)

	existing, err := auth.Signup(ctx, SignupInput{Email: "linked@example.com", Password: "correct-horse"})
	require.NoError(t, err)

	t.Run("links an existing account", func(t *testing.T) {
		result, err := auth.OAuthLogin(ctx, OAuthIdentity{Provider: "google", Subject: "g-1", Email: "Linked@example.com"})
		require.NoError(t, err)
		assert.Equal(t, existing.ID, result.User.ID)
		assert.True(t, result.User.EmailVerified)
	})

	t.Run("creates a password-less account", func(t *testing.T) {
		result, err := auth.OAuthLogin(ctx, OAuthIdentity{Provider: "google", Subject: "g-2", Email: "fresh@example.com"})
		require.NoError(t, err)
		assert.Equal(t, "fresh", result.User.FullName)
		assert.False(t, result.User.HasPassword())

		again, err := auth.OAuthLogin(ctx, OAuthIdentity{Provider: "google", Subject: "g-2", Email: "fresh@example.com"})
		require.NoError(t, err)
		assert.Equal(t, result.User.ID, again.User.ID)

		_, err = auth.Login(ctx, "fresh@example.com", "anything-at-all")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("another provider on the same email", func(t *testing.T) {
		_, err := auth.OAuthLogin(ctx, OAuthIdentity{Provider: "github", Subject: "h-1", Email: "linked@example.com"})
		assert.ErrorIs(t, err, ErrEmailTaken)
	})
}
