package handlers

import "time"

const (
	APIPrefix = "/api/v1"

	OAuthNonceCookieName = "oauth_nonce"
	oauthCookieTTL       = 10 * time.Minute

	maxBodyBytes = 1 << 20

	ErrInvalidJSON         = "Invalid JSON body"
	ErrInvalidID           = "Invalid id"
	ErrUnauthorized        = "Not authenticated"
	ErrTooManyRequests     = "Too many requests"
	ErrInternalServerError = "Internal server error"
)
