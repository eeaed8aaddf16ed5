package handlers

import (
	"mime"
	"net/http"

	"deepfocus/internal/security"
	"deepfocus/internal/service"
)

// AuthHandler handles account and token endpoints
type AuthHandler struct {
	authService          *service.AuthService
	oauthProviders       map[string]OAuthProvider
	stateSigner          *security.StateSigner
	frontendURL          string
	oauthRedirectBaseURL string
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *service.AuthService, oauthProviders map[string]OAuthProvider, stateSigner *security.StateSigner, frontendURL, oauthRedirectBaseURL string) *AuthHandler {
	return &AuthHandler{
		authService:          authService,
		oauthProviders:       oauthProviders,
		stateSigner:          stateSigner,
		frontendURL:          frontendURL,
		oauthRedirectBaseURL: oauthRedirectBaseURL,
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type emailRequest struct {
	Email string `json:"email"`
}

type tokenRequest struct {
	Token string `json:"token"`
}

type resetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

type profileRequest struct {
	FullName string `json:"full_name"`
}

// Signup registers a new account
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var in service.SignupInput
	if !decodeJSON(w, r, &in) {
		return
	}
	user, err := h.authService.Signup(r.Context(), in)
	if err != nil {
		handleServiceError(w, err, "Failed to sign up")
		return
	}
	respondJSON(w, http.StatusCreated, user)
}

// Login accepts either a JSON body or an OAuth2 password-grant form where
// the email is sent as "username".
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/x-www-form-urlencoded" || mediaType == "multipart/form-data" {
		if err := r.ParseForm(); err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid form data", "", nil)
			return
		}
		in.Email = r.PostFormValue("username")
		in.Password = r.PostFormValue("password")
	} else if !decodeJSON(w, r, &in) {
		return
	}

	if in.Email == "" || in.Password == "" {
		respondWithError(w, http.StatusBadRequest, "Email and password are required", "", nil)
		return
	}

	result, err := h.authService.Login(r.Context(), in.Email, in.Password)
	if err != nil {
		handleServiceError(w, err, "Failed to log in")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// Me returns the authenticated user
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, GetUserFromContext(r.Context()))
}

// UpdateMe changes the caller's profile
func (h *AuthHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var in profileRequest
	if !decodeJSON(w, r, &in) {
		return
	}
	user, err := h.authService.UpdateProfile(r.Context(), currentUserID(r), in.FullName)
	if err != nil {
		handleServiceError(w, err, "Failed to update profile")
		return
	}
	respondJSON(w, http.StatusOK, user)
}

// VerifyEmail consumes a verification token
func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var in tokenRequest
	if !decodeJSON(w, r, &in) {
		return
	}
	if _, err := h.authService.VerifyEmail(r.Context(), in.Token); err != nil {
		handleServiceError(w, err, "Failed to verify email")
		return
	}
	respondJSON(w, http.StatusOK, messageBody{Message: "Email verified successfully"})
}

// ResendVerification sends a fresh verification email
func (h *AuthHandler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	var in emailRequest
	if !decodeJSON(w, r, &in) {
		return
	}
	if err := h.authService.ResendVerification(r.Context(), in.Email); err != nil {
		handleServiceError(w, err, "Failed to resend verification")
		return
	}
	respondJSON(w, http.StatusOK, messageBody{Message: "If the account exists, a verification email has been sent"})
}

// ForgotPassword starts a password reset
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var in emailRequest
	if !decodeJSON(w, r, &in) {
		return
	}
	if err := h.authService.ForgotPassword(r.Context(), in.Email); err != nil {
		handleServiceError(w, err, "Failed to start password reset")
		return
	}
	respondJSON(w, http.StatusOK, messageBody{Message: "If the account exists, a password reset email has been sent"})
}

// ResetPassword completes a password reset
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var in resetPasswordRequest
	if !decodeJSON(w, r, &in) {
		return
	}
	if err := h.authService.ResetPassword(r.Context(), in.Token, in.NewPassword); err != nil {
		handleServiceError(w, err, "Failed to reset password")
		return
	}
	respondJSON(w, http.StatusOK, messageBody{Message: "Password has been reset"})
}
