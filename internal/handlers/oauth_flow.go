package handlers

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"math/big"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"

	"deepfocus/internal/security"
	"deepfocus/internal/service"
)

// OAuthProvider defines provider configuration and metadata. When JWKSURL
// is set an id_token in the token response is verified and preferred over
// the userinfo endpoint.
type OAuthProvider struct {
	Name        string
	Label       string
	Config      *oauth2.Config
	UserInfoURL string
	JWKSURL     string
	Issuers     []string
	AuthParams  map[string]string
}

func (p OAuthProvider) configured() bool {
	return p.Config != nil && p.Config.ClientID != "" && p.Config.ClientSecret != ""
}

type oauthUserInfo struct {
	Subject string
	Email   string
	Name    string
}

// StartOAuth initiates the OAuth flow for a provider
func (h *AuthHandler) StartOAuth(w http.ResponseWriter, r *http.Request) {
	providerKey := r.PathValue("provider")
	provider, ok := h.oauthProviders[providerKey]
	if !ok || !provider.configured() {
		handleServiceError(w, service.ErrOAuthNotConfigured, "")
		return
	}

	nonce, state := h.stateSigner.New()
	http.SetCookie(w, security.StateCookie(r, OAuthNonceCookieName, nonce, oauthCookieTTL))

	config := *provider.Config
	config.RedirectURL = h.oauthRedirectURL(r, providerKey)

	options := []oauth2.AuthCodeOption{oauth2.AccessTypeOnline, oauth2.SetAuthURLParam("nonce", nonce)}
	for key, value := range provider.AuthParams {
		options = append(options, oauth2.SetAuthURLParam(key, value))
	}

	http.Redirect(w, r, config.AuthCodeURL(state, options...), http.StatusFound)
}

// OAuthCallback handles the OAuth provider callback and hands the access
// token to the frontend
func (h *AuthHandler) OAuthCallback(w http.ResponseWriter, r *http.Request) {
	providerKey := r.PathValue("provider")
	provider, ok := h.oauthProviders[providerKey]
	if !ok || !provider.configured() {
		handleServiceError(w, service.ErrOAuthNotConfigured, "")
		return
	}

	nonce := ""
	if cookie, err := r.Cookie(OAuthNonceCookieName); err == nil {
		nonce = cookie.Value
	}
	http.SetCookie(w, security.DeleteCookie(r, OAuthNonceCookieName))

	if !h.stateSigner.Verify(r.URL.Query().Get("state"), nonce) {
		h.oauthFailed(w, r, providerKey, errors.New("invalid state"))
		return
	}
	code := r.URL.Query().Get("code")
	if code == "" {
		h.oauthFailed(w, r, providerKey, errors.New("missing authorization code"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	config := *provider.Config
	config.RedirectURL = h.oauthRedirectURL(r, providerKey)

	token, err := config.Exchange(ctx, code)
	if err != nil {
		h.oauthFailed(w, r, providerKey, fmt.Errorf("code exchange: %w", err))
		return
	}

	info, err := fetchOAuthUserInfo(ctx, provider, token, nonce)
	if err != nil {
		h.oauthFailed(w, r, providerKey, err)
		return
	}

	result, err := h.authService.OAuthLogin(r.Context(), service.OAuthIdentity{
		Provider: providerKey,
		Subject:  info.Subject,
		Email:    info.Email,
		Name:     info.Name,
	})
	if err != nil {
		h.oauthFailed(w, r, providerKey, err)
		return
	}

	target := strings.TrimRight(h.frontendURL, "/") + "/auth/oauth-success?" + url.Values{"token": {result.AccessToken}}.Encode()
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (h *AuthHandler) oauthFailed(w http.ResponseWriter, r *http.Request, providerKey string, err error) {
	log.Printf("OAuth login via %s failed: %v", providerKey, err)
	http.Redirect(w, r, strings.TrimRight(h.frontendURL, "/")+"/login?error=oauth_failed", http.StatusSeeOther)
}

func (h *AuthHandler) oauthRedirectURL(r *http.Request, providerKey string) string {
	baseURL := strings.TrimSpace(h.oauthRedirectBaseURL)
	if baseURL == "" {
		scheme := "http"
		if security.IsSecureRequest(r) {
			scheme = "https"
		}
		baseURL = fmt.Sprintf("%s://%s", scheme, r.Host)
	}
	return fmt.Sprintf("%s%s/auth/%s/callback", strings.TrimRight(baseURL, "/"), APIPrefix, providerKey)
}

func fetchOAuthUserInfo(ctx context.Context, provider OAuthProvider, token *oauth2.Token, nonce string) (oauthUserInfo, error) {
	if idToken, _ := token.Extra("id_token").(string); idToken != "" && provider.JWKSURL != "" {
		return parseIDToken(ctx, provider, idToken, nonce)
	}
	if provider.UserInfoURL == "" {
		return oauthUserInfo{}, errors.New("provider has no userinfo endpoint")
	}

	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(token))
	resp, err := client.Get(provider.UserInfoURL)
	if err != nil {
		return oauthUserInfo{}, fmt.Errorf("failed to fetch %s user info: %w", provider.Label, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return oauthUserInfo{}, fmt.Errorf("failed to fetch %s user info: status %d", provider.Label, resp.StatusCode)
	}

	// v2 userinfo reports "id", the OpenID endpoint reports "sub"
	var payload struct {
		ID    string `json:"id"`
		Sub   string `json:"sub"`
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return oauthUserInfo{}, fmt.Errorf("failed to parse %s user info", provider.Label)
	}

	subject := payload.ID
	if subject == "" {
		subject = payload.Sub
	}
	if subject == "" || payload.Email == "" {
		return oauthUserInfo{}, fmt.Errorf("%s did not return an identity", provider.Label)
	}
	return oauthUserInfo{Subject: subject, Email: payload.Email, Name: payload.Name}, nil
}

type idTokenClaims struct {
	jwt.RegisteredClaims
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Nonce         string `json:"nonce"`
}

type jwkSet struct {
	Keys []jwkKey `json:"keys"`
}

type jwkKey struct {
	Kid string `json:"kid"`
	Kty string `json:"kty"`
	Alg string `json:"alg"`
	N   string `json:"n"`
	E   string `json:"e"`
}

func parseIDToken(ctx context.Context, provider OAuthProvider, idToken, nonce string) (oauthUserInfo, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithAudience(provider.Config.ClientID),
		jwt.WithExpirationRequired(),
	)
	claims := &idTokenClaims{}

	parsed, err := parser.ParseWithClaims(idToken, claims, func(token *jwt.Token) (interface{}, error) {
		kid, _ := token.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("missing key id")
		}
		return fetchPublicKey(ctx, provider.JWKSURL, kid)
	})
	if err != nil || !parsed.Valid {
		return oauthUserInfo{}, fmt.Errorf("invalid %s id_token: %v", provider.Label, err)
	}

	if len(provider.Issuers) > 0 && !issuerAllowed(provider.Issuers, claims.Issuer) {
		return oauthUserInfo{}, fmt.Errorf("invalid %s issuer", provider.Label)
	}
	if nonce != "" && claims.Nonce != "" && claims.Nonce != nonce {
		return oauthUserInfo{}, fmt.Errorf("invalid %s nonce", provider.Label)
	}
	if claims.Email == "" || !claims.EmailVerified {
		return oauthUserInfo{}, fmt.Errorf("%s email not available", provider.Label)
	}

	return oauthUserInfo{Subject: claims.Subject, Email: claims.Email, Name: claims.Name}, nil
}

func issuerAllowed(issuers []string, iss string) bool {
	for _, entry := range issuers {
		if entry == iss {
			return true
		}
	}
	return false
}

func fetchPublicKey(ctx context.Context, jwksURL, kid string) (*rsa.PublicKey, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, jwksURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(request)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.New("failed to fetch public keys")
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var set jwkSet
	if err := json.Unmarshal(body, &set); err != nil {
		return nil, err
	}

	for _, key := range set.Keys {
		if key.Kid != kid {
			continue
		}
		if key.Kty != "RSA" {
			return nil, errors.New("unexpected key type")
		}
		modulusBytes, err := base64.RawURLEncoding.DecodeString(key.N)
		if err != nil {
			return nil, err
		}
		exponentBytes, err := base64.RawURLEncoding.DecodeString(key.E)
		if err != nil {
			return nil, err
		}
		exponent := 0
		for _, b := range exponentBytes {
			exponent = exponent*256 + int(b)
		}
		return &rsa.PublicKey{
			N: new(big.Int).SetBytes(modulusBytes),
			E: exponent,
		}, nil
	}

	return nil, errors.New("public key not found")
}
