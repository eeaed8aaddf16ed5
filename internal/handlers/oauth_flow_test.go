package handlers

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

// fakeProvider serves a token endpoint and a userinfo endpoint
func fakeProvider(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /token", func(w http.ResponseWriter, r *http.Request) {
		if r.FormValue("code") != "good-code" {
			http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"provider-token","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("GET /userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer provider-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"g-42","email":"Oauth@Example.com","name":"OAuth User"}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func withGoogle(srv *httptest.Server) func(*RouterConfig) {
	return func(cfg *RouterConfig) {
		cfg.OAuthProviders = map[string]OAuthProvider{
			"google": {
				Name:  "google",
				Label: "Google",
				Config: &oauth2.Config{
					ClientID:     "client-id",
					ClientSecret: "client-secret",
					Endpoint: oauth2.Endpoint{
						AuthURL:   srv.URL + "/auth",
						TokenURL:  srv.URL + "/token",
						AuthStyle: oauth2.AuthStyleInParams,
					},
					Scopes: []string{"openid", "email", "profile"},
				},
				UserInfoURL: srv.URL + "/userinfo",
			},
		}
	}
}

func TestStartOAuthNotConfigured(t *testing.T) {
	api := newTestAPI(t)
	rec := api.do(t, http.MethodGet, "/auth/google/start", "", nil)
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}

func TestOAuthLoginFlow(t *testing.T) {
	srv := fakeProvider(t)
	api := newTestAPI(t, withGoogle(srv))

	start := httptest.NewRecorder()
	api.handler.ServeHTTP(start, httptest.NewRequest(http.MethodGet, APIPrefix+"/auth/google/start", nil))
	require.Equal(t, http.StatusFound, start.Code)

	location, err := url.Parse(start.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/auth", location.Scheme+"://"+location.Host+location.Path)
	assert.Equal(t, "client-id", location.Query().Get("client_id"))
	assert.Contains(t, location.Query().Get("redirect_uri"), APIPrefix+"/auth/google/callback")
	state := location.Query().Get("state")
	require.NotEmpty(t, state)

	var nonce *http.Cookie
	for _, c := range start.Result().Cookies() {
		if c.Name == OAuthNonceCookieName {
			nonce = c
		}
	}
	require.NotNil(t, nonce)
	assert.True(t, nonce.HttpOnly)

	callback := func(state, code string) *httptest.ResponseRecorder {
		q := url.Values{"state": {state}, "code": {code}}
		req := httptest.NewRequest(http.MethodGet, APIPrefix+"/auth/google/callback?"+q.Encode(), nil)
		req.AddCookie(nonce)
		rec := httptest.NewRecorder()
		api.handler.ServeHTTP(rec, req)
		return rec
	}

	t.Run("forged state", func(t *testing.T) {
		rec := callback("forged.state", "good-code")
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "http://localhost:3000/login?error=oauth_failed", rec.Header().Get("Location"))
	})

	t.Run("rejected code", func(t *testing.T) {
		rec := callback(state, "bad-code")
		assert.Equal(t, "http://localhost:3000/login?error=oauth_failed", rec.Header().Get("Location"))
	})

	t.Run("success", func(t *testing.T) {
		rec := callback(state, "good-code")
		require.Equal(t, http.StatusSeeOther, rec.Code)
		target, err := url.Parse(rec.Header().Get("Location"))
		require.NoError(t, err)
		assert.Equal(t, "/auth/oauth-success", target.Path)
		token := target.Query().Get("token")
		require.NotEmpty(t, token)

		me := api.do(t, http.MethodGet, "/auth/me", token, nil)
		require.Equal(t, http.StatusOK, me.Code)
		assert.Contains(t, me.Body.String(), `"email":"oauth@example.com"`)
		assert.Contains(t, me.Body.String(), `"email_verified":true`)
	})
}

type jwksServer struct {
	*httptest.Server
	key *rsa.PrivateKey
}

func newJWKSServer(t *testing.T) *jwksServer {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	set := jwkSet{Keys: []jwkKey{{
		Kid: "test-key",
		Kty: "RSA",
		Alg: "RS256",
		N:   base64.RawURLEncoding.EncodeToString(key.PublicKey.N.Bytes()),
		E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.PublicKey.E)).Bytes()),
	}}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(set)
	}))
	t.Cleanup(srv.Close)
	return &jwksServer{Server: srv, key: key}
}

func (s *jwksServer) sign(t *testing.T, claims idTokenClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = "test-key"
	signed, err := token.SignedString(s.key)
	require.NoError(t, err)
	return signed
}

func TestParseIDToken(t *testing.T) {
	keys := newJWKSServer(t)
	provider := OAuthProvider{
		Label:   "Google",
		Config:  &oauth2.Config{ClientID: "client-id"},
		JWKSURL: keys.URL,
		Issuers: []string{"https://accounts.google.com", "accounts.google.com"},
	}
	valid := func() idTokenClaims {
		return idTokenClaims{
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    "https://accounts.google.com",
				Subject:   "g-7",
				Audience:  jwt.ClaimStrings{"client-id"},
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
			Email:         "id@example.com",
			EmailVerified: true,
			Name:          "Id Token",
			Nonce:         "nonce-1",
		}
	}

	tests := []struct {
		name    string
		mutate  func(*idTokenClaims)
		nonce   string
		wantErr string
	}{
		{name: "valid", nonce: "nonce-1"},
		{name: "wrong audience", mutate: func(c *idTokenClaims) { c.Audience = jwt.ClaimStrings{"someone-else"} }, wantErr: "invalid Google id_token"},
		{name: "expired", mutate: func(c *idTokenClaims) { c.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour)) }, wantErr: "invalid Google id_token"},
		{name: "wrong issuer", mutate: func(c *idTokenClaims) { c.Issuer = "https://evil.example" }, wantErr: "invalid Google issuer"},
		{name: "nonce mismatch", nonce: "nonce-2", wantErr: "invalid Google nonce"},
		{name: "unverified email", mutate: func(c *idTokenClaims) { c.EmailVerified = false }, wantErr: "email not available"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims := valid()
			if tt.mutate != nil {
				tt.mutate(&claims)
			}
			info, err := parseIDToken(context.Background(), provider, keys.sign(t, claims), tt.nonce)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.True(t, strings.Contains(err.Error(), tt.wantErr), err.Error())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, oauthUserInfo{Subject: "g-7", Email: "id@example.com", Name: "Id Token"}, info)
		})
	}
}
