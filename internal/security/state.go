package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// StateSigner issues and checks the OAuth "state" parameter. The state is a
// random nonce plus its HMAC, and the nonce is also stored in a cookie, so a
// callback is only accepted from the browser that started the flow.
type StateSigner struct {
	secret []byte
}

// NewStateSigner creates a stateless HMAC-based state signer
func NewStateSigner(secret string) *StateSigner {
	return &StateSigner{secret: []byte(secret)}
}

// New returns a nonce and the signed state derived from it
func (s *StateSigner) New() (nonce, state string) {
	nonce = uuid.NewString()
	return nonce, nonce + "." + s.sign(nonce)
}

// Verify reports whether state was signed by s and carries nonce
func (s *StateSigner) Verify(state, nonce string) bool {
	if state == "" || nonce == "" {
		return false
	}
	got, sig, ok := strings.Cut(state, ".")
	if !ok || got != nonce {
		return false
	}
	return hmac.Equal([]byte(sig), []byte(s.sign(nonce)))
}

func (s *StateSigner) sign(nonce string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(nonce))
	return hex.EncodeToString(mac.Sum(nil))
}

// IsSecureRequest determines if the request is over HTTPS, directly or
// behind a reverse proxy
func IsSecureRequest(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto == "https" {
		return true
	}
	return r.URL.Scheme == "https"
}

// StateCookie holds the OAuth nonce for the duration of the redirect
func StateCookie(r *http.Request, name, value string, ttl time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   IsSecureRequest(r),
		SameSite: http.SameSiteLaxMode,
	}
}

// DeleteCookie expires a cookie
func DeleteCookie(r *http.Request, name string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   IsSecureRequest(r),
	}
}
