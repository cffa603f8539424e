// Package auth signs session values with HMAC-SHA256 and carries the
// authenticated principal through request contexts. The same signed value
// works as a cookie for browsers and as a bearer token for API clients.
package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/diewo77/go-contracts/httpx"
)

const (
	CookieName = "session"
	sessionTTL = 14 * 24 * time.Hour
)

type ctxKey struct{}

// Principal is the caller of a request.
type Principal struct {
	UserID   uint
	TenantID uint
}

// Loader resolves a user id from a valid session to its principal. It returns
// false when the user no longer exists.
type Loader func(ctx context.Context, userID uint) (Principal, bool)

// Manager signs and verifies sessions.
type Manager struct {
	secret []byte
	loader Loader
	secure bool
}

// NewManager returns a Manager. loader may be nil, in which case the tenant
// id is left zero.
func NewManager(secret string, loader Loader) *Manager {
	return &Manager{secret: []byte(secret), loader: loader}
}

// SecureCookies marks issued cookies Secure.
func (m *Manager) SecureCookies(on bool) { m.secure = on }

func (m *Manager) sign(payload string) string {
	mac := hmac.New(sha256.New, m.secret)
	mac.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// Token returns the signed session value for userID.
func (m *Manager) Token(userID uint) string {
	uid := strconv.FormatUint(uint64(userID), 10)
	return uid + "." + m.sign(uid)
}

// Verify checks a signed value and returns its user id.
func (m *Manager) Verify(value string) (uint, bool) {
	uid, sig, ok := strings.Cut(value, ".")
	if !ok || uid == "" {
		return 0, false
	}
	if !hmac.Equal([]byte(sig), []byte(m.sign(uid))) {
		return 0, false
	}
	id, err := strconv.ParseUint(uid, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// CreateSession sets the session cookie and returns the token.
func (m *Manager) CreateSession(w http.ResponseWriter, userID uint) string {
	token := m.Token(userID)
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(sessionTTL),
	})
	return token
}

func ClearSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{Name: CookieName, Value: "", Path: "/", Expires: time.Unix(0, 0), HttpOnly: true, SameSite: http.SameSiteLaxMode})
}

// ParseRequest reads the bearer token, or failing that the session cookie.
func (m *Manager) ParseRequest(r *http.Request) (uint, bool) {
	if h := r.Header.Get("Authorization"); h != "" {
		token, ok := strings.CutPrefix(h, "Bearer ")
		if !ok {
			return 0, false
		}
		return m.Verify(strings.TrimSpace(token))
	}
	c, err := r.Cookie(CookieName)
	if err != nil || c.Value == "" {
		return 0, false
	}
	return m.Verify(c.Value)
}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(ctxKey{}).(Principal)
	return p, ok && p.UserID != 0
}

// UserIDFromContext returns the authenticated user id, or 0.
func UserIDFromContext(ctx context.Context) (uint, bool) {
	p, ok := PrincipalFromContext(ctx)
	return p.UserID, ok
}

// Middleware attaches the principal when the request carries a valid session.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid, ok := m.ParseRequest(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}
		p := Principal{UserID: uid}
		if m.loader != nil {
			loaded, found := m.loader(r.Context(), uid)
			if !found {
				ClearSession(w)
				next.ServeHTTP(w, r)
				return
			}
			p = loaded
		}
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
	})
}

// RequireAuth answers 401 unless Middleware attached a principal.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := PrincipalFromContext(r.Context()); !ok {
			httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}
