package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	m := NewManager("s3cret", nil)
	uid, ok := m.Verify(m.Token(42))
	require.True(t, ok)
	assert.Equal(t, uint(42), uid)

	other := NewManager("different", nil)
	_, ok = other.Verify(m.Token(42))
	assert.False(t, ok)

	for _, bad := range []string{"", "42", "42.", ".sig", "abc." + m.sign("abc"), "0." + m.sign("0")} {
		_, ok := m.Verify(bad)
		assert.False(t, ok, bad)
	}
}

func TestMiddlewareBearerAndCookie(t *testing.T) {
	m := NewManager("s3cret", func(_ context.Context, uid uint) (Principal, bool) {
		if uid == 9 {
			return Principal{}, false
		}
		return Principal{UserID: uid, TenantID: 100 + uid}, true
	})
	var got Principal
	h := m.Middleware(RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = PrincipalFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+m.Token(3))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, Principal{UserID: 3, TenantID: 103}, got)

	rec := httptest.NewRecorder()
	token := m.CreateSession(rec, 4)
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: token})
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, uint(104), got.TenantID)

	// Deleted user.
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+m.Token(9))
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"unauthorized"}`, w.Body.String())

	// Malformed header.
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Basic abc")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
