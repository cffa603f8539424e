package httpx

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONError(t *testing.T) {
	w := httptest.NewRecorder()
	JSONError(w, http.StatusConflict, "version_conflict", map[string]int{"version": 3})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error":"version_conflict","details":{"version":3}}`, w.Body.String())

	w = httptest.NewRecorder()
	JSON(w, http.StatusOK, nil)
	assert.Equal(t, "null", w.Body.String())
}

func TestDecode(t *testing.T) {
	var v struct {
		Name string `json:"name"`
	}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"MSA"}`))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	require.NoError(t, Decode(req, &v))
	assert.Equal(t, "MSA", v.Name)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":`))
	assert.ErrorIs(t, Decode(req, &v), ErrBadJSON)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`name=MSA`))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	assert.ErrorIs(t, Decode(req, &v), ErrBadJSON)
}

func TestMethodNotAllowed(t *testing.T) {
	w := httptest.NewRecorder()
	MethodNotAllowed(w, http.MethodGet, http.MethodPost)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Equal(t, "GET,POST", w.Header().Get("Allow"))
}
