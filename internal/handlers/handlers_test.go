package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/diewo77/go-contracts/auth"
	"github.com/diewo77/go-contracts/gate"
	"github.com/diewo77/go-contracts/httpx"
	"github.com/diewo77/go-contracts/internal/execution"
	"github.com/diewo77/go-contracts/internal/models"
	"github.com/diewo77/go-contracts/internal/services"
	"github.com/diewo77/go-contracts/validation"
)

func TestErrorStatus(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{&services.ValidationError{Violations: validation.Violations{"name": "required"}}, http.StatusUnprocessableEntity, "validation_failed"},
		{fmt.Errorf("decode: %w", httpx.ErrBadJSON), http.StatusBadRequest, "bad_request"},
		{fmt.Errorf("contract x: %w", services.ErrNotFound), http.StatusNotFound, "not_found"},
		{execution.ErrVersionConflict, http.StatusConflict, "version_conflict"},
		{execution.ErrInFlight, http.StatusConflict, "in_flight"},
		{fmt.Errorf("%w: a -> b", execution.ErrInvalidTransition), http.StatusUnprocessableEntity, "invalid_transition"},
		{execution.ErrTerminal, http.StatusUnprocessableEntity, "invalid_transition"},
		{execution.ErrUnknownStatus, http.StatusUnprocessableEntity, "invalid_transition"},
		{gate.ErrUnauthorized, http.StatusForbidden, "forbidden"},
		{errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tc := range cases {
		status, code, _ := errorStatus(tc.err)
		assert.Equal(t, tc.status, status, tc.err.Error())
		assert.Equal(t, tc.code, code, tc.err.Error())
	}
}

func TestLogin(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))
	hash, err := bcrypt.GenerateFromPassword([]byte("pw"), bcrypt.MinCost)
	require.NoError(t, err)
	u := models.User{TenantID: 4, Email: "ops@example.com", Password: string(hash)}
	require.NoError(t, db.Create(&u).Error)

	sessions := auth.NewManager("k", LoadPrincipal(db))
	h := NewAuthHandler(db, sessions)

	post := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		h.Login(w, req)
		return w
	}

	w := post(`{"email":" OPS@example.com ","password":"pw"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"tenant_id":4`)
	assert.NotEmpty(t, w.Result().Cookies())

	assert.Equal(t, http.StatusUnauthorized, post(`{"email":"ops@example.com","password":"nope"}`).Code)
	assert.Equal(t, http.StatusUnprocessableEntity, post(`{"email":"ops@example.com"}`).Code)
	assert.Equal(t, http.StatusBadRequest, post(`{`).Code)

	w = httptest.NewRecorder()
	h.Login(w, httptest.NewRequest(http.MethodGet, "/login", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)

	p, ok := LoadPrincipal(db)(context.Background(), u.ID)
	require.True(t, ok)
	assert.Equal(t, auth.Principal{UserID: u.ID, TenantID: 4}, p)
	_, ok = LoadPrincipal(db)(context.Background(), 999)
	assert.False(t, ok)
}
