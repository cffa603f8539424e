package handlers

import (
	"context"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/diewo77/go-contracts/auth"
	"github.com/diewo77/go-contracts/httpx"
	"github.com/diewo77/go-contracts/internal/models"
	"github.com/diewo77/go-contracts/validation"
)

type AuthHandler struct {
	db       *gorm.DB
	sessions *auth.Manager
}

func NewAuthHandler(db *gorm.DB, sessions *auth.Manager) *AuthHandler {
	return &AuthHandler{db: db, sessions: sessions}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login checks credentials and returns a session token, also set as a cookie.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpx.MethodNotAllowed(w, http.MethodPost)
		return
	}
	var in loginRequest
	if err := httpx.Decode(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	v := validation.Violations{}
	validation.Required("email", in.Email, v)
	validation.Required("password", in.Password, v)
	if !v.Empty() {
		httpx.JSONError(w, http.StatusUnprocessableEntity, "validation_failed", v)
		return
	}

	var user models.User
	if err := h.db.WithContext(r.Context()).Where("email = ?", strings.ToLower(strings.TrimSpace(in.Email))).First(&user).Error; err != nil {
		httpx.JSONError(w, http.StatusUnauthorized, "invalid_credentials", nil)
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(in.Password)); err != nil {
		httpx.JSONError(w, http.StatusUnauthorized, "invalid_credentials", nil)
		return
	}

	token := h.sessions.CreateSession(w, user.ID)
	httpx.JSON(w, http.StatusOK, map[string]any{"token": token, "tenant_id": user.TenantID})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpx.MethodNotAllowed(w, http.MethodPost)
		return
	}
	auth.ClearSession(w)
	w.WriteHeader(http.StatusNoContent)
}

// LoadPrincipal resolves a session user id to its tenant. Deleted users are not found.
func LoadPrincipal(db *gorm.DB) auth.Loader {
	return func(ctx context.Context, uid uint) (auth.Principal, bool) {
		var user models.User
		if err := db.WithContext(ctx).Select("id", "tenant_id").First(&user, uid).Error; err != nil {
			return auth.Principal{}, false
		}
		return auth.Principal{UserID: user.ID, TenantID: user.TenantID}, true
	}
}
