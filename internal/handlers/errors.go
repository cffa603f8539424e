// Package handlers exposes the contract services over JSON HTTP.
package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/diewo77/go-contracts/auth"
	"github.com/diewo77/go-contracts/gate"
	"github.com/diewo77/go-contracts/httpx"
	"github.com/diewo77/go-contracts/internal/execution"
	"github.com/diewo77/go-contracts/internal/services"
)

// errorStatus maps a service error to an HTTP status, error code and details.
func errorStatus(err error) (int, string, any) {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusUnprocessableEntity, "validation_failed", verr.Violations
	case errors.Is(err, httpx.ErrBadJSON):
		return http.StatusBadRequest, "bad_request", err.Error()
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound, "not_found", nil
	case errors.Is(err, execution.ErrVersionConflict):
		return http.StatusConflict, "version_conflict", err.Error()
	case errors.Is(err, execution.ErrInFlight):
		return http.StatusConflict, "in_flight", nil
	case errors.Is(err, execution.ErrInvalidTransition),
		errors.Is(err, execution.ErrTerminal),
		errors.Is(err, execution.ErrUnknownStatus):
		return http.StatusUnprocessableEntity, "invalid_transition", err.Error()
	case errors.Is(err, gate.ErrUnauthorized):
		return http.StatusForbidden, "forbidden", nil
	}
	return http.StatusInternalServerError, "internal_error", nil
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code, details := errorStatus(err)
	if status == http.StatusInternalServerError {
		log.Printf("handler error method=%s path=%s err=%v", r.Method, r.URL.Path, err)
	}
	httpx.JSONError(w, status, code, details)
}

func tenantID(r *http.Request) uint {
	p, _ := auth.PrincipalFromContext(r.Context())
	return p.TenantID
}
