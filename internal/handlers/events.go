package handlers

import (
	"net/http"

	"github.com/diewo77/go-contracts/gate"
	"github.com/diewo77/go-contracts/httpx"
	"github.com/diewo77/go-contracts/internal/execution"
	"github.com/diewo77/go-contracts/internal/models"
	"github.com/diewo77/go-contracts/internal/policy"
	"github.com/diewo77/go-contracts/internal/services"
	"github.com/diewo77/go-contracts/validation"
)

type EventHandler struct {
	svc   *services.EventService
	gates *policy.AuthGate
}

func NewEventHandler(svc *services.EventService, gates *policy.AuthGate) *EventHandler {
	return &EventHandler{svc: svc, gates: gates}
}

func toEvents(rows []models.ServiceEvent) []execution.Event {
	out := make([]execution.Event, len(rows))
	for i, e := range rows {
		out[i] = e.Event()
	}
	return out
}

// Collection serves GET ?contract_id= (list) and POST (schedule) on /service-events.
func (h *EventHandler) Collection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if err := h.gates.Authorize(r.Context(), gate.ActionList, policy.ResourceServiceEvent, nil); err != nil {
			writeError(w, r, err)
			return
		}
		contractID := r.URL.Query().Get("contract_id")
		if contractID == "" {
			httpx.JSONError(w, http.StatusUnprocessableEntity, "validation_failed", validation.Violations{"contract_id": "required"})
			return
		}
		rows, err := h.svc.List(r.Context(), tenantID(r), contractID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		httpx.JSON(w, http.StatusOK, toEvents(rows))
	case http.MethodPost:
		if err := h.gates.Authorize(r.Context(), gate.ActionCreate, policy.ResourceServiceEvent, nil); err != nil {
			writeError(w, r, err)
			return
		}
		var in services.ScheduleInput
		if err := httpx.Decode(r, &in); err != nil {
			writeError(w, r, err)
			return
		}
		ev, err := h.svc.Schedule(r.Context(), tenantID(r), in)
		if err != nil {
			writeError(w, r, err)
			return
		}
		httpx.JSON(w, http.StatusCreated, ev.Event())
	default:
		httpx.MethodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

// Show serves GET /service-events/show?id=.
func (h *EventHandler) Show(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpx.MethodNotAllowed(w, http.MethodGet)
		return
	}
	ev, err := h.svc.Get(r.Context(), tenantID(r), r.URL.Query().Get("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.gates.Authorize(r.Context(), gate.ActionView, policy.ResourceServiceEvent, ev); err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, ev.Event())
}

type statusRequest struct {
	Status  execution.Status `json:"status"`
	Version int              `json:"version"`
}

// UpdateStatus serves PATCH /service-events/status?id=.
func (h *EventHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPatch {
		httpx.MethodNotAllowed(w, http.MethodPatch)
		return
	}
	if err := h.gates.Authorize(r.Context(), gate.ActionTransition, policy.ResourceServiceEvent, nil); err != nil {
		writeError(w, r, err)
		return
	}
	var in statusRequest
	if err := httpx.Decode(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	v := validation.Violations{}
	validation.Required("status", string(in.Status), v)
	validation.PositiveInt("version", in.Version, v)
	if !v.Empty() {
		httpx.JSONError(w, http.StatusUnprocessableEntity, "validation_failed", v)
		return
	}
	ev, err := h.svc.Transition(r.Context(), tenantID(r), r.URL.Query().Get("id"), in.Status, in.Version)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, ev.Event())
}

// Transitions serves GET /service-events/transitions.
func (h *EventHandler) Transitions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpx.MethodNotAllowed(w, http.MethodGet)
		return
	}
	rules, err := h.svc.Rules(r.Context(), tenantID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rules)
}

// MarkOverdue serves POST /service-events/mark-overdue. Admin only.
func (h *EventHandler) MarkOverdue(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpx.MethodNotAllowed(w, http.MethodPost)
		return
	}
	n, err := h.svc.MarkOverdue(r.Context(), tenantID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]int64{"updated": n})
}
