package handlers

import (
	"net/http"
	"strconv"

	"github.com/diewo77/go-contracts/gate"
	"github.com/diewo77/go-contracts/httpx"
	"github.com/diewo77/go-contracts/internal/mapper"
	"github.com/diewo77/go-contracts/internal/models"
	"github.com/diewo77/go-contracts/internal/policy"
	"github.com/diewo77/go-contracts/internal/services"
)

type ContractHandler struct {
	svc   *services.ContractService
	gates *policy.AuthGate
}

func NewContractHandler(svc *services.ContractService, gates *policy.AuthGate) *ContractHandler {
	return &ContractHandler{svc: svc, gates: gates}
}

// Collection serves GET (list) and POST (create) on /contracts.
func (h *ContractHandler) Collection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.list(w, r)
	case http.MethodPost:
		h.create(w, r)
	default:
		httpx.MethodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

func (h *ContractHandler) create(w http.ResponseWriter, r *http.Request) {
	if err := h.gates.Authorize(r.Context(), gate.ActionCreate, policy.ResourceContract, nil); err != nil {
		writeError(w, r, err)
		return
	}
	var p mapper.Payload
	if err := httpx.Decode(r, &p); err != nil {
		writeError(w, r, err)
		return
	}
	receipt, err := h.svc.Create(r.Context(), tenantID(r), p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, receipt)
}

func (h *ContractHandler) list(w http.ResponseWriter, r *http.Request) {
	if err := h.gates.Authorize(r.Context(), gate.ActionList, policy.ResourceContract, nil); err != nil {
		writeError(w, r, err)
		return
	}
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	out, err := h.svc.List(r.Context(), tenantID(r), page, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if out == nil {
		out = []models.Contract{}
	}
	httpx.JSON(w, http.StatusOK, out)
}

// Show serves GET /contracts/show?id=.
func (h *ContractHandler) Show(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpx.MethodNotAllowed(w, http.MethodGet)
		return
	}
	c, err := h.svc.Get(r.Context(), tenantID(r), r.URL.Query().Get("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.gates.Authorize(r.Context(), gate.ActionView, policy.ResourceContract, c); err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}
