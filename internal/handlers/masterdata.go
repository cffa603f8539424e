package handlers

import (
	"context"
	"net/http"

	"github.com/diewo77/go-contracts/httpx"
	"github.com/diewo77/go-contracts/internal/services"
)

type MasterDataHandler struct {
	svc *services.MasterDataService
}

func NewMasterDataHandler(svc *services.MasterDataService) *MasterDataHandler {
	return &MasterDataHandler{svc: svc}
}

func serveList[T any](load func(ctx context.Context, tenantID uint) ([]T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			httpx.MethodNotAllowed(w, http.MethodGet)
			return
		}
		out, err := load(r.Context(), tenantID(r))
		if err != nil {
			writeError(w, r, err)
			return
		}
		if out == nil {
			out = []T{}
		}
		httpx.JSON(w, http.StatusOK, out)
	}
}

func (h *MasterDataHandler) TaxRates() http.HandlerFunc   { return serveList(h.svc.TaxRates) }
func (h *MasterDataHandler) Categories() http.HandlerFunc { return serveList(h.svc.Categories) }
func (h *MasterDataHandler) Templates() http.HandlerFunc  { return serveList(h.svc.Templates) }
func (h *MasterDataHandler) Catalog() http.HandlerFunc    { return serveList(h.svc.Catalog) }
