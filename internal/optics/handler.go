package optics

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/gaveta-wms/gaveta/internal/platform/httpx"
)

// Handler serves the optics branch-stock endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs the handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers the optics routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/optics", func(r chi.Router) {
		r.Get("/branches", h.handleListBranches)
		r.Post("/branches", h.handleCreateBranch)
		r.Delete("/branches/{id}", h.handleDeleteBranch)
		r.Get("/branches/{id}/stock", h.handleBranchStock)
		r.Post("/branches/{id}/stock", h.handleReceive)
		r.Put("/branches/{id}/stock/{ref}", h.handleAdjust)
		r.Post("/transfers", h.handleTransfer)
		r.Get("/movements", h.handleMovements)
	})
}

func (h *Handler) handleListBranches(w http.ResponseWriter, r *http.Request) {
	branches, err := h.service.ListBranches(r.Context())
	if err != nil {
		h.respondError(w, "list branches", err)
		return
	}
	httpx.JSON(w, http.StatusOK, branches)
}

type createBranchRequest struct {
	Name string `json:"name" validate:"required"`
}

func (h *Handler) handleCreateBranch(w http.ResponseWriter, r *http.Request) {
	var req createBranchRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	branch, err := h.service.CreateBranch(r.Context(), req.Name)
	if err != nil {
		h.respondError(w, "create branch", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, branch)
}

func (h *Handler) handleDeleteBranch(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteBranch(r.Context(), id); err != nil {
		h.respondError(w, "delete branch", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleBranchStock(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	stock, err := h.service.BranchStock(r.Context(), id)
	if err != nil {
		h.respondError(w, "list branch stock", err)
		return
	}
	if stock == nil {
		stock = []Stock{}
	}
	httpx.JSON(w, http.StatusOK, stock)
}

type receiveStockRequest struct {
	Ref         string `json:"ref" validate:"required"`
	Description string `json:"description"`
	Qty         int64  `json:"qty" validate:"gt=0"`
}

func (h *Handler) handleReceive(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	var req receiveStockRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	stock, err := h.service.Receive(r.Context(), id, req.Ref, req.Description, req.Qty)
	if err != nil {
		h.respondError(w, "receive stock", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, stock)
}

type adjustStockRequest struct {
	Qty int64 `json:"qty" validate:"gte=0"`
}

func (h *Handler) handleAdjust(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	var req adjustStockRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	stock, err := h.service.Adjust(r.Context(), id, chi.URLParam(r, "ref"), req.Qty)
	if err != nil {
		h.respondError(w, "adjust stock", err)
		return
	}
	httpx.JSON(w, http.StatusOK, stock)
}

type transferRequest struct {
	FromBranch int64  `json:"from_branch" validate:"gt=0"`
	ToBranch   int64  `json:"to_branch" validate:"gt=0"`
	Ref        string `json:"ref" validate:"required"`
	Qty        int64  `json:"qty" validate:"gt=0"`
}

func (h *Handler) handleTransfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.Transfer(r.Context(), req.FromBranch, req.ToBranch, req.Ref, req.Qty); err != nil {
		h.respondError(w, "transfer stock", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleMovements(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	movements, err := h.service.Movements(r.Context(), limit)
	if err != nil {
		h.respondError(w, "list movements", err)
		return
	}
	httpx.JSON(w, http.StatusOK, movements)
}

func (h *Handler) parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid branch id")
		return 0, false
	}
	return id, true
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrBranchNotFound), errors.Is(err, ErrStockNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrDuplicate):
		httpx.Problem(w, http.StatusConflict, "Duplicate", err.Error())
	case errors.Is(err, ErrInsufficientStock):
		httpx.Problem(w, http.StatusConflict, "Insufficient Stock", err.Error())
	case errors.Is(err, ErrValidation):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error(op+" failed", "error", err)
		httpx.RespondError(w, err)
	}
}
