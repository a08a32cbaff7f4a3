package notes

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/gaveta-wms/gaveta/internal/platform/httpx"
)

// Handler serves the delivery-note endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs the handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers the delivery-note routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/notes", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Post("/", h.handleCreate)
		r.Get("/{id}", h.handleGet)
		r.Get("/{id}/lines", h.handleLines)
		r.Get("/{id}/totals", h.handleTotals)
		r.Post("/{id}/lines", h.handleAppendLine)
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context())
	if err != nil {
		h.respondError(w, "list notes", err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

type createNoteRequest struct {
	Number         string  `json:"number" validate:"required"`
	Date           string  `json:"date"`
	Supplier       string  `json:"supplier"`
	OriginFacility string  `json:"origin_facility"`
	TransportCost  float64 `json:"transport_cost" validate:"gte=0"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createNoteRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	input := CreateInput{
		Number:         req.Number,
		Supplier:       req.Supplier,
		OriginFacility: req.OriginFacility,
		TransportCost:  req.TransportCost,
	}
	if req.Date != "" {
		date, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "date must be YYYY-MM-DD")
			return
		}
		input.Date = date
	}
	note, err := h.service.Create(r.Context(), input)
	if err != nil {
		h.respondError(w, "create note", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, note)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	note, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, "get note", err)
		return
	}
	httpx.JSON(w, http.StatusOK, note)
}

func (h *Handler) handleLines(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	lines, err := h.service.Lines(r.Context(), id)
	if err != nil {
		h.respondError(w, "list note lines", err)
		return
	}
	if lines == nil {
		lines = []Line{}
	}
	httpx.JSON(w, http.StatusOK, lines)
}

func (h *Handler) handleTotals(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	totals, err := h.service.Totals(r.Context(), id)
	if err != nil {
		h.respondError(w, "note totals", err)
		return
	}
	httpx.JSON(w, http.StatusOK, totals)
}

type appendLineRequest struct {
	ItemCode       string  `json:"item_code" validate:"required"`
	Name           string  `json:"name"`
	Category       string  `json:"category"`
	WholesalePrice float64 `json:"wholesale_price" validate:"gte=0"`
	RetailPrice    float64 `json:"retail_price" validate:"gte=0"`
	Qty            int64   `json:"qty" validate:"gt=0"`
}

func (h *Handler) handleAppendLine(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	var req appendLineRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	line, err := h.service.AppendLine(r.Context(), id, LineInput{
		ItemCode:       req.ItemCode,
		Name:           req.Name,
		Category:       req.Category,
		WholesalePrice: req.WholesalePrice,
		RetailPrice:    req.RetailPrice,
		Qty:            req.Qty,
	})
	if err != nil {
		h.respondError(w, "append note line", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, line)
}

func (h *Handler) parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid note id")
		return 0, false
	}
	return id, true
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrValidation):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error(op+" failed", "error", err)
		httpx.RespondError(w, err)
	}
}
