package orders

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/gaveta-wms/gaveta/internal/platform/httpx"
)

const maxImportSize = 16 << 20

// Handler serves the purchase-order endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs the handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers the order routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/orders", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Post("/", h.handleCreate)
		r.Post("/import", h.handleImport)
		r.Get("/{id}", h.handleGet)
		r.Delete("/{id}", h.handleDelete)
		r.Post("/{id}/lines", h.handleAddLine)
		r.Post("/{id}/close", h.handleClose)
		r.Post("/{id}/reopen", h.handleReopen)
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	includeClosed := r.URL.Query().Get("include_closed") == "true"
	list, err := h.service.List(r.Context(), includeClosed)
	if err != nil {
		h.respondError(w, "list orders", err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

type orderLineRequest struct {
	ItemCode    string `json:"item_code" validate:"required"`
	Description string `json:"description"`
	Qty         int64  `json:"qty" validate:"gt=0"`
}

type createOrderRequest struct {
	DisplayName string             `json:"display_name"`
	ClientName  string             `json:"client_name" validate:"required"`
	Notes       string             `json:"notes"`
	Lines       []orderLineRequest `json:"lines" validate:"dive"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	input := CreateInput{DisplayName: req.DisplayName, ClientName: req.ClientName, Notes: req.Notes}
	for _, li := range req.Lines {
		input.Lines = append(input.Lines, LineInput{ItemCode: li.ItemCode, Description: li.Description, Qty: li.Qty})
	}
	order, lines, err := h.service.Create(r.Context(), input)
	if err != nil {
		h.respondError(w, "create order", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"order": order, "lines": lines})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	order, lines, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, "get order", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"order": order, "lines": lines})
}

func (h *Handler) handleAddLine(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	var req orderLineRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	line, err := h.service.AddLine(r.Context(), id, LineInput{ItemCode: req.ItemCode, Description: req.Description, Qty: req.Qty})
	if err != nil {
		h.respondError(w, "add order line", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, line)
}

func (h *Handler) handleClose(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	if err := h.service.Close(r.Context(), id); err != nil {
		h.respondError(w, "close order", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleReopen(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	if err := h.service.Reopen(r.Context(), id); err != nil {
		h.respondError(w, "reopen order", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.respondError(w, "delete order", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleImport(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxImportSize); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "multipart form required")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "file field required")
		return
	}
	defer file.Close()

	summary, err := h.service.Import(r.Context(), file, header.Filename)
	if err != nil {
		h.respondError(w, "import orders", err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid order id")
		return 0, false
	}
	return id, true
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrLineNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrNothingPending):
		httpx.Problem(w, http.StatusConflict, "Nothing Pending", err.Error())
	case errors.Is(err, ErrValidation):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error(op+" failed", "error", err)
		httpx.RespondError(w, err)
	}
}
