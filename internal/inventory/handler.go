package inventory

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/gaveta-wms/gaveta/internal/platform/httpx"
	"github.com/gaveta-wms/gaveta/internal/platform/spreadsheet"
)

const maxImportSize = 16 << 20

// Handler serves the catalog, stock, dashboard, and import/export endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	warm    func()
}

// NewHandler constructs the handler. warm, when non-nil, schedules a
// background dashboard rebuild after bulk stock mutations.
func NewHandler(logger *slog.Logger, service *Service, warm func()) *Handler {
	return &Handler{logger: logger, service: service, warm: warm}
}

func (h *Handler) scheduleWarmup() {
	if h.warm != nil {
		h.warm()
	}
}

// MountRoutes registers the inventory routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/dashboard", h.handleDashboard)
	r.Route("/items", func(r chi.Router) {
		r.Get("/", h.handleListItems)
		r.Post("/", h.handleCreateItem)
		r.Get("/search", h.handleSearch)
		r.Get("/{code}", h.handleGetItem)
		r.Put("/{code}", h.handleUpdateItem)
		r.Delete("/{code}", h.handleDeleteItem)
	})
	r.Route("/stock", func(r chi.Router) {
		r.Get("/", h.handleListStock)
		r.Get("/export.csv", h.handleExportCSV)
		r.Get("/export.xlsx", h.handleExportXLSX)
		r.Post("/import", h.handleImport)
		r.Get("/lookup/{code}", h.handleLookup)
		r.Post("/adjust", h.handleAdjust)
	})
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Dashboard(r.Context())
	if err != nil {
		h.respondError(w, "build dashboard", err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) handleListItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListItems(r.Context())
	if err != nil {
		h.respondError(w, "list items", err)
		return
	}
	httpx.JSON(w, http.StatusOK, items)
}

type itemRequest struct {
	Code           string  `json:"code" validate:"required"`
	Name           string  `json:"name" validate:"required"`
	Category       string  `json:"category"`
	WholesalePrice float64 `json:"wholesale_price" validate:"gte=0"`
	RetailPrice    float64 `json:"retail_price" validate:"gte=0"`
}

func (req itemRequest) item() Item {
	return Item{
		Code:           req.Code,
		Name:           req.Name,
		Category:       req.Category,
		WholesalePrice: req.WholesalePrice,
		RetailPrice:    req.RetailPrice,
	}
}

func (h *Handler) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	item, err := h.service.CreateItem(r.Context(), req.item())
	if err != nil {
		h.respondError(w, "create item", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, item)
}

func (h *Handler) handleGetItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.service.GetItem(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		h.respondError(w, "get item", err)
		return
	}
	httpx.JSON(w, http.StatusOK, item)
}

func (h *Handler) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	item := req.item()
	item.Code = chi.URLParam(r, "code")
	if err := h.service.UpdateItem(r.Context(), item); err != nil {
		h.respondError(w, "update item", err)
		return
	}
	httpx.JSON(w, http.StatusOK, item)
}

func (h *Handler) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteItem(r.Context(), chi.URLParam(r, "code")); err != nil {
		h.respondError(w, "delete item", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.respondError(w, "search items", err)
		return
	}
	if items == nil {
		items = []Item{}
	}
	httpx.JSON(w, http.StatusOK, items)
}

func (h *Handler) handleListStock(w http.ResponseWriter, r *http.Request) {
	records, err := h.service.Stock(r.Context())
	if err != nil {
		h.respondError(w, "list stock", err)
		return
	}
	httpx.JSON(w, http.StatusOK, records)
}

func (h *Handler) handleLookup(w http.ResponseWriter, r *http.Request) {
	records, err := h.service.Lookup(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		h.respondError(w, "lookup stock", err)
		return
	}
	httpx.JSON(w, http.StatusOK, records)
}

type adjustRequest struct {
	Code     string `json:"code" validate:"required"`
	Location string `json:"location" validate:"required"`
	Delta    int64  `json:"delta"`
}

func (h *Handler) handleAdjust(w http.ResponseWriter, r *http.Request) {
	var req adjustRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	rec, applied, err := h.service.ApplyDelta(r.Context(), req.Code, req.Location, req.Delta, ItemMeta{})
	if err != nil {
		h.respondError(w, "adjust stock", err)
		return
	}
	if !applied {
		httpx.JSON(w, http.StatusOK, map[string]any{"applied": false})
		return
	}
	_ = h.service.InvalidateDashboard(r.Context())
	h.scheduleWarmup()
	httpx.JSON(w, http.StatusOK, map[string]any{"applied": true, "record": rec})
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

	summary, err := h.service.ImportCatalog(r.Context(), file, header.Filename)
	if err != nil {
		h.respondError(w, "import catalog", err)
		return
	}
	_ = h.service.InvalidateDashboard(r.Context())
	h.scheduleWarmup()
	httpx.JSON(w, http.StatusOK, summary)
}

var stockExportHeader = []string{"code", "name", "category", "wholesale_price", "retail_price", "quantity", "location"}

func (h *Handler) stockRows(r *http.Request) ([][]string, error) {
	records, err := h.service.Stock(r.Context())
	if err != nil {
		return nil, err
	}
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		rows = append(rows, []string{
			rec.ItemCode,
			rec.Name,
			rec.Category,
			strconv.FormatFloat(rec.WholesalePrice, 'f', 2, 64),
			strconv.FormatFloat(rec.RetailPrice, 'f', 2, 64),
			strconv.FormatInt(rec.Qty, 10),
			rec.LocationName,
		})
	}
	return rows, nil
}

func (h *Handler) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	rows, err := h.stockRows(r)
	if err != nil {
		h.respondError(w, "export stock", err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "stock.csv"))
	if err := spreadsheet.WriteCSV(w, stockExportHeader, rows); err != nil {
		h.logger.Error("export stock csv failed", "error", err)
	}
}

func (h *Handler) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	rows, err := h.stockRows(r)
	if err != nil {
		h.respondError(w, "export stock", err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "stock.xlsx"))
	if err := spreadsheet.WriteXLSX(w, "Stock", stockExportHeader, rows); err != nil {
		h.logger.Error("export stock xlsx failed", "error", err)
	}
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrItemNotFound), errors.Is(err, ErrRecordNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrDuplicate):
		httpx.Problem(w, http.StatusConflict, "Duplicate", err.Error())
	case errors.Is(err, ErrValidation):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error(op+" failed", "error", err)
		httpx.RespondError(w, err)
	}
}
