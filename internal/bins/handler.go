package bins

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/gaveta-wms/gaveta/internal/locations"
	"github.com/gaveta-wms/gaveta/internal/platform/httpx"
	"github.com/gaveta-wms/gaveta/internal/platform/spreadsheet"
)

// Handler serves the bin-assignment endpoints.
type Handler struct {
	logger *slog.Logger
	engine *Engine
}

// NewHandler constructs the handler.
func NewHandler(logger *slog.Logger, engine *Engine) *Handler {
	return &Handler{logger: logger, engine: engine}
}

// MountRoutes registers the bin routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/bins", func(r chi.Router) {
		r.Get("/assignments", h.handleActive)
		r.Get("/assignments/archived", h.handleArchived)
		r.Put("/assignments/{orderID}/{code}/units", h.handleEditUnits)
		r.Put("/assignments/{orderID}/{code}/location", h.handleMove)
		r.Post("/{name}/lifecycle", h.handleLifecycle)
		r.Get("/report", h.handleReport)
		r.Get("/report/export.csv", h.handleReportCSV)
	})
}

func (h *Handler) handleActive(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, h.engine.Active())
}

func (h *Handler) handleArchived(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	archived, err := h.engine.Archived(r.Context(), limit)
	if err != nil {
		h.respondError(w, "list archived assignments", err)
		return
	}
	if archived == nil {
		archived = []Assignment{}
	}
	httpx.JSON(w, http.StatusOK, archived)
}

type editUnitsRequest struct {
	Units int64 `json:"units" validate:"gte=0"`
}

func (h *Handler) handleEditUnits(w http.ResponseWriter, r *http.Request) {
	key, ok := h.parseKey(w, r)
	if !ok {
		return
	}
	var req editUnitsRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	assignment, err := h.engine.EditUnits(r.Context(), key, req.Units)
	if err != nil {
		h.respondError(w, "edit assignment units", err)
		return
	}
	httpx.JSON(w, http.StatusOK, assignment)
}

type moveRequest struct {
	Location string `json:"location" validate:"required"`
}

func (h *Handler) handleMove(w http.ResponseWriter, r *http.Request) {
	key, ok := h.parseKey(w, r)
	if !ok {
		return
	}
	var req moveRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	assignment, err := h.engine.MoveAssignment(r.Context(), key, req.Location)
	if err != nil {
		h.respondError(w, "move assignment", err)
		return
	}
	httpx.JSON(w, http.StatusOK, assignment)
}

type lifecycleRequest struct {
	State string `json:"state" validate:"required,oneof=OPEN INVOICED"`
}

func (h *Handler) handleLifecycle(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	var req lifecycleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.engine.TransitionLifecycle(r.Context(), name, locations.Lifecycle(req.State)); err != nil {
		h.respondError(w, "transition bin lifecycle", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"name": name, "state": req.State})
}

func (h *Handler) handleReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.engine.Report(r.Context())
	if err != nil {
		h.respondError(w, "build bin report", err)
		return
	}
	if report == nil {
		report = []ReportRow{}
	}
	httpx.JSON(w, http.StatusOK, report)
}

var reportHeader = []string{"code", "description", "inventory_units", "assigned_units", "total"}

func (h *Handler) handleReportCSV(w http.ResponseWriter, r *http.Request) {
	report, err := h.engine.Report(r.Context())
	if err != nil {
		h.respondError(w, "build bin report", err)
		return
	}
	rows := make([][]string, 0, len(report))
	for _, row := range report {
		rows = append(rows, []string{
			row.Code,
			row.Description,
			strconv.FormatInt(row.InventoryUnits, 10),
			strconv.FormatInt(row.AssignedUnits, 10),
			strconv.FormatInt(row.Total, 10),
		})
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "bin_report.csv"))
	if err := spreadsheet.WriteCSV(w, reportHeader, rows); err != nil {
		h.logger.Error("export bin report failed", "error", err)
	}
}

func (h *Handler) parseKey(w http.ResponseWriter, r *http.Request) (Key, bool) {
	orderID, err := strconv.ParseInt(chi.URLParam(r, "orderID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid order id")
		return Key{}, false
	}
	code := chi.URLParam(r, "code")
	if code == "" {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "item code required")
		return Key{}, false
	}
	return NewKey(orderID, code), true
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, locations.ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrValidation), errors.Is(err, locations.ErrValidation):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error(op+" failed", "error", err)
		httpx.RespondError(w, err)
	}
}
