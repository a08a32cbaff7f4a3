package receiving

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/gaveta-wms/gaveta/internal/notes"
	"github.com/gaveta-wms/gaveta/internal/orders"
	"github.com/gaveta-wms/gaveta/internal/platform/httpx"
)

// Handler serves the scan-driven receiving endpoints.
type Handler struct {
	logger  *slog.Logger
	session *Session
}

// NewHandler constructs the handler.
func NewHandler(logger *slog.Logger, session *Session) *Handler {
	return &Handler{logger: logger, session: session}
}

// MountRoutes registers the receiving routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/receiving", func(r chi.Router) {
		r.Get("/status", h.handleStatus)
		r.Post("/note", h.handleStartNote)
		r.Post("/note/switch", h.handleSwitchNote)
		r.Delete("/note", h.handleStopNote)
		r.Post("/scan", h.handleScan)
		r.Post("/undo", h.handleUndo)
	})
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{
		"active_note":   h.session.ActiveNote(),
		"history_depth": h.session.HistoryDepth(),
	}
	httpx.JSON(w, http.StatusOK, status)
}

type startNoteRequest struct {
	Number         string  `json:"number" validate:"required"`
	Date           string  `json:"date"`
	Supplier       string  `json:"supplier"`
	OriginFacility string  `json:"origin_facility"`
	TransportCost  float64 `json:"transport_cost" validate:"gte=0"`
}

func (h *Handler) handleStartNote(w http.ResponseWriter, r *http.Request) {
	var req startNoteRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	input := notes.CreateInput{
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
	note, err := h.session.StartNote(r.Context(), input)
	if err != nil {
		h.respondError(w, "start note", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, note)
}

type switchNoteRequest struct {
	NoteID int64 `json:"note_id" validate:"gt=0"`
}

func (h *Handler) handleSwitchNote(w http.ResponseWriter, r *http.Request) {
	var req switchNoteRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	note, err := h.session.SwitchNote(r.Context(), req.NoteID)
	if err != nil {
		h.respondError(w, "switch note", err)
		return
	}
	httpx.JSON(w, http.StatusOK, note)
}

func (h *Handler) handleStopNote(w http.ResponseWriter, r *http.Request) {
	h.session.StopNote()
	w.WriteHeader(http.StatusNoContent)
}

type scanRequest struct {
	Code string `json:"code" validate:"required"`
}

func (h *Handler) handleScan(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	outcome, err := h.session.HandleScan(r.Context(), req.Code)
	if err != nil {
		h.respondError(w, "handle scan", err)
		return
	}
	httpx.JSON(w, http.StatusOK, outcome)
}

func (h *Handler) handleUndo(w http.ResponseWriter, r *http.Request) {
	outcome, err := h.session.UndoLastScan(r.Context())
	if err != nil {
		h.respondError(w, "undo scan", err)
		return
	}
	if outcome == nil {
		httpx.JSON(w, http.StatusOK, map[string]any{"undone": false})
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"undone": true, "outcome": outcome})
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrNoActiveNote):
		httpx.Problem(w, http.StatusConflict, "No Active Note", err.Error())
	case errors.Is(err, orders.ErrNothingPending):
		httpx.Problem(w, http.StatusConflict, "Nothing Pending", err.Error())
	case errors.Is(err, notes.ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrValidation), errors.Is(err, notes.ErrValidation), errors.Is(err, orders.ErrValidation):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error(op+" failed", "error", err)
		httpx.RespondError(w, err)
	}
}
