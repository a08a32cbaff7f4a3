package locations

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/gaveta-wms/gaveta/internal/platform/httpx"
)

// RenameHook is notified after a successful rename so dependent in-memory
// state can follow the new name.
type RenameHook func(oldName, newName string)

// DeleteHook is notified after a successful delete.
type DeleteHook func(name string)

// Handler serves the storage-location endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	onRename  RenameHook
	onDelete  DeleteHook
	afterSave func()
}

// NewHandler constructs the handler. Hooks may be nil.
func NewHandler(logger *slog.Logger, service *Service, onRename RenameHook, onDelete DeleteHook, afterSave func()) *Handler {
	return &Handler{logger: logger, service: service, onRename: onRename, onDelete: onDelete, afterSave: afterSave}
}

// MountRoutes registers the location routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/locations", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Post("/", h.handleCreate)
		r.Get("/{name}", h.handleGet)
		r.Post("/{name}/rename", h.handleRename)
		r.Delete("/{name}", h.handleDelete)
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	locs, err := h.service.List(r.Context())
	if err != nil {
		h.respondError(w, "list locations", err)
		return
	}
	httpx.JSON(w, http.StatusOK, locs)
}

type createLocationRequest struct {
	Name     string `json:"name" validate:"required"`
	Kind     string `json:"kind"`
	Capacity int64  `json:"capacity" validate:"gte=0"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createLocationRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	loc, err := h.service.Create(r.Context(), CreateInput{Name: req.Name, Kind: req.Kind, Capacity: req.Capacity})
	if err != nil {
		h.respondError(w, "create location", err)
		return
	}
	h.notifySaved()
	httpx.JSON(w, http.StatusCreated, loc)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	loc, err := h.service.Get(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		h.respondError(w, "get location", err)
		return
	}
	httpx.JSON(w, http.StatusOK, loc)
}

type renameLocationRequest struct {
	NewName string `json:"new_name" validate:"required"`
}

func (h *Handler) handleRename(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	var req renameLocationRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.Rename(r.Context(), name, req.NewName); err != nil {
		h.respondError(w, "rename location", err)
		return
	}
	if h.onRename != nil {
		h.onRename(name, req.NewName)
	}
	h.notifySaved()
	httpx.JSON(w, http.StatusOK, map[string]string{"name": req.NewName})
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := h.service.Delete(r.Context(), name); err != nil {
		h.respondError(w, "delete location", err)
		return
	}
	if h.onDelete != nil {
		h.onDelete(name)
	}
	h.notifySaved()
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) notifySaved() {
	if h.afterSave != nil {
		h.afterSave()
	}
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
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
