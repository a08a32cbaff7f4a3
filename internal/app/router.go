package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gaveta-wms/gaveta/internal/bins"
	"github.com/gaveta-wms/gaveta/internal/inventory"
	"github.com/gaveta-wms/gaveta/internal/locations"
	"github.com/gaveta-wms/gaveta/internal/notes"
	"github.com/gaveta-wms/gaveta/internal/optics"
	"github.com/gaveta-wms/gaveta/internal/orders"
	"github.com/gaveta-wms/gaveta/internal/receiving"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger *slog.Logger
	Config *Config
	Pool   *pgxpool.Pool

	LocationsHandler *locations.Handler
	InventoryHandler *inventory.Handler
	OrdersHandler    *orders.Handler
	NotesHandler     *notes.Handler
	BinsHandler      *bins.Handler
	ReceivingHandler *receiving.Handler
	OpticsHandler    *optics.Handler
}

// NewRouter constructs the chi.Router with the default middleware chain and
// every module mounted under /api.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger: params.Logger,
		Config: params.Config,
	}) {
		r.Use(mw)
	}
	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if params.Pool != nil {
			if err := params.Pool.Ping(req.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(`{"status":"degraded"}`))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(r chi.Router) {
		if params.LocationsHandler != nil {
			params.LocationsHandler.MountRoutes(r)
		}
		if params.InventoryHandler != nil {
			params.InventoryHandler.MountRoutes(r)
		}
		if params.OrdersHandler != nil {
			params.OrdersHandler.MountRoutes(r)
		}
		if params.NotesHandler != nil {
			params.NotesHandler.MountRoutes(r)
		}
		if params.BinsHandler != nil {
			params.BinsHandler.MountRoutes(r)
		}
		if params.ReceivingHandler != nil {
			params.ReceivingHandler.MountRoutes(r)
		}
		if params.OpticsHandler != nil {
			params.OpticsHandler.MountRoutes(r)
		}
	})

	return r
}
