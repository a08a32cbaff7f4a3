package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/gaveta-wms/gaveta/internal/app"
	"github.com/gaveta-wms/gaveta/internal/bins"
	"github.com/gaveta-wms/gaveta/internal/inventory"
	"github.com/gaveta-wms/gaveta/internal/locations"
	"github.com/gaveta-wms/gaveta/internal/notes"
	"github.com/gaveta-wms/gaveta/internal/optics"
	"github.com/gaveta-wms/gaveta/internal/orders"
	"github.com/gaveta-wms/gaveta/internal/platform/cache"
	"github.com/gaveta-wms/gaveta/internal/platform/db"
	"github.com/gaveta-wms/gaveta/internal/receiving"
	"github.com/gaveta-wms/gaveta/internal/shared"
	"github.com/gaveta-wms/gaveta/jobs"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		logger.Error("run migrations", slog.Any("error", err))
		os.Exit(1)
	}

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, dashboard cache disabled", slog.Any("error", err))
		redisClient = nil
	}
	defer func() {
		if redisClient != nil {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}
	}()

	auditLogger := shared.NewAuditLogger(pool)

	locationsService := locations.NewService(locations.NewRepository(pool), auditLogger)
	inventoryService := inventory.NewService(
		inventory.NewRepository(pool),
		locationsService,
		cache.NewJSONCache(redisClient, cfg.DashboardTTL),
		inventory.ServiceConfig{LowStockThreshold: cfg.LowStockThreshold},
	)
	ordersService := orders.NewService(orders.NewRepository(pool), auditLogger)
	notesService := notes.NewService(notes.NewRepository(pool), auditLogger)
	opticsService := optics.NewService(optics.NewRepository(pool), auditLogger)

	engine := bins.NewEngine(bins.NewRepository(pool), locationsService, inventoryService, auditLogger)
	if err := engine.Load(ctx); err != nil {
		logger.Error("load bin assignments", slog.Any("error", err))
		os.Exit(1)
	}

	session := receiving.NewSession(ordersService, notesService, engine, inventoryService, auditLogger)

	invalidateDashboard := func() {
		if err := inventoryService.InvalidateDashboard(context.Background()); err != nil {
			logger.Warn("invalidate dashboard", slog.Any("error", err))
		}
	}

	// With redis up, bulk mutations hand the dashboard rebuild to the worker
	// instead of leaving the cache cold until the next read.
	var warmDashboard func()
	if redisClient != nil {
		jobsClient := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
		defer func() {
			if err := jobsClient.Close(); err != nil {
				logger.Warn("jobs client close", slog.Any("error", err))
			}
		}()
		warmDashboard = func() {
			payload := jobs.DashboardWarmupPayload{Reason: "stock_mutation"}
			if _, err := jobsClient.EnqueueDashboardWarmup(context.Background(), payload); err != nil {
				logger.Warn("enqueue dashboard warmup", slog.Any("error", err))
			}
		}
	}

	router := app.NewRouter(app.RouterParams{
		Logger: logger,
		Config: cfg,
		Pool:   pool,
		LocationsHandler: locations.NewHandler(
			logger,
			locationsService,
			engine.HandleLocationRenamed,
			engine.HandleLocationDeleted,
			invalidateDashboard,
		),
		InventoryHandler: inventory.NewHandler(logger, inventoryService, warmDashboard),
		OrdersHandler:    orders.NewHandler(logger, ordersService),
		NotesHandler:     notes.NewHandler(logger, notesService),
		BinsHandler:      bins.NewHandler(logger, engine),
		ReceivingHandler: receiving.NewHandler(logger, session),
		OpticsHandler:    optics.NewHandler(logger, opticsService),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
