package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/gaveta-wms/gaveta/internal/inventory"
)

// LowStockScanJob sweeps the stock records and logs every item under the
// threshold. The sweep is read-only; it never mutates the ledger.
type LowStockScanJob struct {
	Inventory *inventory.Service
	Logger    *slog.Logger
}

// NewLowStockScanJob wires dependencies for the sweep handler.
func NewLowStockScanJob(inv *inventory.Service, logger *slog.Logger) *LowStockScanJob {
	return &LowStockScanJob{Inventory: inv, Logger: logger}
}

// Handle processes low-stock sweep tasks.
func (j *LowStockScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Inventory == nil {
		return errors.New("low stock scan: handler not configured")
	}
	var payload LowStockScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	records, err := j.Inventory.LowStock(ctx, payload.Threshold)
	if err != nil {
		j.logger().Error("low stock scan failed", slog.Any("error", err))
		return err
	}
	logger := j.logger().With(slog.Int("flagged", len(records)))
	for _, rec := range records {
		logger.Warn("low stock",
			slog.String("code", rec.ItemCode),
			slog.String("location", rec.LocationName),
			slog.Int64("qty", rec.Qty))
	}
	logger.Info("low stock scan complete")
	return nil
}

func (j *LowStockScanJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
