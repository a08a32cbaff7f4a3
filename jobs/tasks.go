package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskDashboardWarmup refreshes the cached inventory dashboard.
	TaskDashboardWarmup = "inventory:dashboard_warmup"
	// TaskLowStockScan sweeps stock records for quantities under the threshold.
	TaskLowStockScan = "inventory:low_stock_scan"
)

// DashboardWarmupPayload configures a dashboard warmup run.
type DashboardWarmupPayload struct {
	Reason string `json:"reason,omitempty"`
}

// NewDashboardWarmupTask constructs the warmup task.
func NewDashboardWarmupTask(payload DashboardWarmupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskDashboardWarmup, data), nil
}

// LowStockScanPayload configures a low-stock sweep. A zero threshold uses the
// service default.
type LowStockScanPayload struct {
	Threshold int64 `json:"threshold,omitempty"`
}

// NewLowStockScanTask constructs the sweep task.
func NewLowStockScanTask(payload LowStockScanPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLowStockScan, data), nil
}
