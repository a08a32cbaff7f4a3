package bins

import (
	"errors"
	"time"

	"github.com/gaveta-wms/gaveta/internal/shared"
)

// Key identifies the active assignment of one order line to a bin.
type Key struct {
	OrderID int64  `json:"order_id"`
	Code    string `json:"code"`
}

// NewKey folds the item code so scans in any casing hit the same assignment.
func NewKey(orderID int64, itemCode string) Key {
	return Key{OrderID: orderID, Code: shared.Fold(itemCode)}
}

// Assignment tracks units of one order line sitting in a bin, not yet merged
// into general inventory. Archived assignments keep their persisted row with
// active=false as an audit trail.
type Assignment struct {
	ID           int64     `json:"id"`
	OrderID      int64     `json:"order_id"`
	ItemCode     string    `json:"item_code"`
	ClientName   string    `json:"client_name"`
	Description  string    `json:"description"`
	Units        int64     `json:"units"`
	LocationName string    `json:"location_name"`
	ArchivedAt   time.Time `json:"archived_at,omitempty"`
}

// Key returns the working-map key of the assignment.
func (a Assignment) Key() Key {
	return NewKey(a.OrderID, a.ItemCode)
}

// OrderRef carries the order fields the engine needs to resolve a bin.
type OrderRef struct {
	ID          int64
	DisplayName string
	ClientName  string
}

// LineRef carries the order-line fields the engine needs.
type LineRef struct {
	ItemCode    string
	Description string
}

// ReportRow is one line of the bin report.
type ReportRow struct {
	Code           string `json:"code"`
	Description    string `json:"description"`
	InventoryUnits int64  `json:"inventory_units"`
	AssignedUnits  int64  `json:"assigned_units"`
	Total          int64  `json:"total"`
}

var (
	// ErrNotFound indicates no active assignment for the key.
	ErrNotFound = errors.New("bins: assignment not found")
	// ErrValidation indicates invalid input.
	ErrValidation = errors.New("bins: invalid input")
)
