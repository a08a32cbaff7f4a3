package inventory

import "errors"

// Item is a catalog entry: the canonical description and pricing for a code.
type Item struct {
	ID             int64   `json:"id"`
	Code           string  `json:"code"`
	Name           string  `json:"name"`
	Category       string  `json:"category"`
	WholesalePrice float64 `json:"wholesale_price"`
	RetailPrice    float64 `json:"retail_price"`
}

// Record is physical stock of one item at one location, unique on
// (code, location) case-insensitively. Quantity never goes below zero.
// Zero-quantity rows are kept as placeholders for later top-ups.
type Record struct {
	ID             int64   `json:"id"`
	ItemCode       string  `json:"item_code"`
	Name           string  `json:"name"`
	Category       string  `json:"category"`
	WholesalePrice float64 `json:"wholesale_price"`
	RetailPrice    float64 `json:"retail_price"`
	Qty            int64   `json:"qty"`
	LocationName   string  `json:"location_name"`
}

// ItemMeta carries descriptive fields used when a delta materialises a new
// record and no catalog item exists yet.
type ItemMeta struct {
	Name           string
	Category       string
	WholesalePrice float64
	RetailPrice    float64
}

// DashboardSummary aggregates the control-panel numbers.
type DashboardSummary struct {
	TotalItems      int      `json:"total_items"`
	TotalUnits      int64    `json:"total_units"`
	LocationCount   int      `json:"location_count"`
	LowStock        []Record `json:"low_stock"`
	RecentLocations []string `json:"recent_locations"`
}

var (
	// ErrItemNotFound indicates a missing catalog item.
	ErrItemNotFound = errors.New("inventory: item not found")
	// ErrRecordNotFound indicates a missing stock record.
	ErrRecordNotFound = errors.New("inventory: record not found")
	// ErrDuplicate indicates a code collision in the catalog.
	ErrDuplicate = errors.New("inventory: code already exists")
	// ErrValidation indicates invalid input.
	ErrValidation = errors.New("inventory: invalid input")
)
