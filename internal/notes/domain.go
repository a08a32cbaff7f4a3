package notes

import (
	"errors"
	"time"
)

// Note is a delivery note (goods-received document).
type Note struct {
	ID             int64     `json:"id"`
	Number         string    `json:"number"`
	Date           time.Time `json:"date"`
	Supplier       string    `json:"supplier"`
	OriginFacility string    `json:"origin_facility"`
	TransportCost  float64   `json:"transport_cost"`
}

// Line is one item position on a note. Lines are merged by item code:
// re-scanning a code increments the quantity instead of duplicating the line.
type Line struct {
	ID             int64   `json:"id"`
	NoteID         int64   `json:"note_id"`
	ItemCode       string  `json:"item_code"`
	Name           string  `json:"name"`
	Category       string  `json:"category"`
	WholesalePrice float64 `json:"wholesale_price"`
	RetailPrice    float64 `json:"retail_price"`
	Qty            int64   `json:"qty"`
}

// Totals summarises a note.
type Totals struct {
	Lines          int     `json:"lines"`
	Units          int64   `json:"units"`
	WholesaleValue float64 `json:"wholesale_value"`
	TransportCost  float64 `json:"transport_cost"`
}

var (
	// ErrNotFound indicates a missing note.
	ErrNotFound = errors.New("notes: not found")
	// ErrValidation indicates invalid input.
	ErrValidation = errors.New("notes: invalid input")
)
