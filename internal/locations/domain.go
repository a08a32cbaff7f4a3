package locations

import (
	"errors"
	"time"
)

// Lifecycle is the storage location state.
type Lifecycle string

const (
	// LifecycleOpen means the location accepts new stock.
	LifecycleOpen Lifecycle = "OPEN"
	// LifecycleInvoiced means the location is closed out for invoicing.
	LifecycleInvoiced Lifecycle = "INVOICED"
)

// KindBin marks locations created by the bin assignment engine.
const KindBin = "BIN"

// Location is a named storage place (drawer, shelf zone, receiving bin).
// Names are unique case-insensitively. Capacity is informational only.
type Location struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Kind      string    `json:"kind"`
	Capacity  int64     `json:"capacity"`
	Lifecycle Lifecycle `json:"lifecycle"`
	CreatedAt time.Time `json:"created_at"`
}

var (
	// ErrNotFound indicates the location does not exist.
	ErrNotFound = errors.New("locations: not found")
	// ErrDuplicate indicates another location already uses the name.
	ErrDuplicate = errors.New("locations: name already taken")
	// ErrValidation indicates invalid input.
	ErrValidation = errors.New("locations: invalid input")
)
