package optics

import "errors"

// Branch is a retail branch carrying optics stock.
type Branch struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Stock is the quantity of one reference at one branch, unique on
// (branch, ref) case-insensitively.
type Stock struct {
	ID          int64  `json:"id"`
	BranchID    int64  `json:"branch_id"`
	Ref         string `json:"ref"`
	Description string `json:"description"`
	Qty         int64  `json:"qty"`
}

var (
	// ErrBranchNotFound indicates a missing branch.
	ErrBranchNotFound = errors.New("optics: branch not found")
	// ErrStockNotFound indicates a missing stock row.
	ErrStockNotFound = errors.New("optics: stock not found")
	// ErrDuplicate indicates a branch name collision.
	ErrDuplicate = errors.New("optics: branch already exists")
	// ErrInsufficientStock means a transfer asked for more than the source holds.
	ErrInsufficientStock = errors.New("optics: insufficient stock")
	// ErrValidation indicates invalid input.
	ErrValidation = errors.New("optics: invalid input")
)
