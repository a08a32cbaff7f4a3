package receiving

import (
	"errors"

	"github.com/gaveta-wms/gaveta/internal/bins"
	"github.com/gaveta-wms/gaveta/internal/orders"
)

// ScanOutcome describes what a single barcode scan did.
type ScanOutcome struct {
	OrderID    int64       `json:"order_id"`
	OrderName  string      `json:"order_name"`
	ClientName string      `json:"client_name"`
	Line       orders.Line `json:"line"`
	Completed  bool        `json:"completed"`
	BinName    string      `json:"bin_name"`
	BinCreated bool        `json:"bin_created"`
	UnitsInBin int64       `json:"units_in_bin"`
	NoteID     int64       `json:"note_id"`
	NoteNumber string      `json:"note_number"`
}

// UndoOutcome describes a reversed scan. The delivery-note line is not
// reversed; only order-line and bin state go back.
type UndoOutcome struct {
	OrderID    int64       `json:"order_id"`
	ClientName string      `json:"client_name"`
	Line       orders.Line `json:"line"`
	BinName    string      `json:"bin_name"`
	UnitsInBin int64       `json:"units_in_bin"`
}

// historyEntry captures enough state to reverse one scan.
type historyEntry struct {
	orderID    int64
	clientName string
	lineID     int64
	binKey     bins.Key
}

var (
	// ErrNoActiveNote means a scan arrived with no delivery note selected.
	ErrNoActiveNote = errors.New("receiving: no active delivery note")
	// ErrValidation indicates invalid input.
	ErrValidation = errors.New("receiving: invalid input")
)
