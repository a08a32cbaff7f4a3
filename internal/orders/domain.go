package orders

import (
	"errors"
	"fmt"
	"time"
)

// Order is a purchase order owning an ordered list of lines.
type Order struct {
	ID          int64     `json:"id"`
	DisplayName string    `json:"display_name"`
	ClientName  string    `json:"client_name"`
	Status      string    `json:"status"`
	Notes       string    `json:"notes"`
	Closed      bool      `json:"closed"`
	CreatedAt   time.Time `json:"created_at"`
}

// Line is one item position on an order. The quantities always satisfy
// received + pending == ordered, with all three non-negative.
type Line struct {
	ID          int64  `json:"id"`
	OrderID     int64  `json:"order_id"`
	ItemCode    string `json:"item_code"`
	Description string `json:"description"`
	QtyOrdered  int64  `json:"qty_ordered"`
	QtyReceived int64  `json:"qty_received"`
	QtyPending  int64  `json:"qty_pending"`
}

// NewLine builds a line with nothing received yet.
func NewLine(orderID int64, code, description string, ordered int64) (Line, error) {
	if code == "" {
		return Line{}, fmt.Errorf("%w: item code required", ErrValidation)
	}
	if ordered <= 0 {
		return Line{}, fmt.Errorf("%w: ordered quantity must be > 0", ErrValidation)
	}
	return Line{
		OrderID:     orderID,
		ItemCode:    code,
		Description: description,
		QtyOrdered:  ordered,
		QtyReceived: 0,
		QtyPending:  ordered,
	}, nil
}

// Receive advances the received count by one unit, clamped at the ordered
// quantity, and reports whether the line is now complete.
func (l *Line) Receive() bool {
	l.QtyReceived++
	if l.QtyReceived > l.QtyOrdered {
		l.QtyReceived = l.QtyOrdered
	}
	l.QtyPending = l.QtyOrdered - l.QtyReceived
	return l.QtyPending == 0
}

// Unreceive reverses one received unit, clamped at zero.
func (l *Line) Unreceive() {
	l.QtyReceived--
	if l.QtyReceived < 0 {
		l.QtyReceived = 0
	}
	l.QtyPending = l.QtyOrdered - l.QtyReceived
	if l.QtyPending > l.QtyOrdered {
		l.QtyPending = l.QtyOrdered
	}
}

// Grow adds to the ordered quantity, the growth landing in pending.
func (l *Line) Grow(qty int64) error {
	if qty <= 0 {
		return fmt.Errorf("%w: growth must be > 0", ErrValidation)
	}
	l.QtyOrdered += qty
	l.QtyPending += qty
	return nil
}

var (
	// ErrNotFound indicates a missing order.
	ErrNotFound = errors.New("orders: not found")
	// ErrLineNotFound indicates a missing order line.
	ErrLineNotFound = errors.New("orders: line not found")
	// ErrNothingPending indicates no open order has pending units for a code.
	ErrNothingPending = errors.New("orders: nothing pending for this code")
	// ErrValidation indicates invalid input.
	ErrValidation = errors.New("orders: invalid input")
)
