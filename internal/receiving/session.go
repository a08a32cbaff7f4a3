package receiving

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gaveta-wms/gaveta/internal/bins"
	"github.com/gaveta-wms/gaveta/internal/inventory"
	"github.com/gaveta-wms/gaveta/internal/notes"
	"github.com/gaveta-wms/gaveta/internal/orders"
	"github.com/gaveta-wms/gaveta/internal/shared"
)

// OrdersPort exposes the order operations the session drives. Satisfied by
// orders.Service.
type OrdersPort interface {
	FindOldestPending(ctx context.Context, code string) (orders.Order, orders.Line, error)
	RecordReceipt(ctx context.Context, lineID int64) (orders.Line, bool, error)
	UndoReceipt(ctx context.Context, lineID int64) (orders.Line, bool, error)
	GetLine(ctx context.Context, lineID int64) (orders.Line, error)
}

// NotesPort exposes the delivery-note operations the session drives.
// Satisfied by notes.Service.
type NotesPort interface {
	Create(ctx context.Context, input notes.CreateInput) (notes.Note, error)
	Get(ctx context.Context, id int64) (notes.Note, error)
	AppendLine(ctx context.Context, noteID int64, input notes.LineInput) (notes.Line, error)
}

// BinsPort exposes the bin-engine operations the session drives. Satisfied by
// bins.Engine.
type BinsPort interface {
	ResolveBin(ctx context.Context, order bins.OrderRef, line bins.LineRef) (bins.Key, *bins.Assignment, bool, error)
	AdjustUnits(ctx context.Context, key bins.Key, delta int64) (*bins.Assignment, error)
}

// CatalogPort looks up item metadata for note lines. Satisfied by
// inventory.Service.
type CatalogPort interface {
	GetItem(ctx context.Context, code string) (inventory.Item, error)
}

// AuditPort records receiving activity.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Session is the receiving state machine: Idle until a delivery note is
// selected, Receiving while one is active. It owns the undo history stack,
// which lives in memory only — restarting the process loses undo capability,
// a convenience feature rather than a correctness guarantee. The session
// assumes single-threaded request handling and holds no locks.
type Session struct {
	orders  OrdersPort
	notes   NotesPort
	bins    BinsPort
	catalog CatalogPort
	audit   AuditPort

	activeNote *notes.Note
	history    []historyEntry
}

// NewSession constructs an idle session.
func NewSession(ordersPort OrdersPort, notesPort NotesPort, binsPort BinsPort, catalog CatalogPort, audit AuditPort) *Session {
	return &Session{
		orders:  ordersPort,
		notes:   notesPort,
		bins:    binsPort,
		catalog: catalog,
		audit:   audit,
	}
}

// ActiveNote returns the currently selected note, or nil when idle.
func (s *Session) ActiveNote() *notes.Note {
	return s.activeNote
}

// StartNote creates a delivery note and makes it active.
func (s *Session) StartNote(ctx context.Context, input notes.CreateInput) (notes.Note, error) {
	note, err := s.notes.Create(ctx, input)
	if err != nil {
		return notes.Note{}, err
	}
	s.activeNote = &note
	return note, nil
}

// SwitchNote makes an existing note active.
func (s *Session) SwitchNote(ctx context.Context, noteID int64) (notes.Note, error) {
	note, err := s.notes.Get(ctx, noteID)
	if err != nil {
		return notes.Note{}, err
	}
	s.activeNote = &note
	return note, nil
}

// StopNote clears the active note, returning the session to idle. The undo
// history is kept; undo works across note switches by design.
func (s *Session) StopNote() {
	s.activeNote = nil
}

// HandleScan processes one barcode scan:
//  1. find the first pending line for the code on the oldest open order;
//  2. advance its received/pending counts;
//  3. resolve a bin and land the unit in it;
//  4. merge the unit into the active note;
//  5. push an undo entry.
func (s *Session) HandleScan(ctx context.Context, code string) (ScanOutcome, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return ScanOutcome{}, fmt.Errorf("%w: code required", ErrValidation)
	}
	if s.activeNote == nil {
		return ScanOutcome{}, ErrNoActiveNote
	}

	order, line, err := s.orders.FindOldestPending(ctx, code)
	if err != nil {
		return ScanOutcome{}, err
	}

	line, completed, err := s.orders.RecordReceipt(ctx, line.ID)
	if err != nil {
		return ScanOutcome{}, err
	}

	key, _, binCreated, err := s.bins.ResolveBin(ctx,
		bins.OrderRef{ID: order.ID, DisplayName: order.DisplayName, ClientName: order.ClientName},
		bins.LineRef{ItemCode: line.ItemCode, Description: line.Description},
	)
	if err != nil {
		return ScanOutcome{}, err
	}

	assignment, err := s.bins.AdjustUnits(ctx, key, 1)
	if err != nil {
		return ScanOutcome{}, err
	}
	if assignment == nil {
		return ScanOutcome{}, fmt.Errorf("receiving: assignment vanished for %d:%s", key.OrderID, key.Code)
	}

	noteLine := notes.LineInput{
		ItemCode: line.ItemCode,
		Name:     line.Description,
		Qty:      1,
	}
	if item, err := s.catalog.GetItem(ctx, line.ItemCode); err == nil {
		if item.Name != "" {
			noteLine.Name = item.Name
		}
		noteLine.Category = item.Category
		noteLine.WholesalePrice = item.WholesalePrice
		noteLine.RetailPrice = item.RetailPrice
	} else if !errors.Is(err, inventory.ErrItemNotFound) {
		return ScanOutcome{}, err
	}
	if _, err := s.notes.AppendLine(ctx, s.activeNote.ID, noteLine); err != nil {
		return ScanOutcome{}, err
	}

	s.history = append(s.history, historyEntry{
		orderID:    order.ID,
		clientName: order.ClientName,
		lineID:     line.ID,
		binKey:     key,
	})

	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			Action:   "SCAN",
			Entity:   "receiving",
			EntityID: line.ItemCode,
			Meta:     map[string]any{"order_id": order.ID, "bin": assignment.LocationName, "note": s.activeNote.Number},
		})
	}

	return ScanOutcome{
		OrderID:    order.ID,
		OrderName:  order.DisplayName,
		ClientName: order.ClientName,
		Line:       line,
		Completed:  completed,
		BinName:    assignment.LocationName,
		BinCreated: binCreated,
		UnitsInBin: assignment.Units,
		NoteID:     s.activeNote.ID,
		NoteNumber: s.activeNote.Number,
	}, nil
}

// UndoLastScan reverses the most recent scan: one received unit goes back to
// pending and one unit drains out of the bin. The delivery-note line is
// deliberately left alone. Returns nil when there is nothing to undo.
func (s *Session) UndoLastScan(ctx context.Context) (*UndoOutcome, error) {
	if len(s.history) == 0 {
		return nil, nil
	}
	entry := s.history[len(s.history)-1]
	s.history = s.history[:len(s.history)-1]

	line, undone, err := s.orders.UndoReceipt(ctx, entry.lineID)
	if err != nil {
		return nil, err
	}
	if !undone {
		return nil, nil
	}

	assignment, err := s.bins.AdjustUnits(ctx, entry.binKey, -1)
	if err != nil {
		return nil, err
	}

	outcome := &UndoOutcome{
		OrderID:    entry.orderID,
		ClientName: entry.clientName,
		Line:       line,
	}
	if assignment != nil {
		outcome.BinName = assignment.LocationName
		outcome.UnitsInBin = assignment.Units
	}

	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			Action:   "SCAN_UNDO",
			Entity:   "receiving",
			EntityID: line.ItemCode,
			Meta:     map[string]any{"order_id": entry.orderID},
		})
	}
	return outcome, nil
}

// HistoryDepth reports how many scans can still be undone this process.
func (s *Session) HistoryDepth() int {
	return len(s.history)
}
