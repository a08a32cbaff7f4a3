package orders

import (
	"context"
	"fmt"
	"strings"

	"github.com/gaveta-wms/gaveta/internal/shared"
)

// RepositoryPort abstracts persistence for the service.
type RepositoryPort interface {
	CreateOrder(ctx context.Context, order Order, lines []Line) (Order, []Line, error)
	AddLine(ctx context.Context, line Line) (Line, error)
	GetOrder(ctx context.Context, id int64) (Order, []Line, error)
	ListOrders(ctx context.Context, includeClosed bool) ([]Order, error)
	FindByNameClient(ctx context.Context, displayName, clientName string) (Order, []Line, error)
	GetLine(ctx context.Context, id int64) (Line, error)
	UpdateLine(ctx context.Context, line Line) error
	SetClosed(ctx context.Context, id int64, closed bool) error
	DeleteOrder(ctx context.Context, id int64) error
	FindOldestPendingLine(ctx context.Context, code string) (Order, Line, error)
}

// AuditPort records order mutations.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service manages purchase-order lifecycle.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
}

// NewService constructs Service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

// LineInput describes one position of a new order.
type LineInput struct {
	ItemCode    string
	Description string
	Qty         int64
}

// CreateInput describes a new purchase order.
type CreateInput struct {
	DisplayName string
	ClientName  string
	Notes       string
	Lines       []LineInput
}

// Create persists a new open order with its lines.
func (s *Service) Create(ctx context.Context, input CreateInput) (Order, []Line, error) {
	if strings.TrimSpace(input.ClientName) == "" {
		return Order{}, nil, fmt.Errorf("%w: client name required", ErrValidation)
	}
	lines := make([]Line, 0, len(input.Lines))
	for _, li := range input.Lines {
		line, err := NewLine(0, strings.TrimSpace(li.ItemCode), li.Description, li.Qty)
		if err != nil {
			return Order{}, nil, err
		}
		lines = append(lines, line)
	}
	order := Order{
		DisplayName: strings.TrimSpace(input.DisplayName),
		ClientName:  strings.TrimSpace(input.ClientName),
		Status:      "OPEN",
	}
	order.Notes = input.Notes
	created, createdLines, err := s.repo.CreateOrder(ctx, order, lines)
	if err != nil {
		return Order{}, nil, err
	}
	s.recordAudit(ctx, "ORDER_CREATE", created.ID, map[string]any{"client": created.ClientName, "lines": len(createdLines)})
	return created, createdLines, nil
}

// Get loads an order and its lines.
func (s *Service) Get(ctx context.Context, id int64) (Order, []Line, error) {
	return s.repo.GetOrder(ctx, id)
}

// List returns orders oldest first.
func (s *Service) List(ctx context.Context, includeClosed bool) ([]Order, error) {
	return s.repo.ListOrders(ctx, includeClosed)
}

// AddLine appends a position to an existing order.
func (s *Service) AddLine(ctx context.Context, orderID int64, input LineInput) (Line, error) {
	if _, _, err := s.repo.GetOrder(ctx, orderID); err != nil {
		return Line{}, err
	}
	line, err := NewLine(orderID, strings.TrimSpace(input.ItemCode), input.Description, input.Qty)
	if err != nil {
		return Line{}, err
	}
	return s.repo.AddLine(ctx, line)
}

// Close stops an order's lines from being eligible for receiving. Stored
// quantities stay untouched, so reopening restores eligibility exactly.
func (s *Service) Close(ctx context.Context, id int64) error {
	if err := s.repo.SetClosed(ctx, id, true); err != nil {
		return err
	}
	s.recordAudit(ctx, "ORDER_CLOSE", id, nil)
	return nil
}

// Reopen makes a closed order eligible for receiving again.
func (s *Service) Reopen(ctx context.Context, id int64) error {
	if err := s.repo.SetClosed(ctx, id, false); err != nil {
		return err
	}
	s.recordAudit(ctx, "ORDER_REOPEN", id, nil)
	return nil
}

// Delete removes an order and its lines.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.DeleteOrder(ctx, id); err != nil {
		return err
	}
	s.recordAudit(ctx, "ORDER_DELETE", id, nil)
	return nil
}

// FindOldestPending resolves the receiving target for a scanned code.
func (s *Service) FindOldestPending(ctx context.Context, code string) (Order, Line, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return Order{}, Line{}, fmt.Errorf("%w: code required", ErrValidation)
	}
	return s.repo.FindOldestPendingLine(ctx, code)
}

// GetLine loads one order line.
func (s *Service) GetLine(ctx context.Context, id int64) (Line, error) {
	return s.repo.GetLine(ctx, id)
}

// RecordReceipt advances a line by one received unit and persists it,
// reporting whether the line is now fully received.
func (s *Service) RecordReceipt(ctx context.Context, lineID int64) (Line, bool, error) {
	line, err := s.repo.GetLine(ctx, lineID)
	if err != nil {
		return Line{}, false, err
	}
	completed := line.Receive()
	if err := s.repo.UpdateLine(ctx, line); err != nil {
		return Line{}, false, err
	}
	return line, completed, nil
}

// UndoReceipt reverses one received unit. It reports false without touching
// anything when the line has nothing received.
func (s *Service) UndoReceipt(ctx context.Context, lineID int64) (Line, bool, error) {
	line, err := s.repo.GetLine(ctx, lineID)
	if err != nil {
		return Line{}, false, err
	}
	if line.QtyReceived == 0 {
		return line, false, nil
	}
	line.Unreceive()
	if err := s.repo.UpdateLine(ctx, line); err != nil {
		return Line{}, false, err
	}
	return line, true, nil
}

func (s *Service) recordAudit(ctx context.Context, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		Action:   action,
		Entity:   "purchase_order",
		EntityID: fmt.Sprintf("%d", id),
		Meta:     meta,
	})
}
