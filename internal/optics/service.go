package optics

import (
	"context"
	"fmt"
	"strings"

	"github.com/gaveta-wms/gaveta/internal/shared"
)

// RepositoryPort abstracts persistence for the service.
type RepositoryPort interface {
	CreateBranch(ctx context.Context, branch Branch) (Branch, error)
	GetBranch(ctx context.Context, id int64) (Branch, error)
	ListBranches(ctx context.Context) ([]Branch, error)
	DeleteBranch(ctx context.Context, id int64) error
	GetStock(ctx context.Context, branchID int64, ref string) (Stock, error)
	ListStock(ctx context.Context, branchID int64) ([]Stock, error)
	UpsertStock(ctx context.Context, stock Stock) (Stock, error)
	SetStockQty(ctx context.Context, id int64, qty int64) error
}

// AuditPort records stock movements; it doubles as the movement log.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
	List(ctx context.Context, entity string, limit int) ([]shared.AuditLog, error)
}

// Service tracks optics stock across branches. It shares nothing with the
// warehouse receiving flow.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
}

// NewService constructs Service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

// CreateBranch registers a branch.
func (s *Service) CreateBranch(ctx context.Context, name string) (Branch, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Branch{}, fmt.Errorf("%w: name required", ErrValidation)
	}
	return s.repo.CreateBranch(ctx, Branch{Name: name})
}

// ListBranches returns all branches.
func (s *Service) ListBranches(ctx context.Context) ([]Branch, error) {
	return s.repo.ListBranches(ctx)
}

// DeleteBranch removes a branch and its stock.
func (s *Service) DeleteBranch(ctx context.Context, id int64) error {
	return s.repo.DeleteBranch(ctx, id)
}

// BranchStock lists the stock of one branch.
func (s *Service) BranchStock(ctx context.Context, branchID int64) ([]Stock, error) {
	if _, err := s.repo.GetBranch(ctx, branchID); err != nil {
		return nil, err
	}
	return s.repo.ListStock(ctx, branchID)
}

// Receive adds units of a reference to a branch.
func (s *Service) Receive(ctx context.Context, branchID int64, ref, description string, qty int64) (Stock, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return Stock{}, fmt.Errorf("%w: ref required", ErrValidation)
	}
	if qty <= 0 {
		return Stock{}, fmt.Errorf("%w: quantity must be > 0", ErrValidation)
	}
	if _, err := s.repo.GetBranch(ctx, branchID); err != nil {
		return Stock{}, err
	}
	stock, err := s.repo.UpsertStock(ctx, Stock{BranchID: branchID, Ref: ref, Description: description, Qty: qty})
	if err != nil {
		return Stock{}, err
	}
	s.logMovement(ctx, "OPTICS_RECEIVE", ref, map[string]any{"branch_id": branchID, "qty": qty})
	return stock, nil
}

// Adjust writes an absolute quantity for (branch, ref).
func (s *Service) Adjust(ctx context.Context, branchID int64, ref string, qty int64) (Stock, error) {
	if qty < 0 {
		return Stock{}, fmt.Errorf("%w: quantity must be >= 0", ErrValidation)
	}
	stock, err := s.repo.GetStock(ctx, branchID, ref)
	if err != nil {
		return Stock{}, err
	}
	if err := s.repo.SetStockQty(ctx, stock.ID, qty); err != nil {
		return Stock{}, err
	}
	s.logMovement(ctx, "OPTICS_ADJUST", ref, map[string]any{"branch_id": branchID, "from": stock.Qty, "to": qty})
	stock.Qty = qty
	return stock, nil
}

// Transfer moves units of a reference between branches, rejecting transfers
// the source cannot cover.
func (s *Service) Transfer(ctx context.Context, fromBranch, toBranch int64, ref string, qty int64) error {
	if qty <= 0 {
		return fmt.Errorf("%w: quantity must be > 0", ErrValidation)
	}
	if fromBranch == toBranch {
		return fmt.Errorf("%w: source and destination must differ", ErrValidation)
	}
	if _, err := s.repo.GetBranch(ctx, toBranch); err != nil {
		return err
	}
	src, err := s.repo.GetStock(ctx, fromBranch, ref)
	if err != nil {
		return err
	}
	if src.Qty < qty {
		return ErrInsufficientStock
	}
	if err := s.repo.SetStockQty(ctx, src.ID, src.Qty-qty); err != nil {
		return err
	}
	if _, err := s.repo.UpsertStock(ctx, Stock{BranchID: toBranch, Ref: src.Ref, Description: src.Description, Qty: qty}); err != nil {
		return err
	}
	s.logMovement(ctx, "OPTICS_TRANSFER", ref, map[string]any{"from": fromBranch, "to": toBranch, "qty": qty})
	return nil
}

// Movements returns the recent movement log.
func (s *Service) Movements(ctx context.Context, limit int) ([]shared.AuditLog, error) {
	if s.audit == nil {
		return nil, nil
	}
	return s.audit.List(ctx, "optics_stock", limit)
}

func (s *Service) logMovement(ctx context.Context, action, ref string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		Action:   action,
		Entity:   "optics_stock",
		EntityID: ref,
		Meta:     meta,
	})
}
