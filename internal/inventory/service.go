package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gaveta-wms/gaveta/internal/platform/cache"
)

// RepositoryPort abstracts persistence for the service.
type RepositoryPort interface {
	CreateItem(ctx context.Context, item Item) (Item, error)
	UpdateItem(ctx context.Context, item Item) error
	GetItem(ctx context.Context, code string) (Item, error)
	ListItems(ctx context.Context) ([]Item, error)
	SearchItems(ctx context.Context, term string) ([]Item, error)
	DeleteItem(ctx context.Context, code string) error

	GetRecord(ctx context.Context, code, location string) (Record, error)
	CreateRecord(ctx context.Context, rec Record) (Record, error)
	UpdateRecordQty(ctx context.Context, id int64, qty int64) error
	ListRecords(ctx context.Context) ([]Record, error)
	ListRecordsByItem(ctx context.Context, code string) ([]Record, error)
	ListLowStock(ctx context.Context, threshold int64) ([]Record, error)
}

// LocationLister provides the location names shown on the dashboard.
type LocationLister interface {
	RecentLocationNames(ctx context.Context, limit int) ([]string, error)
	CountLocations(ctx context.Context) (int, error)
}

// Service is the inventory ledger plus the item catalog around it.
type Service struct {
	repo      RepositoryPort
	locations LocationLister
	cache     *cache.JSONCache
	lowStock  int64
}

// ServiceConfig groups optional settings.
type ServiceConfig struct {
	// LowStockThreshold marks records as low stock when qty falls below it.
	LowStockThreshold int64
}

// NewService builds Service. locations and jsonCache may be nil.
func NewService(repo RepositoryPort, locations LocationLister, jsonCache *cache.JSONCache, cfg ServiceConfig) *Service {
	threshold := cfg.LowStockThreshold
	if threshold <= 0 {
		threshold = 20
	}
	return &Service{repo: repo, locations: locations, cache: jsonCache, lowStock: threshold}
}

// ApplyDelta merges a signed quantity change into the stock record for
// (code, location):
//   - existing record: qty = max(0, qty+delta), the clamp never errors;
//   - no record and delta > 0: a new record is created, metadata taken from
//     the catalog item when one exists, else from meta;
//   - no record and delta <= 0: dropped silently, nothing materialises.
//
// The second return is false for the silent-drop case.
func (s *Service) ApplyDelta(ctx context.Context, code, location string, delta int64, meta ItemMeta) (Record, bool, error) {
	code = strings.TrimSpace(code)
	location = strings.TrimSpace(location)
	if code == "" || location == "" {
		return Record{}, false, fmt.Errorf("%w: code and location required", ErrValidation)
	}

	rec, err := s.repo.GetRecord(ctx, code, location)
	if err == nil {
		newQty := rec.Qty + delta
		if newQty < 0 {
			newQty = 0
		}
		if err := s.repo.UpdateRecordQty(ctx, rec.ID, newQty); err != nil {
			return Record{}, false, err
		}
		rec.Qty = newQty
		return rec, true, nil
	}
	if !errors.Is(err, ErrRecordNotFound) {
		return Record{}, false, err
	}
	if delta <= 0 {
		return Record{}, false, nil
	}

	rec = Record{
		ItemCode:       code,
		Name:           meta.Name,
		Category:       meta.Category,
		WholesalePrice: meta.WholesalePrice,
		RetailPrice:    meta.RetailPrice,
		Qty:            delta,
		LocationName:   location,
	}
	if item, err := s.repo.GetItem(ctx, code); err == nil {
		if rec.Name == "" {
			rec.Name = item.Name
		}
		if rec.Category == "" {
			rec.Category = item.Category
		}
		if rec.WholesalePrice == 0 {
			rec.WholesalePrice = item.WholesalePrice
		}
		if rec.RetailPrice == 0 {
			rec.RetailPrice = item.RetailPrice
		}
	} else if !errors.Is(err, ErrItemNotFound) {
		return Record{}, false, err
	}
	created, err := s.repo.CreateRecord(ctx, rec)
	if err != nil {
		return Record{}, false, err
	}
	return created, true, nil
}

// CreateItem registers a catalog item.
func (s *Service) CreateItem(ctx context.Context, item Item) (Item, error) {
	item.Code = strings.TrimSpace(item.Code)
	if item.Code == "" {
		return Item{}, fmt.Errorf("%w: code required", ErrValidation)
	}
	if item.Name == "" {
		return Item{}, fmt.Errorf("%w: name required", ErrValidation)
	}
	return s.repo.CreateItem(ctx, item)
}

// UpdateItem replaces the descriptive fields of a catalog item.
func (s *Service) UpdateItem(ctx context.Context, item Item) error {
	if strings.TrimSpace(item.Code) == "" {
		return fmt.Errorf("%w: code required", ErrValidation)
	}
	return s.repo.UpdateItem(ctx, item)
}

// GetItem finds a catalog item by code.
func (s *Service) GetItem(ctx context.Context, code string) (Item, error) {
	return s.repo.GetItem(ctx, code)
}

// ListItems returns the full catalog.
func (s *Service) ListItems(ctx context.Context) ([]Item, error) {
	return s.repo.ListItems(ctx)
}

// Search finds items by code or name substring. An empty term returns nothing.
func (s *Service) Search(ctx context.Context, term string) ([]Item, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, nil
	}
	return s.repo.SearchItems(ctx, term)
}

// DeleteItem removes an item and every stock row referencing it.
func (s *Service) DeleteItem(ctx context.Context, code string) error {
	return s.repo.DeleteItem(ctx, code)
}

// Stock returns all stock rows.
func (s *Service) Stock(ctx context.Context) ([]Record, error) {
	return s.repo.ListRecords(ctx)
}

// StockByItem returns the per-location rows for one code.
func (s *Service) StockByItem(ctx context.Context, code string) ([]Record, error) {
	return s.repo.ListRecordsByItem(ctx, code)
}

// Lookup finds the stock rows for a scanned code, mirroring the barcode
// lookup screen.
func (s *Service) Lookup(ctx context.Context, code string) ([]Record, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, fmt.Errorf("%w: code required", ErrValidation)
	}
	records, err := s.repo.ListRecordsByItem(ctx, code)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrRecordNotFound
	}
	return records, nil
}

// QtyAt returns the ledger quantity for (code, location), zero when no
// record exists.
func (s *Service) QtyAt(ctx context.Context, code, location string) (int64, error) {
	rec, err := s.repo.GetRecord(ctx, code, location)
	if errors.Is(err, ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return rec.Qty, nil
}

// LowStock returns records whose quantity is under the threshold. A
// non-positive threshold falls back to the configured default.
func (s *Service) LowStock(ctx context.Context, threshold int64) ([]Record, error) {
	if threshold <= 0 {
		threshold = s.lowStock
	}
	return s.repo.ListLowStock(ctx, threshold)
}

// Dashboard builds the control-panel summary, served from cache when warm.
func (s *Service) Dashboard(ctx context.Context) (DashboardSummary, error) {
	var summary DashboardSummary
	key, err := s.cache.BuildKey(ctx, "inventory", "dashboard")
	if err != nil {
		return DashboardSummary{}, err
	}
	err = s.cache.FetchJSON(ctx, key, &summary, func(ctx context.Context) (any, error) {
		return s.buildDashboard(ctx)
	})
	return summary, err
}

// WarmDashboard recomputes the summary and refreshes the cached copy.
func (s *Service) WarmDashboard(ctx context.Context) error {
	if err := s.cache.Bump(ctx); err != nil {
		return err
	}
	_, err := s.Dashboard(ctx)
	return err
}

// InvalidateDashboard drops cached summaries after stock mutations.
func (s *Service) InvalidateDashboard(ctx context.Context) error {
	return s.cache.Bump(ctx)
}

func (s *Service) buildDashboard(ctx context.Context) (DashboardSummary, error) {
	summary := DashboardSummary{LowStock: []Record{}, RecentLocations: []string{}}
	var records []Record

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		records, err = s.repo.ListRecords(gctx)
		return err
	})
	g.Go(func() error {
		low, err := s.repo.ListLowStock(gctx, s.lowStock)
		if err != nil {
			return err
		}
		summary.LowStock = low
		return nil
	})
	if s.locations != nil {
		g.Go(func() error {
			if names, err := s.locations.RecentLocationNames(gctx, 5); err == nil {
				summary.RecentLocations = names
			}
			if count, err := s.locations.CountLocations(gctx); err == nil {
				summary.LocationCount = count
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return DashboardSummary{}, err
	}

	seen := map[string]struct{}{}
	for _, rec := range records {
		summary.TotalUnits += rec.Qty
		key := strings.ToLower(rec.ItemCode)
		if _, ok := seen[key]; !ok {
			seen[key] = struct{}{}
			summary.TotalItems++
		}
	}
	return summary, nil
}

// DashboardCacheTTL is the default freshness window for the summary.
const DashboardCacheTTL = 10 * time.Minute
