package inventory

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/gaveta-wms/gaveta/internal/platform/cache"
	"github.com/gaveta-wms/gaveta/internal/shared"
)

type fakeRepo struct {
	items   []Item
	records []Record
	nextID  int64
}

func (f *fakeRepo) CreateItem(_ context.Context, item Item) (Item, error) {
	for _, existing := range f.items {
		if shared.SameKey(existing.Code, item.Code) {
			return Item{}, ErrDuplicate
		}
	}
	f.nextID++
	item.ID = f.nextID
	f.items = append(f.items, item)
	return item, nil
}

func (f *fakeRepo) UpdateItem(_ context.Context, item Item) error {
	for i := range f.items {
		if shared.SameKey(f.items[i].Code, item.Code) {
			item.ID = f.items[i].ID
			f.items[i] = item
			return nil
		}
	}
	return ErrItemNotFound
}

func (f *fakeRepo) GetItem(_ context.Context, code string) (Item, error) {
	for _, item := range f.items {
		if shared.SameKey(item.Code, code) {
			return item, nil
		}
	}
	return Item{}, ErrItemNotFound
}

func (f *fakeRepo) ListItems(_ context.Context) ([]Item, error) {
	return append([]Item(nil), f.items...), nil
}

func (f *fakeRepo) SearchItems(_ context.Context, term string) ([]Item, error) {
	var out []Item
	needle := strings.ToLower(term)
	for _, item := range f.items {
		if strings.Contains(strings.ToLower(item.Code), needle) || strings.Contains(strings.ToLower(item.Name), needle) {
			out = append(out, item)
		}
	}
	return out, nil
}

func (f *fakeRepo) DeleteItem(_ context.Context, code string) error {
	for i := range f.items {
		if shared.SameKey(f.items[i].Code, code) {
			f.items = append(f.items[:i], f.items[i+1:]...)
			return nil
		}
	}
	return ErrItemNotFound
}

func (f *fakeRepo) GetRecord(_ context.Context, code, location string) (Record, error) {
	for _, rec := range f.records {
		if shared.SameKey(rec.ItemCode, code) && shared.SameKey(rec.LocationName, location) {
			return rec, nil
		}
	}
	return Record{}, ErrRecordNotFound
}

func (f *fakeRepo) CreateRecord(_ context.Context, rec Record) (Record, error) {
	f.nextID++
	rec.ID = f.nextID
	f.records = append(f.records, rec)
	return rec, nil
}

func (f *fakeRepo) UpdateRecordQty(_ context.Context, id int64, qty int64) error {
	for i := range f.records {
		if f.records[i].ID == id {
			f.records[i].Qty = qty
			return nil
		}
	}
	return ErrRecordNotFound
}

func (f *fakeRepo) ListRecords(_ context.Context) ([]Record, error) {
	return append([]Record(nil), f.records...), nil
}

func (f *fakeRepo) ListRecordsByItem(_ context.Context, code string) ([]Record, error) {
	var out []Record
	for _, rec := range f.records {
		if shared.SameKey(rec.ItemCode, code) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (f *fakeRepo) ListLowStock(_ context.Context, threshold int64) ([]Record, error) {
	var out []Record
	for _, rec := range f.records {
		if rec.Qty < threshold {
			out = append(out, rec)
		}
	}
	return out, nil
}

func newTestService(repo *fakeRepo) *Service {
	return NewService(repo, nil, cache.NewJSONCache(nil, time.Minute), ServiceConfig{})
}

func TestApplyDeltaCreatesRecordOnPositiveDelta(t *testing.T) {
	repo := &fakeRepo{}
	svc := newTestService(repo)
	ctx := context.Background()

	rec, applied, err := svc.ApplyDelta(ctx, "SKU-1", "Drawer A", 3, ItemMeta{Name: "Widget"})
	require.NoError(t, err)
	require.True(t, applied)
	require.Equal(t, int64(3), rec.Qty)
	require.Equal(t, "Widget", rec.Name)
}

func TestApplyDeltaPrefersCatalogMetadata(t *testing.T) {
	repo := &fakeRepo{}
	svc := newTestService(repo)
	ctx := context.Background()

	_, err := svc.CreateItem(ctx, Item{Code: "SKU-1", Name: "Catalog Widget", Category: "widgets", RetailPrice: 9.5})
	require.NoError(t, err)

	rec, applied, err := svc.ApplyDelta(ctx, "sku-1", "Drawer A", 2, ItemMeta{})
	require.NoError(t, err)
	require.True(t, applied)
	require.Equal(t, "Catalog Widget", rec.Name)
	require.Equal(t, "widgets", rec.Category)
	require.Equal(t, 9.5, rec.RetailPrice)
}

func TestApplyDeltaClampsAtZero(t *testing.T) {
	repo := &fakeRepo{}
	svc := newTestService(repo)
	ctx := context.Background()

	_, _, err := svc.ApplyDelta(ctx, "SKU-1", "Drawer A", 5, ItemMeta{})
	require.NoError(t, err)

	rec, applied, err := svc.ApplyDelta(ctx, "SKU-1", "Drawer A", -8, ItemMeta{})
	require.NoError(t, err)
	require.True(t, applied)
	require.Equal(t, int64(0), rec.Qty)

	// The zero-quantity row is kept for later top-ups.
	qty, err := svc.QtyAt(ctx, "SKU-1", "Drawer A")
	require.NoError(t, err)
	require.Equal(t, int64(0), qty)
	require.Len(t, repo.records, 1)
}

func TestApplyDeltaNegativeOnMissingIsSilentNoOp(t *testing.T) {
	repo := &fakeRepo{}
	svc := newTestService(repo)

	_, applied, err := svc.ApplyDelta(context.Background(), "SKU-1", "Drawer A", -3, ItemMeta{})
	require.NoError(t, err)
	require.False(t, applied)
	require.Empty(t, repo.records)
}

func TestApplyDeltaMatchesCaseInsensitively(t *testing.T) {
	repo := &fakeRepo{}
	svc := newTestService(repo)
	ctx := context.Background()

	_, _, err := svc.ApplyDelta(ctx, "SKU-1", "Drawer A", 2, ItemMeta{})
	require.NoError(t, err)

	rec, applied, err := svc.ApplyDelta(ctx, "sku-1", "DRAWER A", 3, ItemMeta{})
	require.NoError(t, err)
	require.True(t, applied)
	require.Equal(t, int64(5), rec.Qty)
	require.Len(t, repo.records, 1)
}

func TestLookupReportsMissingCode(t *testing.T) {
	svc := newTestService(&fakeRepo{})

	_, err := svc.Lookup(context.Background(), "SKU-404")
	require.ErrorIs(t, err, ErrRecordNotFound)
}

func TestLowStockUsesDefaultThreshold(t *testing.T) {
	repo := &fakeRepo{}
	svc := newTestService(repo)
	ctx := context.Background()

	_, _, err := svc.ApplyDelta(ctx, "SKU-1", "Drawer A", 5, ItemMeta{})
	require.NoError(t, err)
	_, _, err = svc.ApplyDelta(ctx, "SKU-2", "Drawer A", 50, ItemMeta{})
	require.NoError(t, err)

	low, err := svc.LowStock(ctx, 0)
	require.NoError(t, err)
	require.Len(t, low, 1)
	require.Equal(t, "SKU-1", low[0].ItemCode)
}

func TestDashboardServedFromCacheUntilInvalidated(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	repo := &fakeRepo{}
	svc := NewService(repo, nil, cache.NewJSONCache(client, time.Minute), ServiceConfig{})
	ctx := context.Background()

	_, _, err := svc.ApplyDelta(ctx, "SKU-1", "Drawer A", 5, ItemMeta{})
	require.NoError(t, err)

	first, err := svc.Dashboard(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(5), first.TotalUnits)

	_, _, err = svc.ApplyDelta(ctx, "SKU-1", "Drawer A", 5, ItemMeta{})
	require.NoError(t, err)

	stale, err := svc.Dashboard(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(5), stale.TotalUnits)

	require.NoError(t, svc.InvalidateDashboard(ctx))

	fresh, err := svc.Dashboard(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(10), fresh.TotalUnits)
}
