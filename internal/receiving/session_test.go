package receiving

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gaveta-wms/gaveta/internal/bins"
	"github.com/gaveta-wms/gaveta/internal/inventory"
	"github.com/gaveta-wms/gaveta/internal/locations"
	"github.com/gaveta-wms/gaveta/internal/notes"
	"github.com/gaveta-wms/gaveta/internal/orders"
	"github.com/gaveta-wms/gaveta/internal/platform/cache"
	"github.com/gaveta-wms/gaveta/internal/shared"
)

// The session tests wire real services over in-memory repositories, so a
// scan exercises the whole pipeline: order line, bin, ledger, note.

type ordersRepo struct {
	orders []orders.Order
	lines  []orders.Line
	nextID int64
	clock  time.Time
}

func newOrdersRepo() *ordersRepo {
	return &ordersRepo{clock: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (f *ordersRepo) CreateOrder(_ context.Context, order orders.Order, lines []orders.Line) (orders.Order, []orders.Line, error) {
	f.nextID++
	order.ID = f.nextID
	f.clock = f.clock.Add(time.Minute)
	order.CreatedAt = f.clock
	f.orders = append(f.orders, order)
	for i := range lines {
		f.nextID++
		lines[i].ID = f.nextID
		lines[i].OrderID = order.ID
		f.lines = append(f.lines, lines[i])
	}
	return order, lines, nil
}

func (f *ordersRepo) AddLine(_ context.Context, line orders.Line) (orders.Line, error) {
	f.nextID++
	line.ID = f.nextID
	f.lines = append(f.lines, line)
	return line, nil
}

func (f *ordersRepo) GetOrder(_ context.Context, id int64) (orders.Order, []orders.Line, error) {
	for _, order := range f.orders {
		if order.ID == id {
			var out []orders.Line
			for _, line := range f.lines {
				if line.OrderID == id {
					out = append(out, line)
				}
			}
			return order, out, nil
		}
	}
	return orders.Order{}, nil, orders.ErrNotFound
}

func (f *ordersRepo) ListOrders(_ context.Context, includeClosed bool) ([]orders.Order, error) {
	var out []orders.Order
	for _, order := range f.orders {
		if !includeClosed && order.Closed {
			continue
		}
		out = append(out, order)
	}
	return out, nil
}

func (f *ordersRepo) FindByNameClient(ctx context.Context, displayName, clientName string) (orders.Order, []orders.Line, error) {
	for _, order := range f.orders {
		if shared.SameKey(order.DisplayName, displayName) && shared.SameKey(order.ClientName, clientName) {
			return f.GetOrder(ctx, order.ID)
		}
	}
	return orders.Order{}, nil, orders.ErrNotFound
}

func (f *ordersRepo) GetLine(_ context.Context, id int64) (orders.Line, error) {
	for _, line := range f.lines {
		if line.ID == id {
			return line, nil
		}
	}
	return orders.Line{}, orders.ErrLineNotFound
}

func (f *ordersRepo) UpdateLine(_ context.Context, line orders.Line) error {
	for i := range f.lines {
		if f.lines[i].ID == line.ID {
			f.lines[i] = line
			return nil
		}
	}
	return orders.ErrLineNotFound
}

func (f *ordersRepo) SetClosed(_ context.Context, id int64, closed bool) error {
	for i := range f.orders {
		if f.orders[i].ID == id {
			f.orders[i].Closed = closed
			return nil
		}
	}
	return orders.ErrNotFound
}

func (f *ordersRepo) DeleteOrder(_ context.Context, id int64) error {
	for i := range f.orders {
		if f.orders[i].ID == id {
			f.orders = append(f.orders[:i], f.orders[i+1:]...)
			return nil
		}
	}
	return orders.ErrNotFound
}

func (f *ordersRepo) FindOldestPendingLine(_ context.Context, code string) (orders.Order, orders.Line, error) {
	var bestOrder orders.Order
	var bestLine orders.Line
	found := false
	for _, order := range f.orders {
		if order.Closed {
			continue
		}
		for _, line := range f.lines {
			if line.OrderID != order.ID || line.QtyPending <= 0 || !shared.SameKey(line.ItemCode, code) {
				continue
			}
			if !found || order.CreatedAt.Before(bestOrder.CreatedAt) ||
				(order.CreatedAt.Equal(bestOrder.CreatedAt) && line.ID < bestLine.ID) {
				bestOrder, bestLine, found = order, line, true
			}
		}
	}
	if !found {
		return orders.Order{}, orders.Line{}, orders.ErrNothingPending
	}
	return bestOrder, bestLine, nil
}

type notesRepo struct {
	notes  []notes.Note
	lines  []notes.Line
	nextID int64
}

func (f *notesRepo) Create(_ context.Context, note notes.Note) (notes.Note, error) {
	f.nextID++
	note.ID = f.nextID
	f.notes = append(f.notes, note)
	return note, nil
}

func (f *notesRepo) Get(_ context.Context, id int64) (notes.Note, error) {
	for _, note := range f.notes {
		if note.ID == id {
			return note, nil
		}
	}
	return notes.Note{}, notes.ErrNotFound
}

func (f *notesRepo) List(_ context.Context) ([]notes.Note, error) {
	return append([]notes.Note(nil), f.notes...), nil
}

func (f *notesRepo) Lines(_ context.Context, noteID int64) ([]notes.Line, error) {
	var out []notes.Line
	for _, line := range f.lines {
		if line.NoteID == noteID {
			out = append(out, line)
		}
	}
	return out, nil
}

func (f *notesRepo) UpsertLine(_ context.Context, line notes.Line) (notes.Line, error) {
	for i := range f.lines {
		if f.lines[i].NoteID == line.NoteID && shared.SameKey(f.lines[i].ItemCode, line.ItemCode) {
			f.lines[i].Qty += line.Qty
			return f.lines[i], nil
		}
	}
	f.nextID++
	line.ID = f.nextID
	f.lines = append(f.lines, line)
	return line, nil
}

type binsRepo struct {
	active   map[int64]bins.Assignment
	archived []bins.Assignment
	nextID   int64
}

func newBinsRepo() *binsRepo {
	return &binsRepo{active: map[int64]bins.Assignment{}}
}

func (f *binsRepo) Create(_ context.Context, a bins.Assignment) (bins.Assignment, error) {
	f.nextID++
	a.ID = f.nextID
	f.active[a.ID] = a
	return a, nil
}

func (f *binsRepo) UpdateUnits(_ context.Context, id int64, units int64) error {
	a, ok := f.active[id]
	if !ok {
		return bins.ErrNotFound
	}
	a.Units = units
	f.active[id] = a
	return nil
}

func (f *binsRepo) UpdateLocation(_ context.Context, id int64, location string) error {
	a, ok := f.active[id]
	if !ok {
		return bins.ErrNotFound
	}
	a.LocationName = location
	f.active[id] = a
	return nil
}

func (f *binsRepo) Archive(_ context.Context, id int64, units int64) error {
	a, ok := f.active[id]
	if !ok {
		return bins.ErrNotFound
	}
	a.Units = units
	delete(f.active, id)
	f.archived = append(f.archived, a)
	return nil
}

func (f *binsRepo) ListActive(_ context.Context) ([]bins.Assignment, error) {
	var out []bins.Assignment
	for _, a := range f.active {
		out = append(out, a)
	}
	return out, nil
}

func (f *binsRepo) ListArchived(_ context.Context, limit int) ([]bins.Assignment, error) {
	if limit <= 0 || limit > len(f.archived) {
		limit = len(f.archived)
	}
	return append([]bins.Assignment(nil), f.archived[len(f.archived)-limit:]...), nil
}

type locationsRepo struct {
	locs     []locations.Location
	nextID   int64
	counters map[string]int64
}

func newLocationsRepo() *locationsRepo {
	return &locationsRepo{counters: map[string]int64{}}
}

func (f *locationsRepo) Create(_ context.Context, loc locations.Location) (locations.Location, error) {
	for _, existing := range f.locs {
		if shared.SameKey(existing.Name, loc.Name) {
			return locations.Location{}, locations.ErrDuplicate
		}
	}
	f.nextID++
	loc.ID = f.nextID
	f.locs = append(f.locs, loc)
	return loc, nil
}

func (f *locationsRepo) GetByName(_ context.Context, name string) (locations.Location, error) {
	for _, loc := range f.locs {
		if shared.SameKey(loc.Name, name) {
			return loc, nil
		}
	}
	return locations.Location{}, locations.ErrNotFound
}

func (f *locationsRepo) List(_ context.Context) ([]locations.Location, error) {
	return append([]locations.Location(nil), f.locs...), nil
}

func (f *locationsRepo) Rename(_ context.Context, oldName, newName string) error {
	for i := range f.locs {
		if shared.SameKey(f.locs[i].Name, oldName) {
			f.locs[i].Name = newName
			return nil
		}
	}
	return locations.ErrNotFound
}

func (f *locationsRepo) Delete(_ context.Context, name string) error {
	for i := range f.locs {
		if shared.SameKey(f.locs[i].Name, name) {
			f.locs = append(f.locs[:i], f.locs[i+1:]...)
			return nil
		}
	}
	return locations.ErrNotFound
}

func (f *locationsRepo) SetLifecycle(_ context.Context, name string, state locations.Lifecycle) error {
	for i := range f.locs {
		if shared.SameKey(f.locs[i].Name, name) {
			f.locs[i].Lifecycle = state
			return nil
		}
	}
	return locations.ErrNotFound
}

func (f *locationsRepo) NextSequence(_ context.Context, counter string) (int64, error) {
	f.counters[counter]++
	return f.counters[counter], nil
}

type inventoryRepo struct {
	items   []inventory.Item
	records []inventory.Record
	nextID  int64
}

func (f *inventoryRepo) CreateItem(_ context.Context, item inventory.Item) (inventory.Item, error) {
	f.nextID++
	item.ID = f.nextID
	f.items = append(f.items, item)
	return item, nil
}

func (f *inventoryRepo) UpdateItem(_ context.Context, item inventory.Item) error {
	for i := range f.items {
		if shared.SameKey(f.items[i].Code, item.Code) {
			item.ID = f.items[i].ID
			f.items[i] = item
			return nil
		}
	}
	return inventory.ErrItemNotFound
}

func (f *inventoryRepo) GetItem(_ context.Context, code string) (inventory.Item, error) {
	for _, item := range f.items {
		if shared.SameKey(item.Code, code) {
			return item, nil
		}
	}
	return inventory.Item{}, inventory.ErrItemNotFound
}

func (f *inventoryRepo) ListItems(_ context.Context) ([]inventory.Item, error) {
	return append([]inventory.Item(nil), f.items...), nil
}

func (f *inventoryRepo) SearchItems(_ context.Context, term string) ([]inventory.Item, error) {
	var out []inventory.Item
	needle := strings.ToLower(term)
	for _, item := range f.items {
		if strings.Contains(strings.ToLower(item.Code), needle) || strings.Contains(strings.ToLower(item.Name), needle) {
			out = append(out, item)
		}
	}
	return out, nil
}

func (f *inventoryRepo) DeleteItem(_ context.Context, code string) error {
	for i := range f.items {
		if shared.SameKey(f.items[i].Code, code) {
			f.items = append(f.items[:i], f.items[i+1:]...)
			return nil
		}
	}
	return inventory.ErrItemNotFound
}

func (f *inventoryRepo) GetRecord(_ context.Context, code, location string) (inventory.Record, error) {
	for _, rec := range f.records {
		if shared.SameKey(rec.ItemCode, code) && shared.SameKey(rec.LocationName, location) {
			return rec, nil
		}
	}
	return inventory.Record{}, inventory.ErrRecordNotFound
}

func (f *inventoryRepo) CreateRecord(_ context.Context, rec inventory.Record) (inventory.Record, error) {
	f.nextID++
	rec.ID = f.nextID
	f.records = append(f.records, rec)
	return rec, nil
}

func (f *inventoryRepo) UpdateRecordQty(_ context.Context, id int64, qty int64) error {
	for i := range f.records {
		if f.records[i].ID == id {
			f.records[i].Qty = qty
			return nil
		}
	}
	return inventory.ErrRecordNotFound
}

func (f *inventoryRepo) ListRecords(_ context.Context) ([]inventory.Record, error) {
	return append([]inventory.Record(nil), f.records...), nil
}

func (f *inventoryRepo) ListRecordsByItem(_ context.Context, code string) ([]inventory.Record, error) {
	var out []inventory.Record
	for _, rec := range f.records {
		if shared.SameKey(rec.ItemCode, code) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (f *inventoryRepo) ListLowStock(_ context.Context, threshold int64) ([]inventory.Record, error) {
	var out []inventory.Record
	for _, rec := range f.records {
		if rec.Qty < threshold {
			out = append(out, rec)
		}
	}
	return out, nil
}

type fixture struct {
	session   *Session
	orders    *orders.Service
	notes     *notes.Service
	inventory *inventory.Service
	engine    *bins.Engine
	locations *locations.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	locationsSvc := locations.NewService(newLocationsRepo(), nil)
	inventorySvc := inventory.NewService(&inventoryRepo{}, nil, cache.NewJSONCache(nil, time.Minute), inventory.ServiceConfig{})
	ordersSvc := orders.NewService(newOrdersRepo(), nil)
	notesSvc := notes.NewService(&notesRepo{}, nil)
	engine := bins.NewEngine(newBinsRepo(), locationsSvc, inventorySvc, nil)
	return &fixture{
		session:   NewSession(ordersSvc, notesSvc, engine, inventorySvc, nil),
		orders:    ordersSvc,
		notes:     notesSvc,
		inventory: inventorySvc,
		engine:    engine,
		locations: locationsSvc,
	}
}

func (fx *fixture) createOrder(t *testing.T, displayName, client string, lines ...orders.LineInput) orders.Order {
	t.Helper()
	order, _, err := fx.orders.Create(context.Background(), orders.CreateInput{
		DisplayName: displayName,
		ClientName:  client,
		Lines:       lines,
	})
	require.NoError(t, err)
	return order
}

func (fx *fixture) startNote(t *testing.T) notes.Note {
	t.Helper()
	note, err := fx.session.StartNote(context.Background(), notes.CreateInput{Number: "DN-1", Supplier: "ACME Logistics"})
	require.NoError(t, err)
	return note
}

func TestScanRequiresActiveNote(t *testing.T) {
	fx := newFixture(t)

	_, err := fx.session.HandleScan(context.Background(), "SKU-1")
	require.ErrorIs(t, err, ErrNoActiveNote)
}

func TestScanRejectsEmptyCode(t *testing.T) {
	fx := newFixture(t)
	fx.startNote(t)

	_, err := fx.session.HandleScan(context.Background(), "   ")
	require.ErrorIs(t, err, ErrValidation)
}

func TestScanWithNothingPending(t *testing.T) {
	fx := newFixture(t)
	fx.startNote(t)

	_, err := fx.session.HandleScan(context.Background(), "SKU-404")
	require.ErrorIs(t, err, orders.ErrNothingPending)
}

func TestScanDrivesWholePipeline(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	order := fx.createOrder(t, "ACME Corp", "ACME", orders.LineInput{ItemCode: "SKU-1", Description: "Widget", Qty: 2})
	note := fx.startNote(t)

	outcome, err := fx.session.HandleScan(ctx, "SKU-1")
	require.NoError(t, err)
	require.Equal(t, order.ID, outcome.OrderID)
	require.Equal(t, "ACME Corp", outcome.BinName)
	require.True(t, outcome.BinCreated)
	require.Equal(t, int64(1), outcome.UnitsInBin)
	require.False(t, outcome.Completed)
	require.Equal(t, int64(1), outcome.Line.QtyReceived)
	require.Equal(t, int64(1), outcome.Line.QtyPending)
	require.Equal(t, note.ID, outcome.NoteID)

	// The unit is in the ledger at the bin and on the note.
	qty, err := fx.inventory.QtyAt(ctx, "SKU-1", "ACME Corp")
	require.NoError(t, err)
	require.Equal(t, int64(1), qty)

	lines, err := fx.notes.Lines(ctx, note.ID)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	require.Equal(t, int64(1), lines[0].Qty)
}

func TestScanUsesCatalogMetadataOnNoteLines(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	_, err := fx.inventory.CreateItem(ctx, inventory.Item{Code: "SKU-1", Name: "Catalog Widget", Category: "widgets", WholesalePrice: 2.5})
	require.NoError(t, err)
	fx.createOrder(t, "ACME Corp", "ACME", orders.LineInput{ItemCode: "SKU-1", Description: "Widget", Qty: 1})
	note := fx.startNote(t)

	_, err = fx.session.HandleScan(ctx, "SKU-1")
	require.NoError(t, err)

	lines, err := fx.notes.Lines(ctx, note.ID)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	require.Equal(t, "Catalog Widget", lines[0].Name)
	require.Equal(t, "widgets", lines[0].Category)
	require.InDelta(t, 2.5, lines[0].WholesalePrice, 1e-9)
}

func TestScansFillOldestOrderFirstThenSpill(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	first := fx.createOrder(t, "ACME Corp", "ACME",
		orders.LineInput{ItemCode: "SKU-1", Qty: 2},
		orders.LineInput{ItemCode: "SKU-2", Qty: 1},
	)
	second := fx.createOrder(t, "Globex Inc", "Globex", orders.LineInput{ItemCode: "SKU-1", Qty: 1})
	note := fx.startNote(t)

	scans := []struct {
		code      string
		wantOrder int64
		wantBin   string
	}{
		{"SKU-1", first.ID, "ACME Corp"},
		{"SKU-2", first.ID, "ACME Corp"},
		{"SKU-1", first.ID, "ACME Corp"},
		{"SKU-1", second.ID, "Globex Inc"},
	}
	for i, scan := range scans {
		outcome, err := fx.session.HandleScan(ctx, scan.code)
		require.NoError(t, err, "scan %d", i)
		require.Equal(t, scan.wantOrder, outcome.OrderID, "scan %d", i)
		require.Equal(t, scan.wantBin, outcome.BinName, "scan %d", i)
	}

	// A fifth scan has no pending line anywhere.
	_, err := fx.session.HandleScan(ctx, "SKU-1")
	require.ErrorIs(t, err, orders.ErrNothingPending)

	// Note lines merged by code across orders.
	lines, err := fx.notes.Lines(ctx, note.ID)
	require.NoError(t, err)
	require.Len(t, lines, 2)
	byCode := map[string]int64{}
	for _, line := range lines {
		byCode[line.ItemCode] = line.Qty
	}
	require.Equal(t, int64(3), byCode["SKU-1"])
	require.Equal(t, int64(1), byCode["SKU-2"])
}

func TestUndoReversesOrderAndBinButNotNote(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	fx.createOrder(t, "ACME Corp", "ACME", orders.LineInput{ItemCode: "SKU-1", Qty: 2})
	note := fx.startNote(t)

	_, err := fx.session.HandleScan(ctx, "SKU-1")
	require.NoError(t, err)
	require.Equal(t, 1, fx.session.HistoryDepth())

	outcome, err := fx.session.UndoLastScan(ctx)
	require.NoError(t, err)
	require.NotNil(t, outcome)
	require.Zero(t, outcome.Line.QtyReceived)
	require.Equal(t, int64(2), outcome.Line.QtyPending)
	require.Zero(t, outcome.UnitsInBin)
	require.Zero(t, fx.session.HistoryDepth())

	// Ledger drained back out of the bin.
	qty, err := fx.inventory.QtyAt(ctx, "SKU-1", "ACME Corp")
	require.NoError(t, err)
	require.Zero(t, qty)

	// The note line stays: the paper trail records what physically arrived.
	lines, err := fx.notes.Lines(ctx, note.ID)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	require.Equal(t, int64(1), lines[0].Qty)
}

func TestUndoWithEmptyHistoryReturnsNil(t *testing.T) {
	fx := newFixture(t)

	outcome, err := fx.session.UndoLastScan(context.Background())
	require.NoError(t, err)
	require.Nil(t, outcome)
}

func TestUndoConsumesEntryEvenWhenLineAlreadyAtZero(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	order := fx.createOrder(t, "ACME Corp", "ACME", orders.LineInput{ItemCode: "SKU-1", Qty: 1})
	fx.startNote(t)

	outcome, err := fx.session.HandleScan(ctx, "SKU-1")
	require.NoError(t, err)

	// Reverse the receipt out-of-band, then undo: the entry pops but nothing
	// else moves.
	_, undone, err := fx.orders.UndoReceipt(ctx, outcome.Line.ID)
	require.NoError(t, err)
	require.True(t, undone)

	result, err := fx.session.UndoLastScan(ctx)
	require.NoError(t, err)
	require.Nil(t, result)
	require.Zero(t, fx.session.HistoryDepth())

	_, lines, err := fx.orders.Get(ctx, order.ID)
	require.NoError(t, err)
	require.Zero(t, lines[0].QtyReceived)
}

func TestInvoiceThenRescanLandsInSuccessorBin(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	fx.createOrder(t, "ACME Corp", "ACME", orders.LineInput{ItemCode: "SKU-1", Qty: 3})
	fx.startNote(t)

	_, err := fx.session.HandleScan(ctx, "SKU-1")
	require.NoError(t, err)

	require.NoError(t, fx.engine.TransitionLifecycle(ctx, "ACME Corp", locations.LifecycleInvoiced))

	outcome, err := fx.session.HandleScan(ctx, "SKU-1")
	require.NoError(t, err)
	require.Equal(t, "ACME Corp (2)", outcome.BinName)
	require.Equal(t, int64(1), outcome.UnitsInBin)

	// The invoiced bin keeps nothing; the successor carries the new unit.
	qty, err := fx.inventory.QtyAt(ctx, "SKU-1", "ACME Corp")
	require.NoError(t, err)
	require.Zero(t, qty)

	qty, err = fx.inventory.QtyAt(ctx, "SKU-1", "ACME Corp (2)")
	require.NoError(t, err)
	require.Equal(t, int64(1), qty)
}

func TestSwitchNoteRoutesFollowingScans(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	fx.createOrder(t, "ACME Corp", "ACME", orders.LineInput{ItemCode: "SKU-1", Qty: 2})
	firstNote := fx.startNote(t)

	_, err := fx.session.HandleScan(ctx, "SKU-1")
	require.NoError(t, err)

	secondNote, err := fx.notes.Create(ctx, notes.CreateInput{Number: "DN-2"})
	require.NoError(t, err)
	_, err = fx.session.SwitchNote(ctx, secondNote.ID)
	require.NoError(t, err)

	_, err = fx.session.HandleScan(ctx, "SKU-1")
	require.NoError(t, err)

	firstLines, err := fx.notes.Lines(ctx, firstNote.ID)
	require.NoError(t, err)
	require.Len(t, firstLines, 1)
	require.Equal(t, int64(1), firstLines[0].Qty)

	secondLines, err := fx.notes.Lines(ctx, secondNote.ID)
	require.NoError(t, err)
	require.Len(t, secondLines, 1)
	require.Equal(t, int64(1), secondLines[0].Qty)
}

func TestStopNoteReturnsSessionToIdle(t *testing.T) {
	fx := newFixture(t)
	fx.createOrder(t, "ACME Corp", "ACME", orders.LineInput{ItemCode: "SKU-1", Qty: 1})
	fx.startNote(t)

	fx.session.StopNote()
	require.Nil(t, fx.session.ActiveNote())

	_, err := fx.session.HandleScan(context.Background(), "SKU-1")
	require.ErrorIs(t, err, ErrNoActiveNote)
}
