package orders

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gaveta-wms/gaveta/internal/shared"
)

type fakeRepo struct {
	orders []Order
	lines  []Line
	nextID int64
	clock  time.Time
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{clock: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (f *fakeRepo) tick() time.Time {
	f.clock = f.clock.Add(time.Minute)
	return f.clock
}

func (f *fakeRepo) CreateOrder(_ context.Context, order Order, lines []Line) (Order, []Line, error) {
	f.nextID++
	order.ID = f.nextID
	order.CreatedAt = f.tick()
	f.orders = append(f.orders, order)
	for i := range lines {
		f.nextID++
		lines[i].ID = f.nextID
		lines[i].OrderID = order.ID
		f.lines = append(f.lines, lines[i])
	}
	return order, lines, nil
}

func (f *fakeRepo) AddLine(_ context.Context, line Line) (Line, error) {
	f.nextID++
	line.ID = f.nextID
	f.lines = append(f.lines, line)
	return line, nil
}

func (f *fakeRepo) GetOrder(_ context.Context, id int64) (Order, []Line, error) {
	for _, order := range f.orders {
		if order.ID == id {
			var lines []Line
			for _, line := range f.lines {
				if line.OrderID == id {
					lines = append(lines, line)
				}
			}
			return order, lines, nil
		}
	}
	return Order{}, nil, ErrNotFound
}

func (f *fakeRepo) ListOrders(_ context.Context, includeClosed bool) ([]Order, error) {
	var out []Order
	for _, order := range f.orders {
		if !includeClosed && order.Closed {
			continue
		}
		out = append(out, order)
	}
	return out, nil
}

func (f *fakeRepo) FindByNameClient(_ context.Context, displayName, clientName string) (Order, []Line, error) {
	for _, order := range f.orders {
		if shared.SameKey(order.DisplayName, displayName) && shared.SameKey(order.ClientName, clientName) {
			return f.GetOrder(context.Background(), order.ID)
		}
	}
	return Order{}, nil, ErrNotFound
}

func (f *fakeRepo) GetLine(_ context.Context, id int64) (Line, error) {
	for _, line := range f.lines {
		if line.ID == id {
			return line, nil
		}
	}
	return Line{}, ErrLineNotFound
}

func (f *fakeRepo) UpdateLine(_ context.Context, line Line) error {
	for i := range f.lines {
		if f.lines[i].ID == line.ID {
			f.lines[i] = line
			return nil
		}
	}
	return ErrLineNotFound
}

func (f *fakeRepo) SetClosed(_ context.Context, id int64, closed bool) error {
	for i := range f.orders {
		if f.orders[i].ID == id {
			f.orders[i].Closed = closed
			return nil
		}
	}
	return ErrNotFound
}

func (f *fakeRepo) DeleteOrder(_ context.Context, id int64) error {
	for i := range f.orders {
		if f.orders[i].ID == id {
			f.orders = append(f.orders[:i], f.orders[i+1:]...)
			kept := f.lines[:0]
			for _, line := range f.lines {
				if line.OrderID != id {
					kept = append(kept, line)
				}
			}
			f.lines = kept
			return nil
		}
	}
	return ErrNotFound
}

func (f *fakeRepo) FindOldestPendingLine(_ context.Context, code string) (Order, Line, error) {
	var bestOrder Order
	var bestLine Line
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
		return Order{}, Line{}, ErrNothingPending
	}
	return bestOrder, bestLine, nil
}

func mustCreate(t *testing.T, svc *Service, client string, lines ...LineInput) Order {
	t.Helper()
	order, _, err := svc.Create(context.Background(), CreateInput{ClientName: client, Lines: lines})
	require.NoError(t, err)
	return order
}

func TestCreateRejectsInvalidLines(t *testing.T) {
	svc := NewService(newFakeRepo(), nil)
	ctx := context.Background()

	_, _, err := svc.Create(ctx, CreateInput{ClientName: "ACME", Lines: []LineInput{{ItemCode: "SKU-1", Qty: 0}}})
	require.ErrorIs(t, err, ErrValidation)

	_, _, err = svc.Create(ctx, CreateInput{ClientName: "  "})
	require.ErrorIs(t, err, ErrValidation)
}

func TestReceiptConservesOrderedQuantity(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	order := mustCreate(t, svc, "ACME", LineInput{ItemCode: "SKU-1", Qty: 3})
	_, lines, err := svc.Get(ctx, order.ID)
	require.NoError(t, err)

	lineID := lines[0].ID
	for i := 0; i < 3; i++ {
		line, completed, err := svc.RecordReceipt(ctx, lineID)
		require.NoError(t, err)
		require.Equal(t, line.QtyOrdered, line.QtyReceived+line.QtyPending)
		require.Equal(t, i == 2, completed)
	}

	line, err := svc.GetLine(ctx, lineID)
	require.NoError(t, err)
	require.Equal(t, int64(3), line.QtyReceived)
	require.Zero(t, line.QtyPending)
}

func TestFindOldestPendingPrefersEarliestOpenOrder(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	first := mustCreate(t, svc, "ACME", LineInput{ItemCode: "SKU-1", Qty: 1})
	second := mustCreate(t, svc, "Globex", LineInput{ItemCode: "SKU-1", Qty: 5})

	order, _, err := svc.FindOldestPending(ctx, "sku-1")
	require.NoError(t, err)
	require.Equal(t, first.ID, order.ID)

	// Drain the first order; resolution moves to the next oldest.
	_, lines, err := svc.Get(ctx, first.ID)
	require.NoError(t, err)
	_, _, err = svc.RecordReceipt(ctx, lines[0].ID)
	require.NoError(t, err)

	order, _, err = svc.FindOldestPending(ctx, "SKU-1")
	require.NoError(t, err)
	require.Equal(t, second.ID, order.ID)
}

func TestFindOldestPendingSkipsClosedOrders(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	order := mustCreate(t, svc, "ACME", LineInput{ItemCode: "SKU-1", Qty: 2})
	require.NoError(t, svc.Close(ctx, order.ID))

	_, _, err := svc.FindOldestPending(ctx, "SKU-1")
	require.ErrorIs(t, err, ErrNothingPending)

	// Reopening restores eligibility with quantities intact.
	require.NoError(t, svc.Reopen(ctx, order.ID))
	got, line, err := svc.FindOldestPending(ctx, "SKU-1")
	require.NoError(t, err)
	require.Equal(t, order.ID, got.ID)
	require.Equal(t, int64(2), line.QtyPending)
}

func TestUndoReceiptReversesOneUnit(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	order := mustCreate(t, svc, "ACME", LineInput{ItemCode: "SKU-1", Qty: 2})
	_, lines, err := svc.Get(ctx, order.ID)
	require.NoError(t, err)
	lineID := lines[0].ID

	_, _, err = svc.RecordReceipt(ctx, lineID)
	require.NoError(t, err)

	line, undone, err := svc.UndoReceipt(ctx, lineID)
	require.NoError(t, err)
	require.True(t, undone)
	require.Zero(t, line.QtyReceived)
	require.Equal(t, int64(2), line.QtyPending)
}

func TestUndoReceiptNoOpsAtZero(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	order := mustCreate(t, svc, "ACME", LineInput{ItemCode: "SKU-1", Qty: 2})
	_, lines, err := svc.Get(ctx, order.ID)
	require.NoError(t, err)

	line, undone, err := svc.UndoReceipt(ctx, lines[0].ID)
	require.NoError(t, err)
	require.False(t, undone)
	require.Zero(t, line.QtyReceived)
}
