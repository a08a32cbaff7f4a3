package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gaveta-wms/gaveta/internal/platform/db"
)

// Repository persists purchase orders in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateOrder inserts the order header and its lines in one transaction.
func (r *Repository) CreateOrder(ctx context.Context, order Order, lines []Line) (Order, []Line, error) {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `INSERT INTO purchase_orders (display_name, client_name, status, notes, closed)
VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at`,
			order.DisplayName, order.ClientName, order.Status, order.Notes, order.Closed).
			Scan(&order.ID, &order.CreatedAt)
		if err != nil {
			return err
		}
		for i := range lines {
			lines[i].OrderID = order.ID
			if err := insertLine(ctx, tx, &lines[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Order{}, nil, err
	}
	return order, lines, nil
}

func insertLine(ctx context.Context, tx pgx.Tx, line *Line) error {
	return tx.QueryRow(ctx, `INSERT INTO purchase_order_lines (order_id, item_code, description, qty_ordered, qty_received, qty_pending)
VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		line.OrderID, line.ItemCode, line.Description, line.QtyOrdered, line.QtyReceived, line.QtyPending).
		Scan(&line.ID)
}

// AddLine appends a line to an existing order.
func (r *Repository) AddLine(ctx context.Context, line Line) (Line, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO purchase_order_lines (order_id, item_code, description, qty_ordered, qty_received, qty_pending)
VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		line.OrderID, line.ItemCode, line.Description, line.QtyOrdered, line.QtyReceived, line.QtyPending).
		Scan(&line.ID)
	if err != nil {
		return Line{}, err
	}
	return line, nil
}

// GetOrder loads an order header with its lines.
func (r *Repository) GetOrder(ctx context.Context, id int64) (Order, []Line, error) {
	var order Order
	err := r.pool.QueryRow(ctx, `SELECT id, display_name, client_name, status, notes, closed, created_at
FROM purchase_orders WHERE id = $1`, id).
		Scan(&order.ID, &order.DisplayName, &order.ClientName, &order.Status, &order.Notes, &order.Closed, &order.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, nil, ErrNotFound
	}
	if err != nil {
		return Order{}, nil, err
	}
	lines, err := r.linesFor(ctx, id)
	if err != nil {
		return Order{}, nil, err
	}
	return order, lines, nil
}

func (r *Repository) linesFor(ctx context.Context, orderID int64) ([]Line, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, order_id, item_code, description, qty_ordered, qty_received, qty_pending
FROM purchase_order_lines WHERE order_id = $1 ORDER BY id ASC`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanLines(rows)
}

// ListOrders returns orders oldest first, optionally including closed ones.
func (r *Repository) ListOrders(ctx context.Context, includeClosed bool) ([]Order, error) {
	query := `SELECT id, display_name, client_name, status, notes, closed, created_at
FROM purchase_orders`
	if !includeClosed {
		query += ` WHERE NOT closed`
	}
	query += ` ORDER BY created_at ASC, id ASC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		var order Order
		if err := rows.Scan(&order.ID, &order.DisplayName, &order.ClientName, &order.Status, &order.Notes, &order.Closed, &order.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, order)
	}
	return out, rows.Err()
}

// FindByNameClient matches an order by display name and client,
// case-insensitively; bulk import merges into it.
func (r *Repository) FindByNameClient(ctx context.Context, displayName, clientName string) (Order, []Line, error) {
	var order Order
	err := r.pool.QueryRow(ctx, `SELECT id, display_name, client_name, status, notes, closed, created_at
FROM purchase_orders WHERE LOWER(display_name) = LOWER($1) AND LOWER(client_name) = LOWER($2)
ORDER BY created_at ASC LIMIT 1`, displayName, clientName).
		Scan(&order.ID, &order.DisplayName, &order.ClientName, &order.Status, &order.Notes, &order.Closed, &order.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, nil, ErrNotFound
	}
	if err != nil {
		return Order{}, nil, err
	}
	lines, err := r.linesFor(ctx, order.ID)
	if err != nil {
		return Order{}, nil, err
	}
	return order, lines, nil
}

// GetLine loads a single line.
func (r *Repository) GetLine(ctx context.Context, id int64) (Line, error) {
	var line Line
	err := r.pool.QueryRow(ctx, `SELECT id, order_id, item_code, description, qty_ordered, qty_received, qty_pending
FROM purchase_order_lines WHERE id = $1`, id).
		Scan(&line.ID, &line.OrderID, &line.ItemCode, &line.Description, &line.QtyOrdered, &line.QtyReceived, &line.QtyPending)
	if errors.Is(err, pgx.ErrNoRows) {
		return Line{}, ErrLineNotFound
	}
	if err != nil {
		return Line{}, err
	}
	return line, nil
}

// UpdateLine persists a line's quantities.
func (r *Repository) UpdateLine(ctx context.Context, line Line) error {
	tag, err := r.pool.Exec(ctx, `UPDATE purchase_order_lines
SET qty_ordered = $2, qty_received = $3, qty_pending = $4 WHERE id = $1`,
		line.ID, line.QtyOrdered, line.QtyReceived, line.QtyPending)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrLineNotFound
	}
	return nil
}

// SetClosed toggles the closed flag.
func (r *Repository) SetClosed(ctx context.Context, id int64, closed bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE purchase_orders SET closed = $2 WHERE id = $1`, id, closed)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteOrder removes an order and its lines.
func (r *Repository) DeleteOrder(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM purchase_orders WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// FindOldestPendingLine resolves the receiving target for a code: the first
// pending line on the oldest open order. Oldest-first is the FIFO guarantee
// for backorders.
func (r *Repository) FindOldestPendingLine(ctx context.Context, code string) (Order, Line, error) {
	var order Order
	var line Line
	err := r.pool.QueryRow(ctx, `SELECT o.id, o.display_name, o.client_name, o.status, o.notes, o.closed, o.created_at,
       l.id, l.order_id, l.item_code, l.description, l.qty_ordered, l.qty_received, l.qty_pending
FROM purchase_orders o
JOIN purchase_order_lines l ON l.order_id = o.id
WHERE NOT o.closed AND LOWER(l.item_code) = LOWER($1) AND l.qty_pending > 0
ORDER BY o.created_at ASC, o.id ASC, l.id ASC
LIMIT 1`, code).Scan(
		&order.ID, &order.DisplayName, &order.ClientName, &order.Status, &order.Notes, &order.Closed, &order.CreatedAt,
		&line.ID, &line.OrderID, &line.ItemCode, &line.Description, &line.QtyOrdered, &line.QtyReceived, &line.QtyPending)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, Line{}, ErrNothingPending
	}
	if err != nil {
		return Order{}, Line{}, err
	}
	return order, line, nil
}

func scanLines(rows pgx.Rows) ([]Line, error) {
	var out []Line
	for rows.Next() {
		var line Line
		if err := rows.Scan(&line.ID, &line.OrderID, &line.ItemCode, &line.Description, &line.QtyOrdered, &line.QtyReceived, &line.QtyPending); err != nil {
			return nil, err
		}
		out = append(out, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("orders: scan lines: %w", err)
	}
	return out, nil
}
