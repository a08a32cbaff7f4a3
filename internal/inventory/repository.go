package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gaveta-wms/gaveta/internal/platform/db"
)

// Repository persists catalog items and stock records in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) CreateItem(ctx context.Context, item Item) (Item, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO items (code, name, category, wholesale_price, retail_price)
VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		item.Code, item.Name, item.Category, item.WholesalePrice, item.RetailPrice).Scan(&item.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Item{}, ErrDuplicate
		}
		return Item{}, err
	}
	return item, nil
}

func (r *Repository) UpdateItem(ctx context.Context, item Item) error {
	tag, err := r.pool.Exec(ctx, `UPDATE items SET name = $2, category = $3, wholesale_price = $4, retail_price = $5
WHERE LOWER(code) = LOWER($1)`, item.Code, item.Name, item.Category, item.WholesalePrice, item.RetailPrice)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrItemNotFound
	}
	return nil
}

func (r *Repository) GetItem(ctx context.Context, code string) (Item, error) {
	var item Item
	err := r.pool.QueryRow(ctx, `SELECT id, code, name, category, wholesale_price, retail_price
FROM items WHERE LOWER(code) = LOWER($1)`, code).
		Scan(&item.ID, &item.Code, &item.Name, &item.Category, &item.WholesalePrice, &item.RetailPrice)
	if errors.Is(err, pgx.ErrNoRows) {
		return Item{}, ErrItemNotFound
	}
	if err != nil {
		return Item{}, err
	}
	return item, nil
}

func (r *Repository) ListItems(ctx context.Context) ([]Item, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, code, name, category, wholesale_price, retail_price FROM items ORDER BY code ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanItems(rows)
}

// SearchItems finds items whose code or name contains the term.
func (r *Repository) SearchItems(ctx context.Context, term string) ([]Item, error) {
	pattern := "%" + term + "%"
	rows, err := r.pool.Query(ctx, `SELECT id, code, name, category, wholesale_price, retail_price
FROM items WHERE code ILIKE $1 OR name ILIKE $1 ORDER BY code ASC`, pattern)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanItems(rows)
}

// DeleteItem removes a catalog item and its stock records everywhere. This is
// the only path that deletes location rows; quantities reaching zero never do.
func (r *Repository) DeleteItem(ctx context.Context, code string) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM items WHERE LOWER(code) = LOWER($1)`, code)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrItemNotFound
		}
		if _, err := tx.Exec(ctx, `DELETE FROM inventory_records WHERE LOWER(item_code) = LOWER($1)`, code); err != nil {
			return err
		}
		return nil
	})
}

func (r *Repository) GetRecord(ctx context.Context, code, location string) (Record, error) {
	var rec Record
	err := r.pool.QueryRow(ctx, `SELECT id, item_code, name, category, wholesale_price, retail_price, qty, location_name
FROM inventory_records WHERE LOWER(item_code) = LOWER($1) AND LOWER(location_name) = LOWER($2)`, code, location).
		Scan(&rec.ID, &rec.ItemCode, &rec.Name, &rec.Category, &rec.WholesalePrice, &rec.RetailPrice, &rec.Qty, &rec.LocationName)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrRecordNotFound
	}
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}

func (r *Repository) CreateRecord(ctx context.Context, rec Record) (Record, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO inventory_records (item_code, name, category, wholesale_price, retail_price, qty, location_name)
VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		rec.ItemCode, rec.Name, rec.Category, rec.WholesalePrice, rec.RetailPrice, rec.Qty, rec.LocationName).Scan(&rec.ID)
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}

func (r *Repository) UpdateRecordQty(ctx context.Context, id int64, qty int64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE inventory_records SET qty = $2 WHERE id = $1`, id, qty)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// ListRecords returns all stock rows ordered by code then location.
func (r *Repository) ListRecords(ctx context.Context) ([]Record, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, item_code, name, category, wholesale_price, retail_price, qty, location_name
FROM inventory_records ORDER BY item_code ASC, location_name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecords(rows)
}

// ListRecordsByItem returns the per-location rows for one code.
func (r *Repository) ListRecordsByItem(ctx context.Context, code string) ([]Record, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, item_code, name, category, wholesale_price, retail_price, qty, location_name
FROM inventory_records WHERE LOWER(item_code) = LOWER($1) ORDER BY location_name ASC`, code)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecords(rows)
}

// ListLowStock returns rows with quantity strictly below the threshold.
func (r *Repository) ListLowStock(ctx context.Context, threshold int64) ([]Record, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, item_code, name, category, wholesale_price, retail_price, qty, location_name
FROM inventory_records WHERE qty < $1 ORDER BY qty ASC, item_code ASC`, threshold)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecords(rows)
}

func scanItems(rows pgx.Rows) ([]Item, error) {
	var out []Item
	for rows.Next() {
		var item Item
		if err := rows.Scan(&item.ID, &item.Code, &item.Name, &item.Category, &item.WholesalePrice, &item.RetailPrice); err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("inventory: scan items: %w", err)
	}
	return out, nil
}

func scanRecords(rows pgx.Rows) ([]Record, error) {
	var out []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.ItemCode, &rec.Name, &rec.Category, &rec.WholesalePrice, &rec.RetailPrice, &rec.Qty, &rec.LocationName); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("inventory: scan records: %w", err)
	}
	return out, nil
}
