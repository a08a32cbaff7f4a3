package bins

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists bin assignments in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts an active assignment row.
func (r *Repository) Create(ctx context.Context, a Assignment) (Assignment, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO bin_assignments (order_id, item_code, client_name, description, units, location_name, active)
VALUES ($1, $2, $3, $4, $5, $6, TRUE) RETURNING id`,
		a.OrderID, a.ItemCode, a.ClientName, a.Description, a.Units, a.LocationName).Scan(&a.ID)
	if err != nil {
		return Assignment{}, err
	}
	return a, nil
}

// UpdateUnits persists a new unit count.
func (r *Repository) UpdateUnits(ctx context.Context, id int64, units int64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE bin_assignments SET units = $2 WHERE id = $1`, id, units)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateLocation moves an assignment to another bin.
func (r *Repository) UpdateLocation(ctx context.Context, id int64, location string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE bin_assignments SET location_name = $2 WHERE id = $1`, id, location)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Archive marks the row inactive, retaining it for audit.
func (r *Repository) Archive(ctx context.Context, id int64, units int64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE bin_assignments SET active = FALSE, units = $2, archived_at = NOW() WHERE id = $1`, id, units)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListActive loads every active assignment; the engine rebuilds its working
// map from this at startup.
func (r *Repository) ListActive(ctx context.Context) ([]Assignment, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, order_id, item_code, client_name, description, units, location_name
FROM bin_assignments WHERE active ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Assignment
	for rows.Next() {
		var a Assignment
		if err := rows.Scan(&a.ID, &a.OrderID, &a.ItemCode, &a.ClientName, &a.Description, &a.Units, &a.LocationName); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("bins: scan active: %w", err)
	}
	return out, nil
}

// ListArchived returns archived assignments, newest first.
func (r *Repository) ListArchived(ctx context.Context, limit int) ([]Assignment, error) {
	if limit <= 0 {
		limit = 200
	}
	rows, err := r.pool.Query(ctx, `SELECT id, order_id, item_code, client_name, description, units, location_name, archived_at
FROM bin_assignments WHERE NOT active ORDER BY archived_at DESC, id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Assignment
	for rows.Next() {
		var a Assignment
		if err := rows.Scan(&a.ID, &a.OrderID, &a.ItemCode, &a.ClientName, &a.Description, &a.Units, &a.LocationName, &a.ArchivedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
