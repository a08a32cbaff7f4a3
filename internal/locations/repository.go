package locations

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gaveta-wms/gaveta/internal/platform/db"
)

// Repository persists storage locations in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a location, mapping unique violations to ErrDuplicate.
func (r *Repository) Create(ctx context.Context, loc Location) (Location, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO storage_locations (name, kind, capacity, lifecycle)
VALUES ($1, $2, $3, $4) RETURNING id, created_at`, loc.Name, loc.Kind, loc.Capacity, string(loc.Lifecycle)).
		Scan(&loc.ID, &loc.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Location{}, ErrDuplicate
		}
		return Location{}, err
	}
	return loc, nil
}

// GetByName finds a location case-insensitively.
func (r *Repository) GetByName(ctx context.Context, name string) (Location, error) {
	var loc Location
	err := r.pool.QueryRow(ctx, `SELECT id, name, kind, capacity, lifecycle, created_at
FROM storage_locations WHERE LOWER(name) = LOWER($1)`, name).
		Scan(&loc.ID, &loc.Name, &loc.Kind, &loc.Capacity, &loc.Lifecycle, &loc.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Location{}, ErrNotFound
	}
	if err != nil {
		return Location{}, err
	}
	return loc, nil
}

// List returns every location ordered by creation time.
func (r *Repository) List(ctx context.Context) ([]Location, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, kind, capacity, lifecycle, created_at
FROM storage_locations ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Location
	for rows.Next() {
		var loc Location
		if err := rows.Scan(&loc.ID, &loc.Name, &loc.Kind, &loc.Capacity, &loc.Lifecycle, &loc.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, loc)
	}
	return out, rows.Err()
}

// Rename changes a location name and cascades the new name through every
// referencing inventory record and bin assignment inside one transaction.
func (r *Repository) Rename(ctx context.Context, oldName, newName string) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE storage_locations SET name = $2 WHERE LOWER(name) = LOWER($1)`, oldName, newName)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return ErrDuplicate
			}
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		if _, err := tx.Exec(ctx, `UPDATE inventory_records SET location_name = $2 WHERE LOWER(location_name) = LOWER($1)`, oldName, newName); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `UPDATE bin_assignments SET location_name = $2 WHERE LOWER(location_name) = LOWER($1)`, oldName, newName); err != nil {
			return err
		}
		return nil
	})
}

// Delete removes a location together with its dependent inventory rows and
// bin assignments.
func (r *Repository) Delete(ctx context.Context, name string) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM storage_locations WHERE LOWER(name) = LOWER($1)`, name)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		if _, err := tx.Exec(ctx, `DELETE FROM inventory_records WHERE LOWER(location_name) = LOWER($1)`, name); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM bin_assignments WHERE LOWER(location_name) = LOWER($1)`, name); err != nil {
			return err
		}
		return nil
	})
}

// SetLifecycle persists a lifecycle transition.
func (r *Repository) SetLifecycle(ctx context.Context, name string, state Lifecycle) error {
	tag, err := r.pool.Exec(ctx, `UPDATE storage_locations SET lifecycle = $2 WHERE LOWER(name) = LOWER($1)`, name, string(state))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// NextSequence atomically increments and returns the named counter.
func (r *Repository) NextSequence(ctx context.Context, counter string) (int64, error) {
	var value int64
	err := r.pool.QueryRow(ctx, `INSERT INTO sequences (name, value) VALUES ($1, 1)
ON CONFLICT (name) DO UPDATE SET value = sequences.value + 1
RETURNING value`, counter).Scan(&value)
	return value, err
}
