package optics

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists optics branches and stock in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) CreateBranch(ctx context.Context, branch Branch) (Branch, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO optics_branches (name) VALUES ($1) RETURNING id`, branch.Name).Scan(&branch.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Branch{}, ErrDuplicate
		}
		return Branch{}, err
	}
	return branch, nil
}

func (r *Repository) GetBranch(ctx context.Context, id int64) (Branch, error) {
	var branch Branch
	err := r.pool.QueryRow(ctx, `SELECT id, name FROM optics_branches WHERE id = $1`, id).Scan(&branch.ID, &branch.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return Branch{}, ErrBranchNotFound
	}
	if err != nil {
		return Branch{}, err
	}
	return branch, nil
}

func (r *Repository) ListBranches(ctx context.Context) ([]Branch, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name FROM optics_branches ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Branch
	for rows.Next() {
		var branch Branch
		if err := rows.Scan(&branch.ID, &branch.Name); err != nil {
			return nil, err
		}
		out = append(out, branch)
	}
	return out, rows.Err()
}

func (r *Repository) DeleteBranch(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM optics_branches WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrBranchNotFound
	}
	return nil
}

func (r *Repository) GetStock(ctx context.Context, branchID int64, ref string) (Stock, error) {
	var stock Stock
	err := r.pool.QueryRow(ctx, `SELECT id, branch_id, ref, description, qty
FROM optics_stock WHERE branch_id = $1 AND LOWER(ref) = LOWER($2)`, branchID, ref).
		Scan(&stock.ID, &stock.BranchID, &stock.Ref, &stock.Description, &stock.Qty)
	if errors.Is(err, pgx.ErrNoRows) {
		return Stock{}, ErrStockNotFound
	}
	if err != nil {
		return Stock{}, err
	}
	return stock, nil
}

func (r *Repository) ListStock(ctx context.Context, branchID int64) ([]Stock, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, branch_id, ref, description, qty
FROM optics_stock WHERE branch_id = $1 ORDER BY ref ASC`, branchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Stock
	for rows.Next() {
		var stock Stock
		if err := rows.Scan(&stock.ID, &stock.BranchID, &stock.Ref, &stock.Description, &stock.Qty); err != nil {
			return nil, err
		}
		out = append(out, stock)
	}
	return out, rows.Err()
}

// UpsertStock adds qty to the (branch, ref) row, creating it when missing.
func (r *Repository) UpsertStock(ctx context.Context, stock Stock) (Stock, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO optics_stock (branch_id, ref, description, qty)
VALUES ($1, $2, $3, $4)
ON CONFLICT (branch_id, LOWER(ref)) DO UPDATE SET qty = optics_stock.qty + EXCLUDED.qty, description = EXCLUDED.description
RETURNING id, ref, description, qty`, stock.BranchID, stock.Ref, stock.Description, stock.Qty).
		Scan(&stock.ID, &stock.Ref, &stock.Description, &stock.Qty)
	if err != nil {
		return Stock{}, err
	}
	return stock, nil
}

// SetStockQty writes an absolute quantity.
func (r *Repository) SetStockQty(ctx context.Context, id int64, qty int64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE optics_stock SET qty = $2 WHERE id = $1`, id, qty)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrStockNotFound
	}
	return nil
}
