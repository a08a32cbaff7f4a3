package notes

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists delivery notes in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a note header.
func (r *Repository) Create(ctx context.Context, note Note) (Note, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO delivery_notes (number, note_date, supplier, origin_facility, transport_cost)
VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		note.Number, note.Date, note.Supplier, note.OriginFacility, note.TransportCost).Scan(&note.ID)
	if err != nil {
		return Note{}, err
	}
	return note, nil
}

// Get loads a note header.
func (r *Repository) Get(ctx context.Context, id int64) (Note, error) {
	var note Note
	err := r.pool.QueryRow(ctx, `SELECT id, number, note_date, supplier, origin_facility, transport_cost
FROM delivery_notes WHERE id = $1`, id).
		Scan(&note.ID, &note.Number, &note.Date, &note.Supplier, &note.OriginFacility, &note.TransportCost)
	if errors.Is(err, pgx.ErrNoRows) {
		return Note{}, ErrNotFound
	}
	if err != nil {
		return Note{}, err
	}
	return note, nil
}

// List returns notes newest first.
func (r *Repository) List(ctx context.Context) ([]Note, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, number, note_date, supplier, origin_facility, transport_cost
FROM delivery_notes ORDER BY note_date DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Note
	for rows.Next() {
		var note Note
		if err := rows.Scan(&note.ID, &note.Number, &note.Date, &note.Supplier, &note.OriginFacility, &note.TransportCost); err != nil {
			return nil, err
		}
		out = append(out, note)
	}
	return out, rows.Err()
}

// Lines returns the lines of a note in insertion order.
func (r *Repository) Lines(ctx context.Context, noteID int64) ([]Line, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, note_id, item_code, name, category, wholesale_price, retail_price, qty
FROM delivery_note_lines WHERE note_id = $1 ORDER BY id ASC`, noteID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Line
	for rows.Next() {
		var line Line
		if err := rows.Scan(&line.ID, &line.NoteID, &line.ItemCode, &line.Name, &line.Category, &line.WholesalePrice, &line.RetailPrice, &line.Qty); err != nil {
			return nil, err
		}
		out = append(out, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("notes: scan lines: %w", err)
	}
	return out, nil
}

// UpsertLine merges a quantity into the note's line for the item code,
// creating the line when the code is new to the note.
func (r *Repository) UpsertLine(ctx context.Context, line Line) (Line, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO delivery_note_lines (note_id, item_code, name, category, wholesale_price, retail_price, qty)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (note_id, LOWER(item_code)) DO UPDATE SET qty = delivery_note_lines.qty + EXCLUDED.qty
RETURNING id, item_code, name, category, wholesale_price, retail_price, qty`,
		line.NoteID, line.ItemCode, line.Name, line.Category, line.WholesalePrice, line.RetailPrice, line.Qty).
		Scan(&line.ID, &line.ItemCode, &line.Name, &line.Category, &line.WholesalePrice, &line.RetailPrice, &line.Qty)
	if err != nil {
		return Line{}, err
	}
	return line, nil
}
