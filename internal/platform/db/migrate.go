package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// migrations are idempotent statements, safe to replay against an existing
// store. Later entries evolve the schema of earlier ones.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS storage_locations (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		kind TEXT NOT NULL DEFAULT '',
		lifecycle TEXT NOT NULL DEFAULT 'OPEN',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS storage_locations_name_key ON storage_locations (LOWER(name))`,
	`ALTER TABLE storage_locations ADD COLUMN IF NOT EXISTS capacity BIGINT NOT NULL DEFAULT 0`,

	`CREATE TABLE IF NOT EXISTS items (
		id BIGSERIAL PRIMARY KEY,
		code TEXT NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL DEFAULT '',
		wholesale_price NUMERIC NOT NULL DEFAULT 0,
		retail_price NUMERIC NOT NULL DEFAULT 0
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS items_code_key ON items (LOWER(code))`,

	`CREATE TABLE IF NOT EXISTS inventory_records (
		id BIGSERIAL PRIMARY KEY,
		item_code TEXT NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL DEFAULT '',
		wholesale_price NUMERIC NOT NULL DEFAULT 0,
		retail_price NUMERIC NOT NULL DEFAULT 0,
		qty BIGINT NOT NULL DEFAULT 0 CHECK (qty >= 0),
		location_name TEXT NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS inventory_records_item_loc_key ON inventory_records (LOWER(item_code), LOWER(location_name))`,

	`CREATE TABLE IF NOT EXISTS purchase_orders (
		id BIGSERIAL PRIMARY KEY,
		display_name TEXT NOT NULL DEFAULT '',
		client_name TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'OPEN',
		notes TEXT NOT NULL DEFAULT '',
		closed BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS purchase_order_lines (
		id BIGSERIAL PRIMARY KEY,
		order_id BIGINT NOT NULL REFERENCES purchase_orders(id) ON DELETE CASCADE,
		item_code TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		qty_ordered BIGINT NOT NULL DEFAULT 0,
		qty_received BIGINT NOT NULL DEFAULT 0,
		qty_pending BIGINT NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS purchase_order_lines_order_idx ON purchase_order_lines (order_id)`,

	`CREATE TABLE IF NOT EXISTS delivery_notes (
		id BIGSERIAL PRIMARY KEY,
		number TEXT NOT NULL DEFAULT '',
		note_date DATE NOT NULL DEFAULT CURRENT_DATE,
		supplier TEXT NOT NULL DEFAULT '',
		origin_facility TEXT NOT NULL DEFAULT ''
	)`,
	`ALTER TABLE delivery_notes ADD COLUMN IF NOT EXISTS transport_cost NUMERIC NOT NULL DEFAULT 0`,
	`CREATE TABLE IF NOT EXISTS delivery_note_lines (
		id BIGSERIAL PRIMARY KEY,
		note_id BIGINT NOT NULL REFERENCES delivery_notes(id) ON DELETE CASCADE,
		item_code TEXT NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL DEFAULT '',
		wholesale_price NUMERIC NOT NULL DEFAULT 0,
		retail_price NUMERIC NOT NULL DEFAULT 0,
		qty BIGINT NOT NULL DEFAULT 0
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS delivery_note_lines_code_key ON delivery_note_lines (note_id, LOWER(item_code))`,

	`CREATE TABLE IF NOT EXISTS bin_assignments (
		id BIGSERIAL PRIMARY KEY,
		order_id BIGINT NOT NULL,
		item_code TEXT NOT NULL,
		client_name TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		units BIGINT NOT NULL DEFAULT 0 CHECK (units >= 0),
		location_name TEXT NOT NULL,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		archived_at TIMESTAMPTZ
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS bin_assignments_active_key ON bin_assignments (order_id, LOWER(item_code)) WHERE active`,

	`CREATE TABLE IF NOT EXISTS sequences (
		name TEXT PRIMARY KEY,
		value BIGINT NOT NULL DEFAULT 0
	)`,

	`CREATE TABLE IF NOT EXISTS audit_logs (
		id BIGSERIAL PRIMARY KEY,
		actor_id BIGINT NOT NULL DEFAULT 0,
		action TEXT NOT NULL,
		entity TEXT NOT NULL,
		entity_id TEXT NOT NULL,
		meta JSONB,
		occurred_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS optics_branches (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS optics_branches_name_key ON optics_branches (LOWER(name))`,
	`CREATE TABLE IF NOT EXISTS optics_stock (
		id BIGSERIAL PRIMARY KEY,
		branch_id BIGINT NOT NULL REFERENCES optics_branches(id) ON DELETE CASCADE,
		ref TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		qty BIGINT NOT NULL DEFAULT 0 CHECK (qty >= 0)
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS optics_stock_ref_key ON optics_stock (branch_id, LOWER(ref))`,
}

// Migrate applies the schema. Every statement is safe to re-run.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range migrations {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("platform/db: migrate: %w", err)
		}
	}
	return nil
}
