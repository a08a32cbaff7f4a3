package bins

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/gaveta-wms/gaveta/internal/inventory"
	"github.com/gaveta-wms/gaveta/internal/locations"
	"github.com/gaveta-wms/gaveta/internal/shared"
)

// RepositoryPort abstracts assignment persistence.
type RepositoryPort interface {
	Create(ctx context.Context, a Assignment) (Assignment, error)
	UpdateUnits(ctx context.Context, id int64, units int64) error
	UpdateLocation(ctx context.Context, id int64, location string) error
	Archive(ctx context.Context, id int64, units int64) error
	ListActive(ctx context.Context) ([]Assignment, error)
	ListArchived(ctx context.Context, limit int) ([]Assignment, error)
}

// LocationsPort exposes the storage-location operations the engine drives.
// Satisfied by locations.Service.
type LocationsPort interface {
	Get(ctx context.Context, name string) (locations.Location, error)
	Create(ctx context.Context, input locations.CreateInput) (locations.Location, error)
	EnsureBin(ctx context.Context, name string) (locations.Location, bool, error)
	NextBinName(ctx context.Context) (string, error)
	SuccessorName(ctx context.Context, base string) (string, error)
	SetLifecycle(ctx context.Context, name string, state locations.Lifecycle) error
}

// LedgerPort exposes the inventory operations the engine drives. Satisfied by
// inventory.Service.
type LedgerPort interface {
	ApplyDelta(ctx context.Context, code, location string, delta int64, meta inventory.ItemMeta) (inventory.Record, bool, error)
	QtyAt(ctx context.Context, code, location string) (int64, error)
}

// AuditPort records bin lifecycle events.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Engine maps order lines to storage bins and keeps a running unit count per
// assignment. The working map and archive list are in-memory, mirroring the
// persisted rows; the engine assumes single-threaded request handling and
// holds no locks.
type Engine struct {
	repo      RepositoryPort
	locations LocationsPort
	ledger    LedgerPort
	audit     AuditPort

	active  map[Key]*Assignment
	archive []Assignment
}

// NewEngine constructs the engine with an empty working map; call Load to
// rebuild it from persistence.
func NewEngine(repo RepositoryPort, locs LocationsPort, ledger LedgerPort, audit AuditPort) *Engine {
	return &Engine{
		repo:      repo,
		locations: locs,
		ledger:    ledger,
		audit:     audit,
		active:    make(map[Key]*Assignment),
	}
}

// Load rebuilds the working map from the persisted active rows.
func (e *Engine) Load(ctx context.Context) error {
	rows, err := e.repo.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("bins: load active: %w", err)
	}
	e.active = make(map[Key]*Assignment, len(rows))
	for i := range rows {
		a := rows[i]
		e.active[a.Key()] = &a
	}
	return nil
}

// Get returns the active assignment for key, or nil.
func (e *Engine) Get(key Key) *Assignment {
	return e.active[key]
}

// Active lists the active assignments.
func (e *Engine) Active() []Assignment {
	out := make([]Assignment, 0, len(e.active))
	for _, a := range e.active {
		out = append(out, *a)
	}
	return out
}

// Archived lists archived assignments, newest first.
func (e *Engine) Archived(ctx context.Context, limit int) ([]Assignment, error) {
	return e.repo.ListArchived(ctx, limit)
}

// ResolveBin finds or creates the assignment for (order, line):
//  1. an assignment bound to an invoiced bin is archived first, then treated
//     as absent;
//  2. an existing assignment is returned unchanged;
//  3. otherwise the target bin is, in order: the bin of another assignment on
//     the same order, a pre-existing bin named after the order, or a freshly
//     created one (order display name, else an auto-numbered "Bin #n").
//
// The returned bool reports whether a bin was freshly created.
func (e *Engine) ResolveBin(ctx context.Context, order OrderRef, line LineRef) (Key, *Assignment, bool, error) {
	if strings.TrimSpace(line.ItemCode) == "" {
		return Key{}, nil, false, fmt.Errorf("%w: item code required", ErrValidation)
	}
	key := NewKey(order.ID, line.ItemCode)

	if existing, ok := e.active[key]; ok {
		loc, err := e.locations.Get(ctx, existing.LocationName)
		if err != nil && !errors.Is(err, locations.ErrNotFound) {
			return Key{}, nil, false, err
		}
		if err == nil && loc.Lifecycle == locations.LifecycleInvoiced {
			if _, err := e.ArchiveAssignments(ctx, existing.LocationName); err != nil {
				return Key{}, nil, false, err
			}
		}
	}

	if existing, ok := e.active[key]; ok {
		return key, existing, false, nil
	}

	binName, created, err := e.targetBin(ctx, order)
	if err != nil {
		return Key{}, nil, false, err
	}

	assignment := Assignment{
		OrderID:      order.ID,
		ItemCode:     key.Code,
		ClientName:   order.ClientName,
		Description:  line.Description,
		Units:        0,
		LocationName: binName,
	}
	persisted, err := e.repo.Create(ctx, assignment)
	if err != nil {
		return Key{}, nil, false, err
	}
	e.active[key] = &persisted
	e.recordAudit(ctx, "BIN_ASSIGN", key, map[string]any{"bin": binName, "created": created})
	return key, &persisted, created, nil
}

func (e *Engine) targetBin(ctx context.Context, order OrderRef) (string, bool, error) {
	// Keep all lines of one order physically together.
	for _, a := range e.active {
		if a.OrderID == order.ID {
			return a.LocationName, false, nil
		}
	}

	name := strings.TrimSpace(order.DisplayName)
	if name == "" {
		generated, err := e.locations.NextBinName(ctx)
		if err != nil {
			return "", false, err
		}
		name = generated
	}

	loc, created, err := e.locations.EnsureBin(ctx, name)
	if err != nil {
		return "", false, err
	}
	if loc.Lifecycle == locations.LifecycleInvoiced {
		successor, created, err := e.openSuccessor(ctx, loc.Name)
		if err != nil {
			return "", false, err
		}
		return successor.Name, created, nil
	}
	return loc.Name, created, nil
}

// openSuccessor resolves the successor bin for an invoiced base: it walks
// "base (n)" from n=2 and returns the first OPEN one, creating the bin only
// when the walk runs past every existing name. Invoicing already creates the
// first successor eagerly, so the common case is reuse, not creation.
func (e *Engine) openSuccessor(ctx context.Context, base string) (locations.Location, bool, error) {
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s (%d)", base, n)
		loc, err := e.locations.Get(ctx, candidate)
		if errors.Is(err, locations.ErrNotFound) {
			created, _, err := e.locations.EnsureBin(ctx, candidate)
			if err != nil {
				return locations.Location{}, false, err
			}
			return created, true, nil
		}
		if err != nil {
			return locations.Location{}, false, err
		}
		if loc.Lifecycle == locations.LifecycleOpen {
			return loc, false, nil
		}
	}
}

// AdjustUnits clamps the assignment's unit count at zero and mirrors the
// delta into the ledger — except that a positive delta against an invoiced
// bin does not reach the ledger: a closed bin must not silently absorb new
// stock, while the assignment count still updates for historical accuracy.
func (e *Engine) AdjustUnits(ctx context.Context, key Key, delta int64) (*Assignment, error) {
	assignment, ok := e.active[key]
	if !ok {
		return nil, nil
	}

	newUnits := assignment.Units + delta
	if newUnits < 0 {
		newUnits = 0
	}

	suppress := false
	if delta > 0 {
		loc, err := e.locations.Get(ctx, assignment.LocationName)
		if err != nil && !errors.Is(err, locations.ErrNotFound) {
			return nil, err
		}
		if err == nil && loc.Lifecycle == locations.LifecycleInvoiced {
			suppress = true
		}
	}
	if !suppress {
		meta := inventory.ItemMeta{Name: assignment.Description}
		if _, _, err := e.ledger.ApplyDelta(ctx, assignment.ItemCode, assignment.LocationName, delta, meta); err != nil {
			return nil, err
		}
	}

	if err := e.repo.UpdateUnits(ctx, assignment.ID, newUnits); err != nil {
		return nil, err
	}
	assignment.Units = newUnits
	return assignment, nil
}

// EditUnits sets the unit count directly (capacity-free manual edit),
// expressed as a delta so the ledger stays in step.
func (e *Engine) EditUnits(ctx context.Context, key Key, units int64) (*Assignment, error) {
	if units < 0 {
		return nil, fmt.Errorf("%w: units must be >= 0", ErrValidation)
	}
	assignment, ok := e.active[key]
	if !ok {
		return nil, nil
	}
	return e.AdjustUnits(ctx, key, units-assignment.Units)
}

// TransitionLifecycle moves a location between OPEN and INVOICED. Invoicing
// archives every assignment bound to the bin, drains their ledger units, and
// eagerly creates a successor bin so the next scan has somewhere to land.
func (e *Engine) TransitionLifecycle(ctx context.Context, locationName string, newState locations.Lifecycle) error {
	loc, err := e.locations.Get(ctx, locationName)
	if err != nil {
		return err
	}
	if loc.Lifecycle == newState {
		return nil
	}

	if newState == locations.LifecycleOpen {
		return e.locations.SetLifecycle(ctx, loc.Name, newState)
	}
	if newState != locations.LifecycleInvoiced {
		return fmt.Errorf("%w: unknown lifecycle %q", ErrValidation, newState)
	}

	if _, err := e.ArchiveAssignments(ctx, loc.Name); err != nil {
		return err
	}
	if err := e.locations.SetLifecycle(ctx, loc.Name, locations.LifecycleInvoiced); err != nil {
		return err
	}

	successor, err := e.locations.SuccessorName(ctx, loc.Name)
	if err != nil {
		return err
	}
	if _, err := e.locations.Create(ctx, locations.CreateInput{Name: successor, Kind: loc.Kind, Capacity: loc.Capacity}); err != nil {
		return err
	}
	if e.audit != nil {
		_ = e.audit.Record(ctx, shared.AuditLog{
			Action:   "BIN_INVOICE",
			Entity:   "storage_location",
			EntityID: loc.Name,
			Meta:     map[string]any{"successor": successor},
		})
	}
	return nil
}

// ArchiveAssignments drains and archives every active assignment bound to the
// location, returning the removed keys.
func (e *Engine) ArchiveAssignments(ctx context.Context, locationName string) ([]Key, error) {
	var removed []Key
	for key, assignment := range e.active {
		if !shared.SameKey(assignment.LocationName, locationName) {
			continue
		}
		if assignment.Units > 0 {
			meta := inventory.ItemMeta{Name: assignment.Description}
			if _, _, err := e.ledger.ApplyDelta(ctx, assignment.ItemCode, assignment.LocationName, -assignment.Units, meta); err != nil {
				return removed, err
			}
			assignment.Units = 0
		}
		if err := e.repo.Archive(ctx, assignment.ID, assignment.Units); err != nil {
			return removed, err
		}
		e.archive = append(e.archive, *assignment)
		delete(e.active, key)
		removed = append(removed, key)
	}
	return removed, nil
}

// MoveAssignment rebinds an assignment to another location, transferring its
// units through a ledger drain-then-fill pair. The destination is created
// when missing; an invoiced destination gets a successor instead.
func (e *Engine) MoveAssignment(ctx context.Context, key Key, newLocationName string) (*Assignment, error) {
	assignment, ok := e.active[key]
	if !ok {
		return nil, nil
	}
	newLocationName = strings.TrimSpace(newLocationName)
	if newLocationName == "" {
		return nil, fmt.Errorf("%w: destination required", ErrValidation)
	}

	dest, _, err := e.locations.EnsureBin(ctx, newLocationName)
	if err != nil {
		return nil, err
	}
	if dest.Lifecycle == locations.LifecycleInvoiced {
		if dest, _, err = e.openSuccessor(ctx, dest.Name); err != nil {
			return nil, err
		}
	}
	if shared.SameKey(assignment.LocationName, dest.Name) {
		return assignment, nil
	}

	if assignment.Units > 0 {
		meta := inventory.ItemMeta{Name: assignment.Description}
		if _, _, err := e.ledger.ApplyDelta(ctx, assignment.ItemCode, assignment.LocationName, -assignment.Units, meta); err != nil {
			return nil, err
		}
		if _, _, err := e.ledger.ApplyDelta(ctx, assignment.ItemCode, dest.Name, assignment.Units, meta); err != nil {
			return nil, err
		}
	}

	oldName := assignment.LocationName
	if err := e.repo.UpdateLocation(ctx, assignment.ID, dest.Name); err != nil {
		return nil, err
	}
	assignment.LocationName = dest.Name
	e.recordAudit(ctx, "BIN_MOVE", key, map[string]any{"from": oldName, "to": dest.Name})
	return assignment, nil
}

// HandleLocationRenamed keeps the working map in step after a location rename
// cascade; the persisted rows were already updated by the cascade.
func (e *Engine) HandleLocationRenamed(oldName, newName string) {
	for _, assignment := range e.active {
		if shared.SameKey(assignment.LocationName, oldName) {
			assignment.LocationName = newName
		}
	}
}

// HandleLocationDeleted drops working-map entries for a deleted location.
func (e *Engine) HandleLocationDeleted(name string) {
	for key, assignment := range e.active {
		if shared.SameKey(assignment.LocationName, name) {
			delete(e.active, key)
		}
	}
}

// Report builds the bin report: one row per active assignment with the
// ledger quantity at its bin alongside the assigned units.
func (e *Engine) Report(ctx context.Context) ([]ReportRow, error) {
	rows := make([]ReportRow, 0, len(e.active))
	for _, assignment := range e.active {
		inventoryUnits, err := e.ledger.QtyAt(ctx, assignment.ItemCode, assignment.LocationName)
		if err != nil {
			return nil, err
		}
		rows = append(rows, ReportRow{
			Code:           assignment.ItemCode,
			Description:    assignment.Description,
			InventoryUnits: inventoryUnits,
			AssignedUnits:  assignment.Units,
			Total:          inventoryUnits + assignment.Units,
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Code < rows[j].Code })
	return rows, nil
}

func (e *Engine) recordAudit(ctx context.Context, action string, key Key, meta map[string]any) {
	if e.audit == nil {
		return
	}
	_ = e.audit.Record(ctx, shared.AuditLog{
		Action:   action,
		Entity:   "bin_assignment",
		EntityID: fmt.Sprintf("%d:%s", key.OrderID, key.Code),
		Meta:     meta,
	})
}
