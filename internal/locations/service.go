package locations

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gaveta-wms/gaveta/internal/shared"
)

// RepositoryPort abstracts persistence for the service.
type RepositoryPort interface {
	Create(ctx context.Context, loc Location) (Location, error)
	GetByName(ctx context.Context, name string) (Location, error)
	List(ctx context.Context) ([]Location, error)
	Rename(ctx context.Context, oldName, newName string) error
	Delete(ctx context.Context, name string) error
	SetLifecycle(ctx context.Context, name string, state Lifecycle) error
	NextSequence(ctx context.Context, counter string) (int64, error)
}

// AuditPort records location mutations.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service manages storage locations.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
}

// NewService constructs Service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

// CreateInput describes a new location.
type CreateInput struct {
	Name     string
	Kind     string
	Capacity int64
}

// Create registers a location. Name is required; duplicates (case-insensitive)
// are rejected.
func (s *Service) Create(ctx context.Context, input CreateInput) (Location, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return Location{}, fmt.Errorf("%w: name required", ErrValidation)
	}
	if input.Capacity < 0 {
		return Location{}, fmt.Errorf("%w: capacity must be >= 0", ErrValidation)
	}
	loc := Location{Name: name, Kind: strings.TrimSpace(input.Kind), Capacity: input.Capacity, Lifecycle: LifecycleOpen}
	created, err := s.repo.Create(ctx, loc)
	if err != nil {
		return Location{}, err
	}
	s.recordAudit(ctx, "LOCATION_CREATE", created.Name, map[string]any{"kind": created.Kind})
	return created, nil
}

// Get finds a location by name, case-insensitively.
func (s *Service) Get(ctx context.Context, name string) (Location, error) {
	return s.repo.GetByName(ctx, name)
}

// List returns every location ordered by creation time.
func (s *Service) List(ctx context.Context) ([]Location, error) {
	return s.repo.List(ctx)
}

// Rename changes a location name and cascades through every referencing row.
func (s *Service) Rename(ctx context.Context, oldName, newName string) error {
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return fmt.Errorf("%w: new name required", ErrValidation)
	}
	if oldName == newName {
		return nil
	}
	if err := s.repo.Rename(ctx, oldName, newName); err != nil {
		return err
	}
	s.recordAudit(ctx, "LOCATION_RENAME", newName, map[string]any{"from": oldName})
	return nil
}

// Delete removes a location and cascades cleanup of dependent rows.
func (s *Service) Delete(ctx context.Context, name string) error {
	if err := s.repo.Delete(ctx, name); err != nil {
		return err
	}
	s.recordAudit(ctx, "LOCATION_DELETE", name, nil)
	return nil
}

// SetLifecycle persists a lifecycle state change with no cascades. Lifecycle
// orchestration (archiving assignments, successor bins) lives in the bin
// assignment engine.
func (s *Service) SetLifecycle(ctx context.Context, name string, state Lifecycle) error {
	if state != LifecycleOpen && state != LifecycleInvoiced {
		return fmt.Errorf("%w: unknown lifecycle %q", ErrValidation, state)
	}
	return s.repo.SetLifecycle(ctx, name, state)
}

// EnsureBin returns the location of the given name, creating it as an open
// bin when missing. An INVOICED location is returned as-is; callers decide
// whether a successor is needed.
func (s *Service) EnsureBin(ctx context.Context, name string) (Location, bool, error) {
	loc, err := s.repo.GetByName(ctx, name)
	if err == nil {
		return loc, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Location{}, false, err
	}
	created, err := s.repo.Create(ctx, Location{Name: name, Kind: KindBin, Lifecycle: LifecycleOpen})
	if err != nil {
		return Location{}, false, err
	}
	s.recordAudit(ctx, "LOCATION_CREATE", created.Name, map[string]any{"kind": KindBin})
	return created, true, nil
}

// NextBinName allocates an auto-numbered bin name from the sequence counter.
func (s *Service) NextBinName(ctx context.Context) (string, error) {
	n, err := s.repo.NextSequence(ctx, "bin_names")
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Bin #%d", n), nil
}

// SuccessorName derives a free name for the replacement of an invoiced bin:
// the base name suffixed with the lowest " (n)" index that does not collide
// with an existing location.
func (s *Service) SuccessorName(ctx context.Context, base string) (string, error) {
	existing, err := s.repo.List(ctx)
	if err != nil {
		return "", err
	}
	taken := make(map[string]struct{}, len(existing))
	for _, loc := range existing {
		taken[shared.Fold(loc.Name)] = struct{}{}
	}
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s (%d)", base, n)
		if _, ok := taken[shared.Fold(candidate)]; !ok {
			return candidate, nil
		}
	}
}

// RecentLocationNames returns the most recently created location names,
// newest first.
func (s *Service) RecentLocationNames(ctx context.Context, limit int) ([]string, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, limit)
	for i := len(all) - 1; i >= 0 && len(names) < limit; i-- {
		names = append(names, all[i].Name)
	}
	return names, nil
}

// CountLocations returns the number of registered locations.
func (s *Service) CountLocations(ctx context.Context) (int, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return 0, err
	}
	return len(all), nil
}

func (s *Service) recordAudit(ctx context.Context, action, name string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		Action:   action,
		Entity:   "storage_location",
		EntityID: name,
		Meta:     meta,
	})
}
