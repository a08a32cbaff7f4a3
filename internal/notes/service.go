package notes

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gaveta-wms/gaveta/internal/shared"
)

// RepositoryPort abstracts persistence for the service.
type RepositoryPort interface {
	Create(ctx context.Context, note Note) (Note, error)
	Get(ctx context.Context, id int64) (Note, error)
	List(ctx context.Context) ([]Note, error)
	Lines(ctx context.Context, noteID int64) ([]Line, error)
	UpsertLine(ctx context.Context, line Line) (Line, error)
}

// AuditPort records note mutations.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service manages delivery notes.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
}

// NewService constructs Service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

// CreateInput describes a new delivery note.
type CreateInput struct {
	Number         string
	Date           time.Time
	Supplier       string
	OriginFacility string
	TransportCost  float64
}

// Create registers a delivery note.
func (s *Service) Create(ctx context.Context, input CreateInput) (Note, error) {
	number := strings.TrimSpace(input.Number)
	if number == "" {
		return Note{}, fmt.Errorf("%w: number required", ErrValidation)
	}
	if input.TransportCost < 0 {
		return Note{}, fmt.Errorf("%w: transport cost must be >= 0", ErrValidation)
	}
	date := input.Date
	if date.IsZero() {
		date = time.Now().UTC()
	}
	note := Note{
		Number:         number,
		Date:           date,
		Supplier:       strings.TrimSpace(input.Supplier),
		OriginFacility: strings.TrimSpace(input.OriginFacility),
		TransportCost:  input.TransportCost,
	}
	created, err := s.repo.Create(ctx, note)
	if err != nil {
		return Note{}, err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			Action:   "NOTE_CREATE",
			Entity:   "delivery_note",
			EntityID: created.Number,
			Meta:     map[string]any{"supplier": created.Supplier},
		})
	}
	return created, nil
}

// Get loads a note header.
func (s *Service) Get(ctx context.Context, id int64) (Note, error) {
	return s.repo.Get(ctx, id)
}

// List returns notes newest first.
func (s *Service) List(ctx context.Context) ([]Note, error) {
	return s.repo.List(ctx)
}

// Lines returns a note's lines.
func (s *Service) Lines(ctx context.Context, noteID int64) ([]Line, error) {
	if _, err := s.repo.Get(ctx, noteID); err != nil {
		return nil, err
	}
	return s.repo.Lines(ctx, noteID)
}

// LineInput describes a unit (or several) landing on a note.
type LineInput struct {
	ItemCode       string
	Name           string
	Category       string
	WholesalePrice float64
	RetailPrice    float64
	Qty            int64
}

// AppendLine merges the input into the note by item code.
func (s *Service) AppendLine(ctx context.Context, noteID int64, input LineInput) (Line, error) {
	code := strings.TrimSpace(input.ItemCode)
	if code == "" {
		return Line{}, fmt.Errorf("%w: item code required", ErrValidation)
	}
	if input.Qty <= 0 {
		return Line{}, fmt.Errorf("%w: quantity must be > 0", ErrValidation)
	}
	if _, err := s.repo.Get(ctx, noteID); err != nil {
		return Line{}, err
	}
	return s.repo.UpsertLine(ctx, Line{
		NoteID:         noteID,
		ItemCode:       code,
		Name:           input.Name,
		Category:       input.Category,
		WholesalePrice: input.WholesalePrice,
		RetailPrice:    input.RetailPrice,
		Qty:            input.Qty,
	})
}

// Totals summarises a note's lines.
func (s *Service) Totals(ctx context.Context, noteID int64) (Totals, error) {
	note, err := s.repo.Get(ctx, noteID)
	if err != nil {
		return Totals{}, err
	}
	lines, err := s.repo.Lines(ctx, noteID)
	if err != nil {
		return Totals{}, err
	}
	totals := Totals{Lines: len(lines), TransportCost: note.TransportCost}
	for _, line := range lines {
		totals.Units += line.Qty
		totals.WholesaleValue += float64(line.Qty) * line.WholesalePrice
	}
	return totals, nil
}
