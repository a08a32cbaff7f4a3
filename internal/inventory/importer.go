package inventory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/google/uuid"

	"github.com/gaveta-wms/gaveta/internal/platform/spreadsheet"
)

// DefaultImportLocation receives imported stock when a row names no location.
const DefaultImportLocation = "General"

// ImportSummary reports a catalog import run. Row failures are counted, not
// fatal to the batch.
type ImportSummary struct {
	Batch    string `json:"batch"`
	Rows     int    `json:"rows"`
	Imported int    `json:"imported"`
	Skipped  int    `json:"skipped"`
}

// ImportCatalog loads an item catalog from a tabular file. Required columns:
// code, name, quantity. Optional: category, wholesale_price, retail_price,
// location. Existing items are updated, quantities are added to stock through
// the ledger.
func (s *Service) ImportCatalog(ctx context.Context, r io.Reader, filename string) (ImportSummary, error) {
	table, err := spreadsheet.Read(r, filename)
	if err != nil {
		return ImportSummary{}, fmt.Errorf("%w: %s", ErrValidation, err.Error())
	}
	if err := table.RequireColumns("code", "name", "quantity"); err != nil {
		return ImportSummary{}, fmt.Errorf("%w: %s", ErrValidation, err.Error())
	}

	summary := ImportSummary{Batch: uuid.NewString(), Rows: table.Len()}
	for i := 0; i < table.Len(); i++ {
		code := table.Cell(i, "code")
		name := table.Cell(i, "name")
		qtyStr := table.Cell(i, "quantity")
		if code == "" || name == "" || qtyStr == "" {
			summary.Skipped++
			continue
		}
		qty, err := strconv.ParseInt(qtyStr, 10, 64)
		if err != nil || qty < 0 {
			summary.Skipped++
			continue
		}

		item := Item{
			Code:           code,
			Name:           name,
			Category:       table.Cell(i, "category"),
			WholesalePrice: parsePrice(table.Cell(i, "wholesale_price")),
			RetailPrice:    parsePrice(table.Cell(i, "retail_price")),
		}
		if err := s.upsertItem(ctx, item); err != nil {
			summary.Skipped++
			continue
		}

		if qty > 0 {
			location := table.Cell(i, "location")
			if location == "" {
				location = DefaultImportLocation
			}
			meta := ItemMeta{Name: item.Name, Category: item.Category, WholesalePrice: item.WholesalePrice, RetailPrice: item.RetailPrice}
			if _, _, err := s.ApplyDelta(ctx, code, location, qty, meta); err != nil {
				summary.Skipped++
				continue
			}
		}
		summary.Imported++
	}
	return summary, nil
}

func (s *Service) upsertItem(ctx context.Context, item Item) error {
	_, err := s.repo.GetItem(ctx, item.Code)
	if errors.Is(err, ErrItemNotFound) {
		_, err = s.repo.CreateItem(ctx, item)
		return err
	}
	if err != nil {
		return err
	}
	return s.repo.UpdateItem(ctx, item)
}

func parsePrice(value string) float64 {
	if value == "" {
		return 0
	}
	price, err := strconv.ParseFloat(value, 64)
	if err != nil || price < 0 {
		return 0
	}
	return price
}
