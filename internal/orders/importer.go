package orders

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/google/uuid"

	"github.com/gaveta-wms/gaveta/internal/platform/spreadsheet"
	"github.com/gaveta-wms/gaveta/internal/shared"
)

// ImportSummary reports a bulk order import. Row failures are counted, never
// fatal to the batch.
type ImportSummary struct {
	Batch    string `json:"batch"`
	Rows     int    `json:"rows"`
	Imported int    `json:"imported"`
	Skipped  int    `json:"skipped"`
	Orders   int    `json:"orders"`
}

type importRow struct {
	code        string
	description string
	qty         int64
}

type importGroupKey struct {
	order  string
	client string
}

// Import loads orders from a tabular file. Required columns: order, client,
// code, quantity; optional: description. Rows are grouped by (order, client);
// a group matching an existing order merges additively into it, otherwise a
// new order is created.
func (s *Service) Import(ctx context.Context, r io.Reader, filename string) (ImportSummary, error) {
	table, err := spreadsheet.Read(r, filename)
	if err != nil {
		return ImportSummary{}, fmt.Errorf("%w: %s", ErrValidation, err.Error())
	}
	if err := table.RequireColumns("order", "client", "code", "quantity"); err != nil {
		return ImportSummary{}, fmt.Errorf("%w: %s", ErrValidation, err.Error())
	}

	summary := ImportSummary{Batch: uuid.NewString(), Rows: table.Len()}

	groups := make(map[importGroupKey][]importRow)
	var groupOrder []importGroupKey
	labels := make(map[importGroupKey][2]string)
	for i := 0; i < table.Len(); i++ {
		orderName := table.Cell(i, "order")
		client := table.Cell(i, "client")
		code := table.Cell(i, "code")
		qtyStr := table.Cell(i, "quantity")
		if orderName == "" || client == "" || code == "" || qtyStr == "" {
			summary.Skipped++
			continue
		}
		qty, err := strconv.ParseInt(qtyStr, 10, 64)
		if err != nil || qty <= 0 {
			summary.Skipped++
			continue
		}
		key := importGroupKey{order: shared.Fold(orderName), client: shared.Fold(client)}
		if _, seen := groups[key]; !seen {
			groupOrder = append(groupOrder, key)
			labels[key] = [2]string{orderName, client}
		}
		groups[key] = append(groups[key], importRow{code: code, description: table.Cell(i, "description"), qty: qty})
		summary.Imported++
	}

	for _, key := range groupOrder {
		label := labels[key]
		order, lines, err := s.repo.FindByNameClient(ctx, label[0], label[1])
		switch {
		case errors.Is(err, ErrNotFound):
			input := CreateInput{DisplayName: label[0], ClientName: label[1]}
			for _, row := range groups[key] {
				input.Lines = append(input.Lines, LineInput{ItemCode: row.code, Description: row.description, Qty: row.qty})
			}
			if _, _, err := s.Create(ctx, input); err != nil {
				return summary, err
			}
			summary.Orders++
		case err != nil:
			return summary, err
		default:
			if err := s.mergeIntoOrder(ctx, order, lines, groups[key]); err != nil {
				return summary, err
			}
			summary.Orders++
		}
	}
	return summary, nil
}

func (s *Service) mergeIntoOrder(ctx context.Context, order Order, lines []Line, rows []importRow) error {
	byCode := make(map[string]*Line, len(lines))
	for i := range lines {
		byCode[shared.Fold(lines[i].ItemCode)] = &lines[i]
	}
	for _, row := range rows {
		if existing, ok := byCode[shared.Fold(row.code)]; ok {
			if err := existing.Grow(row.qty); err != nil {
				return err
			}
			if err := s.repo.UpdateLine(ctx, *existing); err != nil {
				return err
			}
			continue
		}
		line, err := NewLine(order.ID, row.code, row.description, row.qty)
		if err != nil {
			return err
		}
		created, err := s.repo.AddLine(ctx, line)
		if err != nil {
			return err
		}
		byCode[shared.Fold(created.ItemCode)] = &created
	}
	return nil
}
