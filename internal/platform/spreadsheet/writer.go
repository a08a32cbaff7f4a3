package spreadsheet

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// WriteCSV writes a header row followed by data rows in CRLF CSV.
func WriteCSV(w io.Writer, header []string, rows [][]string) error {
	writer := csv.NewWriter(w)
	writer.UseCRLF = true
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("spreadsheet: write header: %w", err)
	}
	for _, row := range rows {
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("spreadsheet: write row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("spreadsheet: flush: %w", err)
	}
	return nil
}

// WriteXLSX writes a single-sheet workbook with a header row and data rows.
func WriteXLSX(w io.Writer, sheet string, header []string, rows [][]string) error {
	file := excelize.NewFile()
	defer file.Close()

	if sheet == "" {
		sheet = "Sheet1"
	}
	index, err := file.NewSheet(sheet)
	if err != nil {
		return fmt.Errorf("spreadsheet: new sheet: %w", err)
	}
	file.SetActiveSheet(index)

	writeRow := func(rowIdx int, values []string) error {
		cell, err := excelize.CoordinatesToCellName(1, rowIdx)
		if err != nil {
			return err
		}
		converted := make([]any, len(values))
		for i, v := range values {
			converted[i] = v
		}
		return file.SetSheetRow(sheet, cell, &converted)
	}

	if err := writeRow(1, header); err != nil {
		return fmt.Errorf("spreadsheet: write header: %w", err)
	}
	for i, row := range rows {
		if err := writeRow(i+2, row); err != nil {
			return fmt.Errorf("spreadsheet: write row %d: %w", i+1, err)
		}
	}

	if err := file.Write(w); err != nil {
		return fmt.Errorf("spreadsheet: write workbook: %w", err)
	}
	return nil
}
