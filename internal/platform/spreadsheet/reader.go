// Package spreadsheet reads and writes tabular files (xlsx and csv) with a
// header-row contract: the first row names the columns, and a missing
// required column rejects the whole file.
package spreadsheet

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ErrMissingColumn indicates a required header column was not found.
var ErrMissingColumn = errors.New("spreadsheet: required column missing")

// ErrEmptyFile indicates the file holds no rows at all.
var ErrEmptyFile = errors.New("spreadsheet: file is empty")

// Table is a parsed tabular file: a header row plus data rows.
type Table struct {
	header  []string
	columns map[string]int
	rows    [][]string
}

// Read parses the named file from r. The extension decides the format;
// anything other than .xlsx or .xls is treated as CSV.
func Read(r io.Reader, filename string) (*Table, error) {
	lower := strings.ToLower(filename)
	if strings.HasSuffix(lower, ".xlsx") || strings.HasSuffix(lower, ".xls") {
		return readExcel(r)
	}
	return readCSV(r)
}

func readExcel(r io.Reader) (*Table, error) {
	file, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("spreadsheet: open workbook: %w", err)
	}
	defer file.Close()

	sheets := file.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyFile
	}
	rows, err := file.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("spreadsheet: read sheet: %w", err)
	}
	return newTable(rows)
}

func readCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("spreadsheet: read csv: %w", err)
	}
	return newTable(rows)
}

func newTable(rows [][]string) (*Table, error) {
	if len(rows) == 0 {
		return nil, ErrEmptyFile
	}
	header := rows[0]
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[normalizeHeader(name)] = i
	}
	return &Table{header: header, columns: columns, rows: rows[1:]}, nil
}

func normalizeHeader(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// RequireColumns verifies every named column exists in the header.
func (t *Table) RequireColumns(names ...string) error {
	for _, name := range names {
		if _, ok := t.columns[normalizeHeader(name)]; !ok {
			return fmt.Errorf("%w: %q", ErrMissingColumn, name)
		}
	}
	return nil
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// Cell returns the trimmed value of the named column in data row i, or the
// empty string when the row is too short.
func (t *Table) Cell(i int, column string) string {
	idx, ok := t.columns[normalizeHeader(column)]
	if !ok || i < 0 || i >= len(t.rows) {
		return ""
	}
	row := t.rows[i]
	if idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
