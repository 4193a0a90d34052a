// Package spreadsheet reads the list of addresses to geocode from an XLSX workbook.
package spreadsheet

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// ColumnError is returned when the requested column is absent from the header row.
type ColumnError struct {
	Column    string   // Column is the name that was looked up.
	Available []string // Available lists the header names found in the sheet.
}

func (e *ColumnError) Error() string {
	return fmt.Sprintf("column %q not found, columns: %v", e.Column, e.Available)
}

// Loader reads one column of one sheet.
type Loader struct {
	path       string
	sheetIndex int
	column     string
}

// NewLoader creates a Loader for the workbook at path.
func NewLoader(path string, sheetIndex int, column string) *Loader {
	return &Loader{path: path, sheetIndex: sheetIndex, column: column}
}

// LoadAddresses returns the non-empty cells of the configured column, in sheet order.
func (l *Loader) LoadAddresses() ([]string, error) {
	return LoadAddresses(l.path, l.sheetIndex, l.column)
}

// LoadAddresses opens the workbook at path and returns the trimmed, non-empty values
// of the named column from the sheet at sheetIndex. The first row is the header.
func LoadAddresses(path string, sheetIndex int, column string) ([]string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "xlsx: open %s", path)
	}

	if sheetIndex < 0 || sheetIndex >= len(f.Sheets) {
		return nil, eris.Errorf("xlsx: sheet index %d out of range (file has %d sheets)", sheetIndex, len(f.Sheets))
	}
	sheet := f.Sheets[sheetIndex]

	if len(sheet.Rows) == 0 {
		return nil, &ColumnError{Column: column}
	}

	header := rowToStrings(sheet.Rows[0])
	idx := -1
	for i, name := range header {
		if name == column {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, &ColumnError{Column: column, Available: header}
	}

	var addresses []string
	for _, row := range sheet.Rows[1:] {
		if row == nil || idx >= len(row.Cells) {
			continue
		}
		value := strings.TrimSpace(row.Cells[idx].String())
		if value == "" {
			continue
		}
		addresses = append(addresses, value)
	}

	return addresses, nil
}

func rowToStrings(row *xlsx.Row) []string {
	if row == nil {
		return nil
	}
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = strings.TrimSpace(cell.String())
	}
	return cells
}
