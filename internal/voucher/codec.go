package voucher

import (
	"io"      // Streaming the workbook
	"strings" // Header normalization
	"time"    // Export timestamps

	"github.com/xuri/excelize/v2" // XLSX reader/writer

	"voucher_vault/internal/domain" // Voucher model
)

// SheetName is the workbook tab holding the voucher table
const SheetName = "Vouchers"

// ExportColumns is the fixed header order of the interchange sheet. Import
// accepts the same headers and tolerates missing optional columns.
var ExportColumns = []string{
	"Name", "Value", "Spent", "Remaining", "Category",
	"Code", "PIN", "Expires On", "Status", "Created At",
}

// WriteWorkbook serializes vouchers as an XLSX workbook with a single sheet
// in the fixed column order. Remaining is value - spent and Status is the
// derived display status at export time; neither is trusted on re-import.
func WriteWorkbook(w io.Writer, vouchers []domain.Voucher, now time.Time) error {
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return err
	}
	header := make([]any, len(ExportColumns))
	for i, col := range ExportColumns {
		header[i] = col
	}
	if err := setRow(f, 1, header); err != nil {
		return err
	}
	for i, v := range vouchers {
		row := []any{
			v.Name,
			v.Value,
			v.Spent,
			v.Remaining(),
			v.Category,
			stringOrEmpty(v.Code),
			stringOrEmpty(v.Pin),
			dateOrEmpty(v.ExpiresOn),
			EffectiveStatus(v, now),
			time.UnixMilli(v.CreatedAt).Format(time.RFC3339),
		}
		if err := setRow(f, i+2, row); err != nil {
			return err
		}
	}
	return f.Write(w)
}

// ReadWorkbook parses an interchange workbook back into import rows. The
// Vouchers sheet is preferred, falling back to the first sheet; columns are
// matched by header name so extra or reordered columns are harmless. Status,
// Remaining and Created At are ignored on the way in, both are recomputed.
func ReadWorkbook(r io.Reader) ([]ImportRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, validationf("unreadable workbook: %v", err)
	}
	defer f.Close()
	sheet := SheetName
	if idx, err := f.GetSheetIndex(SheetName); err != nil || idx < 0 {
		sheet = f.GetSheetName(0) // Fall back to the first sheet
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, validationf("unreadable sheet %q: %v", sheet, err)
	}
	if len(rows) < 2 {
		return nil, validationf("no valid rows")
	}
	// Map header names to column positions
	col := make(map[string]int, len(rows[0]))
	for i, h := range rows[0] {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	cell := func(row []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return "" // Missing optional column, absent value
		}
		return row[i]
	}
	out := make([]ImportRow, 0, len(rows)-1)
	for _, row := range rows[1:] {
		out = append(out, ImportRow{
			Name:      cell(row, "name"),
			Value:     cell(row, "value"),
			Spent:     cell(row, "spent"),
			Category:  cell(row, "category"),
			Code:      cell(row, "code"),
			Pin:       cell(row, "pin"),
			ExpiresOn: cell(row, "expires on"),
		})
	}
	return out, nil
}

// setRow writes values left to right starting at column A of row n
func setRow(f *excelize.File, n int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, n)
	if err != nil {
		return err
	}
	return f.SetSheetRow(SheetName, cell, &values)
}

// stringOrEmpty dereferences an optional string field
func stringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// dateOrEmpty formats an optional calendar date
func dateOrEmpty(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(DateLayout)
}
