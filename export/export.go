// Package export renders filtered income and expense lists as xlsx workbooks.
package export

import (
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const (
	dateFormat   = "02.01.2006"
	amountFormat = 4 // #,##0.00
)

// Column is one spreadsheet column. Amount columns are summed into the
// totals row.
type Column[T any] struct {
	Header string
	Width  float64
	Value  func(T) any
	Amount func(T) decimal.Decimal
}

// Workbook writes a single sheet with a bold header row, one row per item
// and a totals row under the amount columns.
func Workbook[T any](w io.Writer, sheet string, columns []Column[T], items []T) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("creating header style: %w", err)
	}
	amount, err := f.NewStyle(&excelize.Style{NumFmt: amountFormat})
	if err != nil {
		return fmt.Errorf("creating amount style: %w", err)
	}
	boldAmount, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}, NumFmt: amountFormat})
	if err != nil {
		return fmt.Errorf("creating totals style: %w", err)
	}

	headers := make([]any, len(columns))
	for i, c := range columns {
		headers[i] = c.Header
		name, _ := excelize.ColumnNumberToName(i + 1)
		width := c.Width
		if width == 0 {
			width = 16
		}
		if err := f.SetColWidth(sheet, name, name, width); err != nil {
			return fmt.Errorf("sizing column %s: %w", name, err)
		}
	}
	if err := f.SetSheetRow(sheet, "A1", &headers); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	last, _ := excelize.CoordinatesToCellName(len(columns), 1)
	if err := f.SetCellStyle(sheet, "A1", last, bold); err != nil {
		return fmt.Errorf("styling header: %w", err)
	}

	totals := make([]decimal.Decimal, len(columns))
	for r, item := range items {
		row := r + 2
		for i, c := range columns {
			cell, _ := excelize.CoordinatesToCellName(i+1, row)
			if c.Amount != nil {
				v := c.Amount(item)
				totals[i] = totals[i].Add(v)
				if err := f.SetCellFloat(sheet, cell, v.InexactFloat64(), 2, 64); err != nil {
					return fmt.Errorf("writing %s: %w", cell, err)
				}
				if err := f.SetCellStyle(sheet, cell, cell, amount); err != nil {
					return fmt.Errorf("styling %s: %w", cell, err)
				}
				continue
			}
			if err := f.SetCellValue(sheet, cell, cellValue(c.Value(item))); err != nil {
				return fmt.Errorf("writing %s: %w", cell, err)
			}
		}
	}

	totalRow := len(items) + 2
	first, _ := excelize.CoordinatesToCellName(1, totalRow)
	if err := f.SetCellValue(sheet, first, "Total"); err != nil {
		return fmt.Errorf("writing totals label: %w", err)
	}
	for i, c := range columns {
		if c.Amount == nil {
			continue
		}
		cell, _ := excelize.CoordinatesToCellName(i+1, totalRow)
		if err := f.SetCellFloat(sheet, cell, totals[i].InexactFloat64(), 2, 64); err != nil {
			return fmt.Errorf("writing total %s: %w", cell, err)
		}
	}
	end, _ := excelize.CoordinatesToCellName(len(columns), totalRow)
	if err := f.SetCellStyle(sheet, first, end, boldAmount); err != nil {
		return fmt.Errorf("styling totals: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

func cellValue(v any) any {
	switch t := v.(type) {
	case time.Time:
		if t.IsZero() {
			return ""
		}
		return t.Format(dateFormat)
	case *time.Time:
		if t == nil {
			return ""
		}
		return t.Format(dateFormat)
	}
	return v
}
