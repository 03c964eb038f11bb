// Package export writes a materialized Table out to an XLSX workbook.
// It is a supplemental debug/operator tool, not part of the core sync
// engine: nothing under internal/sync or internal/applier depends on
// it, grounded on the teacher's pkg/resource/excel adapter's write-back
// routine (one sheet, header row, then data rows by coordinate).
package export

import (
	"fmt"

	"github.com/kasuganosora/tablesync/internal/domain"
	"github.com/xuri/excelize/v2"
)

// Table writes a single Table to path as an XLSX workbook with one
// sheet named after the table. The header row carries table.Headers;
// each data row below it carries table.Rows[i].Cells, conflict
// metadata omitted since it doesn't round-trip through a spreadsheet.
func Table(table domain.Table, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := sheetName(table)
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("export: rename sheet: %w", err)
	}
	f.SetActiveSheet(0)

	for col, header := range table.Headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return fmt.Errorf("export: header cell: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return fmt.Errorf("export: write header: %w", err)
		}
	}

	for i, row := range table.Rows {
		rowNum := i + 2
		for col, value := range row.Cells {
			cell, err := excelize.CoordinatesToCellName(col+1, rowNum)
			if err != nil {
				return fmt.Errorf("export: data cell: %w", err)
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return fmt.Errorf("export: write cell: %w", err)
			}
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("export: save %s: %w", path, err)
	}
	return nil
}

// Workbook writes every table in tables to path, one sheet per table.
func Workbook(tables []domain.Table, path string) error {
	if len(tables) == 0 {
		return fmt.Errorf("export: no tables to write")
	}

	f := excelize.NewFile()
	defer f.Close()

	firstSheet := f.GetSheetName(0)
	for i, table := range tables {
		sheet := sheetName(table)
		if i == 0 {
			if err := f.SetSheetName(firstSheet, sheet); err != nil {
				return fmt.Errorf("export: rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(sheet); err != nil {
			return fmt.Errorf("export: new sheet %s: %w", sheet, err)
		}

		for col, header := range table.Headers {
			cell, _ := excelize.CoordinatesToCellName(col+1, 1)
			if err := f.SetCellValue(sheet, cell, header); err != nil {
				return fmt.Errorf("export: write header: %w", err)
			}
		}
		for r, row := range table.Rows {
			rowNum := r + 2
			for col, value := range row.Cells {
				cell, _ := excelize.CoordinatesToCellName(col+1, rowNum)
				if err := f.SetCellValue(sheet, cell, value); err != nil {
					return fmt.Errorf("export: write cell: %w", err)
				}
			}
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("export: save %s: %w", path, err)
	}
	return nil
}

// sheetName derives a workbook-safe sheet name from a table's Name
// (falling back to its ID), truncated to Excel's 31-character limit.
func sheetName(table domain.Table) string {
	name := table.Name
	if name == "" {
		name = table.ID
	}
	if len(name) > 31 {
		name = name[:31]
	}
	return name
}
