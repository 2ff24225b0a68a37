package audit

import (
	"context"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// TableExporter yields table names and their rows for export.
type TableExporter interface {
	GetTableNames(ctx context.Context) ([]string, error)
	GetTableData(ctx context.Context, tableName string) ([]map[string]interface{}, []string, error)
}

// ExportWorkbook writes every audited table to one XLSX workbook, a sheet
// per table with a bold header row.
func ExportWorkbook(ctx context.Context, exporter TableExporter, w io.Writer) error {
	file := excelize.NewFile()
	defer file.Close()

	names, err := exporter.GetTableNames(ctx)
	if err != nil {
		return fmt.Errorf("list tables: %w", err)
	}

	for i, name := range names {
		sheet := name
		// Excel sheet name limit
		if len(sheet) > 31 {
			sheet = sheet[:31]
		}
		if i == 0 {
			file.SetSheetName("Sheet1", sheet)
		} else {
			if _, err := file.NewSheet(sheet); err != nil {
				return fmt.Errorf("create sheet %s: %w", sheet, err)
			}
		}

		data, columns, err := exporter.GetTableData(ctx, name)
		if err != nil {
			return fmt.Errorf("export table %s: %w", name, err)
		}

		if err := writeHeader(file, sheet, columns); err != nil {
			return err
		}
		for rowIdx, row := range data {
			for colIdx, col := range columns {
				cell, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
				if err != nil {
					return err
				}
				if err := file.SetCellValue(sheet, cell, cellValue(row[col])); err != nil {
					return err
				}
			}
		}
	}

	if err := file.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeHeader(file *excelize.File, sheet string, columns []string) error {
	for i, col := range columns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := file.SetCellValue(sheet, cell, col); err != nil {
			return err
		}
	}

	style, err := file.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		startCell, _ := excelize.CoordinatesToCellName(1, 1)
		endCell, _ := excelize.CoordinatesToCellName(len(columns), 1)
		_ = file.SetCellStyle(sheet, startCell, endCell, style)
	}
	return nil
}

func cellValue(v interface{}) interface{} {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
