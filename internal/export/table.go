package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/piwi3910/CutFrame/internal/model"
)

// SheetName is the worksheet name used for Excel output.
const SheetName = "CutFrame"

// Output formats accepted by ExportTable and the download endpoint.
const (
	FormatCSV   = "csv"
	FormatExcel = "excel"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// numericColumns are written as numbers in Excel output when they parse.
var numericColumns = map[string]bool{
	model.ColQty:       true,
	model.ColLength:    true,
	model.ColCuttingID: true,
	model.ColPiecesID:  true,
}

// OutputFilename derives the result file name from the input name:
// "orders.xlsx" becomes "orders_CutFrame.csv" for ext "csv".
func OutputFilename(input, ext string) string {
	base := filepath.Base(input)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if base == "" || base == "." || base == string(filepath.Separator) {
		base = "result"
	}
	return fmt.Sprintf("%s_%s.%s", base, SheetName, strings.TrimPrefix(ext, "."))
}

// FormatExtension returns the file extension for an output format.
func FormatExtension(format string) (string, error) {
	switch strings.ToLower(format) {
	case FormatCSV:
		return "csv", nil
	case FormatExcel, "xlsx":
		return "xlsx", nil
	default:
		return "", fmt.Errorf("unsupported format %q", format)
	}
}

// WriteCSV writes the table as CSV with a UTF-8 byte order mark so that
// spreadsheet tools pick the right encoding.
func WriteCSV(w io.Writer, t model.Table) error {
	if _, err := w.Write(utf8BOM); err != nil {
		return fmt.Errorf("write BOM: %w", err)
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return fmt.Errorf("write rows: %w", err)
	}
	return nil
}

// WriteExcel writes the table to a single-sheet workbook.
func WriteExcel(w io.Writer, t model.Table) error {
	f, err := buildWorkbook(t)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func buildWorkbook(t model.Table) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		f.Close()
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	header := make([]interface{}, len(t.Columns))
	for i, c := range t.Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		f.Close()
		return nil, fmt.Errorf("write header: %w", err)
	}

	for r, row := range t.Rows {
		values := make([]interface{}, len(row))
		for c, cell := range row {
			values[c] = cell
			if c < len(t.Columns) && numericColumns[t.Columns[c]] {
				if v, err := strconv.ParseFloat(cell, 64); err == nil {
					values[c] = v
				}
			}
		}
		cellName, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			f.Close()
			return nil, err
		}
		if err := f.SetSheetRow(SheetName, cellName, &values); err != nil {
			f.Close()
			return nil, fmt.Errorf("write row %d: %w", r+1, err)
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		_ = f.SetRowStyle(SheetName, 1, 1, bold)
	}
	if len(t.Columns) > 0 {
		last, _ := excelize.ColumnNumberToName(len(t.Columns))
		_ = f.SetColWidth(SheetName, "A", last, 14)
	}
	_ = f.SetPanes(SheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
	return f, nil
}

// ExportTable writes the table to path, choosing the format by extension.
func ExportTable(path string, t model.Table) error {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".csv" && ext != ".xlsx" {
		return fmt.Errorf("unsupported output extension %q", ext)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer file.Close()

	if ext == ".csv" {
		err = WriteCSV(file, t)
	} else {
		err = WriteExcel(file, t)
	}
	if err != nil {
		return err
	}
	return file.Close()
}
