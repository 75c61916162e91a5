// Package importer reads cut lists from CSV and Excel files into a model.Table.
// It supports automatic delimiter detection, legacy encodings, and
// case-insensitive header recognition.
package importer

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"

	"github.com/piwi3910/CutFrame/internal/model"
)

// ImportResult holds the results of an import operation.
type ImportResult struct {
	Table    model.Table
	Errors   []string
	Warnings []string
}

// OK reports whether the import produced a table without errors.
func (r ImportResult) OK() bool {
	return len(r.Errors) == 0
}

// headerAliases maps canonical column names to their accepted aliases (normalized).
var headerAliases = map[string][]string{
	model.ColMaterialName: {"material name", "material", "materialname", "profile", "profile name"},
	model.ColQty:          {"qty", "quantity", "count", "pcs"},
	model.ColLength:       {"length", "len", "cut length"},
	model.ColOrderNo:      {"order no", "order", "orderno", "order number"},
	model.ColBinNo:        {"bin no", "bin", "binno", "bin number"},
	model.ColCuttingID:    {"cutting id", "cuttingid"},
	model.ColPiecesID:     {"pieces id", "piecesid", "piece id"},
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// normalizeHeader lowercases a header and folds separators so that
// "Order_No.", "order no" and "ORDER  NO" compare equal.
func normalizeHeader(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer("_", " ", ".", " ", "-", " ").Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

// CanonicalColumn returns the schema name for a header cell. Unknown headers
// are returned trimmed but otherwise unchanged.
func CanonicalColumn(header string) string {
	normalized := normalizeHeader(header)
	for canonical, aliases := range headerAliases {
		for _, alias := range aliases {
			if normalized == alias {
				return canonical
			}
		}
	}
	return strings.TrimSpace(header)
}

// DetectCSVDelimiter reads the file content and determines the most likely CSV delimiter.
// It tries comma, semicolon, tab, and pipe. The delimiter that produces the most
// consistent (non-one) column count across lines wins.
func DetectCSVDelimiter(data []byte) rune {
	candidates := []rune{',', ';', '\t', '|'}
	bestDelimiter := ','
	bestScore := 0

	for _, delim := range candidates {
		reader := csv.NewReader(bytes.NewReader(data))
		reader.Comma = delim
		reader.LazyQuotes = true
		reader.FieldsPerRecord = -1 // Allow variable field counts

		records, err := reader.ReadAll()
		if err != nil || len(records) < 1 {
			continue
		}

		// Only consider delimiters that produce more than 1 column
		firstCols := len(records[0])
		if firstCols < 2 {
			continue
		}

		score := 0
		for _, row := range records {
			if len(row) == firstCols {
				score++
			}
		}

		// Prefer delimiters with higher consistency and more columns
		weighted := score*10 + firstCols
		if weighted > bestScore {
			bestScore = weighted
			bestDelimiter = delim
		}
	}

	return bestDelimiter
}

// DecodeText strips a UTF-8 byte order mark and converts GBK content, as
// written by older Chinese-locale spreadsheet tools, to UTF-8. The second
// return value is true when a conversion took place.
func DecodeText(data []byte) ([]byte, bool, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return data, false, nil
	}
	decoded, err := io.ReadAll(transform.NewReader(bytes.NewReader(data), simplifiedchinese.GBK.NewDecoder()))
	if err != nil {
		return nil, false, fmt.Errorf("decode GBK: %w", err)
	}
	return decoded, true, nil
}

// isEmptyRow returns true if the row has no meaningful content.
func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// Import reads a cut list, choosing the reader by file extension.
func Import(path string) ImportResult {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm", ".xls":
		return ImportExcel(path)
	case ".csv", ".txt", ".tsv":
		return ImportCSV(path)
	default:
		return ImportResult{Errors: []string{fmt.Sprintf("Unsupported file type %q", filepath.Ext(path))}}
	}
}

// ImportReader reads a cut list from r. The name is only used for its
// extension, as with uploaded files.
func ImportReader(name string, r io.Reader) ImportResult {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm", ".xls":
		return ImportExcelFromReader(r)
	case ".csv", ".txt", ".tsv":
		data, err := io.ReadAll(r)
		if err != nil {
			return ImportResult{Errors: []string{fmt.Sprintf("Cannot read file: %v", err)}}
		}
		return importCSVData(data)
	default:
		return ImportResult{Errors: []string{fmt.Sprintf("Unsupported file type %q", filepath.Ext(name))}}
	}
}

// ImportCSV imports a cut list from a CSV file.
// It automatically detects the delimiter and the text encoding.
func ImportCSV(path string) ImportResult {
	data, err := os.ReadFile(path)
	if err != nil {
		return ImportResult{Errors: []string{fmt.Sprintf("Cannot open file: %v", err)}}
	}
	return importCSVData(data)
}

func importCSVData(data []byte) ImportResult {
	result := ImportResult{}

	data, converted, err := DecodeText(data)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Cannot decode file: %v", err))
		return result
	}
	if converted {
		result.Warnings = append(result.Warnings, "Converted file from GBK to UTF-8")
	}

	if len(bytes.TrimSpace(data)) == 0 {
		result.Errors = append(result.Errors, "File is empty")
		return result
	}

	delimiter := DetectCSVDelimiter(data)
	if delimiter != ',' {
		delimName := map[rune]string{';': "semicolon", '\t': "tab", '|': "pipe"}[delimiter]
		result.Warnings = append(result.Warnings, fmt.Sprintf("Detected %s delimiter", delimName))
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = delimiter
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Cannot read CSV: %v", err))
		return result
	}

	return importFromRows(records, "Line", result.Warnings)
}

// ImportCSVFromReader imports a cut list from a UTF-8 CSV reader with a
// specific delimiter. This is useful for testing or when the delimiter is
// already known.
func ImportCSVFromReader(reader io.Reader, delimiter rune) ImportResult {
	csvReader := csv.NewReader(reader)
	csvReader.Comma = delimiter
	csvReader.LazyQuotes = true
	csvReader.FieldsPerRecord = -1

	records, err := csvReader.ReadAll()
	if err != nil {
		return ImportResult{Errors: []string{fmt.Sprintf("Cannot read CSV: %v", err)}}
	}
	return importFromRows(records, "Line", nil)
}

// ImportExcel imports a cut list from the first sheet of an Excel file.
func ImportExcel(path string) ImportResult {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return ImportResult{Errors: []string{fmt.Sprintf("Cannot open Excel file: %v", err)}}
	}
	defer f.Close()
	return importWorkbook(f)
}

// ImportExcelFromReader imports a cut list from an Excel workbook stream.
func ImportExcelFromReader(r io.Reader) ImportResult {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return ImportResult{Errors: []string{fmt.Sprintf("Cannot open Excel file: %v", err)}}
	}
	defer f.Close()
	return importWorkbook(f)
}

func importWorkbook(f *excelize.File) ImportResult {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return ImportResult{Errors: []string{"Excel file has no sheets"}}
	}

	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return ImportResult{Errors: []string{fmt.Sprintf("Cannot read Excel data: %v", err)}}
	}
	return importFromRows(rows, "Row", nil)
}

// importFromRows is the shared import logic for both CSV and Excel data.
// The first non-empty row is the header; later rows are padded or cut to
// its width.
func importFromRows(rows [][]string, rowPrefix string, initialWarnings []string) ImportResult {
	result := ImportResult{
		Warnings: initialWarnings,
	}

	start := 0
	for start < len(rows) && isEmptyRow(rows[start]) {
		start++
	}
	if start == len(rows) {
		result.Errors = append(result.Errors, "No data rows found")
		return result
	}

	header := rows[start]
	columns := make([]string, len(header))
	seen := make(map[string]bool)
	for i, cell := range header {
		name := CanonicalColumn(cell)
		if name == "" {
			name = fmt.Sprintf("Column %d", i+1)
		}
		if seen[name] {
			result.Warnings = append(result.Warnings, fmt.Sprintf("Duplicate column %q, only the first is used", name))
		}
		seen[name] = true
		columns[i] = name
	}

	var missing []string
	for _, col := range model.RequiredColumns {
		if !seen[col] {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		result.Warnings = append(result.Warnings, fmt.Sprintf("Required columns not found in header: %s", strings.Join(missing, ", ")))
	}

	table := model.Table{Columns: columns}
	for i := start + 1; i < len(rows); i++ {
		row := rows[i]
		if isEmptyRow(row) {
			continue
		}

		if len(row) > len(columns) {
			extra := row[len(columns):]
			if !isEmptyRow(extra) {
				result.Warnings = append(result.Warnings, fmt.Sprintf("%s %d: %d cells beyond the header were dropped", rowPrefix, i+1, len(extra)))
			}
		}

		cells := make([]string, len(columns))
		for j := range cells {
			if j < len(row) {
				cells[j] = strings.TrimSpace(row[j])
			}
		}
		table.Rows = append(table.Rows, cells)
	}

	if len(table.Rows) == 0 {
		result.Warnings = append(result.Warnings, "Header found but no data rows")
	}
	result.Table = table
	return result
}
