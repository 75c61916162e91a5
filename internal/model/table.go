package model

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Table is the tabular form pieces arrive in and leave in. Columns other than
// the required ones are passed through unchanged.
type Table struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// ColumnIndex returns the index of the named column, or -1.
func (t Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Cell returns the value at row, column name. Missing cells read as "".
func (t Table) Cell(row int, name string) string {
	idx := t.ColumnIndex(name)
	if idx < 0 || row < 0 || row >= len(t.Rows) || idx >= len(t.Rows[row]) {
		return ""
	}
	return t.Rows[row][idx]
}

// Validate checks that every required column is present.
func (t Table) Validate() error {
	var missing []string
	for _, col := range RequiredColumns {
		if t.ColumnIndex(col) < 0 {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return &SchemaError{Missing: missing}
	}
	return nil
}

// PiecesFromTable reads every row into a PieceRequirement. Rows whose Qty or
// Length cannot be read are reported as diagnostics and skipped; they stay
// unassigned in the output.
func PiecesFromTable(t Table) ([]PieceRequirement, []Diagnostic, error) {
	if err := t.Validate(); err != nil {
		return nil, nil, err
	}

	pieces := make([]PieceRequirement, 0, len(t.Rows))
	var diags []Diagnostic
	for i := range t.Rows {
		material := strings.TrimSpace(t.Cell(i, ColMaterialName))

		qtyStr := strings.TrimSpace(t.Cell(i, ColQty))
		qty, err := parseQuantity(qtyStr)
		if err != nil {
			diags = append(diags, Diagnostic{
				Kind:     DiagInvalidRow,
				Material: material,
				Position: i,
				Message:  fmt.Sprintf("row %d: invalid quantity %q", i+1, qtyStr),
			})
			continue
		}

		lenStr := strings.TrimSpace(t.Cell(i, ColLength))
		length, err := strconv.ParseFloat(lenStr, 64)
		if err != nil || length <= 0 || math.IsNaN(length) || math.IsInf(length, 0) {
			diags = append(diags, Diagnostic{
				Kind:     DiagInvalidRow,
				Material: material,
				Quantity: qty,
				Position: i,
				Message:  fmt.Sprintf("row %d: invalid length %q", i+1, lenStr),
			})
			continue
		}

		pieces = append(pieces, PieceRequirement{
			Material: material,
			Quantity: qty,
			Length:   length,
			OrderNo:  strings.TrimSpace(t.Cell(i, ColOrderNo)),
			BinNo:    strings.TrimSpace(t.Cell(i, ColBinNo)),
			Position: i,
		})
	}
	return pieces, diags, nil
}

// parseQuantity accepts integers and integral decimals such as "2.0",
// which spreadsheets commonly produce.
func parseQuantity(s string) (int, error) {
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("quantity %q is not a whole number", s)
	}
	if f >= float64(math.MaxInt) || f < float64(math.MinInt) {
		return 0, fmt.Errorf("quantity %q is out of range", s)
	}
	return int(f), nil
}

// WithAssignments returns a copy of the table with Cutting ID and Pieces ID
// columns filled from the result. Unassigned rows get 0 in both. Existing
// columns of those names are overwritten rather than duplicated.
func (t Table) WithAssignments(result AllocationResult) Table {
	columns := append([]string(nil), t.Columns...)
	cutIdx := indexOf(columns, ColCuttingID)
	if cutIdx < 0 {
		columns = append(columns, ColCuttingID)
		cutIdx = len(columns) - 1
	}
	pieceIdx := indexOf(columns, ColPiecesID)
	if pieceIdx < 0 {
		columns = append(columns, ColPiecesID)
		pieceIdx = len(columns) - 1
	}

	rows := make([][]string, len(t.Rows))
	for i, src := range t.Rows {
		row := make([]string, len(columns))
		copy(row, src)
		cuttingID, piecesID := 0, 0
		if a, ok := result.AssignmentFor(i); ok {
			cuttingID, piecesID = a.CuttingID, a.PiecesID
		}
		row[cutIdx] = strconv.Itoa(cuttingID)
		row[pieceIdx] = strconv.Itoa(piecesID)
		rows[i] = row
	}
	return Table{Columns: columns, Rows: rows}
}

func indexOf(values []string, s string) int {
	for i, v := range values {
		if v == s {
			return i
		}
	}
	return -1
}
