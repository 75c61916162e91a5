package model

import (
	"fmt"
	"strings"
)

// Column names of the input table schema.
const (
	ColMaterialName = "Material Name"
	ColQty          = "Qty"
	ColLength       = "Length"
	ColOrderNo      = "Order No"
	ColBinNo        = "Bin No"

	// Output columns appended by the allocator.
	ColCuttingID = "Cutting ID"
	ColPiecesID  = "Pieces ID"
)

// RequiredColumns lists the columns every input table must carry.
var RequiredColumns = []string{ColMaterialName, ColQty, ColLength, ColOrderNo, ColBinNo}

// PieceRequirement is one required linear piece, read once from the input table.
// Rows sharing material, quantity, length, order and bin are told apart only
// by Position.
type PieceRequirement struct {
	Material string  `json:"material_name"`
	Quantity int     `json:"qty"`
	Length   float64 `json:"length"` // mm
	OrderNo  string  `json:"order_no"`
	BinNo    string  `json:"bin_no"`
	Position int     `json:"original_position"` // Index into the input sequence
}

// GroupKey identifies the material group a piece belongs to.
type GroupKey struct {
	Material string
	Quantity int
}

func (k GroupKey) String() string {
	return fmt.Sprintf("%s x%d", k.Material, k.Quantity)
}

// Key returns the material group of the piece.
func (p PieceRequirement) Key() GroupKey {
	return GroupKey{Material: p.Material, Quantity: p.Quantity}
}

// CuttingAssignment places one piece on one bar.
type CuttingAssignment struct {
	Position  int `json:"original_position"`
	CuttingID int `json:"cutting_id"` // 1-based, unique per material across all its bars
	PiecesID  int `json:"pieces_id"`  // 1-based rank of the piece within its bar
}

// Bar is one stock-length unit that has been filled with pieces.
type Bar struct {
	Material    string    `json:"material_name"`
	Quantity    int       `json:"qty"`
	CuttingID   int       `json:"cutting_id"`
	StockLength float64   `json:"stock_length"`
	Lengths     []float64 `json:"lengths"`   // In cutting order
	Positions   []int     `json:"positions"` // Original positions, parallel to Lengths
	KerfWidth   float64   `json:"kerf_width"`
	EndTrim     float64   `json:"end_trim"`
	Oversize    bool      `json:"oversize"` // Forced onto the bar although it does not fit
}

// PieceLength returns the sum of the assigned lengths.
func (b Bar) PieceLength() float64 {
	var total float64
	for _, l := range b.Lengths {
		total += l
	}
	return total
}

// Consumed returns the bar length used up by pieces, one kerf per piece and the end trim.
func (b Bar) Consumed() float64 {
	return b.PieceLength() + float64(len(b.Lengths))*b.KerfWidth + b.EndTrim
}

// Offcut returns the leftover length of the bar. Negative for oversize bars.
func (b Bar) Offcut() float64 {
	return b.StockLength - b.Consumed()
}

// Efficiency returns the share of the stock length taken by pieces, in percent.
func (b Bar) Efficiency() float64 {
	if b.StockLength <= 0 {
		return 0
	}
	return (b.PieceLength() / b.StockLength) * 100.0
}

// NoFitPolicy decides what happens to pieces that do not fit on an empty bar.
type NoFitPolicy string

const (
	NoFitForceSingle NoFitPolicy = "force-single" // Put the piece alone on an oversize bar
	NoFitAbandon     NoFitPolicy = "abandon"      // Leave the piece unassigned
)

// ParseNoFitPolicy converts a policy name into a NoFitPolicy.
func ParseNoFitPolicy(s string) (NoFitPolicy, error) {
	switch NoFitPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case NoFitForceSingle, "":
		return NoFitForceSingle, nil
	case NoFitAbandon:
		return NoFitAbandon, nil
	default:
		return "", fmt.Errorf("unknown no-fit policy %q", s)
	}
}

// CutSettings holds the allocator configuration.
type CutSettings struct {
	KerfWidth   float64     `json:"kerf_width"`    // Saw blade loss per piece in mm
	EndTrim     float64     `json:"end_trim"`      // Unusable length reserved at the bar end in mm
	MinOffcut   float64     `json:"min_offcut"`    // Smallest leftover worth extending a candidate for
	MaxPoolSize int         `json:"max_pool_size"` // Largest pool handed to one search, 0 = unlimited
	NoFitPolicy NoFitPolicy `json:"no_fit_policy"`
}

func DefaultSettings() CutSettings {
	return CutSettings{
		KerfWidth:   4.0,
		EndTrim:     6.0,
		MinOffcut:   10.0,
		MaxPoolSize: 100,
		NoFitPolicy: NoFitForceSingle,
	}
}

// AllocationResult holds the full cutting plan.
type AllocationResult struct {
	PlanID      string              `json:"plan_id"`
	Assignments []CuttingAssignment `json:"assignments"` // Sorted by original position
	Bars        []Bar               `json:"bars"`
	Unassigned  []PieceRequirement  `json:"unassigned"`
	Diagnostics []Diagnostic        `json:"diagnostics"`
}

// AssignmentFor returns the assignment for the piece at the given original position.
func (r AllocationResult) AssignmentFor(position int) (CuttingAssignment, bool) {
	lo, hi := 0, len(r.Assignments)
	for lo < hi {
		mid := (lo + hi) / 2
		if r.Assignments[mid].Position < position {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < len(r.Assignments) && r.Assignments[lo].Position == position {
		return r.Assignments[lo], true
	}
	return CuttingAssignment{}, false
}

// BarsFor returns the bars cut from the given material, in cutting id order.
func (r AllocationResult) BarsFor(material string) []Bar {
	var bars []Bar
	for _, b := range r.Bars {
		if b.Material == material {
			bars = append(bars, b)
		}
	}
	return bars
}

// Materials returns the distinct materials that received bars, in plan order.
func (r AllocationResult) Materials() []string {
	seen := make(map[string]bool)
	var materials []string
	for _, b := range r.Bars {
		if !seen[b.Material] {
			seen[b.Material] = true
			materials = append(materials, b.Material)
		}
	}
	return materials
}

// TotalEfficiency returns overall stock usage in percent.
func (r AllocationResult) TotalEfficiency() float64 {
	var used, total float64
	for _, b := range r.Bars {
		used += b.PieceLength()
		total += b.StockLength
	}
	if total == 0 {
		return 0
	}
	return (used / total) * 100.0
}
