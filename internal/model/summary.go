package model

import "github.com/shopspring/decimal"

// MaterialSummary aggregates the bars cut from one material.
type MaterialSummary struct {
	Material    string  `json:"material_name"`
	Bars        int     `json:"bars"`
	Pieces      int     `json:"pieces"`
	PieceLength float64 `json:"piece_length"` // mm
	StockLength float64 `json:"stock_length"` // mm, all bars together
	Usage       float64 `json:"usage"`        // percent, 2 places
	Oversize    int     `json:"oversize"`
}

// Summary holds the statistics reported alongside a cutting plan.
type Summary struct {
	TotalPieces      int               `json:"total_pieces"`
	AssignedPieces   int               `json:"assigned_pieces"`
	UnassignedPieces int               `json:"unassigned_pieces"`
	TotalCuts        int               `json:"total_cuts"` // Number of bars
	MaterialCount    int               `json:"material_count"`
	TotalLength      float64           `json:"total_length"`   // mm, every input piece
	MaterialUsage    float64           `json:"material_usage"` // percent, 2 places
	OffcutLength     float64           `json:"offcut_length"` // mm, leftovers of regular bars
	Diagnostics      int               `json:"diagnostics"`
	NoFit            int               `json:"no_fit"`
	InvalidRows      int               `json:"invalid_rows"`
	Materials        []MaterialSummary `json:"materials"`
}

// Summarize computes plan statistics. Sums are done in decimal so the
// reported figures do not drift with the number of pieces.
func Summarize(result AllocationResult, pieces []PieceRequirement) Summary {
	s := Summary{
		TotalPieces:      len(pieces),
		AssignedPieces:   len(result.Assignments),
		UnassignedPieces: len(result.Unassigned),
		TotalCuts:        len(result.Bars),
		Diagnostics:      len(result.Diagnostics),
		NoFit:            CountDiagnostics(result.Diagnostics, DiagNoFit),
		InvalidRows:      CountDiagnostics(result.Diagnostics, DiagInvalidRow),
	}
	s.OffcutLength = decimal.NewFromFloat(TotalOffcutLength(DetectOffcuts(result, 0))).Round(2).InexactFloat64()

	total := decimal.Zero
	materials := make(map[string]bool)
	for _, p := range pieces {
		total = total.Add(decimal.NewFromFloat(p.Length))
		materials[p.Material] = true
	}
	s.TotalLength = total.Round(2).InexactFloat64()
	s.MaterialCount = len(materials)

	used, stock := decimal.Zero, decimal.Zero
	for _, material := range result.Materials() {
		ms := MaterialSummary{Material: material}
		mUsed, mStock := decimal.Zero, decimal.Zero
		for _, b := range result.BarsFor(material) {
			ms.Bars++
			ms.Pieces += len(b.Lengths)
			if b.Oversize {
				ms.Oversize++
			}
			for _, l := range b.Lengths {
				mUsed = mUsed.Add(decimal.NewFromFloat(l))
			}
			mStock = mStock.Add(decimal.NewFromFloat(b.StockLength))
		}
		ms.PieceLength = mUsed.Round(2).InexactFloat64()
		ms.StockLength = mStock.Round(2).InexactFloat64()
		ms.Usage = percent(mUsed, mStock)
		s.Materials = append(s.Materials, ms)

		used = used.Add(mUsed)
		stock = stock.Add(mStock)
	}
	s.MaterialUsage = percent(used, stock)
	return s
}

func percent(part, whole decimal.Decimal) float64 {
	if whole.IsZero() {
		return 0
	}
	return part.Div(whole).Mul(decimal.NewFromInt(100)).Round(2).InexactFloat64()
}
