package model

import "math"

// PurchaseEstimate holds the results of a bar purchasing calculation.
type PurchaseEstimate struct {
	TotalPieceLength float64 `json:"total_piece_length"` // Pieces plus one kerf each (mm)
	UsableLength     float64 `json:"usable_length"`      // Stock length minus end trim (mm)
	BarsNeededExact  float64 `json:"bars_needed_exact"`  // Exact fractional number of bars
	BarsNeededMin    int     `json:"bars_needed_min"`    // Lower bound (ceiling of exact)
	BarsWithWaste    int     `json:"bars_with_waste"`    // Recommended bars including waste factor
	WastePercent     float64 `json:"waste_percent"`      // Waste factor applied (e.g., 10 for 10%)
	EstimatedCost    float64 `json:"estimated_cost"`     // Total cost if pricing available
	PricePerBar      float64 `json:"price_per_bar"`
	KerfWidth        float64 `json:"kerf_width"`
}

// CalculatePurchaseEstimate computes how many bars to buy for the given piece lengths.
// It gives a lower bound independent of how the allocator packs the bars.
func CalculatePurchaseEstimate(lengths []float64, stockLength, kerfWidth, endTrim, wastePercent, pricePerBar float64) PurchaseEstimate {
	var total float64
	for _, l := range lengths {
		total += l + kerfWidth
	}

	usable := stockLength - endTrim
	if usable <= 0 {
		return PurchaseEstimate{
			TotalPieceLength: total,
			WastePercent:     wastePercent,
			KerfWidth:        kerfWidth,
		}
	}

	exact := total / usable
	minBars := int(math.Ceil(exact))

	wasteFactor := 1.0 + (wastePercent / 100.0)
	withWaste := int(math.Ceil(exact * wasteFactor))
	if withWaste < minBars {
		withWaste = minBars
	}

	return PurchaseEstimate{
		TotalPieceLength: total,
		UsableLength:     usable,
		BarsNeededExact:  exact,
		BarsNeededMin:    minBars,
		BarsWithWaste:    withWaste,
		WastePercent:     wastePercent,
		EstimatedCost:    float64(withWaste) * pricePerBar,
		PricePerBar:      pricePerBar,
		KerfWidth:        kerfWidth,
	}
}
