package model

import (
	"math"
	"testing"
)

func TestCalculatePurchaseEstimateBasic(t *testing.T) {
	lengths := []float64{1000, 1000, 500}
	est := CalculatePurchaseEstimate(lengths, 2000, 4, 6, 10, 45.00)

	// Each piece with kerf: 1004 + 1004 + 504
	if math.Abs(est.TotalPieceLength-2512) > 1e-9 {
		t.Errorf("expected total length 2512, got %.1f", est.TotalPieceLength)
	}
	if est.UsableLength != 1994 {
		t.Errorf("expected usable length 1994, got %.1f", est.UsableLength)
	}
	if est.BarsNeededMin != 2 {
		t.Errorf("expected 2 bars minimum, got %d", est.BarsNeededMin)
	}
	if est.BarsWithWaste != 2 {
		t.Errorf("expected 2 bars with waste, got %d", est.BarsWithWaste)
	}
	if math.Abs(est.EstimatedCost-90) > 1e-9 {
		t.Errorf("expected cost 90, got %.2f", est.EstimatedCost)
	}
}

func TestCalculatePurchaseEstimateZeroUsableLength(t *testing.T) {
	est := CalculatePurchaseEstimate([]float64{100}, 5, 0, 10, 10, 0)
	if est.BarsNeededMin != 0 {
		t.Errorf("expected 0 bars when end trim eats the stock, got %d", est.BarsNeededMin)
	}
	if est.TotalPieceLength != 100 {
		t.Errorf("expected total length 100 even without usable stock, got %.1f", est.TotalPieceLength)
	}
}

func TestCalculatePurchaseEstimateWasteFactor(t *testing.T) {
	// 10 pieces of 996 + 4 kerf = exactly 5 bars of 2000.
	lengths := make([]float64, 10)
	for i := range lengths {
		lengths[i] = 996
	}

	est := CalculatePurchaseEstimate(lengths, 2000, 4, 0, 20, 0)
	if est.BarsNeededMin != 5 {
		t.Errorf("expected 5 bars minimum, got %d", est.BarsNeededMin)
	}
	if est.BarsWithWaste != 6 {
		t.Errorf("expected 6 bars with 20%% waste, got %d", est.BarsWithWaste)
	}
	if est.EstimatedCost != 0 {
		t.Errorf("expected no cost without a price, got %.2f", est.EstimatedCost)
	}
}

func TestCalculatePurchaseEstimateEmpty(t *testing.T) {
	est := CalculatePurchaseEstimate(nil, 6000, 4, 6, 10, 20)
	if est.BarsNeededMin != 0 || est.BarsWithWaste != 0 {
		t.Errorf("expected 0 bars for no pieces, got %d/%d", est.BarsNeededMin, est.BarsWithWaste)
	}
}
