package model

import "sort"

// Offcut is the usable remnant left at the end of a cut bar.
type Offcut struct {
	Material  string  `json:"material_name"`
	CuttingID int     `json:"cutting_id"` // Bar it came from
	Length    float64 `json:"length"`     // mm
}

// DetectOffcuts lists the leftover of every bar that is at least minUsable long,
// longest first. Oversize bars never leave an offcut.
func DetectOffcuts(result AllocationResult, minUsable float64) []Offcut {
	var offcuts []Offcut
	for _, b := range result.Bars {
		if b.Oversize {
			continue
		}
		rest := b.Offcut()
		if rest <= 0 || rest < minUsable {
			continue
		}
		offcuts = append(offcuts, Offcut{
			Material:  b.Material,
			CuttingID: b.CuttingID,
			Length:    rest,
		})
	}

	sort.SliceStable(offcuts, func(i, j int) bool {
		return offcuts[i].Length > offcuts[j].Length
	})
	return offcuts
}

// TotalOffcutLength returns the combined length of all offcuts in mm.
func TotalOffcutLength(offcuts []Offcut) float64 {
	var total float64
	for _, o := range offcuts {
		total += o.Length
	}
	return total
}

// Waste returns the length of all bar remnants shorter than minUsable,
// end trim and kerf not included.
func Waste(result AllocationResult, minUsable float64) float64 {
	var waste float64
	for _, b := range result.Bars {
		rest := b.Offcut()
		if rest > 0 && rest < minUsable {
			waste += rest
		}
	}
	return waste
}
