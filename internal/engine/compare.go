package engine

import (
	"fmt"

	"github.com/piwi3910/CutFrame/internal/model"
)

// ComparisonScenario defines a named set of settings to compare.
type ComparisonScenario struct {
	Name     string
	Settings model.CutSettings
}

// ComparisonResult holds the allocation result and computed statistics
// for a single scenario.
type ComparisonResult struct {
	Scenario        ComparisonScenario
	Result          model.AllocationResult
	BarsUsed        int
	OversizeBars    int
	WastePercent    float64
	UnassignedCount int
}

// CompareScenarios runs the allocator once per scenario over the same pieces
// and returns the results in scenario order.
func CompareScenarios(scenarios []ComparisonScenario, pieces []model.PieceRequirement, lengths model.MaterialLengthProvider) []ComparisonResult {
	results := make([]ComparisonResult, 0, len(scenarios))

	for _, scenario := range scenarios {
		result := New(scenario.Settings, lengths, nil).Allocate(pieces)

		oversize := 0
		for _, b := range result.Bars {
			if b.Oversize {
				oversize++
			}
		}

		wastePercent := 0.0
		if len(result.Bars) > 0 {
			wastePercent = 100.0 - result.TotalEfficiency()
		}

		results = append(results, ComparisonResult{
			Scenario:        scenario,
			Result:          result,
			BarsUsed:        len(result.Bars),
			OversizeBars:    oversize,
			WastePercent:    wastePercent,
			UnassignedCount: len(result.Unassigned),
		})
	}

	return results
}

// BuildDefaultScenarios generates what-if alternatives around the current settings.
func BuildDefaultScenarios(baseSettings model.CutSettings) []ComparisonScenario {
	scenarios := []ComparisonScenario{
		{
			Name:     "Current Settings",
			Settings: baseSettings,
		},
	}

	// Scenario: Thinner blade
	if baseSettings.KerfWidth > 1.0 {
		tightKerf := baseSettings
		tightKerf.KerfWidth = baseSettings.KerfWidth * 0.5
		scenarios = append(scenarios, ComparisonScenario{
			Name:     fmt.Sprintf("Kerf %.1fmm (half)", tightKerf.KerfWidth),
			Settings: tightKerf,
		})
	}

	// Scenario: No end trim
	if baseSettings.EndTrim > 0 {
		noTrim := baseSettings
		noTrim.EndTrim = 0
		scenarios = append(scenarios, ComparisonScenario{
			Name:     "No End Trim",
			Settings: noTrim,
		})
	}

	// Scenario: The other no-fit policy
	altPolicy := baseSettings
	if baseSettings.NoFitPolicy == model.NoFitAbandon {
		altPolicy.NoFitPolicy = model.NoFitForceSingle
		scenarios = append(scenarios, ComparisonScenario{
			Name:     "Force Oversize Pieces",
			Settings: altPolicy,
		})
	} else {
		altPolicy.NoFitPolicy = model.NoFitAbandon
		scenarios = append(scenarios, ComparisonScenario{
			Name:     "Abandon Oversize Pieces",
			Settings: altPolicy,
		})
	}

	return scenarios
}
