package model

import (
	"regexp"
	"sort"
	"strings"
)

// MaterialLengthProvider supplies the nominal stock bar length for a material.
type MaterialLengthProvider interface {
	MaterialLength(material string) float64
}

// DefaultStockLength is used when neither the material nor its profile key is known.
const DefaultStockLength = 233.0

// profileKeyPattern matches the profile code at the start of a material name,
// e.g. "HMST82-01" in "HMST82-01WH".
var profileKeyPattern = regexp.MustCompile(`^HMST(\d+-\d+)`)

// NormalizeMaterialKey extracts the profile key from a material name, dropping
// color and suffix codes: "HMST82-01WH" becomes "HMST-82-01". Names without a
// profile code yield "" and false.
func NormalizeMaterialKey(material string) (string, bool) {
	m := profileKeyPattern.FindStringSubmatch(strings.TrimSpace(material))
	if m == nil {
		return "", false
	}
	return "HMST-" + m[1], true
}

// MaterialLengths maps profile keys (or full material names) to stock lengths.
type MaterialLengths struct {
	Lengths map[string]float64 `json:"lengths"`
	Default float64            `json:"default"`
}

// DefaultMaterialLengths returns the built-in profile table.
func DefaultMaterialLengths() MaterialLengths {
	return MaterialLengths{
		Lengths: map[string]float64{
			"HMST-130-01":  181.0,
			"HMST-130-01B": 181.0,
			"HMST-130-02":  181.0,
			"HMST-82-01":   238.0,
			"HMST-82-02B":  233.0,
			"HMST-82-10":   238.0,
			"HMST-82-04":   257.0,
			"HMST-82-03":   257.0,
			"HMST-82-05":   257.0,
		},
		Default: DefaultStockLength,
	}
}

// MaterialLength implements MaterialLengthProvider. The profile key wins over
// the full name; unknown materials get the default.
func (m MaterialLengths) MaterialLength(material string) float64 {
	if key, ok := NormalizeMaterialKey(material); ok {
		if l, found := m.Lengths[key]; found {
			return l
		}
		return m.Default
	}
	if l, found := m.Lengths[strings.TrimSpace(material)]; found {
		return l
	}
	return m.Default
}

// Merge returns a copy with the given entries added or replaced.
func (m MaterialLengths) Merge(updates map[string]float64) MaterialLengths {
	merged := MaterialLengths{
		Lengths: make(map[string]float64, len(m.Lengths)+len(updates)),
		Default: m.Default,
	}
	for k, v := range m.Lengths {
		merged.Lengths[k] = v
	}
	for k, v := range updates {
		merged.Lengths[k] = v
	}
	return merged
}

// Keys returns the configured keys in sorted order.
func (m MaterialLengths) Keys() []string {
	keys := make([]string, 0, len(m.Lengths))
	for k := range m.Lengths {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// FixedLength is a provider that returns the same length for every material.
type FixedLength float64

func (f FixedLength) MaterialLength(string) float64 {
	return float64(f)
}
