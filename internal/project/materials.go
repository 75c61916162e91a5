package project

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/piwi3910/CutFrame/internal/model"
)

// DefaultMaterialsPath returns the default file path for material stock lengths.
func DefaultMaterialsPath() string {
	return filepath.Join(DefaultConfigDir(), "materials.json")
}

// SaveMaterialLengths writes the material table to path as JSON.
func SaveMaterialLengths(path string, m model.MaterialLengths) error {
	if err := validateMaterialLengths(m); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// LoadMaterialLengths reads the material table from path. A missing file is
// created with the built-in table, which is then returned.
func LoadMaterialLengths(path string) (model.MaterialLengths, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			defaults := model.DefaultMaterialLengths()
			if err := SaveMaterialLengths(path, defaults); err != nil {
				return model.MaterialLengths{}, fmt.Errorf("write default materials: %w", err)
			}
			return defaults, nil
		}
		return model.MaterialLengths{}, err
	}

	var m model.MaterialLengths
	if err := json.Unmarshal(data, &m); err != nil {
		return model.MaterialLengths{}, fmt.Errorf("parse %s: %w", path, err)
	}
	if m.Lengths == nil {
		m.Lengths = map[string]float64{}
	}
	if m.Default <= 0 {
		m.Default = model.DefaultStockLength
	}
	return m, nil
}

// UpdateMaterialLengths merges updates into the stored table and saves it.
// A positive defaultLength replaces the fallback length.
func UpdateMaterialLengths(path string, updates map[string]float64, defaultLength float64) (model.MaterialLengths, error) {
	current, err := LoadMaterialLengths(path)
	if err != nil {
		return model.MaterialLengths{}, err
	}
	merged := current.Merge(updates)
	if defaultLength > 0 {
		merged.Default = defaultLength
	}
	if err := SaveMaterialLengths(path, merged); err != nil {
		return model.MaterialLengths{}, err
	}
	return merged, nil
}

func validateMaterialLengths(m model.MaterialLengths) error {
	if m.Default <= 0 {
		return fmt.Errorf("default length must be positive, got %g", m.Default)
	}
	for _, key := range m.Keys() {
		if m.Lengths[key] <= 0 {
			return fmt.Errorf("length for %q must be positive, got %g", key, m.Lengths[key])
		}
	}
	return nil
}
