// Package store keeps the material stock-length table in PostgreSQL.
package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/piwi3910/CutFrame/internal/model"
)

// DefaultKey is the row holding the fallback stock length.
const DefaultKey = "*"

// MaterialLength is one row of the material table, keyed by profile key or
// full material name.
type MaterialLength struct {
	Key       string    `gorm:"primaryKey;size:128" json:"key"`
	Length    float64   `gorm:"not null" json:"length"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (MaterialLength) TableName() string {
	return "material_lengths"
}

// Repository reads and writes material lengths.
type Repository struct {
	db            *gorm.DB
	defaultLength float64
}

// NewRepository returns a Repository. defaultLength is used until a default
// row has been stored.
func NewRepository(db *gorm.DB, defaultLength float64) *Repository {
	if defaultLength <= 0 {
		defaultLength = model.DefaultStockLength
	}
	return &Repository{db: db, defaultLength: defaultLength}
}

// AutoMigrate creates or updates the material table.
func (r *Repository) AutoMigrate(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&MaterialLength{})
}

// Seed fills an empty table with the given lengths. A non-empty table is left alone.
func (r *Repository) Seed(ctx context.Context, m model.MaterialLengths) error {
	var count int64
	if err := r.db.WithContext(ctx).Model(&MaterialLength{}).Count(&count).Error; err != nil {
		return fmt.Errorf("count materials: %w", err)
	}
	if count > 0 {
		return nil
	}
	rows := FromMaterialLengths(m)
	if len(rows) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Create(&rows).Error; err != nil {
		return fmt.Errorf("seed materials: %w", err)
	}
	return nil
}

// List returns every row ordered by key.
func (r *Repository) List(ctx context.Context) ([]MaterialLength, error) {
	var rows []MaterialLength
	if err := r.db.WithContext(ctx).Order("key").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list materials: %w", err)
	}
	return rows, nil
}

// Upsert stores the length for key, replacing any previous value.
func (r *Repository) Upsert(ctx context.Context, key string, length float64) error {
	if key == "" {
		return fmt.Errorf("material key is required")
	}
	if length <= 0 {
		return fmt.Errorf("length for %q must be positive, got %g", key, length)
	}
	row := MaterialLength{Key: key, Length: length}
	err := r.db.WithContext(ctx).Clauses(upsertClause()).Create(&row).Error
	if err != nil {
		return fmt.Errorf("upsert material %q: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting an unknown key is not an error.
func (r *Repository) Delete(ctx context.Context, key string) error {
	if err := r.db.WithContext(ctx).Delete(&MaterialLength{Key: key}).Error; err != nil {
		return fmt.Errorf("delete material %q: %w", key, err)
	}
	return nil
}

// Lengths loads the whole table as a model.MaterialLengths.
func (r *Repository) Lengths(ctx context.Context) (model.MaterialLengths, error) {
	rows, err := r.List(ctx)
	if err != nil {
		return model.MaterialLengths{}, err
	}
	return ToMaterialLengths(rows, r.defaultLength), nil
}

// Update applies updates and an optional new default in one transaction and
// returns the resulting table.
func (r *Repository) Update(ctx context.Context, updates map[string]float64, defaultLength float64) (model.MaterialLengths, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txRepo := &Repository{db: tx, defaultLength: r.defaultLength}
		for key, length := range updates {
			if err := txRepo.Upsert(ctx, key, length); err != nil {
				return err
			}
		}
		if defaultLength > 0 {
			return txRepo.Upsert(ctx, DefaultKey, defaultLength)
		}
		return nil
	})
	if err != nil {
		return model.MaterialLengths{}, err
	}
	return r.Lengths(ctx)
}

func upsertClause() clause.OnConflict {
	return clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"length", "updated_at"}),
	}
}

// ToMaterialLengths converts table rows. The DefaultKey row, when present,
// overrides defaultLength.
func ToMaterialLengths(rows []MaterialLength, defaultLength float64) model.MaterialLengths {
	m := model.MaterialLengths{
		Lengths: make(map[string]float64, len(rows)),
		Default: defaultLength,
	}
	for _, row := range rows {
		if row.Key == DefaultKey {
			m.Default = row.Length
			continue
		}
		m.Lengths[row.Key] = row.Length
	}
	return m
}

// FromMaterialLengths converts a material table into rows sorted by key,
// including the default row.
func FromMaterialLengths(m model.MaterialLengths) []MaterialLength {
	rows := make([]MaterialLength, 0, len(m.Lengths)+1)
	if m.Default > 0 {
		rows = append(rows, MaterialLength{Key: DefaultKey, Length: m.Default})
	}
	for _, key := range m.Keys() {
		rows = append(rows, MaterialLength{Key: key, Length: m.Lengths[key]})
	}
	return rows
}
