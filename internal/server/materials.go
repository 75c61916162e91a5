package server

import (
	"context"
	"sync"

	"github.com/piwi3910/CutFrame/internal/model"
	"github.com/piwi3910/CutFrame/internal/project"
)

// MaterialStore is where the server reads and updates stock lengths.
// *store.Repository implements it for PostgreSQL.
type MaterialStore interface {
	Lengths(ctx context.Context) (model.MaterialLengths, error)
	Update(ctx context.Context, updates map[string]float64, defaultLength float64) (model.MaterialLengths, error)
}

// FileMaterials keeps the material table in a JSON file. Reads and
// read-merge-write updates are serialized so concurrent requests cannot
// drop each other's entries.
type FileMaterials struct {
	Path string

	mu sync.Mutex
}

// NewFileMaterials returns a store backed by the JSON file at path.
func NewFileMaterials(path string) *FileMaterials {
	return &FileMaterials{Path: path}
}

func (f *FileMaterials) Lengths(context.Context) (model.MaterialLengths, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return project.LoadMaterialLengths(f.Path)
}

func (f *FileMaterials) Update(_ context.Context, updates map[string]float64, defaultLength float64) (model.MaterialLengths, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return project.UpdateMaterialLengths(f.Path, updates, defaultLength)
}
