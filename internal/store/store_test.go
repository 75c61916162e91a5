package store

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/piwi3910/CutFrame/internal/model"
)

// dryRunDB returns a postgres-dialect session that renders SQL without a server.
func dryRunDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(postgres.Open("host=localhost user=test dbname=test sslmode=disable"), &gorm.Config{
		DryRun:                 true,
		DisableAutomaticPing:   true,
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	return db
}

func TestToMaterialLengths(t *testing.T) {
	rows := []MaterialLength{
		{Key: "HMST-82-01", Length: 238},
		{Key: DefaultKey, Length: 240},
		{Key: "HMST-130-01", Length: 181},
	}

	m := ToMaterialLengths(rows, 233)

	assert.Equal(t, 240.0, m.Default)
	assert.Equal(t, map[string]float64{"HMST-82-01": 238, "HMST-130-01": 181}, m.Lengths)
	assert.Equal(t, 181.0, m.MaterialLength("HMST130-01WH"))
	assert.Equal(t, 240.0, m.MaterialLength("UNKNOWN"))
}

func TestToMaterialLengths_NoDefaultRow(t *testing.T) {
	m := ToMaterialLengths(nil, 233)
	assert.Equal(t, 233.0, m.Default)
	assert.NotNil(t, m.Lengths)
}

func TestFromMaterialLengths(t *testing.T) {
	rows := FromMaterialLengths(model.DefaultMaterialLengths())

	require.Len(t, rows, 10)
	assert.Equal(t, MaterialLength{Key: DefaultKey, Length: model.DefaultStockLength}, rows[0])
	assert.Equal(t, "HMST-130-01", rows[1].Key)

	back := ToMaterialLengths(rows, 1)
	assert.Equal(t, model.DefaultMaterialLengths(), back)
}

func TestUpsert_RendersOnConflict(t *testing.T) {
	db := dryRunDB(t)

	row := MaterialLength{Key: "HMST-82-01", Length: 240}
	stmt := db.Clauses(upsertClause()).Create(&row).Statement
	sql := stmt.SQL.String()

	assert.Contains(t, sql, `INSERT INTO "material_lengths"`)
	assert.Contains(t, sql, `ON CONFLICT ("key") DO UPDATE SET`)
	assert.True(t, strings.Contains(sql, `"length"="excluded"."length"`), sql)
}

func TestUpsert_Validation(t *testing.T) {
	repo := NewRepository(dryRunDB(t), 0)
	ctx := context.Background()

	assert.Error(t, repo.Upsert(ctx, "", 100))
	assert.Error(t, repo.Upsert(ctx, "HMST-82-01", 0))
	assert.Error(t, repo.Upsert(ctx, "HMST-82-01", -5))
	assert.NoError(t, repo.Upsert(ctx, "HMST-82-01", 240))
}

func TestNewRepository_DefaultLength(t *testing.T) {
	repo := NewRepository(nil, 0)
	assert.Equal(t, model.DefaultStockLength, repo.defaultLength)

	repo = NewRepository(nil, 250)
	assert.Equal(t, 250.0, repo.defaultLength)
}
