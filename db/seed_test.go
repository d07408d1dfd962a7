package db

import (
	"testing"

	"github.com/meinhoongagan/referencias-locales/db/dbtest"
	"github.com/meinhoongagan/referencias-locales/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSeedCategories_Idempotent(t *testing.T) {
	gdb := dbtest.New(t)
	log := zap.NewNop()

	require.NoError(t, SeedCategories(gdb, log))
	var cats, subs int64
	gdb.Model(&models.Category{}).Count(&cats)
	gdb.Model(&models.Subcategory{}).Count(&subs)
	assert.Equal(t, int64(len(defaultCategories)), cats)

	require.NoError(t, SeedCategories(gdb, log))
	var cats2, subs2 int64
	gdb.Model(&models.Category{}).Count(&cats2)
	gdb.Model(&models.Subcategory{}).Count(&subs2)
	assert.Equal(t, cats, cats2)
	assert.Equal(t, subs, subs2)

	var hogar models.Category
	require.NoError(t, gdb.Where("slug = ?", "hogar").First(&hogar).Error)
	var plomeria models.Subcategory
	require.NoError(t, gdb.Where("category_id = ? AND slug = ?", hogar.ID, "plomeria").First(&plomeria).Error)
}

func TestBackfillSlugs(t *testing.T) {
	gdb := dbtest.New(t)
	log := zap.NewNop()

	require.NoError(t, gdb.Create(&models.Category{Name: "Jardinería", Slug: "jardineria"}).Error)
	require.NoError(t, gdb.Exec("INSERT INTO categories (name) VALUES (?)", "Jardinería").Error)
	require.NoError(t, gdb.Exec("INSERT INTO providers (user_id, business_name) VALUES (?, ?)", 1, "Tacos Doña Lupe").Error)

	require.NoError(t, BackfillSlugs(gdb, log))

	var cats []models.Category
	require.NoError(t, gdb.Order("id").Find(&cats).Error)
	require.Len(t, cats, 2)
	assert.Equal(t, "jardineria", cats[0].Slug)
	assert.Equal(t, "jardineria-2", cats[1].Slug)

	var p models.Provider
	require.NoError(t, gdb.First(&p).Error)
	assert.Equal(t, "tacos-dona-lupe", p.Slug)

	// second run touches nothing
	require.NoError(t, BackfillSlugs(gdb, log))
	require.NoError(t, gdb.First(&p).Error)
	assert.Equal(t, "tacos-dona-lupe", p.Slug)
}

func TestUniqueSlug_Scoped(t *testing.T) {
	gdb := dbtest.New(t)
	require.NoError(t, gdb.Create(&models.Subcategory{CategoryID: 1, Name: "Uñas", Slug: "unas"}).Error)

	s, err := UniqueSlug(gdb, &models.Subcategory{}, "Uñas", map[string]interface{}{"category_id": 2})
	require.NoError(t, err)
	assert.Equal(t, "unas", s)

	s, err = UniqueSlug(gdb, &models.Subcategory{}, "Uñas", map[string]interface{}{"category_id": 1})
	require.NoError(t, err)
	assert.Equal(t, "unas-2", s)
}
