package db

import (
	"fmt"

	"github.com/gosimple/slug"
	"github.com/meinhoongagan/referencias-locales/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type seedCategory struct {
	Name          string
	Icon          string
	Subcategories []string
}

var defaultCategories = []seedCategory{
	{Name: "Hogar", Icon: "home", Subcategories: []string{"Plomería", "Electricidad", "Carpintería", "Pintura", "Limpieza"}},
	{Name: "Comida", Icon: "utensils", Subcategories: []string{"Comida casera", "Repostería", "Antojitos", "Banquetes"}},
	{Name: "Belleza", Icon: "scissors", Subcategories: []string{"Estética", "Uñas", "Barbería", "Maquillaje"}},
	{Name: "Salud", Icon: "heart", Subcategories: []string{"Enfermería", "Fisioterapia", "Nutrición"}},
	{Name: "Educación", Icon: "book", Subcategories: []string{"Clases particulares", "Idiomas", "Música"}},
	{Name: "Mascotas", Icon: "paw", Subcategories: []string{"Paseo", "Estética canina", "Entrenamiento"}},
	{Name: "Transporte", Icon: "truck", Subcategories: []string{"Mudanzas", "Mandados", "Fletes"}},
	{Name: "Tecnología", Icon: "cpu", Subcategories: []string{"Reparación de celulares", "Computadoras", "Redes"}},
}

// SeedCategories inserts the default categories and subcategories that are not
// present yet. Safe to run on every start.
func SeedCategories(db *gorm.DB, log *zap.Logger) error {
	created := 0
	for _, sc := range defaultCategories {
		var cat models.Category
		res := db.Where("slug = ?", slug.MakeLang(sc.Name, "es")).Limit(1).Find(&cat)
		if res.Error != nil {
			return fmt.Errorf("lookup category %q: %w", sc.Name, res.Error)
		}
		if res.RowsAffected == 0 {
			cat = models.Category{Name: sc.Name, Slug: slug.MakeLang(sc.Name, "es"), Icon: sc.Icon}
			if err := db.Create(&cat).Error; err != nil {
				return fmt.Errorf("create category %q: %w", sc.Name, err)
			}
			created++
		}

		for _, name := range sc.Subcategories {
			s := slug.MakeLang(name, "es")
			var count int64
			if err := db.Model(&models.Subcategory{}).
				Where("category_id = ? AND slug = ?", cat.ID, s).
				Count(&count).Error; err != nil {
				return fmt.Errorf("lookup subcategory %q: %w", name, err)
			}
			if count > 0 {
				continue
			}
			if err := db.Create(&models.Subcategory{CategoryID: cat.ID, Name: name, Slug: s}).Error; err != nil {
				return fmt.Errorf("create subcategory %q: %w", name, err)
			}
			created++
		}
	}
	log.Info("category seed finished", zap.Int("created", created))
	return nil
}

// BackfillSlugs assigns slugs to categories, subcategories and providers that
// were stored without one. Rows that already have a slug are left untouched.
func BackfillSlugs(db *gorm.DB, log *zap.Logger) error {
	var categories []models.Category
	if err := db.Where("slug = '' OR slug IS NULL").Find(&categories).Error; err != nil {
		return fmt.Errorf("load categories: %w", err)
	}
	for _, c := range categories {
		s, err := UniqueSlug(db, &models.Category{}, c.Name, nil)
		if err != nil {
			return err
		}
		if err := db.Model(&models.Category{}).Where("id = ?", c.ID).Update("slug", s).Error; err != nil {
			return fmt.Errorf("update category %d slug: %w", c.ID, err)
		}
	}

	var subcategories []models.Subcategory
	if err := db.Where("slug = '' OR slug IS NULL").Find(&subcategories).Error; err != nil {
		return fmt.Errorf("load subcategories: %w", err)
	}
	for _, sc := range subcategories {
		s, err := UniqueSlug(db, &models.Subcategory{}, sc.Name, map[string]interface{}{"category_id": sc.CategoryID})
		if err != nil {
			return err
		}
		if err := db.Model(&models.Subcategory{}).Where("id = ?", sc.ID).Update("slug", s).Error; err != nil {
			return fmt.Errorf("update subcategory %d slug: %w", sc.ID, err)
		}
	}

	var providers []models.Provider
	if err := db.Where("slug = '' OR slug IS NULL").Find(&providers).Error; err != nil {
		return fmt.Errorf("load providers: %w", err)
	}
	for _, p := range providers {
		s, err := UniqueSlug(db, &models.Provider{}, p.BusinessName, nil)
		if err != nil {
			return err
		}
		if err := db.Model(&models.Provider{}).Where("id = ?", p.ID).Update("slug", s).Error; err != nil {
			return fmt.Errorf("update provider %d slug: %w", p.ID, err)
		}
	}

	log.Info("slug backfill finished",
		zap.Int("categories", len(categories)),
		zap.Int("subcategories", len(subcategories)),
		zap.Int("providers", len(providers)))
	return nil
}
