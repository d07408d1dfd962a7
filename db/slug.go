package db

import (
	"fmt"

	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

// UniqueSlug derives a slug from name that no row of model uses yet in the
// slug column, appending -2, -3, ... on collision. scope narrows the check,
// e.g. to one category for subcategories.
func UniqueSlug(tx *gorm.DB, model interface{}, name string, scope map[string]interface{}) (string, error) {
	base := slug.MakeLang(name, "es")
	if base == "" {
		base = "item"
	}
	candidate := base
	for i := 2; ; i++ {
		var count int64
		q := tx.Model(model).Where("slug = ?", candidate)
		if len(scope) > 0 {
			q = q.Where(scope)
		}
		if err := q.Count(&count).Error; err != nil {
			return "", fmt.Errorf("check slug %q: %w", candidate, err)
		}
		if count == 0 {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
}
