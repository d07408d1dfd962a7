package utils

import (
	"github.com/gofiber/fiber/v2"
)

const maxPageSize = 100

// Paginate reads page and limit query parameters with sane bounds.
func Paginate(c *fiber.Ctx) (page, limit, offset int) {
	page = c.QueryInt("page", 1)
	limit = c.QueryInt("limit", 10)
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return page, limit, (page - 1) * limit
}

// Pages returns how many pages of size limit hold total items.
func Pages(total int64, limit int) int {
	if limit <= 0 {
		return 0
	}
	return (int(total) + limit - 1) / limit
}
