package postgres

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// paginate applies LIMIT/OFFSET for a 1-based page.
func paginate(page, pageSize int) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if page < 1 {
			page = 1
		}
		return db.Offset((page - 1) * pageSize).Limit(pageSize)
	}
}

func totalPages(total int64, pageSize int) int {
	if pageSize <= 0 {
		return 0
	}
	return int((total + int64(pageSize) - 1) / int64(pageSize))
}

// contains builds an ILIKE pattern matching s anywhere, escaping wildcards.
func contains(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.TrimSpace(s)) + "%"
}

func nextDay(t time.Time) time.Time {
	return t.AddDate(0, 0, 1)
}
