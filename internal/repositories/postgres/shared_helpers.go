package postgres

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// getDB returns tx when the caller is inside a transaction, otherwise the
// base connection.
func getDB(db *gorm.DB, tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return db
}

// applyPagination applies limit/offset with sane defaults.
func applyPagination(query *gorm.DB, limit, offset int) *gorm.DB {
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}
	if offset < 0 {
		offset = 0
	}
	return query.Limit(limit).Offset(offset)
}

// applySorting whitelists sortable columns to keep user input out of the
// ORDER BY clause.
func applySorting(query *gorm.DB, sortBy, sortOrder string, allowed map[string]bool, fallback string) *gorm.DB {
	column := fallback
	if sortBy != "" && allowed[sortBy] {
		column = sortBy
	}

	order := "desc"
	if strings.EqualFold(sortOrder, "asc") {
		order = "asc"
	}

	return query.Order(fmt.Sprintf("%s %s", column, order))
}
