package postgres

import (
	"strings"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/submission-service/internal/repositories"
)

// ApplySubmissionFilters applies the read-side filters to a query. Free text
// is a case-insensitive substring match across title and owner handle; date
// bounds are inclusive on the target date.
func ApplySubmissionFilters(query *gorm.DB, filters repositories.SubmissionFilters) *gorm.DB {
	if filters.FreeText != nil && *filters.FreeText != "" {
		like := "%" + strings.ToLower(*filters.FreeText) + "%"
		query = query.Where("LOWER(title) LIKE ? OR LOWER(owner_username) LIKE ?", like, like)
	}
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.Owner != nil {
		query = query.Where("owner_username = ?", *filters.Owner)
	}
	if filters.DateFrom != nil {
		query = query.Where("target_date >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("target_date <= ?", *filters.DateTo)
	}
	return query
}

// ApplySorting applies sort options with a whitelist of sortable columns.
func ApplySorting(query *gorm.DB, sortBy, sortOrder string) *gorm.DB {
	column := "created_at"
	switch sortBy {
	case "title":
		column = "title"
	case "target_date":
		column = "target_date"
	case "status":
		column = "status"
	case "created_at", "":
	}

	order := "DESC"
	if strings.EqualFold(sortOrder, "asc") {
		order = "ASC"
	}

	return query.Order(column + " " + order)
}

// ApplyPagination applies limit/offset with a sane default page size.
// A negative limit disables pagination entirely (full exports).
func ApplyPagination(query *gorm.DB, limit, offset int) *gorm.DB {
	if limit < 0 {
		return query
	}
	if limit == 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	if offset < 0 {
		offset = 0
	}
	return query.Limit(limit).Offset(offset)
}
