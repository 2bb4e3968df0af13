// Package option provides composable gorm query modifiers shared by all
// repositories.
package option

import (
	"strconv"
	"time"

	"github.com/wellkit/vitals/pkg/db/pagination"
	"gorm.io/gorm"
)

type QueryOption interface {
	Apply(*gorm.DB) *gorm.DB
}

type queryOptionFunc func(*gorm.DB) *gorm.DB

func (f queryOptionFunc) Apply(db *gorm.DB) *gorm.DB { return f(db) }

func WithLimit(limit int) QueryOption {
	return queryOptionFunc(func(db *gorm.DB) *gorm.DB {
		if limit <= 0 {
			return db
		}
		return db.Limit(limit)
	})
}

func WithOrder(expr string) QueryOption {
	return queryOptionFunc(func(db *gorm.DB) *gorm.DB {
		if expr == "" {
			return db
		}
		return db.Order(expr)
	})
}

func WithWhere(query string, args ...any) QueryOption {
	return queryOptionFunc(func(db *gorm.DB) *gorm.DB {
		return db.Where(query, args...)
	})
}

func WithCreatedSince(at time.Time) QueryOption {
	return queryOptionFunc(func(db *gorm.DB) *gorm.DB {
		if at.IsZero() {
			return db
		}
		return db.Where("created_at >= ?", at)
	})
}

// ApplyPagination translates a cursor token into a keyset predicate and
// over-fetches one row so callers can detect another page.
func ApplyPagination(page pagination.Pagination) QueryOption {
	return queryOptionFunc(func(db *gorm.DB) *gorm.DB {
		size := page.PageSize
		if size <= 0 {
			size = 10
		}
		if size > 250 {
			size = 250
		}

		if page.PageToken != "" {
			cursor, err := pagination.DecodeCursor(page.PageToken)
			if err == nil && cursor != nil && cursor.CreatedAt != "" {
				// Bind typed values so the driver formats them the same
				// way it stored the columns.
				var createdAt any = cursor.CreatedAt
				if at, err := time.Parse(time.RFC3339Nano, cursor.CreatedAt); err == nil {
					createdAt = at
				}
				var id any = cursor.ID
				if parsed, err := strconv.ParseInt(cursor.ID, 10, 64); err == nil {
					id = parsed
				}
				db = db.Where("(created_at, id) < (?, ?)", createdAt, id)
			}
		}

		return db.Limit(size + 1)
	})
}
