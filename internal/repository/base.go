// Package repository implements the data access layer for the application.
package repository

import (
	"errors"
	"fmt"
	"strings"

	"safeguard/internal/models"

	"gorm.io/gorm"
)

// Scope restricts tenant-owned rows. All is set for super admins; otherwise
// only rows of CompanyID are visible, and a nil CompanyID sees nothing.
type Scope struct {
	All       bool
	CompanyID *uint
}

// ScopeFor derives the visibility scope of actor.
func ScopeFor(actor *models.User) Scope {
	if actor.IsSuperAdmin() {
		return Scope{All: true}
	}
	return Scope{CompanyID: actor.CompanyID}
}

func (s Scope) apply(db *gorm.DB, column string) *gorm.DB {
	if s.All {
		return db
	}
	if s.CompanyID == nil {
		return db.Where("1 = 0")
	}
	return db.Where(column+" = ?", *s.CompanyID)
}

// containsAny adds a case-insensitive substring match over columns. Postgres
// uses ILIKE; other dialects compare lower-cased values.
func containsAny(db *gorm.DB, query string, columns ...string) *gorm.DB {
	query = strings.TrimSpace(query)
	if query == "" || len(columns) == 0 {
		return db
	}

	format := "LOWER(%s) LIKE ?"
	pattern := "%" + strings.ToLower(query) + "%"
	if db.Dialector.Name() == "postgres" {
		format = "%s ILIKE ?"
		pattern = "%" + query + "%"
	}

	parts := make([]string, 0, len(columns))
	args := make([]interface{}, 0, len(columns))
	for _, col := range columns {
		parts = append(parts, fmt.Sprintf(format, col))
		args = append(args, pattern)
	}
	return db.Where("("+strings.Join(parts, " OR ")+")", args...)
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// notFoundOr maps gorm's not-found to an AppError and wraps anything else as
// an internal error.
func notFoundOr(err error, resource, message string) error {
	if isNotFound(err) {
		return models.NewNotFoundError(resource, message)
	}
	return models.NewInternalError(err)
}
