// Package testutil provides shared test doubles and fixtures for backend tests.
package testutil

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"safeguard/internal/database"
	"safeguard/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewTestDB opens a private in-memory sqlite database with the full schema.
// A single connection keeps every query on the same memory database.
func NewTestDB(t testing.TB) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
		t.Fatalf("enable foreign keys: %v", err)
	}
	if err := database.ApplySchema(context.Background(), db); err != nil {
		t.Fatalf("apply schema: %v", err)
	}
	return db
}

// MakeCompany inserts a company with a random unique name.
func MakeCompany(t testing.TB, db *gorm.DB) *models.Company {
	t.Helper()
	c := &models.Company{Name: gofakeit.Company() + " " + gofakeit.UUID()[:8]}
	if err := db.Create(c).Error; err != nil {
		t.Fatalf("create company: %v", err)
	}
	return c
}

// UserOption customizes MakeUser.
type UserOption func(*models.User)

// WithCapabilities grants caps to the new user.
func WithCapabilities(caps ...models.Capability) UserOption {
	return func(u *models.User) {
		for _, c := range caps {
			u.Capabilities = append(u.Capabilities, models.UserCapability{Capability: c})
		}
	}
}

// WithAdminSettings sets the user creation settings of an admin.
func WithAdminSettings(canCreate bool, limit int) UserOption {
	return func(u *models.User) {
		u.CanCreateUsers = canCreate
		u.CreationLimit = limit
	}
}

// WithPassword stores hash as the password hash.
func WithPassword(hash string) UserOption {
	return func(u *models.User) {
		u.PasswordHash = hash
	}
}

// MakeUser inserts a user of role in company (nil for none) and reloads it
// with company and capabilities.
func MakeUser(t testing.TB, db *gorm.DB, role models.Role, company *models.Company, opts ...UserOption) *models.User {
	t.Helper()
	u := &models.User{
		Email:        strings.ToLower(gofakeit.Username() + "." + gofakeit.UUID()[:8] + "@example.com"),
		PasswordHash: "not-a-real-hash",
		Role:         role,
		FullName:     gofakeit.Name(),
		Industry:     "General",
	}
	if company != nil {
		id := company.ID
		u.CompanyID = &id
	}
	for _, opt := range opts {
		opt(u)
	}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}

	var loaded models.User
	if err := db.Preload("Company").Preload("Capabilities").First(&loaded, u.ID).Error; err != nil {
		t.Fatalf("reload user: %v", err)
	}
	return &loaded
}

// TinyPNG returns a w×h PNG filled with c.
func TinyPNG(t testing.TB, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	buf := bytes.NewBuffer(nil)
	if err := png.Encode(buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}
