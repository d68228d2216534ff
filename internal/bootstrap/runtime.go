// Package bootstrap wires the process-wide runtime: database, Redis and the
// development super admin.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"safeguard/internal/auth"
	"safeguard/internal/cache"
	"safeguard/internal/config"
	"safeguard/internal/database"
	"safeguard/internal/middleware"
	"safeguard/internal/models"
	"safeguard/internal/seed"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// DefaultRootEmail is used when DEV_ROOT_EMAIL is empty.
const DefaultRootEmail = "root@safeguard.local"

// Options control runtime initialization behavior.
type Options struct {
	// SeedDemo loads the "demo" seed preset into an empty database.
	SeedDemo bool
}

// InitRuntime connects to DB and Redis and prepares development data.
// The Redis client is nil when REDIS_URL is empty or unreachable.
func InitRuntime(cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	rdb := cache.InitRedis(cfg.RedisURL)

	ctx := context.Background()
	if err := EnsureDevRootAdmin(ctx, cfg, db); err != nil {
		return nil, nil, fmt.Errorf("failed to bootstrap development root admin: %w", err)
	}

	if opts.SeedDemo {
		if err := seedIfEmpty(ctx, db); err != nil {
			return nil, nil, fmt.Errorf("failed to seed demo data: %w", err)
		}
	}

	return db, rdb, nil
}

// EnsureDevRootAdmin creates or promotes the configured super admin. It only
// acts in development with DEV_BOOTSTRAP_ROOT set, and always resets the
// password to DEV_ROOT_PASSWORD so a forgotten local login can be recovered.
func EnsureDevRootAdmin(ctx context.Context, cfg *config.Config, db *gorm.DB) error {
	if cfg == nil || db == nil {
		return nil
	}
	if !strings.EqualFold(cfg.Env, "development") || !cfg.DevBootstrapRoot {
		return nil
	}

	email := strings.ToLower(strings.TrimSpace(cfg.DevRootEmail))
	if email == "" {
		email = DefaultRootEmail
	}
	if strings.TrimSpace(cfg.DevRootPassword) == "" {
		return errors.New("DEV_ROOT_PASSWORD is required when DEV_BOOTSTRAP_ROOT is enabled")
	}
	hash, err := auth.HashPassword(cfg.DevRootPassword)
	if err != nil {
		return err
	}

	var user models.User
	err = db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		user = models.User{
			Email:           email,
			PasswordHash:    hash,
			Role:            models.RoleSuperAdmin,
			FullName:        "Root",
			Industry:        "General",
			ProfileComplete: true,
			CanCreateUsers:  true,
			CreationLimit:   models.UnlimitedUsers,
		}
		if err := db.WithContext(ctx).Create(&user).Error; err != nil {
			return err
		}
		middleware.Logger.InfoContext(ctx, "created development root admin", slog.String("email", email))
		return nil
	case err != nil:
		return err
	}

	// super admins carry no company
	updates := map[string]any{
		"password_hash":       hash,
		"role":                models.RoleSuperAdmin,
		"company_id":          nil,
		"can_create_users":    true,
		"user_creation_limit": models.UnlimitedUsers,
	}
	if err := db.WithContext(ctx).Model(&user).Updates(updates).Error; err != nil {
		return err
	}
	middleware.Logger.InfoContext(ctx, "promoted development root admin",
		slog.String("email", email), slog.Uint64("user_id", uint64(user.ID)))
	return nil
}

func seedIfEmpty(ctx context.Context, db *gorm.DB) error {
	var companies int64
	if err := db.WithContext(ctx).Model(&models.Company{}).Count(&companies).Error; err != nil {
		return err
	}
	if companies > 0 {
		middleware.Logger.InfoContext(ctx, "skipping demo seed, companies already present", slog.Int64("companies", companies))
		return nil
	}
	_, err := seed.Seed(ctx, db, seed.Presets["demo"])
	return err
}
