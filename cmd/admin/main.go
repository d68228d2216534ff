// Command admin provides operator utilities: role changes, attachment sweeps
// and a dump of the route table.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"safeguard/internal/cache"
	"safeguard/internal/config"
	"safeguard/internal/database"
	"safeguard/internal/middleware"
	"safeguard/internal/models"
	"safeguard/internal/repository"
	"safeguard/internal/server"
	"safeguard/internal/service"

	"github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

func usage() {
	fmt.Println("Usage:")
	fmt.Println("  go run ./cmd/admin promote <user_id|email>        - Promote user to company admin")
	fmt.Println("  go run ./cmd/admin promote-super <user_id|email>  - Promote user to super admin")
	fmt.Println("  go run ./cmd/admin demote <user_id|email>         - Demote admin to user")
	fmt.Println("  go run ./cmd/admin list-admins                    - List all admins")
	fmt.Println("  go run ./cmd/admin sweep                          - Delete expired chat attachments once")
	fmt.Println("  go run ./cmd/admin routes                         - Print the route table as YAML")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	middleware.SetupLogger(middleware.LogOptions{Env: cfg.Env, Level: "warn"})

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() { _ = database.Close(db) }()
	rdb := cache.InitRedis(cfg.RedisURL)

	ctx := context.Background()
	users := repository.NewUserRepository(db)

	command := os.Args[1]
	switch command {
	case "promote", "promote-super", "demote":
		if len(os.Args) < 3 {
			usage()
			os.Exit(1)
		}
		err = changeRole(ctx, users, rdb, command, os.Args[2])
	case "list-admins":
		err = listAdmins(ctx, db)
	case "sweep":
		sweeper := service.NewRetentionSweeper(repository.NewChatRepository(db), cfg.AttachmentRetention(), cfg.SweepInterval())
		var n int64
		if n, err = sweeper.Sweep(ctx); err == nil {
			fmt.Printf("Deleted %d expired attachments\n", n)
		}
	case "routes":
		err = dumpRoutes(cfg, db)
	default:
		fmt.Printf("Unknown command: %s\n", command)
		usage()
		os.Exit(1)
	}
	if err != nil {
		log.Fatal(err)
	}
}

func findUser(ctx context.Context, users repository.UserRepository, ref string) (*models.User, error) {
	if id, err := strconv.ParseUint(ref, 10, 64); err == nil {
		return users.GetByID(ctx, uint(id))
	}
	return users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(ref)))
}

func changeRole(ctx context.Context, users repository.UserRepository, rdb *redis.Client, command, ref string) error {
	user, err := findUser(ctx, users, ref)
	var appErr *models.AppError
	switch {
	case user == nil && err == nil, errors.As(err, &appErr) && appErr.Code == models.CodeNotFound:
		return fmt.Errorf("user %s not found", ref)
	case err != nil:
		return err
	}

	fields := map[string]interface{}{}
	switch command {
	case "promote":
		if user.CompanyID == nil {
			return fmt.Errorf("user %s has no company; company admins need one", user.Email)
		}
		fields["role"] = models.RoleAdmin
	case "promote-super":
		fields["role"] = models.RoleSuperAdmin
		fields["company_id"] = nil
	case "demote":
		if !user.IsAdmin() {
			fmt.Printf("User %s (ID: %d) is not an admin\n", user.Email, user.ID)
			return nil
		}
		fields["role"] = models.RoleUser
		fields["can_create_users"] = false
		fields["user_creation_limit"] = 0
	}

	if err := users.UpdateFields(ctx, user.ID, fields); err != nil {
		return err
	}
	cache.InvalidatePrincipals(ctx, rdb, user.ID)
	fmt.Printf("Updated %s (ID: %d): role=%v\n", user.Email, user.ID, fields["role"])
	return nil
}

func listAdmins(ctx context.Context, db *gorm.DB) error {
	var admins []models.User
	err := db.WithContext(ctx).
		Preload("Company").
		Where("role IN ?", []models.Role{models.RoleAdmin, models.RoleSuperAdmin}).
		Order("id").
		Find(&admins).Error
	if err != nil {
		return fmt.Errorf("failed to fetch admins: %w", err)
	}

	if len(admins) == 0 {
		fmt.Println("No admins found in the system")
		return nil
	}
	for _, admin := range admins {
		company := "-"
		if admin.Company != nil {
			company = admin.Company.Name
		}
		fmt.Printf("ID: %d | Role: %s | Email: %s | Company: %s\n", admin.ID, admin.Role, admin.Email, company)
	}
	return nil
}

func dumpRoutes(cfg *config.Config, db *gorm.DB) error {
	srv, err := server.NewServerWithDeps(cfg, db, nil)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	defer func() { _ = enc.Close() }()
	return enc.Encode(srv.Routes())
}
