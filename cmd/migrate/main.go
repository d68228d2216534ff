// Command migrate applies or inspects the schema. Production servers never
// migrate on startup, so deploys run "migrate up" first.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"

	"safeguard/internal/config"
	"safeguard/internal/database"
	"safeguard/internal/middleware"

	"gorm.io/gorm"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func usage() error {
	return fmt.Errorf("usage: go run ./cmd/migrate <up|status>")
}

func run() error {
	flag.Parse()
	if flag.NArg() < 1 {
		return usage()
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	middleware.SetupLogger(middleware.LogOptions{Env: cfg.Env, Level: cfg.LogLevel})

	db, err := database.Connect(cfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer func() { _ = database.Close(db) }()

	ctx := context.Background()
	switch strings.ToLower(strings.TrimSpace(flag.Arg(0))) {
	case "up":
		if err := database.ApplySchema(ctx, db); err != nil {
			return err
		}
		log.Println("schema applied")
	case "status":
		return printStatus(db)
	default:
		return usage()
	}
	return nil
}

func printStatus(db *gorm.DB) error {
	missing := 0
	for _, model := range database.PersistentModels() {
		stmt := &gorm.Statement{DB: db}
		if err := stmt.Parse(model); err != nil {
			return err
		}
		state := "ok"
		if !db.Migrator().HasTable(model) {
			state = "missing"
			missing++
		}
		fmt.Printf("%-24s %s\n", stmt.Schema.Table, state)
	}
	if missing > 0 {
		return fmt.Errorf("%d tables missing; run migrate up", missing)
	}
	return nil
}
