// Command seed fills the database with demo tenants.
package main

import (
	"context"
	"flag"
	"log"
	"sort"
	"strings"

	"safeguard/internal/config"
	"safeguard/internal/database"
	"safeguard/internal/middleware"
	"safeguard/internal/seed"
)

func main() {
	preset := flag.String("preset", "demo", "Seed preset: "+presetNames())
	companies := flag.Int("companies", 0, "Override the number of companies")
	users := flag.Int("users", 0, "Override the number of workers per company")
	observations := flag.Int("observations", 0, "Override the number of observations per company")
	clean := flag.Bool("clean", true, "Clean database before seeding")
	dryRun := flag.Bool("dry-run", false, "Build entities without writing them")
	flag.Parse()

	opts, ok := seed.Presets[*preset]
	if !ok {
		log.Fatalf("Unknown preset %q (available: %s)", *preset, presetNames())
	}
	if *companies > 0 {
		opts.Companies = *companies
	}
	if *users > 0 {
		opts.UsersPerCompany = *users
	}
	if *observations > 0 {
		opts.ObservationsPerCompany = *observations
	}
	opts.ShouldClean = *clean
	opts.DryRun = *dryRun

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.IsProduction() {
		log.Fatal("Refusing to seed a production database")
	}
	middleware.SetupLogger(middleware.LogOptions{Env: cfg.Env, Level: cfg.LogLevel})

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() { _ = database.Close(db) }()

	sum, err := seed.Seed(context.Background(), db, opts)
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Printf("Seeded %d companies, %d users, %d observations, %d trainings, %d register entries, %d posts",
		sum.Companies, sum.Users, sum.Observations, sum.Trainings, sum.Registers, sum.Posts)
	log.Printf("All seeded users have the password: %s", seed.DemoPassword)
}

func presetNames() string {
	names := make([]string, 0, len(seed.Presets))
	for name := range seed.Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}
