package seed

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"safeguard/internal/database"
	"safeguard/internal/models"

	"gorm.io/gorm"
)

// Options configures the seeder.
type Options struct {
	Companies              int
	UsersPerCompany        int
	ObservationsPerCompany int
	PostsPerUser           int
	MessagesPerCompany     int
	ShouldClean            bool
	SeedOptions
}

// Presets maps a preset name to its options.
var Presets = map[string]Options{
	"minimal": {Companies: 1, UsersPerCompany: 3, ObservationsPerCompany: 5, PostsPerUser: 0, MessagesPerCompany: 5},
	"demo":    {Companies: 3, UsersPerCompany: 8, ObservationsPerCompany: 25, PostsPerUser: 1, MessagesPerCompany: 30},
	"load":    {Companies: 10, UsersPerCompany: 40, ObservationsPerCompany: 400, PostsPerUser: 2, MessagesPerCompany: 200, SeedOptions: SeedOptions{SkipBcrypt: true}},
}

// Summary counts what a Seed run created.
type Summary struct {
	Companies    int
	Users        int
	Observations int
	Trainings    int
	Registers    int
	Posts        int
}

// workerCapabilities are granted to seeded workers in rotation so every
// capability is represented without giving everyone everything.
var workerCapabilities = [][]models.Capability{
	{models.CapObservation, models.CapTraining},
	{models.CapObservation, models.CapLostAndFound},
	{models.CapGatePass, models.CapTraining},
	{models.CapObservation, models.CapAskAI},
}

// Seed populates the database with demo tenants. Each company gets one admin
// holding every capability, a set of workers, and data in every feature area.
func Seed(ctx context.Context, db *gorm.DB, opts Options) (Summary, error) {
	var sum Summary
	slog.InfoContext(ctx, "seeding database",
		"companies", opts.Companies, "users_per_company", opts.UsersPerCompany, "dry_run", opts.DryRun)

	if opts.ShouldClean && !opts.DryRun {
		if err := Clean(ctx, db); err != nil {
			return sum, fmt.Errorf("clean: %w", err)
		}
	}

	f := NewFactory(db.WithContext(ctx), opts.SeedOptions)
	var everyone []*models.User
	for ci := 0; ci < opts.Companies; ci++ {
		company, err := f.CreateCompany()
		if err != nil {
			return sum, err
		}
		sum.Companies++

		admin, err := f.CreateUser(models.RoleAdmin, company, models.AllCapabilities, func(u *models.User) {
			u.Email = fmt.Sprintf("admin%d@%s", ci+1, emailDomain(company.Name))
			u.JobTitle = "HSE Manager"
			u.CanCreateUsers = true
			u.CreationLimit = 25
		})
		if err != nil {
			return sum, err
		}
		members := []*models.User{admin}
		for ui := 0; ui < opts.UsersPerCompany; ui++ {
			worker, err := f.CreateUser(models.RoleUser, company, workerCapabilities[ui%len(workerCapabilities)])
			if err != nil {
				return sum, err
			}
			members = append(members, worker)
		}
		sum.Users += len(members)
		everyone = append(everyone, members...)

		batch := make([]*models.Observation, 0, opts.ObservationsPerCompany)
		for i := 0; i < opts.ObservationsPerCompany; i++ {
			batch = append(batch, f.BuildObservation(members[i%len(members)]))
		}
		if err := f.CreateObservationsBatch(batch); err != nil {
			return sum, fmt.Errorf("observations for %s: %w", company.Name, err)
		}
		sum.Observations += len(batch)

		for i := 0; i < len(courses); i++ {
			if _, err := f.CreateTraining(admin, i); err != nil {
				return sum, err
			}
			sum.Trainings++
		}

		for i := 1; i <= 3; i++ {
			if _, err := f.CreateLostFoundItem(members[i%len(members)], i); err != nil {
				return sum, err
			}
			if _, err := f.CreateGatePass(admin, i); err != nil {
				return sum, err
			}
			sum.Registers += 2
		}

		if err := f.CreateCompanyChatter(ctx, company, members, opts.MessagesPerCompany); err != nil {
			return sum, fmt.Errorf("chatter for %s: %w", company.Name, err)
		}
		if len(members) > 1 {
			if err := f.CreatePrivateChat(ctx, admin, members[1], 4); err != nil {
				return sum, err
			}
		}
	}

	for _, u := range everyone {
		for i := 0; i < opts.PostsPerUser; i++ {
			if _, err := f.CreatePost(u); err != nil {
				return sum, err
			}
			sum.Posts++
		}
	}

	slog.InfoContext(ctx, "seeding complete",
		"companies", sum.Companies, "users", sum.Users, "observations", sum.Observations,
		"trainings", sum.Trainings, "registers", sum.Registers, "posts", sum.Posts)
	return sum, nil
}

// Clean removes every row from the schema-managed tables. Postgres uses a
// single TRUNCATE; other dialects delete table by table in reverse order.
func Clean(ctx context.Context, db *gorm.DB) error {
	slog.WarnContext(ctx, "clearing existing data")
	all := database.PersistentModels()
	if db.Dialector.Name() == "postgres" {
		tables := make([]string, 0, len(all))
		for _, model := range all {
			stmt := &gorm.Statement{DB: db}
			if err := stmt.Parse(model); err != nil {
				return err
			}
			tables = append(tables, stmt.Schema.Table)
		}
		return db.WithContext(ctx).Exec("TRUNCATE TABLE " + strings.Join(tables, ", ") + " RESTART IDENTITY CASCADE").Error
	}
	tx := db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true})
	for i := len(all) - 1; i >= 0; i-- {
		if err := tx.Delete(all[i]).Error; err != nil {
			return err
		}
	}
	return nil
}

func emailDomain(company string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(company) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "example.com"
	}
	return b.String() + ".example.com"
}
