// Package seed provides helpers to create demo data for the application
// database. These helpers are intended for development and testing only.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"safeguard/internal/models"
	"safeguard/internal/repository"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DemoPassword is the password every seeded account logs in with.
const DemoPassword = "password123"

// SeedOptions tunes how the Factory builds entities.
type SeedOptions struct {
	// DryRun builds entities and assigns synthetic IDs without writing.
	DryRun bool
	// SkipBcrypt hashes the demo password at bcrypt.MinCost.
	SkipBcrypt bool
	// MaxDays bounds how far back generated dates go.
	MaxDays int
}

// Factory builds domain entities and persists them to the database.
type Factory struct {
	db     *gorm.DB
	opts   SeedOptions
	chat   repository.ChatRepository
	rng    *rand.Rand
	hash   string
	nextID uint
}

var (
	areas = []string{
		"Loading bay", "Warehouse aisle 4", "Boiler room", "Canteen", "Scaffold B",
		"Paint shop", "Main gate", "Forklift route", "Roof access", "Workshop lathe",
	}
	hazards = []string{
		"Oil spill near walkway", "Missing guardrail on mezzanine", "Blocked fire exit",
		"Frayed extension cable", "Unsecured gas cylinder", "Worker without hard hat",
		"Damaged ladder rung", "Loose handrail", "Poor lighting at stairwell",
	}
	departments = []string{"Maintenance", "Operations", "Security", "Logistics", "HSE", "Admin"}
	itemTypes   = []string{"Wallet", "Phone", "Keys", "Helmet", "Jacket", "Laptop", "ID card"}
	gateItems   = []string{"Cordless drill", "Laptop", "Pressure washer", "Welding set", "Ladder", "Generator"}
	courses     = []struct {
		name      string
		questions []models.TrainingQuestion
	}{
		{"Working at Heights", []models.TrainingQuestion{
			{QuestionText: "Minimum guardrail height?", Option1: "0.5 m", Option2: "1.0 m", Option3: "1.5 m", Option4: "2.0 m", CorrectAnswer: 2},
			{QuestionText: "When is a harness inspected?", Option1: "Before each use", Option2: "Weekly", Option3: "Monthly", Option4: "Never", CorrectAnswer: 1},
		}},
		{"Fire Safety", []models.TrainingQuestion{
			{QuestionText: "Extinguisher for electrical fires?", Option1: "Water", Option2: "Foam", Option3: "CO2", Option4: "Wet chemical", CorrectAnswer: 3},
			{QuestionText: "First action on discovering a fire?", Option1: "Fight it", Option2: "Raise the alarm", Option3: "Collect belongings", Option4: "Call a friend", CorrectAnswer: 2},
			{QuestionText: "Fire doors should be", Option1: "Wedged open", Option2: "Locked", Option3: "Kept closed", Option4: "Removed", CorrectAnswer: 3},
		}},
		{"Manual Handling", []models.TrainingQuestion{
			{QuestionText: "Lift with your", Option1: "Back", Option2: "Legs", Option3: "Arms only", Option4: "Neck", CorrectAnswer: 2},
		}},
	}
)

// NewFactory creates a new Factory bound to the provided Gorm DB.
func NewFactory(db *gorm.DB, opts SeedOptions) *Factory {
	gofakeit.Seed(time.Now().UnixNano())
	return &Factory{
		db:     db,
		opts:   opts,
		chat:   repository.NewChatRepository(db),
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		nextID: 1000,
	}
}

func (f *Factory) assignID() uint {
	f.nextID++
	return f.nextID
}

func (f *Factory) passwordHash() (string, error) {
	if f.hash != "" {
		return f.hash, nil
	}
	cost := bcrypt.DefaultCost
	if f.opts.SkipBcrypt {
		cost = bcrypt.MinCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(DemoPassword), cost)
	if err != nil {
		return "", err
	}
	// every demo account shares the password, so one hash serves all
	f.hash = string(hashed)
	return f.hash, nil
}

// pastDate returns a YYYY-MM-DD date within the last MaxDays days.
func (f *Factory) pastDate() string {
	maxDays := f.opts.MaxDays
	if maxDays <= 0 {
		maxDays = 90
	}
	return time.Now().AddDate(0, 0, -f.rng.Intn(maxDays)).Format("2006-01-02")
}

func (f *Factory) pick(list []string) string {
	return list[f.rng.Intn(len(list))]
}

// CreateCompany inserts a company with a generated name.
func (f *Factory) CreateCompany(overrides ...func(*models.Company)) (*models.Company, error) {
	company := &models.Company{Name: gofakeit.Company()}
	for _, override := range overrides {
		override(company)
	}
	if f.opts.DryRun {
		company.ID = f.assignID()
		return company, nil
	}
	// generated names can collide with the unique index; retry a few times
	var err error
	for attempt := 0; attempt < 5; attempt++ {
		if err = f.db.Create(company).Error; err == nil {
			return company, nil
		}
		if !models.IsUniqueViolation(err) || len(overrides) > 0 {
			break
		}
		company.Name = gofakeit.Company() + " " + gofakeit.CompanySuffix()
	}
	return nil, fmt.Errorf("create company %q: %w", company.Name, err)
}

// CreateUser inserts a user with the demo password and the given capabilities.
func (f *Factory) CreateUser(role models.Role, company *models.Company, caps []models.Capability, overrides ...func(*models.User)) (*models.User, error) {
	hash, err := f.passwordHash()
	if err != nil {
		return nil, err
	}
	person := gofakeit.Person()
	user := &models.User{
		Email:           strings.ToLower(gofakeit.Username() + "." + gofakeit.LetterN(4) + "@" + gofakeit.DomainName()),
		PasswordHash:    hash,
		Role:            role,
		FullName:        person.FirstName + " " + person.LastName,
		Phone:           person.Contact.Phone,
		JobTitle:        person.Job.Title,
		Industry:        "General",
		ProfileComplete: true,
	}
	if company != nil {
		user.CompanyID = &company.ID
	}
	for _, c := range caps {
		user.Capabilities = append(user.Capabilities, models.UserCapability{Capability: c})
	}
	for _, override := range overrides {
		override(user)
	}
	if f.opts.DryRun {
		user.ID = f.assignID()
		return user, nil
	}
	if err := f.db.Create(user).Error; err != nil {
		return nil, fmt.Errorf("create user %s: %w", user.Email, err)
	}
	return user, nil
}

// BuildObservation returns an unsaved observation with a consistent risk rating.
func (f *Factory) BuildObservation(author *models.User, overrides ...func(*models.Observation)) *models.Observation {
	likelihood := models.RiskScaleMin + f.rng.Intn(models.RiskScaleMax)
	severity := models.RiskScaleMin + f.rng.Intn(models.RiskScaleMax)
	o := &models.Observation{
		UserID:           author.ID,
		CompanyID:        author.CompanyID,
		Date:             f.pastDate(),
		AreaEquipment:    f.pick(areas),
		Description:      f.pick(hazards),
		Impact:           gofakeit.Sentence(8),
		Likelihood:       likelihood,
		Severity:         severity,
		CorrectiveAction: gofakeit.Sentence(6),
		Deadline:         time.Now().AddDate(0, 0, 7+f.rng.Intn(21)).Format("2006-01-02"),
	}
	for _, override := range overrides {
		override(o)
	}
	o.RiskRating = models.RiskRating(o.Likelihood, o.Severity)
	return o
}

// CreateObservationsBatch persists observations in a single DB call.
func (f *Factory) CreateObservationsBatch(items []*models.Observation) error {
	if len(items) == 0 {
		return nil
	}
	if f.opts.DryRun {
		for _, o := range items {
			o.ID = f.assignID()
		}
		slog.Info("dry-run observations", "count", len(items))
		return nil
	}
	return f.db.Create(&items).Error
}

// CreateTraining inserts one of the canned courses for the company.
func (f *Factory) CreateTraining(author *models.User, index int) (*models.Training, error) {
	if author.CompanyID == nil {
		return nil, fmt.Errorf("training author %d has no company", author.ID)
	}
	course := courses[index%len(courses)]
	training := &models.Training{
		CompanyID:   *author.CompanyID,
		CreatedBy:   author.ID,
		Name:        course.name,
		Description: gofakeit.Sentence(10),
		VideoLink:   gofakeit.URL(),
	}
	for i, q := range course.questions {
		q.QuestionOrder = i + 1
		training.Questions = append(training.Questions, q)
	}
	if f.opts.DryRun {
		training.ID = f.assignID()
		return training, nil
	}
	if err := f.db.Create(training).Error; err != nil {
		return nil, fmt.Errorf("create training %q: %w", training.Name, err)
	}
	return training, nil
}

// CreateLostFoundItem inserts a register entry with a per-company ticket.
func (f *Factory) CreateLostFoundItem(author *models.User, seq int) (*models.LostFoundItem, error) {
	item := &models.LostFoundItem{
		UserID:          author.ID,
		CompanyID:       author.CompanyID,
		EntryDate:       f.pastDate(),
		EntryTime:       fmt.Sprintf("%02d:%02d", f.rng.Intn(24), f.rng.Intn(60)),
		TicketNo:        fmt.Sprintf("LF-%04d", seq),
		ItemType:        f.pick(itemTypes),
		ItemDescription: gofakeit.Color() + " " + gofakeit.Noun(),
		LocationFound:   f.pick(areas),
		FoundBy:         gofakeit.Name(),
		Department:      f.pick(departments),
		Status:          models.LostFoundUnclaimed,
	}
	if f.opts.DryRun {
		item.ID = f.assignID()
		return item, nil
	}
	if err := f.db.Create(item).Error; err != nil {
		return nil, fmt.Errorf("create lost and found item %s: %w", item.TicketNo, err)
	}
	return item, nil
}

// CreateGatePass inserts a returnable gate pass with a per-company number.
func (f *Factory) CreateGatePass(author *models.User, seq int) (*models.GatePass, error) {
	due := time.Now().AddDate(0, 0, 3+f.rng.Intn(14)).Format("2006-01-02")
	pass := &models.GatePass{
		UserID:                author.ID,
		CompanyID:             author.CompanyID,
		DateIssued:            f.pastDate(),
		GatePassNumber:        fmt.Sprintf("GP-%04d", seq),
		ItemDescription:       f.pick(gateItems),
		IssuedTo:              gofakeit.Name(),
		IssuedToCompany:       gofakeit.Company(),
		PurposeOfRemoval:      "Repair",
		AuthorizedBy:          gofakeit.Name(),
		AuthorizingDepartment: f.pick(departments),
		Type:                  "returnable",
		DateToBeReturned:      &due,
		Status:                models.GatePassNotReturned,
	}
	if f.opts.DryRun {
		pass.ID = f.assignID()
		return pass, nil
	}
	if err := f.db.Create(pass).Error; err != nil {
		return nil, fmt.Errorf("create gate pass %s: %w", pass.GatePassNumber, err)
	}
	return pass, nil
}

// CreatePost inserts a marketplace listing.
func (f *Factory) CreatePost(owner *models.User, overrides ...func(*models.Post)) (*models.Post, error) {
	post := &models.Post{
		Title:       gofakeit.ProductName(),
		Description: gofakeit.ProductDescription(),
		Summary:     gofakeit.Sentence(6),
		ContactInfo: owner.Email,
		OwnerID:     owner.ID,
	}
	for _, override := range overrides {
		override(post)
	}
	if f.opts.DryRun {
		post.ID = f.assignID()
		return post, nil
	}
	if err := f.db.Create(post).Error; err != nil {
		return nil, fmt.Errorf("create post %q: %w", post.Title, err)
	}
	return post, nil
}

// CreateCompanyChatter posts count messages from random members into the
// company channel.
func (f *Factory) CreateCompanyChatter(ctx context.Context, company *models.Company, members []*models.User, count int) error {
	if len(members) == 0 || count <= 0 {
		return nil
	}
	if f.opts.DryRun {
		slog.Info("dry-run company chatter", "company", company.Name, "count", count)
		return nil
	}
	room, err := f.chat.GetOrCreateCompanyRoom(ctx, company)
	if err != nil {
		return err
	}
	for i := 0; i < count; i++ {
		msg := &models.Message{
			RoomID:   room.ID,
			SenderID: members[f.rng.Intn(len(members))].ID,
			Content:  gofakeit.Sentence(5 + f.rng.Intn(8)),
			IsRead:   true,
		}
		if err := f.chat.CreateMessage(ctx, msg); err != nil {
			return err
		}
	}
	return nil
}

// CreatePrivateChat exchanges count alternating messages between a and b.
func (f *Factory) CreatePrivateChat(ctx context.Context, a, b *models.User, count int) error {
	if f.opts.DryRun {
		return nil
	}
	room, err := f.chat.GetOrCreatePrivateRoom(ctx, a, b)
	if err != nil {
		return err
	}
	for i := 0; i < count; i++ {
		sender := a
		if i%2 == 1 {
			sender = b
		}
		msg := &models.Message{RoomID: room.ID, SenderID: sender.ID, Content: gofakeit.Sentence(6)}
		if err := f.chat.CreateMessage(ctx, msg); err != nil {
			return err
		}
	}
	return nil
}
