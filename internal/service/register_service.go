package service

import (
	"context"
	"strings"

	"safeguard/internal/models"
	"safeguard/internal/repository"
)

func requireCapability(actor *models.User, c models.Capability) error {
	if !actor.Can(c) {
		return models.NewForbiddenError(models.PermissionDeniedMessage)
	}
	return nil
}

// optionalPhoto normalizes data when present.
func optionalPhoto(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}
	return NormalizePhoto(data, RecordPhotoMaxSide)
}

func optionalString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// LostFoundService manages the company lost-and-found register.
type LostFoundService struct {
	repo repository.LostFoundRepository
}

func NewLostFoundService(repo repository.LostFoundRepository) *LostFoundService {
	return &LostFoundService{repo: repo}
}

type LostFoundInput struct {
	EntryDate          string `json:"entry_date" form:"entry_date"`
	EntryTime          string `json:"entry_time" form:"entry_time"`
	TicketNo           string `json:"ticket_no" form:"ticket_no"`
	ItemType           string `json:"item_type" form:"item_type"`
	ItemDescription    string `json:"item_description" form:"item_description"`
	LocationFound      string `json:"location_found" form:"location_found"`
	FoundBy            string `json:"found_by" form:"found_by"`
	Department         string `json:"department" form:"department"`
	ReceivedBySecurity string `json:"received_by_security" form:"received_by_security"`
	StoredIn           string `json:"stored_in" form:"stored_in"`
	Photo              []byte `json:"-" form:"-"`
}

// ClaimInput records the hand-over of a found item.
type ClaimInput struct {
	Status            string `json:"status"`
	OwnerIDNo         string `json:"owner_id_no"`
	ClaimerName       string `json:"claimer_receiver_disposer"`
	ReceiverContactNo string `json:"receiver_contact_no"`
	ClaimDate         string `json:"claim_date"`
	ClaimTime         string `json:"claim_time"`
	HandedOverBy      string `json:"handed_over_by"`
	Remarks           string `json:"remarks"`
}

func (s *LostFoundService) Create(ctx context.Context, actor *models.User, in LostFoundInput) (*models.LostFoundItem, error) {
	if err := requireCapability(actor, models.CapLostAndFound); err != nil {
		return nil, err
	}
	required := map[string]string{
		"entry_date":       in.EntryDate,
		"entry_time":       in.EntryTime,
		"ticket_no":        in.TicketNo,
		"item_type":        in.ItemType,
		"item_description": in.ItemDescription,
		"location_found":   in.LocationFound,
		"found_by":         in.FoundBy,
		"department":       in.Department,
	}
	for _, field := range []string{"entry_date", "entry_time", "ticket_no", "item_type", "item_description", "location_found", "found_by", "department"} {
		if strings.TrimSpace(required[field]) == "" {
			return nil, models.NewValidationError(field + " is required")
		}
	}
	photo, err := optionalPhoto(in.Photo)
	if err != nil {
		return nil, err
	}
	item := &models.LostFoundItem{
		UserID:             actor.ID,
		CompanyID:          actor.CompanyID,
		EntryDate:          strings.TrimSpace(in.EntryDate),
		EntryTime:          strings.TrimSpace(in.EntryTime),
		TicketNo:           strings.TrimSpace(in.TicketNo),
		ItemType:           strings.TrimSpace(in.ItemType),
		ItemDescription:    strings.TrimSpace(in.ItemDescription),
		LocationFound:      strings.TrimSpace(in.LocationFound),
		FoundBy:            strings.TrimSpace(in.FoundBy),
		Department:         strings.TrimSpace(in.Department),
		ReceivedBySecurity: strings.TrimSpace(in.ReceivedBySecurity),
		StoredIn:           strings.TrimSpace(in.StoredIn),
		Photo:              photo,
	}
	if err := s.repo.Create(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *LostFoundService) List(ctx context.Context, actor *models.User, search string) ([]models.LostFoundItem, error) {
	if err := requireCapability(actor, models.CapLostAndFound); err != nil {
		return nil, err
	}
	return s.repo.List(ctx, repository.ScopeFor(actor), search)
}

func (s *LostFoundService) Get(ctx context.Context, actor *models.User, id uint) (*models.LostFoundItem, error) {
	if err := requireCapability(actor, models.CapLostAndFound); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, repository.ScopeFor(actor), id)
}

// Claim updates status and claim fields and returns the reloaded item.
func (s *LostFoundService) Claim(ctx context.Context, actor *models.User, id uint, in ClaimInput) (*models.LostFoundItem, error) {
	if err := requireCapability(actor, models.CapLostAndFound); err != nil {
		return nil, err
	}
	status := strings.TrimSpace(in.Status)
	if status == "" {
		return nil, models.NewValidationError("status is required")
	}
	scope := repository.ScopeFor(actor)
	fields := map[string]interface{}{
		"status":              status,
		"owner_id_no":         strings.TrimSpace(in.OwnerIDNo),
		"claimer_name":        strings.TrimSpace(in.ClaimerName),
		"receiver_contact_no": strings.TrimSpace(in.ReceiverContactNo),
		"claim_date":          optionalString(in.ClaimDate),
		"claim_time":          strings.TrimSpace(in.ClaimTime),
		"handed_over_by":      strings.TrimSpace(in.HandedOverBy),
		"remarks":             strings.TrimSpace(in.Remarks),
	}
	if err := s.repo.Update(ctx, scope, id, fields); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, scope, id)
}

func (s *LostFoundService) Delete(ctx context.Context, actor *models.User, id uint) error {
	if err := requireCapability(actor, models.CapLostAndFound); err != nil {
		return err
	}
	return s.repo.Delete(ctx, repository.ScopeFor(actor), id)
}

func (s *LostFoundService) Photo(ctx context.Context, actor *models.User, id uint) ([]byte, error) {
	item, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if len(item.Photo) == 0 {
		return nil, models.NewNotFoundError("Photo", "Photo not found")
	}
	return item.Photo, nil
}

// GatePassService manages gate passes for items leaving the premises.
type GatePassService struct {
	repo repository.GatePassRepository
}

func NewGatePassService(repo repository.GatePassRepository) *GatePassService {
	return &GatePassService{repo: repo}
}

type GatePassInput struct {
	DateIssued            string `json:"date_issued" form:"date_issued"`
	GatePassNumber        string `json:"gate_pass_number" form:"gate_pass_number"`
	ItemDescription       string `json:"item_description" form:"item_description"`
	IssuedTo              string `json:"issued_to" form:"issued_to"`
	Company               string `json:"company" form:"company"`
	PurposeOfRemoval      string `json:"purpose_of_removal" form:"purpose_of_removal"`
	AuthorizedBy          string `json:"authorized_by" form:"authorized_by"`
	AuthorizingDepartment string `json:"authorizing_department" form:"authorizing_department"`
	Type                  string `json:"type" form:"type"`
	DateToBeReturned      string `json:"date_to_be_returned" form:"date_to_be_returned"`
	Photo                 []byte `json:"-" form:"-"`
}

// ReturnInput records an item coming back through the gate.
type ReturnInput struct {
	Status       string `json:"status" form:"status"`
	ReturnedDate string `json:"returned_date" form:"returned_date"`
	ReceivedBy   string `json:"received_by" form:"received_by"`
	Remarks      string `json:"remarks" form:"remarks"`
	Photo        []byte `json:"-" form:"-"`
}

func (s *GatePassService) Create(ctx context.Context, actor *models.User, in GatePassInput) (*models.GatePass, error) {
	if err := requireCapability(actor, models.CapGatePass); err != nil {
		return nil, err
	}
	number := strings.TrimSpace(in.GatePassNumber)
	if number == "" {
		return nil, models.NewValidationError("gate_pass_number is required")
	}
	photo, err := optionalPhoto(in.Photo)
	if err != nil {
		return nil, err
	}
	pass := &models.GatePass{
		UserID:                actor.ID,
		CompanyID:             actor.CompanyID,
		DateIssued:            strings.TrimSpace(in.DateIssued),
		GatePassNumber:        number,
		ItemDescription:       strings.TrimSpace(in.ItemDescription),
		IssuedTo:              strings.TrimSpace(in.IssuedTo),
		IssuedToCompany:       strings.TrimSpace(in.Company),
		PurposeOfRemoval:      strings.TrimSpace(in.PurposeOfRemoval),
		AuthorizedBy:          strings.TrimSpace(in.AuthorizedBy),
		AuthorizingDepartment: strings.TrimSpace(in.AuthorizingDepartment),
		Type:                  strings.TrimSpace(in.Type),
		DateToBeReturned:      optionalString(in.DateToBeReturned),
		PhotoOut:              photo,
	}
	if err := s.repo.Create(ctx, pass); err != nil {
		return nil, err
	}
	return pass, nil
}

func (s *GatePassService) List(ctx context.Context, actor *models.User, search string) ([]models.GatePass, error) {
	if err := requireCapability(actor, models.CapGatePass); err != nil {
		return nil, err
	}
	return s.repo.List(ctx, repository.ScopeFor(actor), search)
}

func (s *GatePassService) Get(ctx context.Context, actor *models.User, id uint) (*models.GatePass, error) {
	if err := requireCapability(actor, models.CapGatePass); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, repository.ScopeFor(actor), id)
}

// Return marks the pass returned. The return photo is only replaced when a
// new one is supplied.
func (s *GatePassService) Return(ctx context.Context, actor *models.User, id uint, in ReturnInput) (*models.GatePass, error) {
	if err := requireCapability(actor, models.CapGatePass); err != nil {
		return nil, err
	}
	status := strings.TrimSpace(in.Status)
	if status == "" {
		return nil, models.NewValidationError("status is required")
	}
	fields := map[string]interface{}{
		"status":        status,
		"returned_date": optionalString(in.ReturnedDate),
		"received_by":   strings.TrimSpace(in.ReceivedBy),
		"remarks":       strings.TrimSpace(in.Remarks),
	}
	if len(in.Photo) > 0 {
		photo, err := NormalizePhoto(in.Photo, RecordPhotoMaxSide)
		if err != nil {
			return nil, err
		}
		fields["item_picture_returned_back"] = photo
	}
	scope := repository.ScopeFor(actor)
	if err := s.repo.Update(ctx, scope, id, fields); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, scope, id)
}

func (s *GatePassService) Delete(ctx context.Context, actor *models.User, id uint) error {
	if err := requireCapability(actor, models.CapGatePass); err != nil {
		return err
	}
	return s.repo.Delete(ctx, repository.ScopeFor(actor), id)
}

// Photo returns the "out" photo, or the "returned" one when returned is set.
func (s *GatePassService) Photo(ctx context.Context, actor *models.User, id uint, returned bool) ([]byte, error) {
	pass, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	data := pass.PhotoOut
	if returned {
		data = pass.PhotoReturned
	}
	if len(data) == 0 {
		return nil, models.NewNotFoundError("Photo", "Photo not found")
	}
	return data, nil
}
