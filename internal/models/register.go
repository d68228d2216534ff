package models

import "time"

// Default register statuses.
const (
	LostFoundUnclaimed  = "Unclaimed"
	GatePassNotReturned = "non returned"
)

// LostFoundItem is one entry in a company's lost-and-found register.
// TicketNo is unique per company.
type LostFoundItem struct {
	ID                 uint       `gorm:"primaryKey" json:"id"`
	UserID             uint       `gorm:"not null;index" json:"user_id"`
	CompanyID          *uint      `gorm:"uniqueIndex:uq_lost_found_ticket,priority:1" json:"company_id"`
	EntryDate          string     `gorm:"not null" json:"entry_date"`
	EntryTime          string     `gorm:"not null" json:"entry_time"`
	TicketNo           string     `gorm:"not null;uniqueIndex:uq_lost_found_ticket,priority:2" json:"ticket_no"`
	ItemType           string     `gorm:"not null" json:"item_type"`
	ItemDescription    string     `gorm:"type:text;not null" json:"item_description"`
	LocationFound      string     `gorm:"not null" json:"location_found"`
	FoundBy            string     `gorm:"not null" json:"found_by"`
	Department         string     `gorm:"not null" json:"department"`
	ReceivedBySecurity string     `json:"received_by_security"`
	StoredIn           string     `json:"stored_in"`
	Photo              []byte     `json:"-"`
	Status             string     `gorm:"not null;default:Unclaimed" json:"status"`
	OwnerIDNo          string     `json:"owner_id_no"`
	ClaimerName        string     `json:"claimer_receiver_disposer"`
	ReceiverContactNo  string     `json:"receiver_contact_no"`
	ClaimDate          *string    `json:"claim_date"`
	ClaimTime          string     `json:"claim_time"`
	HandedOverBy       string     `json:"handed_over_by"`
	Remarks            string     `gorm:"type:text" json:"remarks"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

func (LostFoundItem) TableName() string {
	return "lost_and_found"
}

// GatePass records an item leaving the premises. GatePassNumber is unique
// per company.
type GatePass struct {
	ID                    uint      `gorm:"primaryKey" json:"id"`
	UserID                uint      `gorm:"not null;index" json:"user_id"`
	CompanyID             *uint     `gorm:"uniqueIndex:uq_gate_pass_number,priority:1" json:"company_id"`
	DateIssued            string    `json:"date_issued"`
	GatePassNumber        string    `gorm:"not null;uniqueIndex:uq_gate_pass_number,priority:2" json:"gate_pass_number"`
	ItemDescription       string    `gorm:"type:text" json:"item_description"`
	IssuedTo              string    `json:"issued_to"`
	IssuedToCompany       string    `gorm:"column:company" json:"company"`
	PurposeOfRemoval      string    `json:"purpose_of_removal"`
	AuthorizedBy          string    `json:"authorized_by"`
	AuthorizingDepartment string    `json:"authorizing_department"`
	Type                  string    `json:"type"`
	DateToBeReturned      *string   `json:"date_to_be_returned"`
	PhotoOut              []byte    `gorm:"column:item_picture_taken_out" json:"-"`
	PhotoReturned         []byte    `gorm:"column:item_picture_returned_back" json:"-"`
	Status                string    `gorm:"not null;default:'non returned'" json:"status"`
	ReturnedDate          *string   `json:"returned_date"`
	ReceivedBy            string    `json:"received_by"`
	Remarks               string    `gorm:"type:text" json:"remarks"`
	CreatedAt             time.Time `json:"created_at"`
}

func (GatePass) TableName() string {
	return "gate_pass_records"
}
