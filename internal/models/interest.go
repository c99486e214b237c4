package models

import "time"

// Interest areas offered on the partnership form.
const (
	InterestCollaboration = "collaboration"
	InterestIndustry      = "industry"
	InterestFunding       = "funding"
	InterestTalent        = "talent"
	InterestAdvisory      = "advisory"
	InterestOther         = "other"
)

// Interest is a partnership or collaboration enquiry. Unlike a Message it
// never opens a ticket.
type Interest struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	FullName     string    `gorm:"size:256;not null" json:"full_name"`
	Email        string    `gorm:"size:256;not null" json:"email"`
	Phone        string    `gorm:"size:64;not null" json:"phone"`
	Organization string    `gorm:"size:256;not null" json:"organization"`
	Role         string    `gorm:"size:256;not null" json:"role"`
	InterestArea string    `gorm:"size:32;not null;index" json:"interest_area"`
	Message      string    `gorm:"type:text" json:"message"`
	CreatedAt    time.Time `json:"created_at"`
}

// TableName overrides the default table name.
func (Interest) TableName() string { return "interest_submissions" }
