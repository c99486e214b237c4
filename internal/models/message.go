package models

import "time"

// Message statuses.
const (
	MessageNew      = "new"
	MessageRead     = "read"
	MessageArchived = "archived"
)

// Message is a contact form submission.
type Message struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Name      string    `gorm:"size:256;not null" json:"name"`
	Email     string    `gorm:"size:256;not null" json:"email"`
	Body      string    `gorm:"column:message;type:text;not null" json:"message"`
	ResumeID  *string   `gorm:"size:36;index" json:"resume_id,omitempty"`
	Status    string    `gorm:"size:16;default:new;index" json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// ValidMessageStatus reports whether s is a known message status.
func ValidMessageStatus(s string) bool {
	switch s {
	case MessageNew, MessageRead, MessageArchived:
		return true
	}
	return false
}
