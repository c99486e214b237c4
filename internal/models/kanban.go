package models

import (
	"strings"
	"time"
)

// Stage is a kanban column.
type Stage struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	Title      string    `gorm:"size:128;not null;uniqueIndex" json:"title" binding:"required"`
	OrderIndex int       `json:"order_index"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName overrides the default table name.
func (Stage) TableName() string { return "kanban_stages" }

// Ticket is a kanban card. OrderIndex is scoped to its stage.
type Ticket struct {
	ID          string     `gorm:"primaryKey;size:36" json:"id"`
	Title       string     `gorm:"size:256;not null" json:"title" binding:"required"`
	Description string     `gorm:"type:text" json:"description"`
	StageID     string     `gorm:"size:36;not null;index" json:"stage_id"`
	MessageID   *string    `gorm:"size:36;index" json:"message_id,omitempty"`
	Labels      StringList `gorm:"type:json" json:"labels"`
	DueDate     *time.Time `json:"due_date"`
	Notes       string     `gorm:"type:text" json:"notes"`
	OrderIndex  int        `json:"order_index"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// TableName overrides the default table name.
func (Ticket) TableName() string { return "kanban_tickets" }

// NormalizeLabels trims labels and drops empty and repeated ones, keeping
// the first occurrence.
func NormalizeLabels(labels []string) StringList {
	out := make(StringList, 0, len(labels))
	seen := make(map[string]bool, len(labels))
	for _, l := range labels {
		l = strings.TrimSpace(l)
		if l == "" || seen[l] {
			continue
		}
		seen[l] = true
		out = append(out, l)
	}
	return out
}
