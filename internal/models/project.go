package models

import (
	"time"

	"github.com/zulandar/folio/internal/blocks"
)

// Project statuses.
const (
	ProjectCompleted  = "completed"
	ProjectInProgress = "in_progress"
	ProjectPlanned    = "planned"
)

// Project is a portfolio entry with a block-based detail page.
type Project struct {
	ID            string          `gorm:"primaryKey;size:36" json:"id"`
	Title         string          `gorm:"size:256;not null" json:"title" binding:"required"`
	Description   string          `gorm:"type:text" json:"description"`
	Content       blocks.Document `gorm:"type:json" json:"content"`
	Technologies  StringList      `gorm:"type:json" json:"technologies"`
	StartDate     *time.Time      `json:"start_date"`
	EndDate       *time.Time      `json:"end_date"`
	Status        string          `gorm:"size:16;default:planned" json:"status" binding:"omitempty,oneof=completed in_progress planned"`
	FeaturedImage string          `gorm:"size:512" json:"featured_image"`
	Gallery       StringList      `gorm:"type:json" json:"gallery"`
	IsFeatured    bool            `json:"is_featured"`
	RepoURL       *string         `gorm:"size:512;uniqueIndex" json:"repo_url,omitempty"`
	DisplayOrder  int             `gorm:"index" json:"display_order"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// ResumeProject links a project into a resume at a position of its own.
type ResumeProject struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	ResumeID   string    `gorm:"size:36;not null;uniqueIndex:idx_resume_project" json:"resume_id"`
	ProjectID  string    `gorm:"size:36;not null;uniqueIndex:idx_resume_project" json:"project_id" binding:"required"`
	OrderIndex int       `json:"order_index"`
	CreatedAt  time.Time `json:"created_at"`

	Project *Project `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE" json:"project,omitempty"`
}
