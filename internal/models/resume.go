package models

import (
	"time"

	"github.com/zulandar/folio/internal/blocks"
)

// Resume is one published variant of the owner's CV.
type Resume struct {
	ID           string          `gorm:"primaryKey;size:36" json:"id"`
	Slug         string          `gorm:"size:128;not null;uniqueIndex" json:"slug" binding:"required"`
	Title        string          `gorm:"size:256;not null" json:"title" binding:"required"`
	Description  string          `gorm:"type:text" json:"description"`
	ImageURL     string          `gorm:"size:512" json:"image_url"`
	IntroText    string          `gorm:"type:text" json:"intro_text"`
	Intro        blocks.Document `gorm:"type:json" json:"intro"`
	Skills       StringList      `gorm:"type:json" json:"skills"`
	IsVisible    bool            `json:"is_visible"`
	DisplayOrder int             `gorm:"index" json:"display_order"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`

	Experiences []Experience    `gorm:"foreignKey:ResumeID;constraint:OnDelete:CASCADE" json:"experiences,omitempty"`
	Projects    []ResumeProject `gorm:"foreignKey:ResumeID;constraint:OnDelete:CASCADE" json:"projects,omitempty"`
}

// Experience is a job or role listed on a resume.
type Experience struct {
	ID             string     `gorm:"primaryKey;size:36" json:"id"`
	ResumeID       string     `gorm:"size:36;not null;index" json:"resume_id"`
	Title          string     `gorm:"size:256;not null" json:"title" binding:"required"`
	Company        string     `gorm:"size:256" json:"company"`
	Description    string     `gorm:"type:text" json:"description"`
	StartDate      *time.Time `json:"start_date"`
	EndDate        *time.Time `json:"end_date"`
	Location       string     `gorm:"size:256" json:"location"`
	EmploymentType string     `gorm:"size:32" json:"employment_type"`
	Achievements   StringList `gorm:"type:json" json:"achievements"`
	IsVisible      bool       `json:"is_visible"`
	DisplayOrder   int        `gorm:"index" json:"display_order"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`

	Artifacts []Artifact `gorm:"foreignKey:ExperienceID;constraint:OnDelete:CASCADE" json:"artifacts,omitempty"`
}

// Artifact is a document, image or video attached to an experience.
type Artifact struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	ExperienceID string    `gorm:"size:36;not null;index" json:"experience_id"`
	Type         string    `gorm:"size:16;not null" json:"type" binding:"required,oneof=document image video"`
	Title        string    `gorm:"size:256" json:"title"`
	URL          string    `gorm:"size:512;not null" json:"url" binding:"required"`
	IsVisible    bool      `json:"is_visible"`
	CreatedAt    time.Time `json:"created_at"`
}
