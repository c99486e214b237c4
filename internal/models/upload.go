package models

import "time"

// Upload records a file stored by the media store.
type Upload struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	Category     string    `gorm:"size:16;not null;index" json:"category"`
	Path         string    `gorm:"size:512;not null;uniqueIndex" json:"path"`
	URL          string    `gorm:"size:512;not null" json:"url"`
	ContentType  string    `gorm:"size:128" json:"content_type"`
	Size         int64     `json:"size"`
	OriginalName string    `gorm:"size:256" json:"original_name"`
	CreatedAt    time.Time `json:"created_at"`
}
