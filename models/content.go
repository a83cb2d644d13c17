package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Content types.
const (
	ContentVideo  = "video"
	ContentFile   = "file"
	ContentMovie  = "movie"
	ContentSeries = "series"
)

// Content is one deliverable catalog item. FileID is the Telegram handle of the media;
// titles created through the admin wizard carry their structure in Metadata instead.
type Content struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	Type         string    `gorm:"size:16;index;not null" json:"type"`
	FileID       string    `gorm:"size:255" json:"file_id,omitempty"`
	FileUniqueID string    `gorm:"size:128;uniqueIndex;not null" json:"-"`
	Name         string    `gorm:"size:255" json:"name"`
	FileSize     int64     `gorm:"not null;default:0" json:"file_size"`
	MimeType     string    `gorm:"size:128" json:"mime_type,omitempty"`
	Category     string    `gorm:"size:32;index" json:"category,omitempty"`
	Trending     bool      `gorm:"index;not null;default:false" json:"trending"`
	Metadata     string    `gorm:"type:text" json:"metadata,omitempty"` // JSON, see TitleMetadata
	UploadedBy   int64     `gorm:"index" json:"uploaded_by"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// BeforeCreate assigns a random UUID when the caller did not.
func (c *Content) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.FileUniqueID == "" {
		// titles have no telegram media behind them
		c.FileUniqueID = "title:" + c.ID
	}
	return nil
}

// Episode is one playable entry of a season.
type Episode struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Season groups episodes of a series.
type Season struct {
	Name     string    `json:"name"`
	Episodes []Episode `json:"episodes"`
}

// TitleMetadata is the JSON stored in Content.Metadata for movies and series.
type TitleMetadata struct {
	ThumbnailID string   `json:"thumbnail_id"`
	URL         string   `json:"url,omitempty"`
	Seasons     []Season `json:"seasons,omitempty"`
}
