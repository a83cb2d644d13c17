package models

import (
	"time"
)

// User is a Telegram account that has talked to the bot. Rows are created on first
// interaction and never deleted; they double as the broadcast audience.
type User struct {
	UserID         int64     `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	Username       string    `gorm:"size:64" json:"username"`
	FirstName      string    `gorm:"size:128" json:"first_name"`
	LanguageCode   string    `gorm:"size:16" json:"language_code"`
	DailyCount     int       `gorm:"not null;default:0" json:"daily_count"`
	FileDailyCount int       `gorm:"not null;default:0" json:"file_daily_count"`
	LastReset      string    `gorm:"size:10;index;not null;default:''" json:"last_reset"` // YYYY-MM-DD
	UploadedVideos int       `gorm:"not null;default:0" json:"uploaded_videos"`
	UploadedFiles  int       `gorm:"not null;default:0" json:"uploaded_files"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// UploadedCount is the total number of items the user contributed.
func (u User) UploadedCount() int {
	return u.UploadedVideos + u.UploadedFiles
}
