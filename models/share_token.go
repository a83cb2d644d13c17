package models

import "time"

// ShareToken grants time-limited access to one content item.
type ShareToken struct {
	Token       string    `gorm:"primaryKey;size:32" json:"token"`
	ContentID   string    `gorm:"size:36;index;not null" json:"content_id"`
	IssuerID    int64     `gorm:"index" json:"issuer_id"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `gorm:"index;not null" json:"expires_at"`
	AccessCount int64     `gorm:"not null;default:0" json:"access_count"`
}
