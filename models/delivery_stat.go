package models

import "time"

// DeliveryStat aggregates successful deliveries per day and kind (video, file, share, broadcast).
type DeliveryStat struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Date      string    `gorm:"index:idx_delivery_date_kind,unique;size:10;not null" json:"date"`
	Kind      string    `gorm:"index:idx_delivery_date_kind,unique;size:16;not null" json:"kind"`
	Count     int64     `gorm:"not null;default:0" json:"count"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// All lists every model the bot migrates.
func All() []interface{} {
	return []interface{}{&User{}, &Content{}, &ShareToken{}, &DeliveryStat{}}
}
