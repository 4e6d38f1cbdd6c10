package models

import "time"

type AttendanceRecord struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	UserID       uint       `gorm:"index;not null" json:"user_id"`
	MarketID     uint       `gorm:"index;not null" json:"market_id"`
	CheckInTime  time.Time  `gorm:"not null" json:"check_in_time"`
	CheckOutTime *time.Time `json:"check_out_time"`
	Date         string     `gorm:"not null" json:"date"` // YYYY-MM-DD
	CreatedAt    time.Time  `json:"created_at"`
}
