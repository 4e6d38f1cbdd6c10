package models

import "time"

type MarketAlert struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"index;not null" json:"user_id"`
	Title       string    `gorm:"not null" json:"title"`
	Description string    `json:"description"`
	AlertType   string    `gorm:"not null" json:"alert_type"`
	MarketID    *uint     `json:"market_id"`
	ProductID   *uint     `json:"product_id"`
	IsActive    bool      `gorm:"default:true" json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}
