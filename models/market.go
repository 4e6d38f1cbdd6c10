package models

import "time"

type Market struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"not null" json:"name"`
	Location    string    `gorm:"not null" json:"location"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}
