package models

import (
	"time"

	"gorm.io/gorm"
)

type User struct {
	gorm.Model
	Username       string     `gorm:"unique;not null" json:"username"`
	Email          string     `gorm:"unique;not null" json:"email"`
	Password       string     `gorm:"not null" json:"-"`
	OTP            string     `json:"-"`
	OTPGeneratedAt *time.Time `json:"-"`
}
