package models

import "time"

// Category represents income/expense category. Name is stored lowercase and
// must be unique per user among active rows.
type Category struct {
	ID          uint   `gorm:"primaryKey"`
	UserID      uint   `gorm:"index;not null"`
	Name        string `gorm:"size:64;index;not null"`
	Description string `gorm:"type:text"`
	Color       string `gorm:"size:16;default:#3B82F6"`
	Icon        string `gorm:"size:16"`
	IsActive    bool   `gorm:"index;default:true"`
	CreatedAt   time.Time
	UpdatedAt   time.Time

	User User `gorm:"constraint:OnDelete:CASCADE"`
}
