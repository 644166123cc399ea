package models

import "time"

// SubCategory belongs to exactly one category. Name is stored lowercase and
// must be unique per (user, category) among active rows. Moving a
// sub-category to another category retires the row and creates a new one, so
// old transactions keep pointing at the original row.
type SubCategory struct {
	ID          uint   `gorm:"primaryKey"`
	UserID      uint   `gorm:"index;not null"`
	CategoryID  uint   `gorm:"index;not null"`
	Name        string `gorm:"size:64;index;not null"`
	Description string `gorm:"type:text"`
	IsActive    bool   `gorm:"index;default:true"`
	CreatedAt   time.Time
	UpdatedAt   time.Time

	User     User     `gorm:"constraint:OnDelete:CASCADE"`
	Category Category `gorm:"constraint:OnDelete:CASCADE"`
}
