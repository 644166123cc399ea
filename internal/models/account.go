package models

import "time"

// Account types.
const (
	AccountTypeBank       = "bank"
	AccountTypeCredit     = "credit"
	AccountTypeCash       = "cash"
	AccountTypeInvestment = "investment"
)

// ValidAccountType reports whether t is one of the known account types.
func ValidAccountType(t string) bool {
	switch t {
	case AccountTypeBank, AccountTypeCredit, AccountTypeCash, AccountTypeInvestment:
		return true
	}
	return false
}

// Account 表示一个资金账户
// 余额用分存储，避免浮点误差；Name 统一存小写，展示时再转换
type Account struct {
	ID          uint      `gorm:"primaryKey"`
	UserID      uint      `gorm:"index;not null"`
	Name        string    `gorm:"size:64;index;not null"` // stored lowercase
	Type        string    `gorm:"size:16;not null;default:bank"`
	BalanceCent int64     `gorm:"not null;default:0"` // derived from active transactions
	Currency    string    `gorm:"size:8;default:USD"`
	IsActive    bool      `gorm:"index;default:true"`
	CreatedAt   time.Time
	UpdatedAt   time.Time

	User User `gorm:"constraint:OnDelete:CASCADE"`
}
