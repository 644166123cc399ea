package models

import "time"

// Transaction types.
const (
	TransactionTypeIncome   = "income"
	TransactionTypeExpense  = "expense"
	TransactionTypeTransfer = "transfer"
)

// ValidTransactionType reports whether t is one of the known transaction types.
func ValidTransactionType(t string) bool {
	switch t {
	case TransactionTypeIncome, TransactionTypeExpense, TransactionTypeTransfer:
		return true
	}
	return false
}

// Transaction 表示一笔账目记录
// 金额用分存储，避免浮点误差，比如 12.34 元 = 1234 分
//
// Rows are immutable once created: editing retires the old row (IsActive set
// to false, SupersededByID pointing at the replacement) and inserts a new
// one. Deleting just retires the row. Balances are derived by applying the
// signed effect of every active row.
type Transaction struct {
	ID             uint      `gorm:"primaryKey"`
	UserID         uint      `gorm:"index;not null"`
	Type           string    `gorm:"size:16;index;not null"` // income / expense / transfer
	AmountCent     int64     `gorm:"not null"`               // strictly positive
	Date           time.Time `gorm:"index;not null"`
	Notes          string    `gorm:"type:text"`
	IsActive       bool      `gorm:"index;default:true"`
	FromAccountID  uint      `gorm:"index;not null"`
	ToAccountID    *uint     `gorm:"index"` // set iff type=transfer
	CategoryID     *uint     `gorm:"index"` // income/expense only
	SubCategoryID  *uint     `gorm:"index"` // income/expense only
	SupersededByID *uint     `gorm:"index"` // set when an edit retired this row
	CreatedAt      time.Time
	UpdatedAt      time.Time

	User        User         `gorm:"constraint:OnDelete:CASCADE"`
	FromAccount Account      `gorm:"foreignKey:FromAccountID"`
	ToAccount   *Account     `gorm:"foreignKey:ToAccountID"`
	Category    *Category    `gorm:"foreignKey:CategoryID"`
	SubCategory *SubCategory `gorm:"foreignKey:SubCategoryID"`
}
