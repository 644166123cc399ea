package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Inthesearch/budgetTracker/internal/models"

	"gorm.io/gorm"
)

// Service is the transaction lifecycle controller. Every mutation runs its
// reads, validations and writes inside one gorm transaction, and balance
// changes are applied as in-database increments, never as read-modify-write
// of a loaded value.
type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// AddInput is a fully specified new transaction.
type AddInput struct {
	Type          string
	AmountCent    int64
	Date          time.Time
	Notes         string
	FromAccountID uint
	ToAccountID   *uint
	CategoryID    *uint
	SubCategoryID *uint
}

// EditInput carries the fields being overridden; nil fields carry over from
// the existing transaction.
type EditInput struct {
	Type          *string
	AmountCent    *int64
	Date          *time.Time
	Notes         *string
	FromAccountID *uint
	ToAccountID   *uint
	CategoryID    *uint
	SubCategoryID *uint
}

// AccountBalance is one affected account's balance after a mutation.
type AccountBalance struct {
	AccountID   uint
	Name        string
	BalanceCent int64
}

// MutationResult reports the transaction a mutation produced (or retired),
// the resulting balances of every touched account, and the user's total
// available funds across all active accounts.
type MutationResult struct {
	TransactionID      uint
	Accounts           []AccountBalance
	TotalAvailableCent int64
}

// Add validates and records a new transaction and applies its balance
// effect.
func (s *Service) Add(ctx context.Context, userID uint, in AddInput) (*MutationResult, error) {
	var res *MutationResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := validate(tx, userID, in); err != nil {
			return err
		}

		t := models.Transaction{
			UserID:        userID,
			Type:          in.Type,
			AmountCent:    in.AmountCent,
			Date:          in.Date,
			Notes:         in.Notes,
			IsActive:      true,
			FromAccountID: in.FromAccountID,
			ToAccountID:   in.ToAccountID,
			CategoryID:    in.CategoryID,
			SubCategoryID: in.SubCategoryID,
		}
		if err := tx.Create(&t).Error; err != nil {
			return fmt.Errorf("create transaction: %w", err)
		}
		if err := applyEffect(tx, t.FromAccountID, t.ToAccountID, EffectOf(t.Type, t.AmountCent)); err != nil {
			return err
		}

		var err error
		res, err = buildResult(tx, userID, t.ID, affectedIDs(&t))
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Edit replaces an active transaction: the old row is retired and its effect
// reversed, a new row with the merged field set is inserted and its effect
// applied. The old row is never mutated beyond the retirement flag and the
// back-reference to its replacement.
func (s *Service) Edit(ctx context.Context, userID, transactionID uint, in EditInput) (*MutationResult, error) {
	var res *MutationResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		old, err := activeTransaction(tx, userID, transactionID)
		if err != nil {
			return err
		}
		merged, err := mergeEdit(old, in)
		if err != nil {
			return err
		}
		// all validation happens before the first write
		if err := validate(tx, userID, merged); err != nil {
			return err
		}

		if err := applyEffect(tx, old.FromAccountID, old.ToAccountID,
			EffectOf(old.Type, old.AmountCent).Reversed()); err != nil {
			return err
		}

		replacement := models.Transaction{
			UserID:        userID,
			Type:          merged.Type,
			AmountCent:    merged.AmountCent,
			Date:          merged.Date,
			Notes:         merged.Notes,
			IsActive:      true,
			FromAccountID: merged.FromAccountID,
			ToAccountID:   merged.ToAccountID,
			CategoryID:    merged.CategoryID,
			SubCategoryID: merged.SubCategoryID,
		}
		if err := tx.Create(&replacement).Error; err != nil {
			return fmt.Errorf("create replacement transaction: %w", err)
		}

		if err := tx.Model(old).Updates(map[string]interface{}{
			"is_active":        false,
			"superseded_by_id": replacement.ID,
		}).Error; err != nil {
			return fmt.Errorf("retire transaction: %w", err)
		}

		if err := applyEffect(tx, replacement.FromAccountID, replacement.ToAccountID,
			EffectOf(replacement.Type, replacement.AmountCent)); err != nil {
			return err
		}

		res, err = buildResult(tx, userID, replacement.ID, unionIDs(affectedIDs(old), affectedIDs(&replacement)))
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Delete retires an active transaction and reverses its balance effect.
func (s *Service) Delete(ctx context.Context, userID, transactionID uint) (*MutationResult, error) {
	var res *MutationResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		old, err := activeTransaction(tx, userID, transactionID)
		if err != nil {
			return err
		}

		if err := applyEffect(tx, old.FromAccountID, old.ToAccountID,
			EffectOf(old.Type, old.AmountCent).Reversed()); err != nil {
			return err
		}
		if err := tx.Model(old).Update("is_active", false).Error; err != nil {
			return fmt.Errorf("retire transaction: %w", err)
		}

		res, err = buildResult(tx, userID, old.ID, affectedIDs(old))
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// ListFilter narrows the active-transaction listing. Nil/zero fields are
// ignored. Size <= 0 returns the full result set.
type ListFilter struct {
	StartDate     *time.Time
	EndDate       *time.Time
	Type          string
	CategoryID    *uint
	SubCategoryID *uint
	AccountID     *uint // matches source or destination
	MinAmountCent *int64
	MaxAmountCent *int64
	Page          int
	Size          int
}

// List returns the user's active transactions, newest first, plus the total
// match count before pagination.
func (s *Service) List(ctx context.Context, userID uint, f ListFilter) ([]models.Transaction, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("user_id = ? AND is_active = ?", userID, true)
	if f.StartDate != nil {
		q = q.Where("date >= ?", *f.StartDate)
	}
	if f.EndDate != nil {
		q = q.Where("date <= ?", *f.EndDate)
	}
	if f.Type != "" {
		q = q.Where("type = ?", f.Type)
	}
	if f.CategoryID != nil {
		q = q.Where("category_id = ?", *f.CategoryID)
	}
	if f.SubCategoryID != nil {
		q = q.Where("sub_category_id = ?", *f.SubCategoryID)
	}
	if f.AccountID != nil {
		q = q.Where("(from_account_id = ? OR to_account_id = ?)", *f.AccountID, *f.AccountID)
	}
	if f.MinAmountCent != nil {
		q = q.Where("amount_cent >= ?", *f.MinAmountCent)
	}
	if f.MaxAmountCent != nil {
		q = q.Where("amount_cent <= ?", *f.MaxAmountCent)
	}

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count transactions: %w", err)
	}

	q = q.Session(&gorm.Session{}).
		Order("date DESC, id DESC").
		Preload("FromAccount").Preload("ToAccount").
		Preload("Category").Preload("SubCategory")
	if f.Size > 0 {
		page := f.Page
		if page < 1 {
			page = 1
		}
		q = q.Offset((page - 1) * f.Size).Limit(f.Size)
	}

	var txs []models.Transaction
	if err := q.Find(&txs).Error; err != nil {
		return nil, 0, fmt.Errorf("list transactions: %w", err)
	}
	return txs, total, nil
}

// Get returns one active transaction owned by the user, with references
// preloaded.
func (s *Service) Get(ctx context.Context, userID, transactionID uint) (*models.Transaction, error) {
	var t models.Transaction
	err := s.db.WithContext(ctx).
		Preload("FromAccount").Preload("ToAccount").
		Preload("Category").Preload("SubCategory").
		Where("id = ? AND user_id = ? AND is_active = ?", transactionID, userID, true).
		First(&t).Error
	switch {
	case err == nil:
		return &t, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, &NotFoundError{Entity: "transaction"}
	default:
		return nil, fmt.Errorf("load transaction: %w", err)
	}
}

// mergeEdit overlays the supplied fields on the existing record. Fields that
// are forbidden under the merged type are rejected when explicitly supplied
// and dropped when merely carried over, so changing the type does not drag
// stale references along.
func mergeEdit(old *models.Transaction, in EditInput) (AddInput, error) {
	m := AddInput{
		Type:          old.Type,
		AmountCent:    old.AmountCent,
		Date:          old.Date,
		Notes:         old.Notes,
		FromAccountID: old.FromAccountID,
		ToAccountID:   old.ToAccountID,
		CategoryID:    old.CategoryID,
		SubCategoryID: old.SubCategoryID,
	}
	if in.Type != nil {
		m.Type = *in.Type
	}
	if in.AmountCent != nil {
		m.AmountCent = *in.AmountCent
	}
	if in.Date != nil {
		m.Date = *in.Date
	}
	if in.Notes != nil {
		m.Notes = *in.Notes
	}
	if in.FromAccountID != nil {
		m.FromAccountID = *in.FromAccountID
	}
	if in.ToAccountID != nil {
		m.ToAccountID = in.ToAccountID
	}
	if in.CategoryID != nil {
		m.CategoryID = in.CategoryID
	}
	if in.SubCategoryID != nil {
		m.SubCategoryID = in.SubCategoryID
	}

	if m.Type == models.TransactionTypeTransfer {
		if in.CategoryID != nil || in.SubCategoryID != nil {
			return m, validationf("transfers cannot carry a category")
		}
		m.CategoryID, m.SubCategoryID = nil, nil
	} else {
		if in.ToAccountID != nil {
			return m, validationf("to_account is only allowed for transfers")
		}
		m.ToAccountID = nil
	}
	return m, nil
}

// validate enforces the add/edit rules in order: source account first, then
// amount and type, then the type-specific reference checks. It performs no
// writes.
func validate(tx *gorm.DB, userID uint, in AddInput) error {
	if _, err := activeAccount(tx, userID, in.FromAccountID); err != nil {
		return err
	}
	if in.AmountCent <= 0 {
		return validationf("amount must be positive")
	}
	if !models.ValidTransactionType(in.Type) {
		return validationf("unknown transaction type %q", in.Type)
	}

	switch in.Type {
	case models.TransactionTypeTransfer:
		if in.CategoryID != nil || in.SubCategoryID != nil {
			return validationf("transfers cannot carry a category")
		}
		if in.ToAccountID == nil {
			return validationf("to_account is required for transfers")
		}
		if *in.ToAccountID == in.FromAccountID {
			return validationf("cannot transfer to the same account")
		}
		if _, err := activeAccount(tx, userID, *in.ToAccountID); err != nil {
			return err
		}
	default:
		if in.ToAccountID != nil {
			return validationf("to_account is only allowed for transfers")
		}
		if in.CategoryID != nil {
			if _, err := activeCategory(tx, userID, *in.CategoryID); err != nil {
				return err
			}
		}
		if in.SubCategoryID != nil {
			sub, err := activeSubCategory(tx, userID, *in.SubCategoryID)
			if err != nil {
				return err
			}
			if in.CategoryID != nil && sub.CategoryID != *in.CategoryID {
				return validationf("sub-category does not belong to the given category")
			}
		}
	}
	return nil
}

func applyEffect(tx *gorm.DB, fromID uint, toID *uint, eff Effect) error {
	if err := addToBalance(tx, fromID, eff.FromDelta); err != nil {
		return err
	}
	if toID != nil {
		if err := addToBalance(tx, *toID, eff.ToDelta); err != nil {
			return err
		}
	}
	return nil
}

// addToBalance applies a delta with a single in-database increment;
// concurrent writers cannot lose updates through a read-modify-write race.
func addToBalance(tx *gorm.DB, accountID uint, delta int64) error {
	if delta == 0 {
		return nil
	}
	res := tx.Model(&models.Account{}).
		Where("id = ?", accountID).
		Update("balance_cent", gorm.Expr("balance_cent + ?", delta))
	if res.Error != nil {
		return fmt.Errorf("update balance: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return &NotFoundError{Entity: "account"}
	}
	return nil
}

func buildResult(tx *gorm.DB, userID, transactionID uint, accountIDs []uint) (*MutationResult, error) {
	var accounts []models.Account
	if err := tx.Where("user_id = ? AND id IN ?", userID, accountIDs).
		Order("id").Find(&accounts).Error; err != nil {
		return nil, fmt.Errorf("load balances: %w", err)
	}

	res := &MutationResult{TransactionID: transactionID}
	for _, a := range accounts {
		res.Accounts = append(res.Accounts, AccountBalance{
			AccountID:   a.ID,
			Name:        a.Name,
			BalanceCent: a.BalanceCent,
		})
	}

	var total int64
	if err := tx.Model(&models.Account{}).
		Where("user_id = ? AND is_active = ?", userID, true).
		Select("COALESCE(SUM(balance_cent), 0)").
		Scan(&total).Error; err != nil {
		return nil, fmt.Errorf("sum balances: %w", err)
	}
	res.TotalAvailableCent = total
	return res, nil
}

func activeTransaction(tx *gorm.DB, userID, id uint) (*models.Transaction, error) {
	var t models.Transaction
	err := tx.Where("id = ? AND user_id = ? AND is_active = ?", id, userID, true).First(&t).Error
	switch {
	case err == nil:
		return &t, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, &NotFoundError{Entity: "transaction"}
	default:
		return nil, fmt.Errorf("load transaction: %w", err)
	}
}

func activeAccount(tx *gorm.DB, userID, id uint) (*models.Account, error) {
	var a models.Account
	err := tx.Where("id = ? AND user_id = ? AND is_active = ?", id, userID, true).First(&a).Error
	switch {
	case err == nil:
		return &a, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, &NotFoundError{Entity: "account"}
	default:
		return nil, fmt.Errorf("load account: %w", err)
	}
}

func activeCategory(tx *gorm.DB, userID, id uint) (*models.Category, error) {
	var c models.Category
	err := tx.Where("id = ? AND user_id = ? AND is_active = ?", id, userID, true).First(&c).Error
	switch {
	case err == nil:
		return &c, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, &NotFoundError{Entity: "category"}
	default:
		return nil, fmt.Errorf("load category: %w", err)
	}
}

func activeSubCategory(tx *gorm.DB, userID, id uint) (*models.SubCategory, error) {
	var sc models.SubCategory
	err := tx.Where("id = ? AND user_id = ? AND is_active = ?", id, userID, true).First(&sc).Error
	switch {
	case err == nil:
		return &sc, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, &NotFoundError{Entity: "sub-category"}
	default:
		return nil, fmt.Errorf("load sub-category: %w", err)
	}
}

func affectedIDs(t *models.Transaction) []uint {
	ids := []uint{t.FromAccountID}
	if t.ToAccountID != nil {
		ids = append(ids, *t.ToAccountID)
	}
	return ids
}

func unionIDs(a, b []uint) []uint {
	seen := make(map[uint]bool, len(a)+len(b))
	var out []uint
	for _, id := range append(a, b...) {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
