package ledger

import (
	"context"
	"fmt"

	"github.com/Inthesearch/budgetTracker/internal/models"

	"gorm.io/gorm"
)

// Entity soft deletes. Deactivation is blocked while any active transaction
// still references the row; the check and the update run in one database
// transaction so a concurrent Add cannot slip between them.

// DeactivateAccount retires an account that no active transaction references
// as source or destination.
func (s *Service) DeactivateAccount(ctx context.Context, userID, accountID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		account, err := activeAccount(tx, userID, accountID)
		if err != nil {
			return err
		}

		var refs int64
		if err := tx.Model(&models.Transaction{}).
			Where("user_id = ? AND is_active = ? AND (from_account_id = ? OR to_account_id = ?)",
				userID, true, account.ID, account.ID).
			Count(&refs).Error; err != nil {
			return fmt.Errorf("count references: %w", err)
		}
		if refs > 0 {
			return validationf("cannot delete account with active transactions")
		}

		if err := tx.Model(account).Update("is_active", false).Error; err != nil {
			return fmt.Errorf("deactivate account: %w", err)
		}
		return nil
	})
}

// DeactivateCategory retires a category and cascades to its active
// sub-categories.
func (s *Service) DeactivateCategory(ctx context.Context, userID, categoryID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		category, err := activeCategory(tx, userID, categoryID)
		if err != nil {
			return err
		}

		var refs int64
		if err := tx.Model(&models.Transaction{}).
			Where("user_id = ? AND is_active = ? AND category_id = ?", userID, true, category.ID).
			Count(&refs).Error; err != nil {
			return fmt.Errorf("count references: %w", err)
		}
		if refs > 0 {
			return validationf("cannot delete category with active transactions")
		}

		if err := tx.Model(category).Update("is_active", false).Error; err != nil {
			return fmt.Errorf("deactivate category: %w", err)
		}
		return tx.Model(&models.SubCategory{}).
			Where("user_id = ? AND category_id = ? AND is_active = ?", userID, category.ID, true).
			Update("is_active", false).Error
	})
}

// DeactivateSubCategory retires a sub-category that no active transaction
// references.
func (s *Service) DeactivateSubCategory(ctx context.Context, userID, subCategoryID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sub, err := activeSubCategory(tx, userID, subCategoryID)
		if err != nil {
			return err
		}

		var refs int64
		if err := tx.Model(&models.Transaction{}).
			Where("user_id = ? AND is_active = ? AND sub_category_id = ?", userID, true, sub.ID).
			Count(&refs).Error; err != nil {
			return fmt.Errorf("count references: %w", err)
		}
		if refs > 0 {
			return validationf("cannot delete sub-category with active transactions")
		}

		if err := tx.Model(sub).Update("is_active", false).Error; err != nil {
			return fmt.Errorf("deactivate sub-category: %w", err)
		}
		return nil
	})
}

// MoveSubCategory re-parents a sub-category by forking: the old row is
// retired and a new row with the same name is created under the new
// category, so retired transactions keep their historical link.
func (s *Service) MoveSubCategory(ctx context.Context, userID, subCategoryID, newCategoryID uint) (*models.SubCategory, error) {
	var replacement models.SubCategory
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sub, err := activeSubCategory(tx, userID, subCategoryID)
		if err != nil {
			return err
		}
		category, err := activeCategory(tx, userID, newCategoryID)
		if err != nil {
			return err
		}

		var taken int64
		if err := tx.Model(&models.SubCategory{}).
			Where("user_id = ? AND category_id = ? AND name = ? AND is_active = ? AND id <> ?",
				userID, category.ID, sub.Name, true, sub.ID).
			Count(&taken).Error; err != nil {
			return fmt.Errorf("check sub-category name: %w", err)
		}
		if taken > 0 {
			return &ConflictError{Entity: "sub-category", Name: sub.Name}
		}

		if err := tx.Model(sub).Update("is_active", false).Error; err != nil {
			return fmt.Errorf("retire sub-category: %w", err)
		}
		replacement = models.SubCategory{
			UserID:      userID,
			CategoryID:  category.ID,
			Name:        sub.Name,
			Description: sub.Description,
			IsActive:    true,
		}
		if err := tx.Create(&replacement).Error; err != nil {
			return fmt.Errorf("create sub-category: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &replacement, nil
}
