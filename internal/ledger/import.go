package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Inthesearch/budgetTracker/internal/models"
	"github.com/Inthesearch/budgetTracker/internal/util"

	"gorm.io/gorm"
)

// importDateLayouts are tried in order; first match wins.
var importDateLayouts = []string{
	"02/01/06",
	"02/01/2006",
	"2006-01-02",
}

// ImportRow is one raw tabular row of a bulk import file. All fields are the
// untrimmed cell strings; Line is the 1-based row number in the source file.
type ImportRow struct {
	Line        int
	Date        string
	Account     string
	Type        string
	Category    string
	SubCategory string
	Amount      string
	ToAccount   string
	Notes       string
}

// ImportSummary reports a fully committed import.
type ImportSummary struct {
	Transactions         int `json:"transactions"`
	AccountsCreated      int `json:"accounts_created"`
	CategoriesCreated    int `json:"categories_created"`
	SubCategoriesCreated int `json:"sub_categories_created"`
}

// ImportRows validates and applies every row inside one database
// transaction. Referenced accounts, categories and sub-categories are
// resolved case-insensitively by name and created when missing. The import
// is all-or-nothing: if any row fails, the returned error is an
// *ImportError listing every (line, message) pair and no row is committed.
func (s *Service) ImportRows(ctx context.Context, userID uint, rows []ImportRow) (*ImportSummary, error) {
	if len(rows) == 0 {
		return nil, validationf("file contains no data rows")
	}

	summary := &ImportSummary{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rowErrs []RowError
		for _, row := range rows {
			if err := s.importRow(tx, userID, row, summary); err != nil {
				var ve *ValidationError
				var nf *NotFoundError
				if errors.As(err, &ve) || errors.As(err, &nf) {
					rowErrs = append(rowErrs, RowError{Line: row.Line, Message: err.Error()})
					continue
				}
				// store failure: abort immediately, roll back everything
				return err
			}
			summary.Transactions++
		}
		if len(rowErrs) > 0 {
			return &ImportError{Rows: rowErrs}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return summary, nil
}

func (s *Service) importRow(tx *gorm.DB, userID uint, row ImportRow, summary *ImportSummary) error {
	date, err := parseImportDate(row.Date)
	if err != nil {
		return err
	}
	amountCent, err := util.ParseAmountCent(strings.TrimSpace(row.Amount))
	if err != nil {
		return &ValidationError{Msg: err.Error()}
	}
	txType := strings.ToLower(strings.TrimSpace(row.Type))
	if !models.ValidTransactionType(txType) {
		return validationf("entry type must be income, expense or transfer, got %q", row.Type)
	}

	accountName := util.NormalizeName(row.Account)
	if accountName == "" {
		return validationf("account is required")
	}
	account, err := getOrCreateAccount(tx, userID, accountName, summary)
	if err != nil {
		return err
	}

	in := AddInput{
		Type:          txType,
		AmountCent:    amountCent,
		Date:          date,
		Notes:         strings.TrimSpace(row.Notes),
		FromAccountID: account.ID,
	}

	categoryName := util.NormalizeName(row.Category)
	subCategoryName := util.NormalizeName(row.SubCategory)
	toAccountName := util.NormalizeName(row.ToAccount)

	switch txType {
	case models.TransactionTypeTransfer:
		if categoryName != "" || subCategoryName != "" {
			return validationf("transfer rows must leave category and sub-category blank")
		}
		if toAccountName == "" {
			return validationf("to-account is required for transfer rows")
		}
		if toAccountName == accountName {
			return validationf("cannot transfer to the same account")
		}
		toAccount, err := getOrCreateAccount(tx, userID, toAccountName, summary)
		if err != nil {
			return err
		}
		in.ToAccountID = &toAccount.ID
	default:
		if toAccountName != "" {
			return validationf("to-account is only allowed on transfer rows")
		}
		if categoryName == "" || subCategoryName == "" {
			return validationf("category and sub-category are required for %s rows", txType)
		}
		category, err := getOrCreateCategory(tx, userID, categoryName, summary)
		if err != nil {
			return err
		}
		subCategory, err := getOrCreateSubCategory(tx, userID, category.ID, subCategoryName, summary)
		if err != nil {
			return err
		}
		in.CategoryID = &category.ID
		in.SubCategoryID = &subCategory.ID
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
	return applyEffect(tx, t.FromAccountID, t.ToAccountID, EffectOf(t.Type, t.AmountCent))
}

func parseImportDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, validationf("date is required")
	}
	for _, layout := range importDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, validationf("invalid date %q, expected dd/mm/yy, dd/mm/yyyy or yyyy-mm-dd", s)
}

func getOrCreateAccount(tx *gorm.DB, userID uint, name string, summary *ImportSummary) (*models.Account, error) {
	var account models.Account
	err := tx.Where("user_id = ? AND name = ? AND is_active = ?", userID, name, true).First(&account).Error
	switch {
	case err == nil:
		return &account, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		account = models.Account{
			UserID:   userID,
			Name:     name,
			Type:     models.AccountTypeBank,
			IsActive: true,
		}
		if err := tx.Create(&account).Error; err != nil {
			return nil, fmt.Errorf("create account: %w", err)
		}
		summary.AccountsCreated++
		return &account, nil
	default:
		return nil, fmt.Errorf("find account: %w", err)
	}
}

func getOrCreateCategory(tx *gorm.DB, userID uint, name string, summary *ImportSummary) (*models.Category, error) {
	var category models.Category
	err := tx.Where("user_id = ? AND name = ? AND is_active = ?", userID, name, true).First(&category).Error
	switch {
	case err == nil:
		return &category, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		category = models.Category{
			UserID:   userID,
			Name:     name,
			IsActive: true,
		}
		if err := tx.Create(&category).Error; err != nil {
			return nil, fmt.Errorf("create category: %w", err)
		}
		summary.CategoriesCreated++
		return &category, nil
	default:
		return nil, fmt.Errorf("find category: %w", err)
	}
}

func getOrCreateSubCategory(tx *gorm.DB, userID, categoryID uint, name string, summary *ImportSummary) (*models.SubCategory, error) {
	var sub models.SubCategory
	err := tx.Where("user_id = ? AND category_id = ? AND name = ? AND is_active = ?",
		userID, categoryID, name, true).First(&sub).Error
	switch {
	case err == nil:
		return &sub, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		sub = models.SubCategory{
			UserID:     userID,
			CategoryID: categoryID,
			Name:       name,
			IsActive:   true,
		}
		if err := tx.Create(&sub).Error; err != nil {
			return nil, fmt.Errorf("create sub-category: %w", err)
		}
		summary.SubCategoriesCreated++
		return &sub, nil
	default:
		return nil, fmt.Errorf("find sub-category: %w", err)
	}
}
