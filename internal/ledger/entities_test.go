package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Inthesearch/budgetTracker/internal/models"
)

// ============ 账户停用 ============

func TestDeactivateAccountBlockedWhileReferenced(t *testing.T) {
	svc, db := newTestService(t)
	userID := seedUser(t, db, "u1@test.dev")
	wallet := seedAccount(t, db, userID, "wallet", 10000)
	bank := seedAccount(t, db, userID, "bank", 0)

	ctx := context.Background()
	added, err := svc.Add(ctx, userID, AddInput{
		Type:          models.TransactionTypeTransfer,
		AmountCent:    3000,
		Date:          time.Now(),
		FromAccountID: wallet,
		ToAccountID:   &bank,
	})
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	// both sides of the transfer count as references
	var ve *ValidationError
	if err := svc.DeactivateAccount(ctx, userID, wallet); !errors.As(err, &ve) {
		t.Fatalf("source account: want ValidationError, got %v", err)
	}
	if err := svc.DeactivateAccount(ctx, userID, bank); !errors.As(err, &ve) {
		t.Fatalf("destination account: want ValidationError, got %v", err)
	}

	// retiring the last referencing transaction unblocks the delete
	if _, err := svc.Delete(ctx, userID, added.TransactionID); err != nil {
		t.Fatalf("delete transaction: %v", err)
	}
	if err := svc.DeactivateAccount(ctx, userID, wallet); err != nil {
		t.Fatalf("deactivate after retire: %v", err)
	}

	var account models.Account
	if err := db.First(&account, wallet).Error; err != nil {
		t.Fatalf("load account: %v", err)
	}
	if account.IsActive {
		t.Error("account still active after deactivation")
	}

	// a retired account is invisible to new transactions
	_, err = svc.Add(ctx, userID, AddInput{
		Type:          models.TransactionTypeExpense,
		AmountCent:    100,
		Date:          time.Now(),
		FromAccountID: wallet,
	})
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("add on retired account: want NotFoundError, got %v", err)
	}
}

func TestDeactivateAccountOwnership(t *testing.T) {
	svc, db := newTestService(t)
	owner := seedUser(t, db, "owner@test.dev")
	intruder := seedUser(t, db, "intruder@test.dev")
	wallet := seedAccount(t, db, owner, "wallet", 10000)

	var nf *NotFoundError
	if err := svc.DeactivateAccount(context.Background(), intruder, wallet); !errors.As(err, &nf) {
		t.Fatalf("cross-user deactivate: want NotFoundError, got %v", err)
	}
	if err := svc.DeactivateAccount(context.Background(), owner, 999); !errors.As(err, &nf) {
		t.Fatalf("unknown account: want NotFoundError, got %v", err)
	}

	var account models.Account
	if err := db.First(&account, wallet).Error; err != nil {
		t.Fatalf("load account: %v", err)
	}
	if !account.IsActive {
		t.Error("failed deactivation flipped the account inactive")
	}
}

// ============ 分类停用 ============

func TestDeactivateCategoryCascades(t *testing.T) {
	svc, db := newTestService(t)
	userID := seedUser(t, db, "u1@test.dev")
	wallet := seedAccount(t, db, userID, "wallet", 10000)
	catID, subID := seedCategoryWithSub(t, db, userID, "food", "groceries")

	ctx := context.Background()
	added, err := svc.Add(ctx, userID, AddInput{
		Type:          models.TransactionTypeExpense,
		AmountCent:    500,
		Date:          time.Now(),
		FromAccountID: wallet,
		CategoryID:    &catID,
		SubCategoryID: &subID,
	})
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	var ve *ValidationError
	if err := svc.DeactivateCategory(ctx, userID, catID); !errors.As(err, &ve) {
		t.Fatalf("referenced category: want ValidationError, got %v", err)
	}

	if _, err := svc.Delete(ctx, userID, added.TransactionID); err != nil {
		t.Fatalf("delete transaction: %v", err)
	}
	if err := svc.DeactivateCategory(ctx, userID, catID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	var category models.Category
	if err := db.First(&category, catID).Error; err != nil {
		t.Fatalf("load category: %v", err)
	}
	if category.IsActive {
		t.Error("category still active")
	}
	var sub models.SubCategory
	if err := db.First(&sub, subID).Error; err != nil {
		t.Fatalf("load sub-category: %v", err)
	}
	if sub.IsActive {
		t.Error("cascade missed the sub-category")
	}
}

func TestDeactivateSubCategoryBlockedWhileReferenced(t *testing.T) {
	svc, db := newTestService(t)
	userID := seedUser(t, db, "u1@test.dev")
	wallet := seedAccount(t, db, userID, "wallet", 10000)
	catID, subID := seedCategoryWithSub(t, db, userID, "food", "groceries")

	ctx := context.Background()
	added, err := svc.Add(ctx, userID, AddInput{
		Type:          models.TransactionTypeExpense,
		AmountCent:    500,
		Date:          time.Now(),
		FromAccountID: wallet,
		CategoryID:    &catID,
		SubCategoryID: &subID,
	})
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	var ve *ValidationError
	if err := svc.DeactivateSubCategory(ctx, userID, subID); !errors.As(err, &ve) {
		t.Fatalf("referenced sub-category: want ValidationError, got %v", err)
	}

	if _, err := svc.Delete(ctx, userID, added.TransactionID); err != nil {
		t.Fatalf("delete transaction: %v", err)
	}
	if err := svc.DeactivateSubCategory(ctx, userID, subID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
}

// ============ 子分类换父分类 ============

func TestMoveSubCategoryForks(t *testing.T) {
	svc, db := newTestService(t)
	userID := seedUser(t, db, "u1@test.dev")
	wallet := seedAccount(t, db, userID, "wallet", 10000)
	catID, subID := seedCategoryWithSub(t, db, userID, "food", "groceries")

	home := models.Category{UserID: userID, Name: "home", IsActive: true}
	if err := db.Create(&home).Error; err != nil {
		t.Fatalf("seed category: %v", err)
	}

	ctx := context.Background()
	added, err := svc.Add(ctx, userID, AddInput{
		Type:          models.TransactionTypeExpense,
		AmountCent:    500,
		Date:          time.Now(),
		FromAccountID: wallet,
		CategoryID:    &catID,
		SubCategoryID: &subID,
	})
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	moved, err := svc.MoveSubCategory(ctx, userID, subID, home.ID)
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	if moved.ID == subID {
		t.Error("move must fork into a new row")
	}
	if moved.CategoryID != home.ID || moved.Name != "groceries" {
		t.Errorf("replacement = %+v", moved)
	}

	// the old row is retired, and the transaction keeps its historical link
	var old models.SubCategory
	if err := db.First(&old, subID).Error; err != nil {
		t.Fatalf("load old row: %v", err)
	}
	if old.IsActive {
		t.Error("old row still active after move")
	}
	tx, err := svc.Get(ctx, userID, added.TransactionID)
	if err != nil {
		t.Fatalf("get transaction: %v", err)
	}
	if tx.SubCategoryID == nil || *tx.SubCategoryID != subID {
		t.Errorf("transaction sub-category = %v, want %d", tx.SubCategoryID, subID)
	}
}

func TestMoveSubCategoryNameConflict(t *testing.T) {
	svc, db := newTestService(t)
	userID := seedUser(t, db, "u1@test.dev")
	_, subID := seedCategoryWithSub(t, db, userID, "food", "groceries")
	homeID, _ := seedCategoryWithSub(t, db, userID, "home", "groceries")

	_, err := svc.MoveSubCategory(context.Background(), userID, subID, homeID)
	var ce *ConflictError
	if !errors.As(err, &ce) {
		t.Fatalf("want ConflictError, got %v", err)
	}

	// the failed move leaves the original row active
	var sub models.SubCategory
	if err := db.First(&sub, subID).Error; err != nil {
		t.Fatalf("load sub-category: %v", err)
	}
	if !sub.IsActive {
		t.Error("failed move retired the original row")
	}
}
