package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Inthesearch/budgetTracker/internal/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ============ 测试辅助 ============

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	err = db.AutoMigrate(
		&models.User{},
		&models.Account{},
		&models.Category{},
		&models.SubCategory{},
		&models.Transaction{},
	)
	if err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return NewService(db), db
}

func seedUser(t *testing.T, db *gorm.DB, email string) uint {
	t.Helper()
	u := models.User{Email: email, Username: email, PasswordHash: "x", IsActive: true}
	if err := db.Create(&u).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u.ID
}

func seedAccount(t *testing.T, db *gorm.DB, userID uint, name string, balanceCent int64) uint {
	t.Helper()
	a := models.Account{
		UserID:      userID,
		Name:        name,
		Type:        models.AccountTypeBank,
		BalanceCent: balanceCent,
		IsActive:    true,
	}
	if err := db.Create(&a).Error; err != nil {
		t.Fatalf("seed account: %v", err)
	}
	return a.ID
}

func seedCategoryWithSub(t *testing.T, db *gorm.DB, userID uint, name, subName string) (uint, uint) {
	t.Helper()
	c := models.Category{UserID: userID, Name: name, IsActive: true}
	if err := db.Create(&c).Error; err != nil {
		t.Fatalf("seed category: %v", err)
	}
	sc := models.SubCategory{UserID: userID, CategoryID: c.ID, Name: subName, IsActive: true}
	if err := db.Create(&sc).Error; err != nil {
		t.Fatalf("seed sub-category: %v", err)
	}
	return c.ID, sc.ID
}

func balanceOf(t *testing.T, db *gorm.DB, accountID uint) int64 {
	t.Helper()
	var a models.Account
	if err := db.First(&a, accountID).Error; err != nil {
		t.Fatalf("load account %d: %v", accountID, err)
	}
	return a.BalanceCent
}

func activeCount(t *testing.T, db *gorm.DB, userID uint) int64 {
	t.Helper()
	var n int64
	if err := db.Model(&models.Transaction{}).
		Where("user_id = ? AND is_active = ?", userID, true).Count(&n).Error; err != nil {
		t.Fatalf("count transactions: %v", err)
	}
	return n
}

// replayBalances recomputes every account balance from scratch by applying
// the effect of each active transaction, and compares with the stored
// balances. This is the ground-truth invariant of the whole ledger.
func replayBalances(t *testing.T, db *gorm.DB, userID uint, opening map[uint]int64) {
	t.Helper()
	want := make(map[uint]int64, len(opening))
	for id, cent := range opening {
		want[id] = cent
	}

	var txs []models.Transaction
	if err := db.Where("user_id = ? AND is_active = ?", userID, true).
		Order("id").Find(&txs).Error; err != nil {
		t.Fatalf("load transactions: %v", err)
	}
	for _, tx := range txs {
		eff := EffectOf(tx.Type, tx.AmountCent)
		want[tx.FromAccountID] += eff.FromDelta
		if tx.ToAccountID != nil {
			want[*tx.ToAccountID] += eff.ToDelta
		}
	}

	for id, cent := range want {
		if got := balanceOf(t, db, id); got != cent {
			t.Errorf("account %d: stored balance %d, replay gives %d", id, got, cent)
		}
	}
}

// ============ 记一笔 ============

func TestAddExpense(t *testing.T) {
	svc, db := newTestService(t)
	userID := seedUser(t, db, "u1@test.dev")
	wallet := seedAccount(t, db, userID, "wallet", 10000)
	catID, subID := seedCategoryWithSub(t, db, userID, "food", "groceries")

	res, err := svc.Add(context.Background(), userID, AddInput{
		Type:          models.TransactionTypeExpense,
		AmountCent:    5000,
		Date:          time.Now(),
		FromAccountID: wallet,
		CategoryID:    &catID,
		SubCategoryID: &subID,
	})
	if err != nil {
		t.Fatalf("add expense: %v", err)
	}
	if res.TransactionID == 0 {
		t.Error("missing transaction id")
	}
	if got := balanceOf(t, db, wallet); got != 5000 {
		t.Errorf("wallet balance = %d, want 5000", got)
	}
	if res.TotalAvailableCent != 5000 {
		t.Errorf("total available = %d, want 5000", res.TotalAvailableCent)
	}
	if len(res.Accounts) != 1 || res.Accounts[0].BalanceCent != 5000 {
		t.Errorf("result accounts = %+v", res.Accounts)
	}
}

func TestAddIncome(t *testing.T) {
	svc, db := newTestService(t)
	userID := seedUser(t, db, "u1@test.dev")
	bank := seedAccount(t, db, userID, "bank", 0)
	catID, subID := seedCategoryWithSub(t, db, userID, "salary", "monthly")

	_, err := svc.Add(context.Background(), userID, AddInput{
		Type:          models.TransactionTypeIncome,
		AmountCent:    123456,
		Date:          time.Now(),
		FromAccountID: bank,
		CategoryID:    &catID,
		SubCategoryID: &subID,
	})
	if err != nil {
		t.Fatalf("add income: %v", err)
	}
	if got := balanceOf(t, db, bank); got != 123456 {
		t.Errorf("bank balance = %d, want 123456", got)
	}
}

func TestAddTransfer(t *testing.T) {
	svc, db := newTestService(t)
	userID := seedUser(t, db, "u1@test.dev")
	wallet := seedAccount(t, db, userID, "wallet", 10000)
	bank := seedAccount(t, db, userID, "bank", 500)

	res, err := svc.Add(context.Background(), userID, AddInput{
		Type:          models.TransactionTypeTransfer,
		AmountCent:    3000,
		Date:          time.Now(),
		FromAccountID: wallet,
		ToAccountID:   &bank,
	})
	if err != nil {
		t.Fatalf("add transfer: %v", err)
	}
	if got := balanceOf(t, db, wallet); got != 7000 {
		t.Errorf("wallet balance = %d, want 7000", got)
	}
	if got := balanceOf(t, db, bank); got != 3500 {
		t.Errorf("bank balance = %d, want 3500", got)
	}
	// transfers move money around, total stays put
	if res.TotalAvailableCent != 10500 {
		t.Errorf("total available = %d, want 10500", res.TotalAvailableCent)
	}
	if len(res.Accounts) != 2 {
		t.Errorf("result should list both touched accounts, got %+v", res.Accounts)
	}
}

func TestAddRejectsSameAccountTransfer(t *testing.T) {
	svc, db := newTestService(t)
	userID := seedUser(t, db, "u1@test.dev")
	wallet := seedAccount(t, db, userID, "wallet", 10000)

	_, err := svc.Add(context.Background(), userID, AddInput{
		Type:          models.TransactionTypeTransfer,
		AmountCent:    1000,
		Date:          time.Now(),
		FromAccountID: wallet,
		ToAccountID:   &wallet,
	})
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("want ValidationError, got %v", err)
	}
	// nothing may have changed
	if got := balanceOf(t, db, wallet); got != 10000 {
		t.Errorf("wallet balance changed to %d after failed add", got)
	}
	if n := activeCount(t, db, userID); n != 0 {
		t.Errorf("failed add left %d transactions", n)
	}
}

func TestAddRejectsTransferWithCategory(t *testing.T) {
	svc, db := newTestService(t)
	userID := seedUser(t, db, "u1@test.dev")
	wallet := seedAccount(t, db, userID, "wallet", 10000)
	bank := seedAccount(t, db, userID, "bank", 0)
	catID, _ := seedCategoryWithSub(t, db, userID, "food", "groceries")

	_, err := svc.Add(context.Background(), userID, AddInput{
		Type:          models.TransactionTypeTransfer,
		AmountCent:    1000,
		Date:          time.Now(),
		FromAccountID: wallet,
		ToAccountID:   &bank,
		CategoryID:    &catID,
	})
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("want ValidationError, got %v", err)
	}
}

func TestAddRejectsNonPositiveAmount(t *testing.T) {
	svc, db := newTestService(t)
	userID := seedUser(t, db, "u1@test.dev")
	wallet := seedAccount(t, db, userID, "wallet", 10000)

	for _, amount := range []int64{0, -100} {
		_, err := svc.Add(context.Background(), userID, AddInput{
			Type:          models.TransactionTypeExpense,
			AmountCent:    amount,
			Date:          time.Now(),
			FromAccountID: wallet,
		})
		var ve *ValidationError
		if !errors.As(err, &ve) {
			t.Errorf("amount %d: want ValidationError, got %v", amount, err)
		}
	}
}

func TestAddUnknownAccount(t *testing.T) {
	svc, db := newTestService(t)
	userID := seedUser(t, db, "u1@test.dev")

	_, err := svc.Add(context.Background(), userID, AddInput{
		Type:          models.TransactionTypeExpense,
		AmountCent:    1000,
		Date:          time.Now(),
		FromAccountID: 999,
	})
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("want NotFoundError, got %v", err)
	}
}

func TestAddOtherUsersAccountIsInvisible(t *testing.T) {
	svc, db := newTestService(t)
	owner := seedUser(t, db, "owner@test.dev")
	intruder := seedUser(t, db, "intruder@test.dev")
	wallet := seedAccount(t, db, owner, "wallet", 10000)

	_, err := svc.Add(context.Background(), intruder, AddInput{
		Type:          models.TransactionTypeExpense,
		AmountCent:    1000,
		Date:          time.Now(),
		FromAccountID: wallet,
	})
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("cross-user access must look like not-found, got %v", err)
	}
	if got := balanceOf(t, db, wallet); got != 10000 {
		t.Errorf("owner balance changed to %d", got)
	}
}

// ============ 修改账目 ============

func TestEditAmount(t *testing.T) {
	svc, db := newTestService(t)
	userID := seedUser(t, db, "u1@test.dev")
	wallet := seedAccount(t, db, userID, "wallet", 10000)

	added, err := svc.Add(context.Background(), userID, AddInput{
		Type:          models.TransactionTypeExpense,
		AmountCent:    5000,
		Date:          time.Now(),
		FromAccountID: wallet,
	})
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	newAmount := int64(2000)
	res, err := svc.Edit(context.Background(), userID, added.TransactionID, EditInput{
		AmountCent: &newAmount,
	})
	if err != nil {
		t.Fatalf("edit: %v", err)
	}

	// old effect reversed, new one applied: 10000 - 2000
	if got := balanceOf(t, db, wallet); got != 8000 {
		t.Errorf("wallet balance = %d, want 8000", got)
	}
	if res.TransactionID == added.TransactionID {
		t.Error("edit must produce a new transaction id")
	}

	// the old row is retired and points at its replacement
	var old models.Transaction
	if err := db.First(&old, added.TransactionID).Error; err != nil {
		t.Fatalf("load old row: %v", err)
	}
	if old.IsActive {
		t.Error("old row still active after edit")
	}
	if old.SupersededByID == nil || *old.SupersededByID != res.TransactionID {
		t.Errorf("old row superseded_by = %v, want %d", old.SupersededByID, res.TransactionID)
	}
	if n := activeCount(t, db, userID); n != 1 {
		t.Errorf("active transactions = %d, want 1", n)
	}
}

func TestEditExpenseToTransferDropsCategory(t *testing.T) {
	svc, db := newTestService(t)
	userID := seedUser(t, db, "u1@test.dev")
	wallet := seedAccount(t, db, userID, "wallet", 10000)
	bank := seedAccount(t, db, userID, "bank", 0)
	catID, subID := seedCategoryWithSub(t, db, userID, "food", "groceries")

	added, err := svc.Add(context.Background(), userID, AddInput{
		Type:          models.TransactionTypeExpense,
		AmountCent:    3000,
		Date:          time.Now(),
		FromAccountID: wallet,
		CategoryID:    &catID,
		SubCategoryID: &subID,
	})
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	// change type only; the carried-over category must be dropped, not
	// rejected, or the type could never be changed
	transfer := models.TransactionTypeTransfer
	res, err := svc.Edit(context.Background(), userID, added.TransactionID, EditInput{
		Type:        &transfer,
		ToAccountID: &bank,
	})
	if err != nil {
		t.Fatalf("edit to transfer: %v", err)
	}

	replacement, err := svc.Get(context.Background(), userID, res.TransactionID)
	if err != nil {
		t.Fatalf("load replacement: %v", err)
	}
	if replacement.CategoryID != nil || replacement.SubCategoryID != nil {
		t.Error("carried-over category survived a type change to transfer")
	}
	if got := balanceOf(t, db, wallet); got != 7000 {
		t.Errorf("wallet balance = %d, want 7000", got)
	}
	if got := balanceOf(t, db, bank); got != 3000 {
		t.Errorf("bank balance = %d, want 3000", got)
	}
}

func TestEditRejectsExplicitCategoryOnTransfer(t *testing.T) {
	svc, db := newTestService(t)
	userID := seedUser(t, db, "u1@test.dev")
	wallet := seedAccount(t, db, userID, "wallet", 10000)
	bank := seedAccount(t, db, userID, "bank", 0)
	catID, _ := seedCategoryWithSub(t, db, userID, "food", "groceries")

	added, err := svc.Add(context.Background(), userID, AddInput{
		Type:          models.TransactionTypeTransfer,
		AmountCent:    1000,
		Date:          time.Now(),
		FromAccountID: wallet,
		ToAccountID:   &bank,
	})
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	_, err = svc.Edit(context.Background(), userID, added.TransactionID, EditInput{
		CategoryID: &catID,
	})
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("want ValidationError, got %v", err)
	}
	// failed edit leaves balances alone
	if got := balanceOf(t, db, wallet); got != 9000 {
		t.Errorf("wallet balance = %d, want 9000", got)
	}
}

func TestEditEquivalentToDeleteThenAdd(t *testing.T) {
	// the same change applied as one edit or as delete+add must land on the
	// same balances
	run := func(t *testing.T, useEdit bool) (int64, int64) {
		svc, db := newTestService(t)
		userID := seedUser(t, db, "u1@test.dev")
		wallet := seedAccount(t, db, userID, "wallet", 10000)
		bank := seedAccount(t, db, userID, "bank", 2000)

		added, err := svc.Add(context.Background(), userID, AddInput{
			Type:          models.TransactionTypeExpense,
			AmountCent:    4000,
			Date:          time.Now(),
			FromAccountID: wallet,
		})
		if err != nil {
			t.Fatalf("add: %v", err)
		}

		if useEdit {
			transfer := models.TransactionTypeTransfer
			amount := int64(1500)
			_, err = svc.Edit(context.Background(), userID, added.TransactionID, EditInput{
				Type:        &transfer,
				AmountCent:  &amount,
				ToAccountID: &bank,
			})
			if err != nil {
				t.Fatalf("edit: %v", err)
			}
		} else {
			if _, err = svc.Delete(context.Background(), userID, added.TransactionID); err != nil {
				t.Fatalf("delete: %v", err)
			}
			_, err = svc.Add(context.Background(), userID, AddInput{
				Type:          models.TransactionTypeTransfer,
				AmountCent:    1500,
				Date:          time.Now(),
				FromAccountID: wallet,
				ToAccountID:   &bank,
			})
			if err != nil {
				t.Fatalf("re-add: %v", err)
			}
		}
		return balanceOf(t, db, wallet), balanceOf(t, db, bank)
	}

	editWallet, editBank := run(t, true)
	rawWallet, rawBank := run(t, false)
	if editWallet != rawWallet || editBank != rawBank {
		t.Errorf("edit gave (%d, %d), delete+add gave (%d, %d)",
			editWallet, editBank, rawWallet, rawBank)
	}
}

// ============ 删除账目 ============

func TestDeleteTransferRestoresBalances(t *testing.T) {
	svc, db := newTestService(t)
	userID := seedUser(t, db, "u1@test.dev")
	wallet := seedAccount(t, db, userID, "wallet", 10000)
	bank := seedAccount(t, db, userID, "bank", 500)

	added, err := svc.Add(context.Background(), userID, AddInput{
		Type:          models.TransactionTypeTransfer,
		AmountCent:    3000,
		Date:          time.Now(),
		FromAccountID: wallet,
		ToAccountID:   &bank,
	})
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	if _, err := svc.Delete(context.Background(), userID, added.TransactionID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got := balanceOf(t, db, wallet); got != 10000 {
		t.Errorf("wallet balance = %d, want 10000", got)
	}
	if got := balanceOf(t, db, bank); got != 500 {
		t.Errorf("bank balance = %d, want 500", got)
	}

	// the retired row is gone from the active ledger; deleting again fails
	_, err = svc.Delete(context.Background(), userID, added.TransactionID)
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("second delete: want NotFoundError, got %v", err)
	}
	if got := balanceOf(t, db, wallet); got != 10000 {
		t.Errorf("failed delete moved wallet balance to %d", got)
	}
}

// ============ 综合不变量 ============

func TestReplayMatchesStoredBalances(t *testing.T) {
	svc, db := newTestService(t)
	userID := seedUser(t, db, "u1@test.dev")
	wallet := seedAccount(t, db, userID, "wallet", 25000)
	bank := seedAccount(t, db, userID, "bank", 0)
	catID, subID := seedCategoryWithSub(t, db, userID, "food", "groceries")
	opening := map[uint]int64{wallet: 25000, bank: 0}

	ctx := context.Background()
	a1, err := svc.Add(ctx, userID, AddInput{
		Type: models.TransactionTypeExpense, AmountCent: 4200, Date: time.Now(),
		FromAccountID: wallet, CategoryID: &catID, SubCategoryID: &subID,
	})
	if err != nil {
		t.Fatalf("add 1: %v", err)
	}
	a2, err := svc.Add(ctx, userID, AddInput{
		Type: models.TransactionTypeTransfer, AmountCent: 10000, Date: time.Now(),
		FromAccountID: wallet, ToAccountID: &bank,
	})
	if err != nil {
		t.Fatalf("add 2: %v", err)
	}
	if _, err := svc.Add(ctx, userID, AddInput{
		Type: models.TransactionTypeIncome, AmountCent: 700, Date: time.Now(),
		FromAccountID: bank, CategoryID: &catID, SubCategoryID: &subID,
	}); err != nil {
		t.Fatalf("add 3: %v", err)
	}

	amount := int64(9999)
	if _, err := svc.Edit(ctx, userID, a2.TransactionID, EditInput{AmountCent: &amount}); err != nil {
		t.Fatalf("edit: %v", err)
	}
	if _, err := svc.Delete(ctx, userID, a1.TransactionID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	replayBalances(t, db, userID, opening)
}

// ============ 查询 ============

func TestListFiltersAndPagination(t *testing.T) {
	svc, db := newTestService(t)
	userID := seedUser(t, db, "u1@test.dev")
	wallet := seedAccount(t, db, userID, "wallet", 100000)
	bank := seedAccount(t, db, userID, "bank", 0)
	catID, subID := seedCategoryWithSub(t, db, userID, "food", "groceries")

	ctx := context.Background()
	day := func(d int) time.Time { return time.Date(2026, 3, d, 12, 0, 0, 0, time.UTC) }

	for i, in := range []AddInput{
		{Type: models.TransactionTypeExpense, AmountCent: 1000, Date: day(1),
			FromAccountID: wallet, CategoryID: &catID, SubCategoryID: &subID},
		{Type: models.TransactionTypeExpense, AmountCent: 2500, Date: day(2),
			FromAccountID: wallet, CategoryID: &catID, SubCategoryID: &subID},
		{Type: models.TransactionTypeTransfer, AmountCent: 5000, Date: day(3),
			FromAccountID: wallet, ToAccountID: &bank},
		{Type: models.TransactionTypeIncome, AmountCent: 8000, Date: day(4),
			FromAccountID: bank},
	} {
		if _, err := svc.Add(ctx, userID, in); err != nil {
			t.Fatalf("add %d: %v", i, err)
		}
	}

	// no filter, no size: everything, newest first
	txs, total, err := svc.List(ctx, userID, ListFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 4 || len(txs) != 4 {
		t.Fatalf("list all: total=%d len=%d, want 4", total, len(txs))
	}
	if !txs[0].Date.After(txs[len(txs)-1].Date) {
		t.Error("list is not newest first")
	}

	// by type
	txs, total, err = svc.List(ctx, userID, ListFilter{Type: models.TransactionTypeExpense})
	if err != nil {
		t.Fatalf("list by type: %v", err)
	}
	if total != 2 {
		t.Errorf("expenses total = %d, want 2", total)
	}

	// by account (source or destination)
	txs, total, err = svc.List(ctx, userID, ListFilter{AccountID: &bank})
	if err != nil {
		t.Fatalf("list by account: %v", err)
	}
	if total != 2 {
		t.Errorf("bank transactions total = %d, want 2", total)
	}

	// by date range
	start, end := day(2), day(3)
	_, total, err = svc.List(ctx, userID, ListFilter{StartDate: &start, EndDate: &end})
	if err != nil {
		t.Fatalf("list by range: %v", err)
	}
	if total != 2 {
		t.Errorf("range total = %d, want 2", total)
	}

	// by amount window
	lo, hi := int64(2000), int64(6000)
	_, total, err = svc.List(ctx, userID, ListFilter{MinAmountCent: &lo, MaxAmountCent: &hi})
	if err != nil {
		t.Fatalf("list by amount: %v", err)
	}
	if total != 2 {
		t.Errorf("amount window total = %d, want 2", total)
	}

	// pagination: total stays at the full match count
	txs, total, err = svc.List(ctx, userID, ListFilter{Page: 2, Size: 3})
	if err != nil {
		t.Fatalf("list page 2: %v", err)
	}
	if total != 4 || len(txs) != 1 {
		t.Errorf("page 2: total=%d len=%d, want total=4 len=1", total, len(txs))
	}
}

func TestGetPreloadsReferences(t *testing.T) {
	svc, db := newTestService(t)
	userID := seedUser(t, db, "u1@test.dev")
	wallet := seedAccount(t, db, userID, "wallet", 10000)
	catID, subID := seedCategoryWithSub(t, db, userID, "food", "groceries")

	added, err := svc.Add(context.Background(), userID, AddInput{
		Type:          models.TransactionTypeExpense,
		AmountCent:    1000,
		Date:          time.Now(),
		FromAccountID: wallet,
		CategoryID:    &catID,
		SubCategoryID: &subID,
	})
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	got, err := svc.Get(context.Background(), userID, added.TransactionID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.FromAccount.Name != "wallet" {
		t.Errorf("from account = %q", got.FromAccount.Name)
	}
	if got.Category == nil || got.Category.Name != "food" {
		t.Errorf("category not preloaded: %+v", got.Category)
	}
	if got.SubCategory == nil || got.SubCategory.Name != "groceries" {
		t.Errorf("sub-category not preloaded: %+v", got.SubCategory)
	}

	// other users never see it
	stranger := seedUser(t, db, "u2@test.dev")
	_, err = svc.Get(context.Background(), stranger, added.TransactionID)
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("cross-user get: want NotFoundError, got %v", err)
	}
}
