package handler

import (
	"net/http"

	"github.com/Inthesearch/budgetTracker/internal/ledger"
	"github.com/Inthesearch/budgetTracker/internal/models"
	"github.com/Inthesearch/budgetTracker/internal/util"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// AccountHandler 负责资金账户相关接口
type AccountHandler struct {
	DB     *gorm.DB
	Ledger *ledger.Service
}

func NewAccountHandler(db *gorm.DB, svc *ledger.Service) *AccountHandler {
	return &AccountHandler{DB: db, Ledger: svc}
}

type createAccountReq struct {
	Name     string `json:"name" binding:"required,max=64"`
	Type     string `json:"type"`
	Balance  string `json:"balance"` // opening balance, defaults to 0
	Currency string `json:"currency" binding:"max=8"`
}

type updateAccountReq struct {
	Name     *string `json:"name"`
	Type     *string `json:"type"`
	Currency *string `json:"currency"`
}

func accountResp(a *models.Account) gin.H {
	return gin.H{
		"id":           a.ID,
		"name":         util.DisplayName(a.Name),
		"type":         a.Type,
		"balance":      util.FormatCent(a.BalanceCent),
		"balance_cent": a.BalanceCent,
		"currency":     a.Currency,
		"created_at":   a.CreatedAt,
	}
}

// CreateAccount adds a new money container. The name is stored lowercase and
// must be unique among the user's active accounts.
func (h *AccountHandler) CreateAccount(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}

	var req createAccountReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid request body")
		return
	}

	name := util.NormalizeName(req.Name)
	if name == "" {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "account name is required")
		return
	}

	accType := req.Type
	if accType == "" {
		accType = models.AccountTypeBank
	}
	if !models.ValidAccountType(accType) {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "account type must be bank, credit, cash or investment")
		return
	}

	var balanceCent int64
	if req.Balance != "" {
		var err error
		balanceCent, err = util.ParseSignedCent(req.Balance)
		if err != nil {
			util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid opening balance")
			return
		}
	}

	currency := req.Currency
	if currency == "" {
		currency = "USD"
	}

	var count int64
	if err := h.DB.Model(&models.Account{}).
		Where("user_id = ? AND name = ? AND is_active = ?", user.ID, name, true).
		Count(&count).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "failed to check account name")
		return
	}
	if count > 0 {
		util.Error(c, http.StatusConflict, util.CodeConflict, "account name already exists")
		return
	}

	account := models.Account{
		UserID:      user.ID,
		Name:        name,
		Type:        accType,
		BalanceCent: balanceCent,
		Currency:    currency,
		IsActive:    true,
	}
	if err := h.DB.Create(&account).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "failed to create account")
		return
	}

	util.Success(c, util.Response{
		"account": accountResp(&account),
	})
}

// UpdateAccount edits name/type/currency. Balance is derived from the
// transaction ledger and cannot be edited directly.
func (h *AccountHandler) UpdateAccount(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req updateAccountReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid request body")
		return
	}

	var account models.Account
	if err := h.DB.Where("id = ? AND user_id = ? AND is_active = ?", id, user.ID, true).
		First(&account).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			util.Error(c, http.StatusNotFound, util.CodeNotFound, "account not found")
		} else {
			util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "failed to load account")
		}
		return
	}

	if req.Name != nil {
		name := util.NormalizeName(*req.Name)
		if name == "" {
			util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "account name is required")
			return
		}
		if name != account.Name {
			var count int64
			if err := h.DB.Model(&models.Account{}).
				Where("user_id = ? AND name = ? AND is_active = ? AND id <> ?", user.ID, name, true, account.ID).
				Count(&count).Error; err != nil {
				util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "failed to check account name")
				return
			}
			if count > 0 {
				util.Error(c, http.StatusConflict, util.CodeConflict, "account name already exists")
				return
			}
		}
		account.Name = name
	}
	if req.Type != nil {
		if !models.ValidAccountType(*req.Type) {
			util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "account type must be bank, credit, cash or investment")
			return
		}
		account.Type = *req.Type
	}
	if req.Currency != nil {
		account.Currency = *req.Currency
	}

	if err := h.DB.Save(&account).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "failed to update account")
		return
	}

	util.Success(c, util.Response{
		"account": accountResp(&account),
	})
}

// DeleteAccount soft deletes an account. The lifecycle controller blocks the
// delete while any active transaction still references it as source or
// destination.
func (h *AccountHandler) DeleteAccount(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.Ledger.DeactivateAccount(c.Request.Context(), user.ID, id); err != nil {
		writeLedgerError(c, err)
		return
	}

	util.Success(c, util.Response{"message": "account deleted"})
}

// ListAccounts returns the user's active accounts plus total available
// funds.
func (h *AccountHandler) ListAccounts(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}

	var accounts []models.Account
	if err := h.DB.Where("user_id = ? AND is_active = ?", user.ID, true).
		Order("name ASC").Find(&accounts).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "failed to list accounts")
		return
	}

	items := make([]gin.H, 0, len(accounts))
	var totalCent int64
	for i := range accounts {
		items = append(items, accountResp(&accounts[i]))
		totalCent += accounts[i].BalanceCent
	}

	util.Success(c, util.Response{
		"accounts":              items,
		"total_available_funds": util.FormatCent(totalCent),
	})
}

// GetAccount returns one active account.
func (h *AccountHandler) GetAccount(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	var account models.Account
	if err := h.DB.Where("id = ? AND user_id = ? AND is_active = ?", id, user.ID, true).
		First(&account).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			util.Error(c, http.StatusNotFound, util.CodeNotFound, "account not found")
		} else {
			util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "failed to load account")
		}
		return
	}

	util.Success(c, util.Response{
		"account": accountResp(&account),
	})
}
