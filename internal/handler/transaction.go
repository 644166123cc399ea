package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/Inthesearch/budgetTracker/internal/ledger"
	"github.com/Inthesearch/budgetTracker/internal/models"
	"github.com/Inthesearch/budgetTracker/internal/util"

	"github.com/gin-gonic/gin"
)

// TransactionHandler 负责账目相关接口，核心逻辑在 ledger.Service
type TransactionHandler struct {
	Ledger   *ledger.Service
	PageSize int // default page size for listings
}

func NewTransactionHandler(svc *ledger.Service, pageSize int) *TransactionHandler {
	if pageSize <= 0 {
		pageSize = 20
	}
	return &TransactionHandler{Ledger: svc, PageSize: pageSize}
}

// ---------- 请求/响应结构 ----------

type addTransactionReq struct {
	Type          string `json:"type" binding:"required,oneof=income expense transfer"`
	Amount        string `json:"amount" binding:"required"`
	Date          string `json:"date"`
	Notes         string `json:"notes" binding:"max=255"`
	FromAccountID uint   `json:"from_account_id" binding:"required"`
	ToAccountID   *uint  `json:"to_account_id"`
	CategoryID    *uint  `json:"category_id"`
	SubCategoryID *uint  `json:"sub_category_id"`
}

type editTransactionReq struct {
	Type          *string `json:"type"`
	Amount        *string `json:"amount"`
	Date          *string `json:"date"`
	Notes         *string `json:"notes"`
	FromAccountID *uint   `json:"from_account_id"`
	ToAccountID   *uint   `json:"to_account_id"`
	CategoryID    *uint   `json:"category_id"`
	SubCategoryID *uint   `json:"sub_category_id"`
}

func transactionResp(t *models.Transaction) gin.H {
	resp := gin.H{
		"id":          t.ID,
		"type":        t.Type,
		"amount":      util.FormatCent(t.AmountCent),
		"amount_cent": t.AmountCent,
		"date":        t.Date,
		"notes":       t.Notes,
		"from_account": gin.H{
			"id":   t.FromAccountID,
			"name": util.DisplayName(t.FromAccount.Name),
		},
		"created_at": t.CreatedAt,
	}
	if t.ToAccountID != nil && t.ToAccount != nil {
		resp["to_account"] = gin.H{
			"id":   *t.ToAccountID,
			"name": util.DisplayName(t.ToAccount.Name),
		}
	}
	if t.CategoryID != nil && t.Category != nil {
		resp["category"] = gin.H{
			"id":   *t.CategoryID,
			"name": util.DisplayName(t.Category.Name),
		}
	}
	if t.SubCategoryID != nil && t.SubCategory != nil {
		resp["sub_category"] = gin.H{
			"id":   *t.SubCategoryID,
			"name": util.DisplayName(t.SubCategory.Name),
		}
	}
	return resp
}

// ---------- 记一笔 ----------

func (h *TransactionHandler) AddTransaction(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}

	var req addTransactionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid request body")
		return
	}

	amountCent, err := util.ParseAmountCent(req.Amount)
	if err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid amount")
		return
	}

	date := time.Now()
	if req.Date != "" {
		var ok bool
		date, ok = parseDate(req.Date)
		if !ok {
			util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid date")
			return
		}
	}

	res, err := h.Ledger.Add(c.Request.Context(), user.ID, ledger.AddInput{
		Type:          req.Type,
		AmountCent:    amountCent,
		Date:          date,
		Notes:         req.Notes,
		FromAccountID: req.FromAccountID,
		ToAccountID:   req.ToAccountID,
		CategoryID:    req.CategoryID,
		SubCategoryID: req.SubCategoryID,
	})
	if err != nil {
		writeLedgerError(c, err)
		return
	}

	util.Success(c, balancesPayload(res))
}

// EditTransaction 修改一条账目。旧记录会被停用并由新记录替换。
func (h *TransactionHandler) EditTransaction(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req editTransactionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid request body")
		return
	}

	in := ledger.EditInput{
		Type:          req.Type,
		Notes:         req.Notes,
		FromAccountID: req.FromAccountID,
		ToAccountID:   req.ToAccountID,
		CategoryID:    req.CategoryID,
		SubCategoryID: req.SubCategoryID,
	}
	if req.Amount != nil {
		amountCent, err := util.ParseAmountCent(*req.Amount)
		if err != nil {
			util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid amount")
			return
		}
		in.AmountCent = &amountCent
	}
	if req.Date != nil {
		date, ok := parseDate(*req.Date)
		if !ok {
			util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid date")
			return
		}
		in.Date = &date
	}

	res, err := h.Ledger.Edit(c.Request.Context(), user.ID, id, in)
	if err != nil {
		writeLedgerError(c, err)
		return
	}

	util.Success(c, balancesPayload(res))
}

// DeleteTransaction 删除（停用）一条账目并回冲余额
func (h *TransactionHandler) DeleteTransaction(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	res, err := h.Ledger.Delete(c.Request.Context(), user.ID, id)
	if err != nil {
		writeLedgerError(c, err)
		return
	}

	util.Success(c, balancesPayload(res))
}

// ListTransactions 查询账目列表，支持时间范围、类型、分类、账户、金额范围筛选
func (h *TransactionHandler) ListTransactions(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}

	var f ledger.ListFilter

	if s := c.Query("start"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "start date must be YYYY-MM-DD")
			return
		}
		f.StartDate = &t
	}
	if s := c.Query("end"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "end date must be YYYY-MM-DD")
			return
		}
		// end of day
		t = t.Add(24*time.Hour - time.Nanosecond)
		f.EndDate = &t
	}

	if s := c.Query("type"); s != "" {
		if !models.ValidTransactionType(s) {
			util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "type must be income, expense or transfer")
			return
		}
		f.Type = s
	}

	for param, dst := range map[string]**uint{
		"category_id":     &f.CategoryID,
		"sub_category_id": &f.SubCategoryID,
		"account_id":      &f.AccountID,
	} {
		if s := c.Query(param); s != "" {
			v, err := strconv.Atoi(s)
			if err != nil || v <= 0 {
				util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid "+param)
				return
			}
			id := uint(v)
			*dst = &id
		}
	}

	if s := c.Query("min_amount"); s != "" {
		cent, err := util.ParseAmountCent(s)
		if err != nil {
			util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid min_amount")
			return
		}
		f.MinAmountCent = &cent
	}
	if s := c.Query("max_amount"); s != "" {
		cent, err := util.ParseAmountCent(s)
		if err != nil {
			util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid max_amount")
			return
		}
		f.MaxAmountCent = &cent
	}

	f.Page = 1
	if s := c.Query("page"); s != "" {
		page, err := strconv.Atoi(s)
		if err != nil || page < 1 {
			util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "page must be >= 1")
			return
		}
		f.Page = page
	}
	// size omitted with no page -> full result; page given without size
	// falls back to the configured page size
	if s := c.Query("size"); s != "" {
		size, err := strconv.Atoi(s)
		if err != nil || size < 1 {
			util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "size must be >= 1")
			return
		}
		f.Size = size
	} else if c.Query("page") != "" {
		f.Size = h.PageSize
	}

	txs, total, err := h.Ledger.List(c.Request.Context(), user.ID, f)
	if err != nil {
		writeLedgerError(c, err)
		return
	}

	items := make([]gin.H, 0, len(txs))
	for i := range txs {
		items = append(items, transactionResp(&txs[i]))
	}

	util.Success(c, util.Response{
		"items": items,
		"total": total,
		"page":  f.Page,
		"size":  f.Size,
	})
}

// GetTransaction 查询单条账目
func (h *TransactionHandler) GetTransaction(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	t, err := h.Ledger.Get(c.Request.Context(), user.ID, id)
	if err != nil {
		writeLedgerError(c, err)
		return
	}

	util.Success(c, util.Response{"transaction": transactionResp(t)})
}
