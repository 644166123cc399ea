package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/Inthesearch/budgetTracker/internal/ledger"
	"github.com/Inthesearch/budgetTracker/internal/models"
	"github.com/Inthesearch/budgetTracker/internal/util"

	"github.com/gin-gonic/gin"
)

// currentUser pulls the authenticated user placed in the context by
// AuthMiddleware. Writes the error response itself when missing.
func currentUser(c *gin.Context) *models.User {
	v, ok := c.Get("currentUser")
	if !ok {
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, "authentication required")
		return nil
	}
	user, ok := v.(*models.User)
	if !ok || user == nil {
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, "authentication required")
		return nil
	}
	return user
}

// pathID parses the :id route parameter.
func pathID(c *gin.Context) (uint, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid id")
		return 0, false
	}
	return uint(id), true
}

// writeLedgerError maps the core error taxonomy onto HTTP statuses and the
// fixed response envelope. Internal errors are never echoed to the caller.
func writeLedgerError(c *gin.Context, err error) {
	var nf *ledger.NotFoundError
	var ve *ledger.ValidationError
	var ce *ledger.ConflictError
	var ie *ledger.ImportError
	switch {
	case errors.As(err, &nf):
		util.Error(c, http.StatusNotFound, util.CodeNotFound, nf.Error())
	case errors.As(err, &ve):
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, ve.Error())
	case errors.As(err, &ce):
		util.Error(c, http.StatusConflict, util.CodeConflict, ce.Error())
	case errors.As(err, &ie):
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    util.CodeInvalidParam,
			"message": "import failed, no rows were committed",
			"errors":  ie.Rows,
		})
	default:
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "operation failed, please retry")
	}
}

// parseDate accepts the request date formats used across the API.
func parseDate(s string) (time.Time, bool) {
	layouts := []string{
		time.RFC3339,          // 2025-12-03T00:00:00+08:00
		"2006-01-02T15:04:05", // 2025-12-03T00:00:00
		"2006-01-02",          // 2025-12-03
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func balancesPayload(res *ledger.MutationResult) util.Response {
	accounts := make([]gin.H, 0, len(res.Accounts))
	for _, a := range res.Accounts {
		accounts = append(accounts, gin.H{
			"account_id": a.AccountID,
			"name":       util.DisplayName(a.Name),
			"balance":    util.FormatCent(a.BalanceCent),
		})
	}
	return util.Response{
		"transaction_id":        res.TransactionID,
		"accounts":              accounts,
		"total_available_funds": util.FormatCent(res.TotalAvailableCent),
	}
}
