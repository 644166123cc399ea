package handler

import (
	"github.com/Inthesearch/budgetTracker/internal/util"

	"github.com/gin-gonic/gin"
)

// GetMe 返回当前登录用户信息（需要经过 AuthMiddleware）
func GetMe(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}

	util.Success(c, util.Response{
		"user": gin.H{
			"id":         user.ID,
			"email":      user.Email,
			"username":   user.Username,
			"full_name":  user.FullName,
			"created_at": user.CreatedAt,
		},
	})
}
