package handler

import (
	"log"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/Inthesearch/budgetTracker/internal/models"
	"github.com/Inthesearch/budgetTracker/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AuthHandler 负责登录/注册相关接口
type AuthHandler struct {
	DB         *gorm.DB
	JWTSecret  string
	TokenTTL   time.Duration
	BcryptCost int
	ResetTTL   time.Duration
}

func NewAuthHandler(db *gorm.DB, jwtSecret string, ttlHours, bcryptCost, resetHours int) *AuthHandler {
	if ttlHours <= 0 {
		ttlHours = 24
	}
	if resetHours <= 0 {
		resetHours = 1
	}
	return &AuthHandler{
		DB:         db,
		JWTSecret:  jwtSecret,
		TokenTTL:   time.Duration(ttlHours) * time.Hour,
		BcryptCost: bcryptCost,
		ResetTTL:   time.Duration(resetHours) * time.Hour,
	}
}

// ---------- 注册 ----------

type registerReq struct {
	Email    string `json:"email" binding:"required,email"`
	Username string `json:"username" binding:"required"` // 3-20 位，字母数字下划线
	Password string `json:"password" binding:"required"` // 8-32 且强度检查
	FullName string `json:"full_name" binding:"max=64"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req registerReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid request body")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	usernameRe := regexp.MustCompile(`^[A-Za-z0-9_]{3,20}$`)
	if !usernameRe.MatchString(req.Username) {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "username must be 3-20 letters, digits or underscores")
		return
	}

	if !isStrongPassword(req.Password) {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "password must be 8-32 characters with upper, lower and digit")
		return
	}

	// 不区分大小写唯一
	var count int64
	if err := h.DB.Model(&models.User{}).
		Where("LOWER(username) = LOWER(?) OR LOWER(email) = ?", req.Username, req.Email).
		Count(&count).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "failed to check user")
		return
	}
	if count > 0 {
		util.Error(c, http.StatusConflict, util.CodeConflict, "email or username already registered")
		return
	}

	hash, err := util.HashPassword(req.Password, h.BcryptCost)
	if err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "failed to hash password")
		return
	}

	user := models.User{
		Email:        req.Email,
		Username:     req.Username,
		PasswordHash: hash,
		FullName:     req.FullName,
		IsActive:     true,
	}
	if err := h.DB.Create(&user).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "failed to create user")
		return
	}

	util.Success(c, util.Response{
		"message": "registered successfully",
		"user": gin.H{
			"id":        user.ID,
			"email":     user.Email,
			"username":  user.Username,
			"full_name": user.FullName,
		},
	})
}

// 检查密码强度：8-32 位，包含大小写字母和数字
func isStrongPassword(pwd string) bool {
	if len(pwd) < 8 || len(pwd) > 32 {
		return false
	}
	var hasUpper, hasLower, hasDigit bool
	for _, ch := range pwd {
		switch {
		case ch >= 'A' && ch <= 'Z':
			hasUpper = true
		case ch >= 'a' && ch <= 'z':
			hasLower = true
		case ch >= '0' && ch <= '9':
			hasDigit = true
		}
	}
	return hasUpper && hasLower && hasDigit
}

// ---------- 登录 ----------

type loginReq struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid request body")
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	var user models.User
	if err := h.DB.Where("LOWER(email) = ?", req.Email).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			util.Error(c, http.StatusUnauthorized, util.CodeAuth, "incorrect email or password")
		} else {
			util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "failed to load user")
		}
		return
	}

	if !util.CheckPassword(req.Password, user.PasswordHash) {
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, "incorrect email or password")
		return
	}

	if !user.IsActive {
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, "account is inactive")
		return
	}

	token, err := util.GenerateToken(h.JWTSecret, user.ID, h.TokenTTL)
	if err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "failed to generate token")
		return
	}

	util.Success(c, util.Response{
		"token":      token,
		"expires_in": int64(h.TokenTTL.Seconds()),
		"user": gin.H{
			"id":        user.ID,
			"email":     user.Email,
			"username":  user.Username,
			"full_name": user.FullName,
		},
	})
}

// ---------- 找回密码 ----------

type forgotPassReq struct {
	Email string `json:"email" binding:"required,email"`
}

// ForgotPassword issues a single-use reset token. Mail delivery is handled
// outside this service; the token is persisted and logged only.
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req forgotPassReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid request body")
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))

	var user models.User
	if err := h.DB.Where("LOWER(email) = ?", email).First(&user).Error; err != nil {
		// do not reveal whether the email exists
		util.Success(c, util.Response{"message": "if the email exists, a reset link has been sent"})
		return
	}

	reset := models.PasswordReset{
		Email:     user.Email,
		Token:     uuid.NewString(),
		ExpiresAt: time.Now().Add(h.ResetTTL),
	}
	if err := h.DB.Create(&reset).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "failed to create reset token")
		return
	}

	log.Printf("password reset token issued for user %d", user.ID)

	util.Success(c, util.Response{"message": "if the email exists, a reset link has been sent"})
}

type resetPassReq struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

// ResetPassword consumes a reset token and replaces the user's credential.
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req resetPassReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid request body")
		return
	}

	if !isStrongPassword(req.NewPassword) {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "password must be 8-32 characters with upper, lower and digit")
		return
	}

	var reset models.PasswordReset
	if err := h.DB.Where("token = ? AND is_used = ?", req.Token, false).First(&reset).Error; err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid or expired reset token")
		return
	}
	if time.Now().After(reset.ExpiresAt) {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid or expired reset token")
		return
	}

	var user models.User
	if err := h.DB.Where("LOWER(email) = LOWER(?)", reset.Email).First(&user).Error; err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid or expired reset token")
		return
	}

	hash, err := util.HashPassword(req.NewPassword, h.BcryptCost)
	if err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "failed to hash password")
		return
	}

	err = h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&user).Update("password_hash", hash).Error; err != nil {
			return err
		}
		return tx.Model(&reset).Update("is_used", true).Error
	})
	if err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "failed to reset password")
		return
	}

	util.Success(c, util.Response{"message": "password reset successfully"})
}
