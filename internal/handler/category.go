package handler

import (
	"net/http"

	"github.com/Inthesearch/budgetTracker/internal/ledger"
	"github.com/Inthesearch/budgetTracker/internal/models"
	"github.com/Inthesearch/budgetTracker/internal/util"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// CategoryHandler 负责分类相关接口
type CategoryHandler struct {
	DB     *gorm.DB
	Ledger *ledger.Service
}

func NewCategoryHandler(db *gorm.DB, svc *ledger.Service) *CategoryHandler {
	return &CategoryHandler{DB: db, Ledger: svc}
}

type createCategoryReq struct {
	Name        string `json:"name" binding:"required,max=64"`
	Description string `json:"description" binding:"max=255"`
	Color       string `json:"color" binding:"max=16"`
	Icon        string `json:"icon" binding:"max=16"`
}

type updateCategoryReq struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Color       *string `json:"color"`
	Icon        *string `json:"icon"`
}

func categoryResp(cat *models.Category) gin.H {
	return gin.H{
		"id":          cat.ID,
		"name":        util.DisplayName(cat.Name),
		"description": cat.Description,
		"color":       cat.Color,
		"icon":        cat.Icon,
		"created_at":  cat.CreatedAt,
	}
}

// CreateCategory adds a category, or links to the existing one when the
// (case-insensitive) name is already taken.
func (h *CategoryHandler) CreateCategory(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}

	var req createCategoryReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid request body")
		return
	}

	name := util.NormalizeName(req.Name)
	if name == "" {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "category name is required")
		return
	}

	var existing models.Category
	err := h.DB.Where("user_id = ? AND name = ? AND is_active = ?", user.ID, name, true).
		First(&existing).Error
	if err == nil {
		util.Success(c, util.Response{
			"message":  "category already exists",
			"category": categoryResp(&existing),
		})
		return
	}
	if err != gorm.ErrRecordNotFound {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "failed to check category name")
		return
	}

	category := models.Category{
		UserID:      user.ID,
		Name:        name,
		Description: req.Description,
		Color:       req.Color,
		Icon:        req.Icon,
		IsActive:    true,
	}
	if err := h.DB.Create(&category).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "failed to create category")
		return
	}

	util.Success(c, util.Response{
		"category": categoryResp(&category),
	})
}

// UpdateCategory edits name/description/color/icon.
func (h *CategoryHandler) UpdateCategory(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req updateCategoryReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid request body")
		return
	}

	var category models.Category
	if err := h.DB.Where("id = ? AND user_id = ? AND is_active = ?", id, user.ID, true).
		First(&category).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			util.Error(c, http.StatusNotFound, util.CodeNotFound, "category not found")
		} else {
			util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "failed to load category")
		}
		return
	}

	if req.Name != nil {
		name := util.NormalizeName(*req.Name)
		if name == "" {
			util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "category name is required")
			return
		}
		if name != category.Name {
			var count int64
			if err := h.DB.Model(&models.Category{}).
				Where("user_id = ? AND name = ? AND is_active = ? AND id <> ?", user.ID, name, true, category.ID).
				Count(&count).Error; err != nil {
				util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "failed to check category name")
				return
			}
			if count > 0 {
				util.Error(c, http.StatusConflict, util.CodeConflict, "category name already exists")
				return
			}
		}
		category.Name = name
	}
	if req.Description != nil {
		category.Description = *req.Description
	}
	if req.Color != nil {
		category.Color = *req.Color
	}
	if req.Icon != nil {
		category.Icon = *req.Icon
	}

	if err := h.DB.Save(&category).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "failed to update category")
		return
	}

	util.Success(c, util.Response{
		"category": categoryResp(&category),
	})
}

// DeleteCategory soft deletes a category and cascades to its
// sub-categories. The lifecycle controller blocks the delete while active
// transactions reference the category.
func (h *CategoryHandler) DeleteCategory(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.Ledger.DeactivateCategory(c.Request.Context(), user.ID, id); err != nil {
		writeLedgerError(c, err)
		return
	}

	util.Success(c, util.Response{"message": "category deleted"})
}

// ListCategories returns all active categories of the user.
func (h *CategoryHandler) ListCategories(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}

	var categories []models.Category
	if err := h.DB.Where("user_id = ? AND is_active = ?", user.ID, true).
		Order("name ASC").Find(&categories).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "failed to list categories")
		return
	}

	items := make([]gin.H, 0, len(categories))
	for i := range categories {
		items = append(items, categoryResp(&categories[i]))
	}

	util.Success(c, util.Response{"categories": items})
}

// GetCategory returns one active category.
func (h *CategoryHandler) GetCategory(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	var category models.Category
	if err := h.DB.Where("id = ? AND user_id = ? AND is_active = ?", id, user.ID, true).
		First(&category).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			util.Error(c, http.StatusNotFound, util.CodeNotFound, "category not found")
		} else {
			util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "failed to load category")
		}
		return
	}

	util.Success(c, util.Response{"category": categoryResp(&category)})
}
