package handler

import (
	"net/http"
	"strconv"

	"github.com/Inthesearch/budgetTracker/internal/ledger"
	"github.com/Inthesearch/budgetTracker/internal/models"
	"github.com/Inthesearch/budgetTracker/internal/util"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// SubCategoryHandler 负责子分类相关接口
type SubCategoryHandler struct {
	DB     *gorm.DB
	Ledger *ledger.Service
}

func NewSubCategoryHandler(db *gorm.DB, svc *ledger.Service) *SubCategoryHandler {
	return &SubCategoryHandler{DB: db, Ledger: svc}
}

type createSubCategoryReq struct {
	CategoryID  uint   `json:"category_id" binding:"required"`
	Name        string `json:"name" binding:"required,max=64"`
	Description string `json:"description" binding:"max=255"`
}

type changeCategoryReq struct {
	NewCategoryID uint `json:"new_category_id" binding:"required"`
}

func subCategoryResp(sc *models.SubCategory) gin.H {
	return gin.H{
		"id":          sc.ID,
		"category_id": sc.CategoryID,
		"name":        util.DisplayName(sc.Name),
		"description": sc.Description,
		"created_at":  sc.CreatedAt,
	}
}

// CreateSubCategory adds a sub-category under an owned category, or links to
// the existing one when the name is already taken in that category.
func (h *SubCategoryHandler) CreateSubCategory(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}

	var req createSubCategoryReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid request body")
		return
	}

	name := util.NormalizeName(req.Name)
	if name == "" {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "sub-category name is required")
		return
	}

	var category models.Category
	if err := h.DB.Where("id = ? AND user_id = ? AND is_active = ?", req.CategoryID, user.ID, true).
		First(&category).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			util.Error(c, http.StatusNotFound, util.CodeNotFound, "category not found")
		} else {
			util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "failed to load category")
		}
		return
	}

	var existing models.SubCategory
	err := h.DB.Where("user_id = ? AND category_id = ? AND name = ? AND is_active = ?",
		user.ID, category.ID, name, true).First(&existing).Error
	if err == nil {
		util.Success(c, util.Response{
			"message":      "sub-category already exists",
			"sub_category": subCategoryResp(&existing),
		})
		return
	}
	if err != gorm.ErrRecordNotFound {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "failed to check sub-category name")
		return
	}

	sub := models.SubCategory{
		UserID:      user.ID,
		CategoryID:  category.ID,
		Name:        name,
		Description: req.Description,
		IsActive:    true,
	}
	if err := h.DB.Create(&sub).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "failed to create sub-category")
		return
	}

	util.Success(c, util.Response{
		"sub_category": subCategoryResp(&sub),
	})
}

// DeleteSubCategory soft deletes a sub-category. The lifecycle controller
// blocks the delete while active transactions reference it.
func (h *SubCategoryHandler) DeleteSubCategory(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.Ledger.DeactivateSubCategory(c.Request.Context(), user.ID, id); err != nil {
		writeLedgerError(c, err)
		return
	}

	util.Success(c, util.Response{"message": "sub-category deleted"})
}

// ChangeCategory moves a sub-category to another category by forking: the
// old row is retired and a new row with the same name is created under the
// new category, so existing transactions keep their historical link.
func (h *SubCategoryHandler) ChangeCategory(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req changeCategoryReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid request body")
		return
	}

	replacement, err := h.Ledger.MoveSubCategory(c.Request.Context(), user.ID, id, req.NewCategoryID)
	if err != nil {
		writeLedgerError(c, err)
		return
	}

	util.Success(c, util.Response{
		"sub_category": subCategoryResp(replacement),
	})
}

// ListSubCategories returns the active sub-categories of one owned category.
func (h *SubCategoryHandler) ListSubCategories(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}

	categoryID, err := strconv.Atoi(c.Query("category_id"))
	if err != nil || categoryID <= 0 {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "category_id is required")
		return
	}

	var category models.Category
	if err := h.DB.Where("id = ? AND user_id = ? AND is_active = ?", categoryID, user.ID, true).
		First(&category).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			util.Error(c, http.StatusNotFound, util.CodeNotFound, "category not found")
		} else {
			util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "failed to load category")
		}
		return
	}

	var subs []models.SubCategory
	if err := h.DB.Where("user_id = ? AND category_id = ? AND is_active = ?", user.ID, category.ID, true).
		Order("name ASC").Find(&subs).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "failed to list sub-categories")
		return
	}

	items := make([]gin.H, 0, len(subs))
	for i := range subs {
		items = append(items, subCategoryResp(&subs[i]))
	}

	util.Success(c, util.Response{"sub_categories": items})
}
