package router

import (
	"github.com/Inthesearch/budgetTracker/internal/config"
	"github.com/Inthesearch/budgetTracker/internal/handler"
	"github.com/Inthesearch/budgetTracker/internal/ledger"
	"github.com/Inthesearch/budgetTracker/internal/middleware"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// SetupRouter configures the Gin engine and all API routes.
func SetupRouter(cfg *config.Config, db *gorm.DB) *gin.Engine {
	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	// ====== API ======
	api := r.Group("/api")

	jwtSecret := cfg.JWT.Secret
	// 登录/注册接口（不需要鉴权）
	authHandler := handler.NewAuthHandler(db, jwtSecret, cfg.JWT.ExpireHours,
		cfg.Security.BcryptCost, cfg.Security.ResetTokenHours)
	api.POST("/auth/register", authHandler.Register)
	api.POST("/auth/login", authHandler.Login)
	api.POST("/auth/forgotPass", authHandler.ForgotPassword)
	api.POST("/auth/resetPass", authHandler.ResetPassword)

	// 需要登录才能访问的接口
	protected := api.Group("")
	protected.Use(
		middleware.AuthMiddleware(jwtSecret, db),
		middleware.AuditMiddleware(db),
	)

	protected.GET("/me", handler.GetMe)

	ledgerService := ledger.NewService(db)

	accountHandler := handler.NewAccountHandler(db, ledgerService)
	protected.POST("/accounts", accountHandler.CreateAccount)
	protected.GET("/accounts", accountHandler.ListAccounts)
	protected.GET("/accounts/:id", accountHandler.GetAccount)
	protected.PUT("/accounts/:id", accountHandler.UpdateAccount)
	protected.DELETE("/accounts/:id", accountHandler.DeleteAccount)

	categoryHandler := handler.NewCategoryHandler(db, ledgerService)
	protected.POST("/categories", categoryHandler.CreateCategory)
	protected.GET("/categories", categoryHandler.ListCategories)
	protected.GET("/categories/:id", categoryHandler.GetCategory)
	protected.PUT("/categories/:id", categoryHandler.UpdateCategory)
	protected.DELETE("/categories/:id", categoryHandler.DeleteCategory)

	subCategoryHandler := handler.NewSubCategoryHandler(db, ledgerService)
	protected.POST("/subcategories", subCategoryHandler.CreateSubCategory)
	protected.GET("/subcategories", subCategoryHandler.ListSubCategories)
	protected.DELETE("/subcategories/:id", subCategoryHandler.DeleteSubCategory)
	protected.PUT("/subcategories/:id/category", subCategoryHandler.ChangeCategory)

	transactionHandler := handler.NewTransactionHandler(ledgerService, cfg.App.PageSize)
	protected.POST("/transactions", transactionHandler.AddTransaction)
	protected.GET("/transactions", transactionHandler.ListTransactions)
	protected.GET("/transactions/:id", transactionHandler.GetTransaction)
	protected.PUT("/transactions/:id", transactionHandler.EditTransaction)
	protected.DELETE("/transactions/:id", transactionHandler.DeleteTransaction)

	importExportHandler := handler.NewImportExportHandler(ledgerService)
	protected.POST("/import", importExportHandler.ImportTransactions)
	protected.GET("/export/csv", importExportHandler.ExportCSV)
	protected.GET("/export/xlsx", importExportHandler.ExportXLSX)

	return r
}
