package handlers

import (
	"net/http"

	"debt-splitter/config"
	"debt-splitter/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SetupRouter builds the engine with every route mounted.
func SetupRouter(log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(log), middleware.CORSMiddleware())

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": config.AppConfig.AppName,
		})
	})

	// ==========================================
	// AUTH ROUTES (public)
	// ==========================================
	auth := r.Group("/auth")
	{
		auth.POST("/register", Register)
		auth.POST("/login", Login)
		auth.GET("/verify/:token", VerifyToken)
	}

	// ==========================================
	// API ROUTES (authenticated)
	// ==========================================
	api := r.Group("/api")
	api.Use(middleware.AuthRequired())
	{
		// Users
		api.GET("/users/me", GetProfile)
		api.PUT("/users/me/fcm-token", UpdateFCMToken)
		api.GET("/users", ListUsernames)
		api.GET("/users/debts", GetUserDebtTotals)

		// Groups
		api.POST("/groups", CreateGroup)
		api.GET("/groups/:id", GetGroup)
		api.POST("/groups/:id/members", AddMembers)

		// Expenses
		api.POST("/groups/:id/expenses", CreateExpense)
		api.GET("/groups/:id/expenses", GetGroupExpenses)

		// Settlement
		api.GET("/groups/:id/balances", GetGroupBalances)
		api.POST("/groups/:id/calculate_debts", CalculateDebts)
		api.POST("/debts/split", SplitDebts)

		// Debts
		api.GET("/debts", GetDebts)
		api.POST("/debts", CreateDebt)
		api.DELETE("/debts/:id", DeleteDebt)
		api.GET("/debts/mine/sum", GetMyDebtSum)
	}

	return r
}
