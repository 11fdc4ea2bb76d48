package handlers

import (
	"net/http"

	"debt-splitter/database"
	"debt-splitter/models"
	"debt-splitter/services"
	"debt-splitter/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// GET /api/debts
func GetDebts(c *gin.Context) {
	var pagination utils.PaginationQuery
	if err := c.ShouldBindQuery(&pagination); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	var debts []models.Debt
	err := database.DB.Order("created_at DESC, id DESC").
		Offset(pagination.Offset()).
		Limit(pagination.Limit).
		Find(&debts).Error
	if err != nil {
		utils.InternalError(c, "Failed to load debts")
		return
	}
	if debts == nil {
		debts = []models.Debt{}
	}
	utils.SuccessResponse(c, http.StatusOK, "", debts)
}

// POST /api/debts
func CreateDebt(c *gin.Context) {
	var req models.CreateDebtRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	debtorID, err := uuid.Parse(req.UserID)
	if err != nil {
		utils.BadRequest(c, "Invalid user ID")
		return
	}

	var debtor models.User
	if err := database.DB.First(&debtor, "id = ?", debtorID).Error; err != nil {
		utils.NotFound(c, "User not found")
		return
	}

	debt := models.Debt{
		Title:    req.Title,
		Receiver: req.Receiver,
		Amount:   req.Amount,
		UserID:   debtor.ID,
	}
	if err := database.DB.Create(&debt).Error; err != nil {
		utils.InternalError(c, "Failed to create debt")
		return
	}

	utils.SuccessResponse(c, http.StatusCreated, "Debt created", debt)
}

// DELETE /api/debts/:id
func DeleteDebt(c *gin.Context) {
	debtID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequest(c, "Invalid debt ID")
		return
	}

	result := database.DB.Delete(&models.Debt{}, "id = ?", debtID)
	if result.Error != nil {
		utils.InternalError(c, "Failed to delete debt")
		return
	}
	if result.RowsAffected == 0 {
		utils.NotFound(c, "Debt not found")
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Debt deleted", nil)
}

// GET /api/debts/mine/sum
func GetMyDebtSum(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)

	var amounts []float64
	if err := database.DB.Model(&models.Debt{}).Where("user_id = ?", userID).Pluck("amount", &amounts).Error; err != nil {
		utils.InternalError(c, "Failed to load debts")
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", models.DebtSumResponse{
		TotalDebt: services.DebtTotal(amounts),
	})
}

// POST /api/debts/split
func SplitDebts(c *gin.Context) {
	var req models.SplitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	debts, err := services.GetSettlementService().SplitCosts(c.Request.Context(), req.Costs, req.Payments)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Debts recorded", debts)
}
