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

// GET /api/users/me
func GetProfile(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)

	var user models.User
	if err := database.DB.First(&user, "id = ?", userID).Error; err != nil {
		utils.NotFound(c, "User not found")
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", user.ToResponse())
}

// PUT /api/users/me/fcm-token
func UpdateFCMToken(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)

	var req struct {
		Token string `json:"token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	if err := database.DB.Model(&models.User{}).Where("id = ?", userID).Update("fcm_token", req.Token).Error; err != nil {
		utils.InternalError(c, "Failed to update token")
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "FCM token updated", nil)
}

// GET /api/users
func ListUsernames(c *gin.Context) {
	var usernames []string
	if err := database.DB.Model(&models.User{}).Order("username ASC").Pluck("username", &usernames).Error; err != nil {
		utils.InternalError(c, "Failed to load users")
		return
	}
	if usernames == nil {
		usernames = []string{}
	}
	utils.SuccessResponse(c, http.StatusOK, "", usernames)
}

// GET /api/users/debts
func GetUserDebtTotals(c *gin.Context) {
	var users []models.User
	if err := database.DB.Order("username ASC").Find(&users).Error; err != nil {
		utils.InternalError(c, "Failed to load users")
		return
	}

	var debts []models.Debt
	if err := database.DB.Select("user_id", "amount").Find(&debts).Error; err != nil {
		utils.InternalError(c, "Failed to load debts")
		return
	}

	amounts := make(map[uuid.UUID][]float64, len(users))
	for _, d := range debts {
		amounts[d.UserID] = append(amounts[d.UserID], d.Amount)
	}

	totals := make([]models.UserDebtTotal, 0, len(users))
	for _, u := range users {
		totals = append(totals, models.UserDebtTotal{
			Username:  u.Username,
			TotalDebt: services.DebtTotal(amounts[u.ID]),
		})
	}
	utils.SuccessResponse(c, http.StatusOK, "", totals)
}
