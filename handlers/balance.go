package handlers

import (
	"errors"
	"net/http"

	"debt-splitter/logging"
	"debt-splitter/services"
	"debt-splitter/settlement"
	"debt-splitter/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// GET /api/groups/:id/balances
func GetGroupBalances(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)
	groupID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequest(c, "Invalid group ID")
		return
	}

	report, err := services.GetSettlementService().PreviewGroup(c.Request.Context(), groupID, userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "", report)
}

// POST /api/groups/:id/calculate_debts
func CalculateDebts(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)
	groupID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequest(c, "Invalid group ID")
		return
	}

	report, err := services.GetSettlementService().SettleGroup(c.Request.Context(), groupID, userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Debts recorded", gin.H{
		"settlements":  report.Settlements,
		"participants": report.Participants,
	})
}

func respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, settlement.ErrInvalidInput):
		utils.BadRequest(c, err.Error())
	case errors.Is(err, settlement.ErrNotFound):
		utils.NotFound(c, err.Error())
	case errors.Is(err, services.ErrNotMember):
		utils.Forbidden(c, "You are not a member of this group")
	default:
		logging.L().Error("settlement request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err))
		utils.InternalError(c, "Failed to settle debts")
	}
}
