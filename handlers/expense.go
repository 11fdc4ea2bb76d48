package handlers

import (
	"net/http"

	"debt-splitter/database"
	"debt-splitter/models"
	"debt-splitter/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// POST /api/groups/:id/expenses
func CreateExpense(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)
	groupID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequest(c, "Invalid group ID")
		return
	}

	var req models.CreateExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	// payers first, so the first payer keeps index 0
	raw := make([]string, 0, len(req.Payers)+len(req.Participants))
	for _, p := range req.Payers {
		raw = append(raw, p.UserID)
	}
	raw = append(raw, req.Participants...)
	participantIDs, err := parseUserIDs(raw)
	if err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	if !isMember(groupID, userID) {
		utils.Forbidden(c, "You are not a member of this group")
		return
	}

	var count int64
	err = database.DB.Model(&models.GroupMember{}).
		Where("group_id = ? AND user_id IN ?", groupID, participantIDs).
		Count(&count).Error
	if err != nil {
		utils.InternalError(c, "Failed to check group members")
		return
	}
	if count != int64(len(participantIDs)) {
		utils.BadRequest(c, "Some users are not part of the group.")
		return
	}

	var participants []models.User
	if err := database.DB.Where("id IN ?", participantIDs).Find(&participants).Error; err != nil {
		utils.InternalError(c, "Failed to load users")
		return
	}

	paidBy := participantIDs[0]
	expense := models.Expense{
		GroupID:      groupID,
		PaidBy:       &paidBy,
		Description:  req.Description,
		Amount:       req.TotalCost,
		Participants: participants,
	}

	// link the existing users without upserting them
	if err := database.DB.Omit("Participants.*").Create(&expense).Error; err != nil {
		utils.InternalError(c, "Failed to create expense")
		return
	}

	invalidateBalances(c, groupID)

	utils.SuccessResponse(c, http.StatusCreated, "Expense added", expense.ToResponse())
}

// GET /api/groups/:id/expenses
func GetGroupExpenses(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)
	groupID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequest(c, "Invalid group ID")
		return
	}

	var pagination utils.PaginationQuery
	if err := c.ShouldBindQuery(&pagination); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	if !isMember(groupID, userID) {
		utils.Forbidden(c, "You are not a member of this group")
		return
	}

	var expenses []models.Expense
	err = database.DB.Preload("Participants").
		Where("group_id = ?", groupID).
		Order("created_at DESC, id DESC").
		Offset(pagination.Offset()).
		Limit(pagination.Limit).
		Find(&expenses).Error
	if err != nil {
		utils.InternalError(c, "Failed to load expenses")
		return
	}

	responses := make([]models.ExpenseResponse, 0, len(expenses))
	for _, e := range expenses {
		responses = append(responses, e.ToResponse())
	}

	utils.SuccessResponse(c, http.StatusOK, "", responses)
}
