package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"debt-splitter/database"
	"debt-splitter/models"
	"debt-splitter/services"
	"debt-splitter/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// POST /api/groups
func CreateGroup(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)

	var req models.CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	group := models.Group{
		Name:      req.Name,
		CreatedBy: userID,
	}

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&group).Error; err != nil {
			return err
		}
		// the creator joins as admin
		return tx.Create(&models.GroupMember{
			GroupID: group.ID,
			UserID:  userID,
			Role:    "admin",
		}).Error
	})
	if err != nil {
		if database.IsUniqueViolation(err) {
			utils.BadRequest(c, "A group with this name already exists.")
			return
		}
		utils.InternalError(c, "Failed to create group")
		return
	}

	response, err := buildGroupResponse(group.ID)
	if err != nil {
		utils.InternalError(c, "Failed to load group")
		return
	}
	utils.SuccessResponse(c, http.StatusCreated, "Group created", response)
}

// GET /api/groups/:id
func GetGroup(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)
	groupID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequest(c, "Invalid group ID")
		return
	}

	if !isMember(groupID, userID) {
		utils.Forbidden(c, "You are not a member of this group")
		return
	}

	response, err := buildGroupResponse(groupID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Group not found")
			return
		}
		utils.InternalError(c, "Failed to load group")
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "", response)
}

// POST /api/groups/:id/members
func AddMembers(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)
	groupID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequest(c, "Invalid group ID")
		return
	}

	var req models.AddMembersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	memberIDs, err := parseUserIDs(req.UserIDs)
	if err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	var group models.Group
	if err := database.DB.First(&group, "id = ?", groupID).Error; err != nil {
		utils.NotFound(c, "Group not found")
		return
	}

	if !isMember(groupID, userID) {
		utils.Forbidden(c, "You are not a member of this group")
		return
	}

	var users []models.User
	if err := database.DB.Where("id IN ?", memberIDs).Find(&users).Error; err != nil {
		utils.InternalError(c, "Failed to load users")
		return
	}
	if len(users) != len(memberIDs) {
		utils.NotFound(c, "Some users were not found")
		return
	}
	for _, u := range users {
		if u.IsParty() {
			utils.BadRequest(c, "The party account cannot join a group")
			return
		}
	}

	members := make([]models.GroupMember, 0, len(users))
	for _, id := range memberIDs {
		members = append(members, models.GroupMember{
			GroupID: groupID,
			UserID:  id,
			Role:    "member",
		})
	}
	// adding someone who is already a member is a no-op
	if err := database.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(&members).Error; err != nil {
		utils.InternalError(c, "Failed to add members")
		return
	}

	invalidateBalances(c, groupID)

	response, err := buildGroupResponse(groupID)
	if err != nil {
		utils.InternalError(c, "Failed to load group")
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Members added", response)
}

// Helper: check group membership
func isMember(groupID, userID uuid.UUID) bool {
	var count int64
	database.DB.Model(&models.GroupMember{}).Where("group_id = ? AND user_id = ?", groupID, userID).Count(&count)
	return count > 0
}

// Helper: build full group response with members
func buildGroupResponse(groupID uuid.UUID) (models.GroupResponse, error) {
	var group models.Group
	if err := database.DB.First(&group, "id = ?", groupID).Error; err != nil {
		return models.GroupResponse{}, err
	}

	var members []models.GroupMember
	err := database.DB.Preload("User").
		Where("group_id = ?", groupID).
		Order("joined_at ASC, user_id ASC").
		Find(&members).Error
	if err != nil {
		return models.GroupResponse{}, err
	}

	memberResponses := make([]models.GroupMemberResponse, 0, len(members))
	for _, m := range members {
		memberResponses = append(memberResponses, models.GroupMemberResponse{
			UserID:   m.UserID,
			Username: m.User.Username,
			Role:     m.Role,
			JoinedAt: m.JoinedAt,
		})
	}

	return models.GroupResponse{
		ID:        group.ID,
		Name:      group.Name,
		CreatedBy: group.CreatedBy,
		Members:   memberResponses,
		CreatedAt: group.CreatedAt,
	}, nil
}

// parseUserIDs parses raw user IDs and drops repeats, keeping first-seen order.
func parseUserIDs(raw []string) ([]uuid.UUID, error) {
	seen := make(map[uuid.UUID]bool, len(raw))
	ids := make([]uuid.UUID, 0, len(raw))
	for _, r := range raw {
		id, err := uuid.Parse(r)
		if err != nil {
			return nil, fmt.Errorf("Invalid user ID %q", r)
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids, nil
}

func invalidateBalances(c *gin.Context, groupID uuid.UUID) {
	if svc := services.GetSettlementService(); svc != nil {
		svc.InvalidateGroup(c.Request.Context(), groupID)
	}
}
