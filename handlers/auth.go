package handlers

import (
	"errors"
	"net/http"
	"strings"

	"debt-splitter/config"
	"debt-splitter/database"
	"debt-splitter/models"
	"debt-splitter/utils"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type RegisterRequest struct {
	Username string `json:"username" binding:"required,max=255"`
	Email    string `json:"email" binding:"required,email,max=100"`
	Password string `json:"password" binding:"required,min=6,max=72"`
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// POST /auth/register
func Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if strings.EqualFold(req.Username, models.PartyUsername) {
		utils.BadRequest(c, "This username is reserved")
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		utils.InternalError(c, "Failed to hash password")
		return
	}

	user := models.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hashedPassword),
	}

	// the unique indexes on username and email decide duplicates
	if err := database.DB.Create(&user).Error; err != nil {
		if database.IsUniqueViolation(err) {
			utils.BadRequest(c, "Username or email already registered")
			return
		}
		utils.InternalError(c, "Failed to create user")
		return
	}

	utils.SuccessResponse(c, http.StatusCreated, "User registered", user.ToResponse())
}

// POST /auth/login
func Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	var user models.User
	if err := database.DB.Where("username = ?", strings.TrimSpace(req.Username)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Unauthorized(c, "Incorrect username or password")
			return
		}
		utils.InternalError(c, "Failed to load user")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		utils.Unauthorized(c, "Incorrect username or password")
		return
	}

	cfg := config.AppConfig
	token, err := utils.GenerateToken(cfg.JWTSecret, cfg.JWTTTL, user.ID, user.Username)
	if err != nil {
		utils.InternalError(c, "Failed to generate token")
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Login successful", TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
	})
}

// GET /auth/verify/:token
func VerifyToken(c *gin.Context) {
	claims, err := utils.ParseToken(config.AppConfig.JWTSecret, c.Param("token"))
	if err != nil {
		utils.Unauthorized(c, "Token is invalid or expired")
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Token is valid", gin.H{
		"user_id":  claims.UserID,
		"username": claims.Username,
	})
}
