package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/mhalvorsen/gigbook/backend/internal/config"
	"github.com/mhalvorsen/gigbook/backend/internal/middleware"
	"github.com/mhalvorsen/gigbook/backend/internal/services"
	"github.com/mhalvorsen/gigbook/backend/pkg/response"
	"gorm.io/gorm"
)

type AuthHandler struct {
	authService *services.AuthService
}

func NewAuthHandler(db *gorm.DB, jwtCfg *config.JWTConfig) *AuthHandler {
	return &AuthHandler{
		authService: services.NewAuthService(db, jwtCfg),
	}
}

// Register creates a new account
// POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req services.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	user, err := h.authService.Register(&req)
	if err != nil {
		respondErr(c, err)
		return
	}

	response.Created(c, user)
}

// Login authenticates and returns a token pair
// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req services.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.authService.Login(&req, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		respondErr(c, err)
		return
	}

	response.Success(c, result)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// Refresh rotates the refresh token and issues a new access token
// POST /api/auth/refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.authService.Refresh(req.RefreshToken, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		respondErr(c, err)
		return
	}

	response.Success(c, result)
}

// Logout revokes the presented refresh token
// POST /api/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	var req refreshRequest
	_ = c.ShouldBindJSON(&req)

	if err := h.authService.RevokeRefreshToken(req.RefreshToken); err != nil {
		respondErr(c, err)
		return
	}
	response.Success(c, gin.H{"message": "logged out"})
}

// Me returns the authenticated user's profile
// GET /api/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	user, err := h.authService.GetUserByID(middleware.GetUserID(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	response.Success(c, user)
}

// UpdateProfile updates profile fields
// PUT /api/auth/me
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	var req services.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	user, err := h.authService.UpdateProfile(middleware.GetUserID(c), &req)
	if err != nil {
		respondErr(c, err)
		return
	}
	response.Success(c, user)
}

// ChangePassword changes the local account password
// POST /api/auth/change-password
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req services.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := h.authService.ChangePassword(middleware.GetUserID(c), &req); err != nil {
		respondErr(c, err)
		return
	}
	response.Success(c, gin.H{"message": "password changed"})
}

// RotateCalendarToken replaces the user's ICS feed token
// POST /api/auth/calendar-token/rotate
func (h *AuthHandler) RotateCalendarToken(c *gin.Context) {
	token, err := h.authService.RotateCalendarToken(middleware.GetUserID(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	response.Success(c, gin.H{"calendar_ics_token": token})
}

// AuthMethods reports which auth backends are available
// GET /api/auth/methods
func (h *AuthHandler) AuthMethods(c *gin.Context) {
	response.Success(c, gin.H{
		"local": true,
		"ldap":  h.authService.IsLDAPEnabled(),
	})
}
