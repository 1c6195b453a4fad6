package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/scorecheck/backend/internal/middleware"
	"github.com/scorecheck/backend/internal/models"
	"github.com/scorecheck/backend/internal/services"
)

type AuthHandler struct {
	authService *services.AuthService
}

func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// @Summary Login
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login credentials"
// @Success 200 {object} services.TokenPair
// @Router /api/v1/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	tokens, admin, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrUserNotActive) {
			fail(c, http.StatusForbidden, "Account disabled")
			return
		}
		fail(c, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"tokens": tokens,
		"admin": gin.H{
			"id":    admin.ID,
			"email": admin.Email,
			"name":  admin.Name,
			"role":  admin.Role,
		},
	})
}

// @Summary Refresh tokens
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RefreshRequest true "Refresh token"
// @Success 200 {object} services.TokenPair
// @Router /api/v1/auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	tokens, err := h.authService.RefreshTokens(c.Request.Context(), req.RefreshToken)
	if err != nil {
		fail(c, http.StatusUnauthorized, "Invalid refresh token")
		return
	}

	c.JSON(http.StatusOK, tokens)
}

// @Summary Logout
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RefreshRequest true "Refresh token"
// @Success 200
// @Router /api/v1/auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.authService.RevokeToken(c.Request.Context(), req.RefreshToken); err != nil {
		respondError(c, err, "Failed to revoke token")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

// @Summary List admins
// @Tags admin
// @Security BearerAuth
// @Produce json
// @Success 200 {array} models.Admin
// @Router /api/v1/admin/admins [get]
func (h *AuthHandler) ListAdmins(c *gin.Context) {
	admins, err := h.authService.ListAdmins(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to fetch admins")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "admins": admins})
}

type CreateAdminRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Name     string `json:"name"`
	Password string `json:"password" binding:"required,min=8"`
}

// @Summary Create an admin
// @Tags admin
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body CreateAdminRequest true "Admin"
// @Success 201 {object} models.Admin
// @Router /api/v1/admin/admins [post]
func (h *AuthHandler) CreateAdmin(c *gin.Context) {
	var req CreateAdminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	admin := &models.Admin{Email: req.Email, Name: req.Name}
	if err := h.authService.CreateAdmin(c.Request.Context(), admin, req.Password); err != nil {
		respondError(c, err, "Failed to create admin")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "admin": admin})
}

// @Summary Delete an admin
// @Tags admin
// @Security BearerAuth
// @Param id path string true "Admin ID"
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/admin/admins/{id} [delete]
func (h *AuthHandler) DeleteAdmin(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.authService.DeleteAdmin(c.Request.Context(), id, middleware.ActorFrom(c)); err != nil {
		respondError(c, err, "Failed to delete admin")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Admin deleted"})
}
