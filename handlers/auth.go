package handlers

import (
	"net/http"

	"food-ordering-api/apperr"
	"food-ordering-api/middleware"
	"food-ordering-api/models"
	"food-ordering-api/services"

	"github.com/gin-gonic/gin"
)

// Register creates a new user account
func (h *Handler) Register(c *gin.Context) {
	var req services.RegisterInput
	if !h.bindJSON(c, "register", &req) {
		return
	}

	user, err := h.auth.Register(c.Request.Context(), req)
	if err != nil {
		h.fail(c, "register", err)
		return
	}

	token, err := h.tokens.GenerateToken(user)
	if err != nil {
		h.fail(c, "register", apperr.Internal(err, "failed to generate token"))
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Account created successfully",
		"token":   token,
		"user":    userSummary(user),
	})
}

// Login authenticates a user and returns a JWT
func (h *Handler) Login(c *gin.Context) {
	var req services.LoginInput
	if !h.bindJSON(c, "login", &req) {
		return
	}

	user, err := h.auth.Login(c.Request.Context(), req)
	if err != nil {
		h.fail(c, "login", err)
		return
	}

	token, err := h.tokens.GenerateToken(user)
	if err != nil {
		h.fail(c, "login", apperr.Internal(err, "failed to generate token"))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Login successful",
		"token":   token,
		"user":    userSummary(user),
	})
}

// GetProfile returns the authenticated user's profile
func (h *Handler) GetProfile(c *gin.Context) {
	user, err := h.auth.GetUser(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		h.fail(c, "get_profile", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// UpdateProfile edits the authenticated user's name, phone or picture
func (h *Handler) UpdateProfile(c *gin.Context) {
	var req services.UpdateProfileInput
	if !h.bindJSON(c, "update_profile", &req) {
		return
	}
	user, err := h.auth.UpdateProfile(c.Request.Context(), middleware.GetUserID(c), req)
	if err != nil {
		h.fail(c, "update_profile", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Profile updated successfully",
		"user":    user,
	})
}

func (h *Handler) ChangePassword(c *gin.Context) {
	var req services.ChangePasswordInput
	if !h.bindJSON(c, "change_password", &req) {
		return
	}
	if err := h.auth.ChangePassword(c.Request.Context(), middleware.GetUserID(c), req); err != nil {
		h.fail(c, "change_password", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password changed successfully"})
}

func userSummary(u *models.User) gin.H {
	return gin.H{
		"id":    u.ID,
		"name":  u.Name,
		"email": u.Email,
		"role":  u.Role,
	}
}
