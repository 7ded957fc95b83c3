package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/brightline-agency/agency/internal/models"
)

// @Summary Get profile
// @Description Profile of the token's owner
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.UserProfile
// @Failure 401 {object} map[string]interface{}
// @Router /auth/profile [get]
func (s *Server) getProfile(c *gin.Context) {
	account, ok := s.currentAccount(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, account.Profile())
}

// @Summary Update profile
// @Description Partial update of the caller's name, email or phone
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.ProfileUpdate true "Fields to change"
// @Success 200 {object} models.UserProfile
// @Failure 400 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Router /user/profile [patch]
func (s *Server) updateProfile(c *gin.Context) {
	var req models.ProfileUpdate
	if !s.bind(c, &req) {
		return
	}
	if req.Empty() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No fields to update"})
		return
	}

	account, ok := s.currentAccount(c)
	if !ok {
		return
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Name cannot be empty"})
			return
		}
		updates["name"] = name
	}
	if req.Email != nil {
		email := normalizeEmail(*req.Email)
		if s.emailTaken(c, email, account.ID) {
			return
		}
		updates["email"] = email
	}
	if req.Phone != nil {
		updates["phone"] = strings.TrimSpace(*req.Phone)
	}

	if err := s.db.Model(account).Updates(updates).Error; err != nil {
		s.logger.Error().Err(err).Str("user_id", account.ID).Msg("Failed to update profile")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update profile"})
		return
	}

	// Reload so the response is the stored canonical profile
	if err := models.FindByID(s.db, account.ID, account); err != nil {
		s.logger.Error().Err(err).Str("user_id", account.ID).Msg("Failed to reload profile")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	s.logger.Info().Str("user_id", account.ID).Msg("Profile updated")
	c.JSON(http.StatusOK, account.Profile())
}

// @Summary List users
// @Description List all users (admin only)
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.UserProfile
// @Failure 401 {object} map[string]interface{}
// @Failure 403 {object} map[string]interface{}
// @Router /users [get]
func (s *Server) listUsers(c *gin.Context) {
	var accounts []models.Account
	if err := s.db.Order("created_at DESC").Find(&accounts).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to list users")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	profiles := make([]models.UserProfile, len(accounts))
	for i := range accounts {
		profiles[i] = accounts[i].Profile()
	}

	c.JSON(http.StatusOK, profiles)
}

func (s *Server) currentAccount(c *gin.Context) (*models.Account, bool) {
	account, ok := accountFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return nil, false
	}
	return account, true
}
