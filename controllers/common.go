package controllers

import (
	"errors"
	"net/http"

	"templeseva-backend/config"
	"templeseva-backend/models"
	"templeseva-backend/services"
	"templeseva-backend/utils"

	"github.com/gin-gonic/gin"
)

// currentUser loads the authenticated user from the token subject. It
// writes the error response itself; callers just bail on !ok.
func currentUser(c *gin.Context) (*models.User, bool) {
	userID, exists := c.Get("userId")
	if !exists {
		utils.RespondWithError(c, http.StatusUnauthorized, "User ID not found in context")
		return nil, false
	}

	var user models.User
	if err := config.DB.First(&user, "id = ?", userID).Error; err != nil {
		utils.RespondWithError(c, http.StatusUnauthorized, "User not found")
		return nil, false
	}
	return &user, true
}

// requireRole loads the authenticated user and checks a capability.
func requireRole(c *gin.Context, role models.Role) (*models.User, bool) {
	user, ok := currentUser(c)
	if !ok {
		return nil, false
	}
	if !user.Roles.Has(role) {
		utils.RespondWithError(c, http.StatusForbidden, "Requires the "+string(role)+" role")
		return nil, false
	}
	return user, true
}

// respondServiceError maps the booking service's sentinel errors onto
// HTTP status codes.
func respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrValidation):
		utils.RespondWithError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrNotFound):
		utils.RespondWithError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrNotAuthorized):
		utils.RespondWithError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, services.ErrCapacityExceeded),
		errors.Is(err, services.ErrAlreadyDecided):
		utils.RespondWithError(c, http.StatusConflict, err.Error())
	case errors.Is(err, services.ErrNoCapacityRule):
		utils.RespondWithError(c, http.StatusInternalServerError, "No capacity rule configured")
	default:
		utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
	}
}
