// controllers/user.go
package controllers

import (
	"errors"
	"net/http"

	"templeseva-backend/config"
	"templeseva-backend/models"
	"templeseva-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GetUsers lists registered users for the admin console
func GetUsers(c *gin.Context) {
	if _, ok := requireRole(c, models.RoleAdmin); !ok {
		return
	}

	var users []models.User
	if err := config.DB.Order("created_at DESC").Find(&users).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve users")
		return
	}

	out := make([]gin.H, len(users))
	for i, u := range users {
		out[i] = gin.H{
			"id":        u.ID,
			"email":     u.Email,
			"name":      u.Name,
			"phone":     u.Phone,
			"roles":     u.Roles,
			"isActive":  u.IsActive,
			"lastLogin": u.LastLogin,
		}
	}

	c.JSON(http.StatusOK, out)
}

type UpdateRolesInput struct {
	Roles []string `json:"roles" binding:"required,min=1"`
}

// UpdateUserRoles grants or revokes capabilities. Roles are validated
// against the closed set; free-form strings are rejected at the boundary.
func UpdateUserRoles(c *gin.Context) {
	if _, ok := requireRole(c, models.RoleAdmin); !ok {
		return
	}

	userUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid user ID format")
		return
	}

	var input UpdateRolesInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	roles := make(models.RoleSet, 0, len(input.Roles))
	for _, raw := range input.Roles {
		role, err := models.ParseRole(raw)
		if err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, err.Error())
			return
		}
		roles = append(roles, role)
	}

	var user models.User
	if err := config.DB.First(&user, "id = ?", userUUID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "User not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return
	}

	if err := config.DB.Model(&user).Update("roles", roles).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to update roles")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":    user.ID,
		"email": user.Email,
		"roles": roles,
	})
}
