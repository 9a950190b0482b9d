// controllers/servicelimit.go
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

// GetServiceLimit returns the single capacity-caps row.
func GetServiceLimit(c *gin.Context) {
	var rule models.CapacityRule
	if err := config.DB.First(&rule).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "No capacity rule configured")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":            rule.ID,
		"thirumanjanam": rule.Thirumanjanam,
		"abhisekam":     rule.Abhisekam,
	})
}

type UpdateServiceLimitInput struct {
	ID            string `json:"id" binding:"required"`
	Thirumanjanam *int   `json:"thirumanjanam" binding:"required,min=0"`
	Abhisekam     *int   `json:"abhisekam" binding:"required,min=0"`
}

// UpdateServiceLimit changes the daily caps. Admin only; caps of zero are
// legal and close the category entirely.
func UpdateServiceLimit(c *gin.Context) {
	if _, ok := requireRole(c, models.RoleAdmin); !ok {
		return
	}

	var input UpdateServiceLimitInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	ruleUUID, err := uuid.Parse(input.ID)
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid rule ID format")
		return
	}

	var rule models.CapacityRule
	if err := config.DB.First(&rule, "id = ?", ruleUUID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "Capacity rule not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return
	}

	rule.Thirumanjanam = *input.Thirumanjanam
	rule.Abhisekam = *input.Abhisekam

	if err := config.DB.Save(&rule).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to update capacity rule")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":            rule.ID,
		"thirumanjanam": rule.Thirumanjanam,
		"abhisekam":     rule.Abhisekam,
	})
}
