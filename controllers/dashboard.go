// controllers/dashboard.go
package controllers

import (
	"net/http"
	"time"

	"templeseva-backend/config"
	"templeseva-backend/models"
	"templeseva-backend/utils"

	"github.com/gin-gonic/gin"
)

// GetDashboardOverview returns the counters shown on the admin landing
// page: today's bookings, the pending approval queue, and month revenue.
func GetDashboardOverview(c *gin.Context) {
	if _, ok := currentUser(c); !ok {
		return
	}

	now := time.Now().UTC()
	today := utils.BeginningOfDay(now)
	firstOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	var todayBookings int64
	if err := config.DB.Model(&models.Booking{}).
		Where("service_date = ?", today).
		Count(&todayBookings).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to build dashboard")
		return
	}

	var pendingApprovals int64
	if err := config.DB.Model(&models.Booking{}).
		Where("status = ?", models.StatusPending).
		Count(&pendingApprovals).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to build dashboard")
		return
	}

	var monthRevenue float64
	if err := config.DB.Model(&models.Booking{}).
		Select("COALESCE(SUM(price), 0)").
		Where("status = ? AND service_date >= ?", models.StatusApproved, firstOfMonth).
		Scan(&monthRevenue).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to build dashboard")
		return
	}

	var activeServices int64
	if err := config.DB.Model(&models.Service{}).
		Where("is_active = ?", true).
		Count(&activeServices).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to build dashboard")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"todayBookings":    todayBookings,
		"pendingApprovals": pendingApprovals,
		"monthRevenue":     monthRevenue,
		"activeServices":   activeServices,
	})
}
