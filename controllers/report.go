// controllers/report.go
package controllers

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"time"

	"templeseva-backend/config"
	"templeseva-backend/models"
	"templeseva-backend/utils"

	"github.com/gin-gonic/gin"
)

// ReportController handles all reporting functions
type ReportController struct{}

// BookingReport represents the aggregate view over a date range
type BookingReport struct {
	StartDate       string            `json:"startDate"`
	EndDate         string            `json:"endDate"`
	TotalBookings   int64             `json:"totalBookings"`
	ByStatus        map[string]int64  `json:"byStatus"`
	ByCategory      []CategorySummary `json:"byCategory"`
	ApprovedRevenue float64           `json:"approvedRevenue"`
}

type CategorySummary struct {
	Category string  `json:"category"`
	Count    int64   `json:"count"`
	Revenue  float64 `json:"revenue"`
}

// parseReportRange validates startDate/endDate query params. Defaults to
// the last 30 days; end before start is rejected.
func parseReportRange(c *gin.Context) (time.Time, time.Time, bool) {
	now := time.Now().UTC()
	start := utils.BeginningOfDay(now.AddDate(0, 0, -30))
	end := utils.BeginningOfDay(now)

	var err error
	if raw := c.Query("startDate"); raw != "" {
		if start, err = utils.ParseServiceDate(raw); err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, "Invalid startDate: "+err.Error())
			return start, end, false
		}
	}
	if raw := c.Query("endDate"); raw != "" {
		if end, err = utils.ParseServiceDate(raw); err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, "Invalid endDate: "+err.Error())
			return start, end, false
		}
	}
	if end.Before(start) {
		utils.RespondWithError(c, http.StatusBadRequest, "endDate must not precede startDate")
		return start, end, false
	}
	// Range is inclusive of the end day
	return start, end.AddDate(0, 0, 1), true
}

// GetBookingReport returns booking counts and revenue over a date range
func (rc *ReportController) GetBookingReport(c *gin.Context) {
	if _, ok := requireRole(c, models.RoleAdmin); !ok {
		return
	}

	start, end, ok := parseReportRange(c)
	if !ok {
		return
	}

	report := BookingReport{
		StartDate: start.Format("2006-01-02"),
		EndDate:   end.AddDate(0, 0, -1).Format("2006-01-02"),
		ByStatus:  map[string]int64{},
	}

	if err := config.DB.Model(&models.Booking{}).
		Where("service_date >= ? AND service_date < ?", start, end).
		Count(&report.TotalBookings).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to build report")
		return
	}

	var statusRows []struct {
		Status string
		Count  int64
	}
	if err := config.DB.Model(&models.Booking{}).
		Select("status, COUNT(*) as count").
		Where("service_date >= ? AND service_date < ?", start, end).
		Group("status").
		Scan(&statusRows).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to build report")
		return
	}
	for _, row := range statusRows {
		report.ByStatus[row.Status] = row.Count
	}

	if err := config.DB.Model(&models.Booking{}).
		Select("category, COUNT(*) as count, COALESCE(SUM(price), 0) as revenue").
		Where("service_date >= ? AND service_date < ?", start, end).
		Group("category").
		Order("count DESC").
		Scan(&report.ByCategory).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to build report")
		return
	}

	if err := config.DB.Model(&models.Booking{}).
		Select("COALESCE(SUM(price), 0)").
		Where("service_date >= ? AND service_date < ? AND status = ?", start, end, models.StatusApproved).
		Scan(&report.ApprovedRevenue).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to build report")
		return
	}

	c.JSON(http.StatusOK, report)
}

// ExportBookingsCSV streams the bookings in a date range as a CSV download
func (rc *ReportController) ExportBookingsCSV(c *gin.Context) {
	if _, ok := requireRole(c, models.RoleAdmin); !ok {
		return
	}

	start, end, ok := parseReportRange(c)
	if !ok {
		return
	}

	var bookings []models.Booking
	if err := config.DB.Preload("User").Preload("Service").Preload("Approver").
		Where("service_date >= ? AND service_date < ?", start, end).
		Order("service_date").
		Find(&bookings).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to export bookings")
		return
	}

	filename := fmt.Sprintf("bookings-%s.csv", time.Now().Format("20060102"))
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", "attachment; filename="+filename)

	w := csv.NewWriter(c.Writer)
	w.Write([]string{"receipt", "devotee", "service", "category", "date", "price", "payment_mode", "status", "approver", "decided_at"})

	for _, b := range bookings {
		approver := ""
		if b.Approver != nil {
			approver = b.Approver.Name
		}
		decidedAt := ""
		if b.DecidedAt != nil {
			decidedAt = b.DecidedAt.Format(time.RFC3339)
		}
		w.Write([]string{
			b.ReceiptNumber,
			b.User.Name,
			b.Service.Name,
			b.Category,
			b.ServiceDate.Format("2006-01-02"),
			fmt.Sprintf("%.2f", b.Price),
			b.PaymentMode,
			string(b.Status),
			approver,
			decidedAt,
		})
	}
	w.Flush()
}
