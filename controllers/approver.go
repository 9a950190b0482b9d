// controllers/approver.go
package controllers

import (
	"net/http"

	"templeseva-backend/models"
	"templeseva-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ListBookings returns every booking for the approval queue. The approver
// role is checked against the user named in the query, not just the token.
func (bc *BookingController) ListBookings(c *gin.Context) {
	approverID, err := uuid.Parse(c.Query("approverId"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid approver ID format")
		return
	}

	bookings, err := bc.Bookings.ListBookings(approverID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, bookings)
}

type DecideInput struct {
	BookingID  string `json:"serviceId" binding:"required"`
	ApproverID string `json:"approverId" binding:"required"`
	Status     string `json:"status" binding:"required"`
}

// DecideBooking approves or rejects one pending booking. Approval queues
// the confirmation; rejection never notifies.
func (bc *BookingController) DecideBooking(c *gin.Context) {
	var input DecideInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	bookingID, err := uuid.Parse(input.BookingID)
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid booking ID format")
		return
	}
	approverID, err := uuid.Parse(input.ApproverID)
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid approver ID format")
		return
	}
	decision, err := models.ParseDecision(input.Status)
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, err.Error())
		return
	}

	booking, err := bc.Bookings.Decide(bookingID, approverID, decision)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Booking " + string(booking.Status),
		"booking": booking,
	})
}
