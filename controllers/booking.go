// controllers/booking.go
package controllers

import (
	"errors"
	"net/http"

	"templeseva-backend/config"
	"templeseva-backend/models"
	"templeseva-backend/services"
	"templeseva-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BookingController fronts the seva-booking workflow.
type BookingController struct {
	Bookings *services.BookingService
	Notifier *services.NotificationService
}

func NewBookingController(db *gorm.DB, notifier *services.NotificationService) *BookingController {
	return &BookingController{
		Bookings: services.NewBookingService(db, notifier),
		Notifier: notifier,
	}
}

type DateCheckInput struct {
	ServiceDate string `json:"serviceDate" binding:"required"`
	ServiceID   string `json:"nameOfTheServiceid" binding:"required"`
}

// DateCheck is the pre-booking availability probe. The answer is a
// snapshot; the authoritative check happens again inside CreatePOSBooking.
func (bc *BookingController) DateCheck(c *gin.Context) {
	var input DateCheckInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	date, err := utils.ParseServiceDate(input.ServiceDate)
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, err.Error())
		return
	}

	service, ok := bc.findService(c, input.ServiceID)
	if !ok {
		return
	}

	rule, err := bc.Bookings.LoadCapacityRule()
	if err != nil {
		respondServiceError(c, err)
		return
	}

	availability, err := bc.Bookings.CheckAvailability(rule, service.Category, date)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"isAvailable": availability.Available,
		"remaining":   max(availability.Cap-availability.Count, 0),
		"cap":         availability.Cap,
	})
}

type CreateBookingInput struct {
	UserID        string  `json:"userId" binding:"required"`
	POSUserID     string  `json:"posUserId" binding:"required"`
	ServiceID     string  `json:"nameOfTheService" binding:"required"`
	Price         float64 `json:"price" binding:"min=0"`
	PaymentMode   string  `json:"paymentMode"`
	TransactionID string  `json:"transactionId"`
	ServiceDate   string  `json:"serviceDate" binding:"required"`
}

// CreatePOSBooking records a seva booking taken at the counter. Admission
// against the daily cap and row creation happen as one transaction.
func (bc *BookingController) CreatePOSBooking(c *gin.Context) {
	var input CreateBookingInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	userID, err := uuid.Parse(input.UserID)
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid user ID format")
		return
	}
	posUserID, err := uuid.Parse(input.POSUserID)
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid POS user ID format")
		return
	}
	serviceID, err := uuid.Parse(input.ServiceID)
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid service ID format")
		return
	}
	date, err := utils.ParseServiceDate(input.ServiceDate)
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, err.Error())
		return
	}

	booking, err := bc.Bookings.Reserve(services.ReserveInput{
		UserID:        userID,
		POSUserID:     posUserID,
		ServiceID:     serviceID,
		ServiceDate:   date,
		Price:         input.Price,
		PaymentMode:   input.PaymentMode,
		TransactionID: input.TransactionID,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, booking)
}

type SendEmailInput struct {
	BookingID string `json:"serviceId" binding:"required"`
}

// SendBookingEmail resends the confirmation for one booking. The send is
// synchronous here so the operator sees the outcome; failure is reported
// without touching the booking itself.
func (bc *BookingController) SendBookingEmail(c *gin.Context) {
	var input SendEmailInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	bookingID, err := uuid.Parse(input.BookingID)
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid booking ID format")
		return
	}

	if err := bc.Notifier.Send(bookingID); err != nil {
		if errors.Is(err, services.ErrNotFound) || errors.Is(err, services.ErrValidation) {
			respondServiceError(c, err)
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"sent": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"sent": true})
}

func (bc *BookingController) findService(c *gin.Context, rawID string) (*models.Service, bool) {
	serviceUUID, err := uuid.Parse(rawID)
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid service ID format")
		return nil, false
	}

	var service models.Service
	// Same predicate as the reserve path; a retired seva is not bookable
	// and must not probe as available.
	if err := config.DB.Where("id = ? AND is_active = ?", serviceUUID, true).First(&service).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "Service not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return nil, false
	}
	return &service, true
}
