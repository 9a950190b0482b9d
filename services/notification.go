// services/notification.go
package services

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"templeseva-backend/models"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"gopkg.in/gomail.v2"
	"gorm.io/gorm"
)

// NotificationService delivers booking confirmations over email and,
// when Twilio is configured, SMS. Every attempt is recorded in
// notification_logs; a cron sweep retries approved bookings whose email
// never went out.
type NotificationService struct {
	db     *gorm.DB
	client *twilio.RestClient
	queue  chan uuid.UUID
}

func NewNotificationService(db *gorm.DB) *NotificationService {
	accountSid := os.Getenv("TWILIO_ACCOUNT_SID")
	authToken := os.Getenv("TWILIO_AUTH_TOKEN")

	return &NotificationService{
		db: db,
		client: twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: accountSid,
			Password: authToken,
		}),
		queue: make(chan uuid.UUID, 64),
	}
}

// Start launches the dispatch worker and the retry sweep.
func (s *NotificationService) Start() {
	go s.worker()

	c := cron.New()

	// Retry undelivered confirmations every 10 minutes
	c.AddFunc("*/10 * * * *", s.RetryUndelivered)

	c.Start()
	log.Println("Notification dispatcher started")
}

// Enqueue hands a booking to the worker without blocking the caller.
// A full queue is not an error; the retry sweep picks the booking up.
func (s *NotificationService) Enqueue(bookingID uuid.UUID) {
	select {
	case s.queue <- bookingID:
	default:
		log.Printf("Notification queue full, booking %s deferred to retry sweep", bookingID)
	}
}

func (s *NotificationService) worker() {
	for id := range s.queue {
		if err := s.Send(id); err != nil {
			log.Printf("Failed to send confirmation for booking %s: %v", id, err)
		}
	}
}

// RetryUndelivered re-sends confirmations for approved bookings that have
// no successful email log yet.
func (s *NotificationService) RetryUndelivered() {
	delivered := s.db.Model(&models.NotificationLog{}).
		Select("booking_id").
		Where("channel = ? AND status = ?", "email", "sent")

	var bookings []models.Booking
	if err := s.db.Where("status = ? AND id NOT IN (?)", models.StatusApproved, delivered).
		Find(&bookings).Error; err != nil {
		log.Printf("Retry sweep query failed: %v", err)
		return
	}

	for _, booking := range bookings {
		if err := s.Send(booking.ID); err != nil {
			log.Printf("Retry failed for booking %s: %v", booking.ID, err)
		}
	}
}

// Send delivers the confirmation for one booking. The email channel is
// primary; an SMS failure is logged but does not fail the send.
func (s *NotificationService) Send(bookingID uuid.UUID) error {
	var booking models.Booking
	if err := s.db.Preload("User").Preload("Service").First(&booking, "id = ?", bookingID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: booking %s", ErrNotFound, bookingID)
		}
		return err
	}

	// Only an approved booking has a confirmation to send.
	if booking.Status != models.StatusApproved {
		return fmt.Errorf("%w: booking %s is %s, not approved", ErrValidation, booking.ReceiptNumber, booking.Status)
	}

	message := fmt.Sprintf(
		"Namaste %s,\n\nYour %s seva on %s is confirmed.\nReceipt: %s\nAmount: %.2f\n\nThank you.",
		booking.User.Name,
		booking.Service.Name,
		booking.ServiceDate.Format("02 Jan 2006"),
		booking.ReceiptNumber,
		booking.Price,
	)

	emailErr := s.sendEmail(booking.User.Email, booking.Service.Name, message)
	s.logAttempt(booking.ID, "email", booking.User.Email, message, emailErr)

	if smsEnabled() && booking.User.Phone != "" {
		smsErr := s.sendSMS(booking.User.Phone, message)
		s.logAttempt(booking.ID, "sms", booking.User.Phone, message, smsErr)
	}

	return emailErr
}

func (s *NotificationService) sendEmail(to, serviceName, body string) error {
	host := os.Getenv("SMTP_HOST")
	if host == "" {
		return errors.New("SMTP_HOST not configured")
	}
	port := 587
	if env := os.Getenv("SMTP_PORT"); env != "" {
		if p, err := strconv.Atoi(env); err == nil {
			port = p
		}
	}

	m := gomail.NewMessage()
	m.SetHeader("From", os.Getenv("SMTP_FROM"))
	m.SetHeader("To", to)
	m.SetHeader("Subject", "Seva booking confirmed: "+serviceName)
	m.SetBody("text/plain", body)

	d := gomail.NewDialer(host, port, os.Getenv("SMTP_USER"), os.Getenv("SMTP_PASSWORD"))
	return d.DialAndSend(m)
}

func (s *NotificationService) sendSMS(to, body string) error {
	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(os.Getenv("TWILIO_PHONE_NUMBER"))
	params.SetBody(body)

	resp, err := s.client.Api.CreateMessage(params)
	if err != nil {
		return err
	}
	if resp.Sid == nil {
		log.Printf("SMS sent to %s, but no SID returned", to)
	}
	return nil
}

func (s *NotificationService) logAttempt(bookingID uuid.UUID, channel, recipient, message string, sendErr error) {
	status := "sent"
	errorMsg := ""
	if sendErr != nil {
		status = "failed"
		errorMsg = sendErr.Error()
	}

	entry := models.NotificationLog{
		BookingID:    bookingID,
		Channel:      channel,
		Recipient:    recipient,
		Message:      message,
		Status:       status,
		ErrorMessage: errorMsg,
		SentAt:       time.Now(),
	}
	if err := s.db.Create(&entry).Error; err != nil {
		log.Printf("Failed to log notification for booking %s: %v", bookingID, err)
	}
}

func smsEnabled() bool {
	return os.Getenv("TWILIO_ACCOUNT_SID") != "" && os.Getenv("TWILIO_PHONE_NUMBER") != ""
}
