// services/booking.go
package services

import (
	"errors"
	"fmt"
	"time"

	"templeseva-backend/models"
	"templeseva-backend/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Sentinel errors for the booking workflow. Controllers map these onto
// HTTP status codes with errors.Is.
var (
	ErrValidation       = errors.New("invalid input")
	ErrNotFound         = errors.New("record not found")
	ErrNotAuthorized    = errors.New("user lacks required role")
	ErrCapacityExceeded = errors.New("daily capacity exceeded")
	ErrNoCapacityRule   = errors.New("no capacity rule configured")
	ErrAlreadyDecided   = errors.New("booking already decided")
)

// Notifier receives booking IDs whose confirmation should go out. The
// booking service never waits on it; delivery is best-effort and retried
// elsewhere.
type Notifier interface {
	Enqueue(bookingID uuid.UUID)
}

type BookingService struct {
	db       *gorm.DB
	notifier Notifier
}

func NewBookingService(db *gorm.DB, notifier Notifier) *BookingService {
	return &BookingService{db: db, notifier: notifier}
}

// LoadCapacityRule fetches the caps row. Its absence is a distinct,
// operator-facing error rather than a crash on an empty table.
func (s *BookingService) LoadCapacityRule() (models.CapacityRule, error) {
	return loadCapacityRule(s.db)
}

func loadCapacityRule(db *gorm.DB) (models.CapacityRule, error) {
	var rule models.CapacityRule
	err := db.First(&rule).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		// Idempotent read; retry once before surfacing a store error.
		err = db.First(&rule).Error
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return rule, ErrNoCapacityRule
		}
		return rule, err
	}
	return rule, nil
}

// Availability is a point-in-time snapshot for one category and day.
// It can be stale the instant it is returned; Reserve re-checks under
// the transaction and is the only authority on admission.
type Availability struct {
	Category  string    `json:"category"`
	Date      time.Time `json:"date"`
	Cap       int       `json:"cap"`
	Count     int       `json:"count"`
	Available bool      `json:"available"`
}

// CheckAvailability answers "is there room for one more booking of this
// category on this date". The rule is loaded once by the caller and passed
// by value.
func (s *BookingService) CheckAvailability(rule models.CapacityRule, category string, date time.Time) (Availability, error) {
	if category == "" || date.IsZero() {
		return Availability{}, fmt.Errorf("%w: category and date are required", ErrValidation)
	}
	day := utils.BeginningOfDay(date.UTC())

	var counter models.DayCounter
	err := s.db.Where("category = ? AND service_date = ?", category, day).First(&counter).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return Availability{}, err
	}

	cap := rule.CapFor(category)
	return Availability{
		Category:  category,
		Date:      day,
		Cap:       cap,
		Count:     counter.Count,
		Available: counter.Count < cap,
	}, nil
}

type ReserveInput struct {
	UserID        uuid.UUID
	POSUserID     uuid.UUID
	ServiceID     uuid.UUID
	ServiceDate   time.Time
	Price         float64
	PaymentMode   string
	TransactionID string
}

// Reserve admits and creates a booking as one atomic step. The day
// counter row is incremented only while below the cap, inside the same
// transaction that inserts the booking, so two concurrent requests can
// never both take the last slot.
func (s *BookingService) Reserve(in ReserveInput) (*models.Booking, error) {
	if in.ServiceDate.IsZero() {
		return nil, fmt.Errorf("%w: service date is required", ErrValidation)
	}

	posUser, err := s.findUser(in.POSUserID)
	if err != nil {
		return nil, err
	}
	if !posUser.Roles.Has(models.RolePOS) {
		return nil, fmt.Errorf("%w: %s is not a POS user", ErrNotAuthorized, posUser.Email)
	}
	if _, err := s.findUser(in.UserID); err != nil {
		return nil, err
	}

	var service models.Service
	if err := s.db.Where("id = ? AND is_active = ?", in.ServiceID, true).First(&service).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: service %s", ErrNotFound, in.ServiceID)
		}
		return nil, err
	}

	day := utils.BeginningOfDay(in.ServiceDate.UTC())

	booking := &models.Booking{
		ID:            uuid.New(),
		ReceiptNumber: "SEVA-" + day.Format("20060102") + "-" + utils.GenerateRandomString(6),
		UserID:        in.UserID,
		POSUserID:     in.POSUserID,
		ServiceID:     service.ID,
		Category:      service.Category,
		ServiceDate:   day,
		Price:         in.Price,
		PaymentMode:   in.PaymentMode,
		TransactionID: in.TransactionID,
		Status:        models.StatusPending,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		// The cap is read inside the transaction so a concurrent admin
		// update never admits against a stale value.
		rule, err := loadCapacityRule(tx)
		if err != nil {
			return err
		}
		cap := rule.CapFor(service.Category)

		counter := models.DayCounter{Category: service.Category, ServiceDate: day}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&counter).Error; err != nil {
			return err
		}

		// The admission gate: no rows updated means the day is full.
		res := tx.Model(&models.DayCounter{}).
			Where("category = ? AND service_date = ? AND count < ?", service.Category, day, cap).
			Update("count", gorm.Expr("count + 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: %s on %s", ErrCapacityExceeded, service.Category, day.Format("2006-01-02"))
		}

		return tx.Create(booking).Error
	})
	if err != nil {
		return nil, err
	}
	return booking, nil
}

// Decide moves a pending booking to a terminal state. Repeating the same
// decision is a no-op preserving the first approver and timestamp; a
// conflicting decision is refused.
func (s *BookingService) Decide(bookingID, approverID uuid.UUID, decision models.BookingStatus) (*models.Booking, error) {
	if !decision.Terminal() {
		return nil, fmt.Errorf("%w: decision must be APPROVED or REJECTED", ErrValidation)
	}

	approver, err := s.findUser(approverID)
	if err != nil {
		return nil, err
	}
	if !approver.Roles.Has(models.RoleApprover) {
		return nil, fmt.Errorf("%w: %s is not an approver", ErrNotAuthorized, approver.Email)
	}

	var booking models.Booking
	notify := false
	err = s.db.Transaction(func(tx *gorm.DB) error {
		// The transition is a conditional update, never an overwrite: a
		// concurrent decision that commits first leaves zero rows for us.
		res := tx.Model(&models.Booking{}).
			Where("id = ? AND status = ?", bookingID, models.StatusPending).
			Updates(map[string]interface{}{
				"status":      decision,
				"approver_id": approverID,
				"decided_at":  time.Now(),
			})
		if res.Error != nil {
			return res.Error
		}

		if err := tx.First(&booking, "id = ?", bookingID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: booking %s", ErrNotFound, bookingID)
			}
			return err
		}

		if res.RowsAffected == 0 {
			if booking.Status == decision {
				// Idempotent repeat; the first decision stands.
				return nil
			}
			return fmt.Errorf("%w: booking is %s", ErrAlreadyDecided, booking.Status)
		}

		notify = decision == models.StatusApproved
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Queued only after the transaction committed. A notification failure
	// never unwinds the approval.
	if notify && s.notifier != nil {
		s.notifier.Enqueue(booking.ID)
	}
	return &booking, nil
}

// ListBookings returns every booking with its relations, gated on the
// approver role.
func (s *BookingService) ListBookings(approverID uuid.UUID) ([]models.Booking, error) {
	approver, err := s.findUser(approverID)
	if err != nil {
		return nil, err
	}
	if !approver.Roles.Has(models.RoleApprover) {
		return nil, fmt.Errorf("%w: %s is not an approver", ErrNotAuthorized, approver.Email)
	}

	var bookings []models.Booking
	if err := s.db.Preload("User").Preload("POSUser").Preload("Service").Preload("Approver").
		Order("created_at DESC").Find(&bookings).Error; err != nil {
		return nil, err
	}
	return bookings, nil
}

func (s *BookingService) findUser(id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: user %s", ErrNotFound, id)
		}
		return nil, err
	}
	return &user, nil
}
