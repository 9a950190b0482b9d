package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// BookingStatus is the closed set of booking lifecycle states.
type BookingStatus string

const (
	StatusPending  BookingStatus = "PENDING"
	StatusApproved BookingStatus = "APPROVED"
	StatusRejected BookingStatus = "REJECTED"
)

// Terminal reports whether no further transition is allowed from the status.
func (s BookingStatus) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// ParseDecision validates an approver's decision string. PENDING is not a
// decision; a booking can never return to it.
func ParseDecision(s string) (BookingStatus, error) {
	switch BookingStatus(s) {
	case StatusApproved, StatusRejected:
		return BookingStatus(s), nil
	}
	return "", fmt.Errorf("invalid decision %q", s)
}

// Booking is one devotee's request for a seva on a date. Rows are created
// by POS staff, decided exactly once by an approver, and never deleted.
type Booking struct {
	ID            uuid.UUID `gorm:"type:uuid;primary_key"`
	ReceiptNumber string    `gorm:"uniqueIndex;not null"`

	UserID    uuid.UUID `gorm:"type:uuid;index;not null"` // devotee the seva is booked for
	POSUserID uuid.UUID `gorm:"type:uuid;index;not null"` // staff member who recorded it
	ServiceID uuid.UUID `gorm:"type:uuid;index;not null"`

	Category    string    `gorm:"index;not null"`
	ServiceDate time.Time `gorm:"index;not null"` // normalized to midnight UTC

	Price         float64 `gorm:"type:decimal(10,2);not null"`
	PaymentMode   string
	TransactionID string

	Status     BookingStatus `gorm:"type:varchar(10);index;default:'PENDING'"`
	ApproverID *uuid.UUID    `gorm:"type:uuid;index"`
	DecidedAt  *time.Time

	User     User    `gorm:"foreignKey:UserID"`
	POSUser  User    `gorm:"foreignKey:POSUserID"`
	Service  Service `gorm:"foreignKey:ServiceID"`
	Approver *User   `gorm:"foreignKey:ApproverID"`

	CreatedAt time.Time
}
