package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service is a bookable seva offering. Offerings are never hard-deleted;
// retiring one flips IsActive (plus the gorm soft delete on admin removal).
type Service struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key"`
	Name        string    `gorm:"not null"`
	Description string
	Price       float64 `gorm:"type:decimal(10,2);not null"`
	Category    string  `gorm:"default:'general'"` // thirumanjanam and abhisekam carry daily caps
	IsActive    bool    `gorm:"default:true"`

	Bookings []Booking `gorm:"foreignKey:ServiceID"`

	gorm.Model
}

func (s *Service) BeforeCreate(tx *gorm.DB) (err error) {
	s.ID = uuid.New()
	return
}
