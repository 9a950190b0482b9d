package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Capacity-capped seva categories. Anything else falls back to
// DefaultDailyCap.
const (
	CategoryThirumanjanam = "thirumanjanam"
	CategoryAbhisekam     = "abhisekam"
)

// DefaultDailyCap applies to categories without a named cap of their own.
const DefaultDailyCap = 3

// CapacityRule is the single row holding per-day caps for the named
// categories. Mutated only through the servicelimit endpoint.
type CapacityRule struct {
	ID            uuid.UUID `gorm:"type:uuid;primary_key"`
	Thirumanjanam int       `gorm:"not null;default:3"`
	Abhisekam     int       `gorm:"not null;default:3"`

	gorm.Model
}

func (r *CapacityRule) BeforeCreate(tx *gorm.DB) (err error) {
	r.ID = uuid.New()
	return
}

// CapFor returns the daily cap for a category under this rule.
func (r CapacityRule) CapFor(category string) int {
	switch category {
	case CategoryThirumanjanam:
		return r.Thirumanjanam
	case CategoryAbhisekam:
		return r.Abhisekam
	}
	return DefaultDailyCap
}

// DayCounter tracks admissions for one category on one calendar day.
// The unique index makes the conditional increment in the booking
// service the single gate against over-admission.
type DayCounter struct {
	ID          int64     `gorm:"primary_key;autoIncrement"`
	Category    string    `gorm:"not null;uniqueIndex:idx_category_day,priority:1"`
	ServiceDate time.Time `gorm:"not null;uniqueIndex:idx_category_day,priority:2"`
	Count       int       `gorm:"not null;default:0"`
}
