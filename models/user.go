package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"templeseva-backend/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role is a single capability a user may hold.
type Role string

const (
	RoleDevotee  Role = "devotee"
	RolePOS      Role = "pos"
	RoleApprover Role = "approver"
	RoleAdmin    Role = "admin"
)

// ParseRole validates a role string coming from the API boundary.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleDevotee, RolePOS, RoleApprover, RoleAdmin:
		return Role(s), nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// RoleSet is the capability set attached to a user, stored as a JSON array.
type RoleSet []Role

func (r RoleSet) Has(role Role) bool {
	for _, have := range r {
		if have == role {
			return true
		}
	}
	return false
}

func (r RoleSet) Value() (driver.Value, error) {
	if r == nil {
		r = RoleSet{}
	}
	return json.Marshal(r)
}

func (r *RoleSet) Scan(value interface{}) error {
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, r)
	case string:
		return json.Unmarshal([]byte(v), r)
	case nil:
		*r = RoleSet{}
		return nil
	}
	return errors.New("unsupported type for RoleSet")
}

type User struct {
	ID       uuid.UUID `gorm:"type:uuid;primary_key"`
	Email    string    `gorm:"uniqueIndex;not null"`
	Password string    `gorm:"not null"`
	Name     string    `gorm:"not null"`
	Phone    string

	Roles RoleSet `gorm:"type:jsonb;default:'[]'"`

	LastLogin *time.Time
	IsActive  bool `gorm:"default:true"`

	gorm.Model
}

// Initialize UUID and hash the password before creating
func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	u.ID = uuid.New()
	hashed, err := utils.HashPassword(u.Password)
	if err != nil {
		return err
	}
	u.Password = hashed
	if len(u.Roles) == 0 {
		u.Roles = RoleSet{RoleDevotee}
	}
	return
}
