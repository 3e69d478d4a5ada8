package identity

import (
	"time"

	"github.com/fieldops/fieldops/internal/dto"
)

// Roles a user can hold.
const (
	RoleAdmin    = "admin"
	RoleOwner    = "owner"
	RoleEngineer = "engineer"
	RoleStaff    = "staff"
)

// User is anyone who can log in with a mobile number.
type User struct {
	ID           string
	Username     string
	Email        string
	Mobile       string
	Role         string
	CustomerID   string
	CustomerName string
	IsActive     bool
	LastLogin    *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Filter narrows List. Empty fields match everything.
type Filter struct {
	Roles      []string
	CustomerID string
}

func (f Filter) match(u User) bool {
	if f.CustomerID != "" && u.CustomerID != f.CustomerID {
		return false
	}
	if len(f.Roles) == 0 {
		return true
	}
	for _, r := range f.Roles {
		if u.Role == r {
			return true
		}
	}
	return false
}

// Ref returns the user as an audit reference.
func Ref(u User) dto.DropDown {
	return dto.DropDown{ID: u.ID, Label: u.Username}
}
