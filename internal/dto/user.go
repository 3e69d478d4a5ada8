package dto

import "time"

// Roles a user can hold.
const (
	RoleAdmin    = "admin"
	RoleOwner    = "owner"
	RoleEngineer = "engineer"
	RoleStaff    = "staff"
)

// User is the identity record returned by login and profile.
type User struct {
	ID        string     `json:"_id"`
	Username  string     `json:"username"`
	Email     string     `json:"email"`
	Mobile    string     `json:"mobile"`
	Role      string     `json:"role"`
	Customer  *DropDown  `json:"customer,omitempty"`
	IsActive  bool       `json:"is_active"`
	LastLogin *time.Time `json:"last_login,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// SendOTPRequest asks the API to issue an OTP for mobile.
type SendOTPRequest struct {
	Mobile string `json:"mobile" validate:"required,len=10,number" msg:"required=mobile is required,len=mobile must be 10 digits,number=mobile must be a number"`
}

// LoginRequest exchanges an OTP for a session. OTP travels as a number.
type LoginRequest struct {
	Mobile string `json:"mobile" validate:"required,len=10,number" msg:"required=mobile is required,len=mobile must be 10 digits,number=mobile must be a number"`
	OTP    int    `json:"otp" validate:"gte=0,lte=999999" msg:"gte=otp must be 6 digits,lte=otp must be 6 digits"`
}

// LoginResponse is returned by login.
type LoginResponse struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}

// ProfileResponse is returned by profile.
type ProfileResponse struct {
	User User `json:"user"`
}

// CreateOrEditUser creates or edits staff and engineers.
type CreateOrEditUser struct {
	Username string `json:"username" validate:"required,min=4,max=100" msg:"required=Username is required"`
	Email    string `json:"email" validate:"omitempty,email" msg:"email=Invalid email"`
	Mobile   string `json:"mobile" validate:"required,len=10,number" msg:"required=Mobile is required,len=Mobile must be a 10-digit number,number=Mobile must be a 10-digit number"`
	Role     string `json:"role" validate:"omitempty,oneof=admin owner engineer staff" msg:"oneof=Role is invalid"`
	Customer string `json:"customer" validate:"required" msg:"required=Customer is required"`
}

// DevOTPResponse is returned by the development OTP inbox.
type DevOTPResponse struct {
	OTP string `json:"otp"`
}
