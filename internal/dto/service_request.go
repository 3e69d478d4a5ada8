package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ServiceRequest is a customer's request for service on a product.
type ServiceRequest struct {
	ID               string          `json:"_id"`
	RequestID        string          `json:"request_id"`
	Product          DropDown        `json:"product"`
	Customer         DropDown        `json:"customer"`
	Machine          DropDown        `json:"machine"`
	Problem          string          `json:"problem"`
	Photos           []string        `json:"photos"`
	Videos           []string        `json:"videos"`
	PaymentMode      string          `json:"paymentMode,omitempty"`
	PaymentDate      *time.Time      `json:"paymentDate,omitempty"`
	PayableAmount    decimal.Decimal `json:"payable_amount"`
	PaidAmount       decimal.Decimal `json:"paid_amount"`
	IsApproved       bool            `json:"isApproved"`
	ApprovedBy       *DropDown       `json:"approvedBy,omitempty"`
	AssignedEngineer *DropDown       `json:"assigned_engineer,omitempty"`
	ClosedBy         *DropDown       `json:"closed_by,omitempty"`
	ClosedOn         *time.Time      `json:"closed_on,omitempty"`
	HappyCode        string          `json:"happy_code,omitempty"`
	ApprovedOn       *time.Time      `json:"approved_on,omitempty"`
	Audit
}

// NewServiceRequest opens a service request; media travel as multipart files.
type NewServiceRequest struct {
	Product string `json:"product" validate:"required" msg:"required=Required"`
	Problem string `json:"problem" validate:"required,max=100" msg:"required=Required"`
}

// ApproveServiceRequest approves a request and assigns an engineer.
type ApproveServiceRequest struct {
	Engineer string `json:"engineer" validate:"required" msg:"required=Engineer is required"`
}

// CloseServiceRequest closes a request with the customer's happy code.
type CloseServiceRequest struct {
	Code          string          `json:"code" validate:"required" msg:"required=Happy code is required"`
	PaymentMode   string          `json:"paymentMode" validate:"required,oneof=cash upi card cheque none" msg:"required=Payment mode is required,oneof=Payment mode is invalid"`
	PaymentDate   time.Time       `json:"paymentDate"`
	PayableAmount decimal.Decimal `json:"payable_amount"`
	PaidAmount    decimal.Decimal `json:"paid_amount"`
}
