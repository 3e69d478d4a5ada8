package servicerequest

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/fieldops/fieldops/internal/dto"
)

// Request is a customer's request for service on a registered product.
type Request struct {
	ID               string
	RequestID        string
	Product          dto.DropDown
	Customer         dto.DropDown
	Machine          dto.DropDown
	Problem          string
	Photos           []string
	Videos           []string
	PaymentMode      string
	PaymentDate      *time.Time
	PayableAmount    decimal.Decimal
	PaidAmount       decimal.Decimal
	IsApproved       bool
	ApprovedBy       *dto.DropDown
	ApprovedOn       *time.Time
	AssignedEngineer *dto.DropDown
	ClosedBy         *dto.DropDown
	ClosedOn         *time.Time
	HappyCode        string
	// CodeAttempts counts happy code submissions since the last approval.
	CodeAttempts     int
	Audit            dto.Audit
}

// Closed reports whether the request has been closed.
func (r Request) Closed() bool {
	return r.ClosedOn != nil
}

// Filter narrows List. Empty fields match everything.
type Filter struct {
	CustomerID string
	EngineerID string
}

func (f Filter) match(r Request) bool {
	if f.CustomerID != "" && r.Customer.ID != f.CustomerID {
		return false
	}
	if f.EngineerID != "" && (r.AssignedEngineer == nil || r.AssignedEngineer.ID != f.EngineerID) {
		return false
	}
	return true
}

// ToDTO converts a request to its wire form. The happy code is only included
// when showCode is set.
func ToDTO(r Request, showCode bool) dto.ServiceRequest {
	out := dto.ServiceRequest{
		ID:               r.ID,
		RequestID:        r.RequestID,
		Product:          r.Product,
		Customer:         r.Customer,
		Machine:          r.Machine,
		Problem:          r.Problem,
		Photos:           nonNil(r.Photos),
		Videos:           nonNil(r.Videos),
		PaymentMode:      r.PaymentMode,
		PaymentDate:      r.PaymentDate,
		PayableAmount:    r.PayableAmount,
		PaidAmount:       r.PaidAmount,
		IsApproved:       r.IsApproved,
		ApprovedBy:       r.ApprovedBy,
		AssignedEngineer: r.AssignedEngineer,
		ClosedBy:         r.ClosedBy,
		ClosedOn:         r.ClosedOn,
		ApprovedOn:       r.ApprovedOn,
		Audit:            r.Audit,
	}
	if showCode {
		out.HappyCode = r.HappyCode
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
