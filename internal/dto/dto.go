// Package dto holds the JSON shapes exchanged between the field-service
// client and the API. Field names follow the wire contract.
package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Money travels as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

// DropDown is the minimal {id, label} shape used to populate selection lists.
type DropDown struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Audit carries creation and update metadata shared by every entity.
type Audit struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	CreatedBy DropDown  `json:"created_by"`
	UpdatedBy DropDown  `json:"updated_by"`
}

// Error is the error body returned by the API.
type Error struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Message is the body of mutations that only acknowledge.
type Message struct {
	Message string `json:"message"`
}
