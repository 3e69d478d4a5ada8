package dto

import "time"

// RegisteredProduct is a machine installed at a customer site.
type RegisteredProduct struct {
	ID               string     `json:"_id"`
	SerialNo         string     `json:"sl_no"`
	Machine          DropDown   `json:"machine"`
	Customer         DropDown   `json:"customer"`
	MachinePhoto     string     `json:"machine_photo"`
	IsInstalled      bool       `json:"isInstalled"`
	InstallationDate *time.Time `json:"installationDate,omitempty"`
	WarrantyUpto     *time.Time `json:"warrantyUpto,omitempty"`
	IsActive         bool       `json:"is_active"`
	Audit
}

// CreateOrEditRegisteredProduct registers or edits a product.
type CreateOrEditRegisteredProduct struct {
	Customer    string `json:"customer" validate:"required" msg:"required=Customer is required"`
	SerialNo    string `json:"sl_no" validate:"required" msg:"required=Serial number is required"`
	Machine     string `json:"machine" validate:"required" msg:"required=Machine type is required"`
	IsInstalled bool   `json:"isInstalled"`
}
