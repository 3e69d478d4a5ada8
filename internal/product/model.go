package product

import (
	"time"

	"github.com/fieldops/fieldops/internal/dto"
)

// WarrantyPeriod runs from installation.
const WarrantyPeriod = 365 * 24 * time.Hour

// Product is a machine registered at a customer site.
type Product struct {
	ID               string
	SerialNo         string
	Machine          dto.DropDown
	MachinePhoto     string
	Customer         dto.DropDown
	IsInstalled      bool
	InstallationDate *time.Time
	WarrantyUpto     *time.Time
	IsActive         bool
	Audit            dto.Audit
}

// ToDTO converts a product to its wire form.
func ToDTO(p Product) dto.RegisteredProduct {
	return dto.RegisteredProduct{
		ID:               p.ID,
		SerialNo:         p.SerialNo,
		Machine:          p.Machine,
		Customer:         p.Customer,
		MachinePhoto:     p.MachinePhoto,
		IsInstalled:      p.IsInstalled,
		InstallationDate: p.InstallationDate,
		WarrantyUpto:     p.WarrantyUpto,
		IsActive:         p.IsActive,
		Audit:            p.Audit,
	}
}
