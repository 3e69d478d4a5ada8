package sparepart

import (
	"github.com/shopspring/decimal"

	"github.com/fieldops/fieldops/internal/dto"
)

// Part is a spare part compatible with one or more machines.
type Part struct {
	ID       string
	Name     string
	PartNo   string
	Photo    string
	Price    decimal.Decimal
	Machines []dto.DropDown
	IsActive bool
	Audit    dto.Audit
}

// ToDTO converts a part to its wire form.
func ToDTO(p Part) dto.SparePart {
	machines := p.Machines
	if machines == nil {
		machines = []dto.DropDown{}
	}
	return dto.SparePart{
		ID:                 p.ID,
		Name:               p.Name,
		PartNo:             p.PartNo,
		Photo:              p.Photo,
		Price:              p.Price,
		CompatibleMachines: machines,
		IsActive:           p.IsActive,
		Audit:              p.Audit,
	}
}
